package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dukex/automation/pkg/models"
	"github.com/dukex/automation/pkg/persistence"
)

// ContinuationRepository keys continuations by rule id, so saving replaces any previous one.
type ContinuationRepository struct {
	db *sql.DB
}

func NewContinuationRepository(db *sql.DB) *ContinuationRepository {
	return &ContinuationRepository{db: db}
}

func (r *ContinuationRepository) Save(ctx context.Context, continuation *models.Continuation) error {
	contextJSON, err := json.Marshal(continuation.Context)
	if err != nil {
		return fmt.Errorf("failed to marshal continuation context: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO automation_continuations (rule_id, tenant_id, resume_step_id, context, expected_at, job_handle, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (rule_id) DO UPDATE SET
			tenant_id = EXCLUDED.tenant_id
		  , resume_step_id = EXCLUDED.resume_step_id
		  , context = EXCLUDED.context
		  , expected_at = EXCLUDED.expected_at
		  , job_handle = EXCLUDED.job_handle
		  , created_at = EXCLUDED.created_at
	`, continuation.RuleID, continuation.TenantID, continuation.ResumeStepID, contextJSON,
		continuation.ExpectedAt, continuation.JobHandle, continuation.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save continuation for rule %s: %w", continuation.RuleID, err)
	}

	return nil
}

func (r *ContinuationRepository) GetByRule(ctx context.Context, ruleID string) (*models.Continuation, error) {
	var (
		continuation models.Continuation
		contextJSON  []byte
	)

	err := r.db.QueryRowContext(ctx, `
		SELECT rule_id, tenant_id, resume_step_id, context, expected_at, job_handle, created_at
		FROM automation_continuations
		WHERE rule_id = $1
	`, ruleID).Scan(
		&continuation.RuleID,
		&continuation.TenantID,
		&continuation.ResumeStepID,
		&contextJSON,
		&continuation.ExpectedAt,
		&continuation.JobHandle,
		&continuation.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrContinuationNotFound
		}

		return nil, fmt.Errorf("failed to query continuation for rule %s: %w", ruleID, err)
	}

	if err := json.Unmarshal(contextJSON, &continuation.Context); err != nil {
		return nil, fmt.Errorf("failed to unmarshal continuation context: %w", err)
	}

	return &continuation, nil
}

func (r *ContinuationRepository) Delete(ctx context.Context, ruleID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM automation_continuations WHERE rule_id = $1`, ruleID)
	if err != nil {
		return fmt.Errorf("failed to delete continuation for rule %s: %w", ruleID, err)
	}

	return nil
}

func (r *ContinuationRepository) DeleteIfHandle(ctx context.Context, ruleID, jobHandle string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM automation_continuations WHERE rule_id = $1 AND job_handle = $2`, ruleID, jobHandle)
	if err != nil {
		return false, fmt.Errorf("failed to delete continuation for rule %s: %w", ruleID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to delete continuation for rule %s: %w", ruleID, err)
	}

	return affected > 0, nil
}
