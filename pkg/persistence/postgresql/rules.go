package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/automation/pkg/models"
	"github.com/dukex/automation/pkg/persistence"
)

// RuleRepository stores rules with their step graph serialized as JSONB.
type RuleRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewRuleRepository(db *sql.DB, logger *slog.Logger) *RuleRepository {
	return &RuleRepository{db: db, logger: logger}
}

const ruleColumns = `
	id
  , tenant_id
  , title
  , event
  , active
  , position
  , steps
  , scheduled_for
  , job_handle
  , created_at
  , updated_at
`

func (r *RuleRepository) ActiveByEvent(ctx context.Context, tenantID, event string) ([]*models.Rule, error) {
	query := `SELECT ` + ruleColumns + `
		FROM automation_rules
		WHERE tenant_id = $1 AND event = $2 AND active
		ORDER BY position ASC, id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, tenantID, event)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer closeRows(ctx, r.logger, rows)

	rules := make([]*models.Rule, 0)

	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}

		rules = append(rules, rule)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rules: %w", err)
	}

	return rules, nil
}

func (r *RuleRepository) GetByID(ctx context.Context, tenantID, id string) (*models.Rule, error) {
	query := `SELECT ` + ruleColumns + `
		FROM automation_rules
		WHERE tenant_id = $1 AND id = $2
	`

	rule, err := scanRule(r.db.QueryRowContext(ctx, query, tenantID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewRuleError("GetByID", tenantID, id, persistence.ErrRuleNotFound)
		}

		return nil, persistence.NewRuleError("GetByID", tenantID, id, err)
	}

	return rule, nil
}

func (r *RuleRepository) Save(ctx context.Context, rule *models.Rule) error {
	now := time.Now().UTC()

	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = now
	}

	rule.UpdatedAt = now

	for _, step := range rule.Steps {
		step.RuleID = rule.ID
		if step.Action != nil {
			step.Action.RuleID = rule.ID
		}
	}

	steps, err := json.Marshal(rule.Steps)
	if err != nil {
		return persistence.NewRuleError("Save", rule.TenantID, rule.ID, fmt.Errorf("failed to encode steps: %w", err))
	}

	query := `
		INSERT INTO automation_rules (id, tenant_id, title, event, active, position, steps, scheduled_for, job_handle, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title
		  , event = EXCLUDED.event
		  , active = EXCLUDED.active
		  , position = EXCLUDED.position
		  , steps = EXCLUDED.steps
		  , updated_at = EXCLUDED.updated_at
		WHERE automation_rules.tenant_id = EXCLUDED.tenant_id
	`

	_, err = r.db.ExecContext(ctx, query,
		rule.ID, rule.TenantID, rule.Title, rule.Event, rule.Active, rule.Position, steps,
		rule.ScheduledFor, rule.JobHandle, rule.CreatedAt, rule.UpdatedAt,
	)
	if err != nil {
		return persistence.NewRuleError("Save", rule.TenantID, rule.ID, err)
	}

	return nil
}

func (r *RuleRepository) UpdateSchedule(ctx context.Context, tenantID, ruleID string, scheduledFor *time.Time, jobHandle string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE automation_rules
		SET scheduled_for = $3, job_handle = $4, updated_at = $5
		WHERE tenant_id = $1 AND id = $2
	`, tenantID, ruleID, scheduledFor, jobHandle, time.Now().UTC())
	if err != nil {
		return persistence.NewRuleError("UpdateSchedule", tenantID, ruleID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewRuleError("UpdateSchedule", tenantID, ruleID, err)
	}

	if affected == 0 {
		return persistence.NewRuleError("UpdateSchedule", tenantID, ruleID, persistence.ErrRuleNotFound)
	}

	return nil
}

func scanRule(row rowScanner) (*models.Rule, error) {
	var (
		rule         models.Rule
		steps        []byte
		scheduledFor sql.NullTime
	)

	err := row.Scan(
		&rule.ID,
		&rule.TenantID,
		&rule.Title,
		&rule.Event,
		&rule.Active,
		&rule.Position,
		&steps,
		&scheduledFor,
		&rule.JobHandle,
		&rule.CreatedAt,
		&rule.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(steps, &rule.Steps); err != nil {
		return nil, fmt.Errorf("failed to decode steps: %w", err)
	}

	if scheduledFor.Valid {
		rule.ScheduledFor = &scheduledFor.Time
	}

	return &rule, nil
}
