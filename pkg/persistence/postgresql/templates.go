package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dukex/automation/pkg/models"
	"github.com/dukex/automation/pkg/persistence"
)

type TemplateRepository struct {
	db *sql.DB
}

func NewTemplateRepository(db *sql.DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

func (r *TemplateRepository) Find(ctx context.Context, tenantID, id string) (*models.Template, error) {
	tpl := models.Template{TenantID: tenantID, ID: id}

	err := r.db.QueryRowContext(ctx, `
		SELECT title, subject, body
		FROM automation_templates
		WHERE tenant_id = $1 AND id = $2
	`, tenantID, id).Scan(&tpl.Title, &tpl.Subject, &tpl.Body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrTemplateNotFound
		}

		return nil, fmt.Errorf("failed to query template %s: %w", id, err)
	}

	return &tpl, nil
}

func (r *TemplateRepository) Save(ctx context.Context, tpl *models.Template) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO automation_templates (tenant_id, id, title, subject, body)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (tenant_id, id) DO UPDATE SET
			title = EXCLUDED.title
		  , subject = EXCLUDED.subject
		  , body = EXCLUDED.body
	`, tpl.TenantID, tpl.ID, tpl.Title, tpl.Subject, tpl.Body)
	if err != nil {
		return fmt.Errorf("failed to save template %s: %w", tpl.ID, err)
	}

	return nil
}
