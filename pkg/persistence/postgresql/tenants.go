package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/automation/pkg/models"
	"github.com/dukex/automation/pkg/persistence"
)

// tenantSettings is the JSONB shape of tenants.settings.
type tenantSettings struct {
	EmailProvider *models.EmailProviderConfig `json:"email_provider,omitempty"`
	SMS           models.SMSConfig            `json:"sms"`
	Bot           *models.BotConfig           `json:"bot,omitempty"`
	Personal      *models.PersonalConfig      `json:"personal,omitempty"`
}

type TenantRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewTenantRepository(db *sql.DB, logger *slog.Logger) *TenantRepository {
	return &TenantRepository{db: db, logger: logger}
}

func (r *TenantRepository) Tenant(ctx context.Context, id string) (*models.Tenant, error) {
	var (
		tenant   models.Tenant
		raw      []byte
		settings tenantSettings
	)

	err := r.db.QueryRowContext(ctx, `SELECT id, name, settings FROM tenants WHERE id = $1`, id).
		Scan(&tenant.ID, &tenant.Name, &raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrTenantNotFound
		}

		return nil, fmt.Errorf("failed to query tenant %s: %w", id, err)
	}

	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &settings); err != nil {
			return nil, fmt.Errorf("failed to unmarshal settings of tenant %s: %w", id, err)
		}
	}

	tenant.EmailProvider = settings.EmailProvider
	tenant.SMS = settings.SMS
	tenant.Bot = settings.Bot
	tenant.Personal = settings.Personal

	return &tenant, nil
}

// Save upserts the tenant and its channel settings.
func (r *TenantRepository) Save(ctx context.Context, tenant *models.Tenant) error {
	raw, err := json.Marshal(tenantSettings{
		EmailProvider: tenant.EmailProvider,
		SMS:           tenant.SMS,
		Bot:           tenant.Bot,
		Personal:      tenant.Personal,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal tenant settings: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO tenants (id, name, settings) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, settings = EXCLUDED.settings
	`, tenant.ID, tenant.Name, raw)
	if err != nil {
		return fmt.Errorf("failed to save tenant %s: %w", tenant.ID, err)
	}

	return nil
}

func (r *TenantRepository) Users(ctx context.Context, tenantID string) ([]*models.User, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, tenant_id, name, email, phone, role
		FROM tenant_users
		WHERE tenant_id = $1
		ORDER BY id
	`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query users of tenant %s: %w", tenantID, err)
	}
	defer closeRows(ctx, r.logger, rows)

	users := make([]*models.User, 0)

	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}

		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return users, nil
}

func scanUser(row rowScanner) (*models.User, error) {
	var user models.User

	err := row.Scan(&user.ID, &user.TenantID, &user.Name, &user.Email, &user.Phone, &user.Role)
	if err != nil {
		return nil, err
	}

	return &user, nil
}
