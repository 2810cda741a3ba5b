package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dukex/automation/pkg/models"
	"github.com/dukex/automation/pkg/persistence"
)

// EntityRepository reads the commerce tables. Associations are left unset.
type EntityRepository struct {
	db *sql.DB
}

func NewEntityRepository(db *sql.DB) *EntityRepository {
	return &EntityRepository{db: db}
}

func (r *EntityRepository) Incase(ctx context.Context, tenantID, id string) (*models.Incase, error) {
	var incase models.Incase

	err := r.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, number, status, total, paid, comment, client_id, webform_id, created_at, updated_at
		FROM incases
		WHERE tenant_id = $1 AND id = $2
	`, tenantID, id).Scan(
		&incase.ID, &incase.TenantID, &incase.Number, &incase.Status, &incase.Total, &incase.Paid,
		&incase.Comment, &incase.ClientID, &incase.WebformID, &incase.CreatedAt, &incase.UpdatedAt,
	)
	if err != nil {
		return nil, entityErr("Incase", models.EntityIncase, id, err)
	}

	return &incase, nil
}

func (r *EntityRepository) Client(ctx context.Context, tenantID, id string) (*models.Client, error) {
	var client models.Client

	err := r.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, name, surname, email, phone, bot_chat_id, username, subscribed, created_at
		FROM clients
		WHERE tenant_id = $1 AND id = $2
	`, tenantID, id).Scan(
		&client.ID, &client.TenantID, &client.Name, &client.Surname, &client.Email, &client.Phone,
		&client.BotChatID, &client.Username, &client.Subscribed, &client.CreatedAt,
	)
	if err != nil {
		return nil, entityErr("Client", models.EntityClient, id, err)
	}

	return &client, nil
}

func (r *EntityRepository) Webform(ctx context.Context, tenantID, id string) (*models.Webform, error) {
	var webform models.Webform

	err := r.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, kind, title FROM webforms WHERE tenant_id = $1 AND id = $2
	`, tenantID, id).Scan(&webform.ID, &webform.TenantID, &webform.Kind, &webform.Title)
	if err != nil {
		return nil, entityErr("Webform", models.EntityWebform, id, err)
	}

	return &webform, nil
}

func (r *EntityRepository) Variant(ctx context.Context, tenantID, id string) (*models.Variant, error) {
	var variant models.Variant

	err := r.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, product_id, sku, title, quantity, price
		FROM variants
		WHERE tenant_id = $1 AND id = $2
	`, tenantID, id).Scan(
		&variant.ID, &variant.TenantID, &variant.ProductID, &variant.SKU, &variant.Title,
		&variant.Quantity, &variant.Price,
	)
	if err != nil {
		return nil, entityErr("Variant", models.EntityVariant, id, err)
	}

	return &variant, nil
}

func (r *EntityRepository) Product(ctx context.Context, tenantID, id string) (*models.Product, error) {
	var product models.Product

	err := r.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, title, url FROM products WHERE tenant_id = $1 AND id = $2
	`, tenantID, id).Scan(&product.ID, &product.TenantID, &product.Title, &product.URL)
	if err != nil {
		return nil, entityErr("Product", models.EntityProduct, id, err)
	}

	return &product, nil
}

func (r *EntityRepository) User(ctx context.Context, tenantID, id string) (*models.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, name, email, phone, role FROM tenant_users WHERE tenant_id = $1 AND id = $2
	`, tenantID, id))
	if err != nil {
		return nil, entityErr("User", models.EntityUser, id, err)
	}

	return user, nil
}

func (r *EntityRepository) UpdateIncaseStatus(ctx context.Context, tenantID, id, status string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE incases SET status = $3, updated_at = NOW() WHERE tenant_id = $1 AND id = $2
	`, tenantID, id, status)
	if err != nil {
		return fmt.Errorf("failed to update status of incase %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update status of incase %s: %w", id, err)
	}

	if affected == 0 {
		return persistence.NewEntityError("UpdateIncaseStatus", models.EntityIncase, id, persistence.ErrEntityNotFound)
	}

	return nil
}

func entityErr(op, entityType, id string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return persistence.NewEntityError(op, entityType, id, persistence.ErrEntityNotFound)
	}

	return persistence.NewEntityError(op, entityType, id, err)
}
