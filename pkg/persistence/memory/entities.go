package memory

import (
	"context"

	"github.com/dukex/automation/pkg/models"
	"github.com/dukex/automation/pkg/persistence"
)

type entityRepository struct{ p *Persistence }

func lookup[T any](r entityRepository, store map[tenantKey]*T, op, entityType, tenantID, id string) (*T, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	entity, ok := store[tenantKey{tenantID, id}]
	if !ok {
		return nil, persistence.NewEntityError(op, entityType, id, persistence.ErrEntityNotFound)
	}

	clone := *entity

	return &clone, nil
}

func (r entityRepository) Incase(_ context.Context, tenantID, id string) (*models.Incase, error) {
	return lookup(r, r.p.incases, "Incase", models.EntityIncase, tenantID, id)
}

func (r entityRepository) Client(_ context.Context, tenantID, id string) (*models.Client, error) {
	return lookup(r, r.p.clients, "Client", models.EntityClient, tenantID, id)
}

func (r entityRepository) Webform(_ context.Context, tenantID, id string) (*models.Webform, error) {
	return lookup(r, r.p.webforms, "Webform", models.EntityWebform, tenantID, id)
}

func (r entityRepository) Variant(_ context.Context, tenantID, id string) (*models.Variant, error) {
	return lookup(r, r.p.variants, "Variant", models.EntityVariant, tenantID, id)
}

func (r entityRepository) Product(_ context.Context, tenantID, id string) (*models.Product, error) {
	return lookup(r, r.p.products, "Product", models.EntityProduct, tenantID, id)
}

func (r entityRepository) User(_ context.Context, tenantID, id string) (*models.User, error) {
	return lookup(r, r.p.users, "User", models.EntityUser, tenantID, id)
}

func (r entityRepository) UpdateIncaseStatus(_ context.Context, tenantID, id, status string) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	incase, ok := r.p.incases[tenantKey{tenantID, id}]
	if !ok {
		return persistence.NewEntityError("UpdateIncaseStatus", models.EntityIncase, id, persistence.ErrEntityNotFound)
	}

	incase.Status = status
	incase.UpdatedAt = r.p.now()

	return nil
}
