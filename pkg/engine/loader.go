package engine

import (
	"context"
	"fmt"

	"github.com/dukex/automation/pkg/fieldbag"
	"github.com/dukex/automation/pkg/models"
	"github.com/dukex/automation/pkg/persistence"
)

var ErrUnknownEntityType = fieldbag.ErrUnknownEntityType

// EntityLoader loads context entities together with the associations the context
// builder derives values from: an incase's client and webform, a variant's product, and
// a message's incase, client and user.
type EntityLoader struct {
	entities persistence.EntityRepository
	messages persistence.MessageRepository
}

func NewEntityLoader(p persistence.Persistence) *EntityLoader {
	return &EntityLoader{entities: p.Entities(), messages: p.Messages()}
}

// Load returns (nil, nil) when the entity does not exist.
func (l *EntityLoader) Load(ctx context.Context, tenantID string, ref models.Reference) (any, error) {
	entity, err := l.load(ctx, tenantID, ref)
	if err != nil {
		if persistence.IsNotFound(err) {
			return nil, nil
		}

		return nil, err
	}

	return entity, nil
}

func (l *EntityLoader) load(ctx context.Context, tenantID string, ref models.Reference) (any, error) {
	switch ref.Type {
	case models.EntityIncase:
		incase, err := l.incase(ctx, tenantID, ref.ID)
		if err != nil {
			return nil, err
		}

		return incase, nil
	case models.EntityClient:
		client, err := l.entities.Client(ctx, tenantID, ref.ID)
		if err != nil {
			return nil, err
		}

		return client, nil
	case models.EntityWebform:
		webform, err := l.entities.Webform(ctx, tenantID, ref.ID)
		if err != nil {
			return nil, err
		}

		return webform, nil
	case models.EntityVariant:
		variant, err := l.entities.Variant(ctx, tenantID, ref.ID)
		if err != nil {
			return nil, err
		}

		if variant.ProductID != "" {
			product, err := optional(l.entities.Product(ctx, tenantID, variant.ProductID))
			if err != nil {
				return nil, err
			}

			variant.Product = product
		}

		return variant, nil
	case models.EntityProduct:
		product, err := l.entities.Product(ctx, tenantID, ref.ID)
		if err != nil {
			return nil, err
		}

		return product, nil
	case models.EntityUser:
		user, err := l.entities.User(ctx, tenantID, ref.ID)
		if err != nil {
			return nil, err
		}

		return user, nil
	case models.EntityAutomationMessage:
		msg, err := l.message(ctx, tenantID, ref.ID)
		if err != nil {
			return nil, err
		}

		return msg, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEntityType, ref.Type)
	}
}

func (l *EntityLoader) incase(ctx context.Context, tenantID, id string) (*models.Incase, error) {
	incase, err := l.entities.Incase(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	if incase.ClientID != "" {
		if incase.Client, err = optional(l.entities.Client(ctx, tenantID, incase.ClientID)); err != nil {
			return nil, err
		}
	}

	if incase.WebformID != "" {
		if incase.Webform, err = optional(l.entities.Webform(ctx, tenantID, incase.WebformID)); err != nil {
			return nil, err
		}
	}

	return incase, nil
}

func (l *EntityLoader) message(ctx context.Context, tenantID, id string) (*models.Message, error) {
	msg, err := l.messages.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if msg.TenantID != tenantID {
		return nil, persistence.ErrMessageNotFound
	}

	if msg.IncaseID != "" {
		incase, err := l.incase(ctx, tenantID, msg.IncaseID)
		if err != nil && !persistence.IsNotFound(err) {
			return nil, err
		}

		msg.Incase = incase
	}

	if msg.ClientID != "" {
		if msg.Client, err = optional(l.entities.Client(ctx, tenantID, msg.ClientID)); err != nil {
			return nil, err
		}
	}

	if msg.UserID != "" {
		if msg.User, err = optional(l.entities.User(ctx, tenantID, msg.UserID)); err != nil {
			return nil, err
		}
	}

	return msg, nil
}

// optional turns a not-found lookup into a nil association.
func optional[T any](entity *T, err error) (*T, error) {
	if err != nil {
		if persistence.IsNotFound(err) {
			return nil, nil
		}

		return nil, err
	}

	return entity, nil
}
