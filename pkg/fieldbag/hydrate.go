package fieldbag

import (
	"context"
	"errors"
	"fmt"

	"github.com/dukex/automation/pkg/models"
)

var (
	ErrSubjectMissing    = errors.New("context subject no longer exists")
	ErrUnknownEntityType = errors.New("unknown entity type")
)

// Loader fetches a tenant entity by reference. Implementations return (nil, nil) when
// the entity no longer exists and an error only for lookup failures.
type Loader interface {
	Load(ctx context.Context, tenantID string, ref models.Reference) (any, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, tenantID string, ref models.Reference) (any, error)

func (f LoaderFunc) Load(ctx context.Context, tenantID string, ref models.Reference) (any, error) {
	return f(ctx, tenantID, ref)
}

// TypeForKey maps a context key to the entity type stored under it.
func TypeForKey(key string) string {
	switch key {
	case models.EntityVariants:
		return models.EntityVariant
	case models.EntityIncases:
		return models.EntityIncase
	default:
		return key
	}
}

// KnownType reports whether entityType can be loaded into a context.
func KnownType(entityType string) bool {
	switch entityType {
	case models.EntityIncase, models.EntityClient, models.EntityWebform, models.EntityVariant,
		models.EntityProduct, models.EntityUser, models.EntityAutomationMessage:
		return true
	default:
		return false
	}
}

// KnownKey reports whether key is a context key with a loadable entity type.
func KnownKey(key string) bool {
	return KnownType(TypeForKey(key))
}

// Hydrate rebuilds a bag from serialized references. Entities that disappeared since
// serialization are left out, as are keys with no entity type. A missing subject is an
// error.
func Hydrate(ctx context.Context, loader Loader, tenantID string, refs models.ContextRefs) (*Bag, error) {
	if !KnownType(refs.Subject.Type) {
		return nil, fmt.Errorf("%w: subject %q", ErrUnknownEntityType, refs.Subject.Type)
	}

	subject, err := loader.Load(ctx, tenantID, refs.Subject)
	if err != nil {
		return nil, fmt.Errorf("failed to load subject %s/%s: %w", refs.Subject.Type, refs.Subject.ID, err)
	}

	if subject == nil {
		return nil, fmt.Errorf("%w: %s/%s", ErrSubjectMissing, refs.Subject.Type, refs.Subject.ID)
	}

	in := Input{Event: refs.Event, Subject: subject}

	for key, id := range refs.Entities {
		if !KnownKey(key) {
			continue
		}

		ref := models.Reference{Type: TypeForKey(key), ID: id}
		if ref == refs.Subject {
			continue
		}

		entity, err := loader.Load(ctx, tenantID, ref)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s %s: %w", key, id, err)
		}

		if entity != nil {
			in.Overrides.Set(key, entity)
		}
	}

	for key, ids := range refs.Lists {
		if !KnownKey(key) {
			continue
		}

		for _, id := range ids {
			entity, err := loader.Load(ctx, tenantID, models.Reference{Type: TypeForKey(key), ID: id})
			if err != nil {
				return nil, fmt.Errorf("failed to load %s %s: %w", key, id, err)
			}

			if entity != nil {
				in.Overrides.Set(key, entity)
			}
		}

		if len(ids) == 0 {
			switch key {
			case models.EntityVariants:
				in.Overrides.Variants = []*models.Variant{}
			case models.EntityIncases:
				in.Overrides.Incases = []*models.Incase{}
			}
		}
	}

	return Build(in), nil
}
