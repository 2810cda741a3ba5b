package fieldbag

import (
	"strings"

	"github.com/dukex/automation/pkg/models"
)

// StandardKeys are always present in Data so templates can address them without
// tripping over missing maps.
var StandardKeys = []string{
	models.EntityIncase,
	models.EntityClient,
	models.EntityWebform,
	models.EntityVariant,
	models.EntityProduct,
	models.EntityUser,
	models.EntityAutomationMessage,
}

// Bag is the immutable evaluation context of one rule execution.
type Bag struct {
	event   string
	subject models.Reference
	values  map[string]Value
}

// Overrides are explicitly supplied context entities. They always win over values
// derived from the subject.
type Overrides struct {
	Incase   *models.Incase
	Client   *models.Client
	Webform  *models.Webform
	Variant  *models.Variant
	Product  *models.Product
	User     *models.User
	Variants []*models.Variant
	Incases  []*models.Incase
}

// Set assigns an entity loaded for the given context key. It reports false when the key
// or the entity type is not one Overrides can hold.
func (o *Overrides) Set(key string, entity any) bool {
	switch key {
	case models.EntityIncase:
		e, ok := entity.(*models.Incase)
		if ok {
			o.Incase = e
		}

		return ok
	case models.EntityClient:
		e, ok := entity.(*models.Client)
		if ok {
			o.Client = e
		}

		return ok
	case models.EntityWebform:
		e, ok := entity.(*models.Webform)
		if ok {
			o.Webform = e
		}

		return ok
	case models.EntityVariant:
		e, ok := entity.(*models.Variant)
		if ok {
			o.Variant = e
		}

		return ok
	case models.EntityProduct:
		e, ok := entity.(*models.Product)
		if ok {
			o.Product = e
		}

		return ok
	case models.EntityUser:
		e, ok := entity.(*models.User)
		if ok {
			o.User = e
		}

		return ok
	case models.EntityVariants:
		e, ok := entity.(*models.Variant)
		if ok {
			o.Variants = append(o.Variants, e)
		}

		return ok
	case models.EntityIncases:
		e, ok := entity.(*models.Incase)
		if ok {
			o.Incases = append(o.Incases, e)
		}

		return ok
	default:
		return false
	}
}

// Input is everything Build needs.
type Input struct {
	Event     string
	Subject   any
	Overrides Overrides
}

// Build derives the context from the subject and applies the explicit overrides.
// It has no side effects.
func Build(in Input) *Bag {
	b := &Bag{event: in.Event, values: make(map[string]Value)}

	switch subject := in.Subject.(type) {
	case *models.Incase:
		if subject != nil {
			b.subject = models.Reference{Type: models.EntityIncase, ID: subject.ID}
			b.put(models.EntityIncase, subject)
			b.put(models.EntityClient, subject.Client)
			b.put(models.EntityWebform, subject.Webform)
		}
	case *models.Variant:
		if subject != nil {
			b.subject = models.Reference{Type: models.EntityVariant, ID: subject.ID}
			b.put(models.EntityVariant, subject)
			b.put(models.EntityProduct, subject.Product)
		}
	case *models.Client:
		if subject != nil {
			b.subject = models.Reference{Type: models.EntityClient, ID: subject.ID}
			b.put(models.EntityClient, subject)
		}
	case *models.User:
		if subject != nil {
			b.subject = models.Reference{Type: models.EntityUser, ID: subject.ID}
			b.put(models.EntityUser, subject)
		}
	case *models.Message:
		if subject != nil {
			b.subject = models.Reference{Type: models.EntityAutomationMessage, ID: subject.ID}
			b.put(models.EntityAutomationMessage, subject)
			b.put(models.EntityUser, subject.User)
		}
	}

	o := in.Overrides
	b.put(models.EntityIncase, o.Incase)
	b.put(models.EntityClient, o.Client)
	b.put(models.EntityWebform, o.Webform)
	b.put(models.EntityVariant, o.Variant)
	b.put(models.EntityProduct, o.Product)
	b.put(models.EntityUser, o.User)

	if o.Variants != nil {
		b.put(models.EntityVariants, o.Variants)
	}

	if o.Incases != nil {
		b.put(models.EntityIncases, o.Incases)
	}

	if msg, ok := in.Subject.(*models.Message); ok && msg != nil {
		b.backfill(models.EntityIncase, msg.Incase)
		b.backfill(models.EntityClient, msg.Client)
	}

	if incase := b.Incase(); incase != nil {
		b.backfill(models.EntityClient, incase.Client)
		b.backfill(models.EntityWebform, incase.Webform)
	}

	if variant := b.Variant(); variant != nil {
		b.backfill(models.EntityProduct, variant.Product)
	}

	return b
}

func (b *Bag) put(key string, entity any) {
	if v := Of(entity); !v.IsNil() {
		b.values[key] = v
	}
}

func (b *Bag) backfill(key string, entity any) {
	if _, ok := b.values[key]; !ok {
		b.put(key, entity)
	}
}

func (b *Bag) Event() string { return b.event }

func (b *Bag) Subject() models.Reference { return b.subject }

// Get resolves a dotted path. Each component is a map key or entity attribute; a final
// component ending in "?" runs an entity predicate. Any miss yields the nil Value.
func (b *Bag) Get(path string) (result Value) {
	defer func() {
		if recover() != nil {
			result = Value{}
		}
	}()

	if b == nil || strings.TrimSpace(path) == "" {
		return Value{}
	}

	parts := strings.Split(strings.TrimSpace(path), ".")
	current := Value{kind: KindMap, raw: b.values}

	for i, part := range parts {
		if name, ok := strings.CutSuffix(part, "?"); ok {
			if i != len(parts)-1 {
				return Value{}
			}

			return current.Predicate(name)
		}

		current = current.Field(part)
		if current.IsNil() {
			return Value{}
		}
	}

	return current
}

// Entity returns the raw entity stored under key, or nil.
func (b *Bag) Entity(key string) any {
	if b == nil {
		return nil
	}

	v, ok := b.values[key]
	if !ok || v.kind != KindEntity {
		return nil
	}

	return v.raw
}

func (b *Bag) Incase() *models.Incase {
	e, _ := b.Entity(models.EntityIncase).(*models.Incase)
	return e
}

func (b *Bag) Client() *models.Client {
	e, _ := b.Entity(models.EntityClient).(*models.Client)
	return e
}

func (b *Bag) Variant() *models.Variant {
	e, _ := b.Entity(models.EntityVariant).(*models.Variant)
	return e
}

func (b *Bag) Message() *models.Message {
	e, _ := b.Entity(models.EntityAutomationMessage).(*models.Message)
	return e
}

// Data converts the bag into plain maps for templates and expressions.
func (b *Bag) Data() map[string]any {
	data := make(map[string]any, len(StandardKeys)+len(b.values)+1)

	for _, key := range StandardKeys {
		data[key] = map[string]any{}
	}

	for key, value := range b.values {
		data[key] = value.Interface()
	}

	data["event"] = b.event

	return data
}

// Refs serializes the bag to entity ids so it can be rebuilt after a pause.
func (b *Bag) Refs() models.ContextRefs {
	refs := models.ContextRefs{
		Event:    b.event,
		Subject:  b.subject,
		Entities: make(map[string]string),
		Lists:    make(map[string][]string),
	}

	for key, value := range b.values {
		switch value.kind {
		case KindEntity:
			if id := value.Field("id").String(); id != "" {
				refs.Entities[key] = id
			}
		case KindList:
			ids := make([]string, 0, len(value.Items()))

			for _, item := range value.Items() {
				if item.kind == KindEntity {
					ids = append(ids, item.Field("id").String())
				}
			}

			refs.Lists[key] = ids
		case KindNil, KindString, KindNumber, KindBool, KindTime, KindMap:
		}
	}

	return refs
}
