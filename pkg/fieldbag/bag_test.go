package fieldbag

import (
	"context"
	"testing"
	"time"

	"github.com/dukex/automation/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleIncase() *models.Incase {
	client := &models.Client{ID: "c1", Name: "Ann", Email: "ann@example.com", Phone: "8 (912) 000-11-22"}
	webform := &models.Webform{ID: "w1", Kind: "order", Title: "Checkout"}

	return &models.Incase{
		ID:        "i1",
		Number:    "1001",
		Status:    "new",
		Total:     1500.5,
		ClientID:  client.ID,
		WebformID: webform.ID,
		Client:    client,
		Webform:   webform,
	}
}

func TestBuild_DerivesFromIncaseSubject(t *testing.T) {
	bag := Build(Input{Event: "incase.created", Subject: sampleIncase()})

	assert.Equal(t, "incase.created", bag.Event())
	assert.Equal(t, models.Reference{Type: models.EntityIncase, ID: "i1"}, bag.Subject())
	assert.Equal(t, "c1", bag.Client().ID)
	assert.Equal(t, "order", bag.Get("webform.kind").String())
	assert.Equal(t, "order", bag.Get("incase.webform.kind").String())
}

func TestBuild_OverridesWin(t *testing.T) {
	other := &models.Client{ID: "c2", Email: "other@example.com"}

	bag := Build(Input{
		Event:     "incase.updated",
		Subject:   sampleIncase(),
		Overrides: Overrides{Client: other},
	})

	assert.Equal(t, "other@example.com", bag.Get("client.email").String())
	assert.Equal(t, "ann@example.com", bag.Get("incase.client.email").String())
}

func TestBuild_VariantSubject(t *testing.T) {
	variant := &models.Variant{ID: "v1", SKU: "SKU-1", Quantity: 3, Product: &models.Product{ID: "p1", Title: "Mug"}}

	bag := Build(Input{Event: "variant.back_in_stock", Subject: variant})

	assert.Equal(t, "Mug", bag.Get("product.title").String())
	assert.Equal(t, "SKU-1", bag.Get("variant.sku").String())
	assert.Equal(t, true, mustBool(t, bag.Get("variant.in_stock?")))
}

func TestBuild_MessageSubjectBackfills(t *testing.T) {
	incase := sampleIncase()
	msg := &models.Message{ID: "m1", Status: models.MessageStatusDelivered, Incase: incase}

	bag := Build(Input{Event: "automation_message.delivered", Subject: msg})

	assert.Equal(t, models.EntityAutomationMessage, bag.Subject().Type)
	assert.Equal(t, "delivered", bag.Get("automation_message.status").String())
	assert.Equal(t, "i1", bag.Get("incase.id").String())
	assert.Equal(t, "c1", bag.Get("client.id").String())
	assert.Equal(t, "order", bag.Get("webform.kind").String())
}

func TestBag_GetNeverPanics(t *testing.T) {
	bag := Build(Input{Event: "incase.created", Subject: sampleIncase()})

	tests := []string{
		"",
		"missing",
		"incase.missing",
		"incase.status.deeper",
		"incase.paid?.more",
		"client.unknown?",
		"incase.total.x",
		"...",
	}

	for _, path := range tests {
		t.Run(path, func(t *testing.T) {
			assert.True(t, bag.Get(path).IsNil())
		})
	}

	var nilBag *Bag
	assert.True(t, nilBag.Get("incase.id").IsNil())
}

func TestBag_Predicates(t *testing.T) {
	bag := Build(Input{Event: "incase.created", Subject: sampleIncase()})

	assert.True(t, mustBool(t, bag.Get("incase.new?")))
	assert.False(t, mustBool(t, bag.Get("incase.paid?")))
	assert.True(t, mustBool(t, bag.Get("client.email?")))
}

func TestValue_Coercions(t *testing.T) {
	assert.Equal(t, "1500.5", Of(1500.5).String())
	assert.Equal(t, "3", Of(3).String())
	assert.Equal(t, 0.0, Of("abc").Float())
	assert.Equal(t, 12.5, Of(" 12.5 ").Float())
	assert.True(t, Of("   ").Empty())
	assert.True(t, Of([]string{}).Empty())
	assert.True(t, Of((*models.Client)(nil)).IsNil())
	assert.True(t, Of(time.Time{}).IsNil())
	assert.Equal(t, KindString, Of(models.MessageStatusSent).Kind())
	assert.Equal(t, KindEntity, Of(&models.Product{ID: "p"}).Kind())
}

func TestBag_Data(t *testing.T) {
	bag := Build(Input{Event: "incase.created", Subject: sampleIncase()})
	data := bag.Data()

	for _, key := range StandardKeys {
		assert.Contains(t, data, key)
	}

	client, ok := data["client"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Ann", client["name"])
	assert.Equal(t, map[string]any{}, data["variant"])
	assert.Equal(t, "incase.created", data["event"])
}

func TestBag_RefsAndHydrate(t *testing.T) {
	incase := sampleIncase()
	variants := []*models.Variant{{ID: "v1"}, {ID: "v2"}}

	bag := Build(Input{
		Event:     "incase.created",
		Subject:   incase,
		Overrides: Overrides{Variants: variants},
	})

	refs := bag.Refs()
	assert.Equal(t, "i1", refs.Entities["incase"])
	assert.Equal(t, "c1", refs.Entities["client"])
	assert.Equal(t, "w1", refs.Entities["webform"])
	assert.Equal(t, []string{"v1", "v2"}, refs.Lists["variants"])

	store := map[models.Reference]any{
		{Type: "incase", ID: "i1"}:  incase,
		{Type: "client", ID: "c1"}:  incase.Client,
		{Type: "webform", ID: "w1"}: incase.Webform,
		{Type: "variant", ID: "v1"}: variants[0],
	}

	loader := LoaderFunc(func(_ context.Context, tenantID string, ref models.Reference) (any, error) {
		assert.Equal(t, "t1", tenantID)
		return store[ref], nil
	})

	rebuilt, err := Hydrate(context.Background(), loader, "t1", refs)
	require.NoError(t, err)

	assert.Equal(t, "order", rebuilt.Get("webform.kind").String())
	assert.Len(t, rebuilt.Get("variants").Items(), 1)
	assert.Equal(t, "incase.created", rebuilt.Event())
}

func TestHydrate_MissingSubject(t *testing.T) {
	loader := LoaderFunc(func(context.Context, string, models.Reference) (any, error) {
		return nil, nil
	})

	_, err := Hydrate(context.Background(), loader, "t1", models.ContextRefs{
		Subject: models.Reference{Type: "incase", ID: "gone"},
	})
	require.ErrorIs(t, err, ErrSubjectMissing)
}

func TestHydrate_UnknownSubjectType(t *testing.T) {
	loader := LoaderFunc(func(context.Context, string, models.Reference) (any, error) {
		t.Fatal("loader must not be called for an unknown type")
		return nil, nil
	})

	_, err := Hydrate(context.Background(), loader, "t1", models.ContextRefs{
		Subject: models.Reference{Type: "order", ID: "i1"},
	})
	require.ErrorIs(t, err, ErrUnknownEntityType)
}

func TestHydrate_SkipsUnknownKeys(t *testing.T) {
	incase := sampleIncase()

	var loaded []models.Reference

	loader := LoaderFunc(func(_ context.Context, _ string, ref models.Reference) (any, error) {
		loaded = append(loaded, ref)
		if ref == (models.Reference{Type: "incase", ID: "i1"}) {
			return incase, nil
		}

		return nil, nil
	})

	bag, err := Hydrate(context.Background(), loader, "t1", models.ContextRefs{
		Subject:  models.Reference{Type: "incase", ID: "i1"},
		Entities: map[string]string{"order": "o1"},
		Lists:    map[string][]string{"orders": {"o2"}},
	})
	require.NoError(t, err)

	assert.Equal(t, []models.Reference{{Type: "incase", ID: "i1"}}, loaded)
	assert.Equal(t, "Ann", bag.Get("client.name").String())
	assert.True(t, bag.Get("order").IsNil())
}

func TestKnownKey(t *testing.T) {
	for _, key := range []string{"incase", "client", "webform", "variant", "product", "user", "variants", "incases", "automation_message"} {
		assert.True(t, KnownKey(key), key)
	}

	assert.False(t, KnownKey("order"))
	assert.False(t, KnownKey(""))
}

func mustBool(t *testing.T, v Value) bool {
	t.Helper()

	b, ok := v.Bool()
	require.True(t, ok, "expected bool, got %s", v.Kind())

	return b
}
