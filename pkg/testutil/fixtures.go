package testutil

import (
	"github.com/dukex/automation/pkg/models"
	"github.com/dukex/automation/pkg/persistence/memory"
)

// SeedShop stores tenant t1 with client c1 (Ann), webforms w-order and w-callback, and
// incases i1 (order form) and i2 (callback form).
func SeedShop(store *memory.Persistence) {
	store.PutTenant(&models.Tenant{ID: "t1", Name: "Shop"})
	store.PutClient(&models.Client{ID: "c1", TenantID: "t1", Name: "Ann", Email: "ann@example.com"})
	store.PutWebform(&models.Webform{ID: "w-order", TenantID: "t1", Kind: "order"})
	store.PutWebform(&models.Webform{ID: "w-callback", TenantID: "t1", Kind: "callback"})
	store.PutIncase(&models.Incase{ID: "i1", TenantID: "t1", Number: "42", Status: "new", ClientID: "c1", WebformID: "w-order"})
	store.PutIncase(&models.Incase{ID: "i2", TenantID: "t1", Number: "43", Status: "new", ClientID: "c1", WebformID: "w-callback"})
}
