// Package file provides a fixture-backed persistence implementation: tenants, rules,
// templates and entities are loaded from a YAML document into memory, messages and
// continuations live in memory only.
package file

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/dukex/automation/pkg/models"
	"github.com/dukex/automation/pkg/persistence/memory"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Fixture is the YAML document layout.
type Fixture struct {
	Tenants   []*models.Tenant   `yaml:"tenants"   validate:"dive"`
	Users     []*models.User     `yaml:"users"`
	Rules     []*models.Rule     `yaml:"rules"     validate:"dive"`
	Templates []*models.Template `yaml:"templates" validate:"dive"`
	Incases   []*models.Incase   `yaml:"incases"`
	Clients   []*models.Client   `yaml:"clients"`
	Webforms  []*models.Webform  `yaml:"webforms"`
	Variants  []*models.Variant  `yaml:"variants"`
	Products  []*models.Product  `yaml:"products"`
}

// Persistence implements persistence.Persistence on top of a fixture file.
type Persistence struct {
	*memory.Persistence

	path string
}

// NewPersistence loads the fixture at root (a path or file:// URL).
func NewPersistence(ctx context.Context, root string) (*Persistence, error) {
	path := strings.TrimPrefix(root, "file://")

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture %s: %w", path, err)
	}

	fixture, err := ParseFixture(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load fixture %s: %w", path, err)
	}

	store := memory.NewPersistence()
	if err := fixture.Seed(ctx, store); err != nil {
		return nil, err
	}

	return &Persistence{Persistence: store, path: path}, nil
}

// ParseFixture decodes and validates a YAML fixture.
func ParseFixture(data []byte) (*Fixture, error) {
	var fixture Fixture
	if err := yaml.Unmarshal(data, &fixture); err != nil {
		return nil, fmt.Errorf("failed to decode fixture: %w", err)
	}

	if err := validator.New().Struct(&fixture); err != nil {
		return nil, fmt.Errorf("invalid fixture: %w", err)
	}

	return &fixture, nil
}

// Seed writes every fixture record into store.
func (f *Fixture) Seed(ctx context.Context, store *memory.Persistence) error {
	for _, tenant := range f.Tenants {
		store.PutTenant(tenant)
	}

	for _, user := range f.Users {
		store.PutUser(user)
	}

	for _, client := range f.Clients {
		store.PutClient(client)
	}

	for _, webform := range f.Webforms {
		store.PutWebform(webform)
	}

	for _, incase := range f.Incases {
		store.PutIncase(incase)
	}

	for _, product := range f.Products {
		store.PutProduct(product)
	}

	for _, variant := range f.Variants {
		store.PutVariant(variant)
	}

	for _, tpl := range f.Templates {
		if err := store.Templates().Save(ctx, tpl); err != nil {
			return fmt.Errorf("failed to seed template %s: %w", tpl.ID, err)
		}
	}

	for _, rule := range f.Rules {
		if err := store.Rules().Save(ctx, rule); err != nil {
			return fmt.Errorf("failed to seed rule %s: %w", rule.ID, err)
		}
	}

	return nil
}

// HealthCheck verifies the fixture file is still readable.
func (p *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(p.path); err != nil {
		return fmt.Errorf("fixture unavailable: %w", err)
	}

	return nil
}
