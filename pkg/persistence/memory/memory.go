// Package memory provides a thread-safe in-memory persistence implementation, used in
// tests, development and as the backing store of file fixtures.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dukex/automation/pkg/models"
	"github.com/dukex/automation/pkg/persistence"
)

type tenantKey struct {
	tenantID string
	id       string
}

// Persistence keeps every repository in process memory.
type Persistence struct {
	mu sync.RWMutex

	rules         map[string]*models.Rule
	templates     map[tenantKey]*models.Template
	messages      map[string]*models.Message
	continuations map[string]*models.Continuation
	tenants       map[string]*models.Tenant
	users         map[tenantKey]*models.User
	incases       map[tenantKey]*models.Incase
	clients       map[tenantKey]*models.Client
	webforms      map[tenantKey]*models.Webform
	variants      map[tenantKey]*models.Variant
	products      map[tenantKey]*models.Product

	now func() time.Time
}

func NewPersistence() *Persistence {
	return &Persistence{
		rules:         make(map[string]*models.Rule),
		templates:     make(map[tenantKey]*models.Template),
		messages:      make(map[string]*models.Message),
		continuations: make(map[string]*models.Continuation),
		tenants:       make(map[string]*models.Tenant),
		users:         make(map[tenantKey]*models.User),
		incases:       make(map[tenantKey]*models.Incase),
		clients:       make(map[tenantKey]*models.Client),
		webforms:      make(map[tenantKey]*models.Webform),
		variants:      make(map[tenantKey]*models.Variant),
		products:      make(map[tenantKey]*models.Product),
		now:           time.Now,
	}
}

func (p *Persistence) Rules() persistence.RuleRepository                 { return ruleRepository{p} }
func (p *Persistence) Templates() persistence.TemplateRepository         { return templateRepository{p} }
func (p *Persistence) Messages() persistence.MessageRepository           { return messageRepository{p} }
func (p *Persistence) Continuations() persistence.ContinuationRepository { return continuationRepository{p} }
func (p *Persistence) Tenants() persistence.TenantRepository             { return tenantRepository{p} }
func (p *Persistence) Entities() persistence.EntityRepository            { return entityRepository{p} }

func (p *Persistence) HealthCheck(context.Context) error { return nil }

func (p *Persistence) Close(context.Context) error { return nil }

// PutTenant, PutUser and the other Put methods seed fixtures.
func (p *Persistence) PutTenant(tenant *models.Tenant) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.tenants[tenant.ID] = tenant
}

func (p *Persistence) PutUser(user *models.User) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.users[tenantKey{user.TenantID, user.ID}] = user
}

func (p *Persistence) PutIncase(incase *models.Incase) {
	p.mu.Lock()
	defer p.mu.Unlock()

	stored := *incase
	stored.Client, stored.Webform = nil, nil
	p.incases[tenantKey{incase.TenantID, incase.ID}] = &stored
}

func (p *Persistence) PutClient(client *models.Client) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.clients[tenantKey{client.TenantID, client.ID}] = client
}

func (p *Persistence) PutWebform(webform *models.Webform) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.webforms[tenantKey{webform.TenantID, webform.ID}] = webform
}

func (p *Persistence) PutVariant(variant *models.Variant) {
	p.mu.Lock()
	defer p.mu.Unlock()

	stored := *variant
	stored.Product = nil
	p.variants[tenantKey{variant.TenantID, variant.ID}] = &stored
}

func (p *Persistence) PutProduct(product *models.Product) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.products[tenantKey{product.TenantID, product.ID}] = product
}

type ruleRepository struct{ p *Persistence }

func cloneRule(rule *models.Rule) *models.Rule {
	clone := *rule
	clone.Steps = make([]*models.Step, len(rule.Steps))

	for i, step := range rule.Steps {
		s := *step
		clone.Steps[i] = &s
	}

	if rule.ScheduledFor != nil {
		at := *rule.ScheduledFor
		clone.ScheduledFor = &at
	}

	return &clone
}

func (r ruleRepository) ActiveByEvent(_ context.Context, tenantID, event string) ([]*models.Rule, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	rules := make([]*models.Rule, 0)

	for _, rule := range r.p.rules {
		if rule.TenantID == tenantID && rule.Event == event && rule.Active {
			rules = append(rules, cloneRule(rule))
		}
	}

	models.SortRules(rules)

	return rules, nil
}

func (r ruleRepository) GetByID(_ context.Context, tenantID, id string) (*models.Rule, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	rule, ok := r.p.rules[id]
	if !ok || rule.TenantID != tenantID {
		return nil, persistence.NewRuleError("GetByID", tenantID, id, persistence.ErrRuleNotFound)
	}

	return cloneRule(rule), nil
}

func (r ruleRepository) Save(_ context.Context, rule *models.Rule) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	now := r.p.now()
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = now
	}

	rule.UpdatedAt = now

	for _, step := range rule.Steps {
		step.RuleID = rule.ID
		if step.Action != nil {
			step.Action.RuleID = rule.ID
		}
	}

	r.p.rules[rule.ID] = cloneRule(rule)

	return nil
}

func (r ruleRepository) UpdateSchedule(_ context.Context, tenantID, ruleID string, scheduledFor *time.Time, jobHandle string) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	rule, ok := r.p.rules[ruleID]
	if !ok || rule.TenantID != tenantID {
		return persistence.NewRuleError("UpdateSchedule", tenantID, ruleID, persistence.ErrRuleNotFound)
	}

	rule.ScheduledFor = scheduledFor
	rule.JobHandle = jobHandle
	rule.UpdatedAt = r.p.now()

	return nil
}

type templateRepository struct{ p *Persistence }

func (r templateRepository) Find(_ context.Context, tenantID, id string) (*models.Template, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	tpl, ok := r.p.templates[tenantKey{tenantID, id}]
	if !ok {
		return nil, persistence.ErrTemplateNotFound
	}

	clone := *tpl

	return &clone, nil
}

func (r templateRepository) Save(_ context.Context, tpl *models.Template) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	clone := *tpl
	r.p.templates[tenantKey{tpl.TenantID, tpl.ID}] = &clone

	return nil
}

type messageRepository struct{ p *Persistence }

func cloneMessage(msg *models.Message) *models.Message {
	clone := *msg
	clone.Incase, clone.Client, clone.User = nil, nil, nil

	return &clone
}

func (r messageRepository) Create(_ context.Context, msg *models.Message) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	if _, exists := r.p.messages[msg.ID]; exists {
		return persistence.ErrMessageAlreadyExists
	}

	now := r.p.now()
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = now
	}

	if msg.UpdatedAt.IsZero() {
		msg.UpdatedAt = now
	}

	r.p.messages[msg.ID] = cloneMessage(msg)

	return nil
}

func (r messageRepository) Update(_ context.Context, msg *models.Message) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	if _, exists := r.p.messages[msg.ID]; !exists {
		return persistence.ErrMessageNotFound
	}

	r.p.messages[msg.ID] = cloneMessage(msg)

	return nil
}

func (r messageRepository) GetByID(_ context.Context, id string) (*models.Message, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	msg, ok := r.p.messages[id]
	if !ok {
		return nil, persistence.ErrMessageNotFound
	}

	return cloneMessage(msg), nil
}

func (r messageRepository) List(_ context.Context, opts persistence.ListMessagesOptions) (*persistence.MessageListResult, error) {
	opts = persistence.NormalizeListOptions(opts)

	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	filtered := make([]*models.Message, 0)

	for _, msg := range r.p.messages {
		if msg.TenantID != opts.TenantID {
			continue
		}

		if opts.Status != "" && msg.Status != opts.Status {
			continue
		}

		if opts.RuleID != "" && msg.RuleID != opts.RuleID {
			continue
		}

		filtered = append(filtered, cloneMessage(msg))
	}

	sort.Slice(filtered, func(i, j int) bool {
		if !filtered[i].CreatedAt.Equal(filtered[j].CreatedAt) {
			return filtered[i].CreatedAt.After(filtered[j].CreatedAt)
		}

		return filtered[i].ID > filtered[j].ID
	})

	total := int64(len(filtered))

	if opts.Offset >= len(filtered) {
		return &persistence.MessageListResult{Messages: []*models.Message{}, TotalCount: total}, nil
	}

	end := min(opts.Offset+opts.Limit, len(filtered))

	return &persistence.MessageListResult{
		Messages:    filtered[opts.Offset:end],
		TotalCount:  total,
		HasNextPage: end < len(filtered),
	}, nil
}

type continuationRepository struct{ p *Persistence }

func (r continuationRepository) Save(_ context.Context, c *models.Continuation) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	clone := *c
	if clone.CreatedAt.IsZero() {
		clone.CreatedAt = r.p.now()
	}

	r.p.continuations[c.RuleID] = &clone

	return nil
}

func (r continuationRepository) GetByRule(_ context.Context, ruleID string) (*models.Continuation, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	c, ok := r.p.continuations[ruleID]
	if !ok {
		return nil, persistence.ErrContinuationNotFound
	}

	clone := *c

	return &clone, nil
}

func (r continuationRepository) Delete(_ context.Context, ruleID string) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	delete(r.p.continuations, ruleID)

	return nil
}

func (r continuationRepository) DeleteIfHandle(_ context.Context, ruleID, jobHandle string) (bool, error) {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	c, ok := r.p.continuations[ruleID]
	if !ok || c.JobHandle != jobHandle {
		return false, nil
	}

	delete(r.p.continuations, ruleID)

	return true, nil
}

type tenantRepository struct{ p *Persistence }

func (r tenantRepository) Tenant(_ context.Context, id string) (*models.Tenant, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	tenant, ok := r.p.tenants[id]
	if !ok {
		return nil, persistence.ErrTenantNotFound
	}

	return tenant, nil
}

func (r tenantRepository) Users(_ context.Context, tenantID string) ([]*models.User, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	users := make([]*models.User, 0)

	for key, user := range r.p.users {
		if key.tenantID == tenantID {
			users = append(users, user)
		}
	}

	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })

	return users, nil
}
