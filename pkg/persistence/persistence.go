// Package persistence provides the storage abstraction for automation rules, templates,
// outbound messages, continuations and the tenant entities rules are evaluated against.
package persistence

import (
	"context"
	"time"

	"github.com/dukex/automation/pkg/models"
)

type Persistence interface {
	Rules() RuleRepository
	Templates() TemplateRepository
	Messages() MessageRepository
	Continuations() ContinuationRepository
	Tenants() TenantRepository
	Entities() EntityRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// RuleRepository stores tenant rules together with their step graphs.
type RuleRepository interface {
	// ActiveByEvent returns the tenant's active rules for event ordered by position.
	ActiveByEvent(ctx context.Context, tenantID, event string) ([]*models.Rule, error)
	GetByID(ctx context.Context, tenantID, id string) (*models.Rule, error)
	Save(ctx context.Context, rule *models.Rule) error
	// UpdateSchedule overwrites the rule's scheduler bookkeeping.
	UpdateSchedule(ctx context.Context, tenantID, ruleID string, scheduledFor *time.Time, jobHandle string) error
}

type TemplateRepository interface {
	Find(ctx context.Context, tenantID, id string) (*models.Template, error)
	Save(ctx context.Context, template *models.Template) error
}

// ListMessagesOptions filters the tenant message log.
type ListMessagesOptions struct {
	TenantID string
	Status   models.MessageStatus
	RuleID   string
	Limit    int
	Offset   int
}

type MessageListResult struct {
	Messages    []*models.Message `json:"messages"`
	TotalCount  int64             `json:"total_count"`
	HasNextPage bool              `json:"has_next_page"`
}

// MessageRepository is the append/transition-only outbound message log.
type MessageRepository interface {
	Create(ctx context.Context, message *models.Message) error
	Update(ctx context.Context, message *models.Message) error
	GetByID(ctx context.Context, id string) (*models.Message, error)
	List(ctx context.Context, opts ListMessagesOptions) (*MessageListResult, error)
}

// ContinuationRepository keeps at most one continuation per rule.
type ContinuationRepository interface {
	// Save inserts or replaces the rule's continuation.
	Save(ctx context.Context, continuation *models.Continuation) error
	GetByRule(ctx context.Context, ruleID string) (*models.Continuation, error)
	Delete(ctx context.Context, ruleID string) error
	// DeleteIfHandle removes the continuation only while it still belongs to jobHandle.
	DeleteIfHandle(ctx context.Context, ruleID, jobHandle string) (bool, error)
}

type TenantRepository interface {
	Tenant(ctx context.Context, id string) (*models.Tenant, error)
	Users(ctx context.Context, tenantID string) ([]*models.User, error)
}

// EntityRepository reads the commerce entities rules are evaluated against. Loaded
// entities carry ids only; associations are resolved by the caller.
type EntityRepository interface {
	Incase(ctx context.Context, tenantID, id string) (*models.Incase, error)
	Client(ctx context.Context, tenantID, id string) (*models.Client, error)
	Webform(ctx context.Context, tenantID, id string) (*models.Webform, error)
	Variant(ctx context.Context, tenantID, id string) (*models.Variant, error)
	Product(ctx context.Context, tenantID, id string) (*models.Product, error)
	User(ctx context.Context, tenantID, id string) (*models.User, error)
	UpdateIncaseStatus(ctx context.Context, tenantID, id, status string) error
}

// NormalizeListOptions applies the defaults every MessageRepository.List uses.
func NormalizeListOptions(opts ListMessagesOptions) ListMessagesOptions {
	if opts.Limit <= 0 || opts.Limit > 100 {
		opts.Limit = 20
	}

	if opts.Offset < 0 {
		opts.Offset = 0
	}

	return opts
}
