// Package email delivers email messages through the tenant's own provider or the shared
// default provider, the latter guarded by a rolling send quota.
package email

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/automation/pkg/models"
)

var (
	ErrQuotaExceeded = errors.New("shared email quota exceeded")
	ErrNoProvider    = errors.New("no email provider configured")
)

// Email is one outbound email.
type Email struct {
	To         string `json:"to"`
	From       string `json:"from"`
	Subject    string `json:"subject"`
	Body       string `json:"body"`
	TrackingID string `json:"tracking_id"`
}

// Result identifies an accepted email at the provider.
type Result struct {
	Provider  string
	MessageID string
}

// Provider is the send contract of a transactional mail service.
type Provider interface {
	Name() string
	Send(ctx context.Context, email Email) (Result, error)
}

// Quota reserves one send slot for key or fails with ErrQuotaExceeded.
type Quota interface {
	Reserve(ctx context.Context, key string) error
}

// TenantProviderFactory builds the provider for a tenant-owned mail account.
type TenantProviderFactory func(cfg *models.EmailProviderConfig) Provider

type Sender struct {
	logger       *slog.Logger
	shared       Provider
	sharedFrom   string
	quota        Quota
	tenantDriver TenantProviderFactory
}

type Option func(*Sender)

func WithShared(provider Provider, from string) Option {
	return func(s *Sender) {
		s.shared = provider
		s.sharedFrom = from
	}
}

func WithQuota(quota Quota) Option {
	return func(s *Sender) { s.quota = quota }
}

func WithTenantProviders(factory TenantProviderFactory) Option {
	return func(s *Sender) { s.tenantDriver = factory }
}

func NewSender(logger *slog.Logger, opts ...Option) *Sender {
	s := &Sender{
		logger: logger.With("module", "email_sender"),
		tenantDriver: func(cfg *models.EmailProviderConfig) Provider {
			return NewAPIProvider("tenant", cfg.Endpoint, cfg.APIKey, nil)
		},
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Available reports whether any provider could deliver mail for the tenant.
func (s *Sender) Available(tenant *models.Tenant) bool {
	return tenant.EmailProvider.Configured() || s.shared != nil
}

// Send tries the tenant-configured provider first and the shared provider otherwise.
// The shared provider is only used after a quota slot was reserved for the tenant.
func (s *Sender) Send(ctx context.Context, tenant *models.Tenant, email Email) (Result, error) {
	logger := s.logger.With("tenant_id", tenant.ID, "tracking_id", email.TrackingID)

	if tenant.EmailProvider.Configured() {
		if email.From == "" {
			email.From = tenant.EmailProvider.From
		}

		return s.tenantDriver(tenant.EmailProvider).Send(ctx, email)
	}

	if s.shared == nil {
		return Result{}, ErrNoProvider
	}

	if s.quota != nil {
		if err := s.quota.Reserve(ctx, tenant.ID); err != nil {
			logger.WarnContext(ctx, "shared email provider refused", "error", err)

			return Result{}, fmt.Errorf("tenant %s: %w", tenant.ID, err)
		}
	}

	if email.From == "" {
		email.From = s.sharedFrom
	}

	return s.shared.Send(ctx, email)
}
