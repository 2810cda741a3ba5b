// Package sms delivers text messages through the tenant's SMS.ru or SMSC account.
package sms

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukex/automation/pkg/models"
)

const (
	ProviderSMSRu = "smsru"
	ProviderSMSC  = "smsc"
)

var (
	ErrNoProvider      = errors.New("no sms provider configured")
	ErrUnknownProvider = errors.New("unknown sms provider")
)

// ProviderError is a rejection reported by an SMS gateway.
type ProviderError struct {
	Provider   string
	HTTPStatus int
	Code       int
	Message    string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: send failed (HTTP %d, code %d): %s", e.Provider, e.HTTPStatus, e.Code, e.Message)
}

type Result struct {
	Provider  string
	MessageID string
}

// Provider is the send contract of an SMS gateway.
type Provider interface {
	Name() string
	Send(ctx context.Context, to, text string) (Result, error)
}

type Sender struct {
	logger   *slog.Logger
	client   *http.Client
	smsruURL string
	smscURL  string
}

type Option func(*Sender)

// WithEndpoints overrides the gateway base URLs.
func WithEndpoints(smsruURL, smscURL string) Option {
	return func(s *Sender) {
		if smsruURL != "" {
			s.smsruURL = smsruURL
		}

		if smscURL != "" {
			s.smscURL = smscURL
		}
	}
}

func WithHTTPClient(client *http.Client) Option {
	return func(s *Sender) { s.client = client }
}

func NewSender(logger *slog.Logger, opts ...Option) *Sender {
	s := &Sender{
		logger:   logger.With("module", "sms_sender"),
		client:   &http.Client{Timeout: 15 * time.Second},
		smsruURL: "https://sms.ru",
		smscURL:  "https://smsc.ru",
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Select picks the provider: the explicit one when given, otherwise SMS.ru before SMSC
// depending on which the tenant configured.
func (s *Sender) Select(tenant *models.Tenant, explicit string) (Provider, error) {
	switch explicit {
	case ProviderSMSRu:
		if !tenant.SMS.SMSRu.Configured() {
			return nil, fmt.Errorf("%w: %s", ErrNoProvider, explicit)
		}

		return newSMSRu(s.client, s.smsruURL, tenant.SMS.SMSRu), nil
	case ProviderSMSC:
		if !tenant.SMS.SMSC.Configured() {
			return nil, fmt.Errorf("%w: %s", ErrNoProvider, explicit)
		}

		return newSMSC(s.client, s.smscURL, tenant.SMS.SMSC), nil
	case "":
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, explicit)
	}

	switch {
	case tenant.SMS.SMSRu.Configured():
		return newSMSRu(s.client, s.smsruURL, tenant.SMS.SMSRu), nil
	case tenant.SMS.SMSC.Configured():
		return newSMSC(s.client, s.smscURL, tenant.SMS.SMSC), nil
	default:
		return nil, ErrNoProvider
	}
}

func (s *Sender) Available(tenant *models.Tenant, explicit string) bool {
	_, err := s.Select(tenant, explicit)
	return err == nil
}

// Send delivers through the selected provider. The first provider's outcome is final.
func (s *Sender) Send(ctx context.Context, tenant *models.Tenant, explicit, to, text string) (Result, error) {
	provider, err := s.Select(tenant, explicit)
	if err != nil {
		return Result{}, err
	}

	result, err := provider.Send(ctx, to, text)
	if err != nil {
		s.logger.WarnContext(ctx, "sms delivery failed", "tenant_id", tenant.ID, "provider", provider.Name(), "error", err)

		return Result{Provider: provider.Name()}, err
	}

	return result, nil
}
