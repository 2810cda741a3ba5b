// Package actions executes the action steps of a rule: outbound messages on the email,
// SMS and chat channels, and incase status changes.
package actions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dukex/automation/pkg/fieldbag"
	"github.com/dukex/automation/pkg/metrics"
	"github.com/dukex/automation/pkg/models"
	"github.com/dukex/automation/pkg/otelhelper"
	"github.com/dukex/automation/pkg/persistence"
	"github.com/dukex/automation/pkg/senders/chat"
	"github.com/dukex/automation/pkg/senders/email"
	"github.com/dukex/automation/pkg/senders/sms"
	"github.com/dukex/automation/pkg/template"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type EmailSender interface {
	Available(tenant *models.Tenant) bool
	Send(ctx context.Context, tenant *models.Tenant, email email.Email) (email.Result, error)
}

type SMSSender interface {
	Available(tenant *models.Tenant, explicit string) bool
	Send(ctx context.Context, tenant *models.Tenant, explicit, to, text string) (sms.Result, error)
}

type ChatSender interface {
	Available(tenant *models.Tenant, to chat.Recipient) bool
	Send(ctx context.Context, tenant *models.Tenant, to chat.Recipient, text string) (chat.Result, error)
}

// StatusNotifier is told about every message status change.
type StatusNotifier interface {
	MessageStatusChanged(ctx context.Context, message *models.Message) error
}

type Dispatcher struct {
	templates persistence.TemplateRepository
	messages  persistence.MessageRepository
	tenants   persistence.TenantRepository
	entities  persistence.EntityRepository

	email    EmailSender
	sms      SMSSender
	chat     ChatSender
	notifier StatusNotifier

	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *metrics.Metrics
	now     func() time.Time
	newID   func() string
}

type Option func(*Dispatcher)

func WithEmail(sender EmailSender) Option {
	return func(d *Dispatcher) { d.email = sender }
}

func WithSMS(sender SMSSender) Option {
	return func(d *Dispatcher) { d.sms = sender }
}

func WithChat(sender ChatSender) Option {
	return func(d *Dispatcher) { d.chat = sender }
}

func WithNotifier(notifier StatusNotifier) Option {
	return func(d *Dispatcher) { d.notifier = notifier }
}

func WithTracer(tracer trace.Tracer) Option {
	return func(d *Dispatcher) { d.tracer = tracer }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(d *Dispatcher) { d.newID = newID }
}

func NewDispatcher(logger *slog.Logger, p persistence.Persistence, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		templates: p.Templates(),
		messages:  p.Messages(),
		tenants:   p.Tenants(),
		entities:  p.Entities(),
		logger:    logger.With("module", "actions"),
		tracer:    otel.Tracer("automation/actions"),
		now:       time.Now,
		newID:     func() string { return uuid.Must(uuid.NewV7()).String() },
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Execute runs one action against bag. Configuration problems are logged no-ops; a
// delivery failure leaves a failed Message and is returned.
func (d *Dispatcher) Execute(ctx context.Context, tenant *models.Tenant, action *models.Action, bag *fieldbag.Bag) error {
	ctx, span := otelhelper.StartSpan(ctx, d.tracer, "actions.execute",
		attribute.String(otelhelper.TenantIDKey, tenant.ID),
		attribute.String(otelhelper.ActionIDKey, action.ID),
		attribute.String(otelhelper.ActionKindKey, string(action.Kind)),
	)
	defer span.End()

	logger := d.logger.With("tenant_id", tenant.ID, "rule_id", action.RuleID, "action_id", action.ID, "action_kind", action.Kind)

	var err error

	switch action.Kind.Normalize() {
	case models.ActionKindSendEmail:
		err = d.sendEmail(ctx, logger, tenant, action, bag)
	case models.ActionKindSendSMS:
		err = d.sendSMS(ctx, logger, tenant, action, bag)
	case models.ActionKindSendChat:
		err = d.sendChat(ctx, logger, tenant, action, bag)
	case models.ActionKindSendEmailToTenantUsers:
		err = d.sendEmailToTenantUsers(ctx, logger, tenant, action, bag)
	case models.ActionKindChangeStatus:
		err = d.changeStatus(ctx, logger, tenant, action, bag)
	case models.ActionKindUnknown:
		logger.WarnContext(ctx, "Unknown action kind, skipping")
	}

	if err != nil {
		otelhelper.SetError(span, err)
		d.metrics.Action(string(action.Kind), "failed")

		return err
	}

	d.metrics.Action(string(action.Kind), "ok")

	return nil
}

func (d *Dispatcher) template(ctx context.Context, logger *slog.Logger, tenant *models.Tenant, action *models.Action) (*models.Template, error) {
	if strings.TrimSpace(action.Value) == "" {
		logger.WarnContext(ctx, "Action has no template, skipping")

		return nil, nil
	}

	tpl, err := d.templates.Find(ctx, tenant.ID, action.Value)
	if err != nil {
		if persistence.IsTemplateNotFound(err) {
			logger.WarnContext(ctx, "Template not found, skipping", "template_id", action.Value)

			return nil, nil
		}

		return nil, newActionError("template", action, "", err)
	}

	return tpl, nil
}

func (d *Dispatcher) sendEmail(ctx context.Context, logger *slog.Logger, tenant *models.Tenant, action *models.Action, bag *fieldbag.Bag) error {
	tpl, err := d.template(ctx, logger, tenant, action)
	if err != nil || tpl == nil {
		return err
	}

	client := bag.Client()
	if client == nil || blank(client.Email) {
		logger.InfoContext(ctx, "Client has no email address, skipping")

		return nil
	}

	data := bag.Data()

	return d.deliverEmail(ctx, logger, tenant, action, bag, recipient{clientID: client.ID, address: client.Email}, tpl, data)
}

func (d *Dispatcher) sendEmailToTenantUsers(ctx context.Context, logger *slog.Logger, tenant *models.Tenant, action *models.Action, bag *fieldbag.Bag) error {
	tpl, err := d.template(ctx, logger, tenant, action)
	if err != nil || tpl == nil {
		return err
	}

	users, err := d.tenants.Users(ctx, tenant.ID)
	if err != nil {
		return newActionError("users", action, "", err)
	}

	var errs []error

	for _, user := range users {
		if blank(user.Email) {
			logger.InfoContext(ctx, "User has no email address, skipping", "user_id", user.ID)

			continue
		}

		data := bag.Data()
		data[models.EntityUser] = fieldbag.Of(user).Interface()

		err := d.deliverEmail(ctx, logger.With("user_id", user.ID), tenant, action, bag, recipient{userID: user.ID, address: user.Email}, tpl, data)
		if err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

type recipient struct {
	clientID string
	userID   string
	address  string
}

func (d *Dispatcher) deliverEmail(
	ctx context.Context,
	logger *slog.Logger,
	tenant *models.Tenant,
	action *models.Action,
	bag *fieldbag.Bag,
	to recipient,
	tpl *models.Template,
	data map[string]any,
) error {
	if d.email == nil || !d.email.Available(tenant) {
		logger.WarnContext(ctx, "No email provider available, skipping")

		return nil
	}

	subject := template.RenderOrOriginal(ctx, logger, tpl.Subject, data)
	body := template.RenderOrOriginal(ctx, logger, tpl.Body, data)

	msg, err := d.createMessage(ctx, tenant, action, bag, to, models.ChannelEmail, subject, body)
	if err != nil {
		return err
	}

	result, sendErr := d.email.Send(ctx, tenant, email.Email{
		To:         to.address,
		Subject:    subject,
		Body:       body,
		TrackingID: msg.ID,
	})

	return d.finish(ctx, logger, action, msg, result.Provider, result.MessageID, sendErr)
}

func (d *Dispatcher) sendSMS(ctx context.Context, logger *slog.Logger, tenant *models.Tenant, action *models.Action, bag *fieldbag.Bag) error {
	tpl, err := d.template(ctx, logger, tenant, action)
	if err != nil || tpl == nil {
		return err
	}

	client := bag.Client()
	if client == nil || blank(client.Phone) {
		logger.InfoContext(ctx, "Client has no phone number, skipping")

		return nil
	}

	if d.sms == nil || !d.sms.Available(tenant, action.Provider) {
		logger.WarnContext(ctx, "No SMS provider available, skipping", "provider", action.Provider)

		return nil
	}

	body := template.RenderOrOriginal(ctx, logger, tpl.Body, bag.Data())

	msg, err := d.createMessage(ctx, tenant, action, bag, recipient{clientID: client.ID, address: client.Phone}, models.ChannelSMS, "", body)
	if err != nil {
		return err
	}

	result, sendErr := d.sms.Send(ctx, tenant, action.Provider, client.Phone, body)

	return d.finish(ctx, logger, action, msg, result.Provider, result.MessageID, sendErr)
}

func (d *Dispatcher) sendChat(ctx context.Context, logger *slog.Logger, tenant *models.Tenant, action *models.Action, bag *fieldbag.Bag) error {
	tpl, err := d.template(ctx, logger, tenant, action)
	if err != nil || tpl == nil {
		return err
	}

	client := bag.Client()
	if client == nil {
		logger.InfoContext(ctx, "No client in context, skipping")

		return nil
	}

	to := chat.Recipient{ChatID: client.BotChatID, Username: client.Username, Phone: client.Phone}

	if d.chat == nil || !d.chat.Available(tenant, to) {
		logger.InfoContext(ctx, "No usable chat channel for client, skipping", "client_id", client.ID)

		return nil
	}

	body := template.RenderOrOriginal(ctx, logger, tpl.Body, bag.Data())

	channel, address := models.ChannelPersonal, to.PersonalKey()
	if tenant.Bot.Configured() && !blank(to.ChatID) {
		channel, address = models.ChannelBot, to.ChatID
	}

	msg, err := d.createMessage(ctx, tenant, action, bag, recipient{clientID: client.ID, address: address}, channel, "", body)
	if err != nil {
		return err
	}

	result, sendErr := d.chat.Send(ctx, tenant, to, body)
	if result.Channel != "" && result.Channel != msg.Channel {
		msg.Channel = result.Channel
		if result.Channel == models.ChannelPersonal {
			msg.Recipient = to.PersonalKey()
		}
	}

	return d.finish(ctx, logger, action, msg, result.Provider, result.MessageID, sendErr)
}

func (d *Dispatcher) changeStatus(ctx context.Context, logger *slog.Logger, tenant *models.Tenant, action *models.Action, bag *fieldbag.Bag) error {
	incase := bag.Incase()
	status := strings.TrimSpace(action.Value)

	if incase == nil || status == "" {
		logger.InfoContext(ctx, "Nothing to change, skipping")

		return nil
	}

	if err := d.entities.UpdateIncaseStatus(ctx, tenant.ID, incase.ID, status); err != nil {
		return newActionError("change_status", action, "", err)
	}

	incase.Status = status

	logger.InfoContext(ctx, "Incase status changed", "incase_id", incase.ID, "status", status)

	return nil
}

func (d *Dispatcher) createMessage(
	ctx context.Context,
	tenant *models.Tenant,
	action *models.Action,
	bag *fieldbag.Bag,
	to recipient,
	channel models.Channel,
	subject, content string,
) (*models.Message, error) {
	now := d.now().UTC()

	msg := &models.Message{
		ID:        d.newID(),
		TenantID:  tenant.ID,
		RuleID:    action.RuleID,
		ActionID:  action.ID,
		ClientID:  to.clientID,
		UserID:    to.userID,
		Recipient: to.address,
		Channel:   channel,
		Status:    models.MessageStatusPending,
		Subject:   subject,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if incase := bag.Incase(); incase != nil {
		msg.IncaseID = incase.ID
	}

	if err := d.messages.Create(ctx, msg); err != nil {
		return nil, newActionError("create_message", action, msg.ID, err)
	}

	d.metrics.Message(string(channel), string(msg.Status))

	return msg, nil
}

// finish records the delivery outcome on msg and returns sendErr wrapped.
func (d *Dispatcher) finish(ctx context.Context, logger *slog.Logger, action *models.Action, msg *models.Message, provider, providerMessageID string, sendErr error) error {
	logger = logger.With("message_id", msg.ID, "channel", msg.Channel)
	now := d.now().UTC()

	if sendErr == nil {
		if err := msg.MarkSent(provider, providerMessageID, now); err != nil {
			return newActionError("mark_sent", action, msg.ID, err)
		}
	} else {
		msg.Provider = provider
		if err := msg.MarkFailed(sendErr, now); err != nil {
			return newActionError("mark_failed", action, msg.ID, err)
		}
	}

	if err := d.messages.Update(ctx, msg); err != nil {
		logger.ErrorContext(ctx, "Failed to record message status", "status", msg.Status, "error", err)

		if sendErr == nil {
			return newActionError("update_message", action, msg.ID, err)
		}
	}

	d.metrics.Message(string(msg.Channel), string(msg.Status))
	d.notify(ctx, logger, msg)

	if sendErr != nil {
		logger.WarnContext(ctx, "Message delivery failed", "provider", provider, "error", sendErr)

		return newActionError("send", action, msg.ID, fmt.Errorf("%s delivery failed: %w", msg.Channel, sendErr))
	}

	logger.InfoContext(ctx, "Message sent", "provider", provider, "provider_message_id", providerMessageID)

	return nil
}

func (d *Dispatcher) notify(ctx context.Context, logger *slog.Logger, msg *models.Message) {
	if d.notifier == nil {
		return
	}

	if err := d.notifier.MessageStatusChanged(ctx, msg); err != nil {
		logger.WarnContext(ctx, "Failed to announce message status", "status", msg.Status, "error", err)
	}
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
