// Package chat delivers chat messages through the tenant's managed bot and falls back to
// the tenant's personal account when the bot cannot reach the recipient.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dukex/automation/pkg/models"
)

const (
	ProviderTelegramBot = "telegram_bot"
	ProviderPersonal    = "personal_account"
)

var ErrNoChannel = errors.New("no usable chat channel")

// BotClient sends through the managed bot API.
type BotClient interface {
	SendMessage(ctx context.Context, token, chatID, text string) (string, error)
}

// PersonalClient sends through the companion personal-account service.
type PersonalClient interface {
	SendMessage(ctx context.Context, accountID, recipient, text string) (string, error)
}

// Recipient is every address a client can be reached at over chat.
type Recipient struct {
	ChatID   string
	Username string
	Phone    string
}

// PersonalKey is the address used by the personal channel: username, else normalized phone.
func (r Recipient) PersonalKey() string {
	if username := strings.TrimSpace(r.Username); username != "" {
		return username
	}

	return NormalizePhone(r.Phone)
}

// Result reports the channel that produced the final outcome, on success and on failure.
type Result struct {
	Channel   models.Channel
	Provider  string
	MessageID string
}

type Sender struct {
	logger   *slog.Logger
	bot      BotClient
	personal PersonalClient
}

func NewSender(logger *slog.Logger, bot BotClient, personal PersonalClient) *Sender {
	return &Sender{
		logger:   logger.With("module", "chat_sender"),
		bot:      bot,
		personal: personal,
	}
}

func (s *Sender) botUsable(tenant *models.Tenant, to Recipient) bool {
	return s.bot != nil && tenant.Bot.Configured() && strings.TrimSpace(to.ChatID) != ""
}

func (s *Sender) personalUsable(tenant *models.Tenant, to Recipient) bool {
	return s.personal != nil && tenant.Personal.Usable() && to.PersonalKey() != ""
}

// Available reports whether at least one chat channel could be attempted.
func (s *Sender) Available(tenant *models.Tenant, to Recipient) bool {
	return s.botUsable(tenant, to) || s.personalUsable(tenant, to)
}

// Send attempts the bot first. Only bot failures that mean the recipient is unreachable
// through the bot fail over to the personal channel; every other bot error is final.
func (s *Sender) Send(ctx context.Context, tenant *models.Tenant, to Recipient, text string) (Result, error) {
	logger := s.logger.With("tenant_id", tenant.ID)

	botUsable := s.botUsable(tenant, to)
	personalUsable := s.personalUsable(tenant, to)

	if !botUsable && !personalUsable {
		return Result{}, ErrNoChannel
	}

	var botErr error

	if botUsable {
		id, err := s.bot.SendMessage(ctx, tenant.Bot.Token, to.ChatID, text)
		if err == nil {
			return Result{Channel: models.ChannelBot, Provider: ProviderTelegramBot, MessageID: id}, nil
		}

		failed := Result{Channel: models.ChannelBot, Provider: ProviderTelegramBot}

		if !IsUnreachable(err) {
			return failed, fmt.Errorf("bot delivery failed: %w", err)
		}

		if !personalUsable {
			return failed, fmt.Errorf("bot cannot reach recipient and no personal channel is usable: %w", err)
		}

		logger.InfoContext(ctx, "bot cannot reach recipient, falling back to personal account", "error", err)

		botErr = err
	}

	id, err := s.personal.SendMessage(ctx, tenant.Personal.AccountID, to.PersonalKey(), text)
	if err != nil {
		failed := Result{Channel: models.ChannelPersonal, Provider: ProviderPersonal}
		if botErr != nil {
			return failed, errors.Join(fmt.Errorf("bot delivery failed: %w", botErr), fmt.Errorf("personal delivery failed: %w", err))
		}

		return failed, fmt.Errorf("personal delivery failed: %w", err)
	}

	return Result{Channel: models.ChannelPersonal, Provider: ProviderPersonal, MessageID: id}, nil
}

var unreachableSignatures = []string{"not found", "blocked", "forbidden"}

// IsUnreachable matches bot errors meaning the bot cannot talk to this recipient.
func IsUnreachable(err error) bool {
	if err == nil {
		return false
	}

	var botErr *BotError
	if errors.As(err, &botErr) && (botErr.Code == 400 || botErr.Code == 403) {
		return true
	}

	message := strings.ToLower(err.Error())
	for _, signature := range unreachableSignatures {
		if strings.Contains(message, signature) {
			return true
		}
	}

	return false
}

// NormalizePhone keeps digits and a leading "+", turns a leading "00" into "+" and
// rewrites a leading 8 to +7.
func NormalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)
	plus := strings.HasPrefix(phone, "+")

	var digits strings.Builder

	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}

	number := digits.String()
	if number == "" {
		return ""
	}

	if !plus && strings.HasPrefix(number, "00") {
		plus = true
		number = number[2:]
	}

	if strings.HasPrefix(number, "8") {
		return "+7" + number[1:]
	}

	if plus {
		return "+" + number
	}

	return number
}
