package cmd

import (
	"log/slog"
	"time"

	"github.com/dukex/automation/pkg/actions"
	"github.com/dukex/automation/pkg/senders/chat"
	"github.com/dukex/automation/pkg/senders/email"
	"github.com/dukex/automation/pkg/senders/sms"
	"github.com/redis/go-redis/v9"
)

// SenderConfig carries the process-wide provider settings. Tenant-owned credentials are
// read from the tenant record at send time.
type SenderConfig struct {
	SharedMailURL    string
	SharedMailAPIKey string
	SharedMailFrom   string
	QuotaLimit       int
	QuotaWindow      time.Duration
	TelegramAPIURL   string
	PersonalURL      string
	SMSRuURL         string
	SMSCURL          string
}

// NewSenderOptions builds the dispatcher options for every delivery channel. The shared
// mail quota lives in redis when a client is given and in process memory otherwise.
func NewSenderOptions(logger *slog.Logger, cfg SenderConfig, redisClient *redis.Client) []actions.Option {
	emailOpts := []email.Option{}

	if cfg.SharedMailURL != "" {
		emailOpts = append(emailOpts, email.WithShared(
			email.NewAPIProvider("shared", cfg.SharedMailURL, cfg.SharedMailAPIKey, nil),
			cfg.SharedMailFrom,
		))

		if cfg.QuotaLimit > 0 {
			if redisClient != nil {
				emailOpts = append(emailOpts, email.WithQuota(email.NewRedisQuota(redisClient, cfg.QuotaLimit, cfg.QuotaWindow)))
			} else {
				emailOpts = append(emailOpts, email.WithQuota(email.NewMemoryQuota(cfg.QuotaLimit, cfg.QuotaWindow)))
			}
		}
	}

	var personal chat.PersonalClient
	if cfg.PersonalURL != "" {
		personal = chat.NewPersonalService(cfg.PersonalURL, nil)
	}

	return []actions.Option{
		actions.WithEmail(email.NewSender(logger, emailOpts...)),
		actions.WithSMS(sms.NewSender(logger, sms.WithEndpoints(cfg.SMSRuURL, cfg.SMSCURL))),
		actions.WithChat(chat.NewSender(logger, chat.NewTelegramBot(cfg.TelegramAPIURL, nil), personal)),
	}
}
