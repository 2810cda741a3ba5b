package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/dukex/automation/pkg/actions"
	"github.com/dukex/automation/pkg/cmd"
	"github.com/dukex/automation/pkg/conditions"
	"github.com/dukex/automation/pkg/engine"
	"github.com/dukex/automation/pkg/eventbus"
	"github.com/dukex/automation/pkg/log"
	"github.com/dukex/automation/pkg/metrics"
	"github.com/dukex/automation/pkg/otelhelper"
	"github.com/dukex/automation/pkg/scheduler"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	cli "github.com/urfave/cli/v3"
	"go.opentelemetry.io/otel/trace"
)

const serviceName = "automation-worker"

func main() {
	cmd.LoadDotEnv(log.WithModule("dotenv"))

	command := &cli.Command{
		Name:                  serviceName,
		EnableShellCompletion: true,
		Usage:                 "Run automation rules for incoming events and resume paused rules",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "worker-id",
				Aliases: []string{"id"},
				Usage:   "Custom worker ID (auto-generated if not provided)",
				Sources: cli.EnvVars("WORKER_ID"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence (memory://, file://, postgres://)",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (kafka, gochannel)",
				Value:   "kafka",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "kafka-brokers",
				Usage:   "Comma separated kafka brokers",
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
			&cli.StringFlag{
				Name:    "job-queue",
				Usage:   "Delayed job queue (memory, redis)",
				Value:   "redis",
				Sources: cli.EnvVars("JOB_QUEUE"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL for the job queue and the shared mail quota",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.DurationFlag{
				Name:    "job-poll-interval",
				Usage:   "How often the redis queue looks for due jobs",
				Value:   time.Second,
				Sources: cli.EnvVars("JOB_POLL_INTERVAL"),
			},
			&cli.IntFlag{
				Name:    "step-budget",
				Usage:   "Maximum steps walked per rule run",
				Value:   engine.DefaultStepBudget,
				Sources: cli.EnvVars("STEP_BUDGET"),
			},
			&cli.StringFlag{
				Name:    "shared-mail-url",
				Usage:   "Endpoint of the shared transactional mail API",
				Sources: cli.EnvVars("SHARED_MAIL_URL"),
			},
			&cli.StringFlag{
				Name:    "shared-mail-api-key",
				Usage:   "API key of the shared mail API",
				Sources: cli.EnvVars("SHARED_MAIL_API_KEY"),
			},
			&cli.StringFlag{
				Name:    "shared-mail-from",
				Usage:   "Sender address used with the shared mail API",
				Sources: cli.EnvVars("SHARED_MAIL_FROM"),
			},
			&cli.IntFlag{
				Name:    "mail-quota-limit",
				Usage:   "Shared mail sends allowed per tenant and window (0 disables the quota)",
				Value:   100,
				Sources: cli.EnvVars("MAIL_QUOTA_LIMIT"),
			},
			&cli.DurationFlag{
				Name:    "mail-quota-window",
				Usage:   "Shared mail quota window",
				Value:   24 * time.Hour,
				Sources: cli.EnvVars("MAIL_QUOTA_WINDOW"),
			},
			&cli.StringFlag{
				Name:    "telegram-api-url",
				Usage:   "Telegram Bot API base URL",
				Sources: cli.EnvVars("TELEGRAM_API_URL"),
			},
			&cli.StringFlag{
				Name:    "personal-service-url",
				Usage:   "Base URL of the personal-account messaging service",
				Sources: cli.EnvVars("PERSONAL_SERVICE_URL"),
			},
			&cli.IntFlag{
				Name:    "metrics-port",
				Usage:   "Port serving /metrics (0 disables it)",
				Value:   9092,
				Sources: cli.EnvVars("METRICS_PORT"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Export traces over OTLP/HTTP (configured by OTEL_EXPORTER_OTLP_* variables)",
				Sources: cli.EnvVars("TRACING_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: run,
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}

func run(ctx context.Context, command *cli.Command) error {
	log.Setup(command.String("log-level"))

	workerID := command.String("worker-id")
	if workerID == "" {
		workerID = "worker-" + uuid.New().String()[:8]
	}

	logger := log.WithModule(serviceName).With("worker_id", workerID)

	logger.InfoContext(ctx, "Initializing automation worker")

	var tracer trace.Tracer

	if command.Bool("tracing") {
		t, shutdown, err := otelhelper.NewTracer(ctx, serviceName)
		if err != nil {
			return fmt.Errorf("failed to initialize tracer: %w", err)
		}

		defer func() {
			if err := shutdown(context.Background()); err != nil {
				logger.ErrorContext(ctx, "Failed to shutdown tracer provider", "error", err)
			}
		}()

		tracer = t
	}

	persistence, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
	if err != nil {
		return err
	}

	defer func() {
		if err := persistence.Close(ctx); err != nil {
			logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
		}
	}()

	eventBus, err := cmd.NewEventBus(command.String("event-bus"), command.String("kafka-brokers"), serviceName, logger)
	if err != nil {
		return err
	}

	defer func() {
		if err := eventBus.Close(); err != nil {
			logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
		}
	}()

	var redisClient *redis.Client

	if redisURL := command.String("redis-url"); redisURL != "" {
		redisClient, err = cmd.NewRedisClient(redisURL)
		if err != nil {
			return err
		}

		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.ErrorContext(ctx, "Failed to close redis client", "error", err)
			}
		}()
	}

	queue, err := cmd.NewJobQueue(command.String("job-queue"), redisClient, command.Duration("job-poll-interval"), logger)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	dispatcherOpts := cmd.NewSenderOptions(logger, cmd.SenderConfig{
		SharedMailURL:    command.String("shared-mail-url"),
		SharedMailAPIKey: command.String("shared-mail-api-key"),
		SharedMailFrom:   command.String("shared-mail-from"),
		QuotaLimit:       command.Int("mail-quota-limit"),
		QuotaWindow:      command.Duration("mail-quota-window"),
		TelegramAPIURL:   command.String("telegram-api-url"),
		PersonalURL:      command.String("personal-service-url"),
	}, redisClient)
	dispatcherOpts = append(dispatcherOpts,
		actions.WithNotifier(eventbus.NewStatusNotifier(eventBus)),
		actions.WithMetrics(m),
	)

	engineOpts := []engine.Option{
		engine.WithStepBudget(command.Int("step-budget")),
		engine.WithMetrics(m),
	}

	if tracer != nil {
		dispatcherOpts = append(dispatcherOpts, actions.WithTracer(tracer))
		engineOpts = append(engineOpts, engine.WithTracer(tracer))
	}

	ruleEngine := engine.New(
		logger,
		persistence,
		conditions.NewEvaluator(logger),
		actions.NewDispatcher(logger, persistence, dispatcherOpts...),
		scheduler.New(logger, queue, persistence),
		engineOpts...,
	)

	if port := command.Int("metrics-port"); port > 0 {
		go serveMetrics(ctx, logger, registry, port)
	}

	worker := NewWorkerManager(workerID, ruleEngine, eventBus, queue, logger)

	return worker.Run(ctx)
}

func serveMetrics(ctx context.Context, logger *slog.Logger, registry *prometheus.Registry, port int) {
	app := fiber.New()
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	if err := app.Listen(":" + strconv.Itoa(port)); err != nil {
		logger.ErrorContext(ctx, "Metrics server stopped", "error", err)
	}
}
