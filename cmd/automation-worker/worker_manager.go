package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dukex/automation/pkg/eventbus"
	"github.com/dukex/automation/pkg/events"
	"github.com/dukex/automation/pkg/models"
	"github.com/dukex/automation/pkg/scheduler"
)

// RuleRunner is the part of the engine the worker drives.
type RuleRunner interface {
	Trigger(ctx context.Context, tenantID, event string, subject models.Reference, overrides map[string]models.Reference) error
	Resume(ctx context.Context, job scheduler.Job) error
}

type WorkerManager struct {
	id       string
	logger   *slog.Logger
	runner   RuleRunner
	eventBus eventbus.EventSubscriber
	queue    scheduler.Queue
}

func NewWorkerManager(
	id string,
	runner RuleRunner,
	eventBus eventbus.EventSubscriber,
	queue scheduler.Queue,
	logger *slog.Logger,
) *WorkerManager {
	return &WorkerManager{
		id:       id,
		logger:   logger.With("module", "automation-worker", "worker_id", id),
		runner:   runner,
		eventBus: eventBus,
		queue:    queue,
	}
}

// Start subscribes to the bus and starts delivering due jobs to the engine.
func (w *WorkerManager) Start(ctx context.Context) error {
	w.logger.InfoContext(ctx, "Starting worker manager")

	err := w.eventBus.Handle(events.TriggerRequestedEvent, w.handleTriggerRequested)
	if err != nil {
		return err
	}

	err = w.eventBus.Handle(events.MessageStatusChangedEvent, w.handleMessageStatusChanged)
	if err != nil {
		return err
	}

	err = w.eventBus.Subscribe(ctx)
	if err != nil {
		w.logger.ErrorContext(ctx, "Failed to subscribe to event bus", "error", err)

		return err
	}

	err = w.queue.Start(ctx, w.runner.Resume)
	if err != nil {
		w.logger.ErrorContext(ctx, "Failed to start job queue", "error", err)

		return err
	}

	w.logger.InfoContext(ctx, "Worker started successfully")

	return nil
}

// Run starts the worker and blocks until ctx ends or the process is signalled.
func (w *WorkerManager) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := w.Start(ctx); err != nil {
		return err
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
	case <-ctx.Done():
	}

	w.logger.InfoContext(ctx, "Shutting down worker...")

	return nil
}

func (w *WorkerManager) handleTriggerRequested(ctx context.Context, event any) error {
	triggerEvent, ok := event.(*events.TriggerRequested)
	if !ok {
		w.logger.ErrorContext(ctx, "Invalid event type for TriggerRequested")

		return nil
	}

	logger := w.logger.With(
		"tenant_id", triggerEvent.TenantID,
		"event", triggerEvent.Event,
		"event_id", triggerEvent.ID,
	)

	if err := triggerEvent.Validate(); err != nil {
		logger.WarnContext(ctx, "Dropping invalid trigger request", "error", err)

		return nil
	}

	logger.InfoContext(ctx, "Processing trigger request")

	err := w.runner.Trigger(ctx, triggerEvent.TenantID, triggerEvent.Event, triggerEvent.Subject, triggerEvent.Context)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to run rules", "error", err)

		return err
	}

	return nil
}

func (w *WorkerManager) handleMessageStatusChanged(ctx context.Context, event any) error {
	statusEvent, ok := event.(*events.MessageStatusChanged)
	if !ok {
		w.logger.ErrorContext(ctx, "Invalid event type for MessageStatusChanged")

		return nil
	}

	logger := w.logger.With(
		"tenant_id", statusEvent.TenantID,
		"message_id", statusEvent.MessageID,
		"status", statusEvent.Status,
	)

	if err := statusEvent.Validate(); err != nil {
		logger.WarnContext(ctx, "Dropping invalid status event", "error", err)

		return nil
	}

	logger.InfoContext(ctx, "Processing message status change")

	err := w.runner.Trigger(ctx, statusEvent.TenantID, statusEvent.RuleEvent(), statusEvent.Subject(), nil)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to run message rules", "error", err)

		return err
	}

	return nil
}
