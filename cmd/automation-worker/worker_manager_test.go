package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/dukex/automation/pkg/actions"
	"github.com/dukex/automation/pkg/conditions"
	"github.com/dukex/automation/pkg/engine"
	"github.com/dukex/automation/pkg/events"
	"github.com/dukex/automation/pkg/mocks"
	"github.com/dukex/automation/pkg/models"
	"github.com/dukex/automation/pkg/persistence/memory"
	"github.com/dukex/automation/pkg/scheduler"
	schedmemory "github.com/dukex/automation/pkg/scheduler/memory"
	"github.com/dukex/automation/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRunner struct {
	mock.Mock
}

func (m *mockRunner) Trigger(ctx context.Context, tenantID, event string, subject models.Reference, overrides map[string]models.Reference) error {
	args := m.Called(ctx, tenantID, event, subject, overrides)

	return args.Error(0)
}

func (m *mockRunner) Resume(ctx context.Context, job scheduler.Job) error {
	args := m.Called(ctx, job)

	return args.Error(0)
}

func newTestWorker() (*WorkerManager, *mockRunner, *mocks.MockEventBus, *mocks.MockQueue) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	runner := &mockRunner{}
	bus := &mocks.MockEventBus{}
	queue := &mocks.MockQueue{}

	return NewWorkerManager("worker-test", runner, bus, queue, logger), runner, bus, queue
}

func TestWorkerManager_Start(t *testing.T) {
	worker, _, bus, queue := newTestWorker()
	ctx := context.Background()

	bus.On("Handle", events.TriggerRequestedEvent, mock.Anything).Return(nil)
	bus.On("Handle", events.MessageStatusChangedEvent, mock.Anything).Return(nil)
	bus.On("Subscribe", ctx).Return(nil)
	queue.On("Start", ctx, mock.Anything).Return(nil)

	require.NoError(t, worker.Start(ctx))

	bus.AssertExpectations(t)
	queue.AssertExpectations(t)
}

func TestWorkerManager_StartFailsWhenSubscribeFails(t *testing.T) {
	worker, _, bus, queue := newTestWorker()
	ctx := context.Background()

	bus.On("Handle", mock.Anything, mock.Anything).Return(nil)
	bus.On("Subscribe", ctx).Return(errors.New("broker unreachable"))

	require.Error(t, worker.Start(ctx))
	queue.AssertNotCalled(t, "Start", mock.Anything, mock.Anything)
}

func TestWorkerManager_HandleTriggerRequested(t *testing.T) {
	worker, runner, _, _ := newTestWorker()
	ctx := context.Background()

	subject := models.Reference{Type: models.EntityIncase, ID: "i1"}
	overrides := map[string]models.Reference{"webform": {Type: models.EntityWebform, ID: "w1"}}

	runner.On("Trigger", ctx, "t1", "incase.created", subject, overrides).Return(nil).Once()

	err := worker.handleTriggerRequested(ctx, events.NewTriggerRequested("t1", "incase.created", subject, overrides))
	require.NoError(t, err)

	runner.AssertExpectations(t)
}

func TestWorkerManager_HandleTriggerRequestedErrors(t *testing.T) {
	worker, runner, _, _ := newTestWorker()
	ctx := context.Background()
	subject := models.Reference{Type: models.EntityIncase, ID: "i1"}

	t.Run("invalid payload is dropped", func(t *testing.T) {
		err := worker.handleTriggerRequested(ctx, events.NewTriggerRequested("", "incase.created", subject, nil))
		require.NoError(t, err)
		runner.AssertNotCalled(t, "Trigger")
	})

	t.Run("wrong type is dropped", func(t *testing.T) {
		require.NoError(t, worker.handleTriggerRequested(ctx, "not an event"))
	})

	t.Run("engine failure is returned for redelivery", func(t *testing.T) {
		runner.On("Trigger", ctx, "t1", "incase.created", subject, mock.Anything).Return(errors.New("db down")).Once()

		err := worker.handleTriggerRequested(ctx, events.NewTriggerRequested("t1", "incase.created", subject, nil))
		require.Error(t, err)
	})
}

func TestWorkerManager_HandleMessageStatusChanged(t *testing.T) {
	worker, runner, _, _ := newTestWorker()
	ctx := context.Background()

	subject := models.Reference{Type: models.EntityAutomationMessage, ID: "m1"}
	runner.On("Trigger", ctx, "t1", "automation_message.delivered", subject, map[string]models.Reference(nil)).Return(nil).Once()

	err := worker.handleMessageStatusChanged(ctx, events.NewMessageStatusChanged("t1", "m1", models.MessageStatusDelivered))
	require.NoError(t, err)

	err = worker.handleMessageStatusChanged(ctx, events.NewMessageStatusChanged("t1", "m1", "bounced"))
	require.NoError(t, err)

	runner.AssertExpectations(t)
	assert.Len(t, runner.Calls, 1)
}

func TestWorkerManager_UnprocessableTriggersAreAcked(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	store := memory.NewPersistence()
	testutil.SeedShop(store)

	ruleEngine := engine.New(logger, store,
		conditions.NewEvaluator(logger),
		actions.NewDispatcher(logger, store),
		scheduler.New(logger, schedmemory.NewQueue(logger), store),
	)
	worker := NewWorkerManager("worker-test", ruleEngine, &mocks.MockEventBus{}, &mocks.MockQueue{}, logger)
	ctx := context.Background()

	incase := models.Reference{Type: models.EntityIncase, ID: "i1"}

	requests := map[string]*events.TriggerRequested{
		"unknown tenant":       events.NewTriggerRequested("ghost", "incase.created", incase, nil),
		"unknown subject type": events.NewTriggerRequested("t1", "incase.created", models.Reference{Type: "order", ID: "i1"}, nil),
		"unknown context key": events.NewTriggerRequested("t1", "incase.created", incase,
			map[string]models.Reference{"order": {Type: "order", ID: "i2"}}),
	}

	for name, request := range requests {
		t.Run(name, func(t *testing.T) {
			assert.NoError(t, worker.handleTriggerRequested(ctx, request))
		})
	}
}
