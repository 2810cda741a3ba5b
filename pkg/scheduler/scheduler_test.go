package scheduler_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/dukex/automation/pkg/fieldbag"
	"github.com/dukex/automation/pkg/mocks"
	"github.com/dukex/automation/pkg/models"
	"github.com/dukex/automation/pkg/persistence/memory"
	"github.com/dukex/automation/pkg/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func pausedRule() *models.Rule {
	return &models.Rule{
		ID:       "r1",
		TenantID: "t1",
		Event:    "incase.created",
		Active:   true,
		Steps: []*models.Step{
			{ID: "wait", Kind: models.StepKindPause, Pause: &models.PauseSpec{DelaySeconds: 3600}, Next: "send"},
			{ID: "send", Kind: models.StepKindAction, Action: &models.Action{ID: "a1", Kind: models.ActionKindSendEmail}},
		},
	}
}

func incaseBag() *fieldbag.Bag {
	return fieldbag.Build(fieldbag.Input{
		Event:   "incase.created",
		Subject: &models.Incase{ID: "i1", TenantID: "t1", ClientID: "c1"},
	})
}

func TestScheduler_Schedule(t *testing.T) {
	ctx := context.Background()
	store := memory.NewPersistence()
	rule := pausedRule()
	require.NoError(t, store.Rules().Save(ctx, rule))

	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	queue := &mocks.MockQueue{}
	queue.On("Schedule", ctx, now.Add(time.Hour), mock.MatchedBy(func(job scheduler.Job) bool {
		return job.RuleID == "r1" && job.ResumeStepID == "send" && job.ContextIDs.Subject.ID == "i1"
	})).Return("job-1", nil)

	s := scheduler.New(testLogger(), queue, store, scheduler.WithClock(func() time.Time { return now }))

	continuation, err := s.Schedule(ctx, "t1", rule, rule.Steps[0], incaseBag())
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), continuation.ExpectedAt)
	assert.Equal(t, "job-1", continuation.JobHandle)
	assert.Equal(t, "send", continuation.ResumeStepID)

	stored, err := store.Rules().GetByID(ctx, "t1", "r1")
	require.NoError(t, err)
	require.NotNil(t, stored.ScheduledFor)
	assert.Equal(t, now.Add(time.Hour), *stored.ScheduledFor)
	assert.Equal(t, "job-1", stored.JobHandle)

	saved, err := store.Continuations().GetByRule(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "i1", saved.Context.Subject.ID)
	assert.Equal(t, "c1", saved.Context.Entities[models.EntityClient])

	queue.AssertExpectations(t)
}

func TestScheduler_RescheduleCancelsPrevious(t *testing.T) {
	ctx := context.Background()
	store := memory.NewPersistence()
	rule := pausedRule()
	require.NoError(t, store.Rules().Save(ctx, rule))

	queue := &mocks.MockQueue{}
	queue.On("Schedule", ctx, mock.Anything, mock.Anything).Return("job-1", nil).Once()
	queue.On("Schedule", ctx, mock.Anything, mock.Anything).Return("job-2", nil).Once()
	queue.On("Cancel", ctx, "job-1").Return(nil).Once()

	s := scheduler.New(testLogger(), queue, store)

	_, err := s.Schedule(ctx, "t1", rule, rule.Steps[0], incaseBag())
	require.NoError(t, err)

	_, err = s.Schedule(ctx, "t1", rule, rule.Steps[0], incaseBag())
	require.NoError(t, err)

	saved, err := store.Continuations().GetByRule(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "job-2", saved.JobHandle)

	queue.AssertExpectations(t)
}

func TestScheduler_FailedEnqueueKeepsPreviousJob(t *testing.T) {
	ctx := context.Background()
	store := memory.NewPersistence()
	rule := pausedRule()
	require.NoError(t, store.Rules().Save(ctx, rule))

	queue := &mocks.MockQueue{}
	queue.On("Schedule", ctx, mock.Anything, mock.Anything).Return("job-1", nil).Once()
	queue.On("Schedule", ctx, mock.Anything, mock.Anything).Return("", errors.New("redis down")).Once()

	s := scheduler.New(testLogger(), queue, store)

	_, err := s.Schedule(ctx, "t1", rule, rule.Steps[0], incaseBag())
	require.NoError(t, err)

	_, err = s.Schedule(ctx, "t1", rule, rule.Steps[0], incaseBag())
	require.Error(t, err)

	queue.AssertNotCalled(t, "Cancel", mock.Anything, mock.Anything)

	saved, err := store.Continuations().GetByRule(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "job-1", saved.JobHandle)

	stored, err := store.Rules().GetByID(ctx, "t1", "r1")
	require.NoError(t, err)
	assert.Equal(t, "job-1", stored.JobHandle)
	assert.Equal(t, "job-1", rule.JobHandle)
}

func TestScheduler_ScheduleErrors(t *testing.T) {
	ctx := context.Background()
	store := memory.NewPersistence()
	queue := &mocks.MockQueue{}
	s := scheduler.New(testLogger(), queue, store)

	rule := pausedRule()
	rule.Steps[0].Next = ""
	_, err := s.Schedule(ctx, "t1", rule, rule.Steps[0], incaseBag())
	require.ErrorIs(t, err, scheduler.ErrPauseWithoutNext)

	rule.Steps[0].Next = "elsewhere"
	_, err = s.Schedule(ctx, "t1", rule, rule.Steps[0], incaseBag())
	require.ErrorIs(t, err, scheduler.ErrDanglingEdge)

	queue.AssertNotCalled(t, "Schedule", mock.Anything, mock.Anything, mock.Anything)
}

func TestScheduler_Consume(t *testing.T) {
	ctx := context.Background()
	store := memory.NewPersistence()
	rule := pausedRule()
	require.NoError(t, store.Rules().Save(ctx, rule))

	queue := &mocks.MockQueue{}
	queue.On("Schedule", ctx, mock.Anything, mock.Anything).Return("job-1", nil)

	s := scheduler.New(testLogger(), queue, store)

	_, err := s.Schedule(ctx, "t1", rule, rule.Steps[0], incaseBag())
	require.NoError(t, err)

	current, err := s.Consume(ctx, scheduler.Job{TenantID: "t1", RuleID: "r1", Handle: "stale"})
	require.NoError(t, err)
	assert.False(t, current)

	current, err = s.Consume(ctx, scheduler.Job{TenantID: "t1", RuleID: "r1", Handle: "job-1"})
	require.NoError(t, err)
	assert.True(t, current)

	stored, err := store.Rules().GetByID(ctx, "t1", "r1")
	require.NoError(t, err)
	assert.Nil(t, stored.ScheduledFor)
	assert.Empty(t, stored.JobHandle)

	_, err = store.Continuations().GetByRule(ctx, "r1")
	require.Error(t, err)
}
