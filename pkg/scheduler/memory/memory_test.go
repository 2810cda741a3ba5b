package memory

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/dukex/automation/pkg/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestQueue() *Queue {
	return NewQueue(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError})))
}

func TestQueue_DeliversDueJob(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := newTestQueue()
	delivered := make(chan scheduler.Job, 1)

	require.NoError(t, q.Start(ctx, func(_ context.Context, job scheduler.Job) error {
		delivered <- job

		return nil
	}))

	handle, err := q.Schedule(ctx, time.Now().Add(10*time.Millisecond), scheduler.Job{RuleID: "r1", ResumeStepID: "s2"})
	require.NoError(t, err)

	select {
	case job := <-delivered:
		assert.Equal(t, handle, job.Handle)
		assert.Equal(t, "s2", job.ResumeStepID)
	case <-time.After(2 * time.Second):
		t.Fatal("job was not delivered")
	}

	assert.Equal(t, 0, q.Pending())
}

func TestQueue_Cancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := newTestQueue()
	delivered := make(chan scheduler.Job, 1)

	require.NoError(t, q.Start(ctx, func(_ context.Context, job scheduler.Job) error {
		delivered <- job

		return nil
	}))

	handle, err := q.Schedule(ctx, time.Now().Add(20*time.Millisecond), scheduler.Job{RuleID: "r1"})
	require.NoError(t, err)
	require.NoError(t, q.Cancel(ctx, handle))
	require.NoError(t, q.Cancel(ctx, "unknown"))

	select {
	case <-delivered:
		t.Fatal("cancelled job was delivered")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestQueue_HoldsJobsUntilStarted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := newTestQueue()

	_, err := q.Schedule(ctx, time.Now().Add(-time.Second), scheduler.Job{RuleID: "r1"})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		q.mu.Lock()
		defer q.mu.Unlock()

		for _, e := range q.entries {
			if e.due {
				return true
			}
		}

		return false
	}, time.Second, 5*time.Millisecond)

	delivered := make(chan scheduler.Job, 1)
	require.NoError(t, q.Start(ctx, func(_ context.Context, job scheduler.Job) error {
		delivered <- job

		return nil
	}))

	select {
	case job := <-delivered:
		assert.Equal(t, "r1", job.RuleID)
	case <-time.After(2 * time.Second):
		t.Fatal("held job was not delivered")
	}
}
