// Package memory is an in-process delayed job queue backed by timers. Pending jobs do not
// survive a restart.
package memory

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dukex/automation/pkg/scheduler"
	"github.com/google/uuid"
)

type entry struct {
	job   scheduler.Job
	runAt time.Time
	timer *time.Timer
	due   bool
}

type Queue struct {
	mu      sync.Mutex
	entries map[string]*entry
	handler scheduler.Handler
	ctx     context.Context
	logger  *slog.Logger
	now     func() time.Time
}

func NewQueue(logger *slog.Logger) *Queue {
	return &Queue{
		entries: make(map[string]*entry),
		logger:  logger.With("module", "memory_queue"),
		now:     time.Now,
	}
}

func (q *Queue) Schedule(_ context.Context, runAt time.Time, job scheduler.Job) (string, error) {
	handle := uuid.NewString()

	q.mu.Lock()
	defer q.mu.Unlock()

	e := &entry{job: job, runAt: runAt}
	q.entries[handle] = e
	e.timer = time.AfterFunc(max(runAt.Sub(q.now()), 0), func() { q.fire(handle) })

	return handle, nil
}

func (q *Queue) Cancel(_ context.Context, handle string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if e, ok := q.entries[handle]; ok {
		e.timer.Stop()
		delete(q.entries, handle)
	}

	return nil
}

// Start registers handler and delivers jobs that came due before it was started.
func (q *Queue) Start(ctx context.Context, handler scheduler.Handler) error {
	q.mu.Lock()
	q.ctx = ctx
	q.handler = handler

	var due []string
	for handle, e := range q.entries {
		if e.due {
			due = append(due, handle)
		}
	}
	q.mu.Unlock()

	for _, handle := range due {
		go q.fire(handle)
	}

	go func() {
		<-ctx.Done()
		q.stop()
	}()

	return nil
}

// Pending returns the number of jobs not yet delivered.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.entries)
}

func (q *Queue) fire(handle string) {
	q.mu.Lock()

	e, ok := q.entries[handle]
	if !ok {
		q.mu.Unlock()

		return
	}

	if q.handler == nil || q.ctx.Err() != nil {
		e.due = true
		q.mu.Unlock()

		return
	}

	delete(q.entries, handle)
	handler, ctx := q.handler, q.ctx
	q.mu.Unlock()

	job := e.job
	job.Handle = handle

	if err := handler(ctx, job); err != nil {
		q.logger.ErrorContext(ctx, "Job handler failed", "job_handle", handle, "rule_id", job.RuleID, "error", err)
	}
}

func (q *Queue) stop() {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, e := range q.entries {
		e.timer.Stop()
	}

	q.handler = nil
}
