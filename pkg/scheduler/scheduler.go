// Package scheduler suspends a rule run at a pause step and hands the continuation to a
// delayed job queue. A rule owns at most one pending continuation; scheduling again
// supersedes the previous job.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/automation/pkg/fieldbag"
	"github.com/dukex/automation/pkg/models"
	"github.com/dukex/automation/pkg/persistence"
)

var (
	// ErrPauseWithoutNext is reported when a pause step has nothing to resume at.
	ErrPauseWithoutNext = errors.New("pause step has no next step")
	// ErrDanglingEdge is reported when an edge points outside the rule.
	ErrDanglingEdge = errors.New("edge references a step outside the rule")
)

// Job is the payload delivered back to the engine when a pause elapses.
type Job struct {
	TenantID     string             `json:"tenant_id"`
	RuleID       string             `json:"rule_id"`
	ResumeStepID string             `json:"resume_step_id"`
	ContextIDs   models.ContextRefs `json:"context_ids"`
	ExpectedAt   time.Time          `json:"expected_at"`

	// Handle is assigned by the queue and set on delivery.
	Handle string `json:"-"`
}

type Handler func(ctx context.Context, job Job) error

// Queue is a delayed job facility.
type Queue interface {
	// Schedule enqueues job to run at runAt and returns its handle.
	Schedule(ctx context.Context, runAt time.Time, job Job) (string, error)
	// Cancel removes a pending job. Unknown handles are not an error.
	Cancel(ctx context.Context, handle string) error
	// Start begins delivering due jobs to handler until ctx is done.
	Start(ctx context.Context, handler Handler) error
}

type Scheduler struct {
	queue         Queue
	rules         persistence.RuleRepository
	continuations persistence.ContinuationRepository
	logger        *slog.Logger
	now           func() time.Time
}

type Option func(*Scheduler)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

func New(logger *slog.Logger, queue Queue, p persistence.Persistence, opts ...Option) *Scheduler {
	s := &Scheduler{
		queue:         queue,
		rules:         p.Rules(),
		continuations: p.Continuations(),
		logger:        logger.With("module", "scheduler"),
		now:           time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Schedule suspends rule at the pause step and records the continuation. The returned
// continuation carries the job handle and expected run time.
func (s *Scheduler) Schedule(ctx context.Context, tenantID string, rule *models.Rule, step *models.Step, bag *fieldbag.Bag) (*models.Continuation, error) {
	if step.Next == "" {
		return nil, ErrPauseWithoutNext
	}

	if rule.StepByID(step.Next) == nil {
		return nil, fmt.Errorf("%w: %s -> %s", ErrDanglingEdge, step.ID, step.Next)
	}

	logger := s.logger.With("tenant_id", tenantID, "rule_id", rule.ID, "step_id", step.ID)

	superseded := s.currentHandles(ctx, rule)

	now := s.now().UTC()
	var delay time.Duration
	if step.Pause != nil {
		delay = step.Pause.Delay()
	}
	runAt := now.Add(delay)

	refs := bag.Refs()
	job := Job{
		TenantID:     tenantID,
		RuleID:       rule.ID,
		ResumeStepID: step.Next,
		ContextIDs:   refs,
		ExpectedAt:   runAt,
	}

	handle, err := s.queue.Schedule(ctx, runAt, job)
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue continuation: %w", err)
	}

	continuation := &models.Continuation{
		RuleID:       rule.ID,
		TenantID:     tenantID,
		ResumeStepID: step.Next,
		Context:      refs,
		ExpectedAt:   runAt,
		JobHandle:    handle,
		CreatedAt:    now,
	}

	if err := s.continuations.Save(ctx, continuation); err != nil {
		return nil, fmt.Errorf("failed to save continuation: %w", err)
	}

	if err := s.rules.UpdateSchedule(ctx, tenantID, rule.ID, &runAt, handle); err != nil {
		return nil, fmt.Errorf("failed to record schedule on rule: %w", err)
	}

	rule.ScheduledFor = &runAt
	rule.JobHandle = handle

	// the old job is cancelled only once the new handle is recorded
	s.cancel(ctx, logger, superseded, handle)

	logger.InfoContext(ctx, "Rule run suspended", "resume_step_id", step.Next, "run_at", runAt, "job_handle", handle)

	return continuation, nil
}

// currentHandles lists the job handles the rule and its continuation point at.
func (s *Scheduler) currentHandles(ctx context.Context, rule *models.Rule) []string {
	handles := make([]string, 0, 2)
	if rule.JobHandle != "" {
		handles = append(handles, rule.JobHandle)
	}

	if existing, err := s.continuations.GetByRule(ctx, rule.ID); err == nil && existing.JobHandle != rule.JobHandle {
		handles = append(handles, existing.JobHandle)
	}

	return handles
}

func (s *Scheduler) cancel(ctx context.Context, logger *slog.Logger, handles []string, keep string) {
	for _, handle := range handles {
		if handle == "" || handle == keep {
			continue
		}

		if err := s.queue.Cancel(ctx, handle); err != nil {
			logger.WarnContext(ctx, "Failed to cancel superseded job", "job_handle", handle, "error", err)
		}
	}
}

// Consume releases the rule's continuation when it still belongs to job. It reports
// whether the job was the current one.
func (s *Scheduler) Consume(ctx context.Context, job Job) (bool, error) {
	current, err := s.continuations.DeleteIfHandle(ctx, job.RuleID, job.Handle)
	if err != nil {
		return false, fmt.Errorf("failed to consume continuation: %w", err)
	}

	if !current {
		return false, nil
	}

	if err := s.rules.UpdateSchedule(ctx, job.TenantID, job.RuleID, nil, ""); err != nil {
		if persistence.IsRuleNotFound(err) {
			return true, nil
		}

		return true, fmt.Errorf("failed to clear rule schedule: %w", err)
	}

	return true, nil
}
