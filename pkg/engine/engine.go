// Package engine walks tenant rules. A trigger finds the active rules for an event and
// walks each step graph until it ends, fails, or suspends at a pause; suspended runs
// come back through Resume.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/automation/pkg/fieldbag"
	"github.com/dukex/automation/pkg/log"
	"github.com/dukex/automation/pkg/metrics"
	"github.com/dukex/automation/pkg/models"
	"github.com/dukex/automation/pkg/otelhelper"
	"github.com/dukex/automation/pkg/persistence"
	"github.com/dukex/automation/pkg/scheduler"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const DefaultStepBudget = 256

var (
	ErrStepBudgetExceeded = errors.New("step budget exceeded")
	ErrStepNotFound       = errors.New("step not found in rule")
	ErrRulePanicked       = errors.New("rule run panicked")
)

// Run outcomes, also used as metric labels.
const (
	OutcomeCompleted = "completed"
	OutcomeSuspended = "suspended"
	OutcomeFailed    = "failed"
	OutcomeSkipped   = "skipped"
)

type ConditionEvaluator interface {
	Evaluate(ctx context.Context, spec *models.ConditionSpec, bag *fieldbag.Bag) bool
}

type ActionExecutor interface {
	Execute(ctx context.Context, tenant *models.Tenant, action *models.Action, bag *fieldbag.Bag) error
}

type Scheduler interface {
	Schedule(ctx context.Context, tenantID string, rule *models.Rule, step *models.Step, bag *fieldbag.Bag) (*models.Continuation, error)
	Consume(ctx context.Context, job scheduler.Job) (bool, error)
}

type Engine struct {
	rules      persistence.RuleRepository
	tenants    persistence.TenantRepository
	loader     fieldbag.Loader
	conditions ConditionEvaluator
	actions    ActionExecutor
	scheduler  Scheduler

	logger     *slog.Logger
	tracer     trace.Tracer
	metrics    *metrics.Metrics
	stepBudget int
}

type Option func(*Engine)

func WithStepBudget(budget int) Option {
	return func(e *Engine) {
		if budget > 0 {
			e.stepBudget = budget
		}
	}
}

func WithLoader(loader fieldbag.Loader) Option {
	return func(e *Engine) { e.loader = loader }
}

func WithTracer(tracer trace.Tracer) Option {
	return func(e *Engine) { e.tracer = tracer }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

func New(
	logger *slog.Logger,
	p persistence.Persistence,
	conditions ConditionEvaluator,
	actions ActionExecutor,
	scheduler Scheduler,
	opts ...Option,
) *Engine {
	e := &Engine{
		rules:      p.Rules(),
		tenants:    p.Tenants(),
		loader:     NewEntityLoader(p),
		conditions: conditions,
		actions:    actions,
		scheduler:  scheduler,
		logger:     logger.With("module", "engine"),
		tracer:     otel.Tracer("automation/engine"),
		stepBudget: DefaultStepBudget,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Trigger loads the subject and the override entities, builds the context and runs
// every active rule for event.
func (e *Engine) Trigger(ctx context.Context, tenantID, event string, subject models.Reference, overrides map[string]models.Reference) error {
	logger := e.logger.With("tenant_id", tenantID, "event", event)

	tenant, err := e.tenants.Tenant(ctx, tenantID)
	if err != nil {
		if persistence.IsTenantNotFound(err) {
			logger.WarnContext(ctx, "Tenant not found, nothing to run")

			return nil
		}

		return fmt.Errorf("failed to load tenant %s: %w", tenantID, err)
	}

	if !fieldbag.KnownType(subject.Type) {
		logger.WarnContext(ctx, "Unknown subject type, nothing to run", "subject_type", subject.Type, "subject_id", subject.ID)

		return nil
	}

	refs := models.ContextRefs{
		Event:    event,
		Subject:  subject,
		Entities: make(map[string]string, len(overrides)),
		Lists:    make(map[string][]string),
	}

	for key, ref := range overrides {
		if ref.IsZero() {
			continue
		}

		if !fieldbag.KnownKey(key) {
			logger.WarnContext(ctx, "Ignoring context entry with unknown key", "key", key, "entity_id", ref.ID)

			continue
		}

		if key == models.EntityVariants || key == models.EntityIncases {
			refs.Lists[key] = append(refs.Lists[key], ref.ID)

			continue
		}

		refs.Entities[key] = ref.ID
	}

	bag, err := fieldbag.Hydrate(ctx, e.loader, tenantID, refs)
	if err != nil {
		if errors.Is(err, fieldbag.ErrSubjectMissing) {
			logger.WarnContext(ctx, "Event subject not found, nothing to run", "subject_type", subject.Type, "subject_id", subject.ID)

			return nil
		}

		return fmt.Errorf("failed to build context: %w", err)
	}

	return e.TriggerBag(ctx, tenant, event, bag)
}

// TriggerBag runs the tenant's active rules for event in position order. A failing rule
// is logged and does not stop the rules after it.
func (e *Engine) TriggerBag(ctx context.Context, tenant *models.Tenant, event string, bag *fieldbag.Bag) error {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "engine.trigger",
		attribute.String(otelhelper.TenantIDKey, tenant.ID),
		attribute.String(otelhelper.EventKey, event),
	)
	defer span.End()

	logger := e.logger.With("tenant_id", tenant.ID, "event", event)

	rules, err := e.rules.ActiveByEvent(ctx, tenant.ID, event)
	if err != nil {
		otelhelper.SetError(span, err)

		return fmt.Errorf("failed to find rules for %s: %w", event, err)
	}

	logger.DebugContext(ctx, "Running rules for event", "rules", len(rules))

	for _, rule := range rules {
		if err := e.ExecuteRule(ctx, tenant, rule, bag); err != nil {
			logger.ErrorContext(ctx, "Rule run failed", "rule_id", rule.ID, "error", err)
		}
	}

	return nil
}

// ExecuteRule walks rule from its entry step. A rule without an entry step is skipped.
func (e *Engine) ExecuteRule(ctx context.Context, tenant *models.Tenant, rule *models.Rule, bag *fieldbag.Bag) error {
	entry := rule.EntryStep()
	if entry == nil {
		e.logger.InfoContext(ctx, "Rule has no entry step, skipping", "tenant_id", tenant.ID, "rule_id", rule.ID)
		e.metrics.RuleRun(OutcomeSkipped, 0)

		return nil
	}

	return e.run(ctx, tenant, rule, entry, bag)
}

// ExecuteRuleFromStep walks rule starting at stepID.
func (e *Engine) ExecuteRuleFromStep(ctx context.Context, tenant *models.Tenant, rule *models.Rule, stepID string, bag *fieldbag.Bag) error {
	step := rule.StepByID(stepID)
	if step == nil {
		return fmt.Errorf("%w: rule %s, step %s", ErrStepNotFound, rule.ID, stepID)
	}

	return e.run(ctx, tenant, rule, step, bag)
}

// Resume is the job queue callback for an elapsed pause.
func (e *Engine) Resume(ctx context.Context, job scheduler.Job) error {
	logger := e.logger.With("tenant_id", job.TenantID, "rule_id", job.RuleID, "job_handle", job.Handle)

	current, err := e.scheduler.Consume(ctx, job)
	if err != nil {
		return err
	}

	if current {
		e.metrics.Continuation("resumed")
	} else {
		e.metrics.Continuation("stale")
		logger.InfoContext(ctx, "Job was superseded by a newer schedule, running it anyway")
	}

	tenant, err := e.tenants.Tenant(ctx, job.TenantID)
	if err != nil {
		if persistence.IsTenantNotFound(err) {
			logger.WarnContext(ctx, "Tenant no longer exists, dropping continuation")

			return nil
		}

		return fmt.Errorf("failed to load tenant %s: %w", job.TenantID, err)
	}

	rule, err := e.rules.GetByID(ctx, job.TenantID, job.RuleID)
	if err != nil {
		if persistence.IsRuleNotFound(err) {
			logger.WarnContext(ctx, "Rule no longer exists, dropping continuation")

			return nil
		}

		return err
	}

	if !rule.Active {
		logger.InfoContext(ctx, "Rule was deactivated, dropping continuation")

		return nil
	}

	bag, err := fieldbag.Hydrate(ctx, e.loader, job.TenantID, job.ContextIDs)
	if err != nil {
		if errors.Is(err, fieldbag.ErrSubjectMissing) || errors.Is(err, fieldbag.ErrUnknownEntityType) {
			logger.WarnContext(ctx, "Context subject cannot be loaded, dropping continuation", "error", err)

			return nil
		}

		return fmt.Errorf("failed to rebuild context: %w", err)
	}

	return e.ExecuteRuleFromStep(ctx, tenant, rule, job.ResumeStepID, bag)
}

// run walks one rule and converts a panic into an error.
func (e *Engine) run(ctx context.Context, tenant *models.Tenant, rule *models.Rule, start *models.Step, bag *fieldbag.Bag) (err error) {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "engine.rule",
		attribute.String(otelhelper.TenantIDKey, tenant.ID),
		attribute.String(otelhelper.RuleIDKey, rule.ID),
		attribute.String(otelhelper.StepIDKey, start.ID),
	)
	defer span.End()

	logger := e.logger.With("tenant_id", tenant.ID, "rule_id", rule.ID)
	ctx = log.ContextWithLogger(ctx, logger)
	started := time.Now()
	outcome := OutcomeFailed

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrRulePanicked, r)
		}

		if err != nil {
			outcome = OutcomeFailed
			otelhelper.SetError(span, err)
		}

		e.metrics.RuleRun(outcome, time.Since(started))
	}()

	outcome, err = e.walk(ctx, logger, tenant, rule, start, bag)

	return err
}

func (e *Engine) walk(ctx context.Context, logger *slog.Logger, tenant *models.Tenant, rule *models.Rule, step *models.Step, bag *fieldbag.Bag) (string, error) {
	for visited := 0; ; visited++ {
		if visited >= e.stepBudget {
			return OutcomeFailed, fmt.Errorf("%w: %d steps at %s", ErrStepBudgetExceeded, e.stepBudget, step.ID)
		}

		kind := step.Kind.Normalize()
		stepLogger := logger.With("step_id", step.ID, "step_kind", kind)
		e.metrics.Step(string(kind))

		var next string

		switch kind {
		case models.StepKindCondition:
			matched := e.conditions.Evaluate(ctx, step.Condition, bag)
			next = step.OnFalse
			if matched {
				next = step.OnTrue
			}

			stepLogger.DebugContext(ctx, "Condition evaluated", "matched", matched)
		case models.StepKindAction:
			if step.Action == nil {
				stepLogger.WarnContext(ctx, "Action step without action, skipping")
			} else {
				action := *step.Action
				if action.RuleID == "" {
					action.RuleID = rule.ID
				}

				if err := e.actions.Execute(ctx, tenant, &action, bag); err != nil {
					return OutcomeFailed, err
				}
			}

			next = step.Next
		case models.StepKindPause:
			var delay time.Duration
			if step.Pause != nil {
				delay = step.Pause.Delay()
			}

			if delay <= 0 {
				next = step.Next

				break
			}

			_, err := e.scheduler.Schedule(ctx, tenant.ID, rule, step, bag)
			if err != nil {
				if errors.Is(err, scheduler.ErrPauseWithoutNext) {
					stepLogger.WarnContext(ctx, "Pause step has nowhere to resume, ending run")

					return OutcomeCompleted, nil
				}

				return OutcomeFailed, err
			}

			e.metrics.Continuation("scheduled")

			return OutcomeSuspended, nil
		case models.StepKindUnknown:
			stepLogger.WarnContext(ctx, "Unknown step kind, ending run")

			return OutcomeCompleted, nil
		}

		if next == "" {
			return OutcomeCompleted, nil
		}

		following := rule.StepByID(next)
		if following == nil {
			return OutcomeFailed, fmt.Errorf("%w: %s -> %s", scheduler.ErrDanglingEdge, step.ID, next)
		}

		step = following
	}
}
