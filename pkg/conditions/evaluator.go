// Package conditions decides which branch a condition step takes.
package conditions

import (
	"context"
	"log/slog"
	"sync"

	"github.com/dukex/automation/pkg/fieldbag"
	"github.com/dukex/automation/pkg/log"
	"github.com/dukex/automation/pkg/models"
	"github.com/dukex/automation/pkg/template"
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Evaluator evaluates condition specs against an execution context. It is safe for
// concurrent use.
type Evaluator struct {
	logger    *slog.Logger
	operators map[models.Operator]OperatorFunc

	mu       sync.RWMutex
	programs map[string]*vm.Program
}

func NewEvaluator(logger *slog.Logger) *Evaluator {
	return &Evaluator{
		logger:    logger.With("module", "conditions"),
		operators: defaultOperators(),
		programs:  make(map[string]*vm.Program),
	}
}

// Evaluate returns the branch decision for spec. A nil spec or an empty condition list
// is satisfied.
func (e *Evaluator) Evaluate(ctx context.Context, spec *models.ConditionSpec, bag *fieldbag.Bag) bool {
	if spec == nil {
		return true
	}

	switch spec.Mode {
	case models.ConditionModeTemplate:
		if spec.Template == "" {
			return true
		}

		return template.Matches(ctx, log.FromContext(ctx, e.logger), spec.Template, bag.Data())
	case models.ConditionModeExpression:
		if spec.Expression == "" {
			return true
		}

		return e.evaluateExpression(ctx, spec.Expression, bag)
	case models.ConditionModeStructured, "":
		return e.evaluateLeaves(ctx, spec.Logic, spec.Conditions, bag)
	default:
		log.FromContext(ctx, e.logger).WarnContext(ctx, "unknown condition mode, treating as not matched", "mode", spec.Mode)

		return false
	}
}

func (e *Evaluator) evaluateLeaves(ctx context.Context, logic models.Logic, leaves []models.Condition, bag *fieldbag.Bag) bool {
	if len(leaves) == 0 {
		return true
	}

	if logic == models.LogicOr {
		for _, leaf := range leaves {
			if e.EvaluateLeaf(ctx, leaf, bag) {
				return true
			}
		}

		return false
	}

	if logic != models.LogicAnd && logic != "" {
		log.FromContext(ctx, e.logger).WarnContext(ctx, "unknown condition logic, using and", "logic", logic)
	}

	for _, leaf := range leaves {
		if !e.EvaluateLeaf(ctx, leaf, bag) {
			return false
		}
	}

	return true
}

// EvaluateLeaf evaluates one field/operator/value comparison. Unknown operators never match.
func (e *Evaluator) EvaluateLeaf(ctx context.Context, leaf models.Condition, bag *fieldbag.Bag) bool {
	op, ok := e.operators[leaf.Operator]
	if !ok {
		log.FromContext(ctx, e.logger).WarnContext(ctx, "unknown condition operator", "field", leaf.Field, "operator", leaf.Operator)

		return false
	}

	return op(bag.Get(leaf.Field), leaf.Value)
}

func (e *Evaluator) evaluateExpression(ctx context.Context, source string, bag *fieldbag.Bag) bool {
	program, err := e.program(source)
	if err != nil {
		log.FromContext(ctx, e.logger).WarnContext(ctx, "failed to compile condition expression", "expression", source, "error", err)

		return false
	}

	output, err := expr.Run(program, bag.Data())
	if err != nil {
		log.FromContext(ctx, e.logger).WarnContext(ctx, "failed to run condition expression", "expression", source, "error", err)

		return false
	}

	result, ok := output.(bool)
	if !ok {
		log.FromContext(ctx, e.logger).WarnContext(ctx, "condition expression did not return a boolean", "expression", source)

		return false
	}

	return result
}

func (e *Evaluator) program(source string) (*vm.Program, error) {
	e.mu.RLock()
	program, ok := e.programs[source]
	e.mu.RUnlock()

	if ok {
		return program, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if program, ok := e.programs[source]; ok {
		return program, nil
	}

	program, err := expr.Compile(source, expr.AllowUndefinedVariables())
	if err != nil {
		return nil, err
	}

	e.programs[source] = program

	return program, nil
}
