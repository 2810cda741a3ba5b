package conditions

import (
	"context"
	"log/slog"
	"testing"

	"github.com/dukex/automation/pkg/fieldbag"
	"github.com/dukex/automation/pkg/models"
	"github.com/stretchr/testify/assert"
)

func newBag(kind, status string) *fieldbag.Bag {
	return fieldbag.Build(fieldbag.Input{
		Event: "incase.created",
		Subject: &models.Incase{
			ID:      "i1",
			Status:  status,
			Total:   250,
			Paid:    true,
			Client:  &models.Client{ID: "c1", Name: "Ann", Email: "ann@example.com"},
			Webform: &models.Webform{ID: "w1", Kind: kind},
		},
		Overrides: fieldbag.Overrides{
			Variants: []*models.Variant{{ID: "v1", SKU: "A"}, {ID: "v2", SKU: "B"}},
		},
	})
}

func leaf(field string, op models.Operator, value string) models.Condition {
	return models.Condition{Field: field, Operator: op, Value: value}
}

func TestEvaluate_EmptyIsTrue(t *testing.T) {
	e := NewEvaluator(slog.Default())
	ctx := context.Background()
	bag := newBag("order", "new")

	assert.True(t, e.Evaluate(ctx, nil, bag))
	assert.True(t, e.Evaluate(ctx, &models.ConditionSpec{}, bag))
	assert.True(t, e.Evaluate(ctx, &models.ConditionSpec{Logic: models.LogicOr}, bag))
	assert.True(t, e.Evaluate(ctx, &models.ConditionSpec{Logic: models.LogicAnd}, bag))
}

func TestEvaluate_WebformScenario(t *testing.T) {
	e := NewEvaluator(slog.Default())
	spec := &models.ConditionSpec{
		Conditions: []models.Condition{
			leaf("incase.webform.kind", models.OperatorEquals, "order"),
			leaf("incase.status", models.OperatorEquals, "new"),
		},
	}

	assert.True(t, e.Evaluate(context.Background(), spec, newBag("order", "new")))
	assert.False(t, e.Evaluate(context.Background(), spec, newBag("callback", "new")))
}

func TestEvaluate_Logic(t *testing.T) {
	e := NewEvaluator(slog.Default())
	bag := newBag("order", "new")
	truthy := leaf("incase.status", models.OperatorEquals, "new")
	falsy := leaf("incase.status", models.OperatorEquals, "paid")

	tests := []struct {
		name   string
		logic  models.Logic
		leaves []models.Condition
		want   bool
	}{
		{"and all true", models.LogicAnd, []models.Condition{truthy, truthy}, true},
		{"and one false", models.LogicAnd, []models.Condition{truthy, falsy}, false},
		{"default logic is and", "", []models.Condition{truthy, falsy}, false},
		{"or one true", models.LogicOr, []models.Condition{falsy, truthy}, true},
		{"or all false", models.LogicOr, []models.Condition{falsy, falsy}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := &models.ConditionSpec{Logic: tt.logic, Conditions: tt.leaves}
			assert.Equal(t, tt.want, e.Evaluate(context.Background(), spec, bag))
		})
	}
}

func TestEvaluateLeaf_Operators(t *testing.T) {
	e := NewEvaluator(slog.Default())
	bag := newBag("order", "new")

	tests := []struct {
		name string
		cond models.Condition
		want bool
	}{
		{"equals bool true", leaf("incase.paid", models.OperatorEquals, "true"), true},
		{"equals bool false", leaf("incase.paid", models.OperatorEquals, "false"), false},
		{"not equals bool", leaf("incase.paid", models.OperatorNotEquals, "false"), true},
		{"equals is case sensitive", leaf("incase.status", models.OperatorEquals, "NEW"), false},
		{"equals number coerced", leaf("incase.total", models.OperatorEquals, "250"), true},
		{"contains substring", leaf("client.email", models.OperatorContains, "@example"), true},
		{"contains list item", leaf("variants", models.OperatorContains, "v2"), true},
		{"contains missing field", leaf("client.phone_missing", models.OperatorContains, ""), false},
		{"greater than", leaf("incase.total", models.OperatorGreaterThan, "100"), true},
		{"less than", leaf("incase.total", models.OperatorLessThan, "100"), false},
		{"non numeric value parses as zero", leaf("incase.total", models.OperatorGreaterThan, "abc"), true},
		{"non numeric field parses as zero", leaf("incase.status", models.OperatorLessThan, "1"), true},
		{"present", leaf("client.name", models.OperatorPresent, ""), true},
		{"blank", leaf("client.phone", models.OperatorBlank, ""), true},
		{"predicate", leaf("incase.new?", models.OperatorIsTrue, ""), true},
		{"is false", leaf("incase.paid", models.OperatorIsFalse, ""), false},
		{"unknown operator", leaf("incase.status", "matches", "new"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.EvaluateLeaf(context.Background(), tt.cond, bag))
		})
	}
}

func TestEvaluateLeaf_PresentBlankComplement(t *testing.T) {
	e := NewEvaluator(slog.Default())
	bag := newBag("order", "new")
	ctx := context.Background()

	fields := []string{
		"incase.status", "incase.total", "incase.paid", "client.name", "client.phone",
		"variants", "incase.webform", "missing.path", "incase.status.nested",
	}

	for _, field := range fields {
		t.Run(field, func(t *testing.T) {
			present := e.EvaluateLeaf(ctx, leaf(field, models.OperatorPresent, ""), bag)
			blank := e.EvaluateLeaf(ctx, leaf(field, models.OperatorBlank, ""), bag)
			assert.NotEqual(t, present, blank)
		})
	}

	assert.False(t, e.EvaluateLeaf(ctx, leaf("missing.path", models.OperatorPresent, ""), bag))
	assert.True(t, e.EvaluateLeaf(ctx, leaf("missing.path", models.OperatorBlank, ""), bag))
}

func TestEvaluate_TemplateMode(t *testing.T) {
	e := NewEvaluator(slog.Default())
	ctx := context.Background()

	spec := &models.ConditionSpec{
		Mode:     models.ConditionModeTemplate,
		Template: `{{ if eq .webform.kind "order" }}do_work{{ end }}`,
	}

	assert.True(t, e.Evaluate(ctx, spec, newBag("order", "new")))
	assert.False(t, e.Evaluate(ctx, spec, newBag("callback", "new")))

	spec.Template = "{{ if "
	assert.False(t, e.Evaluate(ctx, spec, newBag("order", "new")))
}

func TestEvaluate_ExpressionMode(t *testing.T) {
	e := NewEvaluator(slog.Default())
	ctx := context.Background()

	spec := &models.ConditionSpec{
		Mode:       models.ConditionModeExpression,
		Expression: `incase.total > 200 && webform.kind == "order"`,
	}

	assert.True(t, e.Evaluate(ctx, spec, newBag("order", "new")))
	assert.False(t, e.Evaluate(ctx, spec, newBag("callback", "new")))

	spec.Expression = `incase.status`
	assert.False(t, e.Evaluate(ctx, spec, newBag("order", "new")), "non-boolean result")

	spec.Expression = `incase.total >`
	assert.False(t, e.Evaluate(ctx, spec, newBag("order", "new")), "compile error")
}
