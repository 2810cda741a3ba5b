// Package testutil provides rule builders and store fixtures for tests.
package testutil

import (
	"github.com/dukex/automation/pkg/models"
	"github.com/google/uuid"
)

// CreateTestRule creates an active incase.created rule for tenant t1 that can be overridden.
func CreateTestRule(steps []*models.Step, overrides ...func(*models.Rule)) *models.Rule {
	rule := &models.Rule{
		ID:       uuid.New().String(),
		TenantID: "t1",
		Title:    "Test Rule",
		Event:    "incase.created",
		Active:   true,
		Steps:    steps,
	}

	for _, override := range overrides {
		override(rule)
	}

	return rule
}

func WithRuleID(id string) func(*models.Rule) {
	return func(r *models.Rule) { r.ID = id }
}

func WithPosition(position int) func(*models.Rule) {
	return func(r *models.Rule) { r.Position = position }
}

func WithEvent(event string) func(*models.Rule) {
	return func(r *models.Rule) { r.Event = event }
}

// SendEmailStep sends the template to the context client.
func SendEmailStep(id, templateID, next string) *models.Step {
	return &models.Step{
		ID:     id,
		Kind:   models.StepKindAction,
		Action: &models.Action{ID: "a-" + id, Kind: models.ActionKindSendEmail, Value: templateID},
		Next:   next,
	}
}

func PauseStep(id string, delaySeconds int64, next string) *models.Step {
	return &models.Step{
		ID:    id,
		Kind:  models.StepKindPause,
		Pause: &models.PauseSpec{DelaySeconds: delaySeconds},
		Next:  next,
	}
}

// ConditionStep combines conditions with AND.
func ConditionStep(id, onTrue, onFalse string, conditions ...models.Condition) *models.Step {
	return &models.Step{
		ID:        id,
		Kind:      models.StepKindCondition,
		Condition: &models.ConditionSpec{Conditions: conditions},
		OnTrue:    onTrue,
		OnFalse:   onFalse,
	}
}

// Equals is shorthand for an equals leaf.
func Equals(field, value string) models.Condition {
	return models.Condition{Field: field, Operator: models.OperatorEquals, Value: value}
}
