package testutil

import (
	"testing"

	"github.com/dukex/automation/pkg/models"
	"github.com/stretchr/testify/assert"
)

func TestCreateTestRule(t *testing.T) {
	rule := CreateTestRule([]*models.Step{
		ConditionStep("check", "send", "", Equals("webform.kind", "order")),
		SendEmailStep("send", "welcome", ""),
	}, WithRuleID("r1"), WithPosition(3))

	assert.Equal(t, "r1", rule.ID)
	assert.Equal(t, 3, rule.Position)
	assert.True(t, rule.Active)
	assert.Equal(t, "check", rule.EntryStep().ID)
	assert.Equal(t, []string{"send"}, rule.StepByID("check").Edges())
}
