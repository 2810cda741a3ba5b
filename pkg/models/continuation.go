package models

import "time"

// Entity type names used in references and context keys.
const (
	EntityIncase            = "incase"
	EntityClient            = "client"
	EntityWebform           = "webform"
	EntityVariant           = "variant"
	EntityProduct           = "product"
	EntityUser              = "user"
	EntityVariants          = "variants"
	EntityIncases           = "incases"
	EntityAutomationMessage = "automation_message"
)

// Reference points at a persisted entity by type and id.
type Reference struct {
	Type string `json:"type" yaml:"type" validate:"required"`
	ID   string `json:"id"   yaml:"id"   validate:"required"`
}

func (r Reference) IsZero() bool { return r.ID == "" }

// ContextRefs is the id-only serialization of an execution context.
type ContextRefs struct {
	Event    string              `json:"event"`
	Subject  Reference           `json:"subject"`
	Entities map[string]string   `json:"entities,omitempty"`
	Lists    map[string][]string `json:"lists,omitempty"`
}

// Continuation is the durable record of a suspended rule run. A rule owns at most one.
type Continuation struct {
	RuleID       string      `json:"rule_id"`
	TenantID     string      `json:"tenant_id"`
	ResumeStepID string      `json:"resume_step_id"`
	Context      ContextRefs `json:"context"`
	ExpectedAt   time.Time   `json:"expected_at"`
	JobHandle    string      `json:"job_handle"`
	CreatedAt    time.Time   `json:"created_at"`
}
