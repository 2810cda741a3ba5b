package models

// ActionKind tags what an action step does.
type ActionKind string

const (
	ActionKindSendEmail              ActionKind = "send_email"
	ActionKindSendSMS                ActionKind = "send_sms"
	ActionKindSendChat               ActionKind = "send_chat"
	ActionKindSendEmailToTenantUsers ActionKind = "send_email_to_all_tenant_users"
	ActionKindChangeStatus           ActionKind = "change_status"
	ActionKindUnknown                ActionKind = "unknown"
)

// Normalize maps kinds this build does not know onto ActionKindUnknown.
func (k ActionKind) Normalize() ActionKind {
	switch k {
	case ActionKindSendEmail, ActionKindSendSMS, ActionKindSendChat,
		ActionKindSendEmailToTenantUsers, ActionKindChangeStatus:
		return k
	default:
		return ActionKindUnknown
	}
}

// Action is the parameterized work an action step performs.
// Value holds the template id for send kinds and the target status for change_status.
type Action struct {
	ID       string     `json:"id"                 yaml:"id"   validate:"required"`
	RuleID   string     `json:"rule_id,omitempty"  yaml:"rule_id,omitempty"`
	Kind     ActionKind `json:"kind"               yaml:"kind" validate:"required"`
	Value    string     `json:"value,omitempty"    yaml:"value,omitempty"`
	Provider string     `json:"provider,omitempty" yaml:"provider,omitempty"`
}
