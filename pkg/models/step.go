package models

import "time"

// StepKind tags the variant held by a Step.
type StepKind string

const (
	StepKindCondition StepKind = "condition"
	StepKindPause     StepKind = "pause"
	StepKindAction    StepKind = "action"
	StepKindUnknown   StepKind = "unknown"
)

// Normalize maps unrecognized kinds onto StepKindUnknown.
func (k StepKind) Normalize() StepKind {
	switch k {
	case StepKindCondition, StepKindPause, StepKindAction:
		return k
	default:
		return StepKindUnknown
	}
}

// Step is one node of a rule's step graph.
type Step struct {
	ID       string   `json:"id"       yaml:"id"       validate:"required"`
	RuleID   string   `json:"rule_id"  yaml:"rule_id"`
	Kind     StepKind `json:"kind"     yaml:"kind"     validate:"required"`
	Position int      `json:"position" yaml:"position"`

	Condition *ConditionSpec `json:"condition,omitempty" yaml:"condition,omitempty"`
	Pause     *PauseSpec     `json:"pause,omitempty"     yaml:"pause,omitempty"`
	Action    *Action        `json:"action,omitempty"    yaml:"action,omitempty"`

	Next    string `json:"next,omitempty"     yaml:"next,omitempty"`
	OnTrue  string `json:"on_true,omitempty"  yaml:"on_true,omitempty"`
	OnFalse string `json:"on_false,omitempty" yaml:"on_false,omitempty"`
}

// Edges lists the outgoing step ids relevant for the step kind.
func (s *Step) Edges() []string {
	var edges []string

	switch s.Kind.Normalize() {
	case StepKindCondition:
		edges = append(edges, s.OnTrue, s.OnFalse)
	case StepKindPause, StepKindAction:
		edges = append(edges, s.Next)
	case StepKindUnknown:
	}

	result := edges[:0]

	for _, edge := range edges {
		if edge != "" {
			result = append(result, edge)
		}
	}

	return result
}

// PauseSpec delays the rest of the walk.
type PauseSpec struct {
	DelaySeconds int64 `json:"delay_seconds" yaml:"delay_seconds"`
}

func (p PauseSpec) Delay() time.Duration {
	return time.Duration(p.DelaySeconds) * time.Second
}
