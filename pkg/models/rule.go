package models

import (
	"sort"
	"time"
)

// Rule is a tenant-defined automation bound to one trigger event.
type Rule struct {
	ID       string  `json:"id"       yaml:"id"       validate:"required"`
	TenantID string  `json:"tenant_id" yaml:"tenant_id" validate:"required"`
	Title    string  `json:"title"    yaml:"title"`
	Event    string  `json:"event"    yaml:"event"    validate:"required"`
	Active   bool    `json:"active"   yaml:"active"`
	Position int     `json:"position" yaml:"position"`
	Steps    []*Step `json:"steps"    yaml:"steps"    validate:"dive"`

	// Scheduler bookkeeping, overwritten every time a pause step suspends the rule.
	ScheduledFor *time.Time `json:"scheduled_for,omitempty" yaml:"-"`
	JobHandle    string     `json:"job_handle,omitempty"    yaml:"-"`

	CreatedAt time.Time `json:"created_at" yaml:"-"`
	UpdatedAt time.Time `json:"updated_at" yaml:"-"`
}

// StepByID returns the step with the given id, or nil when the rule has no such step.
func (r *Rule) StepByID(id string) *Step {
	if id == "" {
		return nil
	}

	for _, step := range r.Steps {
		if step != nil && step.ID == id {
			return step
		}
	}

	return nil
}

// OrderedSteps returns the rule steps sorted by position, ties broken by id.
func (r *Rule) OrderedSteps() []*Step {
	steps := make([]*Step, 0, len(r.Steps))

	for _, step := range r.Steps {
		if step != nil {
			steps = append(steps, step)
		}
	}

	sort.SliceStable(steps, func(i, j int) bool {
		if steps[i].Position != steps[j].Position {
			return steps[i].Position < steps[j].Position
		}

		return steps[i].ID < steps[j].ID
	})

	return steps
}

// EntryStep is the lowest-ordered step that no other step of the rule points at.
// When every step has an inbound edge the first step by order is used.
func (r *Rule) EntryStep() *Step {
	ordered := r.OrderedSteps()
	if len(ordered) == 0 {
		return nil
	}

	inbound := make(map[string]bool, len(ordered))

	for _, step := range ordered {
		for _, target := range step.Edges() {
			if target != step.ID {
				inbound[target] = true
			}
		}
	}

	for _, step := range ordered {
		if !inbound[step.ID] {
			return step
		}
	}

	return ordered[0]
}

// SortRules orders rules by position, ties broken by id.
func SortRules(rules []*Rule) {
	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].Position != rules[j].Position {
			return rules[i].Position < rules[j].Position
		}

		return rules[i].ID < rules[j].ID
	})
}
