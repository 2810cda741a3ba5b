// Package web provides the HTTP surface of the automation service.
package web

import (
	"github.com/dukex/automation/pkg/models"
)

// ReferenceRequest identifies an entity in a trigger request.
type ReferenceRequest struct {
	Type string `json:"type" validate:"required"`
	ID   string `json:"id"   validate:"required"`
}

func (r ReferenceRequest) reference() models.Reference {
	return models.Reference{Type: r.Type, ID: r.ID}
}

// TriggerEventRequest is the body of POST /tenants/:tenantId/events.
type TriggerEventRequest struct {
	Event   string                      `json:"event"             validate:"required"`
	Subject ReferenceRequest            `json:"subject"           validate:"required"`
	Context map[string]ReferenceRequest `json:"context,omitempty" validate:"omitempty,dive"`
}

type TriggerEventResponse struct {
	EventID string `json:"event_id"`
}

// MessageStatusRequest is a provider delivery callback.
type MessageStatusRequest struct {
	Status string `json:"status"          validate:"required,oneof=delivered failed"`
	Error  string `json:"error,omitempty"`
}
