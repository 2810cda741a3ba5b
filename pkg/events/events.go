// Package events defines the messages exchanged over the automation event bus.
package events

import (
	"errors"
	"fmt"
	"time"

	"github.com/dukex/automation/pkg/models"
	"github.com/google/uuid"
)

type EventType string

const Topic = "automation.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	TriggerRequestedEvent     EventType = "automation.trigger.requested"
	MessageStatusChangedEvent EventType = "automation.message.status_changed"
)

// MessageEventPrefix is prepended to a message status to form the rule event name.
const MessageEventPrefix = models.EntityAutomationMessage + "."

var (
	ErrTenantRequired  = errors.New("tenant_id is required")
	ErrEventRequired   = errors.New("event is required")
	ErrSubjectRequired = errors.New("subject type and id are required")
	ErrMessageRequired = errors.New("message_id is required")
	ErrInvalidStatus   = errors.New("invalid message status")
)

type BaseEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	TenantID  string    `json:"tenant_id"`
}

func NewBaseEvent(eventType EventType, tenantID string) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		TenantID:  tenantID,
	}
}

// TriggerRequested asks the worker to run the tenant's rules for Event.
type TriggerRequested struct {
	BaseEvent

	Event   string                      `json:"event"`
	Subject models.Reference            `json:"subject"`
	Context map[string]models.Reference `json:"context,omitempty"`
}

func (t TriggerRequested) GetType() EventType {
	return TriggerRequestedEvent
}

func NewTriggerRequested(tenantID, event string, subject models.Reference, context map[string]models.Reference) *TriggerRequested {
	return &TriggerRequested{
		BaseEvent: NewBaseEvent(TriggerRequestedEvent, tenantID),
		Event:     event,
		Subject:   subject,
		Context:   context,
	}
}

func (t *TriggerRequested) Validate() error {
	if t.TenantID == "" {
		return ErrTenantRequired
	}

	if t.Event == "" {
		return ErrEventRequired
	}

	if t.Subject.Type == "" || t.Subject.ID == "" {
		return ErrSubjectRequired
	}

	return nil
}

// MessageStatusChanged announces that an outbound message reached a new status.
type MessageStatusChanged struct {
	BaseEvent

	MessageID string               `json:"message_id"`
	Status    models.MessageStatus `json:"status"`
}

func (m MessageStatusChanged) GetType() EventType {
	return MessageStatusChangedEvent
}

func NewMessageStatusChanged(tenantID, messageID string, status models.MessageStatus) *MessageStatusChanged {
	return &MessageStatusChanged{
		BaseEvent: NewBaseEvent(MessageStatusChangedEvent, tenantID),
		MessageID: messageID,
		Status:    status,
	}
}

func (m *MessageStatusChanged) Validate() error {
	if m.TenantID == "" {
		return ErrTenantRequired
	}

	if m.MessageID == "" {
		return ErrMessageRequired
	}

	if _, ok := models.ParseMessageStatus(string(m.Status)); !ok {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, m.Status)
	}

	return nil
}

// RuleEvent is the rule event name fired for the new status, e.g. "automation_message.delivered".
func (m *MessageStatusChanged) RuleEvent() string {
	return MessageEventPrefix + string(m.Status)
}

// Subject references the message the status belongs to.
func (m *MessageStatusChanged) Subject() models.Reference {
	return models.Reference{Type: models.EntityAutomationMessage, ID: m.MessageID}
}
