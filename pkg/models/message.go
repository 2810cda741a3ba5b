package models

import (
	"errors"
	"fmt"
	"time"
)

// Channel is the outbound delivery mechanism a message went through.
type Channel string

const (
	ChannelEmail    Channel = "email"
	ChannelSMS      Channel = "sms"
	ChannelBot      Channel = "bot"
	ChannelPersonal Channel = "personal"
)

type MessageStatus string

const (
	MessageStatusPending   MessageStatus = "pending"
	MessageStatusSent      MessageStatus = "sent"
	MessageStatusDelivered MessageStatus = "delivered"
	MessageStatusFailed    MessageStatus = "failed"
)

var ErrInvalidTransition = errors.New("invalid message status transition")

var messageTransitions = map[MessageStatus][]MessageStatus{
	MessageStatusPending: {MessageStatusSent, MessageStatusFailed},
	MessageStatusSent:    {MessageStatusDelivered, MessageStatusFailed},
}

// ParseMessageStatus returns the status for s, or false for unknown values.
func ParseMessageStatus(s string) (MessageStatus, bool) {
	switch status := MessageStatus(s); status {
	case MessageStatusPending, MessageStatusSent, MessageStatusDelivered, MessageStatusFailed:
		return status, true
	default:
		return "", false
	}
}

// Message is the auditable record of one outbound send.
type Message struct {
	ID       string `json:"id"`
	TenantID string `json:"tenant_id"`
	RuleID   string `json:"rule_id,omitempty"`
	ActionID string `json:"action_id,omitempty"`

	ClientID  string `json:"client_id,omitempty"`
	UserID    string `json:"user_id,omitempty"`
	IncaseID  string `json:"incase_id,omitempty"`
	Recipient string `json:"recipient"`

	Channel Channel       `json:"channel"`
	Status  MessageStatus `json:"status"`
	Subject string        `json:"subject,omitempty"`
	Content string        `json:"content"`

	Provider          string `json:"provider,omitempty"`
	ProviderMessageID string `json:"provider_message_id,omitempty"`
	ErrorMessage      string `json:"error_message,omitempty"`

	SentAt      *time.Time `json:"sent_at,omitempty"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	// Loaded associations, used to back-fill context for message events.
	Incase *Incase `json:"-"`
	Client *Client `json:"-"`
	User   *User   `json:"-"`
}

// CanTransitionTo reports whether the message may move to the given status.
func (m *Message) CanTransitionTo(status MessageStatus) bool {
	for _, allowed := range messageTransitions[m.Status] {
		if allowed == status {
			return true
		}
	}

	return false
}

// Transition moves the message to status, stamping the matching timestamp.
func (m *Message) Transition(status MessageStatus, at time.Time) error {
	if !m.CanTransitionTo(status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, m.Status, status)
	}

	m.Status = status
	m.UpdatedAt = at

	switch status {
	case MessageStatusSent:
		m.SentAt = &at
	case MessageStatusDelivered:
		m.DeliveredAt = &at
	case MessageStatusPending, MessageStatusFailed:
	}

	return nil
}

func (m *Message) MarkSent(provider, providerMessageID string, at time.Time) error {
	if err := m.Transition(MessageStatusSent, at); err != nil {
		return err
	}

	m.Provider = provider
	m.ProviderMessageID = providerMessageID

	return nil
}

func (m *Message) MarkFailed(cause error, at time.Time) error {
	if err := m.Transition(MessageStatusFailed, at); err != nil {
		return err
	}

	if cause != nil {
		m.ErrorMessage = cause.Error()
	}

	return nil
}
