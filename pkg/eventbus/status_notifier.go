package eventbus

import (
	"context"

	"github.com/dukex/automation/pkg/events"
	"github.com/dukex/automation/pkg/models"
)

// StatusNotifier publishes a MessageStatusChanged event for every message transition.
type StatusNotifier struct {
	publisher EventPublisher
}

func NewStatusNotifier(publisher EventPublisher) *StatusNotifier {
	return &StatusNotifier{publisher: publisher}
}

func (n *StatusNotifier) MessageStatusChanged(ctx context.Context, msg *models.Message) error {
	event := events.NewMessageStatusChanged(msg.TenantID, msg.ID, msg.Status)

	return n.publisher.Publish(ctx, msg.TenantID, event)
}
