package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Lifecycle event types published on the events topic.
const (
	EventOrderCreated   = "order.created"
	EventOrderPaid      = "order.paid"
	EventOrderCancelled = "order.cancelled"
	EventOrderRestored  = "order.restored"
	EventOrderCompleted = "order.completed"
	EventOrderReminder  = "order.reminder"
)

// Event is the JSON envelope for an order lifecycle change.
type Event struct {
	Type       string    `json:"type"`
	OrderID    string    `json:"order_id"`
	Status     string    `json:"status"`
	Reminder   string    `json:"reminder,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// PublishEvent encodes e and publishes it keyed by order id so that events for
// one order stay on one partition.
func PublishEvent(ctx context.Context, client Client, e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", e.Type, err)
	}
	return client.Publish(ctx, []byte(e.OrderID), payload)
}
