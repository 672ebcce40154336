package notifications

import (
	"context"

	"placement-backend/internal/shared/metrics"
	"placement-backend/internal/shared/telemetry"
)

// Message is one notification waiting for delivery.
type Message struct {
	UserID  string
	Title   string
	Message string
	// Kind is a stable template name used in logs.
	Kind string
}

// Outbox collects messages while a transaction runs. Flush it only after commit.
type Outbox struct {
	items []Message
}

// Add queues msg.
func (o *Outbox) Add(msg Message) {
	o.items = append(o.items, msg)
}

// Len reports how many messages are queued.
func (o *Outbox) Len() int {
	return len(o.items)
}

// Messages returns a copy of the queued messages.
func (o *Outbox) Messages() []Message {
	return append([]Message(nil), o.items...)
}

// Flush delivers every queued message through sink and empties the outbox.
// Failures are logged and counted; they never propagate.
func (o *Outbox) Flush(ctx context.Context, sink Sink) {
	items := o.items
	o.items = nil
	if sink == nil {
		return
	}
	// Delivery outlives the request context.
	ctx = context.WithoutCancel(ctx)
	for _, msg := range items {
		if err := sink.Notify(ctx, msg.UserID, msg.Title, msg.Message); err != nil {
			metrics.IncNotificationFailed()
			telemetry.Error("notification.failed", map[string]any{
				"user_id": msg.UserID,
				"kind":    msg.Kind,
				"error":   err.Error(),
			})
		}
	}
}
