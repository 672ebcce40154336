package notifications

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a notification does not exist for the user.
var ErrNotFound = errors.New("notification not found")

// Notification is a user-facing message stored for in-app display.
type Notification struct {
	ID        string     `json:"id"`
	UserID    string     `json:"userId"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	CreatedAt time.Time  `json:"createdAt"`
	ReadAt    *time.Time `json:"readAt,omitempty"`
}

// Sink delivers a notification. Delivery is best effort: callers never roll
// back their own work on a Sink error.
type Sink interface {
	Notify(ctx context.Context, userID, title, message string) error
}

// Inbox is the read side of a stored notification sink.
type Inbox interface {
	ListForUser(ctx context.Context, userID string, limit int) ([]Notification, error)
	MarkRead(ctx context.Context, userID, notificationID string, at time.Time) error
	MarkAllRead(ctx context.Context, userID string, at time.Time) (int, error)
	Delete(ctx context.Context, userID, notificationID string) error
}

// Store is a Sink that keeps what it delivers.
type Store interface {
	Sink
	Inbox
}
