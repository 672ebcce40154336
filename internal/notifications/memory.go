package notifications

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemorySink keeps notifications in process. Used in dev mode and tests.
type MemorySink struct {
	mu    sync.RWMutex
	items []Notification
	// failFor makes Notify fail for the listed user ids.
	failFor map[string]bool
	now     func() time.Time
}

// NewMemorySink constructs an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{failFor: make(map[string]bool), now: func() time.Time { return time.Now().UTC() }}
}

// FailFor makes every later delivery to userID fail.
func (s *MemorySink) FailFor(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failFor[userID] = true
}

func (s *MemorySink) Notify(ctx context.Context, userID, title, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failFor[userID] {
		return errors.New("delivery refused")
	}
	s.items = append(s.items, Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		Message:   message,
		CreatedAt: s.now(),
	})
	return nil
}

func (s *MemorySink) ListForUser(ctx context.Context, userID string, limit int) ([]Notification, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Notification, 0)
	for i := len(s.items) - 1; i >= 0; i-- {
		if s.items[i].UserID == userID {
			out = append(out, s.items[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemorySink) MarkRead(ctx context.Context, userID, notificationID string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID == notificationID && s.items[i].UserID == userID {
			if s.items[i].ReadAt == nil {
				readAt := at
				s.items[i].ReadAt = &readAt
			}
			return nil
		}
	}
	return ErrNotFound
}

func (s *MemorySink) MarkAllRead(ctx context.Context, userID string, at time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for i := range s.items {
		if s.items[i].UserID == userID && s.items[i].ReadAt == nil {
			readAt := at
			s.items[i].ReadAt = &readAt
			n++
		}
	}
	return n, nil
}

func (s *MemorySink) Delete(ctx context.Context, userID, notificationID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID == notificationID && s.items[i].UserID == userID {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}
