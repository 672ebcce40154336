package reminders

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"placement-backend/internal/notifications"
	"placement-backend/internal/placement"
	"placement-backend/internal/shared/metrics"
	"placement-backend/internal/shared/telemetry"
)

const (
	windowStart = 12 * time.Hour
	windowEnd   = 36 * time.Hour
)

// Service sends day-before reminders for booked interviews.
type Service struct {
	Store    placement.Reader
	Sink     notifications.Sink
	Location *time.Location
	Venue    string
	Now      func() time.Time
}

// NewService constructs a Service rendering times in loc.
func NewService(store placement.Reader, sink notifications.Sink, loc *time.Location, venue string) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		Store:    store,
		Sink:     sink,
		Location: loc,
		Venue:    venue,
		Now:      time.Now,
	}
}

// Run reminds the student of every ACCEPTED interview starting in
// [now+12h, now+36h) and returns how many reminders were queued.
func (s *Service) Run(ctx context.Context, now time.Time) (int, error) {
	from, to := now.Add(windowStart), now.Add(windowEnd)
	items, err := s.Store.ListInterviewsStarting(ctx, from, to)
	if err != nil {
		return 0, fmt.Errorf("list interviews starting: %w", err)
	}

	var outbox notifications.Outbox
	for _, iv := range items {
		outbox.Add(notifications.Reminder(iv.StudentID, iv.DateTime.In(s.Location), s.Venue))
	}
	n := outbox.Len()
	outbox.Flush(ctx, s.Sink)
	metrics.AddRemindersSent(n)
	telemetry.Info("reminders.run", map[string]any{
		"from":  from.UTC().Format(time.RFC3339),
		"to":    to.UTC().Format(time.RFC3339),
		"count": n,
	})
	return n, nil
}

// Register schedules Run on c under the standard five-field spec.
func Register(ctx context.Context, c *cron.Cron, spec string, svc *Service) (cron.EntryID, error) {
	id, err := c.AddFunc(spec, func() {
		if _, err := svc.Run(ctx, svc.Now()); err != nil {
			telemetry.Error("reminders.failed", map[string]any{"error": err.Error()})
		}
	})
	if err != nil {
		return 0, fmt.Errorf("schedule reminders %q: %w", spec, err)
	}
	return id, nil
}
