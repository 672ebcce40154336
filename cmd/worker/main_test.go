package main

import (
	"context"
	"testing"
	"time"

	"placement-backend/internal/notifications"
	"placement-backend/internal/placement"
	"placement-backend/internal/reminders"
)

func TestNewSchedulerUsesGridZone(t *testing.T) {
	zone := time.FixedZone("EAT", 3*60*60)
	svc := reminders.NewService(placement.NewMemoryStore(), notifications.NewMemorySink(), zone, "Balbala Campus")

	c, err := newScheduler(context.Background(), "0 18 * * *", svc)
	if err != nil {
		t.Fatalf("newScheduler: %v", err)
	}
	entries := c.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected one entry, got %d", len(entries))
	}
	from := time.Date(2026, time.January, 10, 12, 0, 0, 0, time.UTC)
	next := entries[0].Schedule.Next(from)
	want := time.Date(2026, time.January, 10, 15, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("next run = %s, want %s", next.UTC(), want)
	}
}

func TestNewSchedulerRejectsBadSpec(t *testing.T) {
	svc := reminders.NewService(placement.NewMemoryStore(), notifications.NewMemorySink(), nil, "")
	if _, err := newScheduler(context.Background(), "every tuesday", svc); err == nil {
		t.Fatalf("expected spec error")
	}
}
