package applications

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"placement-backend/internal/notifications"
	"placement-backend/internal/placement"
	"placement-backend/internal/scheduling"
	"placement-backend/internal/tokens"
)

type fixture struct {
	store *placement.MemoryStore
	sink  *notifications.MemorySink
	svc   *Service

	mu    sync.Mutex
	clock time.Time
	seq   int
}

func newFixture() *fixture {
	f := &fixture{
		store: placement.NewMemoryStore(),
		sink:  notifications.NewMemorySink(),
		clock: time.Date(2026, time.January, 5, 9, 0, 0, 0, time.UTC),
	}
	f.svc = NewService(f.store, scheduling.NewScheduler(scheduling.DefaultGrid()), f.sink)
	f.svc.Now = func() time.Time {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.clock = f.clock.Add(time.Second)
		return f.clock
	}
	f.svc.NewID = func() string {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.seq++
		return fmt.Sprintf("id-%03d", f.seq)
	}
	return f
}

func (f *fixture) student(id string, tokens int) {
	f.store.PutStudent(placement.Student{ID: id, TokensRemaining: tokens, MaxTokens: tokens})
}

func (f *fixture) company(id string, quota int) {
	f.store.PutCompany(placement.Company{ID: id, InterviewQuota: quota})
}

func (f *fixture) job(id, companyID string, active bool) {
	f.store.PutJob(placement.Job{ID: id, CompanyID: companyID, Title: "Job " + id, IsActive: active})
}

// fillGrid books every cell of the default grid for an unrelated company.
func (f *fixture) fillGrid() {
	n := 0
	for _, start := range f.svc.Scheduler.Grid.Times() {
		for _, room := range f.svc.Scheduler.Grid.Rooms {
			n++
			f.store.PutInterview(placement.Interview{
				ID:        fmt.Sprintf("busy-%03d", n),
				CompanyID: "elsewhere",
				StudentID: fmt.Sprintf("busy-student-%03d", n),
				DateTime:  start,
				Room:      room,
				Status:    placement.InterviewAccepted,
			})
		}
	}
}

func (f *fixture) balance(t testing.TB, studentID string) tokens.Balance {
	t.Helper()
	bal, err := f.svc.Balance(context.Background(), studentID)
	require.NoError(t, err)
	return bal
}

func (f *fixture) status(t testing.TB, applicationID string) placement.ApplicationStatus {
	t.Helper()
	app, err := f.store.GetApplication(context.Background(), applicationID)
	require.NoError(t, err)
	return app.Status
}

func (f *fixture) inboxTitles(t testing.TB, userID string) []string {
	t.Helper()
	items, err := f.sink.ListForUser(context.Background(), userID, 0)
	require.NoError(t, err)
	out := make([]string, 0, len(items))
	for _, n := range items {
		out = append(out, n.Title)
	}
	return out
}
