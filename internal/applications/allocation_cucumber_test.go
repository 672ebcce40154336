package applications

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/cucumber/godog"

	"placement-backend/internal/placement"
)

// TestAllocationScenarios runs the allocation feature scenarios.
func TestAllocationScenarios(t *testing.T) {
	suite := godog.TestSuite{
		Name:                "allocation",
		ScenarioInitializer: InitializeAllocationScenario,
		Options: &godog.Options{
			Format:    "pretty",
			Paths:     []string{filepath.Join("features", "allocation.feature")},
			Strict:    true,
			TestingT:  t,
			Randomize: 0,
		},
	}
	if suite.Run() != 0 {
		t.Fatalf("non-zero godog status")
	}
}

// InitializeAllocationScenario wires steps for allocation scenarios.
func InitializeAllocationScenario(ctx *godog.ScenarioContext) {
	state := &allocationState{}
	ctx.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		state.reset()
		return ctx, nil
	})

	ctx.Step(`^a company "([^"]*)" with an interview quota of (\d+)$`, state.givenCompany)
	ctx.Step(`^an active job "([^"]*)" at "([^"]*)"$`, state.givenActiveJob)
	ctx.Step(`^a student "([^"]*)" with (\d+) tokens?$`, state.givenStudent)
	ctx.Step(`^every grid cell is already booked$`, state.givenFullGrid)
	ctx.Step(`^"([^"]*)" applies to "([^"]*)"$`, state.whenApplies)
	ctx.Step(`^"([^"]*)" accepts the application of "([^"]*)" to "([^"]*)"$`, state.whenAccepts)
	ctx.Step(`^"([^"]*)" withdraws the application to "([^"]*)"$`, state.whenWithdraws)
	ctx.Step(`^it succeeds$`, state.thenSucceeds)
	ctx.Step(`^it fails with "([^"]*)"$`, state.thenFailsWith)
	ctx.Step(`^"([^"]*)" has (\d+) tokens? remaining$`, state.thenRemaining)
	ctx.Step(`^"([^"]*)" has (\d+) engaged tokens?$`, state.thenEngaged)
	ctx.Step(`^"([^"]*)" has (\d+) consumed tokens?$`, state.thenConsumed)
	ctx.Step(`^"([^"]*)" has an interview at the earliest free grid cell$`, state.thenEarliestInterview)
	ctx.Step(`^no interview exists for "([^"]*)"$`, state.thenNoInterview)
	ctx.Step(`^the application of "([^"]*)" to "([^"]*)" is "([^"]*)"$`, state.thenApplicationStatus)
}

var errorsByName = map[string]error{
	"InsufficientTokens":   placement.ErrInsufficientTokens,
	"QuotaExceeded":        placement.ErrQuotaExceeded,
	"DuplicateApplication": placement.ErrDuplicateApplication,
	"NoSlotAvailable":      placement.ErrNoSlotAvailable,
	"JobInactive":          placement.ErrJobInactive,
	"NotFound":             placement.ErrNotFound,
	"Forbidden":            placement.ErrForbidden,
}

// allocationState holds one scenario's world.
type allocationState struct {
	f       *fixture
	apps    map[string]string
	lastErr error
}

func (s *allocationState) reset() {
	s.f = newFixture()
	s.apps = make(map[string]string)
	s.lastErr = nil
}

func appKey(studentID, jobID string) string {
	return studentID + "|" + jobID
}

func (s *allocationState) givenCompany(id string, quota int) error {
	s.f.company(id, quota)
	return nil
}

func (s *allocationState) givenActiveJob(jobID, companyID string) error {
	s.f.job(jobID, companyID, true)
	return nil
}

func (s *allocationState) givenStudent(id string, tokens int) error {
	s.f.student(id, tokens)
	return nil
}

func (s *allocationState) givenFullGrid() error {
	s.f.fillGrid()
	return nil
}

func (s *allocationState) whenApplies(studentID, jobID string) error {
	res, err := s.f.svc.Apply(context.Background(), studentID, jobID, "")
	s.lastErr = err
	if err == nil {
		s.apps[appKey(studentID, jobID)] = res.ApplicationID
	}
	return nil
}

func (s *allocationState) whenAccepts(companyID, studentID, jobID string) error {
	id, ok := s.apps[appKey(studentID, jobID)]
	if !ok {
		return fmt.Errorf("no application of %s to %s", studentID, jobID)
	}
	_, s.lastErr = s.f.svc.UpdateStatus(context.Background(), id, companyID, placement.StatusAccepted)
	return nil
}

func (s *allocationState) whenWithdraws(studentID, jobID string) error {
	id, ok := s.apps[appKey(studentID, jobID)]
	if !ok {
		return fmt.Errorf("no application of %s to %s", studentID, jobID)
	}
	s.lastErr = s.f.svc.Withdraw(context.Background(), id, studentID)
	return nil
}

func (s *allocationState) thenSucceeds() error {
	if s.lastErr != nil {
		return fmt.Errorf("expected success, got %v", s.lastErr)
	}
	return nil
}

func (s *allocationState) thenFailsWith(name string) error {
	want, ok := errorsByName[name]
	if !ok {
		return fmt.Errorf("unknown error name %q", name)
	}
	if !errors.Is(s.lastErr, want) {
		return fmt.Errorf("expected %s, got %v", name, s.lastErr)
	}
	return nil
}

func (s *allocationState) student(id string) (placement.Student, error) {
	return s.f.store.GetStudent(context.Background(), id)
}

func (s *allocationState) thenRemaining(id string, want int) error {
	st, err := s.student(id)
	if err != nil {
		return err
	}
	if st.TokensRemaining != want {
		return fmt.Errorf("%s remaining = %d, want %d", id, st.TokensRemaining, want)
	}
	return nil
}

func (s *allocationState) thenEngaged(id string, want int) error {
	st, err := s.student(id)
	if err != nil {
		return err
	}
	if st.TokensEngaged != want {
		return fmt.Errorf("%s engaged = %d, want %d", id, st.TokensEngaged, want)
	}
	return nil
}

func (s *allocationState) thenConsumed(id string, want int) error {
	st, err := s.student(id)
	if err != nil {
		return err
	}
	if st.TokensConsumed != want {
		return fmt.Errorf("%s consumed = %d, want %d", id, st.TokensConsumed, want)
	}
	return nil
}

func (s *allocationState) thenEarliestInterview(studentID string) error {
	items, err := s.f.store.ListInterviewsByStudent(context.Background(), studentID)
	if err != nil {
		return err
	}
	if len(items) != 1 {
		return fmt.Errorf("expected one interview for %s, got %d", studentID, len(items))
	}
	grid := s.f.svc.Scheduler.Grid
	first := grid.Times()[0]
	if !items[0].DateTime.Equal(first) || items[0].Room != grid.Rooms[0] {
		return fmt.Errorf("interview at %s %s, want %s %s", items[0].DateTime, items[0].Room, first, grid.Rooms[0])
	}
	return nil
}

func (s *allocationState) thenNoInterview(studentID string) error {
	items, err := s.f.store.ListInterviewsByStudent(context.Background(), studentID)
	if err != nil {
		return err
	}
	if len(items) != 0 {
		return fmt.Errorf("expected no interview for %s, got %d", studentID, len(items))
	}
	return nil
}

func (s *allocationState) thenApplicationStatus(studentID, jobID, want string) error {
	id, ok := s.apps[appKey(studentID, jobID)]
	if !ok {
		return fmt.Errorf("no application of %s to %s", studentID, jobID)
	}
	app, err := s.f.store.GetApplication(context.Background(), id)
	if err != nil {
		return err
	}
	if string(app.Status) != want {
		return fmt.Errorf("application status = %s, want %s", app.Status, want)
	}
	return nil
}
