package applications

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"placement-backend/internal/notifications"
	"placement-backend/internal/placement"
	"placement-backend/internal/quota"
	"placement-backend/internal/scheduling"
	"placement-backend/internal/shared/metrics"
	"placement-backend/internal/shared/telemetry"
	"placement-backend/internal/tokens"
)

// MaxCoverLetterRunes bounds the cover letter attached to an application.
const MaxCoverLetterRunes = 5000

// Service runs the application lifecycle. Every mutation is one store
// transaction; notifications go out only after it commits.
type Service struct {
	Store     placement.Store
	Scheduler *scheduling.Scheduler
	Sink      notifications.Sink
	Now       func() time.Time
	NewID     func() string
}

// NewService constructs a Service with wall-clock time and random ids.
func NewService(store placement.Store, scheduler *scheduling.Scheduler, sink notifications.Sink) *Service {
	return &Service{
		Store:     store,
		Scheduler: scheduler,
		Sink:      sink,
		Now:       func() time.Time { return time.Now().UTC() },
		NewID:     uuid.NewString,
	}
}

// ApplyResult is returned by a successful Apply.
type ApplyResult struct {
	ApplicationID   string `json:"applicationId"`
	Status          string `json:"status"`
	TokensRemaining int    `json:"tokensRemaining"`
}

// DecisionResult is returned by UpdateStatus.
type DecisionResult struct {
	Success       bool                        `json:"success"`
	ApplicationID string                      `json:"applicationId"`
	Status        placement.ApplicationStatus `json:"status"`
	Interview     *placement.Interview        `json:"interview,omitempty"`
	Cascaded      []string                    `json:"cascadedApplicationIds,omitempty"`
}

// InviteResult is returned by Invite.
type InviteResult struct {
	ApplicationID string              `json:"applicationId"`
	Interview     placement.Interview `json:"interview"`
	Cascaded      []string            `json:"cascadedApplicationIds,omitempty"`
}

// Apply engages one of the student's tokens on a new PENDING application.
func (s *Service) Apply(ctx context.Context, studentID, jobID, coverLetter string) (ApplyResult, error) {
	studentID = strings.TrimSpace(studentID)
	jobID = strings.TrimSpace(jobID)
	if studentID == "" || jobID == "" {
		return ApplyResult{}, fmt.Errorf("student and job are required: %w", placement.ErrInvalidInput)
	}
	if utf8.RuneCountInString(coverLetter) > MaxCoverLetterRunes {
		return ApplyResult{}, fmt.Errorf("cover letter exceeds %d characters: %w", MaxCoverLetterRunes, placement.ErrInvalidInput)
	}

	var (
		result ApplyResult
		outbox notifications.Outbox
	)
	now := s.Now()
	err := s.Store.WithinTx(ctx, func(tx placement.Tx) error {
		job, err := tx.GetJob(ctx, jobID)
		if err != nil {
			return err
		}
		company, err := tx.LockCompany(ctx, job.CompanyID, placement.LockShare)
		if err != nil {
			return err
		}
		// Job edits hold the company lock, so this read is current.
		if job, err = tx.GetJob(ctx, jobID); err != nil {
			return err
		}
		if !job.IsActive {
			return fmt.Errorf("job %s: %w", jobID, placement.ErrJobInactive)
		}
		if _, err := quota.Admit(ctx, tx, company); err != nil {
			return err
		}
		if _, found, err := tx.FindApplication(ctx, studentID, jobID); err != nil {
			return err
		} else if found {
			return fmt.Errorf("student %s job %s: %w", studentID, jobID, placement.ErrDuplicateApplication)
		}
		student, err := tokens.Reserve(ctx, tx, studentID)
		if err != nil {
			return err
		}
		app := placement.Application{
			ID:          s.NewID(),
			JobID:       jobID,
			StudentID:   studentID,
			Status:      placement.StatusPending,
			CoverLetter: coverLetter,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := tx.InsertApplication(ctx, app); err != nil {
			return err
		}
		outbox.Add(notifications.NewApplication(job.CompanyID, job.Title))
		result = ApplyResult{ApplicationID: app.ID, Status: "APPLIED", TokensRemaining: student.TokensRemaining}
		return nil
	})
	if err != nil {
		s.observeFailure("application.apply_failed", err, map[string]any{"student_id": studentID, "job_id": jobID})
		return ApplyResult{}, err
	}

	metrics.IncApplicationSubmitted()
	telemetry.Info("application.submitted", map[string]any{
		"application_id":   result.ApplicationID,
		"student_id":       studentID,
		"job_id":           jobID,
		"tokens_remaining": result.TokensRemaining,
	})
	outbox.Flush(ctx, s.Sink)
	return result, nil
}

// Withdraw cancels the student's own PENDING application and refunds its token.
// Any other status, or another student's application, reads as not found.
func (s *Service) Withdraw(ctx context.Context, applicationID, studentID string) error {
	now := s.Now()
	err := s.Store.WithinTx(ctx, func(tx placement.Tx) error {
		app, err := tx.LockApplication(ctx, applicationID)
		if err != nil {
			return err
		}
		if app.StudentID != studentID || app.Status != placement.StatusPending {
			return fmt.Errorf("no pending application %s for student %s: %w", applicationID, studentID, placement.ErrNotFound)
		}
		if _, err := tokens.RefundAvailable(ctx, tx, studentID); err != nil {
			return err
		}
		return tx.SetApplicationStatus(ctx, applicationID, placement.StatusCancelled, now)
	})
	if err != nil {
		s.observeFailure("application.withdraw_failed", err, map[string]any{"application_id": applicationID, "student_id": studentID})
		return err
	}
	metrics.IncApplicationWithdrawn()
	telemetry.Info("application.withdrawn", map[string]any{"application_id": applicationID, "student_id": studentID})
	return nil
}

// UpdateStatus records the company's decision on a PENDING application.
// ACCEPTED books an interview and may cascade; any other decision releases
// the student's engaged token.
func (s *Service) UpdateStatus(ctx context.Context, applicationID, companyID string, newStatus placement.ApplicationStatus) (DecisionResult, error) {
	if !newStatus.Known() || newStatus == placement.StatusPending {
		return DecisionResult{}, fmt.Errorf("status %q: %w", newStatus, placement.ErrInvalidStatus)
	}

	var (
		result DecisionResult
		outbox notifications.Outbox
	)
	start := metrics.NowMillis()
	now := s.Now()
	err := s.Store.WithinTx(ctx, func(tx placement.Tx) error {
		company, err := tx.LockCompany(ctx, companyID, placement.LockUpdate)
		if err != nil {
			return err
		}
		app, err := tx.LockApplication(ctx, applicationID)
		if err != nil {
			return err
		}
		job, err := tx.GetJob(ctx, app.JobID)
		if err != nil {
			return err
		}
		if job.CompanyID != companyID {
			return fmt.Errorf("application %s belongs to another company: %w", applicationID, placement.ErrForbidden)
		}
		if app.Status != placement.StatusPending {
			return fmt.Errorf("application %s is %s: %w", applicationID, app.Status, placement.ErrApplicationClosed)
		}

		batch := tokens.NewBatch()
		result = DecisionResult{Success: true, ApplicationID: app.ID, Status: newStatus}
		if newStatus == placement.StatusAccepted {
			batch.Add(app.StudentID, tokens.MoveAccept)
			if err := tx.SetApplicationStatus(ctx, app.ID, placement.StatusAccepted, now); err != nil {
				return err
			}
			booked, err := s.book(ctx, tx, company, job, app.StudentID, app.ID, now, batch, &outbox)
			if err != nil {
				return err
			}
			result.Interview = &booked.interview
			result.Cascaded = booked.cascaded
			outbox.Add(notifications.InterviewAccepted(app.StudentID, booked.interview.DateTime, string(booked.interview.Room), s.Scheduler.Grid.Venue))
		} else {
			batch.Add(app.StudentID, tokens.MoveRelease)
			if err := tx.SetApplicationStatus(ctx, app.ID, newStatus, now); err != nil {
				return err
			}
			outbox.Add(decisionMessage(app.StudentID, job.Title, newStatus))
		}
		return batch.Apply(ctx, tx)
	})
	if err != nil {
		s.observeFailure("application.decision_failed", err, map[string]any{
			"application_id": applicationID,
			"company_id":     companyID,
			"status":         string(newStatus),
		})
		return DecisionResult{}, err
	}

	fields := map[string]any{
		"application_id": applicationID,
		"company_id":     companyID,
		"status":         string(newStatus),
	}
	if result.Interview != nil {
		metrics.IncAccept()
		metrics.ObserveAcceptDurationMs(metrics.NowMillis() - start)
		fields["interview_id"] = result.Interview.ID
		fields["room"] = string(result.Interview.Room)
		fields["date_time"] = result.Interview.DateTime.Format(time.RFC3339)
		fields["cascaded"] = len(result.Cascaded)
	}
	telemetry.Info("application.decided", fields)
	outbox.Flush(ctx, s.Sink)
	return result, nil
}

// Invite books an interview for a student who never applied. The application
// is created ACCEPTED and no token is engaged.
func (s *Service) Invite(ctx context.Context, companyID, studentID, jobID string) (InviteResult, error) {
	studentID = strings.TrimSpace(studentID)
	jobID = strings.TrimSpace(jobID)
	if studentID == "" || jobID == "" {
		return InviteResult{}, fmt.Errorf("student and job are required: %w", placement.ErrInvalidInput)
	}
	// Students are never deleted here, so an unlocked existence check is enough
	// and keeps the student lock after the application locks.
	if _, err := s.Store.GetStudent(ctx, studentID); err != nil {
		return InviteResult{}, err
	}

	var (
		result InviteResult
		outbox notifications.Outbox
	)
	start := metrics.NowMillis()
	now := s.Now()
	err := s.Store.WithinTx(ctx, func(tx placement.Tx) error {
		company, err := tx.LockCompany(ctx, companyID, placement.LockUpdate)
		if err != nil {
			return err
		}
		job, err := tx.GetJob(ctx, jobID)
		if err != nil {
			return err
		}
		if job.CompanyID != companyID {
			return fmt.Errorf("job %s belongs to another company: %w", jobID, placement.ErrForbidden)
		}
		if !job.IsActive {
			return fmt.Errorf("job %s: %w", jobID, placement.ErrJobInactive)
		}
		if _, found, err := tx.FindApplication(ctx, studentID, jobID); err != nil {
			return err
		} else if found {
			return fmt.Errorf("student %s job %s: %w", studentID, jobID, placement.ErrDuplicateApplication)
		}

		app := placement.Application{
			ID:        s.NewID(),
			JobID:     jobID,
			StudentID: studentID,
			Status:    placement.StatusAccepted,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := tx.InsertApplication(ctx, app); err != nil {
			return err
		}
		batch := tokens.NewBatch()
		booked, err := s.book(ctx, tx, company, job, studentID, app.ID, now, batch, &outbox)
		if err != nil {
			return err
		}
		result = InviteResult{ApplicationID: app.ID, Interview: booked.interview, Cascaded: booked.cascaded}
		outbox.Add(notifications.Invitation(studentID, job.Title, booked.interview.DateTime, string(booked.interview.Room), s.Scheduler.Grid.Venue))
		return batch.Apply(ctx, tx)
	})
	if err != nil {
		s.observeFailure("application.invite_failed", err, map[string]any{
			"company_id": companyID,
			"student_id": studentID,
			"job_id":     jobID,
		})
		return InviteResult{}, err
	}

	metrics.IncAccept()
	metrics.ObserveAcceptDurationMs(metrics.NowMillis() - start)
	telemetry.Info("application.invited", map[string]any{
		"application_id": result.ApplicationID,
		"interview_id":   result.Interview.ID,
		"company_id":     companyID,
		"student_id":     studentID,
		"cascaded":       len(result.Cascaded),
	})
	outbox.Flush(ctx, s.Sink)
	return result, nil
}

type booking struct {
	interview placement.Interview
	cascaded  []string
}

// book takes a quota seat, assigns a slot and inserts the interview for an
// accepted application. When the seat was the last one, every other PENDING
// application of the company is closed and its release queued on batch.
func (s *Service) book(ctx context.Context, tx placement.Tx, company placement.Company, job placement.Job,
	studentID, applicationID string, now time.Time, batch *tokens.Batch, outbox *notifications.Outbox) (booking, error) {
	used, err := quota.Admit(ctx, tx, company)
	if err != nil {
		return booking{}, err
	}
	slot, err := s.Scheduler.Assign(ctx, tx, studentID, company.ID)
	if err != nil {
		return booking{}, err
	}
	interview := placement.Interview{
		ID:            s.NewID(),
		CompanyID:     company.ID,
		StudentID:     studentID,
		ApplicationID: applicationID,
		Title:         "Interview: " + job.Title,
		DateTime:      slot.Start,
		Room:          slot.Room,
		Status:        placement.InterviewAccepted,
		CreatedAt:     now,
	}
	if err := tx.InsertInterview(ctx, interview); err != nil {
		return booking{}, err
	}

	out := booking{interview: interview}
	if !quota.Saturated(used+1, company.InterviewQuota) {
		return out, nil
	}
	closed, err := quota.Cascade(ctx, tx, company.ID, applicationID, now, batch)
	if err != nil {
		return booking{}, err
	}
	for _, c := range closed {
		out.cascaded = append(out.cascaded, c.ApplicationID)
		outbox.Add(notifications.QuotaReached(c.StudentID))
	}
	metrics.AddCascade(len(closed))
	telemetry.Info("quota.cascade", map[string]any{
		"company_id":     company.ID,
		"application_id": applicationID,
		"closed":         len(closed),
	})
	return out, nil
}

func decisionMessage(studentID, jobTitle string, status placement.ApplicationStatus) notifications.Message {
	switch status {
	case placement.StatusRejectedQuota:
		return notifications.QuotaReached(studentID)
	case placement.StatusCancelled, placement.StatusCancelledQuota:
		return notifications.ApplicationCancelled(studentID, jobTitle)
	default:
		return notifications.ApplicationRejected(studentID, jobTitle)
	}
}

// observeFailure counts and logs a failed mutation. Business rejections are
// logged at info; anything unclassified is an error.
func (s *Service) observeFailure(event string, err error, fields map[string]any) {
	switch {
	case errors.Is(err, placement.ErrQuotaExceeded):
		metrics.IncQuotaRejection()
	case errors.Is(err, placement.ErrNoSlotAvailable):
		metrics.IncNoSlot()
	}
	fields["error"] = err.Error()
	fields["kind"] = placement.KindOf(err).String()
	if placement.KindOf(err) == placement.KindInternal {
		telemetry.Error(event, fields)
		return
	}
	telemetry.Info(event, fields)
}

// ListForStudent returns the student's applications, newest first.
func (s *Service) ListForStudent(ctx context.Context, studentID string) ([]placement.ApplicationSummary, error) {
	return s.Store.ListApplicationsByStudent(ctx, studentID)
}

// ListForCompany returns applications on every job of the company, newest first.
func (s *Service) ListForCompany(ctx context.Context, companyID string) ([]placement.ApplicationSummary, error) {
	return s.Store.ListApplicationsByCompany(ctx, companyID)
}

// Balance returns the student's token ledger.
func (s *Service) Balance(ctx context.Context, studentID string) (tokens.Balance, error) {
	return tokens.GetBalance(ctx, s.Store, studentID)
}
