package interviews

import (
	"context"
	"fmt"
	"time"

	"placement-backend/internal/notifications"
	"placement-backend/internal/placement"
	"placement-backend/internal/shared/telemetry"
)

// Service closes booked interviews. A cancelled interview stops counting
// toward the company quota and frees its grid cell.
type Service struct {
	Store    placement.Store
	Sink     notifications.Sink
	Location *time.Location
	Now      func() time.Time
}

// NewService constructs a Service. Times in notifications are rendered in loc.
func NewService(store placement.Store, sink notifications.Sink, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		Store:    store,
		Sink:     sink,
		Location: loc,
		Now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) ListForStudent(ctx context.Context, studentID string) ([]placement.Interview, error) {
	return s.Store.ListInterviewsByStudent(ctx, studentID)
}

func (s *Service) ListForCompany(ctx context.Context, companyID string) ([]placement.Interview, error) {
	return s.Store.ListInterviewsByCompany(ctx, companyID)
}

// UpdateStatus moves an ACCEPTED interview of the company to COMPLETED or
// CANCELLED. Interviews of other companies read as not found.
func (s *Service) UpdateStatus(ctx context.Context, interviewID, companyID string, status placement.InterviewStatus) (placement.Interview, error) {
	if status != placement.InterviewCompleted && status != placement.InterviewCancelled {
		return placement.Interview{}, fmt.Errorf("interview status %q: %w", status, placement.ErrInvalidStatus)
	}

	var (
		updated placement.Interview
		outbox  notifications.Outbox
	)
	err := s.Store.WithinTx(ctx, func(tx placement.Tx) error {
		if _, err := tx.LockCompany(ctx, companyID, placement.LockUpdate); err != nil {
			return err
		}
		iv, err := tx.LockInterview(ctx, interviewID)
		if err != nil {
			return err
		}
		if iv.CompanyID != companyID {
			return fmt.Errorf("interview %s: %w", interviewID, placement.ErrNotFound)
		}
		if iv.Status != placement.InterviewAccepted {
			return fmt.Errorf("interview %s is %s: %w", interviewID, iv.Status, placement.ErrInterviewClosed)
		}
		if err := tx.SetInterviewStatus(ctx, interviewID, status); err != nil {
			return err
		}
		iv.Status = status
		updated = iv
		if status == placement.InterviewCancelled {
			outbox.Add(notifications.InterviewCancelled(iv.StudentID, iv.Title, iv.DateTime.In(s.Location)))
		}
		return nil
	})
	if err != nil {
		fields := map[string]any{
			"interview_id": interviewID,
			"company_id":   companyID,
			"error":        err.Error(),
		}
		if placement.KindOf(err) == placement.KindInternal {
			telemetry.Error("interview.update_failed", fields)
		} else {
			telemetry.Info("interview.update_failed", fields)
		}
		return placement.Interview{}, err
	}

	telemetry.Info("interview.updated", map[string]any{
		"interview_id": interviewID,
		"company_id":   companyID,
		"status":       string(status),
	})
	outbox.Flush(ctx, s.Sink)
	return updated, nil
}
