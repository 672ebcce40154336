package jobs

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"placement-backend/internal/placement"
	"placement-backend/internal/shared/telemetry"
)

const (
	MaxTitleRunes       = 200
	MaxDescriptionRunes = 5000
	DefaultRecentLimit  = 6
	MaxRecentLimit      = 50
)

// Service manages company job postings and student bookmarks.
type Service struct {
	Store placement.Store
	Now   func() time.Time
	NewID func() string
}

// NewService constructs a Service with wall-clock time and random ids.
func NewService(store placement.Store) *Service {
	return &Service{
		Store: store,
		Now:   func() time.Time { return time.Now().UTC() },
		NewID: uuid.NewString,
	}
}

// Input carries the editable fields of a job. A nil IsActive keeps the
// current value on update and means active on create.
type Input struct {
	Title       string
	Description string
	Location    string
	IsActive    *bool
}

func (in Input) normalize() (Input, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Location = strings.TrimSpace(in.Location)
	if in.Title == "" {
		return in, fmt.Errorf("title is required: %w", placement.ErrInvalidInput)
	}
	if utf8.RuneCountInString(in.Title) > MaxTitleRunes {
		return in, fmt.Errorf("title exceeds %d characters: %w", MaxTitleRunes, placement.ErrInvalidInput)
	}
	if utf8.RuneCountInString(in.Description) > MaxDescriptionRunes {
		return in, fmt.Errorf("description exceeds %d characters: %w", MaxDescriptionRunes, placement.ErrInvalidInput)
	}
	return in, nil
}

// Create posts a new job for the company.
func (s *Service) Create(ctx context.Context, companyID string, in Input) (placement.Job, error) {
	in, err := in.normalize()
	if err != nil {
		return placement.Job{}, err
	}
	job := placement.Job{
		ID:          s.NewID(),
		CompanyID:   companyID,
		Title:       in.Title,
		Description: in.Description,
		Location:    in.Location,
		IsActive:    in.IsActive == nil || *in.IsActive,
		CreatedAt:   s.Now(),
	}
	err = s.Store.WithinTx(ctx, func(tx placement.Tx) error {
		if _, err := tx.LockCompany(ctx, companyID, placement.LockShare); err != nil {
			return err
		}
		return tx.InsertJob(ctx, job)
	})
	if err != nil {
		logFailure("job.create_failed", err, map[string]any{"company_id": companyID})
		return placement.Job{}, err
	}
	telemetry.Info("job.created", map[string]any{"job_id": job.ID, "company_id": companyID})
	return job, nil
}

// Update replaces the job's fields. Jobs of other companies are forbidden.
func (s *Service) Update(ctx context.Context, companyID, jobID string, in Input) (placement.Job, error) {
	in, err := in.normalize()
	if err != nil {
		return placement.Job{}, err
	}
	return s.edit(ctx, companyID, jobID, func(job *placement.Job) {
		job.Title = in.Title
		job.Description = in.Description
		job.Location = in.Location
		if in.IsActive != nil {
			job.IsActive = *in.IsActive
		}
	})
}

// Deactivate closes the job to new applications. PENDING applications stay
// open for the company to decide.
func (s *Service) Deactivate(ctx context.Context, companyID, jobID string) (placement.Job, error) {
	return s.edit(ctx, companyID, jobID, func(job *placement.Job) {
		job.IsActive = false
	})
}

// edit holds the company row exclusively so no Apply on the job interleaves.
func (s *Service) edit(ctx context.Context, companyID, jobID string, change func(*placement.Job)) (placement.Job, error) {
	var updated placement.Job
	err := s.Store.WithinTx(ctx, func(tx placement.Tx) error {
		if _, err := tx.LockCompany(ctx, companyID, placement.LockUpdate); err != nil {
			return err
		}
		job, err := tx.LockJob(ctx, jobID)
		if err != nil {
			return err
		}
		if job.CompanyID != companyID {
			return fmt.Errorf("job %s belongs to another company: %w", jobID, placement.ErrForbidden)
		}
		change(&job)
		if err := tx.UpdateJob(ctx, job); err != nil {
			return err
		}
		updated = job
		return nil
	})
	if err != nil {
		logFailure("job.update_failed", err, map[string]any{"company_id": companyID, "job_id": jobID})
		return placement.Job{}, err
	}
	telemetry.Info("job.updated", map[string]any{
		"job_id":     jobID,
		"company_id": companyID,
		"is_active":  updated.IsActive,
	})
	return updated, nil
}

func (s *Service) ListForCompany(ctx context.Context, companyID string) ([]placement.Job, error) {
	return s.Store.ListJobsByCompany(ctx, companyID)
}

// ListActiveByCompany is the student view of one company's openings.
func (s *Service) ListActiveByCompany(ctx context.Context, companyID string) ([]placement.Job, error) {
	items, err := s.Store.ListJobsByCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	out := make([]placement.Job, 0, len(items))
	for _, j := range items {
		if j.IsActive {
			out = append(out, j)
		}
	}
	return out, nil
}

// ListRecent returns the newest active jobs. limit is clamped to [1, MaxRecentLimit].
func (s *Service) ListRecent(ctx context.Context, limit int) ([]placement.Job, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	if limit > MaxRecentLimit {
		limit = MaxRecentLimit
	}
	return s.Store.ListActiveJobs(ctx, limit)
}

// ToggleSaved bookmarks the job for the student, or removes an existing
// bookmark. Only active jobs can be newly saved.
func (s *Service) ToggleSaved(ctx context.Context, studentID, jobID string) (bool, error) {
	var saved bool
	err := s.Store.WithinTx(ctx, func(tx placement.Tx) error {
		job, err := tx.GetJob(ctx, jobID)
		if err != nil {
			return err
		}
		removed, err := tx.DeleteSavedJob(ctx, studentID, jobID)
		if err != nil {
			return err
		}
		if removed {
			saved = false
			return nil
		}
		if !job.IsActive {
			return fmt.Errorf("job %s: %w", jobID, placement.ErrJobInactive)
		}
		saved = true
		return tx.InsertSavedJob(ctx, studentID, jobID, s.Now())
	})
	if err != nil {
		logFailure("job.save_failed", err, map[string]any{"student_id": studentID, "job_id": jobID})
		return false, err
	}
	return saved, nil
}

func (s *Service) ListSaved(ctx context.Context, studentID string) ([]placement.SavedJob, error) {
	return s.Store.ListSavedJobs(ctx, studentID)
}

func logFailure(event string, err error, fields map[string]any) {
	fields["error"] = err.Error()
	if placement.KindOf(err) == placement.KindInternal {
		telemetry.Error(event, fields)
		return
	}
	telemetry.Info(event, fields)
}
