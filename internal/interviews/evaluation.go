package interviews

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"placement-backend/internal/placement"
	"placement-backend/internal/shared/telemetry"
)

const (
	MinRating       = 1
	MaxRating       = 10
	MaxCommentRunes = 2000
)

// SaveEvaluation records the company's rating of a student. Only students
// with a COMPLETED interview at the company can be rated; a second call
// replaces the rating and comment.
func (s *Service) SaveEvaluation(ctx context.Context, companyID, studentID string, rating int, comment string) (placement.Evaluation, error) {
	studentID = strings.TrimSpace(studentID)
	comment = strings.TrimSpace(comment)
	if studentID == "" {
		return placement.Evaluation{}, fmt.Errorf("student id is required: %w", placement.ErrInvalidInput)
	}
	if rating < MinRating || rating > MaxRating {
		return placement.Evaluation{}, fmt.Errorf("rating %d outside %d..%d: %w", rating, MinRating, MaxRating, placement.ErrInvalidInput)
	}
	if utf8.RuneCountInString(comment) > MaxCommentRunes {
		return placement.Evaluation{}, fmt.Errorf("comment exceeds %d characters: %w", MaxCommentRunes, placement.ErrInvalidInput)
	}

	now := s.Now()
	ev := placement.Evaluation{
		CompanyID: companyID,
		StudentID: studentID,
		Rating:    rating,
		Comment:   comment,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := s.Store.WithinTx(ctx, func(tx placement.Tx) error {
		if _, err := tx.LockCompany(ctx, companyID, placement.LockUpdate); err != nil {
			return err
		}
		done, err := tx.HasCompletedInterview(ctx, companyID, studentID)
		if err != nil {
			return err
		}
		if !done {
			return fmt.Errorf("student %s has no completed interview with %s: %w", studentID, companyID, placement.ErrForbidden)
		}
		return tx.UpsertEvaluation(ctx, ev)
	})
	if err != nil {
		fields := map[string]any{
			"company_id": companyID,
			"student_id": studentID,
			"error":      err.Error(),
		}
		if placement.KindOf(err) == placement.KindInternal {
			telemetry.Error("evaluation.save_failed", fields)
		} else {
			telemetry.Info("evaluation.save_failed", fields)
		}
		return placement.Evaluation{}, err
	}
	telemetry.Info("evaluation.saved", map[string]any{
		"company_id": companyID,
		"student_id": studentID,
		"rating":     rating,
	})
	return s.Store.GetEvaluation(ctx, companyID, studentID)
}

func (s *Service) GetEvaluation(ctx context.Context, companyID, studentID string) (placement.Evaluation, error) {
	return s.Store.GetEvaluation(ctx, companyID, studentID)
}
