package quota

import (
	"context"
	"fmt"
	"time"

	"placement-backend/internal/placement"
	"placement-backend/internal/tokens"
)

// Closed identifies an application force-closed by a saturation cascade.
type Closed struct {
	ApplicationID string
	StudentID     string
	JobID         string
}

// Usage counts the company's ACCEPTED and COMPLETED interviews.
func Usage(ctx context.Context, tx placement.Tx, companyID string) (int, error) {
	n, err := tx.CountActiveInterviews(ctx, companyID)
	if err != nil {
		return 0, fmt.Errorf("count interviews for %s: %w", companyID, err)
	}
	return n, nil
}

// Admit returns the company's current usage, or ErrQuotaExceeded when no seat
// is left. The caller must hold the company row lock.
func Admit(ctx context.Context, tx placement.Tx, company placement.Company) (int, error) {
	used, err := Usage(ctx, tx, company.ID)
	if err != nil {
		return 0, err
	}
	if used >= company.InterviewQuota {
		return used, fmt.Errorf("company %s uses %d of %d seats: %w", company.ID, used, company.InterviewQuota, placement.ErrQuotaExceeded)
	}
	return used, nil
}

// Saturated reports whether usage has reached the quota ceiling.
func Saturated(usage, quota int) bool {
	return usage >= quota
}

// Cascade closes every other PENDING application of the company as REJECTED_QUOTA
// and queues the release of each engaged token on batch.
func Cascade(ctx context.Context, tx placement.Tx, companyID, exceptApplicationID string, at time.Time, batch *tokens.Batch) ([]Closed, error) {
	pending, err := tx.LockPendingForCompany(ctx, companyID, exceptApplicationID)
	if err != nil {
		return nil, fmt.Errorf("lock pending for %s: %w", companyID, err)
	}
	closed := make([]Closed, 0, len(pending))
	for _, app := range pending {
		if err := tx.SetApplicationStatus(ctx, app.ID, placement.StatusRejectedQuota, at); err != nil {
			return nil, err
		}
		batch.Add(app.StudentID, tokens.MoveRelease)
		closed = append(closed, Closed{ApplicationID: app.ID, StudentID: app.StudentID, JobID: app.JobID})
	}
	return closed, nil
}
