package scheduling

import (
	"context"
	"fmt"

	"placement-backend/internal/placement"
)

// Scheduler assigns interview slots inside the caller's transaction.
type Scheduler struct {
	Grid Grid
}

// NewScheduler constructs a Scheduler over grid.
func NewScheduler(grid Grid) *Scheduler {
	return &Scheduler{Grid: grid}
}

// Assign serializes on the grid lock, reads every non-cancelled booking and
// returns the best slot for the pair.
func (s *Scheduler) Assign(ctx context.Context, tx placement.Tx, studentID, companyID string) (Slot, error) {
	if err := tx.LockGrid(ctx); err != nil {
		return Slot{}, fmt.Errorf("lock grid: %w", err)
	}
	bookings, err := tx.ListBookings(ctx)
	if err != nil {
		return Slot{}, fmt.Errorf("list bookings: %w", err)
	}
	return FindBestSlot(s.Grid, bookings, studentID, companyID)
}
