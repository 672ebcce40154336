package scheduling

import (
	"fmt"

	"placement-backend/internal/placement"
)

// FindBestSlot returns the earliest grid time at which neither the company nor
// the student is booked and a room is free, taking rooms in grid order.
// Bookings must exclude cancelled interviews.
func FindBestSlot(grid Grid, bookings []placement.Booking, studentID, companyID string) (Slot, error) {
	companyBusy := make(map[int64]bool)
	studentBusy := make(map[int64]bool)
	used := make(map[int64]map[placement.Room]bool)
	for _, b := range bookings {
		key := slotKey(b)
		if b.CompanyID == companyID {
			companyBusy[key] = true
		}
		if b.StudentID == studentID {
			studentBusy[key] = true
		}
		if used[key] == nil {
			used[key] = make(map[placement.Room]bool)
		}
		used[key][roomOf(b)] = true
	}

	for _, start := range grid.Times() {
		key := start.UnixMilli()
		if companyBusy[key] || studentBusy[key] {
			continue
		}
		for _, room := range grid.Rooms {
			if !used[key][room] {
				return Slot{Start: start, Room: room}, nil
			}
		}
	}
	return Slot{}, fmt.Errorf("%d cells checked: %w", grid.Cells(), placement.ErrNoSlotAvailable)
}

func slotKey(b placement.Booking) int64 {
	return b.DateTime.UnixMilli()
}

// roomOf treats a booking without a room as holding A1.
func roomOf(b placement.Booking) placement.Room {
	if b.Room == "" {
		return placement.RoomA1
	}
	return b.Room
}
