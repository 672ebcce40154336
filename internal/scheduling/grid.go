package scheduling

import (
	"errors"
	"fmt"
	"time"

	"placement-backend/internal/placement"
)

// Grid is the fixed interview calendar: days crossed with equal slots and rooms.
type Grid struct {
	// Days holds each interview day at midnight in Location, in chronological order.
	Days        []time.Time
	DayStart    time.Duration
	SlotLength  time.Duration
	SlotsPerDay int
	// Rooms are tried in order at each time.
	Rooms    []placement.Room
	Location *time.Location
	Venue    string
}

// Slot is one assigned (time, room) cell.
type Slot struct {
	Start time.Time      `json:"start"`
	Room  placement.Room `json:"room"`
}

// campusZone is the Djibouti local time of the Balbala campus (UTC+3, no DST).
var campusZone = time.FixedZone("EAT", 3*60*60)

// DefaultGrid is the campus week: Jan 11-15 2026, seven 30-minute slots from
// 08:30 (the last starts 11:30), rooms A1 then A2.
func DefaultGrid() Grid {
	days := make([]time.Time, 0, 5)
	for d := 11; d <= 15; d++ {
		days = append(days, time.Date(2026, time.January, d, 0, 0, 0, 0, campusZone))
	}
	return Grid{
		Days:        days,
		DayStart:    8*time.Hour + 30*time.Minute,
		SlotLength:  30 * time.Minute,
		SlotsPerDay: 7,
		Rooms:       []placement.Room{placement.RoomA1, placement.RoomA2},
		Location:    campusZone,
		Venue:       "Balbala Campus",
	}
}

// Times lists every slot start in chronological order.
func (g Grid) Times() []time.Time {
	out := make([]time.Time, 0, len(g.Days)*g.SlotsPerDay)
	for _, day := range g.Days {
		base := day.Add(g.DayStart)
		for i := 0; i < g.SlotsPerDay; i++ {
			out = append(out, base.Add(time.Duration(i)*g.SlotLength))
		}
	}
	return out
}

// Cells is the number of (time, room) cells in the grid.
func (g Grid) Cells() int {
	return len(g.Days) * g.SlotsPerDay * len(g.Rooms)
}

// Validate checks the grid is well formed.
func (g Grid) Validate() error {
	if len(g.Days) == 0 {
		return errors.New("grid has no days")
	}
	for i := 1; i < len(g.Days); i++ {
		if !g.Days[i].After(g.Days[i-1]) {
			return fmt.Errorf("grid days out of order at %s", g.Days[i].Format(time.DateOnly))
		}
	}
	if g.SlotLength <= 0 {
		return errors.New("slot length must be positive")
	}
	if g.SlotsPerDay <= 0 {
		return errors.New("slots per day must be positive")
	}
	if g.DayStart < 0 || g.DayStart+time.Duration(g.SlotsPerDay)*g.SlotLength > 24*time.Hour {
		return errors.New("daily window must fit within one day")
	}
	if len(g.Rooms) == 0 {
		return errors.New("grid has no rooms")
	}
	seen := make(map[placement.Room]bool, len(g.Rooms))
	for _, r := range g.Rooms {
		if r != placement.RoomA1 && r != placement.RoomA2 {
			return fmt.Errorf("unknown room %q", r)
		}
		if seen[r] {
			return fmt.Errorf("duplicate room %q", r)
		}
		seen[r] = true
	}
	if g.Location == nil {
		return errors.New("grid location is required")
	}
	return nil
}
