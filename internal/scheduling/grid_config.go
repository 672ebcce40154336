package scheduling

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"placement-backend/internal/placement"
)

// gridFile is the YAML override of the default grid. Omitted fields keep their defaults.
type gridFile struct {
	Zone        string   `yaml:"zone"`
	UTCOffset   string   `yaml:"utc_offset"`
	Venue       string   `yaml:"venue"`
	Days        []string `yaml:"days"`
	DayStart    string   `yaml:"day_start"`
	SlotMinutes int      `yaml:"slot_minutes"`
	SlotsPerDay int      `yaml:"slots_per_day"`
	Rooms       []string `yaml:"rooms"`
}

// LoadGrid returns DefaultGrid when path is empty, otherwise the defaults
// overridden by the YAML file at path.
func LoadGrid(path string) (Grid, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultGrid(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Grid{}, fmt.Errorf("read grid config: %w", err)
	}
	return ParseGrid(data)
}

// ParseGrid applies a YAML override document to DefaultGrid and validates the result.
func ParseGrid(data []byte) (Grid, error) {
	var f gridFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Grid{}, fmt.Errorf("parse grid config: %w", err)
	}

	g := DefaultGrid()
	if f.UTCOffset != "" {
		offset, err := parseOffset(f.UTCOffset)
		if err != nil {
			return Grid{}, err
		}
		name := f.Zone
		if name == "" {
			name = "UTC" + f.UTCOffset
		}
		g.Location = time.FixedZone(name, offset)
		for i, d := range g.Days {
			g.Days[i] = time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, g.Location)
		}
	}
	if f.Venue != "" {
		g.Venue = f.Venue
	}
	if len(f.Days) > 0 {
		g.Days = g.Days[:0]
		for _, raw := range f.Days {
			d, err := time.ParseInLocation(time.DateOnly, raw, g.Location)
			if err != nil {
				return Grid{}, fmt.Errorf("invalid day %q: %w", raw, err)
			}
			g.Days = append(g.Days, d)
		}
	}
	if f.DayStart != "" {
		start, err := parseClock(f.DayStart)
		if err != nil {
			return Grid{}, err
		}
		g.DayStart = start
	}
	if f.SlotMinutes != 0 {
		g.SlotLength = time.Duration(f.SlotMinutes) * time.Minute
	}
	if f.SlotsPerDay != 0 {
		g.SlotsPerDay = f.SlotsPerDay
	}
	if len(f.Rooms) > 0 {
		g.Rooms = make([]placement.Room, 0, len(f.Rooms))
		for _, r := range f.Rooms {
			g.Rooms = append(g.Rooms, placement.Room(strings.TrimSpace(r)))
		}
	}
	if err := g.Validate(); err != nil {
		return Grid{}, fmt.Errorf("grid config: %w", err)
	}
	return g, nil
}

// parseOffset reads "+03:00" style offsets into seconds east of UTC.
func parseOffset(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if len(raw) < 2 || (raw[0] != '+' && raw[0] != '-') {
		return 0, fmt.Errorf("invalid utc_offset %q", raw)
	}
	d, err := parseClock(raw[1:])
	if err != nil {
		return 0, fmt.Errorf("invalid utc_offset %q: %w", raw, err)
	}
	secs := int(d / time.Second)
	if raw[0] == '-' {
		secs = -secs
	}
	return secs, nil
}

// parseClock reads "HH:MM" into a duration since midnight.
func parseClock(raw string) (time.Duration, error) {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid clock %q", raw)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid hour in %q", raw)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid minute in %q", raw)
	}
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute, nil
}
