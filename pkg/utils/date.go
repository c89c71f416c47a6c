package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const DefaultTimezone = "Asia/Ho_Chi_Minh"

// LoadLocation resolves an IANA zone name; an empty name is the market default.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		name = DefaultTimezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("failed to load location %q: %w", name, err)
	}
	return loc, nil
}

// ParseClock parses "HH:MM", "HH:MM:SS" or "HHMMSS" into seconds since midnight.
func ParseClock(s string) (int, error) {
	s = strings.TrimSpace(s)
	if len(s) == 6 && !strings.Contains(s, ":") {
		s = s[0:2] + ":" + s[2:4] + ":" + s[4:6]
	}

	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}

	limits := []int{23, 59, 59}
	units := []int{3600, 60, 1}
	total := 0
	for i, part := range parts {
		v, err := strconv.Atoi(part)
		if err != nil || v < 0 || v > limits[i] {
			return 0, fmt.Errorf("invalid time of day %q", s)
		}
		total += v * units[i]
	}
	return total, nil
}

// SecondsOfDay returns the wall-clock offset of t from midnight in loc.
func SecondsOfDay(t time.Time, loc *time.Location) int {
	t = t.In(loc)
	return t.Hour()*3600 + t.Minute()*60 + t.Second()
}

// DayKey identifies the calendar day of t in loc, e.g. "2024-03-01".
func DayKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(time.DateOnly)
}

func PrettyDate(date time.Time) string {
	return date.Format("02 Jan 2006 - 15:04 MST")
}
