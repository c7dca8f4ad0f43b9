// Package booking holds the domain values of the reservation ledger: times of
// day, half-open slot intervals, and the booking status machine. It has no
// dependencies and performs no I/O.
package booking

import (
	"fmt"
	"strings"
)

// TimeOfDay is a wall-clock time expressed as minutes since midnight.
type TimeOfDay int

// MinutesPerDay bounds the valid TimeOfDay range. A closing time of exactly
// 24:00 is permitted so a window can run to end of day.
const MinutesPerDay = 24 * 60

// ParseTimeOfDay parses an "HH:MM" value.
func ParseTimeOfDay(value string) (TimeOfDay, error) {
	value = strings.TrimSpace(value)
	var hours, minutes int
	if _, err := fmt.Sscanf(value, "%2d:%2d", &hours, &minutes); err != nil {
		return 0, fmt.Errorf("booking: invalid time of day %q", value)
	}
	if hours < 0 || hours > 24 || minutes < 0 || minutes > 59 || (hours == 24 && minutes != 0) {
		return 0, fmt.Errorf("booking: invalid time of day %q", value)
	}
	return TimeOfDay(hours*60 + minutes), nil
}

// Valid reports whether the value falls within a single day.
func (t TimeOfDay) Valid() bool {
	return t >= 0 && t <= MinutesPerDay
}

// String renders the value as "HH:MM".
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// Interval is a half-open [Start, End) slot within a single day.
type Interval struct {
	Start TimeOfDay
	End   TimeOfDay
}

// Valid reports whether the interval is well-formed: both bounds inside a
// single day and Start strictly before End.
func (i Interval) Valid() bool {
	return i.Start.Valid() && i.End.Valid() && i.Start < i.End
}

// Overlaps reports whether two half-open intervals share any instant.
// Touching intervals ([9:00,10:00) and [10:00,11:00)) do not overlap.
func (i Interval) Overlaps(other Interval) bool {
	return i.Start < other.End && other.Start < i.End
}

// Within reports whether the interval lies entirely inside outer.
func (i Interval) Within(outer Interval) bool {
	return outer.Start <= i.Start && i.End <= outer.End
}
