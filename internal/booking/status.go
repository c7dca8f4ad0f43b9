package booking

import (
	"fmt"
	"strings"
)

// Status identifies where a booking sits in its lifecycle.
type Status string

const (
	// StatusPending is the initial state of every booking.
	StatusPending Status = "pending"
	// StatusApproved marks a booking confirmed by an administrator.
	StatusApproved Status = "approved"
	// StatusRejected marks a booking declined by an administrator. Terminal.
	StatusRejected Status = "rejected"
	// StatusCancelled marks a booking withdrawn by its owner or an
	// administrator. Terminal.
	StatusCancelled Status = "cancelled"
)

// ParseStatus parses a status value received over the wire.
func ParseStatus(value string) (Status, error) {
	switch Status(strings.ToLower(strings.TrimSpace(value))) {
	case StatusPending:
		return StatusPending, nil
	case StatusApproved:
		return StatusApproved, nil
	case StatusRejected:
		return StatusRejected, nil
	case StatusCancelled:
		return StatusCancelled, nil
	}
	return "", fmt.Errorf("booking: unknown status %q", value)
}

// Valid reports whether the status is one of the four known states.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transition is permitted.
func (s Status) Terminal() bool {
	return s == StatusRejected || s == StatusCancelled
}

// Active reports whether the booking counts toward conflict detection.
func (s Status) Active() bool {
	return s == StatusPending || s == StatusApproved
}

// CanTransition reports whether the status machine permits moving from one
// state to another. Approved bookings cannot be rejected; they must be
// cancelled instead.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusApproved || to == StatusRejected || to == StatusCancelled
	case StatusApproved:
		return to == StatusCancelled
	}
	return false
}

// RequiresAdmin reports whether only an administrator may perform the
// transition to the target status.
func RequiresAdmin(to Status) bool {
	return to == StatusApproved || to == StatusRejected
}
