package persistence

import (
	"time"

	"github.com/example/campus-bookings/internal/booking"
)

// User represents a campus account as stored.
type User struct {
	ID           string
	Email        string
	DisplayName  string
	Role         string
	StudentID    *string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AvailabilityWindow is one open interval of a resource's weekly schedule.
type AvailabilityWindow struct {
	Weekday time.Weekday
	Open    booking.TimeOfDay
	Close   booking.TimeOfDay
}

// Resource represents a bookable room or piece of equipment. Capacity is nil
// when unknown. Hours holds the weekly availability windows, non-overlapping
// per weekday.
type Resource struct {
	ID        string
	Name      string
	Category  string
	Location  string
	Capacity  *int
	Status    string
	Hours     []AvailabilityWindow
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Booking represents a reservation row. Date is a civil date at midnight UTC;
// Start and End are minutes within that date. Rows are never deleted, only
// transitioned through Status.
type Booking struct {
	ID         string
	ResourceID string
	UserID     string
	Date       time.Time
	Start      booking.TimeOfDay
	End        booking.TimeOfDay
	Status     booking.Status
	Title      *string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Session represents an authentication session persisted for a user.
type Session struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
	RevokedAt *time.Time
}
