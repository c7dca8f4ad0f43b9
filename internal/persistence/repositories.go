package persistence

import (
	"context"
	"time"

	"github.com/example/campus-bookings/internal/booking"
)

// UserRepository exposes CRUD operations for users.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) error
	UpdateUser(ctx context.Context, user User) error
	UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
	// DeleteUser removes a user unless they hold active bookings on or after
	// the reference date, in which case ErrForeignKeyViolation is returned.
	DeleteUser(ctx context.Context, id string, reference time.Time) error
}

// ResourceRepository exposes CRUD operations for resources and their
// availability windows.
type ResourceRepository interface {
	CreateResource(ctx context.Context, resource Resource) error
	UpdateResource(ctx context.Context, resource Resource) error
	GetResource(ctx context.Context, id string) (Resource, error)
	ListResources(ctx context.Context) ([]Resource, error)
	// DeleteResource removes a resource and its availability windows unless
	// active bookings exist on or after the reference date, in which case
	// ErrForeignKeyViolation is returned.
	DeleteResource(ctx context.Context, id string, reference time.Time) error
}

// BookingFilter narrows booking queries. All fields are optional and
// AND-combined.
type BookingFilter struct {
	Date       *time.Time
	ResourceID string
	UserID     string
	Status     *booking.Status
}

// BookingRepository stores reservation rows.
type BookingRepository interface {
	// CreateBooking inserts the booking. The overlap check against active
	// bookings on the same resource and date runs inside the same write
	// transaction as the insert; a lost race surfaces as ErrConflict.
	CreateBooking(ctx context.Context, b Booking) error
	GetBooking(ctx context.Context, id string) (Booking, error)
	UpdateBookingStatus(ctx context.Context, id string, status booking.Status, updatedAt time.Time) error
	// HasOverlap reports whether any active booking on the resource and date
	// overlaps the half-open slot. Advisory; CreateBooking re-checks.
	HasOverlap(ctx context.Context, resourceID string, date time.Time, slot booking.Interval) (bool, error)
	// ListBookings returns matches ordered by date descending, then start
	// time descending, then ID.
	ListBookings(ctx context.Context, filter BookingFilter) ([]Booking, error)
}

// SessionRepository stores authentication session state.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) (Session, error)
	GetSession(ctx context.Context, token string) (Session, error)
	UpdateSession(ctx context.Context, session Session) (Session, error)
	RevokeSession(ctx context.Context, token string, revokedAt time.Time) (Session, error)
	DeleteExpiredSessions(ctx context.Context, reference time.Time) error
}
