package application

import (
	"fmt"
	"strings"
	"time"

	"github.com/example/campus-bookings/internal/booking"
)

// Role classifies a campus account for authorization decisions.
type Role string

const (
	RoleStudent Role = "student"
	RoleFaculty Role = "faculty"
	RoleAdmin   Role = "admin"
)

// ParseRole parses a role value received over the wire.
func ParseRole(value string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(value))) {
	case RoleStudent:
		return RoleStudent, nil
	case RoleFaculty:
		return RoleFaculty, nil
	case RoleAdmin:
		return RoleAdmin, nil
	}
	return "", fmt.Errorf("application: unknown role %q", value)
}

// Valid reports whether the role is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleFaculty, RoleAdmin:
		return true
	}
	return false
}

// Principal represents the authenticated identity invoking a service method.
// Every service call receives it explicitly; there is no ambient
// request-scoped identity.
type Principal struct {
	UserID string
	Role   Role
}

// Authenticated reports whether the principal carries a resolved identity.
func (p Principal) Authenticated() bool {
	return p.UserID != ""
}

// IsAdmin reports whether the principal may perform administrative actions.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// ResourceStatus is the operating status of a resource.
type ResourceStatus string

const (
	ResourceAvailable   ResourceStatus = "available"
	ResourceBlocked     ResourceStatus = "blocked"
	ResourceMaintenance ResourceStatus = "maintenance"
)

// Valid reports whether the status is one of the known states.
func (s ResourceStatus) Valid() bool {
	switch s {
	case ResourceAvailable, ResourceBlocked, ResourceMaintenance:
		return true
	}
	return false
}

// AvailabilityWindow is one open interval of a resource's weekly schedule.
type AvailabilityWindow struct {
	Weekday time.Weekday
	Open    booking.TimeOfDay
	Close   booking.TimeOfDay
}

// Interval converts the window to a comparable slot interval.
func (w AvailabilityWindow) Interval() booking.Interval {
	return booking.Interval{Start: w.Open, End: w.Close}
}

// ResourceInput captures caller provided resource fields.
type ResourceInput struct {
	Name     string
	Category string
	Location string
	Capacity *int
	Status   ResourceStatus
	Hours    []AvailabilityWindow
}

// Resource represents a bookable room or piece of equipment.
type Resource struct {
	ID        string
	Name      string
	Category  string
	Location  string
	Capacity  *int
	Status    ResourceStatus
	Hours     []AvailabilityWindow
	CreatedAt time.Time
	UpdatedAt time.Time
}

// WithinAvailability reports whether the slot lies entirely inside one of
// the resource's availability windows for the date's weekday.
func (r Resource) WithinAvailability(date time.Time, slot booking.Interval) bool {
	weekday := date.UTC().Weekday()
	for _, window := range r.Hours {
		if window.Weekday != weekday {
			continue
		}
		if slot.Within(window.Interval()) {
			return true
		}
	}
	return false
}

// CreateResourceParams wraps the data required to create a resource.
type CreateResourceParams struct {
	Principal Principal
	Input     ResourceInput
}

// UpdateResourceParams wraps the data required to update a resource.
type UpdateResourceParams struct {
	Principal  Principal
	ResourceID string
	Input      ResourceInput
}

// UserInput captures caller provided user attributes for administrative
// user management.
type UserInput struct {
	Email       string
	DisplayName string
	Role        Role
	StudentID   *string
	Password    string
}

// RegisterInput captures the self-registration fields. Registered accounts
// always receive the student role.
type RegisterInput struct {
	Email       string
	DisplayName string
	StudentID   *string
	Password    string
}

// User represents a campus account exposed by the application services.
type User struct {
	ID          string
	Email       string
	DisplayName string
	Role        Role
	StudentID   *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// UserCredentials models the authentication attributes persisted for a user.
type UserCredentials struct {
	User         User
	PasswordHash string
}

// CreateUserParams wraps the data required for an administrator to create a
// user.
type CreateUserParams struct {
	Principal Principal
	Input     UserInput
}

// UpdateUserParams wraps the data required to update a user.
type UpdateUserParams struct {
	Principal Principal
	UserID    string
	Input     UserInput
}

// ChangePasswordParams wraps the data required to change a password. The
// current password is verified unless an administrator acts on another
// account.
type ChangePasswordParams struct {
	Principal       Principal
	UserID          string
	CurrentPassword string
	NewPassword     string
}

// BookingInput captures the caller provided reservation request.
type BookingInput struct {
	ResourceID string
	Date       time.Time
	Start      booking.TimeOfDay
	End        booking.TimeOfDay
	Title      *string
}

// Slot converts the input to a comparable interval.
func (i BookingInput) Slot() booking.Interval {
	return booking.Interval{Start: i.Start, End: i.End}
}

// Booking represents a persisted reservation.
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

// Slot converts the booking to a comparable interval.
func (b Booking) Slot() booking.Interval {
	return booking.Interval{Start: b.Start, End: b.End}
}

// RequestBookingParams wraps the data required to request a booking.
type RequestBookingParams struct {
	Principal Principal
	Input     BookingInput
}

// BookingFilter narrows booking listings. All fields are optional and
// AND-combined.
type BookingFilter struct {
	Date       *time.Time
	ResourceID string
	UserID     string
	Status     *booking.Status
}

// TransitionParams wraps the data required to move a booking to a new
// status.
type TransitionParams struct {
	Principal Principal
	BookingID string
	Target    booking.Status
}

// Session represents an authenticated session issued to a user.
type Session struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
	RevokedAt *time.Time
}

// AuthenticateParams captures the data required to authenticate a user.
type AuthenticateParams struct {
	Email    string
	Password string
}

// AuthenticateResult captures the outcome of a successful authentication.
type AuthenticateResult struct {
	User    User
	Session Session
}

// RefreshSessionParams captures the data required to rotate a session token.
type RefreshSessionParams struct {
	Token string
}

// RefreshSessionResult captures the outcome of rotating a session token.
type RefreshSessionResult struct {
	Session Session
}
