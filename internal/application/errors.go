package application

import "errors"

var (
	// ErrUnauthenticated is returned when a ledger operation is invoked
	// without a resolvable identity.
	ErrUnauthenticated = errors.New("application: unauthenticated")
	// ErrUnauthorized is returned when the acting principal lacks permission
	// for an operation.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrAlreadyExists is returned when a uniqueness rule rejects a creation,
	// such as a duplicate email address.
	ErrAlreadyExists = errors.New("application: already exists")
	// ErrSlotConflict is returned when a requested slot overlaps an active
	// booking on the same resource and date.
	ErrSlotConflict = errors.New("application: slot conflict")
	// ErrResourceUnavailable is returned when the target resource exists but
	// is blocked or under maintenance.
	ErrResourceUnavailable = errors.New("application: resource unavailable")
	// ErrOutsideOperatingHours is returned when the requested window falls
	// outside the resource's availability schedule for that weekday.
	ErrOutsideOperatingHours = errors.New("application: outside operating hours")
	// ErrIllegalTransition is returned when the booking status machine
	// forbids the requested transition.
	ErrIllegalTransition = errors.New("application: illegal status transition")
	// ErrInUse is returned when a record cannot be deleted because active
	// future bookings depend on it.
	ErrInUse = errors.New("application: record in use")
	// ErrInvalidCredentials is returned when authentication fails.
	ErrInvalidCredentials = errors.New("application: invalid credentials")
	// ErrSessionExpired is returned when a session token has passed its
	// expiry.
	ErrSessionExpired = errors.New("application: session expired")
	// ErrSessionRevoked is returned when a session token has been revoked.
	ErrSessionRevoked = errors.New("application: session revoked")
	// ErrStorage wraps unexpected storage-layer failures. Callers may retry:
	// no partial state is ever committed.
	ErrStorage = errors.New("application: storage failure")
)

// ValidationError captures field level validation issues that callers can
// surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}
