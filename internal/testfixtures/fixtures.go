// Package testfixtures provides deterministic builders for persistence and
// application tests.
package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/campus-bookings/internal/booking"
	"github.com/example/campus-bookings/internal/persistence"
)

var (
	userCounter     uint64
	resourceCounter uint64
	bookingCounter  uint64
)

var referenceTime = time.Date(2026, time.January, 2, 15, 4, 5, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ReferenceDate returns a Monday at UTC midnight, suitable as a booking date.
func ReferenceDate() time.Time {
	return time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC)
}

// UserOption configures a generated user record.
type UserOption func(*persistence.User)

// NewUser returns a deterministic user record with optional overrides.
func NewUser(opts ...UserOption) persistence.User {
	idx := atomic.AddUint64(&userCounter, 1)
	id := fmt.Sprintf("user-%03d", idx)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	user := persistence.User{
		ID:           id,
		Email:        fmt.Sprintf("%s@campus.edu", id),
		DisplayName:  fmt.Sprintf("User %03d", idx),
		Role:         "student",
		PasswordHash: fmt.Sprintf("hash-%03d", idx),
		CreatedAt:    created,
		UpdatedAt:    created,
	}
	studentID := fmt.Sprintf("S%03d", idx)
	user.StudentID = &studentID
	for _, opt := range opts {
		opt(&user)
	}
	return user
}

// WithUserID overrides the generated user ID.
func WithUserID(id string) UserOption {
	return func(u *persistence.User) {
		u.ID = id
	}
}

// WithUserEmail overrides the generated email address.
func WithUserEmail(email string) UserOption {
	return func(u *persistence.User) {
		u.Email = email
	}
}

// WithUserRole overrides the generated role.
func WithUserRole(role string) UserOption {
	return func(u *persistence.User) {
		u.Role = role
		if role != "student" {
			u.StudentID = nil
		}
	}
}

// ResourceOption configures a generated resource record.
type ResourceOption func(*persistence.Resource)

// NewResource returns a deterministic resource open weekdays 09:00 to 18:00.
func NewResource(opts ...ResourceOption) persistence.Resource {
	idx := atomic.AddUint64(&resourceCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	resource := persistence.Resource{
		ID:        fmt.Sprintf("res-%03d", idx),
		Name:      fmt.Sprintf("Study Room %03d", idx),
		Category:  "room",
		Location:  "Library",
		Status:    "available",
		CreatedAt: created,
		UpdatedAt: created,
	}
	for weekday := time.Monday; weekday <= time.Friday; weekday++ {
		resource.Hours = append(resource.Hours, persistence.AvailabilityWindow{
			Weekday: weekday,
			Open:    booking.TimeOfDay(9 * 60),
			Close:   booking.TimeOfDay(18 * 60),
		})
	}
	for _, opt := range opts {
		opt(&resource)
	}
	return resource
}

// WithResourceID overrides the generated resource ID.
func WithResourceID(id string) ResourceOption {
	return func(r *persistence.Resource) {
		r.ID = id
	}
}

// WithResourceStatus overrides the generated status.
func WithResourceStatus(status string) ResourceOption {
	return func(r *persistence.Resource) {
		r.Status = status
	}
}

// WithResourceHours replaces the generated availability windows.
func WithResourceHours(hours []persistence.AvailabilityWindow) ResourceOption {
	return func(r *persistence.Resource) {
		r.Hours = hours
	}
}

// BookingOption configures a generated booking record.
type BookingOption func(*persistence.Booking)

// NewBooking returns a deterministic pending booking on ReferenceDate. Each
// call occupies the hour after the previous one so defaults never collide.
func NewBooking(resourceID, userID string, opts ...BookingOption) persistence.Booking {
	idx := atomic.AddUint64(&bookingCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	start := booking.TimeOfDay(9*60) + booking.TimeOfDay((idx-1)%8)*60
	record := persistence.Booking{
		ID:         fmt.Sprintf("bk-%03d", idx),
		ResourceID: resourceID,
		UserID:     userID,
		Date:       ReferenceDate(),
		Start:      start,
		End:        start + 60,
		Status:     booking.StatusPending,
		CreatedAt:  created,
		UpdatedAt:  created,
	}
	for _, opt := range opts {
		opt(&record)
	}
	return record
}

// WithBookingID overrides the generated booking ID.
func WithBookingID(id string) BookingOption {
	return func(b *persistence.Booking) {
		b.ID = id
	}
}

// WithBookingDate overrides the generated booking date.
func WithBookingDate(date time.Time) BookingOption {
	return func(b *persistence.Booking) {
		b.Date = date
	}
}

// WithBookingSlot overrides the generated time slot.
func WithBookingSlot(start, end booking.TimeOfDay) BookingOption {
	return func(b *persistence.Booking) {
		b.Start = start
		b.End = end
	}
}

// WithBookingStatus overrides the generated status.
func WithBookingStatus(status booking.Status) BookingOption {
	return func(b *persistence.Booking) {
		b.Status = status
	}
}
