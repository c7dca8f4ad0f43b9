package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/example/campus-bookings/internal/booking"
	"github.com/example/campus-bookings/internal/persistence"
)

// BookingRepository captures the persistence interactions needed by the
// booking ledger. CreateBooking must re-check the slot against active
// bookings inside its own write transaction and fail with
// persistence.ErrConflict when the slot was taken in the meantime.
type BookingRepository interface {
	CreateBooking(ctx context.Context, record Booking) (Booking, error)
	GetBooking(ctx context.Context, id string) (Booking, error)
	UpdateBookingStatus(ctx context.Context, id string, status booking.Status, updatedAt time.Time) (Booking, error)
	HasOverlap(ctx context.Context, resourceID string, date time.Time, slot booking.Interval) (bool, error)
	ListBookings(ctx context.Context, filter BookingFilter) ([]Booking, error)
}

// ResourceCatalog exposes resource lookups needed to validate a booking.
type ResourceCatalog interface {
	GetResource(ctx context.Context, id string) (Resource, error)
}

// BookingService orchestrates validation, conflict checking, and the status
// machine for reservations.
type BookingService struct {
	bookings    BookingRepository
	resources   ResourceCatalog
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewBookingService constructs a booking service with the provided
// dependencies.
func NewBookingService(bookings BookingRepository, resources ResourceCatalog, idGenerator func() string, now func() time.Time) *BookingService {
	return NewBookingServiceWithLogger(bookings, resources, idGenerator, now, nil)
}

// NewBookingServiceWithLogger constructs a booking service with a specified
// logger.
func NewBookingServiceWithLogger(bookings BookingRepository, resources ResourceCatalog, idGenerator func() string, now func() time.Time, logger *slog.Logger) *BookingService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &BookingService{
		bookings:    bookings,
		resources:   resources,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *BookingService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "BookingService", operation, attrs...)
}

// RequestBooking validates a reservation request and records it as pending.
// Checks run in a fixed order and the first failing check decides the error:
// input shape, resource existence, resource status, operating hours, slot
// overlap, caller identity. The repository re-checks the overlap inside its
// write transaction, so a race between two requests resolves to exactly one
// persisted booking.
func (s *BookingService) RequestBooking(ctx context.Context, params RequestBookingParams) (created Booking, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}
	if s.bookings == nil || s.resources == nil {
		err = fmt.Errorf("booking repositories not configured")
		return
	}

	input := params.Input
	logger := s.loggerWith(ctx, "RequestBooking",
		"principal_id", params.Principal.UserID,
		"resource_id", input.ResourceID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to request booking", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("booking_id", created.ID).InfoContext(ctx, "booking requested")
	}()

	vErr := validateBookingInput(input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var resource Resource
	resource, err = s.resources.GetResource(ctx, input.ResourceID)
	if err != nil {
		err = mapBookingRepoError(err)
		return
	}

	if resource.Status != ResourceAvailable {
		err = ErrResourceUnavailable
		return
	}

	slot := input.Slot()
	if !resource.WithinAvailability(input.Date, slot) {
		err = ErrOutsideOperatingHours
		return
	}

	var taken bool
	taken, err = s.bookings.HasOverlap(ctx, input.ResourceID, input.Date, slot)
	if err != nil {
		err = mapBookingRepoError(err)
		return
	}
	if taken {
		err = ErrSlotConflict
		return
	}

	if !params.Principal.Authenticated() {
		err = ErrUnauthenticated
		return
	}

	createdAt := s.now().UTC()
	record := Booking{
		ID:         s.idGenerator(),
		ResourceID: input.ResourceID,
		UserID:     params.Principal.UserID,
		Date:       normalizeDate(input.Date),
		Start:      input.Start,
		End:        input.End,
		Status:     booking.StatusPending,
		Title:      normalizeOptionalString(input.Title),
		CreatedAt:  createdAt,
		UpdatedAt:  createdAt,
	}

	created, err = s.bookings.CreateBooking(ctx, record)
	if err != nil {
		err = mapBookingRepoError(err)
		return
	}

	return
}

// GetBooking fetches a single booking for an authenticated caller.
func (s *BookingService) GetBooking(ctx context.Context, principal Principal, bookingID string) (result Booking, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}
	if s.bookings == nil {
		err = fmt.Errorf("booking repository not configured")
		return
	}
	if !principal.Authenticated() {
		err = ErrUnauthenticated
		return
	}

	result, err = s.bookings.GetBooking(ctx, bookingID)
	if err != nil {
		err = mapBookingRepoError(err)
		return
	}
	return
}

// ListBookings enumerates bookings matching the filter, most recent slot
// first.
func (s *BookingService) ListBookings(ctx context.Context, principal Principal, filter BookingFilter) (results []Booking, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}
	if s.bookings == nil {
		err = fmt.Errorf("booking repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "ListBookings",
		"principal_id", principal.UserID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list bookings", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(results)).InfoContext(ctx, "bookings listed")
	}()

	if !principal.Authenticated() {
		err = ErrUnauthenticated
		return
	}

	if filter.Date != nil {
		normalized := normalizeDate(*filter.Date)
		filter.Date = &normalized
	}

	var raw []Booking
	raw, err = s.bookings.ListBookings(ctx, filter)
	if err != nil {
		err = mapBookingRepoError(err)
		return
	}

	results = make([]Booking, len(raw))
	copy(results, raw)

	sort.SliceStable(results, func(i, j int) bool {
		if !results[i].Date.Equal(results[j].Date) {
			return results[i].Date.After(results[j].Date)
		}
		if results[i].Start != results[j].Start {
			return results[i].Start > results[j].Start
		}
		return results[i].ID < results[j].ID
	})

	return
}

// Transition moves a booking to a new status, enforcing ownership, the
// admin-only approval rule, and the state machine.
func (s *BookingService) Transition(ctx context.Context, params TransitionParams) (updated Booking, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}
	if s.bookings == nil {
		err = fmt.Errorf("booking repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "Transition",
		"principal_id", params.Principal.UserID,
		"booking_id", params.BookingID,
		"target_status", string(params.Target),
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to transition booking", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "booking transitioned")
	}()

	if !params.Principal.Authenticated() {
		err = ErrUnauthenticated
		return
	}
	if !params.Target.Valid() {
		vErr := &ValidationError{}
		vErr.add("status", "unknown status")
		err = vErr
		return
	}

	var existing Booking
	existing, err = s.bookings.GetBooking(ctx, params.BookingID)
	if err != nil {
		err = mapBookingRepoError(err)
		return
	}

	if existing.UserID != params.Principal.UserID && !params.Principal.IsAdmin() {
		err = ErrUnauthorized
		return
	}
	if booking.RequiresAdmin(params.Target) && !params.Principal.IsAdmin() {
		err = ErrUnauthorized
		return
	}

	if !booking.CanTransition(existing.Status, params.Target) {
		err = fmt.Errorf("%w: %s to %s", ErrIllegalTransition, existing.Status, params.Target)
		return
	}

	updated, err = s.bookings.UpdateBookingStatus(ctx, params.BookingID, params.Target, s.now().UTC())
	if err != nil {
		err = mapBookingRepoError(err)
		return
	}

	return
}

func validateBookingInput(input BookingInput) *ValidationError {
	vErr := &ValidationError{}

	if strings.TrimSpace(input.ResourceID) == "" {
		vErr.add("resource_id", "resource id is required")
	}
	if input.Date.IsZero() {
		vErr.add("date", "date is required")
	}
	if !input.Start.Valid() {
		vErr.add("start", "start must be between 00:00 and 24:00")
	}
	if !input.End.Valid() {
		vErr.add("end", "end must be between 00:00 and 24:00")
	}
	if input.Start.Valid() && input.End.Valid() && input.Start >= input.End {
		vErr.add("time", "start must be before end")
	}
	if input.Title != nil && len(strings.TrimSpace(*input.Title)) > 200 {
		vErr.add("title", "title must be at most 200 characters")
	}

	return vErr
}

// normalizeDate strips the time-of-day portion so civil dates compare and
// store uniformly as UTC midnight.
func normalizeDate(date time.Time) time.Time {
	utc := date.UTC()
	return time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC)
}

func mapBookingRepoError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrConflict):
		return ErrSlotConflict
	case errors.Is(err, persistence.ErrForeignKeyViolation):
		vErr := &ValidationError{}
		vErr.add("resource_id", "resource does not exist")
		return vErr
	case errors.Is(err, persistence.ErrConstraintViolation):
		vErr := &ValidationError{}
		vErr.add("time", "start must be before end")
		return vErr
	}
	return fmt.Errorf("%w: %v", ErrStorage, err)
}
