package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/campus-bookings/internal/booking"
	"github.com/example/campus-bookings/internal/persistence"
)

type bookingRepoStub struct {
	createErr error
	created   Booking

	getBooking Booking
	getErr     error

	statusErr     error
	statusUpdated Booking

	overlap    bool
	overlapErr error

	list    []Booking
	listErr error
}

func (r *bookingRepoStub) CreateBooking(ctx context.Context, record Booking) (Booking, error) {
	if r.createErr != nil {
		return Booking{}, r.createErr
	}
	r.created = record
	return record, nil
}

func (r *bookingRepoStub) GetBooking(ctx context.Context, id string) (Booking, error) {
	if r.getErr != nil {
		return Booking{}, r.getErr
	}
	if r.getBooking.ID == "" {
		return Booking{}, ErrNotFound
	}
	return r.getBooking, nil
}

func (r *bookingRepoStub) UpdateBookingStatus(ctx context.Context, id string, status booking.Status, updatedAt time.Time) (Booking, error) {
	if r.statusErr != nil {
		return Booking{}, r.statusErr
	}
	updated := r.getBooking
	updated.Status = status
	updated.UpdatedAt = updatedAt
	r.statusUpdated = updated
	return updated, nil
}

func (r *bookingRepoStub) HasOverlap(ctx context.Context, resourceID string, date time.Time, slot booking.Interval) (bool, error) {
	if r.overlapErr != nil {
		return false, r.overlapErr
	}
	return r.overlap, nil
}

func (r *bookingRepoStub) ListBookings(ctx context.Context, filter BookingFilter) ([]Booking, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	out := make([]Booking, len(r.list))
	copy(out, r.list)
	return out, nil
}

type resourceCatalogStub struct {
	resource Resource
	err      error
}

func (r *resourceCatalogStub) GetResource(ctx context.Context, id string) (Resource, error) {
	if r.err != nil {
		return Resource{}, r.err
	}
	if r.resource.ID == "" {
		return Resource{}, ErrNotFound
	}
	return r.resource, nil
}

func mustTime(t *testing.T, value string) booking.TimeOfDay {
	t.Helper()
	parsed, err := booking.ParseTimeOfDay(value)
	if err != nil {
		t.Fatalf("parse %q: %v", value, err)
	}
	return parsed
}

func testResource(t *testing.T) Resource {
	t.Helper()
	return Resource{
		ID:       "res-1",
		Name:     "Study Room A",
		Category: "room",
		Status:   ResourceAvailable,
		Hours: []AvailabilityWindow{
			{Weekday: time.Monday, Open: mustTime(t, "09:00"), Close: mustTime(t, "18:00")},
		},
	}
}

// 2026-01-05 is a Monday.
func mondayDate() time.Time {
	return time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC)
}

func validInput(t *testing.T) BookingInput {
	t.Helper()
	return BookingInput{
		ResourceID: "res-1",
		Date:       mondayDate(),
		Start:      mustTime(t, "10:00"),
		End:        mustTime(t, "11:00"),
	}
}

func newTestBookingService(repo *bookingRepoStub, catalog *resourceCatalogStub) *BookingService {
	return NewBookingService(repo, catalog,
		func() string { return "bk-1" },
		func() time.Time { return time.Date(2026, time.January, 1, 12, 0, 0, 0, time.UTC) },
	)
}

func TestBookingService_RequestBooking(t *testing.T) {
	principal := Principal{UserID: "user-1", Role: RoleStudent}

	t.Run("rejects malformed input before touching the catalog", func(t *testing.T) {
		catalog := &resourceCatalogStub{err: errors.New("catalog must not be called")}
		svc := newTestBookingService(&bookingRepoStub{}, catalog)

		input := validInput(t)
		input.ResourceID = " "
		input.Start = mustTime(t, "11:00")
		input.End = mustTime(t, "10:00")

		_, err := svc.RequestBooking(context.Background(), RequestBookingParams{Principal: principal, Input: input})

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if _, ok := vErr.FieldErrors["resource_id"]; !ok {
			t.Fatalf("expected resource_id error, got %v", vErr.FieldErrors)
		}
		if _, ok := vErr.FieldErrors["time"]; !ok {
			t.Fatalf("expected time error, got %v", vErr.FieldErrors)
		}
	})

	t.Run("rejects zero-length slot", func(t *testing.T) {
		svc := newTestBookingService(&bookingRepoStub{}, &resourceCatalogStub{resource: testResource(t)})

		input := validInput(t)
		input.End = input.Start

		_, err := svc.RequestBooking(context.Background(), RequestBookingParams{Principal: principal, Input: input})

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
	})

	t.Run("reports unknown resource", func(t *testing.T) {
		svc := newTestBookingService(&bookingRepoStub{}, &resourceCatalogStub{})

		_, err := svc.RequestBooking(context.Background(), RequestBookingParams{Principal: principal, Input: validInput(t)})

		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("rejects blocked resource before checking hours", func(t *testing.T) {
		resource := testResource(t)
		resource.Status = ResourceBlocked
		repo := &bookingRepoStub{overlapErr: errors.New("overlap must not be checked")}
		svc := newTestBookingService(repo, &resourceCatalogStub{resource: resource})

		input := validInput(t)
		input.Start = mustTime(t, "06:00")
		input.End = mustTime(t, "07:00")

		_, err := svc.RequestBooking(context.Background(), RequestBookingParams{Principal: principal, Input: input})

		if !errors.Is(err, ErrResourceUnavailable) {
			t.Fatalf("expected ErrResourceUnavailable, got %v", err)
		}
	})

	t.Run("rejects slot outside operating hours", func(t *testing.T) {
		svc := newTestBookingService(&bookingRepoStub{}, &resourceCatalogStub{resource: testResource(t)})

		input := validInput(t)
		input.Start = mustTime(t, "08:00")
		input.End = mustTime(t, "09:30")

		_, err := svc.RequestBooking(context.Background(), RequestBookingParams{Principal: principal, Input: input})

		if !errors.Is(err, ErrOutsideOperatingHours) {
			t.Fatalf("expected ErrOutsideOperatingHours, got %v", err)
		}
	})

	t.Run("rejects closed weekday", func(t *testing.T) {
		svc := newTestBookingService(&bookingRepoStub{}, &resourceCatalogStub{resource: testResource(t)})

		input := validInput(t)
		input.Date = mondayDate().AddDate(0, 0, 1)

		_, err := svc.RequestBooking(context.Background(), RequestBookingParams{Principal: principal, Input: input})

		if !errors.Is(err, ErrOutsideOperatingHours) {
			t.Fatalf("expected ErrOutsideOperatingHours, got %v", err)
		}
	})

	t.Run("reports slot conflict", func(t *testing.T) {
		repo := &bookingRepoStub{overlap: true}
		svc := newTestBookingService(repo, &resourceCatalogStub{resource: testResource(t)})

		_, err := svc.RequestBooking(context.Background(), RequestBookingParams{Principal: principal, Input: validInput(t)})

		if !errors.Is(err, ErrSlotConflict) {
			t.Fatalf("expected ErrSlotConflict, got %v", err)
		}
	})

	t.Run("maps a lost write race to a slot conflict", func(t *testing.T) {
		repo := &bookingRepoStub{createErr: persistence.ErrConflict}
		svc := newTestBookingService(repo, &resourceCatalogStub{resource: testResource(t)})

		_, err := svc.RequestBooking(context.Background(), RequestBookingParams{Principal: principal, Input: validInput(t)})

		if !errors.Is(err, ErrSlotConflict) {
			t.Fatalf("expected ErrSlotConflict, got %v", err)
		}
	})

	t.Run("requires an authenticated caller after domain checks", func(t *testing.T) {
		svc := newTestBookingService(&bookingRepoStub{}, &resourceCatalogStub{resource: testResource(t)})

		_, err := svc.RequestBooking(context.Background(), RequestBookingParams{Principal: Principal{}, Input: validInput(t)})

		if !errors.Is(err, ErrUnauthenticated) {
			t.Fatalf("expected ErrUnauthenticated, got %v", err)
		}
	})

	t.Run("records a pending booking", func(t *testing.T) {
		repo := &bookingRepoStub{}
		svc := newTestBookingService(repo, &resourceCatalogStub{resource: testResource(t)})

		created, err := svc.RequestBooking(context.Background(), RequestBookingParams{Principal: principal, Input: validInput(t)})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if created.Status != booking.StatusPending {
			t.Fatalf("expected pending status, got %s", created.Status)
		}
		if created.UserID != principal.UserID {
			t.Fatalf("expected owner %s, got %s", principal.UserID, created.UserID)
		}
		if created.ID == "" {
			t.Fatal("expected generated id")
		}
		if !repo.created.Date.Equal(mondayDate()) {
			t.Fatalf("expected normalized date %v, got %v", mondayDate(), repo.created.Date)
		}
	})

	t.Run("wraps storage failures", func(t *testing.T) {
		repo := &bookingRepoStub{overlapErr: errors.New("disk gone")}
		svc := newTestBookingService(repo, &resourceCatalogStub{resource: testResource(t)})

		_, err := svc.RequestBooking(context.Background(), RequestBookingParams{Principal: principal, Input: validInput(t)})

		if !errors.Is(err, ErrStorage) {
			t.Fatalf("expected ErrStorage, got %v", err)
		}
	})
}

func TestBookingService_Transition(t *testing.T) {
	owner := Principal{UserID: "user-1", Role: RoleStudent}
	admin := Principal{UserID: "admin-1", Role: RoleAdmin}
	stranger := Principal{UserID: "user-2", Role: RoleFaculty}

	pendingBooking := func() Booking {
		return Booking{
			ID:         "bk-1",
			ResourceID: "res-1",
			UserID:     owner.UserID,
			Date:       mondayDate(),
			Status:     booking.StatusPending,
		}
	}

	t.Run("owner may cancel a pending booking", func(t *testing.T) {
		repo := &bookingRepoStub{getBooking: pendingBooking()}
		svc := newTestBookingService(repo, nil)

		updated, err := svc.Transition(context.Background(), TransitionParams{
			Principal: owner,
			BookingID: "bk-1",
			Target:    booking.StatusCancelled,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if updated.Status != booking.StatusCancelled {
			t.Fatalf("expected cancelled, got %s", updated.Status)
		}
	})

	t.Run("owner may not approve their own booking", func(t *testing.T) {
		repo := &bookingRepoStub{getBooking: pendingBooking()}
		svc := newTestBookingService(repo, nil)

		_, err := svc.Transition(context.Background(), TransitionParams{
			Principal: owner,
			BookingID: "bk-1",
			Target:    booking.StatusApproved,
		})
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("admin may approve and reject", func(t *testing.T) {
		for _, target := range []booking.Status{booking.StatusApproved, booking.StatusRejected} {
			repo := &bookingRepoStub{getBooking: pendingBooking()}
			svc := newTestBookingService(repo, nil)

			updated, err := svc.Transition(context.Background(), TransitionParams{
				Principal: admin,
				BookingID: "bk-1",
				Target:    target,
			})
			if err != nil {
				t.Fatalf("%s: unexpected error: %v", target, err)
			}
			if updated.Status != target {
				t.Fatalf("expected %s, got %s", target, updated.Status)
			}
		}
	})

	t.Run("unrelated user may not touch the booking", func(t *testing.T) {
		repo := &bookingRepoStub{getBooking: pendingBooking()}
		svc := newTestBookingService(repo, nil)

		_, err := svc.Transition(context.Background(), TransitionParams{
			Principal: stranger,
			BookingID: "bk-1",
			Target:    booking.StatusCancelled,
		})
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("terminal statuses admit no transitions", func(t *testing.T) {
		for _, from := range []booking.Status{booking.StatusRejected, booking.StatusCancelled} {
			record := pendingBooking()
			record.Status = from
			repo := &bookingRepoStub{getBooking: record}
			svc := newTestBookingService(repo, nil)

			_, err := svc.Transition(context.Background(), TransitionParams{
				Principal: admin,
				BookingID: "bk-1",
				Target:    booking.StatusApproved,
			})
			if !errors.Is(err, ErrIllegalTransition) {
				t.Fatalf("from %s: expected ErrIllegalTransition, got %v", from, err)
			}
		}
	})

	t.Run("approved booking may only be cancelled", func(t *testing.T) {
		record := pendingBooking()
		record.Status = booking.StatusApproved
		repo := &bookingRepoStub{getBooking: record}
		svc := newTestBookingService(repo, nil)

		if _, err := svc.Transition(context.Background(), TransitionParams{
			Principal: admin,
			BookingID: "bk-1",
			Target:    booking.StatusRejected,
		}); !errors.Is(err, ErrIllegalTransition) {
			t.Fatalf("expected ErrIllegalTransition, got %v", err)
		}

		repo.getBooking = record
		updated, err := svc.Transition(context.Background(), TransitionParams{
			Principal: owner,
			BookingID: "bk-1",
			Target:    booking.StatusCancelled,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if updated.Status != booking.StatusCancelled {
			t.Fatalf("expected cancelled, got %s", updated.Status)
		}
	})

	t.Run("unknown target status fails validation", func(t *testing.T) {
		repo := &bookingRepoStub{getBooking: pendingBooking()}
		svc := newTestBookingService(repo, nil)

		_, err := svc.Transition(context.Background(), TransitionParams{
			Principal: admin,
			BookingID: "bk-1",
			Target:    booking.Status("archived"),
		})

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
	})

	t.Run("missing booking reports not found", func(t *testing.T) {
		svc := newTestBookingService(&bookingRepoStub{}, nil)

		_, err := svc.Transition(context.Background(), TransitionParams{
			Principal: admin,
			BookingID: "missing",
			Target:    booking.StatusApproved,
		})
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestBookingService_ListBookings(t *testing.T) {
	principal := Principal{UserID: "user-1", Role: RoleStudent}

	t.Run("requires authentication", func(t *testing.T) {
		svc := newTestBookingService(&bookingRepoStub{}, nil)

		_, err := svc.ListBookings(context.Background(), Principal{}, BookingFilter{})
		if !errors.Is(err, ErrUnauthenticated) {
			t.Fatalf("expected ErrUnauthenticated, got %v", err)
		}
	})

	t.Run("orders by date then start descending with id tiebreak", func(t *testing.T) {
		earlier := mondayDate()
		later := mondayDate().AddDate(0, 0, 7)
		repo := &bookingRepoStub{list: []Booking{
			{ID: "b", Date: earlier, Start: mustTime(t, "09:00")},
			{ID: "a", Date: later, Start: mustTime(t, "09:00")},
			{ID: "c", Date: later, Start: mustTime(t, "14:00")},
			{ID: "d", Date: later, Start: mustTime(t, "09:00")},
		}}
		svc := newTestBookingService(repo, nil)

		results, err := svc.ListBookings(context.Background(), principal, BookingFilter{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		got := make([]string, len(results))
		for i, b := range results {
			got[i] = b.ID
		}
		want := []string{"c", "a", "d", "b"}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("expected order %v, got %v", want, got)
			}
		}
	})
}
