package sqlite

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/example/campus-bookings/internal/booking"
	"github.com/example/campus-bookings/internal/persistence"
	"github.com/example/campus-bookings/internal/testfixtures"
)

func minutes(h, m int) booking.TimeOfDay {
	return booking.TimeOfDay(h*60 + m)
}

func TestBookingRepository_CreateBooking_RoundTrip(t *testing.T) {
	storage := setupStorage(t)
	user := seedUser(t, storage, testfixtures.NewUser())
	resource := seedResource(t, storage, testfixtures.NewResource())
	repo := NewBookingRepository(storage)
	ctx := context.Background()

	title := "Study group"
	record := testfixtures.NewBooking(resource.ID, user.ID,
		testfixtures.WithBookingSlot(minutes(10, 0), minutes(11, 0)))
	record.Title = &title

	if err := repo.CreateBooking(ctx, record); err != nil {
		t.Fatalf("CreateBooking failed: %v", err)
	}

	retrieved, err := repo.GetBooking(ctx, record.ID)
	if err != nil {
		t.Fatalf("GetBooking failed: %v", err)
	}
	if retrieved.ResourceID != resource.ID || retrieved.UserID != user.ID {
		t.Errorf("unexpected ownership: %+v", retrieved)
	}
	if !retrieved.Date.Equal(record.Date) {
		t.Errorf("expected date %v, got %v", record.Date, retrieved.Date)
	}
	if retrieved.Start != minutes(10, 0) || retrieved.End != minutes(11, 0) {
		t.Errorf("unexpected slot %v-%v", retrieved.Start, retrieved.End)
	}
	if retrieved.Status != booking.StatusPending {
		t.Errorf("expected pending status, got %s", retrieved.Status)
	}
	if retrieved.Title == nil || *retrieved.Title != title {
		t.Errorf("unexpected title %v", retrieved.Title)
	}
}

func TestBookingRepository_CreateBooking_OverlapConflict(t *testing.T) {
	storage := setupStorage(t)
	user := seedUser(t, storage, testfixtures.NewUser())
	resource := seedResource(t, storage, testfixtures.NewResource())
	repo := NewBookingRepository(storage)
	ctx := context.Background()

	first := testfixtures.NewBooking(resource.ID, user.ID,
		testfixtures.WithBookingSlot(minutes(10, 0), minutes(11, 0)))
	if err := repo.CreateBooking(ctx, first); err != nil {
		t.Fatalf("CreateBooking failed: %v", err)
	}

	overlapping := testfixtures.NewBooking(resource.ID, user.ID,
		testfixtures.WithBookingSlot(minutes(10, 30), minutes(11, 30)))
	err := repo.CreateBooking(ctx, overlapping)
	if !errors.Is(err, persistence.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	// The losing insert must not leave a row behind.
	if _, err := repo.GetBooking(ctx, overlapping.ID); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected rolled back booking to be absent, got %v", err)
	}

	// Back-to-back slots share a boundary minute and do not conflict.
	adjacent := testfixtures.NewBooking(resource.ID, user.ID,
		testfixtures.WithBookingSlot(minutes(11, 0), minutes(12, 0)))
	if err := repo.CreateBooking(ctx, adjacent); err != nil {
		t.Fatalf("adjacent CreateBooking failed: %v", err)
	}
}

func TestBookingRepository_CancelledBookingFreesSlot(t *testing.T) {
	storage := setupStorage(t)
	user := seedUser(t, storage, testfixtures.NewUser())
	resource := seedResource(t, storage, testfixtures.NewResource())
	repo := NewBookingRepository(storage)
	ctx := context.Background()

	slot := booking.Interval{Start: minutes(14, 0), End: minutes(15, 0)}
	held := testfixtures.NewBooking(resource.ID, user.ID,
		testfixtures.WithBookingSlot(slot.Start, slot.End))
	if err := repo.CreateBooking(ctx, held); err != nil {
		t.Fatalf("CreateBooking failed: %v", err)
	}

	occupied, err := repo.HasOverlap(ctx, resource.ID, held.Date, slot)
	if err != nil {
		t.Fatalf("HasOverlap failed: %v", err)
	}
	if !occupied {
		t.Fatal("expected slot to be occupied")
	}

	updatedAt := testfixtures.ReferenceTime().Add(time.Hour)
	if err := repo.UpdateBookingStatus(ctx, held.ID, booking.StatusCancelled, updatedAt); err != nil {
		t.Fatalf("UpdateBookingStatus failed: %v", err)
	}

	occupied, err = repo.HasOverlap(ctx, resource.ID, held.Date, slot)
	if err != nil {
		t.Fatalf("HasOverlap after cancel failed: %v", err)
	}
	if occupied {
		t.Fatal("cancelled booking must not hold the slot")
	}

	rebooked := testfixtures.NewBooking(resource.ID, user.ID,
		testfixtures.WithBookingSlot(slot.Start, slot.End))
	if err := repo.CreateBooking(ctx, rebooked); err != nil {
		t.Fatalf("rebooking freed slot failed: %v", err)
	}

	// The cancelled row survives as audit trail.
	retrieved, err := repo.GetBooking(ctx, held.ID)
	if err != nil {
		t.Fatalf("GetBooking after cancel failed: %v", err)
	}
	if retrieved.Status != booking.StatusCancelled {
		t.Errorf("expected cancelled status, got %s", retrieved.Status)
	}
	if !retrieved.UpdatedAt.Equal(updatedAt) {
		t.Errorf("expected updated_at %v, got %v", updatedAt, retrieved.UpdatedAt)
	}
}

func TestBookingRepository_CreateBooking_ConcurrentRace(t *testing.T) {
	storage := setupStorage(t)
	user := seedUser(t, storage, testfixtures.NewUser())
	resource := seedResource(t, storage, testfixtures.NewResource())
	repo := NewBookingRepository(storage)
	ctx := context.Background()

	const contenders = 4
	results := make(chan error, contenders)
	var start sync.WaitGroup
	start.Add(1)
	for i := 0; i < contenders; i++ {
		record := testfixtures.NewBooking(resource.ID, user.ID,
			testfixtures.WithBookingSlot(minutes(13, 0), minutes(14, 0)))
		go func(record persistence.Booking) {
			start.Wait()
			results <- repo.CreateBooking(ctx, record)
		}(record)
	}
	start.Done()

	var winners, losers int
	for i := 0; i < contenders; i++ {
		switch err := <-results; {
		case err == nil:
			winners++
		case errors.Is(err, persistence.ErrConflict):
			losers++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if winners != 1 {
		t.Fatalf("expected exactly one winner, got %d (losers %d)", winners, losers)
	}
}

func TestBookingRepository_CreateBooking_UnknownResource(t *testing.T) {
	storage := setupStorage(t)
	user := seedUser(t, storage, testfixtures.NewUser())
	repo := NewBookingRepository(storage)

	record := testfixtures.NewBooking("missing-resource", user.ID)
	err := repo.CreateBooking(context.Background(), record)
	if !errors.Is(err, persistence.ErrForeignKeyViolation) {
		t.Fatalf("expected ErrForeignKeyViolation, got %v", err)
	}
}

func TestBookingRepository_UpdateBookingStatus_NotFound(t *testing.T) {
	storage := setupStorage(t)
	repo := NewBookingRepository(storage)

	err := repo.UpdateBookingStatus(context.Background(), "missing", booking.StatusApproved, testfixtures.ReferenceTime())
	if !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestBookingRepository_ListBookings(t *testing.T) {
	storage := setupStorage(t)
	owner := seedUser(t, storage, testfixtures.NewUser())
	other := seedUser(t, storage, testfixtures.NewUser())
	resource := seedResource(t, storage, testfixtures.NewResource())
	repo := NewBookingRepository(storage)
	ctx := context.Background()

	monday := testfixtures.ReferenceDate()
	tuesday := monday.AddDate(0, 0, 1)

	early := testfixtures.NewBooking(resource.ID, owner.ID,
		testfixtures.WithBookingID("bk-early"),
		testfixtures.WithBookingDate(monday),
		testfixtures.WithBookingSlot(minutes(9, 0), minutes(10, 0)))
	late := testfixtures.NewBooking(resource.ID, other.ID,
		testfixtures.WithBookingID("bk-late"),
		testfixtures.WithBookingDate(monday),
		testfixtures.WithBookingSlot(minutes(15, 0), minutes(16, 0)),
		testfixtures.WithBookingStatus(booking.StatusApproved))
	next := testfixtures.NewBooking(resource.ID, owner.ID,
		testfixtures.WithBookingID("bk-next"),
		testfixtures.WithBookingDate(tuesday),
		testfixtures.WithBookingSlot(minutes(9, 0), minutes(10, 0)))

	for _, record := range []persistence.Booking{early, late, next} {
		if err := repo.CreateBooking(ctx, record); err != nil {
			t.Fatalf("CreateBooking %s failed: %v", record.ID, err)
		}
	}

	all, err := repo.ListBookings(ctx, persistence.BookingFilter{})
	if err != nil {
		t.Fatalf("ListBookings failed: %v", err)
	}
	wantOrder := []string{"bk-next", "bk-late", "bk-early"}
	if len(all) != len(wantOrder) {
		t.Fatalf("expected %d bookings, got %d", len(wantOrder), len(all))
	}
	for i, id := range wantOrder {
		if all[i].ID != id {
			t.Errorf("position %d: expected %s, got %s", i, id, all[i].ID)
		}
	}

	mine, err := repo.ListBookings(ctx, persistence.BookingFilter{UserID: owner.ID})
	if err != nil {
		t.Fatalf("ListBookings by user failed: %v", err)
	}
	if len(mine) != 2 {
		t.Fatalf("expected 2 bookings for %s, got %d", owner.ID, len(mine))
	}

	approved := booking.StatusApproved
	confirmed, err := repo.ListBookings(ctx, persistence.BookingFilter{Status: &approved})
	if err != nil {
		t.Fatalf("ListBookings by status failed: %v", err)
	}
	if len(confirmed) != 1 || confirmed[0].ID != "bk-late" {
		t.Fatalf("expected only bk-late approved, got %+v", confirmed)
	}

	onMonday, err := repo.ListBookings(ctx, persistence.BookingFilter{Date: &monday, ResourceID: resource.ID})
	if err != nil {
		t.Fatalf("ListBookings by date failed: %v", err)
	}
	if len(onMonday) != 2 {
		t.Fatalf("expected 2 bookings on %v, got %d", monday, len(onMonday))
	}

	none, err := repo.ListBookings(ctx, persistence.BookingFilter{UserID: "nobody"})
	if err != nil {
		t.Fatalf("ListBookings with empty result failed: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("expected no bookings, got %d", len(none))
	}
}
