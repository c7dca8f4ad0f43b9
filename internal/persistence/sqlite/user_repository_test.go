package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/campus-bookings/internal/booking"
	"github.com/example/campus-bookings/internal/persistence"
	"github.com/example/campus-bookings/internal/testfixtures"
)

func TestUserRepository_CreateUser_RoundTrip(t *testing.T) {
	storage := setupStorage(t)
	repo := NewUserRepository(storage)
	ctx := context.Background()

	user := testfixtures.NewUser(testfixtures.WithUserEmail("Casing@Campus.EDU"))
	if err := repo.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	retrieved, err := repo.GetUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if retrieved.Email != "casing@campus.edu" {
		t.Errorf("expected normalized email, got %q", retrieved.Email)
	}
	if retrieved.DisplayName != user.DisplayName {
		t.Errorf("expected display name %q, got %q", user.DisplayName, retrieved.DisplayName)
	}
	if retrieved.StudentID == nil || *retrieved.StudentID != *user.StudentID {
		t.Errorf("unexpected student id %v", retrieved.StudentID)
	}

	// Lookup by email matches regardless of caller casing.
	byEmail, err := repo.GetUserByEmail(ctx, "CASING@campus.edu")
	if err != nil {
		t.Fatalf("GetUserByEmail failed: %v", err)
	}
	if byEmail.ID != user.ID {
		t.Errorf("expected %s, got %s", user.ID, byEmail.ID)
	}
}

func TestUserRepository_CreateUser_DuplicateEmail(t *testing.T) {
	storage := setupStorage(t)
	repo := NewUserRepository(storage)
	ctx := context.Background()

	first := testfixtures.NewUser(testfixtures.WithUserEmail("shared@campus.edu"))
	if err := repo.CreateUser(ctx, first); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	second := testfixtures.NewUser(testfixtures.WithUserEmail("Shared@Campus.edu"))
	err := repo.CreateUser(ctx, second)
	if !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestUserRepository_UpdateUserAndPassword(t *testing.T) {
	storage := setupStorage(t)
	repo := NewUserRepository(storage)
	ctx := context.Background()

	user := seedUser(t, storage, testfixtures.NewUser())

	user.DisplayName = "Renamed Student"
	user.UpdatedAt = testfixtures.ReferenceTime().Add(time.Hour)
	if err := repo.UpdateUser(ctx, user); err != nil {
		t.Fatalf("UpdateUser failed: %v", err)
	}

	if err := repo.UpdatePassword(ctx, user.ID, "new-hash", user.UpdatedAt); err != nil {
		t.Fatalf("UpdatePassword failed: %v", err)
	}

	retrieved, err := repo.GetUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if retrieved.DisplayName != "Renamed Student" {
		t.Errorf("expected renamed profile, got %q", retrieved.DisplayName)
	}
	if retrieved.PasswordHash != "new-hash" {
		t.Errorf("expected rotated hash, got %q", retrieved.PasswordHash)
	}

	if err := repo.UpdateUser(ctx, testfixtures.NewUser(testfixtures.WithUserID("ghost"))); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown user, got %v", err)
	}
}

func TestUserRepository_ListUsersOrderedByEmail(t *testing.T) {
	storage := setupStorage(t)
	repo := NewUserRepository(storage)
	ctx := context.Background()

	seedUser(t, storage, testfixtures.NewUser(testfixtures.WithUserEmail("zoe@campus.edu")))
	seedUser(t, storage, testfixtures.NewUser(testfixtures.WithUserEmail("amir@campus.edu")))
	seedUser(t, storage, testfixtures.NewUser(testfixtures.WithUserEmail("mina@campus.edu")))

	users, err := repo.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers failed: %v", err)
	}
	if len(users) != 3 {
		t.Fatalf("expected 3 users, got %d", len(users))
	}
	want := []string{"amir@campus.edu", "mina@campus.edu", "zoe@campus.edu"}
	for i, email := range want {
		if users[i].Email != email {
			t.Errorf("position %d: expected %s, got %s", i, email, users[i].Email)
		}
	}
}

func TestUserRepository_DeleteUser_BlockedByActiveBooking(t *testing.T) {
	storage := setupStorage(t)
	repo := NewUserRepository(storage)
	bookings := NewBookingRepository(storage)
	sessions := NewSessionRepository(storage)
	ctx := context.Background()

	user := seedUser(t, storage, testfixtures.NewUser())
	resource := seedResource(t, storage, testfixtures.NewResource())

	record := testfixtures.NewBooking(resource.ID, user.ID)
	if err := bookings.CreateBooking(ctx, record); err != nil {
		t.Fatalf("CreateBooking failed: %v", err)
	}

	reference := testfixtures.ReferenceDate().AddDate(0, 0, -1)
	err := repo.DeleteUser(ctx, user.ID, reference)
	if !errors.Is(err, persistence.ErrForeignKeyViolation) {
		t.Fatalf("expected ErrForeignKeyViolation, got %v", err)
	}

	// Once the booking is cancelled the account can be removed, sessions
	// included.
	if err := bookings.UpdateBookingStatus(ctx, record.ID, booking.StatusCancelled, testfixtures.ReferenceTime()); err != nil {
		t.Fatalf("UpdateBookingStatus failed: %v", err)
	}
	session := persistence.Session{
		ID:        "sess-1",
		UserID:    user.ID,
		Token:     "token-1",
		ExpiresAt: testfixtures.ReferenceTime().Add(time.Hour),
		CreatedAt: testfixtures.ReferenceTime(),
		UpdatedAt: testfixtures.ReferenceTime(),
	}
	if _, err := sessions.CreateSession(ctx, session); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	if err := repo.DeleteUser(ctx, user.ID, reference); err != nil {
		t.Fatalf("DeleteUser after cancel failed: %v", err)
	}
	if _, err := repo.GetUser(ctx, user.ID); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected deleted user to be absent, got %v", err)
	}
	if _, err := sessions.GetSession(ctx, session.Token); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected sessions to be removed with the user, got %v", err)
	}
}

func TestUserRepository_DeleteUser_PastBookingsDoNotBlock(t *testing.T) {
	storage := setupStorage(t)
	repo := NewUserRepository(storage)
	bookings := NewBookingRepository(storage)
	ctx := context.Background()

	user := seedUser(t, storage, testfixtures.NewUser())
	resource := seedResource(t, storage, testfixtures.NewResource())

	record := testfixtures.NewBooking(resource.ID, user.ID)
	if err := bookings.CreateBooking(ctx, record); err != nil {
		t.Fatalf("CreateBooking failed: %v", err)
	}

	// With the reference past the booking date, the history does not pin the
	// account.
	reference := record.Date.AddDate(0, 0, 1)
	if err := repo.DeleteUser(ctx, user.ID, reference); err != nil {
		t.Fatalf("DeleteUser failed: %v", err)
	}
}
