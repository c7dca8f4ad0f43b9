package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/example/campus-bookings/internal/booking"
	"github.com/example/campus-bookings/internal/persistence"
)

// BookingRepository implements persistence.BookingRepository.
type BookingRepository struct {
	storage *Storage
}

// NewBookingRepository returns a repository backed by the given storage.
func NewBookingRepository(storage *Storage) *BookingRepository {
	return &BookingRepository{storage: storage}
}

const overlapQuery = `
	SELECT COUNT(1)
	FROM bookings
	WHERE resource_id = ?
	  AND booking_date = ?
	  AND status IN ('pending', 'approved')
	  AND start_minutes < ?
	  AND end_minutes > ?
`

// CreateBooking inserts a booking after re-checking for overlapping active
// bookings inside the same write transaction. SQLite admits a single writer,
// so two concurrent requests for overlapping slots serialize here and the
// loser observes the winner's row.
func (r *BookingRepository) CreateBooking(ctx context.Context, b persistence.Booking) error {
	if b.ID == "" || b.ResourceID == "" || b.UserID == "" {
		return persistence.ErrConstraintViolation
	}

	return r.storage.withTx(ctx, func(tx *sql.Tx) error {
		var overlapping int
		err := tx.QueryRowContext(ctx, overlapQuery,
			b.ResourceID,
			formatDate(b.Date),
			int(b.End),
			int(b.Start),
		).Scan(&overlapping)
		if err != nil {
			return mapError(err)
		}
		if overlapping > 0 {
			return persistence.ErrConflict
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO bookings
				(id, resource_id, user_id, booking_date, start_minutes, end_minutes, status, title, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			b.ID,
			b.ResourceID,
			b.UserID,
			formatDate(b.Date),
			int(b.Start),
			int(b.End),
			string(b.Status),
			b.Title,
			formatTimestamp(b.CreatedAt),
			formatTimestamp(b.UpdatedAt),
		)
		if err != nil {
			return mapError(err)
		}
		return nil
	})
}

// HasOverlap reports whether any active booking on the resource and date
// overlaps the slot. This read is advisory; CreateBooking repeats the check
// transactionally.
func (r *BookingRepository) HasOverlap(ctx context.Context, resourceID string, date time.Time, slot booking.Interval) (bool, error) {
	var overlapping int
	err := r.storage.db.QueryRowContext(ctx, overlapQuery,
		resourceID,
		formatDate(date),
		int(slot.End),
		int(slot.Start),
	).Scan(&overlapping)
	if err != nil {
		return false, mapError(err)
	}
	return overlapping > 0, nil
}

const bookingColumns = `id, resource_id, user_id, booking_date, start_minutes, end_minutes, status, title, created_at, updated_at`

// GetBooking retrieves a booking by ID.
func (r *BookingRepository) GetBooking(ctx context.Context, id string) (persistence.Booking, error) {
	if id == "" {
		return persistence.Booking{}, persistence.ErrNotFound
	}

	row := r.storage.db.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id)
	return scanBooking(row)
}

// UpdateBookingStatus moves a booking to the given status. Cancellation keeps
// the row so the slot history stays queryable.
func (r *BookingRepository) UpdateBookingStatus(ctx context.Context, id string, status booking.Status, updatedAt time.Time) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	result, err := r.storage.db.ExecContext(ctx, `
		UPDATE bookings SET status = ?, updated_at = ? WHERE id = ?
	`, string(status), formatTimestamp(updatedAt), id)
	if err != nil {
		return mapError(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// ListBookings returns bookings matching the filter ordered by date
// descending, then start time descending, then ID.
func (r *BookingRepository) ListBookings(ctx context.Context, filter persistence.BookingFilter) ([]persistence.Booking, error) {
	var (
		clauses []string
		args    []any
	)
	if filter.Date != nil {
		clauses = append(clauses, "booking_date = ?")
		args = append(args, formatDate(*filter.Date))
	}
	if filter.ResourceID != "" {
		clauses = append(clauses, "resource_id = ?")
		args = append(args, filter.ResourceID)
	}
	if filter.UserID != "" {
		clauses = append(clauses, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.Status != nil {
		clauses = append(clauses, "status = ?")
		args = append(args, string(*filter.Status))
	}

	query := `SELECT ` + bookingColumns + ` FROM bookings`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY booking_date DESC, start_minutes DESC, id ASC"

	rows, err := r.storage.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var bookings []persistence.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return bookings, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (persistence.Booking, error) {
	var (
		b                  persistence.Booking
		dateStr            string
		startMin, endMin   int
		status             string
		createdStr, updStr string
	)
	err := row.Scan(
		&b.ID,
		&b.ResourceID,
		&b.UserID,
		&dateStr,
		&startMin,
		&endMin,
		&status,
		&b.Title,
		&createdStr,
		&updStr,
	)
	if err != nil {
		return persistence.Booking{}, mapError(err)
	}

	if b.Date, err = parseDate(dateStr); err != nil {
		return persistence.Booking{}, err
	}
	b.Start = booking.TimeOfDay(startMin)
	b.End = booking.TimeOfDay(endMin)
	b.Status = booking.Status(status)
	if b.CreatedAt, err = parseTimestamp(createdStr); err != nil {
		return persistence.Booking{}, err
	}
	if b.UpdatedAt, err = parseTimestamp(updStr); err != nil {
		return persistence.Booking{}, err
	}
	return b, nil
}
