package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/example/campus-bookings/internal/persistence"
)

// UserRepository implements persistence.UserRepository.
type UserRepository struct {
	storage *Storage
}

// NewUserRepository returns a repository backed by the given storage.
func NewUserRepository(storage *Storage) *UserRepository {
	return &UserRepository{storage: storage}
}

const userColumns = `id, email, display_name, role, student_id, password_hash, created_at, updated_at`

// CreateUser inserts a new user. Email uniqueness is enforced by the schema
// and surfaces as ErrDuplicate.
func (r *UserRepository) CreateUser(ctx context.Context, user persistence.User) error {
	if user.ID == "" || user.PasswordHash == "" {
		return persistence.ErrConstraintViolation
	}

	_, err := r.storage.db.ExecContext(ctx, `
		INSERT INTO users (id, email, display_name, role, student_id, password_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		user.ID,
		normalizeEmail(user.Email),
		user.DisplayName,
		user.Role,
		user.StudentID,
		user.PasswordHash,
		formatTimestamp(user.CreatedAt),
		formatTimestamp(user.UpdatedAt),
	)
	if err != nil {
		return mapError(err)
	}
	return nil
}

// UpdateUser rewrites a user's profile fields. The password hash is managed
// separately through UpdatePassword.
func (r *UserRepository) UpdateUser(ctx context.Context, user persistence.User) error {
	if user.ID == "" {
		return persistence.ErrNotFound
	}

	result, err := r.storage.db.ExecContext(ctx, `
		UPDATE users
		SET email = ?, display_name = ?, role = ?, student_id = ?, updated_at = ?
		WHERE id = ?
	`,
		normalizeEmail(user.Email),
		user.DisplayName,
		user.Role,
		user.StudentID,
		formatTimestamp(user.UpdatedAt),
		user.ID,
	)
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

// UpdatePassword replaces a user's credential hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	if id == "" || passwordHash == "" {
		return persistence.ErrConstraintViolation
	}

	result, err := r.storage.db.ExecContext(ctx, `
		UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?
	`, passwordHash, formatTimestamp(updatedAt), id)
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

// GetUser retrieves a user by ID.
func (r *UserRepository) GetUser(ctx context.Context, id string) (persistence.User, error) {
	if id == "" {
		return persistence.User{}, persistence.ErrNotFound
	}
	row := r.storage.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

// GetUserByEmail retrieves a user by normalized email address.
func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (persistence.User, error) {
	if email == "" {
		return persistence.User{}, persistence.ErrNotFound
	}
	row := r.storage.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, normalizeEmail(email))
	return scanUser(row)
}

// ListUsers returns all users ordered by email then ID.
func (r *UserRepository) ListUsers(ctx context.Context) ([]persistence.User, error) {
	rows, err := r.storage.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY email ASC, id ASC`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var users []persistence.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return users, nil
}

// DeleteUser removes a user and their sessions. Deletion is blocked while
// the user holds active bookings on or after the reference date.
func (r *UserRepository) DeleteUser(ctx context.Context, id string, reference time.Time) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	return r.storage.withTx(ctx, func(tx *sql.Tx) error {
		var active int
		err := tx.QueryRowContext(ctx, `
			SELECT COUNT(1) FROM bookings
			WHERE user_id = ?
			  AND status IN ('pending', 'approved')
			  AND booking_date >= ?
		`, id, formatDate(reference)).Scan(&active)
		if err != nil {
			return mapError(err)
		}
		if active > 0 {
			return persistence.ErrForeignKeyViolation
		}

		// Past and terminal bookings go with the account; only active
		// future bookings block the delete above.
		if _, err := tx.ExecContext(ctx, `DELETE FROM bookings WHERE user_id = ?`, id); err != nil {
			return mapError(err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = ?`, id); err != nil {
			return mapError(err)
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
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
	})
}

func scanUser(row rowScanner) (persistence.User, error) {
	var (
		user               persistence.User
		createdStr, updStr string
	)
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.DisplayName,
		&user.Role,
		&user.StudentID,
		&user.PasswordHash,
		&createdStr,
		&updStr,
	)
	if err != nil {
		return persistence.User{}, mapError(err)
	}

	if user.CreatedAt, err = parseTimestamp(createdStr); err != nil {
		return persistence.User{}, err
	}
	if user.UpdatedAt, err = parseTimestamp(updStr); err != nil {
		return persistence.User{}, err
	}
	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
