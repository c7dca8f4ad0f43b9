package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/example/campus-bookings/internal/persistence"
)

// SessionRepository implements persistence.SessionRepository.
type SessionRepository struct {
	storage *Storage
}

// NewSessionRepository returns a repository backed by the given storage.
func NewSessionRepository(storage *Storage) *SessionRepository {
	return &SessionRepository{storage: storage}
}

const sessionColumns = `id, user_id, token, expires_at, created_at, updated_at, revoked_at`

// CreateSession persists a newly issued session.
func (r *SessionRepository) CreateSession(ctx context.Context, session persistence.Session) (persistence.Session, error) {
	if session.ID == "" || session.Token == "" {
		return persistence.Session{}, persistence.ErrConstraintViolation
	}

	_, err := r.storage.db.ExecContext(ctx, `
		INSERT INTO sessions (id, user_id, token, expires_at, created_at, updated_at, revoked_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		session.ID,
		session.UserID,
		session.Token,
		formatTimestamp(session.ExpiresAt),
		formatTimestamp(session.CreatedAt),
		formatTimestamp(session.UpdatedAt),
		nullableTimestamp(session.RevokedAt),
	)
	if err != nil {
		return persistence.Session{}, mapError(err)
	}
	return session, nil
}

// GetSession retrieves a session by its token.
func (r *SessionRepository) GetSession(ctx context.Context, token string) (persistence.Session, error) {
	if token == "" {
		return persistence.Session{}, persistence.ErrNotFound
	}
	row := r.storage.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE token = ?`, token)
	return scanSession(row)
}

// UpdateSession rewrites a session row, keyed by ID so token rotation works.
func (r *SessionRepository) UpdateSession(ctx context.Context, session persistence.Session) (persistence.Session, error) {
	if session.ID == "" {
		return persistence.Session{}, persistence.ErrNotFound
	}

	result, err := r.storage.db.ExecContext(ctx, `
		UPDATE sessions
		SET token = ?, expires_at = ?, updated_at = ?, revoked_at = ?
		WHERE id = ?
	`,
		session.Token,
		formatTimestamp(session.ExpiresAt),
		formatTimestamp(session.UpdatedAt),
		nullableTimestamp(session.RevokedAt),
		session.ID,
	)
	if err != nil {
		return persistence.Session{}, mapError(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.Session{}, mapError(err)
	}
	if affected == 0 {
		return persistence.Session{}, persistence.ErrNotFound
	}
	return session, nil
}

// RevokeSession stamps a session as revoked.
func (r *SessionRepository) RevokeSession(ctx context.Context, token string, revokedAt time.Time) (persistence.Session, error) {
	session, err := r.GetSession(ctx, token)
	if err != nil {
		return persistence.Session{}, err
	}

	stamp := revokedAt.UTC()
	session.RevokedAt = &stamp
	session.UpdatedAt = stamp
	return r.UpdateSession(ctx, session)
}

// DeleteExpiredSessions prunes sessions whose expiry has passed.
func (r *SessionRepository) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	_, err := r.storage.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE expires_at <= ?`, formatTimestamp(reference))
	if err != nil {
		return mapError(err)
	}
	return nil
}

func scanSession(row rowScanner) (persistence.Session, error) {
	var (
		session            persistence.Session
		expiresStr         string
		createdStr, updStr string
		revokedStr         sql.NullString
	)
	err := row.Scan(
		&session.ID,
		&session.UserID,
		&session.Token,
		&expiresStr,
		&createdStr,
		&updStr,
		&revokedStr,
	)
	if err != nil {
		return persistence.Session{}, mapError(err)
	}

	if session.ExpiresAt, err = parseTimestamp(expiresStr); err != nil {
		return persistence.Session{}, err
	}
	if session.CreatedAt, err = parseTimestamp(createdStr); err != nil {
		return persistence.Session{}, err
	}
	if session.UpdatedAt, err = parseTimestamp(updStr); err != nil {
		return persistence.Session{}, err
	}
	if revokedStr.Valid {
		revoked, err := parseTimestamp(revokedStr.String)
		if err != nil {
			return persistence.Session{}, err
		}
		session.RevokedAt = &revoked
	}
	return session, nil
}

func nullableTimestamp(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTimestamp(*t)
}
