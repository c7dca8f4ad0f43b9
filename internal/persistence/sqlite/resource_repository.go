package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/campus-bookings/internal/booking"
	"github.com/example/campus-bookings/internal/persistence"
)

// ResourceRepository implements persistence.ResourceRepository.
type ResourceRepository struct {
	storage *Storage
}

// NewResourceRepository returns a repository backed by the given storage.
func NewResourceRepository(storage *Storage) *ResourceRepository {
	return &ResourceRepository{storage: storage}
}

// CreateResource inserts a resource together with its availability windows.
func (r *ResourceRepository) CreateResource(ctx context.Context, resource persistence.Resource) error {
	if resource.ID == "" {
		return persistence.ErrConstraintViolation
	}

	return r.storage.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO resources (id, name, category, location, capacity, status, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`,
			resource.ID,
			resource.Name,
			resource.Category,
			resource.Location,
			resource.Capacity,
			resource.Status,
			formatTimestamp(resource.CreatedAt),
			formatTimestamp(resource.UpdatedAt),
		)
		if err != nil {
			return mapError(err)
		}
		return insertHours(ctx, tx, resource.ID, resource.Hours)
	})
}

// UpdateResource rewrites a resource and replaces its availability windows.
func (r *ResourceRepository) UpdateResource(ctx context.Context, resource persistence.Resource) error {
	if resource.ID == "" {
		return persistence.ErrNotFound
	}

	return r.storage.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE resources
			SET name = ?, category = ?, location = ?, capacity = ?, status = ?, updated_at = ?
			WHERE id = ?
		`,
			resource.Name,
			resource.Category,
			resource.Location,
			resource.Capacity,
			resource.Status,
			formatTimestamp(resource.UpdatedAt),
			resource.ID,
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

		if _, err := tx.ExecContext(ctx, `DELETE FROM resource_hours WHERE resource_id = ?`, resource.ID); err != nil {
			return mapError(err)
		}
		return insertHours(ctx, tx, resource.ID, resource.Hours)
	})
}

// GetResource retrieves a resource and its availability windows.
func (r *ResourceRepository) GetResource(ctx context.Context, id string) (persistence.Resource, error) {
	if id == "" {
		return persistence.Resource{}, persistence.ErrNotFound
	}

	row := r.storage.db.QueryRowContext(ctx, `
		SELECT id, name, category, location, capacity, status, created_at, updated_at
		FROM resources WHERE id = ?
	`, id)

	resource, err := scanResource(row)
	if err != nil {
		return persistence.Resource{}, err
	}

	hours, err := r.loadHours(ctx, id)
	if err != nil {
		return persistence.Resource{}, err
	}
	resource.Hours = hours
	return resource, nil
}

// ListResources returns all resources with their availability windows,
// ordered by name then ID.
func (r *ResourceRepository) ListResources(ctx context.Context) ([]persistence.Resource, error) {
	rows, err := r.storage.db.QueryContext(ctx, `
		SELECT id, name, category, location, capacity, status, created_at, updated_at
		FROM resources ORDER BY name ASC, id ASC
	`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var resources []persistence.Resource
	for rows.Next() {
		resource, err := scanResource(rows)
		if err != nil {
			return nil, err
		}
		resources = append(resources, resource)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}

	for i := range resources {
		hours, err := r.loadHours(ctx, resources[i].ID)
		if err != nil {
			return nil, err
		}
		resources[i].Hours = hours
	}
	return resources, nil
}

// DeleteResource removes a resource and its windows. Deletion is blocked
// while active bookings exist on or after the reference date; past or
// terminal bookings never pin a resource.
func (r *ResourceRepository) DeleteResource(ctx context.Context, id string, reference time.Time) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	return r.storage.withTx(ctx, func(tx *sql.Tx) error {
		var active int
		err := tx.QueryRowContext(ctx, `
			SELECT COUNT(1) FROM bookings
			WHERE resource_id = ?
			  AND status IN ('pending', 'approved')
			  AND booking_date >= ?
		`, id, formatDate(reference)).Scan(&active)
		if err != nil {
			return mapError(err)
		}
		if active > 0 {
			return persistence.ErrForeignKeyViolation
		}

		// Past and terminal bookings go with the resource; only active
		// future bookings block the delete above.
		if _, err := tx.ExecContext(ctx, `DELETE FROM bookings WHERE resource_id = ?`, id); err != nil {
			return mapError(err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM resource_hours WHERE resource_id = ?`, id); err != nil {
			return mapError(err)
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM resources WHERE id = ?`, id)
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

func (r *ResourceRepository) loadHours(ctx context.Context, resourceID string) ([]persistence.AvailabilityWindow, error) {
	rows, err := r.storage.db.QueryContext(ctx, `
		SELECT weekday, open_minutes, close_minutes
		FROM resource_hours
		WHERE resource_id = ?
		ORDER BY weekday ASC, open_minutes ASC
	`, resourceID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var hours []persistence.AvailabilityWindow
	for rows.Next() {
		var weekday, open, close_ int
		if err := rows.Scan(&weekday, &open, &close_); err != nil {
			return nil, mapError(err)
		}
		hours = append(hours, persistence.AvailabilityWindow{
			Weekday: time.Weekday(weekday),
			Open:    booking.TimeOfDay(open),
			Close:   booking.TimeOfDay(close_),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return hours, nil
}

func insertHours(ctx context.Context, tx *sql.Tx, resourceID string, hours []persistence.AvailabilityWindow) error {
	for _, window := range hours {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO resource_hours (resource_id, weekday, open_minutes, close_minutes)
			VALUES (?, ?, ?, ?)
		`, resourceID, int(window.Weekday), int(window.Open), int(window.Close))
		if err != nil {
			return mapError(err)
		}
	}
	return nil
}

func scanResource(row rowScanner) (persistence.Resource, error) {
	var (
		resource           persistence.Resource
		capacity           sql.NullInt64
		createdStr, updStr string
	)
	err := row.Scan(
		&resource.ID,
		&resource.Name,
		&resource.Category,
		&resource.Location,
		&capacity,
		&resource.Status,
		&createdStr,
		&updStr,
	)
	if err != nil {
		return persistence.Resource{}, mapError(err)
	}

	if capacity.Valid {
		value := int(capacity.Int64)
		resource.Capacity = &value
	}
	if resource.CreatedAt, err = parseTimestamp(createdStr); err != nil {
		return persistence.Resource{}, err
	}
	if resource.UpdatedAt, err = parseTimestamp(updStr); err != nil {
		return persistence.Resource{}, err
	}
	return resource, nil
}
