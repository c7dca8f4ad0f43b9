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

// ResourceRepository captures the persistence operations needed by the
// service.
type ResourceRepository interface {
	CreateResource(ctx context.Context, resource Resource) (Resource, error)
	GetResource(ctx context.Context, id string) (Resource, error)
	UpdateResource(ctx context.Context, resource Resource) (Resource, error)
	DeleteResource(ctx context.Context, id string, reference time.Time) error
	ListResources(ctx context.Context) ([]Resource, error)
}

// ResourceService orchestrates validation, authorization, and persistence
// for the resource catalog.
type ResourceService struct {
	resources   ResourceRepository
	maxCapacity int
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewResourceService constructs a resource service with the provided
// dependencies.
func NewResourceService(resources ResourceRepository, maxCapacity int, idGenerator func() string, now func() time.Time) *ResourceService {
	return NewResourceServiceWithLogger(resources, maxCapacity, idGenerator, now, nil)
}

// NewResourceServiceWithLogger constructs a resource service with a
// specified logger.
func NewResourceServiceWithLogger(resources ResourceRepository, maxCapacity int, idGenerator func() string, now func() time.Time, logger *slog.Logger) *ResourceService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	if maxCapacity <= 0 {
		maxCapacity = 1000
	}
	return &ResourceService{
		resources:   resources,
		maxCapacity: maxCapacity,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *ResourceService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ResourceService", operation, attrs...)
}

// CreateResource validates input and persists a new resource for
// administrators.
func (s *ResourceService) CreateResource(ctx context.Context, params CreateResourceParams) (resource Resource, err error) {
	if s == nil {
		err = fmt.Errorf("ResourceService is nil")
		return
	}
	if s.resources == nil {
		err = fmt.Errorf("resource repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "CreateResource",
		"principal_id", params.Principal.UserID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create resource", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("resource_id", resource.ID).InfoContext(ctx, "resource created")
	}()

	if !params.Principal.IsAdmin() {
		err = ErrUnauthorized
		return
	}

	input := params.Input
	if input.Status == "" {
		input.Status = ResourceAvailable
	}

	vErr := s.validateResourceInput(input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	createdAt := s.now().UTC()
	resource = Resource{
		ID:        s.idGenerator(),
		Name:      strings.TrimSpace(input.Name),
		Category:  strings.TrimSpace(input.Category),
		Location:  strings.TrimSpace(input.Location),
		Capacity:  input.Capacity,
		Status:    input.Status,
		Hours:     sortWindows(input.Hours),
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}

	var persisted Resource
	persisted, err = s.resources.CreateResource(ctx, resource)
	if err != nil {
		err = mapResourceRepoError(err)
		return
	}

	resource = persisted
	return
}

// UpdateResource validates input and updates an existing resource for
// administrators.
func (s *ResourceService) UpdateResource(ctx context.Context, params UpdateResourceParams) (resource Resource, err error) {
	if s == nil {
		err = fmt.Errorf("ResourceService is nil")
		return
	}
	if s.resources == nil {
		err = fmt.Errorf("resource repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateResource",
		"principal_id", params.Principal.UserID,
		"resource_id", params.ResourceID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update resource", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "resource updated")
	}()

	if !params.Principal.IsAdmin() {
		err = ErrUnauthorized
		return
	}

	input := params.Input
	if input.Status == "" {
		input.Status = ResourceAvailable
	}

	vErr := s.validateResourceInput(input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var existing Resource
	existing, err = s.resources.GetResource(ctx, params.ResourceID)
	if err != nil {
		err = mapResourceRepoError(err)
		return
	}

	updated := existing
	updated.Name = strings.TrimSpace(input.Name)
	updated.Category = strings.TrimSpace(input.Category)
	updated.Location = strings.TrimSpace(input.Location)
	updated.Capacity = input.Capacity
	updated.Status = input.Status
	updated.Hours = sortWindows(input.Hours)
	updated.UpdatedAt = s.now().UTC()

	resource, err = s.resources.UpdateResource(ctx, updated)
	if err != nil {
		err = mapResourceRepoError(err)
		return
	}

	return
}

// DeleteResource removes a resource when no active future bookings depend
// on it.
func (s *ResourceService) DeleteResource(ctx context.Context, principal Principal, resourceID string) error {
	if s == nil {
		return fmt.Errorf("ResourceService is nil")
	}
	if s.resources == nil {
		return fmt.Errorf("resource repository not configured")
	}
	if !principal.IsAdmin() {
		return ErrUnauthorized
	}

	logger := s.loggerWith(ctx, "DeleteResource",
		"principal_id", principal.UserID,
		"resource_id", resourceID,
	)

	if err := s.resources.DeleteResource(ctx, resourceID, normalizeDate(s.now())); err != nil {
		err = mapResourceRepoError(err)
		logger.ErrorContext(ctx, "failed to delete resource", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	logger.InfoContext(ctx, "resource deleted")
	return nil
}

// GetResource fetches a single resource for any authenticated user.
func (s *ResourceService) GetResource(ctx context.Context, principal Principal, resourceID string) (resource Resource, err error) {
	if s == nil {
		err = fmt.Errorf("ResourceService is nil")
		return
	}
	if s.resources == nil {
		err = fmt.Errorf("resource repository not configured")
		return
	}
	if !principal.Authenticated() {
		err = ErrUnauthenticated
		return
	}

	resource, err = s.resources.GetResource(ctx, resourceID)
	if err != nil {
		err = mapResourceRepoError(err)
		return
	}
	return
}

// ListResources returns the catalog for any authenticated user, ordered by
// name.
func (s *ResourceService) ListResources(ctx context.Context, principal Principal) (resources []Resource, err error) {
	if s == nil {
		err = fmt.Errorf("ResourceService is nil")
		return
	}
	if s.resources == nil {
		return nil, nil
	}

	logger := s.loggerWith(ctx, "ListResources",
		"principal_id", principal.UserID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list resources", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(resources)).InfoContext(ctx, "resources listed")
	}()

	if !principal.Authenticated() {
		err = ErrUnauthenticated
		return
	}

	var raw []Resource
	raw, err = s.resources.ListResources(ctx)
	if err != nil {
		err = mapResourceRepoError(err)
		return
	}

	resources = make([]Resource, len(raw))
	copy(resources, raw)

	sort.Slice(resources, func(i, j int) bool {
		if strings.EqualFold(resources[i].Name, resources[j].Name) {
			return resources[i].ID < resources[j].ID
		}
		return strings.ToLower(resources[i].Name) < strings.ToLower(resources[j].Name)
	})

	return
}

func (s *ResourceService) validateResourceInput(input ResourceInput) *ValidationError {
	vErr := &ValidationError{}

	if strings.TrimSpace(input.Name) == "" {
		vErr.add("name", "name is required")
	}
	if strings.TrimSpace(input.Category) == "" {
		vErr.add("category", "category is required")
	}
	if input.Capacity != nil {
		if *input.Capacity <= 0 {
			vErr.add("capacity", "capacity must be positive")
		} else if *input.Capacity > s.maxCapacity {
			vErr.add("capacity", fmt.Sprintf("capacity must be at most %d", s.maxCapacity))
		}
	}
	if !input.Status.Valid() {
		vErr.add("status", "unknown status")
	}

	validateWindows(input.Hours, vErr)

	return vErr
}

// validateWindows checks each window for shape and rejects overlapping
// windows on the same weekday.
func validateWindows(windows []AvailabilityWindow, vErr *ValidationError) {
	byWeekday := make(map[time.Weekday][]booking.Interval)
	for i, window := range windows {
		field := fmt.Sprintf("hours[%d]", i)
		if window.Weekday < time.Sunday || window.Weekday > time.Saturday {
			vErr.add(field, "unknown weekday")
			continue
		}
		interval := window.Interval()
		if !interval.Valid() {
			vErr.add(field, "open must be before close")
			continue
		}
		for _, other := range byWeekday[window.Weekday] {
			if interval.Overlaps(other) {
				vErr.add(field, "windows on the same weekday must not overlap")
				break
			}
		}
		byWeekday[window.Weekday] = append(byWeekday[window.Weekday], interval)
	}
}

func sortWindows(windows []AvailabilityWindow) []AvailabilityWindow {
	if len(windows) == 0 {
		return nil
	}
	sorted := make([]AvailabilityWindow, len(windows))
	copy(sorted, windows)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Weekday != sorted[j].Weekday {
			return sorted[i].Weekday < sorted[j].Weekday
		}
		return sorted[i].Open < sorted[j].Open
	})
	return sorted
}

func mapResourceRepoError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrDuplicate):
		return ErrAlreadyExists
	case errors.Is(err, persistence.ErrForeignKeyViolation):
		return ErrInUse
	case errors.Is(err, persistence.ErrConstraintViolation):
		vErr := &ValidationError{}
		vErr.add("capacity", "capacity must be positive")
		return vErr
	}
	return fmt.Errorf("%w: %v", ErrStorage, err)
}
