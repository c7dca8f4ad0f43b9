package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/campus-bookings/internal/application"
	"github.com/example/campus-bookings/internal/booking"
)

type resourceService interface {
	CreateResource(ctx context.Context, params application.CreateResourceParams) (application.Resource, error)
	GetResource(ctx context.Context, principal application.Principal, resourceID string) (application.Resource, error)
	UpdateResource(ctx context.Context, params application.UpdateResourceParams) (application.Resource, error)
	DeleteResource(ctx context.Context, principal application.Principal, resourceID string) error
	ListResources(ctx context.Context, principal application.Principal) ([]application.Resource, error)
}

// ResourceHandler exposes the resource catalog over HTTP.
type ResourceHandler struct {
	service   resourceService
	responder responder
	logger    *slog.Logger
}

func NewResourceHandler(service resourceService, logger *slog.Logger) *ResourceHandler {
	base := defaultLogger(logger)
	return &ResourceHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *ResourceHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "ResourceHandler", operation, attrs...)
}

func (h *ResourceHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req resourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	input, vErr := req.toInput()
	if vErr.HasErrors() {
		h.responder.handleServiceError(r.Context(), w, vErr)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Create", "name", input.Name)

	created, err := h.service.CreateResource(r.Context(), application.CreateResourceParams{
		Principal: principal,
		Input:     input,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "failed to create resource", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toResourceDTO(created))
}

func (h *ResourceHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	resourceID, ok := ResourceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(resourceID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	resource, err := h.service.GetResource(r.Context(), principal, resourceID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toResourceDTO(resource))
}

func (h *ResourceHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	resourceID, ok := ResourceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(resourceID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	var req resourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	input, vErr := req.toInput()
	if vErr.HasErrors() {
		h.responder.handleServiceError(r.Context(), w, vErr)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Update", "resource_id", resourceID)

	updated, err := h.service.UpdateResource(r.Context(), application.UpdateResourceParams{
		Principal:  principal,
		ResourceID: resourceID,
		Input:      input,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "failed to update resource", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toResourceDTO(updated))
}

func (h *ResourceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	resourceID, ok := ResourceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(resourceID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	if err := h.service.DeleteResource(r.Context(), principal, resourceID); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *ResourceHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	resources, err := h.service.ListResources(r.Context(), principal)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listResourcesResponse{Resources: toResourceDTOs(resources)})
}

type windowDTO struct {
	Weekday string `json:"weekday"`
	Open    string `json:"open"`
	Close   string `json:"close"`
}

type resourceRequest struct {
	Name     string      `json:"name"`
	Category string      `json:"category"`
	Location string      `json:"location"`
	Capacity *int        `json:"capacity,omitempty"`
	Status   string      `json:"status,omitempty"`
	Hours    []windowDTO `json:"hours"`
}

func (req resourceRequest) toInput() (application.ResourceInput, *application.ValidationError) {
	vErr := &application.ValidationError{FieldErrors: map[string]string{}}
	input := application.ResourceInput{
		Name:     req.Name,
		Category: req.Category,
		Location: req.Location,
		Capacity: req.Capacity,
		Status:   application.ResourceStatus(strings.ToLower(strings.TrimSpace(req.Status))),
	}

	for i, window := range req.Hours {
		field := fmt.Sprintf("hours[%d]", i)
		weekday, err := parseWeekday(window.Weekday)
		if err != nil {
			vErr.FieldErrors[field] = "unknown weekday"
			continue
		}
		open, err := booking.ParseTimeOfDay(window.Open)
		if err != nil {
			vErr.FieldErrors[field] = "open must use the HH:MM format"
			continue
		}
		closeAt, err := booking.ParseTimeOfDay(window.Close)
		if err != nil {
			vErr.FieldErrors[field] = "close must use the HH:MM format"
			continue
		}
		input.Hours = append(input.Hours, application.AvailabilityWindow{
			Weekday: weekday,
			Open:    open,
			Close:   closeAt,
		})
	}

	if len(vErr.FieldErrors) == 0 {
		return input, &application.ValidationError{}
	}
	return input, vErr
}

type resourceDTO struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Category  string      `json:"category"`
	Location  string      `json:"location,omitempty"`
	Capacity  *int        `json:"capacity,omitempty"`
	Status    string      `json:"status"`
	Hours     []windowDTO `json:"hours"`
	CreatedAt string      `json:"created_at"`
	UpdatedAt string      `json:"updated_at"`
}

type listResourcesResponse struct {
	Resources []resourceDTO `json:"resources"`
}

func toResourceDTO(resource application.Resource) resourceDTO {
	hours := make([]windowDTO, 0, len(resource.Hours))
	for _, window := range resource.Hours {
		hours = append(hours, windowDTO{
			Weekday: strings.ToLower(window.Weekday.String()),
			Open:    window.Open.String(),
			Close:   window.Close.String(),
		})
	}
	return resourceDTO{
		ID:        resource.ID,
		Name:      resource.Name,
		Category:  resource.Category,
		Location:  resource.Location,
		Capacity:  resource.Capacity,
		Status:    string(resource.Status),
		Hours:     hours,
		CreatedAt: resource.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt: resource.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func toResourceDTOs(resources []application.Resource) []resourceDTO {
	out := make([]resourceDTO, 0, len(resources))
	for _, resource := range resources {
		out = append(out, toResourceDTO(resource))
	}
	return out
}

func parseWeekday(value string) (time.Weekday, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "sunday":
		return time.Sunday, nil
	case "monday":
		return time.Monday, nil
	case "tuesday":
		return time.Tuesday, nil
	case "wednesday":
		return time.Wednesday, nil
	case "thursday":
		return time.Thursday, nil
	case "friday":
		return time.Friday, nil
	case "saturday":
		return time.Saturday, nil
	}
	return time.Sunday, fmt.Errorf("http: unknown weekday %q", value)
}
