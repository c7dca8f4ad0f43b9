package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/example/campus-bookings/internal/application"
	"github.com/example/campus-bookings/internal/booking"
)

const dateLayout = "2006-01-02"

type bookingService interface {
	RequestBooking(ctx context.Context, params application.RequestBookingParams) (application.Booking, error)
	GetBooking(ctx context.Context, principal application.Principal, bookingID string) (application.Booking, error)
	ListBookings(ctx context.Context, principal application.Principal, filter application.BookingFilter) ([]application.Booking, error)
	Transition(ctx context.Context, params application.TransitionParams) (application.Booking, error)
}

// BookingHandler exposes the booking ledger over HTTP.
type BookingHandler struct {
	service   bookingService
	responder responder
	logger    *slog.Logger
}

func NewBookingHandler(service bookingService, logger *slog.Logger) *BookingHandler {
	base := defaultLogger(logger)
	return &BookingHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *BookingHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "BookingHandler", operation, attrs...)
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req bookingRequest
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
	logger := h.log(r.Context(), "Create", "resource_id", input.ResourceID)

	created, err := h.service.RequestBooking(r.Context(), application.RequestBookingParams{
		Principal: principal,
		Input:     input,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "failed to create booking", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toBookingDTO(created))
}

func (h *BookingHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	bookingID, ok := BookingIDFromContext(r.Context())
	if !ok || strings.TrimSpace(bookingID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidBookingID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	record, err := h.service.GetBooking(r.Context(), principal, bookingID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toBookingDTO(record))
}

func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	filter, vErr := parseBookingFilter(r.URL.Query())
	if vErr.HasErrors() {
		h.responder.handleServiceError(r.Context(), w, vErr)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	records, err := h.service.ListBookings(r.Context(), principal, filter)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listBookingsResponse{Bookings: toBookingDTOs(records)})
}

func (h *BookingHandler) Transition(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	bookingID, ok := BookingIDFromContext(r.Context())
	if !ok || strings.TrimSpace(bookingID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidBookingID)
		return
	}

	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	target, err := booking.ParseStatus(req.Status)
	if err != nil {
		vErr := &application.ValidationError{FieldErrors: map[string]string{"status": "unknown status"}}
		h.responder.handleServiceError(r.Context(), w, vErr)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Transition", "booking_id", bookingID, "target_status", req.Status)

	updated, err := h.service.Transition(r.Context(), application.TransitionParams{
		Principal: principal,
		BookingID: bookingID,
		Target:    target,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "failed to transition booking", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toBookingDTO(updated))
}

type bookingRequest struct {
	ResourceID string  `json:"resource_id"`
	Date       string  `json:"date"`
	Start      string  `json:"start"`
	End        string  `json:"end"`
	Title      *string `json:"title,omitempty"`
}

func (req bookingRequest) toInput() (application.BookingInput, *application.ValidationError) {
	vErr := &application.ValidationError{FieldErrors: map[string]string{}}
	input := application.BookingInput{
		ResourceID: strings.TrimSpace(req.ResourceID),
		Title:      req.Title,
	}

	if strings.TrimSpace(req.Date) == "" {
		vErr.FieldErrors["date"] = "date is required"
	} else if parsed, err := time.Parse(dateLayout, req.Date); err != nil {
		vErr.FieldErrors["date"] = "date must use the YYYY-MM-DD format"
	} else {
		input.Date = parsed
	}

	if start, err := booking.ParseTimeOfDay(req.Start); err != nil {
		vErr.FieldErrors["start"] = "start must use the HH:MM format"
	} else {
		input.Start = start
	}
	if end, err := booking.ParseTimeOfDay(req.End); err != nil {
		vErr.FieldErrors["end"] = "end must use the HH:MM format"
	} else {
		input.End = end
	}

	if len(vErr.FieldErrors) == 0 {
		return input, &application.ValidationError{}
	}
	return input, vErr
}

type transitionRequest struct {
	Status string `json:"status"`
}

type bookingDTO struct {
	ID         string  `json:"id"`
	ResourceID string  `json:"resource_id"`
	UserID     string  `json:"user_id"`
	Date       string  `json:"date"`
	Start      string  `json:"start"`
	End        string  `json:"end"`
	Status     string  `json:"status"`
	Title      *string `json:"title,omitempty"`
	CreatedAt  string  `json:"created_at"`
	UpdatedAt  string  `json:"updated_at"`
}

type listBookingsResponse struct {
	Bookings []bookingDTO `json:"bookings"`
}

func toBookingDTO(record application.Booking) bookingDTO {
	return bookingDTO{
		ID:         record.ID,
		ResourceID: record.ResourceID,
		UserID:     record.UserID,
		Date:       record.Date.UTC().Format(dateLayout),
		Start:      record.Start.String(),
		End:        record.End.String(),
		Status:     string(record.Status),
		Title:      record.Title,
		CreatedAt:  record.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:  record.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func toBookingDTOs(records []application.Booking) []bookingDTO {
	out := make([]bookingDTO, 0, len(records))
	for _, record := range records {
		out = append(out, toBookingDTO(record))
	}
	return out
}

func parseBookingFilter(query url.Values) (application.BookingFilter, *application.ValidationError) {
	vErr := &application.ValidationError{FieldErrors: map[string]string{}}
	filter := application.BookingFilter{
		ResourceID: strings.TrimSpace(query.Get("resource_id")),
		UserID:     strings.TrimSpace(query.Get("user_id")),
	}

	if raw := strings.TrimSpace(query.Get("date")); raw != "" {
		parsed, err := time.Parse(dateLayout, raw)
		if err != nil {
			vErr.FieldErrors["date"] = "date must use the YYYY-MM-DD format"
		} else {
			filter.Date = &parsed
		}
	}
	if raw := strings.TrimSpace(query.Get("status")); raw != "" {
		status, err := booking.ParseStatus(raw)
		if err != nil {
			vErr.FieldErrors["status"] = "unknown status"
		} else {
			filter.Status = &status
		}
	}

	if len(vErr.FieldErrors) == 0 {
		return filter, &application.ValidationError{}
	}
	return filter, vErr
}
