// Package handler exposes the booking endpoints: registration, listing,
// availability, reschedule, and the bulk upload path.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"gatehouse/internal/audit"
	"gatehouse/internal/booking"
	"gatehouse/internal/booking/service"
	"gatehouse/internal/platform/middleware"
	"gatehouse/internal/transport/http/shared"
	"gatehouse/internal/visitor/models"
	dErrors "gatehouse/pkg/domain-errors"
)

// Service defines the booking operations the handler delegates to.
type Service interface {
	Book(ctx context.Context, req models.CreateVisitorRequest, actorID string) (*service.BookResult, error)
	Reschedule(ctx context.Context, id uuid.UUID, req models.RescheduleRequest, actorID string) (*models.VisitRecord, error)
	ReserveBatch(ctx context.Context, req service.BulkRequest, actorID string) (*service.BulkResult, error)
	Cancel(ctx context.Context, id uuid.UUID, actorID string) (*models.VisitRecord, error)
	Delete(ctx context.Context, id uuid.UUID, actorID string) error
	ResendConfirmation(ctx context.Context, id uuid.UUID, actorID string) error
	Get(ctx context.Context, id uuid.UUID) (*models.VisitRecord, error)
	List(ctx context.Context, filter models.ListFilter) ([]*models.VisitRecord, error)
	Availability(ctx context.Context, date models.Date) ([]booking.SlotOffer, error)
	CheckSlot(ctx context.Context, date models.Date, tod models.TimeOfDay) (*service.SlotCheck, error)
	Logs(ctx context.Context, id uuid.UUID) ([]audit.Entry, error)
}

type Handler struct {
	logger       *slog.Logger
	booking      Service
	jwtValidator middleware.JWTValidator
}

func New(booking Service, logger *slog.Logger, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		booking:      booking,
		jwtValidator: jwtValidator,
	}
}

// Register adds the booking routes. Registration, lookup, and availability
// are public; mutation of existing records requires an authenticated actor.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(br chi.Router) {
		br.Use(middleware.Recovery(h.logger))
		br.Use(middleware.RequestID)
		br.Use(middleware.Logger(h.logger))
		br.Use(middleware.Timeout(30 * time.Second))
		br.Use(middleware.ContentTypeJSON)

		br.Post("/visitors", h.handleCreate)
		br.Get("/visitors", h.handleList)
		br.Get("/visitors/search", h.handleList)
		br.Get("/visitors/{id}", h.handleGet)
		br.Get("/slots/availability", h.handleAvailability)
		br.Get("/slots/check", h.handleSlotCheck)

		br.Group(func(gr chi.Router) {
			gr.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
			gr.Post("/visitors/bulk", h.handleBulkCreate)
			gr.Post("/visitors/{id}/reschedule", h.handleReschedule)
			gr.Post("/visitors/{id}/cancel", h.handleCancel)
			gr.Post("/visitors/{id}/resend-email", h.handleResend)
			gr.Delete("/visitors/{id}", h.handleDelete)
			gr.Get("/visitors/{id}/logs", h.handleLogs)
		})
	})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	var req models.CreateVisitorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid create visitor request",
			"request_id", requestID,
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	result, err := h.booking.Book(ctx, req, middleware.GetActorID(ctx))
	if err != nil {
		h.writeServiceError(w, r, "failed to register visitor", err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, result)
}

func (h *Handler) handleBulkCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	var req service.BulkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid bulk registration request",
			"request_id", requestID,
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	result, err := h.booking.ReserveBatch(ctx, req, middleware.GetActorID(ctx))
	if err != nil {
		var rowErr *service.RowValidationError
		if errors.As(err, &rowErr) {
			shared.WriteErrorDetails(w,
				dErrors.New(dErrors.CodeBadRequest, rowErr.Error()), rowErr.Rows)
			return
		}
		h.writeServiceError(w, r, "failed to register batch", err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, result)
}

func (h *Handler) handleReschedule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var req models.RescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	rec, err := h.booking.Reschedule(ctx, id, req, middleware.GetActorID(ctx))
	if err != nil {
		h.writeServiceError(w, r, "failed to reschedule visitor", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, rec)
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	rec, err := h.booking.Cancel(ctx, id, middleware.GetActorID(ctx))
	if err != nil {
		h.writeServiceError(w, r, "failed to cancel visitor", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, rec)
}

func (h *Handler) handleResend(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.booking.ResendConfirmation(ctx, id, middleware.GetActorID(ctx)); err != nil {
		h.writeServiceError(w, r, "failed to resend confirmation", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.booking.Delete(ctx, id, middleware.GetActorID(ctx)); err != nil {
		h.writeServiceError(w, r, "failed to delete visitor", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	rec, err := h.booking.Get(ctx, id)
	if err != nil {
		h.writeServiceError(w, r, "failed to fetch visitor", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, rec)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	filter := models.ListFilter{
		Status:  models.Status(r.URL.Query().Get("status")),
		Purpose: models.Purpose(r.URL.Query().Get("purpose")),
		Query:   r.URL.Query().Get("q"),
	}
	records, err := h.booking.List(ctx, filter)
	if err != nil {
		h.writeServiceError(w, r, "failed to list visitors", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{
		"count":    len(records),
		"visitors": records,
	})
}

func (h *Handler) handleLogs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	entries, err := h.booking.Logs(ctx, id)
	if err != nil {
		h.writeServiceError(w, r, "failed to fetch visitor logs", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"logs": entries})
}

func (h *Handler) handleAvailability(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	date, ok := h.queryDate(w, r)
	if !ok {
		return
	}
	offers, err := h.booking.Availability(ctx, date)
	if err != nil {
		h.writeServiceError(w, r, "failed to compute availability", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{
		"date":  date,
		"slots": offers,
	})
}

func (h *Handler) handleSlotCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	date, ok := h.queryDate(w, r)
	if !ok {
		return
	}
	tod, err := models.ParseTimeOfDay(r.URL.Query().Get("visit_time"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "visit_time must be HH:MM"))
		return
	}
	check, err := h.booking.CheckSlot(ctx, date, tod)
	if err != nil {
		h.writeServiceError(w, r, "failed to check slot", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, check)
}

func (h *Handler) queryDate(w http.ResponseWriter, r *http.Request) (models.Date, bool) {
	raw := r.URL.Query().Get("visit_date")
	if raw == "" {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "visit_date query parameter is required"))
		return models.Date{}, false
	}
	date, err := models.ParseDate(raw)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "visit_date must be YYYY-MM-DD"))
		return models.Date{}, false
	}
	return date, true
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid visitor id"))
		return uuid.Nil, false
	}
	return id, true
}

// writeServiceError logs at a severity matching the error class and writes
// the translated envelope. Expected rejections stay at warn.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg,
			"request_id", requestID,
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, msg))
		return
	}
	h.logger.WarnContext(ctx, msg,
		"request_id", requestID,
		"error", err.Error(),
	)
	shared.WriteError(w, err)
}
