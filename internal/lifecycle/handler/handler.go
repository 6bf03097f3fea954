// Package handler exposes the gate endpoints: credential verification and
// visitor checkout.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"gatehouse/internal/platform/middleware"
	"gatehouse/internal/transport/http/shared"
	"gatehouse/internal/visitor/models"
	dErrors "gatehouse/pkg/domain-errors"
)

// Service defines the lifecycle operations the handler delegates to.
type Service interface {
	Verify(ctx context.Context, req models.VerifyRequest) (*models.VerifyResult, error)
	Complete(ctx context.Context, id uuid.UUID, actorID string) (*models.VisitRecord, error)
}

type Handler struct {
	logger       *slog.Logger
	lifecycle    Service
	jwtValidator middleware.JWTValidator
}

func New(lifecycle Service, logger *slog.Logger, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		lifecycle:    lifecycle,
		jwtValidator: jwtValidator,
	}
}

// Register adds the gate routes. Verification is public so the gate kiosk
// can call it unauthenticated; checkout requires staff.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(lr chi.Router) {
		lr.Use(middleware.Recovery(h.logger))
		lr.Use(middleware.RequestID)
		lr.Use(middleware.Logger(h.logger))
		lr.Use(middleware.Timeout(15 * time.Second))
		lr.Use(middleware.ContentTypeJSON)

		lr.Post("/verify", h.handleVerify)

		lr.Group(func(gr chi.Router) {
			gr.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
			gr.Post("/visitors/{id}/complete", h.handleCheckout)
		})
	})
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	var req models.VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid verification request",
			"request_id", requestID,
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	req.Credential = strings.TrimSpace(req.Credential)
	if req.Credential == "" {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "credential is required"))
		return
	}
	req.ActorID = middleware.GetActorID(ctx)

	result, err := h.lifecycle.Verify(ctx, req)
	if err != nil {
		if dErrors.CodeOf(err) == dErrors.CodeInternal {
			h.logger.ErrorContext(ctx, "verification failed",
				"request_id", requestID,
				"error", err.Error(),
			)
			shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "verification failed"))
			return
		}
		h.logger.WarnContext(ctx, "verification rejected",
			"request_id", requestID,
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleCheckout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid visitor id"))
		return
	}

	rec, err := h.lifecycle.Complete(ctx, id, middleware.GetActorID(ctx))
	if err != nil {
		if dErrors.CodeOf(err) == dErrors.CodeInternal {
			h.logger.ErrorContext(ctx, "checkout failed",
				"request_id", middleware.GetRequestID(ctx),
				"error", err.Error(),
			)
			shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "checkout failed"))
			return
		}
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, rec)
}
