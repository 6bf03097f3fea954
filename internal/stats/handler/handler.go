// Package handler exposes the dashboard summary endpoint.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"gatehouse/internal/platform/middleware"
	"gatehouse/internal/stats"
	"gatehouse/internal/transport/http/shared"
	dErrors "gatehouse/pkg/domain-errors"
)

type Service interface {
	Summary(ctx context.Context) (*stats.Summary, error)
}

type Handler struct {
	logger       *slog.Logger
	stats        Service
	jwtValidator middleware.JWTValidator
}

func New(stats Service, logger *slog.Logger, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{logger: logger, stats: stats, jwtValidator: jwtValidator}
}

func (h *Handler) Register(r chi.Router) {
	r.Group(func(sr chi.Router) {
		sr.Use(middleware.Recovery(h.logger))
		sr.Use(middleware.RequestID)
		sr.Use(middleware.Logger(h.logger))
		sr.Use(middleware.Timeout(30 * time.Second))
		sr.Use(middleware.ContentTypeJSON)
		sr.Use(middleware.RequireAuth(h.jwtValidator, h.logger))

		sr.Get("/stats/dashboard", h.handleStats)
	})
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	summary, err := h.stats.Summary(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to compute dashboard stats",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to compute dashboard stats"))
		return
	}
	shared.WriteJSON(w, http.StatusOK, summary)
}
