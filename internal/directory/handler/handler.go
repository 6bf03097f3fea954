// Package handler exposes the directory lookups backing the registration
// form. Both routes are public reads.
package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"gatehouse/internal/directory"
	"gatehouse/internal/platform/middleware"
	"gatehouse/internal/transport/http/shared"
)

type Service interface {
	Departments() []directory.Department
	Hosts() []directory.Host
}

type Handler struct {
	logger    *slog.Logger
	directory Service
}

func New(directory Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, directory: directory}
}

func (h *Handler) Register(r chi.Router) {
	r.Group(func(dr chi.Router) {
		dr.Use(middleware.Recovery(h.logger))
		dr.Use(middleware.RequestID)
		dr.Use(middleware.Logger(h.logger))
		dr.Use(middleware.Timeout(30 * time.Second))
		dr.Use(middleware.ContentTypeJSON)

		dr.Get("/departments", h.handleDepartments)
		dr.Get("/hosts", h.handleHosts)
	})
}

func (h *Handler) handleDepartments(w http.ResponseWriter, _ *http.Request) {
	shared.WriteJSON(w, http.StatusOK, h.directory.Departments())
}

func (h *Handler) handleHosts(w http.ResponseWriter, _ *http.Request) {
	hosts := h.directory.Hosts()
	shared.WriteJSON(w, http.StatusOK, map[string]any{
		"hosts": hosts,
		"total": len(hosts),
	})
}
