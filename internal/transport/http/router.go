// Package httptransport assembles the public router from the feature
// handlers. It owns only composition and the operational endpoints; every
// domain route lives with its feature.
package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"gatehouse/internal/transport/http/shared"
)

// Registrar is implemented by feature handlers that attach their routes to
// the shared root router.
type Registrar interface {
	Register(r chi.Router)
}

// HealthChecker reports backend liveness for the health endpoint.
type HealthChecker func() error

// NewRouter composes the feature handlers into one chi router, wrapped with
// OpenTelemetry HTTP instrumentation. A non-nil limiter is applied to every
// route ahead of the feature middleware chains.
func NewRouter(health HealthChecker, limiter func(http.Handler) http.Handler, features ...Registrar) http.Handler {
	r := chi.NewRouter()
	if limiter != nil {
		r.Use(limiter)
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if health != nil {
			if err := health(); err != nil {
				shared.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
					"status": "unhealthy",
					"error":  err.Error(),
				})
				return
			}
		}
		shared.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	for _, feature := range features {
		feature.Register(r)
	}

	return otelhttp.NewHandler(r, "gatehouse")
}
