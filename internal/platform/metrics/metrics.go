package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	VisitorsRegistered  prometheus.Counter
	BulkBatchesReserved prometheus.Counter
	CapacityRejections  prometheus.Counter
	Verifications       *prometheus.CounterVec
	SweepTransitions    *prometheus.CounterVec
	BookingDuration     prometheus.Histogram
}

// New creates and registers all metrics on the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers the metrics on a specific registerer. Tests pass a fresh
// registry so repeated construction does not collide.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		VisitorsRegistered: factory.NewCounter(prometheus.CounterOpts{
			Name: "gatehouse_visitors_registered_total",
			Help: "Total number of visit records created",
		}),
		BulkBatchesReserved: factory.NewCounter(prometheus.CounterOpts{
			Name: "gatehouse_bulk_batches_reserved_total",
			Help: "Total number of bulk reservation batches committed",
		}),
		CapacityRejections: factory.NewCounter(prometheus.CounterOpts{
			Name: "gatehouse_capacity_rejections_total",
			Help: "Total number of reservations rejected for lack of slot capacity",
		}),
		Verifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gatehouse_verifications_total",
			Help: "Credential verification attempts by outcome",
		}, []string{"outcome"}),
		SweepTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gatehouse_sweep_transitions_total",
			Help: "Lifecycle transitions applied by the expiration sweep",
		}, []string{"to"}),
		BookingDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "gatehouse_booking_duration_seconds",
			Help:    "Latency of booking commits",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
