// Package metrics exposes Prometheus instrumentation for the client core.
// The embedding app decides whether and where to serve the handler; the CLI
// registers on a private registry so repeated invocations never collide.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for MarketKit.
// Pass to components that need to record metrics.
type Metrics struct {
	// CartSyncTotal counts outbound cart writes by op (save/patch/delete)
	// and result (ok/error).
	CartSyncTotal *prometheus.CounterVec

	// CartSyncDropsTotal counts cart writes dropped due to queue overflow.
	CartSyncDropsTotal prometheus.Counter

	// AuthRequestsTotal counts auth operations by op and result.
	AuthRequestsTotal *prometheus.CounterVec

	// StorageErrorsTotal counts swallowed durable-storage failures.
	StorageErrorsTotal prometheus.Counter

	registry *prometheus.Registry
}

// New creates a private registry and registers all MarketKit metrics on it.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := NewWithRegistry(reg)
	m.registry = reg
	return m
}

// NewWithRegistry registers all metrics with the given registry.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		CartSyncTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "marketkit",
				Name:      "cart_sync_total",
				Help:      "Total outbound cart writes",
			},
			[]string{"op", "result"}, // op=save/patch/delete, result=ok/error
		),
		CartSyncDropsTotal: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: "marketkit",
				Name:      "cart_sync_drops_total",
				Help:      "Total cart writes dropped due to queue overflow",
			},
		),
		AuthRequestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "marketkit",
				Name:      "auth_requests_total",
				Help:      "Total auth operations",
			},
			[]string{"op", "result"}, // op=login/signup/..., result=ok/error
		),
		StorageErrorsTotal: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: "marketkit",
				Name:      "storage_errors_total",
				Help:      "Total swallowed durable-storage failures",
			},
		),
	}
}

// Handler returns an http.Handler serving the metrics, for embedding apps
// that expose a debug endpoint. Returns nil when the Metrics were built on
// an external registry via NewWithRegistry.
func (m *Metrics) Handler() http.Handler {
	if m.registry == nil {
		return nil
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
