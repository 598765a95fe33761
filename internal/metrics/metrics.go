// Package metrics define los collectors Prometheus del servicio.
// Vive aparte para que servicios y middlewares lo importen sin ciclos.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	AuthEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_events_total",
		Help: "Eventos de cuenta por tipo y resultado",
	}, []string{"event", "status"}) // event: login|refresh, status: success|failure|blocked|error

	TenantProvisioning = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tenant_provisioning_total",
		Help: "Altas de tenant por tipo y resultado",
	}, []string{"kind", "result"}) // kind: managed|self_hosted

	TenantMigrations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tenant_migrations_total",
		Help: "Migraciones de tenant por resultado",
	}, []string{"result"}) // result: applied|skipped|failed

	TenantMigrationDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "tenant_migration_duration_seconds",
		Help:    "Duración de migraciones de tenant",
		Buckets: []float64{0.1, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0, 60.0},
	})

	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Número total de requests procesadas",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Latencia de los requests HTTP",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	HTTPInflight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_inflight_requests",
		Help: "Requests en vuelo",
	})
)

// Register registra todos los collectors (y los extra) en reg, o en el default si es nil.
// Registrar dos veces no es error.
func Register(reg prometheus.Registerer, extra ...prometheus.Collector) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	collectors := []prometheus.Collector{
		AuthEvents, TenantProvisioning, TenantMigrations, TenantMigrationDuration,
		HTTPRequests, HTTPRequestDuration, HTTPInflight,
	}
	collectors = append(collectors, extra...)
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				return err
			}
		}
	}
	return nil
}

// Handler expone el gatherer global.
func Handler() http.Handler { return promhttp.Handler() }

func RecordAuthEvent(event, status string) {
	AuthEvents.WithLabelValues(event, status).Inc()
}

func RecordProvisioning(kind, result string) {
	TenantProvisioning.WithLabelValues(kind, result).Inc()
}

// RecordTenantMigration registra el resultado de una migración de tenant.
func RecordTenantMigration(result string, duration time.Duration) {
	TenantMigrations.WithLabelValues(result).Inc()
	TenantMigrationDuration.Observe(duration.Seconds())
}

func ObserveHTTP(method, path string, status int, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	HTTPRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
}
