// Package httptransport assembles the public HTTP surface: domain handlers,
// health and metrics endpoints, and process-wide instrumentation.
package httptransport

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"polledger/internal/platform/metrics"
	"polledger/internal/transport/http/shared"
	dErrors "polledger/pkg/domain-errors"
)

// Registrar mounts a domain handler's routes on the router.
type Registrar interface {
	Register(r chi.Router)
}

// HealthChecker reports readiness of one dependency.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Config carries everything the router needs.
type Config struct {
	Handlers []Registrar
	Metrics  *metrics.Metrics
	// Checks maps a dependency name to its health probe. Nil values are
	// skipped so optional dependencies can be wired unconditionally.
	Checks map[string]HealthChecker
}

// NewRouter wires all public endpoints.
func NewRouter(cfg Config) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", handleHealth(cfg.Checks))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	for _, h := range cfg.Handlers {
		if h != nil {
			h.Register(r)
		}
	}

	if cfg.Metrics != nil {
		return cfg.Metrics.Instrument(r)
	}
	return r
}

func handleHealth(checks map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := map[string]string{}
		healthy := true
		for name, check := range checks {
			if check == nil {
				continue
			}
			if err := check.Health(ctx); err != nil {
				status[name] = err.Error()
				healthy = false
			} else {
				status[name] = "ok"
			}
		}

		if !healthy {
			shared.WriteError(w, dErrors.New(dErrors.CodeUnavailable, "dependency unhealthy"))
			return
		}
		shared.WriteJSON(w, http.StatusOK, map[string]any{
			"status": "ok",
			"checks": status,
		})
	}
}
