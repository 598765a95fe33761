// Package health expone los endpoints de salud del servicio.
package health

import (
	"context"
	"net/http"
	"time"

	httperrors "github.com/kovacsdavid/obvia/internal/http/errors"
	"github.com/kovacsdavid/obvia/internal/http/helpers"
)

// Pinger es el manager database. *pgxpool.Pool lo implementa.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PoolCounter reporta cuántos pools de tenant están activos.
type PoolCounter interface {
	PoolCount() int
}

// HealthController maneja /readyz y /healthz.
type HealthController struct {
	db      Pinger
	pools   PoolCounter
	version string
	timeout time.Duration
}

// NewHealthController crea un nuevo HealthController.
func NewHealthController(db Pinger, pools PoolCounter, version string) *HealthController {
	return &HealthController{db: db, pools: pools, version: version, timeout: 2 * time.Second}
}

// Healthz es liveness: no toca dependencias.
func (c *HealthController) Healthz(w http.ResponseWriter, r *http.Request) {
	helpers.WriteSuccess(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readyz verifica el manager database.
func (c *HealthController) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), c.timeout)
	defer cancel()

	if err := c.db.Ping(ctx); err != nil {
		httperrors.WriteErrorCtx(r.Context(), w, httperrors.ErrServiceUnavailable.WithCause(err))
		return
	}

	resp := map[string]any{
		"status":     "ready",
		"version":    c.version,
		"manager_db": "ok",
	}
	if c.pools != nil {
		resp["tenant_pools"] = c.pools.PoolCount()
	}
	helpers.WriteSuccess(w, http.StatusOK, resp)
}
