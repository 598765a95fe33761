// Package tenants contiene los controllers de /api/tenants.
package tenants

import (
	"context"
	"errors"
	"net/http"
	"time"

	dto "github.com/kovacsdavid/obvia/internal/http/dto/tenants"
	httperrors "github.com/kovacsdavid/obvia/internal/http/errors"
	"github.com/kovacsdavid/obvia/internal/http/helpers"
	"github.com/kovacsdavid/obvia/internal/http/middlewares"
	svc "github.com/kovacsdavid/obvia/internal/http/services/tenants"
	"github.com/kovacsdavid/obvia/internal/infra/tenantsql"
	"github.com/kovacsdavid/obvia/internal/observability/logger"
)

// TenantsController maneja alta y listado de tenants.
type TenantsController struct {
	service     svc.ProvisionService
	pingTimeout time.Duration
}

// NewTenantsController crea un nuevo TenantsController.
// pingTimeout acota el ping a la base del tenant activo.
func NewTenantsController(service svc.ProvisionService, pingTimeout time.Duration) *TenantsController {
	if pingTimeout <= 0 {
		pingTimeout = 3 * time.Second
	}
	return &TenantsController{service: service, pingTimeout: pingTimeout}
}

// Create maneja POST /api/tenants.
func (c *TenantsController) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("TenantsController.Create"))

	claims := middlewares.GetClaims(ctx)
	if claims == nil {
		httperrors.WriteErrorCtx(ctx, w, httperrors.ErrUnauthorized)
		return
	}

	var req dto.CreateTenantRequest
	if err := helpers.ReadJSON(w, r, &req); err != nil {
		httperrors.WriteErrorCtx(ctx, w, err)
		return
	}
	if fields := req.Validate(); fields != nil {
		httperrors.WriteErrorCtx(ctx, w, httperrors.ErrValidation.WithFields(fields))
		return
	}

	tenant, err := c.service.Create(ctx, claims.UserID(), req.ToInput())
	if err != nil {
		log.Info("tenant creation failed", logger.Err(err))
		httperrors.WriteErrorCtx(ctx, w, mapTenantError(err))
		return
	}

	helpers.WriteSuccess(w, http.StatusCreated, dto.NewTenantResponse(tenant))
}

// List maneja GET /api/tenants: las membresías del usuario.
func (c *TenantsController) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	claims := middlewares.GetClaims(ctx)
	if claims == nil {
		httperrors.WriteErrorCtx(ctx, w, httperrors.ErrUnauthorized)
		return
	}

	ms, err := c.service.ListForUser(ctx, claims.UserID())
	if err != nil {
		httperrors.WriteErrorCtx(ctx, w, httperrors.ErrInternal.WithCause(err))
		return
	}
	helpers.WriteSuccess(w, http.StatusOK, dto.NewMembershipList(ms))
}

// ActiveHealth maneja GET /api/tenants/active/health (requiere RequireTenantPool).
func (c *TenantsController) ActiveHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	db := middlewares.GetTenantDB(ctx)
	if db == nil {
		httperrors.WriteErrorCtx(ctx, w, httperrors.ErrInternal.WithCause(errors.New("tenant pool middleware not applied")))
		return
	}

	start := time.Now()
	conn, err := db.Acquire(ctx)
	if err != nil {
		if errors.Is(err, tenantsql.ErrAcquireTimeout) {
			httperrors.WriteErrorCtx(ctx, w, httperrors.FromError(err))
			return
		}
		httperrors.WriteErrorCtx(ctx, w, httperrors.ErrServiceUnavailable.WithCause(err))
		return
	}
	defer conn.Release()

	pingCtx, cancel := context.WithTimeout(ctx, c.pingTimeout)
	defer cancel()
	if err := conn.Ping(pingCtx); err != nil {
		httperrors.WriteErrorCtx(ctx, w, httperrors.ErrServiceUnavailable.WithCause(err))
		return
	}

	stat := db.Stat()
	helpers.WriteSuccess(w, http.StatusOK, map[string]any{
		"tenant_id":      db.TenantID(),
		"status":         "ok",
		"latency_ms":     time.Since(start).Milliseconds(),
		"acquired_conns": stat.AcquiredConns(),
		"total_conns":    stat.TotalConns(),
		"max_conns":      stat.MaxConns(),
	})
}

func mapTenantError(err error) *httperrors.AppError {
	var fields svc.FieldErrors
	switch {
	case errors.As(err, &fields):
		return httperrors.ErrValidation.WithFields(fields)
	case errors.Is(err, svc.ErrTenantExists):
		return httperrors.ErrTenantExists
	case errors.Is(err, svc.ErrDatabaseUnreachable):
		return httperrors.ErrDatabaseUnreachable.WithCause(err)
	case errors.Is(err, svc.ErrDatabaseNotEmpty):
		return httperrors.ErrDatabaseNotEmpty
	case errors.Is(err, svc.ErrProvisioningFailed):
		return httperrors.ErrProvisioningFailed.WithCause(err)
	default:
		return httperrors.ErrInternal.WithCause(err)
	}
}
