package auth

import (
	"net/http"

	dto "github.com/kovacsdavid/obvia/internal/http/dto/auth"
	httperrors "github.com/kovacsdavid/obvia/internal/http/errors"
	"github.com/kovacsdavid/obvia/internal/http/helpers"
	"github.com/kovacsdavid/obvia/internal/http/middlewares"
	svc "github.com/kovacsdavid/obvia/internal/http/services/auth"
	"github.com/kovacsdavid/obvia/internal/observability/logger"
)

// ActivationController maneja POST /api/auth/activate-tenant (requiere RequireAuth).
type ActivationController struct {
	service svc.TenantActivationService
}

// NewActivationController crea un nuevo ActivationController.
func NewActivationController(service svc.TenantActivationService) *ActivationController {
	return &ActivationController{service: service}
}

func (c *ActivationController) Activate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("ActivationController.Activate"))

	claims := middlewares.GetClaims(ctx)
	if claims == nil {
		httperrors.WriteErrorCtx(ctx, w, httperrors.ErrUnauthorized)
		return
	}

	var req dto.ActivateTenantRequest
	if err := helpers.ReadJSON(w, r, &req); err != nil {
		httperrors.WriteErrorCtx(ctx, w, err)
		return
	}
	if fields := req.Validate(); fields != nil {
		httperrors.WriteErrorCtx(ctx, w, httperrors.ErrValidation.WithFields(fields))
		return
	}

	res, err := c.service.Activate(ctx, claims, req.TenantID)
	if err != nil {
		log.Debug("activation rejected", logger.Err(err))
		httperrors.WriteErrorCtx(ctx, w, mapAuthError(err))
		return
	}

	helpers.WriteSuccess(w, http.StatusOK, dto.ActivateTenantResponse{
		Token:  res.Token,
		Claims: dto.NewClaimsResponse(res.Claims),
	})
}
