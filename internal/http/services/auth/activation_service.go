package auth

import (
	"context"
	"fmt"

	"github.com/kovacsdavid/obvia/internal/domain/repository"
	"github.com/kovacsdavid/obvia/internal/jwt"
	"github.com/kovacsdavid/obvia/internal/observability/logger"
)

// TenantActivationService cambia el tenant activo de la sesión.
type TenantActivationService interface {
	Activate(ctx context.Context, claims *jwt.Claims, tenantID string) (*ActivationResult, error)
}

// ActivationResult es el token nuevo y sus claims.
type ActivationResult struct {
	Token  string
	Claims *jwt.Claims
}

// ActivationDeps contiene las dependencias del activation service.
type ActivationDeps struct {
	UserTenants repository.UserTenantRepository
	Codec       *jwt.Codec
}

type activationService struct {
	deps ActivationDeps
}

// NewTenantActivationService crea un nuevo TenantActivationService.
func NewTenantActivationService(deps ActivationDeps) TenantActivationService {
	return &activationService{deps: deps}
}

// Activate exige una membresía no borrada para (sub, tenantID) y devuelve un
// token derivado de claims con active_tenant = tenantID. No toca refresh tokens.
func (s *activationService) Activate(ctx context.Context, claims *jwt.Claims, tenantID string) (*ActivationResult, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("auth.activation"),
		logger.Op("Activate"),
		logger.UserID(claims.UserID()),
		logger.TenantID(tenantID),
	)

	if err := s.deps.UserTenants.Activate(ctx, claims.UserID(), tenantID); err != nil {
		if repository.IsNotFound(err) {
			log.Info("activation rejected: not a member")
			return nil, unauthorized(err)
		}
		return nil, fmt.Errorf("activate tenant: %w", err)
	}

	next := s.deps.Codec.WithActiveTenant(claims, tenantID)
	token, err := s.deps.Codec.Sign(next)
	if err != nil {
		return nil, err
	}

	log.Info("tenant activated")
	return &ActivationResult{Token: token, Claims: next}, nil
}
