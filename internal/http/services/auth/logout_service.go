package auth

import (
	"context"
	"fmt"

	"github.com/kovacsdavid/obvia/internal/domain/repository"
	"github.com/kovacsdavid/obvia/internal/jwt"
	"github.com/kovacsdavid/obvia/internal/observability/logger"
)

// LogoutService revoca la familia del refresh token presentado.
type LogoutService interface {
	// Logout sin token es un no-op.
	Logout(ctx context.Context, token string) error
}

// LogoutDeps contiene las dependencias del logout service.
type LogoutDeps struct {
	Tokens repository.TokenRepository
	Codec  *jwt.Codec
}

type logoutService struct {
	deps LogoutDeps
}

// NewLogoutService crea un nuevo LogoutService.
func NewLogoutService(deps LogoutDeps) LogoutService {
	return &logoutService{deps: deps}
}

func (s *logoutService) Logout(ctx context.Context, token string) error {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("auth.logout"),
		logger.Op("Logout"),
	)

	if token == "" {
		log.Debug("logout without refresh token, nothing to do")
		return nil
	}

	// Validación estricta: nunca el decode tolerante a expirados.
	claims, err := s.deps.Codec.ParseRefresh(token)
	if err != nil {
		log.Info("logout rejected: invalid token", logger.Err(err))
		return unauthorized(err)
	}
	if claims.FamilyID == "" {
		return unauthorized(fmt.Errorf("%w: missing family_id", ErrRefreshToken))
	}

	n, err := s.deps.Tokens.RevokeFamily(ctx, claims.FamilyID)
	if err != nil {
		return fmt.Errorf("revoke family: %w", err)
	}

	log.Info("logout ok", logger.UserID(claims.Subject), logger.FamilyID(claims.FamilyID), logger.Count(n))
	return nil
}
