package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/kovacsdavid/obvia/internal/domain/repository"
	"github.com/kovacsdavid/obvia/internal/jwt"
)

// TokenPair es el resultado de una emisión (login o rotación).
type TokenPair struct {
	AccessToken   string
	AccessClaims  *jwt.Claims
	RefreshToken  string
	RefreshClaims *jwt.Claims
}

type issuer struct {
	codec       *jwt.Codec
	tokens      repository.TokenRepository
	userTenants repository.UserTenantRepository
}

// activeTenant resuelve (y toca) el tenant activo del usuario, o nil.
func (i issuer) activeTenant(ctx context.Context, userID string) (*string, error) {
	t, err := i.userTenants.GetActiveTenant(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("resolve active tenant: %w", err)
	}
	return t, nil
}

// mint firma access + refresh y persiste el refresh. No consume nada.
func (i issuer) mint(ctx context.Context, userID, familyID string, refreshExp time.Time, activeTenant *string) (*TokenPair, error) {
	access := i.codec.NewAccessClaims(userID, activeTenant)
	refresh := i.codec.NewRefreshClaims(userID, familyID, refreshExp, activeTenant)

	accessToken, err := i.codec.Sign(access)
	if err != nil {
		return nil, err
	}
	refreshToken, err := i.codec.Sign(refresh)
	if err != nil {
		return nil, err
	}

	if err := i.tokens.Create(ctx, repository.RefreshToken{
		JTI:       refresh.ID,
		FamilyID:  familyID,
		UserID:    userID,
		ExpiresAt: refresh.ExpiresAt.Time,
	}); err != nil {
		return nil, fmt.Errorf("persist refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:   accessToken,
		AccessClaims:  access,
		RefreshToken:  refreshToken,
		RefreshClaims: refresh,
	}, nil
}
