package repository

import (
	"context"
	"time"
)

// RefreshToken es el registro persistido de un refresh token (identificado por jti).
type RefreshToken struct {
	JTI        string
	FamilyID   string
	UserID     string
	ExpiresAt  time.Time
	Consumed   bool
	ReplacedBy *string
	Revoked    bool
	CreatedAt  time.Time
}

// Usable reports whether the token can still be redeemed.
func (t *RefreshToken) Usable() bool {
	return t != nil && !t.Consumed && !t.Revoked
}

// TokenRepository define operaciones sobre refresh_tokens.
type TokenRepository interface {
	// Create persiste un refresh token recién emitido.
	Create(ctx context.Context, t RefreshToken) error

	// GetByJTI busca un token por jti. Retorna ErrNotFound si no existe.
	GetByJTI(ctx context.Context, jti string) (*RefreshToken, error)

	// Consume marca el token como usado y lo enlaza a su sucesor.
	// Retorna false si el token ya estaba consumido o revocado.
	Consume(ctx context.Context, jti, replacedBy string) (bool, error)

	// RevokeFamily revoca todos los tokens de una familia.
	// Retorna el número de filas afectadas.
	RevokeFamily(ctx context.Context, familyID string) (int, error)
}
