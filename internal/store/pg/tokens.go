package pg

import (
	"context"

	"github.com/kovacsdavid/obvia/internal/domain/repository"
)

type tokenRepo struct{ q querier }

func (r *tokenRepo) Create(ctx context.Context, t repository.RefreshToken) error {
	const q = `
		INSERT INTO refresh_tokens (jti, family_id, user_id, exp)
		VALUES ($1, $2, $3, $4)`
	_, err := r.q.Exec(ctx, q, t.JTI, t.FamilyID, t.UserID, t.ExpiresAt)
	return mapErr("create refresh token", err)
}

func (r *tokenRepo) GetByJTI(ctx context.Context, jti string) (*repository.RefreshToken, error) {
	const q = `
		SELECT jti::text, family_id::text, user_id::text, exp, consumed, replaced_by::text, revoked, created_at
		FROM refresh_tokens WHERE jti = $1`
	var t repository.RefreshToken
	err := r.q.QueryRow(ctx, q, jti).Scan(
		&t.JTI, &t.FamilyID, &t.UserID, &t.ExpiresAt, &t.Consumed, &t.ReplacedBy, &t.Revoked, &t.CreatedAt,
	)
	if err != nil {
		return nil, mapErr("get refresh token", err)
	}
	return &t, nil
}

func (r *tokenRepo) Consume(ctx context.Context, jti, replacedBy string) (bool, error) {
	// La condición sobre consumed/revoked hace la transición atómica:
	// dos rotaciones concurrentes del mismo token no pueden ganar ambas.
	const q = `
		UPDATE refresh_tokens SET consumed = TRUE, replaced_by = $2
		WHERE jti = $1 AND consumed = FALSE AND revoked = FALSE`
	tag, err := r.q.Exec(ctx, q, jti, replacedBy)
	if err != nil {
		return false, mapErr("consume refresh token", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *tokenRepo) RevokeFamily(ctx context.Context, familyID string) (int, error) {
	const q = `UPDATE refresh_tokens SET revoked = TRUE WHERE family_id = $1 AND revoked = FALSE`
	tag, err := r.q.Exec(ctx, q, familyID)
	if err != nil {
		return 0, mapErr("revoke refresh token family", err)
	}
	return int(tag.RowsAffected()), nil
}
