package auth

import (
	"context"
	"fmt"

	"github.com/kovacsdavid/obvia/internal/domain/repository"
	"github.com/kovacsdavid/obvia/internal/jwt"
	"github.com/kovacsdavid/obvia/internal/observability/logger"
)

// RefreshService rota refresh tokens. Cada token se canjea una sola vez;
// un segundo canje revoca la familia entera.
type RefreshService interface {
	Refresh(ctx context.Context, token string, client ClientInfo) (*TokenPair, error)
}

// RefreshDeps contiene las dependencias del refresh service.
type RefreshDeps struct {
	Users    repository.UserRepository
	Tokens   repository.TokenRepository
	Codec    *jwt.Codec
	Issuer   issuer
	Recorder eventRecorder
}

type refreshService struct {
	deps RefreshDeps
}

// NewRefreshService crea un nuevo RefreshService.
func NewRefreshService(deps RefreshDeps) RefreshService {
	return &refreshService{deps: deps}
}

const componentRefresh = "auth.refresh"

func (s *refreshService) Refresh(ctx context.Context, token string, client ClientInfo) (*TokenPair, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component(componentRefresh),
		logger.Op("Refresh"),
		logger.ClientIP(client.IP),
	)
	ctx = logger.ToContext(ctx, log)

	blocked := func(userID string, detail eventDetail) {
		s.deps.Recorder.record(ctx, repository.EventRefresh, repository.EventBlocked, userID, "", client, detail)
	}

	// 1) Validación completa
	claims, err := s.deps.Codec.ParseRefresh(token)
	if err != nil {
		// Sólo para auditoría: recuperar sub/family_id de un token rechazado.
		var userID string
		detail := eventDetail{"reason": "invalid_token", "error": err.Error()}
		if audit, derr := s.deps.Codec.DangerouslyDecodeExpired(token); derr == nil {
			userID = audit.Subject
			if audit.FamilyID != "" {
				detail["family_id"] = audit.FamilyID
			}
		}
		log.Info("refresh rejected: invalid token", logger.Err(err))
		blocked(userID, detail)
		return nil, unauthorized(err)
	}

	log = log.With(logger.UserID(claims.Subject), logger.JTI(claims.ID))
	ctx = logger.ToContext(ctx, log)

	// 2) Usuario activo; si no, se quema la familia
	user, err := s.deps.Users.GetByID(ctx, claims.Subject)
	if err != nil && !repository.IsNotFound(err) {
		s.deps.Recorder.record(ctx, repository.EventRefresh, repository.EventError, claims.Subject, "", client,
			eventDetail{"reason": "user_lookup"})
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if !user.IsActive() {
		s.revokeFamily(ctx, claims.FamilyID)
		log.Warn("refresh rejected: user inactive or missing")
		blocked(claims.Subject, eventDetail{"reason": "inactive", "family_id": claims.FamilyID})
		return nil, unauthorized(ErrAccountInactive)
	}

	// 3) family_id obligatorio
	if claims.FamilyID == "" {
		log.Warn("refresh rejected: token without family_id")
		blocked(claims.Subject, eventDetail{"reason": "missing_family_id"})
		return nil, unauthorized(fmt.Errorf("%w: missing family_id", ErrRefreshToken))
	}
	log = log.With(logger.FamilyID(claims.FamilyID))
	ctx = logger.ToContext(ctx, log)

	// 4) Single-use: no encontrado o ya consumido => reuso
	rec, err := s.deps.Tokens.GetByJTI(ctx, claims.ID)
	if err != nil && !repository.IsNotFound(err) {
		s.deps.Recorder.record(ctx, repository.EventRefresh, repository.EventError, claims.Subject, "", client,
			eventDetail{"reason": "token_lookup"})
		return nil, fmt.Errorf("lookup refresh token: %w", err)
	}
	if !rec.Usable() || rec.FamilyID != claims.FamilyID || rec.UserID != claims.Subject {
		s.revokeFamily(ctx, claims.FamilyID)
		log.Warn("refresh token reuse detected, family revoked")
		blocked(claims.Subject, eventDetail{"reason": "reuse", "family_id": claims.FamilyID, "jti": claims.ID})
		return nil, unauthorized(ErrRefreshToken)
	}

	// 5) Tenant activo
	active, err := s.deps.Issuer.activeTenant(ctx, user.ID)
	if err != nil {
		s.deps.Recorder.record(ctx, repository.EventRefresh, repository.EventError, user.ID, "", client,
			eventDetail{"reason": "active_tenant"})
		return nil, err
	}

	// 6) Nuevo par: misma familia, mismo exp
	pair, err := s.deps.Issuer.mint(ctx, user.ID, claims.FamilyID, claims.ExpiresAt.Time, active)
	if err != nil {
		s.deps.Recorder.record(ctx, repository.EventRefresh, repository.EventError, user.ID, "", client,
			eventDetail{"reason": "issuance"})
		return nil, err
	}

	// 7) Consumir el anterior. Si otro request lo consumió primero, es reuso.
	ok, err := s.deps.Tokens.Consume(ctx, claims.ID, pair.RefreshClaims.ID)
	if err != nil {
		s.deps.Recorder.record(ctx, repository.EventRefresh, repository.EventError, user.ID, "", client,
			eventDetail{"reason": "consume"})
		return nil, fmt.Errorf("consume refresh token: %w", err)
	}
	if !ok {
		s.revokeFamily(ctx, claims.FamilyID)
		log.Warn("refresh token consumed concurrently, family revoked")
		blocked(user.ID, eventDetail{"reason": "reuse", "family_id": claims.FamilyID, "jti": claims.ID})
		return nil, unauthorized(ErrRefreshToken)
	}

	// 8) OK
	s.deps.Recorder.record(ctx, repository.EventRefresh, repository.EventSuccess, user.ID, "", client,
		eventDetail{"family_id": claims.FamilyID, "replaced_by": pair.RefreshClaims.ID})
	log.Info("refresh ok", logger.String("replaced_by", pair.RefreshClaims.ID))

	return pair, nil
}

func (s *refreshService) revokeFamily(ctx context.Context, familyID string) {
	if familyID == "" {
		return
	}
	log := logger.From(ctx)
	n, err := s.deps.Tokens.RevokeFamily(ctx, familyID)
	if err != nil {
		log.Error("revoke family failed", logger.FamilyID(familyID), logger.Err(err))
		return
	}
	log.Info("family revoked", logger.FamilyID(familyID), logger.Count(n))
}
