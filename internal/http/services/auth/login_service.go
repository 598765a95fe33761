package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kovacsdavid/obvia/internal/domain/repository"
	"github.com/kovacsdavid/obvia/internal/observability/logger"
	"github.com/kovacsdavid/obvia/internal/security/password"
)

// LoginService autentica con email + password.
type LoginService interface {
	Login(ctx context.Context, in LoginInput) (*LoginResult, error)
}

// LoginInput contiene las credenciales y el origen del intento.
type LoginInput struct {
	Email    string
	Password string
	Client   ClientInfo
}

// LoginResult son los tokens emitidos más los datos públicos del usuario.
type LoginResult struct {
	Tokens *TokenPair
	User   *repository.User
}

// LoginDeps contiene las dependencias del login service.
type LoginDeps struct {
	Users     repository.UserRepository
	Events    repository.AccountEventRepository
	Issuer    issuer
	Recorder  eventRecorder
	LoginRate LoginRate
	Now       func() time.Time
	// DummyHash se verifica cuando el email no existe, para que ambas ramas
	// paguen el mismo Argon2id.
	DummyHash string
}

type loginService struct {
	deps LoginDeps
}

// NewLoginService crea un nuevo LoginService.
func NewLoginService(deps LoginDeps) LoginService {
	return &loginService{deps: deps}
}

const componentLogin = "auth.login"

func (s *loginService) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component(componentLogin),
		logger.Op("Login"),
		logger.ClientIP(in.Client.IP),
	)
	ctx = logger.ToContext(ctx, log)

	// 1) Rate limit por IP sobre account_event_log
	if err := s.checkRate(ctx, in); err != nil {
		return nil, err
	}

	// 2) Lookup
	user, err := s.deps.Users.GetByEmail(ctx, in.Email)
	if err != nil {
		if repository.IsNotFound(err) {
			_ = password.Verify(in.Password, s.deps.DummyHash)
			log.Info("login failed: unknown email")
			s.deps.Recorder.record(ctx, repository.EventLogin, repository.EventFailure,
				"", in.Email, in.Client, eventDetail{"reason": "user_not_found"})
			return nil, ErrInvalidCredentials
		}
		s.deps.Recorder.record(ctx, repository.EventLogin, repository.EventError,
			"", in.Email, in.Client, eventDetail{"reason": "user_lookup"})
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	// 3) Estado
	if !user.IsActive() {
		log.Info("login failed: account inactive", logger.UserID(user.ID), logger.String("status", string(user.Status)))
		s.deps.Recorder.record(ctx, repository.EventLogin, repository.EventFailure,
			user.ID, in.Email, in.Client, eventDetail{"reason": "inactive", "status": string(user.Status)})
		return nil, ErrAccountInactive
	}

	// 4) Password
	if !password.Verify(in.Password, user.PasswordHash) {
		log.Info("login failed: wrong password", logger.UserID(user.ID))
		s.deps.Recorder.record(ctx, repository.EventLogin, repository.EventFailure,
			user.ID, in.Email, in.Client, eventDetail{"reason": "wrong_password"})
		return nil, ErrInvalidCredentials
	}

	// 5) Emisión
	pair, err := s.issue(ctx, user.ID)
	if err != nil {
		log.Error("login issuance failed", logger.UserID(user.ID), logger.Err(err))
		s.deps.Recorder.record(ctx, repository.EventLogin, repository.EventError,
			user.ID, in.Email, in.Client, eventDetail{"reason": "issuance"})
		return nil, err
	}

	s.deps.Recorder.record(ctx, repository.EventLogin, repository.EventSuccess,
		user.ID, in.Email, in.Client, eventDetail{"family_id": pair.RefreshClaims.FamilyID})
	log.Info("login ok", logger.UserID(user.ID), logger.FamilyID(pair.RefreshClaims.FamilyID))

	return &LoginResult{Tokens: pair, User: user}, nil
}

// checkRate rechaza si la IP acumula más de MaxFailures eventos negativos en la ventana.
// Si la consulta falla, rechaza igual.
func (s *loginService) checkRate(ctx context.Context, in LoginInput) error {
	log := logger.From(ctx)
	rl := s.deps.LoginRate
	since := s.deps.Now().Add(-rl.Window)

	n, err := s.deps.Events.CountFailuresByIP(ctx, in.Client.IP, since)
	if err != nil {
		log.Error("login rate check failed, rejecting", logger.Err(err))
		s.deps.Recorder.record(ctx, repository.EventLogin, repository.EventBlocked,
			"", in.Email, in.Client, eventDetail{"reason": "rate_check_error"})
		return &RateLimitedError{RetryAfter: rl.Window}
	}
	if n > rl.MaxFailures {
		log.Warn("login blocked by rate limit", logger.Count(n))
		s.deps.Recorder.record(ctx, repository.EventLogin, repository.EventBlocked,
			"", in.Email, in.Client, eventDetail{"reason": "rate_limited", "count": n})
		return &RateLimitedError{RetryAfter: rl.Window}
	}
	return nil
}

func (s *loginService) issue(ctx context.Context, userID string) (*TokenPair, error) {
	if err := s.deps.Users.TouchLastLogin(ctx, userID); err != nil {
		return nil, fmt.Errorf("touch last login: %w", err)
	}
	active, err := s.deps.Issuer.activeTenant(ctx, userID)
	if err != nil {
		return nil, err
	}
	pair, err := s.deps.Issuer.mint(ctx, userID, uuid.NewString(), s.deps.Issuer.codec.RefreshExpiry(), active)
	if err != nil {
		return nil, err
	}
	return pair, nil
}

// IsAuthError indica si err pertenece a la taxonomía de autenticación
// (respuesta uniforme al cliente, sin detalle).
func IsAuthError(err error) bool {
	return errors.Is(err, ErrInvalidCredentials) ||
		errors.Is(err, ErrAccountInactive) ||
		errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrTooManyAttempts)
}
