// Package auth implementa el núcleo de sesión: login, rotación de refresh tokens
// con familias, logout y activación de tenant.
package auth

import (
	"time"

	"github.com/google/uuid"

	"github.com/kovacsdavid/obvia/internal/domain/repository"
	"github.com/kovacsdavid/obvia/internal/jwt"
	"github.com/kovacsdavid/obvia/internal/security/password"
)

// ClientInfo identifica el origen de un request para auditoría y rate limiting.
type ClientInfo struct {
	IP        string
	UserAgent string
}

// LoginRate configura el limitador basado en account_event_log.
type LoginRate struct {
	MaxFailures int
	Window      time.Duration
}

// Deps contiene las dependencias para crear los services de auth.
type Deps struct {
	Users       repository.UserRepository
	UserTenants repository.UserTenantRepository
	Tokens      repository.TokenRepository
	Events      repository.AccountEventRepository
	Codec       *jwt.Codec
	LoginRate   LoginRate
	Now         func() time.Time

	// PasswordParams son los parámetros Argon2id del hash señuelo que se
	// verifica cuando el email no existe. Default: password.Default.
	PasswordParams *password.Params
}

// Services agrupa todos los services de auth.
type Services struct {
	Login      LoginService
	Refresh    RefreshService
	Logout     LogoutService
	Activation TenantActivationService
}

// NewServices crea todos los services de auth.
func NewServices(d Deps) Services {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.LoginRate.MaxFailures <= 0 {
		d.LoginRate.MaxFailures = 10
	}
	if d.LoginRate.Window <= 0 {
		d.LoginRate.Window = 60 * time.Minute
	}
	params := password.Default
	if d.PasswordParams != nil {
		params = *d.PasswordParams
	}
	// Error sólo si falla crypto/rand; con "" Verify devuelve false sin costo.
	dummy, _ := password.Hash(params, uuid.NewString())

	events := eventRecorder{repo: d.Events}
	iss := issuer{codec: d.Codec, tokens: d.Tokens, userTenants: d.UserTenants}

	return Services{
		Login: NewLoginService(LoginDeps{
			Users:     d.Users,
			Events:    d.Events,
			Issuer:    iss,
			Recorder:  events,
			LoginRate: d.LoginRate,
			Now:       d.Now,
			DummyHash: dummy,
		}),
		Refresh: NewRefreshService(RefreshDeps{
			Users:    d.Users,
			Tokens:   d.Tokens,
			Codec:    d.Codec,
			Issuer:   iss,
			Recorder: events,
		}),
		Logout: NewLogoutService(LogoutDeps{
			Tokens: d.Tokens,
			Codec:  d.Codec,
		}),
		Activation: NewTenantActivationService(ActivationDeps{
			UserTenants: d.UserTenants,
			Codec:       d.Codec,
		}),
	}
}
