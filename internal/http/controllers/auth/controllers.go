// Package auth contiene los controllers de /api/auth.
package auth

import (
	"errors"
	"net/http"
	"time"

	httperrors "github.com/kovacsdavid/obvia/internal/http/errors"
	svc "github.com/kovacsdavid/obvia/internal/http/services/auth"
)

// CookieConfig configura la cookie HttpOnly del refresh token.
type CookieConfig struct {
	Name     string
	Domain   string
	Path     string
	Secure   bool
	SameSite http.SameSite
}

// Controllers agrupa los controllers de auth.
type Controllers struct {
	Login      *LoginController
	Session    *SessionController
	Activation *ActivationController
}

// NewControllers crea los controllers de auth.
func NewControllers(s svc.Services, cookie CookieConfig) *Controllers {
	if cookie.Name == "" {
		cookie.Name = "refresh_token"
	}
	if cookie.Path == "" {
		cookie.Path = "/api/auth"
	}
	return &Controllers{
		Login:      NewLoginController(s.Login, cookie),
		Session:    NewSessionController(s.Refresh, s.Logout, cookie),
		Activation: NewActivationController(s.Activation),
	}
}

func (c CookieConfig) set(w http.ResponseWriter, value string, expires time.Time) {
	maxAge := int(time.Until(expires).Seconds())
	if maxAge < 1 {
		maxAge = 1
	}
	http.SetCookie(w, &http.Cookie{
		Name:     c.Name,
		Value:    value,
		Domain:   c.Domain,
		Path:     c.Path,
		Expires:  expires,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: c.SameSite,
	})
}

func (c CookieConfig) clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.Name,
		Value:    "",
		Domain:   c.Domain,
		Path:     c.Path,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: c.SameSite,
	})
}

func (c CookieConfig) read(r *http.Request) string {
	ck, err := r.Cookie(c.Name)
	if err != nil {
		return ""
	}
	return ck.Value
}

// mapAuthError traduce errores del service. La autenticación responde siempre
// con mensajes genéricos.
func mapAuthError(err error) *httperrors.AppError {
	var rl *svc.RateLimitedError
	switch {
	case errors.As(err, &rl):
		return httperrors.ErrTooManyAttempts.WithRetryAfter(int(rl.RetryAfter.Seconds()))
	case errors.Is(err, svc.ErrInvalidCredentials):
		return httperrors.ErrInvalidCredentials
	case errors.Is(err, svc.ErrUnauthorized):
		return httperrors.ErrUnauthorized.WithCause(err)
	case errors.Is(err, svc.ErrAccountInactive):
		return httperrors.ErrAccountInactive
	default:
		return httperrors.ErrInternal.WithCause(err)
	}
}
