package auth

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Authentication
var (
	// ErrInvalidCredentials se usa tanto para email desconocido como para password incorrecta.
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountInactive    = errors.New("account inactive")
	ErrUnauthorized       = errors.New("unauthorized")
	// ErrRefreshToken: refresh token estructuralmente inválido (ej. sin family_id).
	// Viaja envuelto junto a ErrUnauthorized.
	ErrRefreshToken = errors.New("refresh token error")
)

// Rate limiting
var ErrTooManyAttempts = errors.New("too many attempts")

// RateLimitedError es ErrTooManyAttempts con el tiempo de espera sugerido.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("too many attempts, retry after %d minutes", int(math.Ceil(e.RetryAfter.Minutes())))
}

func (e *RateLimitedError) Is(target error) bool { return target == ErrTooManyAttempts }

func unauthorized(cause error) error {
	return fmt.Errorf("%w: %w", ErrUnauthorized, cause)
}
