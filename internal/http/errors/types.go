package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/kovacsdavid/obvia/internal/infra/tenantsql"
)

// AppError es el error que los controllers devuelven al cliente.
// Global y Fields se serializan; Err es la causa interna y sólo va a logs.
type AppError struct {
	Global     string
	Fields     map[string]string
	HTTPStatus int
	RetryAfter int // segundos; 429 y 503 reintentables
	Err        error
}

// Error implementa la interfaz error
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %v", e.HTTPStatus, e.Global, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.HTTPStatus, e.Global)
}

// Unwrap permite acceder al error original
func (e *AppError) Unwrap() error {
	return e.Err
}

// New crea un nuevo AppError
func New(status int, global string) *AppError {
	return &AppError{Global: global, HTTPStatus: status}
}

// FromError convierte un error genérico en AppError.
// Si no es un AppError, devuelve un 500 genérico conservando la causa.
func FromError(err error) *AppError {
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}
	if stderrors.Is(err, tenantsql.ErrAcquireTimeout) {
		return ErrTenantDatabaseBusy.WithCause(err)
	}
	return ErrInternal.WithCause(err)
}

// WithFields devuelve una COPIA con errores por campo.
func (e *AppError) WithFields(fields map[string]string) *AppError {
	newErr := *e
	newErr.Fields = fields
	return &newErr
}

// WithCause devuelve una COPIA con la causa original.
func (e *AppError) WithCause(err error) *AppError {
	newErr := *e
	newErr.Err = err
	return &newErr
}

// WithRetryAfter devuelve una COPIA con Retry-After en segundos.
func (e *AppError) WithRetryAfter(seconds int) *AppError {
	newErr := *e
	newErr.RetryAfter = seconds
	return &newErr
}

// =================================================================================
// ERRORES PREDEFINIDOS
// =================================================================================

var (
	ErrBadRequest = &AppError{
		Global:     "Invalid request.",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrInvalidJSON = &AppError{
		Global:     "Request body is not valid JSON.",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrValidation = &AppError{
		Global:     "Some fields are invalid.",
		HTTPStatus: http.StatusBadRequest,
	}
)

var (
	// ErrInvalidCredentials es idéntico para email desconocido y password incorrecta.
	ErrInvalidCredentials = &AppError{
		Global:     "Invalid email or password.",
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrUnauthorized = &AppError{
		Global:     "Unauthorized.",
		HTTPStatus: http.StatusUnauthorized,
	}
)

var (
	ErrAccountInactive = &AppError{
		Global:     "This account is not active.",
		HTTPStatus: http.StatusForbidden,
	}

	ErrNoActiveTenant = &AppError{
		Global:     "No active tenant selected.",
		HTTPStatus: http.StatusForbidden,
	}
)

var (
	ErrNotFound = &AppError{
		Global:     "Not found.",
		HTTPStatus: http.StatusNotFound,
	}

	ErrMethodNotAllowed = &AppError{
		Global:     "Method not allowed.",
		HTTPStatus: http.StatusMethodNotAllowed,
	}
)

var (
	ErrTenantExists = &AppError{
		Global:     "A tenant with this name already exists.",
		HTTPStatus: http.StatusConflict,
	}
)

var (
	ErrDatabaseUnreachable = &AppError{
		Global:     "Could not reach the database.",
		HTTPStatus: http.StatusUnprocessableEntity,
	}

	ErrDatabaseNotEmpty = &AppError{
		Global:     "The database is not empty.",
		HTTPStatus: http.StatusUnprocessableEntity,
	}
)

var (
	ErrTooManyAttempts = &AppError{
		Global:     "Too many attempts. Please try again later.",
		HTTPStatus: http.StatusTooManyRequests,
	}
)

var (
	ErrInternal = &AppError{
		Global:     "An internal error occurred.",
		HTTPStatus: http.StatusInternalServerError,
	}

	ErrProvisioningFailed = &AppError{
		Global:     "The tenant database could not be provisioned.",
		HTTPStatus: http.StatusInternalServerError,
	}

	ErrServiceUnavailable = &AppError{
		Global:     "Service temporarily unavailable.",
		HTTPStatus: http.StatusServiceUnavailable,
	}

	// ErrTenantDatabaseBusy: el pool del tenant no entregó conexión a tiempo. Reintentable.
	ErrTenantDatabaseBusy = &AppError{
		Global:     "The tenant database is busy. Please retry.",
		HTTPStatus: http.StatusServiceUnavailable,
		RetryAfter: 1,
	}
)
