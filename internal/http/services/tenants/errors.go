package tenants

import (
	"errors"

	"github.com/kovacsdavid/obvia/internal/infra/tenantsql"
)

// Validation
var ErrInvalidRequest = errors.New("invalid tenant request")

// Provisioning
var (
	ErrTenantExists        = errors.New("tenant already exists")
	ErrDatabaseUnreachable = tenantsql.ErrDatabaseUnreachable
	ErrDatabaseNotEmpty    = tenantsql.ErrDatabaseNotEmpty
	// ErrProvisioningFailed: DDL, migración o registro del pool fallaron después del alta.
	ErrProvisioningFailed = errors.New("tenant provisioning failed")
)

// FieldErrors son errores de validación por campo; Is(ErrInvalidRequest).
type FieldErrors map[string]string

func (f FieldErrors) Error() string { return ErrInvalidRequest.Error() }

func (f FieldErrors) Is(target error) bool { return target == ErrInvalidRequest }
