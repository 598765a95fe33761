package repository

import (
	"context"
	"time"
)

// SSL modes accepted for tenant connections (libpq sslmode values).
const (
	SSLModeDisable    = "disable"
	SSLModeAllow      = "allow"
	SSLModePrefer     = "prefer"
	SSLModeRequire    = "require"
	SSLModeVerifyCA   = "verify-ca"
	SSLModeVerifyFull = "verify-full"
)

// ValidSSLMode reports whether mode is a libpq sslmode value.
func ValidSSLMode(mode string) bool {
	switch mode {
	case SSLModeDisable, SSLModeAllow, SSLModePrefer, SSLModeRequire, SSLModeVerifyCA, SSLModeVerifyFull:
		return true
	}
	return false
}

// DatabaseConnection describe cómo llegar a la base de datos de un tenant.
// Es inmutable una vez provisionado.
type DatabaseConnection struct {
	Host        string
	Port        int
	Name        string
	User        string
	Password    string
	MaxPoolSize int
	SSLMode     string
}

// Tenant representa una organización aislada con su propia base de datos.
type Tenant struct {
	ID           string
	Name         string
	IsSelfHosted bool
	DB           DatabaseConnection
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DeletedAt    *time.Time
}

// TenantRepository opera sobre la tabla tenants del manager database.
type TenantRepository interface {
	// CreateWithOwner inserta el tenant y la fila user_tenants del owner
	// en una única transacción. Retorna ErrConflict si el nombre ya existe.
	CreateWithOwner(ctx context.Context, tenant *Tenant, owner UserTenant) error

	// ListActive retorna todos los tenants sin deleted_at (sweeps de init/migración).
	ListActive(ctx context.Context) ([]Tenant, error)

	// SoftDelete marca deleted_at; nunca se borra físicamente.
	SoftDelete(ctx context.Context, id string) error
}

// TenantDatabaseAdmin ejecuta el DDL que crea (o descarta) la base y el rol
// de un tenant managed dentro del motor del manager database.
type TenantDatabaseAdmin interface {
	// CreateRole crea el rol de login y lo otorga al rol administrativo del servicio.
	CreateRole(ctx context.Context, role, password string) error

	// CreateDatabase crea la base fuera de cualquier transacción.
	CreateDatabase(ctx context.Context, name, owner string) error

	DropDatabase(ctx context.Context, name string) error
	DropRole(ctx context.Context, role string) error
}
