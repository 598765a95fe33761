package repository

import (
	"context"
	"time"
)

// RoleOwner is the role granted to the user that provisioned a tenant.
const RoleOwner = "owner"

// UserTenant es la membresía de un usuario en un tenant.
type UserTenant struct {
	ID            string
	UserID        string
	TenantID      string
	Role          string
	InvitedBy     *string
	LastActivated time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
	DeletedAt     *time.Time
}

// Membership is a UserTenant joined with the public fields of its tenant.
type Membership struct {
	TenantID      string
	TenantName    string
	Role          string
	IsSelfHosted  bool
	LastActivated time.Time
}

// UserTenantRepository define operaciones sobre user_tenants.
type UserTenantRepository interface {
	// GetActiveTenant retorna el tenant con last_activated más reciente del usuario
	// (membresías no borradas de tenants no borrados) y lo "toca" con NOW().
	// Retorna (nil, nil) si el usuario no tiene tenants.
	GetActiveTenant(ctx context.Context, userID string) (*string, error)

	// Activate fija last_activated = NOW() para (userID, tenantID).
	// Retorna ErrNotFound si no existe una membresía no borrada.
	Activate(ctx context.Context, userID, tenantID string) error

	// ListForUser lista las membresías no borradas del usuario.
	ListForUser(ctx context.Context, userID string) ([]Membership, error)
}
