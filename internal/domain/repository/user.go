package repository

import (
	"context"
	"time"
)

// UserStatus values stored in users.status.
type UserStatus string

const (
	UserStatusUncheckedEmail UserStatus = "unchecked_email"
	UserStatusActive         UserStatus = "active"
	UserStatusInactive       UserStatus = "inactive"
	UserStatusBanned         UserStatus = "banned"
)

// User representa una cuenta del manager database.
type User struct {
	ID             string
	Email          string
	PasswordHash   string
	FirstName      string
	LastName       string
	Phone          *string
	Status         UserStatus
	ProfilePicture *string
	MFAEnabled     bool
	MFASecret      *string
	LastLoginAt    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
	DeletedAt      *time.Time
}

// IsActive reports whether the user may authenticate.
func (u *User) IsActive() bool {
	return u != nil && u.DeletedAt == nil && u.Status == UserStatusActive
}

// CreateUserInput contiene los datos para crear un usuario.
type CreateUserInput struct {
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Status       UserStatus
}

// UserRepository define operaciones sobre usuarios.
type UserRepository interface {
	// GetByEmail busca un usuario no borrado por email (case-sensitive).
	// Retorna ErrNotFound si no existe.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// GetByID busca un usuario por ID. Retorna ErrNotFound si no existe.
	GetByID(ctx context.Context, id string) (*User, error)

	// Create inserta un usuario. Retorna ErrConflict si el email ya existe.
	Create(ctx context.Context, in CreateUserInput) (*User, error)

	// TouchLastLogin fija last_login_at = NOW().
	TouchLastLogin(ctx context.Context, id string) error
}
