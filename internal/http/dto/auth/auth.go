// Package auth contiene los DTOs de /api/auth.
package auth

import (
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kovacsdavid/obvia/internal/domain/repository"
	"github.com/kovacsdavid/obvia/internal/jwt"
)

// LoginRequest es el body de POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate devuelve errores por campo, o nil.
func (r *LoginRequest) Validate() map[string]string {
	errs := map[string]string{}
	r.Email = strings.TrimSpace(r.Email)
	if r.Email == "" {
		errs["email"] = "required"
	} else if addr, err := mail.ParseAddress(r.Email); err != nil || addr.Address != r.Email {
		// Sólo la dirección desnuda: "Name <a@b.c>" no es lo que se busca en users.
		errs["email"] = "invalid email"
	}
	if r.Password == "" {
		errs["password"] = "required"
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// UserResponse son los campos públicos del usuario.
type UserResponse struct {
	ID             string     `json:"id"`
	Email          string     `json:"email"`
	FirstName      string     `json:"first_name"`
	LastName       string     `json:"last_name"`
	Phone          *string    `json:"phone,omitempty"`
	Status         string     `json:"status"`
	ProfilePicture *string    `json:"profile_picture,omitempty"`
	LastLoginAt    *time.Time `json:"last_login_at,omitempty"`
}

func NewUserResponse(u *repository.User) UserResponse {
	return UserResponse{
		ID:             u.ID,
		Email:          u.Email,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		Phone:          u.Phone,
		Status:         string(u.Status),
		ProfilePicture: u.ProfilePicture,
		LastLoginAt:    u.LastLoginAt,
	}
}

// TokenResponse es el access token emitido por login y refresh.
// El refresh token viaja sólo en la cookie.
type TokenResponse struct {
	AccessToken  string        `json:"access_token"`
	TokenType    string        `json:"token_type"`
	ExpiresAt    int64         `json:"expires_at"`
	ActiveTenant *string       `json:"active_tenant"`
	User         *UserResponse `json:"user,omitempty"`
}

func NewTokenResponse(token string, claims *jwt.Claims) TokenResponse {
	return TokenResponse{
		AccessToken:  token,
		TokenType:    "Bearer",
		ExpiresAt:    claims.ExpiresAt.Unix(),
		ActiveTenant: claims.ActiveTenant,
	}
}

// ActivateTenantRequest es el body de POST /api/auth/activate-tenant.
type ActivateTenantRequest struct {
	TenantID string `json:"tenant_id"`
}

func (r *ActivateTenantRequest) Validate() map[string]string {
	r.TenantID = strings.TrimSpace(r.TenantID)
	if r.TenantID == "" {
		return map[string]string{"tenant_id": "required"}
	}
	if _, err := uuid.Parse(r.TenantID); err != nil {
		return map[string]string{"tenant_id": "invalid uuid"}
	}
	return nil
}

// ClaimsResponse son las claims decodificadas del token nuevo.
type ClaimsResponse struct {
	Sub          string   `json:"sub"`
	Iss          string   `json:"iss"`
	Aud          []string `json:"aud"`
	Exp          int64    `json:"exp"`
	Iat          int64    `json:"iat"`
	Nbf          int64    `json:"nbf"`
	Jti          string   `json:"jti"`
	ActiveTenant *string  `json:"active_tenant"`
}

func NewClaimsResponse(c *jwt.Claims) ClaimsResponse {
	return ClaimsResponse{
		Sub:          c.Subject,
		Iss:          c.Issuer,
		Aud:          c.Audience,
		Exp:          c.ExpiresAt.Unix(),
		Iat:          c.IssuedAt.Unix(),
		Nbf:          c.NotBefore.Unix(),
		Jti:          c.ID,
		ActiveTenant: c.ActiveTenant,
	}
}

// ActivateTenantResponse es la respuesta de activate-tenant.
type ActivateTenantResponse struct {
	Token  string         `json:"token"`
	Claims ClaimsResponse `json:"claims"`
}
