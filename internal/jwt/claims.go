// Package jwt emite y valida los tokens de sesión (HS256).
//
// Dos clases de token, distinguidas por el sufijo del audience:
// access ({aud}-api) y refresh ({aud}-auth). Sólo los refresh llevan family_id.
package jwt

import (
	jwtv5 "github.com/golang-jwt/jwt/v5"
)

const (
	AccessAudienceSuffix  = "-api"
	RefreshAudienceSuffix = "-auth"
)

// Claims es el payload de los tokens de sesión.
type Claims struct {
	jwtv5.RegisteredClaims

	// FamilyID agrupa los refresh tokens de una misma cadena de rotación.
	FamilyID string `json:"family_id,omitempty"`

	// ActiveTenant es el tenant sobre el que opera la sesión (null si ninguno).
	ActiveTenant *string `json:"active_tenant"`
}

// UserID devuelve el subject.
func (c *Claims) UserID() string { return c.Subject }

// TenantID devuelve el tenant activo o "".
func (c *Claims) TenantID() string {
	if c.ActiveTenant == nil {
		return ""
	}
	return *c.ActiveTenant
}

// clone devuelve una copia profunda.
func (c *Claims) clone() *Claims {
	out := *c
	out.Audience = append(jwtv5.ClaimStrings(nil), c.Audience...)
	if c.ActiveTenant != nil {
		t := *c.ActiveTenant
		out.ActiveTenant = &t
	}
	return &out
}
