package middlewares

import (
	"context"

	"github.com/kovacsdavid/obvia/internal/infra/tenantsql"
	"github.com/kovacsdavid/obvia/internal/jwt"
)

// =================================================================================
// CONTEXT KEYS
// =================================================================================

type ctxKey string

const (
	ctxClaimsKey    ctxKey = "claims"
	ctxTenantDBKey  ctxKey = "tenant_db"
	ctxRequestIDKey ctxKey = "request_id"
	ctxClientIPKey  ctxKey = "client_ip"
)

// =================================================================================
// CONTEXT SETTERS
// =================================================================================

// WithClaims inyecta las claims del access token en el contexto.
func WithClaims(ctx context.Context, claims *jwt.Claims) context.Context {
	return context.WithValue(ctx, ctxClaimsKey, claims)
}

// WithTenantDB inyecta el acceso a la base del tenant activo.
func WithTenantDB(ctx context.Context, db *tenantsql.TenantDB) context.Context {
	return context.WithValue(ctx, ctxTenantDBKey, db)
}

func setRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxRequestIDKey, id)
}

func setClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ctxClientIPKey, ip)
}

// =================================================================================
// CONTEXT GETTERS
// =================================================================================

// GetClaims obtiene las claims validadas. nil si RequireAuth no corrió.
func GetClaims(ctx context.Context) *jwt.Claims {
	c, _ := ctx.Value(ctxClaimsKey).(*jwt.Claims)
	return c
}

// GetTenantDB obtiene la base resuelta por RequireTenantPool.
func GetTenantDB(ctx context.Context) *tenantsql.TenantDB {
	d, _ := ctx.Value(ctxTenantDBKey).(*tenantsql.TenantDB)
	return d
}

// GetRequestID obtiene el request ID.
func GetRequestID(ctx context.Context) string {
	s, _ := ctx.Value(ctxRequestIDKey).(string)
	return s
}

// GetClientIP obtiene la IP resuelta por WithClientIP.
func GetClientIP(ctx context.Context) string {
	s, _ := ctx.Value(ctxClientIPKey).(string)
	return s
}
