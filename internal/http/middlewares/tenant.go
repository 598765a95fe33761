package middlewares

import (
	"net/http"

	"github.com/kovacsdavid/obvia/internal/http/errors"
	"github.com/kovacsdavid/obvia/internal/infra/tenantsql"
)

// TenantPoolResolver resuelve la base de un tenant. *tenantsql.Manager lo implementa.
type TenantPoolResolver interface {
	TenantDB(tenantID string) (*tenantsql.TenantDB, error)
}

// RequireTenantPool resuelve el pool del active_tenant de las claims.
// Debe ir después de RequireAuth. Sin tenant activo: 403. Pool desconocido: 500.
func RequireTenantPool(pools TenantPoolResolver) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetClaims(r.Context())
			if claims == nil {
				errors.WriteErrorCtx(r.Context(), w, errors.ErrUnauthorized)
				return
			}
			tenantID := claims.TenantID()
			if tenantID == "" {
				errors.WriteErrorCtx(r.Context(), w, errors.ErrNoActiveTenant)
				return
			}

			db, err := pools.TenantDB(tenantID)
			if err != nil {
				errors.WriteErrorCtx(r.Context(), w, errors.ErrInternal.WithCause(err))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithTenantDB(r.Context(), db)))
		})
	}
}
