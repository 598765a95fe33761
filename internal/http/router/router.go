// Package router arma la tabla de rutas HTTP.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	authctl "github.com/kovacsdavid/obvia/internal/http/controllers/auth"
	healthctl "github.com/kovacsdavid/obvia/internal/http/controllers/health"
	tenantsctl "github.com/kovacsdavid/obvia/internal/http/controllers/tenants"
	httperrors "github.com/kovacsdavid/obvia/internal/http/errors"
	mw "github.com/kovacsdavid/obvia/internal/http/middlewares"
	"github.com/kovacsdavid/obvia/internal/rate"
)

// Deps contiene todo lo que el router necesita.
type Deps struct {
	Auth    *authctl.Controllers
	Tenants *tenantsctl.TenantsController
	Health  *healthctl.HealthController

	Tokens mw.AccessTokenParser
	Pools  mw.TenantPoolResolver

	// AuthLimiter limita /api/auth/* por IP. nil = sin límite.
	AuthLimiter rate.Limiter
	TrustProxy  bool

	// MetricsHandler se monta en MetricsPath si no es nil.
	MetricsPath    string
	MetricsHandler http.Handler
}

// New devuelve el handler raíz.
func New(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(
		mw.WithRequestID(),
		mw.WithClientIP(d.TrustProxy),
		mw.WithLogging(),
		mw.WithRecover(),
		mw.WithMetrics(),
	)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httperrors.WriteErrorCtx(r.Context(), w, httperrors.ErrNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httperrors.WriteErrorCtx(r.Context(), w, httperrors.ErrMethodNotAllowed)
	})

	r.Get("/healthz", d.Health.Healthz)
	r.Get("/readyz", d.Health.Readyz)
	if d.MetricsHandler != nil {
		path := d.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Method(http.MethodGet, path, d.MetricsHandler)
	}

	r.Route("/api", func(r chi.Router) {
		registerAuthRoutes(r, d)
		registerTenantRoutes(r, d)
	})

	return r
}

func registerAuthRoutes(r chi.Router, d Deps) {
	r.Route("/auth", func(r chi.Router) {
		r.Use(mw.WithRateLimit(d.AuthLimiter, mw.IPRateKey))

		r.Post("/login", d.Auth.Login.Login)
		r.Post("/refresh", d.Auth.Session.Refresh)
		r.Post("/logout", d.Auth.Session.Logout)

		r.Group(func(r chi.Router) {
			r.Use(mw.RequireAuth(d.Tokens))
			r.Post("/activate-tenant", d.Auth.Activation.Activate)
		})
	})
}

func registerTenantRoutes(r chi.Router, d Deps) {
	r.Route("/tenants", func(r chi.Router) {
		r.Use(mw.RequireAuth(d.Tokens))

		r.Post("/", d.Tenants.Create)
		r.Get("/", d.Tenants.List)

		r.With(mw.RequireTenantPool(d.Pools)).Get("/active/health", d.Tenants.ActiveHealth)
	})
}
