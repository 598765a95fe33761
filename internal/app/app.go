// Package app arma el grafo de dependencias del servicio a partir de la config.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgxpool"
	rdb "github.com/redis/go-redis/v9"

	"github.com/kovacsdavid/obvia/internal/config"
	authctl "github.com/kovacsdavid/obvia/internal/http/controllers/auth"
	healthctl "github.com/kovacsdavid/obvia/internal/http/controllers/health"
	tenantsctl "github.com/kovacsdavid/obvia/internal/http/controllers/tenants"
	"github.com/kovacsdavid/obvia/internal/http/router"
	authsvc "github.com/kovacsdavid/obvia/internal/http/services/auth"
	tenantsvc "github.com/kovacsdavid/obvia/internal/http/services/tenants"
	"github.com/kovacsdavid/obvia/internal/infra/tenantsql"
	"github.com/kovacsdavid/obvia/internal/jwt"
	"github.com/kovacsdavid/obvia/internal/metrics"
	"github.com/kovacsdavid/obvia/internal/notify"
	"github.com/kovacsdavid/obvia/internal/observability/logger"
	"github.com/kovacsdavid/obvia/internal/rate"
	"github.com/kovacsdavid/obvia/internal/store/pg"
	"github.com/kovacsdavid/obvia/migrations"
)

// Container es el grafo armado. Close libera pools y clientes.
type Container struct {
	Config   *config.Config
	Store    *pg.Store
	Tenants  *tenantsql.Manager
	Codec    *jwt.Codec
	Migrator *tenantsql.Migrator
	Handler  http.Handler

	closers []func()
}

// Close cierra en orden inverso de creación.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}

// ConnectManagerDB abre el pool del manager database reintentando con backoff
// exponencial hasta BootstrapMaxWait.
func ConnectManagerDB(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	log := logger.From(ctx).With(logger.Component("app.bootstrap"))
	opts := pg.PoolOptions{
		MaxConns:        cfg.ManagerDB.MaxConns,
		MinConns:        cfg.ManagerDB.MinConns,
		ConnMaxLifetime: cfg.ManagerDB.ConnMaxLifetime,
		ConnectTimeout:  cfg.ManagerDB.ConnectTimeout,
	}

	var pool *pgxpool.Pool
	op := func() error {
		p, err := pg.Open(ctx, cfg.ManagerDB.DSN, opts)
		if err != nil {
			if errors.Is(err, pg.ErrInvalidDSN) {
				return backoff.Permanent(err)
			}
			log.Warn("manager database not ready, retrying", logger.Err(err))
			return err
		}
		pool = p
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 250 * time.Millisecond
	bo.MaxInterval = 5 * time.Second
	bo.MaxElapsedTime = cfg.ManagerDB.BootstrapMaxWait
	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		return nil, fmt.Errorf("connect manager database: %w", err)
	}
	return pool, nil
}

// NewTenantManager crea el registro de pools de tenant sobre el pool principal.
func NewTenantManager(main *pgxpool.Pool, cfg *config.Config) *tenantsql.Manager {
	return tenantsql.New(main, tenantsql.Config{
		AcquireTimeout:  cfg.Tenants.AcquireTimeout,
		ConnectTimeout:  cfg.Tenants.ConnectTimeout,
		InitConcurrency: cfg.Tenants.InitConcurrency,
	})
}

// NewNotifier devuelve SMTP si hay host y destinatario; si no, Noop.
func NewNotifier(cfg *config.Config) notify.Notifier {
	n := cfg.Notify
	if n.SMTP.Host == "" || n.AdminEmail == "" {
		return notify.Noop{}
	}
	s := notify.NewSMTPNotifier(n.SMTP.Host, n.SMTP.Port, n.SMTP.From, n.AdminEmail, n.SMTP.User, n.SMTP.Password)
	s.TLSMode = n.SMTP.TLS
	return s
}

// newAuthLimiter: Redis si está configurado, go-cache si no. nil si está deshabilitado.
func newAuthLimiter(ctx context.Context, cfg *config.Config) (rate.Limiter, func()) {
	if !cfg.Rate.Enabled {
		return nil, func() {}
	}
	if cfg.Rate.Redis.Addr == "" {
		return rate.NewMemoryLimiter(cfg.Rate.MaxRequests, cfg.Rate.Window), func() {}
	}
	rc := rdb.NewClient(&rdb.Options{
		Addr:     cfg.Rate.Redis.Addr,
		Password: cfg.Rate.Redis.Password,
		DB:       cfg.Rate.Redis.DB,
	})
	if err := rc.Ping(ctx).Err(); err != nil {
		logger.From(ctx).Warn("redis unavailable, using in-memory rate limiter", logger.Err(err))
		_ = rc.Close()
		return rate.NewMemoryLimiter(cfg.Rate.MaxRequests, cfg.Rate.Window), func() {}
	}
	return rate.NewRedisLimiter(rc, cfg.Rate.Redis.Prefix, cfg.Rate.MaxRequests, cfg.Rate.Window),
		func() { _ = rc.Close() }
}

func sameSite(s string) http.SameSite {
	switch strings.ToLower(s) {
	case "lax":
		return http.SameSiteLaxMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteStrictMode
	}
}

// Build conecta, migra el manager database, levanta los pools de tenant y arma el handler HTTP.
func Build(ctx context.Context, cfg *config.Config) (*Container, error) {
	log := logger.From(ctx).With(logger.Component("app"))
	c := &Container{Config: cfg}

	pool, err := ConnectManagerDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	c.closers = append(c.closers, pool.Close)

	if _, err := tenantsql.NewMigrator(migrations.ManagerFS, migrations.ManagerDir).RunPool(ctx, pool, "manager"); err != nil {
		c.Close()
		return nil, fmt.Errorf("migrate manager database: %w", err)
	}

	c.Store = pg.New(pool, cfg.ManagerDB.AdminRole)
	c.Tenants = NewTenantManager(pool, cfg)
	c.closers = append(c.closers, c.Tenants.Close)
	c.Migrator = tenantsql.NewMigrator(migrations.TenantFS, migrations.TenantDir)

	n, err := c.Tenants.InitTenantPools(ctx, c.Store.Tenants())
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("init tenant pools: %w", err)
	}
	log.Info("tenant pools initialised", logger.Count(n))

	c.Codec, err = jwt.NewCodec([]byte(cfg.JWT.Secret), cfg.JWT.Issuer, cfg.JWT.Audience, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)
	if err != nil {
		c.Close()
		return nil, err
	}

	authServices := authsvc.NewServices(authsvc.Deps{
		Users:       c.Store.Users(),
		UserTenants: c.Store.UserTenants(),
		Tokens:      c.Store.Tokens(),
		Events:      c.Store.Events(),
		Codec:       c.Codec,
		LoginRate: authsvc.LoginRate{
			MaxFailures: cfg.Auth.LoginRate.MaxFailures,
			Window:      cfg.Auth.LoginRate.Window,
		},
	})

	provisioner := tenantsvc.NewProvisionService(tenantsvc.Deps{
		Tenants:      c.Store.Tenants(),
		UserTenants:  c.Store.UserTenants(),
		DBAdmin:      c.Store.DatabaseAdmin(),
		Pools:        c.Tenants,
		Migrator:     c.Migrator,
		EmptyChecker: tenantsql.NewEmptyChecker(cfg.Tenants.ConnectTimeout),
		Notifier:     NewNotifier(cfg),
		Managed: tenantsvc.ManagedDefaults{
			Host:        cfg.Tenants.Managed.Host,
			Port:        cfg.Tenants.Managed.Port,
			SSLMode:     cfg.Tenants.Managed.SSLMode,
			MaxPoolSize: cfg.Tenants.Managed.MaxPoolSize,
		},
		SelfHostedMaxPoolSize: cfg.Tenants.SelfHostedMaxPoolSize,
	})

	limiter, closeLimiter := newAuthLimiter(ctx, cfg)
	c.closers = append(c.closers, closeLimiter)

	deps := router.Deps{
		Auth: authctl.NewControllers(authServices, authctl.CookieConfig{
			Name:     cfg.Auth.RefreshCookie.Name,
			Domain:   cfg.Auth.RefreshCookie.Domain,
			Path:     cfg.Auth.RefreshCookie.Path,
			Secure:   cfg.Auth.RefreshCookie.Secure,
			SameSite: sameSite(cfg.Auth.RefreshCookie.SameSite),
		}),
		Tenants:     tenantsctl.NewTenantsController(provisioner, cfg.Tenants.AcquireTimeout),
		Health:      healthctl.NewHealthController(pool, c.Tenants, cfg.App.Version),
		Tokens:      c.Codec,
		Pools:       c.Tenants,
		AuthLimiter: limiter,
		TrustProxy:  cfg.Server.TrustProxy,
	}

	if cfg.Metrics.Enabled {
		if err := metrics.Register(nil, metrics.NewPoolCollector(c.Tenants)); err != nil {
			c.Close()
			return nil, fmt.Errorf("register metrics: %w", err)
		}
		deps.MetricsPath = cfg.Metrics.Path
		deps.MetricsHandler = metrics.Handler()
	}

	c.Handler = router.New(deps)
	return c, nil
}
