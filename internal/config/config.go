package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"gopkg.in/yaml.v3"

	"github.com/kovacsdavid/obvia/internal/domain/repository"
)

type Config struct {
	App struct {
		// dev | staging | prod
		Env     string `yaml:"env" env:"APP_ENV"`
		Name    string `yaml:"name" env:"APP_NAME"`
		Version string `yaml:"version" env:"APP_VERSION"`
	} `yaml:"app"`

	Server struct {
		Addr            string        `yaml:"addr" env:"SERVER_ADDR"`
		ReadTimeout     time.Duration `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT"`
		WriteTimeout    time.Duration `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT"`
		// TrustProxy habilita X-Forwarded-For para la IP del cliente.
		TrustProxy bool `yaml:"trust_proxy" env:"SERVER_TRUST_PROXY"`
	} `yaml:"server"`

	Log struct {
		Level string `yaml:"level" env:"LOG_LEVEL"`
	} `yaml:"log"`

	// ManagerDB es la base de control (users, tenants, refresh_tokens, ...).
	ManagerDB struct {
		DSN string `yaml:"dsn" env:"DATABASE_URL"`
		// AdminRole recibe GRANT de cada rol de tenant managed. Vacío = usuario del DSN.
		AdminRole        string        `yaml:"admin_role" env:"DATABASE_ADMIN_ROLE"`
		MaxConns         int32         `yaml:"max_conns" env:"DATABASE_MAX_CONNS"`
		MinConns         int32         `yaml:"min_conns" env:"DATABASE_MIN_CONNS"`
		ConnMaxLifetime  time.Duration `yaml:"conn_max_lifetime" env:"DATABASE_CONN_MAX_LIFETIME"`
		ConnectTimeout   time.Duration `yaml:"connect_timeout" env:"DATABASE_CONNECT_TIMEOUT"`
		BootstrapMaxWait time.Duration `yaml:"bootstrap_max_wait" env:"DATABASE_BOOTSTRAP_MAX_WAIT"`
	} `yaml:"manager_db"`

	Tenants struct {
		// Managed: dónde viven las bases creadas por el sistema.
		Managed struct {
			Host        string `yaml:"host" env:"TENANTS_MANAGED_HOST"`
			Port        int    `yaml:"port" env:"TENANTS_MANAGED_PORT"`
			SSLMode     string `yaml:"ssl_mode" env:"TENANTS_MANAGED_SSL_MODE"`
			MaxPoolSize int    `yaml:"max_pool_size" env:"TENANTS_MANAGED_MAX_POOL_SIZE"`
		} `yaml:"managed"`
		SelfHostedMaxPoolSize int           `yaml:"self_hosted_max_pool_size" env:"TENANTS_SELF_HOSTED_MAX_POOL_SIZE"`
		AcquireTimeout        time.Duration `yaml:"acquire_timeout" env:"TENANTS_ACQUIRE_TIMEOUT"`
		ConnectTimeout        time.Duration `yaml:"connect_timeout" env:"TENANTS_CONNECT_TIMEOUT"`
		InitConcurrency       int           `yaml:"init_concurrency" env:"TENANTS_INIT_CONCURRENCY"`
	} `yaml:"tenants"`

	JWT struct {
		Secret     string        `yaml:"secret" env:"JWT_SECRET"`
		Issuer     string        `yaml:"issuer" env:"JWT_ISSUER"`
		Audience   string        `yaml:"audience" env:"JWT_AUDIENCE"`
		AccessTTL  time.Duration `yaml:"access_ttl" env:"JWT_ACCESS_TTL"`
		RefreshTTL time.Duration `yaml:"refresh_ttl" env:"JWT_REFRESH_TTL"`
	} `yaml:"jwt"`

	Auth struct {
		RefreshCookie struct {
			Name     string `yaml:"name" env:"AUTH_REFRESH_COOKIE_NAME"`
			Domain   string `yaml:"domain" env:"AUTH_REFRESH_COOKIE_DOMAIN"`
			Path     string `yaml:"path" env:"AUTH_REFRESH_COOKIE_PATH"`
			Secure   bool   `yaml:"secure" env:"AUTH_REFRESH_COOKIE_SECURE"`
			SameSite string `yaml:"samesite" env:"AUTH_REFRESH_COOKIE_SAMESITE"`
		} `yaml:"refresh_cookie"`
		// LoginRate es el límite basado en account_event_log.
		LoginRate struct {
			MaxFailures int           `yaml:"max_failures" env:"AUTH_LOGIN_MAX_FAILURES"`
			Window      time.Duration `yaml:"window" env:"AUTH_LOGIN_WINDOW"`
		} `yaml:"login_rate"`
	} `yaml:"auth"`

	// Rate es el limitador HTTP por IP delante de /api/auth.
	Rate struct {
		Enabled     bool          `yaml:"enabled" env:"RATE_ENABLED"`
		MaxRequests int           `yaml:"max_requests" env:"RATE_MAX_REQUESTS"`
		Window      time.Duration `yaml:"window" env:"RATE_WINDOW"`
		Redis       struct {
			Addr     string `yaml:"addr" env:"REDIS_ADDR"`
			Password string `yaml:"password" env:"REDIS_PASSWORD"`
			DB       int    `yaml:"db" env:"REDIS_DB"`
			Prefix   string `yaml:"prefix" env:"REDIS_PREFIX"`
		} `yaml:"redis"`
	} `yaml:"rate"`

	Notify struct {
		AdminEmail string `yaml:"admin_email" env:"NOTIFY_ADMIN_EMAIL"`
		SMTP       struct {
			Host     string `yaml:"host" env:"SMTP_HOST"`
			Port     int    `yaml:"port" env:"SMTP_PORT"`
			From     string `yaml:"from" env:"SMTP_FROM"`
			User     string `yaml:"user" env:"SMTP_USER"`
			Password string `yaml:"password" env:"SMTP_PASSWORD"`
			TLS      string `yaml:"tls" env:"SMTP_TLS"` // auto|starttls|ssl|none
		} `yaml:"smtp"`
	} `yaml:"notify"`

	Metrics struct {
		Enabled bool   `yaml:"enabled" env:"METRICS_ENABLED"`
		Path    string `yaml:"path" env:"METRICS_PATH"`
	} `yaml:"metrics"`
}

// Load lee el YAML de path (si existe), aplica overrides por env, defaults y valida.
// Con path vacío la configuración sale sólo de variables de entorno.
func Load(path string) (*Config, error) {
	var c Config
	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(b, &c); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
			// sin archivo: sólo env
		default:
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	// Las variables no seteadas dejan el valor del YAML intacto.
	if err := env.Parse(&c); err != nil {
		return nil, fmt.Errorf("config: env: %w", err)
	}

	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	c.App.Env = strings.ToLower(strings.TrimSpace(c.App.Env))
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.App.Name == "" {
		c.App.Name = "obvia"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 15 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 30 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 15 * time.Second
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}

	if c.ManagerDB.MaxConns == 0 {
		c.ManagerDB.MaxConns = 10
	}
	if c.ManagerDB.ConnMaxLifetime == 0 {
		c.ManagerDB.ConnMaxLifetime = 30 * time.Minute
	}
	if c.ManagerDB.ConnectTimeout == 0 {
		c.ManagerDB.ConnectTimeout = 5 * time.Second
	}
	if c.ManagerDB.BootstrapMaxWait == 0 {
		c.ManagerDB.BootstrapMaxWait = time.Minute
	}

	if c.Tenants.Managed.Port == 0 {
		c.Tenants.Managed.Port = 5432
	}
	if c.Tenants.Managed.SSLMode == "" {
		c.Tenants.Managed.SSLMode = repository.SSLModePrefer
	}
	if c.Tenants.Managed.MaxPoolSize == 0 {
		c.Tenants.Managed.MaxPoolSize = 5
	}
	if c.Tenants.SelfHostedMaxPoolSize == 0 {
		c.Tenants.SelfHostedMaxPoolSize = 5
	}
	if c.Tenants.AcquireTimeout == 0 {
		c.Tenants.AcquireTimeout = 3 * time.Second
	}
	if c.Tenants.ConnectTimeout == 0 {
		c.Tenants.ConnectTimeout = 3 * time.Second
	}
	if c.Tenants.InitConcurrency == 0 {
		c.Tenants.InitConcurrency = 4
	}

	if c.JWT.Issuer == "" {
		c.JWT.Issuer = "obvia"
	}
	if c.JWT.Audience == "" {
		c.JWT.Audience = "obvia"
	}
	if c.JWT.AccessTTL == 0 {
		c.JWT.AccessTTL = 15 * time.Minute
	}
	if c.JWT.RefreshTTL == 0 {
		c.JWT.RefreshTTL = 7 * 24 * time.Hour
	}

	if c.Auth.RefreshCookie.Name == "" {
		c.Auth.RefreshCookie.Name = "refresh_token"
	}
	if c.Auth.RefreshCookie.Path == "" {
		c.Auth.RefreshCookie.Path = "/api/auth"
	}
	if c.Auth.RefreshCookie.SameSite == "" {
		c.Auth.RefreshCookie.SameSite = "Strict"
	}
	if c.Auth.LoginRate.MaxFailures == 0 {
		c.Auth.LoginRate.MaxFailures = 10
	}
	if c.Auth.LoginRate.Window == 0 {
		c.Auth.LoginRate.Window = 60 * time.Minute
	}

	if c.Rate.MaxRequests == 0 {
		c.Rate.MaxRequests = 60
	}
	if c.Rate.Window == 0 {
		c.Rate.Window = time.Minute
	}
	if c.Rate.Redis.Prefix == "" {
		c.Rate.Redis.Prefix = "obvia:rl:"
	}

	if c.Notify.SMTP.Port == 0 {
		c.Notify.SMTP.Port = 587
	}
	if c.Notify.SMTP.TLS == "" {
		c.Notify.SMTP.TLS = "auto"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}

	// Guardia dura: en prod la cookie de refresh siempre es Secure.
	if c.IsProd() {
		c.Auth.RefreshCookie.Secure = true
	}
}

// IsProd reporta si el entorno es producción.
func (c *Config) IsProd() bool { return c.App.Env == "prod" }

// Validate verifica los campos obligatorios y los rangos.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.ManagerDB.DSN) == "" {
		errs = append(errs, errors.New("manager_db.dsn (DATABASE_URL) is required"))
	}
	if len(c.JWT.Secret) < 32 {
		errs = append(errs, errors.New("jwt.secret (JWT_SECRET) must be at least 32 bytes"))
	}
	if strings.TrimSpace(c.Tenants.Managed.Host) == "" {
		errs = append(errs, errors.New("tenants.managed.host (TENANTS_MANAGED_HOST) is required"))
	}
	if !repository.ValidSSLMode(c.Tenants.Managed.SSLMode) {
		errs = append(errs, fmt.Errorf("tenants.managed.ssl_mode: invalid value %q", c.Tenants.Managed.SSLMode))
	}
	if c.Auth.LoginRate.MaxFailures < 1 {
		errs = append(errs, errors.New("auth.login_rate.max_failures must be positive"))
	}
	switch strings.ToLower(c.Auth.RefreshCookie.SameSite) {
	case "strict", "lax", "none":
	default:
		errs = append(errs, fmt.Errorf("auth.refresh_cookie.samesite: invalid value %q", c.Auth.RefreshCookie.SameSite))
	}
	switch c.Notify.SMTP.TLS {
	case "auto", "starttls", "ssl", "none":
	default:
		errs = append(errs, fmt.Errorf("notify.smtp.tls: invalid value %q", c.Notify.SMTP.TLS))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}
