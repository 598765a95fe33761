// Package tenants implementa el alta de tenants (managed y self-hosted) y el
// listado de membresías del usuario.
package tenants

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/kovacsdavid/obvia/internal/domain/repository"
	"github.com/kovacsdavid/obvia/internal/infra/tenantsql"
	"github.com/kovacsdavid/obvia/internal/metrics"
	"github.com/kovacsdavid/obvia/internal/notify"
	"github.com/kovacsdavid/obvia/internal/observability/logger"
	"github.com/kovacsdavid/obvia/internal/validation"
)

const (
	kindManaged    = "managed"
	kindSelfHosted = "self_hosted"

	defaultSelfHostedSSLMode = repository.SSLModeRequire
)

// PoolRegistrar registra el pool de un tenant recién creado.
type PoolRegistrar interface {
	AddTenantPool(ctx context.Context, tenantID string, desc repository.DatabaseConnection) (string, error)
}

// Migrator aplica el esquema de tenant sobre una base nueva.
type Migrator interface {
	MigrateDescriptor(ctx context.Context, tenantID string, desc repository.DatabaseConnection) (*tenantsql.MigrationResult, error)
}

// EmptyChecker verifica que una base self-hosted sea alcanzable y esté vacía.
type EmptyChecker interface {
	CheckEmpty(ctx context.Context, desc repository.DatabaseConnection) error
}

// ManagedDefaults son los parámetros de conexión de las bases managed.
type ManagedDefaults struct {
	Host        string
	Port        int
	SSLMode     string
	MaxPoolSize int
}

// CreateInput es el request de alta ya decodificado.
type CreateInput struct {
	Name         string
	IsSelfHosted bool
	DBHost       string
	DBPort       int
	DBName       string
	DBUser       string
	DBPassword   string
	DBSSLMode    string
}

// ProvisionService crea tenants y lista membresías.
type ProvisionService interface {
	Create(ctx context.Context, ownerID string, in CreateInput) (*repository.Tenant, error)
	ListForUser(ctx context.Context, userID string) ([]repository.Membership, error)
}

// Deps contiene las dependencias del provisioner.
type Deps struct {
	Tenants               repository.TenantRepository
	UserTenants           repository.UserTenantRepository
	DBAdmin               repository.TenantDatabaseAdmin
	Pools                 PoolRegistrar
	Migrator              Migrator
	EmptyChecker          EmptyChecker
	Notifier              notify.Notifier
	Managed               ManagedDefaults
	SelfHostedMaxPoolSize int
}

type provisionService struct {
	deps Deps
}

// NewProvisionService crea un nuevo ProvisionService.
func NewProvisionService(deps Deps) ProvisionService {
	if deps.Notifier == nil {
		deps.Notifier = notify.Noop{}
	}
	if deps.Managed.MaxPoolSize <= 0 {
		deps.Managed.MaxPoolSize = 5
	}
	if deps.Managed.SSLMode == "" {
		deps.Managed.SSLMode = repository.SSLModePrefer
	}
	if deps.SelfHostedMaxPoolSize <= 0 {
		deps.SelfHostedMaxPoolSize = 5
	}
	return &provisionService{deps: deps}
}

func (s *provisionService) Create(ctx context.Context, ownerID string, in CreateInput) (*repository.Tenant, error) {
	kind := kindManaged
	if in.IsSelfHosted {
		kind = kindSelfHosted
	}
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("tenants.provision"),
		logger.Op("Create"),
		logger.UserID(ownerID),
		logger.String("kind", kind),
	)
	ctx = logger.ToContext(ctx, log)

	if strings.TrimSpace(in.Name) == "" {
		return nil, FieldErrors{"name": "required"}
	}

	var (
		tenant *repository.Tenant
		err    error
	)
	if in.IsSelfHosted {
		tenant, err = s.createSelfHosted(ctx, ownerID, in)
	} else {
		tenant, err = s.createManaged(ctx, ownerID, in)
	}

	if err != nil {
		metrics.RecordProvisioning(kind, "failure")
		return nil, err
	}
	metrics.RecordProvisioning(kind, "success")
	log.Info("tenant provisioned", logger.TenantID(tenant.ID))
	return tenant, nil
}

// managedIdentifiers deriva nombre de base y rol del id: tenant_<hex>.
func managedIdentifiers(id uuid.UUID) (dbName, dbUser string) {
	h := strings.ReplaceAll(id.String(), "-", "")
	return "tenant_" + h, "tenant_" + h
}

func generatePassword() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate password: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func (s *provisionService) createManaged(ctx context.Context, ownerID string, in CreateInput) (*repository.Tenant, error) {
	log := logger.From(ctx)

	id := uuid.New()
	dbName, dbUser := managedIdentifiers(id)
	pass, err := generatePassword()
	if err != nil {
		return nil, err
	}

	tenant := &repository.Tenant{
		ID:           id.String(),
		Name:         strings.TrimSpace(in.Name),
		IsSelfHosted: false,
		DB: repository.DatabaseConnection{
			Host:        s.deps.Managed.Host,
			Port:        s.deps.Managed.Port,
			Name:        dbName,
			User:        dbUser,
			Password:    pass,
			MaxPoolSize: s.deps.Managed.MaxPoolSize,
			SSLMode:     s.deps.Managed.SSLMode,
		},
	}

	// 1) Tenant + owner en una transacción
	if err := s.insert(ctx, tenant, ownerID); err != nil {
		return nil, err
	}

	sg := &saga{
		tenantID: tenant.ID,
		fields:   map[string]string{"db_name": dbName, "db_role": dbUser},
		notifier: s.deps.Notifier,
	}
	sg.push("soft_delete_tenant", func(ctx context.Context) error {
		return s.deps.Tenants.SoftDelete(ctx, tenant.ID)
	})
	fail := func(step string, cause error) error {
		log.Error("managed provisioning failed", logger.TenantID(tenant.ID), logger.String("step", step), logger.Err(cause))
		sg.compensate(ctx, cause)
		return fmt.Errorf("%w: %s: %w", ErrProvisioningFailed, step, cause)
	}

	// 2) Rol + GRANT al rol administrativo
	if err := s.deps.DBAdmin.CreateRole(ctx, dbUser, pass); err != nil {
		return nil, fail("create_role", err)
	}
	sg.push("drop_role", func(ctx context.Context) error {
		return s.deps.DBAdmin.DropRole(ctx, dbUser)
	})

	// 3) CREATE DATABASE fuera de transacción
	if err := s.deps.DBAdmin.CreateDatabase(ctx, dbName, dbUser); err != nil {
		return nil, fail("create_database", err)
	}
	sg.push("drop_database", func(ctx context.Context) error {
		return s.deps.DBAdmin.DropDatabase(ctx, dbName)
	})

	// 4) + 5) migración y pool
	if err := s.migrateAndRegister(ctx, tenant); err != nil {
		return nil, fail("activate", err)
	}
	return tenant, nil
}

func (s *provisionService) createSelfHosted(ctx context.Context, ownerID string, in CreateInput) (*repository.Tenant, error) {
	log := logger.From(ctx)

	if errs := ValidateSelfHosted(in); len(errs) > 0 {
		return nil, errs
	}

	sslMode := in.DBSSLMode
	if sslMode == "" {
		sslMode = defaultSelfHostedSSLMode
	}
	tenant := &repository.Tenant{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(in.Name),
		IsSelfHosted: true,
		DB: repository.DatabaseConnection{
			Host:        strings.TrimSpace(in.DBHost),
			Port:        in.DBPort,
			Name:        in.DBName,
			User:        in.DBUser,
			Password:    in.DBPassword,
			MaxPoolSize: s.deps.SelfHostedMaxPoolSize,
			SSLMode:     sslMode,
		},
	}

	// 1) Conexión de prueba + base vacía, antes de persistir nada
	if err := s.deps.EmptyChecker.CheckEmpty(ctx, tenant.DB); err != nil {
		log.Info("self-hosted database rejected", logger.DBHost(tenant.DB.Host), logger.Err(err))
		if errors.Is(err, ErrDatabaseUnreachable) || errors.Is(err, ErrDatabaseNotEmpty) {
			return nil, err
		}
		return nil, fmt.Errorf("check database: %w", err)
	}

	// 2) Tenant + owner
	if err := s.insert(ctx, tenant, ownerID); err != nil {
		return nil, err
	}

	// 3) + 4) migración y pool; si fallan, el tenant se da de baja
	if err := s.migrateAndRegister(ctx, tenant); err != nil {
		log.Error("self-hosted provisioning failed", logger.TenantID(tenant.ID), logger.Err(err))
		sg := &saga{
			tenantID: tenant.ID,
			fields:   map[string]string{"db_host": tenant.DB.Host, "db_name": tenant.DB.Name},
			notifier: s.deps.Notifier,
		}
		sg.push("soft_delete_tenant", func(ctx context.Context) error {
			return s.deps.Tenants.SoftDelete(ctx, tenant.ID)
		})
		sg.compensate(ctx, err)
		return nil, fmt.Errorf("%w: activate: %w", ErrProvisioningFailed, err)
	}
	return tenant, nil
}

func (s *provisionService) insert(ctx context.Context, tenant *repository.Tenant, ownerID string) error {
	err := s.deps.Tenants.CreateWithOwner(ctx, tenant, repository.UserTenant{
		UserID: ownerID,
		Role:   repository.RoleOwner,
	})
	if err != nil {
		if repository.IsConflict(err) {
			return ErrTenantExists
		}
		return fmt.Errorf("insert tenant: %w", err)
	}
	return nil
}

func (s *provisionService) migrateAndRegister(ctx context.Context, tenant *repository.Tenant) error {
	res, err := s.deps.Migrator.MigrateDescriptor(ctx, tenant.ID, tenant.DB)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	logger.From(ctx).Info("tenant schema migrated",
		logger.TenantID(tenant.ID),
		logger.Int("applied", len(res.Applied)),
	)

	if _, err := s.deps.Pools.AddTenantPool(ctx, tenant.ID, tenant.DB); err != nil {
		return fmt.Errorf("register pool: %w", err)
	}
	return nil
}

func (s *provisionService) ListForUser(ctx context.Context, userID string) ([]repository.Membership, error) {
	ms, err := s.deps.UserTenants.ListForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list memberships: %w", err)
	}
	return ms, nil
}

// ValidateSelfHosted aplica las reglas de db_* para tenants self-hosted.
func ValidateSelfHosted(in CreateInput) FieldErrors {
	errs := FieldErrors{}
	if err := validation.DBHost(in.DBHost); err != nil {
		errs["db_host"] = err.Error()
	}
	if err := validation.DBPort(in.DBPort); err != nil {
		errs["db_port"] = err.Error()
	}
	if strings.TrimSpace(in.DBName) == "" {
		errs["db_name"] = "required"
	}
	if strings.TrimSpace(in.DBUser) == "" {
		errs["db_user"] = "required"
	}
	if in.DBPassword == "" {
		errs["db_password"] = "required"
	}
	if in.DBSSLMode != "" && !repository.ValidSSLMode(in.DBSSLMode) {
		errs["db_ssl_mode"] = "invalid ssl mode"
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}
