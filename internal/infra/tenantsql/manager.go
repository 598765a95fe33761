package tenantsql

import (
	"context"
		"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/kovacsdavid/obvia/internal/domain/repository"
	"github.com/kovacsdavid/obvia/internal/observability/logger"
)

// TenantPools es el registro de pools por tenant que consumen los servicios
// y el middleware. *Manager lo implementa; los tests usan fakes.
type TenantPools interface {
	MainPool() *pgxpool.Pool
	TenantPool(tenantID string) (*pgxpool.Pool, error)
	AddTenantPool(ctx context.Context, tenantID string, desc repository.DatabaseConnection) (string, error)
}

// TenantLister lista los tenants no borrados (repository.TenantRepository lo cumple).
type TenantLister interface {
	ListActive(ctx context.Context) ([]repository.Tenant, error)
}

// Dialer crea un pool a partir de su configuración.
type Dialer func(ctx context.Context, cfg *pgxpool.Config) (*pgxpool.Pool, error)

// Config permite personalizar la instancia del Manager.
type Config struct {
	// AcquireTimeout acota TenantDB.Acquire. Default 3s.
	AcquireTimeout time.Duration
	// ConnectTimeout acota el handshake de cada pool nuevo. Default 3s.
	ConnectTimeout time.Duration
	// InitConcurrency limita los pools creados en paralelo por InitTenantPools. Default 4.
	InitConcurrency int
	// Dial reemplaza la creación de pools (tests). Default: NewWithConfig + Ping.
	Dial Dialer
}

// PoolStat es un snapshot del estado de un pool específico.
type PoolStat struct {
	Tenant   string
	Acquired int32
	Idle     int32
	Total    int32
	Max      int32
}

// Manager administra un pool por tenant más el pool del manager database.
// La conexión de un pool nuevo ocurre fuera del lock; singleflight evita
// handshakes duplicados para el mismo tenant.
type Manager struct {
	main *pgxpool.Pool
	cfg  Config

	mu    sync.RWMutex
	pools map[string]*pgxpool.Pool
	sf    singleflight.Group
}

var _ TenantPools = (*Manager)(nil)

// New crea un Manager sobre el pool del manager database.
func New(main *pgxpool.Pool, cfg Config) *Manager {
	if cfg.AcquireTimeout <= 0 {
		cfg.AcquireTimeout = 3 * time.Second
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 3 * time.Second
	}
	if cfg.InitConcurrency <= 0 {
		cfg.InitConcurrency = 4
	}
	if cfg.Dial == nil {
		cfg.Dial = dialAndPing
	}
	return &Manager{
		main:  main,
		cfg:   cfg,
		pools: make(map[string]*pgxpool.Pool),
	}
}

func dialAndPing(ctx context.Context, cfg *pgxpool.Config) (*pgxpool.Pool, error) {
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// MainPool devuelve el pool del manager database.
func (m *Manager) MainPool() *pgxpool.Pool { return m.main }

// TenantPool devuelve el pool registrado para el tenant o ErrTenantPoolNotFound.
func (m *Manager) TenantPool(tenantID string) (*pgxpool.Pool, error) {
	m.mu.RLock()
	pool, ok := m.pools[tenantID]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTenantPoolNotFound, tenantID)
	}
	return pool, nil
}

// AddTenantPool crea (o devuelve el existente) pool del tenant.
func (m *Manager) AddTenantPool(ctx context.Context, tenantID string, desc repository.DatabaseConnection) (string, error) {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return "", fmt.Errorf("tenantsql: empty tenant id")
	}

	m.mu.RLock()
	_, ok := m.pools[tenantID]
	m.mu.RUnlock()
	if ok {
		return tenantID, nil
	}

	// El handshake no hereda la cancelación del primer llamador: cada uno
	// espera con su propio ctx y el dial queda acotado por ConnectTimeout.
	ch := m.sf.DoChan(tenantID, func() (interface{}, error) {
		return m.createPool(context.WithoutCancel(ctx), tenantID, desc)
	})
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("tenantsql: add tenant %s: %w", tenantID, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
	}
	return tenantID, nil
}

func (m *Manager) createPool(ctx context.Context, tenantID string, desc repository.DatabaseConnection) (*pgxpool.Pool, error) {
	log := logger.From(ctx).With(logger.Component("tenantsql.manager"), logger.TenantID(tenantID))

	// Otro llamador pudo terminar entre el RUnlock y el Do.
	m.mu.RLock()
	existing, ok := m.pools[tenantID]
	m.mu.RUnlock()
	if ok {
		return existing, nil
	}

	pcfg, err := PoolConfig(desc, m.cfg.ConnectTimeout)
	if err != nil {
		return nil, err
	}

	dialCtx, cancel := context.WithTimeout(ctx, m.cfg.ConnectTimeout)
	defer cancel()

	start := time.Now()
	pool, err := m.cfg.Dial(dialCtx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("tenantsql: connect tenant %s: %w", tenantID, err)
	}

	m.mu.Lock()
	if existing, ok := m.pools[tenantID]; ok {
		m.mu.Unlock()
		pool.Close()
		return existing, nil
	}
	m.pools[tenantID] = pool
	m.mu.Unlock()

	log.Info("tenant pool ready",
		logger.DBHost(desc.Host),
		logger.DBName(desc.Name),
		logger.Int("max_conns", int(pcfg.MaxConns)),
		logger.Duration(time.Since(start)),
	)
	return pool, nil
}

// TenantDB devuelve el acceso acotado a la base del tenant o ErrTenantPoolNotFound.
func (m *Manager) TenantDB(tenantID string) (*TenantDB, error) {
	pool, err := m.TenantPool(tenantID)
	if err != nil {
		return nil, err
	}
	return NewTenantDB(tenantID, pool, m.cfg.AcquireTimeout), nil
}

// InitTenantPools crea los pools de todos los tenants no borrados.
// Un tenant que falla se loguea y no aborta el resto; sólo el listado puede fallar.
func (m *Manager) InitTenantPools(ctx context.Context, lister TenantLister) (int, error) {
	log := logger.From(ctx).With(logger.Component("tenantsql.manager"), logger.Op("InitTenantPools"))

	tenants, err := lister.ListActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("tenantsql: list tenants: %w", err)
	}

	var (
		okMu sync.Mutex
		ok   int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.cfg.InitConcurrency)
	for _, t := range tenants {
		t := t
		if t.DeletedAt != nil {
			continue
		}
		g.Go(func() error {
			if _, err := m.AddTenantPool(gctx, t.ID, t.DB); err != nil {
				log.Error("tenant pool init failed", logger.TenantID(t.ID), logger.Err(err))
				return nil
			}
			okMu.Lock()
			ok++
			okMu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	log.Info("tenant pools initialized", logger.Count(ok), logger.Int("total", len(tenants)))
	return ok, nil
}

// PoolCount retorna el número de pools de tenant activos.
func (m *Manager) PoolCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.pools)
}

// Stats devuelve un snapshot con los stats actuales de cada pool.
func (m *Manager) Stats() map[string]PoolStat {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]PoolStat, len(m.pools))
	for id, pool := range m.pools {
		if pool == nil {
			continue
		}
		stat := pool.Stat()
		out[id] = PoolStat{
			Tenant:   id,
			Acquired: stat.AcquiredConns(),
			Idle:     stat.IdleConns(),
			Total:    stat.TotalConns(),
			Max:      stat.MaxConns(),
		}
	}
	return out
}

// Close cierra todos los pools de tenant. El pool principal lo cierra su dueño.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, pool := range m.pools {
		if pool != nil {
			pool.Close()
		}
		delete(m.pools, id)
	}
}
