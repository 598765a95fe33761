// Package pg implementa los repositorios del manager database sobre pgx/v5.
package pg

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kovacsdavid/obvia/internal/domain/repository"
)

// querier es lo común entre *pgxpool.Pool y pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store agrupa los repositorios del manager database sobre un único pool.
type Store struct {
	pool      *pgxpool.Pool
	adminRole string
}

// PoolOptions ajusta el pool del manager database.
type PoolOptions struct {
	MaxConns        int32
	MinConns        int32
	ConnMaxLifetime time.Duration
	ConnectTimeout  time.Duration
}

// ErrInvalidDSN: el DSN no se pudo parsear; reintentar no sirve.
var ErrInvalidDSN = errors.New("pg: invalid dsn")

// Open crea el pool del manager database y verifica la conexión.
func Open(ctx context.Context, dsn string, opts PoolOptions) (*pgxpool.Pool, error) {
	pcfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDSN, err)
	}
	if opts.MaxConns > 0 {
		pcfg.MaxConns = opts.MaxConns
	}
	if opts.MinConns > 0 {
		pcfg.MinConns = opts.MinConns
	}
	if opts.ConnMaxLifetime > 0 {
		pcfg.MaxConnLifetime = opts.ConnMaxLifetime
	}
	if opts.ConnectTimeout > 0 {
		pcfg.ConnConfig.ConnectTimeout = opts.ConnectTimeout
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("pg: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg: ping failed: %w", err)
	}
	return pool, nil
}

// New envuelve un pool existente. adminRole es el rol al que se otorgan los
// roles de tenants managed (normalmente el usuario del manager database).
func New(pool *pgxpool.Pool, adminRole string) *Store {
	return &Store{pool: pool, adminRole: adminRole}
}

// Pool expone el pool interno (métricas, migraciones).
func (s *Store) Pool() *pgxpool.Pool { return s.pool }

func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

// ─── Repositorios ───

func (s *Store) Users() repository.UserRepository { return &userRepo{q: s.pool} }
func (s *Store) Tenants() repository.TenantRepository {
	return &tenantRepo{pool: s.pool}
}
func (s *Store) UserTenants() repository.UserTenantRepository { return &userTenantRepo{q: s.pool} }
func (s *Store) Tokens() repository.TokenRepository           { return &tokenRepo{q: s.pool} }
func (s *Store) Events() repository.AccountEventRepository    { return &eventRepo{q: s.pool} }
func (s *Store) DatabaseAdmin() repository.TenantDatabaseAdmin {
	return &databaseAdmin{pool: s.pool, adminRole: s.adminRole}
}

// ─── helpers ───

const uniqueViolation = "23505"

// mapErr traduce errores del driver a errores de dominio.
func mapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("pg: %s: %w", op, repository.ErrConflict)
	}
	return fmt.Errorf("pg: %s: %w", op, err)
}

// nullIfEmpty returns nil if the string is empty, otherwise returns the string pointer.
func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
