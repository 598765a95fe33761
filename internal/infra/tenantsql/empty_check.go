package tenantsql

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/kovacsdavid/obvia/internal/domain/repository"
	"github.com/kovacsdavid/obvia/internal/observability/logger"
)

// EmptyChecker verifica una base self-hosted antes de aceptarla.
type EmptyChecker struct {
	Timeout time.Duration
}

// NewEmptyChecker crea un EmptyChecker con el timeout dado (3s si es <= 0).
func NewEmptyChecker(timeout time.Duration) *EmptyChecker {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &EmptyChecker{Timeout: timeout}
}

// CheckEmpty conecta con el sslmode del descriptor y exige que la base no tenga
// tablas fuera de los catálogos del sistema.
func (c *EmptyChecker) CheckEmpty(ctx context.Context, desc repository.DatabaseConnection) error {
	log := logger.From(ctx).With(logger.Component("tenantsql.empty_check"), logger.DBHost(desc.Host), logger.DBName(desc.Name))

	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	ccfg, err := c.connConfig(desc)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseUnreachable, err)
	}

	conn, err := pgx.ConnectConfig(ctx, ccfg)
	if err != nil {
		log.Info("self-hosted test connect failed", logger.Err(err))
		return fmt.Errorf("%w: %v", ErrDatabaseUnreachable, err)
	}
	defer conn.Close(context.Background())

	n, err := countUserRelations(ctx, conn)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseUnreachable, err)
	}
	if n > 0 {
		log.Info("self-hosted database not empty", logger.Count(n))
		return ErrDatabaseNotEmpty
	}
	return nil
}

// connConfig arma la config de una conexión suelta. pool_max_conns es de
// pgxpool: pgx.ParseConfig lo mandaría al servidor como runtime param.
func (c *EmptyChecker) connConfig(desc repository.DatabaseConnection) (*pgx.ConnConfig, error) {
	single := desc
	single.MaxPoolSize = 0
	ccfg, err := pgx.ParseConfig(DSN(single))
	if err != nil {
		return nil, err
	}
	ccfg.ConnectTimeout = c.Timeout
	return ccfg, nil
}

// pg_class lista todas las relaciones sin importar los privilegios del rol;
// information_schema oculta las que el rol no puede leer.
const userRelationsQuery = `
	SELECT COUNT(*) FROM pg_catalog.pg_class c
	JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
	WHERE c.relkind IN ('r', 'p', 'v', 'm', 'f', 'S')
	  AND n.nspname NOT IN ('pg_catalog', 'information_schema')
	  AND n.nspname NOT LIKE 'pg\_toast%'
	  AND n.nspname NOT LIKE 'pg\_temp\_%'`

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func countUserRelations(ctx context.Context, q rowQuerier) (int, error) {
	var n int
	if err := q.QueryRow(ctx, userRelationsQuery).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
