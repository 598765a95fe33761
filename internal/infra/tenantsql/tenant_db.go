package tenantsql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// TenantDB es el acceso de los handlers a la base de un tenant.
// Las conexiones sólo se obtienen vía Acquire, acotado por AcquireTimeout.
type TenantDB struct {
	tenantID       string
	pool           *pgxpool.Pool
	acquireTimeout time.Duration
}

// NewTenantDB envuelve el pool de un tenant con su timeout de acquire.
func NewTenantDB(tenantID string, pool *pgxpool.Pool, acquireTimeout time.Duration) *TenantDB {
	return &TenantDB{tenantID: tenantID, pool: pool, acquireTimeout: acquireTimeout}
}

func (d *TenantDB) TenantID() string { return d.tenantID }

// Acquire toma una conexión; si el pool no entrega una a tiempo devuelve
// ErrAcquireTimeout. El caller debe llamar Release.
func (d *TenantDB) Acquire(ctx context.Context) (*pgxpool.Conn, error) {
	actx, cancel := context.WithTimeout(ctx, d.acquireTimeout)
	defer cancel()

	conn, err := d.pool.Acquire(actx)
	if err == nil {
		return conn, nil
	}
	if ctx.Err() == nil && errors.Is(actx.Err(), context.DeadlineExceeded) {
		return nil, fmt.Errorf("%w: %s", ErrAcquireTimeout, d.tenantID)
	}
	return nil, fmt.Errorf("tenantsql: acquire tenant %s: %w", d.tenantID, err)
}

func (d *TenantDB) Stat() *pgxpool.Stat { return d.pool.Stat() }
