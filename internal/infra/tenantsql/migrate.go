package tenantsql

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kovacsdavid/obvia/internal/domain/repository"
	"github.com/kovacsdavid/obvia/internal/observability/logger"
)

// Formato de archivo: {version}_{name}.sql (ej: 0001_init.sql)
var migrationFilePattern = regexp.MustCompile(`^(\d+)_(.+)\.sql$`)

// Migration representa una migración individual.
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// MigrationResult resultado de aplicar migraciones.
type MigrationResult struct {
	Applied  []int
	Skipped  []int
	Duration time.Duration
}

// Executor es una única sesión postgres (*pgx.Conn o *pgxpool.Conn).
// El advisory lock es de sesión, por eso no se acepta un pool.
type Executor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Migrator aplica migraciones SQL embebidas, serializadas por pg_advisory_lock.
type Migrator struct {
	fsys           fs.FS
	dir            string
	lockTimeout    time.Duration
	connectTimeout time.Duration
}

// NewMigrator crea un Migrator que lee dir dentro de fsys.
func NewMigrator(fsys fs.FS, dir string) *Migrator {
	return &Migrator{
		fsys:           fsys,
		dir:            dir,
		lockTimeout:    30 * time.Second,
		connectTimeout: 3 * time.Second,
	}
}

// ParseMigrations lee y ordena por versión las migraciones del FS.
func (m *Migrator) ParseMigrations() ([]Migration, error) {
	entries, err := fs.ReadDir(m.fsys, m.dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations dir %s: %w", m.dir, err)
	}

	var migrations []Migration
	seen := map[int]string{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		matches := migrationFilePattern.FindStringSubmatch(e.Name())
		if matches == nil {
			continue // Ignorar archivos que no coinciden
		}
		version, err := strconv.Atoi(matches[1])
		if err != nil {
			return nil, fmt.Errorf("bad migration version %q: %w", e.Name(), err)
		}
		if prev, dup := seen[version]; dup {
			return nil, fmt.Errorf("duplicate migration version %d: %s and %s", version, prev, e.Name())
		}
		seen[version] = e.Name()

		content, err := fs.ReadFile(m.fsys, path.Join(m.dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", e.Name(), err)
		}
		migrations = append(migrations, Migration{Version: version, Name: matches[2], SQL: string(content)})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}

// lockID deriva la clave de pg_advisory_lock para una base.
func lockID(key string) int64 {
	h := sha256.Sum256([]byte("obvia_migration:" + key))
	return int64(binary.BigEndian.Uint64(h[:8]))
}

// Run aplica las migraciones pendientes sobre conn con el advisory lock de lockKey.
func (m *Migrator) Run(ctx context.Context, conn Executor, lockKey string) (*MigrationResult, error) {
	log := logger.From(ctx).With(logger.Component("tenantsql.migrator"), logger.String("lock_key", lockKey))
	start := time.Now()

	id := lockID(lockKey)
	lockCtx, cancel := context.WithTimeout(ctx, m.lockTimeout)
	defer cancel()

	var acquired bool
	if err := conn.QueryRow(lockCtx, "SELECT pg_try_advisory_lock($1)", id).Scan(&acquired); err != nil {
		return nil, fmt.Errorf("acquire migration lock %s: %w", lockKey, err)
	}
	if !acquired {
		log.Info("migration lock held by another process, waiting")
		if _, err := conn.Exec(lockCtx, "SELECT pg_advisory_lock($1)", id); err != nil {
			return nil, fmt.Errorf("wait for migration lock %s: %w", lockKey, err)
		}
	}
	defer func() {
		if _, err := conn.Exec(context.Background(), "SELECT pg_advisory_unlock($1)", id); err != nil {
			log.Warn("failed to release migration lock", logger.Err(err))
		}
	}()

	res, err := m.runUnlocked(ctx, conn)
	if res != nil {
		res.Duration = time.Since(start)
	}
	if err != nil {
		return res, err
	}
	log.Info("migrations done", logger.Int("applied", len(res.Applied)), logger.Int("skipped", len(res.Skipped)), logger.Duration(res.Duration))
	return res, nil
}

func (m *Migrator) runUnlocked(ctx context.Context, conn Executor) (*MigrationResult, error) {
	result := &MigrationResult{}

	const ensure = `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			name       TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`
	if _, err := conn.Exec(ctx, ensure); err != nil {
		return result, fmt.Errorf("creating migrations table: %w", err)
	}

	applied, err := appliedVersions(ctx, conn)
	if err != nil {
		return result, fmt.Errorf("getting applied migrations: %w", err)
	}

	migrations, err := m.ParseMigrations()
	if err != nil {
		return result, fmt.Errorf("parsing migrations: %w", err)
	}

	for _, mig := range migrations {
		if applied[mig.Version] {
			result.Skipped = append(result.Skipped, mig.Version)
			continue
		}
		if err := applyMigration(ctx, conn, mig); err != nil {
			return result, fmt.Errorf("applying migration %04d_%s: %w", mig.Version, mig.Name, err)
		}
		result.Applied = append(result.Applied, mig.Version)
	}
	return result, nil
}

func appliedVersions(ctx context.Context, conn Executor) (map[int]bool, error) {
	rows, err := conn.Query(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[int]bool{}
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out[v] = true
	}
	return out, rows.Err()
}

func applyMigration(ctx context.Context, conn Executor, mig Migration) error {
	tx, err := conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, mig.SQL); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, "INSERT INTO schema_migrations (version, name) VALUES ($1, $2)", mig.Version, mig.Name); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// RunPool toma una conexión dedicada del pool y migra con ella.
func (m *Migrator) RunPool(ctx context.Context, pool *pgxpool.Pool, lockKey string) (*MigrationResult, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection for migrations: %w", err)
	}
	defer conn.Release()
	return m.Run(ctx, conn, lockKey)
}

// MigrateDescriptor abre una conexión directa a la base de un tenant y la migra.
func (m *Migrator) MigrateDescriptor(ctx context.Context, tenantID string, desc repository.DatabaseConnection) (*MigrationResult, error) {
	ccfg, err := pgx.ParseConfig(DSN(desc))
	if err != nil {
		return nil, fmt.Errorf("parse tenant descriptor: %w", err)
	}
	ccfg.ConnectTimeout = m.connectTimeout

	conn, err := pgx.ConnectConfig(ctx, ccfg)
	if err != nil {
		return nil, fmt.Errorf("connect tenant %s for migrations: %w", tenantID, err)
	}
	defer conn.Close(context.Background())

	return m.Run(ctx, conn, "tenant:"+tenantID)
}
