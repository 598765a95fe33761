package pg

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kovacsdavid/obvia/internal/domain/repository"
)

type tenantRepo struct{ pool *pgxpool.Pool }

const tenantColumns = `id::text, name, is_self_hosted, db_host, db_port, db_name, db_user, db_password,
	db_max_pool_size, db_ssl_mode, created_at, updated_at, deleted_at`

func scanTenant(row pgx.Row) (*repository.Tenant, error) {
	var t repository.Tenant
	err := row.Scan(
		&t.ID, &t.Name, &t.IsSelfHosted,
		&t.DB.Host, &t.DB.Port, &t.DB.Name, &t.DB.User, &t.DB.Password, &t.DB.MaxPoolSize, &t.DB.SSLMode,
		&t.CreatedAt, &t.UpdatedAt, &t.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *tenantRepo) CreateWithOwner(ctx context.Context, t *repository.Tenant, owner repository.UserTenant) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return mapErr("begin create tenant", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const insertTenant = `
		INSERT INTO tenants (id, name, is_self_hosted, db_host, db_port, db_name, db_user, db_password,
		                     db_max_pool_size, db_ssl_mode)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at`
	err = tx.QueryRow(ctx, insertTenant,
		t.ID, t.Name, t.IsSelfHosted, t.DB.Host, t.DB.Port, t.DB.Name, t.DB.User, t.DB.Password,
		t.DB.MaxPoolSize, t.DB.SSLMode,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return mapErr("insert tenant", err)
	}

	role := owner.Role
	if role == "" {
		role = repository.RoleOwner
	}
	const insertOwner = `
		INSERT INTO user_tenants (user_id, tenant_id, role, invited_by, last_activated)
		VALUES ($1, $2, $3, $4, NOW())`
	if _, err := tx.Exec(ctx, insertOwner, owner.UserID, t.ID, role, owner.InvitedBy); err != nil {
		return mapErr("insert tenant owner", err)
	}

	return mapErr("commit create tenant", tx.Commit(ctx))
}

func (r *tenantRepo) ListActive(ctx context.Context) ([]repository.Tenant, error) {
	const q = `SELECT ` + tenantColumns + ` FROM tenants WHERE deleted_at IS NULL ORDER BY created_at`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, mapErr("list tenants", err)
	}
	defer rows.Close()

	var out []repository.Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, mapErr("scan tenant", err)
		}
		out = append(out, *t)
	}
	return out, mapErr("list tenants", rows.Err())
}

func (r *tenantRepo) SoftDelete(ctx context.Context, id string) error {
	const q = `UPDATE tenants SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`
	tag, err := r.pool.Exec(ctx, q, id)
	if err != nil {
		return mapErr("soft delete tenant", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}
