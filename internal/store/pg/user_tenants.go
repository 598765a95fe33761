package pg

import (
	"context"

	"github.com/kovacsdavid/obvia/internal/domain/repository"
)

type userTenantRepo struct{ q querier }

func (r *userTenantRepo) GetActiveTenant(ctx context.Context, userID string) (*string, error) {
	// El último tenant usado "sube" al frente: leerlo lo vuelve a tocar.
	const q = `
		UPDATE user_tenants SET last_activated = NOW()
		WHERE id = (
			SELECT ut.id FROM user_tenants ut
			JOIN tenants t ON t.id = ut.tenant_id AND t.deleted_at IS NULL
			WHERE ut.user_id = $1 AND ut.deleted_at IS NULL
			ORDER BY ut.last_activated DESC
			LIMIT 1
		)
		RETURNING tenant_id::text`
	var tenantID string
	err := r.q.QueryRow(ctx, q, userID).Scan(&tenantID)
	if err != nil {
		if mapped := mapErr("get active tenant", err); repository.IsNotFound(mapped) {
			return nil, nil
		} else {
			return nil, mapped
		}
	}
	return &tenantID, nil
}

func (r *userTenantRepo) Activate(ctx context.Context, userID, tenantID string) error {
	const q = `
		UPDATE user_tenants ut SET last_activated = NOW(), updated_at = NOW()
		FROM tenants t
		WHERE t.id = ut.tenant_id AND t.deleted_at IS NULL
		  AND ut.user_id = $1 AND ut.tenant_id = $2 AND ut.deleted_at IS NULL`
	tag, err := r.q.Exec(ctx, q, userID, tenantID)
	if err != nil {
		return mapErr("activate tenant", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *userTenantRepo) ListForUser(ctx context.Context, userID string) ([]repository.Membership, error) {
	const q = `
		SELECT t.id::text, t.name, ut.role, t.is_self_hosted, ut.last_activated
		FROM user_tenants ut
		JOIN tenants t ON t.id = ut.tenant_id AND t.deleted_at IS NULL
		WHERE ut.user_id = $1 AND ut.deleted_at IS NULL
		ORDER BY ut.last_activated DESC`
	rows, err := r.q.Query(ctx, q, userID)
	if err != nil {
		return nil, mapErr("list memberships", err)
	}
	defer rows.Close()

	out := []repository.Membership{}
	for rows.Next() {
		var m repository.Membership
		if err := rows.Scan(&m.TenantID, &m.TenantName, &m.Role, &m.IsSelfHosted, &m.LastActivated); err != nil {
			return nil, mapErr("scan membership", err)
		}
		out = append(out, m)
	}
	return out, mapErr("list memberships", rows.Err())
}
