package pg

import (
	"context"
	"time"

	"github.com/kovacsdavid/obvia/internal/domain/repository"
)

type eventRepo struct{ q querier }

func (r *eventRepo) Insert(ctx context.Context, e repository.AccountEvent) error {
	const q = `
		INSERT INTO account_event_log (user_id, identifier, event_type, status, ip, user_agent, detail)
		VALUES ($1, $2, $3, $4, $5::inet, $6, $7)`
	var detail any
	if len(e.Detail) > 0 {
		detail = string(e.Detail)
	}
	_, err := r.q.Exec(ctx, q,
		e.UserID, e.Identifier, string(e.Type), string(e.Status),
		nullIfEmpty(e.IP), nullIfEmpty(e.UserAgent), detail,
	)
	return mapErr("insert account event", err)
}

func (r *eventRepo) CountFailuresByIP(ctx context.Context, ip string, since time.Time) (int, error) {
	const q = `
		SELECT COUNT(*) FROM account_event_log
		WHERE ip = $1::inet AND created_at >= $2
		  AND status IN ('failure', 'blocked', 'error')`
	var n int
	if err := r.q.QueryRow(ctx, q, ip, since).Scan(&n); err != nil {
		return 0, mapErr("count failures by ip", err)
	}
	return n, nil
}
