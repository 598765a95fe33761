package auth

import (
	"context"
	"encoding/json"

	"github.com/kovacsdavid/obvia/internal/domain/repository"
	"github.com/kovacsdavid/obvia/internal/metrics"
	"github.com/kovacsdavid/obvia/internal/observability/logger"
)

// eventRecorder escribe en account_event_log y en auth_events_total.
// Un fallo al insertar se loguea pero no cambia el resultado del request.
type eventRecorder struct {
	repo repository.AccountEventRepository
}

type eventDetail map[string]any

func (r eventRecorder) record(ctx context.Context, typ repository.EventType, status repository.EventStatus,
	userID, identifier string, client ClientInfo, detail eventDetail) {

	ev := repository.AccountEvent{
		Type:      typ,
		Status:    status,
		IP:        client.IP,
		UserAgent: client.UserAgent,
	}
	if userID != "" {
		ev.UserID = &userID
	}
	if identifier != "" {
		ev.Identifier = &identifier
	}
	if len(detail) > 0 {
		if raw, err := json.Marshal(detail); err == nil {
			ev.Detail = raw
		}
	}

	metrics.RecordAuthEvent(string(typ), string(status))

	if err := r.repo.Insert(ctx, ev); err != nil {
		logger.From(ctx).Error("account event insert failed",
			logger.EventType(string(typ)),
			logger.EventStatus(string(status)),
			logger.ClientIP(client.IP),
			logger.Err(err),
		)
	}
}
