package tenants

import (
	"context"
	"time"

	"github.com/kovacsdavid/obvia/internal/notify"
	"github.com/kovacsdavid/obvia/internal/observability/logger"
)

const compensationTimeout = 30 * time.Second

type compensation struct {
	name string
	fn   func(ctx context.Context) error
}

// saga acumula pasos de compensación y los ejecuta en orden inverso.
type saga struct {
	tenantID string
	fields   map[string]string
	steps    []compensation
	notifier notify.Notifier
}

func (s *saga) push(name string, fn func(ctx context.Context) error) {
	s.steps = append(s.steps, compensation{name: name, fn: fn})
}

// compensate corre todos los pasos (best-effort). Cada paso fallido deja un
// huérfano: se loguea con orphan=true y se avisa al administrador.
// Devuelve los nombres de los pasos que fallaron.
func (s *saga) compensate(ctx context.Context, cause error) []string {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()

	log := logger.From(ctx).With(logger.TenantID(s.tenantID))
	var failed []string

	for i := len(s.steps) - 1; i >= 0; i-- {
		step := s.steps[i]
		if err := step.fn(ctx); err != nil {
			failed = append(failed, step.name)
			log.Error("provisioning compensation failed",
				logger.Bool("orphan", true),
				logger.String("step", step.name),
				logger.Any("resources", s.fields),
				logger.Err(err),
			)
			continue
		}
		log.Info("provisioning compensation done", logger.String("step", step.name))
	}

	if len(failed) > 0 {
		fields := map[string]string{"tenant_id": s.tenantID, "cause": cause.Error()}
		for k, v := range s.fields {
			fields[k] = v
		}
		for _, name := range failed {
			fields["failed_"+name] = "true"
		}
		if err := s.notifier.Notify(ctx, notify.Alert{
			Subject: "orphaned tenant resources",
			Body:    "Tenant provisioning failed and could not be fully rolled back. Manual cleanup is required.",
			Fields:  fields,
		}); err != nil {
			log.Error("admin notification failed", logger.Err(err))
		}
	}
	return failed
}
