// Package notify es el canal lateral para avisar al administrador de
// problemas que requieren intervención manual (tenants huérfanos, etc).
package notify

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/kovacsdavid/obvia/internal/observability/logger"
)

// Alert es un aviso para el administrador.
type Alert struct {
	Subject string
	Body    string
	Fields  map[string]string
}

// Text renderiza el alert como texto plano (campos ordenados por clave).
func (a Alert) Text() string {
	var b strings.Builder
	b.WriteString(a.Body)
	if len(a.Fields) > 0 {
		b.WriteString("\n\n")
		keys := make([]string, 0, len(a.Fields))
		for k := range a.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "%s: %s\n", k, a.Fields[k])
		}
	}
	return b.String()
}

// Notifier entrega alerts. Implementaciones: SMTPNotifier, Noop.
type Notifier interface {
	Notify(ctx context.Context, a Alert) error
}

// Noop sólo loguea el alert.
type Noop struct{}

func (Noop) Notify(ctx context.Context, a Alert) error {
	logger.From(ctx).Warn("admin notification (no notifier configured)",
		logger.String("subject", a.Subject),
		logger.Any("fields", a.Fields),
	)
	return nil
}
