package rate

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryLimiter es el fallback in-process cuando no hay Redis configurado.
// Los contadores no se comparten entre réplicas.
type MemoryLimiter struct {
	c      *gocache.Cache
	Max    int64
	Window time.Duration
	now    func() time.Time
}

func NewMemoryLimiter(max int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		c:      gocache.New(window, 2*window),
		Max:    int64(max),
		Window: window,
		now:    time.Now,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (Result, error) {
	now := l.now()
	k := windowKey("", key, l.Window, now)
	winEnd := now.UTC().Truncate(l.Window).Add(l.Window)
	ttl := winEnd.Sub(now)

	// Add falla si la clave ya existe: el primer hit de la ventana fija el TTL.
	_ = l.c.Add(k, int64(0), ttl)
	hits, err := l.c.IncrementInt64(k, 1)
	if err != nil {
		// La clave expiró entre Add e Increment.
		l.c.Set(k, int64(1), ttl)
		hits = 1
	}
	return evaluate(hits, l.Max, ttl, l.Window), nil
}
