package middlewares

import (
	"context"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kovacsdavid/obvia/internal/infra/tenantsql"
	"github.com/kovacsdavid/obvia/internal/jwt"
	"github.com/kovacsdavid/obvia/internal/observability/logger"
	"github.com/kovacsdavid/obvia/internal/rate"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func testCodec(t *testing.T) *jwt.Codec {
	t.Helper()
	c, err := jwt.NewCodec([]byte("0123456789abcdef0123456789abcdef"), "obvia", "obvia", time.Minute, time.Hour)
	require.NoError(t, err)
	return c
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "198.51.100.4:5555"
	r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")

	assert.Equal(t, "198.51.100.4", clientIP(r, false))
	assert.Equal(t, "203.0.113.9", clientIP(r, true))
}

func TestWithRequestID(t *testing.T) {
	var seen string
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}), WithRequestID())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get("X-Request-ID"))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Request-ID", "abc")
	h.ServeHTTP(httptest.NewRecorder(), r)
	assert.Equal(t, "abc", seen)
}

func TestWithRecover(t *testing.T) {
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("kaboom")
	}), WithLogging(), WithRecover())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "kaboom")
}

func TestWithLogging_RequestLine(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}), WithRequestID(), WithLogging())

	req := httptest.NewRequest(http.MethodGet, "/v1/tenants", nil)
	req.Header.Set("User-Agent", "obvia-cli/1.0")
	req = req.WithContext(logger.ToContext(req.Context(), zap.New(core)))
	h.ServeHTTP(httptest.NewRecorder(), req)

	entries := logs.FilterMessage("request").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	fields := entries[0].ContextMap()
	assert.Equal(t, "obvia-cli/1.0", fields["user_agent"])
	assert.Equal(t, "/v1/tenants", fields["path"])
	assert.EqualValues(t, http.StatusNotFound, fields["status"])
	assert.NotEmpty(t, fields["request_id"])
}

func TestRequireAuth(t *testing.T) {
	codec := testCodec(t)
	tenant := "t-1"
	access, err := codec.Sign(codec.NewAccessClaims("u-1", &tenant))
	require.NoError(t, err)
	refresh, err := codec.Sign(codec.NewRefreshClaims("u-1", "f-1", codec.RefreshExpiry(), nil))
	require.NoError(t, err)

	var got *jwt.Claims
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetClaims(r.Context())
	}), RequireAuth(codec))

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"garbage", "Bearer nope", http.StatusUnauthorized},
		{"refresh token", "Bearer " + refresh, http.StatusUnauthorized},
		{"valid", "Bearer " + access, http.StatusOK},
		{"lowercase scheme", "bearer " + access, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got = nil
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, r)
			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusOK {
				require.NotNil(t, got)
				assert.Equal(t, "u-1", got.UserID())
				assert.Equal(t, "t-1", got.TenantID())
			} else {
				assert.Nil(t, got)
			}
		})
	}
}

type fakeResolver struct {
	pools map[string]*pgxpool.Pool
}

func (f fakeResolver) TenantDB(id string) (*tenantsql.TenantDB, error) {
	p, ok := f.pools[id]
	if !ok {
		return nil, tenantsql.ErrTenantPoolNotFound
	}
	return tenantsql.NewTenantDB(id, p, time.Second), nil
}

func TestRequireTenantPool(t *testing.T) {
	cfg, err := pgxpool.ParseConfig("postgres://u:p@127.0.0.1:1/db")
	require.NoError(t, err)
	pool, err := pgxpool.NewWithConfig(context.Background(), cfg)
	require.NoError(t, err)
	defer pool.Close()

	resolver := fakeResolver{pools: map[string]*pgxpool.Pool{"t-1": pool}}

	run := func(claims *jwt.Claims) (int, *tenantsql.TenantDB) {
		var got *tenantsql.TenantDB
		h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = GetTenantDB(r.Context())
		}), RequireTenantPool(resolver))
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if claims != nil {
			r = r.WithContext(WithClaims(r.Context(), claims))
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		return rec.Code, got
	}

	t1, unknown := "t-1", "t-unknown"

	code, got := run(&jwt.Claims{ActiveTenant: &t1})
	assert.Equal(t, http.StatusOK, code)
	require.NotNil(t, got)
	assert.Equal(t, "t-1", got.TenantID())

	code, _ = run(&jwt.Claims{})
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = run(&jwt.Claims{ActiveTenant: &unknown})
	assert.Equal(t, http.StatusInternalServerError, code)

	code, _ = run(nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

type stubLimiter struct {
	res rate.Result
	err error
}

func (s stubLimiter) Allow(context.Context, string) (rate.Result, error) { return s.res, s.err }

func TestWithRateLimit(t *testing.T) {
	t.Run("blocked", func(t *testing.T) {
		h := Chain(okHandler(), WithRateLimit(stubLimiter{res: rate.Result{RetryAfter: 1500 * time.Millisecond, WindowTTL: time.Second}}, nil))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, "2", rec.Header().Get("Retry-After"))
	})
	t.Run("allowed", func(t *testing.T) {
		h := Chain(okHandler(), WithRateLimit(stubLimiter{res: rate.Result{Allowed: true, Remaining: 4}}, nil))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "4", rec.Header().Get("X-RateLimit-Remaining"))
	})
	t.Run("limiter error fails open", func(t *testing.T) {
		h := Chain(okHandler(), WithRateLimit(stubLimiter{err: stderrors.New("redis down")}, nil))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}

func TestWithRateLimit_MemoryLimiterPerIP(t *testing.T) {
	h := Chain(okHandler(), WithClientIP(false), WithRateLimit(rate.NewMemoryLimiter(2, time.Minute), IPRateKey))

	do := func(remote string) int {
		r := httptest.NewRequest(http.MethodPost, "/", nil)
		r.RemoteAddr = remote
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		return rec.Code
	}

	assert.Equal(t, http.StatusNoContent, do("198.51.100.1:1"))
	assert.Equal(t, http.StatusNoContent, do("198.51.100.1:2"))
	assert.Equal(t, http.StatusTooManyRequests, do("198.51.100.1:3"))
	assert.Equal(t, http.StatusNoContent, do("198.51.100.2:1"))
}
