package tenantsql

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kovacsdavid/obvia/internal/domain/repository"
)

func testDesc(name string) repository.DatabaseConnection {
	return repository.DatabaseConnection{
		Host:        "db.example.com",
		Port:        5432,
		Name:        name,
		User:        name,
		Password:    "secret",
		MaxPoolSize: 5,
		SSLMode:     repository.SSLModeDisable,
	}
}

// lazyDialer crea pools sin conectar (MinConns=0) y cuenta las llamadas.
func lazyDialer(calls *int32, delay time.Duration, fail map[string]bool) Dialer {
	return func(ctx context.Context, cfg *pgxpool.Config) (*pgxpool.Pool, error) {
		atomic.AddInt32(calls, 1)
		if delay > 0 {
			time.Sleep(delay)
		}
		if fail[cfg.ConnConfig.Database] {
			return nil, errors.New("connection refused")
		}
		return pgxpool.NewWithConfig(ctx, cfg)
	}
}

func TestTenantPool_Unknown(t *testing.T) {
	m := New(nil, Config{Dial: lazyDialer(new(int32), 0, nil)})

	done := make(chan struct{})
	go func() {
		defer close(done)
		pool, err := m.TenantPool("missing")
		assert.Nil(t, pool)
		assert.ErrorIs(t, err, ErrTenantPoolNotFound)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("TenantPool blocked")
	}
}

func TestAddTenantPool_ConcurrentSameID(t *testing.T) {
	var calls int32
	m := New(nil, Config{Dial: lazyDialer(&calls, 50*time.Millisecond, nil)})
	defer m.Close()

	const n = 8
	var wg sync.WaitGroup
	ids := make([]string, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i], errs[i] = m.AddTenantPool(context.Background(), "t1", testDesc("tenant_t1"))
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "t1", ids[i])
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "only one pool must be dialed")
	assert.Equal(t, 1, m.PoolCount())

	first, err := m.TenantPool("t1")
	require.NoError(t, err)

	_, err = m.AddTenantPool(context.Background(), "t1", testDesc("tenant_t1"))
	require.NoError(t, err)
	second, err := m.TenantPool("t1")
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestAddTenantPool_DifferentIDs(t *testing.T) {
	var calls int32
	m := New(nil, Config{Dial: lazyDialer(&calls, 10*time.Millisecond, nil)})
	defer m.Close()

	var wg sync.WaitGroup
	for _, id := range []string{"a", "b", "c"} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := m.AddTenantPool(context.Background(), id, testDesc("tenant_"+id))
			assert.NoError(t, err)
		}(id)
	}
	wg.Wait()

	assert.Equal(t, 3, m.PoolCount())
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Len(t, m.Stats(), 3)
}

func TestAddTenantPool_ConnectError(t *testing.T) {
	var calls int32
	m := New(nil, Config{Dial: lazyDialer(&calls, 0, map[string]bool{"tenant_bad": true})})

	_, err := m.AddTenantPool(context.Background(), "bad", testDesc("tenant_bad"))
	require.Error(t, err)

	_, err = m.TenantPool("bad")
	assert.ErrorIs(t, err, ErrTenantPoolNotFound)
	assert.Equal(t, 0, m.PoolCount())
}

func TestAddTenantPool_EmptyID(t *testing.T) {
	m := New(nil, Config{Dial: lazyDialer(new(int32), 0, nil)})
	_, err := m.AddTenantPool(context.Background(), "  ", testDesc("x"))
	assert.Error(t, err)
}

type fakeLister struct {
	tenants []repository.Tenant
	err     error
}

func (f fakeLister) ListActive(context.Context) ([]repository.Tenant, error) {
	return f.tenants, f.err
}

func TestInitTenantPools_ToleratesFailures(t *testing.T) {
	var calls int32
	m := New(nil, Config{
		InitConcurrency: 2,
		Dial:            lazyDialer(&calls, 0, map[string]bool{"tenant_down": true}),
	})
	defer m.Close()

	deleted := time.Now()
	lister := fakeLister{tenants: []repository.Tenant{
		{ID: "ok1", DB: testDesc("tenant_ok1")},
		{ID: "down", DB: testDesc("tenant_down")},
		{ID: "ok2", DB: testDesc("tenant_ok2")},
		{ID: "gone", DB: testDesc("tenant_gone"), DeletedAt: &deleted},
	}}

	n, err := m.InitTenantPools(context.Background(), lister)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = m.TenantPool("ok1")
	assert.NoError(t, err)
	_, err = m.TenantPool("ok2")
	assert.NoError(t, err)
	_, err = m.TenantPool("down")
	assert.ErrorIs(t, err, ErrTenantPoolNotFound)
	_, err = m.TenantPool("gone")
	assert.ErrorIs(t, err, ErrTenantPoolNotFound)
}

func TestInitTenantPools_ListError(t *testing.T) {
	m := New(nil, Config{Dial: lazyDialer(new(int32), 0, nil)})
	_, err := m.InitTenantPools(context.Background(), fakeLister{err: errors.New("db down")})
	assert.Error(t, err)
}

func TestTenantDB_Unknown(t *testing.T) {
	m := New(nil, Config{Dial: lazyDialer(new(int32), 0, nil)})
	_, err := m.TenantDB("nope")
	assert.ErrorIs(t, err, ErrTenantPoolNotFound)
}

// hangingDialer crea pools cuyas conexiones nunca completan el handshake.
func hangingDialer() Dialer {
	return func(ctx context.Context, cfg *pgxpool.Config) (*pgxpool.Pool, error) {
		cfg.ConnConfig.DialFunc = func(ctx context.Context, _, _ string) (net.Conn, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return pgxpool.NewWithConfig(ctx, cfg)
	}
}

func TestTenantDB_AcquireTimeout(t *testing.T) {
	m := New(nil, Config{AcquireTimeout: 50 * time.Millisecond, Dial: hangingDialer()})
	defer m.Close()

	_, err := m.AddTenantPool(context.Background(), "t1", testDesc("tenant_t1"))
	require.NoError(t, err)

	db, err := m.TenantDB("t1")
	require.NoError(t, err)
	assert.Equal(t, "t1", db.TenantID())

	start := time.Now()
	conn, err := db.Acquire(context.Background())
	assert.Nil(t, conn)
	assert.ErrorIs(t, err, ErrAcquireTimeout)
	assert.Less(t, time.Since(start), time.Second)
}

func TestTenantDB_CallerCancelIsNotTimeout(t *testing.T) {
	m := New(nil, Config{AcquireTimeout: time.Second, Dial: hangingDialer()})
	defer m.Close()

	_, err := m.AddTenantPool(context.Background(), "t1", testDesc("tenant_t1"))
	require.NoError(t, err)
	db, err := m.TenantDB("t1")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = db.Acquire(ctx)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrAcquireTimeout)
}

// gatedDialer bloquea hasta que se cierra release y respeta el ctx del dial.
func gatedDialer(calls *int32, release <-chan struct{}) Dialer {
	return func(ctx context.Context, cfg *pgxpool.Config) (*pgxpool.Pool, error) {
		atomic.AddInt32(calls, 1)
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		return pgxpool.NewWithConfig(ctx, cfg)
	}
}

func TestAddTenantPool_CancelledCallerDoesNotFailOthers(t *testing.T) {
	var calls int32
	release := make(chan struct{})
	m := New(nil, Config{ConnectTimeout: 5 * time.Second, Dial: gatedDialer(&calls, release)})
	defer m.Close()

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := m.AddTenantPool(ctxA, "t1", testDesc("tenant_t1"))
		errA <- err
	}()
	require.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 1 }, time.Second, 5*time.Millisecond)

	errB := make(chan error, 1)
	go func() {
		_, err := m.AddTenantPool(context.Background(), "t1", testDesc("tenant_t1"))
		errB <- err
	}()

	cancelA()
	select {
	case err := <-errA:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("cancelled caller did not return")
	}

	close(release)
	select {
	case err := <-errB:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("second caller blocked")
	}

	_, err := m.TenantPool("t1")
	assert.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}
