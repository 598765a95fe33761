package metrics

import (
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kovacsdavid/obvia/internal/infra/tenantsql"
)

func TestRegister_Idempotent(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, Register(reg))
	require.NoError(t, Register(reg))
}

func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	metrics:
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if want, ok := labels[lp.GetName()]; ok && want != lp.GetValue() {
					continue metrics
				}
			}
			return m.GetCounter().GetValue()
		}
	}
	return 0
}

func TestRecordAuthEvent(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, Register(reg))
	labels := map[string]string{"event": "login", "status": "failure"}

	before := counterValue(t, reg, "auth_events_total", labels)
	RecordAuthEvent("login", "failure")
	assert.Equal(t, before+1, counterValue(t, reg, "auth_events_total", labels))
}

type fakePools map[string]tenantsql.PoolStat

func (f fakePools) Stats() map[string]tenantsql.PoolStat { return f }
func (f fakePools) MainPool() *pgxpool.Pool              { return nil }

func TestPoolCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(NewPoolCollector(fakePools{
		"a": {Tenant: "a", Acquired: 1, Idle: 2, Total: 3, Max: 5},
		"b": {Tenant: "b"},
	})))

	families, err := reg.Gather()
	require.NoError(t, err)

	got := map[string]int{}
	for _, mf := range families {
		got[mf.GetName()] = len(mf.GetMetric())
	}
	assert.Equal(t, 1, got["tenant_pools"])
	assert.Equal(t, 8, got["tenant_pool_conns"])
	assert.NotContains(t, got, "manager_pool_conns")
}
