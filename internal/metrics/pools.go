package metrics

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kovacsdavid/obvia/internal/infra/tenantsql"
)

// PoolStatser es lo que el collector necesita del registro de pools.
type PoolStatser interface {
	Stats() map[string]tenantsql.PoolStat
	MainPool() *pgxpool.Pool
}

// poolCollector expone gauges para el pool del manager database y los de cada tenant.
type poolCollector struct {
	pools PoolStatser

	tenantCountDesc *prometheus.Desc
	tenantConnsDesc *prometheus.Desc
	mainConnsDesc   *prometheus.Desc
}

// NewPoolCollector crea el collector; se registra con Register(reg, collector).
func NewPoolCollector(pools PoolStatser) prometheus.Collector {
	return &poolCollector{
		pools:           pools,
		tenantCountDesc: prometheus.NewDesc("tenant_pools", "Cantidad de pools de tenants activos", nil, nil),
		tenantConnsDesc: prometheus.NewDesc("tenant_pool_conns", "Conexiones por tenant y estado", []string{"tenant", "state"}, nil),
		mainConnsDesc:   prometheus.NewDesc("manager_pool_conns", "Conexiones del manager database por estado", []string{"state"}, nil),
	}
}

func (c *poolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.tenantCountDesc
	ch <- c.tenantConnsDesc
	ch <- c.mainConnsDesc
}

func (c *poolCollector) Collect(ch chan<- prometheus.Metric) {
	stats := c.pools.Stats()
	ch <- prometheus.MustNewConstMetric(c.tenantCountDesc, prometheus.GaugeValue, float64(len(stats)))
	for id, s := range stats {
		ch <- prometheus.MustNewConstMetric(c.tenantConnsDesc, prometheus.GaugeValue, float64(s.Acquired), id, "acquired")
		ch <- prometheus.MustNewConstMetric(c.tenantConnsDesc, prometheus.GaugeValue, float64(s.Idle), id, "idle")
		ch <- prometheus.MustNewConstMetric(c.tenantConnsDesc, prometheus.GaugeValue, float64(s.Total), id, "total")
		ch <- prometheus.MustNewConstMetric(c.tenantConnsDesc, prometheus.GaugeValue, float64(s.Max), id, "max")
	}

	if pool := c.pools.MainPool(); pool != nil {
		stat := pool.Stat()
		ch <- prometheus.MustNewConstMetric(c.mainConnsDesc, prometheus.GaugeValue, float64(stat.AcquiredConns()), "acquired")
		ch <- prometheus.MustNewConstMetric(c.mainConnsDesc, prometheus.GaugeValue, float64(stat.IdleConns()), "idle")
		ch <- prometheus.MustNewConstMetric(c.mainConnsDesc, prometheus.GaugeValue, float64(stat.TotalConns()), "total")
	}
}
