package metrics

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

type poolSnapshot struct {
	acquired, idle, total, max int32
}

// RegisterPoolMetrics exposes connection pool statistics as gauges on reg.
func RegisterPoolMetrics(reg prometheus.Registerer, pool *pgxpool.Pool) error {
	return registerPoolGauges(reg, func() poolSnapshot {
		s := pool.Stat()
		return poolSnapshot{
			acquired: s.AcquiredConns(),
			idle:     s.IdleConns(),
			total:    s.TotalConns(),
			max:      s.MaxConns(),
		}
	})
}

func registerPoolGauges(reg prometheus.Registerer, snapshot func() poolSnapshot) error {
	gauges := []struct {
		name string
		help string
		read func(poolSnapshot) int32
	}{
		{"db_pool_acquired_conns", "Connections currently checked out of the pool", func(s poolSnapshot) int32 { return s.acquired }},
		{"db_pool_idle_conns", "Idle connections held by the pool", func(s poolSnapshot) int32 { return s.idle }},
		{"db_pool_total_conns", "All connections owned by the pool", func(s poolSnapshot) int32 { return s.total }},
		{"db_pool_max_conns", "Configured pool size", func(s poolSnapshot) int32 { return s.max }},
	}

	for _, g := range gauges {
		read := g.read
		collector := prometheus.NewGaugeFunc(prometheus.GaugeOpts{Name: g.name, Help: g.help}, func() float64 {
			return float64(read(snapshot()))
		})
		if err := reg.Register(collector); err != nil {
			return err
		}
	}
	return nil
}
