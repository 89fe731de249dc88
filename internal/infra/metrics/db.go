package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(pgPoolConns) }

var pgPoolConns = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "pg_pool_connections",
		Help: "Connections in the postgres pool by state.",
	},
	[]string{"state"},
)

func SetDBPoolStats(total, idle, acquired int32) {
	for state, n := range map[string]int32{
		"total":    total,
		"idle":     idle,
		"acquired": acquired,
	} {
		pgPoolConns.WithLabelValues(state).Set(float64(n))
	}
}
