package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(queueDepth, botSuspensions)
}

var (
	queueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "request_queue_depth",
			Help: "Pending requests in the per-session dispatch queue.",
		},
	)

	botSuspensions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bot_suspensions_total",
			Help: "Count of bot-wide rate-limit suspensions.",
		},
	)
)

func QueueDepth(n int) {
	queueDepth.Set(float64(n))
}

func IncSuspension() {
	botSuspensions.Inc()
}
