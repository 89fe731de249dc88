package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(buildInfo) }

var buildInfo = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "bot_build_info",
		Help: "Always 1, labelled with the running version and commit.",
	},
	[]string{"version", "commit"},
)

func SetBuildInfo(version, commit string) {
	buildInfo.WithLabelValues(version, commit).Set(1)
}
