package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		aiTokensTotal,
		aiCostCents,
		aiPrecheckBlocks,
		imageRequests,
	)
}

var (
	aiTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_tokens_total",
			Help: "Sum of total tokens per provider/model.",
		},
		[]string{"provider", "model"},
	)

	aiCostCents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_cost_cents",
			Help: "Total cents charged per provider/model.",
		},
		[]string{"provider", "model"},
	)

	aiPrecheckBlocks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_precheck_blocks",
			Help: "Count of pre-send affordability blocks per provider/model.",
		},
		[]string{"provider", "model"},
	)

	imageRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_requests_total",
			Help: "Image generation requests per size.",
		},
		[]string{"size"},
	)
)

func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func PrecheckBlocked(provider, model string) {
	aiPrecheckBlocks.WithLabelValues(norm(provider), norm(model)).Inc()
}

func ObserveChatUsage(provider, model string, tokens int, priceCents float64) {
	lbl := []string{norm(provider), norm(model)}
	aiTokensTotal.WithLabelValues(lbl...).Add(float64(tokens))
	aiCostCents.WithLabelValues(lbl...).Add(priceCents)
}

func ObserveImageRequest(size string) {
	imageRequests.WithLabelValues(norm(size)).Inc()
}
