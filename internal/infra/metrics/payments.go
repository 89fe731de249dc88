package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(paymentsTotal, creditsDebitedCents)
}

var (
	paymentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_total",
			Help: "Settlement attempts by status (paid/insufficient/whitelisted).",
		},
		[]string{"status"},
	)

	creditsDebitedCents = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "credits_debited_cents_total",
			Help: "Sum of cents debited from user credits.",
		},
	)
)

func IncPayment(status string) {
	paymentsTotal.WithLabelValues(norm(status)).Inc()
}

func AddDebitedCents(cents float64) {
	if cents > 0 {
		creditsDebitedCents.Add(cents)
	}
}
