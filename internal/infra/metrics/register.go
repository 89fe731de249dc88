package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	mu      sync.Mutex
	pending []prometheus.Collector
)

// register queues a collector at package init time. Nothing touches the
// Prometheus default registry until MustRegister runs, which keeps test
// binaries that import this package free of duplicate-registration panics.
func register(cs ...prometheus.Collector) {
	mu.Lock()
	pending = append(pending, cs...)
	mu.Unlock()
}

// MustRegister flushes every queued collector to the default registry.
// Safe to call more than once; only the first call registers.
func MustRegister() {
	registerOnce.Do(func() {
		mu.Lock()
		defer mu.Unlock()
		prometheus.MustRegister(pending...)
		pending = nil
	})
}
