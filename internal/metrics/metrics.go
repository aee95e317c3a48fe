// Package metrics exposes Prometheus counters/histograms for the engine
// and scheduler, grounded on newplayman-market-maker-go/metrics
// (package-level prometheus.MustRegister vars + a StartMetricsServer
// helper that mounts promhttp on its own address).
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	OrdersPlaced = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mockexchange_orders_placed_total",
		Help: "Orders accepted at intake, by symbol/side/type.",
	}, []string{"symbol", "side", "type"})

	OrdersTerminal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mockexchange_orders_terminal_total",
		Help: "Orders that reached a terminal status, by status.",
	}, []string{"status"})

	MarketOrderLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "mockexchange_market_order_latency_seconds",
		Help:    "Observed artificial latency applied before market-order settlement.",
		Buckets: prometheus.LinearBuckets(1, 1, 8),
	})

	TickLoopDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name: "mockexchange_tick_loop_duration_seconds",
		Help: "Wall time spent processing one tick-loop sweep.",
	})

	PruneLoopDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name: "mockexchange_prune_loop_duration_seconds",
		Help: "Wall time spent processing one prune-loop sweep.",
	})

	ReconciliationMismatches = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "mockexchange_reconciliation_mismatches",
		Help: "Number of assets whose used balance does not equal the sum of open reservations, as of the last overview call.",
	})
)

func init() {
	prometheus.MustRegister(
		OrdersPlaced,
		OrdersTerminal,
		MarketOrderLatency,
		TickLoopDuration,
		PruneLoopDuration,
		ReconciliationMismatches,
	)
}

// StartServer mounts /metrics on addr in a background goroutine.
func StartServer(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		_ = http.ListenAndServe(addr, mux)
	}()
}
