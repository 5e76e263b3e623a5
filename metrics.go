// FILE: metrics.go
// Package main – Prometheus metrics for observability.
//
// Exposes the metrics the grid loop updates during operation:
//   • grid_orders_total{kind,side,result}      – placement attempts (kind: seed|rebalance)
//   • grid_triggers_total{direction}           – level triggers (above|below)
//   • grid_zero_unit_intents_total{kind}       – intents sized to 0 units and skipped
//   • grid_feed_failures_total                 – cycles without a usable price
//   • grid_cycles_total                        – completed evaluation cycles
//   • grid_last_price                          – last observed bid (gauge)
//   • grid_levels                              – ladder size (gauge)
//
// These are registered in init() and served at /metrics by the status server.

package main

import "github.com/prometheus/client_golang/prometheus"

var (
	mtxOrders = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grid_orders_total",
			Help: "Limit orders submitted, by kind, side and result",
		},
		[]string{"kind", "side", "result"}, // result: ok|error
	)

	mtxTriggers = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grid_triggers_total",
			Help: "Grid level triggers by market position relative to the level",
		},
		[]string{"direction"},
	)

	mtxZeroUnits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grid_zero_unit_intents_total",
			Help: "Intents that truncated to zero units and were not submitted",
		},
		[]string{"kind"},
	)

	mtxFeedFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "grid_feed_failures_total",
			Help: "Cycles skipped because no price was available",
		},
	)

	mtxCycles = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "grid_cycles_total",
			Help: "Evaluation cycles completed",
		},
	)

	mtxLastPrice = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "grid_last_price",
			Help: "Last observed bid price",
		},
	)

	mtxLevels = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "grid_levels",
			Help: "Number of levels in the ladder",
		},
	)
)

func init() {
	prometheus.MustRegister(mtxOrders, mtxTriggers, mtxZeroUnits)
	prometheus.MustRegister(mtxFeedFailures, mtxCycles, mtxLastPrice, mtxLevels)
}

func incOrder(kind string, side OrderSide, ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	mtxOrders.WithLabelValues(kind, string(side), result).Inc()
}
