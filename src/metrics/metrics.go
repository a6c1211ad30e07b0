// Package metrics declares the Prometheus collectors shared by the agents.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// CatalogRefresh counts catalog refreshes by result (ok, empty, error).
	CatalogRefresh = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "boutique_catalog_refresh_total",
			Help: "Catalog refresh attempts by result",
		},
		[]string{"result"},
	)

	// RepairStrategy counts which repair strategy recovered model output.
	RepairStrategy = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "boutique_repair_strategy_total",
			Help: "Structured output recoveries by strategy",
		},
		[]string{"strategy"},
	)

	// IntentResolutions counts resolver outcomes (resolved, downgraded, rejected).
	IntentResolutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "boutique_intent_resolutions_total",
			Help: "Intent resolutions by outcome",
		},
		[]string{"outcome"},
	)

	// Orders counts normalized orders by status.
	Orders = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "boutique_orders_total",
			Help: "Orders executed by status",
		},
		[]string{"status"},
	)

	// Payments counts negotiated payments by result.
	Payments = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "boutique_payments_total",
			Help: "Payment negotiations by result",
		},
		[]string{"result"},
	)

	// PipelineOutcomes counts terminal orchestration outcomes.
	PipelineOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "boutique_pipeline_outcomes_total",
			Help: "Orchestration runs by terminal outcome",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(CatalogRefresh)
	prometheus.MustRegister(RepairStrategy)
	prometheus.MustRegister(IntentResolutions)
	prometheus.MustRegister(Orders)
	prometheus.MustRegister(Payments)
	prometheus.MustRegister(PipelineOutcomes)
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
