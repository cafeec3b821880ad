package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trendwatch_runs_total",
			Help: "Total number of pipeline runs",
		},
		[]string{"status"},
	)

	rowsFetchedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trendwatch_rows_fetched_total",
			Help: "Total number of price rows fetched from providers",
		},
		[]string{"provider"},
	)

	tickersClassifiedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "trendwatch_tickers_classified_total",
			Help: "Total number of ticker classifications computed",
		},
	)

	fetchErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trendwatch_fetch_errors_total",
			Help: "Total number of failed ticker fetches",
		},
		[]string{"provider"},
	)

	lastRunTimestamp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "trendwatch_last_run_timestamp_seconds",
			Help: "Unix timestamp of the last completed pipeline run",
		},
	)
)

func init() {
	prometheus.MustRegister(runsTotal)
	prometheus.MustRegister(rowsFetchedTotal)
	prometheus.MustRegister(tickersClassifiedTotal)
	prometheus.MustRegister(fetchErrorsTotal)
	prometheus.MustRegister(lastRunTimestamp)
}
