// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TelemetryIngested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fleetwatch_telemetry_ingested_total",
		Help: "Total number of telemetry packets persisted.",
	})
	TelemetryRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fleetwatch_telemetry_rejected_total",
		Help: "Total number of telemetry packets rejected before persistence.",
	}, []string{"reason"})
	AnalyzerRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fleetwatch_analyzer_runs_total",
		Help: "Analyzer task completions by kind and outcome.",
	}, []string{"kind", "outcome"})
	AnalyzerDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fleetwatch_analyzer_duration_seconds",
		Help:    "Analyzer task duration including retries.",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})
	DispatcherDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fleetwatch_dispatcher_dropped_total",
		Help: "Analyzer tasks dropped because the lane queue was full or the dispatcher closed.",
	}, []string{"kind"})
	AlertsRaised = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fleetwatch_alerts_raised_total",
		Help: "Alerts persisted by severity and kind.",
	}, []string{"severity", "kind"})
	VendorPolls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fleetwatch_vendor_polls_total",
		Help: "Vendor poll batches by outcome.",
	}, []string{"outcome"})
	ScoresScheduled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fleetwatch_scores_scheduled_total",
		Help: "Driver scores recomputed by the periodic scheduler, by period and outcome.",
	}, []string{"period", "outcome"})
	StreamClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fleetwatch_stream_clients",
		Help: "Open websocket stream connections.",
	})
)
