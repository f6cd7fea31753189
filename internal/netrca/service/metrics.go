package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ingestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netrca_snapshot_ingest_total",
			Help: "Total snapshot ingests by result",
		},
		[]string{"result"},
	)

	ingestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "netrca_snapshot_ingest_duration_seconds",
			Help:    "Snapshot ingest latency (stage + load)",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		},
	)

	toolRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netrca_tool_runs_total",
			Help: "Total RCA tool executions by tool and result",
		},
		[]string{"tool", "result"},
	)

	toolDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "netrca_tool_duration_seconds",
			Help:    "RCA tool execution latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"tool"},
	)
)

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
