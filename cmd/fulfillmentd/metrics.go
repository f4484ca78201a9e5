package main

import (
	"context"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Elanstech/barberworld-fulfillment/core"
)

// prometheusRecorder bridges the pipeline metrics contract onto a prometheus
// registry. Pipeline metric names use dots; prometheus wants underscores.
type prometheusRecorder struct {
	counters  *prometheus.CounterVec
	durations *prometheus.HistogramVec
}

func newPrometheusRecorder(registry *prometheus.Registry) *prometheusRecorder {
	recorder := &prometheusRecorder{
		counters: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fulfillment_operations_total",
				Help: "Total pipeline operations by metric name, operation, status and outcome",
			},
			[]string{"metric", "operation", "status", "outcome"},
		),
		durations: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fulfillment_operation_duration_ms",
				Help:    "Pipeline operation duration in milliseconds",
				Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 15000},
			},
			[]string{"metric", "operation", "status", "outcome"},
		),
	}
	registry.MustRegister(recorder.counters, recorder.durations)
	return recorder
}

func (r *prometheusRecorder) IncCounter(_ context.Context, name string, value int64, tags map[string]string) {
	if r == nil || value <= 0 {
		return
	}
	r.counters.WithLabelValues(metricLabels(name, tags)...).Add(float64(value))
}

func (r *prometheusRecorder) ObserveHistogram(_ context.Context, name string, value float64, tags map[string]string) {
	if r == nil {
		return
	}
	r.durations.WithLabelValues(metricLabels(name, tags)...).Observe(value)
}

// metricLabels normalizes the two tag shapes the pipeline emits: sweeps and
// reads carry operation/status, webhook deliveries carry an outcome. Webhook
// series fold the outcome into operation/status so no series ends up with
// empty labels.
func metricLabels(name string, tags map[string]string) []string {
	operation := tags["operation"]
	status := tags["status"]
	outcome := tags["outcome"]
	if outcome != "" {
		if operation == "" {
			operation = "webhook"
		}
		if status == "" {
			status = outcome
		}
	}
	return []string{
		strings.ReplaceAll(name, ".", "_"),
		operation,
		status,
		outcome,
	}
}

var _ core.MetricsRecorder = (*prometheusRecorder)(nil)
