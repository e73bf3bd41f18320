package importer

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the import counters. A nil *Metrics records nothing.
type Metrics struct {
	parametersCreated *prometheus.CounterVec
	codes             *prometheus.CounterVec
	exchangesLinked   *prometheus.CounterVec
	groupFailures     prometheus.Counter
	lastRunDuration   prometheus.Gauge
	lastRunTimestamp  prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		parametersCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lcaparam",
			Name:      "parameters_created_total",
			Help:      "Activity parameters created, by group.",
		}, []string{"group"}),
		codes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lcaparam",
			Name:      "code_resolutions_total",
			Help:      "Activity code lookups for parameters, by outcome (resolved, missing).",
		}, []string{"outcome"}),
		exchangesLinked: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lcaparam",
			Name:      "exchanges_linked_total",
			Help:      "Exchanges linked to parameter groups, by group.",
		}, []string{"group"}),
		groupFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "lcaparam",
			Name:      "group_failures_total",
			Help:      "Parameter groups whose import failed.",
		}),
		lastRunDuration: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "lcaparam",
			Name:      "last_run_duration_seconds",
			Help:      "Duration of the last import run.",
		}),
		lastRunTimestamp: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "lcaparam",
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last import run finished.",
		}),
	}
}

func (m *Metrics) created(group string, n int) {
	if m == nil {
		return
	}
	m.parametersCreated.WithLabelValues(group).Add(float64(n))
}

func (m *Metrics) code(resolved bool) {
	if m == nil {
		return
	}
	outcome := "missing"
	if resolved {
		outcome = "resolved"
	}
	m.codes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) linked(group string, n int) {
	if m == nil {
		return
	}
	m.exchangesLinked.WithLabelValues(group).Add(float64(n))
}

func (m *Metrics) groupFailed() {
	if m == nil {
		return
	}
	m.groupFailures.Inc()
}

func (m *Metrics) finished(start time.Time) {
	if m == nil {
		return
	}
	now := time.Now()
	m.lastRunDuration.Set(now.Sub(start).Seconds())
	m.lastRunTimestamp.Set(float64(now.Unix()))
}
