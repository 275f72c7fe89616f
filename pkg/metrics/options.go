// Package metrics provides Prometheus metrics for the sentimoji analysis service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures a Manager before its series are registered.
type Option func(*Manager)

// WithName overrides the namespace and subsystem of every series. An empty
// part keeps its default.
func WithName(namespace, subsystem string) Option {
	return func(m *Manager) {
		if namespace != "" {
			m.namespace = namespace
		}
		if subsystem != "" {
			m.subsystem = subsystem
		}
	}
}

// WithMetricPrefix puts prefix in front of every series name, after the
// subsystem: sentimoji_analyzer_<prefix>_analyses_total.
func WithMetricPrefix(prefix string) Option {
	return func(m *Manager) {
		m.metricPrefix = prefix
	}
}

// WithLatencyBuckets replaces the buckets of histograms that do not bring
// their own.
func WithLatencyBuckets(buckets []float64) Option {
	return func(m *Manager) {
		if len(buckets) > 0 {
			m.histogramBuckets = buckets
		}
	}
}

// WithConstLabels attaches labels such as {"env": "prod"} to every series.
func WithConstLabels(labels map[string]string) Option {
	return func(m *Manager) {
		m.customLabels = labels
	}
}

// WithRegisterer registers the series on r. The package manager uses its own
// registry so /metrics carries no default Go collectors.
func WithRegisterer(r prometheus.Registerer) Option {
	return func(m *Manager) {
		if r != nil {
			m.registry = r
		}
	}
}

// WithEnabled starts the manager recording or silent. SetEnabled flips it later.
func WithEnabled(on bool) Option {
	return func(m *Manager) {
		m.enabled.Store(on)
	}
}

// WithRefreshInterval sets how often background updaters poll gauges.
// Non-positive values are ignored.
func WithRefreshInterval(d time.Duration) Option {
	return func(m *Manager) {
		m.setRefresh(d)
	}
}
