package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures a Manager.
type Option func(*Manager)

// WithNamespace replaces the "roboarena" namespace.
func WithNamespace(namespace string) Option {
	return func(m *Manager) {
		if namespace != "" {
			m.namespace = namespace
		}
	}
}

// WithConstLabels attaches labels to every metric. Empty values are skipped.
func WithConstLabels(labels map[string]string) Option {
	return func(m *Manager) {
		for k, v := range labels {
			if v != "" {
				m.customLabels[k] = v
			}
		}
	}
}

// WithInstance labels every metric with instance=name, so several
// tournament processes can share one Prometheus.
func WithInstance(name string) Option {
	return WithConstLabels(map[string]string{"instance": name})
}

// WithMetricsEnabled turns recording on or off. Disabled managers still
// register their collectors.
func WithMetricsEnabled(enabled bool) Option {
	return func(m *Manager) {
		m.enabled = enabled
	}
}

// WithRefreshInterval sets how often gauge updaters should sample.
func WithRefreshInterval(interval time.Duration) Option {
	return func(m *Manager) {
		if interval > 0 {
			m.refreshInterval = interval
		}
	}
}

// WithPrometheusRegistry registers collectors on registry instead of the
// default registerer.
func WithPrometheusRegistry(registry prometheus.Registerer) Option {
	return func(m *Manager) {
		if registry != nil {
			m.registry = registry
		}
	}
}
