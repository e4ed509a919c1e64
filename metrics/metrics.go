// Package metrics holds the prometheus counters of a run. A nil *Metrics is
// valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "asngap"

// Metrics groups the run counters on a private registry.
type Metrics struct {
	registry       *prometheus.Registry
	feedFetch      *prometheus.CounterVec
	pageFetch      *prometheus.CounterVec
	classification *prometheus.CounterVec
}

// New creates the counters and registers them on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		feedFetch: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_fetch_total",
			Help:      "Registry and CAIDA feed fetches by source and result.",
		}, []string{"source", "result"}),
		pageFetch: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "page_fetch_total",
			Help:      "Spoofer result page fetch attempts by result.",
		}, []string{"result"}),
		classification: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classification_total",
			Help:      "Classified ASNs by category.",
		}, []string{"category"}),
	}
	m.registry.MustRegister(m.feedFetch, m.pageFetch, m.classification)
	return m
}

// Registry exposes the registry for writing or scraping.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// FeedFetch counts one feed fetch.
func (m *Metrics) FeedFetch(source, result string) {
	if m == nil {
		return
	}
	m.feedFetch.WithLabelValues(source, result).Inc()
}

// PageFetch counts one page fetch attempt.
func (m *Metrics) PageFetch(result string) {
	if m == nil {
		return
	}
	m.pageFetch.WithLabelValues(result).Inc()
}

// Classification counts one classified ASN.
func (m *Metrics) Classification(category string) {
	if m == nil {
		return
	}
	m.classification.WithLabelValues(category).Inc()
}

// WriteFile dumps the registry in text exposition format.
func (m *Metrics) WriteFile(path string) error {
	if m == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}
