// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package metrics provides Prometheus collectors for the interaction engine.
//
// Collectors are registered on a private registry so several engines (and
// tests) can coexist in one process. Every method is safe on a nil *Metrics,
// which lets components treat metrics as optional.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "litechat"

// Metrics holds all collectors.
type Metrics struct {
	registry *prometheus.Registry

	EventsTotal        *prometheus.CounterVec
	SavesTotal         *prometheus.CounterVec
	LoadsTotal         *prometheus.CounterVec
	LoadDuration       prometheus.Histogram
	FragmentsTotal     *prometheus.CounterVec
	FlushesTotal       *prometheus.CounterVec
	StreamingActive    prometheus.Gauge
	RatingRollbacks    prometheus.Counter
	GuardRejectedTotal *prometheus.CounterVec
}

// New creates and registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		EventsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Events published on the bus, by name",
		}, []string{"event"}),
		SavesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "interaction_saves_total",
			Help:      "Interaction saves through the persistence gateway",
		}, []string{"result"}),
		LoadsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "interaction_loads_total",
			Help:      "Conversation loads, by outcome",
		}, []string{"result"}),
		LoadDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "interaction_load_duration_seconds",
			Help:      "Duration of conversation loads",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}),
		FragmentsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_fragments_total",
			Help:      "Streamed fragments, appended or dropped",
		}, []string{"outcome"}),
		FlushesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "render_flushes_total",
			Help:      "Display snapshots produced by render throttles",
		}, []string{"kind"}),
		StreamingActive: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "streaming_interactions",
			Help:      "Interactions currently streaming",
		}),
		RatingRollbacks: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rating_rollbacks_total",
			Help:      "Optimistic ratings reverted after a failed save",
		}),
		GuardRejectedTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "guard_rejections_total",
			Help:      "Operations ignored because they targeted another conversation",
		}, []string{"operation"}),
	}
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// =============================================================================
// RECORDERS
// =============================================================================

// EventPublished counts one bus event.
func (m *Metrics) EventPublished(name string) {
	if m == nil {
		return
	}
	m.EventsTotal.WithLabelValues(name).Inc()
}

// SaveResult counts one gateway save.
func (m *Metrics) SaveResult(err error) {
	if m == nil {
		return
	}
	m.SavesTotal.WithLabelValues(result(err)).Inc()
}

// LoadResult counts one load. outcome is "ok", "error" or "superseded".
func (m *Metrics) LoadResult(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.LoadsTotal.WithLabelValues(outcome).Inc()
	m.LoadDuration.Observe(d.Seconds())
}

// Fragment counts one streamed fragment.
func (m *Metrics) Fragment(appended bool) {
	if m == nil {
		return
	}
	outcome := "appended"
	if !appended {
		outcome = "dropped"
	}
	m.FragmentsTotal.WithLabelValues(outcome).Inc()
}

// Flush counts one display snapshot.
func (m *Metrics) Flush(final bool) {
	if m == nil {
		return
	}
	kind := "throttled"
	if final {
		kind = "final"
	}
	m.FlushesTotal.WithLabelValues(kind).Inc()
}

// SetStreaming records the size of the streaming set.
func (m *Metrics) SetStreaming(n int) {
	if m == nil {
		return
	}
	m.StreamingActive.Set(float64(n))
}

// RatingRolledBack counts one reverted rating.
func (m *Metrics) RatingRolledBack() {
	if m == nil {
		return
	}
	m.RatingRollbacks.Inc()
}

// GuardRejected counts one operation ignored by the conversation guard.
func (m *Metrics) GuardRejected(op string) {
	if m == nil {
		return
	}
	m.GuardRejectedTotal.WithLabelValues(op).Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
