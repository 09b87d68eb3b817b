package session

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records board activity per location.
type Metrics struct {
	placed       *prometheus.CounterVec
	duplicates   *prometheus.CounterVec
	dropped      *prometheus.CounterVec
	alarms       *prometheus.CounterVec
	acks         *prometheus.CounterVec
	ackedOrders  *prometheus.CounterVec
	advanceFails *prometheus.CounterVec
	advanceTime  *prometheus.HistogramVec
	sessions     prometheus.Gauge
}

// NewMetrics registers the board metrics on reg. A nil reg yields a no-op
// recorder.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return &Metrics{}
	}
	m := &Metrics{
		placed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "posboard_orders_placed_total",
			Help: "Placed orders received over realtime.",
		}, []string{"location"}),
		duplicates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "posboard_orders_duplicate_total",
			Help: "Placed events for orders already on the board.",
		}, []string{"location"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "posboard_events_dropped_total",
			Help: "Realtime messages discarded.",
		}, []string{"location", "reason"}),
		alarms: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "posboard_alarm_starts_total",
			Help: "Times the alarm went from silent to sounding.",
		}, []string{"location"}),
		acks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "posboard_acknowledgments_total",
			Help: "Bulk acknowledgments of the alert queue.",
		}, []string{"location"}),
		ackedOrders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "posboard_acknowledged_orders_total",
			Help: "Orders cleared from the alert queue.",
		}, []string{"location"}),
		advanceFails: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "posboard_advance_failures_total",
			Help: "Status advance commands the backend did not accept.",
		}, []string{"location"}),
		advanceTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "posboard_advance_duration_seconds",
			Help:    "Round trip of status advance commands.",
			Buckets: prometheus.DefBuckets,
		}, []string{"location"}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "posboard_sessions",
			Help: "Mounted board sessions.",
		}),
	}
	reg.MustRegister(m.placed, m.duplicates, m.dropped, m.alarms, m.acks, m.ackedOrders, m.advanceFails, m.advanceTime, m.sessions)
	return m
}

func (m *Metrics) OrderPlaced(location string, duplicate bool) {
	if m == nil || m.placed == nil {
		return
	}
	m.placed.WithLabelValues(location).Inc()
	if duplicate {
		m.duplicates.WithLabelValues(location).Inc()
	}
}

func (m *Metrics) EventDropped(location, reason string) {
	if m == nil || m.dropped == nil {
		return
	}
	m.dropped.WithLabelValues(location, normalizeLabel(reason)).Inc()
}

func (m *Metrics) AlarmStarted(location string) {
	if m == nil || m.alarms == nil {
		return
	}
	m.alarms.WithLabelValues(location).Inc()
}

func (m *Metrics) Acknowledged(location string, orders int) {
	if m == nil || m.acks == nil {
		return
	}
	m.acks.WithLabelValues(location).Inc()
	m.ackedOrders.WithLabelValues(location).Add(float64(orders))
}

func (m *Metrics) Advanced(location string, took time.Duration, err error) {
	if m == nil || m.advanceTime == nil {
		return
	}
	m.advanceTime.WithLabelValues(location).Observe(took.Seconds())
	if err != nil {
		m.advanceFails.WithLabelValues(location).Inc()
	}
}

func (m *Metrics) SessionMounted() {
	if m == nil || m.sessions == nil {
		return
	}
	m.sessions.Inc()
}

func (m *Metrics) SessionUnmounted() {
	if m == nil || m.sessions == nil {
		return
	}
	m.sessions.Dec()
}

// dropCounter binds the metrics to one location for the realtime channel.
type dropCounter struct {
	metrics  *Metrics
	location string
}

func (d dropCounter) EventDropped(reason string) {
	d.metrics.EventDropped(d.location, reason)
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
