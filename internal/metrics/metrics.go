// Package metrics provides prometheus instrumentation for the feed and
// the simulated backend.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all prometheus collectors for the application
type Metrics struct {
	feedConnectionStatus prometheus.Gauge
	feedReconnects       prometheus.Counter
	framesTotal          *prometheus.CounterVec
	sendsTotal           *prometheus.CounterVec
	subscribers          *prometheus.GaugeVec
	triggerEvents        *prometheus.CounterVec
	alertChanges         prometheus.Counter
	streamClients        prometheus.Gauge
}

// NewMetrics creates and registers all application metrics
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		feedConnectionStatus: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rockwatch_feed_connection_status",
			Help: "Current feed connection status (1=connected, 0=disconnected)",
		}),
		feedReconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rockwatch_feed_reconnects_total",
			Help: "Total number of scheduled feed reconnect attempts",
		}),
		framesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rockwatch_frames_total",
			Help: "Total number of feed frames by status",
		}, []string{"status"}), // received, dropped, broadcast
		sendsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rockwatch_sends_total",
			Help: "Total number of outbound feed sends by status",
		}, []string{"status"}), // sent, failed
		subscribers: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "rockwatch_feed_subscribers",
			Help: "Number of registered feed subscribers by kind",
		}, []string{"kind"}), // frame, state
		triggerEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rockwatch_trigger_events_total",
			Help: "Total number of accepted trigger events by type",
		}, []string{"type"}),
		alertChanges: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rockwatch_alert_changes_total",
			Help: "Total number of alert mode changes",
		}),
		streamClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rockwatch_stream_clients",
			Help: "Number of connected stream clients on the sim backend",
		}),
	}

	collectors := []prometheus.Collector{
		m.feedConnectionStatus,
		m.feedReconnects,
		m.framesTotal,
		m.sendsTotal,
		m.subscribers,
		m.triggerEvents,
		m.alertChanges,
		m.streamClients,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register collector: %w", err)
		}
	}

	return m, nil
}

// SetFeedConnectionStatus sets the feed connection status gauge
func (m *Metrics) SetFeedConnectionStatus(connected bool) {
	if connected {
		m.feedConnectionStatus.Set(1)
	} else {
		m.feedConnectionStatus.Set(0)
	}
}

// IncFeedReconnects increments the reconnect attempt counter
func (m *Metrics) IncFeedReconnects() {
	m.feedReconnects.Inc()
}

// IncFramesTotal increments the frame counter for a status
func (m *Metrics) IncFramesTotal(status string) {
	m.framesTotal.WithLabelValues(status).Inc()
}

// IncSendsTotal increments the send counter for a status
func (m *Metrics) IncSendsTotal(status string) {
	m.sendsTotal.WithLabelValues(status).Inc()
}

// SetSubscribers sets the subscriber count for a kind
func (m *Metrics) SetSubscribers(kind string, count int) {
	m.subscribers.WithLabelValues(kind).Set(float64(count))
}

// IncTriggerEvents increments the trigger event counter for a type
func (m *Metrics) IncTriggerEvents(eventType string) {
	m.triggerEvents.WithLabelValues(eventType).Inc()
}

// IncAlertChanges increments the alert mode change counter
func (m *Metrics) IncAlertChanges() {
	m.alertChanges.Inc()
}

// SetStreamClients sets the connected stream client gauge
func (m *Metrics) SetStreamClients(count int) {
	m.streamClients.Set(float64(count))
}
