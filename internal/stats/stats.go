package stats

import (
	"encoding/json"
	"sync/atomic"
	"time"
)

// StatsCollector manages application-wide statistics
type StatsCollector struct {
	StartTime       time.Time
	FramesReceived  uint64
	FramesDropped   uint64
	FramesBroadcast uint64
	Reconnects      uint64
	SendErrors      uint64
}

// NewStatsCollector creates a new stats collector
func NewStatsCollector() *StatsCollector {
	return &StatsCollector{
		StartTime: time.Now(),
	}
}

// IncFramesReceived increments the received frame counter
func (s *StatsCollector) IncFramesReceived() {
	atomic.AddUint64(&s.FramesReceived, 1)
}

// IncFramesDropped increments the dropped frame counter
func (s *StatsCollector) IncFramesDropped() {
	atomic.AddUint64(&s.FramesDropped, 1)
}

// IncFramesBroadcast increments the broadcast frame counter
func (s *StatsCollector) IncFramesBroadcast() {
	atomic.AddUint64(&s.FramesBroadcast, 1)
}

// IncReconnects increments the reconnect counter
func (s *StatsCollector) IncReconnects() {
	atomic.AddUint64(&s.Reconnects, 1)
}

// IncSendErrors increments the send error counter
func (s *StatsCollector) IncSendErrors() {
	atomic.AddUint64(&s.SendErrors, 1)
}

// GetStats returns current statistics
func (s *StatsCollector) GetStats() map[string]interface{} {
	uptime := time.Since(s.StartTime)
	return map[string]interface{}{
		"uptime":           uptime.String(),
		"frames_received":  atomic.LoadUint64(&s.FramesReceived),
		"frames_dropped":   atomic.LoadUint64(&s.FramesDropped),
		"frames_broadcast": atomic.LoadUint64(&s.FramesBroadcast),
		"reconnects":       atomic.LoadUint64(&s.Reconnects),
		"send_errors":      atomic.LoadUint64(&s.SendErrors),
	}
}

// GetStatsJSON returns stats as JSON
func (s *StatsCollector) GetStatsJSON() ([]byte, error) {
	return json.Marshal(s.GetStats())
}

// FrameRate calculates the received frame rate per second since start
func (s *StatsCollector) FrameRate() float64 {
	uptime := time.Since(s.StartTime).Seconds()
	if uptime <= 0 {
		return 0
	}
	return float64(atomic.LoadUint64(&s.FramesReceived)) / uptime
}
