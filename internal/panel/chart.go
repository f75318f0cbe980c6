package panel

import (
	"sync"

	"rockwatch/internal/feed"
)

// Chart keeps a bounded history of one numeric frame field, sampled from
// its adapter's latest frame. Duplicate frames (same timestamp) are
// skipped so a render loop faster than the feed does not double-count.
type Chart struct {
	adapter *feed.Adapter
	field   string
	size    int

	mu       sync.Mutex
	values   []float64
	lastSeen string
}

// NewChart creates a chart for one frame field keeping up to size points
func NewChart(field string, size int) *Chart {
	if size <= 0 {
		size = 120
	}
	return &Chart{adapter: feed.NewAdapter(), field: field, size: size}
}

// Attach connects the chart to a feed manager
func (c *Chart) Attach(mgr *feed.Manager) {
	c.adapter.Attach(mgr)
}

// Detach disconnects the chart; accumulated points remain readable
func (c *Chart) Detach() {
	c.adapter.Detach()
}

// Sample appends the field's current value from the latest frame. Frames
// without the field, non-numeric values, and already-sampled frames are
// skipped. Returns whether a point was added.
func (c *Chart) Sample() bool {
	frame, ok := c.adapter.Latest()
	if !ok {
		return false
	}

	timestamp, _ := frame["timestamp"].(string)
	value, ok := frame[c.field].(float64)
	if !ok {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if timestamp != "" && timestamp == c.lastSeen {
		return false
	}
	c.lastSeen = timestamp

	c.values = append(c.values, value)
	if len(c.values) > c.size {
		c.values = c.values[1:]
	}
	return true
}

// Points returns a copy of the accumulated values, oldest first
func (c *Chart) Points() []float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]float64, len(c.values))
	copy(out, c.values)
	return out
}

// Field returns the frame field this chart tracks
func (c *Chart) Field() string {
	return c.field
}
