// Package panel holds the dashboard-side consumers. Each panel owns one
// feed adapter and derives its view from the frames that arrive through it.
package panel

import (
	"sync"

	"rockwatch/internal/feed"
	"rockwatch/internal/risk"
)

// RiskPanel shows the latest assessment derived from the live frame,
// falling back to the last known value while the feed is down.
type RiskPanel struct {
	adapter *feed.Adapter
	eval    *risk.Evaluator

	mu         sync.RWMutex
	assessment risk.Assessment
	assessed   bool
}

// NewRiskPanel creates a risk panel with its own adapter
func NewRiskPanel(eval *risk.Evaluator) *RiskPanel {
	return &RiskPanel{adapter: feed.NewAdapter(), eval: eval}
}

// Attach connects the panel to a feed manager
func (p *RiskPanel) Attach(mgr *feed.Manager) {
	p.adapter.Attach(mgr)
}

// Detach disconnects the panel; the last assessment remains readable
func (p *RiskPanel) Detach() {
	p.adapter.Detach()
}

// Refresh re-evaluates the adapter's latest frame. Without a frame yet the
// previous assessment stands.
func (p *RiskPanel) Refresh() {
	frame, ok := p.adapter.Latest()
	if !ok {
		return
	}
	assessment := p.eval.Evaluate(frame)

	p.mu.Lock()
	p.assessment = assessment
	p.assessed = true
	p.mu.Unlock()
}

// Current returns the latest assessment and whether one exists yet
func (p *RiskPanel) Current() (risk.Assessment, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.assessment, p.assessed
}

// Live reports whether the panel's feed is currently connected
func (p *RiskPanel) Live() bool {
	return p.adapter.Connected()
}
