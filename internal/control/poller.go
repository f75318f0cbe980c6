package control

import (
	"context"
	"sync"
	"time"

	"rockwatch/internal/logger"
)

// StatusFunc receives each alert status the poller observes
type StatusFunc func(AlertStatus)

// Poller fetches the alert status on a fixed interval and hands changes to
// a callback. Fetch errors are logged and the next tick tries again; there
// is no retry inside a tick.
type Poller struct {
	client   *Client
	interval time.Duration
	log      *logger.Logger
	onChange StatusFunc

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	last    AlertStatus
	hasLast bool
}

// NewPoller creates a poller. A non-positive interval gets the 5s default.
func NewPoller(client *Client, interval time.Duration, log *logger.Logger, onChange StatusFunc) *Poller {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Poller{
		client:   client,
		interval: interval,
		log:      log,
		onChange: onChange,
	}
}

// Start begins polling in the background. Calling Start twice is a no-op.
func (p *Poller) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})
	go p.run(ctx)
}

// Stop halts polling and waits for the loop to exit
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel = nil
	p.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// Last returns the most recently observed status, if any
func (p *Poller) Last() (AlertStatus, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last, p.hasLast
}

func (p *Poller) run(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

func (p *Poller) poll(ctx context.Context) {
	status, err := p.client.AlertStatus(ctx)
	if err != nil {
		if ctx.Err() == nil {
			p.log.Error("alert status poll failed", "error", err)
		}
		return
	}

	p.mu.Lock()
	changed := !p.hasLast || status != p.last
	p.last = status
	p.hasLast = true
	p.mu.Unlock()

	if changed {
		p.log.Info("alert status updated", "mode", status.Mode, "location", status.Location)
		if p.onChange != nil {
			p.onChange(status)
		}
	}
}
