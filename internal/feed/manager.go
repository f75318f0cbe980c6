package feed

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jpillora/backoff"

	"rockwatch/internal/logger"
	"rockwatch/internal/metrics"
	"rockwatch/internal/stats"
)

const (
	defaultReconnectDelay   = 2 * time.Second
	defaultMaxAttempts      = 10
	defaultHandshakeTimeout = 10 * time.Second
)

// Config configures a feed Manager
type Config struct {
	Endpoint         string
	ReconnectDelay   time.Duration
	MaxAttempts      int
	HandshakeTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.ReconnectDelay <= 0 {
		c.ReconnectDelay = defaultReconnectDelay
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = defaultMaxAttempts
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = defaultHandshakeTimeout
	}
	return c
}

// Manager owns a single streaming session against the configured endpoint,
// broadcasts decoded frames and state transitions to subscribers, and
// recovers from transient failures with a bounded fixed-delay retry.
//
// A Manager is constructed explicitly and injected; it holds no package
// state. Close tears down the transport and cancels any pending retry.
type Manager struct {
	mu      sync.Mutex
	writeMu sync.Mutex

	cfg     Config
	dialer  Dialer
	log     *logger.Logger
	metrics *metrics.Metrics
	stats   *stats.StatsCollector
	subs    registry

	endpoint string
	conn     Conn
	attempts int
	// gen is the session generation. It is bumped whenever the current
	// session is invalidated (endpoint change, close), so callbacks from
	// a replaced session can never schedule work against the new one.
	gen        uint64
	retryTimer *time.Timer
	backoff    *backoff.Backoff
	started    bool
	closed     bool

	connected atomic.Bool
	// stateMu serializes state transitions so notifications are
	// de-duplicated and delivered in order.
	stateMu   sync.Mutex
	lastState atomic.Value // State
}

// NewManager creates a feed manager using the websocket dialer
func NewManager(cfg Config, log *logger.Logger, m *metrics.Metrics, s *stats.StatsCollector) *Manager {
	cfg = cfg.withDefaults()
	return NewManagerWithDialer(cfg, &wsDialer{handshakeTimeout: cfg.HandshakeTimeout}, log, m, s)
}

// NewManagerWithDialer creates a feed manager with a provided dialer (for testing)
func NewManagerWithDialer(cfg Config, d Dialer, log *logger.Logger, m *metrics.Metrics, s *stats.StatsCollector) *Manager {
	cfg = cfg.withDefaults()
	mgr := &Manager{
		cfg:      cfg,
		dialer:   d,
		log:      log,
		metrics:  m,
		stats:    s,
		endpoint: cfg.Endpoint,
		backoff: &backoff.Backoff{
			Min:    cfg.ReconnectDelay,
			Max:    cfg.ReconnectDelay, // fixed delay, no growth
			Factor: 1,
			Jitter: false,
		},
	}
	mgr.lastState.Store(StateDisconnected)
	return mgr
}

// Start begins the connect cycle. It returns immediately; connection
// progress is observable through state subscriptions and Connected.
func (mgr *Manager) Start() {
	mgr.mu.Lock()
	if mgr.closed || mgr.started {
		mgr.mu.Unlock()
		return
	}
	mgr.started = true
	gen := mgr.gen
	url := mgr.endpoint
	mgr.mu.Unlock()

	go mgr.dialAndServe(gen, url)
}

// Close tears down the transport and cancels any pending retry timer.
// The manager cannot be restarted afterwards.
func (mgr *Manager) Close() {
	mgr.mu.Lock()
	if mgr.closed {
		mgr.mu.Unlock()
		return
	}
	mgr.closed = true
	mgr.gen++
	if mgr.retryTimer != nil {
		mgr.retryTimer.Stop()
		mgr.retryTimer = nil
	}
	conn := mgr.conn
	mgr.conn = nil
	wasConnected := mgr.connected.Swap(false)
	mgr.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
	if wasConnected && mgr.metrics != nil {
		mgr.metrics.SetFeedConnectionStatus(false)
	}
	mgr.setState(StateDisconnected)
	mgr.log.Info("feed manager closed")
}

// SetEndpoint changes the streaming target. A different URL tears down the
// current session, resets the retry budget (clearing exhaustion) and
// reconnects; the same URL is a no-op.
func (mgr *Manager) SetEndpoint(url string) {
	mgr.mu.Lock()
	if mgr.closed || url == mgr.endpoint {
		mgr.mu.Unlock()
		return
	}
	old := mgr.endpoint
	mgr.endpoint = url
	mgr.gen++
	gen := mgr.gen
	mgr.attempts = 0
	mgr.backoff.Reset()
	if mgr.retryTimer != nil {
		mgr.retryTimer.Stop()
		mgr.retryTimer = nil
	}
	conn := mgr.conn
	mgr.conn = nil
	wasConnected := mgr.connected.Swap(false)
	started := mgr.started
	mgr.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
	mgr.log.Info("feed endpoint changed", "old", old, "new", url)
	if wasConnected && mgr.metrics != nil {
		mgr.metrics.SetFeedConnectionStatus(false)
	}
	mgr.setState(StateDisconnected)

	if started {
		go mgr.dialAndServe(gen, url)
	}
}

// Endpoint returns the current streaming target
func (mgr *Manager) Endpoint() string {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	return mgr.endpoint
}

// Connected reports the last observed transport-open state
func (mgr *Manager) Connected() bool {
	return mgr.connected.Load()
}

// State returns the current de-duplicated connection state
func (mgr *Manager) State() State {
	return mgr.lastState.Load().(State)
}

// Attempts returns the current reconnect attempt count
func (mgr *Manager) Attempts() int {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	return mgr.attempts
}

// Send serializes v and writes it to the active session. It never blocks
// on connection recovery: without an open transport it fails immediately
// with ErrNotConnected. There is no retry and no queueing.
func (mgr *Manager) Send(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("feed: encode message: %w", err)
	}

	mgr.mu.Lock()
	closed := mgr.closed
	conn := mgr.conn
	mgr.mu.Unlock()

	if closed {
		return ErrClosed
	}
	if conn == nil {
		mgr.markSend("failed")
		return ErrNotConnected
	}

	mgr.writeMu.Lock()
	err = conn.WriteMessage(websocket.TextMessage, data)
	mgr.writeMu.Unlock()
	if err != nil {
		mgr.markSend("failed")
		return fmt.Errorf("feed: send: %w", err)
	}
	mgr.markSend("sent")
	return nil
}

// SubscribeFrames registers fn to receive every decoded frame. The
// returned id is passed to UnsubscribeFrames.
func (mgr *Manager) SubscribeFrames(fn FrameFunc) string {
	id := mgr.subs.addFrame(fn)
	mgr.updateSubscriberGauges()
	return id
}

// UnsubscribeFrames removes a frame subscription
func (mgr *Manager) UnsubscribeFrames(id string) {
	mgr.subs.removeFrame(id)
	mgr.updateSubscriberGauges()
}

// SubscribeState registers fn to receive de-duplicated state transitions
func (mgr *Manager) SubscribeState(fn StateFunc) string {
	id := mgr.subs.addState(fn)
	mgr.updateSubscriberGauges()
	return id
}

// UnsubscribeState removes a state subscription
func (mgr *Manager) UnsubscribeState(id string) {
	mgr.subs.removeState(id)
	mgr.updateSubscriberGauges()
}

// dialAndServe attempts one connection and, on success, serves its read
// loop until the session ends.
func (mgr *Manager) dialAndServe(gen uint64, url string) {
	conn, err := mgr.dialer.Dial(url)

	mgr.mu.Lock()
	if mgr.closed || gen != mgr.gen {
		mgr.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
		return
	}
	if err != nil {
		mgr.mu.Unlock()
		mgr.log.Error("feed connect failed", "endpoint", url, "error", err)
		mgr.scheduleRetry(gen)
		return
	}
	mgr.conn = conn
	mgr.attempts = 0
	mgr.backoff.Reset()
	mgr.connected.Store(true)
	mgr.mu.Unlock()

	mgr.log.Info("feed connected", "endpoint", url)
	if mgr.metrics != nil {
		mgr.metrics.SetFeedConnectionStatus(true)
	}
	mgr.setState(StateConnected)

	mgr.readLoop(gen, conn)
}

// readLoop decodes and broadcasts frames until the transport fails.
// Malformed frames are dropped without notifying subscribers or touching
// connection state.
func (mgr *Manager) readLoop(gen uint64, conn Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			mgr.sessionLost(gen, err)
			return
		}

		var frame Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			mgr.log.Debug("dropping malformed frame", "error", err)
			if mgr.metrics != nil {
				mgr.metrics.IncFramesTotal("dropped")
			}
			if mgr.stats != nil {
				mgr.stats.IncFramesDropped()
			}
			continue
		}

		if mgr.metrics != nil {
			mgr.metrics.IncFramesTotal("received")
		}
		if mgr.stats != nil {
			mgr.stats.IncFramesReceived()
		}
		mgr.broadcastFrame(frame)
	}
}

// sessionLost handles a transport error or closure for session gen. If the
// session has already been replaced the event is ignored entirely.
func (mgr *Manager) sessionLost(gen uint64, err error) {
	mgr.mu.Lock()
	if mgr.closed || gen != mgr.gen {
		mgr.mu.Unlock()
		return
	}
	if mgr.conn != nil {
		mgr.conn.Close()
		mgr.conn = nil
	}
	url := mgr.endpoint
	wasConnected := mgr.connected.Swap(false)
	mgr.mu.Unlock()

	mgr.log.Error("feed connection lost", "endpoint", url, "error", err)
	if wasConnected && mgr.metrics != nil {
		mgr.metrics.SetFeedConnectionStatus(false)
	}
	mgr.setState(StateDisconnected)
	mgr.scheduleRetry(gen)
}

// scheduleRetry arms the reconnect timer if budget remains, otherwise
// surfaces exhaustion. The attempt counter is incremented before each
// scheduled attempt.
func (mgr *Manager) scheduleRetry(gen uint64) {
	mgr.mu.Lock()
	if mgr.closed || gen != mgr.gen {
		mgr.mu.Unlock()
		return
	}
	if mgr.attempts >= mgr.cfg.MaxAttempts {
		url := mgr.endpoint
		attempts := mgr.attempts
		mgr.mu.Unlock()
		mgr.log.Error("feed reconnect budget exhausted",
			"endpoint", url,
			"attempts", attempts)
		mgr.setState(StateExhausted)
		return
	}
	mgr.attempts++
	attempt := mgr.attempts
	delay := mgr.backoff.Duration()
	url := mgr.endpoint
	mgr.retryTimer = time.AfterFunc(delay, func() {
		mgr.mu.Lock()
		stale := mgr.closed || gen != mgr.gen
		mgr.mu.Unlock()
		if stale {
			return
		}
		mgr.dialAndServe(gen, url)
	})
	mgr.mu.Unlock()

	mgr.log.Info("scheduling feed reconnect",
		"endpoint", url,
		"attempt", attempt,
		"delay", delay)
	if mgr.metrics != nil {
		mgr.metrics.IncFeedReconnects()
	}
	if mgr.stats != nil {
		mgr.stats.IncReconnects()
	}
}

// broadcastFrame delivers one frame to every frame subscriber, in
// registration order, synchronously on the receive path. A panicking
// subscriber is logged and skipped; the rest of the broadcast proceeds.
func (mgr *Manager) broadcastFrame(frame Frame) {
	for _, sub := range mgr.subs.frameSnapshot() {
		mgr.invokeFrame(sub, frame)
	}
	if mgr.metrics != nil {
		mgr.metrics.IncFramesTotal("broadcast")
	}
	if mgr.stats != nil {
		mgr.stats.IncFramesBroadcast()
	}
}

func (mgr *Manager) invokeFrame(sub frameSub, frame Frame) {
	defer func() {
		if r := recover(); r != nil {
			mgr.log.Error("frame subscriber panicked", "subscriber", sub.id, "panic", r)
		}
	}()
	sub.fn(frame)
}

// setState records a transition and notifies state subscribers.
// Consecutive identical states produce no notification. The transition is
// recorded under stateMu but callbacks run outside it, so a subscriber may
// re-enter the manager — an exhaustion handler calling SetEndpoint, for
// instance — without deadlocking.
func (mgr *Manager) setState(s State) {
	mgr.stateMu.Lock()
	if mgr.lastState.Load().(State) == s {
		mgr.stateMu.Unlock()
		return
	}
	mgr.lastState.Store(s)
	subs := mgr.subs.stateSnapshot()
	mgr.stateMu.Unlock()

	for _, sub := range subs {
		mgr.invokeState(sub, s)
	}
}

func (mgr *Manager) invokeState(sub stateSub, s State) {
	defer func() {
		if r := recover(); r != nil {
			mgr.log.Error("state subscriber panicked", "subscriber", sub.id, "panic", r)
		}
	}()
	sub.fn(s)
}

func (mgr *Manager) markSend(status string) {
	if mgr.metrics != nil {
		mgr.metrics.IncSendsTotal(status)
	}
	if mgr.stats != nil && status == "failed" {
		mgr.stats.IncSendErrors()
	}
}

func (mgr *Manager) updateSubscriberGauges() {
	if mgr.metrics == nil {
		return
	}
	frames, states := mgr.subs.counts()
	mgr.metrics.SetSubscribers("frame", frames)
	mgr.metrics.SetSubscribers("state", states)
}
