package feed

import "sync"

// Adapter binds one consumer to a Manager. Each adapter keeps its own
// latest-frame snapshot and connection state; two adapters attached to the
// same manager never share state. Detach must be called when the owning
// consumer goes away, on every exit path, or its callbacks keep firing
// into a dead consumer.
type Adapter struct {
	mu       sync.Mutex
	mgr      *Manager
	frameID  string
	stateID  string
	attached bool

	latest   Frame
	hasFrame bool
	state    State
	lastErr  error
}

// NewAdapter creates a detached adapter
func NewAdapter() *Adapter {
	return &Adapter{state: StateDisconnected}
}

// Attach registers the adapter's callbacks with mgr. The manager's current
// state is read synchronously as the initial value. Attaching an already
// attached adapter is a no-op.
func (a *Adapter) Attach(mgr *Manager) {
	a.mu.Lock()
	if a.attached {
		a.mu.Unlock()
		return
	}
	a.mgr = mgr
	a.attached = true
	a.mu.Unlock()

	frameID := mgr.SubscribeFrames(a.onFrame)
	stateID := mgr.SubscribeState(a.onState)

	a.mu.Lock()
	a.frameID = frameID
	a.stateID = stateID
	// Initialized after registration: a transition landing before the
	// callbacks were in place is picked up here rather than lost.
	a.state = mgr.State()
	a.mu.Unlock()
}

// Detach removes both registrations. Safe to call more than once.
func (a *Adapter) Detach() {
	a.mu.Lock()
	if !a.attached {
		a.mu.Unlock()
		return
	}
	mgr := a.mgr
	frameID := a.frameID
	stateID := a.stateID
	a.attached = false
	a.mgr = nil
	a.mu.Unlock()

	mgr.UnsubscribeFrames(frameID)
	mgr.UnsubscribeState(stateID)
}

// Latest returns the most recently received frame, or false before the
// first frame arrives.
func (a *Adapter) Latest() (Frame, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.latest, a.hasFrame
}

// Connected reports whether the adapter last observed an open connection
func (a *Adapter) Connected() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state == StateConnected
}

// State returns the adapter's view of the connection state
func (a *Adapter) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Send forwards v to the manager. Failures are recorded on the adapter
// and observable via LastError; they are never propagated to the caller.
func (a *Adapter) Send(v interface{}) {
	a.mu.Lock()
	mgr := a.mgr
	attached := a.attached
	a.mu.Unlock()

	var err error
	if !attached {
		err = ErrNotConnected
	} else {
		err = mgr.Send(v)
	}

	a.mu.Lock()
	a.lastErr = err
	a.mu.Unlock()
}

// LastError returns the result of the most recent Send, nil on success
func (a *Adapter) LastError() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastErr
}

func (a *Adapter) onFrame(f Frame) {
	a.mu.Lock()
	a.latest = f
	a.hasFrame = true
	a.mu.Unlock()
}

func (a *Adapter) onState(s State) {
	a.mu.Lock()
	a.state = s
	a.mu.Unlock()
}
