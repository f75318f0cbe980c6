package feed

import (
	"sync"

	"github.com/google/uuid"
)

type frameSub struct {
	id string
	fn FrameFunc
}

type stateSub struct {
	id string
	fn StateFunc
}

// registry holds subscriber registrations for the manager. Broadcasts
// iterate over snapshot copies so a callback may unregister itself (or
// others) mid-notification without corrupting the walk.
type registry struct {
	mu     sync.RWMutex
	frames []frameSub
	states []stateSub
}

func (r *registry) addFrame(fn FrameFunc) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := uuid.NewString()
	r.frames = append(r.frames, frameSub{id: id, fn: fn})
	return id
}

func (r *registry) removeFrame(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, sub := range r.frames {
		if sub.id == id {
			r.frames = append(r.frames[:i], r.frames[i+1:]...)
			return
		}
	}
}

func (r *registry) addState(fn StateFunc) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := uuid.NewString()
	r.states = append(r.states, stateSub{id: id, fn: fn})
	return id
}

func (r *registry) removeState(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, sub := range r.states {
		if sub.id == id {
			r.states = append(r.states[:i], r.states[i+1:]...)
			return
		}
	}
}

// frameSnapshot returns a copy of the frame subscribers in registration order
func (r *registry) frameSnapshot() []frameSub {
	r.mu.RLock()
	defer r.mu.RUnlock()
	snapshot := make([]frameSub, len(r.frames))
	copy(snapshot, r.frames)
	return snapshot
}

// stateSnapshot returns a copy of the state subscribers in registration order
func (r *registry) stateSnapshot() []stateSub {
	r.mu.RLock()
	defer r.mu.RUnlock()
	snapshot := make([]stateSub, len(r.states))
	copy(snapshot, r.states)
	return snapshot
}

func (r *registry) counts() (frames, states int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.frames), len(r.states)
}
