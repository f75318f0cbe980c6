// Package feed maintains a single streaming connection to the monitoring
// backend and fans incoming frames out to registered subscribers.
package feed

import (
	"errors"
	"time"

	"github.com/gorilla/websocket"
)

// State represents the externally visible connection state
type State string

const (
	// StateDisconnected indicates no live transport; the manager may be retrying
	StateDisconnected State = "disconnected"
	// StateConnected indicates an open transport session
	StateConnected State = "connected"
	// StateExhausted indicates the reconnect budget is spent; only an
	// endpoint change restarts the cycle
	StateExhausted State = "exhausted"
)

// Frame is one decoded message from the stream. The manager forwards it
// uninterpreted; field meaning belongs to the consumers.
type Frame map[string]interface{}

// FrameFunc is invoked once per decoded frame, in registration order
type FrameFunc func(Frame)

// StateFunc is invoked on every de-duplicated state transition
type StateFunc func(State)

var (
	// ErrNotConnected is returned by Send when no transport is open
	ErrNotConnected = errors.New("feed: not connected")
	// ErrClosed is returned after the manager has been closed
	ErrClosed = errors.New("feed: manager closed")
)

// Conn is the transport session seam, satisfied by *websocket.Conn
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Dialer opens a transport session against an endpoint URL
type Dialer interface {
	Dial(url string) (Conn, error)
}

// wsDialer is the production dialer backed by gorilla/websocket
type wsDialer struct {
	handshakeTimeout time.Duration
}

func (d *wsDialer) Dial(url string) (Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: d.handshakeTimeout,
	}
	conn, resp, err := dialer.Dial(url, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}
	return conn, nil
}
