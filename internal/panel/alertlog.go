package panel

import (
	"sync"
	"time"
)

// Entry is one line in the alert log
type Entry struct {
	At      time.Time `json:"at"`
	Kind    string    `json:"kind"` // "alert", "risk", "feed"
	Message string    `json:"message"`
}

// AlertLog is a bounded, newest-first event log fed by the alert poller,
// the risk panel, and feed state changes. Oldest entries fall off.
type AlertLog struct {
	mu      sync.Mutex
	entries []Entry
	size    int
}

// NewAlertLog creates a log keeping up to size entries
func NewAlertLog(size int) *AlertLog {
	if size <= 0 {
		size = 50
	}
	return &AlertLog{size: size}
}

// Record appends an entry, evicting the oldest when full
func (l *AlertLog) Record(kind, message string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, Entry{At: time.Now(), Kind: kind, Message: message})
	if len(l.entries) > l.size {
		l.entries = l.entries[1:]
	}
}

// Entries returns a copy of the log, newest first
func (l *AlertLog) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.entries))
	for i, e := range l.entries {
		out[len(l.entries)-1-i] = e
	}
	return out
}

// Len returns the current number of entries
func (l *AlertLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
