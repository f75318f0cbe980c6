package control

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"rockwatch/config"
	"rockwatch/internal/logger"
)

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.NewLogger(&config.LoggingConfig{
		Level:       "error",
		LogToStdout: true,
	})
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	return log
}

func TestTriggerEvent(t *testing.T) {
	var gotPath, gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotMethod = r.URL.Path, r.Method
		json.NewEncoder(w).Encode(map[string]string{"message": "rockfall event triggered"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, newTestLogger(t))
	if err := c.TriggerEvent(context.Background(), "rockfall"); err != nil {
		t.Fatalf("TriggerEvent failed: %v", err)
	}
	if gotMethod != http.MethodPost || gotPath != "/trigger_event/rockfall" {
		t.Errorf("request = %s %s, want POST /trigger_event/rockfall", gotMethod, gotPath)
	}
}

func TestTriggerEventRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "Invalid event type"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, newTestLogger(t))
	err := c.TriggerEvent(context.Background(), "earthquake")
	if err == nil {
		t.Fatal("expected an error for a rejected trigger")
	}
	if !strings.Contains(err.Error(), "Invalid event type") {
		t.Errorf("error = %q, want it to carry the backend message", err)
	}
}

func TestAlertStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/alert" || r.Method != http.MethodGet {
			t.Errorf("request = %s %s, want GET /alert", r.Method, r.URL.Path)
		}
		json.NewEncoder(w).Encode(AlertStatus{Mode: "warning", Location: "slope-a"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, newTestLogger(t))
	status, err := c.AlertStatus(context.Background())
	if err != nil {
		t.Fatalf("AlertStatus failed: %v", err)
	}
	if status.Mode != "warning" || status.Location != "slope-a" {
		t.Errorf("status = %+v, want warning at slope-a", status)
	}
}

func TestSetAlertMode(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewEncoder(w).Encode(map[string]string{"mode": "safe"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, newTestLogger(t))
	if err := c.SetAlertMode(context.Background(), "safe"); err != nil {
		t.Fatalf("SetAlertMode failed: %v", err)
	}
	if gotPath != "/alert/safe" {
		t.Errorf("path = %s, want /alert/safe", gotPath)
	}
}

func TestClientUnreachableBackend(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", newTestLogger(t))
	if err := c.TriggerEvent(context.Background(), "rockfall"); err == nil {
		t.Error("expected an error against an unreachable backend")
	}
	if _, err := c.AlertStatus(context.Background()); err == nil {
		t.Error("expected an error against an unreachable backend")
	}
}

func TestPollerReportsChanges(t *testing.T) {
	var mu sync.Mutex
	mode := "safe"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		json.NewEncoder(w).Encode(AlertStatus{Mode: mode, Location: "slope-a"})
	}))
	defer srv.Close()

	var got []AlertStatus
	var gotMu sync.Mutex
	p := NewPoller(NewClient(srv.URL, newTestLogger(t)), 5*time.Millisecond, newTestLogger(t),
		func(s AlertStatus) {
			gotMu.Lock()
			got = append(got, s)
			gotMu.Unlock()
		})
	p.Start()
	defer p.Stop()

	waitFor(t, time.Second, "initial status", func() bool {
		gotMu.Lock()
		defer gotMu.Unlock()
		return len(got) == 1
	})

	mu.Lock()
	mode = "emergency"
	mu.Unlock()

	waitFor(t, time.Second, "changed status", func() bool {
		gotMu.Lock()
		defer gotMu.Unlock()
		return len(got) == 2 && got[1].Mode == "emergency"
	})

	if last, ok := p.Last(); !ok || last.Mode != "emergency" {
		t.Errorf("Last() = (%+v, %v), want the emergency status", last, ok)
	}
}

func TestPollerUnchangedStatusNotRepeated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(AlertStatus{Mode: "safe", Location: "slope-a"})
	}))
	defer srv.Close()

	var calls int
	var mu sync.Mutex
	p := NewPoller(NewClient(srv.URL, newTestLogger(t)), 2*time.Millisecond, newTestLogger(t),
		func(AlertStatus) {
			mu.Lock()
			calls++
			mu.Unlock()
		})
	p.Start()
	time.Sleep(50 * time.Millisecond)
	p.Stop()

	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Errorf("callback fired %d times for an unchanged status, want 1", calls)
	}
}

func TestPollerSurvivesFetchErrors(t *testing.T) {
	var mu sync.Mutex
	fail := true
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		if fail {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(AlertStatus{Mode: "warning", Location: "slope-a"})
	}))
	defer srv.Close()

	var got []AlertStatus
	var gotMu sync.Mutex
	p := NewPoller(NewClient(srv.URL, newTestLogger(t)), 5*time.Millisecond, newTestLogger(t),
		func(s AlertStatus) {
			gotMu.Lock()
			got = append(got, s)
			gotMu.Unlock()
		})
	p.Start()
	defer p.Stop()

	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	fail = false
	mu.Unlock()

	waitFor(t, time.Second, "status after recovery", func() bool {
		gotMu.Lock()
		defer gotMu.Unlock()
		return len(got) == 1 && got[0].Mode == "warning"
	})
}

func TestPollerStopIdempotent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(AlertStatus{Mode: "safe"})
	}))
	defer srv.Close()

	p := NewPoller(NewClient(srv.URL, newTestLogger(t)), time.Millisecond, newTestLogger(t), nil)
	p.Start()
	p.Stop()
	p.Stop()
}

// waitFor polls cond until it holds or the deadline passes
func waitFor(t *testing.T, timeout time.Duration, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
