package stats

import (
	"encoding/json"
	"sync"
	"testing"
)

func TestStatsCollector(t *testing.T) {
	s := NewStatsCollector()

	s.IncFramesReceived()
	s.IncFramesReceived()
	s.IncFramesDropped()
	s.IncFramesBroadcast()
	s.IncReconnects()
	s.IncSendErrors()

	stats := s.GetStats()
	if stats["frames_received"].(uint64) != 2 {
		t.Errorf("frames_received = %v, want 2", stats["frames_received"])
	}
	if stats["frames_dropped"].(uint64) != 1 {
		t.Errorf("frames_dropped = %v, want 1", stats["frames_dropped"])
	}
	if stats["reconnects"].(uint64) != 1 {
		t.Errorf("reconnects = %v, want 1", stats["reconnects"])
	}
}

func TestStatsJSON(t *testing.T) {
	s := NewStatsCollector()
	s.IncFramesReceived()

	data, err := s.GetStatsJSON()
	if err != nil {
		t.Fatalf("GetStatsJSON() error = %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("invalid stats JSON: %v", err)
	}
	if _, ok := decoded["uptime"]; !ok {
		t.Error("Expected uptime field in stats JSON")
	}
}

func TestStatsConcurrentUpdates(t *testing.T) {
	s := NewStatsCollector()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.IncFramesReceived()
			}
		}()
	}
	wg.Wait()

	if got := s.GetStats()["frames_received"].(uint64); got != 1000 {
		t.Errorf("frames_received = %d, want 1000", got)
	}
}

func TestFrameRate(t *testing.T) {
	s := NewStatsCollector()
	if rate := s.FrameRate(); rate != 0 {
		t.Errorf("FrameRate() = %f, want 0 before any frames", rate)
	}
	s.IncFramesReceived()
	if rate := s.FrameRate(); rate <= 0 {
		t.Errorf("FrameRate() = %f, want > 0", rate)
	}
}
