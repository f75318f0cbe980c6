// Package sim implements the simulated monitoring backend: a live sensor
// stream over WebSocket plus the demo trigger and alert endpoints.
package sim

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"rockwatch/internal/forecast"
	"rockwatch/internal/logger"
	"rockwatch/internal/metrics"
	"rockwatch/internal/risk"
	"rockwatch/internal/sensor"
)

// Config configures the simulated backend
type Config struct {
	SampleInterval  time.Duration
	TriggerDuration time.Duration
	TriggerRate     rate.Limit
	TriggerBurst    int
	Seed            int64
}

func (c Config) withDefaults() Config {
	if c.SampleInterval <= 0 {
		c.SampleInterval = 50 * time.Millisecond
	}
	if c.TriggerDuration <= 0 {
		c.TriggerDuration = 60 * time.Second
	}
	if c.TriggerRate <= 0 {
		c.TriggerRate = 1
	}
	if c.TriggerBurst <= 0 {
		c.TriggerBurst = 3
	}
	return c
}

// Server streams frames to any number of clients and serves the control
// endpoints. Each stream client gets its own forecaster window.
type Server struct {
	cfg      Config
	log      *logger.Logger
	metrics  *metrics.Metrics
	suite    *sensor.Suite
	eval     *risk.Evaluator
	upgrader websocket.Upgrader
	limiter  *rate.Limiter

	alertMu       sync.RWMutex
	alertMode     string
	alertLocation string

	clientsMu sync.Mutex
	clients   int
}

// NewServer creates a simulated backend
func NewServer(cfg Config, log *logger.Logger, m *metrics.Metrics) *Server {
	cfg = cfg.withDefaults()
	return &Server{
		cfg:     cfg,
		log:     log,
		metrics: m,
		suite:   sensor.NewSuite(cfg.Seed),
		eval:    risk.NewEvaluator(risk.DefaultThresholds()),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true }, // demo only
		},
		limiter:       rate.NewLimiter(cfg.TriggerRate, cfg.TriggerBurst),
		alertMode:     "safe",
		alertLocation: "slope-a",
	}
}

// Handler returns the backend's route table
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws/live", s.handleStream)
	mux.HandleFunc("POST /trigger_event/{type}", s.handleTrigger)
	mux.HandleFunc("GET /alert", s.handleGetAlert)
	mux.HandleFunc("POST /alert/{mode}", s.handleSetAlert)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

// handleStream upgrades the connection and streams one frame per sample
// interval until the client goes away.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error("stream upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	defer conn.Close()

	s.trackClient(1)
	defer s.trackClient(-1)
	s.log.Info("stream client connected", "remote", r.RemoteAddr)

	// Drain inbound control messages; a read error means the client left
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			s.log.Debug("stream client message", "remote", r.RemoteAddr, "payload", string(msg))
		}
	}()

	nowcaster := forecast.NewNowcaster(0, 0)
	ticker := time.NewTicker(s.cfg.SampleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			s.log.Info("stream client disconnected", "remote", r.RemoteAddr)
			return
		case now := <-ticker.C:
			if err := conn.WriteJSON(s.buildFrame(now, nowcaster)); err != nil {
				s.log.Info("stream write failed", "remote", r.RemoteAddr, "error", err)
				return
			}
		}
	}
}

// buildFrame combines sensor readings, the rule-based assessment and the
// weather nowcast into one self-contained frame.
func (s *Server) buildFrame(now time.Time, nowcaster *forecast.Nowcaster) sensor.Reading {
	frame := s.suite.Readings(now)

	assessment := s.eval.Evaluate(frame)
	prediction := "Normal"
	if label, _ := frame["label"].(int); label == 1 || assessment.Level == risk.LevelEmergency {
		prediction = "Event Detected"
	}
	frame["prediction"] = prediction
	frame["confidence"] = assessment.Score
	frame["risk_level"] = assessment.Level
	frame["risk_triggers"] = assessment.Triggers

	rain, _ := frame["rain_sensor_mmhr"].(float64)
	temp, _ := frame["temperature_celsius"].(float64)
	humidity, _ := frame["humidity_percent"].(float64)
	nowcaster.Observe(rain, temp, humidity)
	if nowcaster.Ready() {
		frame["weather_forecast"] = nowcaster.Forecast()
	} else {
		frame["weather_forecast"] = nil
	}

	return frame
}

func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	if !s.limiter.Allow() {
		writeJSON(w, http.StatusTooManyRequests, map[string]string{
			"error": "too many trigger requests",
		})
		return
	}

	eventType := r.PathValue("type")
	if !sensor.ValidEvent(eventType) {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "Invalid event type",
		})
		return
	}

	if err := s.suite.Trigger(eventType, s.cfg.TriggerDuration); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	s.log.Info("event triggered", "type", eventType, "duration", s.cfg.TriggerDuration)
	if s.metrics != nil {
		s.metrics.IncTriggerEvents(eventType)
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": eventType + " event triggered for " + s.cfg.TriggerDuration.String(),
	})
}

func (s *Server) handleGetAlert(w http.ResponseWriter, _ *http.Request) {
	s.alertMu.RLock()
	mode, location := s.alertMode, s.alertLocation
	s.alertMu.RUnlock()

	writeJSON(w, http.StatusOK, map[string]string{
		"mode":     mode,
		"location": location,
	})
}

func (s *Server) handleSetAlert(w http.ResponseWriter, r *http.Request) {
	mode := r.PathValue("mode")
	switch mode {
	case "safe", "warning", "emergency":
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid mode"})
		return
	}

	s.alertMu.Lock()
	changed := s.alertMode != mode
	s.alertMode = mode
	location := s.alertLocation
	s.alertMu.Unlock()

	if changed {
		s.log.Info("alert mode changed", "mode", mode)
		if s.metrics != nil {
			s.metrics.IncAlertChanges()
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"mode":     mode,
		"location": location,
	})
}

func (s *Server) trackClient(delta int) {
	s.clientsMu.Lock()
	s.clients += delta
	count := s.clients
	s.clientsMu.Unlock()
	if s.metrics != nil {
		s.metrics.SetStreamClients(count)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
