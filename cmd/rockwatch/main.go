package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"rockwatch/config"
	"rockwatch/internal/control"
	"rockwatch/internal/feed"
	"rockwatch/internal/logger"
	"rockwatch/internal/metrics"
	"rockwatch/internal/panel"
	"rockwatch/internal/risk"
	"rockwatch/internal/stats"
)

func main() {
	configPath := flag.String("config", "config/config.json", "path to config file")

	// Optional override flags
	endpointOverride := flag.String("endpoint", "", "override feed endpoint (empty = use config)")
	controlBaseOverride := flag.String("control-base", "", "override backend control base URL (empty = use config)")
	metricsAddrOverride := flag.String("metrics-addr", "", "override metrics server address (empty = use config)")
	metricsPathOverride := flag.String("metrics-path", "", "override metrics endpoint path (empty = use config)")

	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	cfg.ApplyOverrides(*endpointOverride, *controlBaseOverride, *metricsAddrOverride, *metricsPathOverride)

	logger, err := logger.NewLogger(&cfg.Logging)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}

	// Setup metrics if enabled
	var metricsService *metrics.Metrics
	reg := prometheus.NewRegistry()
	if cfg.Metrics.Enabled {
		metricsService, err = metrics.NewMetrics(reg)
		if err != nil {
			logger.Fatal("failed to create metrics service", "error", err)
		}
	}

	statsCollector := stats.NewStatsCollector()

	// Durations were validated at load time
	reconnectDelay, _ := time.ParseDuration(cfg.Feed.ReconnectDelay)
	handshakeTimeout, _ := time.ParseDuration(cfg.Feed.HandshakeTimeout)

	mgr := feed.NewManager(feed.Config{
		Endpoint:         cfg.Feed.Endpoint,
		ReconnectDelay:   reconnectDelay,
		MaxAttempts:      cfg.Feed.MaxAttempts,
		HandshakeTimeout: handshakeTimeout,
	}, logger, metricsService, statsCollector)

	// Panel consumers, each through its own adapter
	evaluator := risk.NewEvaluator(risk.DefaultThresholds())
	riskPanel := panel.NewRiskPanel(evaluator)
	charts := []*panel.Chart{
		panel.NewChart("geophone", 240),
		panel.NewChart("moisture_sensor", 240),
		panel.NewChart("crack_sensor", 240),
		panel.NewChart("rain_sensor_mmhr", 240),
	}
	alertLog := panel.NewAlertLog(100)

	riskPanel.Attach(mgr)
	for _, c := range charts {
		c.Attach(mgr)
	}

	// Feed state transitions land in the alert log
	stateSub := mgr.SubscribeState(func(s feed.State) {
		alertLog.Record("feed", "feed "+string(s))
	})

	mgr.Start()

	// Optional alert polling against the backend's HTTP side
	var poller *control.Poller
	if cfg.Feed.ControlBase != "" && cfg.Feed.PollInterval != "" {
		pollInterval, _ := time.ParseDuration(cfg.Feed.PollInterval)
		client := control.NewClient(cfg.Feed.ControlBase, logger)
		poller = control.NewPoller(client, pollInterval, logger, func(s control.AlertStatus) {
			alertLog.Record("alert", "mode "+s.Mode+" at "+s.Location)
		})
		poller.Start()
	}

	// Refresh loop drives the panels and tracks risk level changes
	refreshCtx, stopRefresh := context.WithCancel(context.Background())
	go func() {
		ticker := time.NewTicker(250 * time.Millisecond)
		defer ticker.Stop()
		lastLevel := risk.Level("")
		for {
			select {
			case <-refreshCtx.Done():
				return
			case <-ticker.C:
				riskPanel.Refresh()
				for _, c := range charts {
					c.Sample()
				}
				if assessment, ok := riskPanel.Current(); ok && assessment.Level != lastLevel {
					lastLevel = assessment.Level
					alertLog.Record("risk", "level "+string(assessment.Level))
				}
			}
		}
	}()

	// HTTP server: Prometheus metrics plus a JSON status page
	mux := http.NewServeMux()
	if cfg.Metrics.Enabled {
		mux.Handle(cfg.Metrics.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{
			Registry:          reg,
			EnableOpenMetrics: true,
		}))
	}
	mux.HandleFunc("GET /status", func(w http.ResponseWriter, _ *http.Request) {
		body, err := statsCollector.GetStatsJSON()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"state":%q,"endpoint":%q,"stats":%s}`,
			mgr.State(), mgr.Endpoint(), body)
	})

	server := &http.Server{
		Addr:    cfg.Metrics.Address,
		Handler: mux,
	}
	go func() {
		logger.Info("starting http server",
			"address", cfg.Metrics.Address,
			"metricsEnabled", cfg.Metrics.Enabled)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "error", err)
		}
	}()

	logger.Info("rockwatch started",
		"endpoint", cfg.Feed.Endpoint,
		"maxAttempts", cfg.Feed.MaxAttempts,
		"reconnectDelay", cfg.Feed.ReconnectDelay,
		"polling", poller != nil)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	for {
		sig := <-sigChan
		switch sig {
		case syscall.SIGHUP:
			logger.Info("received SIGHUP, ignoring")
		case syscall.SIGINT, syscall.SIGTERM:
			logger.Info("shutting down...")

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				logger.Error("failed to shutdown http server", "error", err)
			}

			stopRefresh()
			if poller != nil {
				poller.Stop()
			}
			mgr.UnsubscribeState(stateSub)
			riskPanel.Detach()
			for _, c := range charts {
				c.Detach()
			}
			mgr.Close()
			return
		}
	}
}
