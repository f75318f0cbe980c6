package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"rockwatch/config"
	"rockwatch/internal/logger"
	"rockwatch/internal/metrics"
	"rockwatch/internal/sim"
)

func main() {
	configPath := flag.String("config", "config/config.json", "path to config file")

	// Optional override flags
	addrOverride := flag.String("addr", "", "override listen address (empty = use config)")
	seedOverride := flag.Int64("seed", 0, "override sensor RNG seed (0 = use config)")

	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if *addrOverride != "" {
		cfg.Sim.Address = *addrOverride
	}
	if *seedOverride != 0 {
		cfg.Sim.Seed = *seedOverride
	}

	logger, err := logger.NewLogger(&cfg.Logging)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}

	var metricsService *metrics.Metrics
	reg := prometheus.NewRegistry()
	if cfg.Metrics.Enabled {
		metricsService, err = metrics.NewMetrics(reg)
		if err != nil {
			logger.Fatal("failed to create metrics service", "error", err)
		}
	}

	// Durations were validated at load time
	sampleInterval, _ := time.ParseDuration(cfg.Sim.SampleInterval)
	triggerDuration, _ := time.ParseDuration(cfg.Sim.TriggerDuration)

	backend := sim.NewServer(sim.Config{
		SampleInterval:  sampleInterval,
		TriggerDuration: triggerDuration,
		TriggerRate:     rate.Limit(cfg.Sim.TriggerRate),
		TriggerBurst:    cfg.Sim.TriggerBurst,
		Seed:            cfg.Sim.Seed,
	}, logger, metricsService)

	server := &http.Server{
		Addr:    cfg.Sim.Address,
		Handler: backend.Handler(),
	}
	go func() {
		logger.Info("starting simulated backend",
			"address", cfg.Sim.Address,
			"sampleInterval", cfg.Sim.SampleInterval,
			"triggerDuration", cfg.Sim.TriggerDuration)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("backend server error", "error", err)
		}
	}()

	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle(cfg.Metrics.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{
			Registry:          reg,
			EnableOpenMetrics: true,
		}))
		metricsServer = &http.Server{
			Addr:    cfg.Metrics.Address,
			Handler: mux,
		}
		go func() {
			logger.Info("starting metrics server",
				"address", cfg.Metrics.Address,
				"path", cfg.Metrics.Path)
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server error", "error", err)
			}
		}()
	}

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
			if metricsServer != nil {
				if err := metricsServer.Shutdown(shutdownCtx); err != nil {
					logger.Error("failed to shutdown metrics server", "error", err)
				}
			}
			if err := server.Shutdown(shutdownCtx); err != nil {
				logger.Error("failed to shutdown backend server", "error", err)
			}
			return
		}
	}
}
