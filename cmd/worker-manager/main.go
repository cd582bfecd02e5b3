// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"niche-finder/internal/app"
	"niche-finder/internal/common/camunda"
	"niche-finder/internal/common/config"
	"niche-finder/internal/common/logger"
	db "niche-finder/internal/workers/discovery/discover-businesses"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("config load failed", zap.Error(err))
	}

	zapLog, log := app.NewLogger(cfg.Logging)
	defer zapLog.Sync()

	zapLog.Info("Starting worker manager...")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Discovery stack: cache, pipeline, sinks, notifier ---
	stack, err := app.Build(ctx, cfg, log, app.Options{
		ServiceName:     "worker-manager",
		ConnectAttempts: 15,
		ConnectDelay:    2 * time.Second,
	})
	if err != nil {
		zapLog.Fatal("discovery stack init failed", zap.Error(err))
	}
	defer stack.Close()

	// --- Init Zeebe Client with retry ---
	var zeebe *camunda.Client
	err = app.RetryWithBackoff(ctx, func() error {
		var err error
		zeebe, err = camunda.NewClientWithConfig(&camunda.ClientConfig{
			GatewayAddress:         cfg.Camunda.BrokerAddress,
			UsePlaintextConnection: true,
			ConnectionTimeout:      config.GetDuration(cfg.Camunda.RequestTimeout),
		})
		return err
	}, 10, 2*time.Second, log, "Zeebe client initialization")
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

	handler, err := db.NewHandler(db.HandlerOptions{
		AppConfig: cfg,
		Logger:    log,
		Pipeline:  stack.Pipeline,
		Geocoder:  stack.Geocoder,
		Sink:      stack.Sinks,
		Notifier:  stack.Notifier,
	})
	if err != nil {
		zapLog.Fatal("failed to create discover-businesses handler", zap.Error(err))
	}
	handler.Register(zeebe.GetClient())

	srv := &http.Server{Addr: cfg.Metrics.Address, Handler: newMux(zeebe, log)}
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()

	zapLog.Info("Shutdown signal received, stopping workers...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	handler.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping health server", zap.Error(err))
	}
	if err := zeebe.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}

func newMux(zeebe *camunda.Client, log logger.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/debug/pprof/", http.DefaultServeMux)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, "healthy")
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := zeebe.HealthCheck(ctx); err != nil {
			log.Warn("Readiness check failed", map[string]interface{}{"error": err.Error()})
			writeStatus(w, http.StatusServiceUnavailable, "unavailable")
			return
		}
		writeStatus(w, http.StatusOK, "ready")
	})
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func writeStatus(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{
		"status": status,
		"time":   time.Now().Format(time.RFC3339),
	})
}
