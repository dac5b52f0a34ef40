package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kkkkikiki/groupbuy/internal/config"
	"github.com/kkkkikiki/groupbuy/internal/database"
	"github.com/kkkkikiki/groupbuy/internal/logger"
	"github.com/kkkkikiki/groupbuy/internal/pickup"
	"github.com/kkkkikiki/groupbuy/internal/repository"
	"github.com/kkkkikiki/groupbuy/internal/reservation"
	"github.com/kkkkikiki/groupbuy/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// A missing .env is fine; the environment may already be populated.
	_ = godotenv.Load()

	// Load configuration from environment variables
	cfg, err := config.Load(ctx)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zl, err := logger.New(logger.FromAppConfig(cfg.App))
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	zl.Info("Starting group-buy service", zap.String("environment", cfg.App.Environment))

	db, err := database.NewDB(ctx, &cfg.Database, zl)
	if err != nil {
		zl.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			zl.Warn("Error closing database connection", zap.Error(err))
		}
	}()

	campaigns := repository.NewCampaignRepository(db.SQL)
	manager := reservation.NewManager(repository.NewReservationRepository(db.SQL), campaigns, zl)
	issuer := pickup.NewCredentialIssuer(repository.NewPickupTokenRepository(db.SQL), cfg.Pickup.CredentialTTL, zl)
	pickups := pickup.NewService(campaigns, campaigns, repository.NewPickupEventRepository(db.SQL), issuer, zl)

	mux := http.NewServeMux()
	mux.Handle(service.NewReservationServiceHandler(service.NewReservationServer(manager, zl)))
	mux.Handle(service.NewPickupServiceHandler(service.NewPickupServer(pickups, zl)))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		hostname, _ := os.Hostname()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"ok","service":"groupbuy","hostname":%q}`, hostname)
	})

	mux.HandleFunc("/health/db", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := db.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprintf(w, `{"status":"error","message":"%s unavailable"}`, db.Driver)
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"ok","%s":"connected"}`, db.Driver)
	})

	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:           cfg.Server.GetServerAddr(),
		ReadTimeout:    time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout:   time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20,
		// h2c serves HTTP/2 without TLS
		Handler: h2c.NewHandler(mux, &http2.Server{
			MaxConcurrentStreams: 1000,
		}),
	}

	if interval := cfg.Reservation.SweepInterval; interval > 0 {
		go runSweeper(ctx, manager, interval, zl)
	}

	go func() {
		zl.Info("Listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zl.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zl.Error("Server forced to shutdown", zap.Error(err))
		return
	}

	zl.Info("Server exited gracefully")
}

// runSweeper reclaims expired reservations across all campaigns until ctx ends.
func runSweeper(ctx context.Context, manager *reservation.Manager, interval time.Duration, zl *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := manager.Sweep(ctx); err != nil && ctx.Err() == nil {
				zl.Warn("Reservation sweep failed", zap.Error(err))
			}
		}
	}
}
