package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cinewave/momoflow/internal/config"
	"github.com/cinewave/momoflow/internal/db"
	"github.com/cinewave/momoflow/internal/events"
	kafkaevents "github.com/cinewave/momoflow/internal/events/kafka"
	"github.com/cinewave/momoflow/internal/handlers"
	"github.com/cinewave/momoflow/internal/metrics"
	"github.com/cinewave/momoflow/internal/models"
	"github.com/cinewave/momoflow/internal/service"
	"github.com/cinewave/momoflow/internal/storage"
	"github.com/cinewave/momoflow/internal/storage/memory"
	"github.com/cinewave/momoflow/internal/storage/postgres"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load() //nolint:errcheck // .env is optional

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := cfg.Logger.NewLogger()
	slog.SetDefault(logger)

	logger.Info("starting momo gateway",
		"port", cfg.Server.Port,
		"storage", cfg.Storage.Driver,
		"approval_mode", cfg.Approval.Mode,
		"log_level", cfg.Logger.Level,
	)

	ctx := context.Background()

	var store storage.Store
	switch cfg.Storage.Driver {
	case "postgres":
		database, err := db.Connect(ctx, &cfg.Database, logger)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer database.Close() //nolint:errcheck // close error is logged by the wrapper
		store = postgres.NewStore(database)
	default:
		memStore := memory.NewStore()
		seedWallets(ctx, memStore, logger)
		store = memStore
	}

	var publisher events.Publisher = events.Noop{}
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaPublisher := kafkaevents.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer kafkaPublisher.Close() //nolint:errcheck // best effort close on shutdown
		publisher = kafkaPublisher
		logger.Info("publishing payment events", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	}

	svc, err := service.NewPaymentService(store, publisher, metrics.New(), logger, cfg.Approval)
	if err != nil {
		logger.Error("failed to create payment service", "error", err)
		os.Exit(1)
	}
	defer svc.Close()

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handlers.NewRouter(svc, store, cfg, logger),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("server listening", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	logger.Info("server stopped")
}

// seedWallets loads demo wallets so the in-memory gateway is usable out of
// the box: one payer with instant approval headroom, one who must approve
// on their handset, and one with an empty wallet.
func seedWallets(ctx context.Context, store storage.Store, logger *slog.Logger) {
	wallets := []models.Wallet{
		{Phone: "0788123456", Currency: "RWF", Balance: 100000, InstantLimit: 1000},
		{Phone: "0788000001", Currency: "RWF", Balance: 50000, InstantLimit: 0},
		{Phone: "0788999999", Currency: "RWF", Balance: 0, InstantLimit: 0},
	}

	for i := range wallets {
		if err := store.CreateWallet(ctx, &wallets[i]); err != nil {
			logger.Error("failed to seed wallet", "phone", wallets[i].Phone, "error", err)
			continue
		}
		logger.Debug("seeded wallet", "phone", wallets[i].Phone, "balance", wallets[i].Balance)
	}
}
