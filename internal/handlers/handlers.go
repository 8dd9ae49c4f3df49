// Package handlers implements the HTTP API of the payment gateway.
package handlers

import (
	"log/slog"
	"net/http"

	"github.com/cinewave/momoflow/internal/config"
	"github.com/cinewave/momoflow/internal/middleware"
	"github.com/cinewave/momoflow/internal/service"
	"github.com/cinewave/momoflow/internal/storage"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler serves the payment endpoints
type Handler struct {
	initiator service.Initiator
	statuses  service.StatusProvider
	decider   service.Decider
	history   service.HistoryProvider
	logger    *slog.Logger
}

// NewHandler creates a Handler with injected service dependencies
func NewHandler(
	initiator service.Initiator,
	statuses service.StatusProvider,
	decider service.Decider,
	history service.HistoryProvider,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		initiator: initiator,
		statuses:  statuses,
		decider:   decider,
		history:   history,
		logger:    logger,
	}
}

// NewRouter creates and configures the HTTP router with all routes and middleware.
func NewRouter(
	svc *service.PaymentService,
	store storage.Store,
	cfg *config.Config,
	logger *slog.Logger,
) http.Handler {
	handler := NewHandler(svc, svc, svc, svc, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/payments/momo", handler.InitiatePayment)
	mux.HandleFunc("GET /api/v1/payments/momo/status/{transactionId}", handler.PaymentStatus)
	mux.HandleFunc("PATCH /api/v1/payments/{transactionId}/confirm", handler.ConfirmPayment)
	mux.HandleFunc("GET /api/v1/payments/user/{payerId}", handler.PaymentHistory)
	mux.HandleFunc("GET /health", handler.Health)
	mux.Handle("GET /metrics", promhttp.Handler())

	var finalHandler http.Handler = mux

	finalHandler = middleware.FailureInjection(&cfg.Chaos, logger)(finalHandler)
	finalHandler = middleware.Idempotency(store, logger)(finalHandler)

	return finalHandler
}
