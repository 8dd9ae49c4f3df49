package service

import (
	"context"

	"github.com/cinewave/momoflow/internal/models"
)

// Initiator starts payment attempts
type Initiator interface {
	Initiate(ctx context.Context, params InitiateParams) (*models.Transaction, error)
}

// StatusProvider answers poll queries
type StatusProvider interface {
	Status(ctx context.Context, id string) (*models.Transaction, error)
}

// Decider applies a manual terminal decision to a pending payment
type Decider interface {
	Decide(ctx context.Context, id string, status models.Status, reason string) (*models.Transaction, error)
}

// HistoryProvider lists a payer's past transactions
type HistoryProvider interface {
	History(ctx context.Context, payerID string, limit, offset int) ([]models.Transaction, error)
}

// Ensure the concrete type implements the interfaces
var (
	_ Initiator       = (*PaymentService)(nil)
	_ StatusProvider  = (*PaymentService)(nil)
	_ Decider         = (*PaymentService)(nil)
	_ HistoryProvider = (*PaymentService)(nil)
)
