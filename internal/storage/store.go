// Package storage defines the persistence interface for the gateway and its
// implementations.
package storage

import (
	"context"

	"github.com/cinewave/momoflow/internal/models"
	"github.com/google/uuid"
)

// Store is the gateway's persistence boundary. DecideTransaction performs
// the one allowed status transition (PENDING to a terminal status)
// atomically: the returned bool reports whether this call made the
// transition, so callers can fire exactly-once side effects. Deciding an
// already-terminal transaction is a no-op that returns the stored row.
type Store interface {
	CreateWallet(ctx context.Context, wallet *models.Wallet) error
	FindWalletByPhone(ctx context.Context, phone string) (*models.Wallet, error)
	AdjustWalletBalance(ctx context.Context, walletID uuid.UUID, delta int64) error

	CreateTransaction(ctx context.Context, tx *models.Transaction) error
	FindTransaction(ctx context.Context, id string) (*models.Transaction, error)
	DecideTransaction(ctx context.Context, id string, status models.Status, reason string) (*models.Transaction, bool, error)
	ListTransactionsByPayer(ctx context.Context, payerID string, limit, offset int) ([]models.Transaction, error)

	GetIdempotencyKey(ctx context.Context, key, requestPath string) (*models.IdempotencyKey, error)
	StoreIdempotencyKey(ctx context.Context, idemKey *models.IdempotencyKey) error
}
