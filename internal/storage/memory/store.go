// Package memory provides an in-memory Store used by tests and by the
// gateway when no database is configured.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cinewave/momoflow/internal/models"
	"github.com/cinewave/momoflow/internal/storage"
	"github.com/google/uuid"
)

// Store is a mutex-guarded in-memory implementation of storage.Store
type Store struct {
	mu           sync.Mutex
	wallets      map[uuid.UUID]*models.Wallet
	walletPhones map[string]uuid.UUID
	transactions map[string]*models.Transaction
	idempotency  map[string]*models.IdempotencyKey
}

// NewStore creates an empty in-memory store
func NewStore() *Store {
	return &Store{
		wallets:      make(map[uuid.UUID]*models.Wallet),
		walletPhones: make(map[string]uuid.UUID),
		transactions: make(map[string]*models.Transaction),
		idempotency:  make(map[string]*models.IdempotencyKey),
	}
}

// CreateWallet registers a payer wallet
func (s *Store) CreateWallet(_ context.Context, wallet *models.Wallet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if wallet.ID == uuid.Nil {
		wallet.ID = uuid.New()
	}
	if wallet.CreatedAt.IsZero() {
		wallet.CreatedAt = time.Now()
	}
	wallet.UpdatedAt = wallet.CreatedAt

	stored := *wallet
	s.wallets[wallet.ID] = &stored
	s.walletPhones[wallet.Phone] = wallet.ID
	return nil
}

// FindWalletByPhone looks a wallet up by its phone number
func (s *Store) FindWalletByPhone(_ context.Context, phone string) (*models.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.walletPhones[phone]
	if !ok {
		return nil, models.ErrNotFound
	}
	walletCopy := *s.wallets[id]
	return &walletCopy, nil
}

// AdjustWalletBalance applies a signed delta to a wallet's balance
func (s *Store) AdjustWalletBalance(_ context.Context, walletID uuid.UUID, delta int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	wallet, ok := s.wallets[walletID]
	if !ok {
		return models.ErrNotFound
	}
	wallet.Balance += delta
	wallet.UpdatedAt = time.Now()
	return nil
}

// CreateTransaction stores a new transaction, rejecting duplicate ids
func (s *Store) CreateTransaction(_ context.Context, tx *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.transactions[tx.ID]; exists {
		return models.ErrDuplicateTransaction
	}
	stored := *tx
	s.transactions[tx.ID] = &stored
	return nil
}

// FindTransaction returns a transaction by id
func (s *Store) FindTransaction(_ context.Context, id string) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.transactions[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	txCopy := *tx
	return &txCopy, nil
}

// DecideTransaction transitions a PENDING transaction to a terminal status.
// Already-terminal transactions are returned unchanged with decided=false.
func (s *Store) DecideTransaction(_ context.Context, id string, status models.Status, reason string) (*models.Transaction, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.transactions[id]
	if !ok {
		return nil, false, models.ErrNotFound
	}
	if tx.Status.Terminal() {
		txCopy := *tx
		return &txCopy, false, nil
	}

	tx.Status = status
	tx.FailureReason = reason
	tx.UpdatedAt = time.Now()

	txCopy := *tx
	return &txCopy, true, nil
}

// ListTransactionsByPayer returns a payer's transactions, newest first
func (s *Store) ListTransactionsByPayer(_ context.Context, payerID string, limit, offset int) ([]models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []models.Transaction
	for _, tx := range s.transactions {
		if tx.PayerID == payerID {
			result = append(result, *tx)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	if offset >= len(result) {
		return nil, nil
	}
	result = result[offset:]
	if limit > 0 && limit < len(result) {
		result = result[:limit]
	}
	return result, nil
}

// GetIdempotencyKey returns a cached response for a key and path, if any
func (s *Store) GetIdempotencyKey(_ context.Context, key, requestPath string) (*models.IdempotencyKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idemKey, ok := s.idempotency[key+"\x00"+requestPath]
	if !ok {
		return nil, nil
	}
	keyCopy := *idemKey
	return &keyCopy, nil
}

// StoreIdempotencyKey caches a response for replay
func (s *Store) StoreIdempotencyKey(_ context.Context, idemKey *models.IdempotencyKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *idemKey
	s.idempotency[idemKey.Key+"\x00"+idemKey.RequestPath] = &stored
	return nil
}

// Compile-time check: Store implements storage.Store
var _ storage.Store = (*Store)(nil)
