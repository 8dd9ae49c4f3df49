// Package postgres provides the production Store backed by PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cinewave/momoflow/internal/db"
	"github.com/cinewave/momoflow/internal/models"
	"github.com/cinewave/momoflow/internal/storage"
	"github.com/google/uuid"
)

// Store implements storage.Store on top of a PostgreSQL connection pool
type Store struct {
	db *db.DB
}

// NewStore creates a postgres-backed store
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// CreateWallet registers a payer wallet
func (s *Store) CreateWallet(ctx context.Context, wallet *models.Wallet) error {
	if wallet.ID == uuid.Nil {
		wallet.ID = uuid.New()
	}

	query := `
		INSERT INTO wallets (id, phone, currency, balance, instant_limit, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
	`

	if _, err := s.db.ExecContext(ctx, query,
		wallet.ID,
		wallet.Phone,
		wallet.Currency,
		wallet.Balance,
		wallet.InstantLimit,
	); err != nil {
		return fmt.Errorf("failed to create wallet: %w", err)
	}
	return nil
}

// FindWalletByPhone retrieves a wallet by its phone number
func (s *Store) FindWalletByPhone(ctx context.Context, phone string) (*models.Wallet, error) {
	query := `
		SELECT id, phone, currency, balance, instant_limit, created_at, updated_at
		FROM wallets
		WHERE phone = $1
	`

	var wallet models.Wallet
	err := s.db.QueryRowContext(ctx, query, phone).Scan(
		&wallet.ID,
		&wallet.Phone,
		&wallet.Currency,
		&wallet.Balance,
		&wallet.InstantLimit,
		&wallet.CreatedAt,
		&wallet.UpdatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find wallet by phone: %w", err)
	}

	return &wallet, nil
}

// AdjustWalletBalance applies a signed delta to a wallet's balance
func (s *Store) AdjustWalletBalance(ctx context.Context, walletID uuid.UUID, delta int64) error {
	query := `
		UPDATE wallets
		SET balance = balance + $2, updated_at = NOW()
		WHERE id = $1
	`

	result, err := s.db.ExecContext(ctx, query, walletID, delta)
	if err != nil {
		return fmt.Errorf("failed to adjust wallet balance: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if rows == 0 {
		return models.ErrNotFound
	}
	return nil
}

// CreateTransaction stores a new transaction
func (s *Store) CreateTransaction(ctx context.Context, tx *models.Transaction) error {
	query := `
		INSERT INTO transactions (id, item_ref, kind, amount, currency, payer_phone, payer_id,
		                          status, failure_reason, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO NOTHING
	`

	result, err := s.db.ExecContext(ctx, query,
		tx.ID,
		tx.ItemRef,
		tx.Kind,
		tx.Amount,
		tx.Currency,
		tx.PayerPhone,
		tx.PayerID,
		tx.Status,
		tx.FailureReason,
		tx.CreatedAt,
		tx.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if rows == 0 {
		return models.ErrDuplicateTransaction
	}
	return nil
}

// FindTransaction retrieves a transaction by id
func (s *Store) FindTransaction(ctx context.Context, id string) (*models.Transaction, error) {
	query := `
		SELECT id, item_ref, kind, amount, currency, payer_phone, payer_id,
		       status, failure_reason, created_at, updated_at
		FROM transactions
		WHERE id = $1
	`
	return s.scanTransaction(s.db.QueryRowContext(ctx, query, id))
}

// DecideTransaction transitions a PENDING transaction to a terminal status.
// The WHERE clause makes the transition race-free: only one caller can move
// a transaction out of PENDING.
func (s *Store) DecideTransaction(ctx context.Context, id string, status models.Status, reason string) (*models.Transaction, bool, error) {
	query := `
		UPDATE transactions
		SET status = $2, failure_reason = $3, updated_at = NOW()
		WHERE id = $1 AND status = 'PENDING'
	`

	result, err := s.db.ExecContext(ctx, query, id, status, reason)
	if err != nil {
		return nil, false, fmt.Errorf("failed to decide transaction: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("failed to check affected rows: %w", err)
	}

	tx, err := s.FindTransaction(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return tx, rows > 0, nil
}

// ListTransactionsByPayer returns a payer's transactions, newest first
func (s *Store) ListTransactionsByPayer(ctx context.Context, payerID string, limit, offset int) ([]models.Transaction, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, item_ref, kind, amount, currency, payer_phone, payer_id,
		       status, failure_reason, created_at, updated_at
		FROM transactions
		WHERE payer_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := s.db.QueryContext(ctx, query, payerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close() //nolint:errcheck // rows close error is not actionable

	var transactions []models.Transaction
	for rows.Next() {
		var tx models.Transaction
		if err := rows.Scan(
			&tx.ID,
			&tx.ItemRef,
			&tx.Kind,
			&tx.Amount,
			&tx.Currency,
			&tx.PayerPhone,
			&tx.PayerID,
			&tx.Status,
			&tx.FailureReason,
			&tx.CreatedAt,
			&tx.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}

	return transactions, nil
}

// GetIdempotencyKey returns a cached response for a key and path, if any
func (s *Store) GetIdempotencyKey(ctx context.Context, key, requestPath string) (*models.IdempotencyKey, error) {
	query := `
		SELECT key, request_path, response_status, response_body, created_at
		FROM idempotency_keys
		WHERE key = $1 AND request_path = $2
	`

	var idemKey models.IdempotencyKey
	err := s.db.QueryRowContext(ctx, query, key, requestPath).Scan(
		&idemKey.Key,
		&idemKey.RequestPath,
		&idemKey.ResponseStatus,
		&idemKey.ResponseBody,
		&idemKey.CreatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get idempotency key: %w", err)
	}

	return &idemKey, nil
}

// StoreIdempotencyKey caches a response for replay
func (s *Store) StoreIdempotencyKey(ctx context.Context, idemKey *models.IdempotencyKey) error {
	if idemKey.CreatedAt.IsZero() {
		idemKey.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO idempotency_keys (key, request_path, response_status, response_body, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (key, request_path) DO NOTHING
	`

	if _, err := s.db.ExecContext(ctx, query,
		idemKey.Key,
		idemKey.RequestPath,
		idemKey.ResponseStatus,
		idemKey.ResponseBody,
		idemKey.CreatedAt,
	); err != nil {
		return fmt.Errorf("failed to store idempotency key: %w", err)
	}
	return nil
}

func (s *Store) scanTransaction(row *sql.Row) (*models.Transaction, error) {
	var tx models.Transaction
	err := row.Scan(
		&tx.ID,
		&tx.ItemRef,
		&tx.Kind,
		&tx.Amount,
		&tx.Currency,
		&tx.PayerPhone,
		&tx.PayerID,
		&tx.Status,
		&tx.FailureReason,
		&tx.CreatedAt,
		&tx.UpdatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan transaction: %w", err)
	}

	return &tx, nil
}

// Compile-time check: Store implements storage.Store
var _ storage.Store = (*Store)(nil)
