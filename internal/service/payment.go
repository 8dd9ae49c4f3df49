// Package service implements the gateway-side payment business logic,
// including the simulated payer-approval step.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cinewave/momoflow/internal/config"
	"github.com/cinewave/momoflow/internal/events"
	"github.com/cinewave/momoflow/internal/metrics"
	"github.com/cinewave/momoflow/internal/models"
	"github.com/cinewave/momoflow/internal/momo"
	"github.com/cinewave/momoflow/internal/storage"
	"github.com/jaevor/go-nanoid"
)

const insufficientFundsReason = "insufficient funds"

// PaymentService handles payment initiation, status queries, and terminal
// decisions. Payments within the wallet's instant-approval limit are
// confirmed synchronously; larger ones stay PENDING until the simulated (or
// manual) payer approval decides them.
type PaymentService struct {
	store     storage.Store
	publisher events.Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
	newID     func() string

	approvalMode  config.ApprovalMode
	approvalDelay time.Duration

	done      chan struct{}
	closeOnce sync.Once
}

// InitiateParams carries one purchase request
type InitiateParams struct {
	ItemRef  string
	Kind     models.PurchaseKind
	Currency string
	Phone    string
	PayerID  string
	Amount   int64
}

// NewPaymentService creates a PaymentService. metrics may be nil in tests.
func NewPaymentService(
	store storage.Store,
	publisher events.Publisher,
	m *metrics.Metrics,
	logger *slog.Logger,
	approval config.ApprovalConfig,
) (*PaymentService, error) {
	idGenerator, err := nanoid.Standard(21)
	if err != nil {
		return nil, fmt.Errorf("failed to create id generator: %w", err)
	}
	if publisher == nil {
		publisher = events.Noop{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &PaymentService{
		store:         store,
		publisher:     publisher,
		metrics:       m,
		logger:        logger,
		newID:         idGenerator,
		approvalMode:  approval.Mode,
		approvalDelay: approval.Delay,
		done:          make(chan struct{}),
	}, nil
}

// Close stops any scheduled approval decisions
func (s *PaymentService) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// Initiate validates the request and creates a transaction. The returned
// transaction is SUCCESSFUL when the gateway confirmed synchronously,
// otherwise PENDING.
func (s *PaymentService) Initiate(ctx context.Context, params InitiateParams) (*models.Transaction, error) {
	if err := s.validateInitiation(params); err != nil {
		return nil, err
	}

	phone := momo.NormalizePhone(params.Phone)
	wallet, err := s.store.FindWalletByPhone(ctx, phone)
	if errors.Is(err, models.ErrNotFound) {
		return nil, &ServiceError{
			Code:    ErrCodeWalletNotFound,
			Message: "phone number is not registered for mobile money",
		}
	}
	if err != nil {
		return nil, s.internalError("failed to look up wallet", err)
	}

	now := time.Now()
	tx := &models.Transaction{
		ID:         s.newID(),
		ItemRef:    params.ItemRef,
		Kind:       params.Kind,
		Amount:     params.Amount,
		Currency:   params.Currency,
		PayerPhone: phone,
		PayerID:    params.PayerID,
		Status:     models.StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	instant := params.Amount <= wallet.InstantLimit && wallet.Balance >= params.Amount
	if instant {
		tx.Status = models.StatusSuccessful
	}

	if err := s.store.CreateTransaction(ctx, tx); err != nil {
		return nil, s.internalError("failed to create transaction", err)
	}

	if instant {
		if err := s.store.AdjustWalletBalance(ctx, wallet.ID, -params.Amount); err != nil {
			return nil, s.internalError("failed to debit wallet", err)
		}
		s.countInitiated(tx.Kind, "instant")
		s.recordDecision(ctx, tx)
		s.logger.Info("payment confirmed instantly",
			"transaction_id", tx.ID,
			"amount", tx.Amount,
			"currency", tx.Currency,
		)
		return tx, nil
	}

	s.countInitiated(tx.Kind, "pending")
	s.logger.Info("payment pending payer approval",
		"transaction_id", tx.ID,
		"amount", tx.Amount,
		"approval_mode", s.approvalMode,
	)

	if s.approvalMode == config.ApprovalModeAuto {
		s.scheduleApproval(tx.ID)
	}

	return tx, nil
}

// Status returns the transaction for one poll query
func (s *PaymentService) Status(ctx context.Context, id string) (*models.Transaction, error) {
	if s.metrics != nil {
		s.metrics.StatusQueriesTotal.Inc()
	}

	tx, err := s.store.FindTransaction(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		return nil, &ServiceError{
			Code:    ErrCodeTransactionNotFound,
			Message: "transaction not found",
		}
	}
	if err != nil {
		return nil, s.internalError("failed to find transaction", err)
	}
	return tx, nil
}

// Decide applies a manual terminal decision to a pending payment
func (s *PaymentService) Decide(ctx context.Context, id string, status models.Status, reason string) (*models.Transaction, error) {
	if status != models.StatusSuccessful && status != models.StatusFailed {
		return nil, &ServiceError{
			Code:    ErrCodeInvalidStatus,
			Message: "status must be SUCCESSFUL or FAILED",
		}
	}

	tx, err := s.store.FindTransaction(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		return nil, &ServiceError{
			Code:    ErrCodeTransactionNotFound,
			Message: "transaction not found",
		}
	}
	if err != nil {
		return nil, s.internalError("failed to find transaction", err)
	}

	if tx.Status.Terminal() {
		return nil, &ServiceError{
			Code:    ErrCodeAlreadyDecided,
			Message: fmt.Sprintf("transaction already decided: %s", tx.Status),
		}
	}

	if status == models.StatusSuccessful {
		wallet, err := s.store.FindWalletByPhone(ctx, tx.PayerPhone)
		if err != nil {
			return nil, s.internalError("failed to look up wallet", err)
		}
		if wallet.Balance < tx.Amount {
			return nil, &ServiceError{
				Code:    ErrCodeInsufficientFunds,
				Message: insufficientFundsReason,
			}
		}
		if err := s.store.AdjustWalletBalance(ctx, wallet.ID, -tx.Amount); err != nil {
			return nil, s.internalError("failed to debit wallet", err)
		}
	}

	decided, changed, err := s.store.DecideTransaction(ctx, id, status, reason)
	if err != nil {
		return nil, s.internalError("failed to decide transaction", err)
	}
	if changed {
		s.recordDecision(ctx, decided)
	}
	return decided, nil
}

// History lists a payer's transactions, newest first
func (s *PaymentService) History(ctx context.Context, payerID string, limit, offset int) ([]models.Transaction, error) {
	transactions, err := s.store.ListTransactionsByPayer(ctx, payerID, limit, offset)
	if err != nil {
		return nil, s.internalError("failed to list transactions", err)
	}
	return transactions, nil
}

// scheduleApproval arranges the simulated payer decision for a pending
// payment. The payer approves when the wallet covers the amount, otherwise
// the charge is declined.
func (s *PaymentService) scheduleApproval(txID string) {
	time.AfterFunc(s.approvalDelay, func() {
		select {
		case <-s.done:
			return
		default:
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.approvePending(ctx, txID); err != nil {
			s.logger.Error("simulated approval failed", "transaction_id", txID, "error", err)
		}
	})
}

func (s *PaymentService) approvePending(ctx context.Context, txID string) error {
	tx, err := s.store.FindTransaction(ctx, txID)
	if err != nil {
		return err
	}
	if tx.Status.Terminal() {
		return nil
	}

	status := models.StatusSuccessful
	reason := ""

	wallet, err := s.store.FindWalletByPhone(ctx, tx.PayerPhone)
	if err != nil {
		return err
	}
	if wallet.Balance < tx.Amount {
		status = models.StatusFailed
		reason = insufficientFundsReason
	} else if err := s.store.AdjustWalletBalance(ctx, wallet.ID, -tx.Amount); err != nil {
		return err
	}

	decided, changed, err := s.store.DecideTransaction(ctx, txID, status, reason)
	if err != nil {
		return err
	}
	if changed {
		s.recordDecision(ctx, decided)
		s.logger.Info("simulated payer decision applied",
			"transaction_id", txID,
			"status", status,
		)
	}
	return nil
}

// recordDecision fires the per-decision side effects: metrics and the
// downstream event. Callers invoke it at most once per transaction.
func (s *PaymentService) recordDecision(ctx context.Context, tx *models.Transaction) {
	if s.metrics != nil {
		s.metrics.PaymentsDecidedTotal.WithLabelValues(string(tx.Kind), string(tx.Status)).Inc()
		s.metrics.DecisionDuration.Observe(time.Since(tx.CreatedAt).Seconds())
	}

	event := events.PaymentDecided{
		TransactionID: tx.ID,
		ItemRef:       tx.ItemRef,
		Kind:          tx.Kind,
		Amount:        tx.Amount,
		Currency:      tx.Currency,
		PayerID:       tx.PayerID,
		Status:        tx.Status,
		Reason:        tx.FailureReason,
		DecidedAt:     time.Now(),
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("failed to publish payment event",
			"transaction_id", tx.ID,
			"error", err,
		)
	}
}

func (s *PaymentService) countInitiated(kind models.PurchaseKind, outcome string) {
	if s.metrics != nil {
		s.metrics.PaymentsInitiatedTotal.WithLabelValues(string(kind), outcome).Inc()
	}
}

func (s *PaymentService) validateInitiation(params InitiateParams) error {
	if err := momo.ValidatePhone(params.Phone); err != nil {
		return &ServiceError{Code: ErrCodeInvalidPhone, Message: err.Error()}
	}
	if err := momo.ValidateAmount(params.Amount); err != nil {
		return &ServiceError{Code: ErrCodeInvalidAmount, Message: err.Error()}
	}
	if err := momo.ValidateKind(params.Kind); err != nil {
		return &ServiceError{Code: ErrCodeInvalidKind, Message: err.Error()}
	}
	return nil
}

func (s *PaymentService) internalError(message string, err error) error {
	s.logger.Error(message, "error", err)
	return &ServiceError{
		Code:    ErrCodeInternalError,
		Message: message,
		Err:     err,
	}
}
