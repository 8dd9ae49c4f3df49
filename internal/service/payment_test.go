package service

import (
	"context"
	"testing"
	"time"

	"github.com/cinewave/momoflow/internal/config"
	"github.com/cinewave/momoflow/internal/events"
	"github.com/cinewave/momoflow/internal/models"
	"github.com/cinewave/momoflow/internal/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type serviceFixture struct {
	svc      *PaymentService
	store    *memory.Store
	recorder *events.Recorder
}

func newFixture(t *testing.T, approval config.ApprovalConfig) *serviceFixture {
	t.Helper()

	store := memory.NewStore()
	recorder := &events.Recorder{}
	svc, err := NewPaymentService(store, recorder, nil, nil, approval)
	require.NoError(t, err)
	t.Cleanup(svc.Close)

	return &serviceFixture{svc: svc, store: store, recorder: recorder}
}

func (f *serviceFixture) seedWallet(t *testing.T, phone string, balance, instantLimit int64) *models.Wallet {
	t.Helper()
	wallet := &models.Wallet{Phone: phone, Currency: "RWF", Balance: balance, InstantLimit: instantLimit}
	require.NoError(t, f.store.CreateWallet(context.Background(), wallet))
	return wallet
}

func manualApproval() config.ApprovalConfig {
	return config.ApprovalConfig{Mode: config.ApprovalModeManual}
}

func initiateParams(phone string) InitiateParams {
	return InitiateParams{
		ItemRef:  "movie-42",
		Kind:     models.PurchaseKindWatch,
		Amount:   500,
		Currency: "RWF",
		Phone:    phone,
		PayerID:  "payer-1",
	}
}

func requireServiceError(t *testing.T, err error, code string) *ServiceError {
	t.Helper()
	var svcErr *ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, code, svcErr.Code)
	return svcErr
}

func TestPaymentService_Initiate(t *testing.T) {
	ctx := context.Background()

	t.Run("instant success within the wallet limit", func(t *testing.T) {
		f := newFixture(t, manualApproval())
		wallet := f.seedWallet(t, "0788123456", 10000, 1000)

		tx, err := f.svc.Initiate(ctx, initiateParams("0788123456"))
		require.NoError(t, err)
		assert.Equal(t, models.StatusSuccessful, tx.Status)
		assert.NotEmpty(t, tx.ID)

		updated, err := f.store.FindWalletByPhone(ctx, wallet.Phone)
		require.NoError(t, err)
		assert.Equal(t, int64(9500), updated.Balance, "instant success debits the wallet")

		published := f.recorder.Events()
		require.Len(t, published, 1)
		assert.Equal(t, tx.ID, published[0].TransactionID)
		assert.Equal(t, models.StatusSuccessful, published[0].Status)
	})

	t.Run("above the instant limit stays pending", func(t *testing.T) {
		f := newFixture(t, manualApproval())
		f.seedWallet(t, "0788123456", 10000, 100)

		tx, err := f.svc.Initiate(ctx, initiateParams("0788123456"))
		require.NoError(t, err)
		assert.Equal(t, models.StatusPending, tx.Status)

		updated, err := f.store.FindWalletByPhone(ctx, "0788123456")
		require.NoError(t, err)
		assert.Equal(t, int64(10000), updated.Balance, "pending payments never debit upfront")
		assert.Empty(t, f.recorder.Events(), "no decision event for a pending payment")
	})

	t.Run("normalizes the phone before lookup", func(t *testing.T) {
		f := newFixture(t, manualApproval())
		f.seedWallet(t, "0788123456", 10000, 1000)

		tx, err := f.svc.Initiate(ctx, initiateParams("078 812 3456"))
		require.NoError(t, err)
		assert.Equal(t, "0788123456", tx.PayerPhone)
	})

	t.Run("unknown wallet", func(t *testing.T) {
		f := newFixture(t, manualApproval())
		_, err := f.svc.Initiate(ctx, initiateParams("0788999999"))
		requireServiceError(t, err, ErrCodeWalletNotFound)
	})

	t.Run("invalid input", func(t *testing.T) {
		f := newFixture(t, manualApproval())
		f.seedWallet(t, "0788123456", 10000, 1000)

		params := initiateParams("123")
		_, err := f.svc.Initiate(ctx, params)
		requireServiceError(t, err, ErrCodeInvalidPhone)

		params = initiateParams("0788123456")
		params.Amount = 0
		_, err = f.svc.Initiate(ctx, params)
		requireServiceError(t, err, ErrCodeInvalidAmount)

		params = initiateParams("0788123456")
		params.Kind = "RENT"
		_, err = f.svc.Initiate(ctx, params)
		requireServiceError(t, err, ErrCodeInvalidKind)
	})
}

func TestPaymentService_AutoApproval(t *testing.T) {
	ctx := context.Background()
	auto := config.ApprovalConfig{Mode: config.ApprovalModeAuto, Delay: 10 * time.Millisecond}

	t.Run("funded wallet approves after the delay", func(t *testing.T) {
		f := newFixture(t, auto)
		f.seedWallet(t, "0788123456", 10000, 0)

		tx, err := f.svc.Initiate(ctx, initiateParams("0788123456"))
		require.NoError(t, err)
		require.Equal(t, models.StatusPending, tx.Status)

		require.Eventually(t, func() bool {
			found, err := f.store.FindTransaction(ctx, tx.ID)
			return err == nil && found.Status == models.StatusSuccessful
		}, time.Second, 5*time.Millisecond)

		wallet, err := f.store.FindWalletByPhone(ctx, "0788123456")
		require.NoError(t, err)
		assert.Equal(t, int64(9500), wallet.Balance)

		published := f.recorder.Events()
		require.Len(t, published, 1)
		assert.Equal(t, models.StatusSuccessful, published[0].Status)
	})

	t.Run("unfunded wallet declines", func(t *testing.T) {
		f := newFixture(t, auto)
		f.seedWallet(t, "0788123456", 100, 0)

		tx, err := f.svc.Initiate(ctx, initiateParams("0788123456"))
		require.NoError(t, err)

		require.Eventually(t, func() bool {
			found, err := f.store.FindTransaction(ctx, tx.ID)
			return err == nil && found.Status == models.StatusFailed
		}, time.Second, 5*time.Millisecond)

		found, err := f.store.FindTransaction(ctx, tx.ID)
		require.NoError(t, err)
		assert.Equal(t, "insufficient funds", found.FailureReason)

		wallet, err := f.store.FindWalletByPhone(ctx, "0788123456")
		require.NoError(t, err)
		assert.Equal(t, int64(100), wallet.Balance, "declined payments never debit")
	})
}

func TestPaymentService_Decide(t *testing.T) {
	ctx := context.Background()

	pendingTx := func(t *testing.T, f *serviceFixture) *models.Transaction {
		t.Helper()
		tx, err := f.svc.Initiate(ctx, initiateParams("0788123456"))
		require.NoError(t, err)
		require.Equal(t, models.StatusPending, tx.Status)
		return tx
	}

	t.Run("manual approval debits and publishes once", func(t *testing.T) {
		f := newFixture(t, manualApproval())
		f.seedWallet(t, "0788123456", 10000, 0)
		tx := pendingTx(t, f)

		decided, err := f.svc.Decide(ctx, tx.ID, models.StatusSuccessful, "")
		require.NoError(t, err)
		assert.Equal(t, models.StatusSuccessful, decided.Status)

		wallet, err := f.store.FindWalletByPhone(ctx, "0788123456")
		require.NoError(t, err)
		assert.Equal(t, int64(9500), wallet.Balance)
		assert.Len(t, f.recorder.Events(), 1)
	})

	t.Run("manual decline keeps the balance", func(t *testing.T) {
		f := newFixture(t, manualApproval())
		f.seedWallet(t, "0788123456", 10000, 0)
		tx := pendingTx(t, f)

		decided, err := f.svc.Decide(ctx, tx.ID, models.StatusFailed, "payer declined")
		require.NoError(t, err)
		assert.Equal(t, "payer declined", decided.FailureReason)

		wallet, err := f.store.FindWalletByPhone(ctx, "0788123456")
		require.NoError(t, err)
		assert.Equal(t, int64(10000), wallet.Balance)
	})

	t.Run("already decided", func(t *testing.T) {
		f := newFixture(t, manualApproval())
		f.seedWallet(t, "0788123456", 10000, 0)
		tx := pendingTx(t, f)

		_, err := f.svc.Decide(ctx, tx.ID, models.StatusFailed, "first")
		require.NoError(t, err)

		_, err = f.svc.Decide(ctx, tx.ID, models.StatusSuccessful, "")
		requireServiceError(t, err, ErrCodeAlreadyDecided)
		assert.Len(t, f.recorder.Events(), 1, "only the first decision publishes an event")
	})

	t.Run("insufficient funds blocks approval", func(t *testing.T) {
		f := newFixture(t, manualApproval())
		f.seedWallet(t, "0788123456", 100, 0)
		tx := pendingTx(t, f)

		_, err := f.svc.Decide(ctx, tx.ID, models.StatusSuccessful, "")
		requireServiceError(t, err, ErrCodeInsufficientFunds)

		found, err := f.store.FindTransaction(ctx, tx.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusPending, found.Status, "a blocked approval leaves the payment pending")
	})

	t.Run("rejects non-terminal statuses", func(t *testing.T) {
		f := newFixture(t, manualApproval())
		_, err := f.svc.Decide(ctx, "tx1", models.StatusPending, "")
		requireServiceError(t, err, ErrCodeInvalidStatus)

		_, err = f.svc.Decide(ctx, "tx1", models.StatusTimeout, "")
		requireServiceError(t, err, ErrCodeInvalidStatus)
	})

	t.Run("unknown transaction", func(t *testing.T) {
		f := newFixture(t, manualApproval())
		_, err := f.svc.Decide(ctx, "missing", models.StatusFailed, "")
		requireServiceError(t, err, ErrCodeTransactionNotFound)
	})
}

func TestPaymentService_Status(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, manualApproval())
	f.seedWallet(t, "0788123456", 10000, 1000)

	tx, err := f.svc.Initiate(ctx, initiateParams("0788123456"))
	require.NoError(t, err)

	found, err := f.svc.Status(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, tx.ID, found.ID)

	_, err = f.svc.Status(ctx, "missing")
	requireServiceError(t, err, ErrCodeTransactionNotFound)
}

func TestPaymentService_History(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, manualApproval())
	f.seedWallet(t, "0788123456", 100000, 100000)

	var ids []string
	for range 3 {
		tx, err := f.svc.Initiate(ctx, initiateParams("0788123456"))
		require.NoError(t, err)
		ids = append(ids, tx.ID)
	}

	list, err := f.svc.History(ctx, "payer-1", 0, 0)
	require.NoError(t, err)
	assert.Len(t, list, 3)
	for _, tx := range list {
		assert.Contains(t, ids, tx.ID)
	}

	list, err = f.svc.History(ctx, "nobody", 0, 0)
	require.NoError(t, err)
	assert.Empty(t, list)
}
