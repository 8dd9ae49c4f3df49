package flow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/cinewave/momoflow/internal/models"
	"github.com/cinewave/momoflow/internal/momo"
)

// Step is the user-visible stage of the purchase flow
type Step string

const (
	StepIdle       Step = "IDLE"
	StepInitiating Step = "INITIATING"
	StepVerifying  Step = "VERIFYING"
	StepSuccess    Step = "SUCCESS"
	StepFailed     Step = "FAILED"
	StepTimeout    Step = "TIMEOUT"
)

// Terminal reports whether the step ends a transaction's lifecycle
func (s Step) Terminal() bool {
	return s == StepSuccess || s == StepFailed || s == StepTimeout
}

// ErrSuperseded is returned from Submit when the attempt was abandoned by a
// concurrent Cancel, Retry, or newer Submit before the gateway answered.
var ErrSuperseded = errors.New("payment attempt superseded")

// View is the read-only snapshot exposed to the presentation layer
type View struct {
	Transaction     *models.Transaction
	Step            Step
	LastMessage     string
	LastError       string
	PollAttempt     int
	MaxPollAttempts int
}

// Options tunes a Machine. Zero values fall back to the defaults above.
type Options struct {
	Logger          *slog.Logger
	OnSuccess       func(models.Transaction)
	PollInterval    time.Duration
	MaxPollAttempts int
	MaxPollFailures int
}

// Machine is the authority over one purchase flow. It merges signals from
// the status poller and the push listener into a single monotonic
// lifecycle: the first terminal signal for the current transaction wins and
// every later signal for it is a no-op.
type Machine struct {
	gateway   Gateway
	board     *StatusBoard
	logger    *slog.Logger
	onSuccess func(models.Transaction)

	pollInterval    time.Duration
	maxPollAttempts int
	maxPollFailures int

	mu          sync.Mutex
	step        Step
	tx          *models.Transaction
	pollAttempt int
	lastMessage string
	lastError   string
	cancelWatch context.CancelFunc
	epoch       uint64
}

// NewMachine creates a machine in the IDLE step. board may be nil when no
// push channel exists; the flow then relies on polling alone.
func NewMachine(gateway Gateway, board *StatusBoard, opts Options) *Machine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	m := &Machine{
		gateway:         gateway,
		board:           board,
		logger:          logger,
		onSuccess:       opts.OnSuccess,
		pollInterval:    opts.PollInterval,
		maxPollAttempts: opts.MaxPollAttempts,
		maxPollFailures: opts.MaxPollFailures,
		step:            StepIdle,
	}
	if m.pollInterval <= 0 {
		m.pollInterval = DefaultPollInterval
	}
	if m.maxPollAttempts <= 0 {
		m.maxPollAttempts = DefaultMaxPollAttempts
	}
	if m.maxPollFailures <= 0 {
		m.maxPollFailures = DefaultMaxPollFailures
	}
	return m
}

// Submit starts a new purchase attempt. Invalid input keeps the machine in
// IDLE and returns *models.ValidationError without touching the network; a
// rejected initiation returns *models.InitiationError and the machine goes
// back to IDLE. A PENDING answer moves to VERIFYING and starts both the
// poller and the push listener; a synchronous SUCCESSFUL answer goes
// straight to SUCCESS.
//
// Submitting while a previous attempt is verifying abandons that attempt
// first: its poller is cancelled synchronously and a fresh transaction id is
// obtained for the new one.
func (m *Machine) Submit(ctx context.Context, in momo.InitiateInput) error {
	m.mu.Lock()

	if err := validateInput(in); err != nil {
		m.lastError = err.Error()
		m.mu.Unlock()
		return err
	}

	m.cancelWatchLocked()
	m.epoch++
	epoch := m.epoch
	m.step = StepInitiating
	m.tx = nil
	m.pollAttempt = 0
	m.lastError = ""
	m.lastMessage = "Sending payment request..."
	m.mu.Unlock()

	out, err := m.gateway.Initiate(ctx, in)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.epoch != epoch {
		return ErrSuperseded
	}

	if err != nil {
		m.step = StepIdle
		m.lastError = userMessage(err)
		m.logger.Warn("payment initiation failed", "error", err)
		return err
	}

	now := time.Now()
	tx := &models.Transaction{
		ID:         out.ID,
		ItemRef:    in.ItemRef,
		Kind:       in.Kind,
		Amount:     in.Amount,
		Currency:   in.Currency,
		PayerPhone: momo.NormalizePhone(in.PayerPhone),
		PayerID:    in.PayerID,
		Status:     models.StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	m.tx = tx

	if out.Status == models.StatusSuccessful {
		tx.Status = models.StatusSuccessful
		m.step = StepSuccess
		m.lastMessage = "Payment confirmed."
		m.logger.Info("payment confirmed synchronously", "transaction_id", tx.ID)
		m.notifyLocked(*tx)
		return nil
	}

	m.step = StepVerifying
	m.lastMessage = "Payment request sent. Approve the charge on your phone."
	m.logger.Info("payment pending verification", "transaction_id", tx.ID)
	m.startVerificationLocked(tx.ID)
	return nil
}

// Retry abandons the current transaction (cancelling any polling) and
// returns the machine to IDLE so the user can submit fresh input. The
// failed transaction itself is never mutated or reused.
func (m *Machine) Retry() {
	m.reset()
}

// Cancel abandons the flow mid-attempt, e.g. when the user navigates away.
// Any running poller stops synchronously; no further status queries are
// made and no late signal can change state for the abandoned transaction.
func (m *Machine) Cancel() {
	m.reset()
}

// View returns a read-only snapshot of the flow for rendering
func (m *Machine) View() View {
	m.mu.Lock()
	defer m.mu.Unlock()

	v := View{
		Step:            m.step,
		PollAttempt:     m.pollAttempt,
		MaxPollAttempts: m.maxPollAttempts,
		LastMessage:     m.lastMessage,
		LastError:       m.lastError,
	}
	if m.tx != nil {
		txCopy := *m.tx
		v.Transaction = &txCopy
	}
	return v
}

func (m *Machine) reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cancelWatchLocked()
	m.epoch++
	m.step = StepIdle
	m.tx = nil
	m.pollAttempt = 0
	m.lastMessage = ""
	m.lastError = ""
}

// startVerificationLocked launches the two signal producers bound to this
// transaction id. Both feed apply, which arbitrates.
func (m *Machine) startVerificationLocked(txID string) {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancelWatch = cancel

	poller := NewPoller(m.gateway, m.logger, m.pollInterval, m.maxPollAttempts, m.maxPollFailures)
	go poller.Run(ctx, txID, m.apply)

	if m.board != nil {
		listener := NewPushListener(m.board)
		go listener.Run(ctx, txID, m.apply)
	}
}

// apply is the single transition function fed by both channels. Signals for
// a transaction that is no longer verifying are dropped, which makes
// terminal transitions idempotent regardless of arrival order.
func (m *Machine) apply(obs Observation) {
	m.mu.Lock()

	if m.step != StepVerifying || m.tx == nil || m.tx.ID != obs.TransactionID {
		m.mu.Unlock()
		return
	}

	if !obs.Terminal {
		if obs.Attempt > 0 {
			m.pollAttempt = obs.Attempt
		}
		if obs.Message != "" {
			m.lastMessage = obs.Message
		}
		m.mu.Unlock()
		return
	}

	// First terminal signal wins; stop the other producer immediately.
	m.cancelWatchLocked()
	m.tx.Status = obs.Status
	m.tx.UpdatedAt = time.Now()

	switch obs.Status {
	case models.StatusSuccessful:
		m.step = StepSuccess
		m.lastMessage = "Payment confirmed."
		m.logger.Info("payment confirmed",
			"transaction_id", obs.TransactionID,
			"source", obs.Source,
		)
		m.notifyLocked(*m.tx)
	case models.StatusFailed:
		m.tx.FailureReason = obs.Reason
		m.step = StepFailed
		m.lastError = obs.Reason
		if m.lastError == "" {
			m.lastError = "Payment failed."
		}
		m.logger.Warn("payment failed",
			"transaction_id", obs.TransactionID,
			"reason", obs.Reason,
			"source", obs.Source,
		)
	case models.StatusTimeout:
		m.step = StepTimeout
		m.lastError = "Payment verification timed out. The charge may still complete; check your transaction history."
		m.logger.Warn("payment verification timed out",
			"transaction_id", obs.TransactionID,
			"attempts", obs.Attempt,
		)
	}

	m.mu.Unlock()
}

// notifyLocked fires the success callback. The caller holds the lock and
// has just performed the one transition into StepSuccess for this
// transaction, so the callback cannot fire twice.
func (m *Machine) notifyLocked(tx models.Transaction) {
	if m.onSuccess == nil {
		return
	}
	go m.onSuccess(tx)
}

func validateInput(in momo.InitiateInput) error {
	if err := momo.ValidatePhone(in.PayerPhone); err != nil {
		return err
	}
	if err := momo.ValidateAmount(in.Amount); err != nil {
		return err
	}
	return momo.ValidateKind(in.Kind)
}

func (m *Machine) cancelWatchLocked() {
	if m.cancelWatch != nil {
		m.cancelWatch()
		m.cancelWatch = nil
	}
}

func userMessage(err error) string {
	var initErr *models.InitiationError
	if errors.As(err, &initErr) {
		return initErr.Message
	}
	return err.Error()
}
