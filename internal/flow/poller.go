package flow

import (
	"context"
	"log/slog"
	"time"

	"github.com/cinewave/momoflow/internal/models"
)

// Default polling behaviour. Mobile-money approvals need manual action on a
// separate handset, so the ceiling bounds the worst-case wait to about five
// minutes.
const (
	DefaultPollInterval    = 10 * time.Second
	DefaultMaxPollAttempts = 30
	DefaultMaxPollFailures = 5
)

const unableToVerifyReason = "unable to verify payment status"

// Poller queries the gateway for a transaction's status on a fixed interval
// until it observes a terminal status, exhausts its attempt ceiling, fails
// too many times in a row, or is cancelled.
type Poller struct {
	gateway     Gateway
	logger      *slog.Logger
	interval    time.Duration
	maxAttempts int
	maxFailures int
}

// NewPoller creates a poller. maxFailures is the consecutive-failure
// ceiling for transport or parse errors, distinct from a gateway-reported
// decline.
func NewPoller(gateway Gateway, logger *slog.Logger, interval time.Duration, maxAttempts, maxFailures int) *Poller {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Poller{
		gateway:     gateway,
		logger:      logger,
		interval:    interval,
		maxAttempts: maxAttempts,
		maxFailures: maxFailures,
	}
}

// Run polls until a terminal observation is emitted or ctx is cancelled.
// It emits at most one terminal observation and emits nothing at all after
// cancellation.
func (p *Poller) Run(ctx context.Context, txID string, emit func(Observation)) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	failures := 0
	for attempt := 1; ; attempt++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		out, err := p.gateway.Status(ctx, txID)
		if ctx.Err() != nil {
			return
		}

		if err != nil {
			failures++
			p.logger.Warn("status query failed",
				"transaction_id", txID,
				"attempt", attempt,
				"consecutive_failures", failures,
				"error", err,
			)

			if failures >= p.maxFailures {
				emit(Observation{
					TransactionID: txID,
					Status:        models.StatusFailed,
					Reason:        unableToVerifyReason,
					Source:        SourcePoller,
					Attempt:       attempt,
					Terminal:      true,
				})
				return
			}
			if attempt >= p.maxAttempts {
				emit(p.timeoutObservation(txID, attempt))
				return
			}
			emit(Observation{
				TransactionID: txID,
				Status:        models.StatusPending,
				Message:       "Waiting for payment confirmation...",
				Source:        SourcePoller,
				Attempt:       attempt,
			})
			continue
		}

		failures = 0

		switch out.Status {
		case models.StatusSuccessful:
			emit(Observation{
				TransactionID: txID,
				Status:        models.StatusSuccessful,
				Source:        SourcePoller,
				Attempt:       attempt,
				Terminal:      true,
			})
			return
		case models.StatusFailed:
			reason := out.Reason
			if reason == "" {
				reason = "payment was declined"
			}
			emit(Observation{
				TransactionID: txID,
				Status:        models.StatusFailed,
				Reason:        reason,
				Source:        SourcePoller,
				Attempt:       attempt,
				Terminal:      true,
			})
			return
		default:
			if attempt >= p.maxAttempts {
				emit(p.timeoutObservation(txID, attempt))
				return
			}
			emit(Observation{
				TransactionID: txID,
				Status:        models.StatusPending,
				Message:       "Waiting for payment confirmation...",
				Source:        SourcePoller,
				Attempt:       attempt,
			})
		}
	}
}

func (p *Poller) timeoutObservation(txID string, attempt int) Observation {
	return Observation{
		TransactionID: txID,
		Status:        models.StatusTimeout,
		Reason:        "payment verification timed out",
		Source:        SourcePoller,
		Attempt:       attempt,
		Terminal:      true,
	}
}
