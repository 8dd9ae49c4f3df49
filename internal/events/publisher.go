// Package events defines the payment event contract and publishers.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/cinewave/momoflow/internal/models"
)

// PaymentDecided is emitted once per transaction when it reaches a terminal
// status on the gateway.
type PaymentDecided struct {
	DecidedAt     time.Time           `json:"decidedAt"`
	TransactionID string              `json:"transactionId"`
	ItemRef       string              `json:"itemRef"`
	Kind          models.PurchaseKind `json:"kind"`
	Currency      string              `json:"currency"`
	PayerID       string              `json:"payerId"`
	Status        models.Status       `json:"status"`
	Reason        string              `json:"reason,omitempty"`
	Amount        int64               `json:"amount"`
}

// Publisher delivers payment events to downstream consumers
type Publisher interface {
	Publish(ctx context.Context, event PaymentDecided) error
}

// Noop discards events; used when no brokers are configured
type Noop struct{}

// Publish discards the event
func (Noop) Publish(context.Context, PaymentDecided) error { return nil }

// Recorder captures events in memory for tests
type Recorder struct {
	mu     sync.Mutex
	events []PaymentDecided
}

// Publish records the event
func (r *Recorder) Publish(_ context.Context, event PaymentDecided) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

// Events returns a copy of everything published so far
func (r *Recorder) Events() []PaymentDecided {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := make([]PaymentDecided, len(r.events))
	copy(copied, r.events)
	return copied
}

var (
	_ Publisher = Noop{}
	_ Publisher = (*Recorder)(nil)
)
