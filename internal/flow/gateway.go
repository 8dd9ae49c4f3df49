// Package flow implements the payment confirmation flow: a state machine
// that merges status observations from a polling loop and a push channel
// into one monotonic transaction lifecycle.
package flow

import (
	"context"

	"github.com/cinewave/momoflow/internal/models"
	"github.com/cinewave/momoflow/internal/momo"
)

// Gateway is the slice of the payment gateway client the flow consumes
type Gateway interface {
	Initiate(ctx context.Context, in momo.InitiateInput) (*momo.InitiateOutcome, error)
	Status(ctx context.Context, id string) (*momo.StatusOutcome, error)
}

var _ Gateway = (*momo.Client)(nil)

// Source identifies which channel produced a status observation
type Source string

const (
	SourcePoller Source = "poller"
	SourcePush   Source = "push"
)

// Observation is one status signal for a transaction. Non-terminal
// observations only update progress; the first terminal observation for a
// transaction decides its outcome.
type Observation struct {
	TransactionID string
	Status        models.Status
	Reason        string
	Message       string
	Source        Source
	Attempt       int
	Terminal      bool
}
