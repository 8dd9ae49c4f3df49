package flow

import (
	"context"
	"sync"

	"github.com/cinewave/momoflow/internal/momo"
)

// fakeGateway scripts gateway answers for flow tests. Status answers are
// consumed in order; the last one repeats.
type fakeGateway struct {
	mu              sync.Mutex
	initiateOutcome *momo.InitiateOutcome
	initiateErr     error
	initiateCalls   int
	script          []statusResult
	statusCalls     int
}

type statusResult struct {
	out *momo.StatusOutcome
	err error
}

func (g *fakeGateway) Initiate(_ context.Context, _ momo.InitiateInput) (*momo.InitiateOutcome, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.initiateCalls++
	if g.initiateErr != nil {
		return nil, g.initiateErr
	}
	outCopy := *g.initiateOutcome
	return &outCopy, nil
}

func (g *fakeGateway) Status(_ context.Context, _ string) (*momo.StatusOutcome, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.statusCalls++
	idx := g.statusCalls - 1
	if idx >= len(g.script) {
		idx = len(g.script) - 1
	}
	step := g.script[idx]
	if step.err != nil {
		return nil, step.err
	}
	outCopy := *step.out
	return &outCopy, nil
}

func (g *fakeGateway) StatusCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.statusCalls
}

func (g *fakeGateway) InitiateCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.initiateCalls
}

func pending() statusResult {
	return statusResult{out: &momo.StatusOutcome{Status: "PENDING"}}
}

func successful() statusResult {
	return statusResult{out: &momo.StatusOutcome{Status: "SUCCESSFUL"}}
}

func failed(reason string) statusResult {
	return statusResult{out: &momo.StatusOutcome{Status: "FAILED", Reason: reason}}
}

func transportError(err error) statusResult {
	return statusResult{err: err}
}

func repeat(step statusResult, n int) []statusResult {
	steps := make([]statusResult, n)
	for i := range steps {
		steps[i] = step
	}
	return steps
}
