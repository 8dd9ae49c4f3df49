package flow

import (
	"context"
	"sync"

	"github.com/cinewave/momoflow/internal/models"
)

// StatusBoard is a shared status cell keyed by transaction id. Code outside
// the flow (a push channel, a prior response payload) writes to it; the
// push listener watches it. Delivery to watchers is best-effort and
// non-blocking; the latest value is always readable via Get.
type StatusBoard struct {
	mu       sync.Mutex
	statuses map[string]models.Status
	watchers map[string]map[int]chan models.Status
	nextID   int
}

// NewStatusBoard creates an empty board
func NewStatusBoard() *StatusBoard {
	return &StatusBoard{
		statuses: make(map[string]models.Status),
		watchers: make(map[string]map[int]chan models.Status),
	}
}

// Set records the latest pushed status for a transaction and wakes watchers
func (b *StatusBoard) Set(txID string, status models.Status) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.statuses[txID] = status
	for _, ch := range b.watchers[txID] {
		select {
		case ch <- status:
		default:
		}
	}
}

// Get returns the latest pushed status for a transaction, if any
func (b *StatusBoard) Get(txID string) (models.Status, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	status, ok := b.statuses[txID]
	return status, ok
}

func (b *StatusBoard) watch(txID string) (<-chan models.Status, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++

	ch := make(chan models.Status, 4)
	if b.watchers[txID] == nil {
		b.watchers[txID] = make(map[int]chan models.Status)
	}
	b.watchers[txID][id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.watchers[txID], id)
		if len(b.watchers[txID]) == 0 {
			delete(b.watchers, txID)
		}
	}
	return ch, cancel
}

// PushListener observes a StatusBoard for one transaction and emits a
// terminal observation the moment the pushed status becomes SUCCESSFUL. It
// never emits non-terminal statuses.
type PushListener struct {
	board *StatusBoard
}

// NewPushListener creates a listener over the given board
func NewPushListener(board *StatusBoard) *PushListener {
	return &PushListener{board: board}
}

// Run watches until a success signal arrives or ctx is cancelled
func (l *PushListener) Run(ctx context.Context, txID string, emit func(Observation)) {
	ch, cancel := l.board.watch(txID)
	defer cancel()

	// A success pushed before the watch started still counts.
	if status, ok := l.board.Get(txID); ok && status == models.StatusSuccessful {
		emit(successObservation(txID))
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case status := <-ch:
			if status == models.StatusSuccessful {
				emit(successObservation(txID))
				return
			}
		}
	}
}

func successObservation(txID string) Observation {
	return Observation{
		TransactionID: txID,
		Status:        models.StatusSuccessful,
		Source:        SourcePush,
		Terminal:      true,
	}
}
