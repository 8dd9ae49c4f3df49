package flow

import (
	"context"
	"testing"
	"time"

	"github.com/cinewave/momoflow/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusBoard_SetAndGet(t *testing.T) {
	board := NewStatusBoard()

	_, ok := board.Get("tx1")
	assert.False(t, ok)

	board.Set("tx1", models.StatusPending)
	status, ok := board.Get("tx1")
	require.True(t, ok)
	assert.Equal(t, models.StatusPending, status)

	board.Set("tx1", models.StatusSuccessful)
	status, _ = board.Get("tx1")
	assert.Equal(t, models.StatusSuccessful, status)
}

func TestPushListener_EmitsOnSuccess(t *testing.T) {
	t.Run("success pushed while listening", func(t *testing.T) {
		board := NewStatusBoard()
		listener := NewPushListener(board)

		observations := make(chan Observation, 1)
		done := make(chan struct{})
		go func() {
			defer close(done)
			listener.Run(context.Background(), "tx1", func(obs Observation) { observations <- obs })
		}()

		board.Set("tx1", models.StatusPending) // ignored: non-terminal
		board.Set("tx1", models.StatusSuccessful)

		select {
		case obs := <-observations:
			assert.Equal(t, models.StatusSuccessful, obs.Status)
			assert.Equal(t, SourcePush, obs.Source)
			assert.True(t, obs.Terminal)
		case <-time.After(time.Second):
			t.Fatal("expected a push observation")
		}
		<-done
	})

	t.Run("success pushed before the listener started", func(t *testing.T) {
		board := NewStatusBoard()
		board.Set("tx1", models.StatusSuccessful)

		var observations []Observation
		NewPushListener(board).Run(context.Background(), "tx1", func(obs Observation) {
			observations = append(observations, obs)
		})

		require.Len(t, observations, 1)
		assert.Equal(t, models.StatusSuccessful, observations[0].Status)
	})

	t.Run("other transactions are ignored", func(t *testing.T) {
		board := NewStatusBoard()
		listener := NewPushListener(board)

		ctx, cancel := context.WithCancel(context.Background())
		emitted := make(chan Observation, 1)
		done := make(chan struct{})
		go func() {
			defer close(done)
			listener.Run(ctx, "tx1", func(obs Observation) { emitted <- obs })
		}()

		board.Set("tx2", models.StatusSuccessful)
		time.Sleep(10 * time.Millisecond)
		cancel()
		<-done

		assert.Empty(t, emitted)
	})
}
