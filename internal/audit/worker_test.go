package audit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"legajo/pkg/platform/circuit"
)

type recordingSink struct {
	mu     sync.Mutex
	events []Event
	fail   bool
}

func (r *recordingSink) Publish(_ context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("broker down")
	}
	r.events = append(r.events, event)
	return nil
}

func (r *recordingSink) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

type countingSink struct {
	Sink
	calls int
}

func (c *countingSink) Publish(ctx context.Context, event Event) error {
	c.calls++
	return c.Sink.Publish(ctx, event)
}

func TestWorker(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("forwards events until inbox closes", func(t *testing.T) {
		sink := &recordingSink{}
		inbox := make(chan Event, 2)
		inbox <- Event{RecordID: "a"}
		inbox <- Event{RecordID: "b"}
		close(inbox)

		err := NewWorker(sink, inbox, logger).Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 2, sink.count())
	})

	t.Run("keeps running when the sink fails", func(t *testing.T) {
		sink := &recordingSink{fail: true}
		inbox := make(chan Event, 1)
		inbox <- Event{RecordID: "a"}
		close(inbox)

		err := NewWorker(sink, inbox, logger).Run(context.Background())
		require.NoError(t, err)
		assert.Zero(t, sink.count())
	})

	t.Run("stops calling the sink once the breaker opens", func(t *testing.T) {
		sink := &recordingSink{fail: true}
		inbox := make(chan Event, 3)
		inbox <- Event{RecordID: "a"}
		inbox <- Event{RecordID: "b"}
		inbox <- Event{RecordID: "c"}
		close(inbox)

		breaker := circuit.New("audit-sink", circuit.WithFailureThreshold(2), circuit.WithCooldown(time.Hour))
		calls := &countingSink{Sink: sink}
		err := NewWorker(calls, inbox, logger, WithBreaker(breaker)).Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 2, calls.calls)
		assert.True(t, breaker.IsOpen())
	})

	t.Run("stops on context cancellation", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		err := NewWorker(&recordingSink{}, make(chan Event), logger).Run(ctx)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}
