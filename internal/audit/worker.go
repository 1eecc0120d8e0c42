package audit

import (
	"context"
	"log/slog"

	"legajo/pkg/platform/circuit"
)

// Sink receives audit events outside the process.
type Sink interface {
	Publish(ctx context.Context, event Event) error
}

// Worker drains the publisher outbox into a Sink. Sink failures are logged
// and do not stop the worker; the event stays in the local store.
type Worker struct {
	sink    Sink
	inbox   <-chan Event
	logger  *slog.Logger
	breaker *circuit.Breaker
}

type WorkerOption func(*Worker)

// WithBreaker skips the sink while the breaker is open instead of blocking
// the outbox on a broker that keeps failing.
func WithBreaker(b *circuit.Breaker) WorkerOption {
	return func(w *Worker) { w.breaker = b }
}

func NewWorker(sink Sink, inbox <-chan Event, logger *slog.Logger, opts ...WorkerOption) *Worker {
	w := &Worker{sink: sink, inbox: inbox, logger: logger}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run forwards events until ctx is cancelled or the inbox is closed.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.inbox:
			if !ok {
				return nil
			}
			w.forward(ctx, event)
		}
	}
}

func (w *Worker) forward(ctx context.Context, event Event) {
	if w.breaker != nil && !w.breaker.Allow() {
		w.logger.DebugContext(ctx, "audit sink circuit open, event kept locally",
			"event_id", event.ID.String(),
			"breaker", w.breaker.Name(),
		)
		return
	}
	err := w.sink.Publish(ctx, event)
	if err != nil {
		w.logger.ErrorContext(ctx, "failed to forward audit event",
			"event_id", event.ID.String(),
			"table", event.Table,
			"record_id", event.RecordID,
			"error", err,
		)
	}
	if w.breaker == nil {
		return
	}
	if err != nil {
		if _, change := w.breaker.RecordFailure(); change.Opened {
			w.logger.WarnContext(ctx, "audit sink circuit opened", "breaker", w.breaker.Name())
		}
		return
	}
	if _, change := w.breaker.RecordSuccess(); change.Closed {
		w.logger.InfoContext(ctx, "audit sink circuit closed", "breaker", w.breaker.Name())
	}
}
