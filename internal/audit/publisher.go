package audit

import (
	"context"
	"log/slog"

	id "legajo/pkg/domain"
	"legajo/pkg/requestcontext"
)

// outboxSize bounds events waiting for the external sink.
const outboxSize = 256

// Publisher captures structured audit events. It is append-only and uses the
// store for history; when a sink is attached, events are also queued for the
// Worker to forward.
type Publisher struct {
	store  Store
	logger *slog.Logger
	outbox chan Event
}

// NewPublisher builds a Publisher over store. Call WithOutbox to forward
// events to an external sink.
func NewPublisher(store Store, logger *slog.Logger) *Publisher {
	return &Publisher{store: store, logger: logger}
}

// WithOutbox enables forwarding and returns the channel the Worker drains.
func (p *Publisher) WithOutbox() <-chan Event {
	p.outbox = make(chan Event, outboxSize)
	return p.outbox
}

// Emit records event. An event whose payload equals the most recent event
// for the same record and action is skipped, and (false, nil) is returned.
func (p *Publisher) Emit(ctx context.Context, event Event) (bool, error) {
	if event.ID.IsNil() {
		event.ID = id.NewAuditEventID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if event.Actor == "" {
		event.Actor = requestcontext.Actor(ctx)
	}

	last, ok, err := p.store.Last(ctx, event.Table, event.RecordID, event.Action)
	if err != nil {
		return false, err
	}
	if ok && last.samePayload(event) {
		p.logger.DebugContext(ctx, "skipping duplicate audit event",
			"table", event.Table,
			"record_id", event.RecordID,
			"action", event.Action,
		)
		return false, nil
	}

	if err := p.store.Append(ctx, event); err != nil {
		return false, err
	}

	if p.outbox != nil {
		select {
		case p.outbox <- event:
		default:
			p.logger.WarnContext(ctx, "audit outbox full, event not forwarded",
				"event_id", event.ID.String(),
				"table", event.Table,
				"record_id", event.RecordID,
			)
		}
	}
	return true, nil
}

// History lists the events of one record, most recent first.
func (p *Publisher) History(ctx context.Context, table, recordID string) ([]Event, error) {
	return p.store.ListByRecord(ctx, table, recordID)
}
