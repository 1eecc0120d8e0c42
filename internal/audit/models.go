package audit

import (
	"time"

	id "legajo/pkg/domain"
)

// Action is what happened to the audited record.
type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionDeleted Action = "deleted"
)

// Change is the before/after value of one field. Created records only carry
// New values; deleted records only carry Old values.
type Change struct {
	Old string `json:"old,omitempty"`
	New string `json:"new,omitempty"`
}

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID        id.AuditEventID   `json:"id"`
	Table     string            `json:"table"`
	RecordID  string            `json:"record_id"`
	Action    Action            `json:"action"`
	Changes   map[string]Change `json:"changes"`
	Actor     string            `json:"actor,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// samePayload reports whether two events describe the same action with the
// same changes on the same record, ignoring who, when and which request.
func (e Event) samePayload(other Event) bool {
	if e.Table != other.Table || e.RecordID != other.RecordID || e.Action != other.Action {
		return false
	}
	if len(e.Changes) != len(other.Changes) {
		return false
	}
	for field, c := range e.Changes {
		if oc, ok := other.Changes[field]; !ok || oc != c {
			return false
		}
	}
	return true
}
