package models

import (
	"strings"
	"time"
	"unicode/utf8"

	id "legajo/pkg/domain"
	dErrors "legajo/pkg/domain-errors"
)

const maxCommentLen = 200

// Kind separates leave requests, which name a LeaveType, from vacation
// requests, which draw on vacation grants.
type Kind string

const (
	KindLeave    Kind = "leave"
	KindVacation Kind = "vacation"
)

func ParseKind(s string) (Kind, bool) {
	switch k := Kind(s); k {
	case KindLeave, KindVacation:
		return k, true
	}
	return "", false
}

// Status is the decision state of a request.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

func ParseStatus(s string) (Status, bool) {
	switch st := Status(s); st {
	case StatusPending, StatusApproved, StatusRejected:
		return st, true
	}
	return "", false
}

// Request is a leave or vacation request for a closed range of days.
//
// Invariants:
//   - From is not after To
//   - TypeID is set for KindLeave and nil for KindVacation
//   - only a pending request can be approved or rejected, once
type Request struct {
	ID          id.LeaveRequestID `json:"id"`
	EmployeeID  id.EmployeeID     `json:"employee_id"`
	Kind        Kind              `json:"kind"`
	TypeID      id.LeaveTypeID    `json:"type_id"`
	From        time.Time         `json:"from"`
	To          time.Time         `json:"to"`
	Status      Status            `json:"status"`
	Comment     string            `json:"comment"`
	ManagerNote string            `json:"manager_note"`
	CreatedAt   time.Time         `json:"created_at"`
	DecidedAt   time.Time         `json:"decided_at"`
}

// NewRequest builds a pending request.
func NewRequest(requestID id.LeaveRequestID, employeeID id.EmployeeID, kind Kind, typeID id.LeaveTypeID,
	from, to time.Time, comment string, now time.Time,
) (*Request, error) {
	if employeeID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "employee_id is required")
	}
	switch kind {
	case KindLeave:
		if typeID.IsNil() {
			return nil, dErrors.New(dErrors.CodeInvariantViolation, "type_id is required for leave requests")
		}
	case KindVacation:
		if !typeID.IsNil() {
			return nil, dErrors.New(dErrors.CodeInvariantViolation, "vacation requests take no type_id")
		}
	default:
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "kind must be leave or vacation")
	}
	if from.IsZero() || to.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "from and to are required")
	}
	from, to = Day(from), Day(to)
	if to.Before(from) {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "from must not be after to")
	}
	comment = strings.TrimSpace(comment)
	if utf8.RuneCountInString(comment) > maxCommentLen {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "comment must be 200 characters or less")
	}
	return &Request{
		ID:         requestID,
		EmployeeID: employeeID,
		Kind:       kind,
		TypeID:     typeID,
		From:       from,
		To:         to,
		Status:     StatusPending,
		Comment:    comment,
		CreatedAt:  now,
	}, nil
}

// Days is the number of calendar days requested.
func (r *Request) Days() int { return DaysInclusive(r.From, r.To) }

// Overlaps reports whether r and other share at least one day.
func (r *Request) Overlaps(other *Request) bool {
	return overlaps(r.From, r.To, other.From, other.To)
}

// Approve marks r approved and appends note to the manager note.
func (r *Request) Approve(note string, now time.Time) error {
	return r.decide(StatusApproved, note, now)
}

// Reject marks r rejected and appends reason to the manager note.
func (r *Request) Reject(reason string, now time.Time) error {
	return r.decide(StatusRejected, reason, now)
}

func (r *Request) decide(to Status, note string, now time.Time) error {
	if r.Status != StatusPending {
		return dErrors.New(dErrors.CodeConflict, "request is already "+string(r.Status))
	}
	r.Status = to
	r.DecidedAt = now
	r.AppendNote(note)
	return nil
}

// AppendNote adds a line to the manager note. Blank notes are ignored.
func (r *Request) AppendNote(note string) {
	note = strings.TrimSpace(note)
	if note == "" {
		return
	}
	if r.ManagerNote == "" {
		r.ManagerNote = note
		return
	}
	r.ManagerNote += "\n" + note
}

// RequestFilter narrows a request listing. Zero fields match everything;
// From and To, when both set, keep requests overlapping that range.
type RequestFilter struct {
	EmployeeID id.EmployeeID
	Status     Status
	From       time.Time
	To         time.Time
}

// Matches reports whether r passes f.
func (f RequestFilter) Matches(r *Request) bool {
	if !f.EmployeeID.IsNil() && r.EmployeeID != f.EmployeeID {
		return false
	}
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if !f.From.IsZero() && !f.To.IsZero() && !overlaps(r.From, r.To, Day(f.From), Day(f.To)) {
		return false
	}
	return true
}
