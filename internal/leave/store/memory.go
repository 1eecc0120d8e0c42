// Package store persists the leave domain in memory or in Postgres.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"legajo/internal/leave/models"
	id "legajo/pkg/domain"
	"legajo/pkg/platform/sentinel"
)

// InMemoryStore keeps leave data in maps. Values are copied on the way in
// and out so callers never share state with the store.
type InMemoryStore struct {
	mu        sync.RWMutex
	holidays  map[id.HolidayID]*models.Holiday
	plans     map[id.EmployeeID]*models.WorkPlan
	types     map[id.LeaveTypeID]*models.LeaveType
	requests  map[id.LeaveRequestID]*models.Request
	grants    map[id.VacationGrantID]*models.Grant
	typeOrder []id.LeaveTypeID
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		holidays: make(map[id.HolidayID]*models.Holiday),
		plans:    make(map[id.EmployeeID]*models.WorkPlan),
		types:    make(map[id.LeaveTypeID]*models.LeaveType),
		requests: make(map[id.LeaveRequestID]*models.Request),
		grants:   make(map[id.VacationGrantID]*models.Grant),
	}
}

func (s *InMemoryStore) CreateHoliday(_ context.Context, h *models.Holiday) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.holidays[h.ID]; ok || s.dateTakenLocked(h) {
		return sentinel.ErrAlreadyUsed
	}
	clone := *h
	s.holidays[h.ID] = &clone
	return nil
}

func (s *InMemoryStore) UpdateHoliday(_ context.Context, h *models.Holiday) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.holidays[h.ID]; !ok {
		return sentinel.ErrNotFound
	}
	if s.dateTakenLocked(h) {
		return sentinel.ErrAlreadyUsed
	}
	clone := *h
	s.holidays[h.ID] = &clone
	return nil
}

func (s *InMemoryStore) DeleteHoliday(_ context.Context, holidayID id.HolidayID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.holidays[holidayID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.holidays, holidayID)
	return nil
}

func (s *InMemoryStore) FindHoliday(_ context.Context, holidayID id.HolidayID) (*models.Holiday, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.holidays[holidayID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *h
	return &clone, nil
}

// ListHolidays returns the holidays from from to to inclusive, by date.
func (s *InMemoryStore) ListHolidays(_ context.Context, from, to time.Time) ([]*models.Holiday, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Holiday, 0)
	for _, h := range s.holidays {
		if h.Date.Before(from) || h.Date.After(to) {
			continue
		}
		clone := *h
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (s *InMemoryStore) dateTakenLocked(h *models.Holiday) bool {
	for _, other := range s.holidays {
		if other.ID != h.ID && other.Date.Equal(h.Date) {
			return true
		}
	}
	return false
}

// SaveWorkPlan creates or replaces the plan of p.EmployeeID.
func (s *InMemoryStore) SaveWorkPlan(_ context.Context, p *models.WorkPlan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *p
	s.plans[p.EmployeeID] = &clone
	return nil
}

func (s *InMemoryStore) FindWorkPlan(_ context.Context, employeeID id.EmployeeID) (*models.WorkPlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.plans[employeeID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *p
	return &clone, nil
}

func (s *InMemoryStore) CreateLeaveType(_ context.Context, t *models.LeaveType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.types[t.ID]; ok {
		return sentinel.ErrAlreadyUsed
	}
	clone := *t
	s.types[t.ID] = &clone
	s.typeOrder = append(s.typeOrder, t.ID)
	return nil
}

func (s *InMemoryStore) FindLeaveType(_ context.Context, typeID id.LeaveTypeID) (*models.LeaveType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.types[typeID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *t
	return &clone, nil
}

// ListLeaveTypes returns the types by description.
func (s *InMemoryStore) ListLeaveTypes(_ context.Context) ([]*models.LeaveType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.LeaveType, 0, len(s.typeOrder))
	for _, typeID := range s.typeOrder {
		clone := *s.types[typeID]
		out = append(out, &clone)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Description < out[j].Description })
	return out, nil
}

func (s *InMemoryStore) CreateRequest(_ context.Context, r *models.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.requests[r.ID]; ok {
		return sentinel.ErrAlreadyUsed
	}
	clone := *r
	s.requests[r.ID] = &clone
	return nil
}

func (s *InMemoryStore) FindRequest(_ context.Context, requestID id.LeaveRequestID) (*models.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.requests[requestID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *r
	return &clone, nil
}

// ListRequests returns the requests matching f, by start date then creation.
func (s *InMemoryStore) ListRequests(_ context.Context, f models.RequestFilter) ([]*models.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Request, 0)
	for _, r := range s.requests {
		if !f.Matches(r) {
			continue
		}
		clone := *r
		out = append(out, &clone)
	}
	sortRequests(out)
	return out, nil
}

// Decide stores the decision on r. When consume is set it is handed the
// employee's current grants and the grants it returns are saved with the
// decision. Nothing is written unless the stored request is still pending.
func (s *InMemoryStore) Decide(_ context.Context, r *models.Request, consume models.ConsumeFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.requests[r.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if current.Status != models.StatusPending {
		return sentinel.ErrModified
	}
	if consume != nil {
		for _, g := range consume(s.grantsLocked(r.EmployeeID)) {
			gc := *g
			s.grants[g.ID] = &gc
		}
	}
	clone := *r
	s.requests[r.ID] = &clone
	return nil
}

// ListGrants returns the grants of one employee, oldest period first.
func (s *InMemoryStore) ListGrants(_ context.Context, employeeID id.EmployeeID) ([]*models.Grant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.grantsLocked(employeeID), nil
}

func (s *InMemoryStore) grantsLocked(employeeID id.EmployeeID) []*models.Grant {
	out := make([]*models.Grant, 0)
	for _, g := range s.grants {
		if g.EmployeeID != employeeID {
			continue
		}
		clone := *g
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].From.Equal(out[j].From) {
			return out[i].From.Before(out[j].From)
		}
		return out[i].To.Before(out[j].To)
	})
	return out
}

// SaveGrant creates or replaces g.
func (s *InMemoryStore) SaveGrant(_ context.Context, g *models.Grant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *g
	s.grants[g.ID] = &clone
	return nil
}

func sortRequests(list []*models.Request) {
	sort.Slice(list, func(i, j int) bool {
		if !list[i].From.Equal(list[j].From) {
			return list[i].From.Before(list[j].From)
		}
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
}
