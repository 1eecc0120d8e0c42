package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"legajo/internal/employee/models"
	id "legajo/pkg/domain"
	"legajo/pkg/platform/sentinel"
)

// InMemoryStore keeps employees in process. DNI and CUIL are unique, as in
// the Postgres schema.
type InMemoryStore struct {
	mu     sync.RWMutex
	byID   map[id.EmployeeID]*models.Employee
	byDNI  map[id.NationalID]id.EmployeeID
	byCUIL map[string]id.EmployeeID
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		byID:   make(map[id.EmployeeID]*models.Employee),
		byDNI:  make(map[id.NationalID]id.EmployeeID),
		byCUIL: make(map[string]id.EmployeeID),
	}
}

func (s *InMemoryStore) Create(_ context.Context, e *models.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[e.ID]; ok {
		return sentinel.ErrAlreadyUsed
	}
	if err := s.checkUniqueLocked(e); err != nil {
		return err
	}
	s.putLocked(e)
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, employeeID id.EmployeeID) (*models.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.byID[employeeID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *e
	return &clone, nil
}

// Update replaces the record if it still carries expectedUpdatedAt.
func (s *InMemoryStore) Update(_ context.Context, e *models.Employee, expectedUpdatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.byID[e.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if !current.UpdatedAt.Equal(expectedUpdatedAt) {
		return sentinel.ErrModified
	}
	if err := s.checkUniqueLocked(e); err != nil {
		return err
	}
	delete(s.byDNI, current.DNI)
	delete(s.byCUIL, current.CUIL)
	s.putLocked(e)
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, employeeID id.EmployeeID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.byID[employeeID]
	if !ok {
		return sentinel.ErrNotFound
	}
	delete(s.byID, employeeID)
	delete(s.byDNI, e.DNI)
	delete(s.byCUIL, e.CUIL)
	return nil
}

// Search returns at most q.Limit matches ordered by last name, then first names.
func (s *InMemoryStore) Search(_ context.Context, q models.SearchQuery) ([]*models.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Employee
	for _, e := range s.byID {
		if q.Matches(e) {
			clone := *e
			out = append(out, &clone)
		}
	}
	sortByName(out)
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// ListAll returns every employee ordered by last name, then first names.
func (s *InMemoryStore) ListAll(_ context.Context) ([]*models.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Employee, 0, len(s.byID))
	for _, e := range s.byID {
		clone := *e
		out = append(out, &clone)
	}
	sortByName(out)
	return out, nil
}

func (s *InMemoryStore) checkUniqueLocked(e *models.Employee) error {
	if owner, ok := s.byDNI[e.DNI]; ok && owner != e.ID {
		return &ConflictError{Field: models.FieldDNI}
	}
	if owner, ok := s.byCUIL[e.CUIL]; ok && owner != e.ID {
		return &ConflictError{Field: models.FieldCUIL}
	}
	return nil
}

func (s *InMemoryStore) putLocked(e *models.Employee) {
	clone := *e
	s.byID[e.ID] = &clone
	s.byDNI[e.DNI] = e.ID
	s.byCUIL[e.CUIL] = e.ID
}

func sortByName(list []*models.Employee) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].LastName != list[j].LastName {
			return list[i].LastName < list[j].LastName
		}
		if list[i].FirstNames != list[j].FirstNames {
			return list[i].FirstNames < list[j].FirstNames
		}
		return list[i].DNI < list[j].DNI
	})
}
