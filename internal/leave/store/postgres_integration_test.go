//go:build integration

package store_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"legajo/internal/leave/models"
	"legajo/internal/leave/store"
	id "legajo/pkg/domain"
	"legajo/pkg/platform/sentinel"
	"legajo/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
	now      time.Time
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
	s.Require().NoError(s.store.EnsureSchema(context.Background()))
	s.Require().NoError(s.store.EnsureSchema(context.Background()), "schema creation must be idempotent")
	s.now = time.Now().UTC().Truncate(time.Microsecond)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(),
		"solicitudes", "tipos_licencia", "feriados", "planes_trabajo", "vacaciones_otorgadas"))
}

func (s *PostgresStoreSuite) vacation(employeeID id.EmployeeID, from, to time.Time) *models.Request {
	r, err := models.NewRequest(id.NewLeaveRequestID(), employeeID, models.KindVacation, id.LeaveTypeID{}, from, to, "", s.now)
	s.Require().NoError(err)
	return r
}

func (s *PostgresStoreSuite) TestHolidays() {
	ctx := context.Background()
	h, err := models.NewHoliday(id.NewHolidayID(), models.Date(2026, time.July, 9), "Independencia")
	s.Require().NoError(err)
	s.Require().NoError(s.store.CreateHoliday(ctx, h))

	dup, err := models.NewHoliday(id.NewHolidayID(), h.Date, "Otro")
	s.Require().NoError(err)
	s.True(errors.Is(s.store.CreateHoliday(ctx, dup), sentinel.ErrAlreadyUsed))

	list, err := s.store.ListHolidays(ctx, models.Date(2026, time.July, 1), models.Date(2026, time.July, 31))
	s.Require().NoError(err)
	s.Require().Len(list, 1)
	s.True(h.Date.Equal(list[0].Date))

	s.Require().NoError(s.store.DeleteHoliday(ctx, h.ID))
	_, err = s.store.FindHoliday(ctx, h.ID)
	s.True(errors.Is(err, sentinel.ErrNotFound))
}

func (s *PostgresStoreSuite) TestWorkPlanUpsert() {
	ctx := context.Background()
	employeeID := id.NewEmployeeID()
	p, err := models.NewWorkPlan(employeeID, [7]bool{true, true, true, true, true}, "09:00", "18:00")
	s.Require().NoError(err)
	s.Require().NoError(s.store.SaveWorkPlan(ctx, p))

	p.Days[5] = true
	p.End = "13:00"
	s.Require().NoError(s.store.SaveWorkPlan(ctx, p))

	got, err := s.store.FindWorkPlan(ctx, employeeID)
	s.Require().NoError(err)
	s.Equal(p.Days, got.Days)
	s.Equal("13:00", got.End)
}

func (s *PostgresStoreSuite) TestRequestRoundTrip() {
	ctx := context.Background()
	t, err := models.NewLeaveType(id.NewLeaveTypeID(), "Examen", 0, true)
	s.Require().NoError(err)
	s.Require().NoError(s.store.CreateLeaveType(ctx, t))

	r, err := models.NewRequest(id.NewLeaveRequestID(), id.NewEmployeeID(), models.KindLeave, t.ID,
		models.Date(2026, time.June, 1), models.Date(2026, time.June, 2), "final de análisis", s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.store.CreateRequest(ctx, r))

	got, err := s.store.FindRequest(ctx, r.ID)
	s.Require().NoError(err)
	s.Equal(t.ID, got.TypeID)
	s.Equal(models.StatusPending, got.Status)
	s.True(got.DecidedAt.IsZero())
	s.True(r.CreatedAt.Equal(got.CreatedAt))

	types, err := s.store.ListLeaveTypes(ctx)
	s.Require().NoError(err)
	s.Require().Len(types, 1)
	s.True(types[0].Free())

	list, err := s.store.ListRequests(ctx, models.RequestFilter{
		EmployeeID: r.EmployeeID, Status: models.StatusPending,
		From: models.Date(2026, time.June, 2), To: models.Date(2026, time.June, 10),
	})
	s.Require().NoError(err)
	s.Require().Len(list, 1)
}

func (s *PostgresStoreSuite) TestDecide() {
	ctx := context.Background()
	employeeID := id.NewEmployeeID()
	r := s.vacation(employeeID, models.Date(2026, time.March, 16), models.Date(2026, time.March, 20))
	s.Require().NoError(s.store.CreateRequest(ctx, r))

	approved := *r
	s.Require().NoError(approved.Approve("ok", s.now))
	s.Require().NoError(s.store.Decide(ctx, &approved, func(current []*models.Grant) []*models.Grant {
		return models.Consume(current, &approved, id.NewVacationGrantID)
	}))

	got, err := s.store.FindRequest(ctx, r.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusApproved, got.Status)
	s.Equal("ok", got.ManagerNote)

	grants, err := s.store.ListGrants(ctx, employeeID)
	s.Require().NoError(err)
	s.Require().Len(grants, 1)
	s.Equal(5, grants[0].Consumed)

	again := *r
	s.Require().NoError(again.Reject("late", s.now))
	s.True(errors.Is(s.store.Decide(ctx, &again, nil), sentinel.ErrModified))

	ghost := s.vacation(employeeID, r.From, r.To)
	s.True(errors.Is(s.store.Decide(ctx, ghost, nil), sentinel.ErrNotFound))
}

func (s *PostgresStoreSuite) TestConcurrentApprovalsShareGrants() {
	ctx := context.Background()
	employeeID := id.NewEmployeeID()
	s.Require().NoError(s.store.SaveGrant(ctx, &models.Grant{
		ID: id.NewVacationGrantID(), EmployeeID: employeeID,
		From: models.Date(2026, time.January, 1), To: models.CutoffDate(2026), Available: 14,
	}))

	var requests []*models.Request
	for week := range 3 {
		from := models.Date(2026, time.April, 6).AddDate(0, 0, 7*week)
		r := s.vacation(employeeID, from, from.AddDate(0, 0, 4))
		s.Require().NoError(s.store.CreateRequest(ctx, r))
		requests = append(requests, r)
	}

	var wg sync.WaitGroup
	for _, r := range requests {
		wg.Add(1)
		go func(r models.Request) {
			defer wg.Done()
			s.NoError(r.Approve("", s.now))
			s.NoError(s.store.Decide(ctx, &r, func(current []*models.Grant) []*models.Grant {
				return models.Consume(current, &r, id.NewVacationGrantID)
			}))
		}(*r)
	}
	wg.Wait()

	grants, err := s.store.ListGrants(ctx, employeeID)
	s.Require().NoError(err)
	total := 0
	for _, g := range grants {
		total += g.Consumed
	}
	s.Equal(15, total)
}
