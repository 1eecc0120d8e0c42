package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"legajo/internal/audit"
	employeeModels "legajo/internal/employee/models"
	"legajo/internal/leave/metrics"
	"legajo/internal/leave/models"
	id "legajo/pkg/domain"
	dErrors "legajo/pkg/domain-errors"
	"legajo/pkg/platform/sentinel"
	"legajo/pkg/requestcontext"
)

// Audit table names of the leave module.
const (
	AuditTableHoliday = "feriado"
	AuditTableRequest = "solicitud"
)

type Store interface {
	CreateHoliday(ctx context.Context, h *models.Holiday) error
	UpdateHoliday(ctx context.Context, h *models.Holiday) error
	DeleteHoliday(ctx context.Context, holidayID id.HolidayID) error
	FindHoliday(ctx context.Context, holidayID id.HolidayID) (*models.Holiday, error)
	ListHolidays(ctx context.Context, from, to time.Time) ([]*models.Holiday, error)

	SaveWorkPlan(ctx context.Context, p *models.WorkPlan) error
	FindWorkPlan(ctx context.Context, employeeID id.EmployeeID) (*models.WorkPlan, error)

	CreateLeaveType(ctx context.Context, t *models.LeaveType) error
	FindLeaveType(ctx context.Context, typeID id.LeaveTypeID) (*models.LeaveType, error)
	ListLeaveTypes(ctx context.Context) ([]*models.LeaveType, error)

	CreateRequest(ctx context.Context, r *models.Request) error
	FindRequest(ctx context.Context, requestID id.LeaveRequestID) (*models.Request, error)
	ListRequests(ctx context.Context, f models.RequestFilter) ([]*models.Request, error)
	// Decide fails with sentinel.ErrModified when the stored request is no
	// longer pending.
	Decide(ctx context.Context, r *models.Request, consume models.ConsumeFunc) error

	ListGrants(ctx context.Context, employeeID id.EmployeeID) ([]*models.Grant, error)
	SaveGrant(ctx context.Context, g *models.Grant) error
}

// Employees resolves the employee a leave record belongs to.
type Employees interface {
	Get(ctx context.Context, employeeID id.EmployeeID) (*employeeModels.Employee, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) (bool, error)
}

// Service runs the leave workflow: holidays, work plans, leave types,
// request submission and review, and vacation entitlements.
type Service struct {
	store          Store
	employees      Employees
	auditPublisher AuditPublisher
	logger         *slog.Logger
	metrics        *metrics.Metrics
	tracer         trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

// WithEmployees makes the service reject records of unknown employees.
func WithEmployees(e Employees) Option {
	return func(s *Service) {
		s.employees = e
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tracer
	}
}

func New(st Store, opts ...Option) (*Service, error) {
	if st == nil {
		return nil, errors.New("leave store is required")
	}
	s := &Service{
		store:  st,
		logger: slog.Default(),
		tracer: otel.Tracer("legajo/internal/leave/service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// CreateHoliday registers a holiday. Dates are unique.
func (s *Service) CreateHoliday(ctx context.Context, date time.Time, description string) (_ *models.Holiday, err error) {
	ctx, span, start := s.startSpan(ctx, "create_holiday")
	defer func() { s.endSpan(span, "create_holiday", start, err) }()

	h, err := models.NewHoliday(id.NewHolidayID(), date, description)
	if err != nil {
		return nil, toValidation(err)
	}
	if err := s.store.CreateHoliday(ctx, h); err != nil {
		return nil, translateStoreError(err, "holiday", "failed to create holiday")
	}
	s.emitAudit(ctx, AuditTableHoliday, h.ID.String(), audit.ActionCreated, map[string]audit.Change{
		"date":        {New: h.Date.Format(models.DateLayout)},
		"description": {New: h.Description},
	})
	return h, nil
}

// UpdateHoliday changes a holiday. Past holidays may be edited too.
func (s *Service) UpdateHoliday(ctx context.Context, holidayID id.HolidayID, date time.Time, description string) (_ *models.Holiday, err error) {
	ctx, span, start := s.startSpan(ctx, "update_holiday", attribute.String("holiday.id", holidayID.String()))
	defer func() { s.endSpan(span, "update_holiday", start, err) }()

	current, err := s.store.FindHoliday(ctx, holidayID)
	if err != nil {
		return nil, translateStoreError(err, "holiday", "failed to load holiday")
	}
	next := *current
	if err := next.Set(date, description); err != nil {
		return nil, toValidation(err)
	}
	changes := map[string]audit.Change{}
	if !next.Date.Equal(current.Date) {
		changes["date"] = audit.Change{Old: current.Date.Format(models.DateLayout), New: next.Date.Format(models.DateLayout)}
	}
	if next.Description != current.Description {
		changes["description"] = audit.Change{Old: current.Description, New: next.Description}
	}
	if len(changes) == 0 {
		return current, nil
	}
	if err := s.store.UpdateHoliday(ctx, &next); err != nil {
		return nil, translateStoreError(err, "holiday", "failed to update holiday")
	}
	s.emitAudit(ctx, AuditTableHoliday, holidayID.String(), audit.ActionUpdated, changes)
	return &next, nil
}

func (s *Service) DeleteHoliday(ctx context.Context, holidayID id.HolidayID) (err error) {
	ctx, span, start := s.startSpan(ctx, "delete_holiday", attribute.String("holiday.id", holidayID.String()))
	defer func() { s.endSpan(span, "delete_holiday", start, err) }()

	current, err := s.store.FindHoliday(ctx, holidayID)
	if err != nil {
		return translateStoreError(err, "holiday", "failed to load holiday")
	}
	if err := s.store.DeleteHoliday(ctx, holidayID); err != nil {
		return translateStoreError(err, "holiday", "failed to delete holiday")
	}
	s.emitAudit(ctx, AuditTableHoliday, holidayID.String(), audit.ActionDeleted, map[string]audit.Change{
		"date":        {Old: current.Date.Format(models.DateLayout)},
		"description": {Old: current.Description},
	})
	return nil
}

// ListHolidays returns the holidays of one calendar year, by date.
func (s *Service) ListHolidays(ctx context.Context, year int) (_ []*models.Holiday, err error) {
	ctx, span, start := s.startSpan(ctx, "list_holidays", attribute.Int("holiday.year", year))
	defer func() { s.endSpan(span, "list_holidays", start, err) }()

	list, err := s.store.ListHolidays(ctx, models.Date(year, time.January, 1), models.CutoffDate(year))
	if err != nil {
		return nil, translateStoreError(err, "holiday", "failed to list holidays")
	}
	return list, nil
}

// SetWorkPlan creates or replaces the work plan of an employee.
func (s *Service) SetWorkPlan(ctx context.Context, employeeID id.EmployeeID, days [7]bool, startTime, endTime string) (_ *models.WorkPlan, err error) {
	ctx, span, start := s.startSpan(ctx, "set_work_plan", attribute.String("employee.id", employeeID.String()))
	defer func() { s.endSpan(span, "set_work_plan", start, err) }()

	p, err := models.NewWorkPlan(employeeID, days, startTime, endTime)
	if err != nil {
		return nil, toValidation(err)
	}
	if err := s.requireEmployee(ctx, employeeID); err != nil {
		return nil, err
	}
	if err := s.store.SaveWorkPlan(ctx, p); err != nil {
		return nil, translateStoreError(err, "work plan", "failed to save work plan")
	}
	return p, nil
}

func (s *Service) GetWorkPlan(ctx context.Context, employeeID id.EmployeeID) (_ *models.WorkPlan, err error) {
	ctx, span, start := s.startSpan(ctx, "get_work_plan", attribute.String("employee.id", employeeID.String()))
	defer func() { s.endSpan(span, "get_work_plan", start, err) }()

	p, err := s.store.FindWorkPlan(ctx, employeeID)
	if err != nil {
		return nil, translateStoreError(err, "work plan", "failed to load work plan")
	}
	return p, nil
}

// CreateLeaveType registers a leave type. maxDays zero makes it a free leave.
func (s *Service) CreateLeaveType(ctx context.Context, description string, maxDays int, paid bool) (_ *models.LeaveType, err error) {
	ctx, span, start := s.startSpan(ctx, "create_leave_type")
	defer func() { s.endSpan(span, "create_leave_type", start, err) }()

	t, err := models.NewLeaveType(id.NewLeaveTypeID(), description, maxDays, paid)
	if err != nil {
		return nil, toValidation(err)
	}
	if err := s.store.CreateLeaveType(ctx, t); err != nil {
		return nil, translateStoreError(err, "leave type", "failed to create leave type")
	}
	return t, nil
}

func (s *Service) ListLeaveTypes(ctx context.Context) (_ []*models.LeaveType, err error) {
	ctx, span, start := s.startSpan(ctx, "list_leave_types")
	defer func() { s.endSpan(span, "list_leave_types", start, err) }()

	list, err := s.store.ListLeaveTypes(ctx)
	if err != nil {
		return nil, translateStoreError(err, "leave type", "failed to list leave types")
	}
	return list, nil
}

// SubmitInput is a new leave or vacation request.
type SubmitInput struct {
	EmployeeID id.EmployeeID
	Kind       models.Kind
	TypeID     id.LeaveTypeID
	From       time.Time
	To         time.Time
	Comment    string
}

// Submit checks a request against the leave rules and stores it pending.
// A request the rules refuse is not stored; the error carries the reason.
// Warnings of an accepted request are returned alongside it.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (_ *models.Request, _ []string, err error) {
	ctx, span, start := s.startSpan(ctx, "submit",
		attribute.String("employee.id", in.EmployeeID.String()),
		attribute.String("leave.kind", string(in.Kind)),
	)
	defer func() { s.endSpan(span, "submit", start, err) }()

	now := requestcontext.Now(ctx)
	r, err := models.NewRequest(id.NewLeaveRequestID(), in.EmployeeID, in.Kind, in.TypeID, in.From, in.To, in.Comment, now)
	if err != nil {
		return nil, nil, toValidation(err)
	}
	if err := s.requireEmployee(ctx, r.EmployeeID); err != nil {
		return nil, nil, err
	}

	check, err := s.checkInput(ctx, r, models.StageSubmit)
	if err != nil {
		return nil, nil, err
	}
	warnings, err := models.Check(check)
	if err != nil {
		var rej *models.Rejection
		if errors.As(err, &rej) {
			s.metrics.IncrementRefused(string(r.Kind))
			s.logger.InfoContext(ctx, "leave request refused",
				"employee_id", r.EmployeeID.String(),
				"kind", string(r.Kind),
				"reason", rej.Reason,
				"request_id", requestcontext.RequestID(ctx),
			)
			return nil, nil, dErrors.New(dErrors.CodeValidation, rej.Reason)
		}
		return nil, nil, err
	}

	if err := s.store.CreateRequest(ctx, r); err != nil {
		return nil, nil, translateStoreError(err, "leave request", "failed to store leave request")
	}
	span.SetAttributes(attribute.String("leave.request_id", r.ID.String()))
	s.metrics.IncrementSubmitted(string(r.Kind))
	s.logger.InfoContext(ctx, "leave request submitted",
		"leave_request_id", r.ID.String(),
		"employee_id", r.EmployeeID.String(),
		"kind", string(r.Kind),
		"days", r.Days(),
		"warnings", len(warnings),
		"request_id", requestcontext.RequestID(ctx),
	)
	s.emitAudit(ctx, AuditTableRequest, r.ID.String(), audit.ActionCreated, map[string]audit.Change{
		"employee_id": {New: r.EmployeeID.String()},
		"kind":        {New: string(r.Kind)},
		"from":        {New: r.From.Format(models.DateLayout)},
		"to":          {New: r.To.Format(models.DateLayout)},
		"status":      {New: string(r.Status)},
	})
	return r, warnings, nil
}

func (s *Service) GetRequest(ctx context.Context, requestID id.LeaveRequestID) (_ *models.Request, err error) {
	ctx, span, start := s.startSpan(ctx, "get_request", attribute.String("leave.request_id", requestID.String()))
	defer func() { s.endSpan(span, "get_request", start, err) }()

	r, err := s.store.FindRequest(ctx, requestID)
	if err != nil {
		return nil, translateStoreError(err, "leave request", "failed to load leave request")
	}
	return r, nil
}

func (s *Service) ListRequests(ctx context.Context, f models.RequestFilter) (_ []*models.Request, err error) {
	ctx, span, start := s.startSpan(ctx, "list_requests")
	defer func() { s.endSpan(span, "list_requests", start, err) }()

	list, err := s.store.ListRequests(ctx, f)
	if err != nil {
		return nil, translateStoreError(err, "leave request", "failed to list leave requests")
	}
	return list, nil
}

// Decision is the outcome of an approval.
type Decision struct {
	Request *models.Request
	// AutoRejected is set when the request no longer passed the leave rules
	// and was rejected instead; Reason says why.
	AutoRejected bool
	Reason       string
	Warnings     []string
	// DaysConsumed is the number of vacation days drawn from grants.
	DaysConsumed int
}

// Approve re-checks a pending request and approves it, or rejects it when
// the rules now refuse it. note and any warnings are appended to the
// manager note. Approving a vacation consumes the employee's grants.
func (s *Service) Approve(ctx context.Context, requestID id.LeaveRequestID, note string) (_ Decision, err error) {
	ctx, span, start := s.startSpan(ctx, "approve", attribute.String("leave.request_id", requestID.String()))
	defer func() { s.endSpan(span, "approve", start, err) }()

	r, err := s.store.FindRequest(ctx, requestID)
	if err != nil {
		return Decision{}, translateStoreError(err, "leave request", "failed to load leave request")
	}
	if r.Status != models.StatusPending {
		return Decision{}, dErrors.New(dErrors.CodeConflict, "request is already "+string(r.Status))
	}

	check, err := s.checkInput(ctx, r, models.StageApprove)
	if err != nil {
		return Decision{}, err
	}
	now := requestcontext.Now(ctx)
	warnings, err := models.Check(check)
	var rej *models.Rejection
	switch {
	case errors.As(err, &rej):
		if err := r.Reject(rej.Reason, now); err != nil {
			return Decision{}, err
		}
		if err := s.store.Decide(ctx, r, nil); err != nil {
			return Decision{}, translateStoreError(err, "leave request", "failed to reject leave request")
		}
		s.metrics.IncrementDecision(metrics.DecisionAutoRejected)
		s.logger.InfoContext(ctx, "leave request rejected on approval",
			"leave_request_id", r.ID.String(),
			"reason", rej.Reason,
			"request_id", requestcontext.RequestID(ctx),
		)
		s.auditDecision(ctx, r)
		return Decision{Request: r, AutoRejected: true, Reason: rej.Reason}, nil
	case err != nil:
		return Decision{}, err
	}

	if err := r.Approve(note, now); err != nil {
		return Decision{}, err
	}
	r.AppendNote(models.WarningNote(warnings))

	var consume models.ConsumeFunc
	consumed := 0
	if r.Kind == models.KindVacation {
		consumed = r.Days()
		consume = func(current []*models.Grant) []*models.Grant {
			return models.Consume(current, r, id.NewVacationGrantID)
		}
	}
	if err := s.store.Decide(ctx, r, consume); err != nil {
		return Decision{}, translateStoreError(err, "leave request", "failed to approve leave request")
	}
	s.metrics.IncrementDecision(metrics.DecisionApproved)
	s.metrics.AddVacationDays(consumed)
	s.logger.InfoContext(ctx, "leave request approved",
		"leave_request_id", r.ID.String(),
		"kind", string(r.Kind),
		"days_consumed", consumed,
		"request_id", requestcontext.RequestID(ctx),
	)
	s.auditDecision(ctx, r)
	return Decision{Request: r, Warnings: warnings, DaysConsumed: consumed}, nil
}

// Reject rejects a pending request. reason is required.
func (s *Service) Reject(ctx context.Context, requestID id.LeaveRequestID, reason string) (_ *models.Request, err error) {
	ctx, span, start := s.startSpan(ctx, "reject", attribute.String("leave.request_id", requestID.String()))
	defer func() { s.endSpan(span, "reject", start, err) }()

	if reason == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "reason is required")
	}
	r, err := s.store.FindRequest(ctx, requestID)
	if err != nil {
		return nil, translateStoreError(err, "leave request", "failed to load leave request")
	}
	if err := r.Reject(reason, requestcontext.Now(ctx)); err != nil {
		return nil, err
	}
	if err := s.store.Decide(ctx, r, nil); err != nil {
		return nil, translateStoreError(err, "leave request", "failed to reject leave request")
	}
	s.metrics.IncrementDecision(metrics.DecisionRejected)
	s.auditDecision(ctx, r)
	return r, nil
}

// VacationDays is the entitlement for year of an employee hired on hire,
// computed at the end of that year.
func (s *Service) VacationDays(hire time.Time, year int) int {
	return models.VacationDays(hire, models.CutoffDate(year))
}

// GrantYear creates or refreshes the vacation grant of year for an
// employee. Days already consumed from it are kept.
func (s *Service) GrantYear(ctx context.Context, employeeID id.EmployeeID, year int, hire time.Time) (_ *models.Grant, err error) {
	ctx, span, start := s.startSpan(ctx, "grant_year",
		attribute.String("employee.id", employeeID.String()),
		attribute.Int("vacation.year", year),
	)
	defer func() { s.endSpan(span, "grant_year", start, err) }()

	if err := s.requireEmployee(ctx, employeeID); err != nil {
		return nil, err
	}
	existing, err := s.store.ListGrants(ctx, employeeID)
	if err != nil {
		return nil, translateStoreError(err, "vacation grant", "failed to load vacation grants")
	}
	g := models.YearlyGrant(existing, employeeID, year, s.VacationDays(hire, year), id.NewVacationGrantID)
	if err := s.store.SaveGrant(ctx, g); err != nil {
		return nil, translateStoreError(err, "vacation grant", "failed to save vacation grant")
	}
	s.logger.InfoContext(ctx, "vacation grant generated",
		"employee_id", employeeID.String(),
		"year", year,
		"available", g.Available,
		"consumed", g.Consumed,
	)
	return g, nil
}

// Grants lists the vacation grants of an employee, oldest first.
func (s *Service) Grants(ctx context.Context, employeeID id.EmployeeID) (_ []*models.Grant, err error) {
	ctx, span, start := s.startSpan(ctx, "grants", attribute.String("employee.id", employeeID.String()))
	defer func() { s.endSpan(span, "grants", start, err) }()

	list, err := s.store.ListGrants(ctx, employeeID)
	if err != nil {
		return nil, translateStoreError(err, "vacation grant", "failed to load vacation grants")
	}
	return list, nil
}

// checkInput loads what the rules need for r.
func (s *Service) checkInput(ctx context.Context, r *models.Request, stage models.Stage) (models.CheckInput, error) {
	in := models.CheckInput{Request: r, Today: requestcontext.Now(ctx), Stage: stage}

	g, gctx := errgroup.WithContext(ctx)
	if r.Kind == models.KindLeave {
		g.Go(func() error {
			t, err := s.store.FindLeaveType(gctx, r.TypeID)
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeValidation, "unknown leave type")
			}
			if err != nil {
				return translateStoreError(err, "leave type", "failed to load leave type")
			}
			in.Type = t
			return nil
		})
	}
	g.Go(func() error {
		p, err := s.store.FindWorkPlan(gctx, r.EmployeeID)
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return nil
		case err != nil:
			return translateStoreError(err, "work plan", "failed to load work plan")
		}
		in.Plan = p
		return nil
	})
	g.Go(func() error {
		list, err := s.store.ListHolidays(gctx, r.From, r.To)
		if err != nil {
			return translateStoreError(err, "holiday", "failed to load holidays")
		}
		in.Holidays = make([]time.Time, 0, len(list))
		for _, h := range list {
			in.Holidays = append(in.Holidays, h.Date)
		}
		return nil
	})
	g.Go(func() error {
		others, err := s.store.ListRequests(gctx, models.RequestFilter{From: r.From, To: r.To})
		if err != nil {
			return translateStoreError(err, "leave request", "failed to load overlapping requests")
		}
		in.Others = others
		return nil
	})
	if err := g.Wait(); err != nil {
		return models.CheckInput{}, err
	}
	return in, nil
}

func (s *Service) requireEmployee(ctx context.Context, employeeID id.EmployeeID) error {
	if s.employees == nil {
		return nil
	}
	_, err := s.employees.Get(ctx, employeeID)
	return err
}

func (s *Service) auditDecision(ctx context.Context, r *models.Request) {
	changes := map[string]audit.Change{
		"status": {Old: string(models.StatusPending), New: string(r.Status)},
	}
	if r.ManagerNote != "" {
		changes["manager_note"] = audit.Change{New: r.ManagerNote}
	}
	s.emitAudit(ctx, AuditTableRequest, r.ID.String(), audit.ActionUpdated, changes)
}

func (s *Service) emitAudit(ctx context.Context, table, recordID string, action audit.Action, changes map[string]audit.Change) {
	if s.auditPublisher == nil {
		return
	}
	_, err := s.auditPublisher.Emit(ctx, audit.Event{
		Table:    table,
		RecordID: recordID,
		Action:   action,
		Changes:  changes,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to emit audit event",
			"table", table,
			"record_id", recordID,
			"action", string(action),
			"error", err,
		)
	}
}

func (s *Service) startSpan(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span, time.Time) {
	ctx, span := s.tracer.Start(ctx, "leave."+operation, trace.WithAttributes(attrs...))
	return ctx, span, time.Now()
}

func (s *Service) endSpan(span trace.Span, operation string, start time.Time, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
	s.metrics.ObserveOperation(operation, start)
}

func translateStoreError(err error, entity, msg string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, entity+" not found")
	case errors.Is(err, sentinel.ErrAlreadyUsed):
		if entity == "holiday" {
			return dErrors.New(dErrors.CodeConflict, "a holiday already exists on that date")
		}
		return dErrors.New(dErrors.CodeConflict, entity+" already exists")
	case errors.Is(err, sentinel.ErrModified):
		return dErrors.New(dErrors.CodeConflict, entity+" was decided by another request; reload and retry")
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "leave store unavailable")
	case errors.Is(err, context.DeadlineExceeded):
		return dErrors.Wrap(err, dErrors.CodeTimeout, msg)
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, msg)
	}
}

// toValidation surfaces model invariant violations as request validation errors.
func toValidation(err error) error {
	if de, ok := dErrors.As(err); ok && de.Code == dErrors.CodeInvariantViolation {
		return dErrors.New(dErrors.CodeValidation, de.Message)
	}
	return err
}
