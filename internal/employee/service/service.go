package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"legajo/internal/audit"
	"legajo/internal/employee/export"
	"legajo/internal/employee/metrics"
	"legajo/internal/employee/models"
	"legajo/internal/employee/store"
	"legajo/pkg/cuil"
	id "legajo/pkg/domain"
	dErrors "legajo/pkg/domain-errors"
	"legajo/pkg/platform/sentinel"
	"legajo/pkg/requestcontext"
)

// AuditTable is the table name recorded on employee audit events.
const AuditTable = "empleado"

type Store interface {
	Create(ctx context.Context, e *models.Employee) error
	FindByID(ctx context.Context, employeeID id.EmployeeID) (*models.Employee, error)
	// Update fails with sentinel.ErrModified when the stored record no
	// longer carries expectedUpdatedAt.
	Update(ctx context.Context, e *models.Employee, expectedUpdatedAt time.Time) error
	Delete(ctx context.Context, employeeID id.EmployeeID) error
	Search(ctx context.Context, q models.SearchQuery) ([]*models.Employee, error)
	ListAll(ctx context.Context) ([]*models.Employee, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) (bool, error)
	History(ctx context.Context, table, recordID string) ([]audit.Event, error)
}

// Service manages personnel records. The CUIL of every record is derived
// here from DNI and sex; callers never supply it.
type Service struct {
	store          Store
	generator      cuil.Generator
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

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tracer
	}
}

// WithGenerator replaces the CUIL generator. Defaults to cuil.Standard.
func WithGenerator(gen cuil.Generator) Option {
	return func(s *Service) {
		s.generator = gen
	}
}

func New(st Store, opts ...Option) (*Service, error) {
	if st == nil {
		return nil, errors.New("employee store is required")
	}
	s := &Service{
		store:     st,
		generator: cuil.Standard,
		logger:    slog.Default(),
		tracer:    otel.Tracer("legajo/internal/employee/service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.generator == nil {
		return nil, errors.New("cuil generator is required")
	}
	return s, nil
}

// Preview is the CUIL the form shows while DNI and sex are being typed.
type Preview struct {
	// Complete is false when DNI or sex are not fully entered yet; only
	// MaskedDNI is set then, so the form can keep masking as the user types.
	Complete   bool
	CUIL       string
	MaskedCUIL string
	MaskedDNI  string
	Fallback   bool
	Unresolved bool
}

// PreviewCUIL computes the CUIL for a DNI and sex code without storing
// anything. Incomplete input yields an empty Preview, not an error.
func (s *Service) PreviewCUIL(ctx context.Context, dni, sexCode string) Preview {
	_, span, start := s.startSpan(ctx, "preview_cuil")
	defer s.endSpan(span, "preview_cuil", start, nil)

	res, ok := s.generator.Generate(dni, sexCode)
	if !ok {
		s.metrics.IncrementPreview(metrics.PreviewIncomplete)
		return Preview{MaskedDNI: cuil.MaskDNI(dni)}
	}

	outcome := metrics.PreviewComputed
	switch {
	case res.Unresolved():
		outcome = metrics.PreviewUnresolved
	case res.Fallback:
		outcome = metrics.PreviewFallback
	}
	s.metrics.IncrementPreview(outcome)
	span.SetAttributes(attribute.String("cuil.outcome", outcome))

	return Preview{
		Complete:   true,
		CUIL:       res.String(),
		MaskedCUIL: res.Masked(),
		MaskedDNI:  cuil.MaskDNI(res.DNI),
		Fallback:   res.Fallback,
		Unresolved: res.Unresolved(),
	}
}

// Create validates profile, derives the CUIL and stores a new record.
func (s *Service) Create(ctx context.Context, profile models.Profile) (_ *models.Employee, err error) {
	ctx, span, start := s.startSpan(ctx, "create")
	defer func() { s.endSpan(span, "create", start, err) }()

	e, err := models.NewEmployee(id.NewEmployeeID(), profile, s.generator, requestcontext.Now(ctx))
	if err != nil {
		return nil, toValidation(err)
	}
	span.SetAttributes(attribute.String("employee.id", e.ID.String()))

	if err := s.store.Create(ctx, e); err != nil {
		return nil, translateStoreError(err, "failed to create employee")
	}
	s.warnIfUnresolved(ctx, e)
	s.metrics.IncrementCreated()
	s.logger.InfoContext(ctx, "employee created",
		"employee_id", e.ID.String(),
		"request_id", requestcontext.RequestID(ctx),
	)
	s.emitAudit(ctx, e.ID, audit.ActionCreated, models.Diff(nil, e.Fields()))
	return e, nil
}

// Get returns one record.
func (s *Service) Get(ctx context.Context, employeeID id.EmployeeID) (_ *models.Employee, err error) {
	ctx, span, start := s.startSpan(ctx, "get", attribute.String("employee.id", employeeID.String()))
	defer func() { s.endSpan(span, "get", start, err) }()

	e, err := s.store.FindByID(ctx, employeeID)
	if err != nil {
		return nil, translateStoreError(err, "failed to load employee")
	}
	return e, nil
}

// Update applies the set fields of update, re-derives the CUIL and writes the
// record when at least one field really changed. The returned Changes is
// empty for a no-op update, in which case nothing is written or audited.
func (s *Service) Update(ctx context.Context, employeeID id.EmployeeID, update models.ProfileUpdate) (_ *models.Employee, _ models.Changes, err error) {
	ctx, span, start := s.startSpan(ctx, "update", attribute.String("employee.id", employeeID.String()))
	defer func() { s.endSpan(span, "update", start, err) }()

	current, err := s.store.FindByID(ctx, employeeID)
	if err != nil {
		return nil, nil, translateStoreError(err, "failed to load employee")
	}

	next, err := current.WithProfile(current.Profile().Merge(update), s.generator, requestcontext.Now(ctx))
	if err != nil {
		return nil, nil, toValidation(err)
	}

	changes := models.Diff(current.Fields(), next.Fields())
	if changes.Empty() {
		s.metrics.IncrementUpdateSkipped()
		return current, changes, nil
	}
	span.SetAttributes(attribute.StringSlice("employee.changed_fields", changes.Fields()))

	if err := s.store.Update(ctx, next, current.UpdatedAt); err != nil {
		return nil, nil, translateStoreError(err, "failed to update employee")
	}
	s.warnIfUnresolved(ctx, next)
	s.metrics.IncrementUpdated()
	s.logger.InfoContext(ctx, "employee updated",
		"employee_id", next.ID.String(),
		"fields", changes.Fields(),
		"request_id", requestcontext.RequestID(ctx),
	)
	s.emitAudit(ctx, next.ID, audit.ActionUpdated, changes)
	return next, changes, nil
}

// Delete removes a record. Its last values are kept in the audit log.
func (s *Service) Delete(ctx context.Context, employeeID id.EmployeeID) (err error) {
	ctx, span, start := s.startSpan(ctx, "delete", attribute.String("employee.id", employeeID.String()))
	defer func() { s.endSpan(span, "delete", start, err) }()

	current, err := s.store.FindByID(ctx, employeeID)
	if err != nil {
		return translateStoreError(err, "failed to load employee")
	}
	if err := s.store.Delete(ctx, employeeID); err != nil {
		return translateStoreError(err, "failed to delete employee")
	}
	s.metrics.IncrementDeleted()
	s.logger.InfoContext(ctx, "employee deleted",
		"employee_id", employeeID.String(),
		"request_id", requestcontext.RequestID(ctx),
	)
	s.emitAudit(ctx, employeeID, audit.ActionDeleted, models.Diff(current.Fields(), nil))
	return nil
}

// Search backs the autocomplete box: a DNI prefix when q is numeric, a
// name fragment otherwise.
func (s *Service) Search(ctx context.Context, q string, limit int) (_ []*models.Employee, err error) {
	ctx, span, start := s.startSpan(ctx, "search")
	defer func() { s.endSpan(span, "search", start, err) }()

	list, err := s.store.Search(ctx, models.ParseSearchQuery(q, limit))
	if err != nil {
		return nil, translateStoreError(err, "failed to search employees")
	}
	return list, nil
}

// History lists the audit trail of one record, most recent first.
func (s *Service) History(ctx context.Context, employeeID id.EmployeeID) (_ []audit.Event, err error) {
	ctx, span, start := s.startSpan(ctx, "history", attribute.String("employee.id", employeeID.String()))
	defer func() { s.endSpan(span, "history", start, err) }()

	if s.auditPublisher == nil {
		return []audit.Event{}, nil
	}
	events, err := s.auditPublisher.History(ctx, AuditTable, employeeID.String())
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load audit history")
	}
	return events, nil
}

// ExportRoster writes every record as an xlsx workbook to w.
func (s *Service) ExportRoster(ctx context.Context, w io.Writer) (err error) {
	ctx, span, start := s.startSpan(ctx, "export")
	defer func() { s.endSpan(span, "export", start, err) }()

	list, err := s.store.ListAll(ctx)
	if err != nil {
		return translateStoreError(err, "failed to list employees")
	}
	span.SetAttributes(attribute.Int("employee.count", len(list)))
	if err := export.WriteRoster(w, list); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to build roster")
	}
	return nil
}

func (s *Service) emitAudit(ctx context.Context, employeeID id.EmployeeID, action audit.Action, changes models.Changes) {
	if s.auditPublisher == nil {
		return
	}
	payload := make(map[string]audit.Change, len(changes))
	for field, c := range changes {
		payload[field] = audit.Change{Old: c.Old, New: c.New}
	}
	_, err := s.auditPublisher.Emit(ctx, audit.Event{
		Table:    AuditTable,
		RecordID: employeeID.String(),
		Action:   action,
		Changes:  payload,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to emit audit event",
			"employee_id", employeeID.String(),
			"action", string(action),
			"error", err,
		)
	}
}

func (s *Service) warnIfUnresolved(ctx context.Context, e *models.Employee) {
	if cuil.Verify(e.CUIL) {
		return
	}
	s.logger.WarnContext(ctx, "cuil check digit unresolved",
		"employee_id", e.ID.String(),
		"cuil_prefix", e.CUIL[:2],
	)
}

func (s *Service) startSpan(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span, time.Time) {
	ctx, span := s.tracer.Start(ctx, "employee."+operation, trace.WithAttributes(attrs...))
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

func translateStoreError(err error, msg string) error {
	var conflict *store.ConflictError
	switch {
	case errors.As(err, &conflict):
		return dErrors.New(dErrors.CodeConflict, "an employee with this "+conflict.Field+" already exists")
	case errors.Is(err, sentinel.ErrAlreadyUsed):
		return dErrors.New(dErrors.CodeConflict, "employee already exists")
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "employee not found")
	case errors.Is(err, sentinel.ErrModified):
		return dErrors.New(dErrors.CodeConflict, "employee was modified by another request; reload and retry")
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "employee store unavailable")
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
