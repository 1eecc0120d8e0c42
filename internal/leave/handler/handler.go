package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"legajo/internal/leave/models"
	"legajo/internal/leave/service"
	id "legajo/pkg/domain"
	dErrors "legajo/pkg/domain-errors"
	"legajo/pkg/platform/httputil"
	"legajo/pkg/requestcontext"
)

const (
	minYear = 1900
	maxYear = 9999
)

// Service defines the leave operations the HTTP layer needs.
type Service interface {
	CreateHoliday(ctx context.Context, date time.Time, description string) (*models.Holiday, error)
	UpdateHoliday(ctx context.Context, holidayID id.HolidayID, date time.Time, description string) (*models.Holiday, error)
	DeleteHoliday(ctx context.Context, holidayID id.HolidayID) error
	ListHolidays(ctx context.Context, year int) ([]*models.Holiday, error)
	SetWorkPlan(ctx context.Context, employeeID id.EmployeeID, days [7]bool, start, end string) (*models.WorkPlan, error)
	GetWorkPlan(ctx context.Context, employeeID id.EmployeeID) (*models.WorkPlan, error)
	CreateLeaveType(ctx context.Context, description string, maxDays int, paid bool) (*models.LeaveType, error)
	ListLeaveTypes(ctx context.Context) ([]*models.LeaveType, error)
	Submit(ctx context.Context, in service.SubmitInput) (*models.Request, []string, error)
	GetRequest(ctx context.Context, requestID id.LeaveRequestID) (*models.Request, error)
	ListRequests(ctx context.Context, f models.RequestFilter) ([]*models.Request, error)
	Approve(ctx context.Context, requestID id.LeaveRequestID, note string) (service.Decision, error)
	Reject(ctx context.Context, requestID id.LeaveRequestID, reason string) (*models.Request, error)
	VacationDays(hire time.Time, year int) int
	GrantYear(ctx context.Context, employeeID id.EmployeeID, year int, hire time.Time) (*models.Grant, error)
	Grants(ctx context.Context, employeeID id.EmployeeID) ([]*models.Grant, error)
}

// Handler wires leave endpoints to the leave service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts leave endpoints under /leave.
func (h *Handler) Register(r chi.Router) {
	r.Route("/leave", func(r chi.Router) {
		r.Get("/holidays", h.HandleListHolidays)
		r.Post("/holidays", h.HandleCreateHoliday)
		r.Put("/holidays/{id}", h.HandleUpdateHoliday)
		r.Delete("/holidays/{id}", h.HandleDeleteHoliday)

		r.Get("/work-plans/{employeeID}", h.HandleGetWorkPlan)
		r.Put("/work-plans/{employeeID}", h.HandleSetWorkPlan)

		r.Get("/types", h.HandleListTypes)
		r.Post("/types", h.HandleCreateType)

		r.Post("/requests", h.HandleSubmit)
		r.Get("/requests", h.HandleListRequests)
		r.Get("/requests/{id}", h.HandleGetRequest)
		r.Post("/requests/{id}/approve", h.HandleApprove)
		r.Post("/requests/{id}/reject", h.HandleReject)

		r.Get("/vacation-days", h.HandleVacationDays)
		r.Post("/vacation-grants", h.HandleGrantYear)
		r.Get("/vacation-grants/{employeeID}", h.HandleListGrants)
	})
}

// HandleListHolidays handles GET /leave/holidays?year=. The year defaults
// to the current one.
func (h *Handler) HandleListHolidays(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	year, ok := h.year(w, r, requestcontext.Now(ctx).Year())
	if !ok {
		return
	}
	list, err := h.service.ListHolidays(ctx, year)
	if err != nil {
		h.logFailure(ctx, "failed to list holidays", err)
		httputil.WriteError(w, err)
		return
	}
	resp := &HolidayListResponse{Year: year, Holidays: make([]*HolidayResponse, 0, len(list))}
	for _, hol := range list {
		resp.Holidays = append(resp.Holidays, FromHoliday(hol))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// HandleCreateHoliday handles POST /leave/holidays.
func (h *Handler) HandleCreateHoliday(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[HolidayRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	hol, err := h.service.CreateHoliday(ctx, req.parsedDate, req.Description)
	if err != nil {
		h.logFailure(ctx, "failed to create holiday", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FromHoliday(hol))
}

// HandleUpdateHoliday handles PUT /leave/holidays/{id}.
func (h *Handler) HandleUpdateHoliday(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	holidayID, err := id.ParseHolidayID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[HolidayRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	hol, err := h.service.UpdateHoliday(ctx, holidayID, req.parsedDate, req.Description)
	if err != nil {
		h.logFailure(ctx, "failed to update holiday", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromHoliday(hol))
}

// HandleDeleteHoliday handles DELETE /leave/holidays/{id}.
func (h *Handler) HandleDeleteHoliday(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	holidayID, err := id.ParseHolidayID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.DeleteHoliday(ctx, holidayID); err != nil {
		h.logFailure(ctx, "failed to delete holiday", err)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleGetWorkPlan handles GET /leave/work-plans/{employeeID}.
func (h *Handler) HandleGetWorkPlan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	employeeID, ok := h.employeeID(w, r)
	if !ok {
		return
	}
	p, err := h.service.GetWorkPlan(ctx, employeeID)
	if err != nil {
		h.logFailure(ctx, "failed to load work plan", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromWorkPlan(p))
}

// HandleSetWorkPlan handles PUT /leave/work-plans/{employeeID}.
func (h *Handler) HandleSetWorkPlan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	employeeID, ok := h.employeeID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[WorkPlanRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	p, err := h.service.SetWorkPlan(ctx, employeeID, req.parsedDays, req.Start, req.End)
	if err != nil {
		h.logFailure(ctx, "failed to save work plan", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromWorkPlan(p))
}

// HandleListTypes handles GET /leave/types.
func (h *Handler) HandleListTypes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	list, err := h.service.ListLeaveTypes(ctx)
	if err != nil {
		h.logFailure(ctx, "failed to list leave types", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromLeaveTypes(list))
}

// HandleCreateType handles POST /leave/types.
func (h *Handler) HandleCreateType(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[LeaveTypeRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	t, err := h.service.CreateLeaveType(ctx, req.Description, req.MaxDays, req.Paid)
	if err != nil {
		h.logFailure(ctx, "failed to create leave type", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FromLeaveType(t))
}

// HandleSubmit handles POST /leave/requests.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[SubmitRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	lr, warnings, err := h.service.Submit(ctx, req.input)
	if err != nil {
		h.logFailure(ctx, "leave request not accepted", err)
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "leave submit handled",
		"request_id", requestID,
		"leave_request_id", lr.ID.String(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusCreated, &SubmitResponse{Request: FromRequest(lr), Warnings: nonNil(warnings)})
}

// HandleListRequests handles GET /leave/requests?employee_id=&status=&from=&to=.
func (h *Handler) HandleListRequests(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	var f models.RequestFilter
	if raw := q.Get("employee_id"); raw != "" {
		employeeID, err := id.ParseEmployeeID(raw)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		f.EmployeeID = employeeID
	}
	if raw := q.Get("status"); raw != "" {
		status, ok := models.ParseStatus(raw)
		if !ok {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "status must be pending, approved or rejected"))
			return
		}
		f.Status = status
	}
	if q.Get("from") != "" || q.Get("to") != "" {
		var err error
		if f.From, err = parseDate("from", q.Get("from")); err != nil {
			httputil.WriteError(w, err)
			return
		}
		if f.To, err = parseDate("to", q.Get("to")); err != nil {
			httputil.WriteError(w, err)
			return
		}
	}

	list, err := h.service.ListRequests(ctx, f)
	if err != nil {
		h.logFailure(ctx, "failed to list leave requests", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromRequests(list))
}

// HandleGetRequest handles GET /leave/requests/{id}.
func (h *Handler) HandleGetRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID, ok := h.requestID(w, r)
	if !ok {
		return
	}
	lr, err := h.service.GetRequest(ctx, requestID)
	if err != nil {
		h.logFailure(ctx, "failed to load leave request", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromRequest(lr))
}

// HandleApprove handles POST /leave/requests/{id}/approve. A request the
// rules no longer accept comes back rejected with 200 and auto_rejected set.
func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID, ok := h.requestID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[DecisionRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	d, err := h.service.Approve(ctx, requestID, req.Note)
	if err != nil {
		h.logFailure(ctx, "failed to approve leave request", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromDecision(d))
}

// HandleReject handles POST /leave/requests/{id}/reject.
func (h *Handler) HandleReject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID, ok := h.requestID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[DecisionRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	lr, err := h.service.Reject(ctx, requestID, req.Note)
	if err != nil {
		h.logFailure(ctx, "failed to reject leave request", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromRequest(lr))
}

// HandleVacationDays handles GET /leave/vacation-days?hire_date=&year=.
func (h *Handler) HandleVacationDays(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	hire, err := parseDate("hire_date", r.URL.Query().Get("hire_date"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	year, ok := h.year(w, r, requestcontext.Now(ctx).Year())
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &VacationDaysResponse{
		HireDate: formatDate(hire),
		Year:     year,
		Cutoff:   formatDate(models.CutoffDate(year)),
		Days:     h.service.VacationDays(hire, year),
	})
}

// HandleGrantYear handles POST /leave/vacation-grants.
func (h *Handler) HandleGrantYear(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[GrantRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	g, err := h.service.GrantYear(ctx, req.employeeID, req.Year, req.hire)
	if err != nil {
		h.logFailure(ctx, "failed to generate vacation grant", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromGrant(g))
}

// HandleListGrants handles GET /leave/vacation-grants/{employeeID}.
func (h *Handler) HandleListGrants(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	employeeID, ok := h.employeeID(w, r)
	if !ok {
		return
	}
	list, err := h.service.Grants(ctx, employeeID)
	if err != nil {
		h.logFailure(ctx, "failed to load vacation grants", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromGrants(list))
}

func (h *Handler) year(w http.ResponseWriter, r *http.Request, fallback int) (int, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get("year"))
	if raw == "" {
		return fallback, true
	}
	year, err := strconv.Atoi(raw)
	if err != nil || year < minYear || year > maxYear {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "year must be a four-digit number"))
		return 0, false
	}
	return year, true
}

func (h *Handler) employeeID(w http.ResponseWriter, r *http.Request) (id.EmployeeID, bool) {
	employeeID, err := id.ParseEmployeeID(chi.URLParam(r, "employeeID"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.EmployeeID{}, false
	}
	return employeeID, true
}

func (h *Handler) requestID(w http.ResponseWriter, r *http.Request) (id.LeaveRequestID, bool) {
	requestID, err := id.ParseLeaveRequestID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.LeaveRequestID{}, false
	}
	return requestID, true
}

func (h *Handler) logFailure(ctx context.Context, msg string, err error) {
	level := slog.LevelWarn
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		level = slog.LevelError
	}
	h.logger.Log(ctx, level, msg,
		"request_id", requestcontext.RequestID(ctx),
		"actor", requestcontext.Actor(ctx),
		"client_ip", requestcontext.ClientIP(ctx),
		"error", err,
	)
}
