package handler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"legajo/internal/audit"
	"legajo/internal/employee/models"
	"legajo/internal/employee/service"
	id "legajo/pkg/domain"
	dErrors "legajo/pkg/domain-errors"
	"legajo/pkg/platform/httputil"
	"legajo/pkg/requestcontext"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Service defines the employee operations the HTTP layer needs.
type Service interface {
	PreviewCUIL(ctx context.Context, dni, sexCode string) service.Preview
	Create(ctx context.Context, profile models.Profile) (*models.Employee, error)
	Get(ctx context.Context, employeeID id.EmployeeID) (*models.Employee, error)
	Update(ctx context.Context, employeeID id.EmployeeID, update models.ProfileUpdate) (*models.Employee, models.Changes, error)
	Delete(ctx context.Context, employeeID id.EmployeeID) error
	Search(ctx context.Context, q string, limit int) ([]*models.Employee, error)
	History(ctx context.Context, employeeID id.EmployeeID) ([]audit.Event, error)
	ExportRoster(ctx context.Context, w io.Writer) error
}

// Handler wires employee endpoints to the employee service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts employee endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/cuil/preview", h.HandlePreviewCUIL)
	r.Route("/employees", func(r chi.Router) {
		r.Get("/", h.HandleSearch)
		r.Post("/", h.HandleCreate)
		r.Get("/export.xlsx", h.HandleExport)
		r.Get("/{id}", h.HandleGet)
		r.Patch("/{id}", h.HandleUpdate)
		r.Delete("/{id}", h.HandleDelete)
		r.Get("/{id}/audit", h.HandleHistory)
	})
}

// HandlePreviewCUIL handles POST /cuil/preview.
func (h *Handler) HandlePreviewCUIL(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[PreviewCUILRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromPreview(h.service.PreviewCUIL(ctx, req.DNI, req.Sex)))
}

// HandleCreate handles POST /employees.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[CreateEmployeeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	e, err := h.service.Create(ctx, req.ToProfile())
	if err != nil {
		h.logFailure(ctx, "failed to create employee", err)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "employee create handled",
		"request_id", requestID,
		"employee_id", e.ID.String(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusCreated, FromEmployee(e))
}

// HandleGet handles GET /employees/{id}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	employeeID, ok := h.employeeID(w, r)
	if !ok {
		return
	}

	e, err := h.service.Get(ctx, employeeID)
	if err != nil {
		h.logFailure(ctx, "failed to load employee", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromEmployee(e))
}

// HandleUpdate handles PATCH /employees/{id}.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	employeeID, ok := h.employeeID(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[UpdateEmployeeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	e, changes, err := h.service.Update(ctx, employeeID, req.ToUpdate())
	if err != nil {
		h.logFailure(ctx, "failed to update employee", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &UpdateEmployeeResponse{
		Employee:      FromEmployee(e),
		ChangedFields: changes.Fields(),
	})
}

// HandleDelete handles DELETE /employees/{id}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	employeeID, ok := h.employeeID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(ctx, employeeID); err != nil {
		h.logFailure(ctx, "failed to delete employee", err)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleSearch handles GET /employees?q=&limit=.
func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query().Get("q")
	if utf8.RuneCountInString(q) > maxQueryInput {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "q must be at most 60 characters"))
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "limit must be a non-negative integer"))
			return
		}
		limit = n
	}

	list, err := h.service.Search(ctx, q, limit)
	if err != nil {
		h.logFailure(ctx, "employee search failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromSearch(list))
}

// HandleHistory handles GET /employees/{id}/audit.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	employeeID, ok := h.employeeID(w, r)
	if !ok {
		return
	}

	events, err := h.service.History(ctx, employeeID)
	if err != nil {
		h.logFailure(ctx, "failed to load audit history", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromHistory(events))
}

// HandleExport handles GET /employees/export.xlsx. The workbook is built in
// memory first so a failure still yields a JSON error.
func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var buf bytes.Buffer
	if err := h.service.ExportRoster(ctx, &buf); err != nil {
		h.logFailure(ctx, "roster export failed", err)
		httputil.WriteError(w, err)
		return
	}

	filename := fmt.Sprintf("legajos-%s.xlsx", requestcontext.Now(ctx).Format("20060102"))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (h *Handler) employeeID(w http.ResponseWriter, r *http.Request) (id.EmployeeID, bool) {
	employeeID, err := id.ParseEmployeeID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.EmployeeID{}, false
	}
	return employeeID, true
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
