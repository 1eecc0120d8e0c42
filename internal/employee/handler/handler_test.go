package handler

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"legajo/internal/audit"
	"legajo/internal/employee/service"
	"legajo/internal/employee/store"
	id "legajo/pkg/domain"
	"legajo/pkg/testutil"
)

func newRouter(t *testing.T) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	publisher := audit.NewPublisher(audit.NewInMemoryStore(), logger)
	svc, err := service.New(store.NewInMemory(),
		service.WithLogger(logger),
		service.WithAuditPublisher(publisher),
	)
	require.NoError(t, err)

	r := chi.NewRouter()
	New(svc, logger).Register(r)
	return r
}

func createBody() map[string]any {
	return map[string]any{
		"first_names": "Juan Carlos",
		"last_name":   "Pérez",
		"dni":         "12.345.678",
		"sex":         "1",
		"birth_date":  "1980-05-17",
		"phone":       "351 555-0101",
		"children":    2,
		"cuil":        "99-99999999-9",
	}
}

func create(t *testing.T, router http.Handler, body map[string]any) *EmployeeResponse {
	t.Helper()
	rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/employees", body))
	testutil.AssertStatus(t, rr, http.StatusCreated)
	return testutil.UnmarshalResponse[EmployeeResponse](t, rr)
}

func TestPreviewCUIL(t *testing.T) {
	router := newRouter(t)

	t.Run("complete input", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/cuil/preview",
			map[string]string{"dni": "12345678", "sex": "1"}))
		testutil.AssertStatus(t, rr, http.StatusOK)
		resp := testutil.UnmarshalResponse[PreviewCUILResponse](t, rr)
		assert.True(t, resp.Complete)
		assert.Equal(t, "20-12345678-6", resp.CUIL)
		assert.Equal(t, "20-12.345.678-6", resp.MaskedCUIL)
	})

	t.Run("incomplete input is not an error", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/cuil/preview",
			map[string]string{"dni": "123456", "sex": "2"}))
		testutil.AssertStatus(t, rr, http.StatusOK)
		resp := testutil.UnmarshalResponse[PreviewCUILResponse](t, rr)
		assert.False(t, resp.Complete)
		assert.Empty(t, resp.CUIL)
		assert.Equal(t, "12.345.6", resp.MaskedDNI)
	})

	t.Run("decorated dni within the input bound is normalized", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/cuil/preview",
			map[string]string{"dni": "DNI Nro. 20.123.456 (arg)", "sex": "1"}))
		testutil.AssertStatus(t, rr, http.StatusOK)
		resp := testutil.UnmarshalResponse[PreviewCUILResponse](t, rr)
		assert.True(t, resp.Complete)
		assert.Equal(t, "20-20123456-6", resp.CUIL)
	})

	t.Run("too many digits is incomplete, not an error", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/cuil/preview",
			map[string]string{"dni": "123456789012345678901", "sex": "1"}))
		testutil.AssertStatus(t, rr, http.StatusOK)
		resp := testutil.UnmarshalResponse[PreviewCUILResponse](t, rr)
		assert.False(t, resp.Complete)
	})

	t.Run("input beyond 60 characters", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/cuil/preview",
			map[string]string{"dni": strings.Repeat("1", 61), "sex": "1"}))
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation_error")
	})

	t.Run("malformed json", func(t *testing.T) {
		req := testutil.NewRequest(t, http.MethodPost, "/cuil/preview")
		req.Body = io.NopCloser(bytes.NewBufferString("{"))
		rr := testutil.DoRequest(router, req)
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "bad_request")
	})
}

func TestEmployeeLifecycle(t *testing.T) {
	testutil.Given(t, "an employee registered with a masked dni", func(t *testing.T) {
		router := newRouter(t)
		created := create(t, router, createBody())

		testutil.Then(t, "the cuil is derived and client input is ignored", func(t *testing.T) {
			assert.Equal(t, "20-12.345.678-6", created.CUIL)
			assert.Equal(t, "12.345.678", created.DNI)
			assert.Equal(t, "1980-05-17", created.BirthDate)
		})

		testutil.When(t, "the same dni is registered again", func(t *testing.T) {
			rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/employees", createBody()))
			testutil.AssertStatusAndError(t, rr, http.StatusConflict, "conflict")
		})

		testutil.When(t, "only the dni mask changes", func(t *testing.T) {
			rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPatch, "/employees/"+created.ID,
				map[string]any{"dni": "12345678"}))
			testutil.AssertStatus(t, rr, http.StatusOK)
			resp := testutil.UnmarshalResponse[UpdateEmployeeResponse](t, rr)
			assert.Empty(t, resp.ChangedFields)
		})

		testutil.When(t, "the sex changes", func(t *testing.T) {
			req := testutil.NewJSONRequest(t, http.MethodPatch, "/employees/"+created.ID, map[string]any{"sex": "2"})
			req = testutil.WithRequestID(testutil.WithActor(req, "rrhh.gomez"), "req-42")
			rr := testutil.DoRequest(router, req)
			testutil.AssertStatus(t, rr, http.StatusOK)
			resp := testutil.UnmarshalResponse[UpdateEmployeeResponse](t, rr)
			assert.Equal(t, []string{"cuil", "id_sexo"}, resp.ChangedFields)
			assert.Equal(t, "27-12.345.678-0", resp.Employee.CUIL)
		})

		testutil.Then(t, "the audit trail lists the update before the creation", func(t *testing.T) {
			rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/employees/"+created.ID+"/audit"))
			testutil.AssertStatus(t, rr, http.StatusOK)
			resp := testutil.UnmarshalResponse[HistoryResponse](t, rr)
			require.Len(t, resp.Events, 2)
			assert.Equal(t, "updated", resp.Events[0].Action)
			assert.Equal(t, audit.Change{Old: "20123456786", New: "27123456780"}, resp.Events[0].Changes["cuil"])
			assert.Equal(t, "rrhh.gomez", resp.Events[0].Actor)
			assert.Equal(t, "req-42", resp.Events[0].RequestID)
			assert.Equal(t, "created", resp.Events[1].Action)
		})

		testutil.And(t, "the employee is deleted", func(t *testing.T) {
			rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodDelete, "/employees/"+created.ID))
			testutil.AssertStatus(t, rr, http.StatusNoContent)

			rr = testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/employees/"+created.ID))
			testutil.AssertStatusAndError(t, rr, http.StatusNotFound, "not_found")
		})
	})
}

func TestCreateValidation(t *testing.T) {
	router := newRouter(t)
	tests := []struct {
		name   string
		mutate func(map[string]any)
	}{
		{"missing last name", func(b map[string]any) { delete(b, "last_name") }},
		{"missing sex", func(b map[string]any) { b["sex"] = " " }},
		{"bad birth date", func(b map[string]any) { b["birth_date"] = "17/05/1980" }},
		{"short dni", func(b map[string]any) { b["dni"] = "1234" }},
		{"too many children", func(b map[string]any) { b["children"] = 40 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := createBody()
			tt.mutate(body)
			rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/employees", body))
			testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation_error")
		})
	}
}

func TestGetInvalidID(t *testing.T) {
	router := newRouter(t)

	rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/employees/not-a-uuid"))
	testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "invalid_input")

	rr = testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/employees/"+id.NewEmployeeID().String()))
	testutil.AssertStatusAndError(t, rr, http.StatusNotFound, "not_found")
}

func TestSearch(t *testing.T) {
	router := newRouter(t)
	create(t, router, createBody())
	other := createBody()
	other["first_names"] = "Ana"
	other["last_name"] = "Gómez"
	other["dni"] = "30111222"
	create(t, router, other)

	t.Run("by name", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/employees?q=g%C3%B3"))
		testutil.AssertStatus(t, rr, http.StatusOK)
		resp := testutil.UnmarshalResponse[SearchResponse](t, rr)
		require.Len(t, resp.Results, 1)
		assert.Equal(t, "Gómez, Ana", resp.Results[0].Label)
		assert.Equal(t, "30.111.222", resp.Results[0].DNI)
	})

	t.Run("by dni prefix", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/employees?q=12.3"))
		resp := testutil.UnmarshalResponse[SearchResponse](t, rr)
		require.Len(t, resp.Results, 1)
		assert.Equal(t, "Pérez, Juan Carlos", resp.Results[0].Label)
	})

	t.Run("all, ordered by last name", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/employees"))
		resp := testutil.UnmarshalResponse[SearchResponse](t, rr)
		require.Len(t, resp.Results, 2)
		assert.Equal(t, "Gómez, Ana", resp.Results[0].Label)
	})

	t.Run("query length counts characters, not bytes", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet,
			"/employees?q="+url.QueryEscape(strings.Repeat("é", 40))))
		testutil.AssertStatus(t, rr, http.StatusOK)
		resp := testutil.UnmarshalResponse[SearchResponse](t, rr)
		assert.Empty(t, resp.Results)

		rr = testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet,
			"/employees?q="+url.QueryEscape(strings.Repeat("é", 61))))
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation_error")
	})

	t.Run("bad limit", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/employees?limit=abc"))
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "bad_request")
	})
}

func TestExport(t *testing.T) {
	router := newRouter(t)
	create(t, router, createBody())

	rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/employees/export.xlsx"))
	testutil.AssertStatus(t, rr, http.StatusOK)
	assert.Equal(t, xlsxContentType, rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "legajos-")

	f, err := excelize.OpenReader(rr.Body)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	rows, err := f.GetRows(f.GetSheetName(0))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "20-12.345.678-6", rows[1][3])
}
