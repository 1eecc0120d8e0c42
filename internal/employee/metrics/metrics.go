package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcomes recorded by CUIL previews.
const (
	PreviewComputed   = "computed"
	PreviewFallback   = "fallback"
	PreviewUnresolved = "unresolved"
	PreviewIncomplete = "incomplete"
)

var durationBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1}

// Metrics provides observability for the employee module.
// All methods are safe on a nil receiver so services can run without metrics.
type Metrics struct {
	EmployeesCreated  prometheus.Counter
	EmployeesUpdated  prometheus.Counter
	EmployeesDeleted  prometheus.Counter
	UpdatesSkipped    prometheus.Counter
	CUILPreviews      *prometheus.CounterVec
	CacheLookups      *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
}

// New registers the employee metrics with the default registerer.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers the employee metrics with reg. Tests pass a
// fresh prometheus.NewRegistry() to avoid duplicate registration.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		EmployeesCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "legajo_employees_created_total",
			Help: "Total number of employee records created",
		}),
		EmployeesUpdated: factory.NewCounter(prometheus.CounterOpts{
			Name: "legajo_employees_updated_total",
			Help: "Total number of employee records updated with at least one change",
		}),
		EmployeesDeleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "legajo_employees_deleted_total",
			Help: "Total number of employee records deleted",
		}),
		UpdatesSkipped: factory.NewCounter(prometheus.CounterOpts{
			Name: "legajo_employee_updates_skipped_total",
			Help: "Updates that carried no effective change and were not written",
		}),
		CUILPreviews: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "legajo_cuil_previews_total",
			Help: "CUIL previews by outcome (computed, fallback, unresolved, incomplete)",
		}, []string{"outcome"}),
		CacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "legajo_employee_cache_lookups_total",
			Help: "Employee cache lookups by result (hit, miss)",
		}, []string{"result"}),
		OperationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "legajo_employee_operation_duration_seconds",
			Help:    "Duration of employee service operations",
			Buckets: durationBuckets,
		}, []string{"operation"}),
	}
}

func (m *Metrics) IncrementCreated() {
	if m == nil {
		return
	}
	m.EmployeesCreated.Inc()
}

func (m *Metrics) IncrementUpdated() {
	if m == nil {
		return
	}
	m.EmployeesUpdated.Inc()
}

func (m *Metrics) IncrementDeleted() {
	if m == nil {
		return
	}
	m.EmployeesDeleted.Inc()
}

func (m *Metrics) IncrementUpdateSkipped() {
	if m == nil {
		return
	}
	m.UpdatesSkipped.Inc()
}

// IncrementPreview records a CUIL preview with one of the Preview* outcomes.
func (m *Metrics) IncrementPreview(outcome string) {
	if m == nil {
		return
	}
	m.CUILPreviews.WithLabelValues(outcome).Inc()
}

// ObserveCacheLookup satisfies store.CacheObserver.
func (m *Metrics) ObserveCacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

// ObserveOperation records the duration of a service operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveOperation(operation string, start time.Time) {
	if m == nil {
		return
	}
	m.OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
