package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Decisions recorded on leave requests.
const (
	DecisionApproved     = "approved"
	DecisionRejected     = "rejected"
	DecisionAutoRejected = "auto_rejected"
)

var durationBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1}

// Metrics provides observability for the leave module.
// All methods are safe on a nil receiver.
type Metrics struct {
	RequestsSubmitted    *prometheus.CounterVec
	RequestsRefused      *prometheus.CounterVec
	Decisions            *prometheus.CounterVec
	VacationDaysConsumed prometheus.Counter
	OperationDuration    *prometheus.HistogramVec
}

func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RequestsSubmitted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "legajo_leave_requests_submitted_total",
			Help: "Leave and vacation requests accepted for review, by kind",
		}, []string{"kind"}),
		RequestsRefused: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "legajo_leave_requests_refused_total",
			Help: "Requests refused at submission by the leave rules, by kind",
		}, []string{"kind"}),
		Decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "legajo_leave_decisions_total",
			Help: "Decisions on leave requests (approved, rejected, auto_rejected)",
		}, []string{"decision"}),
		VacationDaysConsumed: factory.NewCounter(prometheus.CounterOpts{
			Name: "legajo_vacation_days_consumed_total",
			Help: "Vacation days consumed by approved vacation requests",
		}),
		OperationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "legajo_leave_operation_duration_seconds",
			Help:    "Duration of leave service operations",
			Buckets: durationBuckets,
		}, []string{"operation"}),
	}
}

func (m *Metrics) IncrementSubmitted(kind string) {
	if m == nil {
		return
	}
	m.RequestsSubmitted.WithLabelValues(kind).Inc()
}

func (m *Metrics) IncrementRefused(kind string) {
	if m == nil {
		return
	}
	m.RequestsRefused.WithLabelValues(kind).Inc()
}

// IncrementDecision records one of the Decision* outcomes.
func (m *Metrics) IncrementDecision(decision string) {
	if m == nil {
		return
	}
	m.Decisions.WithLabelValues(decision).Inc()
}

func (m *Metrics) AddVacationDays(days int) {
	if m == nil || days <= 0 {
		return
	}
	m.VacationDaysConsumed.Add(float64(days))
}

func (m *Metrics) ObserveOperation(operation string, start time.Time) {
	if m == nil {
		return
	}
	m.OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
