package metrics

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

const (
	LifecycleReasonDeadlineExceeded     = "deadline_exceeded"
	LifecycleReasonDBLockTimeout        = "db_lock_timeout"
	LifecycleReasonSerializationFailure = "serialization_failure"
	LifecycleReasonUniqueViolation      = "unique_violation"
	LifecycleReasonBusinessRule         = "business_rule"
	LifecycleReasonUnknown              = "unknown"
)

// LifecycleMetrics captures report lifecycle operation health.
type LifecycleMetrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	failures   *prometheus.CounterVec
	statuses   *prometheus.CounterVec
}

var (
	lifecycleMetricsOnce sync.Once
	lifecycleMetrics     *LifecycleMetrics
)

// Lifecycle returns the singleton lifecycle metrics registry.
func Lifecycle() *LifecycleMetrics {
	return LifecycleWithConfig(Config{})
}

// LifecycleWithConfig returns the singleton lifecycle metrics registry using config labels.
func LifecycleWithConfig(cfg Config) *LifecycleMetrics {
	lifecycleMetricsOnce.Do(func() {
		lifecycleMetrics = newLifecycleMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return lifecycleMetrics
}

func newLifecycleMetrics(registerer prometheus.Registerer, cfg Config) *LifecycleMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	constLabels := constLabelsFor(cfg)

	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "credmatrix_report_operations_total",
		Help:        "Report lifecycle operations by name and outcome.",
		ConstLabels: constLabels,
	}, []string{"operation", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "credmatrix_report_operation_duration_seconds",
		Help:        "Report lifecycle operation latency including the unit of work.",
		Buckets:     []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		ConstLabels: constLabels,
	}, []string{"operation"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "credmatrix_report_operation_failures_total",
		Help:        "Report lifecycle failures by classified reason.",
		ConstLabels: constLabels,
	}, []string{"operation", "reason"})
	statuses := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "credmatrix_report_status_transitions_total",
		Help:        "Report status transitions.",
		ConstLabels: constLabels,
	}, []string{"from", "to"})

	registerer.MustRegister(operations, duration, failures, statuses)

	return &LifecycleMetrics{
		operations: operations,
		duration:   duration,
		failures:   failures,
		statuses:   statuses,
	}
}

// ObserveOperation records the outcome and latency of one operation.
// businessErr reports whether err is an expected domain rejection.
func (m *LifecycleMetrics) ObserveOperation(operation string, elapsed time.Duration, err error, businessErr bool) {
	if m == nil {
		return
	}
	operation = sanitizeLabel(operation)
	m.duration.WithLabelValues(operation).Observe(elapsed.Seconds())

	outcome := "success"
	if err != nil {
		outcome = "error"
		reason := ClassifyLifecycleReason(err)
		if businessErr {
			outcome = "rejected"
			reason = LifecycleReasonBusinessRule
		}
		m.failures.WithLabelValues(operation, reason).Inc()
	}
	m.operations.WithLabelValues(operation, outcome).Inc()
}

func (m *LifecycleMetrics) IncStatusTransition(from, to string) {
	if m == nil {
		return
	}
	m.statuses.WithLabelValues(sanitizeLabel(from), sanitizeLabel(to)).Inc()
}

// ClassifyLifecycleReason maps storage errors to a low-cardinality reason.
func ClassifyLifecycleReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded):
		return LifecycleReasonDeadlineExceeded
	case hasPGCode(err, "55P03"):
		return LifecycleReasonDBLockTimeout
	case hasPGCode(err, "40001"):
		return LifecycleReasonSerializationFailure
	case errors.Is(err, gorm.ErrDuplicatedKey), hasPGCode(err, "23505"):
		return LifecycleReasonUniqueViolation
	case strings.Contains(strings.ToLower(err.Error()), "database is locked"):
		return LifecycleReasonDBLockTimeout
	default:
		return LifecycleReasonUnknown
	}
}

func hasPGCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == code
	}
	return false
}
