package metrics

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"gorm.io/gorm"
)

func TestClassifyLifecycleReason(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{name: "deadline", err: context.DeadlineExceeded, want: LifecycleReasonDeadlineExceeded},
		{name: "db_lock_timeout", err: &pgconn.PgError{Code: "55P03"}, want: LifecycleReasonDBLockTimeout},
		{name: "wrapped_serialization", err: fmt.Errorf("tx: %w", &pgconn.PgError{Code: "40001"}), want: LifecycleReasonSerializationFailure},
		{name: "unique_violation", err: gorm.ErrDuplicatedKey, want: LifecycleReasonUniqueViolation},
		{name: "sqlite_locked", err: errors.New("database is locked"), want: LifecycleReasonDBLockTimeout},
		{name: "unknown", err: errors.New("boom"), want: LifecycleReasonUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassifyLifecycleReason(tc.err); got != tc.want {
				t.Fatalf("expected reason %q, got %q", tc.want, got)
			}
		})
	}
}

func TestObserveOperationOutcomes(t *testing.T) {
	m := newLifecycleMetrics(prometheus.NewRegistry(), Config{ServiceName: "test", Environment: "test"})

	m.ObserveOperation("initiate", time.Millisecond, nil, false)
	m.ObserveOperation("initiate", time.Millisecond, errors.New("insufficient"), true)
	m.ObserveOperation("initiate", time.Millisecond, &pgconn.PgError{Code: "55P03"}, false)

	if got := testutil.ToFloat64(m.operations.WithLabelValues("initiate", "success")); got != 1 {
		t.Fatalf("expected 1 success, got %v", got)
	}
	if got := testutil.ToFloat64(m.operations.WithLabelValues("initiate", "rejected")); got != 1 {
		t.Fatalf("expected 1 rejection, got %v", got)
	}
	if got := testutil.ToFloat64(m.failures.WithLabelValues("initiate", LifecycleReasonDBLockTimeout)); got != 1 {
		t.Fatalf("expected 1 lock timeout, got %v", got)
	}
}

func TestNilLifecycleMetricsAreSafe(t *testing.T) {
	var m *LifecycleMetrics
	m.ObserveOperation("cancel", time.Millisecond, nil, false)
	m.IncStatusTransition("REQUEST_RAISED", "CANCELLED")
}
