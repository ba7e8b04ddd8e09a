package metrics

import (
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/sheikh-saqib/concurrent-ledger/internal/models"
	"github.com/sheikh-saqib/concurrent-ledger/internal/simulation"
)

func newTestCollector() *MetricsCollector {
	return NewMetricsCollector(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestMetricsCollector_ObserveOperation(t *testing.T) {
	m := newTestCollector()

	m.ObserveOperation(models.OpTransfer, simulation.OutcomeOK, time.Microsecond)
	m.ObserveOperation(models.OpTransfer, simulation.OutcomeOK, time.Microsecond)
	m.ObserveOperation(models.OpWithdraw, simulation.OutcomeInsufficientFunds, time.Microsecond)
	m.ObserveOperation(models.OpTransfer, simulation.OutcomeSkipped, 0)

	if got := testutil.ToFloat64(m.operations.WithLabelValues("transfer", "ok")); got != 2 {
		t.Errorf("transfer ok=%v want 2", got)
	}
	if got := testutil.ToFloat64(m.operations.WithLabelValues("withdraw", "insufficient_funds")); got != 1 {
		t.Errorf("withdraw insufficient=%v want 1", got)
	}
	if got := testutil.CollectAndCount(m.operationDuration); got != 2 {
		t.Errorf("expected 2 duration series, got %d", got)
	}
}

func TestMetricsCollector_ObserveRun(t *testing.T) {
	m := newTestCollector()

	m.ObserveRun(models.RunSummary{
		Elapsed:     time.Second,
		After:       []models.AccountBalance{{AccountID: "ACC-001", Balance: 150_050}},
		NonNegative: true,
		Conserved:   true,
	})
	m.ObserveRun(models.RunSummary{DeadlockSuspected: true})

	if got := testutil.ToFloat64(m.runs.WithLabelValues("passed")); got != 1 {
		t.Errorf("passed runs=%v want 1", got)
	}
	if got := testutil.ToFloat64(m.deadlockSuspected); got != 1 {
		t.Errorf("deadlock suspected=%v want 1", got)
	}
	if got := testutil.ToFloat64(m.accountBalance.WithLabelValues("ACC-001")); got != 1500.5 {
		t.Errorf("balance gauge=%v want 1500.5", got)
	}
}

func TestMetricsCollector_Handler(t *testing.T) {
	m := newTestCollector()
	m.ObserveOperation(models.OpDeposit, simulation.OutcomeOK, time.Microsecond)

	rec := httptest.NewRecorder()
	m.GetHandler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if rec.Code != 200 {
		t.Fatalf("status=%d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `ledger_operations_total{kind="deposit",outcome="ok"} 1`) {
		t.Errorf("metrics output missing operation counter:\n%s", rec.Body.String())
	}
}
