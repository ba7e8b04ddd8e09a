package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sheikh-saqib/concurrent-ledger/internal/models"
	"github.com/sheikh-saqib/concurrent-ledger/internal/money"
	"github.com/sheikh-saqib/concurrent-ledger/internal/simulation"
)

var _ simulation.Observer = (*MetricsCollector)(nil)

// MetricsCollector exports ledger and simulation measurements on a private
// registry. Prometheus collectors are safe for concurrent use, so actors
// report straight into them.
type MetricsCollector struct {
	registry          *prometheus.Registry
	operations        *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	runs              *prometheus.CounterVec
	runDuration       prometheus.Histogram
	deadlockSuspected prometheus.Counter
	accountBalance    *prometheus.GaugeVec
	logger            *slog.Logger
}

func NewMetricsCollector(logger *slog.Logger) *MetricsCollector {
	if logger == nil {
		logger = slog.Default()
	}

	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &MetricsCollector{
		registry: registry,
		operations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_operations_total",
			Help: "Ledger operations issued by simulated actors, by kind and outcome",
		}, []string{"kind", "outcome"}),
		operationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ledger_operation_duration_seconds",
			Help:    "Time spent inside a ledger operation, including waiting for account locks",
			Buckets: []float64{1e-7, 1e-6, 1e-5, 1e-4, 1e-3, 1e-2, 1e-1},
		}, []string{"kind"}),
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "simulation_runs_total",
			Help: "Completed simulation runs by result",
		}, []string{"result"}),
		runDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "simulation_run_duration_seconds",
			Help:    "Wall time of simulation runs",
			Buckets: prometheus.DefBuckets,
		}),
		deadlockSuspected: factory.NewCounter(prometheus.CounterOpts{
			Name: "simulation_deadlock_suspected_total",
			Help: "Runs whose actors did not all finish within the join timeout",
		}),
		accountBalance: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ledger_account_balance",
			Help: "Account balance in major units at the end of the latest run",
		}, []string{"account_id"}),
		logger: logger,
	}
}

func (m *MetricsCollector) ObserveOperation(kind models.OpKind, outcome string, took time.Duration) {
	m.operations.WithLabelValues(string(kind), outcome).Inc()
	if outcome != simulation.OutcomeSkipped {
		m.operationDuration.WithLabelValues(string(kind)).Observe(took.Seconds())
	}
}

func (m *MetricsCollector) ObserveRun(summary models.RunSummary) {
	m.runDuration.Observe(summary.Elapsed.Seconds())

	switch {
	case summary.DeadlockSuspected:
		m.deadlockSuspected.Inc()
		m.runs.WithLabelValues("deadlock_suspected").Inc()
		return
	case summary.Passed():
		m.runs.WithLabelValues("passed").Inc()
	default:
		m.runs.WithLabelValues("invariant_violated").Inc()
	}

	for _, b := range summary.After {
		m.accountBalance.WithLabelValues(b.AccountID).Set(money.ToDecimal(b.Balance).InexactFloat64())
	}
}

// Registry exposes the underlying registry, mainly for tests.
func (m *MetricsCollector) Registry() *prometheus.Registry {
	return m.registry
}

func (m *MetricsCollector) GetHandler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *MetricsCollector) StartMetricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.GetHandler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		m.logger.Info("Starting metrics server", slog.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error("Metrics server failed", slog.String("error", err.Error()))
		}
	}()

	return server
}

func (m *MetricsCollector) Shutdown(ctx context.Context, server *http.Server) error {
	if server == nil {
		return nil
	}
	err := server.Shutdown(ctx)
	m.logger.Info("Metrics server shutdown complete")
	return err
}
