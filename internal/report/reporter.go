// Package report persists finished runs and announces them.
package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	interfaces "github.com/sheikh-saqib/concurrent-ledger/internal/interfaces"
	"github.com/sheikh-saqib/concurrent-ledger/internal/models"
	"github.com/sheikh-saqib/concurrent-ledger/internal/models/events"
	"github.com/sheikh-saqib/concurrent-ledger/internal/money"
)

type Reporter struct {
	store     interfaces.ReportStore
	publisher interfaces.EventPublisher
	topic     string
	logger    *slog.Logger
}

func NewReporter(store interfaces.ReportStore, publisher interfaces.EventPublisher, topic string, logger *slog.Logger) *Reporter {
	if topic == "" {
		topic = events.RunCompletedTopic
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reporter{
		store:     store,
		publisher: publisher,
		topic:     topic,
		logger:    logger,
	}
}

// Report saves the summary and publishes a RunCompleted event. A failed
// publish does not undo the save; both errors are returned joined.
func (r *Reporter) Report(ctx context.Context, summary models.RunSummary) error {
	logger := r.logger.With(slog.String("run_id", summary.RunID.String()))

	var errs []error
	if r.store != nil {
		if err := r.store.SaveRun(ctx, summary); err != nil {
			logger.ErrorContext(ctx, "Failed to save run", slog.String("error", err.Error()))
			errs = append(errs, fmt.Errorf("save run %s: %w", summary.RunID, err))
		}
	}
	if r.publisher != nil {
		if err := r.publisher.Publish(ctx, r.topic, NewRunCompleted(summary)); err != nil {
			logger.ErrorContext(ctx, "Failed to publish run", slog.String("error", err.Error()))
			errs = append(errs, fmt.Errorf("publish run %s: %w", summary.RunID, err))
		}
	}
	if len(errs) == 0 {
		logger.InfoContext(ctx, "Run reported", slog.Bool("passed", summary.Passed()))
	}
	return errors.Join(errs...)
}

func (r *Reporter) GetRun(ctx context.Context, runID uuid.UUID) (models.RunSummary, error) {
	return r.store.GetRun(ctx, runID)
}

func (r *Reporter) ListRuns(ctx context.Context, limit int) ([]models.RunSummary, error) {
	return r.store.ListRuns(ctx, limit)
}

// NewRunCompleted converts a summary into its event form with amounts in
// major units.
func NewRunCompleted(summary models.RunSummary) events.RunCompleted {
	balances := summary.After
	if balances == nil {
		balances = summary.Before
	}
	formatted := make(map[string]string, len(balances))
	for _, b := range balances {
		formatted[b.AccountID] = money.Format(b.Balance)
	}

	return events.RunCompleted{
		EventID:           uuid.New(),
		RunID:             summary.RunID,
		Actors:            summary.Actors,
		Iterations:        summary.Iterations,
		TotalBefore:       money.Format(summary.TotalBefore),
		TotalAfter:        money.Format(summary.TotalAfter),
		Balances:          formatted,
		OperationsFailed:  summary.TotalFailed(),
		Conserved:         summary.Conserved,
		NonNegative:       summary.NonNegative,
		DeadlockSuspected: summary.DeadlockSuspected,
		ElapsedMillis:     summary.Elapsed.Milliseconds(),
		OccurredAt:        time.Now().UTC(),
	}
}
