package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	interfaces "github.com/sheikh-saqib/concurrent-ledger/internal/interfaces"
	"github.com/sheikh-saqib/concurrent-ledger/internal/models"
)

func summaryAt(started time.Time) models.RunSummary {
	s := models.NewRunSummary(2, 10, 1)
	s.StartedAt = started
	s.Before = []models.AccountBalance{{AccountID: "A", Balance: 100}}
	s.After = []models.AccountBalance{{AccountID: "A", Balance: 90}}
	s.Counts[models.OpWithdraw] = models.OpCounts{Attempted: 1, Succeeded: 1}
	return s
}

func TestMemoryReportStore_SaveAndGetRun(t *testing.T) {
	store := NewMemoryReportStore()
	s := summaryAt(time.Now())

	if err := store.SaveRun(context.Background(), s); err != nil {
		t.Fatalf("unexpected error on SaveRun: %v", err)
	}
	got, err := store.GetRun(context.Background(), s.RunID)
	if err != nil {
		t.Fatalf("unexpected error on GetRun: %v", err)
	}
	if got.RunID != s.RunID || got.After[0].Balance != 90 || got.Counts[models.OpWithdraw].Succeeded != 1 {
		t.Errorf("expected %+v, got %+v", s, got)
	}

	// Mutating the returned copy must not reach the store.
	got.After[0].Balance = -1
	again, _ := store.GetRun(context.Background(), s.RunID)
	if again.After[0].Balance != 90 {
		t.Errorf("stored summary was modified through a returned copy")
	}
}

func TestMemoryReportStore_GetRunNotFound(t *testing.T) {
	store := NewMemoryReportStore()

	_, err := store.GetRun(context.Background(), uuid.New())

	if !errors.Is(err, interfaces.ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}

func TestMemoryReportStore_ListRunsNewestFirst(t *testing.T) {
	store := NewMemoryReportStore()
	base := time.Now()
	oldest := summaryAt(base.Add(-2 * time.Minute))
	middle := summaryAt(base.Add(-time.Minute))
	newest := summaryAt(base)
	for _, s := range []models.RunSummary{middle, newest, oldest} {
		_ = store.SaveRun(context.Background(), s)
	}

	all, err := store.ListRuns(context.Background(), 0)
	if err != nil {
		t.Fatalf("unexpected error on ListRuns: %v", err)
	}
	if len(all) != 3 || all[0].RunID != newest.RunID || all[2].RunID != oldest.RunID {
		t.Errorf("unexpected order: %v %v %v", all[0].StartedAt, all[1].StartedAt, all[2].StartedAt)
	}

	limited, _ := store.ListRuns(context.Background(), 2)
	if len(limited) != 2 || limited[1].RunID != middle.RunID {
		t.Errorf("expected two newest runs, got %d", len(limited))
	}
}
