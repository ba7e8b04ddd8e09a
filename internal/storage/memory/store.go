package memory

import (
	"context" // request-scoped context, unused in memory but part of ReportStore
	"fmt"
	"sort"
	"sync" // RWMutex guarding the runs map

	"github.com/google/uuid"

	interfaces "github.com/sheikh-saqib/concurrent-ledger/internal/interfaces" // ReportStore, ErrRunNotFound
	"github.com/sheikh-saqib/concurrent-ledger/internal/models"                // RunSummary
)

// MemoryReportStore keeps run summaries in process memory.
// It is safe for concurrent use; readers share the lock, writers take it alone.
type MemoryReportStore struct {
	mu   sync.RWMutex                    // protects runs
	runs map[uuid.UUID]models.RunSummary // run id -> stored copy of the summary
}

// NewMemoryReportStore creates an empty store.
func NewMemoryReportStore() *MemoryReportStore {
	return &MemoryReportStore{
		runs: make(map[uuid.UUID]models.RunSummary), // initialize an empty map of runs
	}
}

// SaveRun stores a copy of summary, replacing any earlier save of the same run.
func (m *MemoryReportStore) SaveRun(ctx context.Context, summary models.RunSummary) error {
	m.mu.Lock()         // exclusive lock, we are writing the map
	defer m.mu.Unlock() // unlock when the function returns

	m.runs[summary.RunID] = cloneSummary(summary) // keep our own copy so the caller can keep mutating theirs
	return nil                                    // always succeeds in memory
}

// GetRun returns a copy of one stored run.
func (m *MemoryReportStore) GetRun(ctx context.Context, runID uuid.UUID) (models.RunSummary, error) {
	m.mu.RLock()         // shared lock, readers do not block each other
	defer m.mu.RUnlock() // release the read lock on return

	s, ok := m.runs[runID]
	if !ok {
		return models.RunSummary{}, fmt.Errorf("%w: %s", interfaces.ErrRunNotFound, runID)
	}
	return cloneSummary(s), nil // hand out a copy, never the stored value's slices
}

// ListRuns returns the newest runs first. limit <= 0 means all.
func (m *MemoryReportStore) ListRuns(ctx context.Context, limit int) ([]models.RunSummary, error) {
	m.mu.RLock() // shared lock only while copying out of the map
	out := make([]models.RunSummary, 0, len(m.runs))
	for _, s := range m.runs {
		out = append(out, cloneSummary(s))
	}
	m.mu.RUnlock() // sorting works on our copies, no lock needed

	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt) // newest first
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit] // trim to the requested page size
	}
	return out, nil
}

// Close is a no-op; there is nothing to release.
func (m *MemoryReportStore) Close() error {
	return nil
}

// cloneSummary copies the slices and map so callers cannot modify stored state.
func cloneSummary(s models.RunSummary) models.RunSummary {
	s.Before = append([]models.AccountBalance(nil), s.Before...) // fresh backing array
	if s.After != nil {
		s.After = append([]models.AccountBalance(nil), s.After...) // nil stays nil for timed-out runs
	}
	counts := make(map[models.OpKind]models.OpCounts, len(s.Counts))
	for k, v := range s.Counts {
		counts[k] = v // OpCounts is a value type, copying the entry is enough
	}
	s.Counts = counts
	return s
}

// Compile-time check: ensure MemoryReportStore implements ReportStore
var _ interfaces.ReportStore = (*MemoryReportStore)(nil)
