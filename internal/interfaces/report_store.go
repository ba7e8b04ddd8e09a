package interfaces

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/sheikh-saqib/concurrent-ledger/internal/models"
)

// ReportStore keeps summaries of finished simulation runs. It never stores
// ledger state or individual operations.
type ReportStore interface {
	SaveRun(ctx context.Context, summary models.RunSummary) error
	GetRun(ctx context.Context, runID uuid.UUID) (models.RunSummary, error)
	ListRuns(ctx context.Context, limit int) ([]models.RunSummary, error)
	Close() error
}

var ErrRunNotFound = errors.New("run not found")
