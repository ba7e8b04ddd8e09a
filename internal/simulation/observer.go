package simulation

import (
	"time"

	"github.com/sheikh-saqib/concurrent-ledger/internal/models"
)

// Observer receives per-operation and per-run measurements. Implementations
// must be safe for concurrent use; ObserveOperation is called from every actor.
type Observer interface {
	ObserveOperation(kind models.OpKind, outcome string, took time.Duration)
	ObserveRun(summary models.RunSummary)
}

type nopObserver struct{}

func (nopObserver) ObserveOperation(models.OpKind, string, time.Duration) {}
func (nopObserver) ObserveRun(models.RunSummary)                          {}
