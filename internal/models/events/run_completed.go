package events

import (
	"time"

	"github.com/google/uuid"
)

// RunCompletedTopic is the default topic RunCompleted events go to.
const RunCompletedTopic = "simulation_run_completed"

type RunCompleted struct {
	EventID           uuid.UUID         `json:"event_id"`
	RunID             uuid.UUID         `json:"run_id"`
	Actors            int               `json:"actors"`
	Iterations        int               `json:"iterations"`
	TotalBefore       string            `json:"total_before"`
	TotalAfter        string            `json:"total_after"`
	Balances          map[string]string `json:"balances,omitempty"`
	OperationsFailed  int               `json:"operations_failed"`
	Conserved         bool              `json:"conserved"`
	NonNegative       bool              `json:"non_negative"`
	DeadlockSuspected bool              `json:"deadlock_suspected"`
	ElapsedMillis     int64             `json:"elapsed_ms"`
	OccurredAt        time.Time         `json:"occurred_at"`
}

// Key partitions events by run.
func (e RunCompleted) Key() string {
	return e.RunID.String()
}
