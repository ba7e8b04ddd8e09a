package models

import (
	"time"

	"github.com/google/uuid"
)

// OpCounts tallies the outcomes of one operation kind across a run
type OpCounts struct {
	Attempted         int `json:"attempted"`
	Succeeded         int `json:"succeeded"`
	InvalidAmount     int `json:"invalid_amount"`
	InsufficientFunds int `json:"insufficient_funds"`
	SelfTransfer      int `json:"self_transfer"`
	Overflow          int `json:"overflow"`
	Skipped           int `json:"skipped"`
}

// Add merges other into c.
func (c *OpCounts) Add(other OpCounts) {
	c.Attempted += other.Attempted
	c.Succeeded += other.Succeeded
	c.InvalidAmount += other.InvalidAmount
	c.InsufficientFunds += other.InsufficientFunds
	c.SelfTransfer += other.SelfTransfer
	c.Overflow += other.Overflow
	c.Skipped += other.Skipped
}

// Failed is the number of attempts rejected with a business error.
func (c OpCounts) Failed() int {
	return c.InvalidAmount + c.InsufficientFunds + c.SelfTransfer + c.Overflow
}

// RunSummary is the outcome of one simulation run
type RunSummary struct {
	RunID      uuid.UUID     `json:"run_id"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Elapsed    time.Duration `json:"elapsed"`

	Actors     int   `json:"actors"`
	Iterations int   `json:"iterations"`
	Seed       int64 `json:"seed"`

	Before      []AccountBalance `json:"before"`
	After       []AccountBalance `json:"after,omitempty"`
	TotalBefore int64            `json:"total_before"`
	TotalAfter  int64            `json:"total_after"`
	Deposited   int64            `json:"deposited"` // money entering the closed set
	Withdrawn   int64            `json:"withdrawn"` // money leaving the closed set

	Counts map[OpKind]OpCounts `json:"counts"`

	NonNegative       bool `json:"non_negative"`
	Conserved         bool `json:"conserved"`
	DeadlockSuspected bool `json:"deadlock_suspected"`
}

// NewRunSummary starts a summary for a run beginning now.
func NewRunSummary(actors, iterations int, seed int64) RunSummary {
	return RunSummary{
		RunID:      uuid.New(),
		StartedAt:  time.Now(),
		Actors:     actors,
		Iterations: iterations,
		Seed:       seed,
		Counts:     make(map[OpKind]OpCounts, len(OpKinds)),
	}
}

// ExpectedTotal is the closed-set total the after snapshot must match.
func (s RunSummary) ExpectedTotal() int64 {
	return s.TotalBefore + s.Deposited - s.Withdrawn
}

// Passed reports whether the run finished with every invariant intact.
func (s RunSummary) Passed() bool {
	return !s.DeadlockSuspected && s.NonNegative && s.Conserved
}

// TotalFailed is the number of business-error rejections over all kinds.
func (s RunSummary) TotalFailed() int {
	n := 0
	for _, c := range s.Counts {
		n += c.Failed()
	}
	return n
}
