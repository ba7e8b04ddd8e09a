package simulation

import "errors"

var (
	// ErrDeadlockSuspected means some actors were still running when the join
	// timeout elapsed. It is a signal for investigation, not a proof.
	ErrDeadlockSuspected = errors.New("deadlock suspected")
	ErrInvalidConfig     = errors.New("invalid simulation config")
)
