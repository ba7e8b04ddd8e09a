package ledger

import "errors"

var (
	// Business errors. Expected during normal operation; the caller's balance
	// state is exactly what it was before the call.
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrSelfTransfer      = errors.New("source and destination are the same account")
	ErrBalanceOverflow   = errors.New("balance would overflow")

	// Misconfiguration errors.
	ErrUnknownAccount   = errors.New("unknown account")
	ErrDuplicateID      = errors.New("duplicate account id")
	ErrInvalidAccountID = errors.New("account id must not be empty")
	ErrLedgerFrozen     = errors.New("ledger membership is frozen")
)

// IsBusinessError reports whether err is one of the recoverable rejections an
// actor counts and moves past.
func IsBusinessError(err error) bool {
	return errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInsufficientFunds) ||
		errors.Is(err, ErrSelfTransfer) ||
		errors.Is(err, ErrBalanceOverflow)
}
