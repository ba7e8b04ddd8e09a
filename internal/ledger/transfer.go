package ledger

import "fmt"

// Transfer moves amount between two accounts of the ledger by id. See
// TransferBetween for the locking protocol.
func (l *Ledger) Transfer(source, destination string, amount int64) error {
	if source == destination {
		return fmt.Errorf("%w: %s", ErrSelfTransfer, source)
	}

	from, err := l.Account(source)
	if err != nil {
		return err
	}
	to, err := l.Account(destination)
	if err != nil {
		return err
	}
	return TransferBetween(from, to, amount)
}

// TransferBetween moves amount from one account to another as one atomic step.
//
// Both mutexes are taken in ascending id order whatever the direction of the
// call, so two transfers touching the same pair always request the locks in
// the same order and can never wait on each other in a cycle. Self transfers
// are rejected before any lock is taken.
func TransferBetween(from, to *Account, amount int64) error {
	if from == to || from.id == to.id {
		return fmt.Errorf("%w: %s", ErrSelfTransfer, from.id)
	}
	if amount <= 0 {
		return fmt.Errorf("%w: transfer %d from %s to %s", ErrInvalidAmount, amount, from.id, to.id)
	}

	first, second := lockOrder(from, to)
	first.mu.Lock()
	defer first.mu.Unlock()
	second.mu.Lock()
	defer second.mu.Unlock()

	// The credit side is checked first so a rejected transfer never leaves a
	// partial debit behind.
	if err := to.canCredit(amount); err != nil {
		return err
	}
	if err := from.debitUnlocked(amount); err != nil {
		return err
	}
	to.balance += amount
	return nil
}

// lockOrder returns a and b sorted by id. Callers guarantee a.id != b.id.
func lockOrder(a, b *Account) (*Account, *Account) {
	if a.id < b.id {
		return a, b
	}
	return b, a
}
