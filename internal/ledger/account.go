package ledger

import (
	"fmt"
	"math"
	"sync"
)

// Account owns a balance in minor units and the mutex guarding it.
// The zero value is not usable; accounts are created through a Ledger.
type Account struct {
	id      string
	mu      sync.Mutex
	balance int64
}

func newAccount(id string, initial int64) (*Account, error) {
	if id == "" {
		return nil, ErrInvalidAccountID
	}
	if initial < 0 {
		return nil, fmt.Errorf("%w: initial balance %d for account %s", ErrInvalidAmount, initial, id)
	}
	return &Account{id: id, balance: initial}, nil
}

// ID returns the account identifier. It never changes.
func (a *Account) ID() string {
	return a.id
}

// Balance returns a consistent snapshot of the balance.
func (a *Account) Balance() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.balance
}

// Deposit adds amount and returns the new balance.
func (a *Account) Deposit(amount int64) (int64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("%w: deposit %d into account %s", ErrInvalidAmount, amount, a.id)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.creditUnlocked(amount); err != nil {
		return a.balance, err
	}
	return a.balance, nil
}

// Withdraw removes amount if the balance covers it and returns the new balance.
func (a *Account) Withdraw(amount int64) (int64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("%w: withdraw %d from account %s", ErrInvalidAmount, amount, a.id)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.debitUnlocked(amount); err != nil {
		return a.balance, err
	}
	return a.balance, nil
}

// debitUnlocked and creditUnlocked require a.mu to be held. They either apply
// the full change or leave the balance untouched.

func (a *Account) debitUnlocked(amount int64) error {
	if amount > a.balance {
		return fmt.Errorf("%w: account %s has %d, needs %d", ErrInsufficientFunds, a.id, a.balance, amount)
	}
	a.balance -= amount
	return nil
}

func (a *Account) creditUnlocked(amount int64) error {
	if err := a.canCredit(amount); err != nil {
		return err
	}
	a.balance += amount
	return nil
}

func (a *Account) canCredit(amount int64) error {
	if a.balance > math.MaxInt64-amount {
		return fmt.Errorf("%w: account %s", ErrBalanceOverflow, a.id)
	}
	return nil
}
