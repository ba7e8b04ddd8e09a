package ledger

import (
	"fmt"
	"sync"

	"github.com/sheikh-saqib/concurrent-ledger/internal/models"
)

// Ledger is the registry of accounts for one run. Accounts are added during
// setup, then Freeze fixes the membership; balances stay mutable.
type Ledger struct {
	mapMu    sync.RWMutex // protects accounts, order and frozen, not balances
	accounts map[string]*Account
	order    []string // ids in creation order
	frozen   bool
}

// NewLedger returns an empty, unfrozen ledger.
func NewLedger() *Ledger {
	return &Ledger{
		accounts: make(map[string]*Account),
	}
}

// FromSpecs builds a frozen ledger from an ordered list of account specs.
func FromSpecs(specs []models.AccountSpec) (*Ledger, error) {
	l := NewLedger()
	for _, spec := range specs {
		if _, err := l.CreateAccount(spec.ID, spec.InitialBalance); err != nil {
			return nil, err
		}
	}
	l.Freeze()
	return l, nil
}

// CreateAccount registers a new account with an initial balance.
func (l *Ledger) CreateAccount(id string, initial int64) (*Account, error) {
	acc, err := newAccount(id, initial)
	if err != nil {
		return nil, err
	}

	l.mapMu.Lock()
	defer l.mapMu.Unlock()

	if l.frozen {
		return nil, fmt.Errorf("%w: cannot add account %s", ErrLedgerFrozen, id)
	}
	if _, exists := l.accounts[id]; exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateID, id)
	}
	l.accounts[id] = acc
	l.order = append(l.order, id)
	return acc, nil
}

// Freeze fixes the account set. It is idempotent.
func (l *Ledger) Freeze() {
	l.mapMu.Lock()
	l.frozen = true
	l.mapMu.Unlock()
}

// Frozen reports whether the membership is fixed.
func (l *Ledger) Frozen() bool {
	l.mapMu.RLock()
	defer l.mapMu.RUnlock()
	return l.frozen
}

// Account resolves an id to its account handle.
func (l *Ledger) Account(id string) (*Account, error) {
	l.mapMu.RLock()
	acc, ok := l.accounts[id]
	l.mapMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAccount, id)
	}
	return acc, nil
}

// IDs returns account ids in creation order.
func (l *Ledger) IDs() []string {
	l.mapMu.RLock()
	defer l.mapMu.RUnlock()

	out := make([]string, len(l.order))
	copy(out, l.order)
	return out
}

// Len is the number of accounts.
func (l *Ledger) Len() int {
	l.mapMu.RLock()
	defer l.mapMu.RUnlock()
	return len(l.order)
}

func (l *Ledger) Deposit(id string, amount int64) (int64, error) {
	acc, err := l.Account(id)
	if err != nil {
		return 0, err
	}
	return acc.Deposit(amount)
}

func (l *Ledger) Withdraw(id string, amount int64) (int64, error) {
	acc, err := l.Account(id)
	if err != nil {
		return 0, err
	}
	return acc.Withdraw(amount)
}

func (l *Ledger) Balance(id string) (int64, error) {
	acc, err := l.Account(id)
	if err != nil {
		return 0, err
	}
	return acc.Balance(), nil
}

// Snapshot reads every balance in creation order. Each read is consistent for
// its account; the set is only a consistent cut when no operation is in flight.
func (l *Ledger) Snapshot() []models.AccountBalance {
	l.mapMu.RLock()
	accs := make([]*Account, len(l.order))
	for i, id := range l.order {
		accs[i] = l.accounts[id]
	}
	l.mapMu.RUnlock()

	out := make([]models.AccountBalance, len(accs))
	for i, acc := range accs {
		out[i] = models.AccountBalance{AccountID: acc.id, Balance: acc.Balance()}
	}
	return out
}

// Total sums a Snapshot.
func (l *Ledger) Total() int64 {
	return models.SumBalances(l.Snapshot())
}
