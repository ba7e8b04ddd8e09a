package models

// OpKind tags the variant of an Operation
type OpKind string

const (
	OpDeposit  OpKind = "deposit"
	OpWithdraw OpKind = "withdraw"
	OpTransfer OpKind = "transfer"
)

// OpKinds lists every operation kind in a stable order.
var OpKinds = []OpKind{OpDeposit, OpWithdraw, OpTransfer}

// Operation represents one request an actor issues against the ledger
type Operation struct {
	Kind        OpKind
	Source      string // account debited by withdraw and transfer
	Destination string // account credited by deposit and transfer
	Amount      int64  // minor units
}

// Accounts returns the ids the operation touches.
func (o Operation) Accounts() []string {
	switch o.Kind {
	case OpDeposit:
		return []string{o.Destination}
	case OpWithdraw:
		return []string{o.Source}
	default:
		return []string{o.Source, o.Destination}
	}
}
