package models

// AccountSpec describes one account to create at ledger setup
type AccountSpec struct {
	ID             string `json:"id"`
	InitialBalance int64  `json:"initial_balance"` // minor units
}

// AccountBalance is a single account's balance at a point in time
type AccountBalance struct {
	AccountID string `json:"account_id"`
	Balance   int64  `json:"balance"` // minor units
}

// SumBalances adds up a balance snapshot.
func SumBalances(balances []AccountBalance) int64 {
	var total int64
	for _, b := range balances {
		total += b.Balance
	}
	return total
}
