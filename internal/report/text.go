package report

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/sheikh-saqib/concurrent-ledger/internal/models"
	"github.com/sheikh-saqib/concurrent-ledger/internal/money"
)

const rule = "==========================="

// WriteStart prints the balances a run starts from.
func WriteStart(w io.Writer, before []models.AccountBalance) {
	fmt.Fprintln(w, "=== Starting Simulation ===")
	writeBalances(w, "Initial", before)
	fmt.Fprintln(w, rule)
}

// WriteFinish prints final balances, per-kind outcome counts and the verdict.
func WriteFinish(w io.Writer, s models.RunSummary) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "=== Simulation Finished ===")
	if s.DeadlockSuspected {
		fmt.Fprintf(w, "Deadlock suspected: actors did not finish within the join timeout (%s elapsed)\n", s.Elapsed)
		fmt.Fprintln(w, rule)
		return
	}
	writeBalances(w, "Final", s.After)
	if s.Deposited != 0 || s.Withdrawn != 0 {
		fmt.Fprintf(w, "Expected total:    %s (deposited %s, withdrawn %s)\n",
			money.Format(s.ExpectedTotal()), money.Format(s.Deposited), money.Format(s.Withdrawn))
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "\nkind\tattempted\tsucceeded\tinsufficient\tinvalid\tself\toverflow\tskipped")
	for _, kind := range models.OpKinds {
		c, ok := s.Counts[kind]
		if !ok {
			continue
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\t%d\t%d\n", kind,
			c.Attempted, c.Succeeded, c.InsufficientFunds, c.InvalidAmount, c.SelfTransfer, c.Overflow, c.Skipped)
	}
	tw.Flush()

	fmt.Fprintf(w, "\nElapsed: %s\n", s.Elapsed)
	fmt.Fprintf(w, "Non-negative: %t  Conserved: %t\n", s.NonNegative, s.Conserved)
	if s.Passed() {
		fmt.Fprintln(w, "Result: PASS")
	} else {
		fmt.Fprintln(w, "Result: FAIL")
	}
	fmt.Fprintln(w, rule)
}

func writeBalances(w io.Writer, label string, balances []models.AccountBalance) {
	for _, b := range balances {
		fmt.Fprintf(w, "%s balance %s: %s\n", label, b.AccountID, money.Format(b.Balance))
	}
	fmt.Fprintf(w, "%s total:     %s\n", label, money.Format(models.SumBalances(balances)))
}
