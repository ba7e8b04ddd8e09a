package server

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sheikh-saqib/concurrent-ledger/internal/models"
	"github.com/sheikh-saqib/concurrent-ledger/internal/money"
	"github.com/sheikh-saqib/concurrent-ledger/internal/simulation"
)

type accountRequest struct {
	ID             string          `json:"id"`
	InitialBalance decimal.Decimal `json:"initial_balance"`
}

// runRequest overrides the server's default simulation config. Amounts are in
// major units and durations use time.ParseDuration syntax.
type runRequest struct {
	Accounts    []accountRequest `json:"accounts"`
	Actors      *int             `json:"actors"`
	Iterations  *int             `json:"iterations"`
	JoinTimeout string           `json:"join_timeout"`
	Delay       string           `json:"delay"`
	Seed        int64            `json:"seed"`
	Pairing     string           `json:"pairing"`
	Direction   string           `json:"direction"`
	MinAmount   *decimal.Decimal `json:"min_amount"`
	MaxAmount   *decimal.Decimal `json:"max_amount"`
	Mix         *simulation.Mix  `json:"mix"`
}

func (req runRequest) apply(cfg simulation.Config) (simulation.Config, error) {
	if len(req.Accounts) > 0 {
		accounts := make([]models.AccountSpec, 0, len(req.Accounts))
		for _, a := range req.Accounts {
			balance, err := money.FromDecimal(a.InitialBalance)
			if err != nil {
				return cfg, fmt.Errorf("account %s: %w", a.ID, err)
			}
			accounts = append(accounts, models.AccountSpec{ID: a.ID, InitialBalance: balance})
		}
		cfg.Accounts = accounts
	}
	if req.Actors != nil {
		cfg.Actors = *req.Actors
	}
	if req.Iterations != nil {
		cfg.Iterations = *req.Iterations
	}
	if req.JoinTimeout != "" {
		d, err := time.ParseDuration(req.JoinTimeout)
		if err != nil {
			return cfg, fmt.Errorf("join_timeout: %w", err)
		}
		cfg.JoinTimeout = d
	}
	if req.Delay != "" {
		d, err := time.ParseDuration(req.Delay)
		if err != nil {
			return cfg, fmt.Errorf("delay: %w", err)
		}
		cfg.Delay = d
	}
	if req.Seed != 0 {
		cfg.Seed = req.Seed
	}
	if req.Pairing != "" {
		cfg.Pairing = simulation.Pairing(req.Pairing)
	}
	if req.Direction != "" {
		cfg.Direction = simulation.Direction(req.Direction)
	}
	if req.MinAmount != nil {
		v, err := money.FromDecimal(*req.MinAmount)
		if err != nil {
			return cfg, fmt.Errorf("min_amount: %w", err)
		}
		cfg.MinAmount = v
	}
	if req.MaxAmount != nil {
		v, err := money.FromDecimal(*req.MaxAmount)
		if err != nil {
			return cfg, fmt.Errorf("max_amount: %w", err)
		}
		cfg.MaxAmount = v
	}
	if req.Mix != nil {
		cfg.Mix = *req.Mix
	}
	return cfg, cfg.Validate()
}
