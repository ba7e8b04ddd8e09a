package simulation

import (
	"fmt"
	"time"

	"github.com/sheikh-saqib/concurrent-ledger/internal/models"
)

// Pairing decides which accounts each actor is bound to.
type Pairing string

const (
	// PairRoundRobin binds actor i to accounts i and i+1 (mod n).
	PairRoundRobin Pairing = "round-robin"
	// PairRandom binds each actor to two distinct accounts drawn from the seed.
	PairRandom Pairing = "random"
)

// Config is the input to Coordinator.Run
type Config struct {
	Accounts    []models.AccountSpec `json:"accounts"`
	Actors      int                  `json:"actors"`
	Iterations  int                  `json:"iterations"`
	JoinTimeout time.Duration        `json:"join_timeout"`
	Delay       time.Duration        `json:"delay"`
	Mix         Mix                  `json:"mix"`
	MinAmount   int64                `json:"min_amount"`
	MaxAmount   int64                `json:"max_amount"`
	Direction   Direction            `json:"direction"`
	Pairing     Pairing              `json:"pairing"`
	Seed        int64                `json:"seed"` // 0 picks a time-based seed
}

const (
	defaultActors      = 20
	defaultIterations  = 1_000
	defaultJoinTimeout = 30 * time.Second
	defaultMinAmount   = 100    // 1.00
	defaultMaxAmount   = 10_000 // 100.00
	defaultBalance     = 100_000
)

// DefaultConfig is two accounts with 1000.00 each and twenty actors doing a
// thousand random operations of 1.00 to 100.00.
func DefaultConfig() Config {
	return Config{
		Accounts: []models.AccountSpec{
			{ID: "ACC-001", InitialBalance: defaultBalance},
			{ID: "ACC-002", InitialBalance: defaultBalance},
		},
		Actors:      defaultActors,
		Iterations:  defaultIterations,
		JoinTimeout: defaultJoinTimeout,
		Mix:         EvenMix,
		MinAmount:   defaultMinAmount,
		MaxAmount:   defaultMaxAmount,
		Direction:   DirectionRandom,
		Pairing:     PairRoundRobin,
	}
}

// Validate checks the config without touching any ledger state.
func (c Config) Validate() error {
	if len(c.Accounts) == 0 {
		return fmt.Errorf("%w: no accounts", ErrInvalidConfig)
	}
	return c.validateRun()
}

// validateRun checks everything except the account list.
func (c Config) validateRun() error {
	if c.Actors <= 0 {
		return fmt.Errorf("%w: actors must be positive, got %d", ErrInvalidConfig, c.Actors)
	}
	if c.Iterations < 0 {
		return fmt.Errorf("%w: iterations must not be negative, got %d", ErrInvalidConfig, c.Iterations)
	}
	if c.JoinTimeout <= 0 {
		return fmt.Errorf("%w: join timeout must be positive", ErrInvalidConfig)
	}
	if c.Delay < 0 {
		return fmt.Errorf("%w: delay must not be negative", ErrInvalidConfig)
	}
	// A positive MinAmount keeps MaxAmount-MinAmount+1 within int64 for the
	// actor's Int63n draw.
	if c.MinAmount <= 0 {
		return fmt.Errorf("%w: min amount must be positive, got %d", ErrInvalidConfig, c.MinAmount)
	}
	if c.MaxAmount < c.MinAmount {
		return fmt.Errorf("%w: amount bounds [%d, %d]", ErrInvalidConfig, c.MinAmount, c.MaxAmount)
	}
	switch c.Direction {
	case "", DirectionRandom, DirectionForward:
	default:
		return fmt.Errorf("%w: unknown direction %q", ErrInvalidConfig, c.Direction)
	}
	switch c.Pairing {
	case "", PairRoundRobin, PairRandom:
	default:
		return fmt.Errorf("%w: unknown pairing %q", ErrInvalidConfig, c.Pairing)
	}
	return c.Mix.validate()
}

func (c Config) actorConfig(primary, secondary string) ActorConfig {
	return ActorConfig{
		Primary:    primary,
		Secondary:  secondary,
		Iterations: c.Iterations,
		Mix:        c.Mix,
		MinAmount:  c.MinAmount,
		MaxAmount:  c.MaxAmount,
		Direction:  c.Direction,
		Delay:      c.Delay,
	}
}
