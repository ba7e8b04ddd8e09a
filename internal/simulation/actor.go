package simulation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/sheikh-saqib/concurrent-ledger/internal/ledger"
	"github.com/sheikh-saqib/concurrent-ledger/internal/models"
)

// Bank is the subset of the ledger an actor drives.
type Bank interface {
	Deposit(id string, amount int64) (int64, error)
	Withdraw(id string, amount int64) (int64, error)
	Transfer(source, destination string, amount int64) error
}

var _ Bank = (*ledger.Ledger)(nil)

// Mix weights the choice between operation kinds. Weights are relative.
type Mix struct {
	Deposit  int `json:"deposit"`
	Withdraw int `json:"withdraw"`
	Transfer int `json:"transfer"`
}

// EvenMix picks every kind with equal probability.
var EvenMix = Mix{Deposit: 1, Withdraw: 1, Transfer: 1}

// TransferOnly keeps the account set closed.
var TransferOnly = Mix{Transfer: 1}

func (m Mix) total() int {
	return m.Deposit + m.Withdraw + m.Transfer
}

// MaxMixWeight bounds each weight so their sum always fits an int.
const MaxMixWeight = 1 << 20

func (m Mix) validate() error {
	if m.Deposit < 0 || m.Withdraw < 0 || m.Transfer < 0 {
		return fmt.Errorf("%w: negative weight in %+v", ErrInvalidConfig, m)
	}
	if m.Deposit > MaxMixWeight || m.Withdraw > MaxMixWeight || m.Transfer > MaxMixWeight {
		return fmt.Errorf("%w: weight above %d in %+v", ErrInvalidConfig, MaxMixWeight, m)
	}
	if m.total() == 0 {
		return fmt.Errorf("%w: operation mix has no weight", ErrInvalidConfig)
	}
	return nil
}

func (m Mix) pick(rng *rand.Rand) models.OpKind {
	n := rng.Intn(m.total())
	switch {
	case n < m.Deposit:
		return models.OpDeposit
	case n < m.Deposit+m.Withdraw:
		return models.OpWithdraw
	default:
		return models.OpTransfer
	}
}

// Direction controls which way an actor's transfers flow.
type Direction string

const (
	// DirectionRandom flips a coin per transfer.
	DirectionRandom Direction = "random"
	// DirectionForward always moves money from primary to secondary.
	DirectionForward Direction = "forward"
)

// ActorConfig is everything an actor needs besides its random source.
type ActorConfig struct {
	Primary    string
	Secondary  string // empty: transfers are skipped
	Iterations int
	Mix        Mix
	MinAmount  int64
	MaxAmount  int64
	Direction  Direction
	Delay      time.Duration
}

// Stats is what an actor did over its run.
type Stats struct {
	Counts    map[models.OpKind]models.OpCounts
	Deposited int64
	Withdrawn int64
}

func newStats() Stats {
	return Stats{Counts: make(map[models.OpKind]models.OpCounts, len(models.OpKinds))}
}

// Merge adds other into s.
func (s *Stats) Merge(other Stats) {
	if s.Counts == nil {
		s.Counts = make(map[models.OpKind]models.OpCounts, len(models.OpKinds))
	}
	for kind, c := range other.Counts {
		cur := s.Counts[kind]
		cur.Add(c)
		s.Counts[kind] = cur
	}
	s.Deposited += other.Deposited
	s.Withdrawn += other.Withdrawn
}

// Actor is one simulated user. It is not safe for concurrent use; each actor
// runs on its own goroutine with its own random source.
type Actor struct {
	name     string
	cfg      ActorConfig
	rng      *rand.Rand
	sleep    func(time.Duration)
	observer Observer
}

// NewActor binds a configuration to a random source.
func NewActor(name string, cfg ActorConfig, rng *rand.Rand, observer Observer) *Actor {
	if cfg.Direction == "" {
		cfg.Direction = DirectionRandom
	}
	if observer == nil {
		observer = nopObserver{}
	}
	return &Actor{
		name:     name,
		cfg:      cfg,
		rng:      rng,
		sleep:    time.Sleep,
		observer: observer,
	}
}

// Name identifies the actor in logs and errors.
func (a *Actor) Name() string {
	return a.name
}

// Next draws the next operation. ok is false when the draw is a transfer but
// the actor has no secondary account.
func (a *Actor) Next() (op models.Operation, ok bool) {
	op.Kind = a.cfg.Mix.pick(a.rng)
	op.Amount = a.amount()

	switch op.Kind {
	case models.OpDeposit:
		op.Destination = a.cfg.Primary
	case models.OpWithdraw:
		op.Source = a.cfg.Primary
	case models.OpTransfer:
		if a.cfg.Secondary == "" {
			return op, false
		}
		op.Source, op.Destination = a.cfg.Primary, a.cfg.Secondary
		if a.cfg.Direction == DirectionRandom && a.rng.Intn(2) == 1 {
			op.Source, op.Destination = op.Destination, op.Source
		}
	}
	return op, true
}

func (a *Actor) amount() int64 {
	span := a.cfg.MaxAmount - a.cfg.MinAmount
	switch {
	case span <= 0:
		return a.cfg.MinAmount
	case span == math.MaxInt64:
		// span+1 would wrap; draw from the full non-negative range instead.
		return a.cfg.MinAmount + int64(a.rng.Uint64()>>1)
	}
	return a.cfg.MinAmount + a.rng.Int63n(span+1)
}

// Apply executes op against bank.
func Apply(bank Bank, op models.Operation) error {
	switch op.Kind {
	case models.OpDeposit:
		_, err := bank.Deposit(op.Destination, op.Amount)
		return err
	case models.OpWithdraw:
		_, err := bank.Withdraw(op.Source, op.Amount)
		return err
	case models.OpTransfer:
		return bank.Transfer(op.Source, op.Destination, op.Amount)
	default:
		return fmt.Errorf("unknown operation kind %q", op.Kind)
	}
}

// Run performs the configured number of iterations. Business rejections are
// counted and skipped over; any other error stops the actor and is returned.
// ctx is checked between operations only.
func (a *Actor) Run(ctx context.Context, bank Bank) (Stats, error) {
	stats := newStats()

	for i := 0; i < a.cfg.Iterations; i++ {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		op, ok := a.Next()
		counts := stats.Counts[op.Kind]
		counts.Attempted++

		if !ok {
			counts.Skipped++
			stats.Counts[op.Kind] = counts
			a.observer.ObserveOperation(op.Kind, OutcomeSkipped, 0)
			a.pause()
			continue
		}

		start := time.Now()
		err := Apply(bank, op)
		outcome := Outcome(err)
		a.observer.ObserveOperation(op.Kind, outcome, time.Since(start))

		switch outcome {
		case OutcomeOK:
			counts.Succeeded++
			switch op.Kind {
			case models.OpDeposit:
				stats.Deposited += op.Amount
			case models.OpWithdraw:
				stats.Withdrawn += op.Amount
			}
		case OutcomeInvalidAmount:
			counts.InvalidAmount++
		case OutcomeInsufficientFunds:
			counts.InsufficientFunds++
		case OutcomeSelfTransfer:
			counts.SelfTransfer++
		case OutcomeOverflow:
			counts.Overflow++
		default:
			stats.Counts[op.Kind] = counts
			return stats, fmt.Errorf("actor %s iteration %d: %w", a.name, i, err)
		}
		stats.Counts[op.Kind] = counts

		a.pause()
	}
	return stats, nil
}

func (a *Actor) pause() {
	if a.cfg.Delay > 0 {
		a.sleep(a.cfg.Delay)
	}
}

// Outcome labels for metrics and counters.
const (
	OutcomeOK                = "ok"
	OutcomeInvalidAmount     = "invalid_amount"
	OutcomeInsufficientFunds = "insufficient_funds"
	OutcomeSelfTransfer      = "self_transfer"
	OutcomeOverflow          = "overflow"
	OutcomeSkipped           = "skipped"
	OutcomeError             = "error"
)

// Outcome classifies the error an operation returned.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, ledger.ErrInvalidAmount):
		return OutcomeInvalidAmount
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return OutcomeInsufficientFunds
	case errors.Is(err, ledger.ErrSelfTransfer):
		return OutcomeSelfTransfer
	case errors.Is(err, ledger.ErrBalanceOverflow):
		return OutcomeOverflow
	default:
		return OutcomeError
	}
}
