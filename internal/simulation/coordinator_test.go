package simulation

import (
	"context"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sheikh-saqib/concurrent-ledger/internal/ledger"
	"github.com/sheikh-saqib/concurrent-ledger/internal/models"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fastConfig() Config {
	cfg := DefaultConfig()
	cfg.Actors = 8
	cfg.Iterations = 500
	cfg.Seed = 2024
	cfg.JoinTimeout = 20 * time.Second
	return cfg
}

type countingObserver struct {
	ops  atomic.Int64
	mu   sync.Mutex
	runs []models.RunSummary
}

func (o *countingObserver) ObserveOperation(models.OpKind, string, time.Duration) {
	o.ops.Add(1)
}

func (o *countingObserver) ObserveRun(s models.RunSummary) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.runs = append(o.runs, s)
}

func TestCoordinator_Run_MixedOperationsKeepInvariants(t *testing.T) {
	obs := &countingObserver{}
	c := NewCoordinator(WithLogger(quietLogger()), WithObserver(obs))
	cfg := fastConfig()

	summary, err := c.Run(context.Background(), cfg)

	require.NoError(t, err)
	require.True(t, summary.Passed(), "summary: %+v", summary)
	require.False(t, summary.DeadlockSuspected)
	require.Len(t, summary.Before, 2)
	require.Len(t, summary.After, 2)
	require.EqualValues(t, 200_000, summary.TotalBefore)
	require.Equal(t, summary.ExpectedTotal(), summary.TotalAfter)

	attempted := 0
	for _, counts := range summary.Counts {
		attempted += counts.Attempted
	}
	require.Equal(t, cfg.Actors*cfg.Iterations, attempted)
	require.EqualValues(t, attempted, obs.ops.Load())
	require.Len(t, obs.runs, 1)
	require.Equal(t, summary.RunID, obs.runs[0].RunID)
}

func TestCoordinator_Run_TransferOnlyConservesTotal(t *testing.T) {
	cfg := fastConfig()
	cfg.Accounts = []models.AccountSpec{
		{ID: "ACC-001", InitialBalance: 10_000},
		{ID: "ACC-002", InitialBalance: 0},
		{ID: "ACC-003", InitialBalance: 25_000},
		{ID: "ACC-004", InitialBalance: 500},
	}
	cfg.Actors = 40
	cfg.Mix = TransferOnly
	cfg.Pairing = PairRandom

	summary, err := NewCoordinator(WithLogger(quietLogger())).Run(context.Background(), cfg)

	require.NoError(t, err)
	require.Zero(t, summary.Deposited)
	require.Zero(t, summary.Withdrawn)
	require.Equal(t, summary.TotalBefore, summary.TotalAfter)
	require.True(t, summary.Conserved)
	require.True(t, summary.NonNegative)
}

// Round-robin over two accounts with forward transfers gives half the actors
// A->B and the other half B->A.
func TestCoordinator_Run_OpposingTransferActors(t *testing.T) {
	cfg := Config{
		Accounts:    []models.AccountSpec{{ID: "A", InitialBalance: 1_000}, {ID: "B", InitialBalance: 500}},
		Actors:      100,
		Iterations:  100,
		JoinTimeout: 30 * time.Second,
		Mix:         TransferOnly,
		MinAmount:   10,
		MaxAmount:   10,
		Direction:   DirectionForward,
		Pairing:     PairRoundRobin,
		Seed:        1,
	}

	summary, err := NewCoordinator(WithLogger(quietLogger())).Run(context.Background(), cfg)

	require.NoError(t, err)
	require.True(t, summary.Passed())
	require.EqualValues(t, 1_500, summary.TotalAfter)
	tr := summary.Counts[models.OpTransfer]
	require.Equal(t, 10_000, tr.Attempted)
	require.Equal(t, tr.Attempted, tr.Succeeded+tr.InsufficientFunds)
}

func TestCoordinator_Run_SameSeedSameOutcome(t *testing.T) {
	cfg := fastConfig()
	cfg.Actors = 1
	cfg.Pairing = PairRandom

	c := NewCoordinator(WithLogger(quietLogger()))
	first, err := c.Run(context.Background(), cfg)
	require.NoError(t, err)
	second, err := c.Run(context.Background(), cfg)
	require.NoError(t, err)

	require.NotEqual(t, first.RunID, second.RunID)
	require.Equal(t, first.After, second.After)
	require.Equal(t, first.Counts, second.Counts)
}

func TestCoordinator_Run_DuplicateAccount(t *testing.T) {
	cfg := fastConfig()
	cfg.Accounts = []models.AccountSpec{{ID: "A", InitialBalance: 1}, {ID: "A", InitialBalance: 2}}

	_, err := NewCoordinator(WithLogger(quietLogger())).Run(context.Background(), cfg)

	require.ErrorIs(t, err, ledger.ErrDuplicateID)
}

func TestCoordinator_Run_InvalidConfig(t *testing.T) {
	c := NewCoordinator(WithLogger(quietLogger()))
	mutations := map[string]func(*Config){
		"no accounts":     func(c *Config) { c.Accounts = nil },
		"no actors":       func(c *Config) { c.Actors = 0 },
		"no timeout":      func(c *Config) { c.JoinTimeout = 0 },
		"inverted bounds": func(c *Config) { c.MinAmount, c.MaxAmount = 10, 1 },
		"empty mix":       func(c *Config) { c.Mix = Mix{} },
		"bad pairing":     func(c *Config) { c.Pairing = "zigzag" },
		"bad direction":   func(c *Config) { c.Direction = "sideways" },
		"negative delay":  func(c *Config) { c.Delay = -time.Millisecond },
		"zero min amount": func(c *Config) { c.MinAmount = 0 },
		"negative min":    func(c *Config) { c.MinAmount, c.MaxAmount = -5, 10 },
		"span overflows":  func(c *Config) { c.MinAmount, c.MaxAmount = 0, math.MaxInt64 },
		"negative span":   func(c *Config) { c.MinAmount, c.MaxAmount = math.MinInt64, math.MaxInt64 },
		"mix overflows":   func(c *Config) { c.Mix = Mix{Deposit: math.MaxInt, Transfer: 1} },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			cfg := fastConfig()
			mutate(&cfg)
			_, err := c.Run(context.Background(), cfg)
			require.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

// Actors parked in their delay past the join timeout are reported as a
// suspected deadlock instead of hanging the coordinator.
func TestCoordinator_RunOn_JoinTimeoutReportsDeadlock(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	c := NewCoordinator(
		WithLogger(quietLogger()),
		WithSleep(func(time.Duration) { <-release }),
	)
	l, err := c.Setup([]models.AccountSpec{{ID: "A", InitialBalance: 100}, {ID: "B", InitialBalance: 100}})
	require.NoError(t, err)

	cfg := fastConfig()
	cfg.Actors = 4
	cfg.Delay = time.Millisecond
	cfg.JoinTimeout = 50 * time.Millisecond

	start := time.Now()
	summary, err := c.RunOn(context.Background(), l, cfg)

	require.ErrorIs(t, err, ErrDeadlockSuspected)
	require.True(t, summary.DeadlockSuspected)
	require.False(t, summary.Passed())
	require.Nil(t, summary.After, "after snapshot must not be taken on a stalled run")
	require.Less(t, time.Since(start), 5*time.Second)
}

func TestCoordinator_RunOn_FreezesLedger(t *testing.T) {
	l := ledger.NewLedger()
	_, err := l.CreateAccount("A", 1_000)
	require.NoError(t, err)

	cfg := fastConfig()
	cfg.Actors = 2
	cfg.Iterations = 10

	summary, err := NewCoordinator(WithLogger(quietLogger())).RunOn(context.Background(), l, cfg)

	require.NoError(t, err)
	require.True(t, l.Frozen())
	require.True(t, summary.Passed())
	require.Equal(t, summary.Counts[models.OpTransfer].Attempted, summary.Counts[models.OpTransfer].Skipped,
		"a single account leaves actors without a transfer partner")
}

func TestCoordinator_Run_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewCoordinator(WithLogger(quietLogger())).Run(ctx, fastConfig())

	require.ErrorIs(t, err, context.Canceled)
}

func TestPairActors(t *testing.T) {
	ids := []string{"A", "B", "C"}

	rr := pairActors(ids, 4, PairRoundRobin, nil)
	require.Equal(t, []binding{{"A", "B"}, {"B", "C"}, {"C", "A"}, {"A", "B"}}, rr)

	random := pairActors(ids, 200, PairRandom, rand.New(rand.NewSource(5)))
	for _, b := range random {
		require.NotEqual(t, b.primary, b.secondary)
		require.Contains(t, ids, b.primary)
		require.Contains(t, ids, b.secondary)
	}

	single := pairActors([]string{"A"}, 2, PairRandom, rand.New(rand.NewSource(5)))
	require.Equal(t, []binding{{"A", ""}, {"A", ""}}, single)
}
