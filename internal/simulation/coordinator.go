package simulation

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sheikh-saqib/concurrent-ledger/internal/ledger"
	"github.com/sheikh-saqib/concurrent-ledger/internal/models"
)

// Coordinator builds a ledger, runs a population of actors against it and
// checks the ledger invariants once they have all finished.
type Coordinator struct {
	logger   *slog.Logger
	observer Observer
	sleep    func(time.Duration)
}

type Option func(*Coordinator)

// WithLogger sets the logger. nil keeps slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithObserver receives operation and run measurements.
func WithObserver(observer Observer) Option {
	return func(c *Coordinator) {
		if observer != nil {
			c.observer = observer
		}
	}
}

// WithSleep replaces time.Sleep for the actors' inter-operation delay.
func WithSleep(sleep func(time.Duration)) Option {
	return func(c *Coordinator) {
		if sleep != nil {
			c.sleep = sleep
		}
	}
}

func NewCoordinator(opts ...Option) *Coordinator {
	c := &Coordinator{
		logger:   slog.Default(),
		observer: nopObserver{},
		sleep:    time.Sleep,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Setup builds a frozen ledger from account specs.
func (c *Coordinator) Setup(specs []models.AccountSpec) (*ledger.Ledger, error) {
	l, err := ledger.FromSpecs(specs)
	if err != nil {
		return nil, fmt.Errorf("ledger setup: %w", err)
	}
	return l, nil
}

// Run builds a ledger from cfg.Accounts and simulates against it.
func (c *Coordinator) Run(ctx context.Context, cfg Config) (models.RunSummary, error) {
	if err := cfg.Validate(); err != nil {
		return models.RunSummary{}, err
	}
	l, err := c.Setup(cfg.Accounts)
	if err != nil {
		return models.RunSummary{}, err
	}
	return c.RunOn(ctx, l, cfg)
}

// RunOn simulates against an existing ledger, which is frozen first.
// cfg.Accounts is ignored.
//
// If the actors have not all finished within cfg.JoinTimeout the summary is
// returned with DeadlockSuspected set together with an ErrDeadlockSuspected
// error. Actors still running are asked to stop between operations but are
// never interrupted inside one.
func (c *Coordinator) RunOn(ctx context.Context, l *ledger.Ledger, cfg Config) (models.RunSummary, error) {
	cfg.Accounts = nil
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	if l.Len() == 0 {
		return models.RunSummary{}, fmt.Errorf("%w: ledger has no accounts", ErrInvalidConfig)
	}
	if err := cfg.validateRun(); err != nil {
		return models.RunSummary{}, err
	}
	l.Freeze()

	summary := models.NewRunSummary(cfg.Actors, cfg.Iterations, cfg.Seed)
	summary.Before = l.Snapshot()
	summary.TotalBefore = models.SumBalances(summary.Before)

	logger := c.logger.With(slog.String("run_id", summary.RunID.String()))
	logger.InfoContext(ctx, "Starting simulation",
		slog.Int("accounts", l.Len()),
		slog.Int("actors", cfg.Actors),
		slog.Int("iterations", cfg.Iterations),
		slog.Int64("seed", cfg.Seed),
		slog.Int64("total_before", summary.TotalBefore))

	actors := c.buildActors(l.IDs(), cfg)
	results := make([]Stats, len(actors))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)

	var finished atomic.Int64
	for i, actor := range actors {
		g.Go(func() error {
			defer finished.Add(1)
			stats, err := actor.Run(gctx, l)
			results[i] = stats
			if err != nil {
				logger.WarnContext(gctx, "Actor stopped",
					slog.String("actor", actor.Name()),
					slog.String("error", err.Error()))
			}
			return err
		})
	}

	done := make(chan error, 1)
	go func() {
		done <- g.Wait()
	}()

	timer := time.NewTimer(cfg.JoinTimeout)
	defer timer.Stop()

	select {
	case err := <-done:
		summary.FinishedAt = time.Now()
		summary.Elapsed = summary.FinishedAt.Sub(summary.StartedAt)
		if err != nil {
			return summary, fmt.Errorf("simulation aborted: %w", err)
		}
	case <-timer.C:
		cancel()
		summary.FinishedAt = time.Now()
		summary.Elapsed = summary.FinishedAt.Sub(summary.StartedAt)
		summary.DeadlockSuspected = true
		running := int64(len(actors)) - finished.Load()
		logger.ErrorContext(ctx, "Join timeout elapsed, deadlock suspected",
			slog.Int64("running_actors", running),
			slog.Duration("join_timeout", cfg.JoinTimeout))
		c.observer.ObserveRun(summary)
		return summary, fmt.Errorf("%w: %d of %d actors still running after %s",
			ErrDeadlockSuspected, running, len(actors), cfg.JoinTimeout)
	}

	var total Stats
	for _, s := range results {
		total.Merge(s)
	}
	for kind, counts := range total.Counts {
		summary.Counts[kind] = counts
	}
	summary.Deposited = total.Deposited
	summary.Withdrawn = total.Withdrawn

	summary.After = l.Snapshot()
	summary.TotalAfter = models.SumBalances(summary.After)
	summary.NonNegative = true
	for _, b := range summary.After {
		if b.Balance < 0 {
			summary.NonNegative = false
		}
	}
	summary.Conserved = summary.TotalAfter == summary.ExpectedTotal()

	c.observer.ObserveRun(summary)

	level := slog.LevelInfo
	if !summary.Passed() {
		level = slog.LevelError
	}
	logger.Log(ctx, level, "Simulation finished",
		slog.Duration("elapsed", summary.Elapsed),
		slog.Int64("total_before", summary.TotalBefore),
		slog.Int64("total_after", summary.TotalAfter),
		slog.Int64("expected_total", summary.ExpectedTotal()),
		slog.Int("rejected_operations", summary.TotalFailed()),
		slog.Bool("non_negative", summary.NonNegative),
		slog.Bool("conserved", summary.Conserved))

	return summary, nil
}

// buildActors pairs actors with accounts and gives each its own random source
// derived from the run seed, so a seed reproduces the same operation streams.
func (c *Coordinator) buildActors(ids []string, cfg Config) []*Actor {
	pairRng := rand.New(rand.NewSource(cfg.Seed))
	bindings := pairActors(ids, cfg.Actors, cfg.Pairing, pairRng)

	actors := make([]*Actor, len(bindings))
	for i, b := range bindings {
		rng := rand.New(rand.NewSource(cfg.Seed + int64(i) + 1))
		actor := NewActor(fmt.Sprintf("user-%d", i), cfg.actorConfig(b.primary, b.secondary), rng, c.observer)
		actor.sleep = c.sleep
		actors[i] = actor
	}
	return actors
}
