package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sheikh-saqib/concurrent-ledger/internal/config"
	"github.com/sheikh-saqib/concurrent-ledger/internal/events/kafka"
	"github.com/sheikh-saqib/concurrent-ledger/internal/events/logpub"
	interfaces "github.com/sheikh-saqib/concurrent-ledger/internal/interfaces"
	"github.com/sheikh-saqib/concurrent-ledger/internal/logging"
	"github.com/sheikh-saqib/concurrent-ledger/internal/metrics"
	"github.com/sheikh-saqib/concurrent-ledger/internal/report"
	"github.com/sheikh-saqib/concurrent-ledger/internal/server"
	"github.com/sheikh-saqib/concurrent-ledger/internal/simulation"
	"github.com/sheikh-saqib/concurrent-ledger/internal/storage"
)

const stressDelay = 500 * time.Microsecond

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type options struct {
	serve  bool
	stress bool
}

func run(args []string, stdout, stderr io.Writer) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "failed to load config: %v\n", err)
		return 1
	}

	opts, err := parseFlags(args, &cfg, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "%v\n", err)
		return 2
	}

	logOut := stderr
	if opts.serve {
		logOut = stdout
	}
	logger := logging.NewWithWriter(cfg.Logging, logOut)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	collector := metrics.NewMetricsCollector(logger)
	var metricsServer *http.Server
	if cfg.Metrics.Addr != "" {
		metricsServer = collector.StartMetricsServer(cfg.Metrics.Addr)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
			defer cancel()
			if err := collector.Shutdown(shutdownCtx, metricsServer); err != nil {
				logger.Warn("Metrics server shutdown failed", slog.String("error", err.Error()))
			}
		}()
	}

	store, err := storage.Open(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Error("Failed to open report store", slog.String("error", err.Error()))
		return 1
	}
	defer closeQuietly(logger, "report store", store)

	publisher := newPublisher(cfg.Kafka, logger)
	defer closeQuietly(logger, "event publisher", publisher)

	reporter := report.NewReporter(store, publisher, cfg.Kafka.Topic, logger)
	coordinator := simulation.NewCoordinator(
		simulation.WithLogger(logger),
		simulation.WithObserver(collector),
	)

	if opts.serve {
		return serve(ctx, cfg, coordinator, reporter, collector, logger)
	}
	return simulate(ctx, cfg.Simulation, coordinator, reporter, stdout, logger)
}

// parseFlags overrides cfg with any flag given explicitly on the command line.
func parseFlags(args []string, cfg *config.Config, stderr io.Writer) (options, error) {
	var opts options
	sim := cfg.Simulation

	fs := flag.NewFlagSet("ledgersim", flag.ContinueOnError)
	fs.SetOutput(stderr)
	accounts := fs.String("accounts", "", "comma separated ID=amount pairs, amounts in major units")
	mix := fs.String("mix", "", "deposit:withdraw:transfer weights")
	fs.IntVar(&sim.Actors, "actors", sim.Actors, "number of concurrent actors")
	fs.IntVar(&sim.Iterations, "iterations", sim.Iterations, "operations per actor")
	fs.Int64Var(&sim.Seed, "seed", sim.Seed, "random seed, 0 picks one from the clock")
	fs.DurationVar(&sim.JoinTimeout, "timeout", sim.JoinTimeout, "join timeout before a deadlock is suspected")
	fs.DurationVar(&sim.Delay, "delay", sim.Delay, "pause after every operation")
	pairing := fs.String("pairing", string(sim.Pairing), "round-robin or random")
	direction := fs.String("direction", string(sim.Direction), "random or forward")
	fs.BoolVar(&opts.stress, "stress", false, "pause "+stressDelay.String()+" after every operation")
	fs.BoolVar(&opts.serve, "serve", false, "serve the HTTP API instead of running once")
	fs.StringVar(&cfg.HTTP.Addr, "addr", cfg.HTTP.Addr, "HTTP listen address for -serve")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if fs.NArg() > 0 {
		return opts, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	if *accounts != "" {
		parsed, err := config.ParseAccounts(*accounts)
		if err != nil {
			return opts, fmt.Errorf("invalid -accounts: %w", err)
		}
		sim.Accounts = parsed
	}
	if *mix != "" {
		parsed, err := config.ParseMix(*mix)
		if err != nil {
			return opts, fmt.Errorf("invalid -mix: %w", err)
		}
		sim.Mix = parsed
	}
	sim.Pairing = simulation.Pairing(*pairing)
	sim.Direction = simulation.Direction(*direction)
	if opts.stress && sim.Delay == 0 {
		sim.Delay = stressDelay
	}

	cfg.Simulation = sim
	return opts, nil
}

func newPublisher(cfg config.KafkaConfig, logger *slog.Logger) interfaces.EventPublisher {
	if len(cfg.Brokers) == 0 {
		return logpub.NewPublisher(logger)
	}
	logger.Info("Publishing run events to kafka", slog.Any("brokers", cfg.Brokers), slog.String("topic", cfg.Topic))
	return kafka.NewPublisher(cfg.Brokers)
}

func simulate(ctx context.Context, cfg simulation.Config, coordinator *simulation.Coordinator, reporter *report.Reporter, stdout io.Writer, logger *slog.Logger) int {
	l, err := coordinator.Setup(cfg.Accounts)
	if err != nil {
		logger.Error("Failed to set up ledger", slog.String("error", err.Error()))
		return 1
	}
	report.WriteStart(stdout, l.Snapshot())

	summary, err := coordinator.RunOn(ctx, l, cfg)
	if err != nil && !errors.Is(err, simulation.ErrDeadlockSuspected) {
		logger.Error("Simulation failed", slog.String("error", err.Error()))
		return 1
	}
	report.WriteFinish(stdout, summary)

	if err := reporter.Report(ctx, summary); err != nil {
		logger.Warn("Run not fully reported", slog.String("error", err.Error()))
	}
	if !summary.Passed() {
		return 1
	}
	return 0
}

func serve(ctx context.Context, cfg config.Config, coordinator *simulation.Coordinator, reporter *report.Reporter, collector *metrics.MetricsCollector, logger *slog.Logger) int {
	api := server.New(coordinator, reporter, cfg.Simulation, collector.GetHandler(), logger)
	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: cfg.HTTP.ReadTimeout,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", slog.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	status := 0
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", slog.String("error", err.Error()))
			status = 1
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", slog.String("error", err.Error()))
		status = 1
	}
	return status
}

func closeQuietly(logger *slog.Logger, name string, c io.Closer) {
	if err := c.Close(); err != nil {
		logger.Warn("Close failed", slog.String("component", name), slog.String("error", err.Error()))
	}
}
