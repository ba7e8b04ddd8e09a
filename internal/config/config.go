package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/sheikh-saqib/concurrent-ledger/internal/models"
	"github.com/sheikh-saqib/concurrent-ledger/internal/money"
	"github.com/sheikh-saqib/concurrent-ledger/internal/simulation"
)

// Config aggregates application configuration values.
type Config struct {
	Simulation simulation.Config
	Logging    LoggingConfig
	Metrics    MetricsConfig
	HTTP       HTTPConfig
	Postgres   PostgresConfig
	Kafka      KafkaConfig
}

// LoggingConfig controls structured logging settings.
type LoggingConfig struct {
	Level         string
	Format        string // text|json
	IncludeCaller bool
}

// MetricsConfig controls the Prometheus endpoint. An empty Addr disables the
// standalone metrics listener.
type MetricsConfig struct {
	Addr string
}

// HTTPConfig governs the optional HTTP surface.
type HTTPConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// PostgresConfig selects the Postgres report store. Empty DSN keeps reports in
// memory.
type PostgresConfig struct {
	DSN string
}

// KafkaConfig selects the Kafka event publisher. No brokers means events are
// only logged.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

const (
	defaultLoggingLevel    = "info"
	defaultLoggingFormat   = "text"
	defaultHTTPAddr        = ":8080"
	defaultReadTimeout     = 10 * time.Second
	defaultWriteTimeout    = 5 * time.Minute
	defaultShutdownTimeout = 10 * time.Second
	defaultKafkaTopic      = "simulation_run_completed"
	defaultEnvFile         = ".env"
)

// Load reads configuration from environment variables, applying defaults. A
// .env file in the working directory (or the file named by LEDGERSIM_ENV_FILE)
// is loaded first; variables already set in the environment win.
func Load() (Config, error) {
	envFile := valueOrDefault("LEDGERSIM_ENV_FILE", defaultEnvFile)
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load %s: %w", envFile, err)
	}

	cfg := Config{
		Simulation: simulation.DefaultConfig(),
		Logging: LoggingConfig{
			Level:         valueOrDefault("LOG_LEVEL", defaultLoggingLevel),
			Format:        valueOrDefault("LOG_FORMAT", defaultLoggingFormat),
			IncludeCaller: parseBoolWithDefault("LOG_INCLUDE_CALLER", false),
		},
		Metrics: MetricsConfig{
			Addr: os.Getenv("METRICS_ADDR"),
		},
		HTTP: HTTPConfig{
			Addr:            valueOrDefault("HTTP_ADDR", defaultHTTPAddr),
			ReadTimeout:     defaultReadTimeout,
			WriteTimeout:    defaultWriteTimeout,
			ShutdownTimeout: defaultShutdownTimeout,
		},
		Postgres: PostgresConfig{
			DSN: os.Getenv("POSTGRES_DSN"),
		},
		Kafka: KafkaConfig{
			Brokers: splitCSV(os.Getenv("KAFKA_BROKERS")),
			Topic:   valueOrDefault("KAFKA_TOPIC", defaultKafkaTopic),
		},
	}

	sim := &cfg.Simulation
	if v := os.Getenv("LEDGERSIM_ACCOUNTS"); v != "" {
		accounts, err := ParseAccounts(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid LEDGERSIM_ACCOUNTS: %w", err)
		}
		sim.Accounts = accounts
	}
	sim.Actors = parseIntWithDefault("LEDGERSIM_ACTORS", sim.Actors)
	sim.Iterations = parseIntWithDefault("LEDGERSIM_ITERATIONS", sim.Iterations)
	sim.Seed = int64(parseIntWithDefault("LEDGERSIM_SEED", int(sim.Seed)))
	sim.Pairing = simulation.Pairing(valueOrDefault("LEDGERSIM_PAIRING", string(sim.Pairing)))
	sim.Direction = simulation.Direction(valueOrDefault("LEDGERSIM_DIRECTION", string(sim.Direction)))

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"LEDGERSIM_JOIN_TIMEOUT", &sim.JoinTimeout},
		{"LEDGERSIM_DELAY", &sim.Delay},
		{"HTTP_READ_TIMEOUT", &cfg.HTTP.ReadTimeout},
		{"HTTP_WRITE_TIMEOUT", &cfg.HTTP.WriteTimeout},
		{"HTTP_SHUTDOWN_TIMEOUT", &cfg.HTTP.ShutdownTimeout},
	}
	for _, d := range durations {
		if v := os.Getenv(d.key); v != "" {
			parsed, err := time.ParseDuration(v)
			if err != nil {
				return Config{}, fmt.Errorf("invalid %s: %w", d.key, err)
			}
			*d.dst = parsed
		}
	}

	amounts := []struct {
		key string
		dst *int64
	}{
		{"LEDGERSIM_MIN_AMOUNT", &sim.MinAmount},
		{"LEDGERSIM_MAX_AMOUNT", &sim.MaxAmount},
	}
	for _, a := range amounts {
		if v := os.Getenv(a.key); v != "" {
			parsed, err := money.Parse(v)
			if err != nil {
				return Config{}, fmt.Errorf("invalid %s: %w", a.key, err)
			}
			*a.dst = parsed
		}
	}

	if v := os.Getenv("LEDGERSIM_MIX"); v != "" {
		mix, err := ParseMix(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid LEDGERSIM_MIX: %w", err)
		}
		sim.Mix = mix
	}

	return cfg, nil
}

// ParseAccounts parses "ID=amount,ID=amount" where amount is in major units.
func ParseAccounts(s string) ([]models.AccountSpec, error) {
	var specs []models.AccountSpec
	for _, part := range splitCSV(s) {
		id, amount, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("account %q: expected ID=amount", part)
		}
		minor, err := money.Parse(strings.TrimSpace(amount))
		if err != nil {
			return nil, fmt.Errorf("account %q: %w", part, err)
		}
		specs = append(specs, models.AccountSpec{ID: strings.TrimSpace(id), InitialBalance: minor})
	}
	if len(specs) == 0 {
		return nil, errors.New("no accounts given")
	}
	return specs, nil
}

// ParseMix parses "deposit:withdraw:transfer" weights, e.g. "1:1:1" or "0:0:1".
func ParseMix(s string) (simulation.Mix, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return simulation.Mix{}, fmt.Errorf("mix %q: expected deposit:withdraw:transfer", s)
	}
	var w [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return simulation.Mix{}, fmt.Errorf("mix %q: %w", s, err)
		}
		w[i] = n
	}
	return simulation.Mix{Deposit: w[0], Withdraw: w[1], Transfer: w[2]}, nil
}

func valueOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseBoolWithDefault(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		val, err := strconv.ParseBool(v)
		if err != nil {
			return fallback
		}
		return val
	}
	return fallback
}

func parseIntWithDefault(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if val, err := strconv.Atoi(v); err == nil {
			return val
		}
	}
	return fallback
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
