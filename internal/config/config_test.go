package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sheikh-saqib/concurrent-ledger/internal/models"
	"github.com/sheikh-saqib/concurrent-ledger/internal/simulation"
)

func noEnvFile(t *testing.T) {
	t.Helper()
	t.Setenv("LEDGERSIM_ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
}

func TestLoad_Defaults(t *testing.T) {
	noEnvFile(t)

	cfg, err := Load()

	require.NoError(t, err)
	require.Equal(t, simulation.DefaultConfig(), cfg.Simulation)
	require.Equal(t, "info", cfg.Logging.Level)
	require.Equal(t, ":8080", cfg.HTTP.Addr)
	require.Equal(t, "simulation_run_completed", cfg.Kafka.Topic)
}

func TestLoad_Overrides(t *testing.T) {
	noEnvFile(t)
	t.Setenv("LEDGERSIM_ACCOUNTS", "A=1000.00, B=500")
	t.Setenv("LEDGERSIM_ACTORS", "100")
	t.Setenv("LEDGERSIM_ITERATIONS", "250")
	t.Setenv("LEDGERSIM_JOIN_TIMEOUT", "45s")
	t.Setenv("LEDGERSIM_DELAY", "500us")
	t.Setenv("LEDGERSIM_MIN_AMOUNT", "0.10")
	t.Setenv("LEDGERSIM_MAX_AMOUNT", "10")
	t.Setenv("LEDGERSIM_MIX", "0:0:1")
	t.Setenv("LEDGERSIM_PAIRING", "random")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")

	cfg, err := Load()

	require.NoError(t, err)
	sim := cfg.Simulation
	require.Equal(t, []models.AccountSpec{{ID: "A", InitialBalance: 100_000}, {ID: "B", InitialBalance: 50_000}}, sim.Accounts)
	require.Equal(t, 100, sim.Actors)
	require.Equal(t, 250, sim.Iterations)
	require.Equal(t, 45*time.Second, sim.JoinTimeout)
	require.Equal(t, 500*time.Microsecond, sim.Delay)
	require.EqualValues(t, 10, sim.MinAmount)
	require.EqualValues(t, 1_000, sim.MaxAmount)
	require.Equal(t, simulation.TransferOnly, sim.Mix)
	require.Equal(t, simulation.PairRandom, sim.Pairing)
	require.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
}

func TestLoad_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("LEDGERSIM_ACTORS=7\nLOG_FORMAT=json\n"), 0o600))
	t.Setenv("LEDGERSIM_ENV_FILE", path)
	t.Setenv("LOG_FORMAT", "text")
	// godotenv.Load never overrides variables that are already set, so clear
	// the one the file should provide.
	t.Setenv("LEDGERSIM_ACTORS", "")
	os.Unsetenv("LEDGERSIM_ACTORS")

	cfg, err := Load()

	require.NoError(t, err)
	require.Equal(t, 7, cfg.Simulation.Actors)
	require.Equal(t, "text", cfg.Logging.Format, "process environment wins over the file")
}

func TestLoad_InvalidValues(t *testing.T) {
	cases := map[string]string{
		"LEDGERSIM_JOIN_TIMEOUT": "soon",
		"LEDGERSIM_ACCOUNTS":     "A:100",
		"LEDGERSIM_MIN_AMOUNT":   "0.001",
		"LEDGERSIM_MIX":          "1:2",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			noEnvFile(t)
			t.Setenv(key, value)
			_, err := Load()
			require.Error(t, err)
		})
	}
}

func TestParseAccounts(t *testing.T) {
	specs, err := ParseAccounts("ACC-001=1000.00,ACC-002=0.5")
	require.NoError(t, err)
	require.Equal(t, []models.AccountSpec{
		{ID: "ACC-001", InitialBalance: 100_000},
		{ID: "ACC-002", InitialBalance: 50},
	}, specs)

	_, err = ParseAccounts(" , ")
	require.Error(t, err)
	_, err = ParseAccounts("A=ten")
	require.Error(t, err)
}

func TestParseMix(t *testing.T) {
	mix, err := ParseMix("2:1:3")
	require.NoError(t, err)
	require.Equal(t, simulation.Mix{Deposit: 2, Withdraw: 1, Transfer: 3}, mix)

	_, err = ParseMix("a:b:c")
	require.Error(t, err)
}
