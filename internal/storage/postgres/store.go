package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	interfaces "github.com/sheikh-saqib/concurrent-ledger/internal/interfaces"
	"github.com/sheikh-saqib/concurrent-ledger/internal/models"
)

const (
	phaseBefore = "before"
	phaseAfter  = "after"
)

const schema = `
CREATE TABLE IF NOT EXISTS simulation_runs (
	run_id             uuid PRIMARY KEY,
	started_at         timestamptz NOT NULL,
	finished_at        timestamptz NOT NULL,
	elapsed_ns         bigint NOT NULL,
	actors             integer NOT NULL,
	iterations         integer NOT NULL,
	seed               bigint NOT NULL,
	total_before       bigint NOT NULL,
	total_after        bigint NOT NULL,
	deposited          bigint NOT NULL,
	withdrawn          bigint NOT NULL,
	counts             jsonb NOT NULL,
	non_negative       boolean NOT NULL,
	conserved          boolean NOT NULL,
	deadlock_suspected boolean NOT NULL
);
CREATE TABLE IF NOT EXISTS simulation_run_balances (
	run_id     uuid NOT NULL REFERENCES simulation_runs(run_id) ON DELETE CASCADE,
	phase      text NOT NULL,
	position   integer NOT NULL,
	account_id text NOT NULL,
	balance    bigint NOT NULL,
	PRIMARY KEY (run_id, phase, position)
);`

// PostgresReportStore keeps run summaries in Postgres.
type PostgresReportStore struct {
	db *sql.DB
}

func NewPostgresReportStore(db *sql.DB) *PostgresReportStore {
	return &PostgresReportStore{
		db: db,
	}
}

// Open connects with the lib/pq driver, checks the connection and creates the
// tables if needed.
func Open(ctx context.Context, dsn string) (*PostgresReportStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	store := NewPostgresReportStore(db)
	if err := store.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (p *PostgresReportStore) Migrate(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate report schema: %w", err)
	}
	return nil
}

// SaveRun writes the run and its balance snapshots in one database
// transaction. Saving the same run twice is a no-op.
func (p *PostgresReportStore) SaveRun(ctx context.Context, summary models.RunSummary) (err error) {
	counts, err := json.Marshal(summary.Counts)
	if err != nil {
		return fmt.Errorf("encode counts: %w", err)
	}

	dbTx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			dbTx.Rollback()
		}
	}()

	const insertRun = `INSERT INTO simulation_runs (run_id, started_at, finished_at, elapsed_ns, actors, iterations,
	seed, total_before, total_after, deposited, withdrawn, counts, non_negative, conserved, deadlock_suspected)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
	ON CONFLICT (run_id) DO NOTHING`

	res, err := dbTx.ExecContext(ctx, insertRun,
		summary.RunID, summary.StartedAt, summary.FinishedAt, int64(summary.Elapsed),
		summary.Actors, summary.Iterations, summary.Seed,
		summary.TotalBefore, summary.TotalAfter, summary.Deposited, summary.Withdrawn,
		string(counts), summary.NonNegative, summary.Conserved, summary.DeadlockSuspected)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", summary.RunID, err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if inserted == 0 {
		return dbTx.Commit()
	}

	if err = saveBalances(ctx, dbTx, summary.RunID, phaseBefore, summary.Before); err != nil {
		return err
	}
	if err = saveBalances(ctx, dbTx, summary.RunID, phaseAfter, summary.After); err != nil {
		return err
	}
	return dbTx.Commit()
}

func saveBalances(ctx context.Context, dbTx *sql.Tx, runID uuid.UUID, phase string, balances []models.AccountBalance) error {
	const query = `INSERT INTO simulation_run_balances (run_id, phase, position, account_id, balance)
	VALUES ($1,$2,$3,$4,$5)`

	for i, b := range balances {
		if _, err := dbTx.ExecContext(ctx, query, runID, phase, i, b.AccountID, b.Balance); err != nil {
			return fmt.Errorf("insert %s balance for %s: %w", phase, b.AccountID, err)
		}
	}
	return nil
}

const selectRuns = `SELECT run_id, started_at, finished_at, elapsed_ns, actors, iterations, seed,
	total_before, total_after, deposited, withdrawn, counts, non_negative, conserved, deadlock_suspected
	FROM simulation_runs`

func (p *PostgresReportStore) GetRun(ctx context.Context, runID uuid.UUID) (models.RunSummary, error) {
	row := p.db.QueryRowContext(ctx, selectRuns+` WHERE run_id = $1`, runID)
	summary, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.RunSummary{}, fmt.Errorf("%w: %s", interfaces.ErrRunNotFound, runID)
	}
	if err != nil {
		return models.RunSummary{}, err
	}

	runs := []models.RunSummary{summary}
	if err := p.loadBalances(ctx, runs); err != nil {
		return models.RunSummary{}, err
	}
	return runs[0], nil
}

// ListRuns returns the newest runs first. limit <= 0 means all.
func (p *PostgresReportStore) ListRuns(ctx context.Context, limit int) ([]models.RunSummary, error) {
	var lim sql.NullInt64
	if limit > 0 {
		lim = sql.NullInt64{Int64: int64(limit), Valid: true}
	}

	rows, err := p.db.QueryContext(ctx, selectRuns+` ORDER BY started_at DESC LIMIT $1`, lim)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []models.RunSummary
	for rows.Next() {
		summary, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := p.loadBalances(ctx, runs); err != nil {
		return nil, err
	}
	return runs, nil
}

func (p *PostgresReportStore) loadBalances(ctx context.Context, runs []models.RunSummary) error {
	if len(runs) == 0 {
		return nil
	}

	ids := make([]string, len(runs))
	index := make(map[uuid.UUID]int, len(runs))
	for i, r := range runs {
		ids[i] = r.RunID.String()
		index[r.RunID] = i
	}

	const query = `SELECT run_id, phase, account_id, balance FROM simulation_run_balances
	WHERE run_id = ANY($1::uuid[]) ORDER BY run_id, phase, position`

	rows, err := p.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			runID uuid.UUID
			phase string
			b     models.AccountBalance
		)
		if err := rows.Scan(&runID, &phase, &b.AccountID, &b.Balance); err != nil {
			return err
		}
		r := &runs[index[runID]]
		if phase == phaseBefore {
			r.Before = append(r.Before, b)
		} else {
			r.After = append(r.After, b)
		}
	}
	return rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (models.RunSummary, error) {
	var (
		s       models.RunSummary
		elapsed int64
		counts  []byte
	)
	err := row.Scan(&s.RunID, &s.StartedAt, &s.FinishedAt, &elapsed, &s.Actors, &s.Iterations, &s.Seed,
		&s.TotalBefore, &s.TotalAfter, &s.Deposited, &s.Withdrawn, &counts,
		&s.NonNegative, &s.Conserved, &s.DeadlockSuspected)
	if err != nil {
		return models.RunSummary{}, err
	}
	s.Elapsed = time.Duration(elapsed)
	if err := json.Unmarshal(counts, &s.Counts); err != nil {
		return models.RunSummary{}, fmt.Errorf("decode counts for run %s: %w", s.RunID, err)
	}
	return s, nil
}

func (p *PostgresReportStore) Close() error {
	return p.db.Close()
}

var _ interfaces.ReportStore = (*PostgresReportStore)(nil)
