package recorder

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"PullbackScanner/internal/model"
)

// PostgresRecorder persists scan history to Postgres through a pgx pool.
type PostgresRecorder struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

// NewPostgresRecorder connects to url and creates the tables.
func NewPostgresRecorder(ctx context.Context, url string) (*PostgresRecorder, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	r := &PostgresRecorder{pool: pool, timeout: 10 * time.Second}
	if err := r.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	log.Println("[INFO] postgres recorder connected")
	return r, nil
}

func (r *PostgresRecorder) migrate(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `
	CREATE TABLE IF NOT EXISTS scan_runs (
		id          UUID PRIMARY KEY,
		started_at  TIMESTAMPTZ NOT NULL,
		finished_at TIMESTAMPTZ NOT NULL,
		bar_interval TEXT,
		market_ok   BOOLEAN,
		tickers     INTEGER,
		buy_count   INTEGER,
		error_count INTEGER
	);
	CREATE TABLE IF NOT EXISTS scan_results (
		id        BIGSERIAL PRIMARY KEY,
		run_id    UUID NOT NULL REFERENCES scan_runs(id),
		ticker    TEXT NOT NULL,
		category  TEXT NOT NULL,
		price     DOUBLE PRECISION,
		bar_time  TIMESTAMPTZ,
		strength  DOUBLE PRECISION,
		ema_fast  DOUBLE PRECISION,
		ema_slow  DOUBLE PRECISION,
		atr       DOUBLE PRECISION,
		note      TEXT,
		error     TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_results_ticker ON scan_results(ticker, bar_time);`)
	return err
}

func (r *PostgresRecorder) RecordScan(run *model.ScanRun) error {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `INSERT INTO scan_runs
			(id, started_at, finished_at, bar_interval, market_ok, tickers, buy_count, error_count)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			run.ID, run.StartedAt, run.FinishedAt, run.Interval, run.MarketOK,
			len(run.Results), run.Count(model.CategoryBuy), run.Count(model.CategoryError),
		); err != nil {
			return fmt.Errorf("insert run: %w", err)
		}

		batch := &pgx.Batch{}
		for _, res := range run.Results {
			var barTime *time.Time
			if !res.Time.IsZero() {
				t := res.Time
				barTime = &t
			}
			batch.Queue(`INSERT INTO scan_results
				(run_id, ticker, category, price, bar_time, strength, ema_fast, ema_slow, atr, note, error)
				VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
				run.ID, res.Ticker, string(res.Category), res.Price, barTime,
				res.Strength, res.EMAFast, res.EMASlow, res.ATR, res.Note, res.Err)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert results: %w", err)
		}
		return nil
	})
}

func (r *PostgresRecorder) Close() error {
	log.Println("[INFO] closing postgres recorder")
	r.pool.Close()
	return nil
}
