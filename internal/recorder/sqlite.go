package recorder

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"PullbackScanner/internal/model"
)

// SQLiteRecorder persists scan history to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets the dashboard read while a scan writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite recorder opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS scan_runs (
			id          TEXT PRIMARY KEY,
			started_at  INTEGER NOT NULL,
			finished_at INTEGER NOT NULL,
			bar_interval TEXT,
			market_ok   INTEGER,
			tickers     INTEGER,
			buy_count   INTEGER,
			error_count INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON scan_runs(started_at)`,

		`CREATE TABLE IF NOT EXISTS scan_results (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id    TEXT NOT NULL REFERENCES scan_runs(id),
			ticker    TEXT NOT NULL,
			category  TEXT NOT NULL,
			price     REAL,
			bar_time  INTEGER,
			strength  REAL,
			ema_fast  REAL,
			ema_slow  REAL,
			atr       REAL,
			note      TEXT,
			error     TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_results_ticker ON scan_results(ticker, bar_time)`,
		`CREATE INDEX IF NOT EXISTS idx_results_run ON scan_results(run_id)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordScan(run *model.ScanRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`INSERT INTO scan_runs
		(id, started_at, finished_at, bar_interval, market_ok, tickers, buy_count, error_count)
		VALUES (?,?,?,?,?,?,?,?)`,
		run.ID, run.StartedAt.Unix(), run.FinishedAt.Unix(), run.Interval, run.MarketOK,
		len(run.Results), run.Count(model.CategoryBuy), run.Count(model.CategoryError),
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO scan_results
		(run_id, ticker, category, price, bar_time, strength, ema_fast, ema_slow, atr, note, error)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare result insert: %w", err)
	}
	defer stmt.Close()

	for _, res := range run.Results {
		var barTime any
		if !res.Time.IsZero() {
			barTime = res.Time.Unix()
		}
		if _, err := stmt.Exec(run.ID, res.Ticker, string(res.Category), res.Price, barTime,
			res.Strength, res.EMAFast, res.EMASlow, res.ATR, res.Note, res.Err); err != nil {
			return fmt.Errorf("insert result %s: %w", res.Ticker, err)
		}
	}
	return tx.Commit()
}

func (r *SQLiteRecorder) Close() error {
	log.Println("[INFO] closing sqlite recorder")
	return r.db.Close()
}
