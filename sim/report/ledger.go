package report

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang/snappy"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/inference-sim/pisim/sim"
)

const ledgerSchema = `
CREATE TABLE IF NOT EXISTS runs (
	id            TEXT PRIMARY KEY,
	created_at    INTEGER NOT NULL,
	fingerprint   TEXT NOT NULL,
	ranks         INTEGER NOT NULL,
	threads       INTEGER NOT NULL,
	total_samples INTEGER NOT NULL,
	seed          INTEGER NOT NULL,
	global_hits   INTEGER NOT NULL,
	pi_estimate   REAL NOT NULL,
	elapsed_sec   REAL NOT NULL,
	compute_sec   REAL NOT NULL,
	comm_sec      REAL NOT NULL,
	breakdown     BLOB
);
CREATE INDEX IF NOT EXISTS idx_runs_fingerprint ON runs(fingerprint);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
`

const ledgerColumns = `id, created_at, fingerprint, ranks, threads, total_samples, seed,
	global_hits, pi_estimate, elapsed_sec, compute_sec, comm_sec, breakdown`

// Entry is one recorded run.
type Entry struct {
	ID          string
	CreatedAt   time.Time
	Fingerprint string
	Row         Row
	Seed        int64
	GlobalHits  int64
	// Threads is the root rank's per-worker breakdown.
	Threads []sim.ThreadResult
}

// Ledger is a SQLite history of completed runs, written by the root rank.
type Ledger struct {
	db *sql.DB
}

// OpenLedger opens (creating if needed) the ledger database at path.
func OpenLedger(path string) (*Ledger, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("ledger: failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(ledgerSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ledger: failed to initialize schema: %w", err)
	}
	return &Ledger{db: db}, nil
}

// Close closes the database.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// Record stores a root rank's result and returns the new entry.
func (l *Ledger) Record(ctx context.Context, r *sim.Result) (Entry, error) {
	if !r.Root {
		return Entry{}, fmt.Errorf("ledger: only the root rank records results (got rank %d)", r.Config.Rank)
	}
	e := Entry{
		ID:          uuid.New().String(),
		CreatedAt:   time.Now().UTC(),
		Fingerprint: r.Fingerprint(),
		Row:         RowFromResult(r),
		Seed:        int64(r.Config.Seed),
		GlobalHits:  r.GlobalHits,
		Threads:     r.Local.Threads,
	}
	breakdown, err := encodeBreakdown(e.Threads)
	if err != nil {
		return Entry{}, err
	}
	_, err = l.db.ExecContext(ctx, `INSERT INTO runs (`+ledgerColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.CreatedAt.UnixNano(), e.Fingerprint, e.Row.Ranks, e.Row.Threads, e.Row.TotalSamples, e.Seed,
		e.GlobalHits, e.Row.PiEstimate, e.Row.Elapsed.Seconds(), e.Row.Compute.Seconds(), e.Row.Comm.Seconds(),
		breakdown)
	if err != nil {
		return Entry{}, fmt.Errorf("ledger: failed to insert run: %w", err)
	}
	return e, nil
}

// Recent returns up to limit entries, newest first.
func (l *Ledger) Recent(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := l.db.QueryContext(ctx, `SELECT `+ledgerColumns+` FROM runs
		ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("ledger: failed to query runs: %w", err)
	}
	return scanEntries(rows)
}

// ByFingerprint returns every entry with the given fingerprint, oldest first.
func (l *Ledger) ByFingerprint(ctx context.Context, fingerprint string) ([]Entry, error) {
	rows, err := l.db.QueryContext(ctx, `SELECT `+ledgerColumns+` FROM runs
		WHERE fingerprint = ? ORDER BY created_at, id`, fingerprint)
	if err != nil {
		return nil, fmt.Errorf("ledger: failed to query runs: %w", err)
	}
	return scanEntries(rows)
}

// Mismatch is a fingerprint whose recorded runs disagree on global hits.
type Mismatch struct {
	Fingerprint string
	Hits        []int64
}

// CheckDeterminism groups entries by fingerprint and reports every group whose
// runs produced different global hit counts.
func CheckDeterminism(entries []Entry) []Mismatch {
	hits := make(map[string][]int64)
	var order []string
	for _, e := range entries {
		if _, ok := hits[e.Fingerprint]; !ok {
			order = append(order, e.Fingerprint)
		}
		hits[e.Fingerprint] = append(hits[e.Fingerprint], e.GlobalHits)
	}
	var out []Mismatch
	for _, fp := range order {
		h := hits[fp]
		for _, v := range h[1:] {
			if v != h[0] {
				out = append(out, Mismatch{Fingerprint: fp, Hits: h})
				break
			}
		}
	}
	return out
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		var (
			e                         Entry
			createdAt                 int64
			elapsed, compute, commSec float64
			breakdown                 []byte
		)
		if err := rows.Scan(&e.ID, &createdAt, &e.Fingerprint, &e.Row.Ranks, &e.Row.Threads, &e.Row.TotalSamples,
			&e.Seed, &e.GlobalHits, &e.Row.PiEstimate, &elapsed, &compute, &commSec, &breakdown); err != nil {
			return nil, fmt.Errorf("ledger: failed to scan run: %w", err)
		}
		e.CreatedAt = time.Unix(0, createdAt).UTC()
		e.Row.Elapsed = secondsToDuration(elapsed)
		e.Row.Compute = secondsToDuration(compute)
		e.Row.Comm = secondsToDuration(commSec)
		threads, err := decodeBreakdown(breakdown)
		if err != nil {
			return nil, fmt.Errorf("ledger: run %s: %w", e.ID, err)
		}
		e.Threads = threads
		out = append(out, e)
	}
	return out, rows.Err()
}

func encodeBreakdown(threads []sim.ThreadResult) ([]byte, error) {
	raw, err := json.Marshal(threads)
	if err != nil {
		return nil, fmt.Errorf("ledger: failed to encode breakdown: %w", err)
	}
	return snappy.Encode(nil, raw), nil
}

func decodeBreakdown(data []byte) ([]sim.ThreadResult, error) {
	if len(data) == 0 {
		return nil, nil
	}
	raw, err := snappy.Decode(nil, data)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress breakdown: %w", err)
	}
	var threads []sim.ThreadResult
	if err := json.Unmarshal(raw, &threads); err != nil {
		return nil, fmt.Errorf("failed to decode breakdown: %w", err)
	}
	return threads, nil
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
