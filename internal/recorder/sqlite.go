package recorder

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/vmihailenco/msgpack/v5"
	_ "modernc.org/sqlite"

	"WealthPulse/internal/model"
)

// SQLiteRecorder persists historical data to a SQLite database.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	log zerolog.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, log zerolog.Logger) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets readers (dashboards, fallback reads) proceed while the cache writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	r := &SQLiteRecorder{db: db, log: log.With().Str("component", "recorder").Logger()}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	r.log.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS quote_snapshots (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			cache_key  TEXT NOT NULL,
			dataset    TEXT NOT NULL,
			source     TEXT NOT NULL,
			as_of      INTEGER NOT NULL,
			fetched_at INTEGER NOT NULL,
			payload    BLOB NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_key ON quote_snapshots(cache_key, fetched_at)`,

		`CREATE TABLE IF NOT EXISTS quote_history (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			dataset        TEXT NOT NULL,
			symbol         TEXT NOT NULL,
			source         TEXT NOT NULL,
			price          TEXT NOT NULL,
			change_percent REAL,
			unit           TEXT,
			currency       TEXT,
			as_of          INTEGER NOT NULL,
			fetched_at     INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_history_symbol ON quote_history(dataset, symbol, fetched_at)`,

		`CREATE TABLE IF NOT EXISTS performance_history (
			id                INTEGER PRIMARY KEY AUTOINCREMENT,
			investment_id     TEXT NOT NULL,
			date              INTEGER NOT NULL,
			value             TEXT NOT NULL,
			return_amount     TEXT NOT NULL,
			return_percentage REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_performance_inv ON performance_history(investment_id, date)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// SaveQuotes stores the set msgpack-encoded for fallback reads and one row per
// quote for history queries, in one transaction.
func (r *SQLiteRecorder) SaveQuotes(ctx context.Context, key string, set *model.QuoteSet, fetchedAt time.Time) error {
	payload, err := msgpack.Marshal(set)
	if err != nil {
		return fmt.Errorf("marshal quote set: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `INSERT INTO quote_snapshots
		(cache_key, dataset, source, as_of, fetched_at, payload)
		VALUES (?,?,?,?,?,?)`,
		key, string(set.Dataset), set.Source, set.AsOf.UnixMilli(), fetchedAt.UnixMilli(), payload,
	); err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO quote_history
		(dataset, symbol, source, price, change_percent, unit, currency, as_of, fetched_at)
		VALUES (?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare history: %w", err)
	}
	defer stmt.Close()
	for _, q := range set.Quotes {
		if _, err := stmt.ExecContext(ctx,
			string(set.Dataset), q.Symbol, q.Source, q.Price.String(), q.ChangePercent,
			string(q.Unit), q.Currency, q.AsOf.UnixMilli(), fetchedAt.UnixMilli(),
		); err != nil {
			return fmt.Errorf("insert history %s: %w", q.Symbol, err)
		}
	}
	return tx.Commit()
}

func (r *SQLiteRecorder) LatestQuotes(ctx context.Context, key string) (*model.QuoteSet, time.Time, error) {
	var (
		payload   []byte
		fetchedAt int64
	)
	err := r.db.QueryRowContext(ctx, `SELECT payload, fetched_at FROM quote_snapshots
		WHERE cache_key = ? ORDER BY fetched_at DESC, id DESC LIMIT 1`, key).Scan(&payload, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, time.Time{}, ErrNotFound
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("query snapshot: %w", err)
	}

	var set model.QuoteSet
	if err := msgpack.Unmarshal(payload, &set); err != nil {
		return nil, time.Time{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return &set, time.UnixMilli(fetchedAt), nil
}

func (r *SQLiteRecorder) QuoteHistory(ctx context.Context, dataset model.Dataset, symbol string, limit int) ([]model.Quote, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, `SELECT symbol, source, price, change_percent, unit, currency, as_of
		FROM quote_history WHERE dataset = ? AND symbol = ?
		ORDER BY fetched_at DESC, id DESC LIMIT ?`, string(dataset), model.NormalizeSymbol(symbol), limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []model.Quote
	for rows.Next() {
		var (
			q           model.Quote
			price, unit string
			asOf        int64
		)
		if err := rows.Scan(&q.Symbol, &q.Source, &price, &q.ChangePercent, &unit, &q.Currency, &asOf); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		if q.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("parse price %q: %w", price, err)
		}
		q.Unit = model.Unit(unit)
		q.AsOf = time.UnixMilli(asOf)
		out = append(out, q)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) RecordPerformance(ctx context.Context, investmentID uuid.UUID, snap model.PerformanceSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.ExecContext(ctx, `INSERT INTO performance_history
		(investment_id, date, value, return_amount, return_percentage)
		VALUES (?,?,?,?,?)`,
		investmentID.String(), snap.Date.UnixMilli(), snap.Value.String(), snap.Return.String(), snap.ReturnPercentage,
	)
	return err
}

func (r *SQLiteRecorder) PerformanceHistory(ctx context.Context, investmentID uuid.UUID) ([]model.PerformanceSnapshot, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT date, value, return_amount, return_percentage
		FROM performance_history WHERE investment_id = ? ORDER BY date, id`, investmentID.String())
	if err != nil {
		return nil, fmt.Errorf("query performance: %w", err)
	}
	defer rows.Close()

	var out []model.PerformanceSnapshot
	for rows.Next() {
		var (
			date       int64
			value, ret string
			s          model.PerformanceSnapshot
		)
		if err := rows.Scan(&date, &value, &ret, &s.ReturnPercentage); err != nil {
			return nil, fmt.Errorf("scan performance: %w", err)
		}
		s.Date = time.UnixMilli(date)
		if s.Value, err = decimal.NewFromString(value); err != nil {
			return nil, fmt.Errorf("parse value %q: %w", value, err)
		}
		if s.Return, err = decimal.NewFromString(ret); err != nil {
			return nil, fmt.Errorf("parse return %q: %w", ret, err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	r.log.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}
