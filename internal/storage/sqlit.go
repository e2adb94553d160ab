package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	// Register sqlite3 driver
	_ "github.com/mattn/go-sqlite3"
)

// DayLayout is how trading days are stored.
const DayLayout = "2006-01-02"

type Store struct{ db *sqlx.DB }

// PriceRow is one cached daily close.
type PriceRow struct {
	Symbol      string  `db:"symbol"`
	Day         string  `db:"day"`
	Close       float64 `db:"close"`
	ActualClose float64 `db:"actual_close"`
}

// Run is a recorded simulation or optimization.
type Run struct {
	ID               string  `db:"id"`
	ChatID           int64   `db:"chat_id"`
	Kind             string  `db:"kind"`
	Symbols          string  `db:"symbols"`
	Allocation       string  `db:"allocation"`
	Window           string  `db:"span"`
	Sharpe           float64 `db:"sharpe"`
	CumulativeReturn float64 `db:"cumulative_return"`
	CreatedAt        int64   `db:"created_at"`
}

func OpenSQLite(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	// sqlite allows one writer; serialize through a single connection
	db.SetMaxOpenConns(1)
	return db, nil
}

func InitSchema(ctx context.Context, db *sqlx.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS closes(
			symbol TEXT NOT NULL, day TEXT NOT NULL, close REAL NOT NULL, actual_close REAL NOT NULL,
			PRIMARY KEY(symbol, day)
		)`,
		`CREATE TABLE IF NOT EXISTS fetches(
			symbol TEXT NOT NULL, start_day TEXT NOT NULL, end_day TEXT NOT NULL, fetched_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS fetches_symbol ON fetches(symbol)`,
		`CREATE TABLE IF NOT EXISTS runs(
			id TEXT PRIMARY KEY, chat_id INTEGER, kind TEXT, symbols TEXT, allocation TEXT,
			span TEXT, sharpe REAL, cumulative_return REAL, created_at INTEGER
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

func NewStore(db *sqlx.DB) *Store { return &Store{db: db} }

// SaveBars upserts cached closes.
func (s *Store) SaveBars(ctx context.Context, rows []PriceRow) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareNamedContext(ctx, `INSERT INTO closes(symbol,day,close,actual_close)
		VALUES(:symbol,:day,:close,:actual_close)
		ON CONFLICT(symbol,day) DO UPDATE SET close=excluded.close, actual_close=excluded.actual_close`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row); err != nil {
			return fmt.Errorf("save %s %s: %w", row.Symbol, row.Day, err)
		}
	}
	return tx.Commit()
}

// LoadBars returns cached closes for symbol between start and end inclusive, by day.
func (s *Store) LoadBars(ctx context.Context, symbol string, start, end time.Time) ([]PriceRow, error) {
	var out []PriceRow
	err := s.db.SelectContext(ctx, &out,
		`SELECT symbol, day, close, actual_close FROM closes WHERE symbol=? AND day>=? AND day<=? ORDER BY day ASC`,
		symbol, start.Format(DayLayout), end.Format(DayLayout))
	return out, err
}

// MarkFetched records that the source was asked for symbol over [start, end].
func (s *Store) MarkFetched(ctx context.Context, symbol string, start, end time.Time) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO fetches(symbol,start_day,end_day,fetched_at) VALUES(?,?,?,?)`,
		symbol, start.Format(DayLayout), end.Format(DayLayout), time.Now().Unix())
	return err
}

// Covered reports whether a single earlier fetch spans [start, end].
func (s *Store) Covered(ctx context.Context, symbol string, start, end time.Time) (bool, error) {
	var n int
	err := s.db.GetContext(ctx, &n,
		`SELECT COUNT(*) FROM fetches WHERE symbol=? AND start_day<=? AND end_day>=?`,
		symbol, start.Format(DayLayout), end.Format(DayLayout))
	return n > 0, err
}

// SaveRun stores a run, assigning an ID and timestamp when missing.
func (s *Store) SaveRun(ctx context.Context, run Run) (Run, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt == 0 {
		run.CreatedAt = time.Now().Unix()
	}
	_, err := s.db.NamedExecContext(ctx, `INSERT INTO runs(id,chat_id,kind,symbols,allocation,span,sharpe,cumulative_return,created_at)
		VALUES(:id,:chat_id,:kind,:symbols,:allocation,:span,:sharpe,:cumulative_return,:created_at)`, run)
	return run, err
}

// RecentRuns lists the latest runs for a chat, newest first.
func (s *Store) RecentRuns(ctx context.Context, chatID int64, limit int) ([]Run, error) {
	var out []Run
	err := s.db.SelectContext(ctx, &out,
		`SELECT id, chat_id, kind, symbols, allocation, span, sharpe, cumulative_return, created_at
		FROM runs WHERE chat_id=? ORDER BY created_at DESC, rowid DESC LIMIT ?`, chatID, limit)
	return out, err
}
