// FILE: journal.go
// Package main – Append-only order journal.
//
// Every placement attempt (seed or rebalance, accepted or not) can be written
// to a small sqlite file for later audit. The journal is write-mostly and is
// never read back by the trading loop; grid decisions do not depend on it.
//
// JOURNAL_PATH empty -> nopJournal.

package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

// JournalEntry is one placement attempt.
type JournalEntry struct {
	ID           int64            `json:"id"`
	ClientID     string           `json:"client_id"`
	Kind         string           `json:"kind"` // seed | rebalance
	Instrument   string           `json:"instrument"`
	Side         OrderSide        `json:"side"`
	Units        int64            `json:"units"`
	Price        decimal.Decimal  `json:"price"`
	StopLoss     *decimal.Decimal `json:"stop_loss,omitempty"`
	TakeProfit   *decimal.Decimal `json:"take_profit,omitempty"`
	LevelIndex   int              `json:"level_index"`
	TriggerPrice *decimal.Decimal `json:"trigger_price,omitempty"` // tick that caused a rebalance
	Status       string           `json:"status"`                  // accepted | rejected
	OrderID      string           `json:"order_id,omitempty"`
	Reason       string           `json:"reason,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
}

// Journal records placement attempts.
type Journal interface {
	Record(ctx context.Context, e JournalEntry) error
	Recent(ctx context.Context, limit int) ([]JournalEntry, error)
	Close() error
}

type nopJournal struct{}

func (nopJournal) Record(context.Context, JournalEntry) error          { return nil }
func (nopJournal) Recent(context.Context, int) ([]JournalEntry, error) { return nil, nil }
func (nopJournal) Close() error                                        { return nil }

// SQLiteJournal stores entries in a single table.
type SQLiteJournal struct {
	db *sql.DB
}

// openJournal returns a nopJournal for an empty path.
func openJournal(path string) (Journal, error) {
	if path == "" {
		return nopJournal{}, nil
	}
	return OpenSQLiteJournal(path)
}

// OpenSQLiteJournal opens (creating if needed) the journal at path.
func OpenSQLiteJournal(path string) (*SQLiteJournal, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("journal dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	j := &SQLiteJournal{db: db}
	if err := j.initTables(); err != nil {
		db.Close()
		return nil, err
	}
	return j, nil
}

func (j *SQLiteJournal) initTables() error {
	_, err := j.db.Exec(`
		CREATE TABLE IF NOT EXISTS grid_orders (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			client_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			instrument TEXT NOT NULL,
			side TEXT NOT NULL,
			units INTEGER NOT NULL,
			price TEXT NOT NULL,
			stop_loss TEXT DEFAULT '',
			take_profit TEXT DEFAULT '',
			level_index INTEGER NOT NULL,
			trigger_price TEXT DEFAULT '',
			status TEXT NOT NULL,
			order_id TEXT DEFAULT '',
			reason TEXT DEFAULT '',
			created_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("create grid_orders: %w", err)
	}
	if _, err := j.db.Exec(`CREATE INDEX IF NOT EXISTS idx_grid_orders_created ON grid_orders(created_at DESC)`); err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	return nil
}

func (j *SQLiteJournal) Record(ctx context.Context, e JournalEntry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO grid_orders (client_id, kind, instrument, side, units, price, stop_loss,
			take_profit, level_index, trigger_price, status, order_id, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ClientID, e.Kind, e.Instrument, string(e.Side), e.Units, e.Price.String(),
		decString(e.StopLoss), decString(e.TakeProfit), e.LevelIndex, decString(e.TriggerPrice),
		e.Status, e.OrderID, e.Reason, e.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("journal insert: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (j *SQLiteJournal) Recent(ctx context.Context, limit int) ([]JournalEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, client_id, kind, instrument, side, units, price, stop_loss, take_profit,
			level_index, trigger_price, status, order_id, reason, created_at
		FROM grid_orders ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("journal query: %w", err)
	}
	defer rows.Close()

	var out []JournalEntry
	for rows.Next() {
		var (
			e                    JournalEntry
			side, px, sl, tp, tr string
			created              int64
		)
		if err := rows.Scan(&e.ID, &e.ClientID, &e.Kind, &e.Instrument, &side, &e.Units, &px, &sl, &tp,
			&e.LevelIndex, &tr, &e.Status, &e.OrderID, &e.Reason, &created); err != nil {
			return nil, fmt.Errorf("journal scan: %w", err)
		}
		e.Side = OrderSide(side)
		e.CreatedAt = time.Unix(0, created).UTC()
		e.Price, _ = decimal.NewFromString(px)
		e.StopLoss = parseDecPtr(sl)
		e.TakeProfit = parseDecPtr(tp)
		e.TriggerPrice = parseDecPtr(tr)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (j *SQLiteJournal) Close() error { return j.db.Close() }

func decString(d *decimal.Decimal) string {
	if d == nil {
		return ""
	}
	return d.String()
}

func parseDecPtr(s string) *decimal.Decimal {
	if s == "" {
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil
	}
	return &d
}
