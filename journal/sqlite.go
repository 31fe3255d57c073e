package journal

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rustyeddy/riskengine/trade"
)

type SQLite struct {
	db *sql.DB
}

var _ Journal = (*SQLite)(nil)

// NewSQLite opens (or creates) the journal database at path and applies the
// schema.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}
	// SQLite allows one writer at a time.
	db.SetMaxOpenConns(1)

	j, err := New(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return j, nil
}

// New wraps an open database and applies the schema.
func New(db *sql.DB) (*SQLite, error) {
	if _, err := db.Exec(Schema); err != nil {
		return nil, fmt.Errorf("apply journal schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

// SavePosition inserts p or replaces the stored copy with the same ID.
func (j *SQLite) SavePosition(ctx context.Context, p trade.Position) error {
	args, err := positionArgs(p)
	if err != nil {
		return fmt.Errorf("save position %s: %w", p.ID, err)
	}
	_, err = j.db.ExecContext(ctx, `
		INSERT INTO positions (`+positionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			avg_entry_price = excluded.avg_entry_price,
			qty = excluded.qty,
			leverage = excluded.leverage,
			realized_pnl_usd = excluded.realized_pnl_usd,
			unrealized_pnl_usd = excluded.unrealized_pnl_usd,
			orders = excluded.orders,
			risk_state = excluded.risk_state,
			failure_reason = excluded.failure_reason,
			updated_at = excluded.updated_at,
			closed_at = excluded.closed_at`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("save position %s: %w", p.ID, err)
	}
	return nil
}

func (j *SQLite) RecordDecision(ctx context.Context, d DecisionRecord) error {
	args, err := decisionArgs(d)
	if err != nil {
		return fmt.Errorf("record decision %s: %w", d.ID, err)
	}
	_, err = j.db.ExecContext(ctx, `
		INSERT INTO decisions (`+decisionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("record decision %s: %w", d.ID, err)
	}
	return nil
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
