package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rustyeddy/riskengine/trade"
	"github.com/shopspring/decimal"
)

// GetPosition returns a single position by ID.
func (j *SQLite) GetPosition(ctx context.Context, id string) (trade.Position, error) {
	row := j.db.QueryRowContext(ctx, `
		SELECT `+positionColumns+`
		FROM positions
		WHERE id = ?`, id)

	p, err := scanPosition(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return trade.Position{}, fmt.Errorf("position %q: %w", id, ErrNotFound)
		}
		return trade.Position{}, fmt.Errorf("get position %q: %w", id, err)
	}
	return p, nil
}

// ListPositions returns positions with the given status, or all positions
// when status is empty, oldest first.
func (j *SQLite) ListPositions(ctx context.Context, status trade.PositionStatus) ([]trade.Position, error) {
	q := `SELECT ` + positionColumns + ` FROM positions`
	var args []any
	if status != "" {
		q += ` WHERE status = ?`
		args = append(args, string(status))
	}
	q += ` ORDER BY opened_at ASC, id ASC`

	rows, err := j.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list positions: %w", err)
	}
	defer rows.Close()

	var out []trade.Position
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("list positions: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list positions: %w", err)
	}
	return out, nil
}

// ListDecisions returns the most recent decisions, newest first. An empty
// symbol matches every symbol; limit <= 0 means no limit.
func (j *SQLite) ListDecisions(ctx context.Context, symbol string, limit int) ([]DecisionRecord, error) {
	q := `SELECT ` + decisionColumns + ` FROM decisions`
	var args []any
	if symbol != "" {
		q += ` WHERE symbol = ?`
		args = append(args, symbol)
	}
	q += ` ORDER BY time DESC, id DESC`
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := j.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list decisions: %w", err)
	}
	defer rows.Close()

	var out []DecisionRecord
	for rows.Next() {
		d, err := scanDecision(rows)
		if err != nil {
			return nil, fmt.Errorf("list decisions: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list decisions: %w", err)
	}
	return out, nil
}

// RealizedSince sums the realized PnL of positions closed at or after since.
// The sum is exact; it feeds the daily loss check.
func (j *SQLite) RealizedSince(ctx context.Context, since time.Time) (decimal.Decimal, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT realized_pnl_usd
		FROM positions
		WHERE closed_at IS NOT NULL AND closed_at >= ?`, since.UTC())
	if err != nil {
		return decimal.Zero, fmt.Errorf("realized since: %w", err)
	}
	defer rows.Close()

	total := decimal.Zero
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return decimal.Zero, fmt.Errorf("realized since: %w", err)
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Zero, fmt.Errorf("realized since: %w", err)
		}
		total = total.Add(d)
	}
	if err := rows.Err(); err != nil {
		return decimal.Zero, fmt.Errorf("realized since: %w", err)
	}
	return total, nil
}
