package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/exchangebot/core/metrics"
)

type sessionRow struct {
	ID           int64     `db:"id"`
	Conversation string    `db:"conversation"`
	Step         string    `db:"step"`
	Scratch      []byte    `db:"scratch"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// PostgresStore keeps sessions in the chat_sessions table. Expired rows are
// ignored on read and removed by Sweep.
type PostgresStore[S any] struct {
	db   *sqlx.DB
	opts Options
}

// NewPostgresStore returns a Store backed by db. The handle stays owned by the caller.
func NewPostgresStore[S any](db *sqlx.DB, opts Options) *PostgresStore[S] {
	return &PostgresStore[S]{db: db, opts: opts}
}

const (
	selectSessionSQL = `SELECT id, conversation, step, scratch, updated_at FROM chat_sessions WHERE id = $1`
	upsertSessionSQL = `INSERT INTO chat_sessions (id, conversation, step, scratch, updated_at)
VALUES (:id, :conversation, :step, :scratch, :updated_at)
ON CONFLICT (id) DO UPDATE SET
	conversation = EXCLUDED.conversation,
	step = EXCLUDED.step,
	scratch = EXCLUDED.scratch,
	updated_at = EXCLUDED.updated_at`
	deleteSessionSQL = `DELETE FROM chat_sessions WHERE id = $1`
	sweepSessionsSQL = `DELETE FROM chat_sessions WHERE updated_at < $1`
)

// Get returns the stored session or a fresh idle one.
func (p *PostgresStore[S]) Get(ctx context.Context, id int64) (*Session[S], error) {
	var row sessionRow
	err := p.db.GetContext(ctx, &row, selectSessionSQL, id)
	if errors.Is(err, sql.ErrNoRows) {
		return NewSession[S](id), nil
	}
	if err != nil {
		return nil, fmt.Errorf("state: select session %d: %w", id, err)
	}
	if p.opts.expired(row.UpdatedAt) {
		if err := p.Clear(ctx, id); err != nil {
			return nil, err
		}
		metrics.SessionsEvicted.WithLabelValues("postgres").Inc()
		return NewSession[S](id), nil
	}

	s := &Session[S]{
		ID:           row.ID,
		Conversation: row.Conversation,
		Step:         row.Step,
		UpdatedAt:    row.UpdatedAt,
	}
	if len(row.Scratch) > 0 {
		if err := json.Unmarshal(row.Scratch, &s.Scratch); err != nil {
			return nil, fmt.Errorf("state: decode scratch %d: %w", id, err)
		}
	}
	return s, nil
}

// Save upserts s, or deletes it when no conversation is active.
func (p *PostgresStore[S]) Save(ctx context.Context, s *Session[S]) error {
	if !s.Active() {
		return p.Clear(ctx, s.ID)
	}
	s.UpdatedAt = p.opts.now().UTC()
	scratch, err := json.Marshal(s.Scratch)
	if err != nil {
		return fmt.Errorf("state: encode scratch %d: %w", s.ID, err)
	}
	row := sessionRow{
		ID:           s.ID,
		Conversation: s.Conversation,
		Step:         s.Step,
		Scratch:      scratch,
		UpdatedAt:    s.UpdatedAt,
	}
	if _, err := p.db.NamedExecContext(ctx, upsertSessionSQL, row); err != nil {
		return fmt.Errorf("state: upsert session %d: %w", s.ID, err)
	}
	return nil
}

// Clear deletes the session of id.
func (p *PostgresStore[S]) Clear(ctx context.Context, id int64) error {
	if _, err := p.db.ExecContext(ctx, deleteSessionSQL, id); err != nil {
		return fmt.Errorf("state: delete session %d: %w", id, err)
	}
	return nil
}

// Sweep deletes every row idle past the timeout.
func (p *PostgresStore[S]) Sweep(ctx context.Context) (int, error) {
	if p.opts.IdleTimeout <= 0 {
		return 0, nil
	}
	res, err := p.db.ExecContext(ctx, sweepSessionsSQL, p.opts.now().Add(-p.opts.IdleTimeout).UTC())
	if err != nil {
		return 0, fmt.Errorf("state: sweep sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("state: sweep sessions: %w", err)
	}
	if n > 0 {
		metrics.SessionsEvicted.WithLabelValues("postgres").Add(float64(n))
	}
	return int(n), nil
}

// Close is a no-op; the handle belongs to the caller.
func (p *PostgresStore[S]) Close() error {
	return nil
}
