package session

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/and161185/wordshelf/internal/model"
)

// slot is the single row key; one session per process store.
const slot = "current"

type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PGStore keeps the session in the client_sessions table, for shared desktop installs
// where the dashboard state lives in a local PostgreSQL.
type PGStore struct {
	db pgxQuerier
}

// NewPGStore constructs a PostgreSQL-backed store over a pool or connection.
func NewPGStore(db pgxQuerier) *PGStore { return &PGStore{db: db} }

// Read selects the current row.
func (p *PGStore) Read(ctx context.Context) (*model.Session, error) {
	const q = `SELECT payload FROM client_sessions WHERE slot=$1`
	var raw []byte
	if err := p.db.QueryRow(ctx, q, slot).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	var s model.Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Write upserts the current row in a single statement.
func (p *PGStore) Write(ctx context.Context, s model.Session) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	const q = `
INSERT INTO client_sessions (slot, payload, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (slot) DO UPDATE SET payload=EXCLUDED.payload, updated_at=now()`
	_, err = p.db.Exec(ctx, q, slot, raw)
	return err
}

// Remove deletes the current row.
func (p *PGStore) Remove(ctx context.Context) error {
	const q = `DELETE FROM client_sessions WHERE slot=$1`
	_, err := p.db.Exec(ctx, q, slot)
	return err
}

var _ Persister = (*PGStore)(nil)
