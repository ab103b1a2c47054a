package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	domain "github.com/bryanwahyu/trustlayer/internal/domain/session"
)

type SessionRepository struct {
	db *sql.DB
}

func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) EnsureSchema(ctx context.Context) error {
	const q = `
CREATE TABLE IF NOT EXISTS trustlayer_sessions (
  device_id     TEXT        PRIMARY KEY,
  valid         BOOLEAN     NOT NULL,
  expires_at_ms BIGINT      NOT NULL,
  updated_at    TIMESTAMPTZ NOT NULL
);`
	_, err := r.db.ExecContext(ctx, q)
	return err
}

func (r *SessionRepository) Load(ctx context.Context, deviceID string) (*domain.Record, error) {
	const q = `SELECT valid, expires_at_ms FROM trustlayer_sessions WHERE device_id=$1;`
	var (
		valid bool
		ms    int64
	)
	err := r.db.QueryRowContext(ctx, q, deviceID).Scan(&valid, &ms)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &domain.Record{Valid: valid, ExpiresAt: time.UnixMilli(ms)}, nil
}

func (r *SessionRepository) Save(ctx context.Context, deviceID string, rec domain.Record) error {
	const q = `
INSERT INTO trustlayer_sessions
  (device_id, valid, expires_at_ms, updated_at)
VALUES ($1,$2,$3,$4)
ON CONFLICT (device_id) DO UPDATE SET
  valid=EXCLUDED.valid,
  expires_at_ms=EXCLUDED.expires_at_ms,
  updated_at=EXCLUDED.updated_at;
`
	_, err := r.db.ExecContext(ctx, q, deviceID, rec.Valid, rec.ExpiresAt.UnixMilli(), time.Now().UTC())
	return err
}

func (r *SessionRepository) Clear(ctx context.Context, deviceID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM trustlayer_sessions WHERE device_id=$1;`, deviceID)
	return err
}
