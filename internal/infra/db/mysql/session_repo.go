package mysql

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

// EnsureSchema creates the sessions table when missing.
func (r *SessionRepository) EnsureSchema(ctx context.Context) error {
	const q = `
CREATE TABLE IF NOT EXISTS trustlayer_sessions (
  device_id     VARCHAR(64) NOT NULL PRIMARY KEY,
  valid         TINYINT(1)  NOT NULL,
  expires_at_ms BIGINT      NOT NULL,
  updated_at    DATETIME(3) NOT NULL
);`
	_, err := r.db.ExecContext(ctx, q)
	return err
}

func (r *SessionRepository) Load(ctx context.Context, deviceID string) (*domain.Record, error) {
	const q = `SELECT valid, expires_at_ms FROM trustlayer_sessions WHERE device_id=?;`
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
VALUES (?,?,?,?)
ON DUPLICATE KEY UPDATE
  valid=VALUES(valid), expires_at_ms=VALUES(expires_at_ms), updated_at=VALUES(updated_at);
`
	_, err := r.db.ExecContext(ctx, q, deviceID, rec.Valid, rec.ExpiresAt.UnixMilli(), time.Now().UTC())
	return err
}

func (r *SessionRepository) Clear(ctx context.Context, deviceID string) error {
	const q = `DELETE FROM trustlayer_sessions WHERE device_id=?;`
	_, err := r.db.ExecContext(ctx, q, deviceID)
	return err
}
