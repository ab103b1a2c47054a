package session

import (
	"context"
	"errors"
)

// ErrCorrupt is returned by a repository that found an unreadable record.
var ErrCorrupt = errors.New("session record corrupt")

// Repository persists one Record per device.
// Load returns (nil, nil) when nothing is stored.
type Repository interface {
	Load(ctx context.Context, deviceID string) (*Record, error)
	Save(ctx context.Context, deviceID string, rec Record) error
	Clear(ctx context.Context, deviceID string) error
}
