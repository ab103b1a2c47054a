// Package sessionstore holds non-SQL session repositories.
package sessionstore

import (
	"context"
	"sync"

	"github.com/bryanwahyu/trustlayer/internal/domain/session"
)

type Memory struct {
	mu      sync.RWMutex
	records map[string]session.Record
}

func NewMemory() *Memory {
	return &Memory{records: make(map[string]session.Record)}
}

func (m *Memory) Load(_ context.Context, deviceID string) (*session.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[deviceID]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (m *Memory) Save(_ context.Context, deviceID string, rec session.Record) error {
	m.mu.Lock()
	m.records[deviceID] = rec
	m.mu.Unlock()
	return nil
}

func (m *Memory) Clear(_ context.Context, deviceID string) error {
	m.mu.Lock()
	delete(m.records, deviceID)
	m.mu.Unlock()
	return nil
}
