package session

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord_Live(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	assert.True(t, Record{Valid: true, ExpiresAt: now.Add(time.Minute)}.Live(now))
	assert.False(t, Record{Valid: true, ExpiresAt: now}.Live(now))
	assert.False(t, Record{Valid: true, ExpiresAt: now.Add(-time.Minute)}.Live(now))
	assert.False(t, Record{Valid: false, ExpiresAt: now.Add(time.Hour)}.Live(now))
}

func TestRecord_JSONUsesEpochMillis(t *testing.T) {
	exp := time.UnixMilli(1767225600000)
	b, err := json.Marshal(Record{Valid: true, ExpiresAt: exp})
	require.NoError(t, err)
	assert.JSONEq(t, `{"valid":true,"expiresAt":1767225600000}`, string(b))

	var got Record
	require.NoError(t, json.Unmarshal([]byte(`{"valid":true,"expiresAt":1767225600000}`), &got))
	assert.True(t, got.Valid)
	assert.True(t, got.ExpiresAt.Equal(exp))
}
