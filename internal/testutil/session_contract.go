package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/trustlayer/internal/domain/session"
)

// RunSessionRepositoryContract exercises the behaviour every session backend shares.
func RunSessionRepositoryContract(t *testing.T, repo session.Repository) {
	t.Helper()
	ctx := context.Background()

	t.Run("load missing", func(t *testing.T) {
		rec, err := repo.Load(ctx, "missing-"+uuid.NewString())
		require.NoError(t, err)
		assert.Nil(t, rec)
	})

	t.Run("save load clear", func(t *testing.T) {
		device := "dev-" + uuid.NewString()
		exp := time.UnixMilli(time.Now().Add(7 * 24 * time.Hour).UnixMilli())

		require.NoError(t, repo.Save(ctx, device, session.Record{Valid: true, ExpiresAt: exp}))
		rec, err := repo.Load(ctx, device)
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.True(t, rec.Valid)
		assert.Equal(t, exp.UnixMilli(), rec.ExpiresAt.UnixMilli())

		require.NoError(t, repo.Clear(ctx, device))
		rec, err = repo.Load(ctx, device)
		require.NoError(t, err)
		assert.Nil(t, rec)
	})

	t.Run("save overwrites", func(t *testing.T) {
		device := "dev-" + uuid.NewString()
		first := time.UnixMilli(time.Now().Add(time.Hour).UnixMilli())
		second := first.Add(time.Hour)

		require.NoError(t, repo.Save(ctx, device, session.Record{Valid: true, ExpiresAt: first}))
		require.NoError(t, repo.Save(ctx, device, session.Record{Valid: false, ExpiresAt: second}))
		rec, err := repo.Load(ctx, device)
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.False(t, rec.Valid)
		assert.Equal(t, second.UnixMilli(), rec.ExpiresAt.UnixMilli())
		require.NoError(t, repo.Clear(ctx, device))
	})

	t.Run("clear missing is fine", func(t *testing.T) {
		assert.NoError(t, repo.Clear(ctx, "missing-"+uuid.NewString()))
	})
}
