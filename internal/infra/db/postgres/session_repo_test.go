package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/trustlayer/internal/testutil"
)

func TestSessionRepository(t *testing.T) {
	db := testutil.OpenPostgres(t)
	repo := NewSessionRepository(db)
	require.NoError(t, repo.EnsureSchema(context.Background()))
	testutil.RunSessionRepositoryContract(t, repo)
}
