package session_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/saketkumarjha/caresetuAgent-3.0-sub000/session"
)

func TestSqliteStorePersist(t *testing.T) {
	ctx := context.Background()

	store, err := session.NewSqliteStore(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	defer store.Close()

	memory, created := store.GetOrCreate(ctx, "s1", time.Now())
	require.True(t, created)
	require.NoError(t, store.Persist(ctx, memory))

	// persisting again overwrites the same row
	require.NoError(t, store.Persist(ctx, memory))

	got, ok := store.Get(ctx, "s1")
	require.True(t, ok)
	require.Equal(t, "s1", got.SessionID)

	require.NoError(t, store.Delete(ctx, "s1"))
	_, ok = store.Get(ctx, "s1")
	require.False(t, ok)
}
