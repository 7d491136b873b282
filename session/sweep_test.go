package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/saketkumarjha/caresetuAgent-3.0-sub000/config"
	"github.com/saketkumarjha/caresetuAgent-3.0-sub000/internal/mylog"
)

func TestExpireIdleRechecksActivityUnderLock(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	svc, err := NewServiceWithStore(ctx, config.NewContextConfig(), mylog.NewLogger("error", "text"), store)
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })
	s := svc.(*service)

	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, s.RecordTurn(ctx, "idle", &Turn{Query: "What are your opening hours?", Timestamp: old}))
	require.NoError(t, s.RecordTurn(ctx, "busy", &Turn{Query: "What are your opening hours?", Timestamp: old}))

	cutoff := time.Now().Add(-time.Hour)
	candidates := store.ExpiredBefore(ctx, cutoff)
	require.ElementsMatch(t, []string{"idle", "busy"}, candidates)

	// a turn lands between the expiry snapshot and the delete
	require.NoError(t, s.RecordTurn(ctx, "busy", &Turn{Query: "Is weekend parking available?", Timestamp: time.Now()}))

	s.expireIdle(ctx, cutoff, candidates)

	_, ok := store.Get(ctx, "idle")
	require.False(t, ok)

	memory, ok := store.Get(ctx, "busy")
	require.True(t, ok)
	memory.mu.Lock()
	turns := len(memory.Turns)
	memory.mu.Unlock()
	require.Equal(t, 2, turns)
}
