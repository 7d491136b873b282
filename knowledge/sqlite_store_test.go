package knowledge_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/saketkumarjha/caresetuAgent-3.0-sub000/knowledge"
)

func TestSqliteStoreRoundTrip(t *testing.T) {
	ctx := context.Background()

	store, err := knowledge.NewSqliteStore(filepath.Join(t.TempDir(), "knowledge.db"))
	require.NoError(t, err)
	defer store.Close()

	now := time.Now().Truncate(time.Second)
	entries := []*knowledge.KnowledgeEntry{
		{
			ID:         "hours-1",
			Title:      "Business hours",
			Content:    "We are open Monday through Friday.",
			Category:   knowledge.CategoryFAQ,
			Tags:       []string{"hours"},
			SourceType: knowledge.SourceTypeJSON,
			SourceFile: "faq.json",
			CreatedAt:  now,
			UpdatedAt:  now,
		},
		{
			ID:         "cancel-1",
			Title:      "Cancellation policy",
			Content:    "Cancel at least 24 hours in advance.",
			Category:   knowledge.CategoryPolicy,
			SourceType: knowledge.SourceTypeJSON,
			SourceFile: "policy.json",
			CreatedAt:  now,
			UpdatedAt:  now,
		},
	}
	require.NoError(t, store.SaveEntries(ctx, entries))

	loaded, err := store.LoadEntries(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 2)

	// ingestion order is preserved
	require.Equal(t, "hours-1", loaded[0].ID)
	require.Equal(t, "cancel-1", loaded[1].ID)
	require.Equal(t, []string{"hours"}, loaded[0].Tags)
	require.Equal(t, knowledge.CategoryPolicy, loaded[1].Category)
}

func TestSqliteStoreUpsertKeepsPosition(t *testing.T) {
	ctx := context.Background()

	store, err := knowledge.NewSqliteStore(filepath.Join(t.TempDir(), "knowledge.db"))
	require.NoError(t, err)
	defer store.Close()

	first := &knowledge.KnowledgeEntry{ID: "a", Title: "A", Content: "first", SourceFile: "a.json"}
	second := &knowledge.KnowledgeEntry{ID: "b", Title: "B", Content: "second", SourceFile: "b.json"}
	require.NoError(t, store.SaveEntries(ctx, []*knowledge.KnowledgeEntry{first, second}))

	// rewriting the first entry must not move it behind the second
	first.Content = "first, revised"
	require.NoError(t, store.SaveEntries(ctx, []*knowledge.KnowledgeEntry{first}))

	loaded, err := store.LoadEntries(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	require.Equal(t, "a", loaded[0].ID)
	require.Equal(t, "first, revised", loaded[0].Content)
}

func TestSqliteStoreDelete(t *testing.T) {
	ctx := context.Background()

	store, err := knowledge.NewSqliteStore(filepath.Join(t.TempDir(), "knowledge.db"))
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.SaveEntries(ctx, []*knowledge.KnowledgeEntry{
		{ID: "a", Title: "A", Content: "body", SourceFile: "a.json"},
	}))
	require.NoError(t, store.DeleteEntry(ctx, "a"))

	loaded, err := store.LoadEntries(ctx)
	require.NoError(t, err)
	require.Empty(t, loaded)
}
