package knowledge_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/saketkumarjha/caresetuAgent-3.0-sub000/config"
	"github.com/saketkumarjha/caresetuAgent-3.0-sub000/errors"
	"github.com/saketkumarjha/caresetuAgent-3.0-sub000/internal/mylog"
	"github.com/saketkumarjha/caresetuAgent-3.0-sub000/knowledge"
)

func newTestService(t *testing.T, store knowledge.Store) knowledge.Service {
	t.Helper()

	conf := config.NewKnowledgeConfig()
	logger := mylog.NewLogger("error", "text")

	s, err := knowledge.NewServiceWithStore(context.Background(), conf, logger, store)
	require.NoError(t, err)
	return s
}

func TestServiceAddAndSearch(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t, knowledge.NewInMemoryStore())
	defer s.Close()

	require.NoError(t, s.AddEntries(ctx, []*knowledge.KnowledgeEntry{
		{
			Title:      "Booking an appointment",
			Content:    "To book an appointment, call our office or use the online portal.",
			Category:   knowledge.CategoryProcedure,
			Tags:       []string{"booking"},
			SourceType: knowledge.SourceTypeJSON,
			SourceFile: "faq.json",
		},
		{
			Title:      "Cancellation policy",
			Content:    "Appointments may be cancelled up to 24 hours in advance without a fee.",
			Category:   knowledge.CategoryPolicy,
			SourceType: knowledge.SourceTypeJSON,
			SourceFile: "policy.json",
		},
	}))

	results, intent, err := s.Search(ctx, "How do I book an appointment?", knowledge.Filter{}, 5)
	require.NoError(t, err)
	require.Equal(t, knowledge.IntentBooking, intent)
	require.NotEmpty(t, results)
	require.Equal(t, "Booking an appointment", results[0].Title)
	require.NotEmpty(t, results[0].Breakdown)

	stats := s.Stats()
	require.Equal(t, 2, stats.Entries)
}

func TestServiceAssignsDefaults(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t, knowledge.NewInMemoryStore())
	defer s.Close()

	entries := []*knowledge.KnowledgeEntry{{
		Title:      "Untyped entry",
		Content:    "Entries without ids or categories get defaults on ingestion.",
		SourceFile: "misc.json",
	}}
	require.NoError(t, s.AddEntries(ctx, entries))

	require.NotEmpty(t, entries[0].ID)
	require.Equal(t, knowledge.CategoryGeneral, entries[0].Category)
	require.False(t, entries[0].UpdatedAt.IsZero())
}

func TestServiceSearchNoTerms(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t, knowledge.NewInMemoryStore())
	defer s.Close()

	_, _, err := s.Search(ctx, "", knowledge.Filter{}, 5)
	require.Error(t, err)
	require.True(t, errors.Is(err, errors.ErrInvalidParams))
}

func TestServiceSearchWithContextTerms(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t, knowledge.NewInMemoryStore())
	defer s.Close()

	require.NoError(t, s.AddEntries(ctx, []*knowledge.KnowledgeEntry{
		{
			Title:      "Rescheduling appointments",
			Content:    "Rescheduling is free when done a day ahead.",
			Category:   knowledge.CategoryProcedure,
			SourceType: knowledge.SourceTypeJSON,
			SourceFile: "faq.json",
		},
	}))

	// the bare follow-up has no overlap with the corpus; the context terms
	// anchor it
	results, _, err := s.SearchWithContext(ctx, "anything else?", []string{"rescheduling"}, knowledge.Filter{}, 5)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	require.Equal(t, "Rescheduling appointments", results[0].Title)
}

func TestServiceRebuildFromStore(t *testing.T) {
	ctx := context.Background()
	store := knowledge.NewInMemoryStore()

	s := newTestService(t, store)
	require.NoError(t, s.AddEntries(ctx, []*knowledge.KnowledgeEntry{{
		Title:      "Business hours",
		Content:    "We are open Monday through Friday.",
		Category:   knowledge.CategoryFAQ,
		SourceType: knowledge.SourceTypeJSON,
		SourceFile: "faq.json",
	}}))
	require.NoError(t, s.Close())

	// a fresh service over the same store rebuilds the index from it
	restored := newTestService(t, store)
	defer restored.Close()

	require.Equal(t, 1, restored.Stats().Entries)

	results, _, err := restored.Search(ctx, "monday hours", knowledge.Filter{}, 5)
	require.NoError(t, err)
	require.NotEmpty(t, results)
}
