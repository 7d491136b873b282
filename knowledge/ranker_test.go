package knowledge_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/saketkumarjha/caresetuAgent-3.0-sub000/knowledge"
)

func TestRankerBreakdownAndBounds(t *testing.T) {
	r := knowledge.NewRanker()
	now := time.Now()

	results := []*knowledge.SearchResult{
		{
			EntryID:      "faq-1",
			Title:        "Cancellation fee",
			Content:      "Question: what is the cancellation fee? Answer: the cancellation fee is twenty dollars for late cancellations.",
			Category:     knowledge.CategoryFAQ,
			SourceType:   knowledge.SourceTypeJSON,
			MatchedTerms: []string{"cancellation", "fee"},
			CreatedAt:    now,
			UpdatedAt:    now,
		},
	}

	ranked := r.Rank(results, "cancellation fee", knowledge.IntentCost, now)
	require.Len(t, ranked, 1)

	top := ranked[0]
	require.Greater(t, top.RelevanceScore, 0.0)
	require.LessOrEqual(t, top.RelevanceScore, 1.0)

	for _, factor := range []string{
		"term_frequency",
		"title_match",
		"content_relevance",
		"document_type_bonus",
		"recency_bonus",
		"completeness_bonus",
		"source_authority",
	} {
		require.Contains(t, top.Breakdown, factor)
	}

	// the literal query appears in the content
	require.Equal(t, 1.0, top.Breakdown["content_relevance"])
	// both matched terms appear in the title
	require.Equal(t, 1.0, top.Breakdown["title_match"])
	// fresh timestamps score full recency
	require.Equal(t, 1.0, top.Breakdown["recency_bonus"])
}

func TestRankerDoesNotMutateInput(t *testing.T) {
	r := knowledge.NewRanker()

	original := &knowledge.SearchResult{
		EntryID:        "faq-1",
		Title:          "Business hours",
		Content:        "We are open Monday through Friday.",
		Category:       knowledge.CategoryFAQ,
		RelevanceScore: 0.42,
	}

	r.Rank([]*knowledge.SearchResult{original}, "business hours", knowledge.IntentHours, time.Now())

	require.Equal(t, 0.42, original.RelevanceScore)
	require.Nil(t, original.Breakdown)
}

func TestRankerIntentFavorsMatchingCategory(t *testing.T) {
	r := knowledge.NewRanker()
	now := time.Now()

	shared := knowledge.SearchResult{
		Title:        "Rescheduling",
		Content:      "Follow these steps to reschedule your visit.",
		SourceType:   knowledge.SourceTypeJSON,
		MatchedTerms: []string{"reschedule"},
	}

	general := shared
	general.EntryID = "general-1"
	general.Category = knowledge.CategoryGeneral

	procedure := shared
	procedure.EntryID = "procedure-1"
	procedure.Category = knowledge.CategoryProcedure

	ranked := r.Rank(
		[]*knowledge.SearchResult{&general, &procedure},
		"how to reschedule",
		knowledge.IntentProcedure,
		now,
	)

	require.Equal(t, "procedure-1", ranked[0].EntryID)
	require.Greater(t, ranked[0].RelevanceScore, ranked[1].RelevanceScore)
}

func TestRankerRecencyNeutralWithoutTimestamps(t *testing.T) {
	r := knowledge.NewRanker()

	ranked := r.Rank([]*knowledge.SearchResult{{
		EntryID:  "no-dates",
		Title:    "Untimed entry",
		Content:  "Content without any timestamps attached.",
		Category: knowledge.CategoryGeneral,
	}}, "timestamps", knowledge.IntentGeneral, time.Now())

	require.Equal(t, 0.5, ranked[0].Breakdown["recency_bonus"])
}

func TestRankerOldEntryDecays(t *testing.T) {
	r := knowledge.NewRanker()
	now := time.Now()
	old := now.AddDate(-2, 0, 0)

	ranked := r.Rank([]*knowledge.SearchResult{{
		EntryID:   "old-1",
		Title:     "Old entry",
		Content:   "This entry has not been touched for years.",
		Category:  knowledge.CategoryGeneral,
		CreatedAt: old,
		UpdatedAt: old,
	}}, "old entry", knowledge.IntentGeneral, now)

	require.Less(t, ranked[0].Breakdown["recency_bonus"], 0.05)
}

func TestRankerSourceAuthority(t *testing.T) {
	r := knowledge.NewRanker()
	now := time.Now()

	shared := knowledge.SearchResult{
		Title:        "Refund procedure",
		Content:      "Refunds are processed within five business days.",
		Category:     knowledge.CategoryPolicy,
		MatchedTerms: []string{"refund"},
	}

	fromJSON := shared
	fromJSON.EntryID = "json-1"
	fromJSON.SourceType = knowledge.SourceTypeJSON

	fromPDF := shared
	fromPDF.EntryID = "pdf-1"
	fromPDF.SourceType = knowledge.SourceTypePDF

	ranked := r.Rank(
		[]*knowledge.SearchResult{&fromJSON, &fromPDF},
		"refund",
		knowledge.IntentGeneral,
		now,
	)

	require.Equal(t, "pdf-1", ranked[0].EntryID)
}
