package synthesis_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/saketkumarjha/caresetuAgent-3.0-sub000/knowledge"
	"github.com/saketkumarjha/caresetuAgent-3.0-sub000/synthesis"
)

func newSynthesizer(t *testing.T) *synthesis.Synthesizer {
	t.Helper()
	s, err := synthesis.NewSynthesizer()
	require.NoError(t, err)
	return s
}

func TestSynthesizeNoResults(t *testing.T) {
	s := newSynthesizer(t)

	answer, citations, err := s.Synthesize("What are your hours?", nil, knowledge.IntentHours)
	require.NoError(t, err)
	require.Equal(t, synthesis.NotFoundMessage, answer)
	require.Empty(t, citations)
}

func TestSynthesizeHoursAnswer(t *testing.T) {
	s := newSynthesizer(t)

	results := []*knowledge.SearchResult{{
		EntryID:        "hours-1",
		Title:          "Business hours",
		Content:        "We are open Monday through Friday, nine to five.",
		Category:       knowledge.CategoryFAQ,
		SourceFile:     "faq.json",
		RelevanceScore: 0.9,
	}}

	answer, citations, err := s.Synthesize("Are you open on weekdays?", results, knowledge.IntentHours)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(answer, "Our availability:\n"))
	require.Contains(t, answer, "We are open Monday through Friday")
	require.Contains(t, answer, "check faq.json")

	require.Len(t, citations, 1)
	require.Equal(t, 1, citations[0].ID)
	require.Equal(t, "Business hours", citations[0].Title)
	require.Equal(t, "faq.json", citations[0].SourceFile)
}

func TestSynthesizeUnwrapsFAQAnswer(t *testing.T) {
	s := newSynthesizer(t)

	results := []*knowledge.SearchResult{{
		EntryID:        "faq-1",
		Title:          "Cancellation fee",
		Content:        "Question: Is there a cancellation fee? Answer: Yes, twenty dollars for late cancellations.",
		Category:       knowledge.CategoryFAQ,
		SourceFile:     "faq.json",
		RelevanceScore: 0.9,
	}}

	answer, _, err := s.Synthesize("Is there a cancellation fee?", results, knowledge.IntentCost)
	require.NoError(t, err)
	require.Contains(t, answer, "Yes, twenty dollars for late cancellations.")
	require.NotContains(t, answer, "Question:")
}

func TestSynthesizeSupplementaryBullets(t *testing.T) {
	s := newSynthesizer(t)

	results := []*knowledge.SearchResult{
		{
			EntryID:        "cancel-1",
			Title:          "Cancellation policy",
			Content:        "Appointments can be cancelled up to 24 hours in advance.",
			Category:       knowledge.CategoryPolicy,
			SourceFile:     "policy.json",
			RelevanceScore: 0.9,
		},
		{
			EntryID:        "cancel-2",
			Title:          "Late cancellations",
			Content:        "A late cancellation of an appointment incurs a small fee. Contact support for exceptions.",
			Category:       knowledge.CategoryPolicy,
			SourceFile:     "fees.json",
			RelevanceScore: 0.7,
		},
		{
			EntryID:        "low-1",
			Title:          "Low scorer",
			Content:        "This low scoring cancellation result must not appear in the answer.",
			Category:       knowledge.CategoryGeneral,
			SourceFile:     "misc.json",
			RelevanceScore: 0.2,
		},
	}

	answer, citations, err := s.Synthesize("Can I cancel an appointment", results, knowledge.IntentCancellation)
	require.NoError(t, err)
	require.Contains(t, answer, "Additional information:\n")
	require.Contains(t, answer, "• A late cancellation of an appointment incurs a small fee")
	require.NotContains(t, answer, "must not appear")

	// distinct source files join with an Oxford comma
	require.Contains(t, answer, "policy.json, fees.json, and misc.json")
	require.Len(t, citations, 3)
}

func TestSynthesizeProcedureAction(t *testing.T) {
	s := newSynthesizer(t)

	results := []*knowledge.SearchResult{{
		EntryID:        "howto-1",
		Title:          "Resetting your password",
		Content:        "Open the login page and choose the reset option.",
		Category:       knowledge.CategoryProcedure,
		SourceFile:     "manual.json",
		RelevanceScore: 0.8,
	}}

	answer, _, err := s.Synthesize("How do I reset my password?", results, knowledge.IntentProcedure)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(answer, "Here's how to reset my password:"))
}

func TestFormatWithCitations(t *testing.T) {
	s := newSynthesizer(t)

	formatted := s.FormatWithCitations("The answer.", []synthesis.Citation{
		{ID: 1, Title: "Business hours", SourceFile: "faq.json"},
		{ID: 2, Title: "Holidays", SourceFile: "holidays.json"},
	})
	require.Contains(t, formatted, "Sources:\n")
	require.Contains(t, formatted, "[1] Business hours (faq.json)")
	require.Contains(t, formatted, "[2] Holidays (holidays.json)")

	require.Equal(t, "no sources", s.FormatWithCitations("no sources", nil))
}
