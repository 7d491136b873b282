package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/saketkumarjha/caresetuAgent-3.0-sub000/config"
	"github.com/saketkumarjha/caresetuAgent-3.0-sub000/internal/mylog"
	"github.com/saketkumarjha/caresetuAgent-3.0-sub000/knowledge"
	"github.com/saketkumarjha/caresetuAgent-3.0-sub000/session"
)

func newTestService(t *testing.T, conf *config.ContextConfig) session.Service {
	t.Helper()

	if conf == nil {
		conf = config.NewContextConfig()
	}
	logger := mylog.NewLogger("error", "text")

	s, err := session.NewServiceWithStore(context.Background(), conf, logger, session.NewInMemoryStore())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRecordTurnUpdatesContext(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t, nil)

	require.NoError(t, s.RecordTurn(ctx, "s1", &session.Turn{
		Query:              "I want to book an appointment",
		Intent:             knowledge.IntentBooking,
		Response:           "You can book online or by phone.",
		RetrievedDocuments: []string{"faq.json"},
		Confidence:         0.8,
	}))

	summary := s.Summary(ctx, "s1")
	require.Equal(t, 1, summary.Turns)
	require.Equal(t, knowledge.IntentBooking, summary.CurrentTopic)
	require.Equal(t, []string{"faq.json"}, summary.LastAccessedDocuments)
	require.Contains(t, summary.TopicKeywords, "appointment")
	require.Contains(t, summary.TopicKeywords, "booking")
	require.Equal(t, "I want to book an appointment", summary.RecentQueries)
}

func TestRecordTurnRequiresSession(t *testing.T) {
	s := newTestService(t, nil)
	require.Error(t, s.RecordTurn(context.Background(), "", &session.Turn{Query: "hello"}))
}

func TestIsFollowUp(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t, nil)

	// no history, never a follow-up
	require.False(t, s.IsFollowUp(ctx, "s1", "what about cancellations?"))

	require.NoError(t, s.RecordTurn(ctx, "s1", &session.Turn{
		Query:              "How do I book an appointment?",
		Intent:             knowledge.IntentBooking,
		RetrievedDocuments: []string{"faq.json"},
	}))

	require.True(t, s.IsFollowUp(ctx, "s1", "What about cancellations?"))
	require.True(t, s.IsFollowUp(ctx, "s1", "Can you tell me more about it?"))
	// short queries ride on the previous turn's sources
	require.True(t, s.IsFollowUp(ctx, "s1", "opening hours?"))
	require.False(t, s.IsFollowUp(ctx, "s1", "Where is your office located in the city center"))
}

func TestSummarizeOldTurns(t *testing.T) {
	ctx := context.Background()
	conf := config.NewContextConfig()
	conf.MaxTurns = 10
	conf.KeepRecentTurns = 3
	s := newTestService(t, conf)

	for i := 0; i < 11; i++ {
		require.NoError(t, s.RecordTurn(ctx, "s1", &session.Turn{
			Query:              "What are your business hours?",
			Intent:             knowledge.IntentHours,
			RetrievedDocuments: []string{"faq.json"},
		}))
	}

	summary := s.Summary(ctx, "s1")
	require.Equal(t, 3, summary.Turns)
	require.Contains(t, summary.Summary, "Previous conversation summary:")
	require.Contains(t, summary.Summary, "Used knowledge sources: faq.json")
}

func TestApplyContextFilterFollowUpBoosts(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t, nil)

	require.NoError(t, s.RecordTurn(ctx, "s1", &session.Turn{
		Query:              "I want to book an appointment",
		Intent:             knowledge.IntentBooking,
		RetrievedDocuments: []string{"faq.json"},
	}))

	fromSession := &knowledge.SearchResult{
		EntryID:        "faq-1",
		Content:        "To book an appointment, use the online booking portal.",
		Category:       knowledge.CategoryProcedure,
		SourceFile:     "faq.json",
		RelevanceScore: 0.5,
	}
	unrelated := &knowledge.SearchResult{
		EntryID:        "misc-1",
		Content:        "Our privacy statement explains data handling.",
		Category:       knowledge.CategoryGeneral,
		SourceFile:     "privacy.json",
		RelevanceScore: 0.5,
	}

	boosted := s.ApplyContextFilter(ctx, "s1", []*knowledge.SearchResult{unrelated, fromSession}, "what about that?")
	require.Len(t, boosted, 2)

	// source + keyword + topic affinity boosts pull the session-related
	// result ahead
	require.Equal(t, "faq-1", boosted[0].EntryID)
	require.InDelta(t, 0.65, boosted[0].Breakdown["context_boost"], 1e-9)
	require.Equal(t, 0.0, boosted[1].Breakdown["context_boost"])

	// the input results are untouched
	require.Equal(t, 0.5, fromSession.RelevanceScore)
	require.NotContains(t, fromSession.Breakdown, "context_boost")
}

func TestApplyContextFilterNewTopic(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t, nil)

	require.NoError(t, s.RecordTurn(ctx, "s1", &session.Turn{
		Query:  "I want to book an appointment",
		Intent: knowledge.IntentBooking,
	}))

	result := &knowledge.SearchResult{
		EntryID:        "faq-1",
		Content:        "Every appointment confirmation is sent by email.",
		Category:       knowledge.CategoryFAQ,
		SourceFile:     "faq.json",
		RelevanceScore: 0.5,
	}

	// not a follow-up, so only the light keyword boost applies
	boosted := s.ApplyContextFilter(ctx, "s1", []*knowledge.SearchResult{result}, "Where is your office located in the city center")
	require.InDelta(t, 0.05, boosted[0].Breakdown["context_boost"], 1e-9)
}

func TestApplyContextFilterWithoutSession(t *testing.T) {
	s := newTestService(t, nil)

	results := []*knowledge.SearchResult{{EntryID: "faq-1", RelevanceScore: 0.5}}
	require.Equal(t, results, s.ApplyContextFilter(context.Background(), "missing", results, "hello"))
}

func TestEndSession(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t, nil)

	require.NoError(t, s.RecordTurn(ctx, "s1", &session.Turn{Query: "What are your business hours?"}))
	require.NoError(t, s.EndSession(ctx, "s1"))

	require.Equal(t, 0, s.Summary(ctx, "s1").Turns)
	require.False(t, s.IsFollowUp(ctx, "s1", "what about that?"))
}

func TestSweepExpiresIdleSessions(t *testing.T) {
	ctx := context.Background()
	conf := config.NewContextConfig()
	conf.SessionTTL = time.Minute
	conf.SweepInterval = 20 * time.Millisecond
	s := newTestService(t, conf)

	require.NoError(t, s.RecordTurn(ctx, "idle", &session.Turn{
		Query:     "What are your business hours?",
		Timestamp: time.Now().Add(-time.Hour),
	}))

	require.Eventually(t, func() bool {
		return s.Summary(ctx, "idle").Turns == 0
	}, 2*time.Second, 20*time.Millisecond)
}

func TestExtractContextKeywords(t *testing.T) {
	keywords := session.ExtractContextKeywords("I want to book an appointment", knowledge.IntentBooking)
	require.Contains(t, keywords, "book")
	require.Contains(t, keywords, "appointment")
	require.Contains(t, keywords, "booking")

	// the general intent adds nothing
	keywords = session.ExtractContextKeywords("hello everyone", knowledge.IntentGeneral)
	require.NotContains(t, keywords, "general")

	long := session.ExtractContextKeywords(
		"alpha bravo charlie delta echo foxtrot golf hotel india juliett kilo lima",
		knowledge.IntentBooking,
	)
	require.LessOrEqual(t, len(long), 10)
}
