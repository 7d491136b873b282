package session

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/saketkumarjha/caresetuAgent-3.0-sub000/knowledge"
)

type (
	// Turn is one question/answer exchange within a session.
	Turn struct {
		ID                 string           `json:"id"`
		Query              string           `json:"query"`
		Intent             knowledge.Intent `json:"intent"`
		Response           string           `json:"response"`
		RetrievedDocuments []string         `json:"retrievedDocuments"`
		Confidence         float64          `json:"confidence"`
		Timestamp          time.Time        `json:"timestamp"`
		ContextKeywords    []string         `json:"contextKeywords"`
		Escalated          bool             `json:"escalated"`
	}

	// Memory is the conversation state of one session. All mutation goes
	// through the service, which holds the memory's lock.
	Memory struct {
		SessionID             string           `json:"sessionId"`
		Turns                 []*Turn          `json:"turns"`
		Summary               string           `json:"summary"`
		CurrentTopic          knowledge.Intent `json:"currentTopic,omitempty"`
		TopicKeywords         []string         `json:"topicKeywords"`
		LastAccessedDocuments []string         `json:"lastAccessedDocuments"`
		CreatedAt             time.Time        `json:"createdAt"`
		LastActive            time.Time        `json:"lastActive"`

		mu sync.Mutex
	}

	// ContextSummary is the read-only snapshot handed out to callers.
	ContextSummary struct {
		SessionID             string           `json:"sessionId"`
		Turns                 int              `json:"turns"`
		CurrentTopic          knowledge.Intent `json:"currentTopic,omitempty"`
		TopicKeywords         []string         `json:"topicKeywords"`
		LastAccessedDocuments []string         `json:"lastAccessedDocuments"`
		RecentQueries         string           `json:"recentQueries"`
		Summary               string           `json:"summary,omitempty"`
		Duration              time.Duration    `json:"duration"`
	}
)

const (
	maxTopicKeywords = 20
	maxAccessedDocs  = 10
	maxTurnKeywords  = 10
)

func newMemory(sessionID string, now time.Time) *Memory {
	return &Memory{
		SessionID:  sessionID,
		CreatedAt:  now,
		LastActive: now,
	}
}

// absorb folds a finished turn into the rolling context.
func (m *Memory) absorb(turn *Turn) {
	m.Turns = append(m.Turns, turn)
	m.LastActive = turn.Timestamp

	m.TopicKeywords = appendBounded(m.TopicKeywords, turn.ContextKeywords, maxTopicKeywords)

	switch turn.Intent {
	case knowledge.IntentBooking, knowledge.IntentCancellation, knowledge.IntentProcedure:
		m.CurrentTopic = turn.Intent
	}

	m.LastAccessedDocuments = appendBounded(m.LastAccessedDocuments, turn.RetrievedDocuments, maxAccessedDocs)
}

// summarize collapses all but the most recent keep turns into a text digest,
// appended to any existing summary.
func (m *Memory) summarize(keep int) {
	if len(m.Turns) <= keep {
		return
	}

	old := m.Turns[:len(m.Turns)-keep]
	recent := m.Turns[len(m.Turns)-keep:]

	var points []string
	for _, turn := range old {
		if turn.Escalated {
			points = append(points, fmt.Sprintf("Escalation triggered: %s", turn.Query))
		}
		if len(turn.RetrievedDocuments) > 0 {
			points = append(points, fmt.Sprintf("Used knowledge sources: %s", strings.Join(turn.RetrievedDocuments, ", ")))
		}
	}

	if len(points) > 0 {
		digest := "Previous conversation summary:\n" + strings.Join(points, "; ")
		if m.Summary != "" {
			m.Summary = m.Summary + "\n\n" + digest
		} else {
			m.Summary = digest
		}
	}

	m.Turns = append([]*Turn(nil), recent...)
}

// contextKeywords merges keywords of the last three turns with the rolling
// topic keywords, deduplicated in order.
func (m *Memory) contextKeywords() []string {
	var keywords []string
	start := len(m.Turns) - 3
	if start < 0 {
		start = 0
	}
	for _, turn := range m.Turns[start:] {
		keywords = append(keywords, turn.ContextKeywords...)
	}
	keywords = append(keywords, m.TopicKeywords...)
	return lo.Uniq(keywords)
}

// recentQueries joins the last three queries for the context summary.
func (m *Memory) recentQueries() string {
	start := len(m.Turns) - 3
	if start < 0 {
		start = 0
	}
	queries := lo.Map(m.Turns[start:], func(t *Turn, _ int) string { return t.Query })
	return strings.Join(queries, " | ")
}

// appendBounded appends values, keeps last occurrences unique, and trims to
// the newest max items.
func appendBounded(existing, values []string, max int) []string {
	merged := append(existing, values...)

	// dedup keeping the latest occurrence so recent terms survive trimming
	seen := make(map[string]struct{}, len(merged))
	var reversed []string
	for i := len(merged) - 1; i >= 0; i-- {
		if _, ok := seen[merged[i]]; ok {
			continue
		}
		seen[merged[i]] = struct{}{}
		reversed = append(reversed, merged[i])
	}
	lo.Reverse(reversed)

	if len(reversed) > max {
		reversed = reversed[len(reversed)-max:]
	}
	return reversed
}
