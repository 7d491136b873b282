package knowledge_test

import (
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"

	"github.com/saketkumarjha/caresetuAgent-3.0-sub000/knowledge"
)

func TestQueryProcessorExpand(t *testing.T) {
	p := knowledge.NewQueryProcessor()

	terms := p.Expand("How do I book an appointment?")

	// the literal query words always come first
	require.Equal(t, "how", terms[0])
	require.Contains(t, terms, "book")
	require.Contains(t, terms, "appointment")

	// question pattern expansion
	require.Contains(t, terms, "process")
	require.Contains(t, terms, "steps")

	// domain synonym expansion
	require.Contains(t, terms, "booking")
	require.Contains(t, terms, "schedule")

	require.Equal(t, lo.Uniq(terms), terms, "expanded terms must be deduplicated")
}

func TestQueryProcessorExpandNoRules(t *testing.T) {
	p := knowledge.NewQueryProcessor()

	require.Equal(t, []string{"refund", "status"}, p.Expand("refund status"))
	require.Empty(t, p.Expand(""))
}

func TestQueryProcessorClassify(t *testing.T) {
	p := knowledge.NewQueryProcessor()

	tests := []struct {
		query    string
		expected knowledge.Intent
	}{
		{"I want to book an appointment", knowledge.IntentBooking},
		{"Please cancel my appointment for tomorrow", knowledge.IntentCancellation},
		{"What is your refund policy?", knowledge.IntentInformation},
		{"refund policy", knowledge.IntentPolicy},
		{"Are you open on Sunday?", knowledge.IntentHours},
		{"price for a consultation", knowledge.IntentCost},
		{"hello there", knowledge.IntentGeneral},
	}
	for _, tt := range tests {
		require.Equal(t, tt.expected, p.Classify(tt.query), "query: %s", tt.query)
	}
}
