package learning_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/saketkumarjha/caresetuAgent-3.0-sub000/learning"
)

func TestDetectOpportunityCorrection(t *testing.T) {
	learningType, content, confidence, ok := learning.DetectOpportunity("Actually, the fee is $30, not $20")
	require.True(t, ok)
	require.Equal(t, learning.TypeUserCorrection, learningType)
	require.Equal(t, learning.ConfidenceHigh, confidence)
	require.Equal(t, "the fee is $30, not $20", content)
}

func TestDetectOpportunityExplicitTeaching(t *testing.T) {
	learningType, content, confidence, ok := learning.DetectOpportunity("Actually, we also offer weekend appointments")
	require.True(t, ok)
	require.Equal(t, learning.TypeNewInformation, learningType)
	require.Equal(t, learning.ConfidenceHigh, confidence)
	require.Equal(t, "we also offer weekend appointments", content)
}

func TestDetectOpportunityAdditionalInfo(t *testing.T) {
	learningType, _, _, ok := learning.DetectOpportunity("By the way, parking is free for visitors")
	require.True(t, ok)
	require.Equal(t, learning.TypeContextEnhancement, learningType)
}

func TestDetectOpportunityClarification(t *testing.T) {
	learningType, content, _, ok := learning.DetectOpportunity("What I meant was the downtown office near the station")
	require.True(t, ok)
	require.Equal(t, learning.TypeClarification, learningType)
	require.Equal(t, "the downtown office near the station", content)

	learningType, _, _, ok = learning.DetectOpportunity("To clarify, I was asking about the monthly plan")
	require.True(t, ok)
	require.Equal(t, learning.TypeClarification, learningType)
}

func TestDetectOpportunityImplicitStatement(t *testing.T) {
	message := "The reason is that our billing system typically processes refunds in seven days"

	learningType, content, confidence, ok := learning.DetectOpportunity(message)
	require.True(t, ok)
	require.Equal(t, learning.TypeNewInformation, learningType)
	require.Equal(t, learning.ConfidenceMedium, confidence)
	require.Equal(t, message, content)
}

func TestDetectOpportunityRejections(t *testing.T) {
	for _, message := range []string{
		"How does the billing process work?",
		"What are your business hours",
		"no way",
		"hello",
		"Because reasons?",
	} {
		_, _, _, ok := learning.DetectOpportunity(message)
		require.False(t, ok, "message: %s", message)
	}
}
