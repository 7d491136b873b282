package knowledge_test

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"

	"github.com/saketkumarjha/caresetuAgent-3.0-sub000/knowledge"
)

func TestTokenize(t *testing.T) {
	tokens := knowledge.Tokenize("How do I book an appointment?")
	require.Equal(t, []string{"book", "appointment"}, tokens)

	// short words and stop words are dropped
	require.Empty(t, knowledge.Tokenize("it is ok"))
	require.Empty(t, knowledge.Tokenize(""))

	// punctuation and digits never produce tokens
	tokens = knowledge.Tokenize("Call +1-800-555-0199 for refunds!")
	require.Equal(t, []string{"refunds"}, tokens)
}

func TestExtractKeywords(t *testing.T) {
	keywords := knowledge.ExtractKeywords("booking booking cancellation booking cancellation refund", 2)
	require.Equal(t, []string{"booking", "cancellation"}, keywords)

	// equal frequencies break alphabetically
	keywords = knowledge.ExtractKeywords("delta alpha", 10)
	require.Equal(t, []string{"alpha", "delta"}, keywords)

	require.Empty(t, knowledge.ExtractKeywords("", 5))
}

func TestSnippetShortText(t *testing.T) {
	text := "Our cancellation policy requires 24 hours notice."

	snippet := knowledge.Snippet(text, []string{"cancellation"}, 200)
	require.Contains(t, snippet, "**cancellation**")
	require.NotContains(t, snippet, "...")

	// no terms falls back to a plain prefix
	require.Equal(t, text, knowledge.Snippet(text, nil, 200))
}

func TestSnippetWindowAroundMatch(t *testing.T) {
	text := strings.Repeat("filler words here. ", 20) + "The refund window is thirty days."

	snippet := knowledge.Snippet(text, []string{"refund"}, 100)
	require.Contains(t, snippet, "**refund**")
	require.True(t, strings.HasPrefix(snippet, "..."))
	require.True(t, strings.HasSuffix(snippet, "..."))
}

func TestSnippetMultibyteSafe(t *testing.T) {
	// the match window starts mid-rune inside the three-byte euro signs
	text := strings.Repeat("€", 20) + "refund policy details available upon request"

	snippet := knowledge.Snippet(text, []string{"refund"}, 40)
	require.True(t, utf8.ValidString(snippet))
	require.Contains(t, snippet, "**refund**")

	// prefix truncation stays on rune boundaries too
	prefix := knowledge.Snippet(strings.Repeat("é", 80), nil, 99)
	require.True(t, utf8.ValidString(prefix))
	require.True(t, strings.HasSuffix(prefix, "..."))
}
