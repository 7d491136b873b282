package learning_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/saketkumarjha/caresetuAgent-3.0-sub000/learning"
)

func TestCheckConflictNegation(t *testing.T) {
	conflict, details := learning.CheckConflict(
		"the fee is $30, not $20",
		"The cancellation fee is $20 for late cancellations.",
	)
	require.True(t, conflict)
	require.Contains(t, details, "$20")
}

func TestCheckConflictCannotVsCan(t *testing.T) {
	conflict, details := learning.CheckConflict(
		"you cannot reschedule online",
		"You can reschedule appointments online or by phone.",
	)
	require.True(t, conflict)
	require.Contains(t, details, "reschedule")
}

func TestCheckConflictDivergingNumbers(t *testing.T) {
	conflict, details := learning.CheckConflict(
		"the fee is 30 dollars",
		"The fee is 20 dollars for late arrivals.",
	)
	require.True(t, conflict)
	require.Contains(t, details, "fee")
}

func TestCheckConflictAgreement(t *testing.T) {
	conflict, _ := learning.CheckConflict(
		"the fee is 20 dollars",
		"The fee is 20 dollars for late arrivals.",
	)
	require.False(t, conflict)

	// nothing retrieved means nothing to contradict
	conflict, _ = learning.CheckConflict("the fee is 30 dollars", "")
	require.False(t, conflict)

	// unrelated statements never conflict
	conflict, _ = learning.CheckConflict(
		"parking is free for visitors",
		"We are open Monday through Friday.",
	)
	require.False(t, conflict)
}
