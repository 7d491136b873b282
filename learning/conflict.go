package learning

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/samber/lo"
)

var (
	negationRe = regexp.MustCompile(`\bnot\s+(\$?\w+(?:\s+\w+){0,3})`)
	cannotRe   = regexp.MustCompile(`\bcannot\s+(\w+)`)
	keyTermRe  = regexp.MustCompile(`\b(?:cost|price|time|hours|days|fee|policy|procedure)\b`)
	numberRe   = regexp.MustCompile(`\d+`)
)

// CheckConflict reports whether a learned fact contradicts retrieved
// knowledge base content, with a human-readable description. Detection is
// heuristic: negated phrases the retrieved content asserts, can/cannot
// mismatches, and diverging numbers in sentences about the same key term.
func CheckConflict(learnedContent, retrievedContent string) (bool, string) {
	if retrievedContent == "" {
		return false, ""
	}

	learnedLower := strings.ToLower(learnedContent)
	retrievedLower := strings.ToLower(retrievedContent)

	// "not X" in the learned fact vs a plain "X" claim in retrieved content
	for _, m := range negationRe.FindAllStringSubmatch(learnedLower, -1) {
		phrase := strings.TrimSpace(m[1])
		if strings.Contains(retrievedLower, phrase) && !strings.Contains(retrievedLower, "not "+phrase) {
			return true, fmt.Sprintf("learned info says 'not %s' but knowledge base asserts '%s'", phrase, phrase)
		}
	}

	// "cannot X" vs "can X"
	for _, m := range cannotRe.FindAllStringSubmatch(learnedLower, -1) {
		if regexp.MustCompile(`\bcan\s+` + regexp.QuoteMeta(m[1])).MatchString(retrievedLower) {
			return true, fmt.Sprintf("learned info says 'cannot %s' but knowledge base says 'can %s'", m[1], m[1])
		}
	}

	// diverging numbers in sentences about the same key term
	for _, term := range lo.Uniq(keyTermRe.FindAllString(learnedLower, -1)) {
		learnedNumbers := sentenceNumbers(learnedContent, term)
		retrievedNumbers := sentenceNumbers(retrievedContent, term)
		if len(learnedNumbers) == 0 || len(retrievedNumbers) == 0 {
			continue
		}
		if !sameSet(learnedNumbers, retrievedNumbers) {
			return true, fmt.Sprintf("different %s values: learned=%v vs knowledge base=%v", term, learnedNumbers, retrievedNumbers)
		}
	}

	return false, ""
}

// sentenceNumbers collects the numbers appearing in sentences that mention
// the term.
func sentenceNumbers(content, term string) []string {
	var numbers []string
	for _, sentence := range strings.Split(content, ".") {
		if !strings.Contains(strings.ToLower(sentence), term) {
			continue
		}
		numbers = append(numbers, numberRe.FindAllString(sentence, -1)...)
	}
	return lo.Uniq(numbers)
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for _, v := range a {
		if !lo.Contains(b, v) {
			return false
		}
	}
	return true
}
