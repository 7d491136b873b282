package learning

import (
	"regexp"
	"strings"
)

type patternFamily struct {
	learningType LearningType
	confidence   Confidence
	patterns     []*regexp.Regexp
}

// patternFamilies is evaluated in order. Corrections come first so phrases
// like "actually, the fee is $30, not $20" register as corrections before
// the plainer "actually, ..." teaching pattern can claim them.
var patternFamilies = []patternFamily{
	{
		learningType: TypeUserCorrection,
		confidence:   ConfidenceHigh,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`actually,?\s+(.+\bnot\b.+)`),
			regexp.MustCompile(`no,?\s+(.+)`),
			regexp.MustCompile(`that's not right,?\s+(.+)`),
			regexp.MustCompile(`incorrect,?\s+(.+)`),
			regexp.MustCompile(`wrong,?\s+(.+)`),
			regexp.MustCompile(`actually it's\s+(.+)`),
		},
	},
	{
		learningType: TypeNewInformation,
		confidence:   ConfidenceHigh,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`actually,?\s+(.+)`),
			regexp.MustCompile(`let me tell you,?\s+(.+)`),
			regexp.MustCompile(`the correct (?:answer|information) is\s+(.+)`),
			regexp.MustCompile(`i should mention that\s+(.+)`),
			regexp.MustCompile(`for your information,?\s+(.+)`),
		},
	},
	{
		learningType: TypeContextEnhancement,
		confidence:   ConfidenceHigh,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`also,?\s+(.+)`),
			regexp.MustCompile(`additionally,?\s+(.+)`),
			regexp.MustCompile(`furthermore,?\s+(.+)`),
			regexp.MustCompile(`by the way,?\s+(.+)`),
			regexp.MustCompile(`i forgot to mention\s+(.+)`),
		},
	},
	{
		learningType: TypeClarification,
		confidence:   ConfidenceHigh,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`what i meant was\s+(.+)`),
			regexp.MustCompile(`to clarify,?\s+(.+)`),
			regexp.MustCompile(`let me be more specific,?\s+(.+)`),
			regexp.MustCompile(`in other words,?\s+(.+)`),
		},
	},
}

var informativeIndicators = []string{
	"the reason is", "because", "due to", "caused by",
	"the process is", "you need to", "it works by",
	"the policy states", "according to", "the rule is",
	"typically", "usually", "normally", "generally",
	"in my experience", "i found that", "what works is",
}

var questionPrefixes = []string{"what", "how", "when", "where", "why", "who"}

// DetectOpportunity reports whether a user message carries information worth
// learning, the extracted content, and how confident the capture is.
// Explicit phrasings are high confidence; implicit informative statements
// only medium.
func DetectOpportunity(message string) (LearningType, string, Confidence, bool) {
	messageLower := strings.ToLower(message)

	for _, family := range patternFamilies {
		for _, pattern := range family.patterns {
			m := pattern.FindStringSubmatch(messageLower)
			if m == nil {
				continue
			}
			content := strings.TrimSpace(m[1])
			if len(strings.Fields(content)) < 3 {
				continue
			}
			return family.learningType, content, family.confidence, true
		}
	}

	if isInformativeStatement(message) {
		return TypeNewInformation, strings.TrimSpace(message), ConfidenceMedium, true
	}
	return "", "", "", false
}

// isInformativeStatement requires an informative phrase, substantial length,
// and a non-question shape.
func isInformativeStatement(message string) bool {
	messageLower := strings.ToLower(message)

	informative := false
	for _, indicator := range informativeIndicators {
		if strings.Contains(messageLower, indicator) {
			informative = true
			break
		}
	}
	if !informative {
		return false
	}

	if len(strings.Fields(message)) < 10 {
		return false
	}

	if strings.HasSuffix(strings.TrimSpace(message), "?") {
		return false
	}
	for _, prefix := range questionPrefixes {
		if strings.HasPrefix(messageLower, prefix) {
			return false
		}
	}
	return true
}
