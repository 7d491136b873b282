package knowledge

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

var wordRe = regexp.MustCompile(`[a-zA-Z]+`)

// stopWords are filtered before indexing and querying. Function words and
// generic verbs carry no retrieval signal.
var stopWords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`
		a an and are as at be by for from
		has he in is it its of on that the
		to was will with you your we our us
		i me my this these they them their have
		had can could should would may might must
		shall do does did get got go went come
		came see saw know knew think thought say
		said tell told ask asked give gave take
		took make made put set let use used find
		found work worked call called try tried need
		needed feel felt seem seemed leave left move
		moved turn turned start started show showed
		play played run ran begin began help helped
		talk talked become became change changed end
		ended why how where when what who which
		whom whose if then than or but not no
		yes all any each every some many much
		more most other another such only own same
		so too very just now here there
		up out down off over under again further
		once also back still well away around
		because before after above below between through
		during without within along following across
		behind beyond plus except about into onto upon`) {
		stopWords[w] = struct{}{}
	}
}

// Tokenize lowercases text, splits it into alphabetic words, and drops stop
// words and words shorter than three characters.
func Tokenize(text string) []string {
	words := wordRe.FindAllString(strings.ToLower(text), -1)
	tokens := make([]string, 0, len(words))
	for _, w := range words {
		if len(w) <= 2 {
			continue
		}
		if _, ok := stopWords[w]; ok {
			continue
		}
		tokens = append(tokens, w)
	}
	return tokens
}

// ExtractKeywords returns the most frequent tokens of text, at most max. Ties
// break alphabetically so keyword extraction is deterministic.
func ExtractKeywords(text string, max int) []string {
	tokens := Tokenize(text)
	counts := make(map[string]int, len(tokens))
	for _, t := range tokens {
		counts[t]++
	}

	keywords := make([]string, 0, len(counts))
	for t := range counts {
		keywords = append(keywords, t)
	}
	sort.Slice(keywords, func(i, j int) bool {
		if counts[keywords[i]] != counts[keywords[j]] {
			return counts[keywords[i]] > counts[keywords[j]]
		}
		return keywords[i] < keywords[j]
	})

	if len(keywords) > max {
		keywords = keywords[:max]
	}
	return keywords
}

// Snippet extracts a window of at most maxLen characters around the densest
// cluster of search terms, wraps matched terms in ** markers, and adds
// ellipses where the window cuts into the text.
func Snippet(text string, terms []string, maxLen int) string {
	if len(terms) == 0 {
		if len(text) > maxLen {
			return text[:runeStart(text, maxLen)] + "..."
		}
		return text
	}

	textLower := strings.ToLower(text)
	bestPos, maxMatches := 0, 0
	for i := 0; i+maxLen <= len(text); i += 50 {
		window := textLower[i : i+maxLen]
		matches := 0
		for _, term := range terms {
			if strings.Contains(window, strings.ToLower(term)) {
				matches++
			}
		}
		if matches > maxMatches {
			maxMatches = matches
			bestPos = i
		}
	}

	// window offsets are byte positions; back off to rune boundaries so
	// multibyte content is never cut mid-rune
	start := runeStart(text, bestPos)
	end := bestPos + maxLen
	if end > len(text) {
		end = len(text)
	} else {
		end = runeStart(text, end)
	}
	snippet := text[start:end]
	if start > 0 {
		snippet = "..." + snippet
	}
	if end < len(text) {
		snippet += "..."
	}

	for _, term := range terms {
		re, err := regexp.Compile(`(?i)` + regexp.QuoteMeta(term))
		if err != nil {
			continue
		}
		snippet = re.ReplaceAllString(snippet, "**"+term+"**")
	}
	return snippet
}

// runeStart backs off to the nearest rune boundary at or before i.
func runeStart(s string, i int) int {
	for i > 0 && i < len(s) && !utf8.RuneStart(s[i]) {
		i--
	}
	return i
}
