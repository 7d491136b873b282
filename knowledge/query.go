package knowledge

import (
	"regexp"
	"strings"
)

type (
	// QueryProcessor expands queries with related terms and classifies the
	// intent behind them. The rule tables are evaluated in order, so the
	// zero-config processor is deterministic.
	QueryProcessor struct {
		questionRules []expansionRule
		domainRules   []domainRule
		intentRules   []intentRule
	}

	expansionRule struct {
		pattern    *regexp.Regexp
		expansions []string
	}

	domainRule struct {
		term       string
		expansions []string
	}

	intentRule struct {
		intent  Intent
		pattern *regexp.Regexp
	}
)

// NewQueryProcessor builds a processor with the built-in customer support
// rule tables.
func NewQueryProcessor() *QueryProcessor {
	return &QueryProcessor{
		questionRules: []expansionRule{
			{regexp.MustCompile(`\bhow\s+(?:do\s+i|can\s+i|to)\s+`), []string{"process", "steps", "procedure", "method"}},
			{regexp.MustCompile(`\bwhat\s+is\s+`), []string{"definition", "meaning", "explanation"}},
			{regexp.MustCompile(`\bwhen\s+`), []string{"time", "schedule", "hours", "date"}},
			{regexp.MustCompile(`\bwhere\s+`), []string{"location", "place", "address"}},
			{regexp.MustCompile(`\bwhy\s+`), []string{"reason", "explanation", "cause"}},
			{regexp.MustCompile(`\bwho\s+`), []string{"person", "contact", "responsible"}},
			{regexp.MustCompile(`\bcan\s+i\s+`), []string{"permission", "allowed", "policy"}},
			{regexp.MustCompile(`\bis\s+it\s+`), []string{"status", "condition", "state"}},
		},
		domainRules: []domainRule{
			{"appointment", []string{"booking", "schedule", "meeting", "visit"}},
			{"cancel", []string{"cancellation", "cancel", "remove", "delete"}},
			{"policy", []string{"rule", "guideline", "procedure", "regulation"}},
			{"support", []string{"help", "assistance", "customer service", "contact"}},
			{"payment", []string{"billing", "cost", "price", "fee", "charge"}},
			{"account", []string{"profile", "user", "login", "registration"}},
			{"service", []string{"offering", "feature", "capability", "function"}},
			{"privacy", []string{"data protection", "confidential", "security"}},
			{"hours", []string{"time", "schedule", "availability", "open"}},
			{"contact", []string{"phone", "email", "address", "reach"}},
		},
		intentRules: []intentRule{
			{IntentBooking, regexp.MustCompile(`\b(book|schedule|make|create|set up|arrange).*appointment`)},
			{IntentCancellation, regexp.MustCompile(`\b(cancel|remove|delete|reschedule).*appointment`)},
			{IntentInformation, regexp.MustCompile(`\b(what|tell me|information|details|about)`)},
			{IntentProcedure, regexp.MustCompile(`\b(how|steps|process|procedure|method)`)},
			{IntentPolicy, regexp.MustCompile(`\b(policy|rule|guideline|allowed|permitted)`)},
			{IntentContact, regexp.MustCompile(`\b(contact|phone|email|reach|call|support)`)},
			{IntentHours, regexp.MustCompile(`\b(hours|time|open|available|schedule)`)},
			{IntentCost, regexp.MustCompile(`\b(cost|price|fee|charge|payment|billing)`)},
		},
	}
}

var queryWordRe = regexp.MustCompile(`\b\w+\b`)

// Expand returns the query's own words followed by question pattern and
// domain synonym expansions, deduplicated in first-seen order. The original
// words always come first so downstream matching prefers literal terms.
func (p *QueryProcessor) Expand(query string) []string {
	queryLower := strings.ToLower(query)

	var terms []string
	terms = append(terms, queryWordRe.FindAllString(queryLower, -1)...)

	for _, rule := range p.questionRules {
		if rule.pattern.MatchString(queryLower) {
			terms = append(terms, rule.expansions...)
		}
	}
	for _, rule := range p.domainRules {
		if strings.Contains(queryLower, rule.term) {
			terms = append(terms, rule.expansions...)
		}
	}

	seen := make(map[string]struct{}, len(terms))
	unique := terms[:0]
	for _, t := range terms {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		unique = append(unique, t)
	}
	return unique
}

// Classify returns the first intent whose pattern matches the query, or
// IntentGeneral when nothing matches. Booking and cancellation are checked
// before the broader informational patterns.
func (p *QueryProcessor) Classify(query string) Intent {
	queryLower := strings.ToLower(query)
	for _, rule := range p.intentRules {
		if rule.pattern.MatchString(queryLower) {
			return rule.intent
		}
	}
	return IntentGeneral
}
