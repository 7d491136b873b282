package synthesis

import (
	"fmt"
	"regexp"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/samber/lo"

	"github.com/saketkumarjha/caresetuAgent-3.0-sub000/errors"
	"github.com/saketkumarjha/caresetuAgent-3.0-sub000/knowledge"
)

type (
	// Synthesizer renders answers from ranked search results using
	// intent-specific templates, with numbered citations.
	Synthesizer struct {
		templates map[knowledge.Intent]*template.Template
		fallback  *template.Template
	}

	// Citation points an answer back at one retrieved entry.
	Citation struct {
		ID             int                `json:"id"`
		Title          string             `json:"title"`
		SourceFile     string             `json:"sourceFile"`
		Category       knowledge.Category `json:"category"`
		RelevanceScore float64            `json:"relevanceScore"`
		Snippet        string             `json:"snippet"`
		EntryID        string             `json:"entryId"`
		DocumentID     string             `json:"documentId,omitempty"`
	}

	templateData struct {
		Action  string
		Topic   string
		Content string
		Sources string
	}
)

// NotFoundMessage is returned when no results back an answer.
const NotFoundMessage = "I couldn't find specific information about your question. Please try rephrasing your query or contact our support team for assistance."

var intentTemplates = map[knowledge.Intent]string{
	knowledge.IntentBooking:      "To {{.Action}}, follow these steps:\n{{.Content}}\n\nFor more information, refer to {{.Sources}}.",
	knowledge.IntentCancellation: "Regarding {{.Topic}}:\n{{.Content}}\n\nThis information is based on {{.Sources}}.",
	knowledge.IntentInformation:  "Here's what I found about {{.Topic}}:\n{{.Content}}\n\nSource: {{.Sources}}",
	knowledge.IntentProcedure:    "Here's how to {{.Action}}:\n{{.Content}}\n\nDetailed instructions can be found in {{.Sources}}.",
	knowledge.IntentPolicy:       "According to our policies:\n{{.Content}}\n\nFull policy details are available in {{.Sources}}.",
	knowledge.IntentContact:      "You can reach us through:\n{{.Content}}\n\nMore contact options are listed in {{.Sources}}.",
	knowledge.IntentHours:        "Our availability:\n{{.Content}}\n\nFor the most current information, check {{.Sources}}.",
	knowledge.IntentCost:         "Regarding pricing:\n{{.Content}}\n\nFor detailed pricing information, see {{.Sources}}.",
	knowledge.IntentGeneral:      "{{.Content}}\n\nThis information comes from {{.Sources}}.",
}

// NewSynthesizer parses the built-in answer templates.
func NewSynthesizer() (*Synthesizer, error) {
	s := &Synthesizer{templates: make(map[knowledge.Intent]*template.Template, len(intentTemplates))}
	for intent, text := range intentTemplates {
		tmpl, err := template.New(string(intent)).Funcs(sprig.FuncMap()).Parse(text)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse %s answer template", intent)
		}
		s.templates[intent] = tmpl
	}
	s.fallback = s.templates[knowledge.IntentGeneral]
	return s, nil
}

// Synthesize renders an answer for the query from ranked results. With no
// results it returns the not-found message and no citations.
func (s *Synthesizer) Synthesize(query string, results []*knowledge.SearchResult, intent knowledge.Intent) (string, []Citation, error) {
	if len(results) == 0 {
		return NotFoundMessage, nil, nil
	}

	data := templateData{
		Content: s.combineContent(results, query),
		Sources: formatSources(results),
	}
	actionTopic := extractActionTopic(query, intent)
	data.Action, data.Topic = actionTopic, actionTopic

	tmpl, ok := s.templates[intent]
	if !ok {
		tmpl = s.fallback
	}

	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		return "", nil, errors.Wrapf(err, "failed to render %s answer", intent)
	}
	return sb.String(), buildCitations(results), nil
}

// FormatWithCitations appends a numbered sources section to the answer.
func (s *Synthesizer) FormatWithCitations(answer string, citations []Citation) string {
	if len(citations) == 0 {
		return answer
	}

	var sb strings.Builder
	sb.WriteString(answer)
	sb.WriteString("\n\nSources:\n")
	for _, citation := range citations {
		fmt.Fprintf(&sb, "[%d] %s (%s)\n", citation.ID, citation.Title, citation.SourceFile)
	}
	return sb.String()
}

// combineContent uses the top result as the primary answer and folds in up
// to two supplementary sentences from other high-scoring results.
func (s *Synthesizer) combineContent(results []*knowledge.SearchResult, query string) string {
	primary := results[0]

	content := strings.TrimSpace(primary.Content)
	// FAQ entries carry Q&A text; answer with just the answer part.
	if primary.Category == knowledge.CategoryFAQ {
		if _, after, found := strings.Cut(primary.Content, "Answer:"); found {
			content = strings.TrimSpace(after)
		}
	}

	var supplementary []string
	limit := len(results)
	if limit > 3 {
		limit = 3
	}
	for _, result := range results[1:limit] {
		if result.RelevanceScore <= 0.5 {
			continue
		}
		sentence := keySentence(result.Content, query)
		if sentence == "" || strings.Contains(content, sentence) || lo.Contains(supplementary, sentence) {
			continue
		}
		supplementary = append(supplementary, sentence)
	}

	if len(supplementary) > 0 {
		content += "\n\nAdditional information:\n" + strings.Join(lo.Map(supplementary, func(info string, _ int) string {
			return "• " + info
		}), "\n")
	}
	return content
}

var sentenceSplitRe = regexp.MustCompile(`[.!?]+`)

// keySentence picks the sentence with the highest query word overlap, above
// a 20% floor. Sentences under 20 characters are ignored.
func keySentence(content, query string) string {
	queryWords := map[string]struct{}{}
	for _, w := range strings.Fields(strings.ToLower(query)) {
		queryWords[w] = struct{}{}
	}
	if len(queryWords) == 0 {
		return ""
	}

	var best string
	var bestScore float64
	for _, sentence := range sentenceSplitRe.Split(content, -1) {
		sentence = strings.TrimSpace(sentence)
		if len(sentence) < 20 {
			continue
		}

		overlap := 0
		for _, w := range strings.Fields(strings.ToLower(sentence)) {
			if _, ok := queryWords[w]; ok {
				overlap++
			}
		}
		score := float64(overlap) / float64(len(queryWords))
		if score > bestScore && score > 0.2 {
			bestScore = score
			best = sentence
		}
	}
	return best
}

func buildCitations(results []*knowledge.SearchResult) []Citation {
	citations := make([]Citation, 0, len(results))
	for i, result := range results {
		citations = append(citations, Citation{
			ID:             i + 1,
			Title:          result.Title,
			SourceFile:     result.SourceFile,
			Category:       result.Category,
			RelevanceScore: result.RelevanceScore,
			Snippet:        result.Snippet,
			EntryID:        result.EntryID,
			DocumentID:     result.DocumentID,
		})
	}
	return citations
}

// formatSources joins distinct source files with an Oxford comma.
func formatSources(results []*knowledge.SearchResult) string {
	files := lo.Uniq(lo.Map(results, func(r *knowledge.SearchResult, _ int) string {
		return r.SourceFile
	}))

	switch len(files) {
	case 0:
		return "our knowledge base"
	case 1:
		return files[0]
	case 2:
		return files[0] + " and " + files[1]
	default:
		return strings.Join(files[:len(files)-1], ", ") + ", and " + files[len(files)-1]
	}
}

var (
	howRe    = regexp.MustCompile(`how\s+(?:do\s+i\s+|to\s+)?(.+?)(\?|$)`)
	policyRe = regexp.MustCompile(`(privacy|cancellation|refund|terms|data)\s+policy`)
	topicRe  = regexp.MustCompile(`(?:what|about|regarding)\s+(.+?)(\?|$)`)
)

// extractActionTopic pulls the action or topic phrase the templates splice
// into the answer.
func extractActionTopic(query string, intent knowledge.Intent) string {
	queryLower := strings.ToLower(query)

	switch intent {
	case knowledge.IntentBooking:
		switch {
		case strings.Contains(queryLower, "appointment"):
			return "book an appointment"
		case strings.Contains(queryLower, "schedule"):
			return "schedule a service"
		default:
			return "make a booking"
		}
	case knowledge.IntentCancellation:
		return "cancellation policy"
	case knowledge.IntentProcedure:
		if m := howRe.FindStringSubmatch(queryLower); m != nil {
			return strings.TrimSpace(m[1])
		}
		return "complete this process"
	case knowledge.IntentContact:
		return "contact information"
	case knowledge.IntentHours:
		return "business hours"
	case knowledge.IntentPolicy:
		if m := policyRe.FindStringSubmatch(queryLower); m != nil {
			return m[1] + " policy"
		}
		return "our policies"
	default:
		if m := topicRe.FindStringSubmatch(queryLower); m != nil {
			return strings.TrimSpace(m[1])
		}
		return "your question"
	}
}
