package knowledge

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"
	"gonum.org/v1/gonum/mat"
)

// Factor names used in SearchResult.Breakdown.
const (
	FactorTermFrequency    = "term_frequency"
	FactorTitleMatch       = "title_match"
	FactorContentRelevance = "content_relevance"
	FactorDocumentType     = "document_type_bonus"
	FactorRecency          = "recency_bonus"
	FactorCompleteness     = "completeness_bonus"
	FactorSourceAuthority  = "source_authority"
)

// rankFactors fixes the factor order used for the weight and score vectors.
var rankFactors = []string{
	FactorTermFrequency,
	FactorTitleMatch,
	FactorContentRelevance,
	FactorDocumentType,
	FactorRecency,
	FactorCompleteness,
	FactorSourceAuthority,
}

// Ranker combines seven scoring factors into a weighted relevance score.
type Ranker struct {
	weights      *mat.VecDense
	typePriority map[Category]float64
	intentBonus  map[Intent]map[Category]float64
}

func NewRanker() *Ranker {
	return &Ranker{
		weights: mat.NewVecDense(len(rankFactors), []float64{
			0.25, // term frequency
			0.20, // title match
			0.20, // content relevance
			0.10, // document type
			0.10, // recency
			0.10, // completeness
			0.05, // source authority
		}),
		typePriority: map[Category]float64{
			CategoryFAQ:       1.0,
			CategoryPolicy:    0.9,
			CategoryProcedure: 0.8,
			CategoryManual:    0.7,
			CategoryGeneral:   0.6,
		},
		intentBonus: map[Intent]map[Category]float64{
			IntentBooking:      {CategoryProcedure: 0.2, CategoryFAQ: 0.1},
			IntentCancellation: {CategoryPolicy: 0.2, CategoryFAQ: 0.1},
			IntentInformation:  {CategoryFAQ: 0.2, CategoryGeneral: 0.1},
			IntentProcedure:    {CategoryProcedure: 0.3, CategoryManual: 0.2},
			IntentPolicy:       {CategoryPolicy: 0.3, CategoryFAQ: 0.1},
			IntentContact:      {CategoryFAQ: 0.2, CategoryGeneral: 0.1},
		},
	}
}

// Rank rescores results against the query and intent and sorts them by the
// weighted score, highest first. The per-factor breakdown is attached to each
// result. Input order breaks ties, so ranking is deterministic.
func (r *Ranker) Rank(results []*SearchResult, query string, intent Intent, now time.Time) []*SearchResult {
	ranked := make([]*SearchResult, 0, len(results))
	for _, res := range results {
		cp := res.Clone()

		scores := mat.NewVecDense(len(rankFactors), []float64{
			termFrequencyScore(cp.Content, cp.MatchedTerms),
			titleMatchScore(cp.Title, cp.MatchedTerms),
			contentRelevanceScore(cp.Content, query),
			r.documentTypeBonus(cp.Category, intent),
			recencyBonus(cp, now),
			completenessBonus(cp.Content, cp.Title),
			sourceAuthorityBonus(cp.SourceType),
		})

		cp.Breakdown = map[string]float64{}
		for i, factor := range rankFactors {
			cp.Breakdown[factor] = scores.AtVec(i)
		}
		cp.RelevanceScore = mat.Dot(r.weights, scores)
		ranked = append(ranked, cp)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].RelevanceScore > ranked[j].RelevanceScore
	})
	return ranked
}

// termFrequencyScore is a tf-idf style score over the matched terms,
// capped at 1.
func termFrequencyScore(content string, terms []string) float64 {
	if len(terms) == 0 {
		return 0
	}
	contentLower := strings.ToLower(content)
	totalWords := len(queryWordRe.FindAllString(contentLower, -1))
	if totalWords == 0 {
		return 0
	}

	var score float64
	for _, term := range terms {
		count := strings.Count(contentLower, strings.ToLower(term))
		if count == 0 {
			continue
		}
		tf := float64(count) / float64(totalWords)
		idf := math.Log(1 + 1/tf)
		score += tf * idf
	}
	return math.Min(1.0, score)
}

// titleMatchScore is the fraction of matched terms appearing in the title.
func titleMatchScore(title string, terms []string) float64 {
	if len(terms) == 0 || title == "" {
		return 0
	}
	titleLower := strings.ToLower(title)
	matches := 0
	for _, term := range terms {
		if strings.Contains(titleLower, strings.ToLower(term)) {
			matches++
		}
	}
	return float64(matches) / float64(len(terms))
}

// contentRelevanceScore rewards exact phrase matches, then bigram matches,
// then word proximity.
func contentRelevanceScore(content, query string) float64 {
	if content == "" || query == "" {
		return 0
	}
	contentLower := strings.ToLower(content)
	queryLower := strings.ToLower(query)

	if strings.Contains(contentLower, queryLower) {
		return 1.0
	}

	queryWords := strings.Fields(queryLower)
	if len(queryWords) > 1 {
		for i := 0; i+1 < len(queryWords); i++ {
			if strings.Contains(contentLower, queryWords[i]+" "+queryWords[i+1]) {
				return 0.8
			}
		}
	}

	var positions []int
	for _, word := range queryWords {
		re, err := regexp.Compile(`\b` + regexp.QuoteMeta(word) + `\b`)
		if err != nil {
			continue
		}
		for _, loc := range re.FindAllStringIndex(contentLower, -1) {
			positions = append(positions, loc[0])
		}
	}
	if len(positions) > 1 {
		sort.Ints(positions)
		var total int
		for i := 0; i+1 < len(positions); i++ {
			total += positions[i+1] - positions[i]
		}
		avg := float64(total) / float64(len(positions)-1)
		return math.Max(0, 1-avg/1000)
	}
	return 0
}

func (r *Ranker) documentTypeBonus(category Category, intent Intent) float64 {
	base, ok := r.typePriority[category]
	if !ok {
		base = 0.5
	}
	return math.Min(1.0, base+r.intentBonus[intent][category])
}

// recencyBonus decays exponentially with a 180 day half life, using the
// later of the entry's created and updated times. Results without timestamps
// score a neutral 0.5.
func recencyBonus(res *SearchResult, now time.Time) float64 {
	if res.CreatedAt.IsZero() && res.UpdatedAt.IsZero() {
		return 0.5
	}
	mostRecent := res.CreatedAt
	if res.UpdatedAt.After(mostRecent) {
		mostRecent = res.UpdatedAt
	}
	days := now.Sub(mostRecent).Hours() / 24
	if days <= 0 {
		return 1.0
	}
	return math.Exp(-days / 180.0)
}

// completenessBonus rewards mid-length, titled, structured content.
func completenessBonus(content, title string) float64 {
	if content == "" {
		return 0
	}
	var score float64

	words := len(strings.Fields(content))
	switch {
	case words >= 50 && words <= 500:
		score += 0.3
	case (words >= 20 && words < 50) || (words > 500 && words <= 1000):
		score += 0.2
	case words >= 20:
		score += 0.1
	}

	if strings.TrimSpace(title) != "" {
		score += 0.2
	}

	structureCount := 0
	for _, indicator := range []string{"\n\n", "1.", "2.", "•", "-", ":"} {
		if strings.Contains(content, indicator) {
			structureCount++
		}
	}
	score += math.Min(0.3, float64(structureCount)*0.1)

	if strings.Contains(content, "?") {
		contentLower := strings.ToLower(content)
		if lo.SomeBy([]string{"answer", "response", "solution"}, func(w string) bool {
			return strings.Contains(contentLower, w)
		}) {
			score += 0.2
		}
	}
	return math.Min(1.0, score)
}

// sourceAuthorityBonus prefers PDF-derived entries over JSON corpus entries.
func sourceAuthorityBonus(sourceType SourceType) float64 {
	switch sourceType {
	case SourceTypePDF:
		return 1.0
	case SourceTypeJSON:
		return 0.8
	}
	return 0.5
}
