package knowledge

import (
	"math"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/samber/lo"
)

type (
	// Index is an in-memory inverted index over knowledge entries. Readers
	// work on an immutable snapshot swapped in atomically, so searches never
	// block behind a rebuild and never observe a half-built index.
	Index struct {
		snap atomic.Pointer[snapshot]
		mu   sync.Mutex // serializes writers
	}

	// snapshot holds every index structure for one generation. It is never
	// mutated after publication.
	snapshot struct {
		words      map[string]map[string]struct{} // term -> entry ids
		keywords   map[string][]string            // entry id -> extracted keywords
		entries    map[string]*KnowledgeEntry     // entry id -> entry
		byCategory map[Category]map[string]struct{}
		bySource   map[SourceType]map[string]struct{}
		byDocument map[string]map[string]struct{}
		order      []string // ids in insertion order, for deterministic iteration
		builtAt    time.Time
	}

	// IndexStats summarizes the published snapshot.
	IndexStats struct {
		Entries     int                `json:"entries"`
		UniqueWords int                `json:"uniqueWords"`
		ByCategory  map[Category]int   `json:"byCategory"`
		BySource    map[SourceType]int `json:"bySource"`
		Documents   int                `json:"documents"`
		BuiltAt     time.Time          `json:"builtAt"`
	}
)

func newSnapshot() *snapshot {
	return &snapshot{
		words:      map[string]map[string]struct{}{},
		keywords:   map[string][]string{},
		entries:    map[string]*KnowledgeEntry{},
		byCategory: map[Category]map[string]struct{}{},
		bySource:   map[SourceType]map[string]struct{}{},
		byDocument: map[string]map[string]struct{}{},
		builtAt:    time.Now(),
	}
}

// NewIndex returns an empty index ready for Build or Upsert.
func NewIndex() *Index {
	idx := &Index{}
	idx.snap.Store(newSnapshot())
	return idx
}

// Build replaces the whole index with the given entries.
func (idx *Index) Build(entries []*KnowledgeEntry) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	snap := newSnapshot()
	for _, entry := range entries {
		snap.add(entry)
	}
	idx.snap.Store(snap)
}

// Upsert adds or replaces entries without disturbing the rest of the index.
// The snapshot is copied, modified, and swapped in one step.
func (idx *Index) Upsert(entries ...*KnowledgeEntry) {
	if len(entries) == 0 {
		return
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	snap := idx.snap.Load().copy()
	for _, entry := range entries {
		if _, ok := snap.entries[entry.ID]; ok {
			snap.remove(entry.ID)
		}
		snap.add(entry)
	}
	snap.builtAt = time.Now()
	idx.snap.Store(snap)
}

// Search tokenizes terms against the index, intersecting postings first and
// falling back to a union when no entry matches every term. Results carry a
// base relevance score and are sorted by it descending; ties keep insertion
// order.
func (idx *Index) Search(terms []string, filter Filter, maxResults int) []*SearchResult {
	snap := idx.snap.Load()

	queryTerms := tokenizeTerms(terms)
	if len(queryTerms) == 0 {
		return nil
	}

	matching := snap.findMatching(queryTerms)
	matching = snap.applyFilter(matching, filter)
	if len(matching) == 0 {
		return nil
	}

	results := make([]*SearchResult, 0, len(matching))
	for _, id := range snap.order {
		if _, ok := matching[id]; !ok {
			continue
		}
		entry := snap.entries[id]
		keywords := snap.keywords[id]

		var matched []string
		for _, term := range queryTerms {
			if lo.Contains(keywords, term) {
				matched = append(matched, term)
			}
		}

		results = append(results, &SearchResult{
			EntryID:        id,
			Title:          entry.Title,
			Content:        entry.Content,
			RelevanceScore: snap.relevance(entry, keywords, queryTerms),
			Category:       entry.Category,
			SourceType:     entry.SourceType,
			SourceFile:     entry.SourceFile,
			DocumentID:     entry.DocumentID,
			Snippet:        Snippet(entry.Content, queryTerms, 200),
			MatchedTerms:   matched,
			CreatedAt:      entry.CreatedAt,
			UpdatedAt:      entry.UpdatedAt,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].RelevanceScore > results[j].RelevanceScore
	})
	if maxResults > 0 && len(results) > maxResults {
		results = results[:maxResults]
	}
	return results
}

// Get returns the indexed entry by id.
func (idx *Index) Get(id string) (*KnowledgeEntry, bool) {
	entry, ok := idx.snap.Load().entries[id]
	return entry, ok
}

// Entries returns every indexed entry in insertion order.
func (idx *Index) Entries() []*KnowledgeEntry {
	snap := idx.snap.Load()
	out := make([]*KnowledgeEntry, 0, len(snap.order))
	for _, id := range snap.order {
		out = append(out, snap.entries[id])
	}
	return out
}

// Suggest returns indexed words starting with the given prefix, most widely
// used first. Prefixes shorter than two characters yield nothing.
func (idx *Index) Suggest(prefix string, max int) []string {
	if len(prefix) < 2 {
		return nil
	}
	prefix = strings.ToLower(prefix)

	snap := idx.snap.Load()
	var suggestions []string
	for word := range snap.words {
		if strings.HasPrefix(word, prefix) {
			suggestions = append(suggestions, word)
		}
	}
	sort.Slice(suggestions, func(i, j int) bool {
		ni, nj := len(snap.words[suggestions[i]]), len(snap.words[suggestions[j]])
		if ni != nj {
			return ni > nj
		}
		return suggestions[i] < suggestions[j]
	})
	if max > 0 && len(suggestions) > max {
		suggestions = suggestions[:max]
	}
	return suggestions
}

// RelatedTerms returns keywords that co-occur with term across entries,
// most frequent first.
func (idx *Index) RelatedTerms(term string, max int) []string {
	snap := idx.snap.Load()
	term = strings.ToLower(term)

	postings, ok := snap.words[term]
	if !ok {
		return nil
	}

	counts := map[string]int{}
	for id := range postings {
		for _, keyword := range snap.keywords[id] {
			if keyword != term {
				counts[keyword]++
			}
		}
	}

	related := make([]string, 0, len(counts))
	for keyword := range counts {
		related = append(related, keyword)
	}
	sort.Slice(related, func(i, j int) bool {
		if counts[related[i]] != counts[related[j]] {
			return counts[related[i]] > counts[related[j]]
		}
		return related[i] < related[j]
	})
	if max > 0 && len(related) > max {
		related = related[:max]
	}
	return related
}

// Stats reports sizes of the published snapshot.
func (idx *Index) Stats() IndexStats {
	snap := idx.snap.Load()
	stats := IndexStats{
		Entries:     len(snap.entries),
		UniqueWords: len(snap.words),
		ByCategory:  map[Category]int{},
		BySource:    map[SourceType]int{},
		Documents:   len(snap.byDocument),
		BuiltAt:     snap.builtAt,
	}
	for cat, ids := range snap.byCategory {
		stats.ByCategory[cat] = len(ids)
	}
	for src, ids := range snap.bySource {
		stats.BySource[src] = len(ids)
	}
	return stats
}

func (s *snapshot) add(entry *KnowledgeEntry) {
	titleKeywords := ExtractKeywords(entry.Title, 10)
	contentKeywords := ExtractKeywords(entry.Content, 30)

	seen := map[string]struct{}{}
	var keywords []string
	for _, kw := range append(titleKeywords, contentKeywords...) {
		if _, ok := seen[kw]; ok {
			continue
		}
		seen[kw] = struct{}{}
		keywords = append(keywords, kw)
	}
	s.keywords[entry.ID] = keywords

	for _, kw := range keywords {
		s.posting(kw)[entry.ID] = struct{}{}
	}
	for _, tag := range entry.Tags {
		for _, word := range Tokenize(tag) {
			s.posting(word)[entry.ID] = struct{}{}
		}
	}

	s.entries[entry.ID] = entry
	s.order = append(s.order, entry.ID)

	if s.byCategory[entry.Category] == nil {
		s.byCategory[entry.Category] = map[string]struct{}{}
	}
	s.byCategory[entry.Category][entry.ID] = struct{}{}

	if s.bySource[entry.SourceType] == nil {
		s.bySource[entry.SourceType] = map[string]struct{}{}
	}
	s.bySource[entry.SourceType][entry.ID] = struct{}{}

	if entry.DocumentID != "" {
		if s.byDocument[entry.DocumentID] == nil {
			s.byDocument[entry.DocumentID] = map[string]struct{}{}
		}
		s.byDocument[entry.DocumentID][entry.ID] = struct{}{}
	}
}

func (s *snapshot) remove(id string) {
	entry, ok := s.entries[id]
	if !ok {
		return
	}

	for word, postings := range s.words {
		delete(postings, id)
		if len(postings) == 0 {
			delete(s.words, word)
		}
	}
	delete(s.keywords, id)
	delete(s.entries, id)
	if ids := s.byCategory[entry.Category]; ids != nil {
		delete(ids, id)
	}
	if ids := s.bySource[entry.SourceType]; ids != nil {
		delete(ids, id)
	}
	if entry.DocumentID != "" {
		if ids := s.byDocument[entry.DocumentID]; ids != nil {
			delete(ids, id)
		}
	}
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

func (s *snapshot) posting(word string) map[string]struct{} {
	postings, ok := s.words[word]
	if !ok {
		postings = map[string]struct{}{}
		s.words[word] = postings
	}
	return postings
}

func (s *snapshot) copy() *snapshot {
	cp := newSnapshot()
	cp.builtAt = s.builtAt
	for word, postings := range s.words {
		dst := make(map[string]struct{}, len(postings))
		for id := range postings {
			dst[id] = struct{}{}
		}
		cp.words[word] = dst
	}
	for id, keywords := range s.keywords {
		cp.keywords[id] = append([]string(nil), keywords...)
	}
	for id, entry := range s.entries {
		cp.entries[id] = entry
	}
	for cat, ids := range s.byCategory {
		dst := make(map[string]struct{}, len(ids))
		for id := range ids {
			dst[id] = struct{}{}
		}
		cp.byCategory[cat] = dst
	}
	for src, ids := range s.bySource {
		dst := make(map[string]struct{}, len(ids))
		for id := range ids {
			dst[id] = struct{}{}
		}
		cp.bySource[src] = dst
	}
	for doc, ids := range s.byDocument {
		dst := make(map[string]struct{}, len(ids))
		for id := range ids {
			dst[id] = struct{}{}
		}
		cp.byDocument[doc] = dst
	}
	cp.order = append([]string(nil), s.order...)
	return cp
}

// findMatching intersects postings for every term; if the intersection is
// empty and there is more than one term, it falls back to the union so a
// partially matching query still returns results.
func (s *snapshot) findMatching(terms []string) map[string]struct{} {
	matching := map[string]struct{}{}
	for id := range s.words[terms[0]] {
		matching[id] = struct{}{}
	}
	for _, term := range terms[1:] {
		postings := s.words[term]
		for id := range matching {
			if _, ok := postings[id]; !ok {
				delete(matching, id)
			}
		}
	}

	if len(matching) == 0 && len(terms) > 1 {
		for _, term := range terms {
			for id := range s.words[term] {
				matching[id] = struct{}{}
			}
		}
	}
	return matching
}

func (s *snapshot) applyFilter(ids map[string]struct{}, filter Filter) map[string]struct{} {
	intersect := func(allowed map[string]struct{}) {
		for id := range ids {
			if _, ok := allowed[id]; !ok {
				delete(ids, id)
			}
		}
	}
	if filter.Category != "" {
		intersect(s.byCategory[filter.Category])
	}
	if filter.SourceType != "" {
		intersect(s.bySource[filter.SourceType])
	}
	if filter.DocumentID != "" {
		intersect(s.byDocument[filter.DocumentID])
	}
	return ids
}

// relevance scores an entry against query terms: term frequency damped by
// content length, term coverage, a flat bonus per tag hit, and a linear
// recency bonus decaying over a year. Clamped to [0, 1].
func (s *snapshot) relevance(entry *KnowledgeEntry, keywords, terms []string) float64 {
	titleLower := strings.ToLower(entry.Title)
	contentLower := strings.ToLower(entry.Content)

	var tf float64
	matched := 0
	for _, term := range terms {
		if !lo.Contains(keywords, term) {
			continue
		}
		matched++
		titleCount := strings.Count(titleLower, term)
		contentCount := strings.Count(contentLower, term)
		tf += float64(titleCount)*2.0 + float64(contentCount)
	}
	if words := len(strings.Fields(entry.Content)); words > 0 {
		tf /= math.Log(float64(words) + 1)
	}

	coverage := float64(matched) / float64(len(terms))

	var tagBonus float64
	for _, tag := range entry.Tags {
		tagWords := Tokenize(tag)
		for _, term := range terms {
			if lo.Contains(tagWords, term) {
				tagBonus += 0.1
			}
		}
	}

	var recency float64
	if !entry.UpdatedAt.IsZero() {
		days := time.Since(entry.UpdatedAt).Hours() / 24
		recency = math.Max(0, 1.0-days/365.0) * 0.1
	}

	return math.Min(1.0, tf*0.5+coverage*0.3+tagBonus+recency)
}

func tokenizeTerms(terms []string) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, term := range terms {
		for _, token := range Tokenize(term) {
			if _, ok := seen[token]; ok {
				continue
			}
			seen[token] = struct{}{}
			out = append(out, token)
		}
	}
	return out
}
