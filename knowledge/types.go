package knowledge

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

type (
	// Category classifies what kind of document an entry was extracted from.
	Category string

	// SourceType records which corpus format an entry originated in.
	SourceType string

	// Intent is the coarse classification of what a query is trying to do.
	Intent string

	// KnowledgeEntry is one normalized, indexable unit of knowledge. Entries
	// are produced by the ingestion pipeline and are immutable once indexed;
	// re-ingesting the same source yields the same ID.
	KnowledgeEntry struct {
		ID         string     `json:"id"`
		Title      string     `json:"title"`
		Content    string     `json:"content"`
		Category   Category   `json:"category"`
		Tags       []string   `json:"tags"`
		SourceType SourceType `json:"sourceType"`
		SourceFile string     `json:"sourceFile"`

		// Section linkage for entries carved out of larger documents.
		DocumentID  string `json:"documentId,omitempty"`
		SectionID   string `json:"sectionId,omitempty"`
		SectionType string `json:"sectionType,omitempty"`

		CreatedAt time.Time `json:"createdAt"`
		UpdatedAt time.Time `json:"updatedAt"`
	}

	// SearchResult is an ephemeral, per-query scored view of an entry. It is
	// recomputed on every search and never persisted.
	SearchResult struct {
		EntryID        string             `json:"entryId"`
		Title          string             `json:"title"`
		Content        string             `json:"content"`
		RelevanceScore float64            `json:"relevanceScore"`
		Breakdown      map[string]float64 `json:"breakdown,omitempty"`
		Category       Category           `json:"category"`
		SourceType     SourceType         `json:"sourceType"`
		SourceFile     string             `json:"sourceFile"`
		DocumentID     string             `json:"documentId,omitempty"`
		Snippet        string             `json:"snippet"`
		MatchedTerms   []string           `json:"matchedTerms"`
		CreatedAt      time.Time          `json:"createdAt"`
		UpdatedAt      time.Time          `json:"updatedAt"`
	}

	// Filter restricts a search to a category, source type or document.
	// Zero values mean "no restriction".
	Filter struct {
		Category   Category
		SourceType SourceType
		DocumentID string
	}
)

const (
	CategoryFAQ       Category = "faq"
	CategoryPolicy    Category = "policy"
	CategoryProcedure Category = "procedure"
	CategoryManual    Category = "manual"
	CategoryGeneral   Category = "general"

	SourceTypePDF  SourceType = "pdf"
	SourceTypeJSON SourceType = "json"

	IntentBooking      Intent = "booking"
	IntentCancellation Intent = "cancellation"
	IntentInformation  Intent = "information"
	IntentProcedure    Intent = "procedure"
	IntentPolicy       Intent = "policy"
	IntentContact      Intent = "contact"
	IntentHours        Intent = "hours"
	IntentCost         Intent = "cost"
	IntentGeneral      Intent = "general"
)

// EntryID derives a stable entry identity from source and content, so
// re-ingesting the same source file is idempotent.
func EntryID(sourceFile, title, content string) string {
	h := sha256.New()
	h.Write([]byte(sourceFile))
	h.Write([]byte{0})
	h.Write([]byte(title))
	h.Write([]byte{0})
	h.Write([]byte(content))
	return hex.EncodeToString(h.Sum(nil))[:24]
}

func (c Category) Valid() bool {
	switch c {
	case CategoryFAQ, CategoryPolicy, CategoryProcedure, CategoryManual, CategoryGeneral:
		return true
	}
	return false
}

// Clone returns a copy of the result so context boosting never mutates the
// ranked slice handed to other sessions.
func (r *SearchResult) Clone() *SearchResult {
	cp := *r
	cp.Breakdown = make(map[string]float64, len(r.Breakdown)+1)
	for k, v := range r.Breakdown {
		cp.Breakdown[k] = v
	}
	cp.MatchedTerms = append([]string(nil), r.MatchedTerms...)
	return &cp
}
