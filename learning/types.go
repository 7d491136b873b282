package learning

import "time"

type (
	// LearningType classifies how a piece of information was learned.
	LearningType string

	// Confidence grades how much a learned fact can be trusted.
	Confidence string

	// GapType classifies why the knowledge base failed to answer.
	GapType string

	// LearnedInfo is one fact captured from a conversation.
	LearnedInfo struct {
		ID               string       `json:"id"`
		Content          string       `json:"content"`
		Topic            string       `json:"topic"`
		Type             LearningType `json:"type"`
		Confidence       Confidence   `json:"confidence"`
		SessionID        string       `json:"sessionId"`
		ConversationTurn int          `json:"conversationTurn"`
		UserQuery        string       `json:"userQuery"`
		AgentResponse    string       `json:"agentResponse"`
		Timestamp        time.Time    `json:"timestamp"`
		ValidationCount  int          `json:"validationCount"`
		UsageCount       int          `json:"usageCount"`
		LastUsed         time.Time    `json:"lastUsed,omitempty"`
		Tags             []string     `json:"tags"`
		RelatedDocuments []string     `json:"relatedDocuments"`
		Conflicting      bool         `json:"conflicting"`
		ConflictDetails  string       `json:"conflictDetails,omitempty"`
	}

	// ScoredLearned pairs a learned fact with its relevance to a query.
	ScoredLearned struct {
		*LearnedInfo
		Relevance float64 `json:"relevance"`
	}

	// KnowledgeGap records a query the knowledge base could not answer.
	KnowledgeGap struct {
		ID               string    `json:"id"`
		Query            string    `json:"query"`
		Topic            string    `json:"topic"`
		SessionID        string    `json:"sessionId"`
		Timestamp        time.Time `json:"timestamp"`
		AttemptedSources []string  `json:"attemptedSources"`
		Type             GapType   `json:"type"`
		UserProvidedInfo string    `json:"userProvidedInfo,omitempty"`
		Resolved         bool      `json:"resolved"`
		ResolvedAt       time.Time `json:"resolvedAt,omitempty"`
	}

	// Stats summarizes the learning engine's state.
	Stats struct {
		TotalLearnedItems      int                  `json:"totalLearnedItems"`
		TotalKnowledgeGaps     int                  `json:"totalKnowledgeGaps"`
		SuccessfulApplications int                  `json:"successfulApplications"`
		ConflictResolutions    int                  `json:"conflictResolutions"`
		CurrentLearnedItems    int                  `json:"currentLearnedItems"`
		OpenKnowledgeGaps      int                  `json:"openKnowledgeGaps"`
		ResolvedKnowledgeGaps  int                  `json:"resolvedKnowledgeGaps"`
		ByConfidence           map[Confidence]int   `json:"byConfidence"`
		ByType                 map[LearningType]int `json:"byType"`
		LastUpdated            time.Time            `json:"lastUpdated"`
	}
)

const (
	TypeKnowledgeGapFill   LearningType = "knowledge_gap_fill"
	TypeUserCorrection     LearningType = "user_correction"
	TypeNewInformation     LearningType = "new_information"
	TypeClarification      LearningType = "clarification"
	TypeContextEnhancement LearningType = "context_enhancement"

	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"

	GapMissingInfo    GapType = "missing_info"
	GapIncompleteInfo GapType = "incomplete_info"
	GapOutdatedInfo   GapType = "outdated_info"
)

// rank orders confidence levels for minimum-confidence filtering.
func (c Confidence) rank() int {
	switch c {
	case ConfidenceHigh:
		return 3
	case ConfidenceMedium:
		return 2
	case ConfidenceLow:
		return 1
	}
	return 0
}
