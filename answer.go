package caresetu

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/samber/lo"
	"go.opentelemetry.io/otel/attribute"

	"github.com/saketkumarjha/caresetuAgent-3.0-sub000/errors"
	"github.com/saketkumarjha/caresetuAgent-3.0-sub000/internal/tracing"
	"github.com/saketkumarjha/caresetuAgent-3.0-sub000/knowledge"
	"github.com/saketkumarjha/caresetuAgent-3.0-sub000/learning"
	"github.com/saketkumarjha/caresetuAgent-3.0-sub000/session"
	"github.com/saketkumarjha/caresetuAgent-3.0-sub000/synthesis"
)

// AnswerResult is the per-turn output handed to the dialogue front-end.
type AnswerResult struct {
	Answer     string               `json:"answer"`
	Sources    []string             `json:"sources"`
	Confidence float64              `json:"confidence"`
	Citations  []synthesis.Citation `json:"citations"`
	Intent     knowledge.Intent     `json:"intent"`

	// DomainGap reports that no sufficiently relevant entry backed the
	// answer; Escalate tells the caller to hand off to a human.
	DomainGap bool `json:"domainGap"`
	Escalate  bool `json:"escalate"`

	ContextUsed       string        `json:"contextUsed,omitempty"`
	TotalResultsFound int           `json:"totalResultsFound"`
	ProcessingTime    time.Duration `json:"processingTime"`
}

// escalateConfidenceFloor triggers escalation when even the best answer
// scores below it.
const escalateConfidenceFloor = 0.3

// Answer runs one conversational turn: expand and classify the query,
// search and rank the corpus, boost with session context, learn from the
// user's statement, synthesize the answer, and record the turn.
func (a *Agent) Answer(ctx context.Context, sessionID, query string) (*AnswerResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.Wrapf(errors.ErrInvalidParams, "query is empty")
	}
	if sessionID == "" {
		sessionID = "default"
	}

	started := time.Now()
	ctx, span := tracing.Tracer().Start(ctx, "answer")
	defer span.End()
	span.SetAttributes(
		attribute.String("sessionId", sessionID),
		attribute.String("query", query),
	)

	// Follow-up questions carry their topic implicitly; anchor them with
	// keywords from the session before searching.
	followUp := a.sessionService.IsFollowUp(ctx, sessionID, query)
	var contextTerms []string
	if followUp {
		contextTerms = a.sessionService.ContextKeywords(ctx, sessionID)
		if len(contextTerms) > 5 {
			contextTerms = contextTerms[:5]
		}
	}

	ranked, intent, err := a.knowledgeService.SearchWithContext(ctx, query, contextTerms, knowledge.Filter{}, a.knowledgeConfig.MaxResults)
	if err != nil && !errors.Is(err, errors.ErrInvalidParams) {
		return nil, err
	}
	totalFound := len(ranked)

	boosted := a.sessionService.ApplyContextFilter(ctx, sessionID, ranked, query)
	if len(boosted) > a.knowledgeConfig.MaxResults {
		boosted = boosted[:a.knowledgeConfig.MaxResults]
	}

	confidence := calculateConfidence(boosted, query)

	// Capture anything the user just taught us, once per turn.
	learnedID := a.captureLearning(ctx, sessionID, query, intent, boosted)

	answer, citations, err := a.synthesizer.Synthesize(query, boosted, intent)
	if err != nil {
		return nil, err
	}

	// Fold in the best non-conflicting learned fact, skipping the one
	// captured from this very message.
	answer = a.augmentWithLearned(answer, query, intent, boosted, learnedID)

	gap := a.recordGapIfUnanswered(query, intent, sessionID, boosted)

	sources := lo.Uniq(lo.Map(boosted, func(r *knowledge.SearchResult, _ int) string {
		return r.SourceFile
	}))

	if err := a.sessionService.RecordTurn(ctx, sessionID, &session.Turn{
		Query:              query,
		Intent:             intent,
		Response:           answer,
		RetrievedDocuments: sources,
		Confidence:         confidence,
		Escalated:          gap,
	}); err != nil {
		a.logger.Warn("failed to record conversation turn", "sessionId", sessionID, "error", err)
	}

	summary := a.sessionService.Summary(ctx, sessionID)

	return &AnswerResult{
		Answer:            answer,
		Sources:           sources,
		Confidence:        confidence,
		Citations:         citations,
		Intent:            intent,
		DomainGap:         gap,
		Escalate:          gap || confidence < escalateConfidenceFloor,
		ContextUsed:       summary.RecentQueries,
		TotalResultsFound: totalFound,
		ProcessingTime:    time.Since(started),
	}, nil
}

// calculateConfidence bases confidence on the top score, boosted when the
// top two results agree and when the literal query appears in a top result.
func calculateConfidence(results []*knowledge.SearchResult, query string) float64 {
	if len(results) == 0 {
		return 0
	}

	confidence := results[0].RelevanceScore
	if len(results) > 1 {
		consistency := 1.0 - (results[0].RelevanceScore - results[1].RelevanceScore)
		confidence = math.Min(1.0, confidence+consistency*0.1)
	}

	queryLower := strings.ToLower(query)
	limit := len(results)
	if limit > 3 {
		limit = 3
	}
	for _, result := range results[:limit] {
		if strings.Contains(strings.ToLower(result.Content), queryLower) {
			confidence = math.Min(1.0, confidence+0.1)
			break
		}
	}
	return confidence
}

// captureLearning stores a detected teachable statement and returns the new
// record's id, or empty when the message taught nothing.
func (a *Agent) captureLearning(ctx context.Context, sessionID, query string, intent knowledge.Intent, results []*knowledge.SearchResult) string {
	learningType, content, confidence, ok := learning.DetectOpportunity(query)
	if !ok {
		return ""
	}

	relatedDocs := lo.Uniq(lo.Map(results, func(r *knowledge.SearchResult, _ int) string {
		return r.SourceFile
	}))
	turns := a.sessionService.Summary(ctx, sessionID).Turns

	info, err := a.learningEngine.StoreLearned(ctx, learning.LearnedInput{
		Content:          content,
		Type:             learningType,
		Confidence:       confidence,
		SessionID:        sessionID,
		ConversationTurn: turns + 1,
		UserQuery:        query,
		Topic:            string(intent),
		RelatedDocuments: relatedDocs,
	})
	if err != nil {
		a.logger.Warn("failed to store learned information", "error", err)
		return ""
	}

	// A correction that contradicts what the corpus says gets flagged right
	// away so it is tracked, but the user's correction itself stands.
	if retrieved := joinedContent(results); retrieved != "" {
		if conflict, details := learning.CheckConflict(info.Content, retrieved); conflict {
			if err := a.learningEngine.FlagConflict(info.ID, details); err != nil {
				a.logger.Warn("failed to flag learned conflict", "error", err)
			}
			a.logger.Info("learned information conflicts with knowledge base", "details", details)
		}
	}
	return info.ID
}

// augmentWithLearned appends the most relevant previously learned fact to
// the answer. Conflicting facts are suppressed and flagged instead.
func (a *Agent) augmentWithLearned(answer, query string, intent knowledge.Intent, results []*knowledge.SearchResult, skipID string) string {
	facts := a.learningEngine.Search(query, "", learning.ConfidenceLow)
	retrieved := joinedContent(results)

	for _, fact := range facts {
		if fact.ID == skipID || fact.Conflicting {
			continue
		}
		if conflict, details := learning.CheckConflict(fact.Content, retrieved); conflict {
			if err := a.learningEngine.FlagConflict(fact.ID, details); err != nil {
				a.logger.Warn("failed to flag learned conflict", "error", err)
			}
			continue
		}
		if strings.Contains(answer, fact.Content) {
			break
		}

		answer += "\n\nFrom previous conversations: " + fact.Content
		if err := a.learningEngine.MarkUsed(fact.ID); err != nil {
			a.logger.Warn("failed to mark learned info used", "error", err)
		}
		break
	}
	return answer
}

// recordGapIfUnanswered files a knowledge gap when nothing usable backed
// the answer.
func (a *Agent) recordGapIfUnanswered(query string, intent knowledge.Intent, sessionID string, results []*knowledge.SearchResult) bool {
	if len(results) > 0 && results[0].RelevanceScore >= a.knowledgeConfig.MinUsableScore {
		return false
	}

	attempted := lo.Uniq(lo.Map(results, func(r *knowledge.SearchResult, _ int) string {
		return r.SourceFile
	}))
	if len(attempted) == 0 {
		attempted = []string{"knowledge base"}
	}

	a.learningEngine.IdentifyGap(query, attempted, sessionID, string(intent))
	return true
}

func joinedContent(results []*knowledge.SearchResult) string {
	return strings.Join(lo.Map(results, func(r *knowledge.SearchResult, _ int) string {
		return r.Content
	}), "\n")
}
