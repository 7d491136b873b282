package learning

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jcooky/go-din"
	"github.com/samber/lo"

	"github.com/saketkumarjha/caresetuAgent-3.0-sub000/config"
	"github.com/saketkumarjha/caresetuAgent-3.0-sub000/errors"
	"github.com/saketkumarjha/caresetuAgent-3.0-sub000/internal/mylog"
)

type (
	// Engine captures facts and knowledge gaps from conversations and serves
	// them back to the answer pipeline. In-memory state is authoritative;
	// a background flusher mirrors it to the store.
	Engine struct {
		mu       sync.Mutex
		learned  map[string]*LearnedInfo
		order    []string
		gaps     map[string]*KnowledgeGap
		gapOrder []string

		totalLearned int
		totalGaps    int
		applications int
		conflicts    int
		lastUpdated  time.Time

		store  Store
		logger *mylog.Logger
		config *config.LearningConfig

		dirty       chan struct{}
		flushCancel context.CancelFunc
		flushDone   chan struct{}
	}

	// LearnedInput carries everything needed to store one learned fact.
	LearnedInput struct {
		Content          string
		Type             LearningType
		Confidence       Confidence
		SessionID        string
		ConversationTurn int
		UserQuery        string
		AgentResponse    string
		Topic            string
		RelatedDocuments []string
	}
)

// NewEngine builds an engine, loads previously flushed state, and starts the
// flusher. Close stops the flusher after a final flush.
func NewEngine(ctx context.Context, conf *config.LearningConfig, logger *mylog.Logger) (*Engine, error) {
	var store Store
	if conf.SqliteEnabled {
		if conf.SqlitePath == "" {
			return nil, errors.Wrapf(errors.ErrInvalidConfig, "sqlite learning store path is not configured")
		}
		var err error
		store, err = NewSqliteStore(conf.SqlitePath)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to create sqlite learning store")
		}
	} else {
		store = NewNoopStore()
	}
	return NewEngineWithStore(ctx, conf, logger, store)
}

func NewEngineWithStore(ctx context.Context, conf *config.LearningConfig, logger *mylog.Logger, store Store) (*Engine, error) {
	e := &Engine{
		learned:     map[string]*LearnedInfo{},
		gaps:        map[string]*KnowledgeGap{},
		lastUpdated: time.Now(),
		store:       store,
		logger:      logger,
		config:      conf,
		dirty:       make(chan struct{}, 1),
		flushDone:   make(chan struct{}),
	}

	learned, gaps, err := store.Load(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load learned state")
	}
	for _, item := range learned {
		e.learned[item.ID] = item
		e.order = append(e.order, item.ID)
	}
	for _, gap := range gaps {
		e.gaps[gap.ID] = gap
		e.gapOrder = append(e.gapOrder, gap.ID)
	}

	var flushCtx context.Context
	flushCtx, e.flushCancel = context.WithCancel(context.WithoutCancel(ctx))
	go e.flushLoop(flushCtx)

	return e, nil
}

func (e *Engine) Close() error {
	e.flushCancel()
	<-e.flushDone
	return e.store.Close()
}

// StoreLearned records a fact from a conversation. Tags are derived from the
// content and topic.
func (e *Engine) StoreLearned(ctx context.Context, input LearnedInput) (*LearnedInfo, error) {
	if strings.TrimSpace(input.Content) == "" {
		return nil, errors.Wrapf(errors.ErrInvalidParams, "learned content is empty")
	}
	if input.Confidence == "" {
		input.Confidence = ConfidenceMedium
	}
	if input.Topic == "" {
		input.Topic = "general"
	}

	info := &LearnedInfo{
		ID:               uuid.NewString(),
		Content:          input.Content,
		Topic:            input.Topic,
		Type:             input.Type,
		Confidence:       input.Confidence,
		SessionID:        input.SessionID,
		ConversationTurn: input.ConversationTurn,
		UserQuery:        input.UserQuery,
		AgentResponse:    input.AgentResponse,
		Timestamp:        time.Now(),
		Tags:             extractTags(input.Content, input.Topic),
		RelatedDocuments: input.RelatedDocuments,
	}

	e.mu.Lock()
	e.learned[info.ID] = info
	e.order = append(e.order, info.ID)
	e.totalLearned++
	e.lastUpdated = time.Now()
	e.mu.Unlock()

	e.markDirty()
	e.logger.Info("stored learned information", "type", string(info.Type), "topic", info.Topic)
	return info, nil
}

// Search returns learned facts relevant to the query, best first. Facts
// below the minimum confidence or the 0.1 relevance floor are dropped.
func (e *Engine) Search(query, topic string, minConfidence Confidence) []*ScoredLearned {
	queryLower := strings.ToLower(query)
	queryWords := wordSet(queryLower)

	e.mu.Lock()
	defer e.mu.Unlock()

	var scored []*ScoredLearned
	for _, id := range e.order {
		info := e.learned[id]
		if info.Confidence.rank() < minConfidence.rank() {
			continue
		}
		if topic != "" && info.Topic != topic {
			continue
		}

		relevance := learnedRelevance(info, queryWords, queryLower)
		if relevance <= 0.1 {
			continue
		}
		cp := *info
		scored = append(scored, &ScoredLearned{LearnedInfo: &cp, Relevance: relevance})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Relevance > scored[j].Relevance
	})
	return scored
}

// MarkUsed bumps a fact's usage counter.
func (e *Engine) MarkUsed(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	info, ok := e.learned[id]
	if !ok {
		return errors.Wrapf(errors.ErrNotFound, "learned info %s", id)
	}
	info.UsageCount++
	info.LastUsed = time.Now()
	e.applications++
	e.lastUpdated = time.Now()

	e.markDirtyLocked()
	return nil
}

// FlagConflict records that a fact contradicts retrieved knowledge, so the
// pipeline stops serving it.
func (e *Engine) FlagConflict(id, details string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	info, ok := e.learned[id]
	if !ok {
		return errors.Wrapf(errors.ErrNotFound, "learned info %s", id)
	}
	info.Conflicting = true
	info.ConflictDetails = details
	e.conflicts++
	e.lastUpdated = time.Now()

	e.markDirtyLocked()
	return nil
}

// IdentifyGap records a query the knowledge base could not answer.
func (e *Engine) IdentifyGap(query string, attemptedSources []string, sessionID, topic string) *KnowledgeGap {
	if topic == "" {
		topic = "general"
	}

	gap := &KnowledgeGap{
		ID:               uuid.NewString(),
		Query:            query,
		Topic:            topic,
		SessionID:        sessionID,
		Timestamp:        time.Now(),
		AttemptedSources: attemptedSources,
		Type:             classifyGap(query),
	}

	e.mu.Lock()
	e.gaps[gap.ID] = gap
	e.gapOrder = append(e.gapOrder, gap.ID)
	e.totalGaps++
	e.lastUpdated = time.Now()
	e.mu.Unlock()

	e.markDirty()
	e.logger.Info("identified knowledge gap", "topic", gap.Topic, "gapType", string(gap.Type))
	return gap
}

// ResolveGap closes a gap, optionally recording the information the user
// provided to fill it.
func (e *Engine) ResolveGap(id, providedInfo string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	gap, ok := e.gaps[id]
	if !ok {
		return errors.Wrapf(errors.ErrNotFound, "knowledge gap %s", id)
	}
	gap.Resolved = true
	gap.ResolvedAt = time.Now()
	gap.UserProvidedInfo = providedInfo
	e.lastUpdated = time.Now()

	e.markDirtyLocked()
	return nil
}

// Gaps returns recorded gaps, open ones first when openOnly is set.
func (e *Engine) Gaps(openOnly bool) []*KnowledgeGap {
	e.mu.Lock()
	defer e.mu.Unlock()

	var gaps []*KnowledgeGap
	for _, id := range e.gapOrder {
		gap := e.gaps[id]
		if openOnly && gap.Resolved {
			continue
		}
		cp := *gap
		gaps = append(gaps, &cp)
	}
	return gaps
}

// Cleanup drops low-confidence facts older than maxAge whose usage count is
// at or below the floor. It returns the number removed.
func (e *Engine) Cleanup(maxAge time.Duration, usageFloor int) int {
	cutoff := time.Now().Add(-maxAge)

	e.mu.Lock()
	var removed int
	e.order = lo.Filter(e.order, func(id string, _ int) bool {
		info := e.learned[id]
		if info.Timestamp.Before(cutoff) && info.UsageCount <= usageFloor && info.Confidence == ConfidenceLow {
			delete(e.learned, id)
			removed++
			return false
		}
		return true
	})
	if removed > 0 {
		e.lastUpdated = time.Now()
		e.markDirtyLocked()
	}
	e.mu.Unlock()

	if removed > 0 {
		e.logger.Info("cleaned up stale learned information", "removed", removed)
	}
	return removed
}

func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()

	stats := Stats{
		TotalLearnedItems:      e.totalLearned,
		TotalKnowledgeGaps:     e.totalGaps,
		SuccessfulApplications: e.applications,
		ConflictResolutions:    e.conflicts,
		CurrentLearnedItems:    len(e.learned),
		ByConfidence:           map[Confidence]int{},
		ByType:                 map[LearningType]int{},
		LastUpdated:            e.lastUpdated,
	}
	for _, info := range e.learned {
		stats.ByConfidence[info.Confidence]++
		stats.ByType[info.Type]++
	}
	for _, gap := range e.gaps {
		if gap.Resolved {
			stats.ResolvedKnowledgeGaps++
		} else {
			stats.OpenKnowledgeGaps++
		}
	}
	return stats
}

func (e *Engine) markDirty() {
	select {
	case e.dirty <- struct{}{}:
	default:
	}
}

// markDirtyLocked is markDirty for callers already holding e.mu; the channel
// send never blocks so holding the lock is safe.
func (e *Engine) markDirtyLocked() {
	e.markDirty()
}

// flushLoop mirrors state to the store every flush interval once dirty,
// backing off exponentially on failures. The low-value cleanup sweep runs on
// the same ticker. A final flush runs on shutdown.
func (e *Engine) flushLoop(ctx context.Context) {
	defer close(e.flushDone)

	interval := e.config.FlushInterval
	backoff := interval

	timer := time.NewTimer(interval)
	defer timer.Stop()

	pending := false
	for {
		select {
		case <-ctx.Done():
			select {
			case <-e.dirty:
				pending = true
			default:
			}
			if pending {
				e.flush(context.Background())
			}
			return
		case <-e.dirty:
			pending = true
		case <-timer.C:
			if e.config.CleanupMaxAge > 0 {
				if removed := e.Cleanup(e.config.CleanupMaxAge, e.config.CleanupUsageFloor); removed > 0 {
					pending = true
				}
			}
			if pending {
				if err := e.flush(ctx); err != nil {
					e.logger.Warn("failed to flush learned state", "error", err, "retryIn", backoff*2)
					backoff *= 2
					if backoff > 10*interval {
						backoff = 10 * interval
					}
					timer.Reset(backoff)
					continue
				}
				pending = false
				backoff = interval
			}
			timer.Reset(interval)
		}
	}
}

func (e *Engine) flush(ctx context.Context) error {
	e.mu.Lock()
	learned := make([]*LearnedInfo, 0, len(e.order))
	for _, id := range e.order {
		cp := *e.learned[id]
		learned = append(learned, &cp)
	}
	gaps := make([]*KnowledgeGap, 0, len(e.gapOrder))
	for _, id := range e.gapOrder {
		if gap, ok := e.gaps[id]; ok {
			cp := *gap
			gaps = append(gaps, &cp)
		}
	}
	e.mu.Unlock()

	return e.store.Save(ctx, learned, gaps)
}

// domainTagKeywords maps tag domains to trigger words, in a fixed order so
// tagging stays deterministic.
var domainTagKeywords = []struct {
	domain   string
	keywords []string
}{
	{"healthcare", []string{"patient", "doctor", "medical", "health", "treatment", "diagnosis", "medication"}},
	{"appointment", []string{"booking", "schedule", "calendar", "time", "date", "availability"}},
	{"billing", []string{"payment", "cost", "price", "invoice", "charge", "fee", "billing"}},
	{"policy", []string{"rule", "guideline", "procedure", "regulation", "policy", "requirement"}},
	{"technical", []string{"system", "error", "bug", "issue", "problem", "solution", "fix"}},
}

var tagWordRe = regexp.MustCompile(`\b[a-zA-Z]{4,}\b`)

var tagStopWords = map[string]struct{}{
	"that": {}, "this": {}, "with": {}, "from": {}, "they": {}, "have": {},
	"been": {}, "were": {}, "will": {}, "would": {}, "could": {}, "should": {},
}

// extractTags derives tags from the topic, domain trigger words, and the
// most repeated substantial words of the content.
func extractTags(content, topic string) []string {
	var tags []string
	if topic != "" {
		tags = append(tags, topic)
	}

	contentLower := strings.ToLower(content)
	for _, domain := range domainTagKeywords {
		for _, keyword := range domain.keywords {
			if strings.Contains(contentLower, keyword) {
				tags = append(tags, domain.domain)
				break
			}
		}
	}

	freq := map[string]int{}
	for _, word := range tagWordRe.FindAllString(contentLower, -1) {
		if _, ok := tagStopWords[word]; ok {
			continue
		}
		freq[word]++
	}
	var repeated []string
	for word, count := range freq {
		if count > 1 {
			repeated = append(repeated, word)
		}
	}
	sort.Slice(repeated, func(i, j int) bool {
		if freq[repeated[i]] != freq[repeated[j]] {
			return freq[repeated[i]] > freq[repeated[j]]
		}
		return repeated[i] < repeated[j]
	})
	if len(repeated) > 3 {
		repeated = repeated[:3]
	}
	tags = append(tags, repeated...)

	return lo.Uniq(tags)
}

func classifyGap(query string) GapType {
	queryLower := strings.ToLower(query)
	for _, word := range []string{"new", "recent", "latest", "updated"} {
		if strings.Contains(queryLower, word) {
			return GapOutdatedInfo
		}
	}
	for _, word := range []string{"how", "steps", "process", "procedure"} {
		if strings.Contains(queryLower, word) {
			return GapIncompleteInfo
		}
	}
	return GapMissingInfo
}

var relevanceWordRe = regexp.MustCompile(`\b\w+\b`)

func wordSet(text string) map[string]struct{} {
	set := map[string]struct{}{}
	for _, word := range relevanceWordRe.FindAllString(text, -1) {
		set[word] = struct{}{}
	}
	return set
}

// learnedRelevance scores a fact against a query: word overlap, exact phrase
// presence, tag hits, topic hit, a confidence boost, and a usage boost.
func learnedRelevance(info *LearnedInfo, queryWords map[string]struct{}, queryLower string) float64 {
	var score float64

	contentLower := strings.ToLower(info.Content)
	contentWords := wordSet(contentLower)
	overlap := 0
	for word := range queryWords {
		if _, ok := contentWords[word]; ok {
			overlap++
		}
	}
	if overlap > 0 && len(queryWords) > 0 {
		score += float64(overlap) / float64(len(queryWords)) * 0.4
	}

	if strings.Contains(contentLower, queryLower) {
		score += 0.3
	}

	tagMatches := lo.CountBy(info.Tags, func(tag string) bool {
		return strings.Contains(queryLower, strings.ToLower(tag))
	})
	if tagMatches > 0 {
		score += minFloat(0.2, float64(tagMatches)*0.1)
	}

	if strings.Contains(queryLower, strings.ToLower(info.Topic)) {
		score += 0.1
	}

	switch info.Confidence {
	case ConfidenceHigh:
		score += 0.2
	case ConfidenceMedium:
		score += 0.1
	}

	if info.UsageCount > 0 {
		score += minFloat(0.1, float64(info.UsageCount)*0.02)
	}

	return minFloat(1.0, score)
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func init() {
	din.RegisterT(func(c *din.Container) (*Engine, error) {
		conf, err := din.GetT[*config.LearningConfig](c)
		if err != nil {
			return nil, err
		}
		logger, err := din.Get[*mylog.Logger](c, mylog.Key)
		if err != nil {
			return nil, err
		}

		e, err := NewEngine(c, conf, logger)
		if err != nil {
			return nil, err
		}
		c.RegisterOnShutdown(func(_ context.Context) {
			if err := e.Close(); err != nil {
				logger.Warn("failed to close learning engine", "error", err)
			}
		})
		return e, nil
	})
}
