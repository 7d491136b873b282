package session

import (
	"context"
	"math"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jcooky/go-din"
	"github.com/samber/lo"

	"github.com/saketkumarjha/caresetuAgent-3.0-sub000/config"
	"github.com/saketkumarjha/caresetuAgent-3.0-sub000/errors"
	"github.com/saketkumarjha/caresetuAgent-3.0-sub000/internal/mylog"
	"github.com/saketkumarjha/caresetuAgent-3.0-sub000/knowledge"
)

type (
	// Service manages per-session conversation memory: recording turns,
	// detecting follow-up questions, and boosting search results with
	// conversational context.
	Service interface {
		RecordTurn(ctx context.Context, sessionID string, turn *Turn) error
		IsFollowUp(ctx context.Context, sessionID, query string) bool
		ApplyContextFilter(ctx context.Context, sessionID string, results []*knowledge.SearchResult, query string) []*knowledge.SearchResult
		ContextKeywords(ctx context.Context, sessionID string) []string
		Summary(ctx context.Context, sessionID string) ContextSummary
		EndSession(ctx context.Context, sessionID string) error
		Close() error
	}

	service struct {
		store  Store
		logger *mylog.Logger
		config *config.ContextConfig

		sweepCancel context.CancelFunc
		sweepDone   chan struct{}
	}
)

var _ Service = (*service)(nil)

var followUpPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(what about|how about|and|also|additionally|furthermore)\b`),
	regexp.MustCompile(`\b(can you|could you|please)\b.*\b(tell me|explain|show)\b`),
	regexp.MustCompile(`\b(more|additional|other|another)\b.*\b(information|details|options)\b`),
	regexp.MustCompile(`\b(it|that|this|they|them)\b`),
}

// topicAffinity maps the current conversation topic to the categories that
// get a boost on follow-up questions.
var topicAffinity = map[knowledge.Intent][]knowledge.Category{
	knowledge.IntentBooking:      {knowledge.CategoryProcedure, knowledge.CategoryFAQ},
	knowledge.IntentCancellation: {knowledge.CategoryPolicy, knowledge.CategoryProcedure},
	knowledge.IntentProcedure:    {knowledge.CategoryProcedure},
}

// NewService builds a session service and starts the expiry sweeper. Close
// stops the sweeper.
func NewService(ctx context.Context, conf *config.ContextConfig, logger *mylog.Logger) (Service, error) {
	var store Store
	if conf.SqliteEnabled {
		if conf.SqlitePath == "" {
			return nil, errors.Wrapf(errors.ErrInvalidConfig, "sqlite session store path is not configured")
		}
		var err error
		store, err = NewSqliteStore(conf.SqlitePath)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to create sqlite session store")
		}
	} else {
		store = NewInMemoryStore()
	}
	return NewServiceWithStore(ctx, conf, logger, store)
}

func NewServiceWithStore(ctx context.Context, conf *config.ContextConfig, logger *mylog.Logger, store Store) (Service, error) {
	s := &service{
		store:     store,
		logger:    logger,
		config:    conf,
		sweepDone: make(chan struct{}),
	}

	var sweepCtx context.Context
	sweepCtx, s.sweepCancel = context.WithCancel(context.WithoutCancel(ctx))
	go s.sweep(sweepCtx)

	return s, nil
}

func (s *service) Close() error {
	s.sweepCancel()
	<-s.sweepDone
	return s.store.Close()
}

// RecordTurn appends a completed turn to the session, updating topic
// tracking and summarizing old turns past the limit. Persistence is best
// effort; the in-memory session always reflects the turn.
func (s *service) RecordTurn(ctx context.Context, sessionID string, turn *Turn) error {
	if sessionID == "" {
		return errors.Wrapf(errors.ErrInvalidParams, "session id is required")
	}

	if turn.ID == "" {
		turn.ID = uuid.NewString()
	}
	if turn.Timestamp.IsZero() {
		turn.Timestamp = time.Now()
	}
	if turn.ContextKeywords == nil {
		turn.ContextKeywords = ExtractContextKeywords(turn.Query, turn.Intent)
	}

	memory, created := s.store.GetOrCreate(ctx, sessionID, turn.Timestamp)
	if created {
		s.logger.Debug("session created", "sessionId", sessionID)
	}

	memory.mu.Lock()
	memory.absorb(turn)
	if len(memory.Turns) > s.config.MaxTurns {
		memory.summarize(s.config.KeepRecentTurns)
	}
	memory.mu.Unlock()

	if err := s.store.Persist(ctx, memory); err != nil {
		s.logger.Warn("failed to persist session", "sessionId", sessionID, "error", err)
	}
	return nil
}

// IsFollowUp reports whether the query continues the session's previous
// exchange. Sessions without history never produce follow-ups.
func (s *service) IsFollowUp(ctx context.Context, sessionID, query string) bool {
	memory, ok := s.store.Get(ctx, sessionID)
	if !ok {
		return false
	}

	memory.mu.Lock()
	defer memory.mu.Unlock()

	if len(memory.Turns) == 0 {
		return false
	}

	queryLower := strings.ToLower(query)
	for _, pattern := range followUpPatterns {
		if pattern.MatchString(queryLower) {
			return true
		}
	}

	// Very short queries continue the topic when the previous turn cited
	// sources.
	if len(strings.Fields(query)) <= 3 {
		last := memory.Turns[len(memory.Turns)-1]
		if len(last.RetrievedDocuments) > 0 {
			return true
		}
	}
	return false
}

// ApplyContextFilter boosts result scores using session context and
// re-sorts. Follow-up questions get source, keyword and topic boosts; new
// topics only a light keyword boost. Input results are not mutated.
func (s *service) ApplyContextFilter(ctx context.Context, sessionID string, results []*knowledge.SearchResult, query string) []*knowledge.SearchResult {
	memory, ok := s.store.Get(ctx, sessionID)
	if !ok || len(results) == 0 {
		return results
	}

	memory.mu.Lock()
	if len(memory.Turns) == 0 {
		memory.mu.Unlock()
		return results
	}
	keywords := memory.contextKeywords()
	lastDocs := append([]string(nil), memory.LastAccessedDocuments...)
	topic := memory.CurrentTopic
	memory.mu.Unlock()

	followUp := s.IsFollowUp(ctx, sessionID, query)

	boosted := make([]*knowledge.SearchResult, 0, len(results))
	for _, result := range results {
		cp := result.Clone()

		var boost float64
		contentLower := strings.ToLower(cp.Content)
		matches := lo.CountBy(keywords, func(kw string) bool {
			return strings.Contains(contentLower, strings.ToLower(kw))
		})

		if followUp {
			if lo.Contains(lastDocs, cp.SourceFile) {
				boost += 0.2
			}
			if matches > 0 {
				boost += math.Min(0.3, float64(matches)*0.1)
			}
			if topic != "" && lo.Contains(topicAffinity[topic], cp.Category) {
				boost += 0.15
			}
		} else if matches > 0 {
			boost += math.Min(0.1, float64(matches)*0.05)
		}

		cp.Breakdown["context_boost"] = boost
		cp.RelevanceScore = math.Min(1.0, cp.RelevanceScore+boost)
		boosted = append(boosted, cp)
	}

	sort.SliceStable(boosted, func(i, j int) bool {
		return boosted[i].RelevanceScore > boosted[j].RelevanceScore
	})
	return boosted
}

// ContextKeywords returns keywords from the recent turns and the rolling
// topic keywords for query enrichment.
func (s *service) ContextKeywords(ctx context.Context, sessionID string) []string {
	memory, ok := s.store.Get(ctx, sessionID)
	if !ok {
		return nil
	}

	memory.mu.Lock()
	defer memory.mu.Unlock()
	return memory.contextKeywords()
}

func (s *service) Summary(ctx context.Context, sessionID string) ContextSummary {
	memory, ok := s.store.Get(ctx, sessionID)
	if !ok {
		return ContextSummary{SessionID: sessionID}
	}

	memory.mu.Lock()
	defer memory.mu.Unlock()
	return ContextSummary{
		SessionID:             sessionID,
		Turns:                 len(memory.Turns),
		CurrentTopic:          memory.CurrentTopic,
		TopicKeywords:         append([]string(nil), memory.TopicKeywords...),
		LastAccessedDocuments: append([]string(nil), memory.LastAccessedDocuments...),
		RecentQueries:         memory.recentQueries(),
		Summary:               memory.Summary,
		Duration:              memory.LastActive.Sub(memory.CreatedAt),
	}
}

func (s *service) EndSession(ctx context.Context, sessionID string) error {
	return s.store.Delete(ctx, sessionID)
}

// sweep drops sessions idle past the TTL.
func (s *service) sweep(ctx context.Context) {
	defer close(s.sweepDone)

	ticker := time.NewTicker(s.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			cutoff := now.Add(-s.config.SessionTTL)
			s.expireIdle(ctx, cutoff, s.store.ExpiredBefore(ctx, cutoff))
		}
	}
}

// expireIdle deletes candidate sessions, re-verifying each one's last
// activity under its own lock. A turn recorded after the expiry snapshot
// keeps the session alive.
func (s *service) expireIdle(ctx context.Context, cutoff time.Time, candidates []string) {
	for _, sessionID := range candidates {
		memory, ok := s.store.Get(ctx, sessionID)
		if !ok {
			continue
		}

		memory.mu.Lock()
		if !memory.LastActive.Before(cutoff) {
			memory.mu.Unlock()
			continue
		}
		err := s.store.Delete(ctx, sessionID)
		memory.mu.Unlock()

		if err != nil {
			s.logger.Warn("failed to expire session", "sessionId", sessionID, "error", err)
			continue
		}
		s.logger.Debug("session expired", "sessionId", sessionID)
	}
}

// ExtractContextKeywords pulls the topical words out of a query for context
// tracking, tagging the intent on when it is specific.
func ExtractContextKeywords(query string, intent knowledge.Intent) []string {
	keywords := knowledge.Tokenize(query)
	if intent != knowledge.IntentGeneral && intent != "" {
		keywords = append(keywords, string(intent))
	}
	if len(keywords) > maxTurnKeywords {
		keywords = keywords[:maxTurnKeywords]
	}
	return keywords
}

func init() {
	din.RegisterT(func(c *din.Container) (Service, error) {
		conf, err := din.GetT[*config.ContextConfig](c)
		if err != nil {
			return nil, err
		}
		logger, err := din.Get[*mylog.Logger](c, mylog.Key)
		if err != nil {
			return nil, err
		}

		s, err := NewService(c, conf, logger)
		if err != nil {
			return nil, err
		}
		c.RegisterOnShutdown(func(_ context.Context) {
			if err := s.Close(); err != nil {
				logger.Warn("failed to close session service", "error", err)
			}
		})
		return s, nil
	})
}
