package knowledge

import (
	"context"
	"log/slog"
	"time"

	"github.com/jcooky/go-din"

	"github.com/saketkumarjha/caresetuAgent-3.0-sub000/config"
	"github.com/saketkumarjha/caresetuAgent-3.0-sub000/errors"
	"github.com/saketkumarjha/caresetuAgent-3.0-sub000/internal/mylog"
)

type (
	// Service ties the query processor, index, ranker and store together.
	Service interface {
		AddEntries(ctx context.Context, entries []*KnowledgeEntry) error
		Rebuild(ctx context.Context) error
		Search(ctx context.Context, query string, filter Filter, maxResults int) ([]*SearchResult, Intent, error)
		SearchWithContext(ctx context.Context, query string, contextTerms []string, filter Filter, maxResults int) ([]*SearchResult, Intent, error)
		SearchTerms(ctx context.Context, terms []string, filter Filter, maxResults int) []*SearchResult
		Expand(query string) []string
		Classify(query string) Intent
		Suggest(prefix string, max int) []string
		RelatedTerms(term string, max int) []string
		Stats() IndexStats
		Close() error
	}

	service struct {
		index     *Index
		processor *QueryProcessor
		ranker    *Ranker
		store     Store
		logger    *mylog.Logger
		config    *config.KnowledgeConfig
	}
)

var _ Service = (*service)(nil)

// NewService builds a service with SQLite persistence when enabled, falling
// back to the in-memory store otherwise. Persisted entries are loaded into
// the index immediately.
func NewService(ctx context.Context, conf *config.KnowledgeConfig, logger *mylog.Logger) (Service, error) {
	var store Store
	if conf.SqliteEnabled {
		if conf.SqlitePath == "" {
			return nil, errors.Wrapf(errors.ErrInvalidConfig, "sqlite knowledge store path is not configured")
		}
		var err error
		store, err = NewSqliteStore(conf.SqlitePath)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to create sqlite knowledge store")
		}
	} else {
		store = NewInMemoryStore()
	}

	return NewServiceWithStore(ctx, conf, logger, store)
}

// NewServiceWithStore builds a service on a caller-provided store.
func NewServiceWithStore(ctx context.Context, conf *config.KnowledgeConfig, logger *mylog.Logger, store Store) (Service, error) {
	s := &service{
		index:     NewIndex(),
		processor: NewQueryProcessor(),
		ranker:    NewRanker(),
		store:     store,
		logger:    logger,
		config:    conf,
	}

	if err := s.Rebuild(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *service) Close() error {
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}

// AddEntries indexes the entries and persists them. The index update always
// wins; a persistence failure is logged and reported but leaves the index
// serving the new entries.
func (s *service) AddEntries(ctx context.Context, entries []*KnowledgeEntry) error {
	if len(entries) == 0 {
		return nil
	}

	now := time.Now()
	for _, entry := range entries {
		if entry.ID == "" {
			entry.ID = EntryID(entry.SourceFile, entry.Title, entry.Content)
		}
		if !entry.Category.Valid() {
			entry.Category = CategoryGeneral
		}
		if entry.CreatedAt.IsZero() {
			entry.CreatedAt = now
		}
		entry.UpdatedAt = now
	}

	s.index.Upsert(entries...)

	if err := s.store.SaveEntries(ctx, entries); err != nil {
		s.logger.Warn("failed to persist knowledge entries", "error", err, "count", len(entries))
		return errors.Wrapf(errors.ErrPersistenceFailure, "%v", err)
	}

	s.logger.Info("indexed knowledge entries", "count", len(entries))
	return nil
}

// Rebuild replaces the index with the persisted entries.
func (s *service) Rebuild(ctx context.Context) error {
	entries, err := s.store.LoadEntries(ctx)
	if err != nil {
		return errors.Wrapf(err, "failed to load entries for rebuild")
	}

	s.index.Build(entries)
	s.logger.Info("knowledge index rebuilt", "entries", len(entries))
	return nil
}

// Search expands and classifies the query, searches the index with the
// expanded terms, and reranks the hits against the original query text.
func (s *service) Search(ctx context.Context, query string, filter Filter, maxResults int) ([]*SearchResult, Intent, error) {
	return s.SearchWithContext(ctx, query, nil, filter, maxResults)
}

// SearchWithContext is Search with extra conversational terms appended to
// the expansion, used to anchor follow-up questions to the session topic.
func (s *service) SearchWithContext(ctx context.Context, query string, contextTerms []string, filter Filter, maxResults int) ([]*SearchResult, Intent, error) {
	intent := s.processor.Classify(query)
	terms := append(s.processor.Expand(query), contextTerms...)
	if len(terms) == 0 {
		return nil, intent, errors.Wrapf(errors.ErrInvalidParams, "query has no searchable terms")
	}

	if maxResults <= 0 {
		maxResults = s.config.MaxResults
	}
	retrieve := maxResults * s.config.RetrievalFactor
	if retrieve < maxResults {
		retrieve = maxResults
	}

	results := s.index.Search(terms, filter, retrieve)
	ranked := s.ranker.Rank(results, query, intent, time.Now())
	if len(ranked) > maxResults {
		ranked = ranked[:maxResults]
	}

	s.logger.Debug("knowledge search",
		slog.String("query", query),
		slog.String("intent", string(intent)),
		slog.Int("results", len(ranked)),
	)
	return ranked, intent, nil
}

// SearchTerms runs an index search on pre-expanded terms without reranking.
func (s *service) SearchTerms(ctx context.Context, terms []string, filter Filter, maxResults int) []*SearchResult {
	return s.index.Search(terms, filter, maxResults)
}

func (s *service) Expand(query string) []string {
	return s.processor.Expand(query)
}

func (s *service) Classify(query string) Intent {
	return s.processor.Classify(query)
}

func (s *service) Suggest(prefix string, max int) []string {
	return s.index.Suggest(prefix, max)
}

func (s *service) RelatedTerms(term string, max int) []string {
	return s.index.RelatedTerms(term, max)
}

func (s *service) Stats() IndexStats {
	return s.index.Stats()
}

func init() {
	din.RegisterT(func(c *din.Container) (Service, error) {
		conf, err := din.GetT[*config.KnowledgeConfig](c)
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
				logger.Warn("failed to close knowledge service", "error", err)
			}
		})
		return s, nil
	})
}
