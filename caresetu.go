package caresetu

import (
	"context"
	"log/slog"

	"github.com/jcooky/go-din"

	"github.com/saketkumarjha/caresetuAgent-3.0-sub000/config"
	"github.com/saketkumarjha/caresetuAgent-3.0-sub000/errors"
	"github.com/saketkumarjha/caresetuAgent-3.0-sub000/internal/mylog"
	"github.com/saketkumarjha/caresetuAgent-3.0-sub000/knowledge"
	"github.com/saketkumarjha/caresetuAgent-3.0-sub000/learning"
	"github.com/saketkumarjha/caresetuAgent-3.0-sub000/session"
	"github.com/saketkumarjha/caresetuAgent-3.0-sub000/synthesis"
)

type (
	// Agent is the retrieval-and-answering core: it searches the knowledge
	// base, tracks conversations, synthesizes answers and learns from user
	// statements. One Agent serves many sessions concurrently.
	Agent struct {
		knowledgeService knowledge.Service
		sessionService   session.Service
		learningEngine   *learning.Engine
		synthesizer      *synthesis.Synthesizer
		logger           *slog.Logger

		knowledgeConfig *config.KnowledgeConfig
		contextConfig   *config.ContextConfig
		learningConfig  *config.LearningConfig
		logConfig       *config.LogConfig
	}

	Option func(*Agent)
)

// NewAgent wires up an agent from configs and options. Services not
// injected through options are constructed with their default stores.
func NewAgent(ctx context.Context, optionFuncs ...Option) (*Agent, error) {
	a := &Agent{
		knowledgeConfig: config.NewKnowledgeConfig(),
		contextConfig:   config.NewContextConfig(),
		learningConfig:  config.NewLearningConfig(),
		logConfig:       config.NewLogConfig(),
	}
	for _, f := range optionFuncs {
		f(a)
	}

	if a.logger == nil {
		a.logger = mylog.NewLogger(a.logConfig.LogLevel, a.logConfig.LogHandler)
	}

	var err error
	if a.knowledgeService == nil {
		a.knowledgeService, err = knowledge.NewService(ctx, a.knowledgeConfig, a.logger)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to create knowledge service")
		}
	}

	if a.sessionService == nil {
		a.sessionService, err = session.NewService(ctx, a.contextConfig, a.logger)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to create session service")
		}
	}

	if a.learningEngine == nil {
		a.learningEngine, err = learning.NewEngine(ctx, a.learningConfig, a.logger)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to create learning engine")
		}
	}

	a.synthesizer, err = synthesis.NewSynthesizer()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create synthesizer")
	}

	return a, nil
}

func (a *Agent) Close() {
	if err := a.sessionService.Close(); err != nil {
		a.logger.Warn("failed to close session service", "error", err)
	}
	if err := a.learningEngine.Close(); err != nil {
		a.logger.Warn("failed to close learning engine", "error", err)
	}
	if err := a.knowledgeService.Close(); err != nil {
		a.logger.Warn("failed to close knowledge service", "error", err)
	}
}

// IndexEntries adds entries to the knowledge index.
func (a *Agent) IndexEntries(ctx context.Context, entries []*knowledge.KnowledgeEntry) error {
	return a.knowledgeService.AddEntries(ctx, entries)
}

// RebuildIndex rebuilds the index from the persisted entry set.
func (a *Agent) RebuildIndex(ctx context.Context) error {
	return a.knowledgeService.Rebuild(ctx)
}

func (a *Agent) Suggest(prefix string, max int) []string {
	return a.knowledgeService.Suggest(prefix, max)
}

func (a *Agent) RelatedTerms(term string, max int) []string {
	return a.knowledgeService.RelatedTerms(term, max)
}

func (a *Agent) IndexStats() knowledge.IndexStats {
	return a.knowledgeService.Stats()
}

func (a *Agent) LearningStats() learning.Stats {
	return a.learningEngine.Stats()
}

func (a *Agent) SessionSummary(ctx context.Context, sessionID string) session.ContextSummary {
	return a.sessionService.Summary(ctx, sessionID)
}

func (a *Agent) EndSession(ctx context.Context, sessionID string) error {
	return a.sessionService.EndSession(ctx, sessionID)
}

func (a *Agent) KnowledgeGaps(openOnly bool) []*learning.KnowledgeGap {
	return a.learningEngine.Gaps(openOnly)
}

func (a *Agent) ResolveKnowledgeGap(id, providedInfo string) error {
	return a.learningEngine.ResolveGap(id, providedInfo)
}

func (a *Agent) GetKnowledgeService() knowledge.Service {
	return a.knowledgeService
}

func (a *Agent) GetSessionService() session.Service {
	return a.sessionService
}

func (a *Agent) GetLearningEngine() *learning.Engine {
	return a.learningEngine
}

func init() {
	din.RegisterT(func(c *din.Container) (*Agent, error) {
		logger, err := din.Get[*mylog.Logger](c, mylog.Key)
		if err != nil {
			return nil, err
		}
		knowledgeConfig, err := din.GetT[*config.KnowledgeConfig](c)
		if err != nil {
			return nil, err
		}
		contextConfig, err := din.GetT[*config.ContextConfig](c)
		if err != nil {
			return nil, err
		}
		learningConfig, err := din.GetT[*config.LearningConfig](c)
		if err != nil {
			return nil, err
		}

		// Container-managed services close through their own shutdown
		// hooks, so Close is not registered again here.
		return NewAgent(
			c,
			WithLogger(logger),
			WithKnowledgeConfig(knowledgeConfig),
			WithContextConfig(contextConfig),
			WithLearningConfig(learningConfig),
			WithKnowledgeService(din.MustGetT[knowledge.Service](c)),
			WithSessionService(din.MustGetT[session.Service](c)),
			WithLearningEngine(din.MustGetT[*learning.Engine](c)),
		)
	})
}

func WithLogger(logger *slog.Logger) Option {
	return func(a *Agent) {
		a.logger = logger
	}
}

func WithLogConfig(logConfig *config.LogConfig) Option {
	return func(a *Agent) {
		a.logConfig = logConfig
	}
}

func WithKnowledgeConfig(conf *config.KnowledgeConfig) Option {
	return func(a *Agent) {
		a.knowledgeConfig = conf
	}
}

func WithContextConfig(conf *config.ContextConfig) Option {
	return func(a *Agent) {
		a.contextConfig = conf
	}
}

func WithLearningConfig(conf *config.LearningConfig) Option {
	return func(a *Agent) {
		a.learningConfig = conf
	}
}

func WithKnowledgeService(service knowledge.Service) Option {
	return func(a *Agent) {
		a.knowledgeService = service
	}
}

func WithSessionService(service session.Service) Option {
	return func(a *Agent) {
		a.sessionService = service
	}
}

func WithLearningEngine(engine *learning.Engine) Option {
	return func(a *Agent) {
		a.learningEngine = engine
	}
}
