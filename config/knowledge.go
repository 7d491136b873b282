package config

import (
	"github.com/jcooky/go-din"
)

type KnowledgeConfig struct {
	// SqliteEnabled controls whether the index snapshot is persisted to SQLite
	// so a restart can reload the index without re-indexing the corpus.
	// Default: true
	SqliteEnabled bool `env:"KNOWLEDGE_SQLITE_ENABLED"`

	// SqlitePath specifies the file path for the SQLite database.
	// Default: ":memory:"
	SqlitePath string `env:"KNOWLEDGE_SQLITE_PATH"`

	// MaxResults is the number of results returned to the caller per query.
	// Default: 10
	MaxResults int `env:"KNOWLEDGE_MAX_RESULTS"`

	// RetrievalFactor determines how many raw candidates to pull from the
	// index before ranking. Actual retrieval count = MaxResults x RetrievalFactor.
	// Default: 2
	RetrievalFactor int `env:"KNOWLEDGE_RETRIEVAL_FACTOR"`

	// MinUsableScore is the relevance floor under which a turn is treated as
	// a knowledge gap.
	// Default: 0.3
	MinUsableScore float64 `env:"KNOWLEDGE_MIN_USABLE_SCORE"`
}

func NewKnowledgeConfig() *KnowledgeConfig {
	return &KnowledgeConfig{
		SqliteEnabled:   true,
		SqlitePath:      ":memory:",
		MaxResults:      10,
		RetrievalFactor: 2,
		MinUsableScore:  0.3,
	}
}

func init() {
	din.RegisterT(func(c *din.Container) (*KnowledgeConfig, error) {
		conf := NewKnowledgeConfig()
		return conf, resolveConfig(conf, c.Env == din.EnvTest)
	})
}
