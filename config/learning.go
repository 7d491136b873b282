package config

import (
	"time"

	"github.com/jcooky/go-din"
)

type LearningConfig struct {
	// SqliteEnabled controls background persistence of learned facts and
	// knowledge gaps.
	SqliteEnabled bool `env:"LEARNING_SQLITE_ENABLED"`

	// SqlitePath specifies the file path for the SQLite database.
	SqlitePath string `env:"LEARNING_SQLITE_PATH"`

	// FlushInterval is how often dirty learning state is written out.
	// Default: 30s
	FlushInterval time.Duration `env:"LEARNING_FLUSH_INTERVAL"`

	// CleanupMaxAge and CleanupUsageFloor bound the low-value cleanup sweep:
	// only low-confidence facts older than CleanupMaxAge with usage at or
	// below CleanupUsageFloor are removed.
	CleanupMaxAge     time.Duration `env:"LEARNING_CLEANUP_MAX_AGE"`
	CleanupUsageFloor int           `env:"LEARNING_CLEANUP_USAGE_FLOOR"`
}

func NewLearningConfig() *LearningConfig {
	return &LearningConfig{
		SqliteEnabled:     false,
		SqlitePath:        ":memory:",
		FlushInterval:     30 * time.Second,
		CleanupMaxAge:     90 * 24 * time.Hour,
		CleanupUsageFloor: 0,
	}
}

func init() {
	din.RegisterT(func(c *din.Container) (*LearningConfig, error) {
		conf := NewLearningConfig()
		return conf, resolveConfig(conf, c.Env == din.EnvTest)
	})
}
