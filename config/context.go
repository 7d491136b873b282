package config

import (
	"time"

	"github.com/jcooky/go-din"
)

type ContextConfig struct {
	// SessionTTL is the inactivity window after which a session's
	// conversation memory is purged by the background sweep.
	// Default: 1h
	SessionTTL time.Duration `env:"CONTEXT_SESSION_TTL"`

	// SweepInterval is how often the expiry sweep runs.
	// Default: 5m
	SweepInterval time.Duration `env:"CONTEXT_SWEEP_INTERVAL"`

	// MaxTurns is the turn count above which older turns are folded into the
	// running summary digest.
	// Default: 10
	MaxTurns int `env:"CONTEXT_MAX_TURNS"`

	// KeepRecentTurns is how many of the newest turns stay verbatim when the
	// digest fold happens.
	// Default: 3
	KeepRecentTurns int `env:"CONTEXT_KEEP_RECENT_TURNS"`

	// SqliteEnabled controls best-effort persistence of session memories.
	SqliteEnabled bool `env:"CONTEXT_SQLITE_ENABLED"`

	// SqlitePath specifies the file path for the SQLite database.
	SqlitePath string `env:"CONTEXT_SQLITE_PATH"`
}

func NewContextConfig() *ContextConfig {
	return &ContextConfig{
		SessionTTL:      time.Hour,
		SweepInterval:   5 * time.Minute,
		MaxTurns:        10,
		KeepRecentTurns: 3,
		SqliteEnabled:   false,
		SqlitePath:      ":memory:",
	}
}

func init() {
	din.RegisterT(func(c *din.Container) (*ContextConfig, error) {
		conf := NewContextConfig()
		return conf, resolveConfig(conf, c.Env == din.EnvTest)
	})
}
