package config

import (
	"github.com/jcooky/go-din"
)

type ServerConfig struct {
	LogConfig

	Host string `env:"HOST"`
	Port int    `env:"PORT"`

	// TraceVerbose enables full-length span attribute logging.
	TraceVerbose bool `env:"TRACE_VERBOSE"`
}

func NewServerConfig() *ServerConfig {
	return &ServerConfig{
		LogConfig: *NewLogConfig(),
		Host:      "0.0.0.0",
		Port:      3001,
	}
}

func init() {
	din.RegisterT(func(c *din.Container) (*ServerConfig, error) {
		conf := NewServerConfig()
		return conf, resolveConfig(conf, c.Env == din.EnvTest)
	})
}
