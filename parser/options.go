package parser

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type config struct {
	log    zerolog.Logger
	lim    Limits
	intern func([]byte) string
}

func newConfig(options []Option) config {
	cfg := config{
		log: log.Logger,
		lim: DefaultLimits(),
	}
	for _, o := range options {
		o(&cfg)
	}
	cfg.lim.fillDefaults()
	return cfg
}

// Option configures a parser at construction. Options are not mutable
// mid-stream.
type Option func(*config)

// WithLogger overrides the parser logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *config) {
		c.log = logger
	}
}

// WithLimits overrides the resource limits.
func WithLimits(lim Limits) Option {
	return func(c *config) {
		lim.fillDefaults()
		c.lim = lim
	}
}

// WithInterner installs a string interning hook applied to parsed atoms,
// flags and header names. The function must be pure: equal input bytes
// must yield equal strings.
func WithInterner(fn func([]byte) string) Option {
	return func(c *config) {
		c.intern = fn
	}
}
