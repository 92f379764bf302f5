package app

import (
	"time"

	"github.com/okian/seasonsim/internal/adapters/repository"
	"github.com/okian/seasonsim/internal/domain/winprob"
	"github.com/okian/seasonsim/pkg/logger"
)

// Option applies a configuration option to the Pipeline.
type Option func(*Pipeline)

// WithStore persists derived tables to s. Without a store the pipeline
// only writes the summary artifact.
func WithStore(s repository.Store) Option {
	return func(p *Pipeline) {
		p.store = s
	}
}

// WithModel replaces the configured win-probability model.
func WithModel(m winprob.Model) Option {
	return func(p *Pipeline) {
		p.model = m
	}
}

// WithLogger sets a custom logger for the pipeline and its components.
func WithLogger(l logger.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithClock overrides time.Now for stage timing.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}
