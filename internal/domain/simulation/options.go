package simulation

import (
	"github.com/okian/seasonsim/internal/domain/alias"
	"github.com/okian/seasonsim/internal/domain/teammeta"
	"github.com/okian/seasonsim/pkg/logger"
)

// Option applies a configuration option to the Simulator.
type Option func(*Simulator)

// WithTrials sets the number of simulated seasons.
func WithTrials(n int) Option {
	return func(s *Simulator) {
		if n > 0 {
			s.trials = n
		}
	}
}

// WithSeed sets the base seed of the per-trial random streams.
func WithSeed(seed uint64) Option {
	return func(s *Simulator) { s.seed = seed }
}

// WithPlayoffSlots sets how many teams qualify per conference.
func WithPlayoffSlots(n int) Option {
	return func(s *Simulator) {
		if n > 0 {
			s.slots = n
		}
	}
}

// WithProbabilityClamp keeps home-win probabilities inside [floor, ceil].
func WithProbabilityClamp(floor, ceil float64) Option {
	return func(s *Simulator) {
		if floor > 0 && floor < ceil && ceil < 1 {
			s.floor, s.ceil = floor, ceil
		}
	}
}

// WithWorkers sets how many goroutines share the trials.
func WithWorkers(n int) Option {
	return func(s *Simulator) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithBatchSize sets how many trials a worker takes at a time.
func WithBatchSize(n int) Option {
	return func(s *Simulator) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithModelVariant labels summaries with the win model variant.
func WithModelVariant(v string) Option {
	return func(s *Simulator) { s.variant = v }
}

// WithNormalizer sets the team alias normalizer.
func WithNormalizer(n *alias.Normalizer) Option {
	return func(s *Simulator) {
		if n != nil {
			s.normalizer = n
		}
	}
}

// WithTeamMeta sets the conference and division source.
func WithTeamMeta(p *teammeta.Provider) Option {
	return func(s *Simulator) {
		if p != nil {
			s.meta = p
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Simulator) {
		if l != nil {
			s.logger = l
		}
	}
}
