// Package teammeta supplies each team's conference and division.
package teammeta

import (
	"context"
	"sort"

	"github.com/okian/seasonsim/internal/domain/alias"
	"github.com/okian/seasonsim/internal/domain/model"
	"github.com/okian/seasonsim/pkg/logger"
)

// Conference names of the built-in alignment.
const (
	ConferenceAFC = "AFC"
	ConferenceNFC = "NFC"
)

// Entry is one metadata row. Season zero applies to every season.
type Entry struct {
	Season int
	model.TeamMeta
}

// Provider resolves team alignment per season. Entries for a specific
// season take precedence over season-less ones.
type Provider struct {
	entries    []Entry
	bySeason   map[int]map[string]model.TeamMeta
	normalizer *alias.Normalizer
	logger     logger.Logger
}

// Option configures a Provider.
type Option func(*Provider)

// WithEntries replaces the built-in table with externally supplied rows.
// An empty slice keeps the built-in table.
func WithEntries(entries []Entry) Option {
	return func(p *Provider) {
		if len(entries) > 0 {
			p.entries = entries
		}
	}
}

// WithNormalizer sets the alias normalizer applied to every team code.
func WithNormalizer(n *alias.Normalizer) Option {
	return func(p *Provider) {
		if n != nil {
			p.normalizer = n
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(p *Provider) {
		if l != nil {
			p.logger = l
		}
	}
}

// New builds a Provider. Without WithEntries it serves the current league
// alignment.
func New(opts ...Option) *Provider {
	p := &Provider{
		normalizer: alias.MustNew(),
		logger:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	external := p.entries != nil
	if !external {
		p.entries = Builtin()
	}
	p.bySeason = map[int]map[string]model.TeamMeta{}
	for _, e := range p.entries {
		p.add(e)
	}
	p.entries = nil
	p.logger.Debug(context.Background(), "team metadata ready",
		logger.Bool("external", external),
		logger.Int("seasons", len(p.bySeason)),
	)
	return p
}

func (p *Provider) add(e Entry) {
	m := e.TeamMeta
	m.Team = p.normalizer.Normalize(m.Team)
	if p.bySeason[e.Season] == nil {
		p.bySeason[e.Season] = map[string]model.TeamMeta{}
	}
	p.bySeason[e.Season][m.Team] = m
}

// ForSeason returns the alignment for season keyed by canonical team code.
func (p *Provider) ForSeason(season int) map[string]model.TeamMeta {
	out := make(map[string]model.TeamMeta, len(p.bySeason[0])+len(p.bySeason[season]))
	for k, v := range p.bySeason[0] {
		out[k] = v
	}
	if season != 0 {
		for k, v := range p.bySeason[season] {
			out[k] = v
		}
	}
	return out
}

// Resolve normalizes teams and returns their metadata. Any team without an
// entry yields *UnknownTeamError; teams are checked in sorted order so the
// reported code is deterministic.
func (p *Provider) Resolve(season int, teams []string) (map[string]model.TeamMeta, error) {
	table := p.ForSeason(season)
	codes := make([]string, 0, len(teams))
	for _, t := range teams {
		codes = append(codes, p.normalizer.Normalize(t))
	}
	sort.Strings(codes)

	out := make(map[string]model.TeamMeta, len(codes))
	for _, code := range codes {
		m, ok := table[code]
		if !ok {
			return nil, &UnknownTeamError{Team: code, Season: season}
		}
		out[code] = m
	}
	return out, nil
}

// Builtin returns the current 32-team alignment.
func Builtin() []Entry {
	rows := []struct{ team, conf, div string }{
		{"BUF", ConferenceAFC, "East"}, {"MIA", ConferenceAFC, "East"}, {"NE", ConferenceAFC, "East"}, {"NYJ", ConferenceAFC, "East"},
		{"CIN", ConferenceAFC, "North"}, {"CLE", ConferenceAFC, "North"}, {"BAL", ConferenceAFC, "North"}, {"PIT", ConferenceAFC, "North"},
		{"HOU", ConferenceAFC, "South"}, {"IND", ConferenceAFC, "South"}, {"JAX", ConferenceAFC, "South"}, {"TEN", ConferenceAFC, "South"},
		{"KC", ConferenceAFC, "West"}, {"LAC", ConferenceAFC, "West"}, {"DEN", ConferenceAFC, "West"}, {"LV", ConferenceAFC, "West"},
		{"DAL", ConferenceNFC, "East"}, {"PHI", ConferenceNFC, "East"}, {"NYG", ConferenceNFC, "East"}, {"WAS", ConferenceNFC, "East"},
		{"DET", ConferenceNFC, "North"}, {"GB", ConferenceNFC, "North"}, {"MIN", ConferenceNFC, "North"}, {"CHI", ConferenceNFC, "North"},
		{"TB", ConferenceNFC, "South"}, {"NO", ConferenceNFC, "South"}, {"ATL", ConferenceNFC, "South"}, {"CAR", ConferenceNFC, "South"},
		{"SF", ConferenceNFC, "West"}, {"SEA", ConferenceNFC, "West"}, {"LAR", ConferenceNFC, "West"}, {"ARI", ConferenceNFC, "West"},
	}
	out := make([]Entry, len(rows))
	for i, r := range rows {
		out[i] = Entry{TeamMeta: model.TeamMeta{Team: r.team, Conference: r.conf, Division: r.div}}
	}
	return out
}
