// Package winprob adapts win-probability models to the simulator.
//
// A Model maps a game's feature vector to the probability that the home
// team wins. Training and calibration happen elsewhere; this package only
// evaluates a fitted model or looks up precomputed outputs.
package winprob

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/okian/seasonsim/internal/domain/model"
)

// Model returns P(home wins) for one game.
type Model interface {
	Predict(ctx context.Context, v model.GameFeatureVector) (float64, error)
}

// FillPolicy decides what a model sees for undefined features.
type FillPolicy string

// Fill policies.
const (
	FillZero FillPolicy = "zero" // treat missing history as no edge
	FillNone FillPolicy = "none" // refuse to predict
)

// ParseFillPolicy validates s.
func ParseFillPolicy(s string) (FillPolicy, error) {
	switch p := FillPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case FillZero, FillNone:
		return p, nil
	}
	return "", fmt.Errorf("%w: %q", ErrFillPolicy, s)
}

// Model variants.
const (
	VariantBase     = "base"
	VariantExtended = "extended"
)

// FeaturesFor returns the feature names of a variant.
func FeaturesFor(variant string) ([]string, error) {
	switch strings.ToLower(strings.TrimSpace(variant)) {
	case VariantBase:
		return model.BaseFeatures, nil
	case VariantExtended:
		return model.ExtendedFeatures, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrVariant, variant)
}

// Default coefficients for an uncalibrated base model: a small home edge
// plus net rating differential in expected points per play.
const (
	DefaultIntercept   = 0.1
	DefaultNetDiffCoef = 4.0
)

// Logistic is a fitted logistic regression over a variant's features.
type Logistic struct {
	intercept float64
	names     []string
	coefs     []float64
	fill      FillPolicy
}

// LogisticOption configures a Logistic model.
type LogisticOption func(*logisticSettings)

type logisticSettings struct {
	intercept float64
	coefs     map[string]float64
	variant   string
	fill      FillPolicy
}

// WithCoefficients sets the intercept and per-feature weights. An empty
// map keeps the default weights but still applies the intercept.
func WithCoefficients(intercept float64, coefs map[string]float64) LogisticOption {
	return func(s *logisticSettings) {
		s.intercept = intercept
		if len(coefs) == 0 {
			return
		}
		s.coefs = make(map[string]float64, len(coefs))
		for k, v := range coefs {
			s.coefs[strings.ToLower(strings.TrimSpace(k))] = v
		}
	}
}

// WithVariant selects the feature set.
func WithVariant(variant string) LogisticOption {
	return func(s *logisticSettings) {
		if variant != "" {
			s.variant = variant
		}
	}
}

// WithFillPolicy sets the policy for undefined features.
func WithFillPolicy(p FillPolicy) LogisticOption {
	return func(s *logisticSettings) {
		if p != "" {
			s.fill = p
		}
	}
}

// NewLogistic builds a Logistic model. Coefficients naming a feature no
// variant knows are rejected; those outside the chosen variant are ignored.
func NewLogistic(opts ...LogisticOption) (*Logistic, error) {
	s := logisticSettings{
		intercept: DefaultIntercept,
		coefs:     map[string]float64{model.FeatureNetDiff: DefaultNetDiffCoef},
		variant:   VariantBase,
		fill:      FillZero,
	}
	for _, opt := range opts {
		opt(&s)
	}
	if _, err := ParseFillPolicy(string(s.fill)); err != nil {
		return nil, err
	}
	names, err := FeaturesFor(s.variant)
	if err != nil {
		return nil, err
	}

	known := map[string]bool{}
	for _, n := range model.ExtendedFeatures {
		known[n] = true
	}
	unknown := make([]string, 0)
	for k := range s.coefs {
		if !known[k] {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("%w: %s", ErrUnknownFeature, strings.Join(unknown, ", "))
	}

	m := &Logistic{intercept: s.intercept, fill: s.fill}
	for _, n := range names {
		m.names = append(m.names, n)
		m.coefs = append(m.coefs, s.coefs[n])
	}
	return m, nil
}

// Predict implements Model.
func (m *Logistic) Predict(_ context.Context, v model.GameFeatureVector) (float64, error) {
	z := m.intercept
	for i, name := range m.names {
		f, _ := v.Feature(name)
		if !f.Valid {
			if m.fill == FillNone && m.coefs[i] != 0 {
				return 0, fmt.Errorf("%w: %s for game %s", ErrUndefinedFeature, name, v.GameID)
			}
			continue
		}
		z += m.coefs[i] * f.Float64
	}
	return 1 / (1 + math.Exp(-z)), nil
}

// Table serves precomputed probabilities keyed by game id.
type Table struct {
	probs map[string]float64
}

// NewTable copies probs into a Table.
func NewTable(probs map[string]float64) *Table {
	t := &Table{probs: make(map[string]float64, len(probs))}
	for k, v := range probs {
		t.probs[k] = v
	}
	return t
}

// Predict implements Model.
func (t *Table) Predict(_ context.Context, v model.GameFeatureVector) (float64, error) {
	p, ok := t.probs[v.GameID]
	if !ok || math.IsNaN(p) {
		return 0, &MissingModelOutputError{GameID: v.GameID}
	}
	return p, nil
}

// Annotate sets HomeWinProb on every game from m. Games without a feature
// vector are scored on an empty vector carrying only their identity, so a
// Table still finds them and a Logistic model sees undefined features.
func Annotate(ctx context.Context, m Model, games []model.Game, vectors []model.GameFeatureVector) ([]model.Game, error) {
	byID := make(map[string]model.GameFeatureVector, len(vectors))
	for _, v := range vectors {
		byID[v.GameID] = v
	}
	out := make([]model.Game, len(games))
	for i, g := range games {
		v, ok := byID[g.GameID]
		if !ok {
			v = model.GameFeatureVector{GameID: g.GameID, Season: g.Season, Week: g.Week, HomeTeam: g.HomeTeam, AwayTeam: g.AwayTeam}
		}
		p, err := m.Predict(ctx, v)
		if err != nil {
			return nil, err
		}
		g.HomeWinProb = model.Some(p)
		out[i] = g
	}
	return out, nil
}
