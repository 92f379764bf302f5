// Package model contains domain models passed between layers.
package model

import (
	"strings"
	"time"
)

// Play types counted as scrimmage plays.
const (
	PlayTypePass = "pass"
	PlayTypeRun  = "run"
)

// PlayObservation is one play row produced by the ingestion layer.
type PlayObservation struct {
	Season      int
	Week        int
	GameID      string
	Offense     string // team in possession
	Defense     string
	PlayType    string
	RushAttempt bool
	PassAttempt bool
	Efficiency  float64 // per-play outcome quality, e.g. expected points added
}

// IsScrimmage reports whether the play is a rush or pass attempt.
func (p PlayObservation) IsScrimmage() bool {
	switch strings.ToLower(p.PlayType) {
	case PlayTypePass, PlayTypeRun:
		return true
	}
	return p.RushAttempt || p.PassAttempt
}

// GameResult holds the final score of a played game.
type GameResult struct {
	HomeScore int
	AwayScore int
}

// HomeWon reports whether the home side won.
func (r GameResult) HomeWon() bool { return r.HomeScore > r.AwayScore }

// Game is one scheduled game. HomeWinProb is filled by the win-probability
// model before simulation.
type Game struct {
	GameID      string
	Season      int
	Week        int
	HomeTeam    string
	AwayTeam    string
	Gameday     time.Time // zero when unknown
	Result      *GameResult
	HomeWinProb NullFloat
}

// TeamWeekRating is one team's efficiency and leak-free rolling rating for
// one scheduled game.
type TeamWeekRating struct {
	Team                  string
	Season                int
	Week                  int
	GameID                string
	OffensePerPlay        NullFloat
	DefenseAllowedPerPlay NullFloat
	RollingOffense        NullFloat
	RollingDefense        NullFloat
	NetRating             NullFloat
}

// ContextSignal holds per-team pregame context for one game.
type ContextSignal struct {
	GameID   string
	Team     string
	IsHome   bool
	RestDays NullFloat
	TravelKm NullFloat
	DomeLike bool
}

// Stadium is a team's home venue.
type Stadium struct {
	Team string
	Lat  float64
	Lon  float64
	Roof string
}

// BettingLine holds pregame market signals for one game.
type BettingLine struct {
	GameID        string
	ClosingSpread NullFloat
	ClosingTotal  NullFloat
}

// Feature names understood by GameFeatureVector.Feature.
const (
	FeatureNetDiff       = "net_diff"
	FeatureOffDiff       = "off_diff"
	FeatureDefDiff       = "def_diff"
	FeatureRestDiff      = "rest_diff"
	FeatureTravelDiffKm  = "travel_diff_km"
	FeatureDomeAny       = "dome_any"
	FeatureClosingSpread = "closing_spread"
	FeatureClosingTotal  = "closing_total"
)

// BaseFeatures are the rating differentials every vector carries.
var BaseFeatures = []string{FeatureNetDiff, FeatureOffDiff, FeatureDefDiff} //nolint:gochecknoglobals // read-only feature list

// ExtendedFeatures add context and market signals to BaseFeatures.
var ExtendedFeatures = []string{ //nolint:gochecknoglobals // read-only feature list
	FeatureNetDiff, FeatureOffDiff, FeatureDefDiff,
	FeatureRestDiff, FeatureTravelDiffKm, FeatureDomeAny,
	FeatureClosingSpread, FeatureClosingTotal,
}

// GameFeatureVector holds home-minus-away differentials for one game.
type GameFeatureVector struct {
	GameID        string
	Season        int
	Week          int
	HomeTeam      string
	AwayTeam      string
	NetDiff       NullFloat
	OffDiff       NullFloat
	DefDiff       NullFloat
	RestDiff      NullFloat
	TravelDiffKm  NullFloat
	DomeAny       NullFloat
	ClosingSpread NullFloat
	ClosingTotal  NullFloat
}

// Feature returns the named feature. ok is false for unknown names.
func (v GameFeatureVector) Feature(name string) (NullFloat, bool) {
	switch name {
	case FeatureNetDiff:
		return v.NetDiff, true
	case FeatureOffDiff:
		return v.OffDiff, true
	case FeatureDefDiff:
		return v.DefDiff, true
	case FeatureRestDiff:
		return v.RestDiff, true
	case FeatureTravelDiffKm:
		return v.TravelDiffKm, true
	case FeatureDomeAny:
		return v.DomeAny, true
	case FeatureClosingSpread:
		return v.ClosingSpread, true
	case FeatureClosingTotal:
		return v.ClosingTotal, true
	}
	return NullFloat{}, false
}

// TeamMeta is a team's static alignment for a season.
type TeamMeta struct {
	Team       string
	Conference string
	Division   string
}

// SeasonSimSummary is one team's aggregate over all simulated trials.
type SeasonSimSummary struct {
	RunID        string
	Season       int
	Trials       int
	ModelVariant string
	Team         string
	Conference   string
	Division     string
	AverageWins  float64
	WinStdDev    float64
	MedianWins   float64
	PlayoffOdds  float64
	DivisionOdds float64
}
