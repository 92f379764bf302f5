// Package types contains the read shapes returned by the results API.
package types

import "github.com/okian/seasonsim/internal/domain/model"

// SummaryEntry is one team's row of a stored season simulation summary.
type SummaryEntry struct {
	RunID        string  `json:"run_id"`
	Season       int     `json:"season"`
	Trials       int     `json:"trials"`
	ModelVariant string  `json:"model_variant"`
	Team         string  `json:"team"`
	Conference   string  `json:"conference"`
	Division     string  `json:"division"`
	AverageWins  float64 `json:"avg_wins"`
	WinStdDev    float64 `json:"win_stddev"`
	MedianWins   float64 `json:"median_wins"`
	PlayoffOdds  float64 `json:"playoff_odds"`
	DivisionOdds float64 `json:"division_odds"`
}

// RatingEntry is one team-week rating. Undefined values encode as null.
type RatingEntry struct {
	Team                  string          `json:"team"`
	Season                int             `json:"season"`
	Week                  int             `json:"week"`
	GameID                string          `json:"game_id"`
	OffensePerPlay        model.NullFloat `json:"offense_per_play"`
	DefenseAllowedPerPlay model.NullFloat `json:"defense_allowed_per_play"`
	RollingOffense        model.NullFloat `json:"rolling_offense"`
	RollingDefense        model.NullFloat `json:"rolling_defense"`
	NetRating             model.NullFloat `json:"net_rating"`
}

// SummaryEntries converts stored summary rows, keeping their order.
func SummaryEntries(rows []model.SeasonSimSummary) []SummaryEntry {
	out := make([]SummaryEntry, len(rows))
	for i, r := range rows {
		out[i] = SummaryEntry{
			RunID:        r.RunID,
			Season:       r.Season,
			Trials:       r.Trials,
			ModelVariant: r.ModelVariant,
			Team:         r.Team,
			Conference:   r.Conference,
			Division:     r.Division,
			AverageWins:  r.AverageWins,
			WinStdDev:    r.WinStdDev,
			MedianWins:   r.MedianWins,
			PlayoffOdds:  r.PlayoffOdds,
			DivisionOdds: r.DivisionOdds,
		}
	}
	return out
}

// RatingEntries converts stored rating rows, keeping their order.
func RatingEntries(rows []model.TeamWeekRating) []RatingEntry {
	out := make([]RatingEntry, len(rows))
	for i, r := range rows {
		out[i] = RatingEntry{
			Team:                  r.Team,
			Season:                r.Season,
			Week:                  r.Week,
			GameID:                r.GameID,
			OffensePerPlay:        r.OffensePerPlay,
			DefenseAllowedPerPlay: r.DefenseAllowedPerPlay,
			RollingOffense:        r.RollingOffense,
			RollingDefense:        r.RollingDefense,
			NetRating:             r.NetRating,
		}
	}
	return out
}
