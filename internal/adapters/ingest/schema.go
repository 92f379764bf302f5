package ingest

import "strings"

// Column is one canonical field and the raw header names it may appear
// under across data vintages. The canonical name is tried first.
type Column struct {
	Name     string
	Aliases  []string
	Optional bool
}

// Schema maps a raw table onto canonical columns.
type Schema struct {
	Table   string
	Columns []Column
}

// Resolve returns the position of each canonical column in header.
// Optional columns that are absent are left out of the result.
func (s Schema) Resolve(header []string) (map[string]int, error) {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := pos[key]; !dup {
			pos[key] = i
		}
	}
	out := make(map[string]int, len(s.Columns))
	for _, c := range s.Columns {
		found := false
		for _, name := range append([]string{c.Name}, c.Aliases...) {
			if i, ok := pos[name]; ok {
				out[c.Name] = i
				found = true
				break
			}
		}
		if !found && !c.Optional {
			return nil, &MissingColumnError{Table: s.Table, Column: c.Name}
		}
	}
	return out, nil
}

// Canonical schemas of the input tables.
var (
	PlaysSchema = Schema{Table: "plays", Columns: []Column{ //nolint:gochecknoglobals // read-only schema
		{Name: "season"},
		{Name: "week"},
		{Name: "game_id"},
		{Name: "offense_team", Aliases: []string{"posteam", "offense"}},
		{Name: "defense_team", Aliases: []string{"defteam", "defense"}},
		{Name: "efficiency_value", Aliases: []string{"epa", "efficiency"}},
		{Name: "play_type", Optional: true},
		{Name: "rush_attempt", Optional: true},
		{Name: "pass_attempt", Optional: true},
	}}

	ScheduleSchema = Schema{Table: "schedule", Columns: []Column{ //nolint:gochecknoglobals // read-only schema
		{Name: "game_id"},
		{Name: "season"},
		{Name: "week"},
		{Name: "home_team", Aliases: []string{"home"}},
		{Name: "away_team", Aliases: []string{"away"}},
		{Name: "gameday", Aliases: []string{"game_date", "date"}, Optional: true},
		{Name: "home_score", Optional: true},
		{Name: "away_score", Optional: true},
		{Name: "home_win_prob", Optional: true},
	}}

	PredictionsSchema = Schema{Table: "predictions", Columns: []Column{ //nolint:gochecknoglobals // read-only schema
		{Name: "game_id"},
		{Name: "home_win_prob", Aliases: []string{"p_home", "home_win_probability"}},
	}}

	TeamMetaSchema = Schema{Table: "team_meta", Columns: []Column{ //nolint:gochecknoglobals // read-only schema
		{Name: "team", Aliases: []string{"abbr", "team_abbr"}},
		{Name: "conference", Aliases: []string{"conf", "team_conf"}},
		{Name: "division", Aliases: []string{"div", "team_division"}},
		{Name: "season", Optional: true},
	}}

	StadiumsSchema = Schema{Table: "stadiums", Columns: []Column{ //nolint:gochecknoglobals // read-only schema
		{Name: "team"},
		{Name: "lat", Aliases: []string{"latitude"}},
		{Name: "lon", Aliases: []string{"longitude", "lng"}},
		{Name: "roof", Optional: true},
	}}

	BettingSchema = Schema{Table: "betting", Columns: []Column{ //nolint:gochecknoglobals // read-only schema
		{Name: "game_id"},
		{Name: "closing_spread", Aliases: []string{"spread_line", "spread"}, Optional: true},
		{Name: "closing_total", Aliases: []string{"total_line", "total"}, Optional: true},
	}}
)
