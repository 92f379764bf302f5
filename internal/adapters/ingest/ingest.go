// Package ingest reads the CSV input tables at the edge of the pipeline
// and writes the season summary artifact.
//
// Raw headers differ between data vintages; each reader resolves them once
// through a Schema so the domain packages only see canonical structs.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/okian/seasonsim/internal/domain/model"
	"github.com/okian/seasonsim/internal/domain/teammeta"
)

// Date layouts accepted for game days.
var dateLayouts = []string{"2006-01-02", time.RFC3339, "01/02/2006", "20060102"} //nolint:gochecknoglobals // read-only layouts

// rows streams a CSV table through a resolved schema.
type rows struct {
	schema Schema
	r      *csv.Reader
	col    map[string]int
	rec    []string
	line   int
}

func openTable(r io.Reader, s Schema) (*rows, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %s is empty", ErrMissingTable, s.Table)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s header: %w", s.Table, err)
	}
	col, err := s.Resolve(header)
	if err != nil {
		return nil, err
	}
	return &rows{schema: s, r: cr, col: col, line: 1}, nil
}

func (t *rows) next() (bool, error) {
	rec, err := t.r.Read()
	if errors.Is(err, io.EOF) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %s: %w", t.schema.Table, err)
	}
	t.rec = rec
	t.line++
	return true, nil
}

func (t *rows) has(name string) bool {
	_, ok := t.col[name]
	return ok
}

func (t *rows) str(name string) string {
	i, ok := t.col[name]
	if !ok || i >= len(t.rec) {
		return ""
	}
	return strings.TrimSpace(t.rec[i])
}

func (t *rows) fail(name string, err error) error {
	return fmt.Errorf("%w: %s line %d column %s: %w", ErrMalformedRow, t.schema.Table, t.line, name, err)
}

func (t *rows) integer(name string) (int, error) {
	s := t.str(name)
	if s == "" {
		return 0, t.fail(name, errors.New("empty"))
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		// some exports write integers as floats
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || f != math.Trunc(f) {
			return 0, t.fail(name, err)
		}
		n = int(f)
	}
	return n, nil
}

// float parses an optional number; empty and NA are undefined.
func (t *rows) float(name string) (model.NullFloat, error) {
	s := t.str(name)
	switch strings.ToLower(s) {
	case "", "na", "nan", "null":
		return model.None(), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return model.None(), t.fail(name, err)
	}
	return model.Some(f), nil
}

func (t *rows) flag(name string) bool {
	switch strings.ToLower(t.str(name)) {
	case "1", "1.0", "true", "t", "yes":
		return true
	}
	return false
}

func (t *rows) date(name string) (time.Time, error) {
	s := t.str(name)
	if s == "" || strings.EqualFold(s, "na") {
		return time.Time{}, nil
	}
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, s); err == nil {
			return d, nil
		}
	}
	return time.Time{}, t.fail(name, fmt.Errorf("unrecognized date %q", s))
}

// ReadPlays reads play-level observations.
func ReadPlays(r io.Reader) ([]model.PlayObservation, error) {
	t, err := openTable(r, PlaysSchema)
	if err != nil {
		return nil, err
	}
	var out []model.PlayObservation
	for {
		ok, err := t.next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		p := model.PlayObservation{
			GameID:      t.str("game_id"),
			Offense:     t.str("offense_team"),
			Defense:     t.str("defense_team"),
			PlayType:    t.str("play_type"),
			RushAttempt: t.flag("rush_attempt"),
			PassAttempt: t.flag("pass_attempt"),
		}
		if p.Season, err = t.integer("season"); err != nil {
			return nil, err
		}
		if p.Week, err = t.integer("week"); err != nil {
			return nil, err
		}
		eff, err := t.float("efficiency_value")
		if err != nil {
			return nil, err
		}
		p.Efficiency = math.NaN()
		if eff.Valid {
			p.Efficiency = eff.Float64
		}
		out = append(out, p)
	}
}

// ReadSchedule reads the game slate. A home_win_prob column, when present,
// is carried on each game.
func ReadSchedule(r io.Reader) ([]model.Game, error) {
	t, err := openTable(r, ScheduleSchema)
	if err != nil {
		return nil, err
	}
	var out []model.Game
	for {
		ok, err := t.next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		g := model.Game{
			GameID:   t.str("game_id"),
			HomeTeam: t.str("home_team"),
			AwayTeam: t.str("away_team"),
		}
		if g.Season, err = t.integer("season"); err != nil {
			return nil, err
		}
		if g.Week, err = t.integer("week"); err != nil {
			return nil, err
		}
		if g.Gameday, err = t.date("gameday"); err != nil {
			return nil, err
		}
		if g.HomeWinProb, err = t.float("home_win_prob"); err != nil {
			return nil, err
		}
		if t.has("home_score") && t.has("away_score") {
			hs, err := t.float("home_score")
			if err != nil {
				return nil, err
			}
			as, err := t.float("away_score")
			if err != nil {
				return nil, err
			}
			if hs.Valid && as.Valid {
				g.Result = &model.GameResult{HomeScore: int(hs.Float64), AwayScore: int(as.Float64)}
			}
		}
		out = append(out, g)
	}
}

// ReadPredictions reads per-game home-win probabilities. The probability
// column is required: without it there is nothing to simulate.
func ReadPredictions(r io.Reader) (map[string]float64, error) {
	t, err := openTable(r, PredictionsSchema)
	if err != nil {
		return nil, err
	}
	out := map[string]float64{}
	for {
		ok, err := t.next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		p, err := t.float("home_win_prob")
		if err != nil {
			return nil, err
		}
		if p.Valid {
			out[t.str("game_id")] = p.Float64
		}
	}
}

// ReadTeamMeta reads conference and division rows.
func ReadTeamMeta(r io.Reader) ([]teammeta.Entry, error) {
	t, err := openTable(r, TeamMetaSchema)
	if err != nil {
		return nil, err
	}
	var out []teammeta.Entry
	for {
		ok, err := t.next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		e := teammeta.Entry{TeamMeta: model.TeamMeta{
			Team:       t.str("team"),
			Conference: strings.ToUpper(t.str("conference")),
			Division:   t.str("division"),
		}}
		if t.has("season") && t.str("season") != "" {
			if e.Season, err = t.integer("season"); err != nil {
				return nil, err
			}
		}
		out = append(out, e)
	}
}

// ReadStadiums reads home venue coordinates and roof types.
func ReadStadiums(r io.Reader) ([]model.Stadium, error) {
	t, err := openTable(r, StadiumsSchema)
	if err != nil {
		return nil, err
	}
	var out []model.Stadium
	for {
		ok, err := t.next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		lat, err := t.float("lat")
		if err != nil {
			return nil, err
		}
		lon, err := t.float("lon")
		if err != nil {
			return nil, err
		}
		if !lat.Valid || !lon.Valid {
			continue
		}
		out = append(out, model.Stadium{Team: t.str("team"), Lat: lat.Float64, Lon: lon.Float64, Roof: t.str("roof")})
	}
}

// ReadBetting reads closing lines per game.
func ReadBetting(r io.Reader) ([]model.BettingLine, error) {
	t, err := openTable(r, BettingSchema)
	if err != nil {
		return nil, err
	}
	var out []model.BettingLine
	for {
		ok, err := t.next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		l := model.BettingLine{GameID: t.str("game_id")}
		if l.ClosingSpread, err = t.float("closing_spread"); err != nil {
			return nil, err
		}
		if l.ClosingTotal, err = t.float("closing_total"); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
}

// ReadFile opens path and hands it to read. A missing file is reported as
// ErrMissingTable.
func ReadFile[T any](path string, read func(io.Reader) (T, error)) (T, error) {
	var zero T
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return zero, fmt.Errorf("%w: %s", ErrMissingTable, path)
	}
	if err != nil {
		return zero, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck // read-only file
	v, err := read(f)
	if err != nil {
		return zero, fmt.Errorf("%s: %w", path, err)
	}
	return v, nil
}
