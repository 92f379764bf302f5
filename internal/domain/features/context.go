package features

import (
	"math"
	"sort"
	"strings"

	"github.com/okian/seasonsim/internal/domain/alias"
	"github.com/okian/seasonsim/internal/domain/model"
)

// Context signal constants.
const (
	// FirstGameRestDays is assumed for a team's first game in the slate.
	FirstGameRestDays = 10.0
	earthRadiusKm     = 6371.0
)

var domeMarkers = []string{"dome", "retractable", "semi", "canopy"} //nolint:gochecknoglobals // read-only roof keywords

// IsDomeLike reports whether a roof description shields play from weather.
func IsDomeLike(roof string) bool {
	r := strings.ToLower(roof)
	for _, m := range domeMarkers {
		if strings.Contains(r, m) {
			return true
		}
	}
	return false
}

// Haversine returns the great-circle distance in kilometers.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	p1 := lat1 * math.Pi / 180
	p2 := lat2 * math.Pi / 180
	dlat := (lat2 - lat1) * math.Pi / 180
	dlon := (lon2 - lon1) * math.Pi / 180
	a := math.Sin(dlat/2)*math.Sin(dlat/2) + math.Cos(p1)*math.Cos(p2)*math.Sin(dlon/2)*math.Sin(dlon/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

type teamDate struct {
	game *model.Game
	home bool
}

// BuildContext derives per-team pregame context for every game: days of
// rest since the team's previous game, distance travelled from its home
// stadium, and whether the venue is dome-like. Unknown dates or stadiums
// leave the affected value undefined. A nil normalizer uses the built-in
// alias table.
func BuildContext(games []model.Game, stadiums []model.Stadium, n *alias.Normalizer) []model.ContextSignal {
	if n == nil {
		n = alias.MustNew()
	}
	venue := make(map[string]model.Stadium, len(stadiums))
	for _, s := range stadiums {
		s.Team = n.Normalize(s.Team)
		venue[s.Team] = s
	}

	norm := make([]model.Game, len(games))
	byTeam := map[string][]teamDate{}
	for i := range games {
		g := games[i]
		g.HomeTeam = n.Normalize(g.HomeTeam)
		g.AwayTeam = n.Normalize(g.AwayTeam)
		norm[i] = g
		byTeam[g.HomeTeam] = append(byTeam[g.HomeTeam], teamDate{game: &norm[i], home: true})
		byTeam[g.AwayTeam] = append(byTeam[g.AwayTeam], teamDate{game: &norm[i]})
	}

	out := make([]model.ContextSignal, 0, 2*len(games))
	teams := make([]string, 0, len(byTeam))
	for t := range byTeam {
		teams = append(teams, t)
	}
	sort.Strings(teams)

	for _, team := range teams {
		rows := byTeam[team]
		sort.SliceStable(rows, func(i, j int) bool { return chronological(rows[i].game, rows[j].game) })
		for k, r := range rows {
			g := r.game
			sig := model.ContextSignal{GameID: g.GameID, Team: team, IsHome: r.home}

			switch {
			case g.Gameday.IsZero():
			case k == 0:
				sig.RestDays = model.Some(FirstGameRestDays)
			case !rows[k-1].game.Gameday.IsZero():
				sig.RestDays = model.Some(math.Round(g.Gameday.Sub(rows[k-1].game.Gameday).Hours() / 24))
			}

			if r.home {
				sig.TravelKm = model.Some(0)
			} else if from, ok := venue[team]; ok {
				if to, ok := venue[g.HomeTeam]; ok {
					sig.TravelKm = model.Some(Haversine(from.Lat, from.Lon, to.Lat, to.Lon))
				}
			}

			if s, ok := venue[g.HomeTeam]; ok {
				sig.DomeLike = IsDomeLike(s.Roof)
			}
			out = append(out, sig)
		}
	}
	return out
}

func chronological(a, b *model.Game) bool {
	if a.Season != b.Season {
		return a.Season < b.Season
	}
	if a.Week != b.Week {
		return a.Week < b.Week
	}
	if !a.Gameday.Equal(b.Gameday) {
		return a.Gameday.Before(b.Gameday)
	}
	return a.GameID < b.GameID
}
