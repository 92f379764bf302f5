package ingest_test

import (
	"encoding/csv"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/okian/seasonsim/internal/adapters/ingest"
	"github.com/okian/seasonsim/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestReadPlays(t *testing.T) {
	convey.Convey("Given a play-by-play export with vintage column names", t, func() {
		in := "season,week,game_id,posteam,defteam,play_type,rush_attempt,pass_attempt,epa\n" +
			"2023,1,2023_01_DET_KC,KC,DET,pass,0,1,0.45\n" +
			"2023,1,2023_01_DET_KC,DET,KC,run,1,0,NA\n" +
			"2023,1,2023_01_DET_KC,KC,DET,punt,0,0,-1.2\n"

		plays, err := ingest.ReadPlays(strings.NewReader(in))

		convey.Convey("Then rows map onto canonical fields", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(len(plays), convey.ShouldEqual, 3)
			convey.So(plays[0].Offense, convey.ShouldEqual, "KC")
			convey.So(plays[0].Defense, convey.ShouldEqual, "DET")
			convey.So(plays[0].Efficiency, convey.ShouldEqual, 0.45)
			convey.So(plays[0].PassAttempt, convey.ShouldBeTrue)
			convey.So(math.IsNaN(plays[1].Efficiency), convey.ShouldBeTrue)
			convey.So(plays[2].IsScrimmage(), convey.ShouldBeFalse)
		})
	})

	convey.Convey("Given an export without an efficiency column", t, func() {
		_, err := ingest.ReadPlays(strings.NewReader("season,week,game_id,posteam,defteam\n"))

		convey.Convey("Then it fails with a missing column error", func() {
			var missing *ingest.MissingColumnError
			convey.So(errors.As(err, &missing), convey.ShouldBeTrue)
			convey.So(missing.Column, convey.ShouldEqual, "efficiency_value")
			convey.So(errors.Is(err, model.ErrConfiguration), convey.ShouldBeTrue)
		})
	})

	convey.Convey("Given a non-numeric week", t, func() {
		_, err := ingest.ReadPlays(strings.NewReader("season,week,game_id,offense_team,defense_team,efficiency_value\n2023,one,g,KC,DET,0.1\n"))
		convey.So(errors.Is(err, ingest.ErrMalformedRow), convey.ShouldBeTrue)
	})
}

func TestReadSchedule(t *testing.T) {
	convey.Convey("Given a schedule with dates, scores and probabilities", t, func() {
		in := "game_id,season,week,gameday,home_team,away_team,home_score,away_score,home_win_prob\n" +
			"G1,2024,1,2024-09-05,KC,BAL,27,20,0.62\n" +
			"G2,2024,18,,LV,DEN,,,\n"
		games, err := ingest.ReadSchedule(strings.NewReader(in))
		convey.So(err, convey.ShouldBeNil)
		convey.So(len(games), convey.ShouldEqual, 2)

		convey.Convey("Then played games carry a result", func() {
			convey.So(games[0].Gameday, convey.ShouldEqual, time.Date(2024, 9, 5, 0, 0, 0, 0, time.UTC))
			convey.So(games[0].Result.HomeWon(), convey.ShouldBeTrue)
			convey.So(games[0].HomeWinProb, convey.ShouldResemble, model.Some(0.62))
		})

		convey.Convey("Then unplayed games leave optional fields empty", func() {
			convey.So(games[1].Result, convey.ShouldBeNil)
			convey.So(games[1].Gameday.IsZero(), convey.ShouldBeTrue)
			convey.So(games[1].HomeWinProb.Valid, convey.ShouldBeFalse)
		})
	})
}

func TestReadPredictionsAndMeta(t *testing.T) {
	convey.Convey("Given a predictions table", t, func() {
		probs, err := ingest.ReadPredictions(strings.NewReader("game_id,p_home\nG1,0.7\nG2,0.3\n"))
		convey.So(err, convey.ShouldBeNil)
		convey.So(probs, convey.ShouldResemble, map[string]float64{"G1": 0.7, "G2": 0.3})
	})

	convey.Convey("Given a predictions table without a probability column", t, func() {
		_, err := ingest.ReadPredictions(strings.NewReader("game_id,net_diff\nG1,0.1\n"))
		var missing *ingest.MissingColumnError
		convey.So(errors.As(err, &missing), convey.ShouldBeTrue)
		convey.So(missing.Column, convey.ShouldEqual, "home_win_prob")
	})

	convey.Convey("Given team metadata with short headers", t, func() {
		entries, err := ingest.ReadTeamMeta(strings.NewReader("Team,Conf,Div\nKC,afc,West\n"))
		convey.So(err, convey.ShouldBeNil)
		convey.So(entries[0].Team, convey.ShouldEqual, "KC")
		convey.So(entries[0].Conference, convey.ShouldEqual, "AFC")
		convey.So(entries[0].Season, convey.ShouldEqual, 0)
	})

	convey.Convey("Given stadiums and betting lines", t, func() {
		st, err := ingest.ReadStadiums(strings.NewReader("team,latitude,longitude,roof\nKC,39.05,-94.48,outdoors\nXX,,,dome\n"))
		convey.So(err, convey.ShouldBeNil)
		convey.So(len(st), convey.ShouldEqual, 1)
		convey.So(st[0].Lon, convey.ShouldEqual, -94.48)

		lines, err := ingest.ReadBetting(strings.NewReader("game_id,spread_line,total_line\nG1,-3.5,47\n"))
		convey.So(err, convey.ShouldBeNil)
		convey.So(lines[0].ClosingSpread, convey.ShouldResemble, model.Some(-3.5))
	})
}

func TestFilesAndArtifacts(t *testing.T) {
	convey.Convey("Given a missing input file", t, func() {
		_, err := ingest.ReadFile(filepath.Join(t.TempDir(), "pbp.csv"), ingest.ReadPlays)
		convey.So(errors.Is(err, ingest.ErrMissingTable), convey.ShouldBeTrue)
		convey.So(errors.Is(err, model.ErrConfiguration), convey.ShouldBeTrue)
	})

	convey.Convey("Given season summaries", t, func() {
		dir := filepath.Join(t.TempDir(), "artifacts")
		sums := []model.SeasonSimSummary{
			{Team: "KC", Conference: "AFC", Division: "West", AverageWins: 11.5, PlayoffOdds: 0.9, Season: 2024, Trials: 5000, ModelVariant: "base", RunID: "r"},
			{Team: "LV", Conference: "AFC", Division: "West", AverageWins: 5.25, PlayoffOdds: 0.05, Season: 2024, Trials: 5000, ModelVariant: "base", RunID: "r"},
		}

		path, err := ingest.WriteSummary(dir, 2024, sums)
		convey.So(err, convey.ShouldBeNil)
		convey.So(path, convey.ShouldEqual, filepath.Join(dir, "season_2024_sim_summary.csv"))

		convey.Convey("Then the artifact keeps the given order", func() {
			f, err := os.Open(path)
			convey.So(err, convey.ShouldBeNil)
			defer f.Close()
			recs, err := csv.NewReader(f).ReadAll()
			convey.So(err, convey.ShouldBeNil)
			convey.So(recs[0], convey.ShouldResemble, ingest.SummaryHeader)
			convey.So(recs[1][0], convey.ShouldEqual, "KC")
			convey.So(recs[1][3], convey.ShouldEqual, "11.5")
			convey.So(recs[2][0], convey.ShouldEqual, "LV")
		})

		convey.Convey("Then rewriting replaces the artifact", func() {
			_, err := ingest.WriteSummary(dir, 2024, sums[:1])
			convey.So(err, convey.ShouldBeNil)
			b, _ := os.ReadFile(path)
			convey.So(strings.Count(string(b), "\n"), convey.ShouldEqual, 2)
		})
	})
}
