package repository_test

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/seasonsim/internal/adapters/repository"
	"github.com/okian/seasonsim/internal/domain/model"
	"github.com/okian/seasonsim/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func openStore(t *testing.T, opts ...repository.Option) *repository.SQLiteStore {
	t.Helper()
	s, err := repository.Open(context.Background(), filepath.Join(t.TempDir(), "db", "seasonsim.db"), opts...)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func summary(season, trials int, variant, team string, wins float64) model.SeasonSimSummary {
	return model.SeasonSimSummary{
		RunID: "run", Season: season, Trials: trials, ModelVariant: variant, Team: team,
		Conference: "AFC", Division: "West", AverageWins: wins, WinStdDev: 1.5, MedianWins: wins,
		PlayoffOdds: wins / 17, DivisionOdds: wins / 34,
	}
}

func TestSQLiteStoreRatings(t *testing.T) {
	ctx := context.Background()

	convey.Convey("Given a store with ratings", t, func() {
		s := openStore(t)
		rows := []model.TeamWeekRating{
			{Team: "KC", Season: 2024, Week: 2, GameID: "G2", OffensePerPlay: model.Some(0.1), RollingOffense: model.Some(0.05), NetRating: model.Some(0.2)},
			{Team: "KC", Season: 2024, Week: 1, GameID: "G1", OffensePerPlay: model.Some(0.3)},
			{Team: "KC", Season: 2023, Week: 18, GameID: "G0"},
			{Team: "DEN", Season: 2024, Week: 1, GameID: "G1"},
		}
		convey.So(s.ReplaceRatings(ctx, rows), convey.ShouldBeNil)

		convey.Convey("Then a team's rows come back in chronological order with nulls kept", func() {
			got, err := s.Ratings(ctx, "KC", 2024)
			convey.So(err, convey.ShouldBeNil)
			convey.So(len(got), convey.ShouldEqual, 2)
			convey.So(got[0].GameID, convey.ShouldEqual, "G1")
			convey.So(got[0].NetRating.Valid, convey.ShouldBeFalse)
			convey.So(got[1].NetRating, convey.ShouldResemble, model.Some(0.2))
		})

		convey.Convey("Then season zero returns every season", func() {
			got, err := s.Ratings(ctx, "KC", 0)
			convey.So(err, convey.ShouldBeNil)
			convey.So(len(got), convey.ShouldEqual, 3)
			convey.So(got[0].Season, convey.ShouldEqual, 2023)
		})

		convey.Convey("Then replacing drops previous rows", func() {
			convey.So(s.ReplaceRatings(ctx, rows[3:]), convey.ShouldBeNil)
			_, err := s.Ratings(ctx, "KC", 0)
			convey.So(errors.Is(err, repository.ErrNotFound), convey.ShouldBeTrue)
		})
	})
}

func TestSQLiteStoreFeatures(t *testing.T) {
	ctx := context.Background()

	convey.Convey("Given stored feature vectors", t, func() {
		s := openStore(t)
		in := []model.GameFeatureVector{
			{GameID: "G2", Season: 2024, Week: 2, HomeTeam: "KC", AwayTeam: "CIN", NetDiff: model.Some(0.1), DomeAny: model.Some(0)},
			{GameID: "G1", Season: 2024, Week: 1, HomeTeam: "KC", AwayTeam: "BAL"},
			{GameID: "X1", Season: 2023, Week: 1, HomeTeam: "DET", AwayTeam: "KC"},
		}
		convey.So(s.ReplaceFeatures(ctx, in), convey.ShouldBeNil)

		convey.Convey("Then a season reads back ordered by week", func() {
			got, err := s.Features(ctx, 2024)
			convey.So(err, convey.ShouldBeNil)
			convey.So(got, convey.ShouldResemble, []model.GameFeatureVector{in[1], in[0]})
		})
	})
}

func TestSQLiteStoreSummary(t *testing.T) {
	ctx := context.Background()

	convey.Convey("Given a store with a saved summary", t, func() {
		clock := time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)
		s := openStore(t, repository.WithClock(func() time.Time {
			clock = clock.Add(time.Second)
			return clock
		}))
		first := []model.SeasonSimSummary{
			summary(2024, 5000, "base", "LV", 6),
			summary(2024, 5000, "base", "KC", 12),
		}
		convey.So(s.SaveSummary(ctx, first), convey.ShouldBeNil)

		convey.Convey("Then it reads back by descending average wins", func() {
			got, err := s.Summary(ctx, 2024, "base", 5000)
			convey.So(err, convey.ShouldBeNil)
			convey.So(len(got), convey.ShouldEqual, 2)
			convey.So(got[0].Team, convey.ShouldEqual, "KC")
			convey.So(got[0], convey.ShouldResemble, first[1])
		})

		convey.Convey("Then a rerun with the same key overwrites it", func() {
			rerun := []model.SeasonSimSummary{summary(2024, 5000, "base", "KC", 11)}
			convey.So(s.SaveSummary(ctx, rerun), convey.ShouldBeNil)
			got, err := s.Summary(ctx, 2024, "base", 5000)
			convey.So(err, convey.ShouldBeNil)
			convey.So(len(got), convey.ShouldEqual, 1)
			convey.So(got[0].AverageWins, convey.ShouldEqual, 11)
		})

		convey.Convey("Then other keys are kept side by side and the latest wins by default", func() {
			convey.So(s.SaveSummary(ctx, []model.SeasonSimSummary{summary(2024, 100, "base", "KC", 10)}), convey.ShouldBeNil)
			convey.So(s.SaveSummary(ctx, []model.SeasonSimSummary{summary(2024, 100, "extended", "KC", 9)}), convey.ShouldBeNil)

			latest, err := s.Summary(ctx, 2024, "base", 0)
			convey.So(err, convey.ShouldBeNil)
			convey.So(latest[0].Trials, convey.ShouldEqual, 100)

			old, err := s.Summary(ctx, 2024, "base", 5000)
			convey.So(err, convey.ShouldBeNil)
			convey.So(len(old), convey.ShouldEqual, 2)
		})

		convey.Convey("Then unknown keys are not found", func() {
			_, err := s.Summary(ctx, 1999, "base", 0)
			convey.So(errors.Is(err, repository.ErrNotFound), convey.ShouldBeTrue)
			_, err = s.Summary(ctx, 2024, "base", 1)
			convey.So(errors.Is(err, repository.ErrNotFound), convey.ShouldBeTrue)
		})

		convey.Convey("Then rows from different runs cannot be mixed", func() {
			err := s.SaveSummary(ctx, []model.SeasonSimSummary{summary(2024, 1, "base", "KC", 1), summary(2025, 1, "base", "LV", 1)})
			convey.So(errors.Is(err, repository.ErrMixedSummary), convey.ShouldBeTrue)
		})

		convey.Convey("Then the store answers pings", func() {
			convey.So(s.Ping(ctx), convey.ShouldBeNil)
		})
	})

	convey.Convey("Given a store logging at debug level", t, func() {
		var buf bytes.Buffer
		convey.So(logger.Init(logger.WithWriter(&buf)), convey.ShouldBeNil)
		convey.So(logger.SetLevelString("debug"), convey.ShouldBeNil)
		convey.Reset(func() { _ = logger.SetLevelString("info") })
		s := openStore(t, repository.WithLogger(logger.Get()))

		convey.Convey("When a summary is saved twice under one key", func() {
			rows := []model.SeasonSimSummary{
				summary(2024, 5000, "base", "LV", 6),
				summary(2024, 5000, "base", "KC", 12),
			}
			convey.So(s.SaveSummary(ctx, rows), convey.ShouldBeNil)
			convey.So(buf.String(), convey.ShouldContainSubstring, "replaced=0")
			convey.So(s.SaveSummary(ctx, rows), convey.ShouldBeNil)

			convey.Convey("Then the rerun reports the rows it replaced", func() {
				convey.So(buf.String(), convey.ShouldContainSubstring, "replaced=2")
			})
		})
	})
}
