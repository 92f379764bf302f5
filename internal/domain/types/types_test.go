package types_test

import (
	"encoding/json"
	"testing"

	"github.com/okian/seasonsim/internal/domain/model"
	types "github.com/okian/seasonsim/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestSummaryEntries(t *testing.T) {
	Convey("Given stored summary rows", t, func() {
		rows := []model.SeasonSimSummary{
			{RunID: "r1", Season: 2024, Trials: 100, ModelVariant: "base", Team: "KC", Conference: "AFC", Division: "AFC West", AverageWins: 11.5, PlayoffOdds: 0.9},
			{RunID: "r1", Season: 2024, Trials: 100, ModelVariant: "base", Team: "LV", Conference: "AFC", Division: "AFC West", AverageWins: 6.25},
		}

		Convey("When converting them", func() {
			entries := types.SummaryEntries(rows)

			Convey("Then order and values are kept", func() {
				So(entries, ShouldHaveLength, 2)
				So(entries[0].Team, ShouldEqual, "KC")
				So(entries[0].PlayoffOdds, ShouldEqual, 0.9)
				So(entries[1].AverageWins, ShouldEqual, 6.25)
			})

			Convey("Then the JSON uses snake_case keys", func() {
				b, err := json.Marshal(entries[0])
				So(err, ShouldBeNil)
				So(string(b), ShouldContainSubstring, `"avg_wins":11.5`)
				So(string(b), ShouldContainSubstring, `"model_variant":"base"`)
			})
		})

		Convey("When converting nothing", func() {
			So(types.SummaryEntries(nil), ShouldBeEmpty)
		})
	})
}

func TestRatingEntries(t *testing.T) {
	Convey("Given a rating row with undefined rolling values", t, func() {
		rows := []model.TeamWeekRating{{
			Team: "BUF", Season: 2024, Week: 1, GameID: "2024_01_ARI_BUF",
			OffensePerPlay:        model.Some(0.25),
			DefenseAllowedPerPlay: model.Some(-0.5),
		}}

		Convey("When encoding the converted entry", func() {
			b, err := json.Marshal(types.RatingEntries(rows)[0])

			Convey("Then undefined values are null", func() {
				So(err, ShouldBeNil)
				So(string(b), ShouldContainSubstring, `"offense_per_play":0.25`)
				So(string(b), ShouldContainSubstring, `"net_rating":null`)
				So(string(b), ShouldContainSubstring, `"rolling_offense":null`)
			})
		})
	})
}
