package simulation

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/okian/seasonsim/internal/domain/model"
	"github.com/okian/seasonsim/internal/domain/teammeta"
	"github.com/okian/seasonsim/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func game(id, home, away string, p float64) model.Game {
	return model.Game{GameID: id, Season: 2024, HomeTeam: home, AwayTeam: away, HomeWinProb: model.Some(p)}
}

func fourTeams() *teammeta.Provider {
	return teammeta.New(teammeta.WithEntries([]teammeta.Entry{
		{TeamMeta: model.TeamMeta{Team: "A", Conference: "X", Division: "1"}},
		{TeamMeta: model.TeamMeta{Team: "B", Conference: "X", Division: "1"}},
		{TeamMeta: model.TeamMeta{Team: "C", Conference: "Y", Division: "2"}},
		{TeamMeta: model.TeamMeta{Team: "D", Conference: "Y", Division: "2"}},
	}))
}

func summaryOf(res *Result, team string) model.SeasonSimSummary {
	for _, s := range res.Summaries {
		if s.Team == team {
			return s
		}
	}
	return model.SeasonSimSummary{}
}

// leagueSlate has every built-in team play every other team once.
func leagueSlate() []model.Game {
	var teams []string
	for _, e := range teammeta.Builtin() {
		teams = append(teams, e.Team)
	}
	var games []model.Game
	for i := range teams {
		for j := i + 1; j < len(teams); j++ {
			p := 0.2 + 0.6*float64((i*7+j*3)%11)/10
			games = append(games, game(fmt.Sprintf("G%d_%d", i, j), teams[i], teams[j], p))
		}
	}
	return games
}

func TestSimulatorRun(t *testing.T) {
	ctx := context.Background()

	convey.Convey("Given two games with p = 0.7 and p = 0.3", t, func() {
		games := []model.Game{game("G1", "A", "B", 0.7), game("G2", "C", "D", 0.3)}
		sim := New(WithTrials(10000), WithSeed(42), WithTeamMeta(fourTeams()))

		res, err := sim.Run(ctx, 2024, games)
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("Then average wins match the probabilities", func() {
			convey.So(summaryOf(res, "A").AverageWins, convey.ShouldAlmostEqual, 0.7, 0.02)
			convey.So(summaryOf(res, "B").AverageWins, convey.ShouldAlmostEqual, 0.3, 0.02)
			convey.So(summaryOf(res, "C").AverageWins, convey.ShouldAlmostEqual, 0.3, 0.02)
			convey.So(summaryOf(res, "D").AverageWins, convey.ShouldAlmostEqual, 0.7, 0.02)
		})

		convey.Convey("Then every game has exactly one winner", func() {
			convey.So(summaryOf(res, "A").AverageWins+summaryOf(res, "B").AverageWins, convey.ShouldAlmostEqual, 1.0)
		})

		convey.Convey("Then summaries are sorted by descending average wins", func() {
			for i := 1; i < len(res.Summaries); i++ {
				convey.So(res.Summaries[i].AverageWins, convey.ShouldBeLessThanOrEqualTo, res.Summaries[i-1].AverageWins)
			}
		})

		convey.Convey("Then small conferences send every team to the playoffs", func() {
			for _, s := range res.Summaries {
				convey.So(s.PlayoffOdds, convey.ShouldEqual, 1.0)
			}
		})

		convey.Convey("Then division odds and metadata are reported", func() {
			a := summaryOf(res, "A")
			convey.So(a.DivisionOdds, convey.ShouldAlmostEqual, 0.7, 0.02)
			convey.So(a.DivisionOdds+summaryOf(res, "B").DivisionOdds, convey.ShouldAlmostEqual, 1.0)
			convey.So(a.Conference, convey.ShouldEqual, "X")
			convey.So(a.MedianWins, convey.ShouldEqual, 1)
			convey.So(a.WinStdDev, convey.ShouldAlmostEqual, 0.458, 0.01)
			convey.So(a.Trials, convey.ShouldEqual, 10000)
			convey.So(a.RunID, convey.ShouldEqual, res.RunID)
		})
	})

	convey.Convey("Given a certain home win", t, func() {
		res, err := New(WithTrials(5000), WithTeamMeta(fourTeams())).Run(ctx, 2024, []model.Game{game("G1", "A", "B", 1.0)})
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("Then the probability is clamped and home still wins almost always", func() {
			convey.So(res.Clamped, convey.ShouldEqual, 1)
			convey.So(summaryOf(res, "A").AverageWins, convey.ShouldBeGreaterThanOrEqualTo, 0.99)
			convey.So(summaryOf(res, "A").AverageWins, convey.ShouldBeLessThan, 1.0+1e-9)
		})
	})

	convey.Convey("Given a season of coin flips", t, func() {
		var games []model.Game
		teams := []string{"A", "B", "C", "D"}
		for r := 0; r < 2; r++ {
			for i := range teams {
				for j := range teams {
					if i < j {
						games = append(games, game(fmt.Sprintf("R%d_%d_%d", r, i, j), teams[i], teams[j], 0.5))
					}
				}
			}
		}
		res, err := New(WithTrials(5000), WithTeamMeta(fourTeams()), WithWorkers(4)).Run(ctx, 2024, games)
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("Then every team averages half its games", func() {
			for _, s := range res.Summaries {
				convey.So(s.AverageWins, convey.ShouldAlmostEqual, 3.0, 0.1)
			}
		})
	})

	convey.Convey("Given identical inputs", t, func() {
		games := leagueSlate()

		convey.Convey("Then two runs are bit-identical", func() {
			a, err := New(WithTrials(300)).Run(ctx, 2024, games)
			convey.So(err, convey.ShouldBeNil)
			b, err := New(WithTrials(300)).Run(ctx, 2024, games)
			convey.So(err, convey.ShouldBeNil)
			convey.So(b, convey.ShouldResemble, a)
		})

		convey.Convey("Then the worker count does not change the result", func() {
			one, err := New(WithTrials(300), WithWorkers(1)).Run(ctx, 2024, games)
			convey.So(err, convey.ShouldBeNil)
			many, err := New(WithTrials(300), WithWorkers(6), WithBatchSize(7)).Run(ctx, 2024, games)
			convey.So(err, convey.ShouldBeNil)
			convey.So(many.Summaries, convey.ShouldResemble, one.Summaries)
		})

		convey.Convey("Then a different seed gives a different run", func() {
			a, _ := New(WithTrials(300)).Run(ctx, 2024, games)
			b, _ := New(WithTrials(300), WithSeed(7)).Run(ctx, 2024, games)
			convey.So(b.RunID, convey.ShouldNotEqual, a.RunID)
		})
	})

	convey.Convey("Given invalid slates", t, func() {
		sim := New(WithTeamMeta(fourTeams()))

		convey.Convey("When no game belongs to the season", func() {
			_, err := sim.Run(ctx, 2023, []model.Game{game("G1", "A", "B", 0.5)})
			convey.So(errors.Is(err, ErrNoGames), convey.ShouldBeTrue)
			convey.So(errors.Is(err, model.ErrEmptyInput), convey.ShouldBeTrue)
		})

		convey.Convey("When a game has no probability", func() {
			g := game("G2", "C", "D", 0)
			g.HomeWinProb = model.None()
			_, err := sim.Run(ctx, 2024, []model.Game{game("G1", "A", "B", 0.5), g})
			var missing *MissingModelOutputError
			convey.So(errors.As(err, &missing), convey.ShouldBeTrue)
			convey.So(missing.GameID, convey.ShouldEqual, "G2")
		})

		convey.Convey("When a team has no metadata", func() {
			res, err := sim.Run(ctx, 2024, []model.Game{game("G1", "A", "QQQ", 0.5)})
			var unknown *teammeta.UnknownTeamError
			convey.So(errors.As(err, &unknown), convey.ShouldBeTrue)
			convey.So(unknown.Team, convey.ShouldEqual, "QQQ")
			convey.So(errors.Is(err, model.ErrConfiguration), convey.ShouldBeTrue)
			convey.So(res, convey.ShouldBeNil)
		})

		convey.Convey("When a game is listed twice", func() {
			_, err := sim.Run(ctx, 2024, []model.Game{game("G1", "A", "B", 0.5), game("G1", "A", "B", 0.5)})
			convey.So(errors.Is(err, ErrBadGame), convey.ShouldBeTrue)
		})

		convey.Convey("When a probability is out of range", func() {
			_, err := sim.Run(ctx, 2024, []model.Game{game("G1", "A", "B", 1.5)})
			convey.So(errors.Is(err, ErrBadGame), convey.ShouldBeTrue)
		})
	})

	convey.Convey("Given a canceled context", t, func() {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := New(WithTrials(5000), WithBatchSize(1)).Run(cctx, 2024, leagueSlate())
		convey.So(errors.Is(err, context.Canceled), convey.ShouldBeTrue)
	})
}

// handedOff is already canceled but never signals Done, so every batch
// reaches a worker before the cancellation is seen.
type handedOff struct{ context.Context }

func (handedOff) Done() <-chan struct{} { return nil }
func (handedOff) Err() error { return context.Canceled }

func TestPoolCancellation(t *testing.T) {
	convey.Convey("Given a context canceled after every batch was handed out", t, func() {
		sl, err := New().prepare(2024, leagueSlate())
		convey.So(err, convey.ShouldBeNil)

		tl, err := newPool(3, 10, logger.Nop()).run(handedOff{context.Background()}, sl, 100)

		convey.Convey("Then the run fails instead of returning a partial tally", func() {
			convey.So(errors.Is(err, context.Canceled), convey.ShouldBeTrue)
			convey.So(tl, convey.ShouldBeNil)
		})
	})

	convey.Convey("Given a live context", t, func() {
		sl, err := New().prepare(2024, leagueSlate())
		convey.So(err, convey.ShouldBeNil)

		tl, err := newPool(3, 10, logger.Nop()).run(context.Background(), sl, 95)

		convey.Convey("Then every trial is tallied", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(tl.trials, convey.ShouldEqual, 95)
		})
	})
}

func TestTrialQualification(t *testing.T) {
	convey.Convey("Given a full league slate", t, func() {
		sim := New()
		sl, err := sim.prepare(2024, leagueSlate())
		convey.So(err, convey.ShouldBeNil)
		convey.So(len(sl.conf), convey.ShouldEqual, 2)
		convey.So(len(sl.div), convey.ShouldEqual, 8)

		convey.Convey("Then every trial qualifies exactly seven teams per conference and one leader per division", func() {
			sc := newScratch(len(sl.teams))
			for trial := 0; trial < 500; trial++ {
				sl.trial(trial, sc)
				for _, members := range sl.conf {
					n := 0
					for _, id := range members {
						if sc.qualified[id] {
							n++
						}
					}
					convey.So(n, convey.ShouldEqual, 7)
				}
				for _, members := range sl.div {
					n := 0
					for _, id := range members {
						if sc.leader[id] {
							n++
						}
					}
					convey.So(n, convey.ShouldEqual, 1)
				}
			}
		})

		convey.Convey("Then each game produces exactly one win", func() {
			sc := newScratch(len(sl.teams))
			sl.trial(3, sc)
			total := 0
			for _, w := range sc.wins {
				total += w
			}
			convey.So(total, convey.ShouldEqual, len(sl.prob))
		})
	})

	convey.Convey("Given equal win counts", t, func() {
		wins := []int{5, 7, 5, 7, 5}
		got := rankByWins(nil, []int{0, 1, 2, 3, 4}, wins)

		convey.Convey("Then ties keep ascending team order", func() {
			convey.So(got, convey.ShouldResemble, []int{1, 3, 0, 2, 4})
		})
	})
}
