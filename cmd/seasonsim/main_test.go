package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/okian/seasonsim/internal/adapters/repository"
	"github.com/okian/seasonsim/internal/domain/alias"
	"github.com/okian/seasonsim/internal/domain/types"
	"github.com/okian/seasonsim/pkg/logger"
	"github.com/okian/seasonsim/pkg/metrics"
	"github.com/smartystreets/goconvey/convey"
)

// writeData writes two seasons of a four-team round robin.
func writeData(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	teams := []string{"KC", "LV", "BUF", "MIA"}
	power := map[string]float64{"KC": 0.3, "LV": -0.2, "BUF": 0.2, "MIA": -0.1}
	rounds := [3][2][2]int{{{0, 1}, {2, 3}}, {{0, 2}, {1, 3}}, {{0, 3}, {1, 2}}}

	var plays, sched strings.Builder
	plays.WriteString("season,week,game_id,offense_team,defense_team,efficiency_value,play_type\n")
	sched.WriteString("game_id,season,week,home_team,away_team\n")
	for _, season := range []int{2023, 2024} {
		for week := 1; week <= 6; week++ {
			for _, pair := range rounds[(week-1)%3] {
				home, away := teams[pair[0]], teams[pair[1]]
				id := fmt.Sprintf("%d_%02d_%s_%s", season, week, away, home)
				fmt.Fprintf(&sched, "%s,%d,%d,%s,%s\n", id, season, week, home, away)
				for _, side := range [][2]string{{home, away}, {away, home}} {
					for k := 0; k < 2; k++ {
						epa := power[side[0]] - 0.5*power[side[1]] + 0.02*float64(k)
						fmt.Fprintf(&plays, "%d,%d,%s,%s,%s,%g,run\n", season, week, id, side[0], side[1], epa)
					}
				}
			}
		}
	}
	for name, body := range map[string]string{"plays.csv": plays.String(), "schedule.csv": sched.String()} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func baseArgs(dir string) []string {
	return []string{
		"--data-dir", dir,
		"--plays", "plays.csv",
		"--schedule", "schedule.csv",
		"--db", filepath.Join(dir, "seasonsim.db"),
		"--artifacts-dir", filepath.Join(dir, "artifacts"),
		"--trials", "200",
		"--workers", "2",
	}
}

func runCLI(args ...string) (int, string, string) {
	var out, errOut bytes.Buffer
	code := execute(context.Background(), args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestExecute(t *testing.T) {
	convey.Convey("Given a data directory", t, func() {
		dir := writeData(t)

		convey.Convey("When running the whole pipeline without a store", func() {
			code, out, _ := runCLI(append([]string{"run", "--no-store"}, baseArgs(dir)...)...)

			convey.Convey("Then it prints the season table", func() {
				convey.So(code, convey.ShouldEqual, exitOK)
				convey.So(out, convey.ShouldContainSubstring, "team-week ratings: 48 (12 without enough history)")
				convey.So(out, convey.ShouldContainSubstring, "season 2024: 12 games, 200 trials")
				convey.So(out, convey.ShouldContainSubstring, "KC")
				convey.So(out, convey.ShouldContainSubstring, "summary written to")
				_, err := os.Stat(filepath.Join(dir, "artifacts", "season_2024_sim_summary.csv"))
				convey.So(err, convey.ShouldBeNil)
				_, err = os.Stat(filepath.Join(dir, "seasonsim.db"))
				convey.So(os.IsNotExist(err), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When building features and then simulating from the store", func() {
			code, out, _ := runCLI(append([]string{"features"}, baseArgs(dir)...)...)
			convey.So(code, convey.ShouldEqual, exitOK)
			convey.So(out, convey.ShouldContainSubstring, "feature vectors: 24")

			code, out, _ = runCLI(append([]string{"simulate", "--season", "2024", "--json"}, baseArgs(dir)...)...)

			convey.Convey("Then the JSON summary covers every team", func() {
				convey.So(code, convey.ShouldEqual, exitOK)
				var entries []types.SummaryEntry
				convey.So(json.Unmarshal([]byte(out), &entries), convey.ShouldBeNil)
				convey.So(entries, convey.ShouldHaveLength, 4)
				convey.So(entries[0].Team, convey.ShouldEqual, "KC")
				convey.So(entries[0].Trials, convey.ShouldEqual, 200)
			})
		})

		convey.Convey("When only ratings are built", func() {
			code, out, _ := runCLI(append([]string{"ratings"}, baseArgs(dir)...)...)
			convey.So(code, convey.ShouldEqual, exitOK)
			convey.So(out, convey.ShouldContainSubstring, "team-week ratings: 48")
		})

		convey.Convey("When metrics are switched off in the environment", func() {
			t.Setenv("SEASONSIM_METRICS_ENABLED", "false")
			convey.Reset(func() { metrics.SetEnabled(true) })

			code, _, _ := runCLI(append([]string{"ratings", "--no-store"}, baseArgs(dir)...)...)

			convey.Convey("Then recording is disabled for the process", func() {
				convey.So(code, convey.ShouldEqual, exitOK)
				convey.So(metrics.Enabled(), convey.ShouldBeFalse)
			})
		})

		convey.Convey("When simulating with nothing to score", func() {
			code, _, errOut := runCLI(append([]string{"simulate", "--no-store"}, baseArgs(dir)...)...)
			convey.So(code, convey.ShouldEqual, exitUsage)
			convey.So(errOut, convey.ShouldContainSubstring, "result store")
		})

		convey.Convey("When a flag is malformed", func() {
			code, _, _ := runCLI("run", "--trials", "many")
			convey.So(code, convey.ShouldEqual, exitUsage)
		})

		convey.Convey("When a setting is out of range", func() {
			code, _, errOut := runCLI(append([]string{"run", "--no-store", "--trials", "0"}, baseArgs(dir)[:4]...)...)
			convey.So(code, convey.ShouldEqual, exitUsage)
			convey.So(errOut, convey.ShouldContainSubstring, "trials")
		})

		convey.Convey("When the plays table is missing", func() {
			args := append([]string{"run", "--no-store"}, baseArgs(dir)...)
			args = append(args, "--plays", "nope.csv")
			code, _, errOut := runCLI(args...)
			convey.So(code, convey.ShouldEqual, exitUsage)
			convey.So(errOut, convey.ShouldContainSubstring, "nope.csv")
		})
	})
}

func TestServe(t *testing.T) {
	convey.Convey("Given a store filled by a run", t, func() {
		dir := writeData(t)
		code, _, _ := runCLI(append([]string{"run"}, baseArgs(dir)...)...)
		convey.So(code, convey.ShouldEqual, exitOK)

		ctx := context.Background()
		store, err := repository.Open(ctx, filepath.Join(dir, "seasonsim.db"))
		convey.So(err, convey.ShouldBeNil)
		defer store.Close() //nolint:errcheck // test cleanup

		h := newHandler(ctx, store, alias.MustNew(), logger.Nop())

		convey.Convey("Then the summary, ratings and docs routes answer", func() {
			for target, want := range map[string]int{
				"/summary?season=2024": http.StatusOK,
				"/ratings/oak":         http.StatusOK,
				"/healthz":             http.StatusOK,
				"/openapi.yaml":        http.StatusOK,
				"/summary?season=2030": http.StatusNotFound,
			} {
				w := httptest.NewRecorder()
				h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, http.NoBody))
				convey.So(w.Code, convey.ShouldEqual, want)
			}
		})

		convey.Convey("When the server context is canceled", func() {
			ln, err := net.Listen("tcp", "127.0.0.1:0")
			convey.So(err, convey.ShouldBeNil)
			sctx, cancel := context.WithCancel(ctx)
			done := make(chan error, 1)
			go func() { done <- serve(sctx, ln, h, logger.Nop()) }()

			var resp *http.Response
			for i := 0; i < 50; i++ {
				if resp, err = http.Get("http://" + ln.Addr().String() + "/healthz"); err == nil {
					break
				}
				time.Sleep(20 * time.Millisecond)
			}
			convey.So(err, convey.ShouldBeNil)
			_ = resp.Body.Close()
			cancel()

			convey.Convey("Then it shuts down cleanly", func() {
				select {
				case err := <-done:
					convey.So(err, convey.ShouldBeNil)
				case <-time.After(5 * time.Second):
					t.Fatal("server did not stop")
				}
			})
		})
	})
}
