package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/okian/seasonsim/internal/app"
	"github.com/okian/seasonsim/internal/domain/types"
	"github.com/spf13/cobra"
)

func (c *cli) ratingsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ratings",
		Short: "Build rolling team-week ratings from play-by-play data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, done, err := c.pipeline(cmd)
			if err != nil {
				return err
			}
			defer done()

			rows, err := p.Ratings(cmd.Context())
			if err != nil {
				return err
			}
			undefined := 0
			for _, r := range rows {
				if !r.NetRating.Valid {
					undefined++
				}
			}
			fmt.Fprintf(c.out, "team-week ratings: %d (%d without enough history)\n", len(rows), undefined)
			return nil
		},
	}
}

func (c *cli) featuresCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "features",
		Short: "Build ratings and per-game home-minus-away feature vectors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, done, err := c.pipeline(cmd)
			if err != nil {
				return err
			}
			defer done()

			ctx := cmd.Context()
			games, err := p.Schedule(ctx)
			if err != nil {
				return err
			}
			ratings, err := p.Ratings(ctx)
			if err != nil {
				return err
			}
			vectors, err := p.Features(ctx, games, ratings)
			if err != nil {
				return err
			}
			missing := 0
			for _, v := range vectors {
				if !v.NetDiff.Valid {
					missing++
				}
			}
			fmt.Fprintf(c.out, "feature vectors: %d (%d without net_diff)\n", len(vectors), missing)
			return nil
		},
	}
}

func (c *cli) simulateCmd() *cobra.Command {
	var (
		season int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Simulate a season from stored features or a predictions file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, done, err := c.pipeline(cmd)
			if err != nil {
				return err
			}
			defer done()

			rep, err := p.SimulateStored(cmd.Context(), season)
			if err != nil {
				return err
			}
			return printReport(c.out, rep, asJSON)
		},
	}
	cmd.Flags().IntVar(&season, "season", 0, "season to simulate (default latest in schedule)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the summary as JSON")
	return cmd
}

func (c *cli) runCmd() *cobra.Command {
	var (
		season int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run ratings, features, predictions and simulation end to end",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, done, err := c.pipeline(cmd)
			if err != nil {
				return err
			}
			defer done()

			rep, err := p.Run(cmd.Context(), season)
			if err != nil {
				return err
			}
			if !asJSON {
				fmt.Fprintf(c.out, "team-week ratings: %d (%d without enough history)\nfeature vectors: %d\n",
					rep.Ratings, rep.Undefined, rep.Features)
			}
			return printReport(c.out, rep, asJSON)
		},
	}
	cmd.Flags().IntVar(&season, "season", 0, "season to simulate (default latest in schedule)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the summary as JSON")
	return cmd
}

// printReport writes the season summary as a table or JSON.
func printReport(w io.Writer, rep *app.Report, asJSON bool) error {
	res := rep.Result
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(types.SummaryEntries(res.Summaries))
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "TEAM\tCONF\tDIV\tAVG WINS\tSTDDEV\tMEDIAN\tPLAYOFF\tDIVISION\t")
	for _, s := range res.Summaries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.2f\t%.2f\t%.1f\t%s\t%s\t\n",
			s.Team, s.Conference, s.Division, s.AverageWins, s.WinStdDev, s.MedianWins,
			pct(s.PlayoffOdds), pct(s.DivisionOdds))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "season %d: %d games, %d trials, seed %d, %d probabilities clamped\n",
		res.Season, res.Games, res.Trials, res.Seed, res.Clamped)
	fmt.Fprintf(w, "run %s\nsummary written to %s\n", res.RunID, rep.Artifact)
	fmt.Fprintln(w, "playoff and division ties are broken by team code, not league tiebreakers")
	return nil
}

func pct(p float64) string { return fmt.Sprintf("%.1f%%", 100*p) }
