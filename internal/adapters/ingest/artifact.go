package ingest

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/okian/seasonsim/internal/domain/model"
)

// SummaryHeader is the column order of the season summary artifact.
var SummaryHeader = []string{ //nolint:gochecknoglobals // read-only header
	"team", "conference", "division", "avg_wins", "win_stddev", "median_wins",
	"playoff_odds", "division_odds", "season", "trials", "model_variant", "run_id",
}

// SummaryPath returns dir/season_<season>_sim_summary.csv.
func SummaryPath(dir string, season int) string {
	return filepath.Join(dir, fmt.Sprintf("season_%d_sim_summary.csv", season))
}

// WriteSummary writes summaries in the given order, replacing any previous
// artifact for the season. The file is renamed into place so readers never
// see a partial table.
func WriteSummary(dir string, season int, summaries []model.SeasonSimSummary) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create artifacts dir: %w", err)
	}
	path := SummaryPath(dir, season)
	tmp, err := os.CreateTemp(dir, ".summary-*.csv")
	if err != nil {
		return "", fmt.Errorf("create summary: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // gone after rename

	w := csv.NewWriter(tmp)
	_ = w.Write(SummaryHeader)
	for _, s := range summaries {
		_ = w.Write([]string{
			s.Team, s.Conference, s.Division,
			ftoa(s.AverageWins), ftoa(s.WinStdDev), ftoa(s.MedianWins),
			ftoa(s.PlayoffOdds), ftoa(s.DivisionOdds),
			strconv.Itoa(s.Season), strconv.Itoa(s.Trials), s.ModelVariant, s.RunID,
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("write summary: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close summary: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("publish summary: %w", err)
	}
	return path, nil
}

func ftoa(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
