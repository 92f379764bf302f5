package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/okian/seasonsim/internal/domain/model"
	"github.com/okian/seasonsim/pkg/logger"
	"github.com/okian/seasonsim/pkg/metrics"
)

const (
	driverName          = "sqlite"
	defaultQueryTimeout = 30 * time.Second
)

func init() { //nolint:gochecknoinits // register placeholder style for the pure-Go driver
	sqlx.BindDriver(driverName, sqlx.QUESTION)
}

const schema = `
CREATE TABLE IF NOT EXISTS team_week_ratings (
	team          TEXT    NOT NULL,
	season        INTEGER NOT NULL,
	week          INTEGER NOT NULL,
	game_id       TEXT    NOT NULL,
	off_per_play  REAL,
	def_per_play  REAL,
	rolling_off   REAL,
	rolling_def   REAL,
	net_rating    REAL,
	PRIMARY KEY (team, season, week, game_id)
);
CREATE TABLE IF NOT EXISTS game_features (
	game_id         TEXT    NOT NULL PRIMARY KEY,
	season          INTEGER NOT NULL,
	week            INTEGER NOT NULL,
	home_team       TEXT    NOT NULL,
	away_team       TEXT    NOT NULL,
	net_diff        REAL,
	off_diff        REAL,
	def_diff        REAL,
	rest_diff       REAL,
	travel_diff_km  REAL,
	dome_any        REAL,
	closing_spread  REAL,
	closing_total   REAL
);
CREATE INDEX IF NOT EXISTS game_features_season ON game_features (season, week);
CREATE TABLE IF NOT EXISTS season_sim_summaries (
	season         INTEGER NOT NULL,
	trials         INTEGER NOT NULL,
	model_variant  TEXT    NOT NULL,
	team           TEXT    NOT NULL,
	run_id         TEXT    NOT NULL,
	conference     TEXT    NOT NULL,
	division       TEXT    NOT NULL,
	avg_wins       REAL    NOT NULL,
	win_stddev     REAL    NOT NULL,
	median_wins    REAL    NOT NULL,
	playoff_odds   REAL    NOT NULL,
	division_odds  REAL    NOT NULL,
	saved_at       TEXT    NOT NULL,
	PRIMARY KEY (season, trials, model_variant, team)
);
`

// SQLiteStore implements Store on an embedded SQLite database.
type SQLiteStore struct {
	db      *sqlx.DB
	timeout time.Duration
	now     func() time.Time
	logger  logger.Logger
}

var _ Store = (*SQLiteStore)(nil)

// Open opens or creates the database at path and applies the schema.
// ":memory:" gives a private in-memory database.
func Open(ctx context.Context, path string, opts ...Option) (*SQLiteStore, error) {
	s := &SQLiteStore{
		timeout: defaultQueryTimeout,
		now:     time.Now,
		logger:  logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrOpenStore, err)
		}
	}
	db, err := sqlx.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpenStore, err)
	}
	// one writer; also keeps a :memory: database on a single connection
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: apply schema: %w", ErrOpenStore, err)
	}
	s.db = db
	s.logger.Debug(ctx, "store opened", logger.String("path", path))
	return s, nil
}

type ratingRow struct {
	Team       string          `db:"team"`
	Season     int             `db:"season"`
	Week       int             `db:"week"`
	GameID     string          `db:"game_id"`
	OffPerPlay model.NullFloat `db:"off_per_play"`
	DefPerPlay model.NullFloat `db:"def_per_play"`
	RollingOff model.NullFloat `db:"rolling_off"`
	RollingDef model.NullFloat `db:"rolling_def"`
	NetRating  model.NullFloat `db:"net_rating"`
}

type featureRow struct {
	GameID        string          `db:"game_id"`
	Season        int             `db:"season"`
	Week          int             `db:"week"`
	HomeTeam      string          `db:"home_team"`
	AwayTeam      string          `db:"away_team"`
	NetDiff       model.NullFloat `db:"net_diff"`
	OffDiff       model.NullFloat `db:"off_diff"`
	DefDiff       model.NullFloat `db:"def_diff"`
	RestDiff      model.NullFloat `db:"rest_diff"`
	TravelDiffKm  model.NullFloat `db:"travel_diff_km"`
	DomeAny       model.NullFloat `db:"dome_any"`
	ClosingSpread model.NullFloat `db:"closing_spread"`
	ClosingTotal  model.NullFloat `db:"closing_total"`
}

type summaryRow struct {
	Season       int     `db:"season"`
	Trials       int     `db:"trials"`
	ModelVariant string  `db:"model_variant"`
	Team         string  `db:"team"`
	RunID        string  `db:"run_id"`
	Conference   string  `db:"conference"`
	Division     string  `db:"division"`
	AverageWins  float64 `db:"avg_wins"`
	WinStdDev    float64 `db:"win_stddev"`
	MedianWins   float64 `db:"median_wins"`
	PlayoffOdds  float64 `db:"playoff_odds"`
	DivisionOdds float64 `db:"division_odds"`
	SavedAt      string  `db:"saved_at"`
}

// insertStmt builds "INSERT INTO table (a, b) VALUES (:a, :b)".
func insertStmt(table string, cols ...string) string {
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (:%s)", table, strings.Join(cols, ", "), strings.Join(cols, ", :"))
}

var (
	ratingCols  = []string{"team", "season", "week", "game_id", "off_per_play", "def_per_play", "rolling_off", "rolling_def", "net_rating"}                                                               //nolint:gochecknoglobals // column list
	featureCols = []string{"game_id", "season", "week", "home_team", "away_team", "net_diff", "off_diff", "def_diff", "rest_diff", "travel_diff_km", "dome_any", "closing_spread", "closing_total"} //nolint:gochecknoglobals // column list
	summaryCols = []string{"season", "trials", "model_variant", "team", "run_id", "conference", "division", "avg_wins", "win_stddev", "median_wins", "playoff_odds", "division_odds", "saved_at"}        //nolint:gochecknoglobals // column list
)

// inTx runs fn in a transaction with the store timeout.
func (s *SQLiteStore) inTx(ctx context.Context, fn func(ctx context.Context, tx *sqlx.Tx) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(ctx, tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func insertAll[T any](ctx context.Context, tx *sqlx.Tx, query string, rows []T) error {
	stmt, err := tx.PrepareNamedContext(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close() //nolint:errcheck // closed with the transaction
	for i := range rows {
		if _, err := stmt.ExecContext(ctx, rows[i]); err != nil {
			return fmt.Errorf("insert row %d: %w", i, err)
		}
	}
	return nil
}

// ReplaceRatings implements Store.
func (s *SQLiteStore) ReplaceRatings(ctx context.Context, rows []model.TeamWeekRating) error {
	recs := make([]ratingRow, len(rows))
	for i, r := range rows {
		recs[i] = ratingRow{
			Team: r.Team, Season: r.Season, Week: r.Week, GameID: r.GameID,
			OffPerPlay: r.OffensePerPlay, DefPerPlay: r.DefenseAllowedPerPlay,
			RollingOff: r.RollingOffense, RollingDef: r.RollingDefense, NetRating: r.NetRating,
		}
	}
	err := s.inTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM team_week_ratings`); err != nil {
			return fmt.Errorf("clear ratings: %w", err)
		}
		return insertAll(ctx, tx, insertStmt("team_week_ratings", ratingCols...), recs)
	})
	if err != nil {
		metrics.RecordErrorByComponent("repository", "ratings_write")
		return fmt.Errorf("replace ratings: %w", err)
	}
	metrics.RecordStoreWrite("team_week_ratings", len(rows))
	return nil
}

// Ratings implements Store.
func (s *SQLiteStore) Ratings(ctx context.Context, team string, season int) ([]model.TeamWeekRating, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	query := `SELECT ` + strings.Join(ratingCols, ", ") + ` FROM team_week_ratings
		WHERE team = ? AND (? = 0 OR season = ?)
		ORDER BY season, week, game_id`
	var recs []ratingRow
	if err := s.db.SelectContext(ctx, &recs, query, team, season, season); err != nil {
		return nil, fmt.Errorf("select ratings: %w", err)
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("%w: ratings for %s", ErrNotFound, team)
	}
	out := make([]model.TeamWeekRating, len(recs))
	for i, r := range recs {
		out[i] = model.TeamWeekRating{
			Team: r.Team, Season: r.Season, Week: r.Week, GameID: r.GameID,
			OffensePerPlay: r.OffPerPlay, DefenseAllowedPerPlay: r.DefPerPlay,
			RollingOffense: r.RollingOff, RollingDefense: r.RollingDef, NetRating: r.NetRating,
		}
	}
	return out, nil
}

// ReplaceFeatures implements Store.
func (s *SQLiteStore) ReplaceFeatures(ctx context.Context, rows []model.GameFeatureVector) error {
	recs := make([]featureRow, len(rows))
	for i, v := range rows {
		recs[i] = featureRow(v)
	}
	err := s.inTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM game_features`); err != nil {
			return fmt.Errorf("clear features: %w", err)
		}
		return insertAll(ctx, tx, insertStmt("game_features", featureCols...), recs)
	})
	if err != nil {
		metrics.RecordErrorByComponent("repository", "features_write")
		return fmt.Errorf("replace features: %w", err)
	}
	metrics.RecordStoreWrite("game_features", len(rows))
	return nil
}

// Features implements Store.
func (s *SQLiteStore) Features(ctx context.Context, season int) ([]model.GameFeatureVector, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	query := `SELECT ` + strings.Join(featureCols, ", ") + ` FROM game_features
		WHERE season = ? ORDER BY week, game_id`
	var recs []featureRow
	if err := s.db.SelectContext(ctx, &recs, query, season); err != nil {
		return nil, fmt.Errorf("select features: %w", err)
	}
	out := make([]model.GameFeatureVector, len(recs))
	for i, r := range recs {
		out[i] = model.GameFeatureVector(r)
	}
	return out, nil
}

// SaveSummary implements Store.
func (s *SQLiteStore) SaveSummary(ctx context.Context, rows []model.SeasonSimSummary) error {
	if len(rows) == 0 {
		return nil
	}
	key := rows[0]
	saved := s.now().UTC().Format(time.RFC3339Nano)
	recs := make([]summaryRow, len(rows))
	for i, r := range rows {
		if r.Season != key.Season || r.Trials != key.Trials || r.ModelVariant != key.ModelVariant {
			return fmt.Errorf("%w: row %d", ErrMixedSummary, i)
		}
		recs[i] = summaryRow{
			Season: r.Season, Trials: r.Trials, ModelVariant: r.ModelVariant, Team: r.Team,
			RunID: r.RunID, Conference: r.Conference, Division: r.Division,
			AverageWins: r.AverageWins, WinStdDev: r.WinStdDev, MedianWins: r.MedianWins,
			PlayoffOdds: r.PlayoffOdds, DivisionOdds: r.DivisionOdds, SavedAt: saved,
		}
	}
	var replaced int64
	err := s.inTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM season_sim_summaries WHERE season = ? AND trials = ? AND model_variant = ?`,
			key.Season, key.Trials, key.ModelVariant)
		if err != nil {
			return fmt.Errorf("clear summary: %w", err)
		}
		if replaced, err = res.RowsAffected(); err != nil {
			return fmt.Errorf("clear summary: %w", err)
		}
		return insertAll(ctx, tx, insertStmt("season_sim_summaries", summaryCols...), recs)
	})
	if err != nil {
		metrics.RecordErrorByComponent("repository", "summary_write")
		return fmt.Errorf("save summary: %w", err)
	}
	metrics.RecordStoreWrite("season_sim_summaries", len(rows))
	s.logger.Debug(ctx, "summary saved",
		logger.Int("season", key.Season),
		logger.Int("trials", key.Trials),
		logger.String("variant", key.ModelVariant),
		logger.Int64("replaced", replaced),
	)
	return nil
}

// Summary implements Store.
func (s *SQLiteStore) Summary(ctx context.Context, season int, variant string, trials int) ([]model.SeasonSimSummary, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if trials <= 0 {
		err := s.db.GetContext(ctx, &trials, `SELECT trials FROM season_sim_summaries
			WHERE season = ? AND model_variant = ?
			ORDER BY saved_at DESC, trials DESC LIMIT 1`, season, variant)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: summary for season %d variant %s", ErrNotFound, season, variant)
		}
		if err != nil {
			return nil, fmt.Errorf("select latest summary: %w", err)
		}
	}

	query := `SELECT ` + strings.Join(summaryCols, ", ") + ` FROM season_sim_summaries
		WHERE season = ? AND model_variant = ? AND trials = ?
		ORDER BY avg_wins DESC, team`
	var recs []summaryRow
	if err := s.db.SelectContext(ctx, &recs, query, season, variant, trials); err != nil {
		return nil, fmt.Errorf("select summary: %w", err)
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("%w: summary for season %d variant %s trials %d", ErrNotFound, season, variant, trials)
	}
	out := make([]model.SeasonSimSummary, len(recs))
	for i, r := range recs {
		out[i] = model.SeasonSimSummary{
			RunID: r.RunID, Season: r.Season, Trials: r.Trials, ModelVariant: r.ModelVariant,
			Team: r.Team, Conference: r.Conference, Division: r.Division,
			AverageWins: r.AverageWins, WinStdDev: r.WinStdDev, MedianWins: r.MedianWins,
			PlayoffOdds: r.PlayoffOdds, DivisionOdds: r.DivisionOdds,
		}
	}
	return out, nil
}

// Ping implements Store.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.db.PingContext(ctx)
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
