// Package cmd implements the spendcast CLI commands.
package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/spendcast/internal/classifier"
	"github.com/theirongolddev/spendcast/internal/cli"
	"github.com/theirongolddev/spendcast/internal/config"
	"github.com/theirongolddev/spendcast/internal/logger"
	"github.com/theirongolddev/spendcast/internal/pipeline"
	"github.com/theirongolddev/spendcast/internal/source"
	"github.com/theirongolddev/spendcast/internal/store"
)

var (
	flagDataDir  string
	flagQuiet    bool
	flagNoStore  bool
	flagLogLevel string
	flagCategory string
	flagSince    string
	flagUntil    string
)

var rootCmd = &cobra.Command{
	Use:   "spendcast",
	Short: "Spending categorization and forecasting",
	Long: "Categorize bank transaction exports, forecast spend per category " +
		"and check the forecast against budgets.",
	Args:         cobra.ArbitraryArgs,
	RunE:         runSummary,
	SilenceUsage: true,
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagDataDir, "data-dir", "d", "", "Data directory (default $XDG_DATA_HOME/spendcast)")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress progress output")
	rootCmd.PersistentFlags().BoolVar(&flagNoStore, "no-store", false, "Skip the SQLite run history")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVarP(&flagCategory, "category", "c", "", "Filter to category (substring match)")
	rootCmd.PersistentFlags().StringVar(&flagSince, "since", "", "Only transactions on or after this date")
	rootCmd.PersistentFlags().StringVar(&flagUntil, "until", "", "Only transactions on or before this date")
}

// appEnv is the resolved runtime shared by every command.
type appEnv struct {
	cfg   config.Config
	paths config.Paths
	log   zerolog.Logger
}

// setupEnv loads config, applies flag overrides and builds the logger.
func setupEnv() (*appEnv, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	level := cfg.General.LogLevel
	if flagQuiet {
		level = "warn"
	}
	if flagLogLevel != "" {
		level = flagLogLevel
	}

	return &appEnv{
		cfg:   cfg,
		paths: config.ResolvePaths(cfg, flagDataDir),
		log:   logger.New(level),
	}, nil
}

// openStore opens the run history. It returns nil when the store is
// disabled or unavailable; history is never required.
func (e *appEnv) openStore() *store.Store {
	if flagNoStore || !e.cfg.General.UseStore {
		return nil
	}
	st, err := store.Open(e.paths.Store)
	if err != nil {
		e.log.Warn().Err(err).Msg("run history unavailable")
		return nil
	}
	return st
}

// loadModel reads the trained artifact and warns when it is stale.
func (e *appEnv) loadModel() (*classifier.Model, error) {
	m, err := classifier.Load(e.paths.Model)
	if errors.Is(err, classifier.ErrArtifactMissing) {
		return nil, fmt.Errorf("%w\n  Run `spendcast train --bootstrap <file.csv>` first", err)
	}
	if err != nil {
		return nil, err
	}
	if m.Stale(e.cfg.MaxModelAge(), time.Now()) {
		e.log.Warn().
			Time("trained_at", m.Meta.TrainedAt).
			Msg("model is older than classifier.max_age_days; consider retraining")
	}
	return m, nil
}

// inputs returns the positional CSV arguments, falling back to the inbox
// directory.
func (e *appEnv) inputs(args []string) []string {
	if len(args) > 0 {
		return args
	}
	return []string{e.paths.Inbox}
}

// loadData is the shared data loading path used by the read-only commands.
func (e *appEnv) loadData(args []string) (*pipeline.LoadResult, error) {
	result, err := pipeline.Load(e.inputs(args), progressFn())
	if err != nil {
		return nil, err
	}
	if !flagQuiet {
		fmt.Fprintf(os.Stderr, "\r  Loaded %s rows from %d files (%d rejected)    \n",
			cli.FormatNumber(int64(len(result.Rows))),
			result.ParsedFiles,
			len(result.Rejected),
		)
	}
	if result.FileErrors > 0 {
		e.log.Warn().Int("files", result.FileErrors).Msg("some files could not be read")
	}
	return result, nil
}

func progressFn() pipeline.ProgressFunc {
	return func(current, total int) {
		if flagQuiet || total < 2 {
			return
		}
		fmt.Fprintf(os.Stderr, "\r  Reading [%d/%d]", current, total)
	}
}

// timeWindow parses --since and --until. Unset bounds are zero.
func timeWindow() (since, until time.Time, err error) {
	if flagSince != "" {
		if since, err = source.ParseDate(flagSince); err != nil {
			return since, until, fmt.Errorf("--since: %w", err)
		}
	}
	if flagUntil != "" {
		if until, err = source.ParseDate(flagUntil); err != nil {
			return since, until, fmt.Errorf("--until: %w", err)
		}
	}
	if !since.IsZero() && !until.IsZero() && until.Before(since) {
		return since, until, errors.New("--until is before --since")
	}
	return since, until, nil
}
