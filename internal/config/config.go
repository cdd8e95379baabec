package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/theirongolddev/spendcast/internal/budget"
	"github.com/theirongolddev/spendcast/internal/classifier"
	"github.com/theirongolddev/spendcast/internal/forecast"
	"github.com/theirongolddev/spendcast/internal/labeler"
)

// Config holds all spendcast configuration.
type Config struct {
	General    GeneralConfig    `toml:"general"`
	Classifier ClassifierConfig `toml:"classifier"`
	Forecast   ForecastConfig   `toml:"forecast"`
	Budget     BudgetConfig     `toml:"budget"`
	Labeler    LabelerConfig    `toml:"labeler"`
	Daemon     DaemonConfig     `toml:"daemon"`
	TUI        TUIConfig        `toml:"tui"`
}

// GeneralConfig holds general preferences.
type GeneralConfig struct {
	DataDir  string `toml:"data_dir,omitempty"`
	LogLevel string `toml:"log_level"`
	UseStore bool   `toml:"use_store"`
}

// ClassifierConfig holds category model training settings.
type ClassifierConfig struct {
	Backend     string  `toml:"backend"`
	LabelColumn string  `toml:"label_column"`
	MaxFeatures int     `toml:"max_features"`
	TestRatio   float64 `toml:"test_ratio"`
	Seed        int64   `toml:"seed"`
	MaxIter     int     `toml:"max_iter"`
	MaxAgeDays  int     `toml:"max_age_days"`
}

// ForecastConfig holds forecast engine settings.
type ForecastConfig struct {
	HorizonDays  int     `toml:"horizon_days"`
	MinPoints    int     `toml:"min_points"`
	Period       float64 `toml:"period"`
	FourierOrder int     `toml:"fourier_order"`
	Workers      int     `toml:"workers,omitempty"`
}

// BudgetConfig holds spending limits.
type BudgetConfig struct {
	Monthly    float64            `toml:"monthly"`
	Categories map[string]float64 `toml:"categories"`
}

// LabelerConfig holds bootstrap labeling settings.
type LabelerConfig struct {
	RulesFile string `toml:"rules_file,omitempty"`
}

// DaemonConfig holds serve-phase settings.
type DaemonConfig struct {
	Addr            string `toml:"addr"`
	IntervalSeconds int    `toml:"interval_seconds"`
	InboxDir        string `toml:"inbox_dir,omitempty"`
}

// TUIConfig holds dashboard settings.
type TUIConfig struct {
	Theme          string `toml:"theme"`
	RefreshSeconds int    `toml:"refresh_seconds"` // 0 disables auto-refresh
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	opts := classifier.DefaultOptions()
	fc := forecast.DefaultConfig()
	limits := budget.DefaultLimits()
	return Config{
		General: GeneralConfig{
			LogLevel: "info",
			UseStore: true,
		},
		Classifier: ClassifierConfig{
			Backend:     opts.Backend,
			LabelColumn: labeler.LabelColumn,
			MaxFeatures: opts.MaxFeatures,
			TestRatio:   opts.TestRatio,
			Seed:        opts.Seed,
			MaxIter:     opts.MaxIter,
			MaxAgeDays:  30,
		},
		Forecast: ForecastConfig{
			HorizonDays:  fc.HorizonDays,
			MinPoints:    fc.MinPoints,
			Period:       fc.Seasonal.Period,
			FourierOrder: fc.Seasonal.FourierOrder,
		},
		Budget: BudgetConfig{
			Monthly:    limits.Monthly,
			Categories: limits.Categories,
		},
		Daemon: DaemonConfig{
			Addr:            "127.0.0.1:8787",
			IntervalSeconds: 15,
		},
		TUI: TUIConfig{
			Theme: "flexoki-dark",
		},
	}
}

// ConfigDir returns the XDG-compliant config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "spendcast")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "spendcast")
}

// ConfigPath returns the full path to the config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// DefaultDataDir returns the XDG-compliant data directory.
func DefaultDataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "spendcast")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "spendcast")
}

// Load reads the config file, returning defaults if it doesn't exist.
// A .env file in the working directory and SPENDCAST_* variables are
// applied on top.
func Load() (Config, error) {
	_ = godotenv.Load()
	cfg, err := LoadFrom(ConfigPath())
	ApplyEnv(&cfg)
	return cfg, err
}

// LoadFrom reads a config file at path over the defaults.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	// Decode budgets into a fresh map so a config file replaces the stock
	// category limits instead of merging with them.
	cfg.Budget.Categories = nil
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("parsing config: %w", err)
	}
	if cfg.Budget.Categories == nil {
		cfg.Budget.Categories = budget.DefaultLimits().Categories
	}

	return cfg, nil
}

// Save writes the config to disk.
func Save(cfg Config) error {
	return SaveTo(ConfigPath(), cfg)
}

// SaveTo writes the config to path.
func SaveTo(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	return enc.Encode(cfg)
}

// Exists returns true if a config file exists on disk.
func Exists() bool {
	_, err := os.Stat(ConfigPath())
	return err == nil
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var problems []string

	switch c.Classifier.Backend {
	case classifier.BackendLogReg, classifier.BackendBayes:
	default:
		problems = append(problems, fmt.Sprintf("classifier.backend %q: must be %q or %q",
			c.Classifier.Backend, classifier.BackendLogReg, classifier.BackendBayes))
	}
	if c.Classifier.LabelColumn == "" {
		problems = append(problems, "classifier.label_column cannot be empty")
	}
	if c.Classifier.MaxFeatures < 1 {
		problems = append(problems, fmt.Sprintf("classifier.max_features %d: must be at least 1", c.Classifier.MaxFeatures))
	}
	if c.Classifier.TestRatio <= 0 || c.Classifier.TestRatio >= 1 {
		problems = append(problems, fmt.Sprintf("classifier.test_ratio %v: must be between 0 and 1", c.Classifier.TestRatio))
	}
	if c.Classifier.MaxIter < 1 {
		problems = append(problems, fmt.Sprintf("classifier.max_iter %d: must be at least 1", c.Classifier.MaxIter))
	}
	if c.Forecast.HorizonDays < 1 {
		problems = append(problems, fmt.Sprintf("forecast.horizon_days %d: must be at least 1", c.Forecast.HorizonDays))
	}
	if c.Forecast.MinPoints < 2 {
		problems = append(problems, fmt.Sprintf("forecast.min_points %d: must be at least 2", c.Forecast.MinPoints))
	}
	if c.Forecast.Period <= 0 {
		problems = append(problems, fmt.Sprintf("forecast.period %v: must be positive", c.Forecast.Period))
	}
	if c.Forecast.FourierOrder < 1 {
		problems = append(problems, fmt.Sprintf("forecast.fourier_order %d: must be at least 1", c.Forecast.FourierOrder))
	}
	if c.Budget.Monthly < 0 {
		problems = append(problems, fmt.Sprintf("budget.monthly %v: cannot be negative", c.Budget.Monthly))
	}
	for cat, limit := range c.Budget.Categories {
		if limit < 0 {
			problems = append(problems, fmt.Sprintf("budget.categories.%s %v: cannot be negative", cat, limit))
		}
	}
	if c.Daemon.IntervalSeconds < 1 {
		problems = append(problems, fmt.Sprintf("daemon.interval_seconds %d: must be at least 1", c.Daemon.IntervalSeconds))
	}

	if c.TUI.RefreshSeconds < 0 {
		problems = append(problems, fmt.Sprintf("tui.refresh_seconds %d: cannot be negative", c.TUI.RefreshSeconds))
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(problems, "\n- "))
	}
	return nil
}

// ClassifierOptions converts the classifier section to training options.
func (c Config) ClassifierOptions() classifier.Options {
	opts := classifier.DefaultOptions()
	opts.Backend = c.Classifier.Backend
	opts.MaxFeatures = c.Classifier.MaxFeatures
	opts.TestRatio = c.Classifier.TestRatio
	opts.Seed = c.Classifier.Seed
	opts.MaxIter = c.Classifier.MaxIter
	return opts
}

// MaxModelAge returns the freshness limit for a trained model.
func (c Config) MaxModelAge() time.Duration {
	return time.Duration(c.Classifier.MaxAgeDays) * 24 * time.Hour
}

// ForecastConfig converts the forecast section to engine settings.
func (c Config) ForecastConfig() forecast.Config {
	fc := forecast.DefaultConfig()
	fc.HorizonDays = c.Forecast.HorizonDays
	fc.MinPoints = c.Forecast.MinPoints
	fc.Seasonal.Period = c.Forecast.Period
	fc.Seasonal.FourierOrder = c.Forecast.FourierOrder
	if c.Forecast.Workers > 0 {
		fc.Workers = c.Forecast.Workers
	}
	return fc
}

// Limits converts the budget section to evaluator limits.
func (c Config) Limits() budget.Limits {
	return budget.Limits{Monthly: c.Budget.Monthly, Categories: c.Budget.Categories}
}

// Interval returns the daemon polling interval.
func (c Config) Interval() time.Duration {
	return time.Duration(c.Daemon.IntervalSeconds) * time.Second
}
