package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/TobiSchelling/clvscore/internal/clv"
	"github.com/TobiSchelling/clvscore/internal/dataset"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Source       Source          `yaml:"source"`
	Columns      dataset.Columns `yaml:"columns"`
	Model        Model           `yaml:"model"`
	Projection   Projection      `yaml:"projection"`
	Segmentation Segmentation    `yaml:"segmentation"`
	Summary      Summary         `yaml:"summary"`
	Output       Output          `yaml:"output"`
	Server       Server          `yaml:"server"`
	Logging      Logging         `yaml:"logging"`
}

// Source selects where transaction lines are read from.
type Source struct {
	// Kind is one of local, csv, mysql or postgres.
	Kind  string `yaml:"kind"`
	DSN   string `yaml:"dsn"`
	Path  string `yaml:"path"`
	Query string `yaml:"query"`
}

type Model struct {
	TimingPenalizer   float64 `yaml:"timing_penalizer"`
	MonetaryPenalizer float64 `yaml:"monetary_penalizer"`
	MaxEvaluations    int     `yaml:"max_evaluations"`
}

type Projection struct {
	TimePeriod          int     `yaml:"time_period"`
	DiscountRate        float64 `yaml:"discount_rate"`
	Freq                string  `yaml:"freq"`
	ReferenceOffsetDays int     `yaml:"reference_offset_days"`
	PredictPeriods      float64 `yaml:"predict_periods"`
	// Now pins the reference date (YYYY-MM-DD). Empty derives it from the data.
	Now string `yaml:"now"`
}

type Segmentation struct {
	Count  int      `yaml:"count"`
	Labels []string `yaml:"labels"`
}

type Summary struct {
	ProfitMarginRate float64 `yaml:"profit_margin_rate"`
}

type Output struct {
	DataDir   string `yaml:"data_dir"`
	ExportDir string `yaml:"export_dir"`
}

type Server struct {
	Port int `yaml:"port"`
	// Schedule is a cron spec for periodic re-runs; empty disables them.
	Schedule string `yaml:"schedule"`
}

type Logging struct {
	Level string `yaml:"level"`
}

// ConfigDir returns the XDG config directory for clvscore.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "clvscore")
}

// DataDir returns the XDG data directory for clvscore.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "clvscore")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/clvscore/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'clvscore init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	proj := clv.DefaultProjection()
	cfg := &Config{
		Source:  Source{Kind: "local", Query: DefaultQuery},
		Columns: dataset.DefaultColumns(),
		Model: Model{
			TimingPenalizer:   clv.DefaultTimingPenalizer,
			MonetaryPenalizer: clv.DefaultMonetaryPenalizer,
			MaxEvaluations:    clv.DefaultMaxEvaluations,
		},
		Projection: Projection{
			TimePeriod:          proj.TimePeriod,
			DiscountRate:        proj.DiscountRate,
			Freq:                proj.Freq,
			ReferenceOffsetDays: clv.DefaultReferenceOffsetDays,
			PredictPeriods:      1,
		},
		Segmentation: Segmentation{Count: clv.DefaultSegmentCount},
		Summary:      Summary{ProfitMarginRate: clv.DefaultProfitMarginRate},
		Server:       Server{Port: 8000},
		Logging:      Logging{Level: "INFO"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.Columns = cfg.Columns.WithDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Source.Kind {
	case "local", "csv", "mysql", "postgres":
	default:
		return fmt.Errorf("unknown source kind %q (want local, csv, mysql or postgres)", c.Source.Kind)
	}
	if c.Source.Kind == "csv" && c.Source.Path == "" {
		return fmt.Errorf("source.path is required for csv sources")
	}
	if (c.Source.Kind == "mysql" || c.Source.Kind == "postgres") && c.Source.DSN == "" {
		return fmt.Errorf("source.dsn is required for %s sources", c.Source.Kind)
	}
	if n := len(c.Segmentation.Labels); n > 0 && n != c.Segmentation.Count {
		return fmt.Errorf("segmentation has %d labels for %d segments", n, c.Segmentation.Count)
	}
	if c.Summary.ProfitMarginRate < 0 {
		return fmt.Errorf("summary.profit_margin_rate must be >= 0, got %g", c.Summary.ProfitMarginRate)
	}
	if c.Projection.Now != "" {
		if _, err := time.Parse("2006-01-02", c.Projection.Now); err != nil {
			return fmt.Errorf("projection.now: %w", err)
		}
	}
	return nil
}

// EngineOptions maps the config onto engine options.
func (c *Config) EngineOptions() clv.Options {
	opts := clv.DefaultOptions()
	opts.Columns = c.Columns
	opts.TimingPenalizer = c.Model.TimingPenalizer
	opts.MonetaryPenalizer = c.Model.MonetaryPenalizer
	opts.Fit.MaxEvaluations = c.Model.MaxEvaluations
	opts.Projection = clv.Projection{
		TimePeriod:   c.Projection.TimePeriod,
		DiscountRate: c.Projection.DiscountRate,
		Freq:         strings.ToUpper(c.Projection.Freq),
	}
	opts.PredictPeriods = c.Projection.PredictPeriods
	opts.ReferenceOffsetDays = c.Projection.ReferenceOffsetDays
	if c.Projection.Now != "" {
		// Validated in parse.
		opts.Now, _ = time.Parse("2006-01-02", c.Projection.Now)
	}
	opts.Segments = c.Segmentation.Count
	opts.Labels = c.Segmentation.Labels
	opts.ProfitMarginRate = c.Summary.ProfitMarginRate
	return opts
}

// Debug reports whether per-customer diagnostics should be logged.
func (c *Config) Debug() bool {
	return strings.EqualFold(c.Logging.Level, "DEBUG")
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

// GetExportDir returns the export directory, defaulting to exports/ under the data dir.
func (c *Config) GetExportDir() string {
	if c.Output.ExportDir != "" {
		return c.Output.ExportDir
	}
	return filepath.Join(c.GetDataDir(), "exports")
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
