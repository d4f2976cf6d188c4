package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/subreport/internal/common"
	"github.com/dmitrijs2005/subreport/internal/logging"
)

// Config holds runtime settings.
//
// Fields:
//   - DatabaseDSN: PostgreSQL DSN (pgx); when set it wins over Supabase.
//   - SupabaseURL / SupabaseKey: PostgREST access; the service role key is
//     preferred over the anon key when both are in the environment.
//   - OutputDir and the three file names: where documents are written.
//   - S3*: optional mirror of the documents to an S3-compatible bucket.
//   - ScheduleAt / RunOnStart: daily trigger for the schedule command.
//   - HistoryPath: SQLite file with the run history.
//   - MetricsAddr: listen address for /metrics; empty disables it.
type Config struct {
	DatabaseDSN string
	SupabaseURL string
	SupabaseKey string

	OutputDir    string
	SnapshotFile string
	EnrichedFile string
	FilteredFile string

	S3Bucket       string
	S3Prefix       string
	S3Region       string
	S3BaseEndpoint string
	S3AccessKey    string
	S3SecretKey    string

	ScheduleAt  string
	RunOnStart  bool
	HistoryPath string
	MetricsAddr string

	LogFormat string
	LogLevel  string

	SourceTimeout time.Duration
	SourceRetries uint64
}

// LoadDefaults populates Config with defaults that work from a checkout.
func (c *Config) LoadDefaults() {
	c.OutputDir = "."
	c.SnapshotFile = "extract_users_subscriptions.json"
	c.EnrichedFile = "fetch_subscribed_users_data.json"
	c.FilteredFile = "filtered_users_with_sheets.json"
	c.S3Region = "us-east-1"
	c.ScheduleAt = "07:00"
	c.HistoryPath = "subreport.db"
	c.LogFormat = logging.FormatAuto
	c.LogLevel = "info"
	c.SourceTimeout = 60 * time.Second
	c.SourceRetries = 3
}

// LoadConfig builds a Config from defaults, environment, the optional JSON
// file and finally the flags found in args (usually os.Args[1:]).
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseEnv(cfg, args); err != nil {
		return nil, err
	}
	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail deep inside a run.
func (c *Config) Validate() error {
	if _, _, err := c.DailyAt(); err != nil {
		return err
	}
	switch c.LogFormat {
	case logging.FormatAuto, logging.FormatJSON, logging.FormatConsole:
	default:
		return fmt.Errorf("%w: log format %q, want auto, json or console", common.ErrConfig, c.LogFormat)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: log level %q, want debug, info, warn or error", common.ErrConfig, c.LogLevel)
	}
	if c.SourceTimeout < 0 {
		return fmt.Errorf("%w: source timeout must not be negative", common.ErrConfig)
	}
	if c.S3Bucket != "" && c.S3Region == "" {
		return fmt.Errorf("%w: SUBREPORT_S3_REGION is required with a bucket", common.ErrConfig)
	}
	return nil
}

// DailyAt parses ScheduleAt ("HH:MM", 24-hour clock).
func (c *Config) DailyAt() (hour, minute int, err error) {
	t, err := time.Parse("15:04", c.ScheduleAt)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: schedule time %q, want HH:MM (24-hour)", common.ErrConfig, c.ScheduleAt)
	}
	return t.Hour(), t.Minute(), nil
}

func (c *Config) SnapshotPath() string { return filepath.Join(c.OutputDir, c.SnapshotFile) }

func (c *Config) EnrichedPath() string { return filepath.Join(c.OutputDir, c.EnrichedFile) }

func (c *Config) FilteredPath() string { return filepath.Join(c.OutputDir, c.FilteredFile) }
