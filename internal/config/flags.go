package config

import (
	"bytes"
	"flag"
	"fmt"

	"github.com/dmitrijs2005/subreport/internal/common"
	"github.com/dmitrijs2005/subreport/internal/flagx"
)

var (
	flagNames = []string{
		"d", "supabase-url", "supabase-key", "o", "runs-db", "at", "run-on-start",
		"metrics-addr", "log-format", "log-level", "timeout", "retries",
		"s3-bucket", "s3-prefix", "s3-region", "s3-endpoint",
		"c", "config", "env",
	}
	boolFlags = []string{"run-on-start"}
)

// newFlagSet binds every supported flag to config. -c/-config and -env are
// read earlier by their own layers and only declared here for the usage text.
//
//	-d string            PostgreSQL DSN
//	-supabase-url string Supabase project URL
//	-supabase-key string Supabase API key
//	-o string            output directory
//	-runs-db string      run history database
//	-at HH:MM            daily trigger time
//	-run-on-start        run once immediately in schedule mode
//	-metrics-addr string Prometheus listen address
//	-timeout duration    source timeout
//	-retries uint        source retries
func newFlagSet(config *Config) *flag.FlagSet {
	fs := flag.NewFlagSet("subreport", flag.ContinueOnError)

	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "PostgreSQL DSN (DATABASE_DSN)")
	fs.StringVar(&config.SupabaseURL, "supabase-url", config.SupabaseURL, "Supabase project URL (SUPABASE_URL)")
	fs.StringVar(&config.SupabaseKey, "supabase-key", config.SupabaseKey, "Supabase API key (SUPABASE_SERVICE_ROLE_KEY or SUPABASE_ANON_KEY)")
	fs.StringVar(&config.OutputDir, "o", config.OutputDir, "output directory for the JSON documents")
	fs.StringVar(&config.HistoryPath, "runs-db", config.HistoryPath, "SQLite run history file")
	fs.StringVar(&config.ScheduleAt, "at", config.ScheduleAt, "daily trigger time, HH:MM 24-hour")
	fs.BoolVar(&config.RunOnStart, "run-on-start", config.RunOnStart, "run once immediately when scheduling")
	fs.StringVar(&config.MetricsAddr, "metrics-addr", config.MetricsAddr, "Prometheus /metrics listen address")
	fs.StringVar(&config.LogFormat, "log-format", config.LogFormat, "log format: auto, json or console")
	fs.StringVar(&config.LogLevel, "log-level", config.LogLevel, "log level: debug, info, warn or error")
	fs.DurationVar(&config.SourceTimeout, "timeout", config.SourceTimeout, "timeout for one source fetch")
	fs.Uint64Var(&config.SourceRetries, "retries", config.SourceRetries, "retries for transient source failures")
	fs.StringVar(&config.S3Bucket, "s3-bucket", config.S3Bucket, "S3 bucket for document copies")
	fs.StringVar(&config.S3Prefix, "s3-prefix", config.S3Prefix, "S3 key prefix")
	fs.StringVar(&config.S3Region, "s3-region", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "s3-endpoint", config.S3BaseEndpoint, "S3 base endpoint (MinIO)")

	var ignored string
	fs.StringVar(&ignored, "c", "", "JSON config file")
	fs.StringVar(&ignored, "config", "", "JSON config file")
	fs.StringVar(&ignored, "env", "", "dotenv file (default .env)")

	return fs
}

func parseFlags(config *Config, args []string) error {
	// Filter args to include only the flags handled here.
	filtered := flagx.FilterArgs(args, flagNames, boolFlags...)

	fs := newFlagSet(config)
	fs.SetOutput(&bytes.Buffer{})

	if err := fs.Parse(filtered); err != nil {
		return fmt.Errorf("%w: %v", common.ErrConfig, err)
	}
	return nil
}

// Usage renders the configuration flags with their defaults.
func Usage() string {
	c := &Config{}
	c.LoadDefaults()

	var buf bytes.Buffer
	fs := newFlagSet(c)
	fs.SetOutput(&buf)
	fs.PrintDefaults()
	return buf.String()
}
