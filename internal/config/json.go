package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/subreport/internal/common"
	"github.com/dmitrijs2005/subreport/internal/flagx"
	"github.com/dmitrijs2005/subreport/internal/timex"
)

// JsonConfig is the shape of the optional JSON configuration file. The
// timeout uses timex.Duration so both "30s" and integer nanoseconds parse.
// Pointers distinguish "absent" from an explicit zero value.
type JsonConfig struct {
	DatabaseDSN    string          `json:"database_dsn"`
	SupabaseURL    string          `json:"supabase_url"`
	SupabaseKey    string          `json:"supabase_key"`
	OutputDir      string          `json:"output_dir"`
	SnapshotFile   string          `json:"snapshot_file"`
	EnrichedFile   string          `json:"enriched_file"`
	FilteredFile   string          `json:"filtered_file"`
	S3Bucket       string          `json:"s3_bucket"`
	S3Prefix       string          `json:"s3_prefix"`
	S3Region       string          `json:"s3_region"`
	S3BaseEndpoint string          `json:"s3_base_endpoint"`
	S3AccessKey    string          `json:"s3_access_key"`
	S3SecretKey    string          `json:"s3_secret_key"`
	ScheduleAt     string          `json:"schedule_at"`
	RunOnStart     *bool           `json:"run_on_start"`
	HistoryPath    string          `json:"history_path"`
	MetricsAddr    string          `json:"metrics_addr"`
	LogFormat      string          `json:"log_format"`
	LogLevel       string          `json:"log_level"`
	SourceTimeout  *timex.Duration `json:"source_timeout"`
	SourceRetries  *uint64         `json:"source_retries"`
}

// parseJson overlays values from the file given with -c or -config. With
// no such flag nothing is loaded. Empty strings in the file keep the value
// from the earlier layers.
func parseJson(config *Config, args []string) error {
	jsonConfigFile := flagx.ConfigFileFlag(args)

	// nothing to load
	if jsonConfigFile == "" {
		return nil
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		return fmt.Errorf("%w: config file: %v", common.ErrConfig, err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("%w: config file %s: %v", common.ErrConfig, jsonConfigFile, err)
	}

	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}

	set(&config.DatabaseDSN, c.DatabaseDSN)
	set(&config.SupabaseURL, c.SupabaseURL)
	set(&config.SupabaseKey, c.SupabaseKey)
	set(&config.OutputDir, c.OutputDir)
	set(&config.SnapshotFile, c.SnapshotFile)
	set(&config.EnrichedFile, c.EnrichedFile)
	set(&config.FilteredFile, c.FilteredFile)
	set(&config.S3Bucket, c.S3Bucket)
	set(&config.S3Prefix, c.S3Prefix)
	set(&config.S3Region, c.S3Region)
	set(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	set(&config.S3AccessKey, c.S3AccessKey)
	set(&config.S3SecretKey, c.S3SecretKey)
	set(&config.ScheduleAt, c.ScheduleAt)
	set(&config.HistoryPath, c.HistoryPath)
	set(&config.MetricsAddr, c.MetricsAddr)
	set(&config.LogFormat, c.LogFormat)
	set(&config.LogLevel, c.LogLevel)

	if c.RunOnStart != nil {
		config.RunOnStart = *c.RunOnStart
	}
	if c.SourceTimeout != nil {
		config.SourceTimeout = time.Duration(c.SourceTimeout.Duration)
	}
	if c.SourceRetries != nil {
		config.SourceRetries = *c.SourceRetries
	}
	return nil
}
