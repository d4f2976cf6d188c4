package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/dmitrijs2005/subreport/internal/common"
	"github.com/dmitrijs2005/subreport/internal/flagx"
	"github.com/joho/godotenv"
)

const defaultEnvFile = ".env"

// seams for tests
var (
	lookupEnv   = os.LookupEnv
	readEnvFile = func(path string) (map[string]string, error) { return godotenv.Read(path) }
)

type envSource struct {
	file map[string]string
}

// get prefers the process environment over the dotenv file.
func (e envSource) get(key string) (string, bool) {
	if v, ok := lookupEnv(key); ok {
		return v, true
	}
	v, ok := e.file[key]
	return v, ok
}

// parseEnv reads the dotenv file named by -env (default ".env", which may
// be absent) and applies the known variables.
func parseEnv(config *Config, args []string) error {
	path := flagx.EnvFileFlag(args)
	explicit := path != ""
	if !explicit {
		path = defaultEnvFile
	}

	file, err := readEnvFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			file = nil
		} else {
			return fmt.Errorf("%w: env file %s: %v", common.ErrConfig, path, err)
		}
	}
	env := envSource{file: file}

	str := func(key string, dst *string) {
		if v, ok := env.get(key); ok && v != "" {
			*dst = v
		}
	}

	str("DATABASE_DSN", &config.DatabaseDSN)
	str("SUPABASE_URL", &config.SupabaseURL)
	str("SUPABASE_ANON_KEY", &config.SupabaseKey)
	str("SUPABASE_SERVICE_ROLE_KEY", &config.SupabaseKey)

	str("SUBREPORT_OUTPUT_DIR", &config.OutputDir)
	str("SUBREPORT_S3_BUCKET", &config.S3Bucket)
	str("SUBREPORT_S3_PREFIX", &config.S3Prefix)
	str("SUBREPORT_S3_REGION", &config.S3Region)
	str("SUBREPORT_S3_ENDPOINT", &config.S3BaseEndpoint)
	str("SUBREPORT_S3_ACCESS_KEY", &config.S3AccessKey)
	str("SUBREPORT_S3_SECRET_KEY", &config.S3SecretKey)
	str("SUBREPORT_SCHEDULE_AT", &config.ScheduleAt)
	str("SUBREPORT_HISTORY_PATH", &config.HistoryPath)
	str("SUBREPORT_METRICS_ADDR", &config.MetricsAddr)
	str("SUBREPORT_LOG_FORMAT", &config.LogFormat)
	str("SUBREPORT_LOG_LEVEL", &config.LogLevel)

	if v, ok := env.get("SUBREPORT_RUN_ON_START"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: SUBREPORT_RUN_ON_START=%q is not a boolean", common.ErrConfig, v)
		}
		config.RunOnStart = b
	}
	if v, ok := env.get("SUBREPORT_SOURCE_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: SUBREPORT_SOURCE_TIMEOUT=%q is not a duration", common.ErrConfig, v)
		}
		config.SourceTimeout = d
	}
	if v, ok := env.get("SUBREPORT_SOURCE_RETRIES"); ok && v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: SUBREPORT_SOURCE_RETRIES=%q is not a count", common.ErrConfig, v)
		}
		config.SourceRetries = n
	}
	return nil
}
