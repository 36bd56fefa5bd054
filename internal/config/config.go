// Package config loads server settings from the environment and an optional
// .env file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"golang.org/x/text/language"

	"timetable/internal/blob"
	"timetable/internal/core"
)

// EnvPrefix namespaces every environment variable read by Load.
const EnvPrefix = "TIMETABLE"

// HTTPConfig configures the listener.
type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// ExportConfig configures the asynchronous export worker.
type ExportConfig struct {
	QueueSize int `mapstructure:"queue_size"`
}

// Config is the full server configuration.
type Config struct {
	HTTP      HTTPConfig         `mapstructure:"http"`
	Storage   core.StorageConfig `mapstructure:"storage"`
	Blob      blob.Config        `mapstructure:"blob"`
	Export    ExportConfig       `mapstructure:"export"`
	Collation string             `mapstructure:"collation"`
	LogLevel  string             `mapstructure:"log_level"`
}

type loadOptions struct {
	dotEnv []string
}

// Option customises Load.
type Option func(*loadOptions)

// WithDotEnv replaces the default .env lookup with paths. Missing files are
// skipped.
func WithDotEnv(paths ...string) Option {
	return func(o *loadOptions) { o.dotEnv = paths }
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":3000")
	v.SetDefault("http.read_timeout", 15*time.Second)
	v.SetDefault("http.write_timeout", 60*time.Second)
	v.SetDefault("http.shutdown_timeout", 10*time.Second)
	v.SetDefault("storage.driver", string(core.StorageSQLite))
	v.SetDefault("storage.sqlite_path", "timetable.db")
	v.SetDefault("storage.postgres_dsn", "")
	v.SetDefault("blob.driver", string(blob.DriverFilesystem))
	v.SetDefault("blob.fs_root", "./blobdata")
	v.SetDefault("blob.s3.region", "")
	v.SetDefault("blob.s3.bucket", "")
	v.SetDefault("blob.s3.endpoint", "")
	v.SetDefault("blob.s3.access_key_id", "")
	v.SetDefault("blob.s3.secret_access_key", "")
	v.SetDefault("blob.s3.session_token", "")
	v.SetDefault("blob.s3.path_style", false)
	v.SetDefault("export.queue_size", 32)
	v.SetDefault("collation", "ko")
	v.SetDefault("log_level", "info")
}

// Load reads .env (when present) and TIMETABLE_* variables, applies defaults,
// and validates the result.
func Load(opts ...Option) (Config, error) {
	o := loadOptions{dotEnv: []string{".env"}}
	for _, opt := range opts {
		opt(&o)
	}
	for _, path := range o.dotEnv {
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return Config{}, fmt.Errorf("stat %s: %w", path, err)
		}
		if err := godotenv.Load(path); err != nil {
			return Config{}, fmt.Errorf("load %s: %w", path, err)
		}
	}

	v := viper.New()
	v.SetTypeByDefaultValue(true)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	// Storage locations are read from TIMETABLE_SQLITE_PATH and TIMETABLE_POSTGRES_DSN.
	for key, env := range map[string]string{
		"storage.sqlite_path":  EnvPrefix + "_SQLITE_PATH",
		"storage.postgres_dsn": EnvPrefix + "_POSTGRES_DSN",
	} {
		if err := v.BindEnv(key, env); err != nil {
			return Config{}, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks driver names, the collation tag, and the log level.
func (c Config) Validate() error {
	var errs []error
	switch c.Storage.Driver {
	case core.StorageMemory, core.StorageSQLite, core.StoragePostgres:
	default:
		errs = append(errs, fmt.Errorf("unknown storage driver %q", c.Storage.Driver))
	}
	if c.Storage.Driver == core.StoragePostgres && c.Storage.PostgresDSN == "" {
		errs = append(errs, errors.New("postgres driver requires " + EnvPrefix + "_POSTGRES_DSN"))
	}
	switch c.Blob.Driver {
	case blob.DriverFilesystem, blob.DriverMemory:
	case blob.DriverS3:
		if c.Blob.S3.Bucket == "" {
			errs = append(errs, errors.New("s3 blob driver requires " + EnvPrefix + "_BLOB_S3_BUCKET"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown blob driver %q", c.Blob.Driver))
	}
	if _, err := c.Language(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	if c.Export.QueueSize < 1 {
		errs = append(errs, fmt.Errorf("export queue size must be positive, got %d", c.Export.QueueSize))
	}
	return errors.Join(errs...)
}

// Language parses Collation as a BCP 47 tag.
func (c Config) Language() (language.Tag, error) {
	tag, err := language.Parse(c.Collation)
	if err != nil {
		return language.Und, fmt.Errorf("invalid collation %q: %w", c.Collation, err)
	}
	return tag, nil
}

// Level parses LogLevel (debug, info, warn, error).
func (c Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	return level, nil
}
