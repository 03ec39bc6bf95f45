// Package config provides configuration loading and validation for the CLI
// and the local editor server.
package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jonathan/cv-builder/internal/export"
	"github.com/jonathan/cv-builder/internal/logger"
)

// Environment variables read by FromEnv
const (
	EnvAPIURL         = "CVBUILDER_API_URL"
	EnvStorageDSN     = "CVBUILDER_STORAGE_DSN"
	EnvLogLevel       = "CVBUILDER_LOG_LEVEL"
	EnvLogFormat      = "CVBUILDER_LOG_FORMAT"
	EnvTimeout        = "CVBUILDER_TIMEOUT_SECONDS"
	EnvUseBrowser     = "CVBUILDER_USE_BROWSER"
	EnvExportDir      = "CVBUILDER_EXPORT_DIR"
	EnvServerAddr     = "CVBUILDER_SERVER_ADDR"
	EnvAllowedOrigins = "CVBUILDER_ALLOWED_ORIGINS"
	EnvS3Bucket       = "CVBUILDER_S3_BUCKET"
	EnvS3Prefix       = "CVBUILDER_S3_PREFIX"
	EnvS3Region       = "CVBUILDER_S3_REGION"
	EnvS3Endpoint     = "CVBUILDER_S3_ENDPOINT"
	EnvS3AccessKey    = "CVBUILDER_S3_ACCESS_KEY_ID"
	EnvS3SecretKey    = "CVBUILDER_S3_SECRET_ACCESS_KEY"
	EnvS3PathStyle    = "CVBUILDER_S3_PATH_STYLE"
)

// Config represents the client configuration. Every field is optional in a
// config file; Resolve fills the gaps from the environment and the defaults.
type Config struct {
	APIURL     string `json:"api_url,omitempty"`     // Backend base URL
	StorageDSN string `json:"storage_dsn,omitempty"` // Local state store, see storage.Open
	LogLevel   string `json:"log_level,omitempty"`
	LogFormat  string `json:"log_format,omitempty"` // console or json

	// TimeoutSeconds bounds each backend call; 0 disables the client-side timeout.
	TimeoutSeconds int `json:"timeout_seconds,omitempty"`

	UseBrowser    bool `json:"use_browser,omitempty"`     // Headless browser for client-rendered job postings
	JobCacheHours int  `json:"job_cache_hours,omitempty"` // How long fetched job postings are reused

	ExportDir string          `json:"export_dir,omitempty"` // Directory sink for exports when no bucket is set
	S3        export.S3Config `json:"s3,omitempty"`

	ServerAddr     string   `json:"server_addr,omitempty"`
	AllowedOrigins []string `json:"allowed_origins,omitempty"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		APIURL:        "http://localhost:8000",
		StorageDSN:    DefaultStorageDSN(),
		LogLevel:      "info",
		LogFormat:     logger.FormatConsole,
		JobCacheHours: 24,
		ExportDir:     ".",
		ServerAddr:    "127.0.0.1:8080",
	}
}

// DefaultStorageDSN is a SQLite file in the user's config directory, or in
// the working directory when that cannot be determined.
func DefaultStorageDSN() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".cvbuilder", "state.db")
	}
	return filepath.Join(dir, "cvbuilder", "state.db")
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// FromEnv reads the CVBUILDER_* variables through getenv. Unset variables
// leave their fields empty; malformed numbers and booleans are errors.
func FromEnv(getenv func(string) string) (Config, error) {
	cfg := Config{
		APIURL:     getenv(EnvAPIURL),
		StorageDSN: getenv(EnvStorageDSN),
		LogLevel:   getenv(EnvLogLevel),
		LogFormat:  getenv(EnvLogFormat),
		ExportDir:  getenv(EnvExportDir),
		ServerAddr: getenv(EnvServerAddr),
		S3: export.S3Config{
			Bucket:          getenv(EnvS3Bucket),
			Prefix:          getenv(EnvS3Prefix),
			Region:          getenv(EnvS3Region),
			Endpoint:        getenv(EnvS3Endpoint),
			AccessKeyID:     getenv(EnvS3AccessKey),
			SecretAccessKey: getenv(EnvS3SecretKey),
		},
	}

	if v := getenv(EnvTimeout); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %v", EnvTimeout, err)
		}
		cfg.TimeoutSeconds = n
	}
	for name, dst := range map[string]*bool{EnvUseBrowser: &cfg.UseBrowser, EnvS3PathStyle: &cfg.S3.UsePathStyle} {
		if v := getenv(name); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return Config{}, fmt.Errorf("invalid %s: %v", name, err)
			}
			*dst = b
		}
	}
	if v := getenv(EnvAllowedOrigins); v != "" {
		for _, origin := range strings.Split(v, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, origin)
			}
		}
	}
	return cfg, nil
}

// Resolve builds the effective configuration: environment over the config
// file at path (skipped when path is empty) over Defaults. The result is validated.
func Resolve(path string, getenv func(string) string) (*Config, error) {
	env, err := FromEnv(getenv)
	if err != nil {
		return nil, err
	}

	file := Config{}
	if path != "" {
		loaded, err := LoadConfig(path)
		if err != nil {
			return nil, err
		}
		file = *loaded
	}

	merged := env.MergeWithDefaults(file)
	cfg := merged.MergeWithDefaults(Defaults())
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	if c.APIURL != "" {
		u, err := url.Parse(c.APIURL)
		if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			return fmt.Errorf("config error: 'api_url' must be an http(s) URL, got %q", c.APIURL)
		}
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config error: unknown 'log_level' %q", c.LogLevel)
	}
	if c.LogFormat != "" && c.LogFormat != logger.FormatConsole && c.LogFormat != logger.FormatJSON {
		return fmt.Errorf("config error: 'log_format' must be %q or %q", logger.FormatConsole, logger.FormatJSON)
	}
	if c.TimeoutSeconds < 0 {
		return fmt.Errorf("config error: 'timeout_seconds' must be non-negative")
	}
	if c.JobCacheHours < 0 {
		return fmt.Errorf("config error: 'job_cache_hours' must be non-negative")
	}
	if c.S3.Bucket == "" && (c.S3.Prefix != "" || c.S3.Endpoint != "" || c.S3.AccessKeyID != "") {
		return fmt.Errorf("config error: 's3.bucket' is required when other s3 settings are given")
	}
	if (c.S3.AccessKeyID == "") != (c.S3.SecretAccessKey == "") {
		return fmt.Errorf("config error: 's3.access_key_id' and 's3.secret_access_key' must be set together")
	}
	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
// This is used to layer the environment, the config file and the built-in values.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	fill := func(dst *string, def string) {
		if *dst == "" {
			*dst = def
		}
	}
	fill(&result.APIURL, defaults.APIURL)
	fill(&result.StorageDSN, defaults.StorageDSN)
	fill(&result.LogLevel, defaults.LogLevel)
	fill(&result.LogFormat, defaults.LogFormat)
	fill(&result.ExportDir, defaults.ExportDir)
	fill(&result.ServerAddr, defaults.ServerAddr)

	if result.TimeoutSeconds == 0 {
		result.TimeoutSeconds = defaults.TimeoutSeconds
	}
	if result.JobCacheHours == 0 {
		result.JobCacheHours = defaults.JobCacheHours
	}
	if len(result.AllowedOrigins) == 0 {
		result.AllowedOrigins = append([]string(nil), defaults.AllowedOrigins...)
	}

	// The bucket settings travel together.
	if result.S3.Bucket == "" {
		result.S3 = defaults.S3
	}

	// Bools cannot distinguish unset from false; any layer may turn them on.
	result.UseBrowser = result.UseBrowser || defaults.UseBrowser

	return result
}

// S3Enabled reports whether exports go to a bucket.
func (c *Config) S3Enabled() bool {
	return c.S3.Bucket != ""
}
