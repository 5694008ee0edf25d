// Package config handles application configuration and environment loading.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Defaults for the public NYC TLC mirror and the local layout.
const (
	DefaultBaseURL    = "https://github.com/DataTalksClub/nyc-tlc-data/releases/download"
	DefaultDataDir    = "data"
	DefaultDBPath     = "taxi_rides_ny.duckdb"
	DefaultIgnoreFile = ".gitignore"
	DefaultConfigFile = "taxi-ingest.yaml"

	// Schema is the namespace every trip table is created in.
	Schema = "prod"
)

// Config holds everything a run needs besides the command-line plan.
type Config struct {
	BaseURL    string // remote release root, without trailing slash
	DataDir    string // local root for per-category directories
	DBPath     string // DuckDB database file
	IgnoreFile string // version-control ignore file that receives "data/"
	Schema     string
	LogLevel   string // debug, info, warn, error (default "info")
	LogFormat  string // auto, text, json (default "auto")

	// RequestsPerSecond paces downloads. Zero means unlimited.
	RequestsPerSecond float64

	// PublishTo is an optional object-store URI (s3://, gs://, az://) that
	// receives a copy of each newly converted Parquet file.
	PublishTo string

	// S3 credentials (used when PublishTo is s3://).
	S3KeyID    string
	S3Secret   string
	S3Endpoint string
	S3Region   string
	S3URLStyle string // "path" (default) or "vhost"

	// GCS service-account key file (used when PublishTo is gs://).
	GCSKeyFile string

	// Azure shared-key credentials (used when PublishTo is az://).
	AzureAccountName string
	AzureAccountKey  string

	// Warnings collects non-fatal warnings generated during config loading.
	// These are logged by the caller after the logger is initialised.
	Warnings []string
}

// fileConfig mirrors the YAML config file. Secrets are read from the
// environment only.
type fileConfig struct {
	BaseURL           string  `yaml:"base-url,omitempty"`
	DataDir           string  `yaml:"data-dir,omitempty"`
	DBPath            string  `yaml:"db-path,omitempty"`
	IgnoreFile        string  `yaml:"ignore-file,omitempty"`
	LogLevel          string  `yaml:"log-level,omitempty"`
	LogFormat         string  `yaml:"log-format,omitempty"`
	RequestsPerSecond float64 `yaml:"requests-per-second,omitempty"`
	PublishTo         string  `yaml:"publish-to,omitempty"`
	S3Endpoint        string  `yaml:"s3-endpoint,omitempty"`
	S3Region          string  `yaml:"s3-region,omitempty"`
	S3URLStyle        string  `yaml:"s3-url-style,omitempty"`
}

// Default returns a Config populated with built-in defaults.
func Default() *Config {
	return &Config{
		BaseURL:    DefaultBaseURL,
		DataDir:    DefaultDataDir,
		DBPath:     DefaultDBPath,
		IgnoreFile: DefaultIgnoreFile,
		Schema:     Schema,
		LogLevel:   "info",
		LogFormat:  "auto",
		S3URLStyle: "path",
	}
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// HasS3Config returns true if all required S3 fields are set.
func (c *Config) HasS3Config() bool {
	return c.S3KeyID != "" && c.S3Secret != "" && c.S3Endpoint != "" && c.S3Region != ""
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL must not be empty")
	}
	if c.DataDir == "" {
		return fmt.Errorf("data dir must not be empty")
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("requests per second must be >= 0, got %v", c.RequestsPerSecond)
	}
	switch strings.ToLower(c.LogFormat) {
	case "auto", "text", "json":
	default:
		return fmt.Errorf("unsupported log format %q: use auto, text, or json", c.LogFormat)
	}
	return nil
}

// Load builds a Config from defaults, the optional YAML file at path, a
// .env file in the working directory, and finally the process environment.
// A missing config file or .env file is not an error. An empty path means
// DefaultConfigFile.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultConfigFile
	}
	if err := cfg.mergeFile(path); err != nil {
		return nil, err
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("could not load .env: %v", err))
	}
	cfg.mergeEnv()

	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // path is caller-controlled
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	setString(&c.BaseURL, fc.BaseURL)
	setString(&c.DataDir, fc.DataDir)
	setString(&c.DBPath, fc.DBPath)
	setString(&c.IgnoreFile, fc.IgnoreFile)
	setString(&c.LogLevel, fc.LogLevel)
	setString(&c.LogFormat, fc.LogFormat)
	setString(&c.PublishTo, fc.PublishTo)
	setString(&c.S3Endpoint, fc.S3Endpoint)
	setString(&c.S3Region, fc.S3Region)
	setString(&c.S3URLStyle, fc.S3URLStyle)
	if fc.RequestsPerSecond != 0 {
		c.RequestsPerSecond = fc.RequestsPerSecond
	}
	return nil
}

func (c *Config) mergeEnv() {
	setString(&c.BaseURL, os.Getenv("TAXI_BASE_URL"))
	setString(&c.DataDir, os.Getenv("TAXI_DATA_DIR"))
	setString(&c.DBPath, os.Getenv("TAXI_DB_PATH"))
	setString(&c.IgnoreFile, os.Getenv("TAXI_IGNORE_FILE"))
	setString(&c.PublishTo, os.Getenv("TAXI_PUBLISH_TO"))
	setString(&c.LogLevel, os.Getenv("LOG_LEVEL"))
	setString(&c.LogFormat, os.Getenv("LOG_FORMAT"))

	if v := os.Getenv("TAXI_REQUESTS_PER_SECOND"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.RequestsPerSecond = f
		} else {
			c.Warnings = append(c.Warnings, fmt.Sprintf("ignoring TAXI_REQUESTS_PER_SECOND=%q: not a number", v))
		}
	}

	setString(&c.S3KeyID, os.Getenv("KEY_ID"))
	setString(&c.S3Secret, os.Getenv("SECRET"))
	setString(&c.S3Endpoint, os.Getenv("ENDPOINT"))
	setString(&c.S3Region, os.Getenv("REGION"))
	setString(&c.S3URLStyle, os.Getenv("S3_URL_STYLE"))
	setString(&c.GCSKeyFile, os.Getenv("GCS_KEY_FILE"))
	setString(&c.AzureAccountName, os.Getenv("AZURE_STORAGE_ACCOUNT"))
	setString(&c.AzureAccountKey, os.Getenv("AZURE_STORAGE_KEY"))
}

func setString(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}
