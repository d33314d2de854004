package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrConfiguration is the sentinel wrapped by every configuration failure:
// missing file, YAML syntax error, missing section/field, weight-sum mismatch.
// Callers can errors.Is() against it to distinguish startup config problems
// from other errors.
var ErrConfiguration = errors.New("configuration error")

// DefaultPath is used when neither an explicit path nor CONFIG_PATH is set.
const DefaultPath = "configs/config.yaml"

// weightSumTolerance is the permitted deviation of governance weight sums
// from 1.0. Changing this silently changes validation behaviour.
const weightSumTolerance = 0.001

// requiredSections lists the top-level YAML sections that must be present,
// in the order they are checked. Validation reports the first missing one.
var requiredSections = []string{
	"collection",
	"database",
	"api",
	"postman",
	"governance",
	"logging",
}

// Config is the root configuration for Postman Probe.
// It is loaded once at startup and treated as read-only afterwards.
type Config struct {
	Collection CollectionConfig `yaml:"collection"`
	Database   DatabaseConfig   `yaml:"database"`
	API        APIConfig        `yaml:"api"`
	Postman    PostmanConfig    `yaml:"postman"`
	Governance GovernanceConfig `yaml:"governance"`
	Logging    LoggingConfig    `yaml:"logging"`

	// InfluxDB is optional; it is not a required section and defaults to
	// disabled.
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
}

// CollectionConfig controls the scheduled collection job.
type CollectionConfig struct {
	// Schedule is a standard 5-field cron expression (e.g. "*/30 * * * *").
	Schedule string `yaml:"schedule"`

	// TimeoutSeconds bounds a single collection run end to end.
	TimeoutSeconds int `yaml:"timeout_seconds"`

	// SnapshotRetentionDays is how long score snapshots are kept.
	// 0 disables pruning.
	SnapshotRetentionDays int `yaml:"snapshot_retention_days"`
}

// DatabaseConfig contains SQLite settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// PostmanConfig contains Postman API client settings.
type PostmanConfig struct {
	// APIKey authenticates against the Postman API (X-Api-Key header).
	APIKey string `yaml:"api_key"`

	// BaseURL defaults to https://api.postman.com when empty.
	BaseURL string `yaml:"base_url"`

	// TimeoutSeconds is the per-request HTTP timeout.
	TimeoutSeconds int `yaml:"timeout_seconds"`

	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig caps outbound Postman API requests.
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute"`
}

// GovernanceConfig contains compliance scoring settings.
type GovernanceConfig struct {
	// Weights maps category name to its fractional contribution to the
	// overall score. Values must sum to 1.0 within 0.001.
	Weights map[string]float64 `yaml:"weights"`

	Rules RulesConfig `yaml:"rules"`
}

// RulesConfig tunes individual governance rule checks.
type RulesConfig struct {
	// NamingPattern is the regular expression collection names must match.
	NamingPattern string `yaml:"naming_pattern"`

	// MinDescriptionLength is the minimum description length considered
	// documented.
	MinDescriptionLength int `yaml:"min_description_length"`
}

// InfluxDBConfig contains optional time-series export settings. When
// enabled, each collection run's scores are written to InfluxDB in
// addition to the local snapshot table.
type InfluxDBConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Token   string `yaml:"token"`
	Org     string `yaml:"org"`
	Bucket  string `yaml:"bucket"`

	// BatchSize is the number of points buffered before a write.
	BatchSize int `yaml:"batch_size"`

	// FlushInterval is the automatic flush interval in seconds.
	FlushInterval int `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level    string            `yaml:"level"`
	Format   string            `yaml:"format"`
	Output   string            `yaml:"output"`
	File     FileLoggingConfig `yaml:"file"`
	Security SecurityConfig    `yaml:"security"`
}

// FileLoggingConfig contains rotating-file sink settings.
type FileLoggingConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Path       string `yaml:"path"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
	Compress   bool   `yaml:"compress"`
}

// SecurityConfig controls log sanitisation and the audit channel.
type SecurityConfig struct {
	// MaskAPIKeys gates the whole sanitisation pipeline.
	MaskAPIKeys bool `yaml:"mask_api_keys"`

	// ExcludeHeaders lists metadata keys (matched by exact lowercase name)
	// whose values are replaced wholesale with [REDACTED].
	ExcludeHeaders []string `yaml:"exclude_headers"`

	Audit AuditConfig `yaml:"audit"`
}

// AuditConfig gates the audit event channel.
type AuditConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Load reads configuration from a YAML file and applies environment
// variable overrides from the process environment.
//
// Path resolution order:
//  1. explicitPath argument (when non-empty)
//  2. CONFIG_PATH environment variable
//  3. DefaultPath
//
// The load is a single-shot pipeline: resolve → read → parse → validate →
// override. Any failure aborts the whole load and wraps ErrConfiguration.
func Load(explicitPath string) (*Config, error) {
	return LoadWithEnv(explicitPath, envSnapshot())
}

// LoadWithEnv is Load with an explicit environment snapshot, enabling
// deterministic tests without touching process state.
func LoadWithEnv(explicitPath string, env map[string]string) (*Config, error) {
	path := ResolvePath(explicitPath, env)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading config file %s: %w", ErrConfiguration, path, err)
	}

	// Parse into a raw document first so missing sections are detectable;
	// unmarshalling straight into the struct would silently zero them.
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: parsing config file: %w", ErrConfiguration, err)
	}

	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: parsing config file: %w", ErrConfiguration, err)
	}

	if err := validateSections(raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	if err := applyEnvOverrides(cfg, env); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	return cfg, nil
}

// ResolvePath returns the configuration file path for the given explicit
// argument and environment snapshot.
func ResolvePath(explicitPath string, env map[string]string) string {
	if explicitPath != "" {
		return explicitPath
	}
	if path := env["CONFIG_PATH"]; path != "" {
		return path
	}
	return DefaultPath
}

// defaultConfig returns a Config with sensible defaults. YAML values
// override these, and environment variables override YAML.
func defaultConfig() *Config {
	return &Config{
		// collection.schedule, database.path and api.port carry no
		// defaults: they are required and validation must catch their
		// absence rather than paper over it.
		Collection: CollectionConfig{
			TimeoutSeconds:        300,
			SnapshotRetentionDays: 90,
		},
		Database: DatabaseConfig{
			WALMode:     true,
			BusyTimeout: 5,
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		Postman: PostmanConfig{
			BaseURL:        "https://api.postman.com",
			TimeoutSeconds: 30,
			RateLimit: RateLimitConfig{
				RequestsPerMinute: 60,
			},
		},
		Governance: GovernanceConfig{
			Rules: RulesConfig{
				NamingPattern:        `^[A-Z][A-Za-z0-9 ._-]*$`,
				MinDescriptionLength: 10,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
			Security: SecurityConfig{
				MaskAPIKeys: true,
				ExcludeHeaders: []string{
					"authorization",
					"x-api-key",
					"cookie",
				},
			},
		},
	}
}

// validateSections checks that every required top-level section exists in
// the raw document, reporting the first missing one by name.
func validateSections(raw map[string]any) error {
	for _, section := range requiredSections {
		if _, ok := raw[section]; !ok {
			return fmt.Errorf("missing required section: %s", section)
		}
	}
	return nil
}

// Validate checks required fields and governance business rules.
func (c *Config) Validate() error {
	if c.Collection.Schedule == "" {
		return fmt.Errorf("collection.schedule is required")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.API.Port == 0 {
		return fmt.Errorf("api.port is required")
	}
	if c.API.Port < 1 || c.API.Port > 65535 {
		return fmt.Errorf("api.port must be between 1 and 65535")
	}

	var sum float64
	for _, w := range c.Governance.Weights {
		sum += w
	}
	if math.Abs(sum-1.0) > weightSumTolerance {
		return fmt.Errorf("governance.weights must sum to 1.0, got %v", sum)
	}

	return nil
}

// applyEnvOverrides applies the recognised environment overrides in place.
//
// The whitelist is closed by design: only these five variables are
// consulted, preventing arbitrary override injection.
func applyEnvOverrides(cfg *Config, env map[string]string) error {
	if v := env["COLLECTION_SCHEDULE"]; v != "" {
		cfg.Collection.Schedule = v
	}
	if v := env["DATABASE_PATH"]; v != "" {
		cfg.Database.Path = v
	}
	if v := env["API_PORT"]; v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("API_PORT must be an integer, got %q", v)
		}
		cfg.API.Port = port
	}
	if v := env["LOG_LEVEL"]; v != "" {
		cfg.Logging.Level = v
	}
	if v := env["POSTMAN_RATE_LIMIT"]; v != "" {
		rpm, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("POSTMAN_RATE_LIMIT must be an integer, got %q", v)
		}
		cfg.Postman.RateLimit.RequestsPerMinute = rpm
	}
	return nil
}

// envSnapshot captures the recognised environment variables from the
// process environment.
func envSnapshot() map[string]string {
	env := make(map[string]string)
	for _, key := range []string{
		"CONFIG_PATH",
		"COLLECTION_SCHEDULE",
		"DATABASE_PATH",
		"API_PORT",
		"LOG_LEVEL",
		"POSTMAN_RATE_LIMIT",
	} {
		if v, ok := os.LookupEnv(key); ok {
			env[key] = v
		}
	}
	return env
}

// ExcludedHeaderSet returns the lowercase exclude-header set for the
// sanitiser.
func (s SecurityConfig) ExcludedHeaderSet() map[string]struct{} {
	set := make(map[string]struct{}, len(s.ExcludeHeaders))
	for _, h := range s.ExcludeHeaders {
		set[strings.ToLower(h)] = struct{}{}
	}
	return set
}
