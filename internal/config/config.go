// ABOUTME: Configuration loading and parsing for summon-share
// ABOUTME: Supports YAML or TOML files with environment variable expansion, .env files and defaults

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the environment variable that overrides the config location.
const EnvConfigPath = "SUMMON_SHARE_CONFIG"

// Default values applied when a field is left empty
const (
	DefaultDatabasePath = "data/summon-share.db"
	DefaultDriver       = "sqlite"
	DefaultBusyTimeout  = 5 * time.Second
	DefaultLogLevel     = "info"
	DefaultLogFormat    = "text"
	DefaultPageSize     = 20
	DefaultMaxPageSize  = 100
)

// Config represents the complete summon-share configuration
type Config struct {
	Database DatabaseConfig `yaml:"database" toml:"database"`
	Logging  LoggingConfig  `yaml:"logging" toml:"logging"`
	Listing  ListingConfig  `yaml:"listing" toml:"listing"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path   string `yaml:"path" toml:"path"`
	Driver string `yaml:"driver" toml:"driver"` // "sqlite" (modernc) or "sqlite3" (mattn, cgo)

	BusyTimeout    time.Duration `yaml:"-" toml:"-"`
	BusyTimeoutRaw string        `yaml:"busy_timeout" toml:"busy_timeout"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"` // "text" or "json"
}

// ListingConfig holds pagination bounds for listings
type ListingConfig struct {
	PageSize    int `yaml:"page_size" toml:"page_size"`
	MaxPageSize int `yaml:"max_page_size" toml:"max_page_size"`
}

// Default returns a Config with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Files ending in .toml are parsed as TOML, everything else as YAML.
// Environment variables in the format ${VAR_NAME} are expanded first.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := expandEnvVars(string(data))

	var cfg Config
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(expanded, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	} else {
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// Locate returns the config file to load: $SUMMON_SHARE_CONFIG if set, then
// the first of config.yaml, config.yml, config.toml in dir. It returns ""
// when none exists.
func Locate(dir string) string {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	for _, name := range []string{"config.yaml", "config.yml", "config.toml"} {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// LoadEnvFile loads KEY=VALUE pairs from path into the process environment
// without overriding variables that are already set. A missing file is not
// an error.
func LoadEnvFile(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading env file %s: %w", path, err)
	}
	return nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

func (c *Config) applyDefaults() {
	if c.Database.Path == "" {
		c.Database.Path = DefaultDatabasePath
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DefaultDriver
	}
	if c.Database.BusyTimeout == 0 {
		c.Database.BusyTimeout = DefaultBusyTimeout
	}
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = DefaultLogFormat
	}
	if c.Listing.PageSize == 0 {
		c.Listing.PageSize = DefaultPageSize
	}
	if c.Listing.MaxPageSize == 0 {
		c.Listing.MaxPageSize = DefaultMaxPageSize
	}
}

// Validate checks that all configuration fields are valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	switch c.Database.Driver {
	case "sqlite", "sqlite3":
	default:
		return fmt.Errorf("database.driver must be \"sqlite\" or \"sqlite3\", got %q", c.Database.Driver)
	}

	if c.Database.BusyTimeout < 0 {
		return fmt.Errorf("database.busy_timeout must not be negative")
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}

	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be \"text\" or \"json\", got %q", c.Logging.Format)
	}

	if c.Listing.PageSize < 0 || c.Listing.MaxPageSize < 0 {
		return fmt.Errorf("listing page sizes must not be negative")
	}
	if c.Listing.PageSize > c.Listing.MaxPageSize {
		return fmt.Errorf("listing.page_size (%d) exceeds listing.max_page_size (%d)",
			c.Listing.PageSize, c.Listing.MaxPageSize)
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	if cfg.Database.BusyTimeoutRaw != "" {
		d, err := time.ParseDuration(cfg.Database.BusyTimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing busy_timeout %q: %w", cfg.Database.BusyTimeoutRaw, err)
		}
		cfg.Database.BusyTimeout = d
	}
	return nil
}

// Template is the commented YAML written by "summon-share init".
const Template = `# summon-share configuration
# Values may reference environment variables as ${VAR_NAME}.

database:
  # SQLite file; parent directories are created on first use
  path: "` + DefaultDatabasePath + `"
  # "sqlite" (pure Go) or "sqlite3" (cgo)
  driver: "` + DefaultDriver + `"
  busy_timeout: "5s"

logging:
  level: "` + DefaultLogLevel + `"
  format: "` + DefaultLogFormat + `"

listing:
  page_size: 20
  max_page_size: 100
`
