package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Storage backends.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Config holds application configuration.
// Priority: ENV > config file > env-default tags.
type Config struct {
	Storage StorageConfig `yaml:"storage" json:"storage"`
	Log     LogConfig     `yaml:"log"     json:"log"`
	Notify  NotifyConfig  `yaml:"notify"  json:"notify"`
	Lookup  LookupConfig  `yaml:"lookup"  json:"lookup"`
	Files   FilesConfig   `yaml:"files"   json:"files"`
	MCP     MCPConfig     `yaml:"mcp"     json:"mcp"`
	Web     WebConfig     `yaml:"web"     json:"web"`
}

// StorageConfig selects and configures the key-value backend.
type StorageConfig struct {
	// Backend is "sqlite" (default, file under the data dir) or "redis".
	Backend string `yaml:"backend" json:"backend" env:"SHELF_STORAGE_BACKEND" env-default:"sqlite"`

	// DBMaxOpenConns limits open SQLite connections. 0 means sql.DB default.
	DBMaxOpenConns int `yaml:"db_max_open_conns" json:"db_max_open_conns" env:"SHELF_DB_MAX_OPEN_CONNS"`

	RedisAddr     string `yaml:"redis_addr"     json:"redis_addr"     env:"SHELF_REDIS_ADDR"     env-default:"localhost:6379"`
	RedisPassword string `yaml:"redis_password" json:"redis_password" env:"SHELF_REDIS_PASSWORD"`
	RedisDB       int    `yaml:"redis_db"       json:"redis_db"       env:"SHELF_REDIS_DB"`
	// RedisPrefix namespaces every key so several shelves can share one server.
	RedisPrefix string `yaml:"redis_prefix" json:"redis_prefix" env:"SHELF_REDIS_PREFIX" env-default:"shelf:"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level  string `yaml:"level"  json:"level"  env:"SHELF_LOG_LEVEL"  env-default:"warn"`
	Pretty bool   `yaml:"pretty" json:"pretty" env:"SHELF_LOG_PRETTY"`
}

// NotifyConfig tunes the toast dispatcher. Zero values fall back to the
// dispatcher's built-in defaults.
type NotifyConfig struct {
	ToastDuration   time.Duration `yaml:"toast_duration"    json:"toast_duration"    env:"SHELF_TOAST_DURATION"    env-default:"3s"`
	RateLimitWindow time.Duration `yaml:"rate_limit_window" json:"rate_limit_window" env:"SHELF_RATE_LIMIT_WINDOW" env-default:"1s"`
	MaxToasts       int           `yaml:"max_toasts"        json:"max_toasts"        env:"SHELF_MAX_TOASTS"        env-default:"5"`
}

// LookupConfig configures the external search and reachability collaborators.
type LookupConfig struct {
	Timeout           time.Duration `yaml:"timeout"            json:"timeout"            env:"SHELF_LOOKUP_TIMEOUT"   env-default:"5s"`
	WikipediaEndpoint string        `yaml:"wikipedia_endpoint" json:"wikipedia_endpoint" env:"SHELF_WIKIPEDIA_URL"    env-default:"https://en.wikipedia.org/w/api.php"`
	UserAgent         string        `yaml:"user_agent"         json:"user_agent"         env:"SHELF_USER_AGENT"       env-default:"shelf/1.0 (bookmark cards)"`
}

// FilesConfig restricts where import/export files may live.
type FilesConfig struct {
	// AllowedPaths is an allowlist of directories for import/export operations.
	// Paths outside <data>/exports require either being in this list or AllowUnsafePaths=true.
	// Paths should be absolute (relative paths are ignored).
	AllowedPaths []string `yaml:"allowed_paths" json:"allowed_paths" env:"SHELF_ALLOWED_PATHS" env-separator:","`

	// AllowUnsafePaths disables directory restrictions for import/export.
	// Symlink and extension checks still apply.
	AllowUnsafePaths bool `yaml:"allow_unsafe_paths" json:"allow_unsafe_paths" env:"SHELF_ALLOW_UNSAFE_PATHS"`
}

// MCPConfig controls tool registration for the MCP server.
type MCPConfig struct {
	// DisabledTools is a list of MCP tool names to exclude from registration.
	DisabledTools []string `yaml:"disabled_tools" json:"disabled_tools" env:"SHELF_MCP_DISABLED_TOOLS" env-separator:","`
}

// WebConfig controls the local HTML view.
type WebConfig struct {
	Bind string `yaml:"bind" json:"bind" env:"SHELF_WEB_BIND" env-default:"127.0.0.1"`
	Port int    `yaml:"port" json:"port" env:"SHELF_WEB_PORT" env-default:"8765"`
}

// configFiles are probed in order inside the data directory.
var configFiles = []string{"config.yaml", "config.yml", "config.json"}

// DefaultConfig returns the default configuration (env-default tags, no file, no env).
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			Backend:     BackendSQLite,
			RedisAddr:   "localhost:6379",
			RedisPrefix: "shelf:",
		},
		Log: LogConfig{Level: "warn"},
		Notify: NotifyConfig{
			ToastDuration:   3 * time.Second,
			RateLimitWindow: time.Second,
			MaxToasts:       5,
		},
		Lookup: LookupConfig{
			Timeout:           5 * time.Second,
			WikipediaEndpoint: "https://en.wikipedia.org/w/api.php",
			UserAgent:         "shelf/1.0 (bookmark cards)",
		},
		Web: WebConfig{Bind: "127.0.0.1", Port: 8765},
	}
}

// Load loads configuration from baseDir/config.{yaml,yml,json} plus SHELF_* env vars.
// Without a config file, configuration comes from env and defaults only.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.shelf.
func Load(baseDir string) (*Config, error) {
	var cfg Config

	path := FindConfigFile(baseDir)
	if path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("config: read env: %w", err)
		}
	}

	cfg.Files.AllowedPaths = cleanStringSlice(cfg.Files.AllowedPaths)
	cfg.MCP.DisabledTools = cleanStringSlice(cfg.MCP.DisabledTools)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return &cfg, nil
}

// FindConfigFile returns the first existing config file in baseDir, or "".
func FindConfigFile(baseDir string) string {
	for _, name := range configFiles {
		p := filepath.Join(baseDir, name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Validate checks value ranges that the defaults alone cannot guarantee.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendSQLite, BackendRedis:
	default:
		return fmt.Errorf("storage.backend must be one of: %s, %s (got %q)", BackendSQLite, BackendRedis, c.Storage.Backend)
	}
	if c.Notify.MaxToasts < 0 {
		return fmt.Errorf("notify.max_toasts must be >= 0")
	}
	if c.Notify.ToastDuration < 0 || c.Notify.RateLimitWindow < 0 {
		return fmt.Errorf("notify durations must be >= 0")
	}
	if c.Lookup.Timeout < 0 {
		return fmt.Errorf("lookup.timeout must be >= 0")
	}
	if c.Web.Port < 0 || c.Web.Port > 65535 {
		return fmt.Errorf("web.port out of range: %d", c.Web.Port)
	}
	return nil
}

// cleanStringSlice trims whitespace and removes empties and duplicates.
func cleanStringSlice(in []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}
	if len(result) == 0 {
		return nil
	}
	return result
}
