package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Feed backends understood by the daemon.
const (
	FeedSQLite   = "sqlite"
	FeedRedis    = "redis"
	FeedPostgres = "postgres"
)

// Config represents the global ~/.peto/config.toml.
type Config struct {
	DefaultProfile string     `toml:"default_profile"`
	API            APIConfig  `toml:"api"`
	Feed           FeedConfig `toml:"feed"`
	User           UserConfig `toml:"user"`
	Chat           ChatConfig `toml:"chat"`
	HTTP           HTTPConfig `toml:"http"`
}

// APIConfig describes the REST backend.
type APIConfig struct {
	BaseURL        string `toml:"base_url"`
	AuthScheme     string `toml:"auth_scheme"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	Token          string `toml:"token,omitempty"`
}

// FeedConfig selects and addresses the real-time store.
type FeedConfig struct {
	Backend        string `toml:"backend"`
	RedisURL       string `toml:"redis_url,omitempty"`
	DatabaseURL    string `toml:"database_url,omitempty"`
	PollIntervalMs int    `toml:"poll_interval_ms"`
}

// UserConfig identifies the local user.
type UserConfig struct {
	ID   int64  `toml:"id"`
	Name string `toml:"name"`
}

// ChatConfig tunes room behavior.
type ChatConfig struct {
	// IncludeCounterpartInMeta lists both participants when the daemon
	// creates a feed metadata record. Off by default: other readers of the
	// record have only ever seen the creating user there.
	IncludeCounterpartInMeta bool `toml:"include_counterpart_in_meta"`
}

// HTTPConfig controls the health/metrics listener. Empty Addr disables it.
type HTTPConfig struct {
	Addr string `toml:"addr"`
}

// ErrMissingUserID means [user] id is unset. Zero is the system sender id,
// so messages sent under it would render as system notices.
var ErrMissingUserID = errors.New("user id must be set to a positive value ([user] id or PETO_USER_ID)")

// Validate reports settings the daemon cannot run with.
func (c *Config) Validate() error {
	if c.User.ID <= 0 {
		return ErrMissingUserID
	}
	return nil
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:        "http://localhost:8000/api",
			AuthScheme:     "Bearer",
			TimeoutSeconds: 30,
		},
		Feed: FeedConfig{
			Backend:        FeedSQLite,
			PollIntervalMs: 500,
		},
	}
}

// Load reads config from the given path. Returns zero config and error if file missing.
func Load(path string) (*Config, error) {
	cfg := Default()
	_, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadWithEnv reads the config file if present, falling back to defaults when
// it does not exist, then applies .env and PETO_* environment overrides.
func LoadWithEnv(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		cfg, err = Default(), nil
	}
	if err != nil {
		return nil, err
	}

	_ = godotenv.Load()
	ApplyEnv(cfg)
	return cfg, nil
}

// ApplyEnv overrides cfg fields from PETO_* environment variables.
func ApplyEnv(cfg *Config) {
	setString(&cfg.API.BaseURL, "PETO_API_URL")
	setString(&cfg.API.AuthScheme, "PETO_AUTH_SCHEME")
	setString(&cfg.API.Token, "PETO_TOKEN")
	setString(&cfg.Feed.Backend, "PETO_FEED_BACKEND")
	setString(&cfg.Feed.RedisURL, "PETO_REDIS_URL")
	setString(&cfg.Feed.DatabaseURL, "PETO_DATABASE_URL")
	setString(&cfg.User.Name, "PETO_USER_NAME")
	setString(&cfg.HTTP.Addr, "PETO_HTTP_ADDR")

	if v := os.Getenv("PETO_USER_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.User.ID = id
		}
	}
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
