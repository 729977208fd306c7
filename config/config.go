package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "TASKDECK"

// Config holds the client settings.
type Config struct {
	APIURL           string        `mapstructure:"api_url"`
	RequestTimeout   time.Duration `mapstructure:"request_timeout"`
	RedisURL         string        `mapstructure:"redis_url"`
	CacheTTL         time.Duration `mapstructure:"cache_ttl"`
	ReconcileWorkers int           `mapstructure:"reconcile_workers"`
	PageSize         int           `mapstructure:"page_size"`
	CommentPageSize  int           `mapstructure:"comment_page_size"`
	JWKSURL          string        `mapstructure:"jwks_url"`
	JWTSecret        string        `mapstructure:"jwt_secret"`
	SessionFile      string        `mapstructure:"session_file"`
	Debug            bool          `mapstructure:"debug"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		APIURL:           "http://localhost:8080/api",
		RequestTimeout:   15 * time.Second,
		CacheTTL:         5 * time.Minute,
		ReconcileWorkers: 4,
		PageSize:         10,
		CommentPageSize:  100,
		SessionFile:      filepath.Join(Dir(), "session.yaml"),
	}
}

// Dir is the per-user directory holding configuration and session state.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".taskdeck"
	}
	return filepath.Join(home, ".taskdeck")
}

// Load merges defaults, ~/.taskdeck/config.yaml, ./.taskdeck.yaml and
// TASKDECK_* environment variables, in that order. A .env file in the working
// directory is loaded into the environment first.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return LoadFiles(filepath.Join(Dir(), "config.yaml"), ".taskdeck.yaml")
}

// LoadFiles is Load with explicit config file paths. Missing files are skipped.
func LoadFiles(paths ...string) (Config, error) {
	v := newViper()
	for _, path := range paths {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			continue
		}
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.MergeInConfig(); err != nil {
			return Config{}, fmt.Errorf("read %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	def := Default()
	v.SetDefault("api_url", def.APIURL)
	v.SetDefault("request_timeout", def.RequestTimeout)
	v.SetDefault("redis_url", "")
	v.SetDefault("cache_ttl", def.CacheTTL)
	v.SetDefault("reconcile_workers", def.ReconcileWorkers)
	v.SetDefault("page_size", def.PageSize)
	v.SetDefault("comment_page_size", def.CommentPageSize)
	v.SetDefault("jwks_url", "")
	v.SetDefault("jwt_secret", "")
	v.SetDefault("session_file", def.SessionFile)
	v.SetDefault("debug", false)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// DEBUG without prefix mirrors the services' switch.
	_ = v.BindEnv("debug", envPrefix+"_DEBUG", "DEBUG")
	return v
}

// Validate rejects settings the client cannot run with.
func (c Config) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid api_url %q", c.APIURL)
	}
	if c.RequestTimeout <= 0 {
		return errors.New("invalid request_timeout: must be greater than zero")
	}
	if c.CacheTTL < 0 {
		return errors.New("invalid cache_ttl: must not be negative")
	}
	if c.ReconcileWorkers <= 0 {
		return errors.New("invalid reconcile_workers: must be greater than zero")
	}
	if c.PageSize <= 0 {
		return errors.New("invalid page_size: must be greater than zero")
	}
	if c.CommentPageSize <= 0 {
		return errors.New("invalid comment_page_size: must be greater than zero")
	}
	if c.JWKSURL != "" {
		if _, err := url.ParseRequestURI(c.JWKSURL); err != nil {
			return fmt.Errorf("invalid jwks_url: %w", err)
		}
	}
	return nil
}
