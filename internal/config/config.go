// Package config reads agora settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultAPIURL      = "http://localhost:5000/api"
	DefaultOutputDir   = "output"
	DefaultCacheDriver = "sqlite"
	DefaultCacheDSN    = "agora.db"
	DefaultLogLevel    = "info"

	defaultPollSeconds = 30
	minPollSeconds     = 5
)

// ErrNoAPIKey is returned by RequireAPIKey when no OpenRouter key is set.
var ErrNoAPIKey = errors.New("config: OPENROUTER_API_KEY is required")

type Config struct {
	APIURL       string
	Token        string
	RefreshToken string
	TokenFile    string

	APIKey        string
	Model         string
	OpenRouterURL string

	PollInterval time.Duration
	CacheDriver  string
	CacheDSN     string
	RedisURL     string
	LogLevel     string
	MetricsAddr  string
	OutputDir    string
}

func Load() (*Config, error) {
	pollSeconds, err := envInt("AGORA_POLL_INTERVAL", defaultPollSeconds)
	if err != nil {
		return nil, err
	}
	if pollSeconds < minPollSeconds {
		return nil, fmt.Errorf("config: AGORA_POLL_INTERVAL must be >= %d, got %d", minPollSeconds, pollSeconds)
	}

	driver := strings.ToLower(envString("AGORA_CACHE_DRIVER", DefaultCacheDriver))
	if driver != "sqlite" && driver != "postgres" {
		return nil, fmt.Errorf("config: AGORA_CACHE_DRIVER must be sqlite or postgres, got %q", driver)
	}

	level := strings.ToLower(envString("AGORA_LOG_LEVEL", DefaultLogLevel))
	switch level {
	case "trace", "debug", "info", "warn", "error", "disabled":
	default:
		return nil, fmt.Errorf("config: invalid AGORA_LOG_LEVEL %q", level)
	}

	return &Config{
		APIURL:        strings.TrimRight(envString("AGORA_API_URL", DefaultAPIURL), "/"),
		Token:         os.Getenv("AGORA_TOKEN"),
		RefreshToken:  os.Getenv("AGORA_REFRESH_TOKEN"),
		TokenFile:     os.Getenv("AGORA_TOKEN_FILE"),
		APIKey:        os.Getenv("OPENROUTER_API_KEY"),
		Model:         os.Getenv("AGORA_MODEL"),
		OpenRouterURL: os.Getenv("OPENROUTER_BASE_URL"),
		PollInterval:  time.Duration(pollSeconds) * time.Second,
		CacheDriver:   driver,
		CacheDSN:      envString("AGORA_CACHE_DSN", DefaultCacheDSN),
		RedisURL:      os.Getenv("AGORA_REDIS_URL"),
		LogLevel:      level,
		MetricsAddr:   os.Getenv("AGORA_METRICS_ADDR"),
		OutputDir:     envString("AGORA_OUTPUT_DIR", DefaultOutputDir),
	}, nil
}

// RequireAPIKey fails when commands that talk to OpenRouter have no key.
func (c *Config) RequireAPIKey() error {
	if c.APIKey == "" {
		return ErrNoAPIKey
	}
	return nil
}

// LoadDotEnv loads path into the environment without overriding variables
// that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("config: loading %s: %w", path, err)
	}
	return nil
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func envInt(key string, defaultVal int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("config: invalid %s value %q: %w", key, s, err)
	}
	return v, nil
}
