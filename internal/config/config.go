package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/arawak/toolshelf/internal/imaging"
)

const (
	DefaultBind           = ":8080"
	DefaultDBDriver       = "mysql"
	DefaultImageMaxBytes  = imaging.DefaultMaxBytes
	DefaultImageTimeout   = imaging.DefaultFetchTimeout
	DefaultAPIKeysFile    = "api-keys.yaml"
	DefaultServerURL      = "http://localhost:8080"
	DefaultEnsureParallel = 8
)

type AuthMode string

const (
	AuthNone   AuthMode = "none"
	AuthAPIKey AuthMode = "apikey"
)

type Config struct {
	Bind               string
	DBDriver           string
	DBDSN              string
	AuthMode           AuthMode
	APIKeysFile        string
	CORSAllowedOrigins []string
	LogLevel           string
	SwaggerUIPath      string
	OpenAPIPath        string
}

// ClientConfig is what the admin CLI needs to reach a running server and to
// convert images locally.
type ClientConfig struct {
	ServerURL         string
	APIKey            string
	LogLevel          string
	EnsureParallel    int
	ImageMaxBytes     int64
	ImageFetchTimeout time.Duration
	ImageVerify       bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Bind:               getenv("TOOLSHELF_BIND", DefaultBind),
		DBDriver:           getenv("TOOLSHELF_DB_DRIVER", DefaultDBDriver),
		AuthMode:           AuthMode(getenv("TOOLSHELF_AUTH_MODE", string(AuthAPIKey))),
		CORSAllowedOrigins: splitAndTrim(os.Getenv("TOOLSHELF_CORS_ALLOWED_ORIGINS")),
		LogLevel:           os.Getenv("TOOLSHELF_LOG_LEVEL"),
		SwaggerUIPath:      "/swagger",
		OpenAPIPath:        "/openapi.yaml",
	}

	cfg.DBDSN = os.Getenv("TOOLSHELF_DB_DSN")
	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("TOOLSHELF_DB_DSN is required")
	}

	switch cfg.DBDriver {
	case "mysql", "sqlite":
	default:
		return nil, fmt.Errorf("invalid TOOLSHELF_DB_DRIVER: %s", cfg.DBDriver)
	}

	switch cfg.AuthMode {
	case AuthNone, AuthAPIKey:
	default:
		return nil, fmt.Errorf("invalid TOOLSHELF_AUTH_MODE: %s", cfg.AuthMode)
	}

	if cfg.AuthMode == AuthAPIKey {
		cfg.APIKeysFile = getenv("TOOLSHELF_API_KEYS_FILE", DefaultAPIKeysFile)
	}

	return cfg, nil
}

func LoadClient() *ClientConfig {
	_ = godotenv.Load()

	return &ClientConfig{
		ServerURL:         getenv("TOOLSHELF_URL", DefaultServerURL),
		APIKey:            os.Getenv("TOOLSHELF_API_KEY"),
		LogLevel:          os.Getenv("TOOLSHELF_LOG_LEVEL"),
		EnsureParallel:    getInt("TOOLSHELF_ENSURE_PARALLEL", DefaultEnsureParallel),
		ImageMaxBytes:     getInt64("TOOLSHELF_IMAGE_MAX_BYTES", DefaultImageMaxBytes),
		ImageFetchTimeout: getDuration("TOOLSHELF_IMAGE_FETCH_TIMEOUT", DefaultImageTimeout),
		ImageVerify:       getBool("TOOLSHELF_IMAGE_VERIFY", false),
	}
}

// SlogLevel maps a LOG_LEVEL value to a slog level, defaulting to info.
func SlogLevel(v string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(v)) {
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

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

func getInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.ParseInt(v, 10, 64)
		if err == nil {
			return i
		}
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err == nil {
			return d
		}
	}
	return def
}

func getBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		v = strings.ToLower(strings.TrimSpace(v))
		return v == "1" || v == "true" || v == "yes" || v == "y"
	}
	return def
}

func splitAndTrim(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	var out []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
