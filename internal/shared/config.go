package shared

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Config is resolved in three layers: built-in defaults, then the YAML file
// named by CONFIG_FILE, then environment variables (a .env file is loaded
// into the environment first and never overrides what is already set).
type Config struct {
	AppEnv      string `yaml:"app_env"`
	LogLevel    string `yaml:"log_level"`
	HTTPAddr    string `yaml:"http_addr"`
	MetricsAddr string `yaml:"metrics_addr"`

	StoreBackend string `yaml:"store_backend"` // mysql | memory
	MySQLDSN     string `yaml:"mysql_dsn"`

	RedisAddr       string `yaml:"redis_addr"`
	RedisPass       string `yaml:"redis_password"`
	RedisDB         int    `yaml:"redis_db"`
	CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`

	PublicBaseURL         string `yaml:"public_base_url"`
	RequestTimeoutSeconds int    `yaml:"request_timeout_seconds"`

	ICalTimeoutSeconds int   `yaml:"ical_timeout_seconds"`
	ICalRPS            int   `yaml:"ical_rps"`
	ICalMaxBytes       int64 `yaml:"ical_max_bytes"`
	CalSyncWorkers     int   `yaml:"calsync_workers"`
}

func defaults() Config {
	return Config{
		AppEnv:                "prod",
		LogLevel:              "info",
		HTTPAddr:              ":8080",
		MetricsAddr:           ":9100",
		StoreBackend:          "mysql",
		MySQLDSN:              "root:root@tcp(localhost:3306)/listings?parseTime=true&charset=utf8mb4,utf8&loc=UTC",
		RedisAddr:             "localhost:6379",
		CacheTTLSeconds:       900,
		RequestTimeoutSeconds: 15,
		ICalTimeoutSeconds:    10,
		ICalRPS:               5,
		ICalMaxBytes:          5 << 20,
		CalSyncWorkers:        8,
	}
}

func Load() (Config, error) {
	_ = godotenv.Load()

	c := defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &c); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	c.AppEnv = env("APP_ENV", c.AppEnv)
	c.LogLevel = env("LOG_LEVEL", c.LogLevel)
	c.HTTPAddr = env("HTTP_ADDR", c.HTTPAddr)
	c.MetricsAddr = env("METRICS_ADDR", c.MetricsAddr)
	c.StoreBackend = strings.ToLower(env("STORE_BACKEND", c.StoreBackend))
	c.MySQLDSN = env("MYSQL_DSN", c.MySQLDSN)
	c.RedisAddr = env("REDIS_ADDR", c.RedisAddr)
	c.RedisPass = env("REDIS_PASSWORD", c.RedisPass)
	c.RedisDB = atoi("REDIS_DB", c.RedisDB)
	c.CacheTTLSeconds = atoi("CACHE_TTL_SECONDS", c.CacheTTLSeconds)
	c.PublicBaseURL = env("PUBLIC_BASE_URL", c.PublicBaseURL)
	c.RequestTimeoutSeconds = atoi("REQUEST_TIMEOUT_SECONDS", c.RequestTimeoutSeconds)
	c.ICalTimeoutSeconds = atoi("ICAL_TIMEOUT_SECONDS", c.ICalTimeoutSeconds)
	c.ICalRPS = atoi("ICAL_RPS", c.ICalRPS)
	c.ICalMaxBytes = int64(atoi("ICAL_MAX_BYTES", int(c.ICalMaxBytes)))
	c.CalSyncWorkers = atoi("CALSYNC_WORKERS", c.CalSyncWorkers)

	switch c.StoreBackend {
	case "mysql", "memory":
	default:
		return Config{}, fmt.Errorf("STORE_BACKEND must be mysql or memory, got %q", c.StoreBackend)
	}
	if c.StoreBackend == "memory" && c.AppEnv == "prod" {
		log.Warn().Msg("memory store in prod: data is lost on restart")
	}
	if c.CalSyncWorkers <= 0 {
		c.CalSyncWorkers = 1
	}
	return c, nil
}

func (c Config) CacheTTL() time.Duration { return time.Duration(c.CacheTTLSeconds) * time.Second }

func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

func (c Config) ICalTimeout() time.Duration { return time.Duration(c.ICalTimeoutSeconds) * time.Second }

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func atoi(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		log.Warn().Str("key", k).Str("value", v).Msg("ignoring non-integer config value")
	}
	return def
}
