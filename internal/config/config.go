package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Backend BackendConfig `mapstructure:"backend"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Console ConsoleConfig `mapstructure:"console"`
	Logging LoggingConfig `mapstructure:"logging"`
}

type ServerConfig struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
	MiddlewareTimeout time.Duration `mapstructure:"middleware_timeout"`
	AllowedOrigins    []string      `mapstructure:"allowed_origins"`
}

// BackendConfig points the console at the remote multi-tenant API
type BackendConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Token   string        `mapstructure:"token"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// AuthConfig controls how operator tokens are read
type AuthConfig struct {
	// TokenSecret verifies HS256 operator tokens. When empty the signature is
	// left to the backend and only the claims are read.
	TokenSecret  string `mapstructure:"token_secret"`
	AccountClaim string `mapstructure:"account_claim"`
}

// Cache drivers
const (
	CacheDriverMemory = "memory"
	CacheDriverSQLite = "sqlite"
	CacheDriverRedis  = "redis"
)

// CacheConfig selects where session snapshots are persisted
type CacheConfig struct {
	Driver string `mapstructure:"driver"`
	// SessionID scopes persisted entries; reusing it across restarts restores the cache
	SessionID  string        `mapstructure:"session_id"`
	MaxAge     time.Duration `mapstructure:"max_age"`
	SQLitePath string        `mapstructure:"sqlite_path"`
	// SessionTTL bounds how long a redis session keyspace survives without writes
	SessionTTL time.Duration `mapstructure:"session_ttl"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type ConsoleConfig struct {
	PageSize           int `mapstructure:"page_size"`
	NotificationBuffer int `mapstructure:"notification_buffer"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	// File enables a rotating log file in addition to stderr
	File         string        `mapstructure:"file"`
	RotationTime time.Duration `mapstructure:"rotation_time"`
	MaxAge       time.Duration `mapstructure:"max_age"`
}

// Load reads configuration from file and environment variables
func Load() (*Config, error) {
	v := viper.New()

	// Set config file path
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./configs/config.yaml"
	}

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, use defaults and env vars
	}

	// Override with environment variables
	v.AutomaticEnv()
	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects configurations the console cannot start with
func (c *Config) Validate() error {
	switch c.Cache.Driver {
	case CacheDriverMemory, CacheDriverSQLite, CacheDriverRedis:
	default:
		return fmt.Errorf("unsupported cache driver: %q", c.Cache.Driver)
	}
	if c.Backend.BaseURL == "" {
		return errors.New("backend.base_url is required")
	}
	if c.Console.PageSize <= 0 {
		return fmt.Errorf("console.page_size must be positive, got %d", c.Console.PageSize)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	// Server
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8090)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.middleware_timeout", "30s")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	// Backend
	v.SetDefault("backend.base_url", "http://localhost:5000/api")
	v.SetDefault("backend.timeout", "15s")

	// Auth
	v.SetDefault("auth.account_claim", "accountId")

	// Cache
	v.SetDefault("cache.driver", CacheDriverMemory)
	v.SetDefault("cache.max_age", "5m")
	v.SetDefault("cache.sqlite_path", "./data/console-cache.db")
	v.SetDefault("cache.session_ttl", "12h")

	// Redis
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)

	// Console
	v.SetDefault("console.page_size", 10)
	v.SetDefault("console.notification_buffer", 50)

	// Logging
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.rotation_time", "24h")
	v.SetDefault("logging.max_age", "168h") // 7 days
}

func bindEnvVars(v *viper.Viper) {
	// Backend
	v.BindEnv("backend.base_url", "BACKEND_URL")
	v.BindEnv("backend.token", "BACKEND_TOKEN")

	// Auth
	v.BindEnv("auth.token_secret", "TOKEN_SECRET")

	// Cache
	v.BindEnv("cache.driver", "CACHE_DRIVER")
	v.BindEnv("cache.session_id", "CONSOLE_SESSION_ID")

	// Redis
	v.BindEnv("redis.password", "REDIS_PASSWORD")

	// Logging
	v.BindEnv("logging.level", "LOG_LEVEL")
}
