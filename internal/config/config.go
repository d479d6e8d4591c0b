package config

import (
	"errors"
	"strings"
	"time"

	infraconfig "github.com/jonesrussell/task-registry/infrastructure/config"
	infraprofiling "github.com/jonesrussell/task-registry/infrastructure/profiling"
)

// Default configuration values.
const (
	defaultServiceName    = "task-registry"
	defaultServiceVersion = "0.1.0"
	defaultHost           = "0.0.0.0"
	defaultPort           = 8000
	defaultAPIPrefix      = "/api"
	defaultReadTimeout    = 30 * time.Second
	defaultWriteTimeout   = 60 * time.Second
	defaultIdleTimeout    = 120 * time.Second
	defaultMigrationsPath = "migrations"

	defaultCacheTTL        = 60 * time.Second
	defaultCacheTimeout    = 250 * time.Millisecond
	defaultStoreTimeout    = 5 * time.Second
	defaultBreakerFailures = 5
	defaultBreakerCooldown = 30 * time.Second

	defaultStartupAttempts = 30
	defaultStartupInterval = time.Second

	defaultEventsStream = "task-events"
	defaultLogLevel     = "info"
)

var defaultCORSOrigins = []string{"http://localhost:5173", "http://127.0.0.1:5173"}

// Config holds the application configuration.
type Config struct {
	Debug    bool                    `env:"APP_DEBUG" yaml:"debug"`
	Service  ServiceConfig           `yaml:"service"`
	Server   ServerConfig            `yaml:"server"`
	Database DatabaseConfig          `yaml:"database"`
	Redis    infraconfig.RedisConfig `yaml:"redis"`
	Cache    CacheConfig             `yaml:"cache"`
	Startup  StartupConfig           `yaml:"startup"`
	Events   EventsConfig            `yaml:"events"`
	Auth     AuthConfig              `yaml:"auth"`
	Logging  LoggingConfig           `yaml:"logging"`

	Profiling infraprofiling.Config `yaml:"profiling"`
}

// ServiceConfig identifies the service in logs and health output.
type ServiceConfig struct {
	Name    string `yaml:"name"`
	Version string `env:"SERVICE_VERSION" yaml:"version"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host         string        `env:"SERVER_HOST"      yaml:"host"`
	Port         int           `env:"SERVER_PORT"      yaml:"port"`
	APIPrefix    string        `env:"API_PREFIX"       yaml:"api_prefix"`
	CORSOrigins  []string      `env:"FRONTEND_ORIGINS" yaml:"cors_origins"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

// DatabaseConfig adds migration settings to the shared connection settings.
type DatabaseConfig struct {
	infraconfig.DatabaseConfig `yaml:",inline"`

	// AutoMigrate nil means true.
	AutoMigrate    *bool  `env:"DB_AUTO_MIGRATE" yaml:"auto_migrate"`
	MigrationsPath string `env:"MIGRATIONS_PATH" yaml:"migrations_path"`
}

// ShouldMigrate reports whether migrations run at startup.
func (d *DatabaseConfig) ShouldMigrate() bool {
	return d.AutoMigrate == nil || *d.AutoMigrate
}

// CacheConfig holds the task cache settings.
type CacheConfig struct {
	TTL time.Duration `env:"TASK_CACHE_TTL" yaml:"ttl"`
	// TTLSeconds overrides TTL when positive.
	TTLSeconds      int           `env:"TASK_CACHE_TTL_SECONDS" yaml:"ttl_seconds"`
	Timeout         time.Duration `env:"CACHE_TIMEOUT"          yaml:"timeout"`
	StoreTimeout    time.Duration `env:"STORE_TIMEOUT"          yaml:"store_timeout"`
	BreakerFailures int           `yaml:"breaker_failures"`
	BreakerCooldown time.Duration `yaml:"breaker_cooldown"`
}

// StartupConfig bounds the dependency readiness wait.
type StartupConfig struct {
	MaxAttempts int           `env:"STARTUP_MAX_ATTEMPTS" yaml:"max_attempts"`
	Interval    time.Duration `env:"STARTUP_INTERVAL"     yaml:"interval"`
}

// EventsConfig controls the lifecycle event stream.
type EventsConfig struct {
	Enabled bool   `env:"TASK_EVENTS_ENABLED" yaml:"enabled"`
	Stream  string `env:"TASK_EVENTS_STREAM"  yaml:"stream"`
}

// AuthConfig enables bearer auth on the API when JWTSecret is set.
type AuthConfig struct {
	JWTSecret string `env:"AUTH_JWT_SECRET" yaml:"jwt_secret"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `env:"LOG_LEVEL" yaml:"level"`
}

// Load loads configuration from the specified path.
func Load(path string) (*Config, error) {
	cfg, err := infraconfig.LoadWithDefaults[Config](path, setDefaults)
	if err != nil {
		return nil, err
	}
	if cfg.Cache.TTLSeconds > 0 {
		cfg.Cache.TTL = time.Duration(cfg.Cache.TTLSeconds) * time.Second
	}
	return cfg, nil
}

func setDefaults(cfg *Config) {
	if cfg.Service.Name == "" {
		cfg.Service.Name = defaultServiceName
	}
	if cfg.Service.Version == "" {
		cfg.Service.Version = defaultServiceVersion
	}

	setServerDefaults(&cfg.Server)

	cfg.Database.SetDefaults()
	if cfg.Database.MigrationsPath == "" {
		cfg.Database.MigrationsPath = defaultMigrationsPath
	}
	cfg.Redis.SetDefaults()

	setCacheDefaults(&cfg.Cache)

	if cfg.Startup.MaxAttempts == 0 {
		cfg.Startup.MaxAttempts = defaultStartupAttempts
	}
	if cfg.Startup.Interval == 0 {
		cfg.Startup.Interval = defaultStartupInterval
	}
	if cfg.Events.Stream == "" {
		cfg.Events.Stream = defaultEventsStream
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = defaultLogLevel
	}
	cfg.Profiling.SetDefaults()
}

func setServerDefaults(s *ServerConfig) {
	if s.Host == "" {
		s.Host = defaultHost
	}
	if s.Port == 0 {
		s.Port = defaultPort
	}
	if s.APIPrefix == "" {
		s.APIPrefix = defaultAPIPrefix
	}
	if len(s.CORSOrigins) == 0 {
		s.CORSOrigins = append([]string(nil), defaultCORSOrigins...)
	}
	if s.ReadTimeout == 0 {
		s.ReadTimeout = defaultReadTimeout
	}
	if s.WriteTimeout == 0 {
		s.WriteTimeout = defaultWriteTimeout
	}
	if s.IdleTimeout == 0 {
		s.IdleTimeout = defaultIdleTimeout
	}
}

func setCacheDefaults(c *CacheConfig) {
	if c.TTL == 0 {
		c.TTL = defaultCacheTTL
	}
	if c.Timeout == 0 {
		c.Timeout = defaultCacheTimeout
	}
	if c.StoreTimeout == 0 {
		c.StoreTimeout = defaultStoreTimeout
	}
	if c.BreakerFailures == 0 {
		c.BreakerFailures = defaultBreakerFailures
	}
	if c.BreakerCooldown == 0 {
		c.BreakerCooldown = defaultBreakerCooldown
	}
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	errs := []error{
		infraconfig.ValidatePort("server.port", c.Server.Port),
		infraconfig.ValidatePositiveDuration("cache.ttl", c.Cache.TTL),
		infraconfig.ValidatePositiveDuration("cache.timeout", c.Cache.Timeout),
		infraconfig.ValidatePositiveDuration("cache.store_timeout", c.Cache.StoreTimeout),
		infraconfig.ValidatePositive("cache.breaker_failures", c.Cache.BreakerFailures),
		infraconfig.ValidatePositiveDuration("cache.breaker_cooldown", c.Cache.BreakerCooldown),
		infraconfig.ValidatePositive("startup.max_attempts", c.Startup.MaxAttempts),
		infraconfig.ValidatePositiveDuration("startup.interval", c.Startup.Interval),
		infraconfig.ValidateRequired("redis.url", c.Redis.URL),
		infraconfig.ValidateLogLevel(c.Logging.Level),
	}
	if !strings.HasPrefix(c.Server.APIPrefix, "/") || c.Server.APIPrefix == "/" {
		errs = append(errs, &infraconfig.ValidationError{
			Field:   "server.api_prefix",
			Message: "must start with / and name a path segment",
		})
	}
	if c.Database.ShouldMigrate() {
		errs = append(errs, infraconfig.ValidateRequired("database.migrations_path", c.Database.MigrationsPath))
	}
	return errors.Join(errs...)
}
