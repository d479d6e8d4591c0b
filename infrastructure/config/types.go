package config

import (
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// DatabaseConfig holds PostgreSQL connection settings. DSN, when set, takes
// precedence over the individual fields.
type DatabaseConfig struct {
	DSN             string        `env:"POSTGRES_DSN"      yaml:"dsn"`
	Host            string        `env:"POSTGRES_HOST"     yaml:"host"`
	Port            int           `env:"POSTGRES_PORT"     yaml:"port"`
	User            string        `env:"POSTGRES_USER"     yaml:"user"`
	Password        string        `env:"POSTGRES_PASSWORD" yaml:"password"`
	Name            string        `env:"POSTGRES_DB"       yaml:"name"`
	SSLMode         string        `env:"POSTGRES_SSLMODE"  yaml:"sslmode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// SetDefaults fills unset connection and pool settings.
func (c *DatabaseConfig) SetDefaults() {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 5432
	}
	if c.User == "" {
		c.User = "postgres"
	}
	if c.Name == "" {
		c.Name = "tasks"
	}
	if c.SSLMode == "" {
		c.SSLMode = "disable"
	}
	if c.MaxOpenConns == 0 {
		c.MaxOpenConns = 25
	}
	if c.MaxIdleConns == 0 {
		c.MaxIdleConns = 5
	}
	if c.ConnMaxLifetime == 0 {
		c.ConnMaxLifetime = 5 * time.Minute
	}
}

// URL returns a postgres:// connection URL. It is accepted by lib/pq and by
// golang-migrate alike.
func (c *DatabaseConfig) URL() string {
	if c.DSN != "" {
		return c.DSN
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     c.Host + ":" + strconv.Itoa(c.Port),
		Path:     "/" + c.Name,
		RawQuery: "sslmode=" + url.QueryEscape(c.SSLMode),
	}
	return u.String()
}

// Redacted returns URL with the password masked, for logging.
func (c *DatabaseConfig) Redacted() string {
	u, err := url.Parse(c.URL())
	if err != nil {
		return fmt.Sprintf("postgres://%s:%d/%s", c.Host, c.Port, c.Name)
	}
	return u.Redacted()
}

// RedisConfig holds Redis connection settings. URL uses the
// redis://[user:password@]host:port/db form.
type RedisConfig struct {
	URL      string `env:"REDIS_URL"      yaml:"url"`
	Password string `env:"REDIS_PASSWORD" yaml:"password"`
}

// SetDefaults fills the Redis URL.
func (c *RedisConfig) SetDefaults() {
	if c.URL == "" {
		c.URL = "redis://localhost:6379/0"
	}
}
