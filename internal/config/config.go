package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. DENTAL_JWT_SECRET.
const EnvPrefix = "DENTAL"

type Config struct {
	Server   ServerConfig   `mapstructure:"server" split_words:"true"`
	Database DatabaseConfig `mapstructure:"database" split_words:"true"`
	JWT      JWTConfig      `mapstructure:"jwt" split_words:"true"`
	SMTP     SMTPConfig     `mapstructure:"smtp" split_words:"true"`
	Redis    RedisConfig    `mapstructure:"redis" split_words:"true"`
	Reminder ReminderConfig `mapstructure:"reminder" split_words:"true"`
	Cache    CacheConfig    `mapstructure:"cache" split_words:"true"`
	Log      LogConfig      `mapstructure:"log" split_words:"true"`
	Metrics  MetricsConfig  `mapstructure:"metrics" split_words:"true"`
}

type ServerConfig struct {
	Port         int           `mapstructure:"port" split_words:"true"`
	Mode         string        `mapstructure:"mode" split_words:"true"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" split_words:"true"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" split_words:"true"`
	// RequestTimeout bounds the context handed to services
	RequestTimeout time.Duration `mapstructure:"request_timeout" split_words:"true"`
	MaxBodyBytes   int64         `mapstructure:"max_body_bytes" split_words:"true"`
	CORSOrigins    []string      `mapstructure:"cors_origins" split_words:"true"`
	RateLimit      struct {
		Enabled           bool    `mapstructure:"enabled" split_words:"true"`
		RequestsPerSecond float64 `mapstructure:"requests_per_second" split_words:"true"`
		Burst             int     `mapstructure:"burst" split_words:"true"`
	} `mapstructure:"rate_limit" split_words:"true"`
}

type DatabaseConfig struct {
	URL             string        `mapstructure:"url" split_words:"true"`
	Host            string        `mapstructure:"host" split_words:"true"`
	Port            int           `mapstructure:"port" split_words:"true"`
	User            string        `mapstructure:"user" split_words:"true"`
	Password        string        `mapstructure:"password" split_words:"true"`
	Name            string        `mapstructure:"name" split_words:"true"`
	SSLMode         string        `mapstructure:"sslmode" split_words:"true"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" split_words:"true"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" split_words:"true"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" split_words:"true"`
}

// DSN returns URL when set, otherwise a key/value connection string.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret" split_words:"true"`
	Issuer      string `mapstructure:"issuer" split_words:"true"`
	ExpiryHours int    `mapstructure:"expiry_hours" split_words:"true"`
}

type SMTPConfig struct {
	Enabled   bool   `mapstructure:"enabled" split_words:"true"`
	Host      string `mapstructure:"host" split_words:"true"`
	Port      int    `mapstructure:"port" split_words:"true"`
	Username  string `mapstructure:"username" split_words:"true"`
	Password  string `mapstructure:"password" split_words:"true"`
	FromEmail string `mapstructure:"from_email" split_words:"true"`
	FromName  string `mapstructure:"from_name" split_words:"true"`
	// Breaker settings for the outbound sender
	MaxFailures  int           `mapstructure:"max_failures" split_words:"true"`
	ResetTimeout time.Duration `mapstructure:"reset_timeout" split_words:"true"`
}

type RedisConfig struct {
	URL     string `mapstructure:"url" split_words:"true"`
	Channel string `mapstructure:"channel" split_words:"true"`
}

type ReminderConfig struct {
	Enabled   bool          `mapstructure:"enabled" split_words:"true"`
	Interval  time.Duration `mapstructure:"interval" split_words:"true"`
	Lookahead time.Duration `mapstructure:"lookahead" split_words:"true"`
	Timezone  string        `mapstructure:"timezone" split_words:"true"`
}

// Location resolves Timezone. Validate guarantees it loads.
func (c ReminderConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

type CacheConfig struct {
	UserTTL         time.Duration `mapstructure:"user_ttl" split_words:"true"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval" split_words:"true"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" split_words:"true"`
	Pretty bool   `mapstructure:"pretty" split_words:"true"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" split_words:"true"`
	Path    string `mapstructure:"path" split_words:"true"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.request_timeout", 10*time.Second)
	v.SetDefault("server.max_body_bytes", 1<<20)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.rate_limit.enabled", true)
	v.SetDefault("server.rate_limit.requests_per_second", 20.0)
	v.SetDefault("server.rate_limit.burst", 40)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.name", "dental")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 30*time.Minute)

	v.SetDefault("jwt.issuer", "dental-scheduler")
	v.SetDefault("jwt.expiry_hours", 24)

	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.from_name", "Dental Clinic")
	v.SetDefault("smtp.max_failures", 5)
	v.SetDefault("smtp.reset_timeout", time.Minute)

	v.SetDefault("redis.channel", "notifications")

	v.SetDefault("reminder.enabled", true)
	v.SetDefault("reminder.interval", 5*time.Minute)
	v.SetDefault("reminder.lookahead", 24*time.Hour)
	v.SetDefault("reminder.timezone", "Europe/Oslo")

	v.SetDefault("cache.user_ttl", 5*time.Minute)
	v.SetDefault("cache.cleanup_interval", 10*time.Minute)

	v.SetDefault("log.level", "info")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}

// Load reads .env, then config.yaml (optional), then DENTAL_* overrides.
// An explicit path replaces the search paths.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/app/config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.JWT.Secret == "" {
		return errors.New("jwt secret is required")
	}
	if c.JWT.ExpiryHours <= 0 {
		return fmt.Errorf("invalid jwt expiry: %d hours", c.JWT.ExpiryHours)
	}
	if c.Reminder.Interval <= 0 {
		return fmt.Errorf("invalid reminder interval: %s", c.Reminder.Interval)
	}
	if c.Reminder.Lookahead <= 0 {
		return fmt.Errorf("invalid reminder lookahead: %s", c.Reminder.Lookahead)
	}
	if _, err := time.LoadLocation(c.Reminder.Timezone); err != nil {
		return fmt.Errorf("invalid reminder timezone %q: %w", c.Reminder.Timezone, err)
	}
	if c.SMTP.Enabled && (c.SMTP.Host == "" || c.SMTP.FromEmail == "") {
		return errors.New("smtp host and from_email are required when smtp is enabled")
	}
	return nil
}
