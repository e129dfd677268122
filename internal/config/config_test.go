package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_FileAndDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
jwt:
  secret: file-secret
reminder:
  interval: 1m
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "file-secret", cfg.JWT.Secret)
	assert.Equal(t, time.Minute, cfg.Reminder.Interval)
	assert.Equal(t, 24*time.Hour, cfg.Reminder.Lookahead)
	assert.Equal(t, "Europe/Oslo", cfg.Reminder.Timezone)
	assert.Equal(t, "notifications", cfg.Redis.Channel)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, `
jwt:
  secret: file-secret
`)
	t.Setenv("DENTAL_JWT_SECRET", "env-secret")
	t.Setenv("DENTAL_DATABASE_URL", "postgres://u:p@db:5432/dental?sslmode=disable")
	t.Setenv("DENTAL_REMINDER_LOOKAHEAD", "12h")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "env-secret", cfg.JWT.Secret)
	assert.Equal(t, "postgres://u:p@db:5432/dental?sslmode=disable", cfg.Database.DSN())
	assert.Equal(t, 12*time.Hour, cfg.Reminder.Lookahead)
}

func TestLoad_IgnoresUnprefixedEnvironment(t *testing.T) {
	path := writeConfig(t, `
database:
  user: dental
jwt:
  secret: file-secret
`)
	t.Setenv("PATH", "/usr/local/bin:/usr/bin")
	t.Setenv("USER", "root")
	t.Setenv("PORT", "1234")
	t.Setenv("HOST", "shell-host")
	t.Setenv("NAME", "shell-name")
	t.Setenv("SECRET", "shell-secret")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.Equal(t, "dental", cfg.Database.User)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, "dental", cfg.Database.Name)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 587, cfg.SMTP.Port)
	assert.Empty(t, cfg.SMTP.Host)
	assert.Equal(t, "file-secret", cfg.JWT.Secret)
}

func TestLoad_SplitWordOverrides(t *testing.T) {
	path := writeConfig(t, "jwt:\n  secret: s\n")
	t.Setenv("DENTAL_SERVER_REQUEST_TIMEOUT", "3s")
	t.Setenv("DENTAL_SERVER_RATE_LIMIT_BURST", "7")
	t.Setenv("DENTAL_CACHE_USER_TTL", "30s")
	t.Setenv("DENTAL_SMTP_FROM_NAME", "Smile Dental")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 3*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, 7, cfg.Server.RateLimit.Burst)
	assert.Equal(t, 30*time.Second, cfg.Cache.UserTTL)
	assert.Equal(t, "Smile Dental", cfg.SMTP.FromName)
}

func TestLoad_MissingSecret(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 8080\n")

	_, err := Load(path)
	assert.ErrorContains(t, err, "jwt secret")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		c := &Config{}
		c.Server.Port = 8080
		c.JWT.Secret = "s"
		c.JWT.ExpiryHours = 1
		c.Reminder.Interval = time.Minute
		c.Reminder.Lookahead = time.Hour
		c.Reminder.Timezone = "Europe/Oslo"
		return c
	}

	require.NoError(t, valid().Validate())

	c := valid()
	c.Reminder.Interval = 0
	assert.Error(t, c.Validate())

	c = valid()
	c.Reminder.Timezone = "Mars/Olympus"
	assert.Error(t, c.Validate())

	c = valid()
	c.SMTP.Enabled = true
	assert.Error(t, c.Validate())
}

func TestDatabaseConfig_DSN(t *testing.T) {
	c := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", Name: "dental", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=dental sslmode=disable", c.DSN())
}
