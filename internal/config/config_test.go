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
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CAMPUSBUY_JWT_SECRET", "access-secret")
	t.Setenv("CAMPUSBUY_JWT_REFRESH_SECRET", "refresh-secret")

	cfg, err := Load(writeConfig(t, "log:\n  level: debug\n"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, DriverSQLite, cfg.Storage.Driver)
	assert.Equal(t, 15*time.Minute, cfg.JWT.AccessDuration)
	assert.Equal(t, 7*24*time.Hour, cfg.JWT.RefreshDuration)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.False(t, cfg.Sweeper.Enabled)
	assert.Equal(t, ":8080", cfg.Server.Addr())
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("CAMPUSBUY_JWT_SECRET", "access-secret")
	t.Setenv("CAMPUSBUY_JWT_REFRESH_SECRET", "refresh-secret")
	t.Setenv("CAMPUSBUY_SERVER_PORT", "9090")
	t.Setenv("CAMPUSBUY_STORAGE_DRIVER", "mongo")
	t.Setenv("CAMPUSBUY_STORAGE_MONGO_TIMEOUT", "3s")

	path := writeConfig(t, `
server:
  port: 7000
storage:
  driver: sqlite
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, DriverMongo, cfg.Storage.Driver)
	assert.Equal(t, 3*time.Second, cfg.Storage.Mongo.Timeout)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Server:  ServerConfig{Port: 8080},
			Storage: StorageConfig{Driver: DriverSQLite, SQLite: SQLiteConfig{Path: "x.db"}},
			JWT: JWTConfig{
				Secret:          "a",
				RefreshSecret:   "b",
				AccessDuration:  time.Minute,
				RefreshDuration: time.Hour,
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing secret", mutate: func(c *Config) { c.JWT.Secret = "" }, wantErr: true},
		{name: "shared secrets", mutate: func(c *Config) { c.JWT.RefreshSecret = c.JWT.Secret }, wantErr: true},
		{name: "unknown driver", mutate: func(c *Config) { c.Storage.Driver = "postgres" }, wantErr: true},
		{name: "mongo without uri", mutate: func(c *Config) {
			c.Storage.Driver = DriverMongo
			c.Storage.Mongo.Database = "campusbuy"
		}, wantErr: true},
		{name: "bad port", mutate: func(c *Config) { c.Server.Port = 70000 }, wantErr: true},
		{name: "rate limit without burst", mutate: func(c *Config) {
			c.RateLimit = RateLimitConfig{Enabled: true, RPS: 5}
		}, wantErr: true},
		{name: "sweeper without schedule", mutate: func(c *Config) { c.Sweeper.Enabled = true }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
