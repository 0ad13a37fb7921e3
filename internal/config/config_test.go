package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "127.0.0.1:4000", cfg.ListenAddr())
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 10*time.Minute, cfg.Cooldown())
	assert.Equal(t, 15*time.Minute, cfg.URLExpiry())
	assert.Error(t, cfg.Validate(), "placeholder secret outside development")

	cfg.Logging.Development = true
	assert.NoError(t, cfg.Validate())
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Server, cfg.Server)
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
server:
  port: 9000
study:
  cooldown: 1h
storage:
  endpoint: localhost:9000
  bucket: notes
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Bind, "unset keys keep defaults")
	assert.Equal(t, time.Hour, cfg.Cooldown())
	assert.Equal(t, "localhost:9000", cfg.Storage.Endpoint)
	assert.Equal(t, "notes", cfg.Storage.Bucket)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Run("DSN implies postgres", func(t *testing.T) {
		t.Setenv("MNEMO_DB_DSN", "postgres://localhost/mnemo")
		t.Setenv("MNEMO_DB_DRIVER", "")

		cfg := Default()
		cfg.applyEnvOverrides()

		assert.Equal(t, "postgres", cfg.Database.Driver)
		assert.Equal(t, "postgres://localhost/mnemo", cfg.Database.DSN)
	})

	t.Run("explicit driver wins", func(t *testing.T) {
		t.Setenv("MNEMO_DB_DSN", "file:x.db")
		t.Setenv("MNEMO_DB_DRIVER", "sqlite")

		cfg := Default()
		cfg.applyEnvOverrides()

		assert.Equal(t, "sqlite", cfg.Database.Driver)
	})

	t.Run("storage and secrets", func(t *testing.T) {
		t.Setenv("MNEMO_S3_ENDPOINT", "s3.example.com")
		t.Setenv("MNEMO_S3_USE_SSL", "true")
		t.Setenv("MNEMO_JWT_SECRET", "s3cret")
		t.Setenv("MNEMO_PORT", "8081")

		cfg := Default()
		cfg.applyEnvOverrides()

		assert.Equal(t, "s3.example.com", cfg.Storage.Endpoint)
		assert.True(t, cfg.Storage.UseSSL)
		assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
		assert.Equal(t, 8081, cfg.Server.Port)
	})

	t.Run("bad port ignored", func(t *testing.T) {
		t.Setenv("MNEMO_PORT", "eighty")

		cfg := Default()
		cfg.applyEnvOverrides()

		assert.Equal(t, 4000, cfg.Server.Port)
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"placeholder secret in production", func(c *Config) { c.Logging.Development = false }, true},
		{"real secret in production", func(c *Config) {
			c.Logging.Development = false
			c.Auth.JWTSecret = "a-real-secret"
		}, false},
		{"zero purge interval", func(c *Config) { c.Study.PurgeInterval = "0s" }, true},
		{"negative token ttl", func(c *Config) { c.Auth.TokenTTL = "-1h" }, true},
		{"bad url expiry", func(c *Config) { c.Storage.URLExpiry = "soon" }, true},
		{"zero cooldown", func(c *Config) { c.Study.Cooldown = "0s" }, false},
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }, true},
		{"postgres without dsn", func(c *Config) { c.Database.Driver = "postgres" }, true},
		{"postgres with dsn", func(c *Config) {
			c.Database.Driver = "postgres"
			c.Database.DSN = "postgres://x"
		}, false},
		{"empty secret", func(c *Config) { c.Auth.JWTSecret = "" }, true},
		{"endpoint without bucket", func(c *Config) {
			c.Storage.Endpoint = "localhost:9000"
			c.Storage.Bucket = ""
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Logging.Development = true
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

func TestDurationFallback(t *testing.T) {
	cfg := Default()
	cfg.Study.Cooldown = "not-a-duration"
	cfg.Study.PurgeInterval = "-5m"

	assert.Equal(t, 10*time.Minute, cfg.Cooldown())
	assert.Equal(t, 24*time.Hour, cfg.PurgeInterval())

	cfg.Study.PurgeInterval = "0s"
	assert.Equal(t, 24*time.Hour, cfg.PurgeInterval(), "zero interval falls back")

	cfg.Study.Cooldown = "0s"
	assert.Equal(t, time.Duration(0), cfg.Cooldown(), "zero cooldown is allowed")
}
