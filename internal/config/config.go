package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all mnemo configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Storage  StorageConfig  `yaml:"storage"`
	Auth     AuthConfig     `yaml:"auth"`
	Study    StudyConfig    `yaml:"study"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	Bind string `yaml:"bind"`
	Port int    `yaml:"port"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"` // "sqlite" or "postgres"
	Path   string `yaml:"path"`   // sqlite file
	DSN    string `yaml:"dsn"`    // postgres connection string
}

// StorageConfig points at an S3-compatible bucket. An empty endpoint keeps
// blobs in memory, which is only useful for local development.
type StorageConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	UseSSL    bool   `yaml:"use_ssl"`
	URLExpiry string `yaml:"url_expiry"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
	TokenTTL  string `yaml:"token_ttl"`
}

type StudyConfig struct {
	Cooldown      string `yaml:"cooldown"`       // default spacing between two studies of one exercise
	PurgeAfter    string `yaml:"purge_after"`    // how long marked exercises are kept for restore
	PurgeInterval string `yaml:"purge_interval"` // how often the purge runs
}

type LoggingConfig struct {
	Level       string `yaml:"level"` // debug, info, warn, error
	Development bool   `yaml:"development"`
}

const (
	defaultURLExpiry     = 15 * time.Minute
	defaultTokenTTL      = 30 * 24 * time.Hour
	defaultCooldown      = 10 * time.Minute
	defaultPurgeAfter    = 30 * 24 * time.Hour
	defaultPurgeInterval = 24 * time.Hour

	// DevJWTSecret is the placeholder signing secret. Validate accepts it only
	// with logging.development set.
	DevJWTSecret = "mnemo-dev-secret-change-me"
)

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Bind: "127.0.0.1",
			Port: 4000,
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			Path:   "", // resolved at runtime via store.DefaultDBPath()
		},
		Storage: StorageConfig{
			Bucket:    "mnemo",
			Region:    "us-east-1",
			URLExpiry: defaultURLExpiry.String(),
		},
		Auth: AuthConfig{
			JWTSecret: DevJWTSecret,
			TokenTTL:  defaultTokenTTL.String(),
		},
		Study: StudyConfig{
			Cooldown:      defaultCooldown.String(),
			PurgeAfter:    defaultPurgeAfter.String(),
			PurgeInterval: defaultPurgeInterval.String(),
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// DefaultPath returns ~/.mnemo/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".mnemo", "config.yaml"), nil
}

// Load reads a YAML config file on top of the defaults. A missing file is not
// an error. Environment overrides are applied last.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return cfg, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	setString := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	setString(&c.Server.Bind, "MNEMO_BIND")
	if v := os.Getenv("MNEMO_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}

	setString(&c.Database.Driver, "MNEMO_DB_DRIVER")
	setString(&c.Database.Path, "MNEMO_DB_PATH")
	if dsn := os.Getenv("MNEMO_DB_DSN"); dsn != "" {
		c.Database.DSN = dsn
		// A DSN without an explicit driver means postgres.
		if os.Getenv("MNEMO_DB_DRIVER") == "" {
			c.Database.Driver = "postgres"
		}
	}

	setString(&c.Storage.Endpoint, "MNEMO_S3_ENDPOINT")
	setString(&c.Storage.AccessKey, "MNEMO_S3_ACCESS_KEY")
	setString(&c.Storage.SecretKey, "MNEMO_S3_SECRET_KEY")
	setString(&c.Storage.Bucket, "MNEMO_S3_BUCKET")
	setString(&c.Storage.Region, "MNEMO_S3_REGION")
	if v := os.Getenv("MNEMO_S3_USE_SSL"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Storage.UseSSL = b
		}
	}

	setString(&c.Auth.JWTSecret, "MNEMO_JWT_SECRET")
	setString(&c.Logging.Level, "MNEMO_LOG_LEVEL")
}

// Validate reports configuration that cannot work.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite":
	case "postgres":
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret must not be empty")
	}
	if c.Auth.JWTSecret == DevJWTSecret && !c.Logging.Development {
		return fmt.Errorf("auth.jwt_secret is the development placeholder; set a secret (MNEMO_JWT_SECRET) or enable logging.development")
	}
	for name, v := range map[string]string{
		"storage.url_expiry":   c.Storage.URLExpiry,
		"auth.token_ttl":       c.Auth.TokenTTL,
		"study.purge_interval": c.Study.PurgeInterval,
	} {
		if v == "" {
			continue
		}
		if d, err := time.ParseDuration(v); err != nil || d <= 0 {
			return fmt.Errorf("%s must be a positive duration, got %q", name, v)
		}
	}
	if c.Storage.Endpoint != "" && c.Storage.Bucket == "" {
		return fmt.Errorf("storage.bucket is required when storage.endpoint is set")
	}
	return nil
}

// ListenAddr returns the bind:port address string.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Bind, c.Server.Port)
}

func (c *Config) URLExpiry() time.Duration {
	return parsePositive(c.Storage.URLExpiry, defaultURLExpiry)
}

func (c *Config) TokenTTL() time.Duration {
	return parsePositive(c.Auth.TokenTTL, defaultTokenTTL)
}

func (c *Config) Cooldown() time.Duration {
	return parseDuration(c.Study.Cooldown, defaultCooldown)
}

func (c *Config) PurgeAfter() time.Duration {
	return parseDuration(c.Study.PurgeAfter, defaultPurgeAfter)
}

func (c *Config) PurgeInterval() time.Duration {
	return parsePositive(c.Study.PurgeInterval, defaultPurgeInterval)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return fallback
	}
	return d
}

// parsePositive is parseDuration for values where zero makes no sense.
func parsePositive(s string, fallback time.Duration) time.Duration {
	if d := parseDuration(s, fallback); d > 0 {
		return d
	}
	return fallback
}
