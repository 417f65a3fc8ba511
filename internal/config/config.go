package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Log      LogConfig      `yaml:"log"`
	Seed     SeedConfig     `yaml:"seed"`
}

// ServerConfig holds listener settings for the API and metrics servers
type ServerConfig struct {
	Port            int           `yaml:"port"`
	MetricsPort     int           `yaml:"metrics_port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	// AllowedOrigins lists the browser origins accepted on the websocket
	// feed. Empty means same-origin only.
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// DatabaseConfig selects the gorm dialect and connection
type DatabaseConfig struct {
	Dialect      string        `yaml:"dialect"`
	DSN          string        `yaml:"dsn"`
	LogSQL       bool          `yaml:"log_sql"`
	MaxIdleConns int           `yaml:"max_idle_conns"`
	MaxOpenConns int           `yaml:"max_open_conns"`
	ConnLifetime time.Duration `yaml:"conn_lifetime"`
}

// AuthConfig holds session signing and the seeded admin account
type AuthConfig struct {
	JWTSecret      string        `yaml:"jwt_secret"`
	SessionTTL     time.Duration `yaml:"session_ttl"`
	AdminName      string        `yaml:"admin_name"`
	AdminEmail     string        `yaml:"admin_email"`
	AdminPassword  string        `yaml:"admin_password"`
	LoginRateLimit float64       `yaml:"login_rate_limit"`
	LoginBurst     int           `yaml:"login_burst"`
	SecureCookies  bool          `yaml:"secure_cookies"`
}

// LogConfig controls the logrus logger
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// SeedConfig controls reference data seeding at startup
type SeedConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			MetricsPort:     9090,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Dialect:      "sqlite3",
			DSN:          "comanda.db",
			MaxIdleConns: 10,
			MaxOpenConns: 100,
			ConnLifetime: time.Hour,
		},
		Auth: AuthConfig{
			SessionTTL:     7 * 24 * time.Hour,
			AdminName:      "Administrador",
			AdminEmail:     "admin@restaurant.com",
			LoginRateLimit: 1,
			LoginBurst:     5,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Seed: SeedConfig{Enabled: true},
	}
}

// Load reads an optional .env file, the YAML file at path (if non-empty) and
// then COMANDA_* environment overrides, in that order.
func Load(path, envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	strs := map[string]*string{
		"COMANDA_DB_DIALECT":     &c.Database.Dialect,
		"COMANDA_DB_DSN":         &c.Database.DSN,
		"COMANDA_JWT_SECRET":     &c.Auth.JWTSecret,
		"COMANDA_ADMIN_NAME":     &c.Auth.AdminName,
		"COMANDA_ADMIN_EMAIL":    &c.Auth.AdminEmail,
		"COMANDA_ADMIN_PASSWORD": &c.Auth.AdminPassword,
		"COMANDA_LOG_LEVEL":      &c.Log.Level,
		"COMANDA_LOG_FORMAT":     &c.Log.Format,
	}
	for key, dst := range strs {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}

	ints := map[string]*int{
		"COMANDA_PORT":         &c.Server.Port,
		"COMANDA_METRICS_PORT": &c.Server.MetricsPort,
	}
	for key, dst := range ints {
		if v, ok := os.LookupEnv(key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", key, err)
			}
			*dst = n
		}
	}

	if v, ok := os.LookupEnv("COMANDA_ALLOWED_ORIGINS"); ok {
		c.Server.AllowedOrigins = nil
		for _, origin := range strings.Split(v, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				c.Server.AllowedOrigins = append(c.Server.AllowedOrigins, origin)
			}
		}
	}

	if v, ok := os.LookupEnv("COMANDA_SEED"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid COMANDA_SEED: %w", err)
		}
		c.Seed.Enabled = b
	}
	return nil
}

// Validate checks the configuration for missing or inconsistent values
func (c *Config) Validate() error {
	switch c.Database.Dialect {
	case "sqlite3", "postgres":
	default:
		return fmt.Errorf("unsupported database dialect %q", c.Database.Dialect)
	}
	if c.Database.DSN == "" {
		return errors.New("database dsn is required")
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("auth jwt_secret is required")
	}
	if len(c.Auth.JWTSecret) < 16 {
		return errors.New("auth jwt_secret must be at least 16 characters")
	}
	if c.Auth.SessionTTL <= 0 {
		return errors.New("auth session_ttl must be positive")
	}
	if c.Seed.Enabled && c.Auth.AdminEmail != "" && c.Auth.AdminPassword == "" {
		return errors.New("auth admin_password is required when seeding an admin account")
	}
	if c.Server.Port <= 0 || c.Server.MetricsPort <= 0 {
		return errors.New("server ports must be positive")
	}
	return nil
}
