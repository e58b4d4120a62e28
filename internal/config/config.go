package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied before the file is parsed.
const (
	DefaultPort            = 8080
	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultRateCapacity    = 60
	DefaultRateRefill      = 1
	DefaultDriver          = "mysql"
	DefaultOpenAIModel     = "gpt-4o-mini"
	DefaultReportBucket    = "tumortrack-reports"
	DefaultMinioRegion     = "us-east-1"
	DefaultLogLevel        = "info"
	DefaultOpenAIKeyEnvVar = "OPENAI_API_KEY"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Minio    MinioConfig    `yaml:"minio"`
	OpenAI   OpenAIConfig   `yaml:"openai"`
	Auth     AuthConfig     `yaml:"auth"`
	Log      LogConfig      `yaml:"log"`
}

type ServerConfig struct {
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
	// CORSOrigins is passed to go-chi/cors; empty means same-origin only.
	CORSOrigins []string        `yaml:"cors_origins"`
	RateLimit   RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig is a per tenant+client token bucket.
type RateLimitConfig struct {
	Capacity        int `yaml:"capacity"`
	RefillPerSecond int `yaml:"refill_per_second"`
}

type DatabaseConfig struct {
	// Driver selects the repository adapter: mysql or postgres.
	Driver   string `yaml:"driver"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	// PasswordEnv names an environment variable that overrides Password.
	PasswordEnv string `yaml:"password_env"`
	Name        string `yaml:"name"`
	SSLMode     string `yaml:"sslmode"`
}

type MinioConfig struct {
	Enabled      bool   `yaml:"enabled"`
	Endpoint     string `yaml:"endpoint"`
	AccessKey    string `yaml:"accessKey"`
	SecretKey    string `yaml:"secretKey"`
	AccessKeyEnv string `yaml:"accessKeyEnv"`
	SecretKeyEnv string `yaml:"secretKeyEnv"`
	BucketName   string `yaml:"bucketName"`
	Region       string `yaml:"region"`
	UseSSL       bool   `yaml:"useSSL"`
}

type OpenAIConfig struct {
	Enabled   bool   `yaml:"enabled"`
	APIKeyEnv string `yaml:"api_key_env"`
	Model     string `yaml:"model"`
}

// AuthConfig maps each tenant to the environment variable holding its API key.
type AuthConfig struct {
	Tenants map[string]string `yaml:"tenants"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Load baca file config.yaml, apply defaults, then validate.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         DefaultPort,
			ReadTimeout:  DefaultReadTimeout,
			WriteTimeout: DefaultWriteTimeout,
			IdleTimeout:  DefaultIdleTimeout,
			RateLimit: RateLimitConfig{
				Capacity:        DefaultRateCapacity,
				RefillPerSecond: DefaultRateRefill,
			},
		},
		Database: DatabaseConfig{Driver: DefaultDriver, SSLMode: "disable"},
		Minio:    MinioConfig{BucketName: DefaultReportBucket, Region: DefaultMinioRegion},
		OpenAI:   OpenAIConfig{APIKeyEnv: DefaultOpenAIKeyEnvVar, Model: DefaultOpenAIModel},
		Log:      LogConfig{Level: DefaultLogLevel},
	}
}

func validate(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", cfg.Server.Port)
	}
	if cfg.Server.RateLimit.Capacity <= 0 || cfg.Server.RateLimit.RefillPerSecond <= 0 {
		return fmt.Errorf("server.rate_limit capacity and refill_per_second must be positive")
	}
	switch cfg.Database.Driver {
	case "mysql", "postgres":
	default:
		return fmt.Errorf("database.driver: unknown driver %q", cfg.Database.Driver)
	}
	if cfg.Database.Host == "" || cfg.Database.Name == "" {
		return fmt.Errorf("database.host and database.name are required")
	}
	if cfg.Minio.Enabled && (cfg.Minio.Endpoint == "" || cfg.Minio.BucketName == "") {
		return fmt.Errorf("minio.endpoint and minio.bucketName are required when minio is enabled")
	}
	if cfg.OpenAI.Enabled && cfg.OpenAI.APIKeyEnv == "" {
		return fmt.Errorf("openai.api_key_env is required when openai is enabled")
	}
	for tenant, env := range cfg.Auth.Tenants {
		if tenant == "" || env == "" {
			return fmt.Errorf("auth.tenants: tenant %q needs a key env name", tenant)
		}
	}
	if _, err := parseLevel(cfg.Log.Level); err != nil {
		return err
	}
	return nil
}

// DBPassword resolves the database password, preferring PasswordEnv.
func (d DatabaseConfig) DBPassword() string {
	if d.PasswordEnv != "" {
		if v := os.Getenv(d.PasswordEnv); v != "" {
			return v
		}
	}
	return d.Password
}

func (d DatabaseConfig) port() int {
	if d.Port != 0 {
		return d.Port
	}
	if d.Driver == "postgres" {
		return 5432
	}
	return 3306
}

// DSN builds the driver specific connection string for database/sql.
func (c *Config) DSN() string {
	d := c.Database
	if d.Driver == "postgres" {
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			d.Host, d.port(), d.User, d.DBPassword(), d.Name, d.SSLMode)
	}
	// Helper untuk build DSN MySQL
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC&multiStatements=true",
		d.User, d.DBPassword(), d.Host, d.port(), d.Name)
}

// MigrateURL is the golang-migrate database URL for the same database.
func (c *Config) MigrateURL() string {
	d := c.Database
	user := url.UserPassword(d.User, d.DBPassword())
	if d.Driver == "postgres" {
		return fmt.Sprintf("postgres://%s@%s:%d/%s?sslmode=%s", user.String(), d.Host, d.port(), d.Name, d.SSLMode)
	}
	return fmt.Sprintf("mysql://%s@tcp(%s:%d)/%s?multiStatements=true", user.String(), d.Host, d.port(), d.Name)
}

// Credentials resolves the MinIO keys; *Env fields win over literals.
func (m MinioConfig) Credentials() (access, secret string) {
	access, secret = m.AccessKey, m.SecretKey
	if m.AccessKeyEnv != "" {
		if v := os.Getenv(m.AccessKeyEnv); v != "" {
			access = v
		}
	}
	if m.SecretKeyEnv != "" {
		if v := os.Getenv(m.SecretKeyEnv); v != "" {
			secret = v
		}
	}
	return access, secret
}

// APIKey returns the OpenAI key from the environment.
func (o OpenAIConfig) APIKey() string {
	if o.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(o.APIKeyEnv)
}

// Keys resolves tenant API keys from the environment. Tenants whose
// variable is unset are skipped and logged.
func (a AuthConfig) Keys() map[string]string {
	out := make(map[string]string, len(a.Tenants))
	for tenant, env := range a.Tenants {
		key := strings.TrimSpace(os.Getenv(env))
		if key == "" {
			slog.Warn("config: api key env not set", "tenant", tenant, "env", env)
			continue
		}
		out[tenant] = key
	}
	return out
}

// SlogLevel maps log.level onto slog; validate guarantees it parses.
func (l LogConfig) SlogLevel() slog.Level {
	lvl, _ := parseLevel(l.Level)
	return lvl
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("log.level: unknown level %q", s)
}
