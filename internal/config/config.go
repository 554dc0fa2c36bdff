// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	// DefaultPepper is the development-only pepper for password digests.
	DefaultPepper = "change-me-board-pepper"
	// DefaultDBPassword is the development-only database password.
	DefaultDBPassword = "password"
)

// Supported database drivers.
const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite"
)

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	Env           string `mapstructure:"APP_ENV"`
	Port          string `mapstructure:"PORT"`
	Host          string `mapstructure:"HOST"`
	APIPrefix     string `mapstructure:"API_PREFIX"`
	Version       string `mapstructure:"APP_VERSION"`
	EnableSwagger bool   `mapstructure:"ENABLE_SWAGGER"`
	EnableMetrics bool   `mapstructure:"ENABLE_METRICS"`

	DBDriver                 string `mapstructure:"DB_DRIVER"`
	DBHost                   string `mapstructure:"DB_HOST"`
	DBPort                   string `mapstructure:"DB_PORT"`
	DBUser                   string `mapstructure:"DB_USER"`
	DBPassword               string `mapstructure:"DB_PASSWORD"`
	DBName                   string `mapstructure:"DB_NAME"`
	DBSSLMode                string `mapstructure:"DB_SSLMODE"`
	DBMaxOpenConns           int    `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBMaxIdleConns           int    `mapstructure:"DB_MAX_IDLE_CONNS"`
	DBConnMaxLifetimeMinutes int    `mapstructure:"DB_CONN_MAX_LIFETIME_MINUTES"`
	DBAutoMigrate            bool   `mapstructure:"DB_AUTO_MIGRATE"`

	PasswordHashAlgorithm string `mapstructure:"PASSWORD_HASH_ALGORITHM"`
	PasswordDigestBits    int    `mapstructure:"PASSWORD_DIGEST_BITS"`
	PasswordPepper        string `mapstructure:"PASSWORD_PEPPER"`
	BcryptCost            int    `mapstructure:"BCRYPT_COST"`

	LogLevel             string `mapstructure:"LOG_LEVEL"`
	LogFormat            string `mapstructure:"LOG_FORMAT"`
	LogTimezone          string `mapstructure:"LOG_TIMEZONE"`
	LogToFile            bool   `mapstructure:"LOG_TO_FILE"`
	LogFile              string `mapstructure:"LOG_FILE"`
	LogErrorFile         string `mapstructure:"LOG_ERROR_FILE"`
	EnableRequestLogging bool   `mapstructure:"ENABLE_REQUEST_LOGGING"`

	RedisURL                    string        `mapstructure:"REDIS_URL"`
	AllowedOrigins              string        `mapstructure:"ALLOWED_ORIGINS"`
	TrustedProxies              string        `mapstructure:"TRUSTED_PROXIES"`
	RateLimitMax                int           `mapstructure:"RATE_LIMIT_MAX"`
	RateLimitWindow             time.Duration `mapstructure:"RATE_LIMIT_WINDOW"`
	PasswordRateLimit           int           `mapstructure:"PASSWORD_RATE_LIMIT"`
	PasswordRateLimitFailClosed bool          `mapstructure:"PASSWORD_RATE_LIMIT_FAIL_CLOSED"`

	BodyLimitMB     int           `mapstructure:"BODY_LIMIT_MB"`
	IdleTimeout     time.Duration `mapstructure:"IDLE_TIMEOUT"`
	ReadTimeout     time.Duration `mapstructure:"READ_TIMEOUT"`
	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`

	TracingEnabled      bool    `mapstructure:"TRACING_ENABLED"`
	TracingExporter     string  `mapstructure:"TRACING_EXPORTER"`
	OTLPEndpoint        string  `mapstructure:"OTLP_ENDPOINT"`
	TracingSamplerRatio float64 `mapstructure:"TRACING_SAMPLER_RATIO"`
}

// envAliases lists legacy variable names accepted for a key, in priority order.
var envAliases = map[string][]string{
	"APP_ENV":                 {"APP_ENV", "NODE_ENV"},
	"DB_PASSWORD":             {"DB_PASSWORD", "DB_PASS"},
	"PASSWORD_HASH_ALGORITHM": {"PASSWORD_HASH_ALGORITHM", "ALGORITHM"},
	"PASSWORD_DIGEST_BITS":    {"PASSWORD_DIGEST_BITS", "METHOD"},
}

// LoadConfig loads application configuration from file and environment variables.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.AddConfigPath(".")
	v.AddConfigPath("..")
	v.AddConfigPath("../..")
	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.AutomaticEnv()

	for key, names := range envAliases {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	// The base file is optional.
	_ = v.ReadInConfig()

	env := v.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	if env != "development" {
		v.SetConfigName("config." + env)
		if err := v.MergeInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config.%s.yml: %w", env, err)
			}
		} else {
			slog.Info("loaded profile-specific configuration", slog.String("file", "config."+env+".yml"))
		}
	}

	setDefaults(v)
	// Production rejects password attempts it cannot count.
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "production", "prod":
		v.SetDefault("PASSWORD_RATE_LIMIT_FAIL_CLOSED", true)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("PORT", "3000")
	v.SetDefault("HOST", "0.0.0.0")
	v.SetDefault("API_PREFIX", "/api")
	v.SetDefault("APP_VERSION", "1.0.0")
	v.SetDefault("ENABLE_SWAGGER", true)
	v.SetDefault("ENABLE_METRICS", true)

	v.SetDefault("DB_DRIVER", DriverPostgres)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "")
	v.SetDefault("DB_USER", "user")
	v.SetDefault("DB_PASSWORD", DefaultDBPassword)
	v.SetDefault("DB_NAME", "board")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 25)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONN_MAX_LIFETIME_MINUTES", 5)
	v.SetDefault("DB_AUTO_MIGRATE", true)

	v.SetDefault("PASSWORD_HASH_ALGORITHM", "SHA2")
	v.SetDefault("PASSWORD_DIGEST_BITS", 256)
	v.SetDefault("PASSWORD_PEPPER", DefaultPepper)
	v.SetDefault("BCRYPT_COST", 10)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "")
	v.SetDefault("LOG_TIMEZONE", "Asia/Seoul")
	v.SetDefault("LOG_TO_FILE", false)
	v.SetDefault("LOG_FILE", "./logs/app.log")
	v.SetDefault("LOG_ERROR_FILE", "./logs/error.log")
	v.SetDefault("ENABLE_REQUEST_LOGGING", true)

	v.SetDefault("REDIS_URL", "localhost:6379")
	v.SetDefault("ALLOWED_ORIGINS", "*")
	v.SetDefault("TRUSTED_PROXIES", "")
	v.SetDefault("RATE_LIMIT_MAX", 100)
	v.SetDefault("RATE_LIMIT_WINDOW", "1m")
	v.SetDefault("PASSWORD_RATE_LIMIT", 10)
	v.SetDefault("PASSWORD_RATE_LIMIT_FAIL_CLOSED", false)

	v.SetDefault("BODY_LIMIT_MB", 10)
	v.SetDefault("IDLE_TIMEOUT", "30s")
	v.SetDefault("READ_TIMEOUT", "10s")
	v.SetDefault("SHUTDOWN_TIMEOUT", "10s")

	v.SetDefault("TRACING_ENABLED", false)
	v.SetDefault("TRACING_EXPORTER", "stdout")
	v.SetDefault("OTLP_ENDPOINT", "localhost:4318")
	v.SetDefault("TRACING_SAMPLER_RATIO", 1.0)
}

func (c *Config) normalize() {
	c.Env = strings.ToLower(strings.TrimSpace(c.Env))
	c.DBDriver = strings.ToLower(strings.TrimSpace(c.DBDriver))
	c.PasswordHashAlgorithm = strings.ToUpper(strings.TrimSpace(c.PasswordHashAlgorithm))
	if c.APIPrefix != "" && !strings.HasPrefix(c.APIPrefix, "/") {
		c.APIPrefix = "/" + c.APIPrefix
	}
	c.APIPrefix = strings.TrimRight(c.APIPrefix, "/")
	if c.DBPort == "" {
		c.DBPort = DefaultPort(c.DBDriver)
	}
}

// DefaultPort returns the conventional port for a database driver.
func DefaultPort(driver string) string {
	switch driver {
	case DriverMySQL:
		return "3306"
	case DriverPostgres:
		return "5432"
	default:
		return ""
	}
}

// IsProduction reports whether the app runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// IsDevelopment reports whether the app runs in local development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "" || c.Env == "development"
}

// BodyLimitBytes returns the request body limit in bytes.
func (c *Config) BodyLimitBytes() int {
	return c.BodyLimitMB * 1024 * 1024
}

// TrustedProxyList returns the proxies whose X-Forwarded-For header is
// honoured when resolving the client IP.
func (c *Config) TrustedProxyList() []string {
	var out []string
	for _, p := range strings.Split(c.TrustedProxies, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate ensures that required configuration values are present and meet security standards.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}

	switch c.DBDriver {
	case DriverPostgres, DriverMySQL, DriverSQLite:
	default:
		return fmt.Errorf("DB_DRIVER %q is not supported (postgres, mysql, sqlite)", c.DBDriver)
	}

	switch c.PasswordHashAlgorithm {
	case "SHA2", "SHA3":
	default:
		return fmt.Errorf("PASSWORD_HASH_ALGORITHM %q is not supported (SHA2, SHA3)", c.PasswordHashAlgorithm)
	}
	switch c.PasswordDigestBits {
	case 224, 256, 384, 512:
	default:
		return fmt.Errorf("PASSWORD_DIGEST_BITS %d is not supported (224, 256, 384, 512)", c.PasswordDigestBits)
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return fmt.Errorf("BCRYPT_COST must be between 4 and 31, got %d", c.BcryptCost)
	}
	if c.PasswordPepper == "" {
		return errors.New("PASSWORD_PEPPER is required")
	}
	if c.RateLimitMax <= 0 {
		return errors.New("RATE_LIMIT_MAX must be positive")
	}
	if c.BodyLimitMB <= 0 {
		return errors.New("BODY_LIMIT_MB must be positive")
	}

	if c.IsProduction() {
		if c.PasswordPepper == DefaultPepper {
			return errors.New("PASSWORD_PEPPER must be changed from the default value in production")
		}
		if c.DBDriver != DriverSQLite && (c.DBPassword == DefaultDBPassword || c.DBPassword == "") {
			return errors.New("a strong DB_PASSWORD is required in production")
		}
		if c.DBDriver == DriverPostgres && (c.DBSSLMode == "disable" || c.DBSSLMode == "") {
			slog.Warn("DB_SSLMODE is 'disable' in production, SSL is recommended for database connections")
		}
		if c.AllowedOrigins == "*" {
			slog.Warn("ALLOWED_ORIGINS is set to '*' in production")
		}
	}

	return nil
}
