package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Env:                   "development",
		Port:                  "3000",
		DBDriver:              DriverPostgres,
		DBPassword:            "secure-password",
		DBSSLMode:             "require",
		PasswordHashAlgorithm: "SHA2",
		PasswordDigestBits:    256,
		PasswordPepper:        "a-long-and-secret-pepper",
		BcryptCost:            10,
		RateLimitMax:          100,
		BodyLimitMB:           10,
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")

	c, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "3000", c.Port)
	assert.Equal(t, "0.0.0.0", c.Host)
	assert.Equal(t, "/api", c.APIPrefix)
	assert.Equal(t, DriverPostgres, c.DBDriver)
	assert.Equal(t, "5432", c.DBPort)
	assert.Equal(t, 25, c.DBMaxOpenConns)
	assert.Equal(t, "SHA2", c.PasswordHashAlgorithm)
	assert.Equal(t, 256, c.PasswordDigestBits)
	assert.Equal(t, 100, c.RateLimitMax)
	assert.Equal(t, time.Minute, c.RateLimitWindow)
	assert.Equal(t, 30*time.Second, c.IdleTimeout)
	assert.Equal(t, 10*time.Second, c.ShutdownTimeout)
	assert.Equal(t, 10*1024*1024, c.BodyLimitBytes())
	assert.True(t, c.EnableRequestLogging)
	assert.True(t, c.IsDevelopment())
	assert.False(t, c.PasswordRateLimitFailClosed)
	assert.Empty(t, c.TrustedProxyList())
}

func TestLoadConfig_ProductionFailsClosed(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("PASSWORD_PEPPER", "a-long-and-secret-pepper")
	t.Setenv("DB_PASSWORD", "secure-password")

	c, err := LoadConfig()
	require.NoError(t, err)
	assert.True(t, c.PasswordRateLimitFailClosed)

	t.Setenv("PASSWORD_RATE_LIMIT_FAIL_CLOSED", "false")
	c, err = LoadConfig()
	require.NoError(t, err)
	assert.False(t, c.PasswordRateLimitFailClosed)
}

func TestConfig_TrustedProxyList(t *testing.T) {
	c := &Config{TrustedProxies: " 10.0.0.1, ,192.168.0.0/16 "}
	assert.Equal(t, []string{"10.0.0.1", "192.168.0.0/16"}, c.TrustedProxyList())
}

func TestLoadConfig_LegacyAliases(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("NODE_ENV", "test")
	t.Setenv("DB_PASS", "legacy-secret")
	t.Setenv("ALGORITHM", "sha3")
	t.Setenv("METHOD", "512")
	t.Setenv("DB_DRIVER", "MySQL")

	c, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "test", c.Env)
	assert.Equal(t, "legacy-secret", c.DBPassword)
	assert.Equal(t, "SHA3", c.PasswordHashAlgorithm)
	assert.Equal(t, 512, c.PasswordDigestBits)
	assert.Equal(t, DriverMySQL, c.DBDriver)
	assert.Equal(t, "3306", c.DBPort)
}

func TestLoadConfig_APIPrefixNormalization(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("API_PREFIX", "v1/")

	c, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "/v1", c.APIPrefix)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(c *Config)
		expectError bool
	}{
		{"valid development config", func(c *Config) {}, false},
		{"missing port", func(c *Config) { c.Port = "" }, true},
		{"unknown driver", func(c *Config) { c.DBDriver = "oracle" }, true},
		{"unknown algorithm", func(c *Config) { c.PasswordHashAlgorithm = "MD5" }, true},
		{"unsupported digest bits", func(c *Config) { c.PasswordDigestBits = 128 }, true},
		{"bcrypt cost too low", func(c *Config) { c.BcryptCost = 3 }, true},
		{"bcrypt cost too high", func(c *Config) { c.BcryptCost = 32 }, true},
		{"empty pepper", func(c *Config) { c.PasswordPepper = "" }, true},
		{"production with default pepper", func(c *Config) {
			c.Env = "production"
			c.PasswordPepper = DefaultPepper
		}, true},
		{"production with default db password", func(c *Config) {
			c.Env = "prod"
			c.DBPassword = DefaultDBPassword
		}, true},
		{"production sqlite without db password", func(c *Config) {
			c.Env = "production"
			c.DBDriver = DriverSQLite
			c.DBPassword = ""
		}, false},
		{"production with strong settings", func(c *Config) { c.Env = "production" }, false},
		{"development keeps default pepper", func(c *Config) { c.PasswordPepper = DefaultPepper }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)

			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDefaultPort(t *testing.T) {
	assert.Equal(t, "5432", DefaultPort(DriverPostgres))
	assert.Equal(t, "3306", DefaultPort(DriverMySQL))
	assert.Equal(t, "", DefaultPort(DriverSQLite))
}
