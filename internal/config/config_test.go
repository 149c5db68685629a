package config

import (
	"os"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Port:       "8375",
		DBDriver:   "postgres",
		DBPassword: "secure-password",
		DBSSLMode:  "require",
		RedisURL:   "redis://localhost:6379",
		Env:        "development",
	}
}

func TestConfig_ValidateSSLMode(t *testing.T) {
	tests := []struct {
		name        string
		env         string
		sslMode     string
		expectError bool
	}{
		{"Production with empty SSL mode", "production", "", true},
		{"Production with disable SSL mode", "production", "disable", true},
		{"Production with require SSL mode", "production", "require", false},
		{"Prod with verify-full SSL mode", "prod", "verify-full", false},
		{"Development with disable SSL mode", "development", "disable", false},
		{"Test with empty SSL mode", "test", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			c.Env = tt.env
			c.DBSSLMode = tt.sslMode

			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing port", func(c *Config) { c.Port = "" }, "PORT is required"},
		{"unknown driver", func(c *Config) { c.DBDriver = "mysql" }, "unsupported DB_DRIVER"},
		{"sqlite without path", func(c *Config) { c.DBDriver = "sqlite"; c.SQLitePath = "" }, "SQLITE_PATH"},
		{"sqlite with path", func(c *Config) { c.DBDriver = "sqlite"; c.SQLitePath = "dev.db" }, ""},
		{"sqlite in production", func(c *Config) { c.Env = "production"; c.DBDriver = "sqlite"; c.SQLitePath = "x.db" }, "sqlite is not supported"},
		{"default password in production", func(c *Config) { c.Env = "production"; c.DBPassword = "password" }, "DB_PASSWORD"},
		{"sticky policy", func(c *Config) { c.ReorderFailurePolicy = "sticky" }, ""},
		{"unknown policy", func(c *Config) { c.ReorderFailurePolicy = "retry" }, "REORDER_FAILURE_POLICY"},
		{"otlp without endpoint", func(c *Config) {
			c.TracingEnabled = true
			c.TracingExporter = "otlp"
		}, "OTLP_ENDPOINT"},
		{"negative timeout", func(c *Config) { c.ClientTimeout = -time.Second }, "CLIENT_TIMEOUT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			err := c.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestLoadConfig_Normalization(t *testing.T) {
	defer os.Unsetenv("APP_ENV")
	defer os.Unsetenv("DB_SSLMODE")
	defer os.Unsetenv("DB_DRIVER")
	defer os.Unsetenv("REORDER_FAILURE_POLICY")
	defer viper.Reset()

	os.Setenv("APP_ENV", "development")
	os.Setenv("DB_SSLMODE", "  DISABLE  ")
	os.Setenv("DB_DRIVER", " SQLite ")
	os.Setenv("REORDER_FAILURE_POLICY", "Sticky")

	c, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "disable", c.DBSSLMode)
	assert.Equal(t, "sqlite", c.DBDriver)
	assert.Equal(t, "sticky", c.ReorderFailurePolicy)
}

func TestLoadConfig_Defaults(t *testing.T) {
	defer os.Unsetenv("APP_ENV")
	defer viper.Reset()
	os.Setenv("APP_ENV", "test")

	c, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "8375", c.Port)
	assert.Equal(t, 10*time.Second, c.ClientTimeout)
	assert.Equal(t, "rollback", c.ReorderFailurePolicy)
	assert.Equal(t, "interaction_points=on", c.FeatureFlags)
	assert.False(t, c.IsProduction())
}
