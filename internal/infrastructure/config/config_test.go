package config

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearMKTEnv unsets every MKT_ variable for the duration of the test
func clearMKTEnv(t *testing.T) {
	t.Helper()
	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(key, "MKT_") {
			t.Setenv(key, "")
			os.Unsetenv(key)
		}
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearMKTEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "marketplace-backend", cfg.App.Name)
	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, "http://localhost:8080", cfg.App.PublicURL)
	assert.Equal(t, "marketplace", cfg.Database.DBName)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.False(t, cfg.Redis.Enabled())
	assert.Equal(t, "marketplace_changes", cfg.Realtime.Channel)
	assert.Equal(t, "0 */2 * * * *", cfg.Scheduler.PaymentPollSchedule)
	assert.Equal(t, 2*time.Hour, cfg.Scheduler.StaleOrderAfter)
	assert.Equal(t, "0 */15 * * * *", cfg.Scheduler.WalletCreditSchedule)
	assert.Equal(t, "https://www.paynow.co.zw", cfg.Payment.Paynow.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.Payment.Timeout)
	assert.Equal(t, "marketplace-backend", cfg.Telemetry.ServiceName)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearMKTEnv(t)
	t.Setenv("MKT_APP_PORT", "9000")
	t.Setenv("MKT_DATABASE_HOST", "db.internal")
	t.Setenv("MKT_DATABASE_MAX_OPEN_CONNS", "50")
	t.Setenv("MKT_DATABASE_MAX_IDLE_CONNS", "10")
	t.Setenv("MKT_REDIS_HOST", "cache.internal")
	t.Setenv("MKT_PAYMENT_PAYNOW_ENABLED", "true")
	t.Setenv("MKT_PAYMENT_PAYNOW_INTEGRATION_ID", "1201")
	t.Setenv("MKT_PAYMENT_PAYNOW_INTEGRATION_KEY", "key")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.App.Port)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 50, cfg.Database.MaxOpenConns)
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, "cache.internal:6379", cfg.Redis.Addr())
	assert.True(t, cfg.Payment.Paynow.Enabled)
	assert.Equal(t, "1201", cfg.Payment.Paynow.IntegrationID)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		cfg := &Config{}
		applyDefaults(cfg)
		return cfg
	}
	production := func() *Config {
		cfg := valid()
		cfg.App.Env = "production"
		cfg.App.PublicURL = "https://shop.example.com"
		cfg.JWT.Secret = "a-very-long-secret-key-of-at-least-32-chars"
		cfg.Database.Password = "s3cret"
		cfg.Database.SSLMode = "require"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func() *Config
		wantErr string
	}{
		{"defaults pass", valid, ""},
		{"idle conns exceed open conns", func() *Config {
			cfg := valid()
			cfg.Database.MaxIdleConns = cfg.Database.MaxOpenConns + 1
			return cfg
		}, "cannot exceed"},
		{"paypal enabled without credentials", func() *Config {
			cfg := valid()
			cfg.Payment.PayPal.Enabled = true
			return cfg
		}, "payment.paypal"},
		{"iveri enabled without credentials", func() *Config {
			cfg := valid()
			cfg.Payment.IVeri.Enabled = true
			return cfg
		}, "payment.iveri"},
		{"sampling ratio out of range", func() *Config {
			cfg := valid()
			cfg.Telemetry.SamplingRatio = 1.5
			return cfg
		}, "sampling_ratio"},
		{"malformed swagger allowlist entry", func() *Config {
			cfg := valid()
			cfg.Swagger.AllowedIPs = []string{"10.0.0.0/8", "office-vpn"}
			return cfg
		}, "office-vpn"},
		{"unknown log level", func() *Config {
			cfg := valid()
			cfg.Log.Level = "verbose"
			return cfg
		}, "verbose"},
		{"negative log sampling", func() *Config {
			cfg := valid()
			cfg.Log.Sampling = -1
			return cfg
		}, "log.sampling"},
		{"production passes", production, ""},
		{"production admin-only swagger", func() *Config {
			cfg := production()
			cfg.Swagger.Enabled = true
			cfg.Swagger.AdminOnly = true
			return cfg
		}, ""},
		{"production short secret", func() *Config {
			cfg := production()
			cfg.JWT.Secret = "short"
			return cfg
		}, "at least 32"},
		{"production without db password", func() *Config {
			cfg := production()
			cfg.Database.Password = ""
			return cfg
		}, "database.password"},
		{"production without ssl", func() *Config {
			cfg := production()
			cfg.Database.SSLMode = "disable"
			return cfg
		}, "sslmode"},
		{"production plain http callbacks", func() *Config {
			cfg := production()
			cfg.App.PublicURL = "http://shop.example.com"
			return cfg
		}, "public_url"},
		{"production open swagger", func() *Config {
			cfg := production()
			cfg.Swagger.Enabled = true
			return cfg
		}, "swagger"},
		{"production wildcard cors", func() *Config {
			cfg := production()
			cfg.HTTP.CORSAllowOrigins = []string{"*"}
			return cfg
		}, "cors"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.mutate().validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	cfg := DatabaseConfig{Host: "localhost", Port: 5432, User: "app", Password: "p@ss:w/rd", DBName: "marketplace", SSLMode: "disable"}
	dsn := cfg.DSN()
	assert.True(t, strings.HasPrefix(dsn, "postgres://app:"))
	assert.Contains(t, dsn, "p%40ss%3Aw%2Frd")
	assert.Contains(t, dsn, "/marketplace?sslmode=disable")
}
