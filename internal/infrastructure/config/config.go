package config

import (
	"fmt"
	"net/netip"
	"net/url"
	"strings"
	"time"

	"github.com/marketplace/backend/internal/infrastructure/logger"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Storage   StorageConfig
	Payment   PaymentConfig
	Scheduler SchedulerConfig
	Realtime  RealtimeConfig
	Invoice   InvoiceConfig
	Swagger   SwaggerConfig
	Telemetry TelemetryConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
	// Sampling is the per-second burst kept for identical entries; 0 keeps everything
	Sampling int
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
	// PublicURL is the externally reachable base URL, used for gateway callbacks
	PublicURL string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings. An empty Host disables Redis
// and the in-memory fallbacks are used.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Enabled reports whether Redis is configured
func (r RedisConfig) Enabled() bool {
	return r.Host != ""
}

// Addr returns host:port
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// JWTConfig holds JWT settings
type JWTConfig struct {
	Secret                 string
	AccessTokenExpiration  time.Duration
	RefreshTokenExpiration time.Duration
	Issuer                 string
	RefreshSecret          string
	MaxRefreshCount        int
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout           time.Duration
	WriteTimeout          time.Duration
	IdleTimeout           time.Duration
	MaxHeaderBytes        int
	MaxBodySize           int64
	RateLimitEnabled      bool
	RateLimitRequests     int
	RateLimitWindow       time.Duration
	AuthRateLimitEnabled  bool
	AuthRateLimitRequests int
	AuthRateLimitWindow   time.Duration
	CORSAllowOrigins      []string
	CORSAllowMethods      []string
	CORSAllowHeaders      []string
	TrustedProxies        []string
}

// StorageConfig holds S3-compatible object storage settings for product images
type StorageConfig struct {
	Enabled           bool
	Endpoint          string
	Region            string
	Bucket            string
	AccessKey         string
	SecretKey         string
	UseSSL            bool
	UsePathStyle      bool
	PresignExpiration time.Duration
}

// PaymentConfig holds gateway credentials
type PaymentConfig struct {
	PayPal PayPalConfig
	IVeri  IVeriConfig
	Paynow PaynowConfig
	// Timeout bounds every gateway HTTP call
	Timeout time.Duration
	// RetryCount is the number of retries for idempotent gateway reads
	RetryCount int
}

// PayPalConfig holds PayPal REST API settings
type PayPalConfig struct {
	Enabled      bool
	BaseURL      string
	ClientID     string
	ClientSecret string
	WebhookID    string
	BrandName    string
}

// IVeriConfig holds iVeri Enterprise REST settings
type IVeriConfig struct {
	Enabled                 bool
	BaseURL                 string
	ApplicationID           string
	CertificateID           string
	MerchantReferencePrefix string
	Mode                    string // Test or Live
}

// PaynowConfig holds Paynow integration settings
type PaynowConfig struct {
	Enabled        bool
	BaseURL        string
	IntegrationID  string
	IntegrationKey string
	// AuthEmail is required by Paynow in test mode for mobile payments
	AuthEmail string
}

// SchedulerConfig holds background job settings. Schedules use six-field cron
// expressions with seconds.
type SchedulerConfig struct {
	Enabled               bool
	PaymentPollSchedule   string
	PayoutReleaseSchedule string
	StaleOrderSchedule    string
	// WalletCreditSchedule sweeps paid orders the wallet never credited
	WalletCreditSchedule string
	// StaleOrderAfter is how long an unpaid order keeps its stock reservation
	StaleOrderAfter time.Duration
	BatchSize       int
	JobTimeout      time.Duration
}

// RealtimeConfig holds change feed settings
type RealtimeConfig struct {
	// NotifyEnabled bridges changes across instances with Postgres LISTEN/NOTIFY
	NotifyEnabled     bool
	Channel           string
	HeartbeatInterval time.Duration
	BufferSize        int
	MaxClients        int
}

// InvoiceConfig holds PDF invoice rendering settings
type InvoiceConfig struct {
	Enabled         bool
	ChromeURL       string // remote Chrome DevTools URL, empty launches a local browser
	Timeout         time.Duration
	Locale          string // BCP 47 tag used for number formatting
	MarketplaceName string
}

// SwaggerConfig holds Swagger documentation endpoint configuration
type SwaggerConfig struct {
	Enabled     bool
	RequireAuth bool
	// AdminOnly restricts authenticated access to admin tokens
	AdminOnly  bool
	AllowedIPs []string
}

// TelemetryConfig holds OpenTelemetry and profiling configuration
type TelemetryConfig struct {
	Enabled           bool
	CollectorEndpoint string
	SamplingRatio     float64
	ServiceName       string
	Insecure          bool
	MetricsInterval   time.Duration

	DBTraceEnabled    bool
	DBLogFullSQL      bool
	DBSlowQueryThresh time.Duration

	ProfilingEnabled bool
	PyroscopeURL     string
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with MKT_ prefix (e.g., MKT_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./backend")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("MKT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := fromViper(v)
	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		App: AppConfig{
			Name:      v.GetString("app.name"),
			Env:       v.GetString("app.env"),
			Port:      v.GetString("app.port"),
			PublicURL: v.GetString("app.public_url"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret:                 v.GetString("jwt.secret"),
			AccessTokenExpiration:  v.GetDuration("jwt.access_token_expiration"),
			RefreshTokenExpiration: v.GetDuration("jwt.refresh_token_expiration"),
			Issuer:                 v.GetString("jwt.issuer"),
			RefreshSecret:          v.GetString("jwt.refresh_secret"),
			MaxRefreshCount:        v.GetInt("jwt.max_refresh_count"),
		},
		Log: LogConfig{
			Level:    v.GetString("log.level"),
			Format:   v.GetString("log.format"),
			Output:   v.GetString("log.output"),
			Sampling: v.GetInt("log.sampling"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:           v.GetDuration("http.read_timeout"),
			WriteTimeout:          v.GetDuration("http.write_timeout"),
			IdleTimeout:           v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:        v.GetInt("http.max_header_bytes"),
			MaxBodySize:           v.GetInt64("http.max_body_size"),
			RateLimitEnabled:      v.GetBool("http.rate_limit_enabled"),
			RateLimitRequests:     v.GetInt("http.rate_limit_requests"),
			RateLimitWindow:       v.GetDuration("http.rate_limit_window"),
			AuthRateLimitEnabled:  v.GetBool("http.auth_rate_limit_enabled"),
			AuthRateLimitRequests: v.GetInt("http.auth_rate_limit_requests"),
			AuthRateLimitWindow:   v.GetDuration("http.auth_rate_limit_window"),
			CORSAllowOrigins:      v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods:      v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders:      v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:        v.GetStringSlice("http.trusted_proxies"),
		},
		Storage: StorageConfig{
			Enabled:           v.GetBool("storage.enabled"),
			Endpoint:          v.GetString("storage.endpoint"),
			Region:            v.GetString("storage.region"),
			Bucket:            v.GetString("storage.bucket"),
			AccessKey:         v.GetString("storage.access_key"),
			SecretKey:         v.GetString("storage.secret_key"),
			UseSSL:            v.GetBool("storage.use_ssl"),
			UsePathStyle:      v.GetBool("storage.use_path_style"),
			PresignExpiration: v.GetDuration("storage.presign_expiration"),
		},
		Payment: PaymentConfig{
			Timeout:    v.GetDuration("payment.timeout"),
			RetryCount: v.GetInt("payment.retry_count"),
			PayPal: PayPalConfig{
				Enabled:      v.GetBool("payment.paypal.enabled"),
				BaseURL:      v.GetString("payment.paypal.base_url"),
				ClientID:     v.GetString("payment.paypal.client_id"),
				ClientSecret: v.GetString("payment.paypal.client_secret"),
				WebhookID:    v.GetString("payment.paypal.webhook_id"),
				BrandName:    v.GetString("payment.paypal.brand_name"),
			},
			IVeri: IVeriConfig{
				Enabled:                 v.GetBool("payment.iveri.enabled"),
				BaseURL:                 v.GetString("payment.iveri.base_url"),
				ApplicationID:           v.GetString("payment.iveri.application_id"),
				CertificateID:           v.GetString("payment.iveri.certificate_id"),
				MerchantReferencePrefix: v.GetString("payment.iveri.merchant_reference_prefix"),
				Mode:                    v.GetString("payment.iveri.mode"),
			},
			Paynow: PaynowConfig{
				Enabled:        v.GetBool("payment.paynow.enabled"),
				BaseURL:        v.GetString("payment.paynow.base_url"),
				IntegrationID:  v.GetString("payment.paynow.integration_id"),
				IntegrationKey: v.GetString("payment.paynow.integration_key"),
				AuthEmail:      v.GetString("payment.paynow.auth_email"),
			},
		},
		Scheduler: SchedulerConfig{
			Enabled:               v.GetBool("scheduler.enabled"),
			PaymentPollSchedule:   v.GetString("scheduler.payment_poll_schedule"),
			PayoutReleaseSchedule: v.GetString("scheduler.payout_release_schedule"),
			StaleOrderSchedule:    v.GetString("scheduler.stale_order_schedule"),
			WalletCreditSchedule:  v.GetString("scheduler.wallet_credit_schedule"),
			StaleOrderAfter:       v.GetDuration("scheduler.stale_order_after"),
			BatchSize:             v.GetInt("scheduler.batch_size"),
			JobTimeout:            v.GetDuration("scheduler.job_timeout"),
		},
		Realtime: RealtimeConfig{
			NotifyEnabled:     v.GetBool("realtime.notify_enabled"),
			Channel:           v.GetString("realtime.channel"),
			HeartbeatInterval: v.GetDuration("realtime.heartbeat_interval"),
			BufferSize:        v.GetInt("realtime.buffer_size"),
			MaxClients:        v.GetInt("realtime.max_clients"),
		},
		Invoice: InvoiceConfig{
			Enabled:         v.GetBool("invoice.enabled"),
			ChromeURL:       v.GetString("invoice.chrome_url"),
			Timeout:         v.GetDuration("invoice.timeout"),
			Locale:          v.GetString("invoice.locale"),
			MarketplaceName: v.GetString("invoice.marketplace_name"),
		},
		Swagger: SwaggerConfig{
			Enabled:     v.GetBool("swagger.enabled"),
			RequireAuth: v.GetBool("swagger.require_auth"),
			AdminOnly:   v.GetBool("swagger.admin_only"),
			AllowedIPs:  v.GetStringSlice("swagger.allowed_ips"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			MetricsInterval:   v.GetDuration("telemetry.metrics_interval"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			DBLogFullSQL:      v.GetBool("telemetry.db_log_full_sql"),
			DBSlowQueryThresh: v.GetDuration("telemetry.db_slow_query_threshold"),
			ProfilingEnabled:  v.GetBool("telemetry.profiling_enabled"),
			PyroscopeURL:      v.GetString("telemetry.pyroscope_url"),
		},
	}
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "marketplace-backend"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.App.PublicURL == "" {
		cfg.App.PublicURL = "http://localhost:" + cfg.App.Port
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "marketplace"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host != "" && cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.JWT.AccessTokenExpiration == 0 {
		cfg.JWT.AccessTokenExpiration = 15 * time.Minute
	}
	if cfg.JWT.RefreshTokenExpiration == 0 {
		cfg.JWT.RefreshTokenExpiration = 168 * time.Hour
	}
	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = "marketplace-backend"
	}
	if cfg.JWT.MaxRefreshCount == 0 {
		cfg.JWT.MaxRefreshCount = 10
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	// SSE streams stay open, so writes are bounded per event rather than here
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 2 << 20
	}
	if cfg.HTTP.RateLimitRequests == 0 {
		cfg.HTTP.RateLimitRequests = 100
	}
	if cfg.HTTP.RateLimitWindow == 0 {
		cfg.HTTP.RateLimitWindow = time.Minute
	}
	if cfg.HTTP.AuthRateLimitRequests == 0 {
		cfg.HTTP.AuthRateLimitRequests = 5
	}
	if cfg.HTTP.AuthRateLimitWindow == 0 {
		cfg.HTTP.AuthRateLimitWindow = time.Minute
	}
	// CORS origins have no wildcard fallback; they must be configured
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization", "X-Request-ID", "Idempotency-Key"}
	}
	if cfg.Storage.Region == "" {
		cfg.Storage.Region = "us-east-1"
	}
	if cfg.Storage.PresignExpiration == 0 {
		cfg.Storage.PresignExpiration = 15 * time.Minute
	}
	if cfg.Payment.Timeout == 0 {
		cfg.Payment.Timeout = 30 * time.Second
	}
	if cfg.Payment.RetryCount == 0 {
		cfg.Payment.RetryCount = 2
	}
	if cfg.Payment.PayPal.BaseURL == "" {
		cfg.Payment.PayPal.BaseURL = "https://api-m.sandbox.paypal.com"
	}
	if cfg.Payment.IVeri.BaseURL == "" {
		cfg.Payment.IVeri.BaseURL = "https://portal.host.iveri.com"
	}
	if cfg.Payment.IVeri.Mode == "" {
		cfg.Payment.IVeri.Mode = "Test"
	}
	if cfg.Payment.Paynow.BaseURL == "" {
		cfg.Payment.Paynow.BaseURL = "https://www.paynow.co.zw"
	}
	if cfg.Scheduler.PaymentPollSchedule == "" {
		cfg.Scheduler.PaymentPollSchedule = "0 */2 * * * *"
	}
	if cfg.Scheduler.PayoutReleaseSchedule == "" {
		cfg.Scheduler.PayoutReleaseSchedule = "0 0 * * * *"
	}
	if cfg.Scheduler.StaleOrderSchedule == "" {
		cfg.Scheduler.StaleOrderSchedule = "0 */10 * * * *"
	}
	if cfg.Scheduler.WalletCreditSchedule == "" {
		cfg.Scheduler.WalletCreditSchedule = "0 */15 * * * *"
	}
	if cfg.Scheduler.StaleOrderAfter == 0 {
		cfg.Scheduler.StaleOrderAfter = 2 * time.Hour
	}
	if cfg.Scheduler.BatchSize == 0 {
		cfg.Scheduler.BatchSize = 100
	}
	if cfg.Scheduler.JobTimeout == 0 {
		cfg.Scheduler.JobTimeout = 5 * time.Minute
	}
	if cfg.Realtime.Channel == "" {
		cfg.Realtime.Channel = "marketplace_changes"
	}
	if cfg.Realtime.HeartbeatInterval == 0 {
		cfg.Realtime.HeartbeatInterval = 25 * time.Second
	}
	if cfg.Realtime.BufferSize == 0 {
		cfg.Realtime.BufferSize = 64
	}
	if cfg.Realtime.MaxClients == 0 {
		cfg.Realtime.MaxClients = 10000
	}
	if cfg.Invoice.Timeout == 0 {
		cfg.Invoice.Timeout = 30 * time.Second
	}
	if cfg.Invoice.Locale == "" {
		cfg.Invoice.Locale = "en"
	}
	if cfg.Invoice.MarketplaceName == "" {
		cfg.Invoice.MarketplaceName = "Marketplace"
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
	if cfg.Telemetry.MetricsInterval == 0 {
		cfg.Telemetry.MetricsInterval = 30 * time.Second
	}
	if cfg.Telemetry.DBSlowQueryThresh == 0 {
		cfg.Telemetry.DBSlowQueryThresh = 200 * time.Millisecond
	}
	if cfg.Telemetry.PyroscopeURL == "" {
		cfg.Telemetry.PyroscopeURL = "http://localhost:4040"
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	if c.Log.Sampling < 0 {
		return fmt.Errorf("log.sampling cannot be negative")
	}

	if c.App.Env == "production" {
		if c.JWT.Secret == "" {
			return fmt.Errorf("jwt.secret is required in production")
		}
		if len(c.JWT.Secret) < 32 {
			return fmt.Errorf("jwt.secret must be at least 32 characters in production")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
		if c.Swagger.Enabled && !c.Swagger.RequireAuth && !c.Swagger.AdminOnly && len(c.Swagger.AllowedIPs) == 0 {
			return fmt.Errorf("swagger endpoint must be disabled, require authentication, or have IP restriction in production")
		}
		if c.Telemetry.DBLogFullSQL {
			return fmt.Errorf("telemetry.db_log_full_sql must be false in production")
		}
		if !strings.HasPrefix(c.App.PublicURL, "https://") {
			return fmt.Errorf("app.public_url must use https in production")
		}
	}

	if err := c.Payment.validate(); err != nil {
		return err
	}

	for _, entry := range c.Swagger.AllowedIPs {
		if _, err := netip.ParsePrefix(entry); err == nil {
			continue
		}
		if _, err := netip.ParseAddr(entry); err != nil {
			return fmt.Errorf("swagger.allowed_ips: %q is neither an address nor a CIDR prefix", entry)
		}
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	return nil
}

func (p PaymentConfig) validate() error {
	if p.PayPal.Enabled && (p.PayPal.ClientID == "" || p.PayPal.ClientSecret == "") {
		return fmt.Errorf("payment.paypal.client_id and client_secret are required when paypal is enabled")
	}
	if p.IVeri.Enabled && (p.IVeri.ApplicationID == "" || p.IVeri.CertificateID == "") {
		return fmt.Errorf("payment.iveri.application_id and certificate_id are required when iveri is enabled")
	}
	if p.Paynow.Enabled && (p.Paynow.IntegrationID == "" || p.Paynow.IntegrationKey == "") {
		return fmt.Errorf("payment.paynow.integration_id and integration_key are required when paynow is enabled")
	}
	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
