package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all storefront configuration
type Config struct {
	App        AppConfig
	Log        LogConfig
	HTTP       HTTPConfig
	Remote     RemoteConfig
	LocalStore LocalStoreConfig
	Cart       CartConfig
	Telemetry  TelemetryConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// HTTPConfig holds settings of the local HTTP surface
type HTTPConfig struct {
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	MaxBodySize     int64
	SSEPingInterval time.Duration
	AllowOrigins    []string
}

// RemoteConfig holds settings for the bookstore backend API
type RemoteConfig struct {
	BaseURL          string
	Timeout          time.Duration
	MaxResponseBytes int64
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns host:port
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// LocalStoreConfig selects the device-local key/value backend
type LocalStoreConfig struct {
	Driver              string // sqlite, redis, memory
	Path                string // sqlite file path
	CartKey             string
	CredentialKey       string
	AllowMemoryFallback bool
	Redis               RedisConfig
}

// CartConfig holds cart behavior settings
type CartConfig struct {
	Currency           string
	RollbackFailedAdds bool
	EnrichConcurrency  int
}

// TelemetryConfig holds metrics settings
type TelemetryConfig struct {
	MetricsEnabled bool
	ServiceName    string
}

// Local store drivers
const (
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
	DriverMemory = "memory"
)

// Load reads configuration. Priority (highest to lowest):
// 1. Environment variables with STOREFRONT_ prefix (e.g. STOREFRONT_REMOTE_BASE_URL)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return FromViper(v)
}

// FromViper builds a Config from an already populated viper instance
func FromViper(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix("STOREFRONT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetDefault("local_store.allow_memory_fallback", true)
	v.SetDefault("telemetry.metrics_enabled", true)

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:     v.GetDuration("http.read_timeout"),
			WriteTimeout:    v.GetDuration("http.write_timeout"),
			IdleTimeout:     v.GetDuration("http.idle_timeout"),
			MaxBodySize:     v.GetInt64("http.max_body_size"),
			SSEPingInterval: v.GetDuration("http.sse_ping_interval"),
			AllowOrigins:    v.GetStringSlice("http.allow_origins"),
		},
		Remote: RemoteConfig{
			BaseURL:          v.GetString("remote.base_url"),
			Timeout:          v.GetDuration("remote.timeout"),
			MaxResponseBytes: v.GetInt64("remote.max_response_bytes"),
		},
		LocalStore: LocalStoreConfig{
			Driver:              strings.ToLower(v.GetString("local_store.driver")),
			Path:                v.GetString("local_store.path"),
			CartKey:             v.GetString("local_store.cart_key"),
			CredentialKey:       v.GetString("local_store.credential_key"),
			AllowMemoryFallback: v.GetBool("local_store.allow_memory_fallback"),
			Redis: RedisConfig{
				Host:     v.GetString("local_store.redis.host"),
				Port:     v.GetInt("local_store.redis.port"),
				Password: v.GetString("local_store.redis.password"),
				DB:       v.GetInt("local_store.redis.db"),
			},
		},
		Cart: CartConfig{
			Currency:           strings.ToUpper(v.GetString("cart.currency")),
			RollbackFailedAdds: v.GetBool("cart.rollback_failed_adds"),
			EnrichConcurrency:  v.GetInt("cart.enrich_concurrency"),
		},
		Telemetry: TelemetryConfig{
			MetricsEnabled: v.GetBool("telemetry.metrics_enabled"),
			ServiceName:    v.GetString("telemetry.service_name"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "storefront"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8090"
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
	// SSE connections are long lived; no write deadline unless configured
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 1 << 20
	}
	if cfg.HTTP.SSEPingInterval == 0 {
		cfg.HTTP.SSEPingInterval = 30 * time.Second
	}
	if cfg.Remote.BaseURL == "" {
		cfg.Remote.BaseURL = "http://localhost:8080/api"
	}
	if cfg.Remote.Timeout == 0 {
		cfg.Remote.Timeout = 30 * time.Second
	}
	if cfg.Remote.MaxResponseBytes == 0 {
		cfg.Remote.MaxResponseBytes = 4 << 20
	}
	if cfg.LocalStore.Driver == "" {
		cfg.LocalStore.Driver = DriverSQLite
	}
	if cfg.LocalStore.Path == "" {
		cfg.LocalStore.Path = "storefront.db"
	}
	if cfg.LocalStore.CartKey == "" {
		cfg.LocalStore.CartKey = "bookstore-cart"
	}
	if cfg.LocalStore.CredentialKey == "" {
		cfg.LocalStore.CredentialKey = "token"
	}
	if cfg.LocalStore.Redis.Host == "" {
		cfg.LocalStore.Redis.Host = "localhost"
	}
	if cfg.LocalStore.Redis.Port == 0 {
		cfg.LocalStore.Redis.Port = 6379
	}
	if cfg.Cart.Currency == "" {
		cfg.Cart.Currency = "VND"
	}
	if cfg.Cart.EnrichConcurrency == 0 {
		cfg.Cart.EnrichConcurrency = 4
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
}

func (c *Config) validate() error {
	switch c.LocalStore.Driver {
	case DriverSQLite, DriverRedis, DriverMemory:
	default:
		return fmt.Errorf("local_store.driver must be one of sqlite, redis, memory, got %q", c.LocalStore.Driver)
	}

	u, err := url.Parse(c.Remote.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("remote.base_url must be an absolute URL, got %q", c.Remote.BaseURL)
	}
	if c.Remote.Timeout < 0 {
		return fmt.Errorf("remote.timeout cannot be negative")
	}
	if c.Cart.EnrichConcurrency < 0 {
		return fmt.Errorf("cart.enrich_concurrency cannot be negative")
	}
	if len(c.Cart.Currency) != 3 {
		return fmt.Errorf("cart.currency must be an ISO 4217 code, got %q", c.Cart.Currency)
	}

	if c.App.Env == "production" && u.Scheme != "https" {
		return fmt.Errorf("remote.base_url must use https in production")
	}
	return nil
}
