package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"golang.org/x/time/rate"
)

// Environments.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Content ContentConfig     `yaml:"content"`
	Remote  RemoteConfig      `yaml:"remote"`
	Auth    AuthConfig        `yaml:"auth"`
	Cache   CacheConfig       `yaml:"cache"`
	Watch   WatchConfig       `yaml:"watch"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Content.Validate(); err != nil {
		return err
	}
	if err := c.Remote.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	return c.Cache.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel    slog.Level `yaml:"log_level"`
	Environment string     `yaml:"environment"`
	HTTP        HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	if c.Environment == "" {
		c.Environment = EnvDevelopment
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Environment, validation.In(EnvDevelopment, EnvProduction)),
	); err != nil {
		return err
	}
	return c.HTTP.Validate()
}

// Production reports whether the app runs in production. Session cookies
// are marked Secure only there.
func (c *ApplicationConfig) Production() bool {
	return c.Environment == EnvProduction
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// ContentConfig locates the local article directory.
type ContentConfig struct {
	LocalRoot string `yaml:"local_root"`
	Extension string `yaml:"extension"`
}

// Validate validates the content configuration.
func (c *ContentConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.LocalRoot, validation.Required),
		validation.Field(&c.Extension, validation.Required),
	)
}

// RemoteConfig holds the S3-compatible object store settings. When
// Enabled is false the application is in static (local-only) mode.
type RemoteConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Endpoint      string        `yaml:"endpoint"`
	Region        string        `yaml:"region"`
	AccessKey     string        `yaml:"access_key"`
	SecretKey     string        `yaml:"secret_key"`
	Bucket        string        `yaml:"bucket"`
	Prefix        string        `yaml:"prefix"`
	UseSSL        bool          `yaml:"use_ssl"`
	Timeout       time.Duration `yaml:"timeout"`
	PresignExpiry time.Duration `yaml:"presign_expiry"`
}

// Validate validates the remote configuration.
func (c *RemoteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Endpoint, validation.When(c.Enabled, validation.Required)),
		validation.Field(&c.Bucket, validation.When(c.Enabled, validation.Required)),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
		validation.Field(&c.PresignExpiry, validation.Min(time.Duration(0))),
	)
}

// AuthConfig holds admin authentication settings. An empty Password
// rejects every login.
type AuthConfig struct {
	Password   string  `yaml:"password"`
	LoginRate  float64 `yaml:"login_rate"` // attempts per minute per client IP
	LoginBurst int     `yaml:"login_burst"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.LoginRate, validation.Required, validation.Min(0.0)),
		validation.Field(&c.LoginBurst, validation.Required, validation.Min(1)),
	)
}

// Limit converts LoginRate to a token bucket refill rate.
func (c *AuthConfig) Limit() rate.Limit {
	return rate.Limit(c.LoginRate / 60)
}

// CacheConfig configures the rendered-HTML cache. An empty RedisAddr
// disables caching.
type CacheConfig struct {
	RedisAddr string        `yaml:"redis_addr"`
	TTL       time.Duration `yaml:"ttl"`
}

// Validate validates the cache configuration.
func (c *CacheConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.TTL, validation.When(c.RedisAddr != "", validation.Required)),
	)
}

// WatchConfig toggles the local directory watcher.
type WatchConfig struct {
	Enabled bool `yaml:"enabled"`
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel:    slog.LevelInfo,
			Environment: EnvDevelopment,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Content: ContentConfig{
			LocalRoot: "./content/articles",
			Extension: "md",
		},
		Remote: RemoteConfig{
			Prefix:        "articles/",
			Timeout:       10 * time.Second,
			PresignExpiry: time.Minute,
		},
		Auth: AuthConfig{
			LoginRate:  10,
			LoginBurst: 5,
		},
		Cache: CacheConfig{
			TTL: time.Hour,
		},
		Watch: WatchConfig{
			Enabled: true,
		},
	}
}
