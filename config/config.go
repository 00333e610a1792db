package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Success policies for webhook deliveries.
const (
	// SuccessPolicyTransport treats any completed HTTP exchange as delivered.
	SuccessPolicyTransport = "transport"
	// SuccessPolicyStatus2xx additionally requires a 2xx response; anything else is retried.
	SuccessPolicyStatus2xx = "status_2xx"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	AES      AESConfig      `mapstructure:"aes"`
	Log      LogConfig      `mapstructure:"log"`
	Webhook  WebhookConfig  `mapstructure:"webhook"`
	Ingest   IngestConfig   `mapstructure:"ingest"`
}

type ServerConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Mode         string `mapstructure:"mode"` // debug, release, test
	MaxBodyBytes int64  `mapstructure:"max_body_bytes"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// MigrateURL returns the DSN in the scheme understood by the pgx/v5 migrate driver.
func (d DatabaseConfig) MigrateURL() string {
	return "pgx5" + strings.TrimPrefix(d.DSN(), "postgres")
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	Expiry time.Duration `mapstructure:"expiry"`
	Issuer string        `mapstructure:"issuer"`
}

type AESConfig struct {
	Key string `mapstructure:"key"` // master key material; the cipher key is derived with HKDF
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// WebhookConfig controls outbound delivery.
type WebhookConfig struct {
	Source             string        `mapstructure:"source"`
	UserAgent          string        `mapstructure:"user_agent"`
	SignatureHeader    string        `mapstructure:"signature_header"`
	Concurrency        int           `mapstructure:"concurrency"`
	BackoffBase        time.Duration `mapstructure:"backoff_base"`
	SuccessPolicy      string        `mapstructure:"success_policy"`
	SubscriberCacheTTL time.Duration `mapstructure:"subscriber_cache_ttl"`
	IdempotencyTTL     time.Duration `mapstructure:"idempotency_ttl"`
}

// Validate rejects settings the delivery core cannot run with.
func (w WebhookConfig) Validate() error {
	if w.SuccessPolicy != SuccessPolicyTransport && w.SuccessPolicy != SuccessPolicyStatus2xx {
		return fmt.Errorf("webhook.success_policy must be %q or %q, got %q",
			SuccessPolicyTransport, SuccessPolicyStatus2xx, w.SuccessPolicy)
	}
	if w.Concurrency < 1 {
		return fmt.Errorf("webhook.concurrency must be at least 1, got %d", w.Concurrency)
	}
	if w.BackoffBase <= 0 {
		return fmt.Errorf("webhook.backoff_base must be positive, got %s", w.BackoffBase)
	}
	if w.SignatureHeader == "" {
		return errors.New("webhook.signature_header must not be empty")
	}
	return nil
}

// IngestConfig lists the services allowed to raise events.
// Keys are access keys (viper lower-cases them), values are AES-encrypted shared secrets.
type IngestConfig struct {
	Clients map[string]string `mapstructure:"clients"`
}

// LoadDotEnv loads KEY=VALUE pairs from the given files into the process
// environment without overriding variables that are already set.
// Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: PWH_ (Pulse WebHooks).
// Nested keys use underscore: PWH_DATABASE_HOST, PWH_WEBHOOK_CONCURRENCY, etc.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.max_body_bytes", 1<<20)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "webhooks")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiry", "12h")
	v.SetDefault("jwt.issuer", "pulse-webhooks")
	v.SetDefault("aes.key", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("webhook.source", "pulse")
	v.SetDefault("webhook.user_agent", "Pulse-Webhooks/1.0")
	v.SetDefault("webhook.signature_header", "X-Pulse-Signature")
	v.SetDefault("webhook.concurrency", 32)
	v.SetDefault("webhook.backoff_base", "1s")
	v.SetDefault("webhook.success_policy", SuccessPolicyTransport)
	v.SetDefault("webhook.subscriber_cache_ttl", "0s")
	v.SetDefault("webhook.idempotency_ttl", "24h")

	// File config
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables: PWH_DATABASE_HOST -> database.host
	v.SetEnvPrefix("PWH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Config file is optional; env vars can suffice.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Webhook.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
