package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Payments PaymentsConfig `mapstructure:"payments"`
	Events   EventsConfig   `mapstructure:"events"`
	Worker   WorkerConfig   `mapstructure:"worker"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release, test
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
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	// PoolSize caps connections per client; 0 uses the driver default.
	// The api serves many concurrent requests, the worker needs few.
	PoolSize int `mapstructure:"pool_size"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type PaymentsConfig struct {
	// IdempotencyTTL bounds both the cache entry lifetime and how long
	// durable ledger rows are kept before the sweeper expires them.
	IdempotencyTTL time.Duration `mapstructure:"idempotency_ttl"`
}

// EventsConfig names the Redis destinations for payment event fan-out:
// a stream consumed by the worker group and a pub/sub broadcast channel.
type EventsConfig struct {
	Stream  string `mapstructure:"stream"`
	Group   string `mapstructure:"group"`
	Channel string `mapstructure:"channel"`
	// MaxLen caps the stream approximately (XADD MAXLEN ~); 0 keeps it unbounded.
	MaxLen int64 `mapstructure:"maxlen"`
}

// WorkerConfig tunes the queue consumer. Consumer defaults to the hostname
// when empty. SweepInterval of 0 disables the reconciliation sweeper.
type WorkerConfig struct {
	Consumer      string        `mapstructure:"consumer"`
	BatchSize     int64         `mapstructure:"batch_size"`
	Block         time.Duration `mapstructure:"block"`
	ClaimMinIdle  time.Duration `mapstructure:"claim_min_idle"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	StaleAfter    time.Duration `mapstructure:"stale_after"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: PIS_ (Payment Intake Service).
// Nested keys use underscore: PIS_DATABASE_HOST, PIS_EVENTS_STREAM, etc.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "payment_intake")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 0)
	v.SetDefault("payments.idempotency_ttl", "24h")
	v.SetDefault("events.stream", "payments:events")
	v.SetDefault("events.group", "payment-processors")
	v.SetDefault("events.channel", "payments:broadcast")
	v.SetDefault("events.maxlen", 100000)
	v.SetDefault("worker.consumer", "")
	v.SetDefault("worker.batch_size", 10)
	v.SetDefault("worker.block", "5s")
	v.SetDefault("worker.claim_min_idle", "5m")
	v.SetDefault("worker.sweep_interval", "10m")
	v.SetDefault("worker.stale_after", "15m")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	// File config
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables: PIS_DATABASE_HOST -> database.host
	v.SetEnvPrefix("PIS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (not required — env vars can suffice)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}
