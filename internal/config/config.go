// Package config loads the cart engine's process configuration via Viper,
// validates it with go-playground/validator, and watches the config file
// for hot-reloadable fields (currently just the log level).
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/wyfcoding/cartd/internal/logging"
)

// Config is the top-level process configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Queue    QueueConfig    `mapstructure:"queue"`
	Listener ListenerConfig `mapstructure:"listener"`
	Log      LogConfig      `mapstructure:"log"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// ServerConfig controls the command/read-model HTTP surface.
type ServerConfig struct {
	Name string `mapstructure:"name" validate:"required"`
	Addr string `mapstructure:"addr" validate:"required"`
}

// DatabaseConfig is the single Postgres database holding the event log,
// every read model, the queue table and kafka_topic checkpoints.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn" validate:"required"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// KafkaConfig controls the inbound/outbound bridge.
type KafkaConfig struct {
	Brokers          []string      `mapstructure:"brokers" validate:"required"`
	InventoryTopic   string        `mapstructure:"inventory_topic"`
	PriceTopic       string        `mapstructure:"price_topic"`
	PublishedTopic   string        `mapstructure:"published_topic"`
	GroupID          string        `mapstructure:"group_id"`
	DialTimeout      time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout      time.Duration `mapstructure:"read_timeout"`
	WriteTimeout     time.Duration `mapstructure:"write_timeout"`
	CommitAfterApply bool          `mapstructure:"commit_after_apply"`
}

// QueueConfig controls the durable Postgres retry queue.
type QueueConfig struct {
	Workers         int           `mapstructure:"workers"`
	PollInterval    time.Duration `mapstructure:"poll_interval"`
	LeaseDuration   time.Duration `mapstructure:"lease_duration"`
	MaxAttempts     int           `mapstructure:"max_attempts"`
	InitialBackoff  time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff      time.Duration `mapstructure:"max_backoff"`
	BackoffJitter   float64       `mapstructure:"backoff_jitter"`
	JanitorInterval time.Duration `mapstructure:"janitor_interval"`
}

// ListenerConfig controls the decision-maker conflict retry and the
// listener runtime's poll interval. FailureBackoff is loaded but not
// read: the listener runtime uses its own fixed failure backoff.
type ListenerConfig struct {
	MaxConflictRetries int           `mapstructure:"max_conflict_retries"`
	PollInterval       time.Duration `mapstructure:"poll_interval"`
	FailureBackoff     time.Duration `mapstructure:"failure_backoff"`
	ResetCartItems     bool          `mapstructure:"-"`
}

// LogConfig controls the slog output.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// MetricsConfig controls the Prometheus exposition endpoint.
type MetricsConfig struct {
	Addr    string `mapstructure:"addr"`
	Enabled bool   `mapstructure:"enabled"`
}

var vInstance = viper.New()

// Load reads path into cfg, validates it, and installs a watcher that
// hot-reloads the log level on change.
func Load(path string, cfg *Config) error {
	vInstance.SetConfigFile(path)
	vInstance.SetConfigType("yaml")
	vInstance.SetEnvPrefix("CARTD")
	vInstance.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	vInstance.AutomaticEnv()

	setDefaults(vInstance)

	if err := vInstance.ReadInConfig(); err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := vInstance.Unmarshal(cfg); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	vInstance.WatchConfig()
	vInstance.OnConfigChange(func(event fsnotify.Event) {
		slog.Info("config change detected", "file", event.Name)
		if err := vInstance.Unmarshal(cfg); err != nil {
			slog.Error("config reload unmarshal failed", "error", err)
			return
		}
		logging.SetLevel(cfg.Log.Level)
		slog.Info("config hot-reloaded", "log_level", cfg.Log.Level)
	})

	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("kafka.inventory_topic", "inventories")
	v.SetDefault("kafka.price_topic", "price-changes")
	v.SetDefault("kafka.published_topic", "published-carts")
	v.SetDefault("kafka.group_id", "cartd")
	v.SetDefault("kafka.dial_timeout", 10*time.Second)
	v.SetDefault("kafka.read_timeout", 10*time.Second)
	v.SetDefault("kafka.write_timeout", 10*time.Second)
	v.SetDefault("queue.workers", 4)
	v.SetDefault("queue.poll_interval", time.Second)
	v.SetDefault("queue.lease_duration", 2*time.Minute)
	v.SetDefault("queue.max_attempts", 8)
	v.SetDefault("queue.initial_backoff", 500*time.Millisecond)
	v.SetDefault("queue.max_backoff", time.Minute)
	v.SetDefault("queue.backoff_jitter", 0.2)
	v.SetDefault("queue.janitor_interval", 15*time.Second)
	v.SetDefault("listener.max_conflict_retries", 5)
	v.SetDefault("listener.poll_interval", 200*time.Millisecond)
	v.SetDefault("listener.failure_backoff", 5*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("metrics.addr", ":9090")
	v.SetDefault("metrics.enabled", true)
}

// GetViper exposes the underlying Viper instance, e.g. for CLI flag binding.
func GetViper() *viper.Viper {
	return vInstance
}
