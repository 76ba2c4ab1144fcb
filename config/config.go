// Package config loads task-layer configuration from TOML files.
//
// A single file configures the broker connection, the durable store and the
// logical task-map/queue names, so several isolated task-manager instances
// can share one broker and one store.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/irtaza129/datashare/errors"
)

// DefaultFileName is the config file looked up in the working directory.
const DefaultFileName = "datashare.toml"

// EnvBrokerURL overrides the broker URL from the environment.
const EnvBrokerURL = "DS_BROKER_URL"

// Broker holds message-broker connection settings.
type Broker struct {
	// Host and Port locate the broker. URL, when set, wins over both.
	Host string `toml:"host"`
	Port int    `toml:"port"`
	URL  string `toml:"url"`

	// User and Password for basic auth; VirtualHost namespaces subjects.
	User        string `toml:"user"`
	Password    string `toml:"password"`
	VirtualHost string `toml:"virtual_host"`

	// Heartbeat is the connection liveness interval.
	Heartbeat duration `toml:"heartbeat"`

	// RecoveryInterval is the wait between automatic reconnection attempts.
	RecoveryInterval duration `toml:"recovery_interval"`

	// ConnectTimeout bounds the initial connection attempt. Initial
	// connection failure is fatal; there is no startup retry loop here.
	ConnectTimeout duration `toml:"connect_timeout"`
}

// Channels holds per-channel delivery settings.
type Channels struct {
	// DeadLetter is the destination for messages a consumer gives up on.
	DeadLetter string `toml:"dead_letter"`

	// MaxInFlight caps unacknowledged messages per consumer channel.
	MaxInFlight int `toml:"max_in_flight"`
}

// Store holds durable-store settings.
type Store struct {
	// Bucket is the key-value bucket holding serialized task records.
	Bucket string `toml:"bucket"`

	// MaxValueSize caps one serialized record, in bytes.
	MaxValueSize int32 `toml:"max_value_size"`
}

// Tasks holds registry/queue naming and sizing.
type Tasks struct {
	// MapName is the logical task-map name. Distinct names give isolated
	// task-manager instances on one shared broker/store.
	MapName string `toml:"map_name"`

	// QueueName is the durable pending-work queue name.
	QueueName string `toml:"queue_name"`

	// QueueCapacity bounds the pending-work queue; Offer blocks when full.
	QueueCapacity int `toml:"queue_capacity"`

	// MaxRetries is the retry budget given to new tasks.
	MaxRetries int `toml:"max_retries"`
}

// Config is the full task-layer configuration.
type Config struct {
	Broker   Broker   `toml:"broker"`
	Channels Channels `toml:"channels"`
	Store    Store    `toml:"store"`
	Tasks    Tasks    `toml:"tasks"`
}

// duration wraps time.Duration for TOML strings like "60s".
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Broker: Broker{
			Host:             "localhost",
			Port:             4222,
			VirtualHost:      "/",
			Heartbeat:        duration{60 * time.Second},
			RecoveryInterval: duration{5 * time.Second},
			ConnectTimeout:   duration{5 * time.Second},
		},
		Channels: Channels{
			DeadLetter: "dead-letter",
			MaxInFlight: 10,
		},
		Store: Store{
			Bucket:       "datashare-tasks",
			MaxValueSize: 1024 * 1024,
		},
		Tasks: Tasks{
			MapName:       "tasks:map",
			QueueName:     "tasks:queue",
			QueueCapacity: 1024,
			MaxRetries:    3,
		},
	}
}

// Load reads configuration from path, filling unset fields with defaults.
// A missing file is not an error: defaults are returned, matching the
// behavior of running without a properties file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultFileName
	}

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, errors.WrapWithCode(err, errors.ErrCodeConfig, "decoding "+path)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyEnv overlays environment overrides.
func applyEnv(cfg *Config) {
	if url := os.Getenv(EnvBrokerURL); url != "" {
		cfg.Broker.URL = url
	}
}

// Validate rejects configurations the process cannot start with.
func (c *Config) Validate() error {
	if c.Broker.URL == "" && (c.Broker.Host == "" || c.Broker.Port <= 0) {
		return errors.New(errors.ErrCodeConfig, "broker host and port (or url) are required")
	}
	if c.Channels.MaxInFlight <= 0 {
		return errors.New(errors.ErrCodeConfig, "channels.max_in_flight must be positive")
	}
	if c.Tasks.MapName == "" || c.Tasks.QueueName == "" {
		return errors.New(errors.ErrCodeConfig, "tasks.map_name and tasks.queue_name are required")
	}
	if c.Tasks.QueueCapacity <= 0 {
		return errors.New(errors.ErrCodeConfig, "tasks.queue_capacity must be positive")
	}
	return nil
}

// BrokerURL renders the broker address for the client library.
func (c *Config) BrokerURL() string {
	if c.Broker.URL != "" {
		return c.Broker.URL
	}
	return "nats://" + c.Broker.Host + ":" + strconv.Itoa(c.Broker.Port)
}

// Heartbeat returns the configured heartbeat interval.
func (c *Config) Heartbeat() time.Duration {
	return c.Broker.Heartbeat.Duration
}

// RecoveryInterval returns the configured reconnection wait.
func (c *Config) RecoveryInterval() time.Duration {
	return c.Broker.RecoveryInterval.Duration
}

// ConnectTimeout returns the initial connection timeout.
func (c *Config) ConnectTimeout() time.Duration {
	return c.Broker.ConnectTimeout.Duration
}
