// Package config loads cluster connection settings from a YAML file via
// gopkg.in/yaml.v3.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"

	"clusterkv"
)

// Config is the on-disk shape of a cluster client configuration file.
type Config struct {
	Servers []string `yaml:"servers"`

	ReplicaMode    string `yaml:"replicaMode"`    // "never" (default), "always", or "share"
	SlotIntervalMS int    `yaml:"slotIntervalMs"`
	ReadyTimeoutMS int    `yaml:"readyTimeoutMs"`
	MaxQueueLength int    `yaml:"maxQueueLength"`
	QueueShift     *bool  `yaml:"queueShift"`

	Redis RedisConfig `yaml:"redis"`
}

// RedisConfig carries the per-node connection settings forwarded to every
// node's github.com/redis/go-redis/v9 client.
type RedisConfig struct {
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// Load reads and parses a YAML config file at path.
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// ToOptions converts the file's settings into clusterkv.Options. Node
// connection details (Servers aside) are applied through RedisOptions,
// which the caller may further customize before calling clusterkv.New.
func (c Config) ToOptions() (clusterkv.Options, error) {
	var servers []clusterkv.Addr
	for _, s := range c.Servers {
		a, err := clusterkv.ParseAddr(s)
		if err != nil {
			return clusterkv.Options{}, fmt.Errorf("config: %w", err)
		}
		servers = append(servers, a)
	}

	opts := clusterkv.Options{
		Servers:        servers,
		MaxQueueLength: c.MaxQueueLength,
		QueueShift:     c.QueueShift,
		ReplicaMode:    parseReplicaMode(c.ReplicaMode),
	}
	if c.SlotIntervalMS > 0 {
		opts.SlotInterval = time.Duration(c.SlotIntervalMS) * time.Millisecond
	}
	if c.ReadyTimeoutMS > 0 {
		opts.ReadyTimeout = time.Duration(c.ReadyTimeoutMS) * time.Millisecond
	}
	if c.Redis.Password != "" || c.Redis.DB != 0 {
		opts.RedisOptions = &redis.Options{Password: c.Redis.Password, DB: c.Redis.DB}
	}
	return opts, nil
}

func parseReplicaMode(s string) clusterkv.ReplicaMode {
	switch s {
	case "always":
		return clusterkv.ReplicaAlways
	case "share":
		return clusterkv.ReplicaShare
	default:
		return clusterkv.ReplicaNever
	}
}
