// Package config loads the node's YAML configuration file, following
// the teacher's cmd/init.go initConfig pattern: read the file with
// goccy/go-yaml, or fall back to Default if it doesn't exist.
package config

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

// Config is the root configuration for a ringkv node.
type Config struct {
	Logger      LoggerConfig      `yaml:"logger"`
	Server      ServerConfig      `yaml:"server"`
	Storage     StorageConfig     `yaml:"storage"`
	Replication ReplicationConfig `yaml:"replication"`
}

// LoggerConfig controls the process-wide slog handler.
type LoggerConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// ServerConfig is this node's own listen address, and also the
// endpoint by which it identifies itself inside Replication.Peers.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// StorageConfig sizes the local LSM engine.
type StorageConfig struct {
	DataDir             string `yaml:"data_dir"`
	FlushThresholdBytes int    `yaml:"flush_threshold_bytes"`
}

// ReplicationConfig fixes the cluster topology. Peers lists every
// node's address, including this one; Server.Addr must appear in it so
// the node can locate its own index. The default quorum (ack/from) for
// a request that omits its own replicas= override is derived from
// len(Peers) at wiring time, not stored here, so it can never drift out
// of sync with the topology.
type ReplicationConfig struct {
	Peers []string `yaml:"peers"`
}

// Default returns a single-node development configuration.
func Default() Config {
	return Config{
		Logger: LoggerConfig{Level: "INFO", JSON: false},
		Server: ServerConfig{Addr: "localhost:8080"},
		Storage: StorageConfig{
			DataDir:             "./data",
			FlushThresholdBytes: 32 * 1024 * 1024,
		},
		Replication: ReplicationConfig{
			Peers: []string{"localhost:8080"},
		},
	}
}

// Load reads cfg from path, falling back to Default if the file does
// not exist.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// DefaultQuorum returns the ack/from pair to use when a request omits
// its own replicas=ack/from override: from = n (every node), ack =
// n/2 + 1 (majority), where n is the number of nodes in the topology.
func DefaultQuorum(n int) (ack, from int) {
	return n/2 + 1, n
}
