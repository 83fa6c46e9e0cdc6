// Package supervisor spawns and manages seed and peer processes as
// child OS processes, following original_source/starter.py's
// NodeManager: a YAML-configured seed list and peer port range, a
// free-port allocator, and an interactive add/kill/list/exit/del CLI.
package supervisor

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/quorumnet/overlay/pkg/types"
)

// DefaultConfigFile is the supervisor's own configuration file, distinct
// from the seed-list config.txt the seed/peer binaries read.
const DefaultConfigFile = "config.yml"

// Config is the supervisor's YAML-loaded configuration.
type Config struct {
	Seeds          []SeedSpec    `yaml:"seeds"`
	PeerPortRange  PeerPortRange `yaml:"peer_port_range"`
	InitialPeers   int           `yaml:"initial_peers"`
}

// SeedSpec is one configured seed endpoint.
type SeedSpec struct {
	IP   string `yaml:"ip"`
	Port int    `yaml:"port"`
}

// Endpoint converts a SeedSpec to the shared wire Endpoint type.
func (s SeedSpec) Endpoint() types.Endpoint {
	return types.Endpoint{Host: s.IP, Port: s.Port}
}

// PeerPortRange bounds the inclusive port range peers are allocated
// from.
type PeerPortRange struct {
	Start int `yaml:"start"`
	End   int `yaml:"end"`
}

// LoadConfig reads and parses the supervisor YAML configuration at
// path.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("supervisor: read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("supervisor: parse %s: %w", path, err)
	}
	if cfg.InitialPeers == 0 {
		cfg.InitialPeers = 3
	}
	return cfg, nil
}
