// Package config loads the node configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/udit2303/p2p-chat/pkg/discovery"
)

const (
	// DefaultNamespace is mixed into the discovery key of every channel.
	DefaultNamespace = "p2p-chat"

	// DefaultPort is advertised until a data channel listener exists.
	DefaultPort = 12345

	// ChannelScheme prefixes shareable channel URLs.
	ChannelScheme = "chat://"
)

// Config is the complete node configuration.
type Config struct {
	// Channel is a chat:// URL or hex public key to join; empty creates a
	// channel from the local identity.
	Channel   string          `yaml:"channel"`
	Namespace string          `yaml:"namespace"`
	Port      uint16          `yaml:"port"`
	Discovery DiscoveryConfig `yaml:"discovery"`

	// MetricsAddr enables the Prometheus endpoint when set.
	MetricsAddr string `yaml:"metrics_addr"`
	Debug       bool   `yaml:"debug"`
}

// DiscoveryConfig mirrors discovery.Config plus the options the command
// wires around it.
type DiscoveryConfig struct {
	Group        string        `yaml:"group"`
	Interval     time.Duration `yaml:"interval"`
	Interface    string        `yaml:"interface"`
	RegistrySize int           `yaml:"registry_size"`

	// DNSSD also registers the node as a DNS-SD service.
	DNSSD bool `yaml:"dnssd"`

	// STUN asks a STUN server for the public address at startup.
	STUN       bool   `yaml:"stun"`
	STUNServer string `yaml:"stun_server"`
}

// Default returns the built-in configuration
func Default() *Config {
	d := discovery.DefaultConfig()
	return &Config{
		Namespace: DefaultNamespace,
		Port:      DefaultPort,
		Discovery: DiscoveryConfig{
			Group:        d.Group,
			Interval:     d.Interval,
			RegistrySize: discovery.DefaultRegistrySize,
		},
	}
}

// Load reads path on top of the defaults. Fields missing from the file keep
// their default values.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration
func (c *Config) Validate() error {
	if c.Namespace == "" {
		return errors.New("config: namespace is empty")
	}
	if c.Discovery.RegistrySize <= 0 {
		return errors.New("config: discovery.registry_size must be positive")
	}
	if err := c.ProtocolConfig().Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// ProtocolConfig returns the discovery protocol configuration
func (c *Config) ProtocolConfig() *discovery.Config {
	d := discovery.DefaultConfig()
	d.Group = c.Discovery.Group
	d.Interval = c.Discovery.Interval
	d.Interface = c.Discovery.Interface
	return d
}
