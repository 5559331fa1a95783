// Package discovery finds processes interested in the same channel on the
// local network. Participants query a rendezvous name derived from the
// channel's discovery key over mDNS multicast and answer each other's queries
// with a TXT record carrying a session token and their listening port.
package discovery

import (
	"errors"
	"fmt"
	"net/netip"
	"time"
)

const (
	// DefaultGroup is the standard mDNS multicast group and port.
	DefaultGroup = "224.0.0.251:5353"

	// DefaultInterval is how often the rendezvous query is re-sent.
	DefaultInterval = 1000 * time.Millisecond

	// DefaultSuffix is appended to the shortened discovery key.
	DefaultSuffix = "chat.local"

	// multicastTTL keeps queries on the local link.
	multicastTTL = 1

	// maxDatagram is the largest UDP payload we read.
	maxDatagram = 65536
)

var (
	// ErrShortKey is returned for discovery keys under 20 bytes.
	ErrShortKey = errors.New("discovery: discovery key too short")

	// ErrInvalidConfig wraps configuration validation failures.
	ErrInvalidConfig = errors.New("discovery: invalid config")

	// ErrNoMulticastInterface is returned when no interface joined the group.
	ErrNoMulticastInterface = errors.New("discovery: no multicast interface joined")

	// ErrMalformedPeers is returned when a peers field cannot be decoded.
	ErrMalformedPeers = errors.New("discovery: malformed peers field")
)

// Peer is a participant found on the network. Addr is whatever the remote
// advertised, which is the unspecified address for every current
// implementation; callers combine it with the datagram source if they need a
// routable address.
type Peer struct {
	Addr  netip.Addr
	Port  uint16
	Token string
}

// AddrPort returns the advertised address and port
func (p Peer) AddrPort() netip.AddrPort {
	return netip.AddrPortFrom(p.Addr, p.Port)
}

func (p Peer) String() string {
	return fmt.Sprintf("%s (%s)", p.AddrPort(), p.Token)
}

// Config tunes the discovery protocol.
type Config struct {
	// Group is the multicast group as host:port.
	Group string

	// Interval between rendezvous queries.
	Interval time.Duration

	// Interface restricts the group join to one interface; empty joins on
	// every multicast-capable interface that is up.
	Interface string

	// Suffix is the domain under which rendezvous names live.
	Suffix string
}

// DefaultConfig returns the configuration every participant must share.
func DefaultConfig() *Config {
	return &Config{
		Group:    DefaultGroup,
		Interval: DefaultInterval,
		Suffix:   DefaultSuffix,
	}
}

// Validate checks the configuration
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: config is nil", ErrInvalidConfig)
	}
	if c.Group == "" {
		return fmt.Errorf("%w: group is empty", ErrInvalidConfig)
	}
	if c.Interval <= 0 {
		return fmt.Errorf("%w: interval must be positive", ErrInvalidConfig)
	}
	if c.Suffix == "" {
		return fmt.Errorf("%w: suffix is empty", ErrInvalidConfig)
	}
	return nil
}
