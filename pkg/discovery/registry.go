package discovery

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultRegistrySize bounds how many peers a Registry remembers.
const DefaultRegistrySize = 256

// Registry remembers discovered peers by session token so that repeated
// answers are reported once. The least recently seen peer is forgotten when
// the registry is full.
type Registry struct {
	peers *lru.Cache[string, Peer]
}

// NewRegistry creates a registry holding up to size peers
func NewRegistry(size int) (*Registry, error) {
	c, err := lru.New[string, Peer](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create peer registry: %w", err)
	}
	return &Registry{peers: c}, nil
}

// Add records p and reports whether its token was new.
func (r *Registry) Add(p Peer) bool {
	if _, known, _ := r.peers.PeekOrAdd(p.Token, p); !known {
		return true
	}
	// refresh recency and the advertised port
	r.peers.Add(p.Token, p)
	return false
}

// Get returns the peer known under token
func (r *Registry) Get(token string) (Peer, bool) {
	return r.peers.Peek(token)
}

// Len returns the number of known peers
func (r *Registry) Len() int {
	return r.peers.Len()
}

// Peers returns known peers, least recently seen first
func (r *Registry) Peers() []Peer {
	return r.peers.Values()
}
