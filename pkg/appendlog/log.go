// Package appendlog implements an in-memory, append-only log whose entries
// are signed with Ed25519 and linked to their predecessor by a chain hash.
package appendlog

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"sync"

	"github.com/udit2303/p2p-chat/pkg/keys"
)

// ErrNotFound is returned for indices outside the log.
var ErrNotFound = errors.New("appendlog: not found")

// Log is an append-only sequence of signed entries owned by one key pair.
// Appends are serialized; entries are never edited or removed.
type Log struct {
	mu      sync.RWMutex
	entries []Entry
	keys    *keys.KeyPair
}

// New returns an empty log with a freshly generated key pair
func New() (*Log, error) {
	kp, err := keys.GenerateKeyPair()
	if err != nil {
		return nil, fmt.Errorf("failed to create log: %w", err)
	}
	return NewWithKeyPair(kp), nil
}

// NewWithKeyPair returns an empty log signing with kp
func NewWithKeyPair(kp *keys.KeyPair) *Log {
	return &Log{keys: kp}
}

// PublicKey returns the key entries are signed with
func (l *Log) PublicKey() ed25519.PublicKey {
	return l.keys.Public
}

// Append signs data as the next entry and returns a copy of it.
func (l *Log) Append(data []byte) Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	seq := uint64(len(l.entries)) + 1

	var hashPrevious uint64
	if n := len(l.entries); n > 0 {
		hashPrevious = l.entries[n-1].Hash()
	}

	entry := signEntry(Content{
		Data:           append([]byte(nil), data...),
		HashPrevious:   hashPrevious,
		SequenceNumber: seq,
	}, l.keys)
	l.entries = append(l.entries, entry)

	entriesAppended.Inc()
	return entry.clone()
}

// Len returns the number of entries
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// IsEmpty reports whether nothing was appended yet
func (l *Log) IsEmpty() bool {
	return l.Len() == 0
}

// Get returns a copy of the data stored at index.
func (l *Log) Get(index int) ([]byte, error) {
	e, err := l.Entry(index)
	if err != nil {
		return nil, err
	}
	return e.Content.Data, nil
}

// Hash returns the chain digest of the entry at index.
func (l *Log) Hash(index int) (uint64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if index < 0 || index >= len(l.entries) {
		return 0, ErrNotFound
	}
	return l.entries[index].Hash(), nil
}

// Entry returns a copy of the entry at index.
func (l *Log) Entry(index int) (Entry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if index < 0 || index >= len(l.entries) {
		return Entry{}, ErrNotFound
	}
	return l.entries[index].clone(), nil
}

// Entries returns a copy of all entries in order.
func (l *Log) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Entry, len(l.entries))
	for i, e := range l.entries {
		out[i] = e.clone()
	}
	return out
}

// Verify checks ordering, chain links and signatures of every entry.
func (l *Log) Verify(publicKey ed25519.PublicKey) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return VerifyEntries(publicKey, l.entries)
}

// VerifyEntries applies the log's integrity rules to a detached sequence of
// entries. An empty sequence is valid.
func VerifyEntries(publicKey ed25519.PublicKey, entries []Entry) bool {
	for i, e := range entries {
		if i > 0 && entries[i-1].Hash() != e.Content.HashPrevious {
			verifyFailures.WithLabelValues("link").Inc()
			return false
		}
		if e.Content.SequenceNumber != uint64(i)+1 {
			verifyFailures.WithLabelValues("sequence").Inc()
			return false
		}
		if !e.Verify(publicKey) {
			verifyFailures.WithLabelValues("signature").Inc()
			return false
		}
	}
	return true
}
