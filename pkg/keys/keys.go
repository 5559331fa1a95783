package keys

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// DiscoveryKeySize is the length of a derived discovery key.
const DiscoveryKeySize = 32

// DeriveDiscoveryKey binds a channel public key and a namespace to a
// deterministic 32 byte identifier using keyed BLAKE2b.
func DeriveDiscoveryKey(publicKey, namespace []byte) ([]byte, error) {
	h, err := blake2b.New(DiscoveryKeySize, publicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to derive discovery key: %w", err)
	}
	h.Write(namespace)
	return h.Sum(nil), nil
}

// ChainHash digests the canonical bytes of a log entry with BLAKE2b-512 and
// keeps the first 8 bytes as a big-endian integer.
func ChainHash(canonical []byte) uint64 {
	sum := blake2b.Sum512(canonical)
	return binary.BigEndian.Uint64(sum[:8])
}
