package keys

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	mrand "math/rand"
	"strconv"

	"github.com/minio/sha256-simd"
)

// KeyPair holds the Ed25519 identity of a log owner. Only Public ever leaves
// the process.
type KeyPair struct {
	Public ed25519.PublicKey
	Secret ed25519.PrivateKey
}

// GenerateKeyPair creates a new Ed25519 key pair from the OS entropy source
func GenerateKeyPair() (*KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate key pair: %w", err)
	}
	return &KeyPair{Public: pub, Secret: priv}, nil
}

// GenerateSessionToken returns a fresh token identifying one discovery
// session. It hashes a single math/rand sample, so it is only good enough to
// recognise our own multicast echoes and must not be used as a credential.
func GenerateSessionToken() string {
	sample := strconv.FormatFloat(mrand.Float64(), 'g', -1, 64)
	sum := sha256.Sum256([]byte(sample))
	return base64.StdEncoding.EncodeToString(sum[:])
}
