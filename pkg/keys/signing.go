package keys

import (
	"crypto/ed25519"
	"errors"
)

// ErrInvalidSignature is returned when a signature does not verify.
var ErrInvalidSignature = errors.New("keys: invalid signature")

// Sign signs message with the secret half of the key pair
func (kp *KeyPair) Sign(message []byte) []byte {
	return ed25519.Sign(kp.Secret, message)
}

// Verify checks signature over message under publicKey. Malformed keys and
// signatures are reported the same way as a mismatch.
func Verify(publicKey ed25519.PublicKey, message, signature []byte) error {
	if len(publicKey) != ed25519.PublicKeySize || len(signature) != ed25519.SignatureSize {
		return ErrInvalidSignature
	}
	if !ed25519.Verify(publicKey, message, signature) {
		return ErrInvalidSignature
	}
	return nil
}
