package config

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"strings"
)

// ChannelURL formats a public key as a shareable channel URL.
func ChannelURL(publicKey []byte) string {
	return ChannelScheme + hex.EncodeToString(publicKey)
}

// ParseChannel accepts a chat:// URL or a bare hex public key.
func ParseChannel(channel string) ([]byte, error) {
	raw := strings.TrimPrefix(strings.TrimSpace(channel), ChannelScheme)
	key, err := hex.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid channel %q: %w", channel, err)
	}
	if len(key) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("invalid channel %q: want %d byte key, got %d", channel, ed25519.PublicKeySize, len(key))
	}
	return key, nil
}
