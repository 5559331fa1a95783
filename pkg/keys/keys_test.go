package keys

import (
	"bytes"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignVerify(t *testing.T) {
	kp, err := GenerateKeyPair()
	require.NoError(t, err)
	require.Len(t, kp.Public, 32)

	msg := []byte("hello")
	sig := kp.Sign(msg)
	require.Len(t, sig, 64)
	assert.NoError(t, Verify(kp.Public, msg, sig))

	other, err := GenerateKeyPair()
	require.NoError(t, err)
	assert.ErrorIs(t, Verify(other.Public, msg, sig), ErrInvalidSignature)
	assert.ErrorIs(t, Verify(kp.Public, []byte("hellO"), sig), ErrInvalidSignature)
	assert.ErrorIs(t, Verify(kp.Public, msg, sig[:10]), ErrInvalidSignature)
	assert.ErrorIs(t, Verify(kp.Public[:5], msg, sig), ErrInvalidSignature)
}

func TestDeriveDiscoveryKey(t *testing.T) {
	kp, err := GenerateKeyPair()
	require.NoError(t, err)
	other, err := GenerateKeyPair()
	require.NoError(t, err)

	a, err := DeriveDiscoveryKey(kp.Public, []byte("p2p-chat"))
	require.NoError(t, err)
	b, err := DeriveDiscoveryKey(kp.Public, []byte("p2p-chat"))
	require.NoError(t, err)
	c, err := DeriveDiscoveryKey(other.Public, []byte("p2p-chat"))
	require.NoError(t, err)
	d, err := DeriveDiscoveryKey(kp.Public, []byte("another"))
	require.NoError(t, err)

	assert.Len(t, a, DiscoveryKeySize)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.NotEqual(t, a, d)

	_, err = DeriveDiscoveryKey(bytes.Repeat([]byte{1}, 65), []byte("p2p-chat"))
	assert.Error(t, err)
}

func TestGenerateSessionToken(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		tok := GenerateSessionToken()
		raw, err := base64.StdEncoding.DecodeString(tok)
		require.NoError(t, err)
		assert.Len(t, raw, 32)
		seen[tok] = struct{}{}
	}
	assert.Len(t, seen, 100)
}

func TestChainHash(t *testing.T) {
	in := []byte("some canonical bytes")
	assert.Equal(t, ChainHash(in), ChainHash(append([]byte(nil), in...)))
	assert.NotEqual(t, ChainHash(in), ChainHash([]byte("some canonical byteS")))
}
