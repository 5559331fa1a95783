package appendlog

import (
	"crypto/ed25519"
	"encoding/binary"

	"github.com/udit2303/p2p-chat/pkg/keys"
)

// Content is the signed part of a log entry.
type Content struct {
	Data           []byte
	HashPrevious   uint64 // 0 for the first entry
	SequenceNumber uint64 // starts at 1
}

// Bytes returns the canonical encoding used for signing and hashing:
// data, then hashPrevious and sequenceNumber as 8 byte big-endian integers.
func (c Content) Bytes() []byte {
	buf := make([]byte, 0, len(c.Data)+16)
	buf = append(buf, c.Data...)
	buf = binary.BigEndian.AppendUint64(buf, c.HashPrevious)
	buf = binary.BigEndian.AppendUint64(buf, c.SequenceNumber)
	return buf
}

// Entry is an immutable, signed log record.
type Entry struct {
	Content   Content
	Signature []byte
}

func signEntry(c Content, kp *keys.KeyPair) Entry {
	return Entry{
		Content:   c,
		Signature: kp.Sign(c.Bytes()),
	}
}

// Bytes returns the canonical content bytes followed by the signature.
func (e Entry) Bytes() []byte {
	return append(e.Content.Bytes(), e.Signature...)
}

// Hash returns the chain digest the next entry stores as HashPrevious.
func (e Entry) Hash() uint64 {
	return keys.ChainHash(e.Bytes())
}

// Verify reports whether the signature covers the content under publicKey.
func (e Entry) Verify(publicKey ed25519.PublicKey) bool {
	return keys.Verify(publicKey, e.Content.Bytes(), e.Signature) == nil
}

func (e Entry) clone() Entry {
	return Entry{
		Content: Content{
			Data:           append([]byte(nil), e.Content.Data...),
			HashPrevious:   e.Content.HashPrevious,
			SequenceNumber: e.Content.SequenceNumber,
		},
		Signature: append([]byte(nil), e.Signature...),
	}
}
