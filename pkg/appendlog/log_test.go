package appendlog

import (
	"fmt"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udit2303/p2p-chat/pkg/keys"
)

func newLog(t *testing.T) *Log {
	t.Helper()
	l, err := New()
	require.NoError(t, err)
	return l
}

func TestLogGet(t *testing.T) {
	l := newLog(t)
	assert.True(t, l.IsEmpty())
	assert.Equal(t, 0, l.Len())

	l.Append([]byte("Hello, Test!"))
	l.Append([]byte("1, 2, 3"))

	assert.Equal(t, 2, l.Len())
	assert.False(t, l.IsEmpty())

	data, err := l.Get(0)
	require.NoError(t, err)
	assert.Equal(t, []byte("Hello, Test!"), data)

	data, err = l.Get(1)
	require.NoError(t, err)
	assert.Equal(t, []byte("1, 2, 3"), data)

	_, err = l.Get(2)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = l.Get(-1)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = l.Hash(2)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLogAppendChains(t *testing.T) {
	l := newLog(t)
	payloads := [][]byte{[]byte("a"), {}, []byte("ccc"), {0, 1, 2, 3}, []byte("last")}

	for i, p := range payloads {
		e := l.Append(p)
		assert.Equal(t, uint64(i+1), e.Content.SequenceNumber)
		if i == 0 {
			assert.Zero(t, e.Content.HashPrevious)
		} else {
			prev, err := l.Hash(i - 1)
			require.NoError(t, err)
			assert.Equal(t, prev, e.Content.HashPrevious)
		}
		assert.True(t, l.Verify(l.PublicKey()), "after append %d", i)
	}

	for i, e := range l.Entries() {
		assert.Equal(t, uint64(i+1), e.Content.SequenceNumber)
	}
}

func TestLogVerifyEmpty(t *testing.T) {
	l := newLog(t)
	assert.True(t, l.Verify(l.PublicKey()))
}

func TestLogVerifyWrongKey(t *testing.T) {
	l := newLog(t)
	l.Append([]byte("Test"))
	l.Append([]byte("1, 2, 3"))

	other, err := keys.GenerateKeyPair()
	require.NoError(t, err)

	before := testutil.ToFloat64(verifyFailures.WithLabelValues("signature"))
	assert.True(t, l.Verify(l.PublicKey()))
	assert.False(t, l.Verify(other.Public))
	assert.Equal(t, before+1, testutil.ToFloat64(verifyFailures.WithLabelValues("signature")))
}

func TestLogVerifyTampering(t *testing.T) {
	tests := []struct {
		name   string
		tamper func(l *Log)
	}{
		{"data", func(l *Log) { l.entries[1].Content.Data[0] ^= 0xff }},
		{"hash previous", func(l *Log) { l.entries[2].Content.HashPrevious++ }},
		{"sequence number", func(l *Log) { l.entries[0].Content.SequenceNumber = 7 }},
		{"signature", func(l *Log) { l.entries[2].Signature[3] ^= 0x01 }},
		{"swap", func(l *Log) { l.entries[0], l.entries[1] = l.entries[1], l.entries[0] }},
		{"truncated head", func(l *Log) { l.entries = l.entries[1:] }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newLog(t)
			l.Append([]byte("first"))
			l.Append([]byte("second"))
			l.Append([]byte("third"))
			require.True(t, l.Verify(l.PublicKey()))

			tt.tamper(l)
			assert.False(t, l.Verify(l.PublicKey()))
		})
	}
}

func TestLogHashDiffersAcrossKeyPairs(t *testing.T) {
	a := newLog(t)
	b := newLog(t)
	a.Append([]byte("Test"))
	b.Append([]byte("Test"))

	ha, err := a.Hash(0)
	require.NoError(t, err)
	hb, err := b.Hash(0)
	require.NoError(t, err)
	assert.NotEqual(t, ha, hb)
}

func TestEntryHashSameKeyPair(t *testing.T) {
	kp, err := keys.GenerateKeyPair()
	require.NoError(t, err)

	c := Content{Data: []byte{1, 2, 3}, SequenceNumber: 1}
	same := Content{Data: []byte{1, 2, 3}, SequenceNumber: 1}

	assert.Equal(t, signEntry(c, kp).Hash(), signEntry(same, kp).Hash())
}

func TestContentBytes(t *testing.T) {
	c := Content{Data: []byte("ab"), HashPrevious: 0x0102030405060708, SequenceNumber: 2}
	assert.Equal(t, []byte{
		'a', 'b',
		1, 2, 3, 4, 5, 6, 7, 8,
		0, 0, 0, 0, 0, 0, 0, 2,
	}, c.Bytes())
}

func TestEntriesAreCopies(t *testing.T) {
	l := newLog(t)
	l.Append([]byte("keep"))

	data, err := l.Get(0)
	require.NoError(t, err)
	data[0] = 'X'

	es := l.Entries()
	es[0].Signature[0] ^= 0xff

	assert.True(t, l.Verify(l.PublicKey()))
	again, err := l.Get(0)
	require.NoError(t, err)
	assert.Equal(t, []byte("keep"), again)
}

func TestVerifyEntriesDetached(t *testing.T) {
	l := newLog(t)
	for i := 0; i < 4; i++ {
		l.Append([]byte(fmt.Sprintf("msg %d", i)))
	}
	entries := l.Entries()
	assert.True(t, VerifyEntries(l.PublicKey(), entries))
	assert.True(t, VerifyEntries(l.PublicKey(), entries[:2]))
	assert.False(t, VerifyEntries(l.PublicKey(), entries[1:]))
}

func TestLogConcurrentAppend(t *testing.T) {
	l := newLog(t)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				l.Append([]byte(fmt.Sprintf("%d/%d", w, i)))
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, 200, l.Len())
	assert.True(t, l.Verify(l.PublicKey()))
}
