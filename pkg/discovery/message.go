package discovery

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"net/netip"
	"strings"

	"github.com/miekg/dns"
)

const (
	fieldToken = "token"
	fieldPeers = "peers"

	// answerTTL is the TTL of our TXT answers in seconds.
	answerTTL = 120

	peersFieldSize = 6
)

// RendezvousName derives the fully qualified name all participants of a
// channel query for: the first 40 hex characters of the discovery key
// followed by suffix.
func RendezvousName(discoveryKey []byte, suffix string) (string, error) {
	if len(discoveryKey) < 20 {
		return "", fmt.Errorf("%w: got %d bytes", ErrShortKey, len(discoveryKey))
	}
	label := hex.EncodeToString(discoveryKey)[:40]
	return dns.Fqdn(label + "." + strings.Trim(suffix, ".")), nil
}

// EncodePeersField encodes an IPv4 address and port as base64 of the four
// address octets followed by the big-endian port. Despite the plural name
// the field only ever carries the advertiser itself. Addresses that are not
// IPv4 are encoded as 0.0.0.0.
func EncodePeersField(addr netip.Addr, port uint16) string {
	addr = addr.Unmap()
	if !addr.Is4() {
		addr = netip.IPv4Unspecified()
	}
	buf := make([]byte, 0, peersFieldSize)
	a4 := addr.As4()
	buf = append(buf, a4[:]...)
	buf = binary.BigEndian.AppendUint16(buf, port)
	return base64.StdEncoding.EncodeToString(buf)
}

// DecodePeersField reverses EncodePeersField.
func DecodePeersField(field string) (netip.Addr, uint16, error) {
	raw, err := base64.StdEncoding.DecodeString(field)
	if err != nil {
		return netip.Addr{}, 0, fmt.Errorf("%w: %v", ErrMalformedPeers, err)
	}
	if len(raw) != peersFieldSize {
		return netip.Addr{}, 0, fmt.Errorf("%w: got %d bytes", ErrMalformedPeers, len(raw))
	}
	addr := netip.AddrFrom4([4]byte(raw[:4]))
	return addr, binary.BigEndian.Uint16(raw[4:]), nil
}

func txtFields(p Peer) []string {
	return []string{
		fieldToken + "=" + p.Token,
		fieldPeers + "=" + EncodePeersField(p.Addr, p.Port),
	}
}

// newQuery builds the rendezvous question for a TXT record under name.
func newQuery(name string) *dns.Msg {
	m := new(dns.Msg)
	m.Question = []dns.Question{{
		Name:   name,
		Qtype:  dns.TypeTXT,
		Qclass: dns.ClassINET,
	}}
	return m
}

// newAnswer builds the response to a rendezvous query. The question is kept
// in the response because receivers filter on the question section.
func newAnswer(name string, self Peer) *dns.Msg {
	m := newQuery(name)
	m.Response = true
	m.Authoritative = true
	m.Answer = []dns.RR{&dns.TXT{
		Hdr: dns.RR_Header{
			Name:   name,
			Rrtype: dns.TypeTXT,
			Class:  dns.ClassINET,
			Ttl:    answerTTL,
		},
		Txt: txtFields(self),
	}}
	return m
}

// asksFor reports whether any question of m is for name, ignoring case.
func asksFor(m *dns.Msg, name string) bool {
	for _, q := range m.Question {
		if strings.EqualFold(q.Name, name) {
			return true
		}
	}
	return false
}

// peerFromMessage extracts the first TXT answer carrying both a token and
// a decodable peers field.
func peerFromMessage(m *dns.Msg) (Peer, bool) {
	for _, rr := range m.Answer {
		txt, ok := rr.(*dns.TXT)
		if !ok {
			continue
		}
		if p, ok := peerFromTXT(txt.Txt); ok {
			return p, true
		}
	}
	return Peer{}, false
}

func peerFromTXT(values []string) (Peer, bool) {
	var token, peers string
	var haveToken, havePeers bool
	for _, v := range values {
		key, value, ok := strings.Cut(v, "=")
		if !ok {
			continue
		}
		switch key {
		case fieldToken:
			token, haveToken = value, true
		case fieldPeers:
			peers, havePeers = value, true
		}
	}
	if !haveToken || !havePeers {
		return Peer{}, false
	}
	addr, port, err := DecodePeersField(peers)
	if err != nil {
		return Peer{}, false
	}
	return Peer{Addr: addr, Port: port, Token: token}, true
}
