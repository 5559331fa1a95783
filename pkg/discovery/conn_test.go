package discovery

import (
	"errors"
	"net"
	"sync"
	"time"
)

var testSource = &net.UDPAddr{IP: net.IPv4(192, 168, 1, 20), Port: 5353}

// memConn is a net.PacketConn whose traffic is driven by the test.
type memConn struct {
	in     chan []byte
	out    chan []byte
	closed chan struct{}
	once   sync.Once
}

func newMemConn() *memConn {
	return &memConn{
		in:     make(chan []byte, 16),
		out:    make(chan []byte, 64),
		closed: make(chan struct{}),
	}
}

func (c *memConn) ReadFrom(b []byte) (int, net.Addr, error) {
	select {
	case p := <-c.in:
		return copy(b, p), testSource, nil
	case <-c.closed:
		return 0, nil, net.ErrClosed
	}
}

func (c *memConn) WriteTo(b []byte, _ net.Addr) (int, error) {
	cp := append([]byte(nil), b...)
	select {
	case c.out <- cp:
		return len(b), nil
	case <-c.closed:
		return 0, net.ErrClosed
	}
}

func (c *memConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *memConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

func (c *memConn) LocalAddr() net.Addr                { return &net.UDPAddr{IP: net.IPv4zero, Port: 5353} }
func (c *memConn) SetDeadline(t time.Time) error      { return nil }
func (c *memConn) SetReadDeadline(t time.Time) error  { return nil }
func (c *memConn) SetWriteDeadline(t time.Time) error { return nil }

// brokenConn fails every read as a dead socket would.
type brokenConn struct {
	*memConn
}

func (c *brokenConn) ReadFrom(b []byte) (int, net.Addr, error) {
	return 0, nil, errors.New("interface went away")
}
