package discovery

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"sync"
	"time"

	"github.com/miekg/dns"
	"golang.org/x/sync/errgroup"

	"github.com/udit2303/p2p-chat/pkg/keys"
	"github.com/udit2303/p2p-chat/pkg/util"
)

var (
	log = util.DefaultLogger().Named("discovery")
)

// verdict is the outcome of handling one inbound datagram.
type verdict int

const (
	verdictDrop verdict = iota
	verdictAnswer
	verdictPeer
)

// Discovery announces the local peer under a rendezvous name and reports
// other participants. The multicast socket is owned by Discovery and closed
// when Run returns; a Discovery runs once.
type Discovery struct {
	name     string
	self     Peer
	conn     net.PacketConn
	group    net.Addr
	interval time.Duration

	query  []byte
	answer []byte

	// outbox is drained by the single writer; the announcer and the
	// receiver both enqueue into it.
	outbox chan []byte

	log       *util.Logger
	closeOnce sync.Once
	closeErr  error
}

// New joins the multicast group and prepares the local record for port.
// Failing to bind or join is fatal for discovery and returned as an error.
func New(discoveryKey []byte, port uint16, cfg *Config) (*Discovery, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	group, err := net.ResolveUDPAddr("udp4", cfg.Group)
	if err != nil {
		return nil, fmt.Errorf("%w: group %q: %v", ErrInvalidConfig, cfg.Group, err)
	}

	conn, err := listenMulticast(group, cfg.Interface)
	if err != nil {
		return nil, err
	}

	d, err := newDiscovery(conn, group, discoveryKey, port, cfg)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return d, nil
}

func newDiscovery(conn net.PacketConn, group net.Addr, discoveryKey []byte, port uint16, cfg *Config) (*Discovery, error) {
	name, err := RendezvousName(discoveryKey, cfg.Suffix)
	if err != nil {
		return nil, err
	}

	self := Peer{
		// The outward address is never learned, so we advertise 0.0.0.0.
		Addr:  netip.IPv4Unspecified(),
		Port:  port,
		Token: keys.GenerateSessionToken(),
	}

	query, err := newQuery(name).Pack()
	if err != nil {
		return nil, fmt.Errorf("failed to pack query: %w", err)
	}
	answer, err := newAnswer(name, self).Pack()
	if err != nil {
		return nil, fmt.Errorf("failed to pack answer: %w", err)
	}

	return &Discovery{
		name:     name,
		self:     self,
		conn:     conn,
		group:    group,
		interval: cfg.Interval,
		query:    query,
		answer:   answer,
		outbox:   make(chan []byte, 16),
		log:      log.With("name", name),
	}, nil
}

// Name returns the rendezvous name queried for
func (d *Discovery) Name() string {
	return d.name
}

// Self returns the record advertised for the local process
func (d *Discovery) Self() Peer {
	return d.self
}

// Run announces the local peer every interval and delivers every other
// participant's answer on found until ctx is cancelled. Duplicates are not
// filtered; callers deduplicate by token. Run returns nil after cancellation
// and an error if receiving from the socket fails.
func (d *Discovery) Run(ctx context.Context, found chan<- Peer) error {
	defer d.Close()

	d.log.Info("Discovery started", "token", d.self.Token, "port", d.self.Port, "interval", d.interval)

	g, ctx := errgroup.WithContext(ctx)

	// Closing the socket is the only way to unblock ReadFrom.
	g.Go(func() error {
		<-ctx.Done()
		d.Close()
		return nil
	})
	g.Go(func() error {
		return d.announce(ctx)
	})
	g.Go(func() error {
		return d.send(ctx)
	})
	// The receiver hands peers to the deliverer, which queues them until
	// the consumer is ready, so a slow consumer never stalls answering.
	discovered := make(chan Peer)
	g.Go(func() error {
		return d.receive(ctx, discovered)
	})
	g.Go(func() error {
		return d.deliver(ctx, discovered, found)
	})

	err := g.Wait()
	if err != nil {
		d.log.WithError(err).Error("Discovery stopped")
		return err
	}
	d.log.Info("Discovery stopped")
	return nil
}

// Close releases the multicast socket. It is safe to call more than once.
func (d *Discovery) Close() error {
	d.closeOnce.Do(func() {
		d.closeErr = d.conn.Close()
	})
	return d.closeErr
}

func (d *Discovery) enqueue(ctx context.Context, b []byte) error {
	select {
	case d.outbox <- b:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// announce queues the rendezvous query right away and then on every tick.
func (d *Discovery) announce(ctx context.Context) error {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		if err := d.enqueue(ctx, d.query); err != nil {
			return nil
		}
		queriesSent.Inc()

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// send is the only writer on the socket. Write failures are logged and
// skipped: a network that is down looks like a network without peers.
func (d *Discovery) send(ctx context.Context) error {
	for {
		var b []byte
		select {
		case <-ctx.Done():
			return nil
		case b = <-d.outbox:
		}

		if _, err := d.conn.WriteTo(b, d.group); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			sendErrors.Inc()
			d.log.Warn("Failed to send datagram", "group", d.group, "error", err)
			continue
		}
		d.log.Debug("Sent datagram", "bytes", len(b), "group", d.group)
	}
}

func (d *Discovery) receive(ctx context.Context, discovered chan<- Peer) error {
	buf := make([]byte, maxDatagram)
	for {
		n, src, err := d.conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("failed to receive from %s: %w", d.group, err)
		}
		datagramsReceived.Inc()

		v, peer := d.handleMessage(buf[:n])
		switch v {
		case verdictAnswer:
			d.log.Debug("Answering query", "source", src)
			if err := d.enqueue(ctx, d.answer); err != nil {
				return nil
			}
			answersSent.Inc()
		case verdictPeer:
			d.log.Debug("Peer answered", "peer", peer, "source", src)
			peersFound.Inc()
			select {
			case discovered <- peer:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

// deliver forwards discovered peers to found in arrival order. Its queue is
// unbounded; it always accepts from discovered while found is not ready.
func (d *Discovery) deliver(ctx context.Context, discovered <-chan Peer, found chan<- Peer) error {
	var queue []Peer
	for {
		var (
			out  chan<- Peer
			next Peer
		)
		if len(queue) > 0 {
			out = found
			next = queue[0]
		}

		select {
		case <-ctx.Done():
			return nil
		case p := <-discovered:
			queue = append(queue, p)
		case out <- next:
			queue[0] = Peer{}
			queue = queue[1:]
		}
	}
}

// handleMessage applies the inbound rules to one datagram.
func (d *Discovery) handleMessage(b []byte) (verdict, Peer) {
	m := new(dns.Msg)
	if err := m.Unpack(b); err != nil {
		datagramsDropped.WithLabelValues(dropUnparsable).Inc()
		return verdictDrop, Peer{}
	}

	// The shared mDNS group carries everyone's traffic; keep only ours.
	if !asksFor(m, d.name) {
		datagramsDropped.WithLabelValues(dropForeign).Inc()
		return verdictDrop, Peer{}
	}

	if !m.Response {
		return verdictAnswer, Peer{}
	}

	peer, ok := peerFromMessage(m)
	if !ok {
		datagramsDropped.WithLabelValues(dropIncomplete).Inc()
		return verdictDrop, Peer{}
	}
	if peer.Token == d.self.Token {
		datagramsDropped.WithLabelValues(dropSelf).Inc()
		return verdictDrop, Peer{}
	}
	return verdictPeer, peer
}
