package discovery

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"golang.org/x/net/ipv4"

	"github.com/udit2303/p2p-chat/pkg/util"
)

// listenMulticast binds the group port without exclusivity, so other mDNS
// responders and other participants on the same host keep working, and
// joins the group on ifname or on every multicast-capable interface.
func listenMulticast(group *net.UDPAddr, ifname string) (net.PacketConn, error) {
	lc := net.ListenConfig{Control: reuseAddr}
	laddr := net.JoinHostPort(net.IPv4zero.String(), strconv.Itoa(group.Port))
	conn, err := lc.ListenPacket(context.Background(), "udp4", laddr)
	if err != nil {
		return nil, fmt.Errorf("failed to bind %s: %w", laddr, err)
	}

	intfs, err := joinInterfaces(ifname)
	if err != nil {
		conn.Close()
		return nil, err
	}

	pconn := ipv4.NewPacketConn(conn)
	joined := 0
	for i := range intfs {
		if err := pconn.JoinGroup(&intfs[i], &net.UDPAddr{IP: group.IP}); err != nil {
			log.Debug("IPv4 join failed", "interface", intfs[i].Name, "error", err)
			continue
		}
		log.Debug("IPv4 join succeeded", "interface", intfs[i].Name)
		joined++
	}
	if joined == 0 {
		conn.Close()
		return nil, ErrNoMulticastInterface
	}

	// Send through the configured interface too, not the default route.
	if ifname != "" {
		if err := pconn.SetMulticastInterface(&intfs[0]); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to set multicast interface %q: %w", ifname, err)
		}
	}

	if err := pconn.SetMulticastTTL(multicastTTL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to set multicast TTL: %w", err)
	}
	if err := pconn.SetMulticastLoopback(true); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to enable multicast loopback: %w", err)
	}

	return conn, nil
}

func joinInterfaces(ifname string) ([]net.Interface, error) {
	if ifname != "" {
		intf, err := net.InterfaceByName(ifname)
		if err != nil {
			return nil, fmt.Errorf("failed to look up interface %q: %w", ifname, err)
		}
		return []net.Interface{*intf}, nil
	}
	intfs, err := util.MulticastInterfaces()
	if err != nil {
		return nil, fmt.Errorf("failed to list interfaces: %w", err)
	}
	return intfs, nil
}
