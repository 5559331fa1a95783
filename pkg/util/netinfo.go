package util

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
	"time"

	"github.com/pion/stun"
)

// DefaultSTUNServer is queried by GetPublicAddr when no server is given.
const DefaultSTUNServer = "stun.l.google.com:19302"

// GetLocalIPs returns all non-loopback IPv4 addresses on active interfaces.
func GetLocalIPs() ([]netip.Addr, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	var ips []netip.Addr
	for _, iface := range ifaces {
		if (iface.Flags&net.FlagUp) == 0 || (iface.Flags&net.FlagLoopback) != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			var ip net.IP
			switch v := addr.(type) {
			case *net.IPNet:
				ip = v.IP
			case *net.IPAddr:
				ip = v.IP
			}
			if ip == nil || ip.IsLoopback() {
				continue
			}
			a, ok := netip.AddrFromSlice(ip.To4())
			if !ok { // IPv6
				continue
			}
			ips = append(ips, a)
		}
	}
	if len(ips) == 0 {
		return nil, errors.New("no active IPv4 addresses found")
	}
	return ips, nil
}

// MulticastInterfaces returns the interfaces that are up and can join a
// multicast group.
func MulticastInterfaces() ([]net.Interface, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	var out []net.Interface
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagMulticast == 0 {
			continue
		}
		out = append(out, iface)
	}
	return out, nil
}

// GetPublicAddr asks a STUN server how our UDP traffic appears from the
// internet. The result is informational only: discovery never advertises it.
func GetPublicAddr(server string, timeout time.Duration) (netip.AddrPort, error) {
	if server == "" {
		server = DefaultSTUNServer
	}
	d := &net.Dialer{Timeout: timeout}
	conn, err := d.Dial("udp4", server)
	if err != nil {
		return netip.AddrPort{}, fmt.Errorf("stun dial failed: %w", err)
	}
	defer conn.Close()

	c, err := stun.NewClient(conn)
	if err != nil {
		return netip.AddrPort{}, fmt.Errorf("stun client create failed: %w", err)
	}
	defer c.Close()

	var (
		pub    netip.AddrPort
		reqErr error
	)

	_ = conn.SetDeadline(time.Now().Add(timeout))

	err = c.Do(stun.MustBuild(stun.TransactionID, stun.BindingRequest), func(res stun.Event) {
		if res.Error != nil {
			reqErr = res.Error
			return
		}
		var xorAddr stun.XORMappedAddress
		if getErr := xorAddr.GetFrom(res.Message); getErr != nil {
			reqErr = getErr
			return
		}
		ip, ok := netip.AddrFromSlice(xorAddr.IP)
		if !ok {
			reqErr = errors.New("stun returned malformed IP")
			return
		}
		pub = netip.AddrPortFrom(ip.Unmap(), uint16(xorAddr.Port))
	})
	if err != nil {
		return netip.AddrPort{}, fmt.Errorf("stun transaction failed: %w", err)
	}
	if reqErr != nil {
		return netip.AddrPort{}, reqErr
	}
	if !pub.IsValid() {
		return netip.AddrPort{}, errors.New("stun returned empty IP")
	}
	return pub, nil
}
