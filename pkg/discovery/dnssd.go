package discovery

import (
	"fmt"

	"github.com/grandcat/zeroconf"
)

// ServiceType is the DNS-SD service under which participants can
// optionally register.
const ServiceType = "_p2p-chat._udp"

// AdvertiseService registers the local record as a DNS-SD service so stock
// browsers (avahi-browse, dns-sd) list the process. The TXT record carries
// the same token and peers fields as rendezvous answers plus the
// rendezvous name. Call the returned function to withdraw the service.
func (d *Discovery) AdvertiseService(instance string) (func(), error) {
	text := append(txtFields(d.self), "name="+d.name)

	server, err := zeroconf.Register(instance, ServiceType, "local.", int(d.self.Port), text, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to register DNS-SD service: %w", err)
	}

	d.log.Info("Registered DNS-SD service", "instance", instance, "service", ServiceType)
	return server.Shutdown, nil
}
