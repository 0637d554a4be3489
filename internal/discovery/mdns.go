// Package discovery finds relays on the local network over mDNS.
package discovery

import (
	"context"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/hashicorp/mdns"
)

const ServiceType = "_sketchroom._tcp"

// Advertise announces a relay listening on port. Shut the returned server
// down to withdraw it.
func Advertise(instance string, port int) (*mdns.Server, error) {
	host, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("could not get hostname: %w", err)
	}
	if instance == "" {
		instance = host
	}

	service, err := mdns.NewMDNSService(
		instance,
		ServiceType,
		"", // .local
		"", // OS hostname
		port,
		nil, // auto-detect IPs
		[]string{"path=/ws"},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, fmt.Errorf("failed to start mDNS server: %w", err)
	}
	return server, nil
}

type Relay struct {
	Instance string
	Addr     string // host:port
}

// URL is the websocket endpoint of the relay.
func (r Relay) URL() string {
	return "ws://" + r.Addr + "/ws"
}

func relayFrom(e *mdns.ServiceEntry) (Relay, bool) {
	if e == nil || e.Port == 0 {
		return Relay{}, false
	}
	ip := e.AddrV4
	if ip == nil {
		ip = e.AddrV6
	}
	if ip == nil {
		return Relay{}, false
	}
	return Relay{Instance: e.Name, Addr: net.JoinHostPort(ip.String(), fmt.Sprint(e.Port))}, true
}

// Browse queries the network once and returns the relays that answered
// within timeout.
func Browse(ctx context.Context, timeout time.Duration) ([]Relay, error) {
	entries := make(chan *mdns.ServiceEntry, 8)
	params := mdns.DefaultParams(ServiceType)
	params.Entries = entries
	params.Timeout = timeout
	params.DisableIPv6 = true

	done := make(chan error, 1)
	go func() {
		done <- mdns.QueryContext(ctx, params)
		close(entries)
	}()

	var relays []Relay
	seen := make(map[string]bool)
	for e := range entries {
		r, ok := relayFrom(e)
		if !ok || seen[r.Addr] {
			continue
		}
		seen[r.Addr] = true
		relays = append(relays, r)
	}
	return relays, <-done
}
