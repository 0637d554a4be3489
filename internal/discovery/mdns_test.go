package discovery

import (
	"net"
	"testing"

	"github.com/hashicorp/mdns"
	"github.com/stretchr/testify/assert"
)

func TestRelayFrom(t *testing.T) {
	r, ok := relayFrom(&mdns.ServiceEntry{Name: "board._sketchroom._tcp.local.", AddrV4: net.IPv4(192, 168, 1, 7), Port: 8080})
	assert.True(t, ok)
	assert.Equal(t, "192.168.1.7:8080", r.Addr)
	assert.Equal(t, "ws://192.168.1.7:8080/ws", r.URL())

	r, ok = relayFrom(&mdns.ServiceEntry{AddrV6: net.ParseIP("fe80::1"), Port: 9000})
	assert.True(t, ok)
	assert.Equal(t, "[fe80::1]:9000", r.Addr)

	_, ok = relayFrom(&mdns.ServiceEntry{AddrV4: net.IPv4(10, 0, 0, 1)})
	assert.False(t, ok, "no port")
	_, ok = relayFrom(&mdns.ServiceEntry{Port: 80})
	assert.False(t, ok, "no address")
	_, ok = relayFrom(nil)
	assert.False(t, ok)
}
