package router

import (
	"net"
	"testing"

	"github.com/tinystack-net/tinystack/config"
	"github.com/tinystack-net/tinystack/netif"
	"github.com/tinystack-net/tinystack/netlink"
)

type fakePort struct {
	frames []netlink.EthernetFrame
}

func (f *fakePort) Transmit(fr netlink.EthernetFrame) error {
	f.frames = append(f.frames, fr)
	return nil
}

func mustMAC(s string) net.HardwareAddr {
	mac, err := net.ParseMAC(s)
	if err != nil {
		panic(err)
	}
	return mac
}

func ipv4Prefix(s string) uint32 {
	return netlink.NewAddress(net.ParseIP(s)).IPv4Numeric()
}

func frameBytes(t *testing.T, dgram netlink.Datagram, dstMAC, srcMAC net.HardwareAddr) []byte {
	t.Helper()
	ipBytes, err := dgram.Serialize()
	if err != nil {
		t.Fatalf("Datagram.Serialize() error: %v", err)
	}
	frame := netlink.EthernetFrame{Dst: dstMAC, Src: srcMAC, Type: netlink.EtherTypeIPv4, Payload: ipBytes}
	data, err := frame.Serialize()
	if err != nil {
		t.Fatalf("EthernetFrame.Serialize() error: %v", err)
	}
	return data
}

// Longest-prefix match with a default route, a broader supernet, and a
// more specific route carrying an explicit next hop.
func TestLongestPrefixMatchWithDefault(t *testing.T) {
	cfg := config.Default()
	ports := make([]*fakePort, 3)
	r := New()
	for i := range ports {
		ports[i] = &fakePort{}
		mac := mustMAC([]string{"aa:aa:aa:aa:aa:00", "aa:aa:aa:aa:aa:01", "aa:aa:aa:aa:aa:02"}[i])
		ip := netlink.NewAddress(net.ParseIP([]string{"192.168.0.1", "192.168.0.2", "192.168.0.3"}[i]))
		r.AddInterface(netif.New(mac, ip, ports[i], cfg))
	}

	nextHop := netlink.NewAddress(net.ParseIP("10.1.0.1"))
	r.AddRoute(0, 0, nil, 0)
	r.AddRoute(ipv4Prefix("10.0.0.0"), 8, nil, 1)
	r.AddRoute(ipv4Prefix("10.1.0.0"), 16, &nextHop, 2)

	ingressMAC := mustMAC("bb:bb:bb:bb:bb:bb")
	broadcastMAC := mustMAC("ff:ff:ff:ff:ff:ff")

	cases := []struct {
		dst            string
		wantPort       int
		wantNextHopStr string
	}{
		{"10.1.2.3", 2, "10.1.0.1"},
		{"10.2.0.1", 1, "10.2.0.1"},
		{"8.8.8.8", 0, "8.8.8.8"},
	}

	// Inject all three on interface 0, an arbitrary ingress -- routing
	// decisions don't depend on which interface a datagram arrived on.
	for _, c := range cases {
		dgram := netlink.Datagram{
			TTL:      64,
			Protocol: 6,
			Src:      netlink.NewAddress(net.ParseIP("192.168.1.1")),
			Dst:      netlink.NewAddress(net.ParseIP(c.dst)),
			Payload:  []byte("payload"),
		}
		r.Interface(0).RecvFrame(frameBytes(t, dgram, broadcastMAC, ingressMAC))
	}

	r.Route()

	for i, c := range cases {
		got := ports[c.wantPort].frames
		if len(got) == 0 {
			t.Fatalf("case %d (dst=%s): expected a transmission on interface %d, got none", i, c.dst, c.wantPort)
		}
		last := got[len(got)-1]
		if last.Type != netlink.EtherTypeARP {
			t.Fatalf("case %d: expected an ARP request (next hop unresolved), got type %#x", i, last.Type)
		}
		arp, ok := netlink.ParseARPMessage(last.Payload)
		if !ok || arp.TargetIP.String() != c.wantNextHopStr {
			t.Fatalf("case %d: ARP targeted %v, want next hop %s", i, arp.TargetIP, c.wantNextHopStr)
		}
	}
}

func TestTTLExhaustionDropsDatagram(t *testing.T) {
	cfg := config.Default()
	port := &fakePort{}
	r := New()
	r.AddInterface(netif.New(mustMAC("aa:aa:aa:aa:aa:00"), netlink.NewAddress(net.ParseIP("192.168.0.1")), port, cfg))
	r.AddRoute(0, 0, nil, 0)

	dgram := netlink.Datagram{TTL: 1, Protocol: 6, Src: netlink.NewAddress(net.ParseIP("192.168.1.1")), Dst: netlink.NewAddress(net.ParseIP("8.8.8.8")), Payload: []byte("x")}
	r.Interface(0).RecvFrame(frameBytes(t, dgram, mustMAC("ff:ff:ff:ff:ff:ff"), mustMAC("bb:bb:bb:bb:bb:bb")))

	r.Route()

	if len(port.frames) != 0 {
		t.Fatalf("TTL<=1 datagram should be dropped, got %d transmissions", len(port.frames))
	}
}

func TestNoRouteDropsDatagram(t *testing.T) {
	cfg := config.Default()
	port := &fakePort{}
	r := New()
	r.AddInterface(netif.New(mustMAC("aa:aa:aa:aa:aa:00"), netlink.NewAddress(net.ParseIP("192.168.0.1")), port, cfg))
	// No routes registered at all.

	dgram := netlink.Datagram{TTL: 64, Protocol: 6, Src: netlink.NewAddress(net.ParseIP("192.168.1.1")), Dst: netlink.NewAddress(net.ParseIP("8.8.8.8")), Payload: []byte("x")}
	r.Interface(0).RecvFrame(frameBytes(t, dgram, mustMAC("ff:ff:ff:ff:ff:ff"), mustMAC("bb:bb:bb:bb:bb:bb")))

	r.Route()

	if len(port.frames) != 0 {
		t.Fatalf("datagram with no matching route should be dropped, got %d transmissions", len(port.frames))
	}
}

func TestAddRouteLastWriterWins(t *testing.T) {
	r := New()
	nh1 := netlink.NewAddress(net.ParseIP("10.0.0.1"))
	nh2 := netlink.NewAddress(net.ParseIP("10.0.0.2"))
	r.AddRoute(ipv4Prefix("10.0.0.0"), 8, &nh1, 0)
	r.AddRoute(ipv4Prefix("10.0.0.0"), 8, &nh2, 1)

	route := r.lookup(ipv4Prefix("10.0.0.5"))
	if route == nil || route.InterfaceIndex != 1 || route.NextHop.String() != nh2.String() {
		t.Fatalf("route = %+v, want overwritten entry pointing at interface 1 / %v", route, nh2)
	}
}
