// Package netif implements NetworkInterface: it wraps outbound IPv4
// datagrams in ethernet frames, resolves next-hop MAC addresses via ARP
// (with a TTL'd cache and per-target request throttling), and hands inbound
// IPv4 datagrams to whoever drains its queue.
package netif

import (
	"bytes"
	"net"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/tinystack-net/tinystack/config"
	"github.com/tinystack-net/tinystack/netlink"
)

// OutputPort is the one-method interface NetworkInterface transmits frames
// through; tests inject a recording fake in place of a real link.
type OutputPort interface {
	Transmit(netlink.EthernetFrame) error
}

// arpCacheEntry is what's stored in the go-cache instance keyed by IP
// string. expiresAt is measured against the interface's own logical clock
// (advanced by Tick), not wall-clock time -- this repo's tick model requires
// deterministic expiry under simulated time, so go-cache's own real-time TTL
// machinery is bypassed in favor of explicit eviction in Tick.
type arpCacheEntry struct {
	mac       net.HardwareAddr
	expiresAt time.Duration
}

// NetworkInterface is a link-layer interface with ARP resolution.
type NetworkInterface struct {
	ownMAC net.HardwareAddr
	ownIP  netlink.Address
	port   OutputPort
	cfg    config.Stack

	now time.Duration

	cache *gocache.Cache

	pending            map[uint32][]netlink.Datagram
	nextAllowedRequest map[uint32]time.Duration

	recvQueue []netlink.Datagram
}

// New constructs a NetworkInterface identified by ownMAC/ownIP, transmitting
// outbound frames through port.
func New(ownMAC net.HardwareAddr, ownIP netlink.Address, port OutputPort, cfg config.Stack) *NetworkInterface {
	return &NetworkInterface{
		ownMAC:             ownMAC,
		ownIP:              ownIP,
		port:               port,
		cfg:                cfg,
		cache:              gocache.New(gocache.NoExpiration, gocache.NoExpiration),
		pending:            make(map[uint32][]netlink.Datagram),
		nextAllowedRequest: make(map[uint32]time.Duration),
	}
}

func cacheKey(a netlink.Address) string { return a.String() }

// SendDatagram sends dgram to nextHop, resolving its MAC address via the ARP
// cache first. On a cache miss, the datagram is queued and an ARP request is
// broadcast, subject to the per-target throttle interval.
func (n *NetworkInterface) SendDatagram(dgram netlink.Datagram, nextHop netlink.Address) {
	if v, found := n.cache.Get(cacheKey(nextHop)); found {
		entry := v.(arpCacheEntry)
		n.transmitIPv4(dgram, entry.mac)
		return
	}

	key := nextHop.IPv4Numeric()
	n.pending[key] = append(n.pending[key], dgram)

	if next, throttled := n.nextAllowedRequest[key]; throttled && n.now < next {
		return
	}

	arp := netlink.ARPMessage{
		Opcode:    netlink.ARPRequest,
		SenderMAC: n.ownMAC,
		SenderIP:  n.ownIP,
		TargetMAC: net.HardwareAddr{0, 0, 0, 0, 0, 0},
		TargetIP:  nextHop,
	}
	payload, err := arp.Serialize()
	if err != nil {
		return
	}
	n.port.Transmit(netlink.EthernetFrame{
		Dst:     netlink.BroadcastMAC,
		Src:     n.ownMAC,
		Type:    netlink.EtherTypeARP,
		Payload: payload,
	})
	n.nextAllowedRequest[key] = n.now + n.cfg.ARPRequestThrottle
}

func (n *NetworkInterface) transmitIPv4(dgram netlink.Datagram, dstMAC net.HardwareAddr) {
	payload, err := dgram.Serialize()
	if err != nil {
		return
	}
	n.port.Transmit(netlink.EthernetFrame{
		Dst:     dstMAC,
		Src:     n.ownMAC,
		Type:    netlink.EtherTypeIPv4,
		Payload: payload,
	})
}

// RecvFrame processes one inbound ethernet frame: IPv4 datagrams are queued
// for the router to drain, ARP messages are learned (and flush any
// datagrams that were pending on the learned address), and ARP requests
// targeting our own address are answered. Malformed frames, and frames
// addressed to neither our own MAC nor the broadcast MAC, are dropped
// silently.
func (n *NetworkInterface) RecvFrame(data []byte) {
	frame, ok := netlink.ParseEthernetFrame(data)
	if !ok {
		return
	}
	if !bytes.Equal(frame.Dst, n.ownMAC) && !bytes.Equal(frame.Dst, netlink.BroadcastMAC) {
		return
	}

	switch frame.Type {
	case netlink.EtherTypeIPv4:
		dgram, ok := netlink.ParseDatagram(frame.Payload)
		if !ok {
			return
		}
		n.recvQueue = append(n.recvQueue, dgram)

	case netlink.EtherTypeARP:
		msg, ok := netlink.ParseARPMessage(frame.Payload)
		if !ok {
			return
		}
		n.learn(msg.SenderIP, msg.SenderMAC)

		if msg.Opcode == netlink.ARPRequest && msg.TargetIP.IPv4Numeric() == n.ownIP.IPv4Numeric() {
			reply := netlink.ARPMessage{
				Opcode:    netlink.ARPReply,
				SenderMAC: n.ownMAC,
				SenderIP:  n.ownIP,
				TargetMAC: msg.SenderMAC,
				TargetIP:  msg.SenderIP,
			}
			payload, err := reply.Serialize()
			if err != nil {
				return
			}
			n.port.Transmit(netlink.EthernetFrame{
				Dst:     msg.SenderMAC,
				Src:     n.ownMAC,
				Type:    netlink.EtherTypeARP,
				Payload: payload,
			})
		}
	}
}

func (n *NetworkInterface) learn(ip netlink.Address, mac net.HardwareAddr) {
	n.cache.Set(cacheKey(ip), arpCacheEntry{mac: mac, expiresAt: n.now + n.cfg.ARPCacheTTL}, gocache.NoExpiration)

	key := ip.IPv4Numeric()
	queued, ok := n.pending[key]
	if !ok {
		return
	}
	delete(n.pending, key)
	delete(n.nextAllowedRequest, key)
	for _, dgram := range queued {
		n.SendDatagram(dgram, ip) // now hits the cache we just populated
	}
}

// Tick advances the interface's clock by dt and evicts expired ARP entries.
func (n *NetworkInterface) Tick(dt time.Duration) {
	n.now += dt
	for key, item := range n.cache.Items() {
		if item.Object.(arpCacheEntry).expiresAt <= n.now {
			n.cache.Delete(key)
		}
	}
}

// DrainReceived returns all datagrams queued by RecvFrame since the last
// call and clears the queue; it's how Router pulls inbound traffic off an
// interface.
func (n *NetworkInterface) DrainReceived() []netlink.Datagram {
	drained := n.recvQueue
	n.recvQueue = nil
	return drained
}

// OwnIP reports the interface's own address.
func (n *NetworkInterface) OwnIP() netlink.Address { return n.ownIP }
