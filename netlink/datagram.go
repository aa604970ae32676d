package netlink

import (
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"github.com/tinystack-net/tinystack/stackerr"
)

// Datagram is an IPv4 datagram trimmed to the fields the router and network
// interface actually touch: TTL (decremented by the router) and the
// addresses used for routing and ARP resolution. The rest of the IPv4
// header (identification, flags, fragment offset, checksum) is filled in by
// gopacket at serialize time and is not carried in this type.
type Datagram struct {
	TTL      uint8
	Protocol uint8
	Src, Dst Address
	Payload  []byte
}

// Serialize renders the datagram to bytes. ComputeChecksums asks gopacket to
// fill in the IPv4 header checksum; this repository never computes one by
// hand, since checksums aren't modeled as state in the transport layer
// above it.
func (d Datagram) Serialize() ([]byte, error) {
	ip := &layers.IPv4{
		Version:  4,
		TTL:      d.TTL,
		Protocol: layers.IPProtocol(d.Protocol),
		SrcIP:    d.Src.IP(),
		DstIP:    d.Dst.IP(),
	}
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(buf, opts, ip, gopacket.Payload(d.Payload)); err != nil {
		return nil, stackerr.Wrap(err, "serialize datagram")
	}
	return buf.Bytes(), nil
}

// ParseDatagram decodes an IPv4 datagram from an ethernet frame's payload.
// ok is false on anything gopacket can't decode as IPv4 -- the
// malformed-datagram case, dropped silently by the caller.
func ParseDatagram(data []byte) (dgram Datagram, ok bool) {
	pkt := gopacket.NewPacket(data, layers.LayerTypeIPv4, gopacket.NoCopy)
	l := pkt.Layer(layers.LayerTypeIPv4)
	if l == nil {
		return Datagram{}, false
	}
	ip := l.(*layers.IPv4)
	return Datagram{
		TTL:      ip.TTL,
		Protocol: uint8(ip.Protocol),
		Src:      NewAddress(ip.SrcIP),
		Dst:      NewAddress(ip.DstIP),
		Payload:  ip.LayerPayload(),
	}, true
}
