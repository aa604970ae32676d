package netlink

import (
	"net"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"github.com/tinystack-net/tinystack/stackerr"
)

// EtherType values recognized by NetworkInterface.
const (
	EtherTypeIPv4 = uint16(layers.EthernetTypeIPv4)
	EtherTypeARP  = uint16(layers.EthernetTypeARP)
)

// BroadcastMAC is the all-ones ethernet broadcast address.
var BroadcastMAC = net.HardwareAddr{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}

// EthernetFrame is the {dst, src, type, payload} ethernet frame shape.
type EthernetFrame struct {
	Dst, Src net.HardwareAddr
	Type     uint16
	Payload  []byte
}

// Serialize renders the frame to bytes.
func (f EthernetFrame) Serialize() ([]byte, error) {
	eth := &layers.Ethernet{
		SrcMAC:       f.Src,
		DstMAC:       f.Dst,
		EthernetType: layers.EthernetType(f.Type),
	}
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true}
	if err := gopacket.SerializeLayers(buf, opts, eth, gopacket.Payload(f.Payload)); err != nil {
		return nil, stackerr.Wrap(err, "serialize ethernet frame")
	}
	return buf.Bytes(), nil
}

// ParseEthernetFrame decodes a frame off the wire. ok is false on anything
// gopacket can't recognize as an ethernet header -- the malformed-frame case
// that NetworkInterface.RecvFrame drops silently.
func ParseEthernetFrame(data []byte) (frame EthernetFrame, ok bool) {
	pkt := gopacket.NewPacket(data, layers.LayerTypeEthernet, gopacket.NoCopy)
	l := pkt.Layer(layers.LayerTypeEthernet)
	if l == nil {
		return EthernetFrame{}, false
	}
	eth := l.(*layers.Ethernet)
	return EthernetFrame{
		Dst:     eth.DstMAC,
		Src:     eth.SrcMAC,
		Type:    uint16(eth.EthernetType),
		Payload: eth.LayerPayload(),
	}, true
}

// ARP opcodes.
const (
	ARPRequest = uint16(layers.ARPRequest)
	ARPReply   = uint16(layers.ARPReply)
)

// ARPMessage is the ARP message shape: hw_type=1, proto_type=0x0800,
// hw_len=6, proto_len=4 are fixed by Serialize and not stored here.
type ARPMessage struct {
	Opcode    uint16
	SenderMAC net.HardwareAddr
	SenderIP  Address
	TargetMAC net.HardwareAddr
	TargetIP  Address
}

// Serialize renders the ARP message to bytes (the payload of an
// EthernetFrame with Type == EtherTypeARP).
func (m ARPMessage) Serialize() ([]byte, error) {
	arp := &layers.ARP{
		AddrType:          layers.LinkTypeEthernet,
		Protocol:          layers.EthernetTypeIPv4,
		HwAddressSize:     6,
		ProtAddressSize:   4,
		Operation:         m.Opcode,
		SourceHwAddress:   []byte(m.SenderMAC),
		SourceProtAddress: m.SenderIP.IP().To4(),
		DstHwAddress:      []byte(m.TargetMAC),
		DstProtAddress:    m.TargetIP.IP().To4(),
	}
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true}
	if err := gopacket.SerializeLayers(buf, opts, arp); err != nil {
		return nil, stackerr.Wrap(err, "serialize arp message")
	}
	return buf.Bytes(), nil
}

// ParseARPMessage decodes an ARP message from an ethernet frame's payload.
func ParseARPMessage(payload []byte) (msg ARPMessage, ok bool) {
	pkt := gopacket.NewPacket(payload, layers.LayerTypeARP, gopacket.NoCopy)
	l := pkt.Layer(layers.LayerTypeARP)
	if l == nil {
		return ARPMessage{}, false
	}
	arp := l.(*layers.ARP)
	if len(arp.SourceProtAddress) != 4 || len(arp.DstProtAddress) != 4 {
		return ARPMessage{}, false
	}
	return ARPMessage{
		Opcode:    arp.Operation,
		SenderMAC: net.HardwareAddr(arp.SourceHwAddress),
		SenderIP:  NewAddress(net.IP(arp.SourceProtAddress)),
		TargetMAC: net.HardwareAddr(arp.DstHwAddress),
		TargetIP:  NewAddress(net.IP(arp.DstProtAddress)),
	}, true
}
