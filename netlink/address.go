// Package netlink holds the wire-level value types shared between
// NetworkInterface and Router: addresses, ethernet frames, ARP messages, and
// IPv4 datagrams. Serialization and parsing are delegated to
// github.com/google/gopacket/layers, the same library the reference
// implementation used for packet description (see pcap/net_parse.go).
package netlink

import (
	"encoding/binary"
	"net"
)

// Address is an IPv4 address, stored in the 4-byte form net.IP.To4() returns.
type Address struct {
	ip net.IP
}

// NewAddress wraps ip, normalizing it to its 4-byte IPv4 form.
func NewAddress(ip net.IP) Address {
	return Address{ip: ip.To4()}
}

// AddressFromIPv4Numeric builds an Address from a big-endian uint32, the
// representation used throughout route lookups and the ARP cache.
func AddressFromIPv4Numeric(n uint32) Address {
	b := make(net.IP, 4)
	binary.BigEndian.PutUint32(b, n)
	return Address{ip: b}
}

// IPv4Numeric returns the address as a big-endian uint32.
func (a Address) IPv4Numeric() uint32 {
	if a.ip == nil {
		return 0
	}
	return binary.BigEndian.Uint32(a.ip.To4())
}

// IP returns the underlying net.IP.
func (a Address) IP() net.IP { return a.ip }

func (a Address) String() string {
	if a.ip == nil {
		return "<nil>"
	}
	return a.ip.String()
}
