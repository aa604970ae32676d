// Package router implements Router: longest-prefix-match forwarding of IPv4
// datagrams between NetworkInterfaces, using a binary trie indexed
// MSB-first by prefix bits.
package router

import (
	"github.com/tinystack-net/tinystack/netif"
	"github.com/tinystack-net/tinystack/netlink"
)

// Route is a routing table entry: {prefix, prefix_length, next_hop,
// interface_index}. A nil NextHop means the destination is directly
// attached -- the datagram's own destination address is used as the next
// hop.
type Route struct {
	Prefix         uint32
	PrefixLen      int
	NextHop        *netlink.Address
	InterfaceIndex int
}

type trieNode struct {
	children [2]*trieNode
	route    *Route
}

// Router forwards datagrams between a set of owned interfaces by
// longest-prefix match.
type Router struct {
	interfaces []*netif.NetworkInterface
	root       *trieNode
}

// New constructs an empty Router.
func New() *Router {
	return &Router{root: &trieNode{}}
}

// AddInterface takes ownership of iface and returns its index, the handle
// used by AddRoute and Interface.
func (r *Router) AddInterface(iface *netif.NetworkInterface) int {
	r.interfaces = append(r.interfaces, iface)
	return len(r.interfaces) - 1
}

// Interface returns the interface registered at index i.
func (r *Router) Interface(i int) *netif.NetworkInterface {
	return r.interfaces[i]
}

// AddRoute inserts or overwrites (last-writer-wins) the route for
// prefix/prefixLen, walking or extending the trie along prefix's top
// prefixLen bits, MSB first.
func (r *Router) AddRoute(prefix uint32, prefixLen int, nextHop *netlink.Address, ifaceIdx int) {
	node := r.root
	for i := 0; i < prefixLen; i++ {
		bit := (prefix >> uint(31-i)) & 1
		if node.children[bit] == nil {
			node.children[bit] = &trieNode{}
		}
		node = node.children[bit]
	}
	node.route = &Route{Prefix: prefix, PrefixLen: prefixLen, NextHop: nextHop, InterfaceIndex: ifaceIdx}
}

// lookup performs LPM for dst, walking the trie MSB-first and remembering
// the deepest node carrying a route entry (so a default route at the root
// is returned when nothing more specific matches).
func (r *Router) lookup(dst uint32) *Route {
	node := r.root
	var best *Route
	if node.route != nil {
		best = node.route
	}
	for i := 0; i < 32; i++ {
		bit := (dst >> uint(31-i)) & 1
		next := node.children[bit]
		if next == nil {
			break
		}
		node = next
		if node.route != nil {
			best = node.route
		}
	}
	return best
}

// Route drains every interface's received-datagram queue and forwards each
// datagram: datagrams with TTL <= 1 or with no matching route are dropped
// silently; otherwise TTL is decremented and the datagram is handed to the
// egress interface's SendDatagram, addressed to the route's next hop (or, if
// the route has none, to the datagram's own destination -- a directly
// attached host).
func (r *Router) Route() {
	for _, iface := range r.interfaces {
		for _, dgram := range iface.DrainReceived() {
			if dgram.TTL <= 1 {
				continue
			}
			dgram.TTL--

			route := r.lookup(dgram.Dst.IPv4Numeric())
			if route == nil {
				continue
			}

			nextHop := dgram.Dst
			if route.NextHop != nil {
				nextHop = *route.NextHop
			}

			egress := r.interfaces[route.InterfaceIndex]
			egress.SendDatagram(dgram, nextHop)
		}
	}
}
