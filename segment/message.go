// Package segment defines the TCP-layer message shapes exchanged between
// tcpsender and tcpreceiver.
package segment

import "github.com/tinystack-net/tinystack/wrap"

// SenderMessage is a segment travelling from sender to receiver.
type SenderMessage struct {
	Seqno   wrap.Wrap32
	SYN     bool
	Payload []byte
	FIN     bool
	RST     bool
}

// SequenceLength is SYN + len(Payload) + FIN, the number of absolute
// sequence numbers this segment occupies.
func (m SenderMessage) SequenceLength() uint64 {
	n := uint64(len(m.Payload))
	if m.SYN {
		n++
	}
	if m.FIN {
		n++
	}
	return n
}

// ReceiverMessage is an ACK travelling from receiver to sender.
type ReceiverMessage struct {
	Ackno      wrap.Wrap32
	HasAckno   bool
	WindowSize uint16
	RST        bool
}
