// Package tcpreceiver implements TCPReceiver: it turns inbound
// segment.SenderMessages into reassembled stream bytes and produces the
// ACK + advertised-window messages the peer's sender needs. Ported from
// tcp_receiver.cc/.hh.
package tcpreceiver

import (
	"github.com/tinystack-net/tinystack/reassembler"
	"github.com/tinystack-net/tinystack/segment"
	"github.com/tinystack-net/tinystack/stream"
	"github.com/tinystack-net/tinystack/wrap"
)

// Receiver is a TCPReceiver.
type Receiver struct {
	reassembler *reassembler.Reassembler

	isn         wrap.Wrap32
	synReceived bool
	finReceived bool
	rstReceived bool
}

// New constructs a Receiver that writes reassembled bytes into output.
func New(output *stream.ByteStream) *Receiver {
	return &Receiver{reassembler: reassembler.New(output)}
}

// Reader exposes the underlying stream's read side, for the application to
// consume delivered bytes from.
func (r *Receiver) Reader() *stream.ByteStream { return r.reassembler.Reader() }

// Writer exposes the underlying stream's write side (read-only access; only
// Receive pushes into it via the reassembler).
func (r *Receiver) Writer() *stream.ByteStream { return r.reassembler.Writer() }

// Receive processes one inbound segment, inserting its payload into the
// reassembler at the correct stream index.
func (r *Receiver) Receive(msg segment.SenderMessage) {
	if msg.RST {
		r.reassembler.Writer().SetError()
		r.rstReceived = true
		return
	}

	if msg.SYN && !r.synReceived {
		r.isn = msg.Seqno
		r.synReceived = true
	}

	if !r.synReceived {
		return
	}

	if msg.FIN {
		r.finReceived = true
	}

	checkpoint := r.reassembler.Writer().BytesPushed() + 1
	absSeq := msg.Seqno.Unwrap(r.isn, checkpoint)

	var streamIndex uint64
	if msg.SYN {
		streamIndex = 0
	} else {
		streamIndex = absSeq - 1
	}

	r.reassembler.Insert(streamIndex, msg.Payload, msg.FIN)
}

// Send produces the ACK + advertised-window message to return to the peer's
// sender.
func (r *Receiver) Send() segment.ReceiverMessage {
	writer := r.reassembler.Writer()

	window := writer.AvailableCapacity()
	if window > 65535 {
		window = 65535
	}

	msg := segment.ReceiverMessage{
		WindowSize: uint16(window),
		RST:        writer.HasError(),
	}

	if r.synReceived {
		n := writer.BytesPushed() + 1
		if writer.IsClosed() {
			n++
		}
		msg.Ackno = wrap.Wrap(n, r.isn)
		msg.HasAckno = true
	}

	return msg
}
