// Package tcpsender implements TCPSender: it chops an outbound ByteStream
// into segments under the combined flow/congestion window, tracks
// outstanding unacknowledged bytes, and runs an RTO timer with exponential
// backoff, fast retransmit, and fast recovery. Ported from tcp_sender.cc/.hh,
// with Reno-style congestion control added on top (the reference lab this
// is ported from does not implement congestion control).
package tcpsender

import (
	"time"

	"github.com/tinystack-net/tinystack/config"
	"github.com/tinystack-net/tinystack/segment"
	"github.com/tinystack-net/tinystack/stream"
	"github.com/tinystack-net/tinystack/wrap"
)

// TransmitFunc is how Push and Tick hand a segment off to the transport.
type TransmitFunc func(segment.SenderMessage)

// State is the sender's connection state.
type State int

const (
	StateClosed State = iota
	StateSynSent
	StateEstablished
	StateFinSent
	StateFinAcked
	StateError
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateSynSent:
		return "SYN_SENT"
	case StateEstablished:
		return "ESTABLISHED"
	case StateFinSent:
		return "FIN_SENT"
	case StateFinAcked:
		return "FIN_ACKED"
	case StateError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Sender is a TCPSender.
type Sender struct {
	output *stream.ByteStream
	isn    wrap.Wrap32
	mss    uint64

	maxRetxAttempts int

	synSent bool
	finSent bool

	ackno     uint64 // absolute; last acknowledged
	nextSeqno uint64 // absolute; end of what's been sent

	windowSize      uint16
	windowSizeKnown bool // false until the first Receive; see Tick's probe check

	outstanding []segment.SenderMessage

	timerRunning    bool
	elapsed         time.Duration
	initialRTO      time.Duration
	currentRTO      time.Duration
	consecutiveRetx int

	cwnd                  float64
	ssthresh              float64
	consecutiveDupAcks    int
	fastRetransmitPending bool
}

// New constructs a Sender that reads outbound bytes from output.
func New(output *stream.ByteStream, isn wrap.Wrap32, cfg config.Stack) *Sender {
	mss := uint64(cfg.MaxPayloadSize)
	return &Sender{
		output:          output,
		isn:             isn,
		mss:             mss,
		maxRetxAttempts: cfg.MaxRetxAttempts,
		initialRTO:      cfg.InitialRTO,
		currentRTO:      cfg.InitialRTO,
		// The peer's real window is unknown until its first ACK; assume it's
		// wide open so slow start's congestion window is what gates the
		// first round of sends, not a phantom zero window.
		windowSize: 65535,
		cwnd:       float64(mss),
		ssthresh:   1 << 40, // effectively unbounded until the first loss
	}
}

// Writer exposes the outbound stream's write side, for the application to
// push bytes into.
func (s *Sender) Writer() *stream.ByteStream { return s.output }

// SequenceNumbersInFlight is for testing only; don't add state to support it.
func (s *Sender) SequenceNumbersInFlight() uint64 {
	var n uint64
	for _, seg := range s.outstanding {
		n += seg.SequenceLength()
	}
	return n
}

// ConsecutiveRetransmissions is for testing only.
func (s *Sender) ConsecutiveRetransmissions() int {
	return s.consecutiveRetx
}

// State reports the sender's connection state.
func (s *Sender) State() State {
	if s.output.HasError() {
		return StateError
	}
	if !s.synSent {
		return StateClosed
	}
	if s.finSent && s.ackno >= s.nextSeqno {
		return StateFinAcked
	}
	if s.finSent {
		return StateFinSent
	}
	if s.ackno >= 1 {
		return StateEstablished
	}
	return StateSynSent
}

// MakeEmptyMessage returns a message carrying only the current seqno and RST
// flag -- no SYN, FIN, or payload.
func (s *Sender) MakeEmptyMessage() segment.SenderMessage {
	return segment.SenderMessage{
		Seqno: wrap.Wrap(s.nextSeqno, s.isn),
		RST:   s.output.HasError(),
	}
}

func (s *Sender) effectiveWindow() uint64 {
	w := uint64(s.windowSize)
	if w == 0 {
		w = 1
	}
	if cw := uint64(s.cwnd); cw < w {
		w = cw
	}
	return w
}

// Push emits as many segments as the flow/congestion window currently
// allows, reading payload bytes from the outbound stream.
func (s *Sender) Push(transmit TransmitFunc) {
	if s.fastRetransmitPending {
		if len(s.outstanding) > 0 {
			transmit(s.outstanding[0])
		}
		s.fastRetransmitPending = false
	}

	for {
		inFlight := s.SequenceNumbersInFlight()
		effectiveWindow := s.effectiveWindow()
		if effectiveWindow <= inFlight {
			break
		}
		availableWindow := effectiveWindow - inFlight

		msg := s.MakeEmptyMessage()

		if !s.synSent {
			msg.SYN = true
			s.synSent = true
			availableWindow--
		}

		reader := s.output
		payloadView := reader.Peek()
		payloadLen := s.mss
		if availableWindow < payloadLen {
			payloadLen = availableWindow
		}
		if uint64(len(payloadView)) < payloadLen {
			payloadLen = uint64(len(payloadView))
		}

		if payloadLen > 0 {
			msg.Payload = append([]byte(nil), payloadView[:payloadLen]...)
			availableWindow -= payloadLen
		}

		if reader.IsClosed() && !s.finSent && availableWindow > 0 && payloadLen == uint64(len(payloadView)) {
			msg.FIN = true
			s.finSent = true
		}

		if msg.SequenceLength() == 0 {
			break
		}

		transmit(msg)
		s.outstanding = append(s.outstanding, msg)
		s.nextSeqno += msg.SequenceLength()
		if !s.timerRunning {
			s.timerRunning = true
		}

		if len(msg.Payload) > 0 {
			reader.Pop(uint64(len(msg.Payload)))
		}

		if msg.FIN {
			break
		}
	}
}

// Receive processes an ACK from the peer's receiver.
func (s *Sender) Receive(msg segment.ReceiverMessage) {
	if msg.RST {
		s.output.SetError()
	}
	s.windowSize = msg.WindowSize
	s.windowSizeKnown = true

	if !msg.HasAckno {
		return
	}

	newAckno := msg.Ackno.Unwrap(s.isn, s.nextSeqno)
	if newAckno > s.nextSeqno {
		// Impossible future ack; ignore.
		return
	}

	if newAckno > s.ackno {
		bytesAcked := newAckno - s.ackno

		s.currentRTO = s.initialRTO
		s.consecutiveRetx = 0
		s.elapsed = 0
		s.ackno = newAckno
		s.consecutiveDupAcks = 0

		if s.cwnd < s.ssthresh {
			s.cwnd += float64(bytesAcked)
		} else {
			s.cwnd += float64(s.mss) * float64(bytesAcked) / s.cwnd
		}

		for len(s.outstanding) > 0 {
			front := s.outstanding[0]
			frontAbs := front.Seqno.Unwrap(s.isn, s.nextSeqno)
			if frontAbs+front.SequenceLength() <= newAckno {
				s.outstanding = s.outstanding[1:]
			} else {
				break
			}
		}

		if len(s.outstanding) == 0 {
			s.timerRunning = false
		}
	} else if newAckno == s.ackno && len(s.outstanding) > 0 {
		s.consecutiveDupAcks++
		if s.consecutiveDupAcks == 3 {
			s.ssthresh = maxFloat(s.cwnd/2, float64(s.mss))
			s.cwnd = s.ssthresh + 3*float64(s.mss)
			s.fastRetransmitPending = true
		} else if s.consecutiveDupAcks > 3 {
			s.cwnd += float64(s.mss)
		}
	}
}

// Tick advances the sender's clock by dt and retransmits if the RTO has
// elapsed.
func (s *Sender) Tick(dt time.Duration, transmit TransmitFunc) {
	if s.timerRunning {
		s.elapsed += dt
	}

	if s.elapsed < s.currentRTO {
		return
	}

	s.elapsed = 0
	if len(s.outstanding) == 0 {
		return
	}
	transmit(s.outstanding[0])

	probing := s.windowSizeKnown && s.windowSize == 0
	if !probing {
		s.currentRTO *= 2
		s.consecutiveRetx++

		s.ssthresh = maxFloat(s.cwnd/2, float64(s.mss))
		s.cwnd = float64(s.mss)
		s.consecutiveDupAcks = 0

		if s.consecutiveRetx > s.maxRetxAttempts {
			s.output.SetError()
			return
		}
	}
	// windowSize == 0: zero-window probe. Retransmit without backing off RTO
	// or counting the attempt -- the peer is flow-control-blocking, not lost.
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
