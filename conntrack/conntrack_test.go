package conntrack

import (
	"testing"

	"github.com/tinystack-net/tinystack/config"
	"github.com/tinystack-net/tinystack/segment"
	"github.com/tinystack-net/tinystack/stream"
	"github.com/tinystack-net/tinystack/tcpreceiver"
	"github.com/tinystack-net/tinystack/tcpsender"
	"github.com/tinystack-net/tinystack/wrap"
)

func TestObserveSenderTracksSynAndFin(t *testing.T) {
	tr := New()
	id := tr.NewFlow()

	isn := wrap.Wrap32(0)
	out := stream.New(10)
	cfg := config.Default()
	cfg.MaxPayloadSize = 10
	s := tcpsender.New(out, isn, cfg)

	out.Writer().Close()
	s.Push(func(segment.SenderMessage) {})
	tr.ObserveSender(id, s)

	info, ok := tr.flows[id]
	if !ok || !info.synObserved {
		t.Fatalf("SYN not recorded after Push sent it")
	}

	s.Receive(segment.ReceiverMessage{Ackno: wrap.Wrap(2, isn), HasAckno: true, WindowSize: 10})
	tr.ObserveSender(id, s)

	if !info.finObserved {
		t.Fatalf("FIN_ACKED not recorded once the sender reached that state")
	}
}

func TestObserveReceiverTracksRST(t *testing.T) {
	tr := New()
	id := tr.NewFlow()

	r := tcpreceiver.New(stream.New(10))
	r.Receive(segment.SenderMessage{RST: true})
	tr.ObserveReceiver(id, r)

	info := tr.flows[id]
	if !info.rstObserved {
		t.Fatalf("RST not recorded once the receiver's stream errored")
	}
}

func TestObserveUnknownFlowIsANoop(t *testing.T) {
	tr := New()
	r := tcpreceiver.New(stream.New(10))
	// No NewFlow call: this id was never registered.
	tr.ObserveReceiver([16]byte{}, r)
	if len(tr.flows) != 0 {
		t.Fatalf("observing an unregistered flow should not create one")
	}
}

func TestCloseStopsAllTimers(t *testing.T) {
	tr := New()
	tr.NewFlow()
	tr.NewFlow()
	tr.Close()
	if len(tr.flows) != 0 {
		t.Fatalf("Close should drop every tracked flow, got %d remaining", len(tr.flows))
	}
}
