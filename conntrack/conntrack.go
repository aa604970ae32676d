// Package conntrack provides connection-lifecycle observability over a
// tcpsender.Sender/tcpreceiver.Receiver pair: SYN/FIN/RST observed,
// retransmission counts. It has no observer for netif.NetworkInterface. It is pure
// logging -- nothing here mutates sender, receiver, or interface state, and
// none of it sits on the critical path of push/receive/tick.
package conntrack

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tinystack-net/tinystack/printer"
	"github.com/tinystack-net/tinystack/tcpreceiver"
	"github.com/tinystack-net/tinystack/tcpsender"
)

// defaultIdleTimeout: a flow with no activity for this long is flushed and
// forgotten.
const defaultIdleTimeout = 30 * time.Second

type flowInfo struct {
	id uuid.UUID

	synObserved bool
	finObserved bool
	rstObserved bool
	retxCount   int

	firstObserved time.Time
	lastObserved  time.Time

	idleTimer *time.Timer
}

// Tracker is a registry of active flows, keyed by uuid.UUID.
type Tracker struct {
	mu          sync.Mutex
	flows       map[uuid.UUID]*flowInfo
	idleTimeout time.Duration
}

// New constructs an empty Tracker with the default idle timeout.
func New() *Tracker {
	return &Tracker{
		flows:       make(map[uuid.UUID]*flowInfo),
		idleTimeout: defaultIdleTimeout,
	}
}

// NewFlow registers a new flow and returns its ID. The flow is evicted
// automatically if ObserveSender/ObserveReceiver aren't called again within
// the idle timeout.
func (t *Tracker) NewFlow() uuid.UUID {
	id := uuid.New()
	now := time.Now()

	t.mu.Lock()
	defer t.mu.Unlock()

	info := &flowInfo{id: id, firstObserved: now, lastObserved: now}
	info.idleTimer = time.AfterFunc(t.idleTimeout, func() { t.evict(id) })
	t.flows[id] = info

	printer.V(2).Infof("conntrack: new flow %s\n", id)
	return id
}

func (t *Tracker) evict(id uuid.UUID) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.flows[id]; ok {
		printer.V(2).Infof("conntrack: evicting idle flow %s\n", id)
		delete(t.flows, id)
	}
}

// touch resets the idle timer and bumps lastObserved for an existing flow.
// Caller must hold t.mu and have already confirmed the flow exists.
func (t *Tracker) touch(info *flowInfo) {
	info.lastObserved = time.Now()
	info.idleTimer.Reset(t.idleTimeout)
}

// ObserveSender records state transitions visible on the sender side of id's
// flow: SYN transmission, retransmission counts, FIN acknowledgement, and
// entry into the ERROR state.
func (t *Tracker) ObserveSender(id uuid.UUID, s *tcpsender.Sender) {
	t.mu.Lock()
	defer t.mu.Unlock()

	info, ok := t.flows[id]
	if !ok {
		return
	}
	t.touch(info)

	state := s.State()

	if !info.synObserved && state != tcpsender.StateClosed {
		info.synObserved = true
		printer.V(2).Infof("conntrack: flow %s SYN sent\n", id)
	}

	if retx := s.ConsecutiveRetransmissions(); retx > info.retxCount {
		info.retxCount = retx
		printer.V(3).Debugf("conntrack: flow %s consecutive retransmissions = %d\n", id, retx)
	}

	if state == tcpsender.StateFinAcked && !info.finObserved {
		info.finObserved = true
		printer.V(2).Infof("conntrack: flow %s FIN acknowledged\n", id)
	}

	if state == tcpsender.StateError && !info.rstObserved {
		info.rstObserved = true
		printer.Stderr.V(1).Warningf("conntrack: flow %s sender entered ERROR\n", id)
	}
}

// ObserveReceiver records state transitions visible on the receiver side of
// id's flow: stream completion (FIN fully processed) and the stream error
// flag (RST observed).
func (t *Tracker) ObserveReceiver(id uuid.UUID, r *tcpreceiver.Receiver) {
	t.mu.Lock()
	defer t.mu.Unlock()

	info, ok := t.flows[id]
	if !ok {
		return
	}
	t.touch(info)

	if !info.synObserved {
		info.synObserved = true
	}

	if r.Reader().IsFinished() && !info.finObserved {
		info.finObserved = true
		printer.V(2).Infof("conntrack: flow %s stream finished\n", id)
	}

	if r.Reader().HasError() && !info.rstObserved {
		info.rstObserved = true
		printer.Stderr.V(1).Warningf("conntrack: flow %s receiver observed RST\n", id)
	}
}

// Close stops every flow's idle timer and drops the registry. Call it when
// shutting down a driver loop, so outstanding timers don't keep goroutines
// alive past the process's useful lifetime.
func (t *Tracker) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for id, info := range t.flows {
		info.idleTimer.Stop()
		delete(t.flows, id)
	}
}
