// Package stream implements ByteStream: a bounded FIFO byte pipe with EOF
// signalling and a sticky error flag. No operation on a ByteStream can fail
// -- pushes past capacity are silently truncated, pops past what's buffered
// simply aren't requested by a well-behaved caller. This mirrors the
// reference byte_stream.cc: a single struct with a Writer-shaped half and a
// Reader-shaped half, collapsed here into one Go type with two accessor
// methods since Go has no private inheritance to split it further.
package stream

// ByteStream is a FIFO pipe of bytes with a fixed capacity. There is one
// logical writer role and one logical reader role; both are methods on the
// same value.
type ByteStream struct {
	capacity uint64
	buf      []byte

	pushed uint64
	popped uint64

	closed  bool
	errored bool
}

// New constructs a ByteStream with the given capacity.
func New(capacity uint64) *ByteStream {
	return &ByteStream{
		capacity: capacity,
		buf:      make([]byte, 0, capacity),
	}
}

// Writer returns the write-side view. In this Go port it's the same value as
// Reader -- callers that want compile-time separation should hold only the
// methods they need.
func (s *ByteStream) Writer() *ByteStream { return s }

// Reader returns the read-side view.
func (s *ByteStream) Reader() *ByteStream { return s }

// Push appends up to AvailableCapacity() bytes of data; any excess is
// silently dropped. A no-op once the stream is closed or has its error flag
// set.
func (s *ByteStream) Push(data []byte) {
	if s.closed || s.errored {
		return
	}
	avail := s.AvailableCapacity()
	if uint64(len(data)) > avail {
		data = data[:avail]
	}
	s.buf = append(s.buf, data...)
	s.pushed += uint64(len(data))
}

// Close signals that the stream has reached its end; no further Push will be
// accepted.
func (s *ByteStream) Close() {
	s.closed = true
}

// SetError sets the sticky error flag.
func (s *ByteStream) SetError() {
	s.errored = true
}

// IsClosed reports whether Close has been called.
func (s *ByteStream) IsClosed() bool { return s.closed }

// HasError reports the sticky error flag.
func (s *ByteStream) HasError() bool { return s.errored }

// AvailableCapacity is how many more bytes can be pushed right now.
func (s *ByteStream) AvailableCapacity() uint64 {
	return s.capacity - (s.pushed - s.popped)
}

// BytesPushed is the cumulative count of bytes ever pushed.
func (s *ByteStream) BytesPushed() uint64 { return s.pushed }

// BytesPopped is the cumulative count of bytes ever popped.
func (s *ByteStream) BytesPopped() uint64 { return s.popped }

// BytesBuffered is how many bytes are currently sitting in the stream.
func (s *ByteStream) BytesBuffered() uint64 { return s.pushed - s.popped }

// Capacity is the immutable capacity the stream was constructed with.
func (s *ByteStream) Capacity() uint64 { return s.capacity }

// Peek returns a contiguous view of the front of the buffer. It may be
// shorter than BytesBuffered but is never nil unless the buffer is empty.
func (s *ByteStream) Peek() []byte {
	return s.buf
}

// Pop discards n bytes from the front of the buffer.
func (s *ByteStream) Pop(n uint64) {
	if n > uint64(len(s.buf)) {
		n = uint64(len(s.buf))
	}
	s.buf = s.buf[n:]
	s.popped += n
}

// IsFinished reports closed && fully popped.
func (s *ByteStream) IsFinished() bool {
	return s.closed && s.popped == s.pushed
}
