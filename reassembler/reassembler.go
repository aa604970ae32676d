// Package reassembler places out-of-order substrings of a byte stream at
// their correct offsets and flushes a contiguous prefix to a stream.ByteStream
// as soon as it becomes available. Ported from reassembler.cc/.hh: the
// original uses a ring buffer sized to the current window plus a
// std::map<uint64_t,uint64_t> of filled intervals; this port keeps the same
// two-part model (an interval set plus a gap-map of pending bytes) but uses a
// plain map of byte slices instead of a hand-rolled ring, since Go's garbage
// collector makes that the idiomatic choice for O(window) storage without
// manual index bookkeeping.
package reassembler

import (
	"sort"

	"github.com/tinystack-net/tinystack/stream"
)

type interval struct {
	start, end uint64 // half-open [start, end)
}

// Reassembler owns the ByteStream it writes into.
type Reassembler struct {
	output *stream.ByteStream

	firstUnassembled uint64
	eofIndex         uint64
	eofReceived      bool

	// pending holds, for each stored interval, its bytes keyed by the
	// interval's start index. Kept in insertion order is not required; we
	// re-derive ordering from intervals.
	pending   map[uint64][]byte
	intervals []interval
}

// New constructs a Reassembler that writes into output.
func New(output *stream.ByteStream) *Reassembler {
	return &Reassembler{
		output:  output,
		pending: make(map[uint64][]byte),
	}
}

// Reader exposes the output stream's read side.
func (r *Reassembler) Reader() *stream.ByteStream { return r.output }

// Writer exposes the output stream's write side, read-only from the
// reassembler's perspective (only Insert pushes into it).
func (r *Reassembler) Writer() *stream.ByteStream { return r.output }

// CountBytesPending returns how many bytes are stored internally, not yet
// flushed to the ByteStream. For testing only, same as the reference
// implementation's count_bytes_pending.
func (r *Reassembler) CountBytesPending() uint64 {
	var n uint64
	for _, iv := range r.intervals {
		n += iv.end - iv.start
	}
	return n
}

// Insert places data, known to start at the absolute index firstIndex, into
// the reassembly window. isLast marks the final substring of the stream.
func (r *Reassembler) Insert(firstIndex uint64, data []byte, isLast bool) {
	firstUnacceptable := r.output.BytesPopped() + r.output.Capacity()

	if isLast {
		r.eofReceived = true
		r.eofIndex = firstIndex + uint64(len(data))
	}

	start := firstIndex
	end := firstIndex + uint64(len(data))

	// Clip to [firstUnassembled, firstUnacceptable).
	if start < r.firstUnassembled {
		data = data[r.firstUnassembled-start:]
		start = r.firstUnassembled
	}
	if end > firstUnacceptable {
		data = data[:firstUnacceptable-start]
		end = firstUnacceptable
	}
	if start >= end {
		r.flush()
		return
	}

	r.addInterval(start, data)
	r.flush()
}

// addInterval stores data (already clipped to [start, start+len(data))) and
// merges it with any overlapping/adjacent intervals already pending.
func (r *Reassembler) addInterval(start uint64, data []byte) {
	end := start + uint64(len(data))

	merged := make([]byte, len(data))
	copy(merged, data)

	var kept []interval
	for _, iv := range r.intervals {
		if iv.end < start || iv.start > end {
			// disjoint, keep as-is
			kept = append(kept, iv)
			continue
		}
		// overlaps or touches [start, end): merge byte contents then widen
		// the combined range.
		existing := r.pending[iv.start]
		delete(r.pending, iv.start)

		newStart := start
		if iv.start < newStart {
			newStart = iv.start
		}
		newEnd := end
		if iv.end > newEnd {
			newEnd = iv.end
		}

		combined := make([]byte, newEnd-newStart)
		// place the existing interval's bytes first, then overlay the new
		// data -- both describe the same underlying stream, so overlapping
		// bytes agree and order doesn't matter for correctness.
		copy(combined[iv.start-newStart:], existing)
		copy(combined[start-newStart:], merged)

		start, end = newStart, newEnd
		merged = combined
	}

	r.pending[start] = merged
	kept = append(kept, interval{start: start, end: end})
	sort.Slice(kept, func(i, j int) bool { return kept[i].start < kept[j].start })
	r.intervals = kept
}

// flush pushes any interval starting exactly at firstUnassembled, repeatedly,
// then closes the stream if EOF has been reached.
func (r *Reassembler) flush() {
	for len(r.intervals) > 0 && r.intervals[0].start == r.firstUnassembled {
		iv := r.intervals[0]
		data := r.pending[iv.start]

		r.output.Push(data)
		r.firstUnassembled += uint64(len(data))

		delete(r.pending, iv.start)
		r.intervals = r.intervals[1:]
	}

	if r.eofReceived && r.firstUnassembled == r.eofIndex {
		r.output.Close()
	}
}
