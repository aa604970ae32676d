package wrap

import "testing"

func TestWrapRoundTrip(t *testing.T) {
	isn := Wrap32(0x12345678)
	cases := []uint64{0, 1, 100, 1 << 16, 1 << 31, (1 << 32) - 1, 1 << 32, 1<<32 + 17}
	for _, n := range cases {
		w := Wrap(n, isn)
		got := w.Unwrap(isn, n)
		if got != n {
			t.Errorf("Wrap(%d).Unwrap(checkpoint=%d) = %d, want %d", n, n, got, n)
		}
	}
}

func TestUnwrapNearWrap(t *testing.T) {
	isn := Wrap32(0xFFFFFFF0)
	w := Wrap(32, isn)
	if got, want := uint32(w), uint32(0x00000010); got != want {
		t.Fatalf("wrap raw = 0x%x, want 0x%x", got, want)
	}
	if got, want := w.Unwrap(isn, uint64(1)<<31), uint64(32); got != want {
		t.Errorf("Unwrap = %d, want %d", got, want)
	}
}

func TestUnwrapClosestToCheckpoint(t *testing.T) {
	isn := Wrap32(0)
	// seqno wraps at exactly 2^32; with a checkpoint near 3*2^32, we expect
	// unwrap to pick the candidate nearest the checkpoint rather than the
	// smallest non-negative one.
	w := Wrap(3*(uint64(1)<<32)+5, isn)
	checkpoint := 3 * (uint64(1) << 32)
	got := w.Unwrap(isn, checkpoint)
	want := 3*(uint64(1)<<32) + 5
	if got != want {
		t.Errorf("Unwrap = %d, want %d", got, want)
	}
}

func TestUnwrapTieBreaksSmaller(t *testing.T) {
	isn := Wrap32(0)
	// raw value 2^31 seen from checkpoint 2^32: the candidates 2^31 and
	// 2^32+2^31 are both exactly 2^31 away, and the smaller one wins.
	w := Wrap(uint64(1)<<31, isn)
	got := w.Unwrap(isn, uint64(1)<<32)
	if got != uint64(1)<<31 {
		t.Errorf("Unwrap = %d, want %d", got, uint64(1)<<31)
	}
}

func TestUnwrapNeverNegative(t *testing.T) {
	isn := Wrap32(0)
	w := Wrap32(0xFFFFFFFF)
	got := w.Unwrap(isn, 0)
	// raw 0xFFFFFFFF from checkpoint 0: the nearest candidate is one 2^32
	// below 0xFFFFFFFF, i.e. -1, which would be negative and is clamped to
	// 0 rather than underflowing.
	if got > uint64(0xFFFFFFFF) {
		t.Errorf("Unwrap returned implausibly large/underflowed value: %d", got)
	}
}
