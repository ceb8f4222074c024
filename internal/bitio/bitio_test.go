// Copyright 2020 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package bitio

import "testing"

func TestFetchWithinOneChunk(t *testing.T) {
	var r Reader
	in := []byte{0xab, 0x12, 0x34, 0x56, 0x78, 0x71, 0x3f, 0x8d}
	pos := 0

	vectors := []struct {
		nbits uint
		value uint64
	}{
		{1, 1},
		{1, 0},
		{1, 1},
		{5, 11},
		{32, 0x12345678},
		{15, 14495},
		{3, 6},
		{6, 13},
	}
	for i, v := range vectors {
		got, ok := r.Fetch(v.nbits, in, &pos)
		if !ok {
			t.Fatalf("case %d: unexpected suspend", i)
		}
		if got != v.value {
			t.Errorf("case %d: got %d, want %d", i, got, v.value)
		}
	}
	if _, ok := r.Fetch(1, in, &pos); ok {
		t.Errorf("expected suspend once input is exhausted")
	}
}

func TestFetchResumesAcrossCalls(t *testing.T) {
	var r Reader
	full := []byte{0xde, 0xad, 0xbe, 0xef}

	// Suspend partway through: only the first two bytes are visible.
	pos := 0
	if _, ok := r.Fetch(32, full[:2], &pos); ok {
		t.Fatalf("expected suspend with insufficient input")
	}
	if pos != 2 {
		t.Fatalf("suspend should still consume the bytes it could buffer, got pos=%d", pos)
	}

	// Resume with the rest of the stream appended; the accumulator
	// already holds the first two bytes so only the remainder needs
	// feeding.
	pos2 := 0
	got, ok := r.Fetch(32, full[2:], &pos2)
	if !ok {
		t.Fatalf("expected success on resume")
	}
	want := uint64(0xdeadbeef)
	if got != want {
		t.Errorf("got %#x, want %#x", got, want)
	}
}

func TestAvailAndAlignment(t *testing.T) {
	var r Reader
	in := []byte{0xff, 0xff}
	pos := 0
	r.Refill(in, &pos)
	if r.Avail() != 16 {
		t.Fatalf("got %d bits available, want 16", r.Avail())
	}
	if _, ok := r.Fetch(3, in, &pos); !ok {
		t.Fatal("fetch failed")
	}
	if got := r.AlignedBitsRemaining(); got != (16-3)%8 {
		t.Errorf("got %d, want %d", got, (16-3)%8)
	}
}
