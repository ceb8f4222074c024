// Copyright 2020 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package bitio implements an MSB-first bit accumulator that can be
// suspended and resumed across independent calls, rather than blocking on
// an io.Reader. Callers drive input delivery: Fetch reports whether enough
// bits were available and, if not, buffers whatever input it was given
// without handing out any bits, so the identical Fetch call can be
// repeated once more input arrives.
package bitio

// Reader accumulates bits fed from caller-owned byte slices, MSB-first,
// and dispenses them in arbitrary-width chunks. Its zero value is usable.
// The accumulator itself (not any byte slice) is the only state a caller
// needs to persist across suspend/resume boundaries.
type Reader struct {
	acc      uint64
	nbits    uint
	consumed uint64 // total bits ever handed out by Fetch, for alignment/stats
}

// refillLimit is the most bits we top up to before a fetch; it leaves
// enough headroom in the 64-bit accumulator that a single byte feed never
// overflows it (64-8 == 56).
const refillLimit = 56

// Refill pulls bytes from in[*pos:] into the accumulator until it holds
// more than refillLimit bits or the slice is exhausted, advancing *pos by
// the number of bytes consumed.
func (r *Reader) Refill(in []byte, pos *int) {
	for r.nbits <= refillLimit && *pos < len(in) {
		r.acc = (r.acc << 8) | uint64(in[*pos])
		r.nbits += 8
		*pos++
	}
}

// Avail reports how many bits are currently buffered.
func (r *Reader) Avail() uint { return r.nbits }

// Fetch consumes the next n bits (n <= 57) from the bitstream, MSB-first,
// refilling from in[*pos:] as needed. If fewer than n bits are available
// even after refilling from all of in, it returns ok == false having
// buffered every byte of in[*pos:] (and advanced *pos past them) but
// dispensed no bits, so a repeated Fetch call fed only the input that
// follows resumes from the same logical position.
func (r *Reader) Fetch(n uint, in []byte, pos *int) (value uint64, ok bool) {
	if r.nbits < n {
		r.Refill(in, pos)
		if r.nbits < n {
			return 0, false
		}
	}
	r.nbits -= n
	r.consumed += uint64(n)
	mask := (uint64(1) << n) - 1
	if n == 64 {
		mask = ^uint64(0)
	}
	return (r.acc >> r.nbits) & mask, true
}

// Consumed returns the total number of bits ever dispensed by Fetch.
func (r *Reader) Consumed() uint64 { return r.consumed }

// PadToByteBoundary returns the number of bits a caller must still Fetch
// (and discard) to bring the consumed bit count back to a byte boundary --
// used at member trailers, where the next member's magic is required to
// start on a byte.
func (r *Reader) PadToByteBoundary() uint {
	return uint((8 - r.consumed%8) % 8)
}

// FetchBit is a convenience wrapper around Fetch(1, ...).
func (r *Reader) FetchBit(in []byte, pos *int) (bit uint, ok bool) {
	v, ok := r.Fetch(1, in, pos)
	return uint(v), ok
}

// AlignedBitsRemaining returns the number of buffered bits that do not
// form a complete trailing byte multiple of 8 -- used when a stream
// boundary requires skipping to the next byte.
func (r *Reader) AlignedBitsRemaining() uint {
	return r.nbits % 8
}
