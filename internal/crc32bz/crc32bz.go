// Copyright 2020 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package crc32bz implements the non-reflected CRC-32 variant
// (polynomial 0x04C11DB7, bit order unreversed) that bzip2 uses for both
// its per-block and whole-stream checksums. It is not the same polynomial
// arrangement as hash/crc32's IEEE table, which is bit-reflected.
package crc32bz

var table [256]uint32

func init() {
	const poly = 0x04C11DB7
	for i := range table {
		crc := uint32(i) << 24
		for j := 0; j < 8; j++ {
			if crc&0x80000000 != 0 {
				crc = (crc << 1) ^ poly
			} else {
				crc <<= 1
			}
		}
		table[i] = crc
	}
}

// CRC accumulates a bzip2-style CRC-32 one byte at a time, so that it can
// be updated from an output producer that may suspend after any byte.
type CRC struct {
	val uint32
}

// New returns a CRC initialised to bzip2's starting value.
func New() *CRC {
	c := &CRC{}
	c.Reset()
	return c
}

// Reset restores the initial value (all-ones, per the BZIP2 variant).
func (c *CRC) Reset() {
	c.val = 0xffffffff
}

// Update folds a single byte into the running checksum.
func (c *CRC) Update(b byte) {
	c.val = (c.val << 8) ^ table[byte(c.val>>24)^b]
}

// Sum32 returns the finished checksum (the running value XORed with the
// same all-ones mask used to initialise it).
func (c *CRC) Sum32() uint32 {
	return c.val ^ 0xffffffff
}

// Combine folds a completed per-block CRC into the running whole-stream
// CRC, per the bzip2 stream trailer's combining rule.
func Combine(streamCRC, blockCRC uint32) uint32 {
	return (streamCRC<<1 | streamCRC>>31) ^ blockCRC
}
