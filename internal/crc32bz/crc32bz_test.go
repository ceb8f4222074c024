// Copyright 2020 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package crc32bz

import "testing"

func TestCatalogCheckValue(t *testing.T) {
	// "123456789" is the standard check sequence for the CRC-32/BZIP2
	// catalog entry (poly 0x04C11DB7, init/xorout 0xFFFFFFFF, not
	// reflected), with a published check value of 0xFC891918.
	c := New()
	for _, b := range []byte("123456789") {
		c.Update(b)
	}
	const want = 0xfc891918
	if got := c.Sum32(); got != want {
		t.Errorf("got %#x, want %#x", got, want)
	}
}

func TestCombine(t *testing.T) {
	got := Combine(0, 0x12345678)
	want := uint32(0x12345678)
	if got != want {
		t.Errorf("got %#x, want %#x", got, want)
	}
}

func TestResetIsIdempotent(t *testing.T) {
	c := New()
	c.Update('x')
	c.Reset()
	fresh := New()
	if c.Sum32() != fresh.Sum32() {
		t.Errorf("Reset did not restore the initial state")
	}
}
