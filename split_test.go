// Copyright 2020 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package bzcore

import (
	"testing"

	"github.com/cosnicolaou/bz2core/internal/blockscan"
)

// blockMagicBytes is the 48-bit block magic 0x314159265359, big-endian, the
// same pattern stBlockMagic looks for while parsing.
var blockMagicBytes = [6]byte{0x31, 0x41, 0x59, 0x26, 0x53, 0x59}

// TestSplitAtBlockBoundary locates the block magic inside a single-block
// fixture with internal/blockscan -- the same tool used to build the
// split-stream and truncation fixtures spec.md's testable properties call
// for -- and feeds the Session the bytes on either side of it across two
// separate Decompress calls, rather than hand-counting where the split
// should fall.
func TestSplitAtBlockBoundary(t *testing.T) {
	in := mustHex("" +
		"425a6839314159265359b5aa5098000000600040000004200021008283177245" +
		"385090b5aa5098")

	pretest, first, second := blockscan.Init(blockMagicBytes)
	byteOff, _ := blockscan.Scan(pretest, first, second, in)
	if byteOff <= 0 || byteOff >= len(in) {
		t.Fatalf("blockscan.Scan did not find the block magic: byteOff=%d", byteOff)
	}

	sess := NewSession()
	out := make([]byte, 64)
	var got []byte

	// Hand over everything up to (but not including) the block magic's
	// byte first, well short of what a full block needs, to force a
	// suspend-and-resume right at the boundary blockscan located.
	head, tail := in[:byteOff], in[byteOff:]

	result, consumed, produced, err := sess.Decompress(head, out, false)
	if err != nil {
		t.Fatalf("first chunk: unexpected error: %v", err)
	}
	if result == ResultStreamEnd {
		t.Fatalf("first chunk: got ResultStreamEnd before the block magic was even seen")
	}
	got = append(got, out[:produced]...)
	if consumed != len(head) {
		t.Fatalf("first chunk: consumed %d of %d bytes, want all of them", consumed, len(head))
	}

	rest := append([]byte(nil), tail...)
	for {
		result, consumed, produced, err := sess.Decompress(rest, out, true)
		rest = rest[consumed:]
		got = append(got, out[:produced]...)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result == ResultStreamEnd {
			break
		}
	}

	if len(got) != 32 {
		t.Fatalf("got %d bytes, want 32", len(got))
	}
	for i, b := range got {
		if b != 0 {
			t.Fatalf("byte %d = %#x, want 0", i, b)
		}
	}
}
