// Copyright 2020 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package huffman

import "testing"

// decode walks bits (MSB first, one 0/1 int per bit) through t exactly as the
// resumable outer loop would: one Step call per bit, widening zvec until
// Step reports a resolved symbol.
func decode(t *Table, bits []int) (int32, error) {
	zn := t.MinLen
	var zvec int32
	for i := 0; i < zn; i++ {
		zvec = (zvec << 1) | int32(bits[i])
	}
	pos := zn
	for {
		sym, ok, err := t.Step(zn, zvec)
		if err != nil {
			return 0, err
		}
		if ok {
			return sym, nil
		}
		zvec = (zvec << 1) | int32(bits[pos])
		pos++
		zn++
	}
}

func TestCanonicalDecodeMatchesHandComputedCodes(t *testing.T) {
	// A=0, B=10, C=110, D=111: a standard 1/2/3/3-bit canonical assignment.
	lengths := []uint8{1, 2, 3, 3}
	tbl, err := Build(lengths, len(lengths))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if tbl.MinLen != 1 || tbl.MaxLen != 3 {
		t.Fatalf("got minLen=%d maxLen=%d, want 1,3", tbl.MinLen, tbl.MaxLen)
	}

	cases := []struct {
		bits []int
		want int32
	}{
		{[]int{0}, 0},
		{[]int{1, 0}, 1},
		{[]int{1, 1, 0}, 2},
		{[]int{1, 1, 1}, 3},
	}
	for _, c := range cases {
		got, err := decode(tbl, c.bits)
		if err != nil {
			t.Fatalf("decode(%v): %v", c.bits, err)
		}
		if got != c.want {
			t.Errorf("decode(%v) = %d, want %d", c.bits, got, c.want)
		}
	}
}

func TestStepRejectsOverlongCode(t *testing.T) {
	tbl := &Table{MinLen: 1, MaxLen: 1, Perm: []int32{0}}
	if _, _, err := tbl.Step(MaxCodeLen+1, 0); err != ErrCodeTooLong {
		t.Errorf("got %v, want ErrCodeTooLong", err)
	}
}
