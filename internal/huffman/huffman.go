// Copyright 2020 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package huffman builds canonical Huffman decode tables in the
// base/limit/perm form bzip2 uses, rather than a binary tree. That form
// lets a caller decode one bit at a time and suspend between bits, which a
// tree-walk built for a blocking io.Reader cannot do without losing its
// place.
package huffman

import "errors"

// MaxCodeLen is the longest code length bzip2 permits for a single
// Huffman symbol; the wire format's 5-bit-initial delta coding is only
// defined for values in [1, MaxCodeLen].
const MaxCodeLen = 20

// tableSlots is sized with headroom above MaxCodeLen, mirroring the
// BZ_MAX_CODE_LEN margin in the reference implementation's fixed arrays.
const tableSlots = MaxCodeLen + 2

// ErrCodeTooLong is returned by Step when a code does not resolve within
// MaxCodeLen bits, indicating a corrupt or adversarial length table.
var ErrCodeTooLong = errors.New("huffman: code exceeds maximum length")

// ErrSymbolRange is returned by Step when a resolved code would index
// outside of the symbol permutation table.
var ErrSymbolRange = errors.New("huffman: decoded symbol out of range")

// Table holds one group's canonical decode tables.
type Table struct {
	Limit  [tableSlots]int32
	Base   [tableSlots]int32
	Perm   []int32
	MinLen int
	MaxLen int
}

// Build constructs the canonical decode tables for the given per-symbol
// code lengths, following the classic base/limit/perm construction: sort
// symbols by (length, value), assign ascending codes within each length,
// and record the per-length boundaries needed to resolve a code
// incrementally as each additional bit arrives.
func Build(lengths []uint8, alphaSize int) (*Table, error) {
	t := &Table{MinLen: MaxCodeLen + 1, MaxLen: 0}
	for i := 0; i < alphaSize; i++ {
		l := int(lengths[i])
		if l > t.MaxLen {
			t.MaxLen = l
		}
		if l < t.MinLen {
			t.MinLen = l
		}
	}

	t.Perm = make([]int32, alphaSize)
	pp := 0
	for length := t.MinLen; length <= t.MaxLen; length++ {
		for sym := 0; sym < alphaSize; sym++ {
			if int(lengths[sym]) == length {
				t.Perm[pp] = int32(sym)
				pp++
			}
		}
	}

	for i := range t.Base {
		t.Base[i] = 0
	}
	for i := 0; i < alphaSize; i++ {
		t.Base[int(lengths[i])+1]++
	}
	for i := 1; i < tableSlots; i++ {
		t.Base[i] += t.Base[i-1]
	}

	for i := range t.Limit {
		t.Limit[i] = 0
	}
	vec := int32(0)
	for length := t.MinLen; length <= t.MaxLen; length++ {
		vec += t.Base[length+1] - t.Base[length]
		t.Limit[length] = vec - 1
		vec <<= 1
	}
	for length := t.MinLen + 1; length <= t.MaxLen; length++ {
		t.Base[length] = ((t.Limit[length-1] + 1) << 1) - t.Base[length]
	}
	return t, nil
}

// Step examines the code accumulated so far (zvec, zn bits long, MSB
// first). If zvec already names a valid code at this length it returns the
// decoded symbol with ok == true. Otherwise the caller must fetch one more
// bit, append it to zvec (zvec = zvec<<1 | bit), increment zn, and call
// Step again -- mirroring the GET_MTF_VAL macro's bit-at-a-time widening
// loop so each iteration is an independent suspend point.
func (t *Table) Step(zn int, zvec int32) (sym int32, ok bool, err error) {
	if zn > MaxCodeLen {
		return 0, false, ErrCodeTooLong
	}
	if zvec <= t.Limit[zn] {
		idx := zvec - t.Base[zn]
		if idx < 0 || int(idx) >= len(t.Perm) {
			return 0, false, ErrSymbolRange
		}
		return t.Perm[idx], true, nil
	}
	return 0, false, nil
}
