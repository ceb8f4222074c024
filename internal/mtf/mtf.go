// Copyright 2020 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package mtf implements bzip2's two-level move-to-front table. A flat
// 256-entry MTF would make every decode an O(n) shift; bzip2 instead
// splits the table into 16 groups of 16 so a promotion only has to shift
// within its own group, amortised by an occasional full compaction.
package mtf

const (
	groupSize  = 16   // MTFL_SIZE
	groupCount = 16   // 256 / groupSize
	slotCount  = 4096 // MTFA_SIZE
)

// Table is bzip2's two-level MTF structure, operating over ranks 0..255
// (the caller maps a rank back to an actual byte value via its own
// "symbols in use" table).
type Table struct {
	mtfa    [slotCount]uint8
	mtfbase [groupCount]int32
}

// Init (re)builds the identity ordering 0..255 packed into the two-level
// structure, ready for the first Decode/Head call of a new block.
func (m *Table) Init() {
	kk := int32(slotCount - 1)
	for ii := groupCount - 1; ii >= 0; ii-- {
		for jj := groupSize - 1; jj >= 0; jj-- {
			m.mtfa[kk] = uint8(ii*groupSize + jj)
			kk--
		}
		m.mtfbase[ii] = kk + 1
	}
}

// Head returns the rank-0 (most recently used) symbol without disturbing
// the table, used to resolve RUNA/RUNB zero-run symbols, which always
// refer to the front of the list.
func (m *Table) Head() uint8 {
	return m.mtfa[m.mtfbase[0]]
}

// Decode promotes the symbol currently at MTF rank nn to the front and
// returns it. nn must be in [0, 255].
func (m *Table) Decode(nn int32) uint8 {
	var uc uint8
	if nn < groupSize {
		pp := m.mtfbase[0]
		uc = m.mtfa[pp+nn]
		for nn > 3 {
			z := pp + nn
			m.mtfa[z] = m.mtfa[z-1]
			m.mtfa[z-1] = m.mtfa[z-2]
			m.mtfa[z-2] = m.mtfa[z-3]
			m.mtfa[z-3] = m.mtfa[z-4]
			nn -= 4
		}
		for nn > 0 {
			m.mtfa[pp+nn] = m.mtfa[pp+nn-1]
			nn--
		}
		m.mtfa[pp] = uc
		return uc
	}

	lno := nn / groupSize
	off := nn % groupSize
	pp := m.mtfbase[lno] + off
	uc = m.mtfa[pp]
	for pp > m.mtfbase[lno] {
		m.mtfa[pp] = m.mtfa[pp-1]
		pp--
	}
	m.mtfbase[lno]++
	for lno > 0 {
		m.mtfbase[lno]--
		m.mtfa[m.mtfbase[lno]] = m.mtfa[m.mtfbase[lno-1]+groupSize-1]
		lno--
	}
	m.mtfbase[0]--
	m.mtfa[m.mtfbase[0]] = uc

	if m.mtfbase[0] == 0 {
		m.compact()
	}
	return uc
}

// compact restores mtfbase[0] to a positive offset by repacking every
// group back to its canonical spacing; it runs only when promotions have
// pushed group 0's head down to slot zero.
func (m *Table) compact() {
	kk := int32(slotCount - 1)
	for ii := groupCount - 1; ii >= 0; ii-- {
		for jj := groupSize - 1; jj >= 0; jj-- {
			m.mtfa[kk] = m.mtfa[m.mtfbase[ii]+int32(jj)]
			kk--
		}
		m.mtfbase[ii] = kk + 1
	}
}
