// Copyright 2020 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package bzcore

const (
	fileMagicB       = 'B'
	fileMagicZ       = 'Z'
	fileMagicH       = 'h'
	blockMagic       = 0x314159265359
	endOfStreamMagic = 0x177245385090

	minBlockSize100k = 1
	maxBlockSize100k = 9

	// runA and runB are the two metasymbols the MTF stream uses to encode
	// a binary-weighted run of zeros (a run of the byte that was most
	// recently at the front of the move-to-front list).
	runA = 0
	runB = 1

	// groupSymbolCount is BZ_G_SIZE: the number of MTF symbols each
	// selector covers before the next selector's Huffman group takes
	// over.
	groupSymbolCount = 50

	minGroups = 2
	maxGroups = 6

	// maxSelectors is BZ_MAX_SELECTORS: the wire format's 15-bit selector
	// count can claim more than this, and every one of them must still be
	// read off the bitstream to preserve bit alignment, but only the first
	// maxSelectors are ever retained for group selection.
	maxSelectors = 18002

	// maxAlphaSize is 2 (RUNA, RUNB) + 255 possible literal byte values +
	// 1 (the end-of-block symbol).
	maxAlphaSize = 258
)
