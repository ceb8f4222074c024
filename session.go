// Copyright 2020 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package bzcore is a resumable, suspendable bzip2 decoder core: it parses
// and inverts one bzip2 stream's worth of bits without ever blocking on an
// io.Reader. Callers hand Session.Decompress whatever input bytes and
// output space happen to be available right now; it consumes as much of
// each as it can and reports back exactly how much it used, so it composes
// naturally with network reads, memory-mapped chunks, or any other source
// that cannot simply be blocked on.
package bzcore

import (
	"io"
	"log"

	"github.com/cosnicolaou/bz2core/internal/bitio"
	"github.com/cosnicolaou/bz2core/internal/bwt"
	"github.com/cosnicolaou/bz2core/internal/crc32bz"
	"github.com/cosnicolaou/bz2core/internal/huffman"
	"github.com/cosnicolaou/bz2core/internal/mtf"
	"github.com/cosnicolaou/bz2core/internal/randomize"
)

// Result reports what Decompress accomplished before it had to suspend.
type Result int

const (
	// ResultOK means Decompress ran out of input, output space, or both,
	// but the stream is not finished; call it again with more of either.
	ResultOK Result = iota
	// ResultStreamEnd means a member's trailer CRC was validated. The
	// Session is immediately ready to parse a concatenated member if more
	// input follows, or to sit idle if it doesn't.
	ResultStreamEnd
)

// BlockStat records one decoded block's statistics, collected only when
// WithStats(true) is passed to NewSession.
type BlockStat struct {
	// CRC is the block's own checksum, already validated by the time it
	// appears here.
	CRC uint32
	// Bytes is the number of pre-RLE1 bytes the block's BWT inversion
	// produced (its "nblock" in the reference implementation's terms).
	Bytes int
	// BitOffset is the position, in bits from the first input byte the
	// Session decoded (not reset at concatenated member boundaries), that
	// the block's header begins at.
	BitOffset uint64
}

// Stats accumulates statistics across a Session's lifetime.
type Stats struct {
	Blocks []BlockStat
}

// internal state-machine positions. Each is a single suspend point: a state
// that issues a bit fetch either advances past itself (storing whatever it
// fetched into a Session field) and moves to the next state, or leaves the
// state untouched and reports that it needs more input, so the identical
// fetch is retried next call.
type pstate int

const (
	stMagicB pstate = iota
	stMagicZ
	stMagicH
	stLevel

	stBlockMagic

	stBlockCRC
	stRandFlag
	stOrigPtr

	stBitmapHi
	stBitmapLoCheck
	stBitmapLo

	stNumGroups
	stNumSelectors
	stSelectorUnaryBit

	stHuffStartFetch
	stHuffDeltaCheckRange
	stHuffDeltaBit1
	stHuffDeltaBit2

	stMainLoopInit
	stSymGroupCheck
	stSymMinLenFetch
	stSymResolve
	stSymExtraBit
	stSymDispatch

	stSanityCheck

	stOutputProduce

	stEOSCRC
	stEOSPad
)

type stepOutcome int

const (
	outcomeContinue stepOutcome = iota
	outcomeNeedInput
	outcomeStreamEnd
)

// Session decodes one or more concatenated bzip2 members, byte slice by
// byte slice, suspending whenever it runs out of input or output space
// rather than blocking. Its zero value is not usable; construct one with
// NewSession.
type Session struct {
	small        bool
	verbose      bool
	collectStats bool

	// initErr is set at construction time by an invalid Option (e.g. an
	// out-of-range WithBlockSizeHint100k) and surfaces as the result of the
	// first Decompress call; the Session otherwise behaves as unusable.
	initErr error

	br bitio.Reader

	in     []byte
	inPos  int
	out    []byte
	outPos int

	inputEOF bool

	state pstate

	// member-scoped
	streamCRC uint32

	// block-scoped header fields
	blockCRC        crc32bz.CRC
	wantBlockCRC    uint32
	blockRandomized bool
	origPtr         uint32
	nblockMax       int
	blockBitOffset  uint64

	bitmapHi       uint16
	bitmapIdx      int
	symbolsInUse   []byte
	numSymbolsUsed int

	nGroups    int
	nSelectors int
	selMTF     [maxGroups]byte
	selRun     int
	selIdx     int
	selectors  []byte

	curGroup      int
	symIdxInGroup int
	curLen        int
	lenBuf        [][]uint8

	tables []*huffman.Table
	mtfT   mtf.Table

	groupPos  int
	curSelIdx int
	curTable  *huffman.Table
	zn        int
	zvec      int32
	curSym    int32

	runActive bool
	runN      int
	runEs     int

	nblock int
	counts [256]uint32

	ttFast   []uint32
	ttSmall  []uint16
	bwtFast  bwt.Fast
	bwtSmall bwt.Small

	rawRemaining    uint32
	pendingRepeats  uint32
	lastByte        int
	byteRepeatCount uint
	randMask        randomize.Mask

	wantStreamCRC uint32
	pad           uint

	stats Stats

	// totalIn/totalOut mirror the reference bz_stream's split 32-bit
	// counters; composing the two halves with | (never &) avoids a
	// historical overflow bug in some ports of the original API.
	totalInLo32, totalInHi32   uint32
	totalOutLo32, totalOutHi32 uint32
}

// TotalIn returns the cumulative number of input bytes consumed across
// every call to Decompress so far.
func (s *Session) TotalIn() uint64 {
	return uint64(s.totalInHi32)<<32 | uint64(s.totalInLo32)
}

// TotalOut returns the cumulative number of output bytes produced across
// every call to Decompress so far.
func (s *Session) TotalOut() uint64 {
	return uint64(s.totalOutHi32)<<32 | uint64(s.totalOutLo32)
}

func addTotal(lo, hi *uint32, n int) {
	sum := uint64(*lo) + uint64(n)
	*lo = uint32(sum)
	*hi += uint32(sum >> 32)
}

// NewSession returns a Session ready to decode a bzip2 stream from its very
// first byte.
func NewSession(opts ...Option) *Session {
	o := sessionOpts{}
	for _, fn := range opts {
		fn(&o)
	}
	s := &Session{
		small:        o.small,
		verbose:      o.verbose,
		collectStats: o.collectStats,
		initErr:      o.configErr,
		state:        stMagicB,
		lastByte:     -1,
	}
	if o.configErr == nil && o.blockSizeHint100k > 0 {
		hint := o.blockSizeHint100k * 100000
		if o.small {
			s.ttSmall = make([]uint16, hint)
		} else {
			s.ttFast = make([]uint32, hint)
		}
	}
	return s
}

// Stats returns the statistics collected so far; it is only populated when
// the Session was constructed with WithStats(true).
func (s *Session) Stats() Stats {
	return s.stats
}

// Close releases the Session's working buffers. A closed Session must not
// be used again.
func (s *Session) Close() {
	s.ttFast = nil
	s.ttSmall = nil
	s.symbolsInUse = nil
	s.selectors = nil
	s.lenBuf = nil
	s.tables = nil
}

func (s *Session) trace(format string, args ...interface{}) {
	if s.verbose {
		log.Printf(format, args...)
	}
}

// Decompress consumes as much of in as it can, writing decompressed bytes
// into out, and returns how much of each it used. inputEOF tells Decompress
// that in is the last input it will ever see; without it, running out of
// input mid-structure is reported as ResultOK with no error (call again
// once more input is available), but with it, running out mid-structure is
// reported as io.ErrUnexpectedEOF. A clean member boundary at true EOF
// (no partial member started) is reported as io.EOF.
func (s *Session) Decompress(in, out []byte, inputEOF bool) (result Result, consumed, produced int, err error) {
	if s.initErr != nil {
		return ResultOK, 0, 0, s.initErr
	}
	result, consumed, produced, err = s.decompressStep(in, out, inputEOF)
	addTotal(&s.totalInLo32, &s.totalInHi32, consumed)
	addTotal(&s.totalOutLo32, &s.totalOutHi32, produced)
	return result, consumed, produced, err
}

// decompressStep is Decompress's actual body, split out so Decompress can
// update the cumulative TotalIn/TotalOut counters at every return point in
// one place.
func (s *Session) decompressStep(in, out []byte, inputEOF bool) (result Result, consumed, produced int, err error) {
	s.in = in
	s.inPos = 0
	s.out = out
	s.outPos = 0
	s.inputEOF = inputEOF

	for {
		if s.state == stOutputProduce {
			if s.outPos >= len(s.out) {
				return ResultOK, s.inPos, s.outPos, nil
			}
			n := s.produceOutput(s.out[s.outPos:])
			s.outPos += n
			if s.rawRemaining > 0 || s.pendingRepeats > 0 {
				return ResultOK, s.inPos, s.outPos, nil
			}
			if ferr := s.finishBlock(); ferr != nil {
				return ResultOK, s.inPos, s.outPos, ferr
			}
			s.state = stBlockMagic
			continue
		}

		outcome, serr := s.stepParse()
		if serr != nil {
			return ResultOK, s.inPos, s.outPos, serr
		}
		switch outcome {
		case outcomeNeedInput:
			if s.inputEOF {
				if s.state == stMagicB && s.br.Avail() == 0 && s.inPos == len(s.in) {
					return ResultOK, s.inPos, s.outPos, io.EOF
				}
				return ResultOK, s.inPos, s.outPos, io.ErrUnexpectedEOF
			}
			return ResultOK, s.inPos, s.outPos, nil
		case outcomeStreamEnd:
			return ResultStreamEnd, s.inPos, s.outPos, nil
		default:
			continue
		}
	}
}

func (s *Session) fetch(n uint) (uint64, bool) {
	return s.br.Fetch(n, s.in, &s.inPos)
}

// stepParse advances the bit-level parser by exactly one suspendable step.
func (s *Session) stepParse() (stepOutcome, error) {
	switch s.state {

	case stMagicB:
		v, ok := s.fetch(8)
		if !ok {
			return outcomeNeedInput, nil
		}
		if v != fileMagicB {
			return outcomeContinue, &MagicError{Context: "file header", Got: v}
		}
		s.streamCRC = 0
		s.state = stMagicZ
		return outcomeContinue, nil

	case stMagicZ:
		v, ok := s.fetch(8)
		if !ok {
			return outcomeNeedInput, nil
		}
		if v != fileMagicZ {
			return outcomeContinue, &MagicError{Context: "file header", Got: v}
		}
		s.state = stMagicH
		return outcomeContinue, nil

	case stMagicH:
		v, ok := s.fetch(8)
		if !ok {
			return outcomeNeedInput, nil
		}
		if v != fileMagicH {
			return outcomeContinue, &MagicError{Context: "file header", Got: v}
		}
		s.state = stLevel
		return outcomeContinue, nil

	case stLevel:
		v, ok := s.fetch(8)
		if !ok {
			return outcomeNeedInput, nil
		}
		if v < '0'+minBlockSize100k || v > '0'+maxBlockSize100k {
			return outcomeContinue, &MagicError{Context: "block size digit", Got: v}
		}
		level := int(v - '0')
		s.nblockMax = level * 100000
		if s.small {
			if cap(s.ttSmall) < s.nblockMax {
				s.ttSmall = make([]uint16, s.nblockMax)
			}
		} else {
			if cap(s.ttFast) < s.nblockMax {
				s.ttFast = make([]uint32, s.nblockMax)
			}
		}
		s.state = stBlockMagic
		return outcomeContinue, nil

	case stBlockMagic:
		s.blockBitOffset = s.br.Consumed()
		v, ok := s.fetch(48)
		if !ok {
			return outcomeNeedInput, nil
		}
		switch v {
		case blockMagic:
			s.trace("bzcore: block at bit offset %d", s.blockBitOffset)
			s.state = stBlockCRC
			return outcomeContinue, nil
		case endOfStreamMagic:
			s.state = stEOSCRC
			return outcomeContinue, nil
		default:
			return outcomeContinue, &MagicError{Context: "block", Got: v}
		}

	case stBlockCRC:
		v, ok := s.fetch(32)
		if !ok {
			return outcomeNeedInput, nil
		}
		s.wantBlockCRC = uint32(v)
		s.state = stRandFlag
		return outcomeContinue, nil

	case stRandFlag:
		v, ok := s.fetch(1)
		if !ok {
			return outcomeNeedInput, nil
		}
		s.blockRandomized = v != 0
		s.state = stOrigPtr
		return outcomeContinue, nil

	case stOrigPtr:
		v, ok := s.fetch(24)
		if !ok {
			return outcomeNeedInput, nil
		}
		s.origPtr = uint32(v)
		s.bitmapIdx = 0
		s.symbolsInUse = s.symbolsInUse[:0]
		s.state = stBitmapHi
		return outcomeContinue, nil

	case stBitmapHi:
		v, ok := s.fetch(16)
		if !ok {
			return outcomeNeedInput, nil
		}
		s.bitmapHi = uint16(v)
		s.state = stBitmapLoCheck
		return outcomeContinue, nil

	case stBitmapLoCheck:
		if s.bitmapIdx == 16 {
			if len(s.symbolsInUse) == 0 {
				return outcomeContinue, dataErrorf("symbol map is empty")
			}
			s.numSymbolsUsed = len(s.symbolsInUse)
			s.state = stNumGroups
			return outcomeContinue, nil
		}
		if s.bitmapHi&(1<<uint(15-s.bitmapIdx)) != 0 {
			s.state = stBitmapLo
		} else {
			s.bitmapIdx++
		}
		return outcomeContinue, nil

	case stBitmapLo:
		v, ok := s.fetch(16)
		if !ok {
			return outcomeNeedInput, nil
		}
		bits := uint16(v)
		base := byte(16 * s.bitmapIdx)
		for j := 0; j < 16; j++ {
			if bits&(1<<uint(15-j)) != 0 {
				s.symbolsInUse = append(s.symbolsInUse, base+byte(j))
			}
		}
		s.bitmapIdx++
		s.state = stBitmapLoCheck
		return outcomeContinue, nil

	case stNumGroups:
		v, ok := s.fetch(3)
		if !ok {
			return outcomeNeedInput, nil
		}
		s.nGroups = int(v)
		if s.nGroups < minGroups || s.nGroups > maxGroups {
			return outcomeContinue, dataErrorf("invalid huffman group count %d", s.nGroups)
		}
		s.state = stNumSelectors
		return outcomeContinue, nil

	case stNumSelectors:
		v, ok := s.fetch(15)
		if !ok {
			return outcomeNeedInput, nil
		}
		s.nSelectors = int(v)
		if s.nSelectors <= 0 {
			return outcomeContinue, dataErrorf("invalid selector count %d", s.nSelectors)
		}
		// The wire format's 15-bit count can legitimately exceed
		// maxSelectors; every one of them must still be read off the
		// bitstream to keep bit alignment, but only the first maxSelectors
		// are ever retained (see stSelectorUnaryBit).
		retained := s.nSelectors
		if retained > maxSelectors {
			retained = maxSelectors
		}
		s.selectors = make([]byte, retained)
		for i := 0; i < s.nGroups; i++ {
			s.selMTF[i] = byte(i)
		}
		s.selRun = 0
		s.selIdx = 0
		s.state = stSelectorUnaryBit
		return outcomeContinue, nil

	case stSelectorUnaryBit:
		v, ok := s.fetch(1)
		if !ok {
			return outcomeNeedInput, nil
		}
		if v == 1 {
			s.selRun++
			if s.selRun >= s.nGroups {
				return outcomeContinue, dataErrorf("selector run too long")
			}
			return outcomeContinue, nil
		}
		idx := s.decodeSelectorMTF(s.selRun)
		if s.selIdx < len(s.selectors) {
			s.selectors[s.selIdx] = idx
		}
		s.selRun = 0
		s.selIdx++
		if s.selIdx == s.nSelectors {
			s.curGroup = 0
			s.lenBuf = make([][]uint8, s.nGroups)
			alphaSize := s.numSymbolsUsed + 2
			for g := range s.lenBuf {
				s.lenBuf[g] = make([]uint8, alphaSize)
			}
			s.state = stHuffStartFetch
		}
		return outcomeContinue, nil

	case stHuffStartFetch:
		v, ok := s.fetch(5)
		if !ok {
			return outcomeNeedInput, nil
		}
		s.curLen = int(v)
		s.symIdxInGroup = 0
		s.state = stHuffDeltaCheckRange
		return outcomeContinue, nil

	case stHuffDeltaCheckRange:
		if s.curLen < 1 || s.curLen > huffman.MaxCodeLen {
			return outcomeContinue, dataErrorf("huffman code length %d out of range", s.curLen)
		}
		s.state = stHuffDeltaBit1
		return outcomeContinue, nil

	case stHuffDeltaBit1:
		v, ok := s.fetch(1)
		if !ok {
			return outcomeNeedInput, nil
		}
		if v == 0 {
			s.lenBuf[s.curGroup][s.symIdxInGroup] = uint8(s.curLen)
			s.symIdxInGroup++
			if s.symIdxInGroup == len(s.lenBuf[s.curGroup]) {
				s.curGroup++
				if s.curGroup == s.nGroups {
					if err := s.buildHuffmanTables(); err != nil {
						return outcomeContinue, err
					}
					s.state = stMainLoopInit
					return outcomeContinue, nil
				}
				s.state = stHuffStartFetch
				return outcomeContinue, nil
			}
			s.state = stHuffDeltaCheckRange
			return outcomeContinue, nil
		}
		s.state = stHuffDeltaBit2
		return outcomeContinue, nil

	case stHuffDeltaBit2:
		v, ok := s.fetch(1)
		if !ok {
			return outcomeNeedInput, nil
		}
		if v == 1 {
			s.curLen--
		} else {
			s.curLen++
		}
		s.state = stHuffDeltaCheckRange
		return outcomeContinue, nil

	case stMainLoopInit:
		s.mtfT.Init()
		s.counts = [256]uint32{}
		s.nblock = 0
		s.groupPos = 0
		s.curSelIdx = 0
		s.curTable = nil
		s.runActive = false
		s.runN = 0
		s.runEs = 0
		s.state = stSymGroupCheck
		return outcomeContinue, nil

	case stSymGroupCheck:
		if s.groupPos == 0 {
			if s.curSelIdx >= len(s.selectors) {
				return outcomeContinue, dataErrorf("selector list exhausted mid-block")
			}
			sel := s.selectors[s.curSelIdx]
			if int(sel) >= s.nGroups {
				return outcomeContinue, dataErrorf("selector %d out of range", sel)
			}
			s.curTable = s.tables[sel]
			s.curSelIdx++
			s.groupPos = groupSymbolCount
		}
		s.groupPos--
		s.zn = s.curTable.MinLen
		s.state = stSymMinLenFetch
		return outcomeContinue, nil

	case stSymMinLenFetch:
		v, ok := s.fetch(uint(s.zn))
		if !ok {
			return outcomeNeedInput, nil
		}
		s.zvec = int32(v)
		s.state = stSymResolve
		return outcomeContinue, nil

	case stSymResolve:
		sym, ok, err := s.curTable.Step(s.zn, s.zvec)
		if err != nil {
			return outcomeContinue, dataErrorf("huffman decode: %v", err)
		}
		if ok {
			s.curSym = sym
			s.state = stSymDispatch
			return outcomeContinue, nil
		}
		s.state = stSymExtraBit
		return outcomeContinue, nil

	case stSymExtraBit:
		v, ok := s.fetch(1)
		if !ok {
			return outcomeNeedInput, nil
		}
		s.zvec = (s.zvec << 1) | int32(v)
		s.zn++
		s.state = stSymResolve
		return outcomeContinue, nil

	case stSymDispatch:
		return outcomeContinue, s.dispatchSymbol()

	case stSanityCheck:
		if err := s.invertBlock(); err != nil {
			return outcomeContinue, err
		}
		s.state = stOutputProduce
		return outcomeContinue, nil

	case stEOSCRC:
		v, ok := s.fetch(32)
		if !ok {
			return outcomeNeedInput, nil
		}
		s.wantStreamCRC = uint32(v)
		if s.streamCRC != s.wantStreamCRC {
			return outcomeContinue, dataErrorf("stream checksum mismatch: got %#x, want %#x", s.streamCRC, s.wantStreamCRC)
		}
		s.pad = s.br.PadToByteBoundary()
		if s.pad == 0 {
			s.state = stMagicB
			return outcomeStreamEnd, nil
		}
		s.state = stEOSPad
		return outcomeContinue, nil

	case stEOSPad:
		_, ok := s.fetch(s.pad)
		if !ok {
			return outcomeNeedInput, nil
		}
		s.state = stMagicB
		return outcomeStreamEnd, nil
	}

	panic("bzcore: unreachable parser state")
}

// decodeSelectorMTF runs the tiny (<=6-element) move-to-front used only to
// translate a selector's unary run-length into a Huffman group index; the
// two-level mtf.Table is sized for the 256-symbol literal alphabet and
// would be wasteful overkill for a domain this small.
func (s *Session) decodeSelectorMTF(run int) byte {
	v := s.selMTF[run]
	copy(s.selMTF[1:run+1], s.selMTF[:run])
	s.selMTF[0] = v
	return v
}

func (s *Session) buildHuffmanTables() error {
	alphaSize := s.numSymbolsUsed + 2
	s.tables = make([]*huffman.Table, s.nGroups)
	for g := 0; g < s.nGroups; g++ {
		t, err := huffman.Build(s.lenBuf[g], alphaSize)
		if err != nil {
			return dataErrorf("group %d: %v", g, err)
		}
		s.tables[g] = t
	}
	return nil
}

// dispatchSymbol processes the most recently decoded MTF/Huffman symbol:
// RUNA/RUNB extend a pending zero-run, anything else first flushes that
// run (if any) and then either ends the block (EOB) or resolves to a
// literal byte appended to the block's BWT input array.
func (s *Session) dispatchSymbol() error {
	sym := s.curSym

	if sym == runA || sym == runB {
		if !s.runActive {
			s.runActive = true
			s.runN = 1
			s.runEs = 0
		}
		if sym == runA {
			s.runEs += s.runN
		} else {
			s.runEs += 2 * s.runN
		}
		s.runN <<= 1
		if s.runEs > 2*1024*1024 {
			return dataErrorf("zero run too long")
		}
		s.state = stSymGroupCheck
		return nil
	}

	if s.runActive {
		uc := s.mtfT.Head()
		b := s.symbolsInUse[uc]
		if err := s.appendRun(b, s.runEs); err != nil {
			return err
		}
		s.runActive = false
	}

	eob := int32(s.numSymbolsUsed + 1)
	if sym == eob {
		s.state = stSanityCheck
		return nil
	}

	nn := sym - 1
	uc := s.mtfT.Decode(nn)
	b := s.symbolsInUse[uc]
	if err := s.appendByte(b); err != nil {
		return err
	}
	s.state = stSymGroupCheck
	return nil
}

func (s *Session) appendByte(b byte) error {
	if s.nblock >= s.nblockMax {
		return dataErrorf("block exceeds declared size")
	}
	if s.small {
		s.ttSmall[s.nblock] = uint16(b)
	} else {
		s.ttFast[s.nblock] = uint32(b)
	}
	s.counts[b]++
	s.nblock++
	return nil
}

func (s *Session) appendRun(b byte, n int) error {
	if s.nblock+n > s.nblockMax {
		return dataErrorf("block exceeds declared size")
	}
	for i := 0; i < n; i++ {
		if s.small {
			s.ttSmall[s.nblock] = uint16(b)
		} else {
			s.ttFast[s.nblock] = uint32(b)
		}
		s.nblock++
	}
	s.counts[b] += uint32(n)
	return nil
}

func (s *Session) invertBlock() error {
	if s.nblock == 0 {
		return dataErrorf("empty block")
	}
	if s.origPtr >= uint32(s.nblock) {
		return dataErrorf("origPtr %d out of range for block of %d symbols", s.origPtr, s.nblock)
	}
	if s.small {
		s.bwtSmall.Build(s.ttSmall[:s.nblock], s.origPtr, &s.counts)
	} else {
		s.bwtFast.Build(s.ttFast[:s.nblock], s.origPtr, &s.counts)
	}
	s.rawRemaining = uint32(s.nblock)
	s.pendingRepeats = 0
	s.lastByte = -1
	s.byteRepeatCount = 0
	s.blockCRC.Reset()
	s.randMask.Init()
	return nil
}

// produceOutput drains up to len(out) bytes of this block's original
// (post-inversion, post-RLE1, post-derandomization) data into out,
// updating the running block CRC as it goes. It returns fewer than
// len(out) bytes only when the block itself is exhausted.
func (s *Session) produceOutput(out []byte) int {
	n := 0
	for n < len(out) && (s.pendingRepeats > 0 || s.rawRemaining > 0) {
		if s.pendingRepeats > 0 {
			b := byte(s.lastByte)
			out[n] = b
			s.blockCRC.Update(b)
			n++
			s.pendingRepeats--
			if s.pendingRepeats == 0 {
				s.lastByte = -1
			}
			continue
		}

		var b byte
		if s.small {
			b = s.bwtSmall.Next()
		} else {
			b = s.bwtFast.Next()
		}
		s.rawRemaining--

		if s.blockRandomized {
			b ^= s.randMask.Next()
		}

		if s.byteRepeatCount == 3 {
			s.pendingRepeats = uint32(b)
			s.byteRepeatCount = 0
			continue
		}
		if int(b) == s.lastByte {
			s.byteRepeatCount++
		} else {
			s.byteRepeatCount = 0
		}
		s.lastByte = int(b)

		out[n] = b
		s.blockCRC.Update(b)
		n++
	}
	return n
}

func (s *Session) finishBlock() error {
	got := s.blockCRC.Sum32()
	if got != s.wantBlockCRC {
		return dataErrorf("block checksum mismatch: got %#x, want %#x", got, s.wantBlockCRC)
	}
	s.streamCRC = crc32bz.Combine(s.streamCRC, got)
	if s.collectStats {
		s.stats.Blocks = append(s.stats.Blocks, BlockStat{
			CRC:       got,
			Bytes:     s.nblock,
			BitOffset: s.blockBitOffset,
		})
	}
	return nil
}
