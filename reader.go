// Copyright 2020 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package bzcore

import "io"

// reader adapts a Session to the io.Reader interface, owning the input
// buffering that the raw Session API otherwise pushes onto the caller. It
// transparently continues into a concatenated member's header the moment
// one is parsed, the same way the command-line bzip2 does.
type reader struct {
	src  io.Reader
	sess *Session

	buf    []byte
	srcEOF bool
	err    error
}

// NewReader returns an io.Reader that decompresses r, which may contain
// one or more concatenated bzip2 members.
func NewReader(r io.Reader, opts ...Option) io.Reader {
	return &reader{
		src:  r,
		sess: NewSession(opts...),
		buf:  make([]byte, 0, 64*1024),
	}
}

// fill reads more bytes from src into rd.buf, growing it if necessary. It
// is a no-op once src has reported its own io.EOF.
func (rd *reader) fill() error {
	if rd.srcEOF {
		return nil
	}
	if len(rd.buf) == cap(rd.buf) {
		grown := make([]byte, len(rd.buf), cap(rd.buf)*2)
		copy(grown, rd.buf)
		rd.buf = grown
	}
	n, err := rd.src.Read(rd.buf[len(rd.buf):cap(rd.buf)])
	rd.buf = rd.buf[:len(rd.buf)+n]
	switch err {
	case nil:
		return nil
	case io.EOF:
		rd.srcEOF = true
		return nil
	default:
		return err
	}
}

// Read implements io.Reader.
func (rd *reader) Read(p []byte) (int, error) {
	if rd.err != nil {
		return 0, rd.err
	}
	for {
		if err := rd.fill(); err != nil {
			rd.err = err
			return 0, err
		}

		result, consumed, produced, err := rd.sess.Decompress(rd.buf, p, rd.srcEOF)
		rd.buf = rd.buf[:copy(rd.buf, rd.buf[consumed:])]

		if err != nil {
			rd.err = err
			if produced > 0 {
				return produced, nil
			}
			return produced, err
		}
		if produced > 0 {
			return produced, nil
		}
		if result == ResultStreamEnd && len(rd.buf) == 0 && rd.srcEOF {
			rd.err = io.EOF
			return 0, io.EOF
		}
		if consumed == 0 && len(rd.buf) == 0 && rd.srcEOF {
			// Session asked for more input with none possible left and
			// none of it produced output or a terminal error: a defect
			// in the state machine, not a condition well-formed input
			// can reach. Fail rather than spin forever.
			rd.err = io.ErrNoProgress
			return 0, rd.err
		}
	}
}
