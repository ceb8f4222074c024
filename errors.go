// Copyright 2020 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package bzcore

import "fmt"

// MagicError reports that the input did not begin with a recognisable
// bzip2 file or block magic number, as distinct from a well-formed but
// corrupt stream.
type MagicError struct {
	Context string
	Got     uint64
}

func (e *MagicError) Error() string {
	return fmt.Sprintf("bzip2: bad magic value in %s: %#x", e.Context, e.Got)
}

// DataError reports a well-formed-looking stream that violates one of the
// format's own invariants: a bad CRC, an out-of-range selector, a Huffman
// code that never resolves, and so on.
type DataError struct {
	Msg string
}

func (e *DataError) Error() string {
	return "bzip2: data invalid: " + e.Msg
}

func dataErrorf(format string, args ...interface{}) error {
	return &DataError{Msg: fmt.Sprintf(format, args...)}
}

// ConfigError reports an invalid option passed to NewSession.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string {
	return "bzip2: invalid configuration: " + e.Msg
}
