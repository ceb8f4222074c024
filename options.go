// Copyright 2020 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package bzcore

import "fmt"

type sessionOpts struct {
	small             bool
	verbose           bool
	collectStats      bool
	blockSizeHint100k int
	configErr         error
}

// Option represents an option to NewSession.
type Option func(*sessionOpts)

// WithSmallDecoder selects the small-memory BWT inversion strategy (20
// bits/symbol plus a binary search per output byte) instead of the default
// fast strategy (32 bits/symbol, direct pointer chase). It trades throughput
// for a working set about five-eighths the size, mirroring bzip2's own -s flag.
func WithSmallDecoder(small bool) Option {
	return func(o *sessionOpts) {
		o.small = small
	}
}

// WithVerbose enables diagnostic logging of block and stream boundaries as
// they are discovered.
func WithVerbose(v bool) Option {
	return func(o *sessionOpts) {
		o.verbose = v
	}
}

// WithStats enables collection of per-block statistics, retrievable via
// Session.Stats after decoding.
func WithStats(v bool) Option {
	return func(o *sessionOpts) {
		o.collectStats = v
	}
}

// WithBlockSizeHint100k pre-sizes the Session's BWT working buffers for a
// stream whose header advertises the given block size (the 100k-multiple
// digit bzip2 stores in its file magic, 1-9), so the first block decoded
// does not pay for an allocation. It is only a hint: a stream that turns
// out to advertise a different size is still decoded correctly, with at
// most one extra reallocation (only when the advertised size is larger). n outside 1-9 is not a valid bzip2 block size and
// is reported as a *ConfigError the first time the Session is used.
func WithBlockSizeHint100k(n int) Option {
	return func(o *sessionOpts) {
		if n < minBlockSize100k || n > maxBlockSize100k {
			o.configErr = &ConfigError{Msg: fmt.Sprintf("block size hint %d out of range %d-%d", n, minBlockSize100k, maxBlockSize100k)}
			return
		}
		o.blockSizeHint100k = n
	}
}

