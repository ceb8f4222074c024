// Copyright 2020 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package bzcore

import (
	"context"
	"io"

	"golang.org/x/sync/errgroup"
)

// DecodeAll decodes each of inputs independently and concurrently, one
// Session per input, and returns the decoded bytes in the same order as
// inputs. The streams share no state -- this is spec.md's "multiple
// independent sessions may run in parallel on disjoint data" guarantee
// exercised directly, not the compressor's own parallel block-splitting
// scheme.
//
// On the first failure the shared context is cancelled so sibling
// sessions notice at their next suspend point and wind down instead of
// continuing to do wasted work; DecodeAll still reports that first
// failure even if later sessions wind down with a context-cancellation
// error of their own.
func DecodeAll(ctx context.Context, inputs [][]byte, opts ...Option) ([][]byte, error) {
	out := make([][]byte, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	var errs multiError

	for i := range inputs {
		i := i
		g.Go(func() error {
			decoded, err := decodeOne(gctx, inputs[i], opts...)
			if err != nil {
				errs.add(err)
				return err
			}
			out[i] = decoded
			return nil
		})
	}

	g.Wait() //nolint:errcheck // the first real error is read from errs below
	if err := errs.first(); err != nil {
		return nil, err
	}
	return out, nil
}

// decodeOne drains a single, fully-buffered member (or run of concatenated
// members) to completion through its own Session, checking ctx before each
// Decompress call so a sibling's failure can stop this session promptly.
func decodeOne(ctx context.Context, in []byte, opts ...Option) ([]byte, error) {
	sess := NewSession(opts...)
	defer sess.Close()

	var out []byte
	outBuf := make([]byte, 64*1024)
	pos := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result, consumed, produced, err := sess.Decompress(in[pos:], outBuf, true)
		pos += consumed
		if produced > 0 {
			out = append(out, outBuf[:produced]...)
		}
		if err != nil {
			if err == io.EOF {
				return out, nil
			}
			return nil, err
		}
		if result == ResultStreamEnd && pos == len(in) {
			return out, nil
		}
	}
}
