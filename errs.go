// Copyright 2020 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package bzcore

import (
	"strings"
	"sync"
)

// multiError collects errors reported by concurrent work and exposes them
// as a single error, preserving the first one reported. It exists so
// DecodeAll can let every independent session in a batch wind down on its
// own terms after the first failure (each session notices the resulting
// context cancellation at its own next suspend point) rather than losing
// track of later, possibly more specific, errors.
type multiError struct {
	mu   sync.Mutex
	errs []error
}

func (m *multiError) add(err error) {
	if err == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs = append(m.errs, err)
}

// first returns the first error added, or nil if none were.
func (m *multiError) first() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.errs) == 0 {
		return nil
	}
	return m.errs[0]
}

func (m *multiError) Error() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	parts := make([]string, len(m.errs))
	for i, e := range m.errs {
		parts[i] = e.Error()
	}
	return strings.Join(parts, "; ")
}
