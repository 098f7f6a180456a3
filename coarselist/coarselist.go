// Package coarselist implements the coarse-grained concurrent skip list:
// a single mutex wraps the whole structure and every operation runs the
// unmodified sequential algorithm from seqlist while holding it. It
// trades parallelism for simplicity and is the baseline every
// finer-grained variant must outperform to justify its complexity.
package coarselist

import (
	"sync"

	"skiplab/keyrange"
	"skiplab/seqlist"
)

// List serializes all access to an embedded seqlist.List behind a single
// mutex. It implements skipset.Set.
type List struct {
	mu    sync.Mutex
	inner *seqlist.List
}

// New constructs an empty coarse-grained list with the same parameters as
// seqlist.New.
func New(levels int, prob float64, kr keyrange.Range, seed uint64) (*List, error) {
	inner, err := seqlist.New(levels, prob, kr, seed)
	if err != nil {
		return nil, err
	}
	return &List{inner: inner}, nil
}

// Add inserts key under the list's lock.
func (l *List) Add(key int, value any) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inner.Add(key, value)
}

// Remove deletes key under the list's lock.
func (l *List) Remove(key int) (any, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inner.Remove(key)
}

// Contains looks up key under the list's lock. Even read-only lookups take
// the exclusive lock: the sequential walk mutates no shared state, but
// nothing about this variant is meant to allow readers and writers to
// overlap.
func (l *List) Contains(key int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inner.Contains(key)
}
