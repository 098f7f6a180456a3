// Package seqlist implements the sequential (single-goroutine) skip list:
// the reference algorithm every concurrent variant in this repository is
// built from, and the oracle the oracle-based tests compare concurrent
// histories against.
//
// A skip list is a probabilistic ordered structure: level 0 holds every
// live node in key order, and each higher level holds a geometrically
// thinner subsequence, so that search, insert, and delete all run in
// expected O(log n) by skipping across the higher "express lanes" before
// dropping to the precise level-0 linked list.
package seqlist

import (
	"errors"

	"skiplab/keyrange"
	"skiplab/keysel"
)

var (
	// ErrInvalidLevels is returned by New when levels is not in [1, 32].
	ErrInvalidLevels = errors.New("seqlist: levels must be in [1, 32]")
	// ErrInvalidProb is returned by New when prob is not in (0, 1).
	ErrInvalidProb = errors.New("seqlist: prob must be in (0, 1)")
	// ErrInvalidRange is returned by New when the key range fails
	// keyrange.Range.Validate (Max not greater than Min).
	ErrInvalidRange = errors.New("seqlist: key range is empty or inverted")
)

type node struct {
	key  int
	data any
	// next[i] is the successor at level i, or nil. A node's linked levels
	// always form the contiguous prefix {0, ..., len(next)-1}.
	next []*node
}

// List is a single-goroutine skip list over a closed integer key range.
// It is not safe for concurrent use; see coarselist, finelist, and
// lockfreelist for the concurrent variants built on top of this algorithm.
type List struct {
	head   *node
	levels int
	prob   float64
	kr     keyrange.Range
	rng    *keysel.LCG48
}

// New constructs an empty list with the given level budget, per-level
// promotion probability, key range, and RNG seed.
func New(levels int, prob float64, kr keyrange.Range, seed uint64) (*List, error) {
	if levels < 1 || levels > 32 {
		return nil, ErrInvalidLevels
	}
	if prob <= 0 || prob >= 1 {
		return nil, ErrInvalidProb
	}
	if err := kr.Validate(); err != nil {
		return nil, ErrInvalidRange
	}

	return &List{
		head:   &node{key: kr.Min, next: make([]*node, levels)},
		levels: levels,
		prob:   prob,
		kr:     kr,
		rng:    keysel.NewLCG48(seed),
	}, nil
}

// findPredecessors walks top-down recording, for every level, the last
// node whose key is less than key. It returns the predecessor slice and
// whether the level-0 successor holds key exactly.
func (l *List) findPredecessors(key int) ([]*node, bool) {
	preds := make([]*node, l.levels)
	cur := l.head
	for i := l.levels - 1; i >= 0; i-- {
		next := cur.next[i]
		for next != nil && key > next.key {
			cur = next
			next = cur.next[i]
		}
		preds[i] = cur
	}
	return preds, preds[0].next[0] != nil && preds[0].next[0].key == key
}

// Contains reports whether key is currently present.
func (l *List) Contains(key int) bool {
	_, found := l.findPredecessors(key)
	return found
}

// Add inserts key with the given value. It returns false if key is
// outside the configured range or already present.
func (l *List) Add(key int, value any) bool {
	if !l.kr.Contains(key) {
		return false
	}

	preds, found := l.findPredecessors(key)
	if found {
		return false
	}

	n := &node{key: key, data: value, next: make([]*node, 1, l.levels)}
	n.next[0] = preds[0].next[0]
	preds[0].next[0] = n

	for i := 1; i < l.levels; i++ {
		if l.rng.Float64() > l.prob {
			break
		}
		n.next = append(n.next, preds[i].next[i])
		preds[i].next[i] = n
	}

	return true
}

// Remove deletes key if present, returning its stored value.
func (l *List) Remove(key int) (any, bool) {
	preds, found := l.findPredecessors(key)
	if !found {
		return nil, false
	}

	target := preds[0].next[0]
	for i := 0; i < len(target.next); i++ {
		if preds[i].next[i] == target {
			preds[i].next[i] = target.next[i]
		}
	}

	return target.data, true
}
