// Package finelist implements the fine-grained, lock-based skip list: each
// node carries its own mutex, new nodes are linked lazily (visible to
// readers one level at a time, bottom-up, before being declared "fully
// linked"), and deletion is two-phase (mark for removal, then physically
// unlink). Readers never block: they validate what they see against the
// marked/fullyLinked flags instead of taking a lock.
package finelist

import (
	"runtime"
	"sync"
	"sync/atomic"

	"skiplab/keyrange"
	"skiplab/keysel"
)

type node struct {
	key  int
	data any

	mu sync.Mutex
	// next[i] is an atomic forward pointer at level i. Writes happen only
	// while holding mu (of this node or, during insertion, of its
	// predecessor), but reads in Contains and in the optimistic validation
	// step happen without any lock, so every slot is atomic rather than a
	// plain pointer.
	next []atomic.Pointer[node]

	topLayer    int
	fullyLinked atomic.Bool
	marked      atomic.Bool
}

func newNode(key int, data any, levels int) *node {
	return &node{key: key, data: data, next: make([]atomic.Pointer[node], levels)}
}

// List is a fine-grained, optimistically-validated skip list. It
// implements skipset.Set and is safe for concurrent use by multiple
// goroutines.
type List struct {
	head   *node
	levels int
	prob   float64
	kr     keyrange.Range

	rngMu sync.Mutex
	rng   *keysel.LCG48
}

// New constructs an empty fine-grained list.
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

	head := newNode(kr.Min, nil, levels)
	head.topLayer = levels - 1
	head.fullyLinked.Store(true)

	return &List{
		head:   head,
		levels: levels,
		prob:   prob,
		kr:     kr,
		rng:    keysel.NewLCG48(seed),
	}, nil
}

// randomTopLayer draws the highest level a freshly inserted node should be
// linked at: level 0 always, then a coin flip per additional level until
// the first failure, matching seqlist's promotion scheme. Access to the
// shared RNG is itself serialized by a dedicated mutex distinct from any
// node's lock.
func (l *List) randomTopLayer() int {
	l.rngMu.Lock()
	defer l.rngMu.Unlock()

	top := 0
	for i := 1; i < l.levels; i++ {
		if l.rng.Float64() > l.prob {
			break
		}
		top++
	}
	return top
}

// findNeighbours walks top-down recording, for every level, the last node
// whose key is less than key (preds) and its successor (succs). It
// returns the highest level at which a node with key was found linked, or
// -1 if key is absent at every level examined.
func (l *List) findNeighbours(key int) (preds, succs []*node, foundLevel int) {
	preds = make([]*node, l.levels)
	succs = make([]*node, l.levels)
	foundLevel = -1

	cur := l.head
	for i := l.levels - 1; i >= 0; i-- {
		next := cur.next[i].Load()
		for next != nil && key > next.key {
			cur = next
			next = cur.next[i].Load()
		}
		preds[i] = cur
		succs[i] = next
		if foundLevel < 0 && next != nil && next.key == key {
			foundLevel = i
		}
	}
	return preds, succs, foundLevel
}

// Contains reports whether key is currently a live (unmarked) member.
func (l *List) Contains(key int) bool {
	_, succs, f := l.findNeighbours(key)
	if f < 0 {
		return false
	}
	found := succs[f]
	return found.fullyLinked.Load() && !found.marked.Load()
}

// lockUnique locks n if it is not already present in locked, and appends
// it. Deduplicating predecessors this way lets adjacent levels share a
// physical node without a reentrant mutex, which sync.Mutex deliberately
// does not support.
func lockUnique(locked []*node, n *node) []*node {
	for _, l := range locked {
		if l == n {
			return locked
		}
	}
	n.mu.Lock()
	return append(locked, n)
}

func unlockAll(locked []*node) {
	for _, n := range locked {
		n.mu.Unlock()
	}
}

// Add inserts key with the given value, retrying internally until it can
// either confirm a duplicate or complete a validated splice. It returns
// false if key is outside the configured range or already present.
func (l *List) Add(key int, value any) bool {
	if !l.kr.Contains(key) {
		return false
	}

	top := l.randomTopLayer()

	for {
		preds, succs, f := l.findNeighbours(key)
		if f >= 0 {
			found := succs[f]
			if !found.marked.Load() {
				for !found.fullyLinked.Load() {
					runtime.Gosched()
				}
				return false
			}
			// Marked for deletion by another goroutine; retry once it is
			// physically unlinked.
			continue
		}

		var locked []*node
		valid := true
		for lvl := 0; lvl <= top && valid; lvl++ {
			pred, succ := preds[lvl], succs[lvl]
			locked = lockUnique(locked, pred)
			valid = !pred.marked.Load() && (succ == nil || !succ.marked.Load()) && pred.next[lvl].Load() == succ
		}
		if !valid {
			unlockAll(locked)
			continue
		}

		n := newNode(key, value, l.levels)
		n.topLayer = top
		for i := 0; i <= top; i++ {
			n.next[i].Store(succs[i])
			preds[i].next[i].Store(n)
		}
		n.fullyLinked.Store(true)
		unlockAll(locked)
		return true
	}
}

// Remove deletes key if present, returning its stored value. Deletion is
// two-phase: the victim is marked first (so concurrent readers and
// inserters treat it as gone) and then physically unlinked level by level.
func (l *List) Remove(key int) (any, bool) {
	var victim *node
	marked := false
	top := -1

	for {
		preds, succs, f := l.findNeighbours(key)
		if f >= 0 {
			victim = succs[f]
		}

		if !(marked || (f >= 0 && victim.fullyLinked.Load() && victim.topLayer == f)) {
			return nil, false
		}

		if !marked {
			top = victim.topLayer
			victim.mu.Lock()
			if victim.marked.Load() {
				victim.mu.Unlock()
				return nil, false
			}
			victim.marked.Store(true)
			marked = true
		}

		var locked []*node
		valid := true
		for lvl := 0; lvl <= top && valid; lvl++ {
			pred := preds[lvl]
			locked = lockUnique(locked, pred)
			valid = !pred.marked.Load() && pred.next[lvl].Load() == victim
		}
		if !valid {
			unlockAll(locked)
			continue
		}

		for lvl := top; lvl >= 0; lvl-- {
			preds[lvl].next[lvl].Store(victim.next[lvl].Load())
		}
		victim.mu.Unlock()
		unlockAll(locked)
		return victim.data, true
	}
}
