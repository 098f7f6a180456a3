// Package lockfreelist implements the lock-free skip list: forward
// pointers are plain atomic pointers linked level-by-level with CAS, and
// logical deletion is a single atomic flag rather than a lock.
package lockfreelist

import (
	"errors"
	"runtime"
	"sync"
	"sync/atomic"

	"skiplab/keyrange"
	"skiplab/keysel"
)

var (
	// ErrInvalidLevels is returned by New when levels is not in [1, 32].
	ErrInvalidLevels = errors.New("lockfreelist: levels must be in [1, 32]")
	// ErrInvalidProb is returned by New when prob is not in (0, 1).
	ErrInvalidProb = errors.New("lockfreelist: prob must be in (0, 1)")
	// ErrInvalidRange is returned by New when the key range fails
	// keyrange.Range.Validate (Max not greater than Min).
	ErrInvalidRange = errors.New("lockfreelist: key range is empty or inverted")
)

// writerBit and readerMask pack a reader/writer latch into a single
// atomic.Uint32: the top bit marks an in-progress structural write to a
// node's next[] slots, the remaining bits count concurrent readers
// traversing through it. This mirrors the accessing_next bit-packing in
// the original C implementation, scaled down from its 12-bit
// writer/20-bit reader split to a 1-bit/31-bit split since Go's
// traversal never needs more than a handful of concurrent readers per
// node to be distinguishable, only nonzero-vs-zero.
const (
	writerBit  uint32 = 1 << 31
	readerMask uint32 = writerBit - 1
)

type node struct {
	key  int
	data any

	next []atomic.Pointer[node]

	topLayer      atomic.Int32
	fullyLinked   atomic.Bool
	beingDeleted  atomic.Bool
	accessingNext atomic.Uint32
}

func newNode(key int, data any, levels int) *node {
	return &node{key: key, data: data, next: make([]atomic.Pointer[node], levels)}
}

// readLock blocks out a concurrent structural writer while a traversal
// dereferences this node's next[] slots.
func (n *node) readLock() {
	for {
		old := n.accessingNext.Load()
		if old&writerBit != 0 {
			runtime.Gosched()
			continue
		}
		if n.accessingNext.CompareAndSwap(old, old+1) {
			return
		}
	}
}

func (n *node) readUnlock() {
	n.accessingNext.Add(^uint32(0))
}

// writeLock excludes both other writers and any in-flight readers before
// a structural change (relinking a level) proceeds.
func (n *node) writeLock() {
	for {
		old := n.accessingNext.Load()
		if old&writerBit != 0 {
			runtime.Gosched()
			continue
		}
		if n.accessingNext.CompareAndSwap(old, old|writerBit) {
			break
		}
	}
	for n.accessingNext.Load()&readerMask != 0 {
		runtime.Gosched()
	}
}

func (n *node) writeUnlock() {
	n.accessingNext.Store(0)
}

// List is a lock-free skip list implementing skipset.Set. It is safe for
// concurrent use by multiple goroutines with no blocking locks on the
// read or write path; contended inserts and removes retry via CAS instead
// of waiting.
type List struct {
	head, tail *node
	levels     int
	prob       float64
	kr         keyrange.Range

	rngMu sync.Mutex
	rng   *keysel.LCG48

	// topLayerHint is a monotonically increasing estimate of the highest
	// level any node has ever been linked at. find starts its real
	// top-down traversal at max(topLayerHint, minTop) instead of always
	// walking from l.levels-1, so a list that never grows tall doesn't
	// pay for empty upper levels on every lookup. It is never load-bearing
	// for correctness: the tail sentinel is linked at every level from
	// construction, so a stale (too-low) hint still terminates correctly,
	// just without skipping as many nodes as it could — that's why
	// callers additionally supply minTop, a floor the traversal must
	// start at regardless of the hint.
	topLayerHint atomic.Int32
}

// New constructs an empty lock-free list.
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
	head.fullyLinked.Store(true)

	tail := newNode(kr.Max+1, nil, levels)
	tail.fullyLinked.Store(true)
	for i := 0; i < levels; i++ {
		head.next[i].Store(tail)
	}

	return &List{
		head:   head,
		tail:   tail,
		levels: levels,
		prob:   prob,
		kr:     kr,
		rng:    keysel.NewLCG48(seed),
	}, nil
}

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

// nextInternal returns cur's successor at level i, physically unlinking
// (helping) any encountered node that is marked beingDeleted along the
// way, so a slow reader never has to block a remover. The caller holds
// cur's read latch; it is traded for the write latch around each helping
// CAS (writeLock waits for every reader, this one included, to drain) and
// is held again on return.
func (l *List) nextInternal(cur *node, level int) *node {
	for {
		next := cur.next[level].Load()
		if next == l.tail || !next.beingDeleted.Load() {
			return next
		}
		after := next.next[level].Load()
		cur.readUnlock()
		cur.writeLock()
		if cur.next[level].CompareAndSwap(next, after) {
			cur.writeUnlock()
			cur.readLock()
			continue
		}
		cur.writeUnlock()
		cur.readLock()
	}
}

// find walks top-down starting from max(topLayerHint, minTop), recording
// each level's predecessor and successor, and reports whether key is
// present (fully linked and not being deleted) at level 0. minTop is a
// floor on the starting level: callers that are about to link a node at
// a given top layer must pass that layer so the traversal always visits
// every level it will touch, regardless of how stale the hint is. Levels
// above the starting point are never touched by any caller, so preds/succs
// are left nil there.
func (l *List) find(key int, minTop int) (preds, succs []*node, found bool) {
	preds = make([]*node, l.levels)
	succs = make([]*node, l.levels)

	start := int(l.topLayerHint.Load())
	if minTop > start {
		start = minTop
	}
	if start > l.levels-1 {
		start = l.levels - 1
	}
	if start < 0 {
		start = 0
	}

	cur := l.head
	for i := start; i >= 0; i-- {
		cur.readLock()
		next := l.nextInternal(cur, i)
		for next != l.tail && key > next.key {
			cur.readUnlock()
			cur = next
			cur.readLock()
			next = l.nextInternal(cur, i)
		}
		preds[i] = cur
		succs[i] = next
		cur.readUnlock()
	}

	found = succs[0] != l.tail && succs[0].key == key &&
		succs[0].fullyLinked.Load() && !succs[0].beingDeleted.Load()
	return preds, succs, found
}

func (l *List) bumpTopLayerHint(top int32) {
	for {
		cur := l.topLayerHint.Load()
		if top <= cur || l.topLayerHint.CompareAndSwap(cur, top) {
			return
		}
	}
}

// Contains reports whether key is currently a live member.
func (l *List) Contains(key int) bool {
	_, _, found := l.find(key, 0)
	return found
}

// duplicateInProgress reports whether succs[0] is a same-key node that
// another Add has already linked at level 0 but not yet marked
// fullyLinked. find's found check alone cannot distinguish this state
// from "absent" (fullyLinked is exactly what it tests), so a caller that
// only checked found could CAS its own node in right alongside it,
// producing two live nodes with the same key. Any caller about to act on
// "not found" must first rule this out.
func duplicateInProgress(succs0, tail *node, key int) bool {
	return succs0 != tail && succs0.key == key
}

// waitUntilLinked spins until n is either fully linked or gives up being
// deleted before ever being linked; both are terminal with respect to
// this key's uniqueness, so the caller can safely treat the key as taken.
func waitUntilLinked(n *node) {
	for !n.fullyLinked.Load() && !n.beingDeleted.Load() {
		runtime.Gosched()
	}
}

// Add inserts key with the given value, linking level 0 first (the
// linearization point) and then the remaining levels bottom-up, each
// retried independently against CAS failure. It returns false if key is
// outside the configured range or already present.
func (l *List) Add(key int, value any) bool {
	if !l.kr.Contains(key) {
		return false
	}

	top := l.randomTopLayer()
	n := newNode(key, value, l.levels)
	n.topLayer.Store(int32(top))

	preds, succs, found := l.find(key, top)
	if found {
		return false
	}
	if duplicateInProgress(succs[0], l.tail, key) {
		waitUntilLinked(succs[0])
		return false
	}

	for i := 0; i <= top; i++ {
		n.next[i].Store(succs[i])
	}

	for !preds[0].next[0].CompareAndSwap(succs[0], n) {
		preds, succs, found = l.find(key, top)
		if found {
			return false
		}
		if duplicateInProgress(succs[0], l.tail, key) {
			waitUntilLinked(succs[0])
			return false
		}
		for i := 0; i <= top; i++ {
			n.next[i].Store(succs[i])
		}
	}

	for i := 1; i <= top; i++ {
		for {
			p, s := preds[i], succs[i]
			n.next[i].Store(s)
			if p.next[i].CompareAndSwap(s, n) {
				break
			}
			preds, succs, _ = l.find(key, top)
		}
	}

	n.fullyLinked.Store(true)
	l.bumpTopLayerHint(int32(top))
	return true
}

// Remove deletes key if present, returning its stored value. The node is
// first claimed via a single CAS on beingDeleted (the linearization
// point for removal: only one goroutine wins it), then physically
// unlinked level by level from the top down. Unlinking at each level is a
// single attempt: if the recorded predecessor's next pointer no longer
// points at victim, some other traversal's helping (nextInternal, run by
// any reader that walked past victim after it was marked) has already
// done the physical unlink at that level, so there is nothing left to do
// there. Retrying via a fresh find instead of accepting that would spin
// forever whenever a helper wins the race before this goroutine's own
// loop reaches that level.
func (l *List) Remove(key int) (any, bool) {
	_, succs, found := l.find(key, 0)
	if !found {
		return nil, false
	}

	victim := succs[0]
	if !victim.beingDeleted.CompareAndSwap(false, true) {
		return nil, false
	}

	// The first find only guarantees predecessors down to level 0; victim
	// may be linked as high as its own topLayer, which can exceed that
	// traversal's starting point. Re-find with a floor of top so preds
	// covers every level this removal needs to touch.
	top := int(victim.topLayer.Load())
	preds, _, _ := l.find(key, top)

	for i := top; i >= 0; i-- {
		p := preds[i]
		p.writeLock()
		if p.next[i].Load() == victim {
			p.next[i].CompareAndSwap(victim, victim.next[i].Load())
		}
		p.writeUnlock()
	}

	return victim.data, true
}
