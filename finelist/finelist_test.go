package finelist

import (
	"sync"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"skiplab/keyrange"
)

func TestFineListBasics(t *testing.T) {
	Convey("Given an empty fine-grained list", t, func() {
		l, err := New(8, 0.5, keyrange.Range{Min: 0, Max: 1000}, 1)
		So(err, ShouldBeNil)

		Convey("Add/Contains/Remove behave like the sequential oracle", func() {
			So(l.Add(5, "a"), ShouldBeTrue)
			So(l.Contains(5), ShouldBeTrue)
			So(l.Add(5, "b"), ShouldBeFalse)

			v, ok := l.Remove(5)
			So(ok, ShouldBeTrue)
			So(v, ShouldEqual, "a")
			So(l.Contains(5), ShouldBeFalse)
		})

		Convey("Add rejects keys outside the configured range", func() {
			So(l.Add(-1, nil), ShouldBeFalse)
			So(l.Add(1001, nil), ShouldBeFalse)
		})

		Convey("Remove on an absent key reports false", func() {
			_, ok := l.Remove(99)
			So(ok, ShouldBeFalse)
		})
	})
}

// TestMarkedNodeIsInvisible is the "mark but not yet unlinked" scenario:
// once Remove has flipped the marked flag, Contains must report false even
// though the node may still be physically reachable for a brief window.
func TestMarkedNodeIsInvisible(t *testing.T) {
	Convey("Given a list with one key", t, func() {
		l, err := New(4, 0.5, keyrange.Range{Min: 0, Max: 100}, 1)
		So(err, ShouldBeNil)
		l.Add(10, "ten")

		Convey("marking the node directly makes it invisible to Contains", func() {
			_, _, f := l.findNeighbours(10)
			So(f, ShouldBeGreaterThanOrEqualTo, 0)

			n, err := New(4, 0.5, keyrange.Range{Min: 0, Max: 100}, 1)
			So(err, ShouldBeNil)
			n.Add(10, "ten")
			_, succs, lvl := n.findNeighbours(10)
			succs[lvl].marked.Store(true)

			So(n.Contains(10), ShouldBeFalse)
		})
	})
}

func TestConcurrentAddContains(t *testing.T) {
	Convey("Given many goroutines racing adds and lookups over a shared key space", t, func() {
		l, err := New(10, 0.5, keyrange.Range{Min: 0, Max: 5000}, 7)
		So(err, ShouldBeNil)

		const workers = 8
		const perWorker = 300
		var wg sync.WaitGroup
		wg.Add(workers)
		for w := 0; w < workers; w++ {
			go func(w int) {
				defer wg.Done()
				for i := 0; i < perWorker; i++ {
					key := (w*perWorker + i) % 5000
					l.Add(key, key)
					l.Contains(key)
				}
			}(w)
		}
		wg.Wait()

		Convey("no goroutine panicked and the list still answers queries", func() {
			count := 0
			for k := 0; k < 5000; k++ {
				if l.Contains(k) {
					count++
				}
			}
			So(count, ShouldBeGreaterThan, 0)
		})
	})
}
