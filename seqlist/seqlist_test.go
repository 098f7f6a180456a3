package seqlist

import (
	"math/rand"
	"sort"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"skiplab/keyrange"
)

func newTestList(t *testing.T) *List {
	t.Helper()
	l, err := New(8, 0.5, keyrange.Range{Min: 0, Max: 1000}, 1)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return l
}

func TestNewValidation(t *testing.T) {
	Convey("Given invalid constructor arguments", t, func() {
		kr := keyrange.Range{Min: 0, Max: 100}

		Convey("levels outside [1, 32] is rejected", func() {
			_, err := New(0, 0.5, kr, 1)
			So(err, ShouldEqual, ErrInvalidLevels)
			_, err = New(33, 0.5, kr, 1)
			So(err, ShouldEqual, ErrInvalidLevels)
		})

		Convey("prob outside (0, 1) is rejected", func() {
			_, err := New(4, 0, kr, 1)
			So(err, ShouldEqual, ErrInvalidProb)
			_, err = New(4, 1, kr, 1)
			So(err, ShouldEqual, ErrInvalidProb)
		})

		Convey("an inverted range is rejected", func() {
			_, err := New(4, 0.5, keyrange.Range{Min: 10, Max: 5}, 1)
			So(err, ShouldEqual, ErrInvalidRange)
		})
	})
}

func TestAddContainsRemove(t *testing.T) {
	Convey("Given an empty list", t, func() {
		l := newTestList(t)

		Convey("Contains is false for anything", func() {
			So(l.Contains(5), ShouldBeFalse)
		})

		Convey("Add succeeds once and fails on the duplicate", func() {
			So(l.Add(5, "a"), ShouldBeTrue)
			So(l.Contains(5), ShouldBeTrue)
			So(l.Add(5, "b"), ShouldBeFalse)
		})

		Convey("Add rejects keys outside the configured range and accepts the inclusive upper bound", func() {
			So(l.Add(-1, "x"), ShouldBeFalse)
			So(l.Add(1000, "x"), ShouldBeTrue)
			So(l.Add(1001, "x"), ShouldBeFalse)
		})

		Convey("the inclusive lower bound of the range is accepted", func() {
			So(l.Add(0, "lo"), ShouldBeTrue)
			So(l.Contains(0), ShouldBeTrue)
		})

		Convey("Remove on an absent key reports false", func() {
			v, ok := l.Remove(42)
			So(ok, ShouldBeFalse)
			So(v, ShouldBeNil)
		})

		Convey("Remove after Add returns the stored value and clears membership", func() {
			l.Add(7, "seven")
			v, ok := l.Remove(7)
			So(ok, ShouldBeTrue)
			So(v, ShouldEqual, "seven")
			So(l.Contains(7), ShouldBeFalse)
		})
	})
}

// TestOracleAgainstMap checks the four laws of section 8 against a plain
// Go map driven by the identical operation sequence: every key present in
// the list is present in the map and vice versa, after an arbitrary
// interleaving of add/remove/contains.
func TestOracleAgainstMap(t *testing.T) {
	Convey("Given a list and a reference map driven by the same random ops", t, func() {
		l := newTestList(t)
		oracle := make(map[int]bool)
		r := rand.New(rand.NewSource(2024))

		for i := 0; i < 5000; i++ {
			key := r.Intn(1000)
			switch r.Intn(3) {
			case 0:
				want := !oracle[key]
				got := l.Add(key, key)
				So(got, ShouldEqual, want)
				oracle[key] = true
			case 1:
				want := oracle[key]
				_, got := l.Remove(key)
				So(got, ShouldEqual, want)
				delete(oracle, key)
			case 2:
				So(l.Contains(key), ShouldEqual, oracle[key])
			}
		}

		Convey("a full scan agrees on the final membership set", func() {
			var want []int
			for k := range oracle {
				want = append(want, k)
			}
			sort.Ints(want)

			var got []int
			for cur := l.head.next[0]; cur != nil; cur = cur.next[0] {
				got = append(got, cur.key)
			}

			So(got, ShouldResemble, want)
		})
	})
}

// TestLevelInvariant checks that, at every level, the keys reachable from
// head are strictly increasing.
func TestLevelInvariant(t *testing.T) {
	Convey("Given a list with many inserted keys", t, func() {
		l := newTestList(t)
		for i := 0; i < 500; i++ {
			l.Add(i*2, nil)
		}

		Convey("every level's keys are strictly increasing", func() {
			for lvl := 0; lvl < l.levels; lvl++ {
				prev := -1
				for cur := l.head.next[lvl]; cur != nil; cur = cur.next[lvl] {
					So(cur.key, ShouldBeGreaterThan, prev)
					prev = cur.key
				}
			}
		})
	})
}
