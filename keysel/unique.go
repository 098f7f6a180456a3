package keysel

// UniqueKeyIterator returns each value of [0, N) exactly once in
// pseudo-random order before wrapping around and replaying the same
// randomized order again. It is a partial (lazy) Fisher-Yates shuffle:
// the full permutation is never materialized up front, only the prefix
// that has actually been visited, which amortizes to O(1) per call and
// uses O(N) memory.
//
// Not safe for concurrent use; each worker goroutine owns a private
// instance, matching the one-iterator-per-thread contract in the original
// benchmark driver.
type UniqueKeyIterator struct {
	a        []int
	current  int
	shuffled int
	rng      *LCG48
}

// NewUniqueKeyIterator builds an iterator over [0, n).
func NewUniqueKeyIterator(n int, rng *LCG48) *UniqueKeyIterator {
	a := make([]int, n)
	for i := range a {
		a[i] = i
	}
	return &UniqueKeyIterator{a: a, rng: rng}
}

// Next returns the next value in the current randomized permutation,
// randomizing further positions on demand, and wraps around to replay the
// same permutation once every position has been visited.
func (u *UniqueKeyIterator) Next() int {
	n := len(u.a)
	if n == 0 {
		return 0
	}

	if u.current == u.shuffled {
		// Position u.current has not yet been randomized: swap it with a
		// uniformly chosen position in [current, n).
		span := n - u.current
		j := u.current + int(u.rng.Float64()*float64(span))
		u.a[u.current], u.a[j] = u.a[j], u.a[u.current]
		u.shuffled++
	}

	v := u.a[u.current]
	u.current++
	if u.current == n {
		u.current = 0
	}
	return v
}
