// Package skipset defines the ordered-map contract every skip-list variant
// in this repository implements, so the benchmark harness can drive any of
// them polymorphically.
package skipset

// Set is the common contract: insert, lookup, and delete over a totally
// ordered integer key domain with set semantics (at most one value per
// key). Every implementation must be linearizable: a completed operation
// appears to take effect at a single instant between its invocation and
// response.
type Set interface {
	// Add inserts key with the given value. It returns false without
	// mutating the set if key is already present or out of the
	// configured key range.
	Add(key int, value any) bool

	// Remove deletes key if present, returning its stored value and true.
	// Returns (nil, false) if key was absent.
	Remove(key int) (any, bool)

	// Contains reports whether key is currently a live member of the set.
	Contains(key int) bool
}
