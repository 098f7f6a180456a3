package finelist

import "errors"

var (
	// ErrInvalidLevels is returned by New when levels is not in [1, 32].
	ErrInvalidLevels = errors.New("finelist: levels must be in [1, 32]")
	// ErrInvalidProb is returned by New when prob is not in (0, 1).
	ErrInvalidProb = errors.New("finelist: prob must be in (0, 1)")
	// ErrInvalidRange is returned by New when the key range fails
	// keyrange.Range.Validate (Max not greater than Min).
	ErrInvalidRange = errors.New("finelist: key range is empty or inverted")
)
