package domain

import "errors"

// Sentinel errors returned (wrapped) by the gridding engine. Match them with
// errors.Is; the wrapping message carries the offending value.
var (
	// ErrInvalidConfiguration reports a non-positive bin width, an empty or
	// non-finite mandatory-level set, or an empty variable list.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrEmptyInput reports a profile without samples or a temporal
	// collection without gridded profiles.
	ErrEmptyInput = errors.New("empty input")

	// ErrMissingVariable reports a requested variable or coordinate column
	// that is absent from a profile or gridded row.
	ErrMissingVariable = errors.New("missing variable")

	// ErrInconsistentKeys reports gridded profiles that cannot share a
	// temporal grid: mixed key kinds, bin widths or coordinate columns.
	ErrInconsistentKeys = errors.New("inconsistent vertical keys")

	// ErrMalformedTimestamp reports a start time that does not follow
	// TimestampLayout exactly.
	ErrMalformedTimestamp = errors.New("malformed timestamp")

	// ErrInvalidCoordinate reports a NaN or infinite coordinate, which
	// cannot be placed in the total order binning relies on.
	ErrInvalidCoordinate = errors.New("invalid coordinate")

	// ErrProfileNotFound is returned by stores for unknown profile IDs.
	ErrProfileNotFound = errors.New("gridded profile not found")
)
