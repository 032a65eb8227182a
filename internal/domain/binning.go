package domain

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/stat"
)

// maxFixedWidthBins bounds the edge set of one fixed-width assignment.
const maxFixedWidthBins = 1 << 20

// StandardPressureLevels are the WMO mandatory pressure levels in hPa.
var StandardPressureLevels = []float64{1000, 925, 850, 700, 500, 400, 300, 250, 200, 150, 100, 70, 50, 30, 20, 10}

// KeyKind tells which binning policy produced a vertical key.
type KeyKind string

const (
	KeyBin   KeyKind = "bin"   // fixed-width bin index
	KeyLevel KeyKind = "level" // mandatory level value
)

// BinKey identifies a vertical bin. Fixed-width keys carry Index; level keys
// carry Level. BinKey is comparable and used directly as a map key.
type BinKey struct {
	Kind  KeyKind `json:"kind"`
	Index int     `json:"index,omitempty"`
	Level float64 `json:"level,omitempty"`
}

func (k BinKey) less(o BinKey) bool {
	if k.Kind == KeyLevel {
		return k.Level < o.Level
	}
	return k.Index < o.Index
}

func compareKeys(a, b BinKey) int {
	switch {
	case a.less(b):
		return -1
	case b.less(a):
		return 1
	}
	return 0
}

// Bin is one non-empty bin: its key, representative coordinate, and the
// indexes of the coordinates assigned to it.
type Bin struct {
	Key        BinKey
	Coordinate float64
	Members    []int
}

// Assignment is the result of binning a coordinate column.
type Assignment struct {
	// Keys holds one key per input coordinate, in input order.
	Keys []BinKey
	// Bins holds the non-empty bins in ascending key order.
	Bins []Bin
	// Edges holds the fixed-width bin edges. The last edge lies at least one
	// full bin above the bin containing the largest coordinate. Nil for
	// mandatory levels.
	Edges []float64
}

// BinPolicy decides how coordinates are grouped. The implementations are
// FixedWidth and MandatoryLevels.
type BinPolicy interface {
	Kind() KeyKind
	// Size describes the policy parameter for gridding metadata.
	Size() string
	assign(coords []float64) (Assignment, error)
}

// AssignBins maps every coordinate to exactly one bin. Empty bins are never
// emitted.
func AssignBins(coords []float64, policy BinPolicy) (Assignment, error) {
	if policy == nil {
		return Assignment{}, fmt.Errorf("%w: no bin policy", ErrInvalidConfiguration)
	}
	if len(coords) == 0 {
		return Assignment{}, fmt.Errorf("%w: no coordinates to bin", ErrEmptyInput)
	}
	for i, c := range coords {
		if !isFinite(c) {
			return Assignment{}, fmt.Errorf("%w: coordinate %d is %v", ErrInvalidCoordinate, i, c)
		}
	}
	return policy.assign(coords)
}

// FixedWidth bins coordinates into [k*Width, (k+1)*Width), represented by
// the interval midpoint.
type FixedWidth struct {
	Width float64
}

func (FixedWidth) Kind() KeyKind { return KeyBin }

func (f FixedWidth) Size() string { return strconv.FormatFloat(f.Width, 'g', -1, 64) }

func (f FixedWidth) validate() error {
	if !(f.Width > 0) || math.IsInf(f.Width, 0) {
		return fmt.Errorf("%w: bin width must be positive and finite, got %v", ErrInvalidConfiguration, f.Width)
	}
	return nil
}

// Index returns the bin index of a coordinate. Indexes are limited to
// ±maxFixedWidthBins so the edge span always fits in an int.
func (f FixedWidth) Index(c float64) (int, error) {
	q := math.Floor(c / f.Width)
	if math.IsNaN(q) || math.Abs(q) >= maxFixedWidthBins {
		return 0, fmt.Errorf("%w: bin width %v cannot index coordinate %v", ErrInvalidConfiguration, f.Width, c)
	}
	return int(q), nil
}

// Midpoint returns the representative coordinate of bin k.
func (f FixedWidth) Midpoint(k int) float64 {
	return float64(k)*f.Width + f.Width/2
}

func (f FixedWidth) assign(coords []float64) (Assignment, error) {
	if err := f.validate(); err != nil {
		return Assignment{}, err
	}

	keys := make([]BinKey, len(coords))
	members := make(map[int][]int)
	lo, hi := math.MaxInt, math.MinInt
	for i, c := range coords {
		k, err := f.Index(c)
		if err != nil {
			return Assignment{}, err
		}
		keys[i] = BinKey{Kind: KeyBin, Index: k}
		members[k] = append(members[k], i)
		lo = min(lo, k)
		hi = max(hi, k)
	}

	// Edges start at zero (or lower for negative coordinates) and run to
	// hi+2, leaving an explicit open bin above the largest sample.
	first := min(lo, 0)
	last := hi + 2
	if last-first > maxFixedWidthBins {
		return Assignment{}, fmt.Errorf("%w: bin width %v yields %d bins", ErrInvalidConfiguration, f.Width, last-first)
	}
	edges := make([]float64, 0, last-first+1)
	for k := first; k <= last; k++ {
		edges = append(edges, float64(k)*f.Width)
	}

	idx := make([]int, 0, len(members))
	for k := range members {
		idx = append(idx, k)
	}
	slices.Sort(idx)

	bins := make([]Bin, 0, len(idx))
	for _, k := range idx {
		bins = append(bins, Bin{
			Key:        BinKey{Kind: KeyBin, Index: k},
			Coordinate: f.Midpoint(k),
			Members:    members[k],
		})
	}
	return Assignment{Keys: keys, Bins: bins, Edges: edges}, nil
}

// MandatoryLevels snaps each coordinate to the nearest level. Ties go to the
// smaller level. A level's representative coordinate is the mean coordinate
// of the samples assigned to it, not the level value.
type MandatoryLevels struct {
	Levels []float64
}

func (MandatoryLevels) Kind() KeyKind { return KeyLevel }

func (m MandatoryLevels) Size() string {
	parts := make([]string, len(m.Levels))
	for i, l := range m.Levels {
		parts[i] = strconv.FormatFloat(l, 'g', -1, 64)
	}
	return strings.Join(parts, ", ")
}

// sorted returns the levels ascending and de-duplicated.
func (m MandatoryLevels) sorted() ([]float64, error) {
	if len(m.Levels) == 0 {
		return nil, fmt.Errorf("%w: empty mandatory level set", ErrInvalidConfiguration)
	}
	out := slices.Clone(m.Levels)
	for _, l := range out {
		if !isFinite(l) {
			return nil, fmt.Errorf("%w: mandatory level %v", ErrInvalidConfiguration, l)
		}
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}

// nearestLevel returns the level closest to c. levels must be ascending.
func nearestLevel(levels []float64, c float64) float64 {
	best, bestDist := levels[0], math.Abs(levels[0]-c)
	for _, l := range levels[1:] {
		if d := math.Abs(l - c); d < bestDist {
			best, bestDist = l, d
		}
	}
	return best
}

func (m MandatoryLevels) assign(coords []float64) (Assignment, error) {
	levels, err := m.sorted()
	if err != nil {
		return Assignment{}, err
	}

	keys := make([]BinKey, len(coords))
	members := make(map[float64][]int)
	for i, c := range coords {
		l := nearestLevel(levels, c)
		keys[i] = BinKey{Kind: KeyLevel, Level: l}
		members[l] = append(members[l], i)
	}

	bins := make([]Bin, 0, len(members))
	for _, l := range levels {
		idx, ok := members[l]
		if !ok {
			continue
		}
		assigned := make([]float64, len(idx))
		for j, i := range idx {
			assigned[j] = coords[i]
		}
		bins = append(bins, Bin{
			Key:        BinKey{Kind: KeyLevel, Level: l},
			Coordinate: stat.Mean(assigned, nil),
			Members:    idx,
		})
	}
	return Assignment{Keys: keys, Bins: bins}, nil
}
