package domain

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strconv"
	"time"

	"gonum.org/v1/gonum/stat"
)

const day = 24 * time.Hour

// maxTimeBins bounds the time bin index of any profile in one grid.
const maxTimeBins = 1 << 20

// TemporalRow aggregates the rows of every profile sharing one time bin and
// one vertical key.
type TemporalRow struct {
	TimeBin    int                 `json:"time_bin"`
	Time       time.Time           `json:"time"`
	Key        BinKey              `json:"key"`
	Coordinate float64             `json:"coordinate"`
	Profiles   int                 `json:"profiles"`
	Vars       map[string]Estimate `json:"vars"`
}

// TemporalGrid is a collection of gridded profiles resampled onto a time axis.
type TemporalGrid struct {
	Metadata   map[string]string `json:"metadata"`
	Origin     time.Time         `json:"origin"`
	WidthDays  float64           `json:"width_days"`
	Coordinate string            `json:"coordinate"`
	KeyKind    KeyKind           `json:"key_kind"`
	Variables  []string          `json:"variables"`
	Rows       []TemporalRow     `json:"rows"`
}

type cellKey struct {
	timeBin int
	key     BinKey
}

// BuildTemporalGrid groups gridded rows by (time bin, vertical key) and
// reapplies the aggregation with TemporalRules (TN-13 eqs 3.12–3.16). Time
// bins are widthDays wide and counted from the earliest start time. Each
// row's u_uc is the uncorrelated input; the spread of the row means between
// profiles enters as the sample std.
//
// Estimate.UUcor in a temporal row therefore aggregates the previous stage's
// u_uc, not its u_ucor. For a single profile, UUcor equals the spatial UUc,
// SampleStd is 0, and Mean, UUc, UScor, UTcor and U reproduce the spatial
// row.
func BuildTemporalGrid(profiles []GriddedProfile, variables []string, widthDays float64, key KeyKind) (TemporalGrid, error) {
	if len(profiles) == 0 {
		return TemporalGrid{}, fmt.Errorf("%w: no gridded profiles", ErrEmptyInput)
	}
	if !(widthDays > 0) || math.IsInf(widthDays, 0) {
		return TemporalGrid{}, fmt.Errorf("%w: time bin width must be positive and finite, got %v days", ErrInvalidConfiguration, widthDays)
	}
	if key != KeyBin && key != KeyLevel {
		return TemporalGrid{}, fmt.Errorf("%w: unknown vertical key %q", ErrInvalidConfiguration, key)
	}
	if err := validateVariables(variables); err != nil {
		return TemporalGrid{}, err
	}
	if err := checkKeys(profiles, key); err != nil {
		return TemporalGrid{}, err
	}

	starts := make([]time.Time, len(profiles))
	for i, g := range profiles {
		t, err := g.StartTime()
		if err != nil {
			return TemporalGrid{}, fmt.Errorf("profile %s: %w", g.ID, err)
		}
		starts[i] = t
	}
	origin := slices.MinFunc(starts, func(a, b time.Time) int { return a.Compare(b) })

	cells := make(map[cellKey][]*GridRow)
	for i := range profiles {
		tb, err := timeBinIndex(starts[i].Sub(origin), widthDays)
		if err != nil {
			return TemporalGrid{}, fmt.Errorf("profile %s: %w", profiles[i].ID, err)
		}
		rows := profiles[i].Rows
		for j := range rows {
			for _, v := range variables {
				if _, ok := rows[j].Vars[v]; !ok {
					return TemporalGrid{}, fmt.Errorf("%w: profile %s row %v has no variable %q", ErrMissingVariable, profiles[i].ID, rows[j].Key, v)
				}
			}
			ck := cellKey{timeBin: tb, key: rows[j].Key}
			cells[ck] = append(cells[ck], &rows[j])
		}
	}

	order := make([]cellKey, 0, len(cells))
	for ck := range cells {
		order = append(order, ck)
	}
	slices.SortFunc(order, func(a, b cellKey) int {
		if a.timeBin != b.timeBin {
			return cmp.Compare(a.timeBin, b.timeBin)
		}
		return compareKeys(a.key, b.key)
	})

	out := make([]TemporalRow, 0, len(order))
	for _, ck := range order {
		members := cells[ck]
		coords := make([]float64, len(members))
		for i, r := range members {
			coords[i] = r.Coordinate
		}
		row := TemporalRow{
			TimeBin:    ck.timeBin,
			Time:       binMidTime(origin, ck.timeBin, widthDays),
			Key:        ck.key,
			Coordinate: stat.Mean(coords, nil),
			Profiles:   len(members),
			Vars:       make(map[string]Estimate, len(variables)),
		}
		ms := make([]Measurement, len(members))
		for _, v := range variables {
			for i, r := range members {
				ms[i] = r.Vars[v].carry()
			}
			agg, err := AggregateBin(ms, TemporalRules)
			if err != nil {
				return TemporalGrid{}, fmt.Errorf("time bin %d key %v variable %q: %w", ck.timeBin, ck.key, v, err)
			}
			row.Vars[v] = newEstimate(agg)
		}
		out = append(out, row)
	}

	first := profiles[0]
	md := griddingMetadata(first.Metadata, "Temporal Gridding", first.Coordinate,
		strconv.FormatFloat(widthDays, 'g', -1, 64), variables)
	md[GriddingCountAttr] = strconv.Itoa(len(profiles))
	md[StartTimeAttr] = FormatStartTime(origin)

	return TemporalGrid{
		Metadata:   md,
		Origin:     origin,
		WidthDays:  widthDays,
		Coordinate: first.Coordinate,
		KeyKind:    key,
		Variables:  append([]string(nil), variables...),
		Rows:       out,
	}, nil
}

// checkKeys rejects collections that mix key kinds, or fixed-width grids
// built on different columns or bin widths.
func checkKeys(profiles []GriddedProfile, key KeyKind) error {
	first := profiles[0]
	for _, g := range profiles {
		if g.KeyKind != key {
			return fmt.Errorf("%w: profile %s uses %q keys, want %q", ErrInconsistentKeys, g.ID, g.KeyKind, key)
		}
		if g.Coordinate != first.Coordinate {
			return fmt.Errorf("%w: profile %s gridded on %q, want %q", ErrInconsistentKeys, g.ID, g.Coordinate, first.Coordinate)
		}
		if key == KeyBin && g.BinWidth != first.BinWidth {
			return fmt.Errorf("%w: profile %s bin width %v, want %v", ErrInconsistentKeys, g.ID, g.BinWidth, first.BinWidth)
		}
		for _, r := range g.Rows {
			if r.Key.Kind != key {
				return fmt.Errorf("%w: profile %s row key %v is not a %q key", ErrInconsistentKeys, g.ID, r.Key, key)
			}
		}
	}
	return nil
}

// timeBinIndex returns the time bin holding an offset from the origin. It
// rejects widths that would push the index or the bin centre out of range.
func timeBinIndex(offset time.Duration, widthDays float64) (int, error) {
	q := math.Floor(offset.Hours() / 24 / widthDays)
	if q >= maxTimeBins {
		return 0, fmt.Errorf("%w: time bin width %v days yields bin index %v", ErrInvalidConfiguration, widthDays, q)
	}
	if mid := (q + 0.5) * widthDays * float64(day); mid >= math.MaxInt64 {
		return 0, fmt.Errorf("%w: time bin width %v days puts bin centre beyond %v", ErrInvalidConfiguration, widthDays, time.Duration(math.MaxInt64))
	}
	return int(q), nil
}

// binMidTime returns the centre of time bin k. k must come from timeBinIndex.
func binMidTime(origin time.Time, k int, widthDays float64) time.Time {
	offset := (float64(k) + 0.5) * widthDays * float64(day)
	return origin.Add(time.Duration(offset))
}
