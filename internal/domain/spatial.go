package domain

import (
	"fmt"
	"maps"
	"strings"
	"time"
)

// Gridding metadata attributes added to gridded outputs.
const (
	GriddingTypeAttr    = "g.Gridding.Type"
	GriddingColumnAttr  = "g.Gridding.BinColumn"
	GriddingSizeAttr    = "g.Gridding.BinSize"
	GriddingTargetsAttr = "g.Gridding.TargetColumns"
	GriddingCountAttr   = "g.Gridding.ProfileCount"
)

// GridRow is one non-empty vertical bin of a gridded profile.
type GridRow struct {
	Key        BinKey              `json:"key"`
	Coordinate float64             `json:"coordinate"`
	Count      int                 `json:"count"`
	Vars       map[string]Estimate `json:"vars"`
}

// GriddedProfile is a profile resampled onto a vertical grid.
type GriddedProfile struct {
	ID          string            `json:"id"`
	Metadata    map[string]string `json:"metadata"`
	Coordinate  string            `json:"coordinate"`
	KeyKind     KeyKind           `json:"key_kind"`
	BinWidth    float64           `json:"bin_width,omitempty"`
	Variables   []string          `json:"variables"`
	Rows        []GridRow         `json:"rows"`
	ProcessedAt time.Time         `json:"processed_at,omitzero"`
}

// StartTime parses the originating profile's start time.
func (g GriddedProfile) StartTime() (time.Time, error) {
	return ParseStartTime(g.Metadata)
}

// BuildSpatialGrid bins one profile along the coordinate column and reduces
// every requested variable per bin (TN-13 eqs 3.5–3.11). Every sample must
// carry the coordinate and all variables. The profile is not modified.
func BuildSpatialGrid(p Profile, coordinate string, variables []string, policy BinPolicy) (GriddedProfile, error) {
	if len(p.Samples) == 0 {
		return GriddedProfile{}, fmt.Errorf("%w: profile %s has no samples", ErrEmptyInput, p.ID())
	}
	if err := validateVariables(variables); err != nil {
		return GriddedProfile{}, err
	}
	coords, err := p.column(coordinate)
	if err != nil {
		return GriddedProfile{}, err
	}
	for i, s := range p.Samples {
		for _, v := range variables {
			if _, ok := s.Vars[v]; !ok {
				return GriddedProfile{}, fmt.Errorf("%w: sample %d has no variable %q", ErrMissingVariable, i, v)
			}
		}
	}

	asg, err := AssignBins(coords, policy)
	if err != nil {
		return GriddedProfile{}, err
	}

	rows := make([]GridRow, 0, len(asg.Bins))
	for _, b := range asg.Bins {
		row := GridRow{
			Key:        b.Key,
			Coordinate: b.Coordinate,
			Count:      len(b.Members),
			Vars:       make(map[string]Estimate, len(variables)),
		}
		ms := make([]Measurement, len(b.Members))
		for _, v := range variables {
			for j, idx := range b.Members {
				ms[j] = p.Samples[idx].Vars[v]
			}
			agg, err := AggregateBin(ms, SpatialRules)
			if err != nil {
				return GriddedProfile{}, fmt.Errorf("bin %v variable %q: %w", b.Key, v, err)
			}
			row.Vars[v] = newEstimate(agg)
		}
		rows = append(rows, row)
	}

	var width float64
	if fw, ok := policy.(FixedWidth); ok {
		width = fw.Width
	}

	return GriddedProfile{
		ID:         p.ID(),
		Metadata:   griddingMetadata(p.Metadata, "Spatial Gridding", coordinate, policy.Size(), variables),
		Coordinate: coordinate,
		KeyKind:    policy.Kind(),
		BinWidth:   width,
		Variables:  append([]string(nil), variables...),
		Rows:       rows,
	}, nil
}

func validateVariables(variables []string) error {
	if len(variables) == 0 {
		return fmt.Errorf("%w: no variables requested", ErrInvalidConfiguration)
	}
	seen := make(map[string]struct{}, len(variables))
	for _, v := range variables {
		if strings.TrimSpace(v) == "" {
			return fmt.Errorf("%w: blank variable name", ErrInvalidConfiguration)
		}
		if _, dup := seen[v]; dup {
			return fmt.Errorf("%w: variable %q requested twice", ErrInvalidConfiguration, v)
		}
		seen[v] = struct{}{}
	}
	return nil
}

// griddingMetadata copies the source metadata and records how it was gridded.
func griddingMetadata(src map[string]string, kind, column, size string, variables []string) map[string]string {
	md := make(map[string]string, len(src)+4)
	maps.Copy(md, src)
	md[GriddingTypeAttr] = kind
	md[GriddingColumnAttr] = column
	md[GriddingSizeAttr] = size
	md[GriddingTargetsAttr] = strings.Join(variables, ", ")
	return md
}
