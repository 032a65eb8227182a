package domain

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// Metadata attributes the engine reads from otherwise opaque profile metadata.
const (
	StartTimeAttr = "g.Measurement.StartTime"
	SiteAttr      = "g.Site.Code"
)

// TimestampLayout is the only accepted start-time format:
// YYYY-MM-DDTHH:MM:SS.ffffffZ with exactly six fractional digits.
const TimestampLayout = "2006-01-02T15:04:05.000000Z"

// profileNamespace scopes the name-based profile IDs.
var profileNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("urn:profile-gridding:profile"))

// Measurement is one variable's reading in a sample with its three TN-13
// uncertainty components. UScor and UTcor are optional: when the instrument
// does not report them they decode as zero and contribute nothing to the
// combined uncertainty, which under-states it if such errors do exist.
type Measurement struct {
	Value float64 `json:"value"`
	UUcor float64 `json:"u_ucor"`
	UScor float64 `json:"u_scor,omitempty"`
	UTcor float64 `json:"u_tcor,omitempty"`
}

// Sample is one measurement record of a sounding. Coords holds the vertical
// coordinates keyed by column name ("alt", "press", ...).
type Sample struct {
	Coords map[string]float64     `json:"coords"`
	Time   time.Time              `json:"time,omitzero"`
	Vars   map[string]Measurement `json:"vars"`
}

// Profile is one sounding: samples in acquisition order plus site metadata
// owned by the ingestion side. The engine never mutates a Profile.
type Profile struct {
	Metadata map[string]string `json:"metadata"`
	Samples  []Sample          `json:"samples"`
}

// StartTime parses the profile's StartTimeAttr metadata.
func (p Profile) StartTime() (time.Time, error) {
	return ParseStartTime(p.Metadata)
}

// ID returns a deterministic identifier derived from site and start time, so
// reprocessing the same sounding yields the same ID.
func (p Profile) ID() string {
	return profileID(p.Metadata)
}

// column extracts one coordinate column, in sample order.
func (p Profile) column(name string) ([]float64, error) {
	out := make([]float64, len(p.Samples))
	for i, s := range p.Samples {
		v, ok := s.Coords[name]
		if !ok {
			return nil, fmt.Errorf("%w: sample %d has no coordinate %q", ErrMissingVariable, i, name)
		}
		out[i] = v
	}
	return out, nil
}

// ParseStartTime reads StartTimeAttr from metadata. The value must match
// TimestampLayout exactly; anything else is ErrMalformedTimestamp.
func ParseStartTime(metadata map[string]string) (time.Time, error) {
	v, ok := metadata[StartTimeAttr]
	if !ok {
		return time.Time{}, fmt.Errorf("%w: %s not set", ErrMalformedTimestamp, StartTimeAttr)
	}
	t, err := time.Parse(TimestampLayout, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s=%q", ErrMalformedTimestamp, StartTimeAttr, v)
	}
	return t, nil
}

// FormatStartTime renders t in TimestampLayout (UTC).
func FormatStartTime(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

func profileID(metadata map[string]string) string {
	key := metadata[SiteAttr] + "|" + metadata[StartTimeAttr]
	return uuid.NewSHA1(profileNamespace, []byte(key)).String()
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
