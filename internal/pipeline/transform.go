package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/profile-gridding-service/internal/domain"
)

// errNonFinite rejects gridded profiles that JSON cannot carry.
var errNonFinite = errors.New("non-finite estimate")

// ProfileGridder implements Transformer by spatially gridding each raw
// profile along one coordinate.
type ProfileGridder struct {
	coordinate string
	variables  []string
	policy     domain.BinPolicy
	logger     *slog.Logger
}

// NewTransformer creates a ProfileGridder for the given coordinate column,
// variables, and binning policy.
func NewTransformer(coordinate string, variables []string, policy domain.BinPolicy, logger *slog.Logger) *ProfileGridder {
	return &ProfileGridder{
		coordinate: coordinate,
		variables:  variables,
		policy:     policy,
		logger:     logger,
	}
}

// Transform parses, grids, and stamps one raw profile. Profiles without a
// valid start time are rejected because they could never be placed on a
// temporal grid.
func (t *ProfileGridder) Transform(_ context.Context, raw domain.RawEvent) (domain.GriddedProfile, error) {
	profile, err := domain.ParseRawEvent(raw)
	if err != nil {
		return domain.GriddedProfile{}, err
	}
	if _, err := profile.StartTime(); err != nil {
		return domain.GriddedProfile{}, err
	}

	g, err := domain.BuildSpatialGrid(profile, t.coordinate, t.variables, t.policy)
	if err != nil {
		return domain.GriddedProfile{}, err
	}

	if err := checkFinite(g); err != nil {
		return domain.GriddedProfile{}, err
	}

	t.logger.Debug("profile gridded",
		"profile_id", g.ID,
		"samples", len(profile.Samples),
		"bins", len(g.Rows),
	)
	return domain.MarkProcessed(g), nil
}

// checkFinite rejects NaN or infinite estimates, which come from NaN values
// in the input and would fail serialization on every retry.
func checkFinite(g domain.GriddedProfile) error {
	for _, row := range g.Rows {
		for name, est := range row.Vars {
			for _, v := range []float64{est.Mean, est.U} {
				if math.IsNaN(v) || math.IsInf(v, 0) {
					return fmt.Errorf("%w: profile %s bin %v variable %q", errNonFinite, g.ID, row.Key, name)
				}
			}
		}
	}
	return nil
}

// Result is the outcome of gridding one raw event.
type Result struct {
	Profile domain.GriddedProfile
	Err     error
}

// GridProfiles grids every raw event with at most limit concurrent workers.
// Results keep the order of raws; a failure on one event is reported in its
// Result and never cancels the others. The returned error is non-nil only if
// ctx is cancelled.
func GridProfiles(ctx context.Context, raws []domain.RawEvent, t Transformer, limit int) ([]Result, error) {
	results := make([]Result, len(raws))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(limit, 1))
	for i, raw := range raws {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out, err := t.Transform(gctx, raw)
			results[i] = Result{Profile: out, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// ErrorReason classifies a gridding failure for metrics and logs.
func ErrorReason(err error) string {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxErr), errors.As(err, &typeErr):
		return "parse"
	case errors.Is(err, domain.ErrMalformedTimestamp):
		return "timestamp"
	case errors.Is(err, domain.ErrMissingVariable):
		return "missing_variable"
	case errors.Is(err, domain.ErrEmptyInput):
		return "empty"
	case errors.Is(err, domain.ErrInvalidCoordinate):
		return "invalid_coordinate"
	case errors.Is(err, errNonFinite):
		return "non_finite"
	case errors.Is(err, domain.ErrInvalidConfiguration):
		return "config"
	default:
		return "other"
	}
}
