package pipeline_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/couchcryptid/profile-gridding-service/internal/domain"
	"github.com/couchcryptid/profile-gridding-service/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileGridder_WithMockSoundings(t *testing.T) {
	raws := readMockSoundings(t)
	require.Len(t, raws, 3)

	tfm := pipeline.NewTransformer("alt", []string{"temp", "rh"}, domain.FixedWidth{Width: 100}, slog.Default())
	results, err := pipeline.GridProfiles(context.Background(), raws, tfm, 3)
	require.NoError(t, err)

	gridded := make([]domain.GriddedProfile, 0, len(results))
	for _, res := range results {
		require.NoError(t, res.Err)
		g := res.Profile

		// alt 50..320 every 30 m: bins [0,100) [100,200) [200,300) [300,400)
		require.Len(t, g.Rows, 4)
		counts := []int{g.Rows[0].Count, g.Rows[1].Count, g.Rows[2].Count, g.Rows[3].Count}
		assert.Equal(t, []int{2, 3, 4, 1}, counts)
		assert.Equal(t, []float64{50, 150, 250, 350},
			[]float64{g.Rows[0].Coordinate, g.Rows[1].Coordinate, g.Rows[2].Coordinate, g.Rows[3].Coordinate})

		for _, row := range g.Rows {
			temp := row.Vars["temp"]
			assert.InDelta(t, 0.1, temp.UScor, 1e-12)
			assert.InDelta(t, 0.05, temp.UTcor, 1e-12)
			assert.LessOrEqual(t, temp.UUcor, 0.15+1e-12)
			assert.Zero(t, row.Vars["rh"].UTcor)
		}
		assert.Equal(t, "RS41-GDP", g.Metadata["g.Product.Code"])
		gridded = append(gridded, g)
	}

	assert.InDelta(t, 281.5775, gridded[0].Rows[0].Vars["temp"].Mean, 1e-9)
	assert.InDelta(t, 280.4075, gridded[0].Rows[2].Vars["temp"].Mean, 1e-9)

	// The first two soundings share a day, the third falls on the next.
	tg, err := domain.BuildTemporalGrid(gridded, []string{"temp"}, 1, domain.KeyBin)
	require.NoError(t, err)
	require.Len(t, tg.Rows, 8)
	assert.Equal(t, 2, tg.Rows[0].Profiles)
	assert.Equal(t, 1, tg.Rows[4].TimeBin)
	assert.Equal(t, 1, tg.Rows[4].Profiles)
	assert.InDelta(t, 281.5775+0.2, tg.Rows[0].Vars["temp"].Mean, 1e-9)
	assert.InDelta(t, 0.2, tg.Rows[0].Vars["temp"].SampleStd, 1e-9)
}

func readMockSoundings(t *testing.T) []domain.RawEvent {
	t.Helper()

	path := filepath.Join("..", "..", "data", "mock", "soundings_lin_202403.json")
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var profiles []json.RawMessage
	require.NoError(t, json.Unmarshal(data, &profiles))

	raws := make([]domain.RawEvent, len(profiles))
	for i, p := range profiles {
		raws[i] = domain.RawEvent{Value: p, Topic: "raw-soundings", Offset: int64(i)}
	}
	return raws
}
