package domain

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssignBins_FixedWidth(t *testing.T) {
	coords := []float64{0.5, 1.5, 2.5, 3.5, 4.5, 5.5, 6.5, 7.5, 8.5, 9.5}

	asg, err := AssignBins(coords, FixedWidth{Width: 5})
	require.NoError(t, err)

	require.Len(t, asg.Bins, 2)
	assert.Equal(t, BinKey{Kind: KeyBin, Index: 0}, asg.Bins[0].Key)
	assert.Equal(t, 2.5, asg.Bins[0].Coordinate)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, asg.Bins[0].Members)
	assert.Equal(t, BinKey{Kind: KeyBin, Index: 1}, asg.Bins[1].Key)
	assert.Equal(t, 7.5, asg.Bins[1].Coordinate)
	assert.Equal(t, []int{5, 6, 7, 8, 9}, asg.Bins[1].Members)

	assert.Equal(t, []float64{0, 5, 10, 15}, asg.Edges)
	require.Len(t, asg.Keys, len(coords))
	assert.Equal(t, 1, asg.Keys[9].Index)
}

func TestAssignBins_FixedWidthHalfOpen(t *testing.T) {
	tests := []struct {
		name  string
		coord float64
		index int
	}{
		{"lower edge belongs to bin", 5, 1},
		{"just below edge", 4.999999, 0},
		{"zero", 0, 0},
		{"negative", -0.1, -1},
		{"large", 1234.5, 246},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			asg, err := AssignBins([]float64{tt.coord}, FixedWidth{Width: 5})
			require.NoError(t, err)
			assert.Equal(t, tt.index, asg.Keys[0].Index)
			require.Len(t, asg.Bins, 1)
			assert.Equal(t, float64(tt.index)*5+2.5, asg.Bins[0].Coordinate)
		})
	}
}

func TestAssignBins_FixedWidthCoverage(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 13))

	for trial := 0; trial < 50; trial++ {
		n := 1 + rng.IntN(200)
		width := 0.5 + rng.Float64()*100
		coords := make([]float64, n)
		maxCoord := 0.0
		for i := range coords {
			coords[i] = rng.Float64() * 30000
			maxCoord = max(maxCoord, coords[i])
		}

		asg, err := AssignBins(coords, FixedWidth{Width: width})
		require.NoError(t, err)

		// Every coordinate lands in exactly one bin, inside its interval.
		seen := make([]int, n)
		for _, b := range asg.Bins {
			for _, i := range b.Members {
				seen[i]++
				lo := float64(b.Key.Index) * width
				assert.GreaterOrEqual(t, coords[i], lo-1e-9)
				assert.Less(t, coords[i], lo+width+1e-9)
			}
		}
		for i, c := range seen {
			assert.Equal(t, 1, c, "coordinate %d assigned %d times", i, c)
		}

		// Edges are contiguous from zero and reach past the top bin.
		require.NotEmpty(t, asg.Edges)
		assert.Equal(t, 0.0, asg.Edges[0])
		for i := 1; i < len(asg.Edges); i++ {
			assert.InDelta(t, width, asg.Edges[i]-asg.Edges[i-1], 1e-9)
		}
		top := math.Floor(maxCoord / width)
		assert.GreaterOrEqual(t, asg.Edges[len(asg.Edges)-1], (top+2)*width-1e-9)
		assert.Greater(t, asg.Edges[len(asg.Edges)-1], maxCoord+width-1e-9)
	}
}

func TestAssignBins_FixedWidthDropsEmptyBins(t *testing.T) {
	asg, err := AssignBins([]float64{1, 2, 31}, FixedWidth{Width: 10})
	require.NoError(t, err)

	require.Len(t, asg.Bins, 2)
	assert.Equal(t, 0, asg.Bins[0].Key.Index)
	assert.Equal(t, 3, asg.Bins[1].Key.Index)
	assert.Len(t, asg.Edges, 6) // 0..50
}

func TestAssignBins_MandatoryLevels(t *testing.T) {
	t.Run("nearest level", func(t *testing.T) {
		asg, err := AssignBins([]float64{650}, MandatoryLevels{Levels: []float64{1000, 500, 100}})
		require.NoError(t, err)
		assert.Equal(t, BinKey{Kind: KeyLevel, Level: 500}, asg.Keys[0])
		assert.Nil(t, asg.Edges)
	})

	t.Run("tie goes to smaller level", func(t *testing.T) {
		asg, err := AssignBins([]float64{150}, MandatoryLevels{Levels: []float64{200, 100}})
		require.NoError(t, err)
		assert.Equal(t, 100.0, asg.Keys[0].Level)
	})

	t.Run("representative is mean of members", func(t *testing.T) {
		asg, err := AssignBins([]float64{640, 660, 990, 1012}, MandatoryLevels{Levels: StandardPressureLevels})
		require.NoError(t, err)

		require.Len(t, asg.Bins, 2)
		assert.Equal(t, 700.0, asg.Bins[0].Key.Level)
		assert.InDelta(t, 650.0, asg.Bins[0].Coordinate, 1e-12)
		assert.Equal(t, []int{0, 1}, asg.Bins[0].Members)
		assert.Equal(t, 1000.0, asg.Bins[1].Key.Level)
		assert.InDelta(t, 1001.0, asg.Bins[1].Coordinate, 1e-12)
	})

	t.Run("duplicate levels collapse", func(t *testing.T) {
		asg, err := AssignBins([]float64{480, 510}, MandatoryLevels{Levels: []float64{500, 500, 1000}})
		require.NoError(t, err)
		require.Len(t, asg.Bins, 1)
		assert.Equal(t, []int{0, 1}, asg.Bins[0].Members)
	})

	t.Run("outside range snaps to extreme level", func(t *testing.T) {
		asg, err := AssignBins([]float64{3, 1080}, MandatoryLevels{Levels: StandardPressureLevels})
		require.NoError(t, err)
		assert.Equal(t, 10.0, asg.Keys[0].Level)
		assert.Equal(t, 1000.0, asg.Keys[1].Level)
	})
}

func TestAssignBins_Errors(t *testing.T) {
	tests := []struct {
		name   string
		coords []float64
		policy BinPolicy
		want   error
	}{
		{"zero width", []float64{1}, FixedWidth{Width: 0}, ErrInvalidConfiguration},
		{"negative width", []float64{1}, FixedWidth{Width: -5}, ErrInvalidConfiguration},
		{"NaN width", []float64{1}, FixedWidth{Width: math.NaN()}, ErrInvalidConfiguration},
		{"width too small for range", []float64{0, 1e9}, FixedWidth{Width: 1e-3}, ErrInvalidConfiguration},
		{"coordinate beyond int range", []float64{0, 1e300}, FixedWidth{Width: 1}, ErrInvalidConfiguration},
		{"lone coordinate beyond int range", []float64{1e19}, FixedWidth{Width: 1}, ErrInvalidConfiguration},
		{"negative coordinate beyond int range", []float64{-1e300, 5}, FixedWidth{Width: 1}, ErrInvalidConfiguration},
		{"tiny width", []float64{5000}, FixedWidth{Width: 1e-16}, ErrInvalidConfiguration},
		{"no levels", []float64{1}, MandatoryLevels{}, ErrInvalidConfiguration},
		{"NaN level", []float64{1}, MandatoryLevels{Levels: []float64{math.NaN()}}, ErrInvalidConfiguration},
		{"nil policy", []float64{1}, nil, ErrInvalidConfiguration},
		{"empty input", nil, FixedWidth{Width: 5}, ErrEmptyInput},
		{"NaN coordinate", []float64{1, math.NaN()}, FixedWidth{Width: 5}, ErrInvalidCoordinate},
		{"infinite coordinate", []float64{math.Inf(1)}, MandatoryLevels{Levels: []float64{1}}, ErrInvalidCoordinate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := AssignBins(tt.coords, tt.policy)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestFixedWidth_IndexLimits(t *testing.T) {
	f := FixedWidth{Width: 1}

	k, err := f.Index(maxFixedWidthBins - 1)
	require.NoError(t, err)
	assert.Equal(t, maxFixedWidthBins-1, k)

	k, err = f.Index(-maxFixedWidthBins + 1.5)
	require.NoError(t, err)
	assert.Equal(t, -maxFixedWidthBins+1, k)

	_, err = f.Index(maxFixedWidthBins)
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
}

func TestBinPolicy_Size(t *testing.T) {
	assert.Equal(t, "100", FixedWidth{Width: 100}.Size())
	assert.Equal(t, "2.5", FixedWidth{Width: 2.5}.Size())
	assert.Equal(t, "1000, 500, 100", MandatoryLevels{Levels: []float64{1000, 500, 100}}.Size())
	assert.Equal(t, KeyBin, FixedWidth{}.Kind())
	assert.Equal(t, KeyLevel, MandatoryLevels{}.Kind())
}
