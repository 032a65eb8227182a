package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/profile-gridding-service/internal/domain"
)

const rawFixture = "../../data/mock/soundings_lin_202403.json"

func griddedFixture(t *testing.T, width float64) []domain.GriddedProfile {
	t.Helper()
	raws, err := loadJSON[domain.Profile](rawFixture)
	require.NoError(t, err)

	out := make([]domain.GriddedProfile, len(raws))
	for i, p := range raws {
		out[i], err = domain.BuildSpatialGrid(p, "alt", []string{"temp", "rh"}, domain.FixedWidth{Width: width})
		require.NoError(t, err)
	}
	return out
}

func writeFixture(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "gridded.json")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestRun_ConsistentFixtures(t *testing.T) {
	path := writeFixture(t, griddedFixture(t, 100))
	assert.Equal(t, 0, run(rawFixture, path, "alt", 100))
}

func TestRun_WrongBinWidth(t *testing.T) {
	path := writeFixture(t, griddedFixture(t, 50))
	assert.Equal(t, 1, run(rawFixture, path, "alt", 100))
}

func TestValidateIdentities_DetectsTampering(t *testing.T) {
	gridded := griddedFixture(t, 100)
	est := gridded[0].Rows[0].Vars["temp"]
	est.U *= 2
	gridded[0].Rows[0].Vars["temp"] = est

	p := validateIdentities(gridded)
	require.False(t, p.passed())
	assert.Len(t, p.errors, 1)
}

func TestValidateRaw_DuplicateAndBadTime(t *testing.T) {
	raws, err := loadJSON[domain.Profile](rawFixture)
	require.NoError(t, err)

	raws = append(raws, raws[0])
	raws[1].Metadata = map[string]string{domain.StartTimeAttr: "yesterday"}

	p := validateRaw(raws)
	assert.Len(t, p.errors, 2)
}

func TestValidateTemporalIdempotence(t *testing.T) {
	p := validateTemporalIdempotence(griddedFixture(t, 100))
	assert.True(t, p.passed(), p.errors)
}
