package export

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mveyrat/trailcover/geom"
	"github.com/mveyrat/trailcover/grid"
	"github.com/mveyrat/trailcover/matching"
	"github.com/mveyrat/trailcover/osm"
)

var testBound = orb.Bound{
	Min: orb.Point{5.0, 44.6},
	Max: orb.Point{5.05, 44.64},
}

func buildFixture(t *testing.T) Data {
	t.Helper()

	latRad := 44.6 * math.Pi / 180.0
	dLat := 300.0 / geom.EarthRadiusMeters * 180.0 / math.Pi
	dLon := 300.0 / (geom.EarthRadiusMeters * math.Cos(latRad)) * 180.0 / math.Pi
	start := orb.Point{5.0 + dLon, 44.6 + dLat}
	end := orb.Point{start.Lon() + dLon, start.Lat()}

	segments := []osm.Segment{{Geometry: orb.LineString{start, end}}}
	coverage := []matching.SegmentCoverage{{LengthM: segments[0].Length(), CoveragePct: 0.876}}
	g := grid.Compute(segments, coverage, testBound, 200)
	return Build(testBound, segments, coverage, g)
}

func TestBuild(t *testing.T) {
	t.Parallel()

	data := buildFixture(t)

	assert.Equal(t, [4]float64{5.0, 44.6, 5.05, 44.64}, data.BBox)
	assert.Equal(t, 200.0, data.Grid.CellSizeM)
	assert.Equal(t, [2]float64{5.0, 44.6}, data.Grid.Origin)

	require.Len(t, data.Segments.Features, 1)
	props := data.Segments.Features[0].Properties
	assert.Equal(t, 0, props["id"])
	assert.InDelta(t, 0.88, props["coverage_pct"].(float64), 1e-9) // rounded to 0.01
	assert.Equal(t, true, props["covered"])

	// Only cells the segment touches are exported, and each carries its
	// share of the length.
	require.NotEmpty(t, data.Cells.Features)
	totalKm := 0.0
	for _, f := range data.Cells.Features {
		assert.Equal(t, true, f.Properties["has_trail"])
		assert.Equal(t, true, f.Properties["visited"])
		totalKm += f.Properties["trail_km"].(float64)
	}
	lengthM := props["length_m"].(float64)
	assert.InDelta(t, lengthM/1000, totalKm, 0.002)
}

func TestCellPolygonsAreClosedRings(t *testing.T) {
	t.Parallel()

	data := buildFixture(t)
	for _, f := range data.Cells.Features {
		poly, ok := f.Geometry.(orb.Polygon)
		require.True(t, ok)
		require.Len(t, poly, 1)
		require.Len(t, poly[0], 5)
		assert.Equal(t, poly[0][0], poly[0][4])
	}
}

func TestWriteJSON(t *testing.T) {
	t.Parallel()

	data := buildFixture(t)
	path := filepath.Join(t.TempDir(), "web", "data.json")
	require.NoError(t, WriteJSON(path, data))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &decoded))
	for _, key := range []string{"bbox", "grid", "segments", "cells"} {
		assert.Contains(t, decoded, key)
	}
}

func TestRound(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 123.5, round(123.456, 0.1), 1e-9)
	assert.InDelta(t, 0.88, round(0.876, 0.01), 1e-9)
	assert.InDelta(t, 1.235, round(1.23456, 0.001), 1e-9)
}
