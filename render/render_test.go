package render

import (
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mveyrat/trailcover/matching"
	"github.com/mveyrat/trailcover/osm"
	"github.com/mveyrat/trailcover/tiles"
)

func testMap() *tiles.Map {
	bound := orb.Bound{Min: orb.Point{5.0, 44.6}, Max: orb.Point{5.2, 44.7}}
	return tiles.NewMap(image.NewRGBA(image.Rect(0, 0, 640, 480)), bound)
}

func testSegments() ([]osm.Segment, []matching.SegmentCoverage) {
	segments := []osm.Segment{
		{Geometry: orb.LineString{{5.05, 44.62}, {5.10, 44.65}, {5.12, 44.66}}},
		{Geometry: orb.LineString{{5.12, 44.66}, {5.18, 44.68}}},
	}
	coverage := []matching.SegmentCoverage{
		{LengthM: 5200, CoveragePct: 0.9},
		{LengthM: 4100, CoveragePct: 0.1},
	}
	return segments, coverage
}

func TestWritePNG(t *testing.T) {
	t.Parallel()

	segments, coverage := testSegments()
	path := filepath.Join(t.TempDir(), "out", "map.png")

	err := WritePNG(testMap(), segments, coverage, "Test Area", path)
	require.NoError(t, err)

	// The file exists and decodes back to the map's dimensions.
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 640, cfg.Width)
	assert.Equal(t, 480, cfg.Height)
}

func TestWriteDebugPNG(t *testing.T) {
	t.Parallel()

	segments, _ := testSegments()
	path := filepath.Join(t.TempDir(), "debug.png")

	require.NoError(t, WriteDebugPNG(testMap(), segments, path))
	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestStrokeLeavesPixels(t *testing.T) {
	t.Parallel()

	m := testMap()
	img := cloneBase(m)
	before := countNonZero(img)

	segments, coverage := testSegments()
	strokeSegments(img, m, segments, func(i int) bool { return coverage[i].Covered() },
		coveredWidth, coveredColor)

	assert.Greater(t, countNonZero(img), before)
}

func countNonZero(img *image.RGBA) int {
	n := 0
	for _, v := range img.Pix {
		if v != 0 {
			n++
		}
	}
	return n
}
