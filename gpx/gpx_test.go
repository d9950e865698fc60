package gpx

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testBound = orb.Bound{
	Min: orb.Point{5.0, 44.6},
	Max: orb.Point{5.3, 44.7},
}

const sampleGPX = `<?xml version="1.0" encoding="UTF-8"?>
<gpx xmlns="http://www.topografix.com/GPX/1/1" version="1.1">
  <metadata><name>Morning Trail Run</name></metadata>
  <trk>
    <name>Track 1</name>
    <trkseg>
      <trkpt lat="44.65" lon="5.10"/>
      <trkpt lat="44.651" lon="5.101"/>
      <trkpt lat="44.652" lon="5.102"/>
    </trkseg>
    <trkseg>
      <trkpt lat="10.0" lon="10.0"/>
      <trkpt lat="10.1" lon="10.1"/>
    </trkseg>
  </trk>
</gpx>`

func TestParse(t *testing.T) {
	t.Parallel()

	activity, err := Parse([]byte(sampleGPX), testBound)
	require.NoError(t, err)
	require.NotNil(t, activity)

	assert.Equal(t, "Morning Trail Run", activity.Name)
	// The second track segment lies far outside the bound and is dropped.
	require.Len(t, activity.Tracks, 1)
	require.Len(t, activity.Tracks[0], 3)
	assert.Equal(t, orb.Point{5.10, 44.65}, activity.Tracks[0][0])
}

func TestParseNothingInBound(t *testing.T) {
	t.Parallel()

	farAway := orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{1, 1}}
	activity, err := Parse([]byte(sampleGPX), farAway)
	require.NoError(t, err)
	assert.Nil(t, activity)
}

func TestParseSinglePointTrackDropped(t *testing.T) {
	t.Parallel()

	const gpx = `<gpx><trk><trkseg><trkpt lat="44.65" lon="5.10"/></trkseg></trk></gpx>`
	activity, err := Parse([]byte(gpx), testBound)
	require.NoError(t, err)
	assert.Nil(t, activity)
}

func TestParseInvalidXML(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte("not gpx at all <<<"), testBound)
	assert.Error(t, err)
}

func TestLoadActivities(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.gpx"), []byte(sampleGPX), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.gpx"), []byte("<<<"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignore me"), 0o644))

	// No metadata name, so the file stem is used.
	const unnamed = `<gpx><trk><trkseg>
	  <trkpt lat="44.66" lon="5.12"/>
	  <trkpt lat="44.661" lon="5.121"/>
	</trkseg></trk></gpx>`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.gpx"), []byte(unnamed), 0o644))

	activities, err := LoadActivities(dir, testBound)
	require.NoError(t, err)

	// Sorted filename order: a.gpx first, broken.gpx skipped with a warning.
	require.Len(t, activities, 2)
	assert.Equal(t, "a", activities[0].Name)
	assert.Equal(t, "Morning Trail Run", activities[1].Name)
}

func TestLoadActivitiesMissingDir(t *testing.T) {
	t.Parallel()

	_, err := LoadActivities(filepath.Join(t.TempDir(), "nope"), testBound)
	assert.Error(t, err)
}
