package osm

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const overpassFixture = `{
  "elements": [
    {
      "type": "way",
      "id": 100,
      "tags": {"highway": "path", "name": "Sentier des Trois Becs"},
      "nodes": [1, 2, 3],
      "geometry": [
        {"lat": 44.65, "lon": 5.10},
        {"lat": 44.651, "lon": 5.11},
        {"lat": 44.652, "lon": 5.12}
      ]
    },
    {
      "type": "way",
      "id": 101,
      "nodes": [4],
      "geometry": [{"lat": 44.66, "lon": 5.10}]
    },
    {
      "type": "node",
      "id": 1
    }
  ]
}`

func TestParseTrails(t *testing.T) {
	t.Parallel()

	ways, err := parseTrails([]byte(overpassFixture))
	require.NoError(t, err)

	// The single-point way and the bare node element are skipped.
	require.Len(t, ways, 1)
	assert.Equal(t, int64(100), ways[0].ID)
	assert.Equal(t, "Sentier des Trois Becs", ways[0].Name)
	assert.Equal(t, []int64{1, 2, 3}, ways[0].NodeIDs)
	require.Len(t, ways[0].Geometry, 3)
	assert.Equal(t, orb.Point{5.10, 44.65}, ways[0].Geometry[0])
}

func TestParseTrailsInvalidJSON(t *testing.T) {
	t.Parallel()

	_, err := parseTrails([]byte("not json"))
	assert.Error(t, err)
}

func TestFetchTrailsCachesResponse(t *testing.T) {
	// Not parallel: swaps the Overpass endpoint.
	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, r.ParseForm())
		assert.Contains(t, r.PostForm.Get("data"), "highway")
		w.Write([]byte(overpassFixture))
	}))
	defer srv.Close()

	restore := overpassURL
	overpassURL = srv.URL
	defer func() { overpassURL = restore }()

	bound := orb.Bound{Min: orb.Point{5.0, 44.6}, Max: orb.Point{5.2, 44.7}}
	cachePath := filepath.Join(t.TempDir(), "data", "osm_trails.json")

	ways, err := FetchTrails(srv.Client(), bound, cachePath)
	require.NoError(t, err)
	assert.Len(t, ways, 1)
	assert.Equal(t, 1, requests)

	// The raw response is on disk and the second call never hits the API.
	_, err = os.Stat(cachePath)
	require.NoError(t, err)
	ways, err = FetchTrails(srv.Client(), bound, cachePath)
	require.NoError(t, err)
	assert.Len(t, ways, 1)
	assert.Equal(t, 1, requests)

	// Clearing the cache forces a refetch.
	ClearCache(cachePath)
	_, err = FetchTrails(srv.Client(), bound, cachePath)
	require.NoError(t, err)
	assert.Equal(t, 2, requests)
}

func TestFetchTrailsServerError(t *testing.T) {
	// Not parallel: swaps the Overpass endpoint.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "too many requests", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	restore := overpassURL
	overpassURL = srv.URL
	defer func() { overpassURL = restore }()

	bound := orb.Bound{Min: orb.Point{5.0, 44.6}, Max: orb.Point{5.2, 44.7}}
	_, err := FetchTrails(srv.Client(), bound, filepath.Join(t.TempDir(), "cache.json"))
	assert.Error(t, err)
}
