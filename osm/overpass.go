package osm

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/paulmach/orb"
)

// overpassURL is a var so tests can point it at a local server.
var overpassURL = "https://overpass-api.de/api/interpreter"

// trailHighways are the highway tag values treated as trails. Roads are
// deliberately excluded; walking them tells us nothing about trail coverage.
var trailHighways = []string{"path", "track", "footway"}

type overpassResponse struct {
	Elements []overpassElement `json:"elements"`
}

type overpassElement struct {
	Type     string            `json:"type"`
	ID       int64             `json:"id"`
	Tags     map[string]string `json:"tags"`
	Nodes    []int64           `json:"nodes"`
	Geometry []overpassLatLon  `json:"geometry"`
}

type overpassLatLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// FetchTrails returns every trail way inside bound. The raw Overpass response
// is kept in a single-slot cache at cachePath: when the file exists it is used
// as-is, otherwise the API is queried and the body written there before
// parsing. Delete the file (or call ClearCache) to force a refetch.
func FetchTrails(client *http.Client, bound orb.Bound, cachePath string) ([]Way, error) {
	if raw, err := os.ReadFile(cachePath); err == nil {
		log.Printf("Loading cached OSM data from %s", cachePath)
		return parseTrails(raw)
	}

	log.Printf("Fetching trails from Overpass API...")
	resp, err := client.PostForm(overpassURL, url.Values{"data": {overpassQuery(bound)}})
	if err != nil {
		return nil, fmt.Errorf("overpass request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("overpass request: unexpected status %s", resp.Status)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("overpass response: %w", err)
	}

	if dir := filepath.Dir(cachePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
	}
	if err := os.WriteFile(cachePath, raw, 0o644); err != nil {
		return nil, fmt.Errorf("write osm cache: %w", err)
	}
	log.Printf("Cached OSM response to %s", cachePath)

	return parseTrails(raw)
}

// ClearCache removes the cached Overpass response if present.
func ClearCache(cachePath string) {
	err := os.Remove(cachePath)
	switch {
	case err == nil:
		log.Printf("Cleared OSM cache %s", cachePath)
	case !os.IsNotExist(err):
		log.Printf("Warning: could not clear OSM cache: %v", err)
	}
}

func overpassQuery(bound orb.Bound) string {
	bbox := fmt.Sprintf("%.6f,%.6f,%.6f,%.6f",
		bound.Min.Lat(), bound.Min.Lon(), bound.Max.Lat(), bound.Max.Lon())
	q := "[out:json][timeout:60];\n(\n"
	for _, hw := range trailHighways {
		q += fmt.Sprintf("  way[\"highway\"=%q](%s);\n", hw, bbox)
	}
	return q + ");\nout geom;\n"
}

func parseTrails(raw []byte) ([]Way, error) {
	var resp overpassResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("parse overpass response: %w", err)
	}

	ways := make([]Way, 0, len(resp.Elements))
	for _, el := range resp.Elements {
		// Anything that is not a way with a usable polyline is skipped.
		if el.Type != "way" || len(el.Geometry) < 2 {
			continue
		}
		ls := make(orb.LineString, len(el.Geometry))
		for i, g := range el.Geometry {
			ls[i] = orb.Point{g.Lon, g.Lat}
		}
		ways = append(ways, Way{
			ID:       el.ID,
			Name:     el.Tags["name"],
			NodeIDs:  el.Nodes,
			Geometry: ls,
		})
	}
	log.Printf("Parsed %d trail ways", len(ways))
	return ways, nil
}
