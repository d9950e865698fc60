// Package export assembles the web payload: segments and grid cells as
// GeoJSON feature collections plus grid metadata.
package export

import (
	"encoding/json"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/mveyrat/trailcover/grid"
	"github.com/mveyrat/trailcover/matching"
	"github.com/mveyrat/trailcover/osm"
)

// Data is the payload consumed by the web viewer and the API.
type Data struct {
	// BBox is west, south, east, north in degrees.
	BBox     [4]float64                 `json:"bbox"`
	Grid     GridMeta                   `json:"grid"`
	Segments *geojson.FeatureCollection `json:"segments"`
	Cells    *geojson.FeatureCollection `json:"cells"`
}

// GridMeta mirrors the grid geometry so the viewer can draw cell outlines
// without recomputing them.
type GridMeta struct {
	CellSizeM float64    `json:"cell_size_m"`
	Origin    [2]float64 `json:"origin"` // lon, lat
	DLat      float64    `json:"dlat"`
	DLon      float64    `json:"dlon"`
}

// Build assembles the export payload from the three core outputs. Segments
// become LineString features carrying their coverage; only cells with trails
// become Polygon features.
func Build(bound orb.Bound, segments []osm.Segment, coverage []matching.SegmentCoverage, g grid.Result) Data {
	segs := geojson.NewFeatureCollection()
	for i := range segments {
		f := geojson.NewFeature(segments[i].Geometry)
		f.Properties = geojson.Properties{
			"id":           i,
			"length_m":     round(coverage[i].LengthM, 0.1),
			"coverage_pct": round(coverage[i].CoveragePct, 0.01),
			"covered":      coverage[i].Covered(),
			"cells":        g.SegmentCells[i],
		}
		segs.Append(f)
	}

	cells := geojson.NewFeatureCollection()
	for _, cell := range g.Cells {
		if !cell.HasTrail {
			continue
		}
		b := g.Config.CellBound(cell)
		ring := orb.Ring{
			b.Min,
			{b.Max.Lon(), b.Min.Lat()},
			b.Max,
			{b.Min.Lon(), b.Max.Lat()},
			b.Min,
		}
		f := geojson.NewFeature(orb.Polygon{ring})
		f.Properties = geojson.Properties{
			"id":          cell.ID,
			"has_trail":   true,
			"visited":     cell.Visited,
			"active":      true,
			"trail_km":    round(cell.TrailKm, 0.001),
			"covered_km":  round(cell.CoveredKm, 0.001),
			"segment_ids": cell.SegmentIDs,
		}
		cells.Append(f)
	}

	return Data{
		BBox: [4]float64{bound.Min.Lon(), bound.Min.Lat(), bound.Max.Lon(), bound.Max.Lat()},
		Grid: GridMeta{
			CellSizeM: g.Config.CellSizeM,
			Origin:    [2]float64{g.Config.OriginLon, g.Config.OriginLat},
			DLat:      g.Config.DLat,
			DLon:      g.Config.DLon,
		},
		Segments: segs,
		Cells:    cells,
	}
}

// WriteJSON writes the payload to path, creating parent directories.
func WriteJSON(path string, data Data) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("serialize export data: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create export dir: %w", err)
		}
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	log.Printf("Exported %d segments and %d cells to %s",
		len(data.Segments.Features), len(data.Cells.Features), path)
	return nil
}

// round snaps v to the nearest multiple of unit; exports do not need more
// precision than that and the payload shrinks noticeably.
func round(v, unit float64) float64 {
	return math.Round(v/unit) * unit
}
