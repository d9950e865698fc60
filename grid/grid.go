// Package grid aggregates per-segment coverage onto a uniform geographic
// grid for visualization.
package grid

import (
	"log"
	"math"
	"sort"

	"github.com/paulmach/orb"

	"github.com/mveyrat/trailcover/geom"
	"github.com/mveyrat/trailcover/matching"
	"github.com/mveyrat/trailcover/osm"
)

// sampleStepM is the discretization step used to find the cells a segment
// passes through. Coarse on purpose: cells are tens to hundreds of meters
// wide, so a finer step only burns cycles.
const sampleStepM = 20.0

// Config describes the grid geometry: origin at the bounding box's southwest
// corner, per-cell angular deltas derived from the metric cell size at the
// box's center latitude, and the column/row counts covering the box.
type Config struct {
	CellSizeM float64
	OriginLon float64
	OriginLat float64
	DLat      float64
	DLon      float64
	Cols      int
	Rows      int
}

// Cell is one grid tile with its accumulated trail totals. IDs are
// row*Cols+col, row 0 at the south edge.
type Cell struct {
	ID         int
	Row        int
	Col        int
	HasTrail   bool
	Visited    bool
	TrailKm    float64
	CoveredKm  float64
	SegmentIDs []int
}

// Result is the aggregation output: the full cell arena plus, for each
// segment index, the sorted cell ids it touches.
type Result struct {
	Config       Config
	Cells        []Cell
	SegmentCells [][]int
}

// Compute overlays a grid of cellSizeM-sized cells on bound and distributes
// each segment's length evenly across the distinct cells it passes through.
// Coverage must be index-aligned with segments. Samples falling outside the
// bounding box are dropped; a segment touching zero cells contributes
// nothing rather than dividing by zero.
func Compute(segments []osm.Segment, coverage []matching.SegmentCoverage, bound orb.Bound, cellSizeM float64) Result {
	centerLat := (bound.Min.Lat() + bound.Max.Lat()) / 2
	dlat := cellSizeM / geom.EarthRadiusMeters * (180 / math.Pi)
	dlon := cellSizeM / (geom.EarthRadiusMeters * math.Cos(centerLat*math.Pi/180)) * (180 / math.Pi)

	// Ceil so the grid may overhang the box on its north and east edges.
	cols := int(math.Ceil((bound.Max.Lon() - bound.Min.Lon()) / dlon))
	rows := int(math.Ceil((bound.Max.Lat() - bound.Min.Lat()) / dlat))

	cfg := Config{
		CellSizeM: cellSizeM,
		OriginLon: bound.Min.Lon(),
		OriginLat: bound.Min.Lat(),
		DLat:      dlat,
		DLon:      dlon,
		Cols:      cols,
		Rows:      rows,
	}

	cells := make([]Cell, cols*rows)
	for id := range cells {
		cells[id] = Cell{ID: id, Row: id / cols, Col: id % cols}
	}

	segmentCells := make([][]int, 0, len(segments))
	for i := range segments {
		seen := make(map[int]struct{})
		for _, p := range geom.Discretize(segments[i].Geometry, sampleStepM) {
			if id, ok := cfg.cellAt(p, bound); ok {
				seen[id] = struct{}{}
			}
		}
		ids := make([]int, 0, len(seen))
		for id := range seen {
			ids = append(ids, id)
		}
		// Map iteration order is random; sorting keeps runs reproducible.
		sort.Ints(ids)

		kmPerCell := 0.0
		if len(ids) > 0 {
			kmPerCell = coverage[i].LengthM / 1000 / float64(len(ids))
		}
		covered := coverage[i].Covered()

		for _, id := range ids {
			cell := &cells[id]
			cell.HasTrail = true
			cell.TrailKm += kmPerCell
			if covered {
				cell.CoveredKm += kmPerCell
				cell.Visited = true
			}
			if !containsInt(cell.SegmentIDs, i) {
				cell.SegmentIDs = append(cell.SegmentIDs, i)
			}
		}
		segmentCells = append(segmentCells, ids)
	}

	logGridStats(cfg, cells)
	return Result{Config: cfg, Cells: cells, SegmentCells: segmentCells}
}

// CellBound returns the geographic rectangle of cell.
func (c Config) CellBound(cell Cell) orb.Bound {
	west := c.OriginLon + float64(cell.Col)*c.DLon
	south := c.OriginLat + float64(cell.Row)*c.DLat
	return orb.Bound{
		Min: orb.Point{west, south},
		Max: orb.Point{west + c.DLon, south + c.DLat},
	}
}

func (c Config) cellAt(p orb.Point, bound orb.Bound) (int, bool) {
	if !bound.Contains(p) {
		return 0, false
	}
	col := int(math.Floor((p.Lon() - c.OriginLon) / c.DLon))
	row := int(math.Floor((p.Lat() - c.OriginLat) / c.DLat))
	if col < 0 || col >= c.Cols || row < 0 || row >= c.Rows {
		return 0, false
	}
	return row*c.Cols + col, true
}

func containsInt(s []int, v int) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

func logGridStats(cfg Config, cells []Cell) {
	trail, visited := 0, 0
	for _, c := range cells {
		if c.HasTrail {
			trail++
			if c.Visited {
				visited++
			}
		}
	}
	pct := 0.0
	if trail > 0 {
		pct = float64(visited) / float64(trail) * 100
	}
	log.Printf("Grid: %dx%d cells, %d with trails, %d visited (%.0f%%)",
		cfg.Cols, cfg.Rows, trail, visited, pct)
}
