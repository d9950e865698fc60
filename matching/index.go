// Package matching decides which trail segments have been traversed by
// comparing them against recorded GPS traces.
package matching

import (
	"log"
	"math"

	"github.com/paulmach/orb"

	"github.com/mveyrat/trailcover/geom"
	"github.com/mveyrat/trailcover/gpx"
)

// TraceIndex buckets discretized GPS trace points into a uniform metric grid
// so proximity queries only look at a 3x3 block of cells instead of every
// point ever recorded.
type TraceIndex struct {
	cells     map[cellKey][]orb.Point
	cellSizeM float64
	points    int
}

type cellKey struct {
	x, y int64
}

// NewTraceIndex discretizes every track of every activity at stepM and
// buckets the resulting points into cells of cellSizeM.
func NewTraceIndex(activities []gpx.Activity, stepM, cellSizeM float64) *TraceIndex {
	ix := &TraceIndex{
		cells:     make(map[cellKey][]orb.Point),
		cellSizeM: cellSizeM,
	}
	for _, activity := range activities {
		for _, track := range activity.Tracks {
			for _, p := range geom.Discretize(track, stepM) {
				key := ix.cell(p)
				ix.cells[key] = append(ix.cells[key], p)
				ix.points++
			}
		}
	}
	log.Printf("Built GPS index: %d cells, %d points", len(ix.cells), ix.points)
	return ix
}

// cell projects p to local meters with an equirectangular approximation at
// the point's own latitude and floors into the cell grid.
func (ix *TraceIndex) cell(p orb.Point) cellKey {
	const radPerDeg = math.Pi / 180.0
	latM := p.Lat() * radPerDeg * geom.EarthRadiusMeters
	lonM := p.Lon() * radPerDeg * geom.EarthRadiusMeters * math.Cos(p.Lat()*radPerDeg)
	return cellKey{
		x: int64(math.Floor(latM / ix.cellSizeM)),
		y: int64(math.Floor(lonM / ix.cellSizeM)),
	}
}

// HasPointWithin reports whether any indexed trace point lies within radiusM
// meters of p, inclusive. Only the 3x3 cell block around p is scanned, so the
// radius must stay below the cell size or near-boundary matches could be
// missed; Compute enforces that constraint up front.
func (ix *TraceIndex) HasPointWithin(p orb.Point, radiusM float64) bool {
	c := ix.cell(p)
	for dx := int64(-1); dx <= 1; dx++ {
		for dy := int64(-1); dy <= 1; dy++ {
			for _, q := range ix.cells[cellKey{c.x + dx, c.y + dy}] {
				if geom.Distance(p, q) <= radiusM {
					return true
				}
			}
		}
	}
	return false
}

// Points returns the number of indexed trace points.
func (ix *TraceIndex) Points() int { return ix.points }

// Cells returns the number of non-empty index cells.
func (ix *TraceIndex) Cells() int { return len(ix.cells) }
