package geom

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/tidwall/rtree"
)

// SegmentIndex wraps tidwall/rtree for spatial indexing of trail segments.
// Entries are identified by their position in the flat segment list, which is
// how every other consumer addresses segments too.
type SegmentIndex struct {
	tree *rtree.RTreeG[int]
}

// NewSegmentIndex creates an empty SegmentIndex
func NewSegmentIndex() *SegmentIndex {
	return &SegmentIndex{
		tree: &rtree.RTreeG[int]{},
	}
}

// Insert adds a segment with the given bounding box
func (ix *SegmentIndex) Insert(idx int, bound orb.Bound) {
	ix.tree.Insert(
		[2]float64{bound.Min.Lon(), bound.Min.Lat()},
		[2]float64{bound.Max.Lon(), bound.Max.Lat()},
		idx,
	)
}

// Search returns the indices of all segments whose bounding boxes intersect
// with the query bbox
func (ix *SegmentIndex) Search(bound orb.Bound) []int {
	result := make([]int, 0)
	ix.tree.Search(
		[2]float64{bound.Min.Lon(), bound.Min.Lat()},
		[2]float64{bound.Max.Lon(), bound.Max.Lat()},
		func(min, max [2]float64, idx int) bool {
			result = append(result, idx)
			return true // continue searching
		},
	)
	return result
}

// SearchNearPoint returns the indices of all segments whose bounding boxes
// come within a distance (in meters) of a point
func (ix *SegmentIndex) SearchNearPoint(p orb.Point, distanceMeters float64) []int {
	// Convert distance to approximate degrees
	// Adjust for latitude
	latRad := p.Lat() * math.Pi / 180.0
	metersPerDegreeLon := EarthRadiusMeters * math.Pi / 180.0 * math.Cos(latRad)
	metersPerDegreeLat := EarthRadiusMeters * math.Pi / 180.0

	deltaLon := distanceMeters / metersPerDegreeLon
	deltaLat := distanceMeters / metersPerDegreeLat

	return ix.Search(orb.Bound{
		Min: orb.Point{p.Lon() - deltaLon, p.Lat() - deltaLat},
		Max: orb.Point{p.Lon() + deltaLon, p.Lat() + deltaLat},
	})
}

// Size returns the number of indexed segments
func (ix *SegmentIndex) Size() int {
	return ix.tree.Len()
}
