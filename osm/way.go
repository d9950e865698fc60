package osm

import (
	"log"

	"github.com/mveyrat/trailcover/geom"

	"github.com/paulmach/orb"
)

// Way is one trail as retrieved from the map source, before splitting:
// parallel node-id and coordinate arrays plus the optional name tag. The
// node-id array is what junction detection runs on.
type Way struct {
	ID       int64
	Name     string
	NodeIDs  []int64
	Geometry orb.LineString
}

// Segment is a stretch of trail between two junctions, or between a way
// endpoint and the nearest junction. Segments carry no id of their own; they
// are addressed by position in the slice returned by Split.
type Segment struct {
	Geometry orb.LineString
}

// Length returns the segment's arc length in meters
func (s *Segment) Length() float64 {
	return geom.Length(s.Geometry)
}

// DistanceTo returns the minimum distance in meters from p to the segment
// geometry, or -1 for an empty segment
func (s *Segment) DistanceTo(p orb.Point) float64 {
	if len(s.Geometry) == 0 {
		return -1
	}
	minDist := -1.0
	for i := 0; i+1 < len(s.Geometry); i++ {
		d := geom.PointToSegmentDistance(p, s.Geometry[i], s.Geometry[i+1])
		if minDist < 0 || d < minDist {
			minDist = d
		}
	}
	return minDist
}

// BuildIndex builds a spatial index over the segment list, keyed by slice
// position, for nearest-segment lookups
func BuildIndex(segments []Segment) *geom.SegmentIndex {
	ix := geom.NewSegmentIndex()
	for i := range segments {
		if len(segments[i].Geometry) == 0 {
			continue
		}
		ix.Insert(i, segments[i].Geometry.Bound())
	}
	log.Printf("Built segment index with %d entries", ix.Size())
	return ix
}
