package geom

import (
	"math"

	"github.com/paulmach/orb"
)

// EarthRadiusMeters is the spherical earth radius shared by every distance
// computation in this module. The areas we cover are a few kilometers wide,
// so no ellipsoidal correction is applied.
const EarthRadiusMeters = 6371000.0

// Distance calculates the great-circle distance between two points in meters
// using the Haversine formula
func Distance(a, b orb.Point) float64 {
	dLat := toRad(b.Lat() - a.Lat())
	dLon := toRad(b.Lon() - a.Lon())
	lat1Rad := toRad(a.Lat())
	lat2Rad := toRad(b.Lat())

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusMeters * c
}

// Length returns the arc length of a polyline in meters, the sum of the
// distances between consecutive points. Polylines with fewer than two points
// have length zero.
func Length(ls orb.LineString) float64 {
	total := 0.0
	for i := 0; i+1 < len(ls); i++ {
		total += Distance(ls[i], ls[i+1])
	}
	return total
}

// PointToSegmentDistance returns the shortest distance in meters from point p
// to the line segment ab
// Uses equirectangular projection (accurate for short distances)
func PointToSegmentDistance(p, a, b orb.Point) float64 {
	// Equirectangular projection locally around point a
	cosLat := math.Cos(toRad(a.Lat()))
	ax := toRad(a.Lon()) * cosLat * EarthRadiusMeters
	ay := toRad(a.Lat()) * EarthRadiusMeters
	bx := toRad(b.Lon()) * cosLat * EarthRadiusMeters
	by := toRad(b.Lat()) * EarthRadiusMeters
	px := toRad(p.Lon()) * cosLat * EarthRadiusMeters
	py := toRad(p.Lat()) * EarthRadiusMeters

	// Project point p onto segment ab
	dx := bx - ax
	dy := by - ay
	if dx == 0 && dy == 0 {
		// a and b are the same point
		return math.Hypot(px-ax, py-ay)
	}
	t := ((px-ax)*dx + (py-ay)*dy) / (dx*dx + dy*dy)
	if t < 0 {
		return math.Hypot(px-ax, py-ay)
	} else if t > 1 {
		return math.Hypot(px-bx, py-by)
	}
	projx := ax + t*dx
	projy := ay + t*dy
	return math.Hypot(px-projx, py-projy)
}

func toRad(deg float64) float64 { return deg * math.Pi / 180.0 }
