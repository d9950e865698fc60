package geom

import "github.com/paulmach/orb"

// epsilonMeters is the hop length below which consecutive vertices are
// treated as duplicates and skipped, keeping the interpolation fraction
// numerically stable.
const epsilonMeters = 1e-6

// Discretize resamples a polyline at a fixed arc-length step in meters. The
// result starts with the first vertex, contains one interpolated point every
// step meters of cumulative distance along the line, and always ends with the
// final vertex even when the last stretch is shorter than step. The leftover
// distance of each hop carries into the next, so spacing stays uniform across
// vertices. Polylines with fewer than two points yield nil.
func Discretize(ls orb.LineString, step float64) []orb.Point {
	if len(ls) < 2 {
		return nil
	}

	points := []orb.Point{ls[0]}
	remaining := 0.0

	for i := 0; i+1 < len(ls); i++ {
		a, b := ls[i], ls[i+1]
		hop := Distance(a, b)
		if hop < epsilonMeters {
			continue
		}

		d := step - remaining
		for d <= hop {
			frac := d / hop
			points = append(points, orb.Point{
				a.Lon() + (b.Lon()-a.Lon())*frac,
				a.Lat() + (b.Lat()-a.Lat())*frac,
			})
			d += step
		}
		remaining = hop - (d - step)
	}

	return append(points, ls[len(ls)-1])
}
