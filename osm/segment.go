package osm

import "github.com/paulmach/orb"

// Split cuts raw ways into segments at junction nodes. A junction is any node
// id that occurs at least twice across all node arrays, whether shared by two
// ways or revisited by a single looping way. Ways whose node and coordinate
// arrays disagree in length are dropped, as are degenerate pieces of fewer
// than two points. Output order follows input order, so identical input gives
// identical output.
func Split(ways []Way) []Segment {
	valid := make([]Way, 0, len(ways))
	for _, w := range ways {
		if len(w.NodeIDs) != len(w.Geometry) {
			continue
		}
		valid = append(valid, w)
	}

	counts := make(map[int64]int)
	for _, w := range valid {
		for _, id := range w.NodeIDs {
			counts[id]++
		}
	}
	junctions := make(map[int64]bool, len(counts))
	for id, n := range counts {
		if n >= 2 {
			junctions[id] = true
		}
	}

	var segments []Segment
	emit := func(part orb.LineString) {
		if len(part) < 2 {
			return
		}
		seg := make(orb.LineString, len(part))
		copy(seg, part)
		segments = append(segments, Segment{Geometry: seg})
	}

	for _, w := range valid {
		start := 0
		// Interior nodes only: the first and last node end their way
		// regardless of junction status.
		for i := 1; i+1 < len(w.NodeIDs); i++ {
			if junctions[w.NodeIDs[i]] {
				emit(w.Geometry[start : i+1])
				start = i
			}
		}
		emit(w.Geometry[start:])
	}
	return segments
}
