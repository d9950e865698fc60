package osm

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func line(pts ...orb.Point) orb.LineString { return orb.LineString(pts) }

func TestSplitNoJunctions(t *testing.T) {
	t.Parallel()

	way := Way{
		ID:       1,
		NodeIDs:  []int64{10, 11, 12},
		Geometry: line(orb.Point{5.10, 44.65}, orb.Point{5.11, 44.65}, orb.Point{5.12, 44.66}),
	}

	segments := Split([]Way{way})

	// A way sharing no nodes stays whole.
	require.Len(t, segments, 1)
	assert.Equal(t, way.Geometry, segments[0].Geometry)
}

func TestSplitAtSharedNode(t *testing.T) {
	t.Parallel()

	// Node 12 is shared between the two ways, so the first way is cut there.
	a := Way{
		ID:      1,
		NodeIDs: []int64{10, 11, 12, 13, 14},
		Geometry: line(
			orb.Point{5.10, 44.65}, orb.Point{5.11, 44.65}, orb.Point{5.12, 44.65},
			orb.Point{5.13, 44.65}, orb.Point{5.14, 44.65}),
	}
	b := Way{
		ID:       2,
		NodeIDs:  []int64{12, 20},
		Geometry: line(orb.Point{5.12, 44.65}, orb.Point{5.12, 44.66}),
	}

	segments := Split([]Way{a, b})
	require.Len(t, segments, 3)

	assert.Equal(t, a.Geometry[:3], segments[0].Geometry)
	assert.Equal(t, a.Geometry[2:], segments[1].Geometry)
	assert.Equal(t, b.Geometry, segments[2].Geometry)

	// The junction point ends one segment and starts the next.
	assert.Equal(t, segments[0].Geometry[2], segments[1].Geometry[0])
}

func TestSplitConcatenationReproducesWay(t *testing.T) {
	t.Parallel()

	// Every interior node is a junction, cutting the way into single edges.
	main := Way{
		ID:      1,
		NodeIDs: []int64{1, 2, 3, 4},
		Geometry: line(
			orb.Point{5.10, 44.65}, orb.Point{5.11, 44.65},
			orb.Point{5.12, 44.65}, orb.Point{5.13, 44.65}),
	}
	var crossings []Way
	for i, node := range []int64{2, 3} {
		crossings = append(crossings, Way{
			ID:       int64(10 + i),
			NodeIDs:  []int64{node, int64(100 + i)},
			Geometry: line(main.Geometry[i+1], orb.Point{5.11 + float64(i)/100, 44.66}),
		})
	}

	segments := Split(append([]Way{main}, crossings...))
	require.Len(t, segments, 5)

	// Concatenating the main way's segments, dropping each repeated junction
	// point, reproduces the original coordinate sequence.
	rebuilt := append(orb.LineString{}, segments[0].Geometry...)
	for _, seg := range segments[1:3] {
		assert.Equal(t, rebuilt[len(rebuilt)-1], seg.Geometry[0])
		rebuilt = append(rebuilt, seg.Geometry[1:]...)
	}
	assert.Equal(t, main.Geometry, rebuilt)
}

func TestSplitSelfIntersectingWay(t *testing.T) {
	t.Parallel()

	// A lollipop: the way revisits node 11, which makes it a junction even
	// though only one way is involved.
	way := Way{
		ID:      1,
		NodeIDs: []int64{10, 11, 12, 13, 11},
		Geometry: line(
			orb.Point{5.10, 44.65}, orb.Point{5.11, 44.65}, orb.Point{5.12, 44.66},
			orb.Point{5.11, 44.66}, orb.Point{5.11, 44.65}),
	}

	segments := Split([]Way{way})
	require.Len(t, segments, 2)
	assert.Equal(t, way.Geometry[:2], segments[0].Geometry)
	assert.Equal(t, way.Geometry[1:], segments[1].Geometry)
}

func TestSplitDropsMismatchedWay(t *testing.T) {
	t.Parallel()

	broken := Way{
		ID:       1,
		NodeIDs:  []int64{10, 11},
		Geometry: line(orb.Point{5.10, 44.65}, orb.Point{5.11, 44.65}, orb.Point{5.12, 44.66}),
	}
	ok := Way{
		ID:       2,
		NodeIDs:  []int64{20, 21},
		Geometry: line(orb.Point{5.13, 44.65}, orb.Point{5.14, 44.65}),
	}

	segments := Split([]Way{broken, ok})
	require.Len(t, segments, 1)
	assert.Equal(t, ok.Geometry, segments[0].Geometry)
}

func TestSplitDeterministic(t *testing.T) {
	t.Parallel()

	ways := []Way{
		{ID: 1, NodeIDs: []int64{1, 2, 3}, Geometry: line(orb.Point{5.1, 44.6}, orb.Point{5.2, 44.6}, orb.Point{5.3, 44.6})},
		{ID: 2, NodeIDs: []int64{2, 4}, Geometry: line(orb.Point{5.2, 44.6}, orb.Point{5.2, 44.7})},
		{ID: 3, NodeIDs: []int64{3, 4}, Geometry: line(orb.Point{5.3, 44.6}, orb.Point{5.2, 44.7})},
	}

	first := Split(ways)
	second := Split(ways)
	assert.Equal(t, first, second)
}

func TestSegmentLength(t *testing.T) {
	t.Parallel()

	seg := Segment{Geometry: line(orb.Point{5.1, 44.65}, orb.Point{5.1, 44.66})}
	// 0.01 degrees of latitude is roughly 1112 m.
	assert.InDelta(t, 1112, seg.Length(), 1)

	empty := Segment{}
	assert.Zero(t, empty.Length())
	assert.Equal(t, -1.0, empty.DistanceTo(orb.Point{5.1, 44.65}))
}

func TestBuildIndex(t *testing.T) {
	t.Parallel()

	segments := Split([]Way{{
		ID:       1,
		NodeIDs:  []int64{10, 11},
		Geometry: line(orb.Point{5.10, 44.65}, orb.Point{5.11, 44.65}),
	}})
	ix := BuildIndex(segments)
	assert.Equal(t, 1, ix.Size())

	near := ix.SearchNearPoint(orb.Point{5.105, 44.65}, 100)
	assert.Equal(t, []int{0}, near)
}
