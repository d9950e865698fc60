package osm

import (
	"fmt"
	"io"
	"log"
	"os"
	"runtime"

	"github.com/paulmach/orb"
	"github.com/qedus/osmpbf"
)

// LoadPBF reads trail ways from a local OSM protobuf extract. It keeps ways
// whose highway tag is one of trailHighways and whose geometry touches bound,
// resolving node refs to coordinates from the same file. Offline alternative
// to FetchTrails for areas with a downloaded extract.
func LoadPBF(path string, bound orb.Bound) ([]Way, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	d := osmpbf.NewDecoder(f)

	// use more memory from the start, it is faster
	d.SetBufferSize(osmpbf.MaxBlobSize)

	// start decoding with several goroutines, it is faster
	if err := d.Start(runtime.GOMAXPROCS(-1)); err != nil {
		return nil, err
	}

	wanted := make(map[string]struct{}, len(trailHighways))
	for _, hw := range trailHighways {
		wanted[hw] = struct{}{}
	}

	nodes := make(map[int64]orb.Point)
	var rawWays []*osmpbf.Way

	for {
		v, err := d.Decode()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		switch v := v.(type) {
		case *osmpbf.Node:
			nodes[v.ID] = orb.Point{v.Lon, v.Lat}
		case *osmpbf.Way:
			if _, ok := wanted[v.Tags["highway"]]; ok {
				rawWays = append(rawWays, v)
			}
		case *osmpbf.Relation:
			// we ignore relations, trails come in as plain ways
		default:
			return nil, fmt.Errorf("unknown element type %T", v)
		}
	}

	ways := make([]Way, 0, len(rawWays))
	for _, rw := range rawWays {
		ls := make(orb.LineString, 0, len(rw.NodeIDs))
		complete := true
		inBound := false
		for _, nid := range rw.NodeIDs {
			pt, ok := nodes[nid]
			if !ok {
				// Extracts clipped at the region border lose nodes; a way we
				// cannot fully resolve is useless for segmentation.
				complete = false
				break
			}
			ls = append(ls, pt)
			if bound.Contains(pt) {
				inBound = true
			}
		}
		if !complete || !inBound || len(ls) < 2 {
			continue
		}
		nodeIDs := make([]int64, len(rw.NodeIDs))
		copy(nodeIDs, rw.NodeIDs)
		ways = append(ways, Way{
			ID:       rw.ID,
			Name:     rw.Tags["name"],
			NodeIDs:  nodeIDs,
			Geometry: ls,
		})
	}
	log.Printf("Parsed %d trail ways from %s", len(ways), path)
	return ways, nil
}
