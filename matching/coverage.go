package matching

import (
	"fmt"
	"log"
	"runtime"
	"sync"

	"github.com/mveyrat/trailcover/geom"
	"github.com/mveyrat/trailcover/gpx"
	"github.com/mveyrat/trailcover/osm"
)

// CoveredThreshold is the coverage fraction at or above which a segment
// counts as covered. Grid aggregation, rendering, export and the API all
// consume this same constant so the notion of "covered" cannot drift
// between them.
const CoveredThreshold = 0.5

// Options are the matching tunables. The defaults reproduce the values the
// tool was calibrated with; see config for the YAML overrides.
type Options struct {
	// MatchRadiusM is how close a trace point must be to a segment sample
	// for the sample to count as matched.
	MatchRadiusM float64
	// TrailStepM is the sampling step along segment geometry.
	TrailStepM float64
	// TraceStepM is the discretization step for GPS tracks fed to the index.
	TraceStepM float64
	// TraceCellM is the trace index cell size. Must exceed MatchRadiusM.
	TraceCellM float64
}

// DefaultOptions returns the calibrated matching parameters.
func DefaultOptions() Options {
	return Options{
		MatchRadiusM: 10,
		TrailStepM:   5,
		TraceStepM:   2,
		TraceCellM:   20,
	}
}

// SegmentCoverage is the per-segment result, index-aligned with the segment
// list it was computed from.
type SegmentCoverage struct {
	LengthM     float64
	CoveragePct float64
}

// Covered reports whether the segment's coverage fraction reaches the
// shared threshold.
func (c SegmentCoverage) Covered() bool { return c.CoveragePct >= CoveredThreshold }

// Compute builds a trace index from the activities and measures, for each
// segment, the fraction of its sample points that have a trace point within
// the match radius. Segments are processed on a bounded worker pool; each
// worker writes only its own result slots, so the output is identical to the
// serial loop.
func Compute(segments []osm.Segment, activities []gpx.Activity, opts Options) ([]SegmentCoverage, error) {
	// The 3x3 neighborhood query cannot see matches more than one cell away.
	if opts.MatchRadiusM >= opts.TraceCellM {
		return nil, fmt.Errorf("match radius %.1f m must be smaller than the trace index cell size %.1f m",
			opts.MatchRadiusM, opts.TraceCellM)
	}

	index := NewTraceIndex(activities, opts.TraceStepM, opts.TraceCellM)

	result := make([]SegmentCoverage, len(segments))
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < runtime.GOMAXPROCS(0); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				result[i] = coverSegment(&segments[i], index, opts)
			}
		}()
	}
	for i := range segments {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	logCoverageStats(result)
	return result, nil
}

func coverSegment(seg *osm.Segment, index *TraceIndex, opts Options) SegmentCoverage {
	cov := SegmentCoverage{LengthM: seg.Length()}
	samples := geom.Discretize(seg.Geometry, opts.TrailStepM)
	if len(samples) == 0 {
		return cov
	}
	matched := 0
	for _, p := range samples {
		if index.HasPointWithin(p, opts.MatchRadiusM) {
			matched++
		}
	}
	cov.CoveragePct = float64(matched) / float64(len(samples))
	return cov
}

func logCoverageStats(result []SegmentCoverage) {
	totalKm, coveredKm := 0.0, 0.0
	coveredCount := 0
	for _, c := range result {
		totalKm += c.LengthM / 1000
		if c.Covered() {
			coveredKm += c.LengthM / 1000
			coveredCount++
		}
	}
	pct := 0.0
	if totalKm > 0 {
		pct = coveredKm / totalKm * 100
	}
	log.Printf("Coverage: %d/%d segments, %.1f/%.1f km (%.0f%%)",
		coveredCount, len(result), coveredKm, totalKm, pct)
}
