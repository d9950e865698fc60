// Package api serves one run's computed results over HTTP for the local
// web viewer.
package api

import (
	"fmt"
	"math"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/paulmach/orb"

	"github.com/mveyrat/trailcover/export"
	"github.com/mveyrat/trailcover/geom"
	"github.com/mveyrat/trailcover/matching"
	"github.com/mveyrat/trailcover/osm"
)

// locateMaxDistanceM is the cutoff for /api/locate; beyond it a point is
// simply "not on a trail".
const locateMaxDistanceM = 250.0

// Server holds the computed results plus a spatial index for point lookups.
type Server struct {
	data     export.Data
	segments []osm.Segment
	coverage []matching.SegmentCoverage
	index    *geom.SegmentIndex
	webDir   string
}

// NewServer prepares a server for the given run outputs. webDir may be
// empty to skip serving the static viewer.
func NewServer(data export.Data, segments []osm.Segment, coverage []matching.SegmentCoverage, webDir string) *Server {
	return &Server{
		data:     data,
		segments: segments,
		coverage: coverage,
		index:    osm.BuildIndex(segments),
		webDir:   webDir,
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/api/data", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.data)
	})
	r.GET("/api/segments", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.data.Segments)
	})
	r.GET("/api/cells", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.data.Cells)
	})
	r.GET("/api/locate", s.handleLocate)

	if s.webDir != "" {
		r.StaticFile("/", filepath.Join(s.webDir, "index.html"))
	}
	return r
}

// Run serves until the listener fails.
func (s *Server) Run(listen string) error {
	return s.Router().Run(listen)
}

// handleLocate finds the segment nearest to ?lat=&lon= and returns it with
// its coverage, or 404 when nothing is within the cutoff.
func (s *Server) handleLocate(c *gin.Context) {
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lon, errLon := strconv.ParseFloat(c.Query("lon"), 64)
	if errLat != nil || errLon != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lat and lon query parameters are required"})
		return
	}

	p := orb.Point{lon, lat}
	best, bestDist := -1, 0.0
	for _, i := range s.index.SearchNearPoint(p, locateMaxDistanceM) {
		d := s.segments[i].DistanceTo(p)
		if d < 0 {
			continue
		}
		if best < 0 || d < bestDist {
			best, bestDist = i, d
		}
	}
	if best < 0 || bestDist > locateMaxDistanceM {
		c.JSON(http.StatusNotFound, gin.H{
			"error": fmt.Sprintf("no segment within %.0f m", locateMaxDistanceM),
		})
		return
	}

	cov := s.coverage[best]
	c.JSON(http.StatusOK, gin.H{
		"segment_id":   best,
		"distance_m":   math.Round(bestDist*10) / 10,
		"length_m":     math.Round(cov.LengthM*10) / 10,
		"coverage_pct": cov.CoveragePct,
		"covered":      cov.Covered(),
	})
}
