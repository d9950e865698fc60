package main

import (
	"flag"
	"net/http"
	"time"

	"github.com/mveyrat/trailcover/api"
	"github.com/mveyrat/trailcover/config"
	"github.com/mveyrat/trailcover/export"
	"github.com/mveyrat/trailcover/garmin"
	"github.com/mveyrat/trailcover/gpx"
	"github.com/mveyrat/trailcover/grid"
	"github.com/mveyrat/trailcover/matching"
	"github.com/mveyrat/trailcover/osm"
	"github.com/mveyrat/trailcover/render"
	"github.com/mveyrat/trailcover/tiles"
)

func runSync(args []string) error {
	fs := flag.NewFlagSet("sync", flag.ExitOnError)
	configPath := configFlag(fs)
	activitiesDir := fs.String("activities", "", "directory for GPX files (default: config)")
	since := fs.String("since", "2026-01-01", "only sync activities since this date (YYYY-MM-DD)")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	return garmin.Sync(pick(*activitiesDir, cfg.ActivitiesDir), *since, cfg.BBox.Bound())
}

func runRender(args []string) error {
	fs := flag.NewFlagSet("render", flag.ExitOnError)
	configPath := configFlag(fs)
	activitiesDir := fs.String("activities", "", "directory containing GPX files (default: config)")
	output := fs.String("output", "output/trailcover.png", "output PNG path")
	zoom := fs.Int("zoom", 0, "tile zoom level (default: config)")
	provider := fs.String("provider", "opentopomap", "tile provider (openstreetmap or opentopomap)")
	pbf := pbfFlag(fs)
	noCache := fs.Bool("no-cache", false, "clear cached OSM and tile data first")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *noCache {
		osm.ClearCache(cfg.OSMCachePath)
		tiles.ClearCache(cfg.TileCachePath)
	}
	return renderMap(cfg, pick(*activitiesDir, cfg.ActivitiesDir), *output, *zoom, *provider, *pbf)
}

func runDebug(args []string) error {
	fs := flag.NewFlagSet("debug", flag.ExitOnError)
	configPath := configFlag(fs)
	output := fs.String("output", "output/debug.png", "output PNG path")
	zoom := fs.Int("zoom", 0, "tile zoom level (default: config)")
	provider := fs.String("provider", "opentopomap", "tile provider (openstreetmap or opentopomap)")
	pbf := pbfFlag(fs)
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	segments, err := fetchSegments(cfg, *pbf)
	if err != nil {
		return err
	}
	baseMap, err := fetchBaseMap(cfg, *zoom, *provider)
	if err != nil {
		return err
	}
	return render.WriteDebugPNG(baseMap, segments, *output)
}

func runExport(args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	configPath := configFlag(fs)
	activitiesDir := fs.String("activities", "", "directory containing GPX files (default: config)")
	output := fs.String("output", "web/data.json", "output JSON path")
	gridSize := fs.Float64("grid", 0, "grid cell size in meters (default: config)")
	pbf := pbfFlag(fs)
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	data, _, _, err := computeAll(cfg, pick(*activitiesDir, cfg.ActivitiesDir), *gridSize, *pbf)
	if err != nil {
		return err
	}
	return export.WriteJSON(*output, data)
}

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := configFlag(fs)
	activitiesDir := fs.String("activities", "", "directory containing GPX files (default: config)")
	listen := fs.String("listen", "127.0.0.1:8080", "listen address")
	gridSize := fs.Float64("grid", 0, "grid cell size in meters (default: config)")
	pbf := pbfFlag(fs)
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	data, segments, coverage, err := computeAll(cfg, pick(*activitiesDir, cfg.ActivitiesDir), *gridSize, *pbf)
	if err != nil {
		return err
	}
	return api.NewServer(data, segments, coverage, cfg.WebDir).Run(*listen)
}

func runUpdate(args []string) error {
	fs := flag.NewFlagSet("update", flag.ExitOnError)
	configPath := configFlag(fs)
	activitiesDir := fs.String("activities", "", "directory for GPX files (default: config)")
	since := fs.String("since", "2026-01-01", "only sync activities since this date (YYYY-MM-DD)")
	output := fs.String("output", "output/trailcover.png", "output PNG path")
	zoom := fs.Int("zoom", 0, "tile zoom level (default: config)")
	provider := fs.String("provider", "opentopomap", "tile provider (openstreetmap or opentopomap)")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	dir := pick(*activitiesDir, cfg.ActivitiesDir)
	if err := garmin.Sync(dir, *since, cfg.BBox.Bound()); err != nil {
		return err
	}
	return renderMap(cfg, dir, *output, *zoom, *provider, "")
}

// pbfFlag registers the shared -pbf flag on a flag set.
func pbfFlag(fs *flag.FlagSet) *string {
	return fs.String("pbf", "", "load trails from a local .osm.pbf extract instead of Overpass")
}

// pick returns override when set, fallback otherwise.
func pick(override, fallback string) string {
	if override != "" {
		return override
	}
	return fallback
}

func httpClient() *http.Client {
	return &http.Client{Timeout: 90 * time.Second}
}

// fetchSegments loads the trail network and splits it at junctions. With a
// pbf path the local extract is used instead of the Overpass API.
func fetchSegments(cfg config.Config, pbfPath string) ([]osm.Segment, error) {
	var ways []osm.Way
	var err error
	if pbfPath != "" {
		ways, err = osm.LoadPBF(pbfPath, cfg.BBox.Bound())
	} else {
		ways, err = osm.FetchTrails(httpClient(), cfg.BBox.Bound(), cfg.OSMCachePath)
	}
	if err != nil {
		return nil, err
	}
	return osm.Split(ways), nil
}

// computeCoverage loads activities and matches them against the segments.
func computeCoverage(cfg config.Config, activitiesDir string, segments []osm.Segment) ([]matching.SegmentCoverage, error) {
	activities, err := gpx.LoadActivities(activitiesDir, cfg.BBox.Bound())
	if err != nil {
		return nil, err
	}
	return matching.Compute(segments, activities, cfg.MatchingOptions())
}

// computeAll runs the full pipeline: segments, coverage, grid, export data.
func computeAll(cfg config.Config, activitiesDir string, gridSize float64, pbfPath string) (export.Data, []osm.Segment, []matching.SegmentCoverage, error) {
	segments, err := fetchSegments(cfg, pbfPath)
	if err != nil {
		return export.Data{}, nil, nil, err
	}
	coverage, err := computeCoverage(cfg, activitiesDir, segments)
	if err != nil {
		return export.Data{}, nil, nil, err
	}
	if gridSize <= 0 {
		gridSize = cfg.GridCellM
	}
	g := grid.Compute(segments, coverage, cfg.BBox.Bound(), gridSize)
	return export.Build(cfg.BBox.Bound(), segments, coverage, g), segments, coverage, nil
}

func fetchBaseMap(cfg config.Config, zoom int, providerName string) (*tiles.Map, error) {
	provider, err := tiles.ParseProvider(providerName)
	if err != nil {
		return nil, err
	}
	if zoom <= 0 {
		zoom = cfg.Zoom
	}
	cache, err := tiles.OpenCache(cfg.TileCachePath)
	if err != nil {
		return nil, err
	}
	defer cache.Close()
	return tiles.FetchMap(httpClient(), cache, cfg.BBox.Bound(), zoom, provider)
}

func renderMap(cfg config.Config, activitiesDir, output string, zoom int, providerName, pbfPath string) error {
	segments, err := fetchSegments(cfg, pbfPath)
	if err != nil {
		return err
	}
	coverage, err := computeCoverage(cfg, activitiesDir, segments)
	if err != nil {
		return err
	}
	baseMap, err := fetchBaseMap(cfg, zoom, providerName)
	if err != nil {
		return err
	}
	return render.WritePNG(baseMap, segments, coverage, cfg.Title, output)
}
