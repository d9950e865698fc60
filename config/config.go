// Package config holds the run profile: bounding box, tuning constants and
// cache locations, with a built-in default overridable from a YAML file.
package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/paulmach/orb"
	"gopkg.in/yaml.v3"

	"github.com/mveyrat/trailcover/matching"
)

// BBox is the area of interest in degrees.
type BBox struct {
	South float64 `yaml:"south"`
	West  float64 `yaml:"west"`
	North float64 `yaml:"north" validate:"gtfield=South"`
	East  float64 `yaml:"east" validate:"gtfield=West"`
}

// Bound converts the box to the orb representation used everywhere else.
func (b BBox) Bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{b.West, b.South},
		Max: orb.Point{b.East, b.North},
	}
}

// Matching are the coverage-matching tunables. The match radius must stay
// below the trace index cell size or the 3x3 neighborhood query could miss
// true matches near cell boundaries.
type Matching struct {
	MatchRadiusM float64 `yaml:"match_radius_m" validate:"gt=0,ltfield=TraceCellM"`
	TrailStepM   float64 `yaml:"trail_step_m" validate:"gt=0"`
	TraceStepM   float64 `yaml:"trace_step_m" validate:"gt=0"`
	TraceCellM   float64 `yaml:"trace_cell_m" validate:"gt=0"`
}

// Config is the full run profile.
type Config struct {
	Title         string   `yaml:"title" validate:"required"`
	BBox          BBox     `yaml:"bbox"`
	Zoom          int      `yaml:"zoom" validate:"min=1,max=17"`
	ActivitiesDir string   `yaml:"activities_dir" validate:"required"`
	OSMCachePath  string   `yaml:"osm_cache_path" validate:"required"`
	TileCachePath string   `yaml:"tile_cache_path" validate:"required"`
	WebDir        string   `yaml:"web_dir" validate:"required"`
	GridCellM     float64  `yaml:"grid_cell_m" validate:"gt=0"`
	Matching      Matching `yaml:"matching"`
}

// Default returns the built-in profile for the Synclinal de Saou massif.
func Default() Config {
	return Config{
		Title: "Synclinal de Saou - Trail Coverage",
		BBox: BBox{
			South: 44.6178,
			West:  5.03539,
			North: 44.68416,
			East:  5.21463,
		},
		Zoom:          15,
		ActivitiesDir: "activities",
		OSMCachePath:  "data/osm_trails.json",
		TileCachePath: "data/tiles.db",
		WebDir:        "web",
		GridCellM:     200,
		Matching: Matching{
			MatchRadiusM: 10,
			TrailStepM:   5,
			TraceStepM:   2,
			TraceCellM:   20,
		},
	}
}

// Load overlays the YAML file at path on the defaults and validates the
// result. An empty path returns the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the profile's internal consistency.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// MatchingOptions converts the profile's matching section to the options
// consumed by the matching package.
func (c Config) MatchingOptions() matching.Options {
	return matching.Options{
		MatchRadiusM: c.Matching.MatchRadiusM,
		TrailStepM:   c.Matching.TrailStepM,
		TraceStepM:   c.Matching.TraceStepM,
		TraceCellM:   c.Matching.TraceCellM,
	}
}
