// Package tiles fetches slippy-map base tiles, caches them in sqlite and
// stitches them into one image cropped to the bounding box.
package tiles

import (
	"fmt"
	"strings"
)

// Provider identifies a public tile server.
type Provider string

const (
	OpenStreetMap Provider = "openstreetmap"
	OpenTopoMap   Provider = "opentopomap"
)

// ParseProvider resolves a user-supplied provider name.
func ParseProvider(s string) (Provider, error) {
	switch strings.ToLower(s) {
	case "openstreetmap", "osm":
		return OpenStreetMap, nil
	case "opentopomap", "topo":
		return OpenTopoMap, nil
	}
	return "", fmt.Errorf("unknown tile provider %q (want openstreetmap or opentopomap)", s)
}

// URL returns the tile address for one z/x/y tile.
func (p Provider) URL(z, x, y int) string {
	switch p {
	case OpenTopoMap:
		return fmt.Sprintf("https://tile.opentopomap.org/%d/%d/%d.png", z, x, y)
	default:
		return fmt.Sprintf("https://tile.openstreetmap.org/%d/%d/%d.png", z, x, y)
	}
}

// Name returns the display name used in logs and attributions.
func (p Provider) Name() string {
	switch p {
	case OpenTopoMap:
		return "OpenTopoMap"
	default:
		return "OpenStreetMap"
	}
}
