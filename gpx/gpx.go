// Package gpx loads recorded GPS activities from GPX files.
package gpx

import (
	"encoding/xml"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/paulmach/orb"
)

// Activity is one recorded outing. The device may split a recording into
// several tracks (signal loss, pauses), so the geometry is a list of
// polylines rather than a single one.
type Activity struct {
	Name   string
	Tracks []orb.LineString
}

type gpxFile struct {
	XMLName  xml.Name   `xml:"gpx"`
	Metadata gpxMeta    `xml:"metadata"`
	Tracks   []gpxTrack `xml:"trk"`
}

type gpxMeta struct {
	Name string `xml:"name"`
}

type gpxTrack struct {
	Name     string       `xml:"name"`
	Segments []gpxSegment `xml:"trkseg"`
}

type gpxSegment struct {
	Points []gpxPoint `xml:"trkpt"`
}

type gpxPoint struct {
	Lat float64 `xml:"lat,attr"`
	Lon float64 `xml:"lon,attr"`
}

// LoadActivities reads every .gpx file in dir, in sorted filename order, and
// returns the activities that touch bound. Files that fail to parse or carry
// no in-bound track are logged and skipped, not errors: one corrupt download
// should not abort a run.
func LoadActivities(dir string, bound orb.Bound) ([]Activity, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read activities dir %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".gpx") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var activities []Activity
	for _, name := range names {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			log.Printf("Warning: could not read %s: %v", path, err)
			continue
		}
		activity, err := Parse(data, bound)
		if err != nil {
			log.Printf("Warning: could not parse %s: %v", path, err)
			continue
		}
		if activity == nil {
			log.Printf("Skipping %s: no tracks in bounding box", path)
			continue
		}
		if activity.Name == "" {
			activity.Name = strings.TrimSuffix(name, filepath.Ext(name))
		}
		points := 0
		for _, t := range activity.Tracks {
			points += len(t)
		}
		log.Printf("Loaded %s: %d tracks, %d points", activity.Name, len(activity.Tracks), points)
		activities = append(activities, *activity)
	}

	log.Printf("Loaded %d activities from %s", len(activities), dir)
	return activities, nil
}

// Parse decodes one GPX document and keeps the tracks with at least two
// points and at least one point inside bound. It returns nil when no track
// qualifies, leaving the skip decision to the caller.
func Parse(data []byte, bound orb.Bound) (*Activity, error) {
	var doc gpxFile
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	var tracks []orb.LineString
	for _, trk := range doc.Tracks {
		for _, seg := range trk.Segments {
			if len(seg.Points) < 2 {
				continue
			}
			ls := make(orb.LineString, len(seg.Points))
			inBound := false
			for i, p := range seg.Points {
				ls[i] = orb.Point{p.Lon, p.Lat}
				if bound.Contains(ls[i]) {
					inBound = true
				}
			}
			if inBound {
				tracks = append(tracks, ls)
			}
		}
	}

	if len(tracks) == 0 {
		return nil, nil
	}
	return &Activity{Name: doc.Metadata.Name, Tracks: tracks}, nil
}
