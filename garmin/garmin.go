// Package garmin syncs activities from Garmin Connect by shelling out to
// the external garmin CLI.
package garmin

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/paulmach/orb"
)

// coordBufferDeg pads the bounding box for the start-coordinate check; a
// recording can start a village away and still enter the area.
const coordBufferDeg = 0.15

// listBatchSize is how many recent activities one list call asks for. The
// CLI supports neither date filtering nor JSON list output, so we fetch a
// large batch and filter the table ourselves.
const listBatchSize = 200

// runGarmin invokes the external CLI; swapped out in tests.
var runGarmin = func(args ...string) ([]byte, error) {
	out, err := exec.Command("garmin", args...).Output()
	if err != nil {
		var ee *exec.ExitError
		if errors.As(err, &ee) {
			return nil, fmt.Errorf("garmin %s: %s", strings.Join(args, " "),
				strings.TrimSpace(string(ee.Stderr)))
		}
		return nil, fmt.Errorf("garmin %s: %w", strings.Join(args, " "), err)
	}
	return out, nil
}

type listedActivity struct {
	ID   string
	Date string
	Type string
}

// Sync downloads, as GPX into dir, every activity recorded since the given
// date (YYYY-MM-DD) that has GPS data, starts near bound, and has not been
// downloaded before.
func Sync(dir, since string, bound orb.Bound) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create activities dir: %w", err)
	}

	out, err := runGarmin("activities", "list", "-l", fmt.Sprint(listBatchSize))
	if err != nil {
		return err
	}
	activities := parseActivityList(string(out), since)
	log.Printf("Found %d activities since %s", len(activities), since)

	downloaded := 0
	for i, a := range activities {
		prefix := fmt.Sprintf("[%d/%d]", i+1, len(activities))

		if isIndoor(a.Type) {
			log.Printf("%s Skipping %s (%s): indoor/no GPS", prefix, a.ID, a.Type)
			continue
		}
		path := filepath.Join(dir, a.ID+".gpx")
		if _, err := os.Stat(path); err == nil {
			log.Printf("%s Already have %s.gpx", prefix, a.ID)
			continue
		}

		info, err := activityLocation(a.ID)
		if err != nil {
			return err
		}
		if info == nil {
			log.Printf("%s Skipping %s (%s): no GPS coordinates", prefix, a.ID, a.Date)
			continue
		}
		if !nearBound(info.start, bound) {
			log.Printf("%s Skipping %s: %s too far (%.3f, %.3f)",
				prefix, a.ID, info.name, info.start.Lat(), info.start.Lon())
			continue
		}

		log.Printf("%s Downloading %s: %s (%s, %.1f km)",
			prefix, a.ID, info.name, a.Date, info.distanceKm)
		if _, err := runGarmin("activities", "download", a.ID, "-t", "gpx", "-o", path); err != nil {
			return err
		}
		downloaded++
	}

	log.Printf("Downloaded %d new GPX files to %s", downloaded, dir)
	return nil
}

// parseActivityList extracts (id, date, type) rows from the CLI's table
// output. Rows are newest first, so parsing stops at the first row older
// than since.
func parseActivityList(out, since string) []listedActivity {
	var activities []listedActivity
	for _, line := range strings.Split(out, "\n") {
		parts := strings.Fields(strings.TrimSpace(line))
		if len(parts) < 3 || !isNumeric(parts[0]) {
			continue
		}
		if parts[1] < since {
			break
		}
		activities = append(activities, listedActivity{ID: parts[0], Date: parts[1], Type: parts[2]})
	}
	return activities
}

type locationInfo struct {
	name       string
	start      orb.Point
	distanceKm float64
}

type activityDetails struct {
	ActivityName string `json:"activityName"`
	Summary      *struct {
		StartLatitude  *float64 `json:"startLatitude"`
		StartLongitude *float64 `json:"startLongitude"`
		Distance       float64  `json:"distance"`
	} `json:"summaryDTO"`
}

// activityLocation fetches one activity's details; nil without error when
// the activity carries no start coordinates.
func activityLocation(id string) (*locationInfo, error) {
	out, err := runGarmin("activities", "get", id, "-f", "json")
	if err != nil {
		return nil, err
	}
	var details activityDetails
	if err := json.Unmarshal(out, &details); err != nil {
		return nil, fmt.Errorf("parse activity %s details: %w", id, err)
	}
	if details.Summary == nil || details.Summary.StartLatitude == nil || details.Summary.StartLongitude == nil {
		return nil, nil
	}
	return &locationInfo{
		name:       details.ActivityName,
		start:      orb.Point{*details.Summary.StartLongitude, *details.Summary.StartLatitude},
		distanceKm: details.Summary.Distance / 1000,
	}, nil
}

func nearBound(p orb.Point, bound orb.Bound) bool {
	return p.Lat() >= bound.Min.Lat()-coordBufferDeg &&
		p.Lat() <= bound.Max.Lat()+coordBufferDeg &&
		p.Lon() >= bound.Min.Lon()-coordBufferDeg &&
		p.Lon() <= bound.Max.Lon()+coordBufferDeg
}

// isIndoor filters activity types that carry no useful GPS track. Types can
// be truncated with "..." in the table output.
func isIndoor(activityType string) bool {
	t := strings.TrimSuffix(activityType, "...")
	for _, prefix := range []string{"strength", "indoor", "treadmill", "yoga", "breathwork"} {
		if strings.HasPrefix(t, prefix) {
			return true
		}
	}
	// A zero distance sometimes shows up in the type column.
	return t == "0.00"
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
