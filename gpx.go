package main

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/tkrajina/gpxgo/gpx"
)

// Course changes sharper than this between consecutive samples are treated as
// GPS jitter and the previous course is kept.
const maxCourseJump = 45.0

// --- Route Loading ---

func loadRoute(path string) (*Route, error) {
	if strings.EqualFold(filepath.Ext(path), ".gpx") {
		return parseGpx(path)
	}
	return parseWorkoutFile(path)
}

// --- GPX Parsing & Processing ---

func parseGpx(filePath string) (*Route, error) {
	gpxFile, err := gpx.ParseFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to parse GPX file: %w", err)
	}
	return routeFromGpx(gpxFile)
}

func routeFromGpx(gpxFile *gpx.GPX) (*Route, error) {
	var points []Waypoint
	var name string
	for _, track := range gpxFile.Tracks {
		if name == "" {
			name = track.Name
		}
		for _, segment := range track.Segments {
			for _, p := range segment.Points {
				var ele float64
				if p.Elevation.NotNull() {
					ele = p.Elevation.Value()
				}
				points = append(points, Waypoint{Lat: p.Latitude, Lon: p.Longitude, Altitude: ele, Course: -1, Timestamp: p.Timestamp})
			}
		}
	}
	if len(points) == 0 {
		return nil, ErrEmptyRoute
	}

	fillElevationGaps(points)
	deriveSpeedAndCourse(points)

	return NewRoute(points, RouteMeta{Name: name})
}

// fillElevationGaps back-fills leading samples with the first known elevation
// and carries the last known elevation forward over gaps.
func fillElevationGaps(points []Waypoint) {
	firstEleIdx := -1
	for i, p := range points {
		if p.Altitude != 0 {
			firstEleIdx = i
			break
		}
	}
	if firstEleIdx == -1 {
		return
	}
	for i := 0; i < firstEleIdx; i++ {
		points[i].Altitude = points[firstEleIdx].Altitude
	}

	lastEle := points[0].Altitude
	for i := range points {
		if points[i].Altitude != 0 {
			lastEle = points[i].Altitude
		} else {
			points[i].Altitude = lastEle
		}
	}
}

// deriveSpeedAndCourse fills speed (m/s) and course (degrees) for GPX tracks,
// which carry neither.
func deriveSpeedAndCourse(points []Waypoint) {
	if len(points) < 2 {
		return
	}

	for i := 1; i < len(points); i++ {
		dt := points[i].Timestamp.Sub(points[i-1].Timestamp).Seconds()
		if dt > 0 {
			points[i].Speed = distanceMeters(points[i-1], points[i]) / dt
		} else {
			points[i].Speed = points[i-1].Speed
		}
	}
	points[0].Speed = points[1].Speed

	for i := 0; i < len(points)-1; i++ {
		points[i].Course = bearing(points[i].Point(), points[i+1].Point())
	}
	points[len(points)-1].Course = points[len(points)-2].Course

	// smooth out sharp jumps in course
	smoothed := make([]float64, len(points))
	smoothed[0] = points[0].Course
	for i := 1; i < len(points)-1; i++ {
		if angleBetweenBearings(points[i-1].Course, points[i].Course) <= maxCourseJump {
			smoothed[i] = points[i].Course
		} else { // too sharp a turn, keep the previous course until things calm down
			smoothed[i] = smoothed[i-1]
		}
	}
	for i := 1; i < len(points)-1; i++ {
		points[i].Course = math.Mod(smoothed[i], 360)
	}
}
