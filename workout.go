package main

import (
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/tidwall/gjson"
)

var (
	ErrMissingCoordinates = errors.New("sample has no latitude or longitude")
	ErrInvalidCoordinates = errors.New("sample coordinates out of range")
)

var timestampLayouts = []string{
	"2006-01-02 15:04:05 -0700",
	"2006-01-02 15:04:05 Z0700",
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
}

// --- Workout JSON Parsing ---

func parseWorkoutFile(path string) (*Route, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read workout file: %w", err)
	}
	return parseWorkoutJSON(data)
}

// parseWorkoutJSON reads the first workout of a health export, i.e. the
// data.workouts[0].route[] samples and the workout-level summary fields.
func parseWorkoutJSON(data []byte) (*Route, error) {
	if !gjson.ValidBytes(data) {
		return nil, errors.New("workout file is not valid JSON")
	}
	root := gjson.ParseBytes(data)

	workout := root.Get("data.workouts.0")
	if !workout.Exists() {
		workout = root.Get("workouts.0")
	}
	if !workout.Exists() {
		return nil, errors.New("workout file has no workouts")
	}

	samples := workout.Get("route").Array()
	if len(samples) == 0 {
		return nil, ErrEmptyRoute
	}

	waypoints := make([]Waypoint, 0, len(samples))
	for i, s := range samples {
		ts, err := parseTimestamp(s.Get("timestamp").String())
		if err != nil {
			return nil, fmt.Errorf("route sample %d: %w", i, err)
		}
		lat, lon, err := sampleCoordinates(s)
		if err != nil {
			return nil, fmt.Errorf("route sample %d: %w", i, err)
		}
		course := -1.0
		if c := s.Get("course"); c.Exists() {
			course = c.Float()
		}
		waypoints = append(waypoints, Waypoint{
			Lat:       lat,
			Lon:       lon,
			Altitude:  finiteOrZero(s.Get("altitude").Float()),
			Speed:     finiteOrZero(s.Get("speed").Float()),
			Course:    course,
			Timestamp: ts,
		})
	}

	meta := RouteMeta{
		Name:          workout.Get("name").String(),
		DistanceQty:   workout.Get("distance.qty").Float(),
		DistanceUnits: workout.Get("distance.units").String(),
	}
	if d := workout.Get("duration").Float(); d > 0 && !math.IsInf(d, 0) {
		meta.Duration = time.Duration(d * float64(time.Second))
	}
	var err error
	if s := workout.Get("start").String(); s != "" {
		if meta.Start, err = parseTimestamp(s); err != nil {
			return nil, fmt.Errorf("workout start: %w", err)
		}
	}
	if e := workout.Get("end").String(); e != "" {
		if meta.End, err = parseTimestamp(e); err != nil {
			return nil, fmt.Errorf("workout end: %w", err)
		}
	}

	return NewRoute(waypoints, meta)
}

func sampleCoordinates(s gjson.Result) (float64, float64, error) {
	latV, lonV := s.Get("latitude"), s.Get("longitude")
	if !latV.Exists() || !lonV.Exists() {
		return 0, 0, ErrMissingCoordinates
	}
	lat, lon := latV.Float(), lonV.Float()
	if latV.Type != gjson.Number || lonV.Type != gjson.Number ||
		math.IsNaN(lat) || math.IsNaN(lon) || math.Abs(lat) > 90 || math.Abs(lon) > 180 {
		return 0, 0, fmt.Errorf("%w: %s, %s", ErrInvalidCoordinates, latV.Raw, lonV.Raw)
	}
	return lat, lon, nil
}

func parseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}
