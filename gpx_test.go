package main

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sampleGpx = `<?xml version="1.0" encoding="UTF-8"?>
<gpx version="1.1" creator="test" xmlns="http://www.topografix.com/GPX/1/1">
  <trk>
    <name>Morning Ride</name>
    <trkseg>
      <trkpt lat="45.0000" lon="7.0000"><time>2024-06-01T07:30:00Z</time></trkpt>
      <trkpt lat="45.0010" lon="7.0000"><ele>210</ele><time>2024-06-01T07:30:10Z</time></trkpt>
      <trkpt lat="45.0020" lon="7.0000"><time>2024-06-01T07:30:20Z</time></trkpt>
      <trkpt lat="45.0030" lon="7.0000"><ele>230</ele><time>2024-06-01T07:30:30Z</time></trkpt>
    </trkseg>
  </trk>
</gpx>`

func TestParseGpx(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ride.GPX")
	if err := os.WriteFile(path, []byte(sampleGpx), 0o644); err != nil {
		t.Fatal(err)
	}
	r, err := loadRoute(path)
	if err != nil {
		t.Fatal(err)
	}
	if r.Len() != 4 || r.Meta.Name != "Morning Ride" {
		t.Fatalf("route = %d points, name %q", r.Len(), r.Meta.Name)
	}
	wantAlt := []float64{210, 210, 210, 230}
	for i, w := range r.Waypoints() {
		if w.Altitude != wantAlt[i] {
			t.Errorf("waypoint %d altitude = %v, want %v", i, w.Altitude, wantAlt[i])
		}
		// 0.001° of latitude every 10 s, about 11 m/s heading north
		if w.Speed < 10.5 || w.Speed > 11.6 {
			t.Errorf("waypoint %d speed = %v", i, w.Speed)
		}
		if math.Abs(w.Course) > 1e-6 {
			t.Errorf("waypoint %d course = %v", i, w.Course)
		}
	}
	if got := r.At(3).Timestamp; !got.Equal(time.Date(2024, 6, 1, 7, 30, 30, 0, time.UTC)) {
		t.Errorf("timestamp = %v", got)
	}
}

func TestParseGpxNoPoints(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.gpx")
	doc := `<?xml version="1.0"?><gpx version="1.1" creator="test"><trk><trkseg></trkseg></trk></gpx>`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := parseGpx(path); err == nil {
		t.Error("expected an error for a track without points")
	}
}

func TestFillElevationGaps(t *testing.T) {
	pts := []Waypoint{{}, {}, {Altitude: 5}, {}, {Altitude: 7}, {}}
	fillElevationGaps(pts)
	want := []float64{5, 5, 5, 5, 7, 7}
	for i, p := range pts {
		if p.Altitude != want[i] {
			t.Errorf("point %d = %v, want %v", i, p.Altitude, want[i])
		}
	}

	flat := []Waypoint{{}, {}}
	fillElevationGaps(flat)
	if flat[0].Altitude != 0 || flat[1].Altitude != 0 {
		t.Error("no elevation data should stay zero")
	}
}

func TestDeriveCourseKeepsThroughSharpTurn(t *testing.T) {
	// north, north, then a hairpin east and back
	pts := []Waypoint{
		{Lat: 45.000, Lon: 7, Timestamp: fixtureStart},
		{Lat: 45.001, Lon: 7, Timestamp: fixtureStart.Add(10 * time.Second)},
		{Lat: 45.002, Lon: 7, Timestamp: fixtureStart.Add(20 * time.Second)},
		{Lat: 45.002, Lon: 7.002, Timestamp: fixtureStart.Add(30 * time.Second)},
		{Lat: 45.003, Lon: 7.002, Timestamp: fixtureStart.Add(40 * time.Second)},
	}
	deriveSpeedAndCourse(pts)
	if math.Abs(pts[2].Course) > 1e-6 {
		t.Errorf("course before the turn = %v, want the previous heading", pts[2].Course)
	}
	if pts[0].Speed != pts[1].Speed {
		t.Errorf("first speed = %v, want %v", pts[0].Speed, pts[1].Speed)
	}
}
