package main

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/fogleman/gg"
)

func panelAt(t *testing.T, r *Route, i int) WaypointPanel {
	t.Helper()
	c, err := NewCorrelator(r, DefaultCorrelation())
	if err != nil {
		t.Fatal(err)
	}
	pair, err := c.Pair(i)
	if err != nil {
		t.Fatal(err)
	}
	p, err := NewWaypointPanel(r, Project(r, ResetProjection()), PlaybackState{Index: i, Correlate: pair}, ImperialUnits())
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestWaypointPanelLines(t *testing.T) {
	p := panelAt(t, straightRoute(t, 3), 0)
	want := []string{
		"Speed: 4.5 mph",
		"Altitude: 328 ft",
		"Course: N 0° (north)",
		"Coordinates: 45.000000, 7.000000",
		"Position: X: -90.00, Y: 10.00, Z: -90.00",
		"Time: 2024-06-01 07:30:00",
		"Opposite: none",
	}
	if got := p.Lines(); !reflect.DeepEqual(got, want) {
		t.Errorf("Lines =\n%q\nwant\n%q", got, want)
	}
	if p.Title() != "Waypoint 1" {
		t.Errorf("Title = %q", p.Title())
	}
}

func TestWaypointPanelOpposite(t *testing.T) {
	p := panelAt(t, outAndBack(t, 0, 180), 2)
	lines := p.Lines()
	if got := lines[len(lines)-1]; got != "Opposite: waypoint 18, 8.9 mph heading S" {
		t.Errorf("opposite line = %q", got)
	}
	if lines[1] != "Altitude: N/A" {
		t.Errorf("altitude line = %q", lines[1])
	}
	s := p.String()
	if !strings.HasPrefix(s, "Waypoint 3 [stopped]\n") || !strings.Contains(s, "Course: ⬆️ N 0°") {
		t.Errorf("String =\n%s", s)
	}
}

func TestWaypointPanelUnknownCourse(t *testing.T) {
	r := mustRoute(t, []Waypoint{{Lat: 1, Lon: 1, Course: -1}})
	p := panelAt(t, r, 0)
	if got := p.Lines()[2]; got != "Course: "+unknownCourse {
		t.Errorf("course line = %q", got)
	}
	if got := p.Lines()[0]; got != "Speed: N/A" {
		t.Errorf("speed line = %q", got)
	}
}

func TestWaypointPanelErrors(t *testing.T) {
	if _, err := NewWaypointPanel(&Route{}, nil, PlaybackState{}, ImperialUnits()); !errors.Is(err, ErrNoData) {
		t.Errorf("empty route err = %v", err)
	}
	r := straightRoute(t, 2)
	st := PlaybackState{Correlate: Correlate{Primary: 5}}
	if _, err := NewWaypointPanel(r, Project(r, ResetProjection()), st, ImperialUnits()); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("out of range err = %v", err)
	}
}

func TestSummaryPanel(t *testing.T) {
	r := straightRoute(t, 5)
	r.Meta.Name = "Evening Ride"
	p := NewSummaryPanel(r, ImperialUnits())
	want := []string{
		"Start: 2024-06-01 07:30:00",
		"Finish: 2024-06-01 07:30:40",
		"Average Speed: 4.9 mph",
		"Duration: 0.7 min",
		"Distance: 0.06 mi",
		"Waypoints: 5",
	}
	if got := p.Lines(); !reflect.DeepEqual(got, want) {
		t.Errorf("Lines =\n%q\nwant\n%q", got, want)
	}
	if p.Title() != "Workout: Evening Ride" {
		t.Errorf("Title = %q", p.Title())
	}

	empty := NewSummaryPanel(&Route{}, MetricUnits())
	if empty.Title() != "Workout" || !reflect.DeepEqual(empty.Lines(), []string{"No route data"}) {
		t.Errorf("empty summary = %q %q", empty.Title(), empty.Lines())
	}
}

func TestPanelsDraw(t *testing.T) {
	dc := gg.NewContext(800, 400)
	summary := NewSummaryPanel(straightRoute(t, 3), ImperialUnits())
	sw, sh := summary.Size(dc)
	if sw <= 2*panelPadding || sh <= 2*panelPadding {
		t.Errorf("summary size = %vx%v", sw, sh)
	}
	summary.Draw(dc, 10, 10)

	wp := panelAt(t, straightRoute(t, 3), 1)
	ww, wh := wp.Size(dc)
	if wh <= sh {
		t.Errorf("waypoint panel (%v high) not taller than summary (%v)", wh, sh)
	}
	wp.Draw(dc, 790-ww, 10)
}
