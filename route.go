package main

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/paulmach/orb"
)

var (
	ErrEmptyRoute       = errors.New("route has no waypoints")
	ErrUnorderedRoute   = errors.New("route waypoints are not in chronological order")
	ErrIndexOutOfRange  = errors.New("waypoint index out of range")
	ErrNoData           = errors.New("no waypoint data")
	outbackLocation     = orb.Point{134.1065540, -25.751525}
	everestLocation     = orb.Point{86.92502, 27.98789}
	anonymizedLocations = map[string]orb.Point{
		"outback": outbackLocation,
		"everest": everestLocation,
	}
)

// --- Structs ---

// Waypoint is a single GPS sample. Course is in degrees, negative when the
// recorder did not report one.
type Waypoint struct {
	Lat, Lon, Altitude, Speed, Course float64
	Timestamp                         time.Time
}

func (w Waypoint) Point() orb.Point { return orb.Point{w.Lon, w.Lat} }

type RouteMeta struct {
	Name          string
	DistanceQty   float64
	DistanceUnits string
	Duration      time.Duration
	Start, End    time.Time
}

// Route is an ordered, read-only track. The zero Route is the empty route.
type Route struct {
	Meta      RouteMeta
	waypoints []Waypoint

	once  sync.Once
	stats routeStats
}

type routeStats struct {
	bound                        orb.Bound
	distance                     float64
	avgSpeed, minSpeed, maxSpeed float64
}

func NewRoute(waypoints []Waypoint, meta RouteMeta) (*Route, error) {
	if len(waypoints) == 0 {
		return nil, ErrEmptyRoute
	}
	for i := 1; i < len(waypoints); i++ {
		prev, cur := waypoints[i-1].Timestamp, waypoints[i].Timestamp
		if !prev.IsZero() && !cur.IsZero() && cur.Before(prev) {
			return nil, fmt.Errorf("%w: waypoint %d at %s precedes waypoint %d", ErrUnorderedRoute, i, cur.Format(time.RFC3339), i-1)
		}
	}
	wps := make([]Waypoint, len(waypoints))
	copy(wps, waypoints)
	return &Route{Meta: meta, waypoints: wps}, nil
}

func (r *Route) Len() int {
	if r == nil {
		return 0
	}
	return len(r.waypoints)
}

func (r *Route) At(i int) Waypoint { return r.waypoints[i] }

// Waypoints returns a copy of the waypoint sequence.
func (r *Route) Waypoints() []Waypoint {
	out := make([]Waypoint, r.Len())
	if r != nil {
		copy(out, r.waypoints)
	}
	return out
}

func (r *Route) LineString() orb.LineString {
	ls := make(orb.LineString, 0, r.Len())
	for i := 0; i < r.Len(); i++ {
		ls = append(ls, r.waypoints[i].Point())
	}
	return ls
}

// --- Aggregates ---

func (r *Route) computeStats() routeStats {
	r.once.Do(func() {
		if len(r.waypoints) == 0 {
			return
		}
		s := routeStats{
			bound:    r.LineString().Bound(),
			minSpeed: math.Inf(1),
			maxSpeed: math.Inf(-1),
		}
		var speedSum float64
		for i, w := range r.waypoints {
			speed := finiteOrZero(w.Speed)
			speedSum += speed
			s.minSpeed = math.Min(s.minSpeed, speed)
			s.maxSpeed = math.Max(s.maxSpeed, speed)
			if i > 0 {
				s.distance += distanceMeters(r.waypoints[i-1], w)
			}
		}
		s.avgSpeed = speedSum / float64(len(r.waypoints))
		r.stats = s
	})
	return r.stats
}

func (r *Route) Bound() orb.Bound       { return r.computeStats().bound }
func (r *Route) MiddlePoint() orb.Point { return r.Bound().Center() }
func (r *Route) TotalDistance() float64 { return r.computeStats().distance }
func (r *Route) AverageSpeed() float64  { return r.computeStats().avgSpeed }
func (r *Route) MinSpeed() float64      { return r.computeStats().minSpeed }
func (r *Route) MaxSpeed() float64      { return r.computeStats().maxSpeed }
func (r *Route) Start() orb.Point       { return r.waypoints[0].Point() }
func (r *Route) Finish() orb.Point      { return r.waypoints[len(r.waypoints)-1].Point() }

func (r *Route) StartTime() time.Time {
	if !r.Meta.Start.IsZero() || r.Len() == 0 {
		return r.Meta.Start
	}
	return r.waypoints[0].Timestamp
}

func (r *Route) EndTime() time.Time {
	if !r.Meta.End.IsZero() || r.Len() == 0 {
		return r.Meta.End
	}
	return r.waypoints[len(r.waypoints)-1].Timestamp
}

func (r *Route) Duration() time.Duration {
	if r.Meta.Duration > 0 {
		return r.Meta.Duration
	}
	return r.EndTime().Sub(r.StartTime())
}

// DistanceLabel prefers the distance reported by the recorder, e.g. "9.2 mi".
func (r *Route) DistanceLabel(u Units) string {
	if r.Meta.DistanceUnits != "" {
		qty := math.Round(r.Meta.DistanceQty*100) / 100
		return strconv.FormatFloat(qty, 'f', -1, 64) + " " + r.Meta.DistanceUnits
	}
	return u.FormatDistance(r.TotalDistance())
}

// --- Anonymization ---

// Anonymize returns a copy of the route translated so that its first waypoint
// sits at target. Timestamps, speeds and courses are kept.
func (r *Route) Anonymize(target orb.Point) (*Route, error) {
	if r.Len() == 0 {
		return nil, ErrEmptyRoute
	}
	start := r.waypoints[0]
	dLat := target.Lat() - start.Lat
	dLon := target.Lon() - start.Lon

	wps := r.Waypoints()
	for i := range wps {
		wps[i].Lat += dLat
		wps[i].Lon = normalizeLon(wps[i].Lon + dLon)
	}
	return NewRoute(wps, r.Meta)
}

func parseAnonymizeTarget(s string) (orb.Point, error) {
	if p, ok := anonymizedLocations[s]; ok {
		return p, nil
	}
	var lat, lon float64
	if _, err := fmt.Sscanf(s, "%g,%g", &lat, &lon); err != nil {
		return orb.Point{}, fmt.Errorf("invalid anonymize target %q: want outback, everest or lat,lon", s)
	}
	return orb.Point{lon, lat}, nil
}

func normalizeLon(lon float64) float64 {
	for lon > 180 {
		lon -= 360
	}
	for lon < -180 {
		lon += 360
	}
	return lon
}

func finiteOrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
