package main

import (
	"fmt"
	"math"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/planar"
)

const (
	metricGeodesic = "geodesic"
	metricPlanar   = "planar"

	fallbackNone           = "none"
	fallbackNearest        = "nearest"
	fallbackNearestIfClose = "nearest-if-close"
)

// CorrelationConfig tunes what counts as the same spot passed the other way.
// SpaceThreshold is in meters for the geodesic metric and degrees for the
// planar one.
type CorrelationConfig struct {
	SpaceThreshold  float64       `yaml:"space_threshold" validate:"gt=0"`
	TimeThreshold   time.Duration `yaml:"time_threshold"`
	CourseThreshold float64       `yaml:"course_threshold" validate:"gte=0,lte=180"`
	Metric          string        `yaml:"metric" validate:"oneof=geodesic planar"`
	Fallback        string        `yaml:"fallback" validate:"oneof=none nearest nearest-if-close"`
}

func DefaultCorrelation() CorrelationConfig {
	return CorrelationConfig{
		SpaceThreshold:  10,
		TimeThreshold:   60 * time.Second,
		CourseThreshold: 120,
		Metric:          metricGeodesic,
		Fallback:        fallbackNearestIfClose,
	}
}

func (c CorrelationConfig) Validate() error {
	if math.IsNaN(c.SpaceThreshold) || math.IsNaN(c.CourseThreshold) {
		return fmt.Errorf("invalid correlation config: thresholds must be numbers")
	}
	if c.TimeThreshold < 0 {
		return fmt.Errorf("invalid correlation config: time_threshold must not be negative, got %s", c.TimeThreshold)
	}
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid correlation config: %w", err)
	}
	return nil
}

// Correlate pairs the current waypoint with the one passed in the opposite
// direction, when there is one.
type Correlate struct {
	Primary     int
	Opposite    int
	HasOpposite bool
}

type Correlator struct {
	route *Route
	cfg   CorrelationConfig
	dist  func(a, b orb.Point) float64
}

func NewCorrelator(route *Route, cfg CorrelationConfig) (*Correlator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Correlator{route: route, cfg: cfg, dist: geo.Distance}
	if cfg.Metric == metricPlanar {
		c.dist = planar.Distance
	}
	return c, nil
}

func (c *Correlator) Config() CorrelationConfig { return c.cfg }

// Nearest returns the index of the waypoint closest to q. A waypoint at
// exactly q wins outright; among equidistant waypoints the earliest wins.
func (c *Correlator) Nearest(q orb.Point) (int, error) {
	n := c.route.Len()
	if n == 0 {
		return -1, ErrNoData
	}
	best, bestDist := -1, math.Inf(1)
	for i := 0; i < n; i++ {
		p := c.route.waypoints[i].Point()
		if p.Lat() == q.Lat() && p.Lon() == q.Lon() {
			return i, nil
		}
		if d := c.dist(q, p); d < bestDist || best < 0 {
			best, bestDist = i, d
		}
	}
	return best, nil
}

// Opposite finds the waypoint passed near waypoint i at another time while
// heading the other way. ok is false when the route has no such waypoint,
// which is an ordinary outcome.
func (c *Correlator) Opposite(i int) (idx int, ok bool, err error) {
	n := c.route.Len()
	if n == 0 {
		return -1, false, ErrNoData
	}
	if i < 0 || i >= n {
		return -1, false, fmt.Errorf("%w: %d not in [0, %d)", ErrIndexOutOfRange, i, n)
	}

	w := c.route.waypoints[i]
	best, bestDist := -1, math.Inf(1)
	for j := 0; j < n; j++ {
		if j == i {
			continue
		}
		cand := c.route.waypoints[j]
		d := c.dist(w.Point(), cand.Point())
		if !c.closeInSpace(d) || c.closeInTime(w, cand) || !c.oppositeDirections(w, cand) {
			continue
		}
		if d < bestDist {
			best, bestDist = j, d
		}
	}
	if best >= 0 {
		return best, true, nil
	}
	return c.fallback(i)
}

// fallback drops the direction test and takes the nearest waypoint from
// another time, subject to the configured policy.
func (c *Correlator) fallback(i int) (int, bool, error) {
	if c.cfg.Fallback == fallbackNone {
		return -1, false, nil
	}
	w := c.route.waypoints[i]
	best, bestDist := -1, math.Inf(1)
	for j := 0; j < c.route.Len(); j++ {
		cand := c.route.waypoints[j]
		if j == i || c.closeInTime(w, cand) {
			continue
		}
		if d := c.dist(w.Point(), cand.Point()); d < bestDist {
			best, bestDist = j, d
		}
	}
	if best < 0 {
		return -1, false, nil
	}
	if c.cfg.Fallback == fallbackNearestIfClose && !c.closeInSpace(bestDist) {
		return -1, false, nil
	}
	return best, true, nil
}

// Pair resolves waypoint i together with its opposite-direction correlate.
func (c *Correlator) Pair(i int) (Correlate, error) {
	idx, ok, err := c.Opposite(i)
	if err != nil {
		return Correlate{Primary: i, Opposite: -1}, err
	}
	return Correlate{Primary: i, Opposite: idx, HasOpposite: ok}, nil
}

func (c *Correlator) closeInSpace(d float64) bool {
	return d < c.cfg.SpaceThreshold
}

func (c *Correlator) closeInTime(a, b Waypoint) bool {
	dt := a.Timestamp.Sub(b.Timestamp)
	if dt < 0 {
		dt = -dt
	}
	return dt <= c.cfg.TimeThreshold
}

// oppositeDirections compares courses on the circle, so 350° and 10° are 20°
// apart. An unknown course is never opposite to anything.
func (c *Correlator) oppositeDirections(a, b Waypoint) bool {
	if a.Course < 0 || b.Course < 0 {
		return false
	}
	return angleBetweenBearings(a.Course, b.Course) > c.cfg.CourseThreshold
}
