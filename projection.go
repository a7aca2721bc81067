package main

import (
	"errors"
	"fmt"
	"image/color"
	"math"

	"github.com/go-playground/validator/v10"
)

const (
	// scaleEpsilon stands in for the scale of a route with no footprint.
	scaleEpsilon = 1e-12
	slowHue      = 0.3
)

var (
	ErrInvalidProjection = errors.New("invalid projection config")

	validate = validator.New()
)

// --- Structs ---

// ProjectionConfig maps geodetic degrees onto the ground plane. Rotation is in
// radians around the vertical axis.
type ProjectionConfig struct {
	LatScale       float64 `yaml:"lat_scale" validate:"ne=0"`
	LngScale       float64 `yaml:"lng_scale" validate:"ne=0"`
	Rotation       float64 `yaml:"rotation"`
	LatOffset      float64 `yaml:"lat_offset"`
	LngOffset      float64 `yaml:"lng_offset"`
	GroundSize     float64 `yaml:"ground_size" validate:"gt=0"`
	CenterOffset   float64 `yaml:"center_offset"`
	ElevationScale float64 `yaml:"elevation_scale" validate:"gte=0"`
	FlipLatitude   bool    `yaml:"flip_latitude"`
	FlipLongitude  bool    `yaml:"flip_longitude"`
	SwapAxes       bool    `yaml:"swap_axes"`
}

type ProjectedPoint struct {
	X, Y, Z float64
	Speed   float64
	Index   int
}

// DefaultProjection is the calibration the viewer ships with.
func DefaultProjection() ProjectionConfig {
	return ProjectionConfig{
		LatScale:       0.849,
		LngScale:       0.861,
		LatOffset:      -0.0435,
		LngOffset:      0.0116,
		GroundSize:     180,
		CenterOffset:   90,
		ElevationScale: 0.2,
		FlipLatitude:   true,
	}
}

// ResetProjection is the uncalibrated starting point offered by the controls.
func ResetProjection() ProjectionConfig {
	return ProjectionConfig{
		LatScale:       1,
		LngScale:       1,
		GroundSize:     180,
		CenterOffset:   90,
		ElevationScale: 0.1,
		FlipLatitude:   true,
	}
}

func (c ProjectionConfig) Validate() error {
	fields := []struct {
		name  string
		value float64
	}{
		{"lat_scale", c.LatScale},
		{"lng_scale", c.LngScale},
		{"rotation", c.Rotation},
		{"lat_offset", c.LatOffset},
		{"lng_offset", c.LngOffset},
		{"ground_size", c.GroundSize},
		{"center_offset", c.CenterOffset},
		{"elevation_scale", c.ElevationScale},
	}
	for _, f := range fields {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return fmt.Errorf("%w: %s must be finite, got %v", ErrInvalidProjection, f.name, f.value)
		}
	}
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidProjection, err)
	}
	return nil
}

// --- Projection ---

// Project maps every waypoint onto the ground plane. It is a pure function of
// its inputs; a config change always means projecting the whole route again,
// since the scale depends on the route's full extent.
func Project(route *Route, cfg ProjectionConfig) []ProjectedPoint {
	n := route.Len()
	points := make([]ProjectedPoint, n)
	if n == 0 {
		return points
	}

	b := route.Bound()
	minLat, maxLat := b.Min.Lat(), b.Max.Lat()
	minLng, maxLng := b.Min.Lon(), b.Max.Lon()

	maxRange := math.Max(maxLat-minLat, maxLng-minLng)
	degenerate := !(maxRange > 0)
	scale := maxRange / cfg.GroundSize
	if degenerate || scale < scaleEpsilon {
		scale = scaleEpsilon
	}

	cos, sin := math.Cos(cfg.Rotation), math.Sin(cfg.Rotation)

	for i := 0; i < n; i++ {
		w := route.waypoints[i]
		p := ProjectedPoint{
			Y:     finiteOrZero(w.Altitude) * cfg.ElevationScale,
			Speed: finiteOrZero(w.Speed),
			Index: i,
		}
		if degenerate {
			points[i] = p
			continue
		}

		lat := (w.Lat-minLat)*cfg.LatScale + cfg.LatOffset
		lng := (w.Lon-minLng)*cfg.LngScale + cfg.LngOffset

		if cfg.FlipLongitude {
			lng = -lng
		}
		if cfg.FlipLatitude {
			lat = -lat
		}

		if cfg.Rotation != 0 {
			lat, lng = lat*cos-lng*sin, lat*sin+lng*cos
		}

		if cfg.SwapAxes {
			p.X = lat/scale - cfg.CenterOffset
			p.Z = lng/scale - cfg.CenterOffset
		} else {
			p.X = lng/scale - cfg.CenterOffset
			p.Z = lat/scale - cfg.CenterOffset
		}
		points[i] = p
	}
	return points
}

// Projector holds the last configuration that passed validation.
type Projector struct {
	cfg ProjectionConfig
}

func NewProjector(cfg ProjectionConfig) (*Projector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Projector{cfg: cfg}, nil
}

func (p *Projector) Config() ProjectionConfig { return p.cfg }

// SetConfig replaces the configuration wholesale. A rejected config leaves the
// current one in effect.
func (p *Projector) SetConfig(cfg ProjectionConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	p.cfg = cfg
	return nil
}

// Update applies a partial edit on top of the current configuration.
func (p *Projector) Update(edit func(*ProjectionConfig)) error {
	next := p.cfg
	edit(&next)
	return p.SetConfig(next)
}

func (p *Projector) Project(route *Route) []ProjectedPoint {
	return Project(route, p.cfg)
}

// --- Speed Coloring ---

// SpeedHues colors slow points green (hue 0.3) and the fastest red (hue 0).
func SpeedHues(points []ProjectedPoint) []float64 {
	hues := make([]float64, len(points))
	if len(points) == 0 {
		return hues
	}
	minSpeed, maxSpeed := points[0].Speed, points[0].Speed
	for _, p := range points[1:] {
		minSpeed = math.Min(minSpeed, p.Speed)
		maxSpeed = math.Max(maxSpeed, p.Speed)
	}
	for i, p := range points {
		if maxSpeed > minSpeed {
			hues[i] = slowHue * (1 - (p.Speed-minSpeed)/(maxSpeed-minSpeed))
		} else {
			hues[i] = slowHue
		}
	}
	return hues
}

func SpeedColor(hue float64) color.RGBA {
	return hslColor(hue, 1, 0.5)
}

func hslColor(h, s, l float64) color.RGBA {
	h = math.Mod(h, 1)
	if h < 0 {
		h++
	}
	var r, g, b float64
	if s == 0 {
		r, g, b = l, l, l
	} else {
		q := l * (1 + s)
		if l >= 0.5 {
			q = l + s - l*s
		}
		p := 2*l - q
		r = hueToRGB(p, q, h+1.0/3)
		g = hueToRGB(p, q, h)
		b = hueToRGB(p, q, h-1.0/3)
	}
	return color.RGBA{R: uint8(math.Round(r * 255)), G: uint8(math.Round(g * 255)), B: uint8(math.Round(b * 255)), A: 255}
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t++
	}
	if t > 1 {
		t--
	}
	switch {
	case t < 1.0/6:
		return p + (q-p)*6*t
	case t < 0.5:
		return q
	case t < 2.0/3:
		return p + (q-p)*(2.0/3-t)*6
	}
	return p
}
