package main

import (
	"image"
	"image/color"
	"math"
)

const (
	groundPlaneSize    = 200.0
	groundTextureSize  = 1024
	endpointRadius     = 1.0
	waypointCubeSize   = 0.5
	currentCubeScale   = 3.0
	correlateCubeScale = 2.0
)

var (
	startColor = color.RGBA{R: 0x00, G: 0xFF, B: 0x00, A: 0xFF}
	endColor   = color.RGBA{R: 0xFF, G: 0x00, B: 0x00, A: 0xFF}
	skyColor   = color.RGBA{R: 0x87, G: 0xCE, B: 0xEB, A: 0xFF}
)

// --- Structs ---

type Vec3 struct {
	X, Y, Z float64
}

func (a Vec3) Add(b Vec3) Vec3      { return Vec3{a.X + b.X, a.Y + b.Y, a.Z + b.Z} }
func (a Vec3) Sub(b Vec3) Vec3      { return Vec3{a.X - b.X, a.Y - b.Y, a.Z - b.Z} }
func (a Vec3) Scale(s float64) Vec3 { return Vec3{a.X * s, a.Y * s, a.Z * s} }
func (a Vec3) Dot(b Vec3) float64   { return a.X*b.X + a.Y*b.Y + a.Z*b.Z }
func (a Vec3) Len() float64         { return math.Sqrt(a.Dot(a)) }
func (a Vec3) Cross(b Vec3) Vec3 {
	return Vec3{a.Y*b.Z - a.Z*b.Y, a.Z*b.X - a.X*b.Z, a.X*b.Y - a.Y*b.X}
}

func (a Vec3) Normalize() Vec3 {
	l := a.Len()
	if l == 0 {
		return a
	}
	return a.Scale(1 / l)
}

// Ground is the square plane under the route, centred on the origin. Texture
// is nil when the ground is a flat color.
type Ground struct {
	Size    float64
	Texture *image.RGBA
	Color   color.RGBA
}

type Vertex struct {
	Pos   Vec3
	Color color.RGBA
}

type MarkerShape int

const (
	ShapeSphere MarkerShape = iota
	ShapeCube
)

type MarkerRole int

const (
	RoleWaypoint MarkerRole = iota
	RoleStart
	RoleEnd
	RoleCurrent
	RoleCorrelate
)

type Marker struct {
	Shape MarkerShape
	Role  MarkerRole
	Pos   Vec3
	Size  float64
	Color color.RGBA
	Index int
}

// CameraPose orbits Target at Distance. RotationX tilts above the ground,
// RotationY turns around the vertical axis; both in radians.
type CameraPose struct {
	RotationX float64 `yaml:"rotation_x"`
	RotationY float64 `yaml:"rotation_y"`
	Distance  float64 `yaml:"distance" validate:"gt=0"`
	Target    Vec3    `yaml:"-"`
}

func DefaultCameraPose() CameraPose {
	return CameraPose{RotationX: 0.70, Distance: 100}
}

func (c CameraPose) Position() Vec3 {
	return c.Target.Add(Vec3{
		X: c.Distance * math.Sin(c.RotationY) * math.Cos(c.RotationX),
		Y: c.Distance * math.Sin(c.RotationX),
		Z: c.Distance * math.Cos(c.RotationY) * math.Cos(c.RotationX),
	})
}

// Renderer is anything that can draw the route scene.
type Renderer interface {
	BuildGroundMesh(g Ground)
	BuildPolyline(vertices []Vertex)
	BuildMarker(m Marker)
	SetCameraPose(pose CameraPose)
}

// Highlight marks the waypoint under the cursor and its correlate. -1 means
// nothing is highlighted.
type Highlight struct {
	Current   int
	Correlate int
}

func NoHighlight() Highlight { return Highlight{Current: -1, Correlate: -1} }

func HighlightFor(c Correlate) Highlight {
	h := Highlight{Current: c.Primary, Correlate: -1}
	if c.HasOpposite {
		h.Correlate = c.Opposite
	}
	return h
}

// --- Scene Building ---

// BuildScene feeds the whole route scene to r: ground, speed-colored line,
// start and end spheres, one cube per waypoint, then the camera.
func BuildScene(r Renderer, points []ProjectedPoint, basemap *Basemap, hl Highlight, pose CameraPose) {
	ground := Ground{Size: groundPlaneSize, Color: placeholderGround}
	if basemap != nil && !basemap.Placeholder && basemap.Image != nil {
		ground.Texture = basemap.Texture(groundTextureSize)
	} else if basemap != nil {
		ground.Color = basemap.Color
	}
	r.BuildGroundMesh(ground)

	if len(points) > 0 {
		hues := SpeedHues(points)
		vertices := make([]Vertex, len(points))
		for i, p := range points {
			vertices[i] = Vertex{Pos: Vec3{p.X, p.Y, p.Z}, Color: SpeedColor(hues[i])}
		}
		r.BuildPolyline(vertices)

		first := points[0]
		r.BuildMarker(Marker{
			Shape: ShapeSphere,
			Role:  RoleStart,
			Pos:   Vec3{first.X, first.Y + endpointRadius, first.Z},
			Size:  endpointRadius,
			Color: startColor,
			Index: first.Index,
		})
		if len(points) > 1 {
			last := points[len(points)-1]
			r.BuildMarker(Marker{
				Shape: ShapeSphere,
				Role:  RoleEnd,
				Pos:   Vec3{last.X, last.Y + endpointRadius, last.Z},
				Size:  endpointRadius,
				Color: endColor,
				Index: last.Index,
			})
		}

		for i, p := range points {
			size, role := waypointCubeSize, RoleWaypoint
			switch i {
			case hl.Current:
				size, role = waypointCubeSize*currentCubeScale, RoleCurrent
			case hl.Correlate:
				size, role = waypointCubeSize*correlateCubeScale, RoleCorrelate
			}
			r.BuildMarker(Marker{
				Shape: ShapeCube,
				Role:  role,
				Pos:   Vec3{p.X, p.Y + size/2, p.Z},
				Size:  size,
				Color: SpeedColor(hues[i]),
				Index: p.Index,
			})
		}
	}

	if pose.Distance <= 0 {
		pose = DefaultCameraPose()
	}
	r.SetCameraPose(pose)
}
