package main

import (
	"image"
	"image/color"
	"math"
	"sort"

	"github.com/fogleman/gg"
)

const (
	defaultFOV     = 75.0
	nearPlane      = 0.1
	gridSpacing    = 20.0
	polylineWidth  = 3.0
	markerOutline  = 1.5
	panelMargin    = 16.0
	defaultCanvasW = 1280
	defaultCanvasH = 720
)

var gridColor = color.RGBA{R: 255, G: 255, B: 255, A: 60}

// --- Structs ---

// CanvasRenderer draws the scene into an RGBA image with a pinhole camera.
// The ground is ray-cast per pixel; lines and markers are projected and
// stroked with gg.
type CanvasRenderer struct {
	Width, Height int
	FOV           float64
	Background    color.RGBA

	ground   Ground
	polyline []Vertex
	markers  []Marker
	pose     CameraPose
}

func NewCanvasRenderer(width, height int) *CanvasRenderer {
	if width <= 0 {
		width = defaultCanvasW
	}
	if height <= 0 {
		height = defaultCanvasH
	}
	return &CanvasRenderer{
		Width:      width,
		Height:     height,
		FOV:        defaultFOV,
		Background: skyColor,
		ground:     Ground{Size: groundPlaneSize, Color: placeholderGround},
		pose:       DefaultCameraPose(),
	}
}

// BuildGroundMesh starts a new scene: the line and markers of the previous
// one are dropped.
func (c *CanvasRenderer) BuildGroundMesh(g Ground) {
	c.ground = g
	c.Clear()
}

func (c *CanvasRenderer) BuildPolyline(vertices []Vertex) {
	c.polyline = append([]Vertex(nil), vertices...)
}

func (c *CanvasRenderer) BuildMarker(m Marker) { c.markers = append(c.markers, m) }

func (c *CanvasRenderer) SetCameraPose(pose CameraPose) { c.pose = pose }

// Clear drops the line and markers so the scene can be rebuilt.
func (c *CanvasRenderer) Clear() {
	c.polyline = nil
	c.markers = c.markers[:0]
}

// --- Camera ---

type camera struct {
	pos                 Vec3
	right, up, forward  Vec3
	focal, halfW, halfH float64
}

func (c *CanvasRenderer) camera() camera {
	pos := c.pose.Position()
	forward := c.pose.Target.Sub(pos).Normalize()
	right := forward.Cross(Vec3{0, 1, 0}).Normalize()
	if right.Len() == 0 {
		// looking straight down
		right = Vec3{1, 0, 0}
	}
	up := right.Cross(forward)
	fov := c.FOV
	if fov <= 0 || fov >= 180 {
		fov = defaultFOV
	}
	halfH := float64(c.Height) / 2
	return camera{
		pos:     pos,
		right:   right,
		up:      up,
		forward: forward,
		focal:   halfH / math.Tan(fov*math.Pi/360),
		halfW:   float64(c.Width) / 2,
		halfH:   halfH,
	}
}

// view moves a world point into camera space: x right, y up, z depth.
func (cam camera) view(p Vec3) Vec3 {
	v := p.Sub(cam.pos)
	return Vec3{v.Dot(cam.right), v.Dot(cam.up), v.Dot(cam.forward)}
}

func (cam camera) screen(v Vec3) (float64, float64) {
	return cam.halfW + cam.focal*v.X/v.Z, cam.halfH - cam.focal*v.Y/v.Z
}

// clip trims a camera-space segment to the part in front of the near plane.
func clip(a, b Vec3) (Vec3, Vec3, bool) {
	if a.Z < nearPlane && b.Z < nearPlane {
		return a, b, false
	}
	if a.Z < nearPlane {
		a = b.Add(a.Sub(b).Scale((b.Z - nearPlane) / (b.Z - a.Z)))
	} else if b.Z < nearPlane {
		b = a.Add(b.Sub(a).Scale((a.Z - nearPlane) / (a.Z - b.Z)))
	}
	return a, b, true
}

// --- Rendering ---

// Image renders the current scene.
func (c *CanvasRenderer) Image() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, c.Width, c.Height))
	cam := c.camera()
	c.drawGround(img, cam)

	dc := gg.NewContextForRGBA(img)
	c.drawGrid(dc, cam)
	c.drawPolyline(dc, cam)
	c.drawMarkers(dc, cam)
	return img
}

func (c *CanvasRenderer) drawGround(img *image.RGBA, cam camera) {
	half := c.ground.Size / 2
	if half <= 0 {
		half = groundPlaneSize / 2
	}
	var tw, th int
	if c.ground.Texture != nil {
		tw, th = c.ground.Texture.Bounds().Dx(), c.ground.Texture.Bounds().Dy()
	}

	for py := 0; py < c.Height; py++ {
		for px := 0; px < c.Width; px++ {
			dir := cam.forward.
				Add(cam.right.Scale((float64(px) + 0.5 - cam.halfW) / cam.focal)).
				Add(cam.up.Scale((cam.halfH - float64(py) - 0.5) / cam.focal))

			col := c.Background
			if dir.Y != 0 {
				if t := -cam.pos.Y / dir.Y; t > 0 {
					hit := cam.pos.Add(dir.Scale(t))
					if math.Abs(hit.X) <= half && math.Abs(hit.Z) <= half {
						col = c.ground.Color
						if tw > 0 {
							tx := int((hit.X + half) / (2 * half) * float64(tw))
							ty := int((hit.Z + half) / (2 * half) * float64(th))
							tx = min(max(tx, 0), tw-1)
							ty = min(max(ty, 0), th-1)
							col = c.ground.Texture.RGBAAt(tx, ty)
						}
					}
				}
			}
			img.SetRGBA(px, py, col)
		}
	}
}

func (c *CanvasRenderer) drawGrid(dc *gg.Context, cam camera) {
	half := c.ground.Size / 2
	if half <= 0 {
		return
	}
	dc.SetColor(gridColor)
	dc.SetLineWidth(1)
	for v := -half; v <= half+1e-9; v += gridSpacing {
		c.strokeSegment(dc, cam, Vec3{v, 0, -half}, Vec3{v, 0, half})
		c.strokeSegment(dc, cam, Vec3{-half, 0, v}, Vec3{half, 0, v})
	}
}

func (c *CanvasRenderer) strokeSegment(dc *gg.Context, cam camera, a, b Vec3) bool {
	va, vb, ok := clip(cam.view(a), cam.view(b))
	if !ok {
		return false
	}
	x1, y1 := cam.screen(va)
	x2, y2 := cam.screen(vb)
	dc.DrawLine(x1, y1, x2, y2)
	dc.Stroke()
	return true
}

func (c *CanvasRenderer) drawPolyline(dc *gg.Context, cam camera) {
	dc.SetLineWidth(polylineWidth)
	dc.SetLineCap(gg.LineCapRound)
	for i := 1; i < len(c.polyline); i++ {
		dc.SetColor(c.polyline[i-1].Color)
		c.strokeSegment(dc, cam, c.polyline[i-1].Pos, c.polyline[i].Pos)
	}
}

// drawMarkers paints far markers first. Cubes are drawn as screen-aligned
// squares.
func (c *CanvasRenderer) drawMarkers(dc *gg.Context, cam camera) {
	type projected struct {
		m    Marker
		view Vec3
	}
	visible := make([]projected, 0, len(c.markers))
	for _, m := range c.markers {
		v := cam.view(m.Pos)
		if v.Z < nearPlane {
			continue
		}
		visible = append(visible, projected{m: m, view: v})
	}
	sort.SliceStable(visible, func(i, j int) bool { return visible[i].view.Z > visible[j].view.Z })

	for _, p := range visible {
		x, y := cam.screen(p.view)
		r := math.Max(1, cam.focal*p.m.Size/p.view.Z)
		switch p.m.Shape {
		case ShapeSphere:
			dc.DrawCircle(x, y, r)
		default:
			dc.DrawRectangle(x-r/2, y-r/2, r, r)
		}
		dc.SetColor(p.m.Color)
		dc.FillPreserve()
		dc.SetColor(color.RGBA{A: 160})
		dc.SetLineWidth(markerOutline)
		dc.Stroke()
	}
}

// Project returns where a world point lands on the canvas, and false when it
// is behind the camera.
func (c *CanvasRenderer) Project(p Vec3) (float64, float64, bool) {
	cam := c.camera()
	v := cam.view(p)
	if v.Z < nearPlane {
		return 0, 0, false
	}
	x, y := cam.screen(v)
	return x, y, true
}

// --- Frames ---

// Overlay holds the panels painted over a rendered scene.
type Overlay struct {
	Summary  *SummaryPanel
	Waypoint *WaypointPanel
}

// drawOverlay puts the summary top-left and the waypoint panel top-right.
func drawOverlay(img *image.RGBA, o Overlay) {
	dc := gg.NewContextForRGBA(img)
	if o.Summary != nil {
		o.Summary.Draw(dc, panelMargin, panelMargin)
	}
	if o.Waypoint != nil {
		w, _ := o.Waypoint.Size(dc)
		o.Waypoint.Draw(dc, float64(img.Bounds().Dx())-w-panelMargin, panelMargin)
	}
}

// Snapshot renders the session's current view on c with the summary panel,
// and the waypoint panel when withWaypoint is set.
func Snapshot(s *Session, c *CanvasRenderer, withWaypoint bool) *image.RGBA {
	s.Render(c)
	img := c.Image()

	summary := s.SummaryPanel()
	o := Overlay{Summary: &summary}
	if withWaypoint {
		if wp, err := s.WaypointPanel(); err == nil {
			o.Waypoint = &wp
		}
	}
	drawOverlay(img, o)
	return img
}

// --- Icons ---

func drawSpeedIcon(dc *gg.Context, x, y, size, lineWidth float64) {
	dc.Push()
	dc.Translate(x, y)
	dc.SetLineWidth(lineWidth)

	startAngle := gg.Radians(165)
	endAngle := gg.Radians(375)
	dc.DrawArc(0, 0, size/2, startAngle, endAngle)
	dc.Stroke()

	needleAngle := gg.Radians(210)
	dc.MoveTo(0, 0)
	dc.LineTo(math.Cos(needleAngle)*size/2.2, math.Sin(needleAngle)*size/2.2)
	dc.Stroke()
	dc.Pop()
}

// drawCompassIcon draws a needle pointing along course, 0° being up.
func drawCompassIcon(dc *gg.Context, x, y, size, lineWidth, course float64) {
	dc.Push()
	dc.Translate(x, y)
	dc.SetLineWidth(lineWidth)
	dc.DrawCircle(0, 0, size/2)
	dc.Stroke()
	if course >= 0 {
		dc.Rotate(gg.Radians(course))
		dc.MoveTo(0, -size/2.4)
		dc.LineTo(size/8, 0)
		dc.LineTo(-size/8, 0)
		dc.ClosePath()
		dc.Fill()
	}
	dc.Pop()
}
