package main

import (
	"image"
	"math"
	"testing"
)

type recordingRenderer struct {
	grounds  []Ground
	polyline []Vertex
	markers  []Marker
	pose     CameraPose
	poses    int
}

func (r *recordingRenderer) BuildGroundMesh(g Ground)        { r.grounds = append(r.grounds, g) }
func (r *recordingRenderer) BuildPolyline(vertices []Vertex) { r.polyline = vertices }
func (r *recordingRenderer) BuildMarker(m Marker)            { r.markers = append(r.markers, m) }
func (r *recordingRenderer) SetCameraPose(pose CameraPose) {
	r.pose = pose
	r.poses++
}

func (r *recordingRenderer) role(role MarkerRole) []Marker {
	var out []Marker
	for _, m := range r.markers {
		if m.Role == role {
			out = append(out, m)
		}
	}
	return out
}

func TestBuildSceneMarkers(t *testing.T) {
	points := Project(straightRoute(t, 5), DefaultProjection())
	rec := &recordingRenderer{}
	BuildScene(rec, points, PlaceholderBasemap(), Highlight{Current: 2, Correlate: 4}, DefaultCameraPose())

	if len(rec.grounds) != 1 || len(rec.polyline) != 5 || rec.poses != 1 {
		t.Fatalf("grounds %d, polyline %d, poses %d", len(rec.grounds), len(rec.polyline), rec.poses)
	}
	if len(rec.markers) != 7 {
		t.Fatalf("markers = %d, want start, end and five cubes", len(rec.markers))
	}

	start, end := rec.role(RoleStart), rec.role(RoleEnd)
	if len(start) != 1 || start[0].Shape != ShapeSphere || start[0].Color != startColor {
		t.Errorf("start = %+v", start)
	}
	if len(end) != 1 || end[0].Index != 4 || end[0].Color != endColor {
		t.Errorf("end = %+v", end)
	}
	if got, want := start[0].Pos.Y, points[0].Y+endpointRadius; got != want {
		t.Errorf("start sphere y = %v, want %v", got, want)
	}

	cur, corr, plain := rec.role(RoleCurrent), rec.role(RoleCorrelate), rec.role(RoleWaypoint)
	if len(cur) != 1 || cur[0].Index != 2 || cur[0].Size != 1.5 {
		t.Errorf("current = %+v", cur)
	}
	if len(corr) != 1 || corr[0].Index != 4 || corr[0].Size != 1 {
		t.Errorf("correlate = %+v", corr)
	}
	if len(plain) != 3 {
		t.Errorf("plain cubes = %d", len(plain))
	}
	for _, m := range append(cur, plain...) {
		if m.Shape != ShapeCube {
			t.Errorf("waypoint marker %d is not a cube", m.Index)
		}
		if got, want := m.Pos.Y, points[m.Index].Y+m.Size/2; math.Abs(got-want) > 1e-12 {
			t.Errorf("cube %d sits at y %v, want %v", m.Index, got, want)
		}
	}
	if rec.polyline[0].Color != SpeedColor(slowHue) {
		t.Errorf("slowest vertex color = %v", rec.polyline[0].Color)
	}
}

func TestBuildSceneSinglePoint(t *testing.T) {
	points := Project(straightRoute(t, 1), DefaultProjection())
	rec := &recordingRenderer{}
	BuildScene(rec, points, nil, NoHighlight(), DefaultCameraPose())
	if len(rec.role(RoleEnd)) != 0 {
		t.Error("single point route has an end sphere")
	}
	if len(rec.role(RoleStart)) != 1 || len(rec.role(RoleWaypoint)) != 1 {
		t.Errorf("markers = %+v", rec.markers)
	}
}

func TestBuildSceneEmpty(t *testing.T) {
	rec := &recordingRenderer{}
	BuildScene(rec, nil, PlaceholderBasemap(), NoHighlight(), CameraPose{})
	if len(rec.markers) != 0 || rec.polyline != nil {
		t.Errorf("empty scene drew %d markers", len(rec.markers))
	}
	if rec.pose != DefaultCameraPose() {
		t.Errorf("pose = %+v, want the default", rec.pose)
	}
}

func TestBuildSceneGround(t *testing.T) {
	rec := &recordingRenderer{}
	BuildScene(rec, nil, PlaceholderBasemap(), NoHighlight(), DefaultCameraPose())
	g := rec.grounds[0]
	if g.Texture != nil || g.Color != placeholderGround || g.Size != groundPlaneSize {
		t.Errorf("placeholder ground = %+v", g)
	}

	bm := &Basemap{Image: image.NewRGBA(image.Rect(0, 0, 8, 8))}
	BuildScene(rec, nil, bm, NoHighlight(), DefaultCameraPose())
	g = rec.grounds[1]
	if g.Texture == nil || g.Texture.Bounds().Dx() != groundTextureSize {
		t.Errorf("textured ground = %+v", g.Texture)
	}
}

func TestHighlightFor(t *testing.T) {
	if h := HighlightFor(Correlate{Primary: 3, Opposite: 9, HasOpposite: true}); h != (Highlight{3, 9}) {
		t.Errorf("HighlightFor = %+v", h)
	}
	if h := HighlightFor(Correlate{Primary: 3, Opposite: -1}); h != (Highlight{3, -1}) {
		t.Errorf("HighlightFor without correlate = %+v", h)
	}
}

func TestCameraPosePosition(t *testing.T) {
	p := CameraPose{RotationX: math.Pi / 2, Distance: 10}.Position()
	if math.Abs(p.X) > 1e-9 || math.Abs(p.Y-10) > 1e-9 || math.Abs(p.Z) > 1e-9 {
		t.Errorf("overhead camera at %+v", p)
	}
	p = CameraPose{Distance: 10, Target: Vec3{1, 2, 3}}.Position()
	if p != (Vec3{1, 2, 13}) {
		t.Errorf("level camera at %+v", p)
	}
}
