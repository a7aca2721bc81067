package main

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
)

const (
	tileCacheDir         = "tiles"
	tileFetchConcurrency = 8
	tileSize             = 256
	tilePadding          = 0.001
	maxMercatorLat       = 85.0511287798066
)

// --- Structs ---

type MapStyle struct {
	Name       string
	URL        string
	Headers    map[string]string
	Supports2x bool
	Custom     bool
}

var mapStyles = map[string]MapStyle{
	"default":  {Name: "default", URL: "https://tile.openstreetmap.org/{z}/{x}/{y}.png"},
	"cyclosm":  {Name: "cyclosm", URL: "https://c.tile-cyclosm.openstreetmap.fr/cyclosm/{z}/{x}/{y}.png"},
	"positron": {Name: "positron", URL: "https://d.basemaps.cartocdn.com/light_all/{z}/{x}/{y}.png", Supports2x: true},
	"voyager":  {Name: "voyager", URL: "https://d.basemaps.cartocdn.com/rastertiles/voyager/{z}/{x}/{y}.png", Supports2x: true},
	"topo":     {Name: "topo", URL: "https://a.tile.opentopomap.org/{z}/{x}/{y}.png"},
}

// TileBounds is an inclusive rectangle of slippy-map tiles at one zoom.
type TileBounds struct {
	MinX, MaxX int
	MinY, MaxY int
	Zoom       int
}

func (t TileBounds) Cols() int  { return t.MaxX - t.MinX + 1 }
func (t TileBounds) Rows() int  { return t.MaxY - t.MinY + 1 }
func (t TileBounds) Count() int { return t.Cols() * t.Rows() }

// Tiles lists the range column by column, the order they are requested in.
func (t TileBounds) Tiles() []maptile.Tile {
	tiles := make([]maptile.Tile, 0, t.Count())
	z := maptile.Zoom(t.Zoom)
	for x := t.MinX; x <= t.MaxX; x++ {
		for y := t.MinY; y <= t.MaxY; y++ {
			tiles = append(tiles, maptile.New(uint32(x), uint32(y), z))
		}
	}
	return tiles
}

// GeoBound is the geographic area covered by the composite image.
func (t TileBounds) GeoBound() orb.Bound {
	z := maptile.Zoom(t.Zoom)
	nw := maptile.New(uint32(t.MinX), uint32(t.MinY), z).Bound()
	se := maptile.New(uint32(t.MaxX), uint32(t.MaxY), z).Bound()
	return nw.Union(se)
}

// --- Tile Math ---

// ChooseZoom picks a coarse zoom level from the larger side of the box. Spans
// exactly on a threshold resolve to the lower zoom.
func ChooseZoom(b orb.Bound) int {
	span := math.Max(b.Max.Lat()-b.Min.Lat(), b.Max.Lon()-b.Min.Lon())
	switch {
	case span > 1:
		return 10
	case span > 0.1:
		return 12
	case span > 0.01:
		return 14
	case span > 0.001:
		return 16
	}
	return 18
}

// ComputeTileRange covers b with tiles at zoom. Tile Y grows southward, so the
// northern edge gives MinY.
func ComputeTileRange(b orb.Bound, zoom int) TileBounds {
	minX, minY := deg2num(b.Max.Lat(), b.Min.Lon(), zoom)
	maxX, maxY := deg2num(b.Min.Lat(), b.Max.Lon(), zoom)

	last := 1<<uint(zoom) - 1
	tb := TileBounds{
		MinX: clampTile(minX, last),
		MaxX: clampTile(maxX, last),
		MinY: clampTile(minY, last),
		MaxY: clampTile(maxY, last),
		Zoom: zoom,
	}
	if tb.MaxX < tb.MinX {
		tb.MaxX = tb.MinX
	}
	if tb.MaxY < tb.MinY {
		tb.MaxY = tb.MinY
	}
	return tb
}

// PlanBasemap picks the zoom from the route's own extent and covers the
// padded extent with tiles. An empty route has no basemap to plan.
func PlanBasemap(route *Route) (TileBounds, bool) {
	if route.Len() == 0 {
		return TileBounds{}, false
	}
	b := route.Bound()
	zoom := ChooseZoom(b)
	return ComputeTileRange(b.Pad(tilePadding), zoom), true
}

func deg2num(lat, lon float64, zoom int) (float64, float64) {
	lat = math.Max(-maxMercatorLat, math.Min(maxMercatorLat, lat))
	latRad := lat * math.Pi / 180
	n := math.Pow(2, float64(zoom))
	xtile := (lon + 180) / 360 * n
	ytile := (1 - math.Asinh(math.Tan(latRad))/math.Pi) / 2 * n
	return xtile, ytile
}

func clampTile(v float64, last int) int {
	t := int(math.Floor(v))
	if t < 0 {
		return 0
	}
	if t > last {
		return last
	}
	return t
}
