package main

import (
	"context"
	"errors"
	"image"
	"image/color"
	"log"
	"math"
	"sync"
	"time"

	"github.com/fogleman/gg"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
	"github.com/schollz/progressbar/v3"
	xdraw "golang.org/x/image/draw"
)

var (
	placeholderGround = color.RGBA{R: 0x90, G: 0xEE, B: 0x90, A: 0xFF}
	errNilTile        = errors.New("tile source returned no image")
	errEmptyTileRange = errors.New("tile range is empty")
)

// --- Structs ---

// Basemap is the ground image under a route: either a tile composite or a
// flat placeholder color.
type Basemap struct {
	Image       *image.RGBA
	Tiles       TileBounds
	GeoBound    orb.Bound
	Loaded      int
	Failed      int
	Placeholder bool
	Color       color.RGBA

	texMu    sync.Mutex
	textures map[int]*image.RGBA
}

func PlaceholderBasemap() *Basemap {
	return &Basemap{Placeholder: true, Color: placeholderGround}
}

// Texture stretches the basemap over a size×size square, the way it is laid
// onto the ground plane. Results are cached per size and must not be modified.
func (b *Basemap) Texture(size int) *image.RGBA {
	if b == nil {
		return uniformTexture(size, placeholderGround)
	}
	if b.Placeholder || b.Image == nil {
		return uniformTexture(size, b.Color)
	}

	b.texMu.Lock()
	defer b.texMu.Unlock()
	if tex, ok := b.textures[size]; ok {
		return tex
	}
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), b.Image, b.Image.Bounds(), xdraw.Src, nil)
	if b.textures == nil {
		b.textures = make(map[int]*image.RGBA)
	}
	b.textures[size] = dst
	return dst
}

func uniformTexture(size int, c color.RGBA) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	xdraw.Draw(dst, dst.Bounds(), image.NewUniform(c), image.Point{}, xdraw.Src)
	return dst
}

type tileResult struct {
	tile maptile.Tile
	img  image.Image
	err  error
}

// tileTally counts settled tiles. A tile settles once, either loaded or
// failed; settle reports true exactly once, for the tile that completes the set.
type tileTally struct {
	total, loaded, failed int
	fired                 bool
}

func (t *tileTally) settle(ok bool) bool {
	if ok {
		t.loaded++
	} else {
		t.failed++
	}
	if t.fired || t.loaded+t.failed != t.total {
		return false
	}
	t.fired = true
	return true
}

// --- Compositing ---

type Compositor struct {
	Source      TileSource
	TileSize    int
	Concurrency int
	Quiet       bool
	Metrics     *Metrics

	// Brightness shifts every channel by a fraction of full scale; Contrast
	// stretches around mid-grey. Zero Contrast means unchanged.
	Brightness float64
	Contrast   float64

	// OnComplete runs once per composite, after every tile has loaded or failed.
	OnComplete func(*Basemap)
}

// Composite fetches every tile in tb concurrently and stitches them into one
// image. Failed tiles are logged and left blank; they never fail the composite.
func (c *Compositor) Composite(ctx context.Context, tb TileBounds) (*Basemap, error) {
	size := c.TileSize
	if size <= 0 {
		size = tileSize
	}
	concurrency := c.Concurrency
	if concurrency <= 0 {
		concurrency = tileFetchConcurrency
	}

	total := tb.Count()
	canvas := image.NewRGBA(image.Rect(0, 0, tb.Cols()*size, tb.Rows()*size))
	dc := gg.NewContextForRGBA(canvas)

	var bar *progressbar.ProgressBar
	if c.Quiet {
		bar = progressbar.DefaultSilent(int64(total))
	} else {
		bar = progressbar.Default(int64(total), "Downloading Tiles")
	}

	results := make(chan tileResult)
	go func() {
		var wg sync.WaitGroup
		limit := make(chan struct{}, concurrency)
		for _, t := range tb.Tiles() {
			wg.Add(1)
			limit <- struct{}{}
			go func(t maptile.Tile) {
				defer wg.Done()
				defer func() { <-limit }()
				start := time.Now()
				img, err := c.Source.Tile(ctx, t)
				if err == nil && img == nil {
					err = errNilTile
				}
				c.Metrics.tileSettled(err == nil, time.Since(start))
				results <- tileResult{tile: t, img: img, err: err}
			}(t)
		}
		wg.Wait()
		close(results)
	}()

	tally := tileTally{total: total}
	var basemap *Basemap
	for res := range results {
		ok := res.err == nil
		if ok {
			drawX := (int(res.tile.X) - tb.MinX) * size
			drawY := (int(res.tile.Y) - tb.MinY) * size
			dc.DrawImage(res.img, drawX, drawY)
		} else {
			log.Printf("Failed to load tile %d/%d/%d: %v", res.tile.Z, res.tile.X, res.tile.Y, res.err)
		}
		bar.Add(1)

		if tally.settle(ok) && ctx.Err() == nil {
			if contrast := c.contrast(); c.Brightness != 0 || contrast != 1 {
				adjustTone(canvas, c.Brightness, contrast)
			}
			basemap = &Basemap{
				Image:    canvas,
				Tiles:    tb,
				GeoBound: tb.GeoBound(),
				Loaded:   tally.loaded,
				Failed:   tally.failed,
			}
			c.Metrics.compositeDone()
			if c.OnComplete != nil {
				c.OnComplete(basemap)
			}
		}
	}
	bar.Finish()

	// a cancelled composite never completes, so OnComplete and the result agree
	if basemap == nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, errEmptyTileRange
	}
	return basemap, nil
}

func (c *Compositor) contrast() float64 {
	if c.Contrast == 0 {
		return 1
	}
	return c.Contrast
}

// adjustTone applies brightness, then contrast, in place. Transparent pixels
// (tiles that failed) are skipped.
func adjustTone(img *image.RGBA, brightness, contrast float64) {
	for i := 0; i+3 < len(img.Pix); i += 4 {
		if img.Pix[i+3] == 0 {
			continue
		}
		for ch := i; ch < i+3; ch++ {
			v := float64(img.Pix[ch]) + brightness*255
			v = (v-128)*contrast + 128
			img.Pix[ch] = uint8(math.Max(0, math.Min(255, v)))
		}
	}
}

// BuildBasemap plans and composites the basemap for a route, falling back to
// the flat placeholder when the route has no waypoints.
func (c *Compositor) BuildBasemap(ctx context.Context, route *Route) (*Basemap, error) {
	tb, ok := PlanBasemap(route)
	if !ok {
		return PlaceholderBasemap(), nil
	}
	log.Printf("Compositing %d basemap tiles at zoom %d", tb.Count(), tb.Zoom)
	return c.Composite(ctx, tb)
}
