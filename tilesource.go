package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb/maptile"
	_ "golang.org/x/image/webp"
)

const userAgent = "WorkoutViewerGo/0.1"

var ErrUnknownStyle = errors.New("unknown map style")

// TileSource resolves one slippy-map tile to an image.
type TileSource interface {
	Tile(ctx context.Context, t maptile.Tile) (image.Image, error)
}

// HTTPTileSource downloads tiles from a {z}/{x}/{y} URL template, keeping
// decoded tiles in memory and the raw tiles on disk.
type HTTPTileSource struct {
	Style    MapStyle
	Is2x     bool
	CacheDir string
	Client   *http.Client

	cache sync.Map
}

func NewHTTPTileSource(style string, is2x bool, cacheDir string, timeout time.Duration) (*HTTPTileSource, error) {
	styleInfo, ok := mapStyles[style]
	if !ok {
		if !strings.Contains(style, "{z}") {
			return nil, fmt.Errorf("%w: %s", ErrUnknownStyle, style)
		}
		styleInfo = customStyle(style)
	}
	if is2x && !styleInfo.Supports2x && !styleInfo.Custom {
		return nil, fmt.Errorf("style %s does not support 2x tiles", styleInfo.Name)
	}
	return &HTTPTileSource{
		Style:    styleInfo,
		Is2x:     is2x,
		CacheDir: cacheDir,
		Client:   &http.Client{Timeout: timeout},
	}, nil
}

// customStyle wraps a raw URL template. Each template caches under its own
// directory, named from a hash of the template.
func customStyle(template string) MapStyle {
	id := uuid.NewSHA1(uuid.NameSpaceURL, []byte(template))
	return MapStyle{Name: "custom-" + id.String()[:8], URL: template, Custom: true}
}

func (s *HTTPTileSource) TileSize() int {
	if s.Is2x {
		return 2 * tileSize
	}
	return tileSize
}

func (s *HTTPTileSource) tilePath(t maptile.Tile) string {
	tileName := fmt.Sprintf("%d.png", t.Y)
	if s.Is2x {
		tileName = fmt.Sprintf("%d@2x.png", t.Y)
	}
	return filepath.Join(s.CacheDir, s.Style.Name, strconv.Itoa(int(t.Z)), strconv.Itoa(int(t.X)), tileName)
}

func (s *HTTPTileSource) tileURL(t maptile.Tile) string {
	url := strings.Replace(s.Style.URL, "{z}", strconv.Itoa(int(t.Z)), 1)
	url = strings.Replace(url, "{x}", strconv.Itoa(int(t.X)), 1)
	url = strings.Replace(url, "{y}", strconv.Itoa(int(t.Y)), 1)
	if s.Is2x {
		url = strings.Replace(url, ".png", "@2x.png", 1)
	}
	return url
}

func (s *HTTPTileSource) Tile(ctx context.Context, t maptile.Tile) (image.Image, error) {
	tilePath := s.tilePath(t)

	if img, ok := s.cache.Load(tilePath); ok {
		return img.(image.Image), nil
	}

	if s.CacheDir != "" {
		if img, err := s.readCached(tilePath); err == nil {
			s.cache.Store(tilePath, img)
			return img, nil
		}
	}

	// Download
	url := s.tileURL(t)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	for k, v := range s.Style.Headers {
		req.Header.Set(k, v)
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download tile %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download tile %s: status %d", url, resp.StatusCode)
	}

	img, _, err := image.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode tile %s: %w", url, err)
	}
	if size := s.TileSize(); img.Bounds().Dx() != size || img.Bounds().Dy() != size {
		return nil, fmt.Errorf("tile %s is %dx%d, want %dx%d", url, img.Bounds().Dx(), img.Bounds().Dy(), size, size)
	}

	if s.CacheDir != "" {
		if err := writeCached(tilePath, img); err != nil {
			log.Printf("Failed to cache tile %s: %v", tilePath, err)
		}
	}

	s.cache.Store(tilePath, img)
	return img, nil
}

func (s *HTTPTileSource) readCached(tilePath string) (image.Image, error) {
	file, err := os.Open(tilePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	img, _, err := image.Decode(file)
	if err != nil {
		return nil, err
	}
	return img, nil
}

func writeCached(tilePath string, img image.Image) error {
	if err := os.MkdirAll(filepath.Dir(tilePath), 0755); err != nil {
		return err
	}
	out, err := os.Create(tilePath)
	if err != nil {
		return err
	}
	defer out.Close()
	// Re-encode to PNG to save
	return png.Encode(out, img)
}
