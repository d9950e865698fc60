package tiles

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"io"
	"log"
	"math"
	"net/http"

	"github.com/paulmach/orb"
)

// TileSize is the pixel width and height of one slippy-map tile.
const TileSize = 256

// userAgent identifies us to the tile servers, which reject anonymous bulk
// clients.
const userAgent = "trailcover/0.1"

// Map is the stitched base map cropped to the bounding box.
type Map struct {
	Image  *image.RGBA
	Width  int
	Height int
	bound  orb.Bound
}

// NewMap wraps an already-built image covering bound.
func NewMap(img *image.RGBA, bound orb.Bound) *Map {
	return &Map{
		Image:  img,
		Width:  img.Bounds().Dx(),
		Height: img.Bounds().Dy(),
		bound:  bound,
	}
}

// Project converts a WGS84 point to pixel coordinates in the cropped image:
// linear in longitude, Web-Mercator in latitude.
func (m *Map) Project(p orb.Point) (float64, float64) {
	xFrac := (p.Lon() - m.bound.Min.Lon()) / (m.bound.Max.Lon() - m.bound.Min.Lon())
	yFrac := (mercatorY(p.Lat()) - mercatorY(m.bound.Max.Lat())) /
		(mercatorY(m.bound.Min.Lat()) - mercatorY(m.bound.Max.Lat()))
	return xFrac * float64(m.Width), yFrac * float64(m.Height)
}

// FetchMap downloads (or loads from cache) every tile covering bound at
// zoom, stitches them into one image and crops it to the exact bounding box
// pixel rectangle. cache may be nil to force network fetches.
func FetchMap(client *http.Client, cache *Cache, bound orb.Bound, zoom int, provider Provider) (*Map, error) {
	xMin := lonToTile(bound.Min.Lon(), zoom)
	xMax := lonToTile(bound.Max.Lon(), zoom)
	yMin := latToTile(bound.Max.Lat(), zoom)
	yMax := latToTile(bound.Min.Lat(), zoom)

	tilesX := xMax - xMin + 1
	tilesY := yMax - yMin + 1
	log.Printf("Fetching %dx%d = %d tiles at zoom %d from %s",
		tilesX, tilesY, tilesX*tilesY, zoom, provider.Name())

	stitched := image.NewRGBA(image.Rect(0, 0, tilesX*TileSize, tilesY*TileSize))
	for ty := yMin; ty <= yMax; ty++ {
		for tx := xMin; tx <= xMax; tx++ {
			tile, err := fetchTile(client, cache, provider, zoom, tx, ty)
			if err != nil {
				return nil, err
			}
			at := image.Pt((tx-xMin)*TileSize, (ty-yMin)*TileSize)
			draw.Draw(stitched, image.Rectangle{Min: at, Max: at.Add(image.Pt(TileSize, TileSize))},
				tile, tile.Bounds().Min, draw.Src)
		}
	}

	n := math.Exp2(float64(zoom))
	pxLeft := ((bound.Min.Lon()/360.0+0.5)*n - float64(xMin)) * TileSize
	pxRight := ((bound.Max.Lon()/360.0+0.5)*n - float64(xMin)) * TileSize
	pxTop := (mercatorY(bound.Max.Lat())*n - float64(yMin)) * TileSize
	pxBottom := (mercatorY(bound.Min.Lat())*n - float64(yMin)) * TileSize

	crop := image.Rect(
		int(math.Floor(pxLeft)),
		int(math.Floor(pxTop)),
		int(math.Floor(pxLeft))+int(math.Ceil(pxRight-pxLeft)),
		int(math.Floor(pxTop))+int(math.Ceil(pxBottom-pxTop)),
	)
	cropped := image.NewRGBA(image.Rect(0, 0, crop.Dx(), crop.Dy()))
	draw.Draw(cropped, cropped.Bounds(), stitched, crop.Min, draw.Src)

	log.Printf("Stitched and cropped to %dx%d pixels", crop.Dx(), crop.Dy())
	return NewMap(cropped, bound), nil
}

func fetchTile(client *http.Client, cache *Cache, provider Provider, z, x, y int) (image.Image, error) {
	if cache != nil {
		raw, ok, err := cache.Get(provider, z, x, y)
		if err != nil {
			return nil, fmt.Errorf("tile cache read: %w", err)
		}
		if ok {
			img, err := png.Decode(bytes.NewReader(raw))
			if err != nil {
				return nil, fmt.Errorf("decode cached tile %d/%d/%d: %w", z, x, y, err)
			}
			return img, nil
		}
	}

	url := provider.URL(z, x, y)
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch tile %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch tile %s: unexpected status %s", url, resp.Status)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read tile %s: %w", url, err)
	}

	if cache != nil {
		if err := cache.Put(provider, z, x, y, raw); err != nil {
			log.Printf("Warning: could not cache tile %d/%d/%d: %v", z, x, y, err)
		}
	}

	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode tile %s: %w", url, err)
	}
	return img, nil
}

func lonToTile(lon float64, zoom int) int {
	n := math.Exp2(float64(zoom))
	return int(math.Floor((lon/360.0 + 0.5) * n))
}

func latToTile(lat float64, zoom int) int {
	n := math.Exp2(float64(zoom))
	return int(math.Floor(mercatorY(lat) * n))
}

// mercatorY maps latitude to the Web-Mercator Y fraction, 0 at the top of
// the world map and 1 at the bottom.
func mercatorY(lat float64) float64 {
	latRad := lat * math.Pi / 180.0
	return (1.0 - math.Asinh(math.Tan(latRad))/math.Pi) / 2.0
}
