// Package render draws the coverage result onto the stitched base map and
// writes it out as a PNG.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"log"
	"math"
	"os"
	"path/filepath"

	"github.com/paulmach/orb"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"

	"github.com/mveyrat/trailcover/matching"
	"github.com/mveyrat/trailcover/osm"
	"github.com/mveyrat/trailcover/tiles"
)

var (
	coveredColor   = color.NRGBA{R: 0xFF, G: 0x45, B: 0x00, A: 0xE6} // thick orange
	uncoveredColor = color.NRGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0x59} // faint white
	boxColor       = color.NRGBA{A: 0x99}
	textColor      = color.NRGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}
)

const (
	coveredWidth   = 3.0
	uncoveredWidth = 1.5
)

// WritePNG composes the coverage overlay onto the base map and saves it:
// uncovered segments first as a thin white underlay, covered segments on top
// in thick orange, then the title bar, the covered/total stats box, a legend
// and the attribution line.
func WritePNG(m *tiles.Map, segments []osm.Segment, coverage []matching.SegmentCoverage, title, path string) error {
	img := cloneBase(m)

	strokeSegments(img, m, segments, func(i int) bool {
		return !coverage[i].Covered()
	}, uncoveredWidth, uncoveredColor)
	strokeSegments(img, m, segments, func(i int) bool {
		return coverage[i].Covered()
	}, coveredWidth, coveredColor)

	totalKm, coveredKm := 0.0, 0.0
	for _, c := range coverage {
		totalKm += c.LengthM / 1000
		if c.Covered() {
			coveredKm += c.LengthM / 1000
		}
	}
	pct := 0.0
	if totalKm > 0 {
		pct = coveredKm / totalKm * 100
	}
	stats := fmt.Sprintf("%.1f km / %.1f km (%.0f%%)", coveredKm, totalKm, pct)

	drawTitleBar(img, title)
	drawStatsBox(img, stats)
	drawLegend(img)
	drawAttribution(img)

	if err := writePNG(path, img); err != nil {
		return err
	}
	log.Printf("Saved render to %s", path)
	return nil
}

// debugPalette rotates across segments so adjacent ones are easy to tell
// apart when eyeballing the segmentation.
var debugPalette = []color.NRGBA{
	{0xFF, 0x14, 0x93, 0xE6}, {0x00, 0xFF, 0xFF, 0xE6}, {0x7F, 0xFF, 0x00, 0xE6},
	{0xFF, 0xD7, 0x00, 0xE6}, {0xFF, 0x63, 0x47, 0xE6}, {0x1E, 0x90, 0xFF, 0xE6},
	{0xFF, 0x00, 0xFF, 0xE6}, {0x00, 0xFF, 0x7F, 0xE6}, {0xFF, 0xA5, 0x00, 0xE6},
	{0xDA, 0x70, 0xD6, 0xE6}, {0x40, 0xE0, 0xD0, 0xE6}, {0xF0, 0xE6, 0x8C, 0xE6},
}

// WriteDebugPNG renders every segment in its own palette color, which makes
// segmentation mistakes jump out.
func WriteDebugPNG(m *tiles.Map, segments []osm.Segment, path string) error {
	img := cloneBase(m)

	for i := range segments {
		r := vector.NewRasterizer(m.Width, m.Height)
		strokePolyline(r, projectLine(m, segments[i].Geometry), 2)
		r.Draw(img, img.Bounds(), image.NewUniform(debugPalette[i%len(debugPalette)]), image.Point{})
	}

	drawTitleBar(img, fmt.Sprintf("DEBUG - %d segments", len(segments)))

	if err := writePNG(path, img); err != nil {
		return err
	}
	log.Printf("Saved debug render to %s (%d segments)", path, len(segments))
	return nil
}

func cloneBase(m *tiles.Map) *image.RGBA {
	img := image.NewRGBA(m.Image.Bounds())
	draw.Draw(img, img.Bounds(), m.Image, m.Image.Bounds().Min, draw.Src)
	return img
}

// strokeSegments rasterizes all selected segments as one filled path set so
// a whole pass costs a single alpha blend.
func strokeSegments(img *image.RGBA, m *tiles.Map, segments []osm.Segment, keep func(int) bool, width float32, c color.NRGBA) {
	r := vector.NewRasterizer(m.Width, m.Height)
	for i := range segments {
		if keep(i) {
			strokePolyline(r, projectLine(m, segments[i].Geometry), width)
		}
	}
	r.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{})
}

func projectLine(m *tiles.Map, ls orb.LineString) [][2]float32 {
	pts := make([][2]float32, len(ls))
	for i, p := range ls {
		x, y := m.Project(p)
		pts[i] = [2]float32{float32(x), float32(y)}
	}
	return pts
}

// strokePolyline adds one quad per edge plus a joint disk at every vertex,
// approximating a round-capped, round-joined stroke.
func strokePolyline(r *vector.Rasterizer, pts [][2]float32, width float32) {
	if len(pts) < 2 {
		return
	}
	half := width / 2
	for i := 0; i+1 < len(pts); i++ {
		ax, ay := pts[i][0], pts[i][1]
		bx, by := pts[i+1][0], pts[i+1][1]
		dx, dy := bx-ax, by-ay
		l := float32(math.Hypot(float64(dx), float64(dy)))
		if l == 0 {
			continue
		}
		nx, ny := -dy/l*half, dx/l*half
		r.MoveTo(ax+nx, ay+ny)
		r.LineTo(bx+nx, by+ny)
		r.LineTo(bx-nx, by-ny)
		r.LineTo(ax-nx, ay-ny)
		r.ClosePath()
	}
	for _, p := range pts {
		disk(r, p[0], p[1], half)
	}
}

func disk(r *vector.Rasterizer, cx, cy, radius float32) {
	const steps = 12
	r.MoveTo(cx+radius, cy)
	for i := 1; i <= steps; i++ {
		a := 2 * math.Pi * float64(i) / steps
		r.LineTo(cx+radius*float32(math.Cos(a)), cy+radius*float32(math.Sin(a)))
	}
	r.ClosePath()
}

func drawTitleBar(img *image.RGBA, title string) {
	w := textWidth(title) + 20
	fillRect(img, image.Rect(10, 10, 10+w, 40), boxColor)
	drawText(img, 20, 30, title)
}

func drawStatsBox(img *image.RGBA, stats string) {
	right := img.Bounds().Dx() - 10
	w := textWidth(stats) + 20
	fillRect(img, image.Rect(right-w, 10, right, 40), boxColor)
	drawText(img, right-w+10, 30, stats)
}

func drawLegend(img *image.RGBA) {
	bottom := img.Bounds().Dy() - 10
	fillRect(img, image.Rect(10, bottom-44, 150, bottom), boxColor)

	fillRect(img, image.Rect(20, bottom-32, 45, bottom-29), coveredColor)
	drawText(img, 52, bottom-27, "Covered")
	fillRect(img, image.Rect(20, bottom-14, 45, bottom-12), color.NRGBA{0xFF, 0xFF, 0xFF, 0xB0})
	drawText(img, 52, bottom-9, "Uncovered")
}

func drawAttribution(img *image.RGBA) {
	const credit = "(c) OpenStreetMap contributors"
	b := img.Bounds()
	drawText(img, b.Dx()-textWidth(credit)-10, b.Dy()-10, credit)
}

func fillRect(img *image.RGBA, rect image.Rectangle, c color.NRGBA) {
	draw.Draw(img, rect, image.NewUniform(c), image.Point{}, draw.Over)
}

func drawText(img *image.RGBA, x, y int, s string) {
	d := font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(textColor),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

func textWidth(s string) int {
	d := font.Drawer{Face: basicfont.Face7x13}
	return d.MeasureString(s).Ceil()
}

func writePNG(path string, img image.Image) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}
