package coverage

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// DefaultImageSize is the edge length of the exported PNG.
const DefaultImageSize = 512

var (
	backgroundColor = color.RGBA{R: 0xf8, G: 0xfa, B: 0xfc, A: 0xff}
	areaColor       = color.RGBA{R: 0x3b, G: 0x82, B: 0xf6, A: 0xff}
	outlineColor    = color.RGBA{R: 0x1e, G: 0x29, B: 0x3b, A: 0xff}
	centerColor     = color.RGBA{R: 0xdc, G: 0x26, B: 0x26, A: 0xff}
)

// RenderPNG rasterises the clipped rings with the circle outline and center
// marker onto a size x size canvas framed on the circle.
func RenderPNG(w io.Writer, center orb.Point, circle orb.Ring, rings []orb.Ring, size int) error {
	if size <= 0 {
		size = DefaultImageSize
	}
	if len(circle) < 4 {
		return fmt.Errorf("render coverage: circle has %d points", len(circle))
	}

	cb := circle.Bound()
	frame := squareBound(cb.Pad((cb.Right() - cb.Left()) * 0.05))
	img := image.NewRGBA(image.Rect(0, 0, size, size))

	toPoint := func(px, py int) orb.Point {
		x := frame.Left() + (float64(px)+0.5)/float64(size)*(frame.Right()-frame.Left())
		y := frame.Top() - (float64(py)+0.5)/float64(size)*(frame.Top()-frame.Bottom())
		return orb.Point{x, y}
	}
	toPixel := func(p orb.Point) (int, int) {
		x := (p[0] - frame.Left()) / (frame.Right() - frame.Left()) * float64(size)
		y := (frame.Top() - p[1]) / (frame.Top() - frame.Bottom()) * float64(size)
		return int(x), int(y)
	}

	for py := 0; py < size; py++ {
		for px := 0; px < size; px++ {
			c := backgroundColor
			p := toPoint(px, py)
			for _, r := range rings {
				if planar.RingContains(r, p) {
					c = areaColor
					break
				}
			}
			img.SetRGBA(px, py, c)
		}
	}

	for i := 0; i+1 < len(circle); i++ {
		x0, y0 := toPixel(circle[i])
		x1, y1 := toPixel(circle[i+1])
		drawLine(img, x0, y0, x1, y1, outlineColor)
	}

	cx, cy := toPixel(center)
	for dy := -3; dy <= 3; dy++ {
		for dx := -3; dx <= 3; dx++ {
			if dx*dx+dy*dy <= 9 {
				img.SetRGBA(cx+dx, cy+dy, centerColor)
			}
		}
	}

	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encode coverage png: %w", err)
	}
	return nil
}

// squareBound grows the shorter side so the map is not stretched.
func squareBound(b orb.Bound) orb.Bound {
	w, h := b.Right()-b.Left(), b.Top()-b.Bottom()
	c := b.Center()
	half := w
	if h > half {
		half = h
	}
	half /= 2
	return orb.Bound{
		Min: orb.Point{c[0] - half, c[1] - half},
		Max: orb.Point{c[0] + half, c[1] + half},
	}
}

// drawLine is Bresenham.
func drawLine(img *image.RGBA, x0, y0, x1, y1 int, c color.RGBA) {
	dx, dy := abs(x1-x0), -abs(y1-y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	for {
		img.SetRGBA(x0, y0, c)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// ClipboardText is the ZIP list as pasted into other tools.
func ClipboardText(zips []string) string {
	return strings.Join(zips, ", ")
}
