package crop

import (
	"math"

	"github.com/anime-shed/bookcapture-go/internal/imagebuf"
)

// Handle identifies one of the eight resize hot-zones.
type Handle string

const (
	HandleNone Handle = ""
	HandleNW   Handle = "nw"
	HandleN    Handle = "n"
	HandleNE   Handle = "ne"
	HandleE    Handle = "e"
	HandleSE   Handle = "se"
	HandleS    Handle = "s"
	HandleSW   Handle = "sw"
	HandleW    Handle = "w"
)

// Handles lists every handle in drawing order.
var Handles = []Handle{HandleNW, HandleN, HandleNE, HandleE, HandleSE, HandleS, HandleSW, HandleW}

func (h Handle) movesLeft() bool   { return h == HandleNW || h == HandleSW || h == HandleW }
func (h Handle) movesRight() bool  { return h == HandleNE || h == HandleSE || h == HandleE }
func (h Handle) movesTop() bool    { return h == HandleNW || h == HandleNE || h == HandleN }
func (h Handle) movesBottom() bool { return h == HandleSW || h == HandleSE || h == HandleS }

// anchor returns the handle centre in image space.
func (h Handle) anchor(r imagebuf.Rect) (float64, float64) {
	x0, y0 := float64(r.X), float64(r.Y)
	x1, y1 := float64(r.Right()), float64(r.Bottom())
	xm, ym := (x0+x1)/2, (y0+y1)/2

	switch h {
	case HandleNW:
		return x0, y0
	case HandleN:
		return xm, y0
	case HandleNE:
		return x1, y0
	case HandleE:
		return x1, ym
	case HandleSE:
		return x1, y1
	case HandleS:
		return xm, y1
	case HandleSW:
		return x0, y1
	default:
		return x0, ym
	}
}

// HitHandle returns the handle nearest to the display point p, provided it
// lies within HandleTolerance of that handle on both axes.
func HitHandle(r imagebuf.Rect, p Point, g Geometry) (Handle, bool) {
	best := HandleNone
	bestDist := math.Inf(1)

	for _, h := range Handles {
		c := g.toDisplay(h.anchor(r))
		dx, dy := math.Abs(p.X-c.X), math.Abs(p.Y-c.Y)
		if dx > HandleTolerance || dy > HandleTolerance {
			continue
		}
		if d := math.Hypot(dx, dy); d < bestDist {
			best, bestDist = h, d
		}
	}
	return best, best != HandleNone
}

// resize moves the edges controlled by h by (dx, dy) image pixels from start.
// Moving edges stop at the image border and never bring the rectangle below
// the minimum size; the opposite edges stay fixed.
func resize(start imagebuf.Rect, h Handle, dx, dy int, g Geometry) imagebuf.Rect {
	start = normalize(start, g)
	minW, minH := g.minWidth(), g.minHeight()
	l, t, r, b := start.X, start.Y, start.Right(), start.Bottom()

	if h.movesLeft() {
		l = clamp(l+dx, 0, r-minW)
	}
	if h.movesRight() {
		r = clamp(r+dx, l+minW, g.ImageWidth)
	}
	if h.movesTop() {
		t = clamp(t+dy, 0, b-minH)
	}
	if h.movesBottom() {
		b = clamp(b+dy, t+minH, g.ImageHeight)
	}
	return imagebuf.Rect{X: l, Y: t, Width: r - l, Height: b - t}
}

// normalize enforces the minimum size and pulls r fully inside the image.
func normalize(r imagebuf.Rect, g Geometry) imagebuf.Rect {
	r.Width = clamp(r.Width, g.minWidth(), g.ImageWidth)
	r.Height = clamp(r.Height, g.minHeight(), g.ImageHeight)
	r.X = clamp(r.X, 0, g.ImageWidth-r.Width)
	r.Y = clamp(r.Y, 0, g.ImageHeight-r.Height)
	return r
}
