package crop

import (
	"image"
	"image/color"
	"math"

	xdraw "golang.org/x/image/draw"
)

// Overlay colours.
var (
	ScrimColor  = color.NRGBA{A: 128}
	BorderColor = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	HandleColor = color.NRGBA{R: 37, G: 99, B: 235, A: 255}
)

const (
	borderWidth = 2
	handleSize  = 8
)

// RenderOverlay draws what the editor shows: src scaled to the display size,
// a translucent scrim outside the selection, its border and the eight handles.
func RenderOverlay(src image.Image, s State, g Geometry) *image.RGBA {
	w := max(1, int(math.Round(g.DisplayWidth)))
	h := max(1, int(math.Round(g.DisplayHeight)))
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)

	r, ok := s.Selection()
	if !ok || r.Empty() {
		return dst
	}

	tl := g.toDisplay(float64(r.X), float64(r.Y))
	br := g.toDisplay(float64(r.Right()), float64(r.Bottom()))
	sel := image.Rect(
		int(math.Round(tl.X)), int(math.Round(tl.Y)),
		int(math.Round(br.X)), int(math.Round(br.Y)),
	).Intersect(dst.Bounds())

	scrim := image.NewUniform(ScrimColor)
	for _, band := range []image.Rectangle{
		image.Rect(0, 0, w, sel.Min.Y),
		image.Rect(0, sel.Max.Y, w, h),
		image.Rect(0, sel.Min.Y, sel.Min.X, sel.Max.Y),
		image.Rect(sel.Max.X, sel.Min.Y, w, sel.Max.Y),
	} {
		xdraw.Draw(dst, band, scrim, image.Point{}, xdraw.Over)
	}

	border := image.NewUniform(BorderColor)
	for _, edge := range []image.Rectangle{
		image.Rect(sel.Min.X, sel.Min.Y, sel.Max.X, sel.Min.Y+borderWidth),
		image.Rect(sel.Min.X, sel.Max.Y-borderWidth, sel.Max.X, sel.Max.Y),
		image.Rect(sel.Min.X, sel.Min.Y, sel.Min.X+borderWidth, sel.Max.Y),
		image.Rect(sel.Max.X-borderWidth, sel.Min.Y, sel.Max.X, sel.Max.Y),
	} {
		xdraw.Draw(dst, edge.Intersect(sel), border, image.Point{}, xdraw.Src)
	}

	fill := image.NewUniform(HandleColor)
	for _, hd := range Handles {
		c := g.toDisplay(hd.anchor(r))
		cx, cy := int(math.Round(c.X)), int(math.Round(c.Y))
		box := image.Rect(cx-handleSize/2, cy-handleSize/2, cx+handleSize/2, cy+handleSize/2)
		xdraw.Draw(dst, box.Intersect(dst.Bounds()), border, image.Point{}, xdraw.Src)
		xdraw.Draw(dst, box.Inset(1).Intersect(dst.Bounds()), fill, image.Point{}, xdraw.Src)
	}
	return dst
}
