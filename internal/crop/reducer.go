package crop

import (
	"math"

	"github.com/anime-shed/bookcapture-go/internal/imagebuf"
)

// Reduce returns the state that follows s after ev. It never mutates s and
// every rectangle it produces lies inside the image. Committed and Cancelled
// only leave through Reset.
func Reduce(s State, ev Event, g Geometry) State {
	if s == nil {
		s = Idle{}
	}

	switch ev.(type) {
	case Skip:
		return Cancelled{}
	case Reset:
		return Idle{}
	}

	switch st := s.(type) {
	case Idle:
		return reduceIdle(st, ev, g)
	case Drawing:
		return reduceDrawing(st, ev, g)
	case Resizing:
		return reduceResizing(st, ev, g)
	default:
		return s
	}
}

func reduceIdle(st Idle, ev Event, g Geometry) State {
	switch e := ev.(type) {
	case PointerDown:
		if st.Rect != nil {
			if h, ok := HitHandle(*st.Rect, e.Point, g); ok {
				return Resizing{Handle: h, Start: e.Point, StartRect: *st.Rect, Rect: *st.Rect}
			}
			at := g.toImage(e.Point)
			if st.Rect.Contains(at.X, at.Y) {
				return st
			}
		}
		origin := g.toImage(e.Point)
		return Drawing{Origin: origin, Rect: imagebuf.Rect{X: origin.X, Y: origin.Y}}
	case Apply:
		if st.Rect != nil && g.LargeEnough(*st.Rect) {
			return Committed{Rect: *st.Rect}
		}
	}
	return st
}

func reduceDrawing(st Drawing, ev Event, g Geometry) State {
	switch e := ev.(type) {
	case PointerMove:
		st.Rect = span(st.Origin, g.toImage(e.Point))
		return st
	case PointerUp:
		r := span(st.Origin, g.toImage(e.Point))
		if !g.LargeEnough(r) {
			return Idle{}
		}
		return Idle{Rect: &r}
	}
	return st
}

func reduceResizing(st Resizing, ev Event, g Geometry) State {
	switch e := ev.(type) {
	case PointerMove:
		st.Rect = st.resized(e.Point, g)
		return st
	case PointerUp:
		r := st.resized(e.Point, g)
		return Idle{Rect: &r}
	}
	return st
}

func (st Resizing) resized(p Point, g Geometry) imagebuf.Rect {
	sx, sy := g.Scale()
	dx := int(math.Round((p.X - st.Start.X) * sx))
	dy := int(math.Round((p.Y - st.Start.Y) * sy))
	return resize(st.StartRect, st.Handle, dx, dy, g)
}

// span is the rectangle between two image-space corners.
func span(a, b pixel) imagebuf.Rect {
	return imagebuf.Rect{
		X:      min(a.X, b.X),
		Y:      min(a.Y, b.Y),
		Width:  abs(b.X - a.X),
		Height: abs(b.Y - a.Y),
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// CanApply reports whether Apply would commit from s.
func CanApply(s State, g Geometry) bool {
	st, ok := s.(Idle)
	return ok && st.Rect != nil && g.LargeEnough(*st.Rect)
}
