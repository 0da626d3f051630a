// Package crop implements the interactive crop editor as a single reducer over
// an explicit state value, plus the renderer that turns a finished selection
// into a new image file.
package crop

import (
	"math"

	"github.com/anime-shed/bookcapture-go/internal/imagebuf"
)

const (
	// MinCropSize is the smallest width or height a finalized rectangle may have.
	MinCropSize = 10
	// HandleTolerance is the hit radius around a resize handle, in display pixels.
	HandleTolerance = 6.0
)

// Phase names the editor states.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseDrawing   Phase = "drawing"
	PhaseResizing  Phase = "resizing"
	PhaseCommitted Phase = "committed"
	PhaseCancelled Phase = "cancelled"
)

// State is one of Idle, Drawing, Resizing, Committed or Cancelled.
type State interface {
	Phase() Phase
	// Selection returns the rectangle currently shown, if any.
	Selection() (imagebuf.Rect, bool)
	isState()
}

// Idle waits for input. Rect is nil when no rectangle has been drawn.
type Idle struct {
	Rect *imagebuf.Rect
}

// Drawing tracks a rectangle being dragged out from Origin (image space).
type Drawing struct {
	Origin pixel
	Rect   imagebuf.Rect
}

// Resizing tracks a handle drag. Start is the display-space pointer position
// at pointer-down; StartRect the rectangle at that moment.
type Resizing struct {
	Handle    Handle
	Start     Point
	StartRect imagebuf.Rect
	Rect      imagebuf.Rect
}

// Committed holds the rectangle accepted by "apply crop".
type Committed struct {
	Rect imagebuf.Rect
}

// Cancelled means "skip crop": the original image passes through.
type Cancelled struct{}

func (Idle) Phase() Phase      { return PhaseIdle }
func (Drawing) Phase() Phase   { return PhaseDrawing }
func (Resizing) Phase() Phase  { return PhaseResizing }
func (Committed) Phase() Phase { return PhaseCommitted }
func (Cancelled) Phase() Phase { return PhaseCancelled }

func (s Idle) Selection() (imagebuf.Rect, bool) {
	if s.Rect == nil {
		return imagebuf.Rect{}, false
	}
	return *s.Rect, true
}
func (s Drawing) Selection() (imagebuf.Rect, bool)   { return s.Rect, true }
func (s Resizing) Selection() (imagebuf.Rect, bool)  { return s.Rect, true }
func (s Committed) Selection() (imagebuf.Rect, bool) { return s.Rect, true }
func (Cancelled) Selection() (imagebuf.Rect, bool)   { return imagebuf.Rect{}, false }

func (Idle) isState()      {}
func (Drawing) isState()   {}
func (Resizing) isState()  {}
func (Committed) isState() {}
func (Cancelled) isState() {}

// Point is a display-space pointer position.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// pixel is an image-space pixel position.
type pixel struct {
	X, Y int
}

// Event is one of PointerDown, PointerMove, PointerUp, Apply, Skip or Reset.
type Event interface {
	isEvent()
}

type PointerDown struct{ Point }
type PointerMove struct{ Point }
type PointerUp struct{ Point }

// Apply commits the current rectangle.
type Apply struct{}

// Skip cancels cropping and keeps the original image.
type Skip struct{}

// Reset clears the rectangle and returns to Idle.
type Reset struct{}

func (PointerDown) isEvent() {}
func (PointerMove) isEvent() {}
func (PointerUp) isEvent()   {}
func (Apply) isEvent()       {}
func (Skip) isEvent()        {}
func (Reset) isEvent()       {}

// Geometry relates the on-screen display size to the source image size.
type Geometry struct {
	ImageWidth    int     `json:"image_width"`
	ImageHeight   int     `json:"image_height"`
	DisplayWidth  float64 `json:"display_width"`
	DisplayHeight float64 `json:"display_height"`
}

// NewGeometry returns a geometry whose display matches the image 1:1.
func NewGeometry(width, height int) Geometry {
	return Geometry{
		ImageWidth:    width,
		ImageHeight:   height,
		DisplayWidth:  float64(width),
		DisplayHeight: float64(height),
	}
}

// Scale returns scaleX = imageWidth/displayWidth and scaleY likewise.
func (g Geometry) Scale() (float64, float64) {
	sx, sy := 1.0, 1.0
	if g.DisplayWidth > 0 {
		sx = float64(g.ImageWidth) / g.DisplayWidth
	}
	if g.DisplayHeight > 0 {
		sy = float64(g.ImageHeight) / g.DisplayHeight
	}
	return sx, sy
}

// toImage maps a display point into clamped image-space pixels.
func (g Geometry) toImage(p Point) pixel {
	sx, sy := g.Scale()
	return pixel{
		X: clamp(int(math.Round(p.X*sx)), 0, g.ImageWidth),
		Y: clamp(int(math.Round(p.Y*sy)), 0, g.ImageHeight),
	}
}

// toDisplay maps image-space coordinates onto the display.
func (g Geometry) toDisplay(x, y float64) Point {
	sx, sy := g.Scale()
	return Point{X: x / sx, Y: y / sy}
}

// minWidth is MinCropSize, or the image width for images narrower than that.
func (g Geometry) minWidth() int { return min(MinCropSize, g.ImageWidth) }

func (g Geometry) minHeight() int { return min(MinCropSize, g.ImageHeight) }

// LargeEnough reports whether r satisfies the minimum size for this image.
func (g Geometry) LargeEnough(r imagebuf.Rect) bool {
	return r.Width >= g.minWidth() && r.Height >= g.minHeight() && !r.Empty()
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
