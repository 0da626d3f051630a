// Package imagebuf holds the pixel value types shared by the crop editor and
// the crop renderer. Buffers are plain values: functions in this package never
// mutate their inputs.
package imagebuf

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
)

// Rect is a crop rectangle in image-space pixels.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Right returns the exclusive right edge.
func (r Rect) Right() int { return r.X + r.Width }

// Bottom returns the exclusive bottom edge.
func (r Rect) Bottom() int { return r.Y + r.Height }

// Empty reports whether the rectangle covers no pixels.
func (r Rect) Empty() bool { return r.Width <= 0 || r.Height <= 0 }

// Within reports whether r lies fully inside a width×height image.
func (r Rect) Within(width, height int) bool {
	return r.X >= 0 && r.Y >= 0 && r.Right() <= width && r.Bottom() <= height
}

// Image converts to an image.Rectangle.
func (r Rect) Image() image.Rectangle {
	return image.Rect(r.X, r.Y, r.Right(), r.Bottom())
}

// Contains reports whether the pixel (x, y) lies inside the rectangle.
func (r Rect) Contains(x, y int) bool {
	return x >= r.X && x < r.Right() && y >= r.Y && y < r.Bottom()
}

// Offset translates r by (dx, dy); used to compose nested crops.
func (r Rect) Offset(dx, dy int) Rect {
	r.X += dx
	r.Y += dy
	return r
}

func (r Rect) String() string {
	return fmt.Sprintf("%dx%d+%d+%d", r.Width, r.Height, r.X, r.Y)
}

// Buffer is an RGBA pixel buffer: 4 bytes per pixel, stride 4*Width.
type Buffer struct {
	Width  int
	Height int
	Pix    []uint8
}

// New allocates a zeroed buffer.
func New(width, height int) Buffer {
	if width < 0 || height < 0 {
		width, height = 0, 0
	}
	return Buffer{Width: width, Height: height, Pix: make([]uint8, 4*width*height)}
}

// FromImage copies any image into a new buffer anchored at (0, 0).
func FromImage(img image.Image) Buffer {
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return Buffer{Width: b.Dx(), Height: b.Dy(), Pix: rgba.Pix}
}

// Image wraps a copy of the buffer as an *image.RGBA.
func (b Buffer) Image() *image.RGBA {
	pix := make([]uint8, len(b.Pix))
	copy(pix, b.Pix)
	return &image.RGBA{Pix: pix, Stride: 4 * b.Width, Rect: image.Rect(0, 0, b.Width, b.Height)}
}

// Bounds returns the full-image rectangle.
func (b Buffer) Bounds() Rect {
	return Rect{Width: b.Width, Height: b.Height}
}

// RGBAAt returns the four channel bytes of a pixel.
func (b Buffer) RGBAAt(x, y int) [4]uint8 {
	i := 4 * (y*b.Width + x)
	return [4]uint8{b.Pix[i], b.Pix[i+1], b.Pix[i+2], b.Pix[i+3]}
}

// Equal reports pixel-identical buffers.
func (b Buffer) Equal(o Buffer) bool {
	return b.Width == o.Width && b.Height == o.Height && bytes.Equal(b.Pix, o.Pix)
}

// CropRegion returns a new buffer holding exactly the pixels of r.
func CropRegion(b Buffer, r Rect) (Buffer, error) {
	if r.Empty() {
		return Buffer{}, fmt.Errorf("crop rectangle %s is empty", r)
	}
	if !r.Within(b.Width, b.Height) {
		return Buffer{}, fmt.Errorf("crop rectangle %s exceeds image bounds %dx%d", r, b.Width, b.Height)
	}

	out := New(r.Width, r.Height)
	rowBytes := 4 * r.Width
	for y := 0; y < r.Height; y++ {
		src := 4 * ((r.Y+y)*b.Width + r.X)
		copy(out.Pix[y*rowBytes:(y+1)*rowBytes], b.Pix[src:src+rowBytes])
	}
	return out, nil
}
