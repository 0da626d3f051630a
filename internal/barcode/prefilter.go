package barcode

import (
	"image"
	"image/draw"
)

// FrameFilter rejects frames that cannot contain a barcode before the
// heavier decoders run.
type FrameFilter interface {
	Plausible(img image.Image) bool
}

// MinScanlineTransitions is the number of dark/light transitions a row must
// show to look like a linear barcode. EAN-8, the shortest format read, has 43.
const MinScanlineTransitions = 20

type structureFilter struct {
	minTransitions int
}

// NewStructureFilter returns a filter that accepts frames with bar-like rows
// or with QR finder patterns.
func NewStructureFilter() FrameFilter {
	return &structureFilter{minTransitions: MinScanlineTransitions}
}

func (f *structureFilter) Plausible(img image.Image) bool {
	gray := toGray(img)
	return f.hasBarRows(gray) || hasFinderPatterns(gray)
}

// hasBarRows samples rows at quarter heights and counts transitions across
// the mean luminance of each row.
func (f *structureFilter) hasBarRows(gray *image.Gray) bool {
	b := gray.Bounds()
	if b.Dx() < f.minTransitions {
		return false
	}

	for _, frac := range []int{1, 2, 3} {
		y := b.Min.Y + b.Dy()*frac/4
		if transitions(gray, y) >= f.minTransitions {
			return true
		}
	}
	return false
}

func transitions(gray *image.Gray, y int) int {
	b := gray.Bounds()
	row := gray.Pix[gray.PixOffset(b.Min.X, y) : gray.PixOffset(b.Min.X, y)+b.Dx()]

	sum := 0
	for _, v := range row {
		sum += int(v)
	}
	mean := uint8(sum / len(row))
	if mean == 0 || mean == 255 {
		return 0
	}

	count := 0
	dark := row[0] < mean
	for _, v := range row[1:] {
		if d := v < mean; d != dark {
			count++
			dark = d
		}
	}
	return count
}

func toGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	b := img.Bounds()
	gray := image.NewGray(b)
	draw.Draw(gray, b, img, b.Min, draw.Src)
	return gray
}

// hasFinderPatterns looks for at least two QR finder patterns around the
// quarter points and the centre.
func hasFinderPatterns(gray *image.Gray) bool {
	b := gray.Bounds()
	w, h := b.Dx(), b.Dy()
	const minSize = 7
	maxSize := min(w, h) / 3
	if maxSize < minSize {
		return false
	}

	positions := [][2]int{
		{w / 4, h / 4},
		{3 * w / 4, h / 4},
		{w / 4, 3 * h / 4},
		{w / 2, h / 2},
	}

	found := 0
	for _, p := range positions {
		for size := minSize; size <= maxSize; size += 2 {
			if finderAt(gray, b.Min.X+p[0], b.Min.Y+p[1], size/2) {
				found++
				break
			}
		}
	}
	return found >= 2
}

// finderAt checks for alternating dark/light rings around (cx, cy) in at
// least two of four directions.
func finderAt(gray *image.Gray, cx, cy, radius int) bool {
	b := gray.Bounds()
	if cx-radius < b.Min.X || cx+radius >= b.Max.X || cy-radius < b.Min.Y || cy+radius >= b.Max.Y {
		return false
	}

	samples := []int{radius / 4, radius / 2, 3 * radius / 4, radius}
	want := []bool{true, false, true, false}
	dirs := [][2]int{{1, 0}, {0, 1}, {1, 1}, {-1, 1}}

	matching := 0
	for _, d := range dirs {
		hits := 0
		for i, s := range samples {
			dark := gray.GrayAt(cx+s*d[0], cy+s*d[1]).Y < 128
			if dark == want[i] {
				hits++
			}
		}
		if hits >= len(samples)-1 {
			matching++
		}
	}
	return matching >= 2
}
