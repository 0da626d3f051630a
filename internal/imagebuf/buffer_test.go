package imagebuf

import (
	"image"
	"image/color"
	"testing"
)

// gradient fills every pixel with a value derived from its coordinates so
// that any misplaced copy is detected.
func gradient(width, height int) Buffer {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{uint8(x), uint8(y), uint8(x ^ y), 255})
		}
	}
	return FromImage(img)
}

func TestCropRegion_FullBoundsIsIdentity(t *testing.T) {
	src := gradient(64, 48)

	out, err := CropRegion(src, src.Bounds())
	if err != nil {
		t.Fatalf("CropRegion() error = %v", err)
	}
	if !out.Equal(src) {
		t.Error("Expected full-bounds crop to be pixel identical")
	}
}

func TestCropRegion_Composes(t *testing.T) {
	src := gradient(120, 90)
	outer := Rect{X: 10, Y: 20, Width: 80, Height: 60}
	inner := Rect{X: 5, Y: 7, Width: 30, Height: 25}

	step1, err := CropRegion(src, outer)
	if err != nil {
		t.Fatalf("outer crop: %v", err)
	}
	step2, err := CropRegion(step1, inner)
	if err != nil {
		t.Fatalf("inner crop: %v", err)
	}
	direct, err := CropRegion(src, inner.Offset(outer.X, outer.Y))
	if err != nil {
		t.Fatalf("composed crop: %v", err)
	}

	if !step2.Equal(direct) {
		t.Error("Expected nested crops to equal the composed single crop")
	}
}

func TestCropRegion_ExactPixels(t *testing.T) {
	src := gradient(1000, 800)
	r := Rect{X: 100, Y: 100, Width: 300, Height: 200}

	out, err := CropRegion(src, r)
	if err != nil {
		t.Fatalf("CropRegion() error = %v", err)
	}
	if out.Width != 300 || out.Height != 200 {
		t.Fatalf("Expected 300x200, got %dx%d", out.Width, out.Height)
	}
	for y := 0; y < out.Height; y++ {
		for x := 0; x < out.Width; x++ {
			if out.RGBAAt(x, y) != src.RGBAAt(x+100, y+100) {
				t.Fatalf("Pixel mismatch at (%d,%d)", x, y)
			}
		}
	}
}

func TestCropRegion_Rejects(t *testing.T) {
	src := gradient(50, 50)
	tests := []struct {
		name string
		rect Rect
	}{
		{"empty", Rect{X: 0, Y: 0, Width: 0, Height: 10}},
		{"negative origin", Rect{X: -1, Y: 0, Width: 10, Height: 10}},
		{"past right edge", Rect{X: 45, Y: 0, Width: 10, Height: 10}},
		{"past bottom edge", Rect{X: 0, Y: 41, Width: 10, Height: 10}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := CropRegion(src, tt.rect); err == nil {
				t.Error("Expected an error")
			}
		})
	}
}

func TestCropRegion_DoesNotAlias(t *testing.T) {
	src := gradient(20, 20)
	out, err := CropRegion(src, src.Bounds())
	if err != nil {
		t.Fatal(err)
	}
	out.Pix[0] = ^out.Pix[0]
	if src.Pix[0] == out.Pix[0] {
		t.Error("Expected crop output to be an independent copy")
	}
}

func TestEncodeDecode_PNGLossless(t *testing.T) {
	src := gradient(33, 17)

	data, mime, err := Encode(src, MIMEPNG)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if mime != MIMEPNG {
		t.Errorf("Expected %s, got %s", MIMEPNG, mime)
	}
	back, format, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if format != "png" {
		t.Errorf("Expected png format, got %s", format)
	}
	if !back.Equal(src) {
		t.Error("Expected PNG round trip to be lossless")
	}
}

func TestEncode_MIMEHandling(t *testing.T) {
	src := gradient(8, 8)
	tests := []struct {
		in   string
		want string
	}{
		{"image/jpeg", MIMEJPEG},
		{"image/jpg", MIMEJPEG},
		{"image/gif", MIMEGIF},
		{"image/bmp", MIMEBMP},
		{"image/tiff", MIMETIFF},
		{"image/webp", MIMEPNG},
		{"image/png; charset=binary", MIMEPNG},
	}

	for _, tt := range tests {
		_, got, err := Encode(src, tt.in)
		if err != nil {
			t.Errorf("Encode(%s) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Encode(%s) wrote %s, want %s", tt.in, got, tt.want)
		}
	}
	if CanEncode(MIMEWebP) {
		t.Error("Did not expect webp to be encodable")
	}
}

func TestEncode_GIF(t *testing.T) {
	few := gradient(8, 8)
	data, mime, err := Encode(few, MIMEGIF)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if mime != MIMEGIF {
		t.Fatalf("Expected %s, got %s", MIMEGIF, mime)
	}
	back, _, err := Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	if !back.Equal(few) {
		t.Error("Expected GIF with few colors to round trip exactly")
	}

	many := gradient(64, 48)
	data, mime, err = Encode(many, MIMEGIF)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if mime != MIMEPNG {
		t.Errorf("Expected more than 256 colors to fall back to %s, got %s", MIMEPNG, mime)
	}
	back, _, err = Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	if !back.Equal(many) {
		t.Error("Expected the PNG fallback to be lossless")
	}
}
