package imagebuf

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const (
	MIMEJPEG = "image/jpeg"
	MIMEPNG  = "image/png"
	MIMEGIF  = "image/gif"
	MIMEBMP  = "image/bmp"
	MIMETIFF = "image/tiff"
	MIMEWebP = "image/webp"
)

// JPEGQuality matches the default quality browsers use when re-encoding canvases.
const JPEGQuality = 92

// Decode parses encoded image bytes into a buffer and reports the format name.
func Decode(data []byte) (Buffer, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Buffer{}, "", fmt.Errorf("failed to decode image: %w", err)
	}
	return FromImage(img), format, nil
}

// DecodeConfig reads only the dimensions.
func DecodeConfig(data []byte) (width, height int, err error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read image header: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}

// CanEncode reports whether Encode keeps the given MIME type.
func CanEncode(mimeType string) bool {
	switch normalizeMIME(mimeType) {
	case MIMEJPEG, MIMEPNG, MIMEGIF, MIMEBMP, MIMETIFF:
		return true
	}
	return false
}

// Encode serializes b using mimeType. Types without an encoder fall back to
// PNG; the returned MIME type is the one actually written. GIF output uses a
// palette of exactly the buffer's colors, so buffers GIF cannot hold without
// loss (more than 256 colors or partial transparency) are written as PNG.
func Encode(b Buffer, mimeType string) ([]byte, string, error) {
	img := b.Image()
	var buf bytes.Buffer
	var err error

	mimeType = normalizeMIME(mimeType)
	switch mimeType {
	case MIMEJPEG:
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality})
	case MIMEGIF:
		if pm, ok := exactPaletted(img); ok {
			err = gif.Encode(&buf, pm, nil)
		} else {
			mimeType = MIMEPNG
			err = png.Encode(&buf, img)
		}
	case MIMEBMP:
		err = bmp.Encode(&buf, img)
	case MIMETIFF:
		err = tiff.Encode(&buf, img, &tiff.Options{Compression: tiff.Deflate})
	default:
		mimeType = MIMEPNG
		err = png.Encode(&buf, img)
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to encode %s: %w", mimeType, err)
	}
	return buf.Bytes(), mimeType, nil
}

// exactPaletted converts img to a paletted image without quantizing.
func exactPaletted(img *image.RGBA) (*image.Paletted, bool) {
	b := img.Bounds()
	index := make(map[color.RGBA]uint8)
	var palette color.Palette
	out := image.NewPaletted(b, nil)

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := img.RGBAAt(x, y)
			if c.A != 0 && c.A != 0xff {
				return nil, false
			}
			i, ok := index[c]
			if !ok {
				if len(palette) == 256 {
					return nil, false
				}
				i = uint8(len(palette))
				index[c] = i
				palette = append(palette, c)
			}
			out.SetColorIndex(x, y, i)
		}
	}
	if len(palette) == 0 {
		palette = color.Palette{color.RGBA{A: 0xff}}
	}
	out.Palette = palette
	return out, true
}

func normalizeMIME(mimeType string) string {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	switch mimeType {
	case "image/jpg", "image/pjpeg":
		return MIMEJPEG
	case "image/x-ms-bmp":
		return MIMEBMP
	}
	return mimeType
}
