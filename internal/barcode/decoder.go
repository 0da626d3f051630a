package barcode

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/oned"
	"github.com/makiuchi-d/gozxing/qrcode"
)

// ZXingDecoder tries a fixed set of formats on each frame. Book barcodes
// (EAN-13) are tried first.
type ZXingDecoder struct {
	mu      sync.Mutex
	readers []namedReader
	hints   map[gozxing.DecodeHintType]interface{}
	filter  FrameFilter
}

type namedReader struct {
	format string
	reader gozxing.Reader
}

// NewZXingDecoder creates a decoder for EAN-13, EAN-8, UPC-A, Code 128 and
// QR. A nil filter decodes every frame.
func NewZXingDecoder(filter FrameFilter) *ZXingDecoder {
	return &ZXingDecoder{
		readers: []namedReader{
			{"EAN_13", oned.NewEAN13Reader()},
			{"EAN_8", oned.NewEAN8Reader()},
			{"UPC_A", oned.NewUPCAReader()},
			{"CODE_128", oned.NewCode128Reader()},
			{"QR_CODE", qrcode.NewQRCodeReader()},
		},
		hints: map[gozxing.DecodeHintType]interface{}{
			gozxing.DecodeHintType_TRY_HARDER: true,
		},
		filter: filter,
	}
}

// Decode returns ErrNotFound when no reader recognizes the frame.
func (d *ZXingDecoder) Decode(img image.Image) (Result, error) {
	if d.filter != nil && !d.filter.Plausible(img) {
		return Result{}, ErrNotFound
	}

	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return Result{}, fmt.Errorf("failed to binarize frame: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	var decodeErr error
	for _, r := range d.readers {
		res, err := r.reader.Decode(bmp, d.hints)
		r.reader.Reset()
		if err != nil {
			decodeErr = errors.Join(decodeErr, err)
			continue
		}
		out := Result{Text: res.GetText(), Format: r.format}
		if isbn, ok := NormalizeISBN(out.Text); ok {
			out.ISBN = isbn
		}
		return out, nil
	}
	return Result{}, fmt.Errorf("%w: %v", ErrNotFound, decodeErr)
}

func (d *ZXingDecoder) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, r := range d.readers {
		r.reader.Reset()
	}
	return nil
}
