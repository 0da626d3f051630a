//go:build !tesseract

package ocr

import "context"

// TesseractAvailable reports whether the Tesseract engine is compiled in.
const TesseractAvailable = false

// NewTesseractFactory returns a factory that always reports the engine as
// unavailable. Build with -tags tesseract to enable recognition.
func NewTesseractFactory(EngineConfig) EngineFactory {
	return func(context.Context, Mode) (Engine, error) {
		return nil, ErrEngineUnavailable
	}
}
