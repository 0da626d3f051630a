// Package barcode runs a cancellable decode loop over camera frames and
// reports the first barcode it reads.
package barcode

import (
	"context"
	"errors"
	"image"
)

var (
	// ErrPermissionDenied is returned by Camera.Open when access is refused.
	ErrPermissionDenied = errors.New("camera permission denied")
	// ErrNotFound is returned by decoders for frames without a barcode.
	ErrNotFound = errors.New("no barcode in frame")
)

// Camera is a frame source that must be opened before use.
type Camera interface {
	Open(ctx context.Context) (Stream, error)
}

// Stream yields frames until it is closed or exhausted (io.EOF).
type Stream interface {
	Next(ctx context.Context) (image.Image, error)
	Close() error
}

// Result is a decoded barcode.
type Result struct {
	Text   string `json:"text"`
	Format string `json:"format"`
	// ISBN is the normalized ISBN-13 when Text is a valid ISBN.
	ISBN string `json:"isbn,omitempty"`
}

// Decoder reads at most one barcode from a frame.
type Decoder interface {
	Decode(img image.Image) (Result, error)
	Close() error
}
