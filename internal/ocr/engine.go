// Package ocr turns a (cropped) page photo into text. The recognition engine
// is loaded once per process and shared by every caller.
package ocr

import (
	"context"
	"errors"
)

// Mode selects how an engine is initialized.
type Mode string

const (
	// ModeAccelerated uses the configured languages and tessdata.
	ModeAccelerated Mode = "accelerated"
	// ModeFallback uses the bundled defaults.
	ModeFallback Mode = "fallback"
)

// Engine recognizes text in an encoded image.
type Engine interface {
	Recognize(ctx context.Context, image []byte) (string, error)
	Close() error
}

// EngineFactory builds an engine for mode. It is called at most once per
// mode for each load attempt.
type EngineFactory func(ctx context.Context, mode Mode) (Engine, error)

// ErrEngineUnavailable is returned by factories for engines not compiled in.
var ErrEngineUnavailable = errors.New("ocr engine not available in this build")

// EngineConfig holds settings shared by engine factories.
type EngineConfig struct {
	Languages      []string
	TessdataPrefix string
}
