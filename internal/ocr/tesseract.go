//go:build tesseract

package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"sync"

	"github.com/otiai10/gosseract/v2"
)

// TesseractAvailable reports whether the Tesseract engine is compiled in.
const TesseractAvailable = true

// tesseractEngine serializes access to one gosseract client, which is not
// safe for concurrent use.
type tesseractEngine struct {
	mu     sync.Mutex
	client *gosseract.Client
}

// NewTesseractFactory returns a factory for Tesseract engines. Accelerated
// mode uses cfg; fallback mode uses English with the default tessdata path.
func NewTesseractFactory(cfg EngineConfig) EngineFactory {
	return func(ctx context.Context, mode Mode) (Engine, error) {
		client := gosseract.NewClient()

		langs := []string{"eng"}
		if mode == ModeAccelerated {
			if len(cfg.Languages) > 0 {
				langs = cfg.Languages
			}
			if cfg.TessdataPrefix != "" {
				if err := client.SetTessdataPrefix(cfg.TessdataPrefix); err != nil {
					client.Close()
					return nil, fmt.Errorf("set tessdata prefix: %w", err)
				}
			}
		}
		if err := client.SetLanguage(langs...); err != nil {
			client.Close()
			return nil, fmt.Errorf("set language: %w", err)
		}

		e := &tesseractEngine{client: client}
		if err := e.warmUp(); err != nil {
			client.Close()
			return nil, fmt.Errorf("tesseract %s init: %w", mode, err)
		}
		return e, nil
	}
}

// warmUp forces Tesseract to load its language data so that a broken
// install fails here instead of on the first photo.
func (e *tesseractEngine) warmUp() error {
	var buf bytes.Buffer
	blank := image.NewGray(image.Rect(0, 0, 32, 32))
	for i := range blank.Pix {
		blank.Pix[i] = 0xff
	}
	if err := png.Encode(&buf, blank); err != nil {
		return err
	}
	_, err := e.Recognize(context.Background(), buf.Bytes())
	return err
}

func (e *tesseractEngine) Recognize(ctx context.Context, data []byte) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := e.client.SetImageFromBytes(data); err != nil {
		return "", fmt.Errorf("failed to set image: %w", err)
	}
	text, err := e.client.Text()
	if err != nil {
		return "", fmt.Errorf("OCR failed: %w", err)
	}
	return text, nil
}

func (e *tesseractEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.client.Close()
}
