package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"sync/atomic"
	"testing"
	"time"

	"github.com/anime-shed/bookcapture-go/internal/capture"
	"github.com/anime-shed/bookcapture-go/internal/crop"
	apperrors "github.com/anime-shed/bookcapture-go/internal/errors"
	"github.com/anime-shed/bookcapture-go/internal/imagebuf"
	"github.com/anime-shed/bookcapture-go/internal/observer"
	"github.com/anime-shed/bookcapture-go/internal/ocr"
	"github.com/anime-shed/bookcapture-go/internal/quality"
	"github.com/anime-shed/bookcapture-go/pkg/models"
)

type stubEngine struct {
	text string
	err  error
}

func (e *stubEngine) Recognize(ctx context.Context, _ []byte) (string, error) { return e.text, e.err }
func (e *stubEngine) Close() error                                           { return nil }

type filePicker struct{ file imagebuf.File }

func (p filePicker) Pick(ctx context.Context) (imagebuf.File, error) { return p.file, nil }

func pngFile(t *testing.T, w, h int) imagebuf.File {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{uint8(x), uint8(y), 90, 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return imagebuf.File{Name: "page.png", MIMEType: imagebuf.MIMEPNG, Data: buf.Bytes()}
}

type fixture struct {
	svc     CaptureService
	metrics *observer.MetricsObserver
	events  *observer.EventPublisher
	engine  *stubEngine
	loads   *atomic.Int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		metrics: observer.NewMetricsObserver(),
		events:  observer.NewEventPublisher(),
		engine:  &stubEngine{text: "  Hello world \n"},
		loads:   &atomic.Int64{},
	}
	f.events.Subscribe(f.metrics)
	registry := ocr.NewRegistry(func(ctx context.Context, mode ocr.Mode) (ocr.Engine, error) {
		f.loads.Add(1)
		return f.engine, nil
	})
	f.svc = NewCaptureService(
		capture.NewManager(time.Hour, 0, f.events),
		ocr.NewExtractor(registry, f.events),
		quality.NewInspector(nil),
		f.events,
	)
	return f
}

func TestCaptureService_CropAndExtract(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	view, err := f.svc.Start(ctx, "reader-1", capture.UploadSource, filePicker{pngFile(t, 200, 160)})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if view.Width != 200 || view.Height != 160 {
		t.Fatalf("Unexpected size %dx%d", view.Width, view.Height)
	}

	// Display at half size: a 50x40 display drag is 100x80 in the image.
	snap, err := f.svc.Dispatch(ctx, view.ID, models.CropEventsRequest{
		DisplayWidth:  100,
		DisplayHeight: 80,
		Events: []models.CropEvent{
			{Type: crop.EventPointerDown, X: 10, Y: 10},
			{Type: crop.EventPointerMove, X: 60, Y: 50},
			{Type: crop.EventPointerUp, X: 60, Y: 50},
			{Type: crop.EventApply},
		},
	})
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if snap.Phase != crop.PhaseCommitted {
		t.Fatalf("Expected committed, got %s", snap.Phase)
	}

	resp, err := f.svc.Finish(ctx, view.ID, true)
	if err != nil {
		t.Fatalf("Finish() error = %v", err)
	}
	want := imagebuf.Rect{X: 20, Y: 20, Width: 100, Height: 80}
	if !resp.Cropped || resp.Rect == nil || *resp.Rect != want {
		t.Errorf("Expected rect %v, got %+v", want, resp.Rect)
	}
	if resp.Extraction == nil || resp.Extraction.Text != "Hello world" || resp.Extraction.Status != ocr.StatusText {
		t.Errorf("Unexpected extraction %+v", resp.Extraction)
	}
	if resp.Extraction.Quality == nil || resp.Extraction.Quality.Metrics.Width != 100 {
		t.Errorf("Expected quality report for the cropped image, got %+v", resp.Extraction.Quality)
	}
	if resp.File.Data != nil {
		t.Error("Did not expect image bytes when extracting")
	}

	if _, err := f.svc.Get(view.ID); !apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
		t.Errorf("Expected finished session to be gone, got %v", err)
	}
	f.events.Wait()
	if m := f.metrics.GetMetrics(); m.CropsCommitted != 1 || m.ExtractionsCompleted != 1 {
		t.Errorf("Unexpected metrics %+v", m)
	}
}

func TestCaptureService_SkipReturnsOriginalBytes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	original := pngFile(t, 64, 48)

	view, err := f.svc.Start(ctx, "", capture.UploadSource, filePicker{original})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Dispatch(ctx, view.ID, models.CropEventsRequest{Events: []models.CropEvent{{Type: crop.EventSkip}}}); err != nil {
		t.Fatal(err)
	}
	resp, err := f.svc.Finish(ctx, view.ID, false)
	if err != nil {
		t.Fatalf("Finish() error = %v", err)
	}
	if resp.Cropped || !bytes.Equal(resp.File.Data, original.Data) {
		t.Error("Expected skip to hand over the original bytes unchanged")
	}
	if f.loads.Load() != 0 {
		t.Error("Did not expect the engine to load without extraction")
	}
}

func TestCaptureService_FinishRequiresDecision(t *testing.T) {
	f := newFixture(t)
	view, err := f.svc.Start(context.Background(), "", capture.UploadSource, filePicker{pngFile(t, 64, 48)})
	if err != nil {
		t.Fatal(err)
	}
	_, err = f.svc.Finish(context.Background(), view.ID, false)
	if !apperrors.IsType(err, apperrors.ErrorTypeValidation) {
		t.Errorf("Expected validation error, got %v", err)
	}
}

func TestCaptureService_ExtractionFailureKeepsSession(t *testing.T) {
	f := newFixture(t)
	f.engine.err = errors.New("model crashed")
	ctx := context.Background()

	view, err := f.svc.Start(ctx, "reader-2", capture.UploadSource, filePicker{pngFile(t, 64, 48)})
	if err != nil {
		t.Fatal(err)
	}
	_, _ = f.svc.Dispatch(ctx, view.ID, models.CropEventsRequest{Events: []models.CropEvent{{Type: crop.EventSkip}}})

	_, err = f.svc.Finish(ctx, view.ID, true)
	if !apperrors.IsType(err, apperrors.ErrorTypeExtractionFailed) {
		t.Fatalf("Expected extraction_failed, got %v", err)
	}
	if _, err := f.svc.Get(view.ID); err != nil {
		t.Errorf("Expected session kept for an explicit retry, got %v", err)
	}

	f.engine.err = nil
	if _, err := f.svc.Finish(ctx, view.ID, true); err != nil {
		t.Errorf("Expected retry to succeed, got %v", err)
	}
}

func TestCaptureService_Overlay(t *testing.T) {
	f := newFixture(t)
	view, err := f.svc.Start(context.Background(), "", capture.UploadSource, filePicker{pngFile(t, 200, 100)})
	if err != nil {
		t.Fatal(err)
	}

	data, err := f.svc.Overlay(view.ID, 100, 50)
	if err != nil {
		t.Fatalf("Overlay() error = %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Overlay is not a PNG: %v", err)
	}
	if img.Bounds().Dx() != 100 || img.Bounds().Dy() != 50 {
		t.Errorf("Expected 100x50 overlay, got %v", img.Bounds())
	}

	if _, err := f.svc.Overlay(view.ID, -1, 50); !apperrors.IsType(err, apperrors.ErrorTypeValidation) {
		t.Errorf("Expected validation error for a negative display size, got %v", err)
	}
}

func TestCaptureService_Extract(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.engine.text = "   "
	resp, err := f.svc.Extract(ctx, pngFile(t, 32, 32), "", "")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if resp.Status != ocr.StatusNoText || resp.Message != apperrors.NoTextMessage {
		t.Errorf("Expected no_text with a notification, got %+v", resp)
	}

	f.engine.text = "Hello world"
	resp, err = f.svc.Extract(ctx, pngFile(t, 32, 32), "Hello word", "")
	if err != nil {
		t.Fatal(err)
	}
	if resp.Accuracy == nil || resp.Accuracy.CharErrors != 1 {
		t.Errorf("Expected one character error, got %+v", resp.Accuracy)
	}
}

func TestCaptureService_ExtractRejectsBeforeEngine(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Extract(context.Background(), imagebuf.File{Name: "a.txt", MIMEType: "text/plain", Data: []byte("hi")}, "", "")
	if !apperrors.IsType(err, apperrors.ErrorTypeInvalidImageType) {
		t.Errorf("Expected invalid_image_type, got %v", err)
	}
	if f.loads.Load() != 0 {
		t.Error("Expected the engine to stay unloaded")
	}
}

func TestCaptureService_OneSessionPerOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.svc.Start(ctx, "reader-3", capture.UploadSource, filePicker{pngFile(t, 16, 16)}); err != nil {
		t.Fatal(err)
	}
	_, err := f.svc.Start(ctx, "reader-3", capture.UploadSource, filePicker{pngFile(t, 16, 16)})
	if !apperrors.IsType(err, apperrors.ErrorTypeCaptureInProgress) {
		t.Errorf("Expected capture_in_progress, got %v", err)
	}
}
