package ocr

import (
	"context"
	"errors"
	"strings"
	"time"

	apperrors "github.com/anime-shed/bookcapture-go/internal/errors"
	"github.com/anime-shed/bookcapture-go/internal/imagebuf"
	"github.com/anime-shed/bookcapture-go/internal/logger"
	"github.com/anime-shed/bookcapture-go/internal/observer"
	"github.com/anime-shed/bookcapture-go/pkg/validation"
)

// Status distinguishes text from an empty but successful extraction.
type Status string

const (
	StatusText   Status = "text"
	StatusNoText Status = "no_text"
)

// Result is the outcome of a successful extraction.
type Result struct {
	Text     string        `json:"text"`
	Status   Status        `json:"status"`
	Mode     Mode          `json:"mode"`
	Duration time.Duration `json:"duration"`
	Accuracy *Accuracy     `json:"accuracy,omitempty"`
}

// Options tune a single extraction.
type Options struct {
	Preprocess   bool
	Timeout      time.Duration
	MaxSize      int64
	ExpectedText string
	SessionID    string
}

// Option mutates Options.
type Option func(*Options)

func WithPreprocess(enabled bool) Option { return func(o *Options) { o.Preprocess = enabled } }

// WithTimeout bounds engine acquisition plus recognition; 0 is unbounded.
func WithTimeout(d time.Duration) Option { return func(o *Options) { o.Timeout = d } }

func WithMaxSize(limit int64) Option { return func(o *Options) { o.MaxSize = limit } }

// WithExpectedText adds an accuracy score against a known transcription.
func WithExpectedText(s string) Option { return func(o *Options) { o.ExpectedText = s } }

// WithSessionID tags emitted events with the capture session.
func WithSessionID(id string) Option { return func(o *Options) { o.SessionID = id } }

// Extractor runs validation, engine acquisition and recognition in order.
type Extractor struct {
	registry *Registry
	events   observer.Subject
	defaults Options
}

// NewExtractor creates an extractor; opts become the defaults of every call.
func NewExtractor(registry *Registry, events observer.Subject, opts ...Option) *Extractor {
	if events == nil {
		events = observer.Discard
	}
	x := &Extractor{registry: registry, events: events, defaults: Options{MaxSize: validation.MaxImageSize}}
	for _, opt := range opts {
		opt(&x.defaults)
	}
	return x
}

// Extract recognizes the text in f. Invalid input is rejected before the
// engine is touched; recognition is attempted once.
func (x *Extractor) Extract(ctx context.Context, f imagebuf.File, opts ...Option) (Result, error) {
	o := x.defaults
	for _, opt := range opts {
		opt(&o)
	}

	if err := validation.ValidateImageFile(f, o.MaxSize); err != nil {
		return Result{}, err
	}

	if o.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.Timeout)
		defer cancel()
	}

	start := time.Now()
	res, err := x.extract(ctx, f, o)
	res.Duration = time.Since(start)

	event := observer.PipelineEvent{
		EventType: observer.ExtractionCompleted,
		SessionID: o.SessionID,
		Duration:  res.Duration,
		Success:   err == nil,
		Metadata:  map[string]interface{}{"mime_type": f.MIMEType, "size": f.Size()},
	}
	if err != nil {
		event.EventType = observer.ExtractionFailed
		event.ErrorMessage = err.Error()
	} else {
		event.Metadata["status"] = res.Status
		event.Metadata["mode"] = res.Mode
	}
	x.events.NotifyObservers(ctx, event)

	return res, err
}

func (x *Extractor) extract(ctx context.Context, f imagebuf.File, o Options) (Result, error) {
	engine, err := x.registry.Get(ctx)
	if err != nil {
		return Result{}, err
	}

	data := f.Data
	if o.Preprocess {
		processed, perr := Preprocess(data)
		if perr != nil {
			logger.Component("ocr").WithError(perr).Warn("Preprocessing failed, using original image")
		} else {
			data = processed
		}
	}

	raw, err := engine.Recognize(ctx, data)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Result{}, apperrors.NewTimeoutError("text extraction timed out", err)
		}
		if errors.Is(ctx.Err(), context.Canceled) {
			return Result{}, apperrors.NewCaptureCancelledError(ctx.Err())
		}
		return Result{}, apperrors.NewExtractionFailedError(err)
	}

	res := Result{Text: strings.TrimSpace(raw), Mode: x.registry.Mode()}
	if res.Text == "" {
		res.Status = StatusNoText
	} else {
		res.Status = StatusText
	}
	if o.ExpectedText != "" {
		acc := Score(o.ExpectedText, res.Text)
		res.Accuracy = &acc
	}
	return res, nil
}
