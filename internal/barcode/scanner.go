package barcode

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	apperrors "github.com/anime-shed/bookcapture-go/internal/errors"
	"github.com/anime-shed/bookcapture-go/internal/logger"
	"github.com/anime-shed/bookcapture-go/internal/observer"
)

// Handler receives the decoded barcode. It is called at most once per scan.
type Handler func(Result)

// ScannerOption configures a Scanner.
type ScannerOption func(*Scanner)

// WithScanTimeout ends the scan with a timeout error after d. Zero disables it.
func WithScanTimeout(d time.Duration) ScannerOption {
	return func(s *Scanner) { s.timeout = d }
}

// WithEvents publishes scan events to events.
func WithEvents(events observer.Subject) ScannerOption {
	return func(s *Scanner) {
		if events != nil {
			s.events = events
		}
	}
}

// WithSessionID tags published events.
func WithSessionID(id string) ScannerOption {
	return func(s *Scanner) { s.sessionID = id }
}

// Scanner runs one decode loop over a camera stream. It is single use: after
// a result, a failure or Stop, a new Scanner is needed.
type Scanner struct {
	camera    Camera
	decoder   Decoder
	timeout   time.Duration
	events    observer.Subject
	sessionID string

	mu      sync.Mutex
	started bool
	settled bool // result claimed or Stop called
	stopped bool
	cancel  context.CancelFunc
	result  *Result
	err     error
	began   time.Time

	release sync.Once
	done    chan struct{}
}

// NewScanner creates a scanner reading frames from camera.
func NewScanner(camera Camera, decoder Decoder, opts ...ScannerOption) *Scanner {
	s := &Scanner{
		camera:  camera,
		decoder: decoder,
		events:  observer.Discard,
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start opens the camera and begins decoding in the background. handler is
// invoked with the first barcode read; the camera is released before it runs.
// The timeout and Stop both apply while the camera is still opening.
func (s *Scanner) Start(ctx context.Context, handler Handler) error {
	loopCtx, cancel := context.WithCancel(ctx)
	if s.timeout > 0 {
		var cancelTimeout context.CancelFunc
		loopCtx, cancelTimeout = context.WithTimeout(loopCtx, s.timeout)
		parent := cancel
		cancel = func() { cancelTimeout(); parent() }
	}

	s.mu.Lock()
	if s.started || s.settled {
		s.mu.Unlock()
		cancel()
		return apperrors.NewValidationError("scanner already used", nil)
	}
	s.started = true
	s.began = time.Now()
	s.cancel = cancel
	s.mu.Unlock()

	stream, err := s.camera.Open(loopCtx)
	if err != nil {
		err = openError(loopCtx, err)
		cancel()
		if s.Stopped() {
			s.finish(nil, nil)
			return nil
		}
		s.finish(nil, err)
		s.publish(ctx, observer.ScanFailed, nil, err)
		return err
	}

	s.mu.Lock()
	if s.settled {
		// Stop arrived while the camera was opening.
		s.mu.Unlock()
		cancel()
		s.finish(stream, nil)
		return nil
	}
	s.mu.Unlock()

	s.publish(ctx, observer.ScanStarted, nil, nil)
	go s.loop(loopCtx, cancel, stream, handler)
	return nil
}

func openError(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, ErrPermissionDenied):
		return apperrors.NewCameraPermissionDeniedError(err)
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return apperrors.NewTimeoutError("camera did not start before timeout", ctx.Err())
	case ctx.Err() != nil:
		return apperrors.NewCaptureCancelledError(ctx.Err())
	}
	return apperrors.NewInternalError("failed to open camera", err)
}

func (s *Scanner) loop(ctx context.Context, cancel context.CancelFunc, stream Stream, handler Handler) {
	defer cancel()
	log := logger.Component("barcode")

	for {
		frame, err := stream.Next(ctx)
		if err != nil {
			s.fail(ctx, stream, err)
			return
		}

		res, err := s.decoder.Decode(frame)
		if err != nil {
			if !errors.Is(err, ErrNotFound) {
				log.WithError(err).Debug("Frame decode failed")
			}
			continue
		}

		if !s.claim(res) {
			s.finish(stream, nil)
			return
		}
		s.finish(stream, nil)
		s.publish(ctx, observer.BarcodeDecoded, &res, nil)
		if handler != nil {
			handler(res)
		}
		return
	}
}

// claim records res as the scan result unless Stop got there first.
func (s *Scanner) claim(res Result) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.settled {
		return false
	}
	s.settled = true
	s.result = &res
	return true
}

func (s *Scanner) fail(ctx context.Context, stream Stream, cause error) {
	s.mu.Lock()
	stopped := s.stopped
	s.settled = true
	s.mu.Unlock()

	if stopped {
		s.finish(stream, nil)
		return
	}

	var err error
	switch {
	case errors.Is(cause, io.EOF):
		err = apperrors.NewNotFoundError("no barcode found", cause)
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		err = apperrors.NewTimeoutError("no barcode found before timeout", ctx.Err())
	case ctx.Err() != nil:
		err = apperrors.NewCaptureCancelledError(ctx.Err())
	case errors.Is(cause, ErrPermissionDenied):
		err = apperrors.NewCameraPermissionDeniedError(cause)
	default:
		err = apperrors.NewInternalError("camera stream failed", cause)
	}
	s.finish(stream, err)
	s.publish(context.WithoutCancel(ctx), observer.ScanFailed, nil, err)
}

// finish releases the stream and decoder and marks the scan done.
func (s *Scanner) finish(stream Stream, err error) {
	s.release.Do(func() {
		log := logger.Component("barcode")
		if stream != nil {
			if cerr := stream.Close(); cerr != nil {
				log.WithError(cerr).Warn("Failed to close camera stream")
			}
		}
		if cerr := s.decoder.Close(); cerr != nil {
			log.WithError(cerr).Warn("Failed to close decoder")
		}

		s.mu.Lock()
		s.settled = true
		if err != nil && s.err == nil {
			s.err = err
		}
		s.mu.Unlock()
		close(s.done)
	})
}

// Stop ends the scan and waits until the camera is released. After Stop
// returns the handler is not called, unless a frame had already been decoded
// when Stop was entered. Stop is idempotent.
func (s *Scanner) Stop() {
	s.mu.Lock()
	if !s.settled {
		s.stopped = true
	}
	s.settled = true
	started, cancel := s.started, s.cancel
	s.mu.Unlock()

	if !started {
		s.release.Do(func() {
			if err := s.decoder.Close(); err != nil {
				logger.Component("barcode").WithError(err).Warn("Failed to close decoder")
			}
			close(s.done)
		})
		return
	}
	cancel()
	<-s.done
}

// Done is closed once the camera has been released.
func (s *Scanner) Done() <-chan struct{} { return s.done }

// Err returns the failure that ended the scan, if any.
func (s *Scanner) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Result returns the decoded barcode once the scan has succeeded.
func (s *Scanner) Result() (Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		return Result{}, false
	}
	return *s.result, true
}

// Stopped reports whether Stop ended the scan before a result.
func (s *Scanner) Stopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// Scan starts the scanner and blocks until it produces a result or ends.
func (s *Scanner) Scan(ctx context.Context) (Result, error) {
	if err := s.Start(ctx, nil); err != nil {
		return Result{}, err
	}
	<-s.done
	if res, ok := s.Result(); ok {
		return res, nil
	}
	if err := s.Err(); err != nil {
		return Result{}, err
	}
	return Result{}, apperrors.NewCaptureCancelledError(nil)
}

func (s *Scanner) publish(ctx context.Context, t observer.EventType, res *Result, err error) {
	s.mu.Lock()
	began := s.began
	s.mu.Unlock()

	event := observer.PipelineEvent{
		EventType: t,
		Timestamp: time.Now(),
		SessionID: s.sessionID,
		Source:    "camera",
		Duration:  time.Since(began),
		Success:   err == nil,
	}
	if res != nil {
		event.Metadata = map[string]interface{}{"format": res.Format, "text": res.Text}
		if res.ISBN != "" {
			event.Metadata["isbn"] = res.ISBN
		}
	}
	if err != nil {
		event.ErrorMessage = err.Error()
	}
	s.events.NotifyObservers(ctx, event)
}
