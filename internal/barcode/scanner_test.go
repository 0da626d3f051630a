package barcode

import (
	"context"
	"errors"
	"image"
	"io"
	"sync/atomic"
	"testing"
	"time"

	apperrors "github.com/anime-shed/bookcapture-go/internal/errors"
	"github.com/anime-shed/bookcapture-go/internal/observer"
)

type fakeStream struct {
	delay  time.Duration
	limit  int64 // frames before io.EOF, 0 for unlimited
	frames atomic.Int64
	closed atomic.Int32
}

func (s *fakeStream) Next(ctx context.Context) (image.Image, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(s.delay):
	}
	n := s.frames.Add(1)
	if s.limit > 0 && n > s.limit {
		return nil, io.EOF
	}
	return image.NewGray(image.Rect(0, 0, 4, 4)), nil
}

func (s *fakeStream) Close() error {
	s.closed.Add(1)
	return nil
}

type fakeCamera struct {
	stream *fakeStream
	err    error
}

func (c *fakeCamera) Open(ctx context.Context) (Stream, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.stream, nil
}

type fakeDecoder struct {
	succeed atomic.Bool
	calls   atomic.Int64
	closed  atomic.Int32
}

func (d *fakeDecoder) Decode(img image.Image) (Result, error) {
	d.calls.Add(1)
	if d.succeed.Load() {
		return Result{Text: "9780306406157", Format: "EAN_13", ISBN: "9780306406157"}, nil
	}
	return Result{}, ErrNotFound
}

func (d *fakeDecoder) Close() error {
	d.closed.Add(1)
	return nil
}

func TestScanner_DeliversSingleResult(t *testing.T) {
	stream := &fakeStream{delay: time.Millisecond}
	dec := &fakeDecoder{}
	dec.succeed.Store(true)
	metrics := observer.NewMetricsObserver()
	events := observer.NewEventPublisher()
	events.Subscribe(metrics)

	var calls atomic.Int32
	s := NewScanner(&fakeCamera{stream: stream}, dec, WithEvents(events))
	if err := s.Start(context.Background(), func(Result) { calls.Add(1) }); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for scan")
	}
	time.Sleep(20 * time.Millisecond)
	events.Wait()

	if got := calls.Load(); got != 1 {
		t.Errorf("Expected 1 handler call, got %d", got)
	}
	if stream.closed.Load() != 1 || dec.closed.Load() != 1 {
		t.Errorf("Expected stream and decoder closed once, got %d and %d", stream.closed.Load(), dec.closed.Load())
	}
	res, ok := s.Result()
	if !ok || res.ISBN != "9780306406157" {
		t.Errorf("Unexpected result %+v (%v)", res, ok)
	}
	if m := metrics.GetMetrics(); m.ScansStarted != 1 || m.BarcodesDecoded != 1 {
		t.Errorf("Unexpected metrics %+v", m)
	}
}

func TestScanner_NoCallbackAfterStop(t *testing.T) {
	stream := &fakeStream{delay: time.Millisecond}
	dec := &fakeDecoder{}

	var calls atomic.Int32
	s := NewScanner(&fakeCamera{stream: stream}, dec)
	if err := s.Start(context.Background(), func(Result) { calls.Add(1) }); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	time.Sleep(100 * time.Millisecond)
	s.Stop()
	framesAtStop := stream.frames.Load()
	dec.succeed.Store(true)
	time.Sleep(100 * time.Millisecond)

	if got := calls.Load(); got != 0 {
		t.Errorf("Expected no handler calls after Stop, got %d", got)
	}
	if framesAtStop == 0 {
		t.Error("Expected frames to be read before Stop")
	}
	if got := stream.frames.Load(); got != framesAtStop {
		t.Errorf("Expected no frames read after Stop, read %d more", got-framesAtStop)
	}
	if stream.closed.Load() != 1 || dec.closed.Load() != 1 {
		t.Error("Expected camera resources released on Stop")
	}
	if !s.Stopped() {
		t.Error("Expected Stopped() to be true")
	}
	if err := s.Err(); err != nil {
		t.Errorf("Expected no error after Stop, got %v", err)
	}
}

func TestScanner_StopIsIdempotent(t *testing.T) {
	stream := &fakeStream{delay: time.Millisecond}
	dec := &fakeDecoder{}
	s := NewScanner(&fakeCamera{stream: stream}, dec)
	if err := s.Start(context.Background(), nil); err != nil {
		t.Fatal(err)
	}
	s.Stop()
	s.Stop()
	if stream.closed.Load() != 1 {
		t.Errorf("Expected a single close, got %d", stream.closed.Load())
	}
}

func TestScanner_StopBeforeStart(t *testing.T) {
	dec := &fakeDecoder{}
	s := NewScanner(&fakeCamera{stream: &fakeStream{}}, dec)
	s.Stop()

	select {
	case <-s.Done():
	default:
		t.Error("Expected Done to be closed")
	}
	if err := s.Start(context.Background(), nil); err == nil {
		t.Error("Expected a stopped scanner to refuse Start")
	}
}

func TestScanner_PermissionDenied(t *testing.T) {
	dec := &fakeDecoder{}
	s := NewScanner(&fakeCamera{err: ErrPermissionDenied}, dec)

	err := s.Start(context.Background(), nil)
	if !apperrors.IsType(err, apperrors.ErrorTypeCameraPermissionDenied) {
		t.Fatalf("Expected camera_permission_denied, got %v", err)
	}
	if apperrors.GetStatusCode(err) != 403 {
		t.Errorf("Expected 403, got %d", apperrors.GetStatusCode(err))
	}
	if dec.closed.Load() != 1 {
		t.Error("Expected decoder released")
	}
}

func TestScanner_Timeout(t *testing.T) {
	stream := &fakeStream{delay: time.Millisecond}
	s := NewScanner(&fakeCamera{stream: stream}, &fakeDecoder{}, WithScanTimeout(50*time.Millisecond))

	_, err := s.Scan(context.Background())
	if !apperrors.IsType(err, apperrors.ErrorTypeTimeout) {
		t.Fatalf("Expected timeout error, got %v", err)
	}
	if stream.closed.Load() != 1 {
		t.Error("Expected stream closed on timeout")
	}
}

func TestScanner_StreamExhausted(t *testing.T) {
	stream := &fakeStream{limit: 3}
	s := NewScanner(&fakeCamera{stream: stream}, &fakeDecoder{})

	_, err := s.Scan(context.Background())
	if !apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
		t.Fatalf("Expected not_found, got %v", err)
	}
}

func TestScanner_ContextCancelled(t *testing.T) {
	stream := &fakeStream{delay: time.Millisecond}
	ctx, cancel := context.WithCancel(context.Background())
	s := NewScanner(&fakeCamera{stream: stream}, &fakeDecoder{})
	if err := s.Start(ctx, nil); err != nil {
		t.Fatal(err)
	}
	cancel()

	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatal("Expected scan to end on cancellation")
	}
	if !apperrors.IsType(s.Err(), apperrors.ErrorTypeCaptureCancelled) {
		t.Errorf("Expected capture_cancelled, got %v", s.Err())
	}
}

func TestScanner_ScanReturnsResult(t *testing.T) {
	dec := &fakeDecoder{}
	dec.succeed.Store(true)
	s := NewScanner(&fakeCamera{stream: &fakeStream{}}, dec)

	res, err := s.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if res.Format != "EAN_13" {
		t.Errorf("Expected EAN_13, got %s", res.Format)
	}
	if err := s.Start(context.Background(), nil); err == nil {
		t.Error("Expected scanner to be single use")
	}
}

func TestScanner_OpenFailure(t *testing.T) {
	s := NewScanner(&fakeCamera{err: errors.New("no device")}, &fakeDecoder{})
	err := s.Start(context.Background(), nil)
	if !apperrors.IsType(err, apperrors.ErrorTypeInternal) {
		t.Errorf("Expected internal error, got %v", err)
	}
}

// slowCamera blocks in Open until gate is closed, or until ctx ends when
// honorCtx is set.
type slowCamera struct {
	stream   *fakeStream
	gate     chan struct{}
	opening  chan struct{}
	honorCtx bool
}

func newSlowCamera(honorCtx bool) *slowCamera {
	return &slowCamera{
		stream:   &fakeStream{delay: time.Millisecond},
		gate:     make(chan struct{}),
		opening:  make(chan struct{}),
		honorCtx: honorCtx,
	}
}

func (c *slowCamera) Open(ctx context.Context) (Stream, error) {
	close(c.opening)
	if c.honorCtx {
		select {
		case <-c.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	} else {
		<-c.gate
	}
	return c.stream, nil
}

func TestScanner_StopWhileOpeningCancelsOpen(t *testing.T) {
	cam := newSlowCamera(true)
	dec := &fakeDecoder{}
	dec.succeed.Store(true)
	s := NewScanner(cam, dec)

	var calls atomic.Int32
	startErr := make(chan error, 1)
	go func() { startErr <- s.Start(context.Background(), func(Result) { calls.Add(1) }) }()
	<-cam.opening

	s.Stop()

	select {
	case <-s.Done():
	default:
		t.Fatal("Expected Done to be closed when Stop returns")
	}
	if err := <-startErr; err != nil {
		t.Errorf("Expected Start to end quietly after Stop, got %v", err)
	}
	if !s.Stopped() || s.Err() != nil {
		t.Errorf("Expected a clean stop, got stopped=%v err=%v", s.Stopped(), s.Err())
	}
	if dec.closed.Load() != 1 || calls.Load() != 0 {
		t.Errorf("Expected decoder released and no result, got closed=%d calls=%d", dec.closed.Load(), calls.Load())
	}
}

func TestScanner_StopWaitsForSlowOpen(t *testing.T) {
	cam := newSlowCamera(false)
	dec := &fakeDecoder{}
	dec.succeed.Store(true)
	s := NewScanner(cam, dec)

	var calls atomic.Int32
	go func() { _ = s.Start(context.Background(), func(Result) { calls.Add(1) }) }()
	<-cam.opening

	stopped := make(chan struct{})
	go func() {
		s.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Expected Stop to wait while the camera is still opening")
	case <-time.After(50 * time.Millisecond):
	}

	close(cam.gate)
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for Stop")
	}
	if cam.stream.closed.Load() != 1 {
		t.Errorf("Expected stream closed once by the time Stop returns, got %d", cam.stream.closed.Load())
	}
	if calls.Load() != 0 {
		t.Error("Expected no result after Stop")
	}
}

func TestScanner_TimeoutWhileOpening(t *testing.T) {
	cam := newSlowCamera(true)
	s := NewScanner(cam, &fakeDecoder{}, WithScanTimeout(30*time.Millisecond))

	err := s.Start(context.Background(), nil)
	if !apperrors.IsType(err, apperrors.ErrorTypeTimeout) {
		t.Errorf("Expected timeout, got %v", err)
	}
}
