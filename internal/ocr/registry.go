package ocr

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	apperrors "github.com/anime-shed/bookcapture-go/internal/errors"
	"github.com/anime-shed/bookcapture-go/internal/logger"
)

const loadKey = "engine"

// Registry owns the process-wide engine. Concurrent first callers share a
// single load; a failed load is not cached.
type Registry struct {
	factory EngineFactory
	group   singleflight.Group

	mu     sync.RWMutex
	engine Engine
	mode   Mode

	loads atomic.Int64
}

// NewRegistry creates a registry that loads engines through factory.
func NewRegistry(factory EngineFactory) *Registry {
	return &Registry{factory: factory}
}

// Get returns the shared engine, loading it on first use. The load itself is
// not cancelled by ctx so that other waiters still receive it.
func (r *Registry) Get(ctx context.Context) (Engine, error) {
	if e, _ := r.current(); e != nil {
		return e, nil
	}

	ch := r.group.DoChan(loadKey, func() (interface{}, error) {
		if e, _ := r.current(); e != nil {
			return e, nil
		}
		return r.load(context.WithoutCancel(ctx))
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(Engine), nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, apperrors.NewTimeoutError("waiting for ocr engine", ctx.Err())
		}
		return nil, apperrors.NewCaptureCancelledError(ctx.Err())
	}
}

func (r *Registry) load(ctx context.Context) (Engine, error) {
	r.loads.Add(1)
	log := logger.Component("ocr")

	e, accErr := r.factory(ctx, ModeAccelerated)
	mode := ModeAccelerated
	if accErr != nil {
		log.WithError(accErr).Warn("Accelerated OCR engine unavailable, falling back")
		var fbErr error
		e, fbErr = r.factory(ctx, ModeFallback)
		if fbErr != nil {
			return nil, apperrors.NewEngineInitFailedError(errors.Join(accErr, fbErr))
		}
		mode = ModeFallback
	}

	r.mu.Lock()
	r.engine, r.mode = e, mode
	r.mu.Unlock()

	log.WithField("mode", mode).Info("OCR engine loaded")
	return e, nil
}

func (r *Registry) current() (Engine, Mode) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.engine, r.mode
}

// Mode reports the mode of the loaded engine, or "" before a successful load.
func (r *Registry) Mode() Mode {
	_, m := r.current()
	return m
}

// Loads counts load attempts; used by health reporting.
func (r *Registry) Loads() int64 {
	return r.loads.Load()
}

// Close releases the engine. A later Get loads a new one.
func (r *Registry) Close() error {
	r.mu.Lock()
	e := r.engine
	r.engine, r.mode = nil, ""
	r.mu.Unlock()
	if e == nil {
		return nil
	}
	return e.Close()
}
