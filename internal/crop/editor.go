package crop

import (
	"fmt"
	"sync"

	"github.com/anime-shed/bookcapture-go/internal/imagebuf"
)

// Snapshot is a read-only view of an editor, suitable for JSON responses.
type Snapshot struct {
	Phase    Phase          `json:"phase"`
	Rect     *imagebuf.Rect `json:"rect,omitempty"`
	Handle   Handle         `json:"handle,omitempty"`
	CanApply bool           `json:"can_apply"`
	Geometry Geometry       `json:"geometry"`
}

// Editor serializes events for one image. Pointer events from a single
// session may arrive on different goroutines.
type Editor struct {
	mu    sync.Mutex
	geo   Geometry
	state State
}

// NewEditor starts an editor for a width×height image shown at natural size.
func NewEditor(width, height int) *Editor {
	return &Editor{geo: NewGeometry(width, height), state: Idle{}}
}

// SetDisplaySize records the size the image is rendered at. Later pointer
// coordinates are interpreted in that space.
func (e *Editor) SetDisplaySize(width, height float64) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("display size must be positive, got %.1fx%.1f", width, height)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.geo.DisplayWidth = width
	e.geo.DisplayHeight = height
	return nil
}

// Dispatch applies events in order and returns the resulting snapshot.
func (e *Editor) Dispatch(events ...Event) Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, ev := range events {
		e.state = Reduce(e.state, ev, e.geo)
	}
	return e.snapshotLocked()
}

// State returns the current state value and geometry.
func (e *Editor) State() (State, Geometry) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state, e.geo
}

func (e *Editor) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *Editor) snapshotLocked() Snapshot {
	snap := Snapshot{
		Phase:    e.state.Phase(),
		CanApply: CanApply(e.state, e.geo),
		Geometry: e.geo,
	}
	if r, ok := e.state.Selection(); ok {
		snap.Rect = &r
	}
	if rs, ok := e.state.(Resizing); ok {
		snap.Handle = rs.Handle
	}
	return snap
}
