package capture

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/anime-shed/bookcapture-go/internal/crop"
	apperrors "github.com/anime-shed/bookcapture-go/internal/errors"
	"github.com/anime-shed/bookcapture-go/internal/imagebuf"
	"github.com/anime-shed/bookcapture-go/internal/logger"
	"github.com/anime-shed/bookcapture-go/internal/observer"
	"github.com/anime-shed/bookcapture-go/pkg/validation"
)

// Manager tracks open capture sessions. An owner has at most one session
// open at a time; starting another while it is open is rejected.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	byOwner  map[string]string

	ttl    time.Duration
	limit  int64
	events observer.Subject
	now    func() time.Time
	newID  func() string
}

// NewManager creates a manager. events may be nil.
func NewManager(ttl time.Duration, limit int64, events observer.Subject) *Manager {
	if events == nil {
		events = observer.Discard
	}
	return &Manager{
		sessions: make(map[string]*Session),
		byOwner:  make(map[string]string),
		ttl:      ttl,
		limit:    limit,
		events:   events,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// Begin validates f and opens a session for owner.
func (m *Manager) Begin(ctx context.Context, owner string, source SourceType, f imagebuf.File) (*Session, error) {
	if err := validation.ValidateImageFile(f, m.limit); err != nil {
		return nil, err
	}
	width, height, err := imagebuf.DecodeConfig(f.Data)
	if err != nil {
		return nil, apperrors.NewValidationError("image could not be decoded", err)
	}

	m.mu.Lock()
	if id, busy := m.byOwner[owner]; busy && owner != "" {
		m.mu.Unlock()
		return nil, apperrors.NewCaptureInProgressError(id)
	}
	now := m.now()
	s := &Session{
		ID:        m.newID(),
		Owner:     owner,
		Source:    source,
		File:      f,
		Width:     width,
		Height:    height,
		Editor:    crop.NewEditor(width, height),
		CreatedAt: now,
		lastSeen:  now,
	}
	m.sessions[s.ID] = s
	if owner != "" {
		m.byOwner[owner] = s.ID
	}
	m.mu.Unlock()

	m.events.NotifyObservers(ctx, observer.PipelineEvent{
		EventType: observer.CaptureStarted,
		SessionID: s.ID,
		Source:    string(source),
		Success:   true,
		Metadata: map[string]interface{}{
			"mime_type": f.MIMEType,
			"width":     width,
			"height":    height,
		},
	})
	return s, nil
}

// Capture runs p once and opens a session with the result. The owner slot is
// checked before picking so a busy owner never triggers the picker.
func (m *Manager) Capture(ctx context.Context, owner string, source SourceType, p Picker) (*Session, error) {
	if id, busy := m.Active(owner); busy {
		return nil, apperrors.NewCaptureInProgressError(id)
	}
	f, err := p.Pick(ctx)
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeCaptureCancelled) {
			m.events.NotifyObservers(ctx, observer.PipelineEvent{
				EventType: observer.CaptureCancelled,
				Source:    string(source),
			})
		}
		return nil, err
	}
	return m.Begin(ctx, owner, source, f)
}

// Active returns the open session id for owner.
func (m *Manager) Active(owner string) (string, bool) {
	if owner == "" {
		return "", false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byOwner[owner]
	return id, ok
}

// Get returns the session and refreshes its expiry.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok {
		return nil, apperrors.NewNotFoundError("capture session not found", nil)
	}
	s.touch(m.now())
	return s, nil
}

// End closes the session, freeing its owner slot.
func (m *Manager) End(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return apperrors.NewNotFoundError("capture session not found", nil)
	}
	m.removeLocked(s)
	return nil
}

// Cancel ends the session as abandoned.
func (m *Manager) Cancel(ctx context.Context, id string) error {
	if err := m.End(id); err != nil {
		return err
	}
	m.events.NotifyObservers(ctx, observer.PipelineEvent{
		EventType: observer.CaptureCancelled,
		SessionID: id,
	})
	return nil
}

// Len returns the number of open sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Manager) removeLocked(s *Session) {
	delete(m.sessions, s.ID)
	if s.Owner != "" && m.byOwner[s.Owner] == s.ID {
		delete(m.byOwner, s.Owner)
	}
}

// Sweep drops sessions idle for longer than the TTL and returns how many.
func (m *Manager) Sweep(ctx context.Context) int {
	if m.ttl <= 0 {
		return 0
	}
	now := m.now()

	m.mu.Lock()
	var expired []string
	for _, s := range m.sessions {
		if s.idleSince(now) > m.ttl {
			m.removeLocked(s)
			expired = append(expired, s.ID)
		}
	}
	m.mu.Unlock()

	for _, id := range expired {
		m.events.NotifyObservers(ctx, observer.PipelineEvent{
			EventType: observer.CaptureExpired,
			SessionID: id,
		})
	}
	return len(expired)
}

// Run sweeps expired sessions until ctx is cancelled.
func (m *Manager) Run(ctx context.Context) {
	if m.ttl <= 0 {
		return
	}
	interval := m.ttl / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Sweep(ctx); n > 0 {
				logger.Component("capture").WithField("expired", n).Info("Expired capture sessions removed")
			}
		}
	}
}
