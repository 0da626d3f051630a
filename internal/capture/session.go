package capture

import (
	"sync"
	"time"

	"github.com/anime-shed/bookcapture-go/internal/crop"
	"github.com/anime-shed/bookcapture-go/internal/imagebuf"
)

// Session is one capture: the picked image plus its crop editor.
type Session struct {
	ID        string
	Owner     string
	Source    SourceType
	File      imagebuf.File
	Width     int
	Height    int
	Editor    *crop.Editor
	CreatedAt time.Time

	mu       sync.Mutex
	lastSeen time.Time
}

// SessionView is the JSON shape of a session.
type SessionView struct {
	ID        string        `json:"id"`
	Owner     string        `json:"owner,omitempty"`
	Source    SourceType    `json:"source"`
	FileName  string        `json:"file_name"`
	MIMEType  string        `json:"mime_type"`
	Size      int64         `json:"size"`
	Width     int           `json:"width"`
	Height    int           `json:"height"`
	CreatedAt time.Time     `json:"created_at"`
	Crop      crop.Snapshot `json:"crop"`
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeen)
}

// View snapshots the session.
func (s *Session) View() SessionView {
	return SessionView{
		ID:        s.ID,
		Owner:     s.Owner,
		Source:    s.Source,
		FileName:  s.File.Name,
		MIMEType:  s.File.MIMEType,
		Size:      s.File.Size(),
		Width:     s.Width,
		Height:    s.Height,
		CreatedAt: s.CreatedAt,
		Crop:      s.Editor.Snapshot(),
	}
}
