package models

import (
	"time"

	"github.com/anime-shed/bookcapture-go/internal/crop"
)

// CaptureRequest starts a capture from a remote location. Uploads use
// multipart/form-data instead.
type CaptureRequest struct {
	Source string `json:"source" binding:"required,oneof=url azure"`
	URL    string `json:"url" binding:"required,url"`
}

// CropEvent is one pointer or button event in display coordinates.
type CropEvent struct {
	Type string  `json:"type" binding:"required"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// CropEventsRequest carries a batch of crop events. A non-zero display size
// is applied before the events.
type CropEventsRequest struct {
	DisplayWidth  float64     `json:"display_width,omitempty"`
	DisplayHeight float64     `json:"display_height,omitempty"`
	Events        []CropEvent `json:"events"`
}

// Decode converts the wire events into crop events.
func (r CropEventsRequest) Decode() ([]crop.Event, error) {
	out := make([]crop.Event, 0, len(r.Events))
	for _, e := range r.Events {
		ev, err := crop.ParseEvent(e.Type, e.X, e.Y)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, nil
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Type    string `json:"type,omitempty"`
	Message string `json:"message,omitempty"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status   string    `json:"status"`
	Version  string    `json:"version"`
	Time     time.Time `json:"time"`
	OCRMode  string    `json:"ocr_mode,omitempty"`
	Sessions int       `json:"sessions"`
}
