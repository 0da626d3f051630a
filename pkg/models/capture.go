package models

import (
	"github.com/anime-shed/bookcapture-go/internal/imagebuf"
	"github.com/anime-shed/bookcapture-go/internal/ocr"
	"github.com/anime-shed/bookcapture-go/internal/quality"
)

// FileInfo describes an image handed to extraction. Data is base64 in JSON.
type FileInfo struct {
	Name     string `json:"name"`
	MIMEType string `json:"mime_type"`
	Size     int64  `json:"size"`
	Data     []byte `json:"data,omitempty"`
}

// NewFileInfo describes f, including its bytes when withData is set.
func NewFileInfo(f imagebuf.File, withData bool) FileInfo {
	info := FileInfo{Name: f.Name, MIMEType: f.MIMEType, Size: f.Size()}
	if withData {
		info.Data = f.Data
	}
	return info
}

// ExtractionResponse is the outcome of text recognition on one image.
type ExtractionResponse struct {
	Text       string          `json:"text"`
	Status     ocr.Status      `json:"status"`
	Mode       ocr.Mode        `json:"mode"`
	DurationMS int64           `json:"duration_ms"`
	Message    string          `json:"message,omitempty"`
	Accuracy   *ocr.Accuracy   `json:"accuracy,omitempty"`
	Quality    *quality.Report `json:"quality,omitempty"`
}

// FinishResponse is returned when a capture leaves the crop editor.
type FinishResponse struct {
	SessionID  string              `json:"session_id"`
	Cropped    bool                `json:"cropped"`
	Rect       *imagebuf.Rect      `json:"rect,omitempty"`
	File       FileInfo            `json:"file"`
	Extraction *ExtractionResponse `json:"extraction,omitempty"`
}
