package service

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"time"

	"github.com/anime-shed/bookcapture-go/internal/capture"
	"github.com/anime-shed/bookcapture-go/internal/crop"
	apperrors "github.com/anime-shed/bookcapture-go/internal/errors"
	"github.com/anime-shed/bookcapture-go/internal/imagebuf"
	"github.com/anime-shed/bookcapture-go/internal/logger"
	"github.com/anime-shed/bookcapture-go/internal/observer"
	"github.com/anime-shed/bookcapture-go/internal/ocr"
	"github.com/anime-shed/bookcapture-go/internal/quality"
	"github.com/anime-shed/bookcapture-go/pkg/models"
)

// CaptureService drives a capture from picking through cropping to text
// extraction.
type CaptureService interface {
	Start(ctx context.Context, owner string, source capture.SourceType, picker capture.Picker) (capture.SessionView, error)
	Get(id string) (capture.SessionView, error)
	Dispatch(ctx context.Context, id string, req models.CropEventsRequest) (crop.Snapshot, error)
	Overlay(id string, displayWidth, displayHeight float64) ([]byte, error)
	Finish(ctx context.Context, id string, extract bool) (*models.FinishResponse, error)
	Cancel(ctx context.Context, id string) error
	Extract(ctx context.Context, f imagebuf.File, expectedText, sessionID string) (*models.ExtractionResponse, error)
}

type captureService struct {
	sessions  *capture.Manager
	extractor *ocr.Extractor
	inspector *quality.Inspector
	events    observer.Subject
}

// NewCaptureService creates a new capture service
func NewCaptureService(
	sessions *capture.Manager,
	extractor *ocr.Extractor,
	inspector *quality.Inspector,
	events observer.Subject,
) CaptureService {
	if events == nil {
		events = observer.Discard
	}
	return &captureService{
		sessions:  sessions,
		extractor: extractor,
		inspector: inspector,
		events:    events,
	}
}

func (s *captureService) Start(ctx context.Context, owner string, source capture.SourceType, picker capture.Picker) (capture.SessionView, error) {
	session, err := s.sessions.Capture(ctx, owner, source, picker)
	if err != nil {
		return capture.SessionView{}, err
	}
	return session.View(), nil
}

func (s *captureService) Get(id string) (capture.SessionView, error) {
	session, err := s.sessions.Get(id)
	if err != nil {
		return capture.SessionView{}, err
	}
	return session.View(), nil
}

func (s *captureService) Dispatch(ctx context.Context, id string, req models.CropEventsRequest) (crop.Snapshot, error) {
	session, err := s.sessions.Get(id)
	if err != nil {
		return crop.Snapshot{}, err
	}
	if req.DisplayWidth != 0 || req.DisplayHeight != 0 {
		if err := session.Editor.SetDisplaySize(req.DisplayWidth, req.DisplayHeight); err != nil {
			return crop.Snapshot{}, apperrors.NewValidationError("invalid display size", err)
		}
	}
	events, err := req.Decode()
	if err != nil {
		return crop.Snapshot{}, apperrors.NewValidationError("invalid crop event", err)
	}
	return session.Editor.Dispatch(events...), nil
}

// Overlay renders the editor view at the given display size, or at the last
// display size recorded when both are zero.
func (s *captureService) Overlay(id string, displayWidth, displayHeight float64) ([]byte, error) {
	session, err := s.sessions.Get(id)
	if err != nil {
		return nil, err
	}
	if displayWidth != 0 || displayHeight != 0 {
		if err := session.Editor.SetDisplaySize(displayWidth, displayHeight); err != nil {
			return nil, apperrors.NewValidationError("invalid display size", err)
		}
	}

	src, _, err := imagebuf.Decode(session.File.Data)
	if err != nil {
		return nil, apperrors.NewValidationError("image could not be decoded", err)
	}
	state, geo := session.Editor.State()
	view := crop.RenderOverlay(src.Image(), state, geo)

	var buf bytes.Buffer
	if err := png.Encode(&buf, view); err != nil {
		return nil, apperrors.NewInternalError("failed to encode overlay", err)
	}
	return buf.Bytes(), nil
}

// Finish produces the final image. With extract set the session stays open
// when recognition fails so the caller can finish again.
func (s *captureService) Finish(ctx context.Context, id string, extract bool) (*models.FinishResponse, error) {
	session, err := s.sessions.Get(id)
	if err != nil {
		return nil, err
	}

	state, _ := session.Editor.State()
	out, err := crop.Finish(session.File, state)
	if err != nil {
		if errors.Is(err, crop.ErrCropNotFinished) {
			return nil, apperrors.NewValidationError("apply or skip the crop before finishing", err)
		}
		return nil, err
	}

	resp := &models.FinishResponse{SessionID: id, File: models.NewFileInfo(out, !extract)}
	event := observer.PipelineEvent{
		EventType: observer.CropSkipped,
		Timestamp: time.Now(),
		SessionID: id,
		Source:    string(session.Source),
		Success:   true,
	}
	if c, ok := state.(crop.Committed); ok {
		r := c.Rect
		resp.Cropped, resp.Rect = true, &r
		event.EventType = observer.CropCommitted
		event.Metadata = map[string]interface{}{"rect": r.String()}
	}

	if extract {
		extraction, err := s.Extract(ctx, out, "", id)
		if err != nil {
			return nil, err
		}
		resp.Extraction = extraction
	}

	if err := s.sessions.End(id); err != nil {
		logger.Component("service").WithError(err).WithField("session_id", id).Warn("Session ended concurrently")
	}
	s.events.NotifyObservers(ctx, event)
	return resp, nil
}

func (s *captureService) Cancel(ctx context.Context, id string) error {
	return s.sessions.Cancel(ctx, id)
}

func (s *captureService) Extract(ctx context.Context, f imagebuf.File, expectedText, sessionID string) (*models.ExtractionResponse, error) {
	res, err := s.extractor.Extract(ctx, f, ocr.WithExpectedText(expectedText), ocr.WithSessionID(sessionID))
	if err != nil {
		return nil, err
	}

	resp := &models.ExtractionResponse{
		Text:       res.Text,
		Status:     res.Status,
		Mode:       res.Mode,
		DurationMS: res.Duration.Milliseconds(),
		Accuracy:   res.Accuracy,
	}
	if res.Status == ocr.StatusNoText {
		resp.Message = apperrors.NoTextMessage
	}

	if s.inspector != nil {
		report, qerr := s.inspector.InspectFile(f)
		if qerr != nil {
			logger.Component("service").WithError(qerr).Debug("Quality inspection skipped")
		} else {
			resp.Quality = &report
		}
	}
	return resp, nil
}
