package transport

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/anime-shed/bookcapture-go/internal/capture"
	apperrors "github.com/anime-shed/bookcapture-go/internal/errors"
	"github.com/anime-shed/bookcapture-go/pkg/models"
)

func isMultipart(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), "multipart/")
}

// startCapture accepts either an uploaded photo or a remote image location.
func (h *handler) startCapture(c *gin.Context) {
	ctx, cancel := h.withTimeout(c)
	defer cancel()

	var (
		source capture.SourceType
		picker capture.Picker
	)
	if isMultipart(c) {
		source = capture.UploadSource
		picker = capture.NewUploadPicker(c.Request, capture.DefaultFormField, h.cfg.MaxUploadSize)
	} else {
		var req models.CaptureRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, apperrors.NewValidationError("invalid request format", err))
			return
		}
		source = capture.SourceType(req.Source)
		p, err := h.deps.Pickers.CreatePicker(source, req.URL)
		if err != nil {
			respondError(c, err)
			return
		}
		picker = p
	}

	view, err := h.deps.Captures.Start(ctx, c.GetHeader(OwnerHeader), source, picker)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

func (h *handler) getCapture(c *gin.Context) {
	view, err := h.deps.Captures.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *handler) cancelCapture(c *gin.Context) {
	if err := h.deps.Captures.Cancel(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handler) cropEvents(c *gin.Context) {
	var req models.CropEventsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.NewValidationError("invalid request format", err))
		return
	}
	snap, err := h.deps.Captures.Dispatch(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h *handler) overlay(c *gin.Context) {
	width, err := floatQuery(c, "display_width")
	if err != nil {
		respondError(c, err)
		return
	}
	height, err := floatQuery(c, "display_height")
	if err != nil {
		respondError(c, err)
		return
	}

	data, err := h.deps.Captures.Overlay(c.Param("id"), width, height)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", data)
}

// finish hands the cropped (or original) image on. Extraction runs unless
// extract=false.
func (h *handler) finish(c *gin.Context) {
	extract := true
	if v := c.Query("extract"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			respondError(c, apperrors.NewValidationError("extract must be a boolean", err))
			return
		}
		extract = b
	}

	ctx, cancel := h.withTimeout(c)
	defer cancel()

	resp, err := h.deps.Captures.Finish(ctx, c.Param("id"), extract)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// extractText runs recognition on an uploaded image without a session.
func (h *handler) extractText(c *gin.Context) {
	ctx, cancel := h.withTimeout(c)
	defer cancel()

	f, err := capture.NewUploadPicker(c.Request, capture.DefaultFormField, h.cfg.MaxUploadSize).Pick(ctx)
	if err != nil {
		respondError(c, err)
		return
	}

	resp, err := h.deps.Captures.Extract(ctx, f, c.PostForm("expected_text"), "")
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func floatQuery(c *gin.Context, key string) (float64, error) {
	v := c.Query(key)
	if v == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, apperrors.NewValidationError(key+" must be a number", err)
	}
	return f, nil
}
