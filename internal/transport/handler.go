package transport

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/anime-shed/bookcapture-go/internal/barcode"
	"github.com/anime-shed/bookcapture-go/internal/books"
	"github.com/anime-shed/bookcapture-go/internal/capture"
	"github.com/anime-shed/bookcapture-go/internal/config"
	apperrors "github.com/anime-shed/bookcapture-go/internal/errors"
	"github.com/anime-shed/bookcapture-go/internal/logger"
	"github.com/anime-shed/bookcapture-go/internal/observer"
	"github.com/anime-shed/bookcapture-go/internal/ocr"
	"github.com/anime-shed/bookcapture-go/internal/service"
	"github.com/anime-shed/bookcapture-go/pkg/models"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

// OwnerHeader identifies the reader a capture belongs to. Requests without
// it are not limited to one open capture.
const OwnerHeader = "X-Owner-ID"

// multipartOverhead is allowed on top of the image limit for form framing.
const multipartOverhead = 1 << 20

// Dependencies are the components the HTTP layer drives.
type Dependencies struct {
	Captures   service.CaptureService
	Pickers    capture.PickerFactory
	Sessions   *capture.Manager
	Registry   *ocr.Registry
	Books      books.Lookup
	Metrics    *observer.MetricsObserver
	Events     observer.Subject
	NewDecoder func() barcode.Decoder
}

type handler struct {
	deps Dependencies
	cfg  *config.Config
}

// NewHandler builds the gin engine serving the capture API.
func NewHandler(deps Dependencies, cfg *config.Config) http.Handler {
	if deps.Events == nil {
		deps.Events = observer.Discard
	}
	h := &handler{deps: deps, cfg: cfg}

	r := gin.New()
	r.Use(
		gin.Recovery(),
		requestLogger(),
		requestSizeLimiter(cfg.MaxUploadSize+multipartOverhead),
		errorHandler(),
	)

	r.GET("/health", h.healthCheck)
	r.GET("/stats", h.stats)

	captures := r.Group("/captures")
	{
		captures.POST("", h.startCapture)
		captures.GET("/:id", h.getCapture)
		captures.DELETE("/:id", h.cancelCapture)
		captures.POST("/:id/events", h.cropEvents)
		captures.GET("/:id/overlay.png", h.overlay)
		captures.POST("/:id/finish", h.finish)
	}

	r.POST("/ocr", h.extractText)
	r.GET("/scan", h.scan)
	r.GET("/books/isbn/:isbn", h.lookupBook)

	return r
}

// withTimeout bounds a request by the configured request timeout.
func (h *handler) withTimeout(c *gin.Context) (context.Context, context.CancelFunc) {
	if h.cfg.RequestTimeout <= 0 {
		return context.WithCancel(c.Request.Context())
	}
	return context.WithTimeout(c.Request.Context(), h.cfg.RequestTimeout)
}

func (h *handler) healthCheck(c *gin.Context) {
	resp := models.HealthResponse{
		Status:  "available",
		Version: Version,
		Time:    time.Now().UTC(),
	}
	if h.deps.Registry != nil {
		resp.OCRMode = string(h.deps.Registry.Mode())
	}
	if h.deps.Sessions != nil {
		resp.Sessions = h.deps.Sessions.Len()
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handler) stats(c *gin.Context) {
	if h.deps.Metrics == nil {
		c.JSON(http.StatusOK, observer.Metrics{})
		return
	}
	c.JSON(http.StatusOK, h.deps.Metrics.GetMetrics())
}

// Middleware and helper functions
func requestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.WithFields(logrus.Fields{
			"method":      c.Request.Method,
			"path":        c.FullPath(),
			"status_code": c.Writer.Status(),
			"ip":          c.ClientIP(),
			"user_agent":  c.Request.UserAgent(),
			"duration_ms": time.Since(start).Milliseconds(),
		}).Info("Request completed")
	}
}

func errorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			respondError(c, c.Errors.Last().Err)
		}
	}
}

func determineStatusCode(err error) int {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as JSON with the notification for its kind.
func respondError(c *gin.Context, err error) {
	code := determineStatusCode(err)

	entry := logger.WithError(err).WithFields(logrus.Fields{
		"status_code": code,
		"error_type":  apperrors.TypeOf(err),
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"ip":          c.ClientIP(),
	})
	if code >= http.StatusInternalServerError {
		entry.Error("Request failed")
	} else {
		entry.Warn("Request rejected")
	}

	c.AbortWithStatusJSON(code, models.ErrorResponse{
		Error:   http.StatusText(code),
		Type:    string(apperrors.TypeOf(err)),
		Message: apperrors.UserMessage(err),
	})
}
