package container

import (
	"fmt"
	"net/http"

	"github.com/anime-shed/bookcapture-go/internal/barcode"
	"github.com/anime-shed/bookcapture-go/internal/books"
	"github.com/anime-shed/bookcapture-go/internal/capture"
	"github.com/anime-shed/bookcapture-go/internal/config"
	"github.com/anime-shed/bookcapture-go/internal/logger"
	"github.com/anime-shed/bookcapture-go/internal/observer"
	"github.com/anime-shed/bookcapture-go/internal/ocr"
	"github.com/anime-shed/bookcapture-go/internal/quality"
	"github.com/anime-shed/bookcapture-go/internal/service"
	"github.com/anime-shed/bookcapture-go/internal/transport"
)

// Container holds all application dependencies
type Container struct {
	config    *config.Config
	events    *observer.EventPublisher
	metrics   *observer.MetricsObserver
	sessions  *capture.Manager
	pickers   capture.PickerFactory
	registry  *ocr.Registry
	extractor *ocr.Extractor
	captures  service.CaptureService
	books     books.Lookup
	handler   http.Handler
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	logger.SetLevel(cfg.LogLevel)

	// Observers
	events := observer.NewEventPublisher()
	metrics := observer.NewMetricsObserver()
	events.Subscribe(observer.NewLoggingObserver(logger.Logger))
	events.Subscribe(metrics)

	// Capture
	sessions := capture.NewManager(cfg.SessionTTL, cfg.MaxUploadSize, events)
	pickers := capture.NewPickerFactory(capture.FactoryConfig{
		MaxUploadSize:    cfg.MaxUploadSize,
		FetchTimeout:     cfg.ImageFetchTimeout,
		AzureAccountName: cfg.AzureAccountName,
		AzureAccountKey:  cfg.AzureAccountKey,
	})

	// Recognition
	registry := ocr.NewRegistry(ocr.NewTesseractFactory(ocr.EngineConfig{
		Languages:      cfg.OCRLanguages,
		TessdataPrefix: cfg.OCRTessdataPrefix,
	}))
	extractor := ocr.NewExtractor(registry, events,
		ocr.WithPreprocess(cfg.OCRPreprocess),
		ocr.WithTimeout(cfg.OCRTimeout),
		ocr.WithMaxSize(cfg.MaxUploadSize),
	)

	captures := service.NewCaptureService(sessions, extractor, quality.NewInspector(nil), events)
	lookup := books.NewOpenLibrary(cfg.BookLookupURL, cfg.BookLookupTimeout)

	c := &Container{
		config:    cfg,
		events:    events,
		metrics:   metrics,
		sessions:  sessions,
		pickers:   pickers,
		registry:  registry,
		extractor: extractor,
		captures:  captures,
		books:     lookup,
	}

	c.handler = transport.NewHandler(transport.Dependencies{
		Captures:   captures,
		Pickers:    pickers,
		Sessions:   sessions,
		Registry:   registry,
		Books:      lookup,
		Metrics:    metrics,
		Events:     events,
		NewDecoder: c.NewDecoder,
	}, cfg)

	return c, nil
}

// NewDecoder returns a barcode decoder configured for this process.
func (c *Container) NewDecoder() barcode.Decoder {
	var filter barcode.FrameFilter
	if c.config.ScanPrefilter {
		filter = barcode.NewStructureFilter()
	}
	return barcode.NewZXingDecoder(filter)
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}

func (c *Container) Sessions() *capture.Manager { return c.sessions }

func (c *Container) Captures() service.CaptureService { return c.captures }

func (c *Container) Extractor() *ocr.Extractor { return c.extractor }

func (c *Container) Books() books.Lookup { return c.books }

func (c *Container) Events() observer.Subject { return c.events }

// Close waits for pending event deliveries and releases the engine.
func (c *Container) Close() error {
	c.events.Wait()
	return c.registry.Close()
}
