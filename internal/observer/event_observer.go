package observer

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// PipelineEvent is emitted at each step of a capture.
type PipelineEvent struct {
	EventType    EventType              `json:"event_type"`
	Timestamp    time.Time              `json:"timestamp"`
	SessionID    string                 `json:"session_id,omitempty"`
	Source       string                 `json:"source,omitempty"`
	Duration     time.Duration          `json:"duration"`
	Success      bool                   `json:"success"`
	ErrorMessage string                 `json:"error_message,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

// EventType represents the type of pipeline event
type EventType string

const (
	CaptureStarted      EventType = "capture_started"
	CaptureCancelled    EventType = "capture_cancelled"
	CaptureExpired      EventType = "capture_expired"
	CropCommitted       EventType = "crop_committed"
	CropSkipped         EventType = "crop_skipped"
	ExtractionCompleted EventType = "extraction_completed"
	ExtractionFailed    EventType = "extraction_failed"
	ScanStarted         EventType = "scan_started"
	BarcodeDecoded      EventType = "barcode_decoded"
	ScanFailed          EventType = "scan_failed"
)

// Observer defines the interface for event observers
type Observer interface {
	OnEvent(ctx context.Context, event PipelineEvent)
	GetObserverName() string
}

// Subject defines the interface for event publishers
type Subject interface {
	Subscribe(observer Observer)
	Unsubscribe(observer Observer)
	NotifyObservers(ctx context.Context, event PipelineEvent)
}

// LoggingObserver logs pipeline events
type LoggingObserver struct {
	logger *logrus.Logger
}

// NewLoggingObserver creates a new logging observer
func NewLoggingObserver(logger *logrus.Logger) Observer {
	return &LoggingObserver{
		logger: logger,
	}
}

// OnEvent handles pipeline events by logging them
func (o *LoggingObserver) OnEvent(ctx context.Context, event PipelineEvent) {
	fields := logrus.Fields{
		"event_type": event.EventType,
		"success":    event.Success,
	}
	if event.SessionID != "" {
		fields["session_id"] = event.SessionID
	}
	if event.Source != "" {
		fields["source"] = event.Source
	}
	if event.Duration > 0 {
		fields["duration"] = event.Duration
	}
	if event.ErrorMessage != "" {
		fields["error"] = event.ErrorMessage
	}
	for k, v := range event.Metadata {
		fields[k] = v
	}

	entry := o.logger.WithFields(fields)
	switch event.EventType {
	case CaptureStarted:
		entry.Info("Capture started")
	case CaptureCancelled:
		entry.Info("Capture cancelled")
	case CaptureExpired:
		entry.Warn("Capture session expired")
	case CropCommitted, CropSkipped:
		entry.Debug("Crop finished")
	case ExtractionCompleted:
		entry.Info("Text extraction completed")
	case ExtractionFailed:
		entry.Error("Text extraction failed")
	case BarcodeDecoded:
		entry.Info("Barcode decoded")
	case ScanFailed:
		entry.Error("Barcode scan failed")
	default:
		entry.Info("Pipeline event occurred")
	}
}

// GetObserverName returns the observer name
func (o *LoggingObserver) GetObserverName() string {
	return "logging_observer"
}

// Metrics is a point-in-time copy of MetricsObserver counters.
type Metrics struct {
	CapturesStarted       int64         `json:"captures_started"`
	CapturesCancelled     int64         `json:"captures_cancelled"`
	CapturesExpired       int64         `json:"captures_expired"`
	CropsCommitted        int64         `json:"crops_committed"`
	CropsSkipped          int64         `json:"crops_skipped"`
	ExtractionsCompleted  int64         `json:"extractions_completed"`
	ExtractionsFailed     int64         `json:"extractions_failed"`
	ScansStarted          int64         `json:"scans_started"`
	BarcodesDecoded       int64         `json:"barcodes_decoded"`
	ScansFailed           int64         `json:"scans_failed"`
	AvgExtractionDuration time.Duration `json:"avg_extraction_duration"`
}

// MetricsObserver collects counters from pipeline events
type MetricsObserver struct {
	mu                  sync.RWMutex
	metrics             Metrics
	totalExtractionTime time.Duration
}

// NewMetricsObserver creates a new metrics observer
func NewMetricsObserver() *MetricsObserver {
	return &MetricsObserver{}
}

// OnEvent handles pipeline events by collecting metrics
func (o *MetricsObserver) OnEvent(ctx context.Context, event PipelineEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()

	m := &o.metrics
	switch event.EventType {
	case CaptureStarted:
		m.CapturesStarted++
	case CaptureCancelled:
		m.CapturesCancelled++
	case CaptureExpired:
		m.CapturesExpired++
	case CropCommitted:
		m.CropsCommitted++
	case CropSkipped:
		m.CropsSkipped++
	case ExtractionCompleted:
		m.ExtractionsCompleted++
		o.totalExtractionTime += event.Duration
	case ExtractionFailed:
		m.ExtractionsFailed++
	case ScanStarted:
		m.ScansStarted++
	case BarcodeDecoded:
		m.BarcodesDecoded++
	case ScanFailed:
		m.ScansFailed++
	}
}

// GetObserverName returns the observer name
func (o *MetricsObserver) GetObserverName() string {
	return "metrics_observer"
}

// GetMetrics returns current metrics
func (o *MetricsObserver) GetMetrics() Metrics {
	o.mu.RLock()
	defer o.mu.RUnlock()

	m := o.metrics
	if m.ExtractionsCompleted > 0 {
		m.AvgExtractionDuration = o.totalExtractionTime / time.Duration(m.ExtractionsCompleted)
	}
	return m
}

// EventPublisher implements the Subject interface
type EventPublisher struct {
	mu        sync.RWMutex
	observers []Observer
	pending   sync.WaitGroup
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher() *EventPublisher {
	return &EventPublisher{
		observers: make([]Observer, 0),
	}
}

// Subscribe adds an observer
func (p *EventPublisher) Subscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, observer)
}

// Unsubscribe removes an observer
func (p *EventPublisher) Unsubscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, obs := range p.observers {
		if obs.GetObserverName() == observer.GetObserverName() {
			p.observers = append(p.observers[:i], p.observers[i+1:]...)
			break
		}
	}
}

// NotifyObservers notifies all observers of an event. Observers run
// concurrently and outlive the caller's context.
func (p *EventPublisher) NotifyObservers(ctx context.Context, event PipelineEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	ctx = context.WithoutCancel(ctx)

	p.mu.RLock()
	observers := make([]Observer, len(p.observers))
	copy(observers, p.observers)
	p.mu.RUnlock()

	for _, observer := range observers {
		p.pending.Add(1)
		go func(obs Observer) {
			defer p.pending.Done()
			defer func() {
				if r := recover(); r != nil {
					logrus.WithField("observer", obs.GetObserverName()).
						WithField("panic", r).
						Error("Observer panicked while handling event")
				}
			}()
			obs.OnEvent(ctx, event)
		}(observer)
	}
}

// Wait blocks until every notification sent so far has been handled.
func (p *EventPublisher) Wait() {
	p.pending.Wait()
}

// Discard is a Subject that drops every event.
var Discard Subject = discard{}

type discard struct{}

func (discard) Subscribe(Observer)                             {}
func (discard) Unsubscribe(Observer)                           {}
func (discard) NotifyObservers(context.Context, PipelineEvent) {}
