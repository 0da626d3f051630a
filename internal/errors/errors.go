package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "validation"
	ErrorTypeNetwork      ErrorType = "network"
	ErrorTypeTimeout      ErrorType = "timeout"
	ErrorTypeNotFound     ErrorType = "not_found"
	ErrorTypeInternal     ErrorType = "internal"
	ErrorTypeUnauthorized ErrorType = "unauthorized"

	// Capture pipeline kinds
	ErrorTypeCaptureCancelled       ErrorType = "capture_cancelled"
	ErrorTypeCaptureInProgress      ErrorType = "capture_in_progress"
	ErrorTypeInvalidImageType       ErrorType = "invalid_image_type"
	ErrorTypeImageTooLarge          ErrorType = "image_too_large"
	ErrorTypeEngineInitFailed       ErrorType = "engine_init_failed"
	ErrorTypeExtractionFailed       ErrorType = "extraction_failed"
	ErrorTypeCameraPermissionDenied ErrorType = "camera_permission_denied"
)

// AppError represents a structured application error
type AppError struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	Details    string    `json:"details,omitempty"`
	StatusCode int       `json:"status_code"`
	Cause      error     `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

func newError(t ErrorType, status int, message string, cause error) *AppError {
	return &AppError{
		Type:       t,
		Message:    message,
		StatusCode: status,
		Cause:      cause,
	}
}

// NewValidationError creates a new validation error
func NewValidationError(message string, cause error) *AppError {
	return newError(ErrorTypeValidation, http.StatusBadRequest, message, cause)
}

// NewNetworkError creates a new network error
func NewNetworkError(message string, cause error) *AppError {
	return newError(ErrorTypeNetwork, http.StatusBadGateway, message, cause)
}

// NewTimeoutError creates a new timeout error
func NewTimeoutError(message string, cause error) *AppError {
	return newError(ErrorTypeTimeout, http.StatusGatewayTimeout, message, cause)
}

// NewInternalError creates a new internal error
func NewInternalError(message string, cause error) *AppError {
	return newError(ErrorTypeInternal, http.StatusInternalServerError, message, cause)
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string, cause error) *AppError {
	return newError(ErrorTypeNotFound, http.StatusNotFound, message, cause)
}

// NewCaptureCancelledError is returned when the user dismissed the picker without choosing a file.
func NewCaptureCancelledError(cause error) *AppError {
	return newError(ErrorTypeCaptureCancelled, http.StatusBadRequest, "no image selected", cause)
}

// NewCaptureInProgressError is returned when a capture session is already pending for the owner.
func NewCaptureInProgressError(sessionID string) *AppError {
	e := newError(ErrorTypeCaptureInProgress, http.StatusConflict, "a capture is already in progress", nil)
	e.Details = sessionID
	return e
}

func NewInvalidImageTypeError(mimeType string) *AppError {
	e := newError(ErrorTypeInvalidImageType, http.StatusUnsupportedMediaType, "invalid file type", nil)
	e.Details = mimeType
	return e
}

func NewImageTooLargeError(size, limit int64) *AppError {
	e := newError(ErrorTypeImageTooLarge, http.StatusRequestEntityTooLarge, "file too large", nil)
	e.Details = fmt.Sprintf("%d bytes exceeds limit of %d bytes", size, limit)
	return e
}

// NewEngineInitFailedError is returned when no recognition engine mode could be started.
func NewEngineInitFailedError(cause error) *AppError {
	return newError(ErrorTypeEngineInitFailed, http.StatusServiceUnavailable, "recognition engine failed to initialize", cause)
}

// NewExtractionFailedError is returned when an initialized engine fails mid-call.
func NewExtractionFailedError(cause error) *AppError {
	return newError(ErrorTypeExtractionFailed, http.StatusUnprocessableEntity, "recognition call raised an error", cause)
}

func NewCameraPermissionDeniedError(cause error) *AppError {
	return newError(ErrorTypeCameraPermissionDenied, http.StatusForbidden, "camera permission denied", cause)
}

// IsType checks if the error, or any error it wraps, is of a specific type
func IsType(err error, errorType ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == errorType
	}
	return false
}

// GetStatusCode extracts the HTTP status code from an error
func GetStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}

// TypeOf returns the error type, or ErrorTypeInternal for foreign errors.
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ErrorTypeInternal
}

// UserMessage maps an error to the notification shown to the reader.
func UserMessage(err error) string {
	switch TypeOf(err) {
	case ErrorTypeCaptureCancelled:
		return "No image selected. Tap the camera button to try again."
	case ErrorTypeCaptureInProgress:
		return "Finish or cancel the current capture before starting a new one."
	case ErrorTypeInvalidImageType:
		return "That file is not an image. Please choose a photo."
	case ErrorTypeImageTooLarge:
		return "That image is too large. Please use a photo under 10MB."
	case ErrorTypeEngineInitFailed:
		return "Text recognition is unavailable right now. Please try again later."
	case ErrorTypeExtractionFailed:
		return "Text recognition failed on this image. Try cropping closer to the quote."
	case ErrorTypeCameraPermissionDenied:
		return "Camera access was denied. Allow camera access to scan barcodes."
	case ErrorTypeValidation:
		return "The request was invalid."
	case ErrorTypeNotFound:
		return "Not found."
	case ErrorTypeTimeout:
		return "The operation timed out."
	case ErrorTypeNetwork:
		return "A network error occurred."
	default:
		return "Something went wrong."
	}
}

// NoTextMessage is the notification for a successful extraction with an empty result.
const NoTextMessage = "No readable text was found in the image."
