package errors

import (
	"fmt"
	"net/http"
	"testing"
)

func TestIsType_Wrapped(t *testing.T) {
	base := NewImageTooLargeError(11<<20, 10<<20)
	wrapped := fmt.Errorf("extract: %w", base)

	if !IsType(wrapped, ErrorTypeImageTooLarge) {
		t.Error("Expected wrapped error to match image_too_large")
	}
	if IsType(wrapped, ErrorTypeInvalidImageType) {
		t.Error("Did not expect wrapped error to match invalid_image_type")
	}
	if GetStatusCode(wrapped) != http.StatusRequestEntityTooLarge {
		t.Errorf("Expected 413, got %d", GetStatusCode(wrapped))
	}
}

func TestTypeOf_ForeignError(t *testing.T) {
	if got := TypeOf(fmt.Errorf("boom")); got != ErrorTypeInternal {
		t.Errorf("Expected internal, got %s", got)
	}
	if got := GetStatusCode(fmt.Errorf("boom")); got != http.StatusInternalServerError {
		t.Errorf("Expected 500, got %d", got)
	}
}

func TestUserMessage_DistinguishesKinds(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"cancelled", NewCaptureCancelledError(nil)},
		{"invalid type", NewInvalidImageTypeError("text/plain")},
		{"too large", NewImageTooLargeError(1, 0)},
		{"engine init", NewEngineInitFailedError(nil)},
		{"extraction", NewExtractionFailedError(nil)},
		{"camera", NewCameraPermissionDeniedError(nil)},
	}

	seen := map[string]string{}
	for _, tt := range tests {
		msg := UserMessage(tt.err)
		if msg == "" {
			t.Errorf("%s: expected a message", tt.name)
		}
		if other, ok := seen[msg]; ok {
			t.Errorf("%s shares its message with %s", tt.name, other)
		}
		seen[msg] = tt.name
		if msg == NoTextMessage {
			t.Errorf("%s must not look like a no-text result", tt.name)
		}
	}
}

func TestAppError_ErrorString(t *testing.T) {
	err := NewExtractionFailedError(fmt.Errorf("tesseract crashed"))
	want := "extraction_failed: recognition call raised an error (caused by: tesseract crashed)"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
