package validation

import (
	"errors"
	"testing"

	apperrors "github.com/anime-shed/bookcapture-go/internal/errors"
)

func TestNewURLValidator(t *testing.T) {
	validator := NewURLValidator()
	if validator == nil {
		t.Fatal("Expected non-nil URL validator")
	}

	expectedSchemes := []string{"http", "https"}
	if len(validator.allowedSchemes) != len(expectedSchemes) {
		t.Fatalf("Expected %d schemes, got %d", len(expectedSchemes), len(validator.allowedSchemes))
	}
	for i, scheme := range expectedSchemes {
		if validator.allowedSchemes[i] != scheme {
			t.Errorf("Expected scheme %s, got %s", scheme, validator.allowedSchemes[i])
		}
	}
}

func TestValidateImageURL(t *testing.T) {
	tests := []struct {
		name        string
		validator   *URLValidator
		url         string
		wantMessage string
	}{
		{"plain https", NewURLValidator(), "https://example.com/cover.png", ""},
		{"ip host", NewURLValidator(), "http://192.168.1.1/page.jpg", ""},
		{"upper-case scheme", NewURLValidator(), "HTTPS://example.com/page.jpg", ""},
		{"empty", NewURLValidator(), "  \t", "URL cannot be empty"},
		{"malformed", NewURLValidator(), "http://[::1", "Invalid URL format"},
		{"ftp", NewURLValidator(), "ftp://example.com/a.png", "URL scheme not allowed"},
		{"no host", NewURLValidator(), "https:///a.png", "URL must have a valid host"},
		{
			"allowed host with port",
			NewURLValidatorWithOptions([]string{"https"}, []string{"covers.example.com"}),
			"https://covers.example.com:8443/a.png",
			"",
		},
		{
			"host not allowed",
			NewURLValidatorWithOptions([]string{"https"}, []string{"covers.example.com"}),
			"https://evil.example.com/a.png",
			"URL host not allowed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.validator.ValidateImageURL(tt.url)
			if tt.wantMessage == "" {
				if err != nil {
					t.Errorf("Expected %s to pass, got %v", tt.url, err)
				}
				return
			}
			var appErr *apperrors.AppError
			if !errors.As(err, &appErr) {
				t.Fatalf("Expected AppError, got %T", err)
			}
			if appErr.Message != tt.wantMessage {
				t.Errorf("Expected %q, got %q", tt.wantMessage, appErr.Message)
			}
			if appErr.Type != apperrors.ErrorTypeValidation {
				t.Errorf("Expected validation error, got %s", appErr.Type)
			}
		})
	}
}

func TestValidateBlobURL(t *testing.T) {
	v := NewURLValidator()
	tests := []struct {
		url   string
		valid bool
	}{
		{"https://acct.blob.core.windows.net/scans/2024/page-1.jpg", true},
		{"https://acct.blob.core.windows.net/scans", false},
		{"http://acct.blob.core.windows.net/scans/a.jpg", false},
		{"https://example.com/scans/a.jpg", false},
	}
	for _, tt := range tests {
		err := v.ValidateBlobURL(tt.url)
		if (err == nil) != tt.valid {
			t.Errorf("ValidateBlobURL(%s) error = %v, want valid=%v", tt.url, err, tt.valid)
		}
	}
}
