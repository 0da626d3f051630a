package validation

import (
	"net/url"
	"slices"
	"strings"

	apperrors "github.com/anime-shed/bookcapture-go/internal/errors"
)

// azureBlobHostSuffix identifies Azure Blob Storage endpoints.
const azureBlobHostSuffix = ".blob.core.windows.net"

// URLValidator checks remote image sources before they are fetched
type URLValidator struct {
	allowedSchemes []string
	allowedHosts   []string
}

// NewURLValidator creates a new URL validator with default settings
func NewURLValidator() *URLValidator {
	return &URLValidator{
		allowedSchemes: []string{"http", "https"},
		allowedHosts:   []string{}, // empty means all hosts allowed
	}
}

// NewURLValidatorWithOptions creates a URL validator with custom options
func NewURLValidatorWithOptions(schemes []string, hosts []string) *URLValidator {
	return &URLValidator{
		allowedSchemes: schemes,
		allowedHosts:   hosts,
	}
}

// ValidateImageURL validates an http(s) image source
func (v *URLValidator) ValidateImageURL(imageURL string) error {
	_, err := v.parse(imageURL)
	return err
}

// ValidateBlobURL validates an Azure Blob Storage URL naming a container and a blob
func (v *URLValidator) ValidateBlobURL(blobURL string) error {
	parsedURL, err := v.parse(blobURL)
	if err != nil {
		return err
	}
	if parsedURL.Scheme != "https" || !strings.HasSuffix(strings.ToLower(parsedURL.Hostname()), azureBlobHostSuffix) {
		return apperrors.NewValidationError("URL is not an Azure Blob Storage URL", nil)
	}
	container, blob, _ := strings.Cut(strings.TrimPrefix(parsedURL.Path, "/"), "/")
	if container == "" || blob == "" {
		return apperrors.NewValidationError("Blob URL must include a container and a blob name", nil)
	}
	return nil
}

func (v *URLValidator) parse(raw string) (*url.URL, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, apperrors.NewValidationError("URL cannot be empty", nil)
	}

	parsedURL, err := url.Parse(raw)
	if err != nil {
		return nil, apperrors.NewValidationError("Invalid URL format", err)
	}

	if !v.isSchemeAllowed(parsedURL.Scheme) {
		return nil, apperrors.NewValidationError("URL scheme not allowed", nil)
	}

	if parsedURL.Host == "" {
		return nil, apperrors.NewValidationError("URL must have a valid host", nil)
	}

	if !v.isHostAllowed(parsedURL.Hostname()) {
		return nil, apperrors.NewValidationError("URL host not allowed", nil)
	}

	return parsedURL, nil
}

// isSchemeAllowed checks if the URL scheme is in the allowed list
func (v *URLValidator) isSchemeAllowed(scheme string) bool {
	return slices.Contains(v.allowedSchemes, strings.ToLower(scheme))
}

// isHostAllowed checks if the URL host is in the allowed list
// Returns true if no host restrictions are set (empty allowedHosts)
func (v *URLValidator) isHostAllowed(host string) bool {
	if len(v.allowedHosts) == 0 {
		return true
	}
	return slices.Contains(v.allowedHosts, strings.ToLower(host))
}
