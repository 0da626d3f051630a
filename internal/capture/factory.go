package capture

import (
	"fmt"
	"sync"
	"time"

	apperrors "github.com/anime-shed/bookcapture-go/internal/errors"
)

// PickerFactory creates pickers for location-based sources
type PickerFactory interface {
	CreatePicker(source SourceType, location string) (Picker, error)
}

// FactoryConfig carries the settings pickers need.
type FactoryConfig struct {
	MaxUploadSize    int64
	FetchTimeout     time.Duration
	AzureAccountName string
	AzureAccountKey  string
}

// pickerFactory implements PickerFactory
type pickerFactory struct {
	cfg     FactoryConfig
	fetcher *HTTPImageFetcher

	azureOnce sync.Once
	azure     *AzureBlobStorage
	azureErr  error
}

// NewPickerFactory creates a new picker factory
func NewPickerFactory(cfg FactoryConfig) PickerFactory {
	return &pickerFactory{
		cfg:     cfg,
		fetcher: NewHTTPImageFetcher(cfg.FetchTimeout, cfg.MaxUploadSize),
	}
}

// CreatePicker creates a picker for the specified source. Uploads are bound
// to a request and are built with NewUploadPicker instead.
func (f *pickerFactory) CreatePicker(source SourceType, location string) (Picker, error) {
	switch source {
	case FileSource:
		return NewLocalPicker(location, f.cfg.MaxUploadSize), nil
	case URLSource:
		return &HTTPPicker{fetcher: f.fetcher, url: location}, nil
	case AzureSource:
		storage, err := f.azureStorage()
		if err != nil {
			return nil, apperrors.NewValidationError("azure source is not configured", err)
		}
		return &AzurePicker{storage: storage, url: location}, nil
	case UploadSource:
		return nil, apperrors.NewValidationError("upload pickers are bound to a request", nil)
	default:
		return nil, apperrors.NewValidationError(fmt.Sprintf("unsupported source type: %s", source), nil)
	}
}

func (f *pickerFactory) azureStorage() (*AzureBlobStorage, error) {
	f.azureOnce.Do(func() {
		f.azure, f.azureErr = NewAzureBlobStorage(f.cfg.AzureAccountName, f.cfg.AzureAccountKey, f.cfg.MaxUploadSize)
	})
	return f.azure, f.azureErr
}
