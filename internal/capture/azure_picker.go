package capture

import (
	"context"
	"fmt"
	"io"
	"path"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"

	apperrors "github.com/anime-shed/bookcapture-go/internal/errors"
	"github.com/anime-shed/bookcapture-go/internal/imagebuf"
	"github.com/anime-shed/bookcapture-go/pkg/validation"
)

// blobReader opens a blob for reading and reports its content type.
type blobReader interface {
	ReadBlob(ctx context.Context, container, blob string) (io.ReadCloser, string, error)
}

type azureBlobReader struct {
	client *azblob.Client
}

func (r *azureBlobReader) ReadBlob(ctx context.Context, container, blob string) (io.ReadCloser, string, error) {
	resp, err := r.client.DownloadStream(ctx, container, blob, nil)
	if err != nil {
		return nil, "", err
	}
	contentType := ""
	if resp.ContentType != nil {
		contentType = *resp.ContentType
	}
	return resp.Body, contentType, nil
}

// AzureBlobStorage reads captured images kept in Azure Blob Storage
type AzureBlobStorage struct {
	reader    blobReader
	validator *validation.URLValidator
	limit     int64
}

// NewAzureBlobStorage authenticates with a shared key.
func NewAzureBlobStorage(accountName, accountKey string, limit int64) (*AzureBlobStorage, error) {
	if accountName == "" || accountKey == "" {
		return nil, fmt.Errorf("azure storage account name and key are required")
	}
	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, fmt.Errorf("invalid azure credentials: %w", err)
	}

	client, err := azblob.NewClientWithSharedKeyCredential(
		fmt.Sprintf("https://%s.blob.core.windows.net", accountName),
		credential,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create azure client: %w", err)
	}

	return newAzureBlobStorage(&azureBlobReader{client: client}, limit), nil
}

func newAzureBlobStorage(reader blobReader, limit int64) *AzureBlobStorage {
	return &AzureBlobStorage{reader: reader, validator: validation.NewURLValidator(), limit: limit}
}

// GetImage downloads https://<account>.blob.core.windows.net/<container>/<blob>.
func (s *AzureBlobStorage) GetImage(ctx context.Context, blobURL string) (imagebuf.File, error) {
	if err := s.validator.ValidateBlobURL(blobURL); err != nil {
		return imagebuf.File{}, err
	}
	parts, err := azblob.ParseURL(blobURL)
	if err != nil {
		return imagebuf.File{}, apperrors.NewValidationError("invalid blob URL", err)
	}

	body, contentType, err := s.reader.ReadBlob(ctx, parts.ContainerName, parts.BlobName)
	if err != nil {
		return imagebuf.File{}, apperrors.NewNetworkError("blob download failed", err)
	}
	defer body.Close()

	data, err := readLimited(body, s.limit)
	if err != nil {
		return imagebuf.File{}, err
	}
	return imagebuf.NewFile(path.Base(parts.BlobName), contentType, data), nil
}

// AzurePicker picks one blob.
type AzurePicker struct {
	storage *AzureBlobStorage
	url     string
}

func (p *AzurePicker) Pick(ctx context.Context) (imagebuf.File, error) {
	if p.url == "" {
		return imagebuf.File{}, apperrors.NewCaptureCancelledError(ErrNoFile)
	}
	return p.storage.GetImage(ctx, p.url)
}
