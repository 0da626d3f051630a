// Package capture obtains a single image from a source (camera upload, file,
// URL or blob) and tracks the capture sessions built on top of it.
package capture

import (
	"context"
	"errors"
	"fmt"
	"io"

	apperrors "github.com/anime-shed/bookcapture-go/internal/errors"
	"github.com/anime-shed/bookcapture-go/internal/imagebuf"
)

// ErrNoFile is the cause attached to a cancelled capture.
var ErrNoFile = errors.New("no file selected")

// Picker yields one image per call. It never retries on its own.
type Picker interface {
	Pick(ctx context.Context) (imagebuf.File, error)
}

// SourceType represents the different places an image can be picked from
type SourceType string

const (
	// UploadSource is a multipart upload from the camera or gallery chooser
	UploadSource SourceType = "upload"
	// FileSource is a path on the local file system
	FileSource SourceType = "file"
	// URLSource is an http(s) image URL
	URLSource SourceType = "url"
	// AzureSource is an Azure Blob Storage URL
	AzureSource SourceType = "azure"
)

// readLimited reads at most limit bytes from r; a larger body is reported as
// ImageTooLarge. A limit of 0 disables the check.
func readLimited(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("failed to read image: %w", err)
		}
		return data, nil
	}

	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, apperrors.NewImageTooLargeError(int64(len(data)), limit)
	}
	return data, nil
}
