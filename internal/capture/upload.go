package capture

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"

	apperrors "github.com/anime-shed/bookcapture-go/internal/errors"
	"github.com/anime-shed/bookcapture-go/internal/imagebuf"
)

// DefaultFormField is the multipart field carrying the captured photo.
const DefaultFormField = "file"

// UploadPicker reads the photo a browser camera or gallery chooser posted.
type UploadPicker struct {
	request *http.Request
	field   string
	limit   int64
}

// NewUploadPicker picks field from a multipart request body.
func NewUploadPicker(r *http.Request, field string, limit int64) *UploadPicker {
	if field == "" {
		field = DefaultFormField
	}
	return &UploadPicker{request: r, field: field, limit: limit}
}

// Pick returns the uploaded file. A request without the field is a
// dismissed chooser and yields CaptureCancelled.
func (p *UploadPicker) Pick(ctx context.Context) (imagebuf.File, error) {
	if err := ctx.Err(); err != nil {
		return imagebuf.File{}, apperrors.NewCaptureCancelledError(err)
	}

	f, header, err := p.request.FormFile(p.field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return imagebuf.File{}, apperrors.NewCaptureCancelledError(ErrNoFile)
		}
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return imagebuf.File{}, apperrors.NewImageTooLargeError(tooBig.Limit+1, p.limit)
		}
		if errors.Is(err, multipart.ErrMessageTooLarge) {
			return imagebuf.File{}, apperrors.NewImageTooLargeError(p.limit+1, p.limit)
		}
		return imagebuf.File{}, apperrors.NewValidationError("invalid multipart upload", err)
	}
	defer f.Close()

	if p.limit > 0 && header.Size > p.limit {
		return imagebuf.File{}, apperrors.NewImageTooLargeError(header.Size, p.limit)
	}
	data, err := readLimited(f, p.limit)
	if err != nil {
		return imagebuf.File{}, err
	}
	if len(data) == 0 {
		return imagebuf.File{}, apperrors.NewCaptureCancelledError(ErrNoFile)
	}

	return imagebuf.NewFile(header.Filename, header.Header.Get("Content-Type"), data), nil
}
