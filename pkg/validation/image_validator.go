package validation

import (
	apperrors "github.com/anime-shed/bookcapture-go/internal/errors"
	"github.com/anime-shed/bookcapture-go/internal/imagebuf"
)

// MaxImageSize is the largest image accepted for extraction.
const MaxImageSize int64 = 10 * 1024 * 1024

// ValidateImageFile checks the declared type and size of an encoded image.
// It does not decode the pixels. A limit of 0 means MaxImageSize.
func ValidateImageFile(f imagebuf.File, limit int64) error {
	if limit <= 0 {
		limit = MaxImageSize
	}
	if !f.IsImage() {
		return apperrors.NewInvalidImageTypeError(f.MIMEType)
	}
	if f.Size() > limit {
		return apperrors.NewImageTooLargeError(f.Size(), limit)
	}
	return nil
}
