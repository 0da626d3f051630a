package crop

import (
	"errors"
	"path/filepath"
	"strings"

	apperrors "github.com/anime-shed/bookcapture-go/internal/errors"
	"github.com/anime-shed/bookcapture-go/internal/imagebuf"
)

// ErrCropNotFinished is returned by Finish while the editor is still open.
var ErrCropNotFinished = errors.New("crop has not been applied or skipped")

// Render cuts r out of f and re-encodes it in f's MIME type. Formats without
// an encoder are written as PNG and the returned file reflects that.
func Render(f imagebuf.File, r imagebuf.Rect) (imagebuf.File, error) {
	src, _, err := imagebuf.Decode(f.Data)
	if err != nil {
		return imagebuf.File{}, apperrors.NewValidationError("image could not be decoded", err)
	}
	if r.Empty() || !r.Within(src.Width, src.Height) {
		return imagebuf.File{}, apperrors.NewValidationError(
			"crop rectangle "+r.String()+" is outside the image", nil)
	}

	region, err := imagebuf.CropRegion(src, r)
	if err != nil {
		return imagebuf.File{}, apperrors.NewInternalError("failed to crop image", err)
	}
	data, mime, err := imagebuf.Encode(region, f.MIMEType)
	if err != nil {
		return imagebuf.File{}, apperrors.NewInternalError("failed to encode cropped image", err)
	}

	return imagebuf.File{Name: renamed(f.Name, mime), MIMEType: mime, Data: data}, nil
}

// Finish resolves an editor state into the file handed to extraction:
// the rendered crop when committed, the untouched original when skipped.
func Finish(f imagebuf.File, s State) (imagebuf.File, error) {
	switch st := s.(type) {
	case Committed:
		return Render(f, st.Rect)
	case Cancelled:
		return f, nil
	}
	return imagebuf.File{}, ErrCropNotFinished
}

var extensions = map[string]string{
	imagebuf.MIMEJPEG: ".jpg",
	imagebuf.MIMEPNG:  ".png",
	imagebuf.MIMEGIF:  ".gif",
	imagebuf.MIMEBMP:  ".bmp",
	imagebuf.MIMETIFF: ".tiff",
}

// renamed keeps the original name unless the encoder had to change format.
func renamed(name, mime string) string {
	if name == "" {
		return "cropped" + extensions[mime]
	}
	ext := strings.ToLower(filepath.Ext(name))
	want := extensions[mime]
	if want == "" || ext == want || (ext == ".jpeg" && want == ".jpg") || (ext == ".tif" && want == ".tiff") {
		return name
	}
	return strings.TrimSuffix(name, filepath.Ext(name)) + want
}
