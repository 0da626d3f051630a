package capture

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	apperrors "github.com/anime-shed/bookcapture-go/internal/errors"
	"github.com/anime-shed/bookcapture-go/internal/imagebuf"
)

// LocalPicker reads an image from the file system.
type LocalPicker struct {
	path  string
	limit int64
}

func NewLocalPicker(path string, limit int64) *LocalPicker {
	return &LocalPicker{path: path, limit: limit}
}

func (p *LocalPicker) Pick(ctx context.Context) (imagebuf.File, error) {
	if strings.TrimSpace(p.path) == "" {
		return imagebuf.File{}, apperrors.NewCaptureCancelledError(ErrNoFile)
	}
	if err := ctx.Err(); err != nil {
		return imagebuf.File{}, apperrors.NewCaptureCancelledError(err)
	}

	f, err := os.Open(p.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return imagebuf.File{}, apperrors.NewNotFoundError("image file not found: "+p.path, err)
		}
		return imagebuf.File{}, apperrors.NewInternalError("failed to open image file", err)
	}
	defer f.Close()

	data, err := readLimited(f, p.limit)
	if err != nil {
		return imagebuf.File{}, err
	}
	return imagebuf.NewFile(filepath.Base(p.path), mimeFromExt(p.path), data), nil
}

// mimeFromExt maps common image extensions; everything else is sniffed.
func mimeFromExt(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return imagebuf.MIMEJPEG
	case ".png":
		return imagebuf.MIMEPNG
	case ".gif":
		return imagebuf.MIMEGIF
	case ".bmp":
		return imagebuf.MIMEBMP
	case ".tif", ".tiff":
		return imagebuf.MIMETIFF
	case ".webp":
		return imagebuf.MIMEWebP
	}
	return ""
}
