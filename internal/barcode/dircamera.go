package barcode

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/anime-shed/bookcapture-go/internal/imagebuf"
	"github.com/anime-shed/bookcapture-go/internal/logger"
)

var frameExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tif", ".tiff"}

// DirCamera replays image files as camera frames: a single file, or every
// image in a directory in name order.
type DirCamera struct {
	Path string
	// Interval is the pause between frames.
	Interval time.Duration
}

func NewDirCamera(path string, interval time.Duration) *DirCamera {
	return &DirCamera{Path: path, Interval: interval}
}

func (c *DirCamera) Open(ctx context.Context) (Stream, error) {
	info, err := os.Stat(c.Path)
	if err != nil {
		return nil, permissionError(err)
	}
	if !info.IsDir() {
		return &fileStream{paths: []string{c.Path}, interval: c.Interval}, nil
	}

	entries, err := os.ReadDir(c.Path)
	if err != nil {
		return nil, permissionError(err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !slices.Contains(frameExtensions, strings.ToLower(filepath.Ext(e.Name()))) {
			continue
		}
		paths = append(paths, filepath.Join(c.Path, e.Name()))
	}
	slices.Sort(paths)
	if len(paths) == 0 {
		return nil, fmt.Errorf("no image frames in %s", c.Path)
	}
	return &fileStream{paths: paths, interval: c.Interval}, nil
}

func permissionError(err error) error {
	if errors.Is(err, fs.ErrPermission) {
		return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	}
	return err
}

type fileStream struct {
	paths    []string
	next     int
	interval time.Duration
}

func (s *fileStream) Next(ctx context.Context) (image.Image, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if s.next >= len(s.paths) {
			return nil, io.EOF
		}
		if s.next > 0 && s.interval > 0 {
			t := time.NewTimer(s.interval)
			select {
			case <-ctx.Done():
				t.Stop()
				return nil, ctx.Err()
			case <-t.C:
			}
		}

		path := s.paths[s.next]
		s.next++

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, permissionError(err)
		}
		buf, _, err := imagebuf.Decode(data)
		if err != nil {
			logger.Component("barcode").WithError(err).WithField("path", path).Debug("Skipping undecodable frame")
			continue
		}
		return buf.Image(), nil
	}
}

func (s *fileStream) Close() error {
	s.next = len(s.paths)
	return nil
}
