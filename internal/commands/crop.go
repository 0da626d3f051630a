package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/anime-shed/bookcapture-go/internal/capture"
	"github.com/anime-shed/bookcapture-go/internal/crop"
	"github.com/anime-shed/bookcapture-go/internal/imagebuf"
	"github.com/anime-shed/bookcapture-go/pkg/models"
)

func newCropCmd(opts *rootOptions) *cobra.Command {
	var (
		rect    string
		skip    bool
		out     string
		extract bool
		format  string
	)

	cmd := &cobra.Command{
		Use:   "crop <image>",
		Short: "Crop a page photo and optionally read its text",
		Example: `  # Keep a 300x200 region starting at (100,100)
  bookcapture crop page.jpg --rect 100,100,300,200

  # Pass the photo through unchanged and read it
  bookcapture crop page.jpg --skip --extract`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validFormat(format); err != nil {
				return err
			}
			if skip == (rect != "") {
				return fmt.Errorf("exactly one of --rect or --skip is required")
			}
			events, err := cropEvents(rect, skip)
			if err != nil {
				return err
			}

			c, err := opts.container()
			if err != nil {
				return err
			}
			defer c.Close()

			ctx := cmd.Context()
			svc := c.Captures()

			view, err := svc.Start(ctx, "", capture.FileSource, capture.NewLocalPicker(args[0], opts.cfg.MaxUploadSize))
			if err != nil {
				return err
			}

			snap, err := svc.Dispatch(ctx, view.ID, models.CropEventsRequest{Events: events})
			if err != nil {
				_ = svc.Cancel(ctx, view.ID)
				return err
			}
			if !skip && snap.Phase != crop.PhaseCommitted {
				_ = svc.Cancel(ctx, view.ID)
				return fmt.Errorf("rectangle %s does not fit the %dx%d image or is smaller than %dpx",
					rect, view.Width, view.Height, crop.MinCropSize)
			}

			resp, err := svc.Finish(ctx, view.ID, false)
			if err != nil {
				return err
			}

			if out == "" {
				out = outputPath(args[0], resp.File.Name)
			}
			if err := os.WriteFile(out, resp.File.Data, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", out, err)
			}
			file := imagebuf.File{Name: resp.File.Name, MIMEType: resp.File.MIMEType, Data: resp.File.Data}
			resp.File.Data = nil
			resp.File.Name = out

			if extract {
				extraction, err := svc.Extract(ctx, file, "", view.ID)
				if err != nil {
					return err
				}
				resp.Extraction = extraction
			}
			return printResult(cmd.OutOrStdout(), format, resp)
		},
	}

	cmd.Flags().StringVar(&rect, "rect", "", "Crop rectangle in image pixels as x,y,width,height")
	cmd.Flags().BoolVar(&skip, "skip", false, "Keep the original image")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (default <name>-cropped.<ext> beside the input)")
	cmd.Flags().BoolVar(&extract, "extract", false, "Run text recognition on the result")
	cmd.Flags().StringVar(&format, "format", formatYAML, "Output format: yaml or json")

	return cmd
}

// cropEvents turns a rectangle into the pointer gesture that draws it,
// followed by apply.
func cropEvents(rect string, skip bool) ([]models.CropEvent, error) {
	if skip {
		return []models.CropEvent{{Type: crop.EventSkip}}, nil
	}
	r, err := parseRect(rect)
	if err != nil {
		return nil, err
	}
	x0, y0 := float64(r.X), float64(r.Y)
	x1, y1 := float64(r.Right()), float64(r.Bottom())
	return []models.CropEvent{
		{Type: crop.EventPointerDown, X: x0, Y: y0},
		{Type: crop.EventPointerMove, X: x1, Y: y1},
		{Type: crop.EventPointerUp, X: x1, Y: y1},
		{Type: crop.EventApply},
	}, nil
}

func parseRect(s string) (imagebuf.Rect, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return imagebuf.Rect{}, fmt.Errorf("rect must be x,y,width,height, got %q", s)
	}
	var v [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n < 0 {
			return imagebuf.Rect{}, fmt.Errorf("rect must hold non-negative integers, got %q", s)
		}
		v[i] = n
	}
	r := imagebuf.Rect{X: v[0], Y: v[1], Width: v[2], Height: v[3]}
	if r.Empty() {
		return imagebuf.Rect{}, fmt.Errorf("rect %q is empty", s)
	}
	return r, nil
}

func outputPath(input, name string) string {
	ext := filepath.Ext(name)
	return filepath.Join(filepath.Dir(input), strings.TrimSuffix(name, ext)+"-cropped"+ext)
}
