// Package quality measures a captured photo and reports conditions that
// usually spoil text recognition. The report is advisory.
package quality

import (
	"image"
	"image/draw"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	apperrors "github.com/anime-shed/bookcapture-go/internal/errors"
	"github.com/anime-shed/bookcapture-go/internal/imagebuf"
	"github.com/anime-shed/bookcapture-go/pkg/validation"
)

// Report is the measured metrics plus the issues they raise.
type Report struct {
	Metrics validation.QualityMetrics `json:"metrics"`
	Issues  []validation.QualityIssue `json:"issues,omitempty"`
	// Usable is false when any issue has error severity.
	Usable bool `json:"usable"`
}

// Inspector measures photos against a validator's thresholds.
type Inspector struct {
	validator *validation.QualityValidator
}

// NewInspector creates an inspector. A nil validator uses the defaults.
func NewInspector(v *validation.QualityValidator) *Inspector {
	if v == nil {
		v = validation.NewQualityValidator()
	}
	return &Inspector{validator: v}
}

// InspectFile decodes f and inspects it.
func (i *Inspector) InspectFile(f imagebuf.File) (Report, error) {
	buf, _, err := imagebuf.Decode(f.Data)
	if err != nil {
		return Report{}, apperrors.NewValidationError("image could not be decoded", err)
	}
	return i.Inspect(buf.Image()), nil
}

// Inspect measures img.
func (i *Inspector) Inspect(img image.Image) Report {
	m := Measure(img)
	issues := i.validator.Validate(m)
	return Report{
		Metrics: m,
		Issues:  issues,
		Usable:  !i.validator.HasCriticalIssues(issues),
	}
}

// Measure computes sharpness, brightness and contrast on the gray image.
func Measure(img image.Image) validation.QualityMetrics {
	gray := toGray(img)
	b := gray.Bounds()
	m := validation.QualityMetrics{Width: b.Dx(), Height: b.Dy()}
	if m.Width == 0 || m.Height == 0 {
		return m
	}

	levels := make([]float64, 0, m.Width*m.Height)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := gray.Pix[gray.PixOffset(b.Min.X, y) : gray.PixOffset(b.Min.X, y)+m.Width]
		for _, v := range row {
			levels = append(levels, float64(v))
		}
	}
	m.Brightness, m.Contrast = stat.MeanStdDev(levels, nil)
	m.LaplacianVar = laplacianVariance(gray)
	return m
}

// laplacianVariance convolves with [0 1 0; 1 -4 1; 0 1 0] in row strips and
// returns the variance of the response.
func laplacianVariance(gray *image.Gray) float64 {
	b := gray.Bounds()
	w, h := b.Dx(), b.Dy()
	if w < 3 || h < 3 {
		return 0
	}

	inner := h - 2
	out := make([]float64, (w-2)*inner)
	workers := min(runtime.NumCPU(), inner)
	rowsPer := (inner + workers - 1) / workers

	var g errgroup.Group
	for start := 0; start < inner; start += rowsPer {
		end := min(start+rowsPer, inner)
		g.Go(func() error {
			for r := start; r < end; r++ {
				y := b.Min.Y + r + 1
				for c := 0; c < w-2; c++ {
					x := b.Min.X + c + 1
					v := -4*float64(gray.GrayAt(x, y).Y) +
						float64(gray.GrayAt(x, y-1).Y) + float64(gray.GrayAt(x, y+1).Y) +
						float64(gray.GrayAt(x-1, y).Y) + float64(gray.GrayAt(x+1, y).Y)
					out[r*(w-2)+c] = v
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	return stat.Variance(out, nil)
}

func toGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	b := img.Bounds()
	gray := image.NewGray(b)
	draw.Draw(gray, b, img, b.Min, draw.Src)
	return gray
}
