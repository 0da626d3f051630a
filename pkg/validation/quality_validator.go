package validation

// QualityThresholds bounds the photo metrics that still give usable OCR.
type QualityThresholds struct {
	// Sharpness
	MinLaplacianVariance float64

	// Mean gray level, 0-255
	MinBrightness float64
	MaxBrightness float64

	// Standard deviation of the gray level
	MinContrast float64

	// Resolution
	MinWidth  int
	MinHeight int
}

// DefaultQualityThresholds returns thresholds tuned for cropped text photos.
// A crop around one quote is legitimately short, so the height floor is low.
func DefaultQualityThresholds() QualityThresholds {
	return QualityThresholds{
		MinLaplacianVariance: 100.0,
		MinBrightness:        60.0,
		MaxBrightness:        235.0,
		MinContrast:          20.0,
		MinWidth:             300,
		MinHeight:            40,
	}
}

// QualityValidator turns photo metrics into advisory issues.
type QualityValidator struct {
	thresholds QualityThresholds
}

// NewQualityValidator creates a new quality validator with default thresholds
func NewQualityValidator() *QualityValidator {
	return &QualityValidator{thresholds: DefaultQualityThresholds()}
}

// NewQualityValidatorWithThresholds creates a quality validator with custom thresholds
func NewQualityValidatorWithThresholds(thresholds QualityThresholds) *QualityValidator {
	return &QualityValidator{thresholds: thresholds}
}

// Severity of a quality issue.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// QualityIssue represents a quality validation issue
type QualityIssue struct {
	Type        string  `json:"type"`
	Message     string  `json:"message"`
	Severity    string  `json:"severity"`
	ActualValue float64 `json:"actual_value,omitempty"`
	Threshold   float64 `json:"threshold,omitempty"`
}

// QualityMetrics are the measurements the validator reads.
type QualityMetrics struct {
	Width        int     `json:"width"`
	Height       int     `json:"height"`
	LaplacianVar float64 `json:"laplacian_variance"`
	Brightness   float64 `json:"brightness"`
	Contrast     float64 `json:"contrast"`
}

// Validate returns the issues found in m, errors first.
func (qv *QualityValidator) Validate(m QualityMetrics) []QualityIssue {
	t := qv.thresholds
	var issues []QualityIssue

	if m.Width < t.MinWidth || m.Height < t.MinHeight {
		issues = append(issues, QualityIssue{
			Type:        "low_resolution",
			Message:     "The photo is small. Move closer to the page or use a higher resolution.",
			Severity:    SeverityError,
			ActualValue: float64(m.Width * m.Height),
			Threshold:   float64(t.MinWidth * t.MinHeight),
		})
	}

	// Flat images also have low variance; report them as low contrast instead.
	if m.LaplacianVar < t.MinLaplacianVariance && m.Contrast >= t.MinContrast {
		issues = append(issues, QualityIssue{
			Type:        "blurriness",
			Message:     "The photo is blurry. Hold the camera steady and try again.",
			Severity:    SeverityError,
			ActualValue: m.LaplacianVar,
			Threshold:   t.MinLaplacianVariance,
		})
	}

	if m.Brightness < t.MinBrightness {
		issues = append(issues, QualityIssue{
			Type:        "too_dark",
			Message:     "The page is too dark. Take the photo in more light.",
			Severity:    SeverityError,
			ActualValue: m.Brightness,
			Threshold:   t.MinBrightness,
		})
	} else if m.Brightness > t.MaxBrightness {
		issues = append(issues, QualityIssue{
			Type:        "too_bright",
			Message:     "The page is washed out. Avoid flash and direct sunlight.",
			Severity:    SeverityWarning,
			ActualValue: m.Brightness,
			Threshold:   t.MaxBrightness,
		})
	}

	if m.Contrast < t.MinContrast {
		issues = append(issues, QualityIssue{
			Type:        "low_contrast",
			Message:     "The text barely stands out from the page. Try better lighting.",
			Severity:    SeverityWarning,
			ActualValue: m.Contrast,
			Threshold:   t.MinContrast,
		})
	}

	return issues
}

// Messages flattens issues into their user-facing messages.
func (qv *QualityValidator) Messages(issues []QualityIssue) []string {
	var messages []string
	for _, issue := range issues {
		messages = append(messages, issue.Message)
	}
	return messages
}

// HasCriticalIssues checks if there are any critical (error severity) issues
func (qv *QualityValidator) HasCriticalIssues(issues []QualityIssue) bool {
	for _, issue := range issues {
		if issue.Severity == SeverityError {
			return true
		}
	}
	return false
}
