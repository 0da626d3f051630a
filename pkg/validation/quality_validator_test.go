package validation

import "testing"

func issueTypes(issues []QualityIssue) map[string]bool {
	out := make(map[string]bool)
	for _, i := range issues {
		out[i.Type] = true
	}
	return out
}

func TestQualityValidator_Validate(t *testing.T) {
	good := QualityMetrics{Width: 1200, Height: 400, LaplacianVar: 800, Brightness: 150, Contrast: 60}

	tests := []struct {
		name    string
		mutate  func(m *QualityMetrics)
		want    []string
		notWant []string
	}{
		{"clean photo", func(m *QualityMetrics) {}, nil, []string{"blurriness", "too_dark", "low_resolution"}},
		{"blurry", func(m *QualityMetrics) { m.LaplacianVar = 20 }, []string{"blurriness"}, nil},
		{"flat page is low contrast not blurry", func(m *QualityMetrics) { m.LaplacianVar = 0; m.Contrast = 2 },
			[]string{"low_contrast"}, []string{"blurriness"}},
		{"dark", func(m *QualityMetrics) { m.Brightness = 30 }, []string{"too_dark"}, []string{"too_bright"}},
		{"bright", func(m *QualityMetrics) { m.Brightness = 250 }, []string{"too_bright"}, []string{"too_dark"}},
		{"short crop is fine", func(m *QualityMetrics) { m.Height = 60 }, nil, []string{"low_resolution"}},
		{"tiny", func(m *QualityMetrics) { m.Width = 100 }, []string{"low_resolution"}, nil},
	}

	qv := NewQualityValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := good
			tt.mutate(&m)
			got := issueTypes(qv.Validate(m))
			for _, w := range tt.want {
				if !got[w] {
					t.Errorf("Expected issue %s, got %v", w, got)
				}
			}
			for _, w := range tt.notWant {
				if got[w] {
					t.Errorf("Did not expect issue %s", w)
				}
			}
		})
	}
}

func TestQualityValidator_HasCriticalIssues(t *testing.T) {
	qv := NewQualityValidator()
	if qv.HasCriticalIssues([]QualityIssue{{Type: "too_bright", Severity: SeverityWarning}}) {
		t.Error("Expected warnings not to be critical")
	}
	issues := qv.Validate(QualityMetrics{Width: 10, Height: 10, Brightness: 128, Contrast: 50, LaplacianVar: 500})
	if !qv.HasCriticalIssues(issues) {
		t.Error("Expected low resolution to be critical")
	}
	if msgs := qv.Messages(issues); len(msgs) != len(issues) {
		t.Errorf("Expected %d messages, got %d", len(issues), len(msgs))
	}
}

func TestNewQualityValidatorWithThresholds(t *testing.T) {
	th := DefaultQualityThresholds()
	th.MinWidth = 2000
	qv := NewQualityValidatorWithThresholds(th)
	got := issueTypes(qv.Validate(QualityMetrics{Width: 1200, Height: 400, LaplacianVar: 800, Brightness: 150, Contrast: 60}))
	if !got["low_resolution"] {
		t.Error("Expected custom width threshold to apply")
	}
}
