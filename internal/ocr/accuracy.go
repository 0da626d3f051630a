package ocr

import (
	"math"
	"strings"

	"github.com/arbovm/levenshtein"
	"github.com/codycollier/wer"
)

// Accuracy compares extracted text against a known transcription.
type Accuracy struct {
	CharErrors     int     `json:"char_errors"`
	CharErrorRate  float64 `json:"char_error_rate"`
	WordErrors     int     `json:"word_errors"`
	WordErrorRate  float64 `json:"word_error_rate"`
	ReferenceWords int     `json:"reference_words"`
}

// Score computes character and word error rates of actual against expected.
// Whitespace runs are collapsed on both sides first.
func Score(expected, actual string) Accuracy {
	refWords := strings.Fields(expected)
	hypWords := strings.Fields(actual)
	ref := strings.Join(refWords, " ")
	hyp := strings.Join(hypWords, " ")

	a := Accuracy{ReferenceWords: len(refWords)}
	a.CharErrors = levenshtein.Distance(ref, hyp)
	if n := len([]rune(ref)); n > 0 {
		a.CharErrorRate = float64(a.CharErrors) / float64(n)
	} else if a.CharErrors > 0 {
		a.CharErrorRate = 1
	}

	if len(refWords) == 0 {
		a.WordErrors = len(hypWords)
		if a.WordErrors > 0 {
			a.WordErrorRate = 1
		}
		return a
	}
	// wer.WER returns the error rate and the word accuracy
	a.WordErrorRate, _ = wer.WER(refWords, hypWords)
	a.WordErrors = int(math.Round(a.WordErrorRate * float64(len(refWords))))
	return a
}
