// Package language decides whether candidate items are written in English.
package language

import (
	"log/slog"
	"strings"
	"unicode/utf8"
)

const (
	minTextLength    = 10
	latinExtendedMax = 0x024F
	nonLatinMaxShare = 0.3

	DefaultMinLength  = 30
	summaryThreshold  = 50
	combinedMinLength = 60
	titleMinLength    = 50
)

type Reason string

const (
	ReasonTooShort       Reason = "too_short"
	ReasonNonLatinScript Reason = "non_latin_script"
	ReasonBelowMinLength Reason = "below_min_length"
	ReasonDetected       Reason = "detected"
	ReasonDetectorFailed Reason = "detector_failed"
)

// Verdict is the outcome of a language check. Language is set only when
// the statistical detector ran successfully.
type Verdict struct {
	English  bool
	Reason   Reason
	Language string
	Err      error
}

type Filter struct {
	detector Detector
}

func NewFilter(detector Detector) *Filter {
	if detector == nil {
		detector = WhatlangDetector{}
	}
	return &Filter{detector: detector}
}

// Check classifies text. Non-Latin scripts are rejected before the detector runs;
// text shorter than minLength and detector failures are accepted.
func (f *Filter) Check(text string, minLength int) Verdict {
	trimmed := strings.TrimSpace(text)
	length := utf8.RuneCountInString(trimmed)
	if length < minTextLength {
		return Verdict{English: false, Reason: ReasonTooShort}
	}

	var nonLatin, total int
	for _, r := range trimmed {
		if r != ' ' {
			total++
		}
		if r > latinExtendedMax {
			nonLatin++
		}
	}
	if total > 0 && float64(nonLatin)/float64(total) > nonLatinMaxShare {
		return Verdict{English: false, Reason: ReasonNonLatinScript}
	}

	if length < minLength {
		return Verdict{English: true, Reason: ReasonBelowMinLength}
	}

	lang, err := f.detector.Detect(trimmed)
	if err != nil {
		slog.Debug("Could not detect language", "text", truncate(trimmed, 50), "error", err)
		return Verdict{English: true, Reason: ReasonDetectorFailed, Err: err}
	}

	return Verdict{English: lang == English, Reason: ReasonDetected, Language: lang}
}

func (f *Filter) IsEnglish(text string, minLength int) bool {
	return f.Check(text, minLength).English
}

// FilterContent checks title and summary together when the summary is long
// enough to help, otherwise the title alone with a stricter length floor.
func (f *Filter) FilterContent(title, summary string) bool {
	return f.CheckContent(title, summary).English
}

func (f *Filter) CheckContent(title, summary string) Verdict {
	if utf8.RuneCountInString(summary) > summaryThreshold {
		return f.Check(title+" "+summary, combinedMinLength)
	}
	return f.Check(title, titleMinLength)
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
