package language

import (
	"errors"

	"github.com/abadojack/whatlanggo"
)

const English = "English"

var ErrUndetermined = errors.New("language could not be determined")

type Detector interface {
	// Detect returns the English name of the most likely language of text.
	Detect(text string) (string, error)
}

// WhatlangDetector detects languages with trigram statistics.
type WhatlangDetector struct{}

func (WhatlangDetector) Detect(text string) (string, error) {
	info := whatlanggo.Detect(text)
	if info.Lang < 0 {
		return "", ErrUndetermined
	}
	if info.Lang == whatlanggo.Eng {
		return English, nil
	}
	return info.Lang.String(), nil
}
