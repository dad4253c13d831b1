package language

import (
	"errors"
	"strings"
	"testing"
)

type stubDetector struct {
	lang  string
	err   error
	calls int
}

func (d *stubDetector) Detect(text string) (string, error) {
	d.calls++
	return d.lang, d.err
}

func TestFilter_Check(t *testing.T) {
	longEnglish := "Researchers released a new open source compiler toolchain for embedded systems today"

	tests := []struct {
		name        string
		text        string
		minLength   int
		detector    *stubDetector
		wantEnglish bool
		wantReason  Reason
		wantCalls   int
	}{
		{"empty", "", DefaultMinLength, &stubDetector{lang: English}, false, ReasonTooShort, 0},
		{"near empty", "   short   ", DefaultMinLength, &stubDetector{lang: English}, false, ReasonTooShort, 0},
		{"chinese", strings.Repeat("中文标题测试", 7), DefaultMinLength, &stubDetector{lang: English}, false, ReasonNonLatinScript, 0},
		{"short latin accepted", "Go 1.24 released", DefaultMinLength, &stubDetector{lang: "French"}, true, ReasonBelowMinLength, 0},
		{"detected english", longEnglish, DefaultMinLength, &stubDetector{lang: English}, true, ReasonDetected, 1},
		{"detected other", longEnglish, DefaultMinLength, &stubDetector{lang: "German"}, false, ReasonDetected, 1},
		{"detector error accepts", longEnglish, DefaultMinLength, &stubDetector{err: errors.New("boom")}, true, ReasonDetectorFailed, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFilter(tt.detector)
			got := f.Check(tt.text, tt.minLength)

			if got.English != tt.wantEnglish {
				t.Errorf("Expected English=%v, got %v", tt.wantEnglish, got.English)
			}
			if got.Reason != tt.wantReason {
				t.Errorf("Expected reason %s, got %s", tt.wantReason, got.Reason)
			}
			if tt.detector.calls != tt.wantCalls {
				t.Errorf("Expected %d detector calls, got %d", tt.wantCalls, tt.detector.calls)
			}
		})
	}
}

func TestFilter_NonLatinRejectedRegardlessOfLength(t *testing.T) {
	f := NewFilter(&stubDetector{lang: English})

	// 40 characters, all CJK.
	text := strings.Repeat("中文", 20)
	if f.IsEnglish(text, 1000) {
		t.Errorf("Expected Chinese text to be rejected")
	}

	mixed := "Rust 编程语言 入门 指南 教程 完整 版本 说明"
	if f.IsEnglish(mixed, 1000) {
		t.Errorf("Expected mostly non-Latin text to be rejected")
	}
}

func TestFilter_CheckContent(t *testing.T) {
	t.Run("long summary uses combined text", func(t *testing.T) {
		d := &stubDetector{lang: English}
		f := NewFilter(d)
		summary := strings.Repeat("word ", 12)

		got := f.CheckContent("A fine title", summary)
		if got.Reason != ReasonDetected {
			t.Errorf("Expected detector to run on combined text, got reason %s", got.Reason)
		}
		if d.calls != 1 {
			t.Errorf("Expected 1 detector call, got %d", d.calls)
		}
	})

	t.Run("short summary uses title with higher floor", func(t *testing.T) {
		d := &stubDetector{lang: "Italian"}
		f := NewFilter(d)

		// 45 characters: below the 50 character title floor.
		title := "Understanding the new scheduler in the kernel"
		if !f.FilterContent(title, "short") {
			t.Errorf("Expected short title to be accepted without detection")
		}
		if d.calls != 0 {
			t.Errorf("Expected no detector calls, got %d", d.calls)
		}
	})
}

func TestWhatlangDetector(t *testing.T) {
	f := NewFilter(WhatlangDetector{})

	english := "The quick brown fox jumps over the lazy dog while the farmer watches from the old wooden porch."
	if !f.IsEnglish(english, DefaultMinLength) {
		t.Errorf("Expected English sentence to be accepted")
	}

	spanish := "El rápido zorro marrón salta sobre el perro perezoso mientras el granjero mira desde el viejo porche de madera."
	if f.IsEnglish(spanish, DefaultMinLength) {
		t.Errorf("Expected Spanish sentence to be rejected")
	}
}
