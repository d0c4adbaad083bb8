package nlp

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/pagequality/gannet/internal/domain"
)

func TestAnalyze(t *testing.T) {
	a := New()

	analysis, err := a.Analyze(context.Background(), "We fix leaks fast. Call us today for a free estimate.")
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if len(analysis.Sentences) != 2 {
		t.Fatalf("sentences = %d, want 2", len(analysis.Sentences))
	}

	first := analysis.Sentences[0]
	if !strings.HasPrefix(first.Text, "We fix leaks") {
		t.Errorf("first sentence = %q", first.Text)
	}
	if len(first.Tokens) == 0 {
		t.Fatal("expected tokens attached to the first sentence")
	}
	for _, tok := range first.Tokens {
		if tok.Tag == "" {
			t.Errorf("token %q has no POS tag", tok.Text)
		}
	}

	if analysis.GradeLevel < 0 || analysis.GradeLevel > 20 {
		t.Errorf("grade level %f out of range", analysis.GradeLevel)
	}
}

func TestAnalyzeEmpty(t *testing.T) {
	a := New()
	analysis, err := a.Analyze(context.Background(), "")
	if err != nil {
		t.Fatalf("Analyze failed on empty text: %v", err)
	}
	if len(analysis.Sentences) != 0 {
		t.Errorf("sentences = %d, want 0", len(analysis.Sentences))
	}
	if analysis.GradeLevel != 0 {
		t.Errorf("grade level = %f, want 0", analysis.GradeLevel)
	}
}

func TestTruncateKeepsRuneBoundary(t *testing.T) {
	// Two-byte runes force the cap to land mid-character.
	s := strings.Repeat("é", 6)

	got := truncate(s, 7)
	if !utf8.ValidString(got) {
		t.Errorf("truncate(%q, 7) = %q is not valid UTF-8", s, got)
	}
	if got != strings.Repeat("é", 3) {
		t.Errorf("truncate = %q, want %q", got, strings.Repeat("é", 3))
	}

	if got := truncate("short", 100); got != "short" {
		t.Errorf("short input modified: %q", got)
	}
}

func TestCountSyllables(t *testing.T) {
	tests := []struct {
		word string
		want int
	}{
		{"cat", 1},
		{"water", 2},
		{"estimate", 3},
		{"the", 1},
		{"table", 2},
		{"", 0},
		{"???", 0},
	}

	for _, tt := range tests {
		if got := CountSyllables(tt.word); got != tt.want {
			t.Errorf("CountSyllables(%q) = %d, want %d", tt.word, got, tt.want)
		}
	}
}

func TestGradeLevel(t *testing.T) {
	t.Run("SimpleTextIsLowGrade", func(t *testing.T) {
		text := "We fix pipes. We do it fast. Call us now."
		sentences := []domain.Sentence{{Text: "We fix pipes."}, {Text: "We do it fast."}, {Text: "Call us now."}}
		if grade := GradeLevel(text, sentences); grade > 6 {
			t.Errorf("simple text graded %f, want <= 6", grade)
		}
	})

	t.Run("DensePoseIsHigherGrade", func(t *testing.T) {
		text := "Comprehensive municipal infrastructure rehabilitation necessitates extraordinarily meticulous administrative coordination throughout implementation."
		sentences := []domain.Sentence{{Text: text}}
		if grade := GradeLevel(text, sentences); grade < 12 {
			t.Errorf("dense text graded %f, want >= 12", grade)
		}
	})

	t.Run("EmptyTextIsZero", func(t *testing.T) {
		if grade := GradeLevel("", nil); grade != 0 {
			t.Errorf("grade = %f, want 0", grade)
		}
	})
}
