// Package nlp provides the linguistic analysis capability behind the
// tier-2 evaluator, built on jdkato/prose for sentence segmentation and
// part-of-speech tagging.
package nlp

import (
	"context"
	"fmt"
	"unicode/utf8"

	prose "github.com/jdkato/prose/v2"

	"github.com/pagequality/gannet/internal/domain"
)

// maxAnalyzeChars caps the text handed to the tokenizer; extremely long
// content is truncated for performance.
const maxAnalyzeChars = 100_000

// Analyzer implements domain.Analyzer using prose.
type Analyzer struct{}

// New creates a prose-backed analyzer.
func New() *Analyzer {
	return &Analyzer{}
}

// Analyze parses the text once: sentence boundaries, per-token POS tags,
// and a Flesch-Kincaid grade estimate.
func (a *Analyzer) Analyze(ctx context.Context, text string) (*domain.TextAnalysis, error) {
	text = truncate(text, maxAnalyzeChars)

	doc, err := prose.NewDocument(text,
		prose.WithExtraction(false), // named-entity extraction not needed
	)
	if err != nil {
		return nil, fmt.Errorf("nlp: parse failed: %w", err)
	}

	analysis := &domain.TextAnalysis{}
	for _, sent := range doc.Sentences() {
		analysis.Sentences = append(analysis.Sentences, domain.Sentence{Text: sent.Text})
	}

	// prose tokenizes the whole document; re-attach tokens to sentences by
	// walking both in order.
	tokens := doc.Tokens()
	ti := 0
	for si := range analysis.Sentences {
		sentText := analysis.Sentences[si].Text
		consumed := 0
		for ti < len(tokens) {
			tok := tokens[ti]
			idx := indexFrom(sentText, consumed, tok.Text)
			if idx < 0 {
				break
			}
			consumed = idx + len(tok.Text)
			analysis.Sentences[si].Tokens = append(analysis.Sentences[si].Tokens, domain.Token{
				Text: tok.Text,
				Tag:  tok.Tag,
			})
			ti++
		}
	}

	analysis.GradeLevel = GradeLevel(text, analysis.Sentences)
	return analysis, nil
}

// truncate caps s at max bytes without splitting a multi-byte rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// indexFrom finds needle in haystack at or after offset; -1 if absent.
func indexFrom(haystack string, offset int, needle string) int {
	if offset >= len(haystack) {
		return -1
	}
	for i := offset; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return i
		}
	}
	return -1
}
