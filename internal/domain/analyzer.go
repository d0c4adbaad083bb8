package domain

import "context"

// Analyzer is the linguistic analysis capability consumed by the tier-2
// evaluator. Implementations parse text once per assessment; callers reuse
// the returned analysis across rules. A nil Analyzer means the capability
// is unavailable and tier 2 reports skipped.
type Analyzer interface {
	Analyze(ctx context.Context, text string) (*TextAnalysis, error)
}

// TextAnalysis is a parsed view of the content.
type TextAnalysis struct {
	Sentences []Sentence

	// GradeLevel is the estimated reading grade (Flesch-Kincaid).
	GradeLevel float64
}

// Sentence is one sentence with its tagged tokens.
type Sentence struct {
	Text   string
	Tokens []Token
}

// Token is a word with its part-of-speech tag (Penn Treebank tags).
type Token struct {
	Text string
	Tag  string
}

// WordCount counts word-like tokens in the sentence, excluding punctuation.
func (s Sentence) WordCount() int {
	n := 0
	for _, t := range s.Tokens {
		if len(t.Tag) > 0 && (t.Tag[0] >= 'A' && t.Tag[0] <= 'Z') {
			n++
		}
	}
	return n
}
