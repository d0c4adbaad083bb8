package nlp

import (
	"strings"
	"unicode"

	"github.com/pagequality/gannet/internal/domain"
)

// GradeLevel estimates the Flesch-Kincaid grade level of the text:
//
//	0.39 * (words/sentences) + 11.8 * (syllables/words) - 15.59
//
// clamped to [0, 20]. Returns 0 for empty text.
func GradeLevel(text string, sentences []domain.Sentence) float64 {
	words := strings.Fields(text)
	if len(words) == 0 {
		return 0
	}

	sentenceCount := len(sentences)
	if sentenceCount == 0 {
		sentenceCount = 1
	}

	syllables := 0
	for _, w := range words {
		syllables += CountSyllables(w)
	}

	grade := 0.39*(float64(len(words))/float64(sentenceCount)) +
		11.8*(float64(syllables)/float64(len(words))) - 15.59

	if grade < 0 {
		return 0
	}
	if grade > 20 {
		return 20
	}
	return grade
}

// CountSyllables approximates syllables by counting vowel groups, with the
// usual silent-e adjustment. Every word counts at least one.
func CountSyllables(word string) int {
	word = strings.ToLower(strings.TrimFunc(word, func(r rune) bool {
		return !unicode.IsLetter(r)
	}))
	if word == "" {
		return 0
	}

	count := 0
	prevVowel := false
	for _, r := range word {
		vowel := strings.ContainsRune("aeiouy", r)
		if vowel && !prevVowel {
			count++
		}
		prevVowel = vowel
	}

	// Silent trailing e, but not for words like "the" or "be".
	if strings.HasSuffix(word, "e") && !strings.HasSuffix(word, "le") && count > 1 {
		count--
	}

	if count == 0 {
		count = 1
	}
	return count
}
