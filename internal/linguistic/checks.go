package linguistic

import (
	"fmt"
	"strings"

	"github.com/pagequality/gannet/internal/domain"
)

const (
	// maxGradeLevel is the readability ceiling; above grade 12 the content
	// reads harder than a high-school graduate should need.
	maxGradeLevel = 12.0

	// maxFirstSentenceWords is the opening-sentence length ceiling.
	maxFirstSentenceWords = 20
)

// beForms are the auxiliary verbs that mark a passive construction when
// followed by a past participle.
var beForms = map[string]struct{}{
	"am": {}, "is": {}, "are": {}, "was": {}, "were": {},
	"be": {}, "been": {}, "being": {},
}

// DeriveCheckType maps a legacy rule description onto a check type by
// keyword. Used only at load time for rules authored before check types
// were an explicit field; new rules carry the enum directly.
func DeriveCheckType(description string) domain.CheckType {
	desc := strings.ToLower(description)
	switch {
	case strings.Contains(desc, "passive voice"):
		return domain.CheckPassiveVoice
	case strings.Contains(desc, "readability") || strings.Contains(desc, "grade level"):
		return domain.CheckReadability
	case strings.Contains(desc, "first sentence"):
		return domain.CheckFirstSentence
	default:
		return ""
	}
}

// checkPassiveVoice fails when the first paragraph opens with a passive
// construction: a form of "be" followed within three tokens by a past
// participle (VBN).
func checkPassiveVoice(content string, analysis *domain.TextAnalysis) (bool, string) {
	firstPara := content
	if idx := strings.Index(content, "\n\n"); idx > 0 {
		firstPara = content[:idx]
	}

	for _, sent := range analysis.Sentences {
		if !strings.Contains(firstPara, strings.TrimSpace(sent.Text)) {
			break
		}
		if sentenceIsPassive(sent) {
			return false, fmt.Sprintf("first paragraph uses passive voice: %q", truncateEllipsis(sent.Text, 80))
		}
	}
	return true, ""
}

func sentenceIsPassive(sent domain.Sentence) bool {
	for i, tok := range sent.Tokens {
		if _, ok := beForms[strings.ToLower(tok.Text)]; !ok {
			continue
		}
		end := i + 4
		if end > len(sent.Tokens) {
			end = len(sent.Tokens)
		}
		for j := i + 1; j < end; j++ {
			if sent.Tokens[j].Tag == "VBN" {
				return true
			}
		}
	}
	return false
}

// checkReadability fails when the estimated grade level exceeds the ceiling.
func checkReadability(analysis *domain.TextAnalysis) (bool, string) {
	if analysis.GradeLevel > maxGradeLevel {
		return false, fmt.Sprintf("readability grade %.1f exceeds maximum %.0f", analysis.GradeLevel, maxGradeLevel)
	}
	return true, ""
}

// checkFirstSentence fails when the opening sentence runs too long.
func checkFirstSentence(analysis *domain.TextAnalysis) (bool, string) {
	if len(analysis.Sentences) == 0 {
		return true, ""
	}
	first := analysis.Sentences[0]
	words := first.WordCount()
	if words == 0 {
		words = len(strings.Fields(first.Text))
	}
	if words > maxFirstSentenceWords {
		return false, fmt.Sprintf("first sentence has %d words, maximum is %d", words, maxFirstSentenceWords)
	}
	return true, ""
}

func truncateEllipsis(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
