package judge

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/pagequality/gannet/internal/domain"
)

// maxContentChars bounds the content prefix included in the prompt so a
// long page cannot blow up token cost.
const maxContentChars = 5_000

// verdict is one rule judgment in the model's structured response.
type verdict struct {
	RuleID string `json:"rule_id"`
	Passed bool   `json:"passed"`
	Reason string `json:"reason"`
}

// buildPrompt composes a single batched request covering every rule, asking
// for one JSON array element per rule id.
func buildPrompt(content string, rules []*domain.Rule) string {
	if len(content) > maxContentChars {
		// Back off to a rune boundary so the prompt never ends mid-character.
		cut := maxContentChars
		for cut > 0 && !utf8.RuneStart(content[cut]) {
			cut--
		}
		content = content[:cut]
	}

	var b strings.Builder
	b.WriteString("You are a content quality reviewer. Judge the CONTENT below against each RULE.\n\n")
	b.WriteString("RULES:\n")
	for i, r := range rules {
		fmt.Fprintf(&b, "%d. id=%s name=%q: %s\n", i+1, r.ID, r.Name, r.Description)
	}
	b.WriteString("\nCONTENT:\n")
	b.WriteString(content)
	b.WriteString("\n\nRespond with ONLY a JSON array, one element per rule, in the form:\n")
	b.WriteString(`[{"rule_id": "...", "passed": true, "reason": "one short sentence"}]`)
	b.WriteString("\nInclude every rule id exactly once. No prose outside the JSON.")
	return b.String()
}

// parseVerdicts extracts the JSON array from the model's reply, tolerating
// prose or code fences around the structured portion.
func parseVerdicts(text string) ([]verdict, error) {
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON array in model response")
	}

	var verdicts []verdict
	if err := json.Unmarshal([]byte(text[start:end+1]), &verdicts); err != nil {
		return nil, fmt.Errorf("parse verdicts: %w", err)
	}
	return verdicts, nil
}
