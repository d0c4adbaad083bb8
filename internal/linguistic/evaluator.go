// Package linguistic implements the tier-2 evaluator: statistical and
// structural heuristics over a single shared parse of the content.
package linguistic

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/pagequality/gannet/internal/domain"
)

// maxContentChars caps the text sent to the analyzer.
const maxContentChars = 100_000

// Evaluator applies tier-2 rules using an injected analyzer. A nil analyzer
// means the capability is unavailable and every call reports skipped.
type Evaluator struct {
	analyzer domain.Analyzer
}

// NewEvaluator creates a tier-2 evaluator.
func NewEvaluator(analyzer domain.Analyzer) *Evaluator {
	return &Evaluator{analyzer: analyzer}
}

// Evaluate parses the content once and dispatches each rule to its check.
// Rules whose check type is unknown pass by default: an unimplemented check
// must not block content.
func (e *Evaluator) Evaluate(ctx context.Context, content string, rules []*domain.Rule) *domain.TierResult {
	start := time.Now()

	result := &domain.TierResult{
		Tier:       2,
		Violations: []*domain.Violation{},
	}

	if e.analyzer == nil {
		result.Skipped = true
		result.SkipReason = "nlp analyzer unavailable"
		return result
	}

	content = truncate(content, maxContentChars)

	analysis, err := e.analyzer.Analyze(ctx, content)
	if err != nil {
		slog.Warn("tier-2 analysis failed", "error", err)
		result.Skipped = true
		result.SkipReason = "nlp analysis failed: " + err.Error()
		return result
	}

	for _, rule := range rules {
		checkType := rule.CheckType
		if checkType == "" {
			checkType = DeriveCheckType(rule.Description)
		}

		passed, message := runCheck(checkType, content, analysis)

		result.RulesChecked++
		if passed {
			result.RulesPassed++
			continue
		}

		severity := domain.SeverityMinor
		if rule.Enforcement == domain.EnforcementRequired {
			severity = domain.SeverityMajor
		}

		result.Violations = append(result.Violations, &domain.Violation{
			RuleID:        rule.ID,
			RuleName:      rule.Name,
			Tier:          2,
			Severity:      severity,
			Message:       fmt.Sprintf("%s: %s", rule.Name, message),
			FixSuggestion: rule.FixSuggestion,
			AutoFixable:   rule.AutoFixable,
		})
	}

	result.ProcessingTimeMs = time.Since(start).Milliseconds()
	return result
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

func runCheck(checkType domain.CheckType, content string, analysis *domain.TextAnalysis) (bool, string) {
	switch checkType {
	case domain.CheckPassiveVoice:
		return checkPassiveVoice(content, analysis)
	case domain.CheckReadability:
		return checkReadability(analysis)
	case domain.CheckFirstSentence:
		return checkFirstSentence(analysis)
	default:
		// Fail open: unknown checks pass.
		return true, ""
	}
}
