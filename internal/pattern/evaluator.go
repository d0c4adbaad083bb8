// Package pattern implements the tier-1 deterministic evaluator: fast,
// free, pattern-based predicates applied to content with no external I/O.
package pattern

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pagequality/gannet/internal/domain"
)

// Evaluator applies tier-1 rules to content using an injected predicate
// registry.
type Evaluator struct {
	registry Registry
}

// NewEvaluator creates a tier-1 evaluator. A nil registry gets the default
// predicate set.
func NewEvaluator(registry Registry) *Evaluator {
	if registry == nil {
		registry = DefaultRegistry()
	}
	return &Evaluator{registry: registry}
}

type parsedRule struct {
	rule      *domain.Rule
	directive Directive
	pred      Predicate
}

// Evaluate runs every tier-1 rule against the content. A rule with an
// unknown predicate or malformed directive is skipped, not failed; a
// predicate error or panic likewise skips only that rule. Skipped rules
// count toward neither passed nor violations.
func (e *Evaluator) Evaluate(ctx context.Context, content string, rules []*domain.Rule) *domain.TierResult {
	start := time.Now()

	result := &domain.TierResult{
		Tier:       1,
		Violations: []*domain.Violation{},
	}

	// Parse directives up front so malformed rules are rejected once, not
	// re-parsed on every predicate call.
	parsed := make([]parsedRule, 0, len(rules))
	for _, rule := range rules {
		d, err := ParseDirective(rule.Directive)
		if err != nil {
			slog.Warn("skipping rule with malformed directive",
				"rule_id", rule.ID,
				"directive", rule.Directive,
				"error", err,
			)
			continue
		}
		pred, ok := e.registry[d.Name]
		if !ok {
			slog.Warn("skipping rule with unknown predicate",
				"rule_id", rule.ID,
				"predicate", d.Name,
			)
			continue
		}
		parsed = append(parsed, parsedRule{rule: rule, directive: d, pred: pred})
	}

	for _, pr := range parsed {
		passed, err := e.evaluateOne(content, pr)
		if err != nil {
			slog.Warn("predicate failed, skipping rule",
				"rule_id", pr.rule.ID,
				"predicate", pr.directive.Name,
				"error", err,
			)
			continue
		}

		result.RulesChecked++
		if passed {
			result.RulesPassed++
			continue
		}

		severity := domain.SeverityMinor
		if pr.rule.Enforcement == domain.EnforcementRequired {
			severity = domain.SeverityCritical
		}

		result.Violations = append(result.Violations, &domain.Violation{
			RuleID:        pr.rule.ID,
			RuleName:      pr.rule.Name,
			Tier:          1,
			Severity:      severity,
			Message:       fmt.Sprintf("%s: content does not satisfy %q", pr.rule.Name, pr.rule.Directive),
			FixSuggestion: pr.rule.FixSuggestion,
			AutoFixable:   pr.rule.AutoFixable,
		})
	}

	result.ProcessingTimeMs = time.Since(start).Milliseconds()
	return result
}

// evaluateOne isolates a single predicate call so a panic in one predicate
// cannot abort the rule loop.
func (e *Evaluator) evaluateOne(content string, pr parsedRule) (passed bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("predicate panic: %v", r)
		}
	}()
	return pr.pred(content, pr.directive)
}
