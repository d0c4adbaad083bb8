// Package judge implements the tier-3 evaluator: batched, model-assisted
// rule judgment with token and cost accounting.
package judge

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/pagequality/gannet/internal/domain"
)

// Evaluator batches tier-3 rules into a single model call. Usage is
// request-scoped: each Evaluate call returns its own Usage, and a shared
// instance additionally keeps atomic process-lifetime totals so it is safe
// to reuse across concurrent assessments.
type Evaluator struct {
	client  domain.ModelClient
	pricing Pricing

	totalTokens    atomic.Int64
	totalCostMicro atomic.Int64 // millionths of a dollar
}

// NewEvaluator creates a tier-3 evaluator. A nil client means the model
// service is not configured and every call reports skipped.
func NewEvaluator(client domain.ModelClient, pricing Pricing) *Evaluator {
	if pricing == (Pricing{}) {
		pricing = DefaultPricing()
	}
	return &Evaluator{client: client, pricing: pricing}
}

// Evaluate sends up to maxRules rules in one batched model call. Excess
// rules are dropped from this run, not deferred. A transport or parse
// failure is non-fatal: the tier reports zero checked with the batch size
// in RulesAttempted, and no error escapes to the orchestrator.
func (e *Evaluator) Evaluate(ctx context.Context, content string, rules []*domain.Rule, maxRules int) (*domain.TierResult, domain.Usage) {
	start := time.Now()

	result := &domain.TierResult{
		Tier:       3,
		Violations: []*domain.Violation{},
	}

	if e.client == nil || !e.client.Configured() {
		result.Skipped = true
		result.SkipReason = "model service not configured"
		return result, domain.Usage{}
	}

	if maxRules <= 0 {
		maxRules = 10
	}
	if len(rules) > maxRules {
		slog.Debug("tier-3 batch truncated",
			"available", len(rules),
			"sent", maxRules,
		)
		rules = rules[:maxRules]
	}

	resp, err := e.client.Complete(ctx, buildPrompt(content, rules))
	if err != nil {
		slog.Warn("tier-3 model call failed", "error", err)
		result.RulesAttempted = len(rules)
		result.ProcessingTimeMs = time.Since(start).Milliseconds()
		return result, domain.Usage{}
	}

	usage := domain.Usage{
		InputTokens:  resp.InputTokens,
		OutputTokens: resp.OutputTokens,
		Cost:         e.pricing.Cost(resp.InputTokens, resp.OutputTokens),
	}
	e.totalTokens.Add(int64(usage.TotalTokens()))
	e.totalCostMicro.Add(int64(usage.Cost * 1_000_000))

	verdicts, err := parseVerdicts(resp.Text)
	if err != nil {
		slog.Warn("tier-3 response unparseable", "error", err)
		result.RulesAttempted = len(rules)
		result.ProcessingTimeMs = time.Since(start).Milliseconds()
		return result, usage
	}

	byID := make(map[string]*domain.Rule, len(rules))
	for _, r := range rules {
		byID[r.ID] = r
	}

	for _, v := range verdicts {
		rule, ok := byID[v.RuleID]
		if !ok {
			// Model hallucinated an id; ignore it.
			continue
		}
		delete(byID, v.RuleID)

		result.RulesChecked++
		if v.Passed {
			result.RulesPassed++
			continue
		}

		severity := domain.SeverityMinor
		if rule.Enforcement == domain.EnforcementRequired {
			severity = domain.SeverityMajor
		}

		message := v.Reason
		if message == "" {
			message = fmt.Sprintf("%s: judged failing by model", rule.Name)
		}

		result.Violations = append(result.Violations, &domain.Violation{
			RuleID:        rule.ID,
			RuleName:      rule.Name,
			Tier:          3,
			Severity:      severity,
			Message:       message,
			FixSuggestion: rule.FixSuggestion,
			AutoFixable:   rule.AutoFixable,
		})
	}

	if len(byID) > 0 {
		slog.Debug("tier-3 response missing rules", "missing", len(byID))
	}

	result.ProcessingTimeMs = time.Since(start).Milliseconds()
	return result, usage
}

// Totals returns process-lifetime token and cost accumulation across all
// assessments served by this evaluator instance.
func (e *Evaluator) Totals() (tokens int64, cost float64) {
	return e.totalTokens.Load(), float64(e.totalCostMicro.Load()) / 1_000_000
}
