// Package assess implements the assessment orchestrator. It sequences the
// three evaluator tiers, applies short-circuit policy between stages, and
// aggregates violations into an overall score and recommendation set.
package assess

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/pagequality/gannet/internal/domain"
	"github.com/pagequality/gannet/internal/judge"
	"github.com/pagequality/gannet/internal/linguistic"
	"github.com/pagequality/gannet/internal/pattern"
)

var tracer = otel.Tracer("gannet-assess")

// Skip reasons reported on tiers that were short-circuited by policy.
const (
	skipReasonTier1Critical = "critical tier-1 failures, fix before proceeding"
	skipReasonTier2FailRate = "high tier-2 failure rate"
	skipReasonNoRules       = "no rules defined for this tier"
	skipReasonTier3Disabled = "tier 3 disabled by request"
)

// criticalShortCircuitCount is the number of tier-1 critical violations at
// which tiers 2 and 3 are abandoned.
const criticalShortCircuitCount = 3

// tier2FailureFraction is the fraction of checked tier-2 rules that must
// fail before tier 3 is abandoned. Strictly greater-than.
const tier2FailureFraction = 0.5

// RuleSource supplies the active rules for one tier, ordered by descending
// priority. Satisfied by the repository and by the caching layer in front
// of it.
type RuleSource interface {
	GetRules(ctx context.Context, tenantID string, tier int, pageType, industry string) ([]*domain.Rule, error)
}

// Orchestrator runs the tiered assessment pipeline. Each Assess call is
// single-threaded and run-to-completion; a shared Orchestrator is safe for
// concurrent use because all per-call state lives on the stack and the
// tier-3 evaluator accumulates its totals atomically.
type Orchestrator struct {
	rules RuleSource
	tier1 *pattern.Evaluator
	tier2 *linguistic.Evaluator
	tier3 *judge.Evaluator
}

// NewOrchestrator wires the three evaluators to a rule source.
func NewOrchestrator(rules RuleSource, tier1 *pattern.Evaluator, tier2 *linguistic.Evaluator, tier3 *judge.Evaluator) *Orchestrator {
	return &Orchestrator{
		rules: rules,
		tier1: tier1,
		tier2: tier2,
		tier3: tier3,
	}
}

// Assess scores the request's content against the tenant's rule catalog.
// Misconfiguration (missing analyzer, missing model credential, malformed
// directives) degrades to skipped tiers; the only error path is rule
// retrieval.
func (o *Orchestrator) Assess(ctx context.Context, req *domain.AssessmentRequest) (*domain.AssessmentResult, error) {
	ctx, span := tracer.Start(ctx, "assess")
	defer span.End()
	span.SetAttributes(
		attribute.String("tenant.id", req.TenantID),
		attribute.String("page.type", req.PageType),
		attribute.Int("content.length", len(req.Content)),
	)

	opts := req.Options
	if opts.MaxTier3Rules <= 0 {
		opts.MaxTier3Rules = domain.DefaultOptions().MaxTier3Rules
	}

	result := &domain.AssessmentResult{
		ID:            uuid.New().String(),
		TierResults:   make(map[int]*domain.TierResult, 3),
		Violations:    []*domain.Violation{},
		AutoFixes:     []string{},
		TiersRun:      []int{},
		ContentLength: len(req.Content),
		PageType:      req.PageType,
		Industry:      req.Industry,
		AssessedAt:    time.Now().UTC(),
	}

	// Tier 1 always runs, even against an empty rule set.
	tier1Rules, err := o.rules.GetRules(ctx, req.TenantID, 1, req.PageType, req.Industry)
	if err != nil {
		return nil, fmt.Errorf("fetch tier-1 rules: %w", err)
	}
	t1 := o.tier1.Evaluate(ctx, req.Content, tier1Rules)
	result.TierResults[1] = t1
	result.TiersRun = append(result.TiersRun, 1)

	shortCircuited := false
	if opts.ShortCircuit && criticalCount(t1.Violations) >= criticalShortCircuitCount {
		slog.Info("assessment short-circuited after tier 1",
			"tenant_id", req.TenantID,
			"criticals", criticalCount(t1.Violations),
		)
		result.TierResults[2] = skippedTier(2, skipReasonTier1Critical)
		result.TierResults[3] = skippedTier(3, skipReasonTier1Critical)
		shortCircuited = true
	}

	if !shortCircuited {
		if err := o.runTier2(ctx, req, result); err != nil {
			return nil, err
		}

		t2 := result.TierResults[2]
		if opts.ShortCircuit && !t2.Skipped && t2.RulesChecked > 0 &&
			float64(t2.RulesChecked-t2.RulesPassed)/float64(t2.RulesChecked) > tier2FailureFraction {
			slog.Info("assessment short-circuited after tier 2",
				"tenant_id", req.TenantID,
				"checked", t2.RulesChecked,
				"passed", t2.RulesPassed,
			)
			result.TierResults[3] = skippedTier(3, skipReasonTier2FailRate)
			shortCircuited = true
		}
	}

	if !shortCircuited {
		if err := o.runTier3(ctx, req, opts, result); err != nil {
			return nil, err
		}
	}

	o.aggregate(result, shortCircuited)
	span.SetAttributes(
		attribute.Int("assessment.score", result.OverallScore),
		attribute.Bool("assessment.passed", result.Passed),
	)
	return result, nil
}

func (o *Orchestrator) runTier2(ctx context.Context, req *domain.AssessmentRequest, result *domain.AssessmentResult) error {
	rules, err := o.rules.GetRules(ctx, req.TenantID, 2, req.PageType, req.Industry)
	if err != nil {
		return fmt.Errorf("fetch tier-2 rules: %w", err)
	}
	if len(rules) == 0 {
		result.TierResults[2] = skippedTier(2, skipReasonNoRules)
		return nil
	}

	t2 := o.tier2.Evaluate(ctx, req.Content, rules)
	result.TierResults[2] = t2
	if !t2.Skipped {
		result.TiersRun = append(result.TiersRun, 2)
	}
	return nil
}

func (o *Orchestrator) runTier3(ctx context.Context, req *domain.AssessmentRequest, opts domain.AssessOptions, result *domain.AssessmentResult) error {
	if !opts.RunTier3 {
		result.TierResults[3] = skippedTier(3, skipReasonTier3Disabled)
		return nil
	}

	rules, err := o.rules.GetRules(ctx, req.TenantID, 3, req.PageType, req.Industry)
	if err != nil {
		return fmt.Errorf("fetch tier-3 rules: %w", err)
	}
	if len(rules) == 0 {
		result.TierResults[3] = skippedTier(3, skipReasonNoRules)
		return nil
	}

	t3, usage := o.tier3.Evaluate(ctx, req.Content, rules, opts.MaxTier3Rules)
	result.TierResults[3] = t3
	if !t3.Skipped {
		result.TiersRun = append(result.TiersRun, 3)
	}
	result.APICost = usage.Cost
	result.TokensUsed = usage.TotalTokens()
	return nil
}

// aggregate folds the per-tier results into the final score, the flattened
// violation list in tier order, and the recommendation set.
func (o *Orchestrator) aggregate(result *domain.AssessmentResult, shortCircuited bool) {
	totalChecked, totalPassed := 0, 0

	for tier := 1; tier <= 3; tier++ {
		tr, ok := result.TierResults[tier]
		if !ok {
			continue
		}
		totalChecked += tr.RulesChecked
		totalPassed += tr.RulesPassed
		result.Violations = append(result.Violations, tr.Violations...)
		result.TotalTimeMs += tr.ProcessingTimeMs
	}

	if totalChecked > 0 {
		result.OverallScore = int(math.Round(float64(totalPassed) / float64(totalChecked) * 100))
	}
	result.Passed = result.OverallScore >= domain.PassThreshold
	result.PassedRulesCount = totalPassed

	criticals, majors := 0, 0
	for _, v := range result.Violations {
		switch v.Severity {
		case domain.SeverityCritical:
			criticals++
		case domain.SeverityMajor:
			majors++
		}
		if v.AutoFixable && v.FixSuggestion != "" {
			result.AutoFixes = append(result.AutoFixes, v.FixSuggestion)
		}
	}

	recs := []string{}
	if shortCircuited {
		recs = append(recs, "Assessment stopped early: resolve the failures above before the remaining tiers can run.")
	}
	if criticals > 0 {
		recs = append(recs, fmt.Sprintf("Address %d critical violation(s) immediately.", criticals))
	}
	if majors > 0 {
		recs = append(recs, fmt.Sprintf("Review %d major violation(s).", majors))
	}
	result.Recommendations = recs
}

func skippedTier(tier int, reason string) *domain.TierResult {
	return &domain.TierResult{
		Tier:       tier,
		Skipped:    true,
		SkipReason: reason,
		Violations: []*domain.Violation{},
	}
}

func criticalCount(violations []*domain.Violation) int {
	n := 0
	for _, v := range violations {
		if v.Severity == domain.SeverityCritical {
			n++
		}
	}
	return n
}
