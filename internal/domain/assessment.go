package domain

import (
	"time"
)

// Severity classifies how serious a violation is.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityMajor    Severity = "major"
	SeverityMinor    Severity = "minor"
)

// Violation records a single rule failure. Immutable once created.
type Violation struct {
	RuleID        string   `json:"rule_id"`
	RuleName      string   `json:"rule_name"`
	Tier          int      `json:"tier"`
	Severity      Severity `json:"severity"`
	Message       string   `json:"message"`
	FixSuggestion string   `json:"fix_suggestion,omitempty"`
	AutoFixable   bool     `json:"auto_fixable"`
}

// TierResult is the outcome of running one evaluator tier.
//
// Invariant when the tier ran: RulesPassed + len(Violations) == RulesChecked.
// Skipped tiers report zero checked. RulesAttempted is set only when a tier-3
// batch was sent but the call or response parsing failed; those rules count
// as neither checked nor failed.
type TierResult struct {
	Tier             int          `json:"tier"`
	RulesChecked     int          `json:"rules_checked"`
	RulesPassed      int          `json:"rules_passed"`
	RulesAttempted   int          `json:"rules_attempted,omitempty"`
	Violations       []*Violation `json:"violations"`
	ProcessingTimeMs int64        `json:"processing_time_ms"`
	Skipped          bool         `json:"skipped"`
	SkipReason       string       `json:"skip_reason,omitempty"`
}

// Usage accounts for one tier-3 model call.
type Usage struct {
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	Cost         float64 `json:"cost"`
}

// TotalTokens is input plus output tokens.
func (u Usage) TotalTokens() int {
	return u.InputTokens + u.OutputTokens
}

// AssessmentResult is the artifact returned to the caller. The JSON field
// names are a wire contract parsed by downstream consumers; do not rename.
type AssessmentResult struct {
	ID               string              `json:"id"`
	OverallScore     int                 `json:"overall_score"`
	Passed           bool                `json:"passed"`
	TiersRun         []int               `json:"tiers_run"`
	TierResults      map[int]*TierResult `json:"tier_results"`
	Violations       []*Violation        `json:"violations"`
	PassedRulesCount int                 `json:"passed_rules_count"`
	AutoFixes        []string            `json:"auto_fixes"`
	Recommendations  []string            `json:"recommendations"`
	APICost          float64             `json:"api_cost"`
	TokensUsed       int                 `json:"tokens_used"`
	TotalTimeMs      int64               `json:"total_processing_time_ms"`
	ContentLength    int                 `json:"content_length"`
	PageType         string              `json:"page_type"`
	Industry         string              `json:"industry"`
	AssessedAt       time.Time           `json:"assessed_at"`
}

// AssessmentRequest is the input to one assessment run.
type AssessmentRequest struct {
	TenantID string
	TraceID  string
	Content  string
	PageType string
	Industry string
	Options  AssessOptions
}

// AssessOptions tune a single assessment run.
type AssessOptions struct {
	// RunTier3 gates model-assisted evaluation. When false tier 3 is
	// reported as skipped even when rules exist and a credential is set.
	RunTier3 bool `json:"run_tier3"`

	// ShortCircuit enables early termination before later tiers when an
	// earlier tier already condemned the content.
	ShortCircuit bool `json:"short_circuit"`

	// MaxTier3Rules caps the batch sent to the model service. Excess rules
	// are dropped from the run, not deferred.
	MaxTier3Rules int `json:"max_tier3_rules"`
}

// DefaultOptions returns the standard assessment options.
func DefaultOptions() AssessOptions {
	return AssessOptions{
		RunTier3:      true,
		ShortCircuit:  true,
		MaxTier3Rules: 10,
	}
}

// PassThreshold is the overall score at or above which content passes.
const PassThreshold = 70
