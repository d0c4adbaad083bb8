package domain

// Rule is a single content quality rule from the catalog.
// Rules are authored externally and read-only inside the engine.
type Rule struct {
	ID          string `json:"id"`
	TenantID    string `json:"tenant_id"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Version     string `json:"version"`

	// Tier determines which evaluator owns the rule: 1, 2, or 3.
	Tier int `json:"tier"`

	// Directive is the tier-1 validation directive, e.g. "has-cities:3".
	Directive string `json:"directive,omitempty"`

	// CheckType selects the tier-2 linguistic check. Legacy rules without
	// one get a check type derived from the description at load time.
	CheckType CheckType `json:"check_type,omitempty"`

	// Enforcement drives violation severity.
	Enforcement Enforcement `json:"enforcement"`

	// Priority orders rules within a tier, highest first.
	Priority int `json:"priority"`

	// AutoFixable marks rules with a mechanical remediation.
	AutoFixable   bool   `json:"auto_fixable"`
	FixSuggestion string `json:"fix_suggestion,omitempty"`

	// Applicability filters. Empty means unrestricted.
	PageTypes  []string `json:"page_types,omitempty"`
	Industries []string `json:"industries,omitempty"`

	Enabled bool `json:"enabled"`
}

// Enforcement is whether a rule is mandatory or advisory.
type Enforcement string

const (
	EnforcementRequired    Enforcement = "required"
	EnforcementRecommended Enforcement = "recommended"
)

// CheckType is the enumerated tier-2 linguistic check a rule dispatches to.
type CheckType string

const (
	CheckPassiveVoice  CheckType = "passive_voice"
	CheckReadability   CheckType = "readability"
	CheckFirstSentence CheckType = "first_sentence"
)

// AppliesTo reports whether the rule's applicability filters match the
// given page type and industry. Empty filters match everything.
func (r *Rule) AppliesTo(pageType, industry string) bool {
	if len(r.PageTypes) > 0 && !containsFold(r.PageTypes, pageType) {
		return false
	}
	if len(r.Industries) > 0 && !containsFold(r.Industries, industry) {
		return false
	}
	return true
}

func containsFold(values []string, want string) bool {
	for _, v := range values {
		if equalFold(v, want) {
			return true
		}
	}
	return false
}

// equalFold is an ASCII-only case-insensitive compare; catalog values are
// plain ASCII slugs.
func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}
