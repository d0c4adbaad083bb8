package pattern

import (
	"fmt"
	"regexp"
	"strings"
)

// Predicate is a deterministic check over content. Predicates must be pure:
// no I/O, no shared state.
type Predicate func(content string, d Directive) (bool, error)

// Registry maps predicate names to implementations. It is constructor
// injected into the evaluator so tests can substitute predicates without
// touching shared state.
type Registry map[string]Predicate

var (
	phoneRe = regexp.MustCompile(`(\+?1[\s.-]?)?\(?\d{3}\)?[\s.-]?\d{3}[\s.-]?\d{4}\b`)
	priceRe = regexp.MustCompile(`[$€£]\s?\d[\d,]*(\.\d{1,2})?`)
	// License/registration numbers: "Lic #12345", "License: AB-98765",
	// "Reg. No. C10-445566" and similar.
	licenseRe = regexp.MustCompile(`(?i)\b(lic(ense|enced)?|reg(istration)?)\.?\s*(no\.?|number|#|:)?\s*#?[A-Z0-9][A-Z0-9-]{3,}\b`)
	headingRe = regexp.MustCompile(`(?m)^##\s+\S`)
	bulletRe  = regexp.MustCompile(`(?m)^\s*[-*•]\s+\S`)
	numberRe  = regexp.MustCompile(`\b\d+(\.\d+)?\b`)
)

// DefaultRegistry returns the canonical predicate set.
func DefaultRegistry() Registry {
	return Registry{
		"word-count-min":   wordCountMin,
		"word-count-max":   wordCountMax,
		"word-count-range": wordCountRange,
		"has-phone":        hasPhone,
		"has-price":        hasPrice,
		"has-license":      hasLicense,
		"has-cities":       hasCities,
		"has-headings":     hasHeadings,
		"has-bullets":      hasBullets,
		"has-keyword":      hasKeyword,
		"no-keyword":       noKeyword,
		"has-numbers":      hasNumbers,
		"cel":              celPredicate,
	}
}

func wordCount(content string) int {
	return len(strings.Fields(content))
}

func wordCountMin(content string, d Directive) (bool, error) {
	min, err := d.IntArg(0)
	if err != nil {
		return false, err
	}
	return wordCount(content) >= min, nil
}

func wordCountMax(content string, d Directive) (bool, error) {
	max, err := d.IntArg(0)
	if err != nil {
		return false, err
	}
	return wordCount(content) <= max, nil
}

func wordCountRange(content string, d Directive) (bool, error) {
	min, err := d.IntArg(0)
	if err != nil {
		return false, err
	}
	max, err := d.IntArg(1)
	if err != nil {
		return false, err
	}
	if min > max {
		return false, fmt.Errorf("word-count-range: min %d exceeds max %d", min, max)
	}
	n := wordCount(content)
	return n >= min && n <= max, nil
}

func hasPhone(content string, _ Directive) (bool, error) {
	return phoneRe.MatchString(content), nil
}

func hasPrice(content string, _ Directive) (bool, error) {
	return priceRe.MatchString(content), nil
}

func hasLicense(content string, _ Directive) (bool, error) {
	return licenseRe.MatchString(content), nil
}

// hasCities passes when at least N distinct gazetteer cities appear.
func hasCities(content string, d Directive) (bool, error) {
	min, err := d.IntArg(0)
	if err != nil {
		return false, err
	}
	return countCities(content) >= min, nil
}

// hasHeadings counts level-2 markdown headings.
func hasHeadings(content string, d Directive) (bool, error) {
	min, err := d.IntArg(0)
	if err != nil {
		return false, err
	}
	return len(headingRe.FindAllString(content, -1)) >= min, nil
}

func hasBullets(content string, d Directive) (bool, error) {
	min, err := d.IntArg(0)
	if err != nil {
		return false, err
	}
	return len(bulletRe.FindAllString(content, -1)) >= min, nil
}

func hasKeyword(content string, d Directive) (bool, error) {
	phrase := d.Rest(0)
	if phrase == "" {
		return false, fmt.Errorf("has-keyword: missing phrase")
	}
	return strings.Contains(strings.ToLower(content), strings.ToLower(phrase)), nil
}

func noKeyword(content string, d Directive) (bool, error) {
	found, err := hasKeyword(content, d)
	if err != nil {
		return false, fmt.Errorf("no-keyword: missing phrase")
	}
	return !found, nil
}

// hasNumbers counts bare numeric tokens.
func hasNumbers(content string, d Directive) (bool, error) {
	min, err := d.IntArg(0)
	if err != nil {
		return false, err
	}
	return len(numberRe.FindAllString(content, -1)) >= min, nil
}
