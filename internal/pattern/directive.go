package pattern

import (
	"fmt"
	"strconv"
	"strings"
)

// Directive is a parsed tier-1 validation directive. The external format is
// "name:arg1:arg2"; parsing happens once at rule load, so a malformed
// directive is caught before the evaluation loop instead of per assessment.
type Directive struct {
	Name string
	Args []string
}

// ParseDirective splits a raw directive into a predicate name and ordered
// string arguments.
func ParseDirective(raw string) (Directive, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Directive{}, fmt.Errorf("empty directive")
	}

	parts := strings.Split(raw, ":")
	name := strings.ToLower(strings.TrimSpace(parts[0]))
	if name == "" {
		return Directive{}, fmt.Errorf("directive %q has no predicate name", raw)
	}

	// Arguments keep their raw text so Rest can reconstruct keyword phrases
	// that contain the delimiter; numeric parsing trims in IntArg.
	return Directive{Name: name, Args: parts[1:]}, nil
}

// IntArg parses the i-th argument as an integer.
func (d Directive) IntArg(i int) (int, error) {
	if i >= len(d.Args) {
		return 0, fmt.Errorf("directive %s: missing argument %d", d.Name, i)
	}
	n, err := strconv.Atoi(strings.TrimSpace(d.Args[i]))
	if err != nil {
		return 0, fmt.Errorf("directive %s: argument %d is not a number: %q", d.Name, i, d.Args[i])
	}
	return n, nil
}

// Rest re-joins arguments from index i onward; used by keyword predicates
// whose phrase may itself contain the delimiter.
func (d Directive) Rest(i int) string {
	if i >= len(d.Args) {
		return ""
	}
	return strings.TrimSpace(strings.Join(d.Args[i:], ":"))
}
