package pattern

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
)

// celEnv exposes content statistics to CEL expressions so operators can ship
// custom deterministic checks without a code change. Directive form:
// "cel:word_count >= 300 && heading_count > 1".
var (
	celEnvOnce sync.Once
	celEnvInst *cel.Env
	celEnvErr  error
)

func celEnvironment() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnvInst, celEnvErr = cel.NewEnv(
			cel.Variable("content", cel.StringType),
			cel.Variable("word_count", cel.IntType),
			cel.Variable("heading_count", cel.IntType),
			cel.Variable("bullet_count", cel.IntType),
			cel.Variable("city_count", cel.IntType),
			cel.Variable("number_count", cel.IntType),
			cel.Variable("has_phone", cel.BoolType),
			cel.Variable("has_price", cel.BoolType),
			cel.Variable("has_license", cel.BoolType),
		)
	})
	return celEnvInst, celEnvErr
}

// celPredicate compiles and evaluates a CEL expression against the content's
// statistics. The expression must produce a bool.
func celPredicate(content string, d Directive) (bool, error) {
	expr := d.Rest(0)
	if expr == "" {
		return false, fmt.Errorf("cel: missing expression")
	}

	env, err := celEnvironment()
	if err != nil {
		return false, fmt.Errorf("cel: environment: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return false, fmt.Errorf("cel: compile %q: %w", expr, issues.Err())
	}
	if ast.OutputType() != cel.BoolType {
		return false, fmt.Errorf("cel: expression must return bool, got %s", ast.OutputType())
	}

	program, err := env.Program(ast)
	if err != nil {
		return false, fmt.Errorf("cel: program: %w", err)
	}

	out, _, err := program.Eval(statsActivation(content))
	if err != nil {
		return false, fmt.Errorf("cel: eval: %w", err)
	}

	b, ok := out.(types.Bool)
	if !ok {
		return false, fmt.Errorf("cel: non-boolean result")
	}
	return bool(b), nil
}

func statsActivation(content string) map[string]any {
	return map[string]any{
		"content":       content,
		"word_count":    int64(wordCount(content)),
		"heading_count": int64(len(headingRe.FindAllString(content, -1))),
		"bullet_count":  int64(len(bulletRe.FindAllString(content, -1))),
		"city_count":    int64(countCities(content)),
		"number_count":  int64(len(numberRe.FindAllString(content, -1))),
		"has_phone":     phoneRe.MatchString(content),
		"has_price":     priceRe.MatchString(content),
		"has_license":   licenseRe.MatchString(content),
	}
}
