// Package condition evaluates edge gating expressions against node outputs.
//
// Expressions run in a small sandboxed grammar (govaluate) with the source
// node's output as parameters; conditions never execute host code and never
// mutate the run. Evaluation errors are fail-closed: an edge whose condition
// cannot be evaluated is not satisfied.
package condition

import (
	"regexp"
	"strings"

	"github.com/Knetic/govaluate"
	"github.com/arcflow/arcflow/pkg/models"
)

// Discriminator fields of branch/decision-style node outputs.
const (
	branchField = "branch"
	resultField = "result"
)

// Evaluator normalizes the accepted dialect and evaluates conditions.
type Evaluator struct {
	discriminatorFirst bool
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithDiscriminatorLast makes generic expression evaluation take precedence
// over branch discriminator matching. The default is discriminator-first.
func WithDiscriminatorLast() Option {
	return func(e *Evaluator) {
		e.discriminatorFirst = false
	}
}

// NewEvaluator creates an evaluator with the given options.
func NewEvaluator(opts ...Option) *Evaluator {
	evaluator := &Evaluator{discriminatorFirst: true}

	for _, opt := range opts {
		opt(evaluator)
	}

	return evaluator
}

// Satisfied evaluates an edge condition against the source node's output.
//
// An empty or whitespace-only condition always passes. A non-empty condition
// that fails to evaluate returns false together with a condition_eval_error;
// the caller logs it, the edge stays closed and the run continues.
func (e *Evaluator) Satisfied(conditionExpr string, output map[string]any) (bool, error) {
	expr := strings.TrimSpace(conditionExpr)
	if expr == "" {
		return true, nil
	}

	if e.discriminatorFirst {
		if matched, satisfied := matchDiscriminator(expr, output); matched {
			return satisfied, nil
		}
	}

	satisfied, err := e.evaluate(expr, output)
	if err != nil {
		if !e.discriminatorFirst {
			if matched, ok := matchDiscriminator(expr, output); matched {
				return ok, nil
			}
		}

		return false, models.NewEngineError(models.ErrorCodeConditionEval, err.Error())
	}

	return satisfied, nil
}

func (e *Evaluator) evaluate(expr string, output map[string]any) (bool, error) {
	normalized := Normalize(expr)

	evaluable, err := govaluate.NewEvaluableExpression(normalized)
	if err != nil {
		return false, err
	}

	parameters := make(map[string]any, len(output))
	for key, value := range output {
		parameters[key] = value
	}

	result, err := evaluable.Evaluate(parameters)
	if err != nil {
		return false, err
	}

	return Truthy(result), nil
}

// matchDiscriminator implements branch/decision-style gating: when the source
// output carries an explicit branch discriminator (or a boolean result field),
// a bare-literal condition is matched against it directly, so branch nodes
// drive downstream edges without bespoke syntax.
func matchDiscriminator(expr string, output map[string]any) (matched, satisfied bool) {
	if output == nil || !bareLiteral(expr) {
		return false, false
	}

	literal := strings.ToLower(strings.TrimSpace(expr))

	if branch, ok := output[branchField].(string); ok {
		return true, strings.EqualFold(branch, literal)
	}

	if literal != "true" && literal != "false" {
		return false, false
	}

	if result, ok := output[resultField].(bool); ok {
		return true, result == (literal == "true")
	}

	return false, false
}

var bareLiteralRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_-]*$`)

func bareLiteral(expr string) bool {
	return bareLiteralRe.MatchString(strings.TrimSpace(expr))
}

var (
	strictEqRe  = regexp.MustCompile(`===`)
	strictNeqRe = regexp.MustCompile(`!==`)
	andRe       = regexp.MustCompile(`(?i)\band\b`)
	orRe        = regexp.MustCompile(`(?i)\bor\b`)
	notRe       = regexp.MustCompile(`(?i)\bnot\s+`)
	trueRe      = regexp.MustCompile(`(?i)\btrue\b`)
	falseRe     = regexp.MustCompile(`(?i)\bfalse\b`)
)

// Normalize rewrites the accepted dialect (C-like and natural operator forms)
// into the single grammar the sandbox evaluates: ===/!== collapse to ==/!=,
// and/or/not become &&/||/!, true/false are case-insensitive. Quoted string
// literals pass through untouched; an operator word inside a literal is data,
// not syntax.
func Normalize(expr string) string {
	var out strings.Builder
	var fragment strings.Builder

	flush := func() {
		out.WriteString(normalizeFragment(fragment.String()))
		fragment.Reset()
	}

	for i := 0; i < len(expr); i++ {
		quote := expr[i]
		if quote != '"' && quote != '\'' {
			fragment.WriteByte(quote)

			continue
		}

		flush()
		out.WriteByte(quote)

		for i++; i < len(expr); i++ {
			out.WriteByte(expr[i])

			if expr[i] == '\\' && i+1 < len(expr) {
				i++
				out.WriteByte(expr[i])

				continue
			}

			if expr[i] == quote {
				break
			}
		}
	}

	flush()

	return out.String()
}

func normalizeFragment(fragment string) string {
	normalized := strictEqRe.ReplaceAllString(fragment, "==")
	normalized = strictNeqRe.ReplaceAllString(normalized, "!=")
	normalized = andRe.ReplaceAllString(normalized, "&&")
	normalized = orRe.ReplaceAllString(normalized, "||")
	normalized = notRe.ReplaceAllString(normalized, "!")
	normalized = trueRe.ReplaceAllString(normalized, "true")
	normalized = falseRe.ReplaceAllString(normalized, "false")

	return normalized
}

// Truthy converts an evaluation result to a boolean verdict.
func Truthy(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		return v != ""
	case int:
		return v != 0
	case int64:
		return v != 0
	case float64:
		return v != 0
	case float32:
		return v != 0
	case []any:
		return len(v) > 0
	case map[string]any:
		return len(v) > 0
	case nil:
		return false
	default:
		return false
	}
}
