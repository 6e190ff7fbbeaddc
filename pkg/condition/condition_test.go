package condition

import (
	"errors"
	"testing"

	"github.com/arcflow/arcflow/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSatisfiedEmptyConditionAlwaysPasses(t *testing.T) {
	evaluator := NewEvaluator()

	for _, expr := range []string{"", "   ", "\t", "\n"} {
		satisfied, err := evaluator.Satisfied(expr, nil)
		require.NoError(t, err)
		assert.True(t, satisfied, "condition %q", expr)
	}

	// Regardless of the source output.
	satisfied, err := evaluator.Satisfied("", map[string]any{"status": float64(500)})
	require.NoError(t, err)
	assert.True(t, satisfied)
}

func TestSatisfiedComparison(t *testing.T) {
	evaluator := NewEvaluator()

	tests := []struct {
		name      string
		condition string
		output    map[string]any
		want      bool
	}{
		{"c-like equality", `status == 200`, map[string]any{"status": float64(200)}, true},
		{"strict equality normalized", `status === 200`, map[string]any{"status": float64(200)}, true},
		{"strict inequality normalized", `status !== 200`, map[string]any{"status": float64(404)}, true},
		{"natural and", `status == 200 and ok == true`, map[string]any{"status": float64(200), "ok": true}, true},
		{"natural or", `status == 500 or retried == true`, map[string]any{"status": float64(200), "retried": true}, true},
		{"uppercase keywords", `status == 200 AND ok == TRUE`, map[string]any{"status": float64(200), "ok": true}, true},
		{"string comparison", `state == "done"`, map[string]any{"state": "done"}, true},
		{"operator word inside literal", `name == "alice and bob"`, map[string]any{"name": "alice and bob"}, true},
		{"keyword inside literal", `state == "not true"`, map[string]any{"state": "not true"}, true},
		{"false comparison", `status == 500`, map[string]any{"status": float64(200)}, false},
		{"greater than", `count > 3`, map[string]any{"count": float64(5)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			satisfied, err := evaluator.Satisfied(tt.condition, tt.output)
			require.NoError(t, err)
			assert.Equal(t, tt.want, satisfied)
		})
	}
}

func TestSatisfiedFailClosed(t *testing.T) {
	evaluator := NewEvaluator()

	tests := []struct {
		name      string
		condition string
		output    map[string]any
	}{
		{"syntax error", `status == `, map[string]any{"status": float64(200)}},
		{"missing field", `missing == 1`, map[string]any{"status": float64(200)}},
		{"type error", `status > "high"`, map[string]any{"status": float64(200)}},
		{"nil output", `status == 200`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			satisfied, err := evaluator.Satisfied(tt.condition, tt.output)
			require.Error(t, err)
			assert.False(t, satisfied, "fail-closed: edge must not be satisfied")

			var engineErr *models.EngineError

			require.True(t, errors.As(err, &engineErr))
			assert.Equal(t, models.ErrorCodeConditionEval, engineErr.Code)
		})
	}
}

func TestSatisfiedBranchDiscriminator(t *testing.T) {
	evaluator := NewEvaluator()

	branchTrue := map[string]any{"branch": "true", "result": true}
	branchFalse := map[string]any{"branch": "false", "result": false}

	satisfied, err := evaluator.Satisfied("true", branchTrue)
	require.NoError(t, err)
	assert.True(t, satisfied)

	satisfied, err = evaluator.Satisfied("false", branchTrue)
	require.NoError(t, err)
	assert.False(t, satisfied)

	satisfied, err = evaluator.Satisfied("TRUE", branchTrue)
	require.NoError(t, err)
	assert.True(t, satisfied)

	satisfied, err = evaluator.Satisfied("false", branchFalse)
	require.NoError(t, err)
	assert.True(t, satisfied)
}

func TestSatisfiedNamedBranchDiscriminator(t *testing.T) {
	evaluator := NewEvaluator()

	output := map[string]any{"branch": "premium"}

	satisfied, err := evaluator.Satisfied("premium", output)
	require.NoError(t, err)
	assert.True(t, satisfied)

	satisfied, err = evaluator.Satisfied("basic", output)
	require.NoError(t, err)
	assert.False(t, satisfied)
}

func TestSatisfiedResultFieldFallback(t *testing.T) {
	evaluator := NewEvaluator()

	// No branch discriminator, but an explicit boolean result.
	output := map[string]any{"result": true}

	satisfied, err := evaluator.Satisfied("true", output)
	require.NoError(t, err)
	assert.True(t, satisfied)

	satisfied, err = evaluator.Satisfied("false", output)
	require.NoError(t, err)
	assert.False(t, satisfied)
}

func TestDiscriminatorPrecedenceConfigurable(t *testing.T) {
	// A perverse output where the discriminator disagrees with a field of the
	// same name: discriminator-first matches "branch", expression-last
	// evaluates the identifier.
	output := map[string]any{"branch": "false", "ok": true}

	first := NewEvaluator()
	satisfied, err := first.Satisfied("false", output)
	require.NoError(t, err)
	assert.True(t, satisfied)

	last := NewEvaluator(WithDiscriminatorLast())
	satisfied, err = last.Satisfied("ok", output)
	require.NoError(t, err)
	assert.True(t, satisfied)

	// Expression-last still falls back to the discriminator when the
	// expression cannot be evaluated as one.
	satisfied, err = last.Satisfied("premium", map[string]any{"branch": "premium"})
	require.NoError(t, err)
	assert.True(t, satisfied)
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`a === b`, `a == b`},
		{`a !== b`, `a != b`},
		{`a and b`, `a && b`},
		{`a or b`, `a || b`},
		{`not done`, `!done`},
		{`TRUE`, `true`},
		{`False`, `false`},
		{`a AND b OR c`, `a && b || c`},
		{`name == "alice and bob"`, `name == "alice and bob"`},
		{`tag == 'not true' and ready`, `tag == 'not true' && ready`},
		{`note == "a \"true\" or so"`, `note == "a \"true\" or so"`},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.in), "input %q", tt.in)
	}
}

func TestTruthy(t *testing.T) {
	assert.True(t, Truthy(true))
	assert.True(t, Truthy("x"))
	assert.True(t, Truthy(float64(1)))
	assert.True(t, Truthy([]any{1}))
	assert.True(t, Truthy(map[string]any{"k": 1}))

	assert.False(t, Truthy(false))
	assert.False(t, Truthy(""))
	assert.False(t, Truthy(float64(0)))
	assert.False(t, Truthy(nil))
	assert.False(t, Truthy([]any{}))
	assert.False(t, Truthy(struct{}{}))
}
