package fundsheet

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormulaEvaluator_Evaluate(t *testing.T) {
	values := mapLookup{
		"K3": 4.0, "K4": 1.0, "K5": -2.0,
		"K7": 8.0, "K8": 2.0, "K9": -5.0,
	}
	tests := []struct {
		name    string
		formula string
		want    Value
	}{
		{"sum range", "of:=SUM([.K3:.K5])", 3.0},
		{"negative operand", "of:=[.K5]-[.K7]", -10.0},
		{"ref plus sum", "of:=[.K3]+SUM([.K7:.K9])", 9.0},
		{"anchored refs", "of:=[.$K$3]*[.K$4]", 4.0},
		{"ratio", "of:=[.K7]/[.K3]", 2.0},
		{"leading equals", "=[.K3]+1", 5.0},
		{"unset operand", "of:=[.K3]+[.K99]", 4.0},
		{"integer literals", "of:=[.K3]/2", 2.0},
	}
	ev := NewFormulaEvaluator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ev.Evaluate(tt.formula, values)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestFormulaEvaluator_DivisionByZero(t *testing.T) {
	ev := NewFormulaEvaluator()

	got, err := ev.Evaluate("of:=[.K3]/[.K4]", mapLookup{"K3": 4.0, "K4": 0.0})
	require.NoError(t, err)
	assert.Equal(t, DivByZero, got)

	got, err = ev.Evaluate("of:=[.K3]/[.K4]", mapLookup{"K3": 0.0, "K4": 0.0})
	require.NoError(t, err)
	assert.Equal(t, DivByZero, got)
}

func TestFormulaEvaluator_SentinelPropagates(t *testing.T) {
	ev := NewFormulaEvaluator()
	values := mapLookup{"K3": DivByZero, "K4": 2.0, "K5": 3.0}

	got, err := ev.Evaluate("of:=[.K3]*[.K4]", values)
	require.NoError(t, err)
	assert.Equal(t, DivByZero, got)

	got, err = ev.Evaluate("of:=SUM([.K3:.K5])", values)
	require.NoError(t, err)
	assert.Equal(t, DivByZero, got)

	// a chain of dependents degrades to the same sentinel
	chained := mapLookup{"K10": got, "K4": 2.0}
	got, err = ev.Evaluate("of:=[.K10]+[.K4]", chained)
	require.NoError(t, err)
	assert.Equal(t, DivByZero, got)
}

func TestFormulaEvaluator_MultiColumnRange(t *testing.T) {
	_, err := NewFormulaEvaluator().Evaluate("of:=SUM([.K3:.L5])", mapLookup{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupportedRange))
}

func TestFormulaEvaluator_ReversedRangeIsEmpty(t *testing.T) {
	ev := NewFormulaEvaluator()
	values := mapLookup{"K3": 4.0, "K4": 1.0, "K5": -2.0}

	for _, formula := range []string{"of:=SUM([.K5:.K3])", "of:=SUM([.K4:.K3])"} {
		var got Value
		var err error
		require.NotPanics(t, func() { got, err = ev.Evaluate(formula, values) }, formula)
		require.NoError(t, err, formula)
		assert.InDelta(t, 0.0, got, 1e-9, formula)
	}

	expression, _, err := ev.Rewrite("of:=[.K3]+SUM([.K9:.K7])", values)
	require.NoError(t, err)
	assert.Equal(t, "4.0+sum([])", expression)
}

func TestFormulaEvaluator_RangeRowOverflow(t *testing.T) {
	ev := NewFormulaEvaluator()

	for _, formula := range []string{
		"of:=SUM([.K3:.K99999999999999999999])",
		"of:=SUM([.K99999999999999999999:.K3])",
	} {
		var err error
		require.NotPanics(t, func() { _, err = ev.Evaluate(formula, mapLookup{}) }, formula)
		require.Error(t, err, formula)
		assert.ErrorIs(t, err, ErrFormulaEval)
		assert.NotErrorIs(t, err, ErrUnsupportedRange)
	}
}

func TestFormulaEvaluator_EvalFailure(t *testing.T) {
	_, err := NewFormulaEvaluator().Evaluate("of:=[.K3]+", mapLookup{"K3": 1.0})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFormulaEval)

	var fe *FormulaEvalError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "of:=[.K3]+", fe.Formula)
	assert.Equal(t, "1.0+", fe.Expression)
}

func TestFormulaEvaluator_Rewrite(t *testing.T) {
	ev := NewFormulaEvaluator()
	values := mapLookup{"K3": 4.0, "K5": -2.0, "K7": 8.0, "K8": 2.0, "K9": -5.0}

	expression, tainted, err := ev.Rewrite("of:=[.K3]+SUM([.K7:.K9])", values)
	require.NoError(t, err)
	assert.False(t, tainted)
	assert.Equal(t, "4.0+sum([8.0, 2.0, (-5.0)])", expression)

	expression, _, err = ev.Rewrite("of:=[.K5]-[.K7]", values)
	require.NoError(t, err)
	assert.Equal(t, "(-2.0)-8.0", expression)

	_, tainted, err = ev.Rewrite("of:=[.K3]+[.K4]", mapLookup{"K4": DivByZero})
	require.NoError(t, err)
	assert.True(t, tainted)
}

func TestFormulaEvaluator_LookupErrorPropagates(t *testing.T) {
	_, sheet := openTemplate(t)
	cache := NewValueCache(sheet)

	_, err := NewFormulaEvaluator().Evaluate("of:=[.K3]+[.K500]", cache)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCoordinateOutOfRange)
}

func TestLiteral(t *testing.T) {
	tests := []struct {
		in   Value
		want string
	}{
		{nil, "0.0"},
		{5.0, "5.0"},
		{2.5, "2.5"},
		{-3.0, "(-3.0)"},
		{0.000001, "0.000001"},
		{"text", `"text"`},
		{true, "true"},
		{7, "7.0"},
	}
	for _, tt := range tests {
		got, _ := literal(tt.in)
		assert.Equal(t, tt.want, got, "literal(%v)", tt.in)
	}

	_, bad := literal(DivByZero)
	assert.True(t, bad)
}

func TestNormalizeResult(t *testing.T) {
	v, err := normalizeResult(3)
	require.NoError(t, err)
	assert.Equal(t, 3.0, v)

	v, err = normalizeResult("x")
	require.NoError(t, err)
	assert.Equal(t, "x", v)

	_, err = normalizeResult([]any{1})
	assert.Error(t, err)
}
