package fundsheet

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Lookup resolves a coordinate string ("K3") to its current value.
type Lookup interface {
	Get(coord string) (Value, error)
}

// rangeRefRegex matches a same-sheet range reference, e.g. [.K3:.K5].
var rangeRefRegex = regexp.MustCompile(`\[\.\$?([A-Z]+)\$?([0-9]+):\.\$?([A-Z]+)\$?([0-9]+)\]`)

// cellRefRegex matches a single cell reference, e.g. [.K3] or [.$K$3].
var cellRefRegex = regexp.MustCompile(`\[\.\$?([A-Z]+)\$?([0-9]+)\]`)

// formulaReplacements translate native formula syntax into engine syntax.
// They run after reference substitution.
var formulaReplacements = []struct{ old, new string }{
	{"of:=", ""},
	{"SUM", "sum"},
}

// FormulaEvaluator computes formulas by textual substitution: references are
// replaced by literal values, then the remaining arithmetic is evaluated.
type FormulaEvaluator struct {
	engine ExpressionEngine
}

// NewFormulaEvaluator creates a FormulaEvaluator backed by expr-lang/expr.
func NewFormulaEvaluator() *FormulaEvaluator {
	return &FormulaEvaluator{engine: NewExpressionEngine()}
}

// Evaluate computes formula against lookup. A division by zero, or any
// operand that already holds DivByZero, yields DivByZero. Other failures
// are returned as *FormulaEvalError.
func (fe *FormulaEvaluator) Evaluate(formula string, lookup Lookup) (Value, error) {
	expression, tainted, err := fe.Rewrite(formula, lookup)
	if err != nil {
		return nil, err
	}
	if tainted {
		return DivByZero, nil
	}

	raw, err := fe.engine.Evaluate(expression)
	if err != nil {
		if isDivideByZero(err) {
			return DivByZero, nil
		}
		return nil, &FormulaEvalError{Formula: formula, Expression: expression, Err: err}
	}
	v, err := normalizeResult(raw)
	if err != nil {
		return nil, &FormulaEvalError{Formula: formula, Expression: expression, Err: err}
	}
	return v, nil
}

// Rewrite substitutes every reference in formula with its literal value and
// applies the syntax replacements. tainted reports whether any substituted
// value was DivByZero.
func (fe *FormulaEvaluator) Rewrite(formula string, lookup Lookup) (expression string, tainted bool, err error) {
	result := formula

	// Ranges first: the single-cell pattern would otherwise eat their endpoints.
	matches := rangeRefRegex.FindAllStringSubmatchIndex(result, -1)
	for i := len(matches) - 1; i >= 0; i-- {
		m := matches[i]
		colStart, colEnd := result[m[2]:m[3]], result[m[6]:m[7]]
		if colStart != colEnd {
			return "", false, fmt.Errorf("%w: %s", ErrUnsupportedRange, result[m[0]:m[1]])
		}
		rowStart, err := strconv.Atoi(result[m[4]:m[5]])
		if err != nil {
			return "", false, &FormulaEvalError{Formula: formula, Err: fmt.Errorf("range %s: %w", result[m[0]:m[1]], err)}
		}
		rowEnd, err := strconv.Atoi(result[m[8]:m[9]])
		if err != nil {
			return "", false, &FormulaEvalError{Formula: formula, Err: fmt.Errorf("range %s: %w", result[m[0]:m[1]], err)}
		}

		// a reversed range is empty
		vals := make([]string, 0, max(0, rowEnd-rowStart+1))
		for row := rowStart; row <= rowEnd; row++ {
			coord := NewCoordinate(colStart, row).String()
			v, err := lookup.Get(coord)
			if err != nil {
				return "", false, fmt.Errorf("resolve %s in %q: %w", coord, formula, err)
			}
			lit, bad := literal(v)
			tainted = tainted || bad
			vals = append(vals, lit)
		}
		result = result[:m[0]] + "[" + strings.Join(vals, ", ") + "]" + result[m[1]:]
	}

	matches = cellRefRegex.FindAllStringSubmatchIndex(result, -1)
	for i := len(matches) - 1; i >= 0; i-- {
		m := matches[i]
		coord := result[m[2]:m[3]] + result[m[4]:m[5]]
		v, err := lookup.Get(coord)
		if err != nil {
			return "", false, fmt.Errorf("resolve %s in %q: %w", coord, formula, err)
		}
		lit, bad := literal(v)
		tainted = tainted || bad
		result = result[:m[0]] + lit + result[m[1]:]
	}

	for _, r := range formulaReplacements {
		result = strings.ReplaceAll(result, r.old, r.new)
	}
	result = strings.TrimPrefix(result, "=")
	return result, tainted, nil
}

// literal renders a value as an engine literal. Numbers are always float
// literals and negatives are parenthesized so "4-(-2.0)" stays well-formed.
func literal(v Value) (lit string, divByZero bool) {
	switch val := v.(type) {
	case nil:
		return "0.0", false
	case string:
		return strconv.Quote(val), val == DivByZero
	case bool:
		return strconv.FormatBool(val), false
	}
	f, ok := asFloat(v)
	if !ok {
		return strconv.Quote(fmt.Sprintf("%v", v)), false
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	if strings.HasPrefix(s, "-") {
		s = "(" + s + ")"
	}
	return s, false
}
