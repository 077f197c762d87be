package fundsheet

import (
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// ExpressionEngine evaluates a rewritten formula (plain arithmetic over
// literals plus the sum builtin).
type ExpressionEngine interface {
	Evaluate(expression string) (any, error)
}

// exprEngine implements ExpressionEngine using expr-lang/expr.
type exprEngine struct {
	cache sync.Map // expression string → compiled *vm.Program
}

// NewExpressionEngine creates an expression engine backed by expr-lang/expr.
func NewExpressionEngine() ExpressionEngine {
	return &exprEngine{}
}

func (e *exprEngine) Evaluate(expression string) (any, error) {
	program, err := e.compile(expression)
	if err != nil {
		return nil, fmt.Errorf("compile expression %q: %w", expression, err)
	}
	result, err := expr.Run(program, nil)
	if err != nil {
		return nil, fmt.Errorf("evaluate expression %q: %w", expression, err)
	}
	return result, nil
}

func (e *exprEngine) compile(expression string) (*vm.Program, error) {
	if cached, ok := e.cache.Load(expression); ok {
		return cached.(*vm.Program), nil
	}
	program, err := expr.Compile(expression)
	if err != nil {
		return nil, err
	}
	e.cache.Store(expression, program)
	return program, nil
}

// normalizeResult maps an engine result onto a cell Value.
// Infinite and NaN results come from a division by zero.
func normalizeResult(v any) (Value, error) {
	switch val := v.(type) {
	case float64:
		if math.IsInf(val, 0) || math.IsNaN(val) {
			return DivByZero, nil
		}
		return val, nil
	case float32:
		return normalizeResult(float64(val))
	case int:
		return float64(val), nil
	case int64:
		return float64(val), nil
	case string:
		return val, nil
	default:
		return nil, fmt.Errorf("unexpected result type %T", v)
	}
}

// isDivideByZero reports whether err is an integer division by zero (modulo).
func isDivideByZero(err error) bool {
	return err != nil && strings.Contains(err.Error(), "divide by zero")
}
