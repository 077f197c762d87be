package fundsheet

import (
	"fmt"
	"strconv"
)

// DivByZero is the sentinel value produced by a division by zero. It is a
// legal operand: any formula that references it evaluates to it.
const DivByZero = "#DIV/0!"

// Value is a cell value: float64 for numbers, string for text and error markers.
type Value = any

// ValueType is the declared type of a cell value.
type ValueType string

const (
	TypeFloat      ValueType = "float"
	TypeString     ValueType = "string"
	TypeCurrency   ValueType = "currency"
	TypePercentage ValueType = "percentage"
	TypeBoolean    ValueType = "boolean"
	TypeDate       ValueType = "date"
	TypeTime       ValueType = "time"
	TypeUnset      ValueType = ""
)

// IsNumeric reports whether values of this type are read back as numbers.
func (t ValueType) IsNumeric() bool {
	switch t {
	case TypeFloat, TypeCurrency, TypePercentage:
		return true
	default:
		return false
	}
}

// cellNode is the storage a Cell wraps. Each document backend provides one.
type cellNode interface {
	valueType() ValueType
	rawValue() (string, bool)
	formula() (string, bool)
	// write stores v with type t; the formula is kept only when keepFormula is set.
	write(v Value, t ValueType, text string, keepFormula bool) error
}

// Cell is one materialized, individually addressable cell of a sheet.
type Cell struct {
	coord Coordinate
	node  cellNode
}

// Coordinate returns the cell's coordinate.
func (c *Cell) Coordinate() Coordinate {
	return c.coord
}

// Type returns the declared value type.
func (c *Cell) Type() ValueType {
	return c.node.valueType()
}

// Value returns the stored value. Numeric types are coerced to float64; a
// malformed number is returned as its raw string. An unset value reads as 0.
func (c *Cell) Value() Value {
	raw, ok := c.node.rawValue()
	if !ok || raw == "" {
		return float64(0)
	}
	if c.node.valueType().IsNumeric() {
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return f
		}
	}
	return raw
}

// Formula returns the cell's formula in bracket syntax, e.g. "of:=SUM([.K3:.K5])".
func (c *Cell) Formula() (string, bool) {
	return c.node.formula()
}

// SetValue writes a plain value and removes any formula. Only float and
// string types are accepted.
func (c *Cell) SetValue(v Value, t ValueType) error {
	if t != TypeFloat && t != TypeString {
		return fmt.Errorf("cell %s: %w: %q", c.coord, ErrUnsupportedType, t)
	}
	return c.node.write(v, t, FormatValue(v), false)
}

// SetResult writes the computed result of the cell's own formula.
func (c *Cell) SetResult(v Value) error {
	if _, ok := c.node.formula(); !ok {
		return fmt.Errorf("cell %s: %w", c.coord, ErrPrecondition)
	}
	t := TypeString
	if _, ok := v.(float64); ok {
		t = TypeFloat
	}
	return c.node.write(v, t, FormatValue(v), true)
}

// Evaluate computes the cell's formula against lookup.
func (c *Cell) Evaluate(ev *FormulaEvaluator, lookup Lookup) (Value, error) {
	formula, ok := c.node.formula()
	if !ok {
		return nil, fmt.Errorf("cell %s: %w", c.coord, ErrPrecondition)
	}
	return ev.Evaluate(formula, lookup)
}

// FormatValue renders a value the way it is displayed in a cell.
func FormatValue(v Value) string {
	switch val := v.(type) {
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case string:
		return val
	default:
		return fmt.Sprintf("%v", val)
	}
}
