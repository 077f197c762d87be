package fundsheet

import (
	"errors"
	"fmt"
)

// ErrCoordinateOutOfRange indicates an axis lookup past the last structural record.
// In a template document it means the row or column was never initialized.
var ErrCoordinateOutOfRange = errors.New("coordinate out of range")

// ErrSheetNotFound indicates the document has no sheet with the requested name.
var ErrSheetNotFound = errors.New("sheet not found")

// ErrPrecondition indicates a formula result was written to a cell without a formula.
var ErrPrecondition = errors.New("cell has no formula")

// ErrUnsupportedType indicates a plain write with a value type other than float or string.
var ErrUnsupportedType = errors.New("unsupported value type")

// ErrUnsupportedRange indicates a range reference spanning more than one column.
var ErrUnsupportedRange = errors.New("multi-column ranges are not supported")

// ErrFormulaEval indicates a formula could not be evaluated.
var ErrFormulaEval = errors.New("formula evaluation failed")

// CoordinateOutOfRangeError reports an ordinal beyond the total length of an axis.
type CoordinateOutOfRangeError struct {
	Ordinal int
	Length  int
}

func (e *CoordinateOutOfRangeError) Error() string {
	return fmt.Sprintf("ordinal %d beyond axis length %d", e.Ordinal, e.Length)
}

func (e *CoordinateOutOfRangeError) Is(target error) bool {
	return target == ErrCoordinateOutOfRange
}

// FormulaEvalError carries the formula text and the expression it was rewritten to.
type FormulaEvalError struct {
	Formula    string
	Expression string
	Err        error
}

func (e *FormulaEvalError) Error() string {
	return fmt.Sprintf("evaluate formula %q (as %q): %v", e.Formula, e.Expression, e.Err)
}

func (e *FormulaEvalError) Unwrap() error {
	return e.Err
}

func (e *FormulaEvalError) Is(target error) bool {
	return target == ErrFormulaEval
}

// EvalError is the fatal pipeline failure: a formula cell that could not be evaluated.
type EvalError struct {
	Coordinate string
	Formula    string
	Err        error
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("error evaluating cell %s: %s: %v", e.Coordinate, e.Formula, e.Err)
}

func (e *EvalError) Unwrap() error {
	return e.Err
}
