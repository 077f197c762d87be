package fundsheet

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/expr-lang/expr"
)

// Severity indicates the severity of a validation issue.
type Severity int

const (
	SeverityError   Severity = iota // Update will fail at runtime
	SeverityWarning                 // Update may produce unexpected results
)

// ValidationIssue represents a single problem found in a template column.
type ValidationIssue struct {
	Severity Severity
	Sheet    string
	Cell     string
	Message  string
}

// String formats the issue as "[ERROR] AAPL!K3: message" or "[WARN] ...".
func (v ValidationIssue) String() string {
	sev := "ERROR"
	if v.Severity == SeverityWarning {
		sev = "WARN"
	}
	return fmt.Sprintf("[%s] %s!%s: %s", sev, v.Sheet, v.Cell, v.Message)
}

// ValidateFile opens the document at docPath and checks the column an
// update of inputPath would start at. Nothing is saved.
func ValidateFile(docPath, inputPath, column string, opts ...Option) ([]ValidationIssue, error) {
	return NewUpdater(opts...).Validate(docPath, inputPath, column)
}

// Validate opens the document and performs static checks on column.
// A non-nil error means the document, input name or sheet could not be resolved.
func (u *Updater) Validate(docPath, inputPath, column string) ([]ValidationIssue, error) {
	name, err := ParseInputName(inputPath)
	if err != nil {
		return nil, err
	}
	doc, err := u.openDocument(docPath)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	sheet, err := doc.Sheet(u.sheetName(name))
	if err != nil {
		return nil, err
	}
	cfg := *u.opts.config
	cfg.MaxRows = u.opts.maxRows
	return Validate(sheet, column, name.Statement, &cfg), nil
}

// Validate checks that every row the statement maps to is addressable in
// column and that the column's formulas are within what the evaluator
// supports. Resolving cells may split compressed records of the sheet.
func Validate(sheet Sheet, column, statement string, cfg *Config) []ValidationIssue {
	var issues []ValidationIssue
	issue := func(sev Severity, coord, format string, args ...any) {
		issues = append(issues, ValidationIssue{
			Severity: sev,
			Sheet:    sheet.Name(),
			Cell:     coord,
			Message:  fmt.Sprintf(format, args...),
		})
	}

	if !IsColumnLabel(column) {
		issue(SeverityError, column, "invalid column label %q", column)
		return issues
	}
	table, err := cfg.Table(statement)
	if err != nil {
		issue(SeverityError, column, "%v", err)
		return issues
	}

	issues = append(issues, validateMappedRows(sheet, column, table)...)

	for row := 1; row <= cfg.MaxRows; row++ {
		coord := NewCoordinate(column, row).String()
		cell, err := sheet.Cell(coord)
		if err != nil {
			continue
		}
		formula, ok := cell.Formula()
		if !ok {
			continue
		}
		for _, m := range rangeRefRegex.FindAllStringSubmatch(formula, -1) {
			if m[1] != m[3] {
				issue(SeverityError, coord, "range %s spans columns %s to %s", m[0], m[1], m[3])
			}
			if end, _ := strconv.Atoi(m[4]); end > cfg.MaxRows {
				issue(SeverityWarning, coord, "range %s ends beyond max_rows (%d)", m[0], cfg.MaxRows)
			}
		}
		for _, m := range cellRefRegex.FindAllStringSubmatch(formula, -1) {
			if r, _ := strconv.Atoi(m[2]); r > cfg.MaxRows {
				issue(SeverityWarning, coord, "reference %s is beyond max_rows (%d)", m[0], cfg.MaxRows)
			}
		}
		if msg := compileCheck(formula); msg != "" {
			issue(SeverityError, coord, "%s", msg)
		}
	}
	return issues
}

// validateMappedRows reports tags whose target row does not exist in column.
func validateMappedRows(sheet Sheet, column string, table TranslationTable) []ValidationIssue {
	tags := make([]string, 0, len(table))
	for tag := range table {
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool {
		if table[tags[i]] != table[tags[j]] {
			return table[tags[i]] < table[tags[j]]
		}
		return tags[i] < tags[j]
	})

	var issues []ValidationIssue
	for _, tag := range tags {
		coord := NewCoordinate(column, table[tag]).String()
		if _, err := sheet.Cell(coord); err != nil {
			msg := fmt.Sprintf("tag %q maps to an unaddressable cell: %v", tag, err)
			if errors.Is(err, ErrCoordinateOutOfRange) {
				msg = fmt.Sprintf("tag %q maps to row %d, which the template does not define", tag, table[tag])
			}
			issues = append(issues, ValidationIssue{
				Severity: SeverityError,
				Sheet:    sheet.Name(),
				Cell:     coord,
				Message:  msg,
			})
		}
	}
	return issues
}

// compileCheck rewrites formula with placeholder operands and compiles the
// result for syntax checking. It returns an empty string when the formula
// compiles.
func compileCheck(formula string) string {
	expression, _, err := NewFormulaEvaluator().Rewrite(formula, placeholderLookup{})
	if err != nil {
		// multi-column ranges are already reported
		if errors.Is(err, ErrUnsupportedRange) {
			return ""
		}
		return err.Error()
	}
	if _, err := expr.Compile(expression); err != nil {
		return fmt.Sprintf("formula %q does not compile as %q: %v", formula, expression, err)
	}
	return ""
}

// placeholderLookup resolves every coordinate to 1.
type placeholderLookup struct{}

func (placeholderLookup) Get(string) (Value, error) { return float64(1), nil }
