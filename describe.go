package fundsheet

import (
	"fmt"
	"slices"
	"strings"
)

// DescribeFile opens the document at docPath and returns a human-readable
// dump of column on the sheet an update of inputPath would target.
// Useful for checking a template against the configured row layout.
func DescribeFile(docPath, inputPath, column string, opts ...Option) (string, error) {
	return NewUpdater(opts...).Describe(docPath, inputPath, column)
}

// Describe opens the document and dumps column. Nothing is saved.
func (u *Updater) Describe(docPath, inputPath, column string) (string, error) {
	name, err := ParseInputName(inputPath)
	if err != nil {
		return "", err
	}
	doc, err := u.openDocument(docPath)
	if err != nil {
		return "", err
	}
	defer doc.Close()

	sheet, err := doc.Sheet(u.sheetName(name))
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Document: %s\n", docPath)
	b.WriteString(Describe(sheet, column, u.opts.maxRows))

	if table, err := u.opts.config.Table(name.Statement); err == nil {
		describeMapping(&b, column, name.Statement, table)
	}
	return b.String(), nil
}

// Describe returns one line per addressable cell of column within the
// first maxRows rows: coordinate, declared type, value and formula.
// Empty cells are omitted.
func Describe(sheet Sheet, column string, maxRows int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Sheet %s column %s\n", sheet.Name(), column)

	for row := 1; row <= maxRows; row++ {
		coord := NewCoordinate(column, row).String()
		cell, err := sheet.Cell(coord)
		if err != nil {
			// rows past the end stay past the end
			break
		}
		formula, hasFormula := cell.Formula()
		if cell.Type() == TypeUnset && !hasFormula {
			continue
		}
		fmt.Fprintf(&b, "  %s %s %s", coord, describeType(cell.Type()), FormatValue(cell.Value()))
		if hasFormula {
			fmt.Fprintf(&b, " %s", formula)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func describeType(t ValueType) string {
	if t == TypeUnset {
		return "-"
	}
	return string(t)
}

// describeMapping lists where each tag of the statement lands in column.
func describeMapping(b *strings.Builder, column, statement string, table TranslationTable) {
	byRow := make(map[int][]string)
	maxRow := 0
	for tag, row := range table {
		byRow[row] = append(byRow[row], tag)
		if row > maxRow {
			maxRow = row
		}
	}
	fmt.Fprintf(b, "Mapping %s\n", statement)
	for row := 1; row <= maxRow; row++ {
		tags, ok := byRow[row]
		if !ok {
			continue
		}
		slices.Sort(tags)
		fmt.Fprintf(b, "  %s %s\n", NewCoordinate(column, row), strings.Join(tags, ", "))
	}
}
