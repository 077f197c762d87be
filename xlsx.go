package fundsheet

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/xuri/excelize/v2"
)

// XLSXDocument implements Document using excelize. Cells are addressable
// natively, so only coordinates past the format's grid limits are out of range.
type XLSXDocument struct {
	path   string
	file   *excelize.File
	recalc bool
}

// NewXLSXDocument wraps an open excelize file. path is where Save writes.
func NewXLSXDocument(f *excelize.File, path string, recalcOnOpen bool) *XLSXDocument {
	return &XLSXDocument{path: path, file: f, recalc: recalcOnOpen}
}

// OpenXLSX opens an xlsx file.
func OpenXLSX(path string, recalcOnOpen bool) (*XLSXDocument, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open document %q: %w", path, err)
	}
	return NewXLSXDocument(f, path, recalcOnOpen), nil
}

// Path returns the path the document was opened from.
func (d *XLSXDocument) Path() string { return d.path }

// SheetNames lists sheet names in workbook order.
func (d *XLSXDocument) SheetNames() []string {
	return d.file.GetSheetList()
}

// Sheet returns the sheet with the given name.
func (d *XLSXDocument) Sheet(name string) (Sheet, error) {
	idx, err := d.file.GetSheetIndex(name)
	if err != nil || idx < 0 {
		return nil, fmt.Errorf("%w: %q", ErrSheetNotFound, name)
	}
	return &xlsxSheet{file: d.file, name: name}, nil
}

// Save writes the workbook to its own path.
func (d *XLSXDocument) Save() error {
	return d.SaveAs(d.path)
}

// SaveAs writes the workbook to path through a temp file. excelize's own
// SaveAs rejects unknown extensions, which rules out backup names.
func (d *XLSXDocument) SaveAs(path string) error {
	if d.recalc {
		full := true
		if err := d.file.SetCalcProps(&excelize.CalcPropsOptions{FullCalcOnLoad: &full}); err != nil {
			return fmt.Errorf("set calc properties: %w", err)
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".fundsheet-*.xlsx")
	if err != nil {
		return fmt.Errorf("save document %q: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if err := d.file.Write(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("save document %q: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("save document %q: %w", path, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("save document %q: %w", path, err)
	}
	return os.Rename(tmp.Name(), path)
}

// Close closes the underlying excelize file.
func (d *XLSXDocument) Close() error {
	return d.file.Close()
}

// File returns the underlying excelize file for advanced operations.
func (d *XLSXDocument) File() *excelize.File {
	return d.file
}

type xlsxSheet struct {
	file *excelize.File
	name string
}

func (s *xlsxSheet) Name() string { return s.name }

func (s *xlsxSheet) Cell(coord string) (*Cell, error) {
	c, err := ParseCoordinate(coord)
	if err != nil {
		return nil, err
	}
	if c.Row > excelize.TotalRows {
		return nil, fmt.Errorf("row of %s in sheet %q: %w", coord, s.name,
			&CoordinateOutOfRangeError{Ordinal: c.Row, Length: excelize.TotalRows})
	}
	if ord := c.ColOrdinal(); ord > excelize.MaxColumns {
		return nil, fmt.Errorf("column of %s in sheet %q: %w", coord, s.name,
			&CoordinateOutOfRangeError{Ordinal: ord, Length: excelize.MaxColumns})
	}
	return &Cell{coord: c, node: &xlsxCell{file: s.file, sheet: s.name, name: c.String()}}, nil
}

type xlsxCell struct {
	file  *excelize.File
	sheet string
	name  string
}

func (c *xlsxCell) valueType() ValueType {
	ct, err := c.file.GetCellType(c.sheet, c.name)
	if err != nil {
		return TypeUnset
	}
	switch ct {
	case excelize.CellTypeNumber:
		return TypeFloat
	case excelize.CellTypeBool:
		return TypeBoolean
	case excelize.CellTypeDate:
		return TypeDate
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString,
		excelize.CellTypeFormula, excelize.CellTypeError:
		return TypeString
	}
	// numbers are usually stored without an explicit type
	raw, ok := c.rawValue()
	if !ok {
		return TypeUnset
	}
	if _, err := strconv.ParseFloat(raw, 64); err == nil {
		return TypeFloat
	}
	return TypeString
}

func (c *xlsxCell) rawValue() (string, bool) {
	v, err := c.file.GetCellValue(c.sheet, c.name, excelize.Options{RawCellValue: true})
	if err != nil || v == "" {
		return "", false
	}
	return v, true
}

func (c *xlsxCell) formula() (string, bool) {
	f, err := c.file.GetCellFormula(c.sheet, c.name)
	if err != nil || f == "" {
		return "", false
	}
	return BracketFormula(f), true
}

func (c *xlsxCell) write(v Value, t ValueType, text string, keepFormula bool) error {
	var f float64
	switch t {
	case TypeFloat:
		var ok bool
		if f, ok = asFloat(v); !ok {
			return fmt.Errorf("%w: %T is not a number", ErrUnsupportedType, v)
		}
	case TypeString:
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedType, t)
	}

	orig, err := c.file.GetCellFormula(c.sheet, c.name)
	if err != nil {
		return err
	}
	if !keepFormula && orig != "" {
		if err := c.file.SetCellFormula(c.sheet, c.name, ""); err != nil {
			return err
		}
	}

	if t == TypeFloat {
		if err := c.file.SetCellFloat(c.sheet, c.name, f, -1, 64); err != nil {
			return err
		}
	} else if err := c.file.SetCellStr(c.sheet, c.name, text); err != nil {
		return err
	}

	// value setters drop the formula; put it back for result writes
	if keepFormula && orig != "" {
		return c.file.SetCellFormula(c.sheet, c.name, orig)
	}
	return nil
}

// a1RefRegex matches A1-style references and ranges (e.g. K3, $K$3, K3:K5).
var a1RefRegex = regexp.MustCompile(`\$?([A-Z]{1,3})\$?([0-9]+)(?::\$?([A-Z]{1,3})\$?([0-9]+))?`)

// BracketFormula rewrites an A1-style formula ("SUM(K3:K5)") into the
// bracket syntax the evaluator reads ("of:=SUM([.K3:.K5])").
func BracketFormula(formula string) string {
	result := formula
	matches := a1RefRegex.FindAllStringSubmatchIndex(formula, -1)

	// Process matches in reverse order to preserve indices
	for i := len(matches) - 1; i >= 0; i-- {
		m := matches[i]
		// function names (LOG10), identifiers and sheet-qualified refs stay as-is
		if m[0] > 0 && isRefNeighbor(formula[m[0]-1]) {
			continue
		}
		if m[1] < len(formula) && (isRefNeighbor(formula[m[1]]) || formula[m[1]] == '(') {
			continue
		}

		ref := "[." + formula[m[2]:m[3]] + formula[m[4]:m[5]]
		if m[6] >= 0 {
			ref += ":." + formula[m[6]:m[7]] + formula[m[8]:m[9]]
		}
		result = result[:m[0]] + ref + "]" + result[m[1]:]
	}
	return "of:=" + result
}

func isRefNeighbor(b byte) bool {
	return (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9') ||
		b == '_' || b == '.' || b == '!'
}
