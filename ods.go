package fundsheet

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"github.com/beevik/etree"
)

const (
	odsContentFile = "content.xml"
	odsMimetype    = "mimetype"

	attrRowsRepeated = "table:number-rows-repeated"
	attrColsRepeated = "table:number-columns-repeated"
	attrValueType    = "office:value-type"
	attrCalcType     = "calcext:value-type"
	attrValue        = "office:value"
	attrStringValue  = "office:string-value"
	attrFormula      = "table:formula"
)

// valueAttrs are all attributes that may carry a cell's value.
var valueAttrs = []string{
	attrValue, attrStringValue, "office:date-value", "office:time-value",
	"office:boolean-value", "office:currency",
}

type zipEntry struct {
	name     string
	method   uint16
	modified time.Time
	data     []byte
}

// ODSDocument is an OpenDocument spreadsheet held in memory. Only content.xml
// is parsed; every other archive entry is written back untouched.
type ODSDocument struct {
	path    string
	entries []zipEntry
	content *etree.Document
	body    *etree.Element // office:spreadsheet
}

// OpenODS loads an .ods file.
func OpenODS(path string) (*ODSDocument, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open document %q: %w", path, err)
	}
	defer r.Close()

	d := &ODSDocument{path: path}
	var content []byte
	for _, f := range r.File {
		data, err := readZipEntry(f)
		if err != nil {
			return nil, fmt.Errorf("read %s from %q: %w", f.Name, path, err)
		}
		if f.Name == odsContentFile {
			content = data
		}
		d.entries = append(d.entries, zipEntry{
			name:     f.Name,
			method:   f.Method,
			modified: f.Modified,
			data:     data,
		})
	}
	if content == nil {
		return nil, fmt.Errorf("open document %q: missing %s", path, odsContentFile)
	}

	d.content = etree.NewDocument()
	if err := d.content.ReadFromBytes(content); err != nil {
		return nil, fmt.Errorf("parse %s of %q: %w", odsContentFile, path, err)
	}
	d.body = d.content.FindElement("//office:spreadsheet")
	if d.body == nil {
		return nil, fmt.Errorf("open document %q: not a spreadsheet", path)
	}
	return d, nil
}

func readZipEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// Path returns the path the document was opened from.
func (d *ODSDocument) Path() string { return d.path }

// Close is a no-op; the archive is fully read on open.
func (d *ODSDocument) Close() error { return nil }

// SheetNames lists sheet names in document order.
func (d *ODSDocument) SheetNames() []string {
	var names []string
	for _, t := range d.body.SelectElements("table:table") {
		names = append(names, t.SelectAttrValue("table:name", ""))
	}
	return names
}

// Sheet returns the sheet with the given name.
func (d *ODSDocument) Sheet(name string) (Sheet, error) {
	for _, t := range d.body.SelectElements("table:table") {
		if t.SelectAttrValue("table:name", "") == name {
			return &odsSheet{name: name, table: t}, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrSheetNotFound, name)
}

// Save writes the document back to its own path.
func (d *ODSDocument) Save() error {
	return d.SaveAs(d.path)
}

// SaveAs writes the document to path. The mimetype entry goes first and
// uncompressed, as the format requires. The file is replaced atomically.
func (d *ODSDocument) SaveAs(path string) error {
	content, err := d.content.WriteToBytes()
	if err != nil {
		return fmt.Errorf("serialize %s: %w", odsContentFile, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".fundsheet-*.ods")
	if err != nil {
		return fmt.Errorf("save document %q: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	zw := zip.NewWriter(tmp)
	for _, e := range d.orderedEntries() {
		hdr := &zip.FileHeader{Name: e.name, Method: e.method, Modified: e.modified}
		data := e.data
		switch e.name {
		case odsMimetype:
			hdr.Method = zip.Store
		case odsContentFile:
			data = content
		}
		w, err := zw.CreateHeader(hdr)
		if err != nil {
			tmp.Close()
			return fmt.Errorf("save document %q: %w", path, err)
		}
		if _, err := w.Write(data); err != nil {
			tmp.Close()
			return fmt.Errorf("save document %q: %w", path, err)
		}
	}
	if err := zw.Close(); err != nil {
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

// orderedEntries returns the archive entries with mimetype moved to the front.
func (d *ODSDocument) orderedEntries() []zipEntry {
	out := make([]zipEntry, 0, len(d.entries))
	for _, e := range d.entries {
		if e.name == odsMimetype {
			out = append(out, e)
		}
	}
	for _, e := range d.entries {
		if e.name != odsMimetype {
			out = append(out, e)
		}
	}
	return out
}

// odsSheet is one table:table element.
type odsSheet struct {
	name  string
	table *etree.Element
}

func (s *odsSheet) Name() string { return s.name }

// Cell locates the row on the sheet's row axis, then the column on that
// row's cell axis.
func (s *odsSheet) Cell(coord string) (*Cell, error) {
	c, err := ParseCoordinate(coord)
	if err != nil {
		return nil, err
	}

	rows := &elementAxis{units: tableRows(s.table), attr: attrRowsRepeated}
	ri, err := Locate(rows, c.Row)
	if err != nil {
		return nil, fmt.Errorf("row of %s in sheet %q: %w", coord, s.name, err)
	}

	cells := &elementAxis{units: rowCells(rows.units[ri]), attr: attrColsRepeated}
	ci, err := Locate(cells, c.ColOrdinal())
	if err != nil {
		return nil, fmt.Errorf("column of %s in sheet %q: %w", coord, s.name, err)
	}
	return &Cell{coord: c, node: &odsCell{el: cells.units[ci]}}, nil
}

// tableRows collects the rows of a table in document order, descending into
// row groups and header rows.
func tableRows(table *etree.Element) []*etree.Element {
	var rows []*etree.Element
	for _, child := range table.ChildElements() {
		if child.Space != "table" {
			continue
		}
		switch child.Tag {
		case "table-row":
			rows = append(rows, child)
		case "table-row-group", "table-header-rows", "table-rows":
			rows = append(rows, tableRows(child)...)
		}
	}
	return rows
}

// rowCells collects the cells of a row. Covered cells occupy columns too.
func rowCells(row *etree.Element) []*etree.Element {
	var cells []*etree.Element
	for _, child := range row.ChildElements() {
		if child.Space == "table" && (child.Tag == "table-cell" || child.Tag == "covered-table-cell") {
			cells = append(cells, child)
		}
	}
	return cells
}

// elementAxis adapts a list of sibling-ordered elements carrying a repeat
// attribute to the Axis interface.
type elementAxis struct {
	units []*etree.Element
	attr  string
}

func (a *elementAxis) Len() int { return len(a.units) }

func (a *elementAxis) Repeat(i int) int {
	n, err := strconv.Atoi(a.units[i].SelectAttrValue(a.attr, "1"))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

func (a *elementAxis) SetRepeat(i, n int) {
	if n <= 1 {
		a.units[i].RemoveAttr(a.attr)
		return
	}
	a.units[i].CreateAttr(a.attr, strconv.Itoa(n))
}

func (a *elementAxis) InsertAfter(i, n int) {
	src := a.units[i]
	clone := src.Copy()
	src.Parent().InsertChildAt(src.Index()+1, clone)
	a.units = slices.Insert(a.units, i+1, clone)
	a.SetRepeat(i+1, n)
}

// odsCell is a table:table-cell element.
type odsCell struct {
	el *etree.Element
}

func (c *odsCell) valueType() ValueType {
	return ValueType(c.el.SelectAttrValue(attrValueType, ""))
}

func (c *odsCell) rawValue() (string, bool) {
	if a := c.el.SelectAttr(attrValue); a != nil {
		return a.Value, true
	}
	var attr string
	switch c.valueType() {
	case TypeString:
		attr = attrStringValue
	case TypeDate:
		attr = "office:date-value"
	case TypeTime:
		attr = "office:time-value"
	case TypeBoolean:
		attr = "office:boolean-value"
	default:
		return "", false
	}
	if a := c.el.SelectAttr(attr); a != nil {
		return a.Value, true
	}
	return "", false
}

func (c *odsCell) formula() (string, bool) {
	a := c.el.SelectAttr(attrFormula)
	if a == nil || a.Value == "" {
		return "", false
	}
	return a.Value, true
}

func (c *odsCell) write(v Value, t ValueType, text string, keepFormula bool) error {
	var attr, raw string
	switch t {
	case TypeFloat:
		f, ok := asFloat(v)
		if !ok {
			return fmt.Errorf("%w: %T is not a number", ErrUnsupportedType, v)
		}
		attr, raw = attrValue, strconv.FormatFloat(f, 'f', -1, 64)
	case TypeString:
		attr, raw = attrStringValue, text
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedType, t)
	}

	for _, a := range valueAttrs {
		c.el.RemoveAttr(a)
	}
	c.el.CreateAttr(attrValueType, string(t))
	if c.el.SelectAttr(attrCalcType) != nil {
		c.el.CreateAttr(attrCalcType, string(t))
	}
	c.el.CreateAttr(attr, raw)

	if !keepFormula {
		c.el.RemoveAttr(attrFormula)
	}

	for _, p := range c.el.SelectElements("text:p") {
		c.el.RemoveChild(p)
	}
	c.el.CreateElement("text:p").SetText(text)
	return nil
}
