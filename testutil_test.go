package fundsheet

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const odsContentTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<office:document-content xmlns:office="urn:oasis:names:tc:opendocument:xmlns:office:1.0" xmlns:table="urn:oasis:names:tc:opendocument:xmlns:table:1.0" xmlns:text="urn:oasis:names:tc:opendocument:xmlns:text:1.0" xmlns:calcext="urn:org:documentfoundation:names:experimental:calc:xmlns:calcext:1.0" xmlns:of="urn:oasis:names:tc:opendocument:xmlns:of:1.2" office:version="1.2"><office:body><office:spreadsheet>%s</office:spreadsheet></office:body></office:document-content>`

const odsManifest = `<?xml version="1.0" encoding="UTF-8"?>
<manifest:manifest xmlns:manifest="urn:oasis:names:tc:opendocument:xmlns:manifest:1.0" manifest:version="1.2"><manifest:file-entry manifest:full-path="/" manifest:media-type="application/vnd.oasis.opendocument.spreadsheet"/><manifest:file-entry manifest:full-path="content.xml" manifest:media-type="text/xml"/></manifest:manifest>`

// writeODS creates a minimal .ods file in dir whose spreadsheet body is tables.
func writeODS(t *testing.T, dir, name, tables string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	entries := []struct {
		name   string
		method uint16
		data   string
	}{
		{"mimetype", zip.Store, "application/vnd.oasis.opendocument.spreadsheet"},
		{"content.xml", zip.Deflate, fmt.Sprintf(odsContentTemplate, tables)},
		{"META-INF/manifest.xml", zip.Deflate, odsManifest},
	}
	for _, e := range entries {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: e.name, Method: e.method})
		require.NoError(t, err)
		_, err = io.WriteString(w, e.data)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return path
}

// readZip returns the entries of an archive in order, keyed by name.
func readZip(t *testing.T, path string) ([]*zip.File, map[string]string) {
	t.Helper()
	r, err := zip.OpenReader(path)
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })

	contents := make(map[string]string)
	for _, f := range r.File {
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		contents[f.Name] = string(data)
	}
	return r.File, contents
}

// emptyRows renders n empty rows of width cells as one compressed row.
func emptyRows(n, width int) string {
	return fmt.Sprintf(`<table:table-row table:number-rows-repeated="%d"><table:table-cell table:number-columns-repeated="%d"/></table:table-row>`, n, width)
}

// formulaRow renders a row whose cell at column col (1-based) carries
// formula; the row is width cells wide.
func formulaRow(col, width int, formula string) string {
	var b strings.Builder
	b.WriteString(`<table:table-row>`)
	if col > 1 {
		fmt.Fprintf(&b, `<table:table-cell table:number-columns-repeated="%d"/>`, col-1)
	}
	fmt.Fprintf(&b, `<table:table-cell table:formula="%s" office:value-type="float" calcext:value-type="float" office:value="0"><text:p>0</text:p></table:table-cell>`, formula)
	if rest := width - col; rest > 0 {
		fmt.Fprintf(&b, `<table:table-cell table:number-columns-repeated="%d"/>`, rest)
	}
	b.WriteString(`</table:table-row>`)
	return b.String()
}

func odsTable(name string, rows ...string) string {
	return fmt.Sprintf(`<table:table table:name="%s">%s</table:table>`, name, strings.Join(rows, ""))
}

// templateTables is a sheet "AAPL", 20 columns by 40 rows, with formulas in
// column K: K10 = K3*2, K11 = K10-K3, K12 = K3/K4.
func templateTables() string {
	k := ColumnOrdinal("K")
	return odsTable("AAPL",
		emptyRows(9, 20),
		formulaRow(k, 20, "of:=[.K3]*2"),
		formulaRow(k, 20, "of:=[.K10]-[.K3]"),
		formulaRow(k, 20, "of:=[.K3]/[.K4]"),
		emptyRows(28, 20),
	) + odsTable("Notes", emptyRows(5, 5))
}

// openTemplate writes the standard template and opens it.
func openTemplate(t *testing.T) (*ODSDocument, Sheet) {
	t.Helper()
	path := writeODS(t, t.TempDir(), "model.ods", templateTables())
	doc, err := OpenODS(path)
	require.NoError(t, err)
	sheet, err := doc.Sheet("AAPL")
	require.NoError(t, err)
	return doc, sheet
}

// mapLookup resolves coordinates from a map; missing keys read as 0.
type mapLookup map[string]Value

func (m mapLookup) Get(coord string) (Value, error) {
	if v, ok := m[coord]; ok {
		return v, nil
	}
	return float64(0), nil
}

// recordingListener collects notifications for assertions.
type recordingListener struct {
	periods     []string
	skipped     []string
	writes      map[string]Value
	evaluations map[string]Value
}

func newRecordingListener() *recordingListener {
	return &recordingListener{writes: map[string]Value{}, evaluations: map[string]Value{}}
}

func (r *recordingListener) OnPeriod(column string, p Period) {
	r.periods = append(r.periods, column+":"+p.EndPeriod)
}

func (r *recordingListener) OnSkip(p Period, _ string) {
	r.skipped = append(r.skipped, p.EndPeriod)
}

func (r *recordingListener) OnWrite(coord, _ string, v Value) { r.writes[coord] = v }

func (r *recordingListener) OnEvaluate(coord, _ string, v Value) { r.evaluations[coord] = v }
