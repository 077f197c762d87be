package fundsheet

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// createXLSXTemplate saves a workbook with sheet "AAPL" whose column K holds
// K10 = K3*2 and K11 = SUM(K3:K4).
func createXLSXTemplate(t *testing.T, dir string) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	require.NoError(t, f.SetSheetName("Sheet1", "AAPL"))
	require.NoError(t, f.SetCellValue("AAPL", "A3", "Revenue"))
	require.NoError(t, f.SetCellValue("AAPL", "K4", 2.5))
	require.NoError(t, f.SetCellFormula("AAPL", "K10", "K3*2"))
	require.NoError(t, f.SetCellFormula("AAPL", "K11", "SUM(K3:K4)"))

	path := filepath.Join(dir, "model.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestBracketFormula(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"SUM(K3:K5)", "of:=SUM([.K3:.K5])"},
		{"K5-K7", "of:=[.K5]-[.K7]"},
		{"K3+SUM(K7:K9)", "of:=[.K3]+SUM([.K7:.K9])"},
		{"$K$3*2", "of:=[.K3]*2"},
		{"LOG10(K3)", "of:=LOG10([.K3])"},
		{"Sheet2!K3+K4", "of:=Sheet2!K3+[.K4]"},
		{"AB12/AB13", "of:=[.AB12]/[.AB13]"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, BracketFormula(tt.in))
		})
	}
}

func TestXLSX_Cells(t *testing.T) {
	doc, err := OpenXLSX(createXLSXTemplate(t, t.TempDir()), false)
	require.NoError(t, err)
	defer doc.Close()

	assert.Equal(t, []string{"AAPL"}, doc.SheetNames())
	_, err = doc.Sheet("MSFT")
	assert.ErrorIs(t, err, ErrSheetNotFound)

	sheet, err := doc.Sheet("AAPL")
	require.NoError(t, err)

	cell, err := sheet.Cell("K4")
	require.NoError(t, err)
	assert.Equal(t, TypeFloat, cell.Type())
	assert.Equal(t, 2.5, cell.Value())

	cell, err = sheet.Cell("A3")
	require.NoError(t, err)
	assert.Equal(t, TypeString, cell.Type())
	assert.Equal(t, "Revenue", cell.Value())

	cell, err = sheet.Cell("Z99")
	require.NoError(t, err)
	assert.Equal(t, TypeUnset, cell.Type())
	assert.Equal(t, float64(0), cell.Value())

	cell, err = sheet.Cell("K11")
	require.NoError(t, err)
	formula, ok := cell.Formula()
	require.True(t, ok)
	assert.Equal(t, "of:=SUM([.K3:.K4])", formula)
}

func TestXLSX_GridLimits(t *testing.T) {
	doc := NewXLSXDocument(excelize.NewFile(), filepath.Join(t.TempDir(), "x.xlsx"), false)
	defer doc.Close()
	sheet, err := doc.Sheet("Sheet1")
	require.NoError(t, err)

	_, err = sheet.Cell(NewCoordinate("A", excelize.TotalRows+1).String())
	assert.ErrorIs(t, err, ErrCoordinateOutOfRange)
	_, err = sheet.Cell(NewCoordinate(ColumnLabel(excelize.MaxColumns+1), 1).String())
	assert.ErrorIs(t, err, ErrCoordinateOutOfRange)
}

func TestXLSX_Writes(t *testing.T) {
	doc, err := OpenXLSX(createXLSXTemplate(t, t.TempDir()), false)
	require.NoError(t, err)
	defer doc.Close()
	sheet, err := doc.Sheet("AAPL")
	require.NoError(t, err)

	cell, err := sheet.Cell("K10")
	require.NoError(t, err)
	require.NoError(t, cell.SetResult(5.0))
	formula, ok := cell.Formula()
	require.True(t, ok)
	assert.Equal(t, "of:=[.K3]*2", formula)

	require.NoError(t, cell.SetValue(7.0, TypeFloat))
	_, ok = cell.Formula()
	assert.False(t, ok)
	assert.Equal(t, 7.0, cell.Value())

	cell, err = sheet.Cell("K3")
	require.NoError(t, err)
	assert.ErrorIs(t, cell.SetResult(1.0), ErrPrecondition)
	assert.ErrorIs(t, cell.SetValue(true, TypeBoolean), ErrUnsupportedType)
}

func TestXLSX_RejectedWriteLeavesCell(t *testing.T) {
	doc, err := OpenXLSX(createXLSXTemplate(t, t.TempDir()), false)
	require.NoError(t, err)
	defer doc.Close()
	sheet, err := doc.Sheet("AAPL")
	require.NoError(t, err)

	cell, err := sheet.Cell("K4")
	require.NoError(t, err)
	assert.ErrorIs(t, cell.SetValue("n/a", TypeFloat), ErrUnsupportedType)
	assert.Equal(t, 2.5, cell.Value())

	cell, err = sheet.Cell("K10")
	require.NoError(t, err)
	assert.ErrorIs(t, cell.SetValue("n/a", TypeFloat), ErrUnsupportedType)
	formula, ok := cell.Formula()
	require.True(t, ok)
	assert.Equal(t, "of:=[.K3]*2", formula)
}

func TestXLSX_SaveAsBackupName(t *testing.T) {
	dir := t.TempDir()
	path := createXLSXTemplate(t, dir)
	doc, err := Open(path, WithRecalculateOnOpen(true))
	require.NoError(t, err)
	defer doc.Close()

	sheet, err := doc.Sheet("AAPL")
	require.NoError(t, err)
	cell, err := sheet.Cell("K3")
	require.NoError(t, err)
	require.NoError(t, cell.SetValue(5.0, TypeFloat))

	backup := path + ".back"
	require.NoError(t, doc.SaveAs(backup))
	require.NoError(t, doc.Save())

	for _, p := range []string{path, backup} {
		f, err := excelize.OpenFile(p)
		require.NoError(t, err, p)
		v, err := f.GetCellValue("AAPL", "K3")
		require.NoError(t, err)
		assert.Equal(t, "5", v)
		formula, err := f.GetCellFormula("AAPL", "K10")
		require.NoError(t, err)
		assert.Equal(t, "K3*2", formula)
		f.Close()
	}
}
