package fundsheet

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// Document abstracts a loaded spreadsheet file. It owns its sheets and the
// path it was loaded from.
type Document interface {
	// Sheet returns the sheet with the given name.
	Sheet(name string) (Sheet, error)
	// SheetNames lists sheet names in document order.
	SheetNames() []string

	// Path returns the path the document was opened from.
	Path() string
	// Save persists the document to its own path.
	Save() error
	// SaveAs persists the document to path; the document keeps its own path.
	SaveAs(path string) error
	Close() error
}

// Sheet resolves coordinate strings to cells.
type Sheet interface {
	Name() string
	// Cell materializes the cell at coord ("K37"), splitting compressed rows
	// and columns as needed.
	Cell(coord string) (*Cell, error)
}

// Open loads a document, choosing the backend from the file extension.
func Open(path string, opts ...Option) (Document, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ods":
		doc, err := OpenODS(path)
		if err != nil {
			return nil, err
		}
		return doc, nil
	case ".xlsx", ".xlsm":
		doc, err := OpenXLSX(path, o.recalculateOnOpen)
		if err != nil {
			return nil, err
		}
		return doc, nil
	default:
		return nil, fmt.Errorf("open %q: unsupported document format", path)
	}
}

// asFloat converts a numeric Value to float64.
func asFloat(v Value) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case string:
		f, err := strconv.ParseFloat(val, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
