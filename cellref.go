package fundsheet

import (
	"fmt"
	"regexp"
	"strconv"
)

// Coordinate identifies a single cell by column label and 1-based row.
type Coordinate struct {
	Col string // column label, e.g. "K"
	Row int    // 1-based row number
}

// NewCoordinate creates a Coordinate from a column label and row.
func NewCoordinate(col string, row int) Coordinate {
	return Coordinate{Col: col, Row: row}
}

var (
	coordRegex  = regexp.MustCompile(`^([A-Z]+)([0-9]+)$`)
	columnRegex = regexp.MustCompile(`^[A-Z]+$`)
)

// IsColumnLabel reports whether s is a well-formed column label ("A", "AB").
func IsColumnLabel(s string) bool {
	return columnRegex.MatchString(s)
}

// ParseCoordinate parses a coordinate string like "K37".
func ParseCoordinate(s string) (Coordinate, error) {
	m := coordRegex.FindStringSubmatch(s)
	if m == nil {
		return Coordinate{}, fmt.Errorf("invalid coordinate: %q", s)
	}
	row, err := strconv.Atoi(m[2])
	if err != nil || row < 1 {
		return Coordinate{}, fmt.Errorf("invalid row in coordinate: %q", s)
	}
	return Coordinate{Col: m[1], Row: row}, nil
}

// String formats the coordinate as "K37".
func (c Coordinate) String() string {
	return c.Col + strconv.Itoa(c.Row)
}

// ColOrdinal returns the 1-based ordinal of the coordinate's column.
func (c Coordinate) ColOrdinal() int {
	return ColumnOrdinal(c.Col)
}

// ColumnOrdinal converts a column label to its 1-based ordinal.
// "A"→1, "Z"→26, "AA"→27, "BA"→53
func ColumnOrdinal(label string) int {
	ord := 0
	for _, ch := range label {
		ord = ord*26 + int(ch-'A') + 1
	}
	return ord
}

// ColumnLabel converts a 1-based ordinal to a column label.
// 1→"A", 26→"Z", 27→"AA", 702→"ZZ", 703→"AAA"
func ColumnLabel(ordinal int) string {
	if ordinal <= 26 {
		return string(rune('A' + ordinal - 1))
	}
	return ColumnLabel((ordinal-1)/26) + ColumnLabel((ordinal-1)%26+1)
}

// IncrementColumn returns the label of the column right after label.
func IncrementColumn(label string) string {
	return ColumnLabel(ColumnOrdinal(label) + 1)
}
