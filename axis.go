package fundsheet

// Axis is a run-length compressed sequence of structural units: the rows of
// a sheet or the cells of a row. Units are addressed by index; an index is
// only valid until the next InsertAfter.
type Axis interface {
	// Len returns the number of stored units (not the logical length).
	Len() int
	// Repeat returns the repeat count of unit i (always >= 1).
	Repeat(i int) int
	// SetRepeat sets the repeat count of unit i.
	SetRepeat(i, n int)
	// InsertAfter clones unit i, gives the clone repeat count n and places it
	// immediately after unit i.
	InsertAfter(i, n int)
}

// AxisLength returns the logical length of the axis (sum of repeat counts).
func AxisLength(ax Axis) int {
	total := 0
	for i := 0; i < ax.Len(); i++ {
		total += ax.Repeat(i)
	}
	return total
}

// Locate returns the index of the unit representing the 1-based ordinal,
// splitting the compressed run that covers it so the returned unit has a
// repeat count of 1. The logical length of the axis never changes.
func Locate(ax Axis, ordinal int) (int, error) {
	if ordinal < 1 {
		return 0, &CoordinateOutOfRangeError{Ordinal: ordinal, Length: AxisLength(ax)}
	}
	seen := 0
	for i := 0; i < ax.Len(); i++ {
		n := ax.Repeat(i)
		offset := ordinal - seen
		if offset > n {
			seen += n
			continue
		}
		if n == 1 {
			return i, nil
		}
		if offset == 1 {
			// first slot: the run itself becomes the target
			ax.SetRepeat(i, 1)
			ax.InsertAfter(i, n-1)
			return i, nil
		}
		// middle or last slot: prefix keeps offset-1, then target, then remainder
		ax.SetRepeat(i, offset-1)
		if rest := n - offset; rest > 0 {
			ax.InsertAfter(i, rest)
		}
		ax.InsertAfter(i, 1)
		return i + 1, nil
	}
	return 0, &CoordinateOutOfRangeError{Ordinal: ordinal, Length: seen}
}
