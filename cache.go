package fundsheet

// ValueCache holds the values of already read or computed cells for one
// evaluation pass. A miss reads the cell from the sheet and memoizes it.
type ValueCache struct {
	sheet  Sheet
	values map[string]Value
}

// NewValueCache creates an empty cache over sheet.
func NewValueCache(sheet Sheet) *ValueCache {
	return &ValueCache{
		sheet:  sheet,
		values: make(map[string]Value),
	}
}

// Get returns the cached value for coord, reading it from the sheet on a miss.
func (c *ValueCache) Get(coord string) (Value, error) {
	if v, ok := c.values[coord]; ok {
		return v, nil
	}
	cell, err := c.sheet.Cell(coord)
	if err != nil {
		return nil, err
	}
	v := cell.Value()
	c.values[coord] = v
	return v, nil
}

// Put stores a value, replacing whatever was cached for coord.
func (c *ValueCache) Put(coord string, v Value) {
	c.values[coord] = v
}

// Has reports whether coord is cached.
func (c *ValueCache) Has(coord string) bool {
	_, ok := c.values[coord]
	return ok
}

// Len returns the number of cached coordinates.
func (c *ValueCache) Len() int {
	return len(c.values)
}
